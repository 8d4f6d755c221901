package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/sstent/runlog-go/internal/models"
)

const documentExt = ".json"

// JSONStore keeps one indented JSON document per activity in a directory.
type JSONStore struct {
	dir string
}

var (
	_ ActivityStore  = (*JSONStore)(nil)
	_ DocumentWriter = (*JSONStore)(nil)
)

// NewJSONStore returns a store rooted at dir. The directory is created on the
// first write, so opening a store for reading has no side effects.
func NewJSONStore(dir string) *JSONStore {
	return &JSONStore{dir: dir}
}

func (s *JSONStore) Dir() string { return s.dir }

func (s *JSONStore) path(name string) string {
	return filepath.Join(s.dir, name+documentExt)
}

func (s *JSONStore) SaveActivity(name string, a *models.Activity) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", ErrEmptyName
	}
	if err := a.Validate(); err != nil {
		return "", fmt.Errorf("save %s: %w", name, err)
	}

	path := s.path(name)
	if err := writeJSON(path, a); err != nil {
		return "", err
	}
	return path, nil
}

func (s *JSONStore) Exists(name string) bool {
	_, err := os.Stat(s.path(name))
	return err == nil
}

func (s *JSONStore) RemoveSiblings(date string, keep int) ([]string, error) {
	if strings.TrimSpace(date) == "" {
		return nil, ErrEmptyName
	}
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read store directory %s: %w", s.dir, err)
	}

	var removed []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != documentExt {
			continue
		}
		suffix, ok := strings.CutPrefix(strings.TrimSuffix(e.Name(), documentExt), date+"_")
		if !ok {
			continue
		}
		n, err := strconv.Atoi(suffix)
		if err != nil || n < 2 || n <= keep || strconv.Itoa(n) != suffix {
			continue
		}
		path := filepath.Join(s.dir, e.Name())
		if err := os.Remove(path); err != nil {
			return removed, fmt.Errorf("remove %s: %w", path, err)
		}
		removed = append(removed, path)
	}
	return removed, nil
}

func (s *JSONStore) LoadActivities() ([]models.Activity, []LoadError, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, nil, fmt.Errorf("read store directory %s: %w", s.dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), documentExt) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	var (
		activities []models.Activity
		failed     []LoadError
	)
	for _, name := range names {
		path := filepath.Join(s.dir, name)
		a, err := readActivity(path)
		if err != nil {
			failed = append(failed, LoadError{Path: path, Err: err})
			continue
		}
		activities = append(activities, *a)
	}
	return activities, failed, nil
}

func readActivity(path string) (*models.Activity, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var a models.Activity
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("decode activity: %w", err)
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return &a, nil
}

// WriteDocument writes an aggregated document (training log, chunk, index) to
// path. Unlike activity documents, path is not resolved against the store
// directory.
func (s *JSONStore) WriteDocument(path string, v any) error {
	return writeJSON(path, v)
}

// writeJSON writes v as two-space indented JSON to path, creating parent
// directories as needed. The file is replaced atomically.
func writeJSON(path string, v any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("chmod %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename into %s: %w", path, err)
	}
	return nil
}
