package pipeline

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sstent/runlog-go/internal/parser"
)

// MetadataFile is overlaid onto the activity built from its folder.
const MetadataFile = "metadata.json"

const sniffBytes = 512

type sourceFile struct {
	path string
	// name is relative to the source root with forward slashes.
	name     string
	fileType parser.FileType
}

// activityGroup is one activity folder, or the loose root files sharing a
// stem.
type activityGroup struct {
	key          string
	path         string
	files        map[parser.FileType]sourceFile
	metadataPath string
}

func newGroup(key, path string) *activityGroup {
	return &activityGroup{key: key, path: path, files: make(map[parser.FileType]sourceFile)}
}

// add keeps the first file of each type; later ones are reported.
func (g *activityGroup) add(f sourceFile, report *Report) {
	if existing, ok := g.files[f.fileType]; ok {
		report.skip(f.path, fmt.Sprintf("duplicate %s source, using %s", f.fileType, filepath.Base(existing.path)))
		return
	}
	g.files[f.fileType] = f
}

// discoverGroups scans root one level deep. Hidden entries are ignored, as
// are files whose type cannot be detected.
func discoverGroups(root string, report *Report) ([]*activityGroup, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("read source directory: %w", err)
	}

	var groups []*activityGroup
	loose := make(map[string]*activityGroup)

	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		path := filepath.Join(root, name)

		if e.IsDir() {
			g, err := scanFolder(name, path, report)
			if err != nil {
				report.skip(path, err.Error())
				continue
			}
			groups = append(groups, g)
			continue
		}

		if name == MetadataFile {
			continue
		}
		f, ok := classify(path, name)
		if !ok {
			continue
		}
		stem := strings.TrimSuffix(name, filepath.Ext(name))
		g, ok := loose[stem]
		if !ok {
			g = newGroup(stem, filepath.Join(root, stem))
			loose[stem] = g
			groups = append(groups, g)
		}
		g.add(f, report)
	}

	sort.SliceStable(groups, func(i, j int) bool { return groups[i].key < groups[j].key })
	return groups, nil
}

func scanFolder(key, dir string, report *Report) (*activityGroup, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	g := newGroup(key, dir)
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		path := filepath.Join(dir, name)
		if name == MetadataFile {
			g.metadataPath = path
			continue
		}
		f, ok := classify(path, key+"/"+name)
		if !ok {
			continue
		}
		g.add(f, report)
	}
	return g, nil
}

// classify trusts known extensions and sniffs the head of anything else.
func classify(path, name string) (sourceFile, bool) {
	fileType := parser.DetectFileType(name, nil)
	if fileType == parser.FileTypeUnknown {
		head, err := readHead(path)
		if err != nil {
			return sourceFile{}, false
		}
		fileType = parser.DetectFileTypeFromData(head)
	}
	if fileType == parser.FileTypeUnknown {
		return sourceFile{}, false
	}
	return sourceFile{path: path, name: name, fileType: fileType}, true
}

func readHead(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf := make([]byte, sniffBytes)
	n, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return buf[:n], nil
}

// selectDate keeps the groups matching a YYYYMMDD date, either by key or by
// a date embedded in the key.
func selectDate(groups []*activityGroup, date string) []*activityGroup {
	var out []*activityGroup
	for _, g := range groups {
		if g.key == date || parser.DateFromName(g.key) == date {
			out = append(out, g)
		}
	}
	return out
}
