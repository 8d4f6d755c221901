// Package store persists per-activity documents and aggregated outputs as
// JSON files.
package store

import (
	"errors"

	"github.com/sstent/runlog-go/internal/models"
)

var ErrEmptyName = errors.New("store: empty document name")

// ActivityStore holds the canonical per-activity documents between the parse
// and aggregate stages.
type ActivityStore interface {
	// SaveActivity writes a under name (without extension) and returns the
	// path written.
	SaveActivity(name string, a *models.Activity) (string, error)

	// LoadActivities returns every valid activity document in the store,
	// ordered by file name. Files that are not activity documents are
	// returned as load errors rather than failing the call.
	LoadActivities() ([]models.Activity, []LoadError, error)

	// Exists reports whether a document named name is present.
	Exists(name string) bool

	// RemoveSiblings deletes the numbered documents <date>_N for N > keep
	// and returns the paths removed.
	RemoveSiblings(date string, keep int) ([]string, error)
}

// DocumentWriter persists aggregated output documents.
type DocumentWriter interface {
	WriteDocument(path string, v any) error
}

// LoadError describes a file in the store that could not be loaded.
type LoadError struct {
	Path string
	Err  error
}

func (e LoadError) Error() string {
	return e.Path + ": " + e.Err.Error()
}

func (e LoadError) Unwrap() error { return e.Err }
