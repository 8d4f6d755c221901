package models

import (
	"errors"
	"fmt"
)

// SourceKind identifies which export a fragment was parsed from.
type SourceKind string

const (
	SourceCSV SourceKind = "csv"
	SourceTCX SourceKind = "tcx"
	SourceFIT SourceKind = "fit"
)

// SourceOrder is the priority used when several fragments carry a date.
var SourceOrder = []SourceKind{SourceCSV, SourceTCX, SourceFIT}

var (
	ErrInvalidDate = errors.New("date must be 8 digits (YYYYMMDD)")
	ErrNoSources   = errors.New("activity has no sources")
)

// Activity is the canonical, normalized document for one training session.
type Activity struct {
	Date     string         `json:"date"`
	ParsedAt string         `json:"parsed_at,omitempty"`
	Metadata map[string]any `json:"metadata"`
	Sources  Sources        `json:"sources"`
	// Summary is the row-table summary promoted to the top level.
	Summary Split `json:"summary,omitempty"`
}

// Sources holds at most one fragment per source kind.
type Sources struct {
	CSV *RowFragment    `json:"csv,omitempty"`
	TCX *TraceFragment  `json:"tcx,omitempty"`
	FIT *BinaryFragment `json:"fit,omitempty"`
}

// Len returns the number of attached sources.
func (s Sources) Len() int {
	n := 0
	if s.CSV != nil {
		n++
	}
	if s.TCX != nil {
		n++
	}
	if s.FIT != nil {
		n++
	}
	return n
}

// Validate checks the invariants every published Activity must hold.
func (a *Activity) Validate() error {
	if !IsDate(a.Date) {
		return fmt.Errorf("%w: %q", ErrInvalidDate, a.Date)
	}
	if a.Sources.Len() == 0 {
		return ErrNoSources
	}
	return nil
}

// IsDate reports whether s is an 8-character numeric date.
func IsDate(s string) bool {
	if len(s) != 8 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
