package parser

import (
	"errors"

	"github.com/sstent/runlog-go/internal/models"
)

const (
	// DefaultMaxTrackpoints bounds sampled series in full pipeline output.
	DefaultMaxTrackpoints = 10000
	// CompactMaxTrackpoints suits bandwidth-constrained consumers.
	CompactMaxTrackpoints = 100
)

var (
	ErrTooFewLines     = errors.New("table has no data rows")
	ErrInvalidXML      = errors.New("invalid XML document")
	ErrUnsupportedType = errors.New("unsupported file type")
)

// Source is one raw input file.
type Source struct {
	// Name is the path of the file relative to the scanned root. It is used
	// for date inference and for the fragment's file field.
	Name string
	Data []byte
	// Date is an already-known canonical date injected by the caller, for
	// example the date derived from a sibling trace file.
	Date string
}

// Parser turns one raw source file into a fragment.
type Parser interface {
	Parse(src Source) (models.Fragment, error)
}

// Options tune parser behaviour shared by every source kind.
type Options struct {
	// MaxTrackpoints caps sampled trackpoints and records. Zero disables the cap.
	MaxTrackpoints int
	// DecodeFIT enables the binary decoder. When false binary files produce
	// a degraded stub fragment.
	DecodeFIT bool
}

func DefaultOptions() Options {
	return Options{
		MaxTrackpoints: DefaultMaxTrackpoints,
		DecodeFIT:      true,
	}
}
