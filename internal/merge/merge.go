// Package merge combines the fragments of one activity into its canonical
// document.
package merge

import (
	"errors"
	"fmt"
	"time"

	"github.com/sstent/runlog-go/internal/models"
	"github.com/sstent/runlog-go/internal/parser"
)

var (
	ErrNoUsableFragments = errors.New("no usable fragments")
	ErrDuplicateSource   = errors.New("more than one fragment for source kind")
)

// Group is every fragment identified as belonging to one activity.
type Group struct {
	// Key identifies the group, typically the activity folder or file stem.
	Key       string
	Fragments []models.Fragment
	// Metadata is overlaid verbatim onto the activity.
	Metadata map[string]any
}

type Options struct {
	// StripGPS empties the trace trackpoints while keeping laps.
	StripGPS bool
	// Now stamps parsed_at; time.Now when nil.
	Now func() time.Time
}

// Merge builds the canonical activity for a group. Groups without a usable
// fragment return ErrNoUsableFragments; groups without any date hint return
// parser.ErrNoDate.
func Merge(group Group, opts Options) (*models.Activity, error) {
	usable := false
	for _, f := range group.Fragments {
		if f != nil && f.Usable() {
			usable = true
			break
		}
	}
	if !usable {
		return nil, ErrNoUsableFragments
	}

	var sources models.Sources
	for _, f := range group.Fragments {
		if err := attach(&sources, f); err != nil {
			return nil, err
		}
	}

	date := CanonicalDate(sources)
	if date == "" {
		return nil, fmt.Errorf("%s: %w", group.Key, parser.ErrNoDate)
	}

	if opts.StripGPS && sources.TCX != nil {
		sources.TCX = withoutTrackpoints(sources.TCX)
	}

	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}

	activity := &models.Activity{
		Date:     date,
		ParsedAt: now().UTC().Format(time.RFC3339),
		Metadata: copyMetadata(group.Metadata),
		Sources:  sources,
	}
	if sources.CSV != nil && len(sources.CSV.Data.Summary) > 0 {
		activity.Summary = sources.CSV.Data.Summary
	}
	return activity, nil
}

func attach(sources *models.Sources, f models.Fragment) error {
	switch frag := f.(type) {
	case nil:
		return nil
	case *models.RowFragment:
		if sources.CSV != nil {
			return fmt.Errorf("%w: %s", ErrDuplicateSource, frag.Kind())
		}
		sources.CSV = frag
	case *models.TraceFragment:
		if sources.TCX != nil {
			return fmt.Errorf("%w: %s", ErrDuplicateSource, frag.Kind())
		}
		sources.TCX = frag
	case *models.BinaryFragment:
		if sources.FIT != nil {
			return fmt.Errorf("%w: %s", ErrDuplicateSource, frag.Kind())
		}
		sources.FIT = frag
	default:
		return fmt.Errorf("unknown fragment type %T", f)
	}
	return nil
}

// CanonicalDate prefers the trace activity identity, then the first date hint
// in csv, tcx, fit order.
func CanonicalDate(sources models.Sources) string {
	if sources.TCX != nil {
		if date := parser.DateFromActivityID(sources.TCX.Data.ActivityID); date != "" {
			return date
		}
	}
	for _, kind := range models.SourceOrder {
		var hint string
		switch kind {
		case models.SourceCSV:
			if sources.CSV != nil {
				hint = sources.CSV.DateHint()
			}
		case models.SourceTCX:
			if sources.TCX != nil {
				hint = sources.TCX.DateHint()
			}
		case models.SourceFIT:
			if sources.FIT != nil {
				hint = sources.FIT.DateHint()
			}
		}
		if models.IsDate(hint) {
			return hint
		}
	}
	return ""
}

// WithoutTrackpoints returns a copy of a published activity with its trace
// trackpoints removed and an overview of what was dropped. The input is not
// modified.
func WithoutTrackpoints(a models.Activity) models.Activity {
	if a.Sources.TCX != nil {
		a.Sources.TCX = withoutTrackpoints(a.Sources.TCX)
	}
	return a
}

func withoutTrackpoints(f *models.TraceFragment) *models.TraceFragment {
	stripped := *f
	// an overview from an earlier strip already holds the original counts
	if stripped.Data.Overview == nil {
		stripped.Data.Overview = &models.TraceOverview{
			TotalTrackpoints: len(f.Data.Trackpoints),
			TotalLaps:        len(f.Data.Laps),
		}
	}
	stripped.Data.Trackpoints = []models.Trackpoint{}
	return &stripped
}

func copyMetadata(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
