package pipeline

import (
	"errors"

	"github.com/sstent/runlog-go/internal/models"
)

var ErrActivityNotFound = errors.New("activity not found")

// Skip records a file or activity group left out of the output.
type Skip struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// Report lists what a stage wrote and what it left out.
type Report struct {
	Written []string
	Skipped []Skip
}

func (r *Report) skip(path, reason string) {
	r.Skipped = append(r.Skipped, Skip{Path: path, Reason: reason})
}

type ParseResult struct {
	Report
	Activities []models.Activity
	// Removed lists numbered same-date documents left over from an earlier
	// parse that had more activities on that date.
	Removed []string
}

type AggregateResult struct {
	Report
	RunID      string
	Activities int
	Chunks     int
	Statistics models.Statistics
}

type RunResult struct {
	Parse     *ParseResult
	Aggregate *AggregateResult
}
