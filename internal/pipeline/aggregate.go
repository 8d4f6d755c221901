package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/sstent/runlog-go/internal/chunk"
	"github.com/sstent/runlog-go/internal/logging"
	"github.com/sstent/runlog-go/internal/merge"
	"github.com/sstent/runlog-go/internal/models"
	"github.com/sstent/runlog-go/internal/stats"
)

// IndexFile is written next to the chunk documents.
const IndexFile = "training_log_index.json"

// Aggregate writes the consolidated training log, or chunk documents plus an
// index when chunking is enabled and the activities exceed one chunk.
func (s *Service) Aggregate(ctx context.Context, activities []models.Activity) (*AggregateResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	runID := s.newID()
	ctx = logging.WithRunID(ctx, runID)
	createdAt := s.now().UTC().Format(time.RFC3339)

	sorted := chunk.SortByDate(activities)
	if !s.cfg.IncludeGPS {
		for i := range sorted {
			sorted[i] = merge.WithoutTrackpoints(sorted[i])
		}
	}

	result := &AggregateResult{
		RunID:      runID,
		Activities: len(sorted),
		Statistics: stats.Compute(sorted),
	}

	if s.cfg.Chunking() && len(sorted) > s.cfg.ChunkSize {
		if err := s.writeChunks(ctx, sorted, createdAt, runID, result); err != nil {
			return nil, err
		}
	} else {
		doc := models.TrainingLog{
			Metadata: models.LogMetadata{
				AthleteName:     s.cfg.AthleteName,
				CreatedAt:       createdAt,
				RunID:           runID,
				TotalActivities: len(sorted),
				DataSource:      s.cfg.DataSource,
				Purpose:         s.cfg.Purpose,
				DateRange:       chunk.DateRangeOf(sorted),
			},
			Activities: sorted,
			Statistics: result.Statistics,
		}
		if err := s.store.WriteDocument(s.cfg.LogFile, doc); err != nil {
			return nil, fmt.Errorf("failed to write training log: %w", err)
		}
		result.Written = append(result.Written, s.cfg.LogFile)
	}

	s.logger.InfoContext(ctx, "aggregation complete",
		"activities", result.Activities,
		"chunks", result.Chunks,
		"total_distance_km", result.Statistics.TotalDistanceKm,
		"total_time", result.Statistics.TotalTimeFormatted)
	return result, nil
}

func (s *Service) writeChunks(ctx context.Context, sorted []models.Activity, createdAt, runID string, result *AggregateResult) error {
	chunks := chunk.Build(sorted, s.cfg.ChunkSize, s.cfg.ChunkPattern)
	for _, c := range chunks {
		if err := ctx.Err(); err != nil {
			return err
		}
		doc := models.ChunkDocument{
			Metadata: models.ChunkMetadata{
				ChunkNumber:   c.Descriptor.ChunkNumber,
				TotalChunks:   len(chunks),
				ActivityCount: c.Descriptor.ActivityCount,
				Statistics:    c.Descriptor.Statistics,
				DateRange:     c.Descriptor.DateRange,
				CreatedAt:     createdAt,
				RunID:         runID,
			},
			Activities: c.Activities,
		}
		path := filepath.Join(s.cfg.ChunksDir, c.Descriptor.File)
		if err := s.store.WriteDocument(path, doc); err != nil {
			return fmt.Errorf("failed to write chunk %d: %w", c.Descriptor.ChunkNumber, err)
		}
		s.logger.DebugContext(ctx, "chunk written", "path", path, "activities", c.Descriptor.ActivityCount)
		result.Written = append(result.Written, path)
	}

	index := chunk.BuildIndex(chunks, createdAt, runID)
	path := filepath.Join(s.cfg.ChunksDir, IndexFile)
	if err := s.store.WriteDocument(path, index); err != nil {
		return fmt.Errorf("failed to write chunk index: %w", err)
	}
	result.Written = append(result.Written, path)
	result.Chunks = len(chunks)
	return nil
}

// AggregateParsed loads the per-activity documents and aggregates them.
func (s *Service) AggregateParsed(ctx context.Context) (*AggregateResult, error) {
	activities, skipped, err := s.LoadParsed(ctx)
	if err != nil {
		return nil, err
	}
	result, err := s.Aggregate(ctx, activities)
	if err != nil {
		return nil, err
	}
	result.Skipped = append(skipped, result.Skipped...)
	return result, nil
}

// Run parses the source directory and aggregates the result in one pass.
func (s *Service) Run(ctx context.Context) (*RunResult, error) {
	parsed, err := s.Parse(ctx)
	if err != nil {
		return nil, err
	}
	aggregated, err := s.Aggregate(ctx, parsed.Activities)
	if err != nil {
		return nil, err
	}
	return &RunResult{Parse: parsed, Aggregate: aggregated}, nil
}
