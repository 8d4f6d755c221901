// Package pipeline runs the batch: discover activity groups under the source
// directory, parse and merge each group, and write per-activity documents and
// the aggregated training log.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/sstent/runlog-go/internal/config"
	"github.com/sstent/runlog-go/internal/logging"
	"github.com/sstent/runlog-go/internal/merge"
	"github.com/sstent/runlog-go/internal/models"
	"github.com/sstent/runlog-go/internal/parser"
	"github.com/sstent/runlog-go/internal/store"
)

// Trace files are parsed first so their date can be handed to the row parser.
var parseOrder = []parser.FileType{parser.FileTypeTCX, parser.FileTypeCSV, parser.FileTypeFIT}

type Service struct {
	cfg    *config.Config
	store  *store.JSONStore
	logger *slog.Logger
	now    func() time.Time
	newID  func() string
}

type Option func(*Service)

// WithClock fixes the time used for parsed_at and created_at stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithRunIDs replaces the uuid generator for run identifiers.
func WithRunIDs(newID func() string) Option {
	return func(s *Service) { s.newID = newID }
}

func NewService(cfg *config.Config, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		cfg:    cfg,
		store:  store.NewJSONStore(cfg.ParsedDir),
		logger: logging.OrDefault(logger).With("component", "pipeline"),
		now:    time.Now,
		newID:  func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Parse converts every activity group under the source directory into a
// per-activity document. Failures are isolated to the file or group and
// reported; only an unreadable source directory, a failed write or a
// cancelled context fail the call.
func (s *Service) Parse(ctx context.Context) (*ParseResult, error) {
	start := time.Now()
	result := &ParseResult{}

	groups, err := discoverGroups(s.cfg.SourceDir, &result.Report)
	if err != nil {
		return nil, err
	}
	if s.cfg.SingleDate != "" {
		groups = selectDate(groups, s.cfg.SingleDate)
		if len(groups) == 0 {
			return nil, fmt.Errorf("%w: %s in %s", ErrActivityNotFound, s.cfg.SingleDate, s.cfg.SourceDir)
		}
	}
	s.logger.InfoContext(ctx, "parsing activity groups", "source", s.cfg.SourceDir, "groups", len(groups))

	outcomes := make([]groupOutcome, len(groups))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Workers)
	for i, group := range groups {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			outcomes[i] = s.processGroup(group)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	used := make(map[string]int)
	for _, out := range outcomes {
		result.Skipped = append(result.Skipped, out.skipped...)
		if out.activity == nil {
			continue
		}
		name := outputName(out.activity.Date, used)
		path, err := s.store.SaveActivity(name, out.activity)
		if err != nil {
			return nil, fmt.Errorf("failed to write activity %s: %w", out.key, err)
		}
		s.logger.DebugContext(ctx, "activity written", "group", out.key, "path", path)
		result.Written = append(result.Written, path)
		result.Activities = append(result.Activities, *out.activity)
	}

	for date, count := range used {
		removed, err := s.store.RemoveSiblings(date, count)
		if err != nil {
			return nil, fmt.Errorf("failed to remove stale documents for %s: %w", date, err)
		}
		for _, path := range removed {
			s.logger.InfoContext(ctx, "stale activity removed", "path", path)
		}
		result.Removed = append(result.Removed, removed...)
	}
	sort.Strings(result.Removed)

	s.logSkips(ctx, result.Skipped)
	s.logger.InfoContext(ctx, "parse complete",
		"activities", len(result.Activities),
		"skipped", len(result.Skipped),
		"duration", time.Since(start).Round(time.Millisecond))
	return result, nil
}

// LoadParsed reads the per-activity documents written by an earlier parse.
func (s *Service) LoadParsed(ctx context.Context) ([]models.Activity, []Skip, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	activities, failed, err := s.store.LoadActivities()
	if err != nil {
		return nil, nil, err
	}

	skipped := make([]Skip, 0, len(failed))
	for _, f := range failed {
		skipped = append(skipped, Skip{Path: f.Path, Reason: f.Err.Error()})
	}
	s.logSkips(ctx, skipped)
	return activities, skipped, nil
}

type groupOutcome struct {
	key      string
	activity *models.Activity
	skipped  []Skip
}

func (s *Service) processGroup(group *activityGroup) groupOutcome {
	out := groupOutcome{key: group.key}
	var report Report

	var (
		fragments []models.Fragment
		notes     []string
		traceDate string
	)
	for _, fileType := range parseOrder {
		f, ok := group.files[fileType]
		if !ok {
			continue
		}
		frag, err := s.parseFile(f, traceDate)
		if err != nil {
			report.skip(f.path, err.Error())
			continue
		}
		switch v := frag.(type) {
		case *models.TraceFragment:
			traceDate = v.DateHint()
		case *models.BinaryFragment:
			if !v.Usable() {
				notes = append(notes, v.Data.Note)
			}
		}
		fragments = append(fragments, frag)
	}

	if len(fragments) == 0 {
		out.skipped = report.Skipped
		return out
	}

	activity, err := merge.Merge(merge.Group{
		Key:       group.key,
		Fragments: fragments,
		Metadata:  readMetadata(group.metadataPath),
	}, merge.Options{StripGPS: s.cfg.StripParsedGPS, Now: s.now})
	switch {
	case errors.Is(err, merge.ErrNoUsableFragments):
		report.skip(group.path, "no usable source: "+strings.Join(notes, "; "))
	case errors.Is(err, parser.ErrNoDate):
		report.skip(group.path, parser.ErrNoDate.Error())
	case err != nil:
		report.skip(group.path, err.Error())
	default:
		out.activity = activity
	}

	out.skipped = report.Skipped
	return out
}

func (s *Service) parseFile(f sourceFile, knownDate string) (models.Fragment, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, err
	}

	p, err := parser.NewParser(f.fileType, s.cfg.ParserOptions())
	if err != nil {
		return nil, err
	}

	src := parser.Source{Name: f.name, Data: data}
	if f.fileType == parser.FileTypeCSV {
		src.Date = knownDate
	}
	return p.Parse(src)
}

// readMetadata returns the folder's metadata overlay. An unreadable file
// becomes {"error": reason} rather than failing the activity.
func readMetadata(path string) map[string]any {
	if path == "" {
		return map[string]any{}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return map[string]any{"error": fmt.Sprintf("failed to read metadata: %v", err)}
	}
	var meta map[string]any
	if err := json.Unmarshal(data, &meta); err != nil {
		return map[string]any{"error": fmt.Sprintf("failed to read metadata: %v", err)}
	}
	if meta == nil {
		meta = map[string]any{}
	}
	return meta
}

// outputName returns date, then date_2, date_3 ... for repeated dates.
func outputName(date string, used map[string]int) string {
	used[date]++
	if n := used[date]; n > 1 {
		return date + "_" + strconv.Itoa(n)
	}
	return date
}

func (s *Service) logSkips(ctx context.Context, skipped []Skip) {
	for _, sk := range skipped {
		s.logger.WarnContext(ctx, "skipped", "path", sk.Path, "reason", sk.Reason)
	}
}
