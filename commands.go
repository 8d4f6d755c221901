package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sstent/runlog-go/internal/config"
	"github.com/sstent/runlog-go/internal/logging"
	"github.com/sstent/runlog-go/internal/parser"
	"github.com/sstent/runlog-go/internal/pipeline"
)

// cliFlags holds flag values; only flags set on the command line override
// the loaded configuration.
type cliFlags struct {
	configPath     string
	sourceDir      string
	parsedDir      string
	logFile        string
	chunkSize      int
	chunksDir      string
	chunkPattern   string
	includeGPS     bool
	stripParsedGPS bool
	singleDate     string
	maxTrackpoints int
	compact        bool
	skipFIT        bool
	workers        int
	schedule       string
	logLevel       string
	logFormat      string
	runNow         bool
}

func newRootCmd() *cobra.Command {
	f := &cliFlags{}

	rootCmd := &cobra.Command{
		Use:   "runlog",
		Short: "Build an AI-ready training log from running watch exports",
		Long: `runlog reads per-activity folders of CSV split tables, TCX traces and
FIT recordings, merges them into one JSON document per activity, and
aggregates those into a training log with summary statistics.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&f.configPath, "config", "", "YAML config file (default $RUNLOG_CONFIG)")
	pf.StringVar(&f.sourceDir, "data-dir", "", "directory of activity folders")
	pf.StringVar(&f.parsedDir, "output-dir", "", "directory for per-activity JSON documents")
	pf.StringVar(&f.logFile, "output", "", "consolidated training log file")
	pf.IntVar(&f.chunkSize, "chunk-size", 0, "activities per chunk file (0 disables chunking)")
	pf.StringVar(&f.chunksDir, "chunks-dir", "", "directory for chunk files and the index")
	pf.StringVar(&f.chunkPattern, "chunk-pattern", "", "chunk file name, {} is replaced by the chunk number")
	pf.BoolVar(&f.includeGPS, "include-gps", false, "keep trace trackpoints in the training log")
	pf.BoolVar(&f.stripParsedGPS, "strip-parsed-gps", false, "also drop trace trackpoints from per-activity documents")
	pf.IntVar(&f.maxTrackpoints, "max-trackpoints", parser.DefaultMaxTrackpoints, "cap on sampled trackpoints and records (0 = no cap)")
	pf.BoolVar(&f.compact, "compact", false, "sample traces down to a small fixed number of points")
	pf.BoolVar(&f.skipFIT, "skip-fit", false, "do not decode FIT files, keep a placeholder instead")
	pf.IntVar(&f.workers, "workers", 0, "activity folders parsed in parallel")
	pf.StringVar(&f.logLevel, "log-level", "", "debug, info, warn or error")
	pf.StringVar(&f.logFormat, "log-format", "", "text or json")

	parseCmd := &cobra.Command{
		Use:   "parse",
		Short: "Parse activity folders into per-activity JSON documents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runParse(cmd, f)
		},
	}
	parseCmd.Flags().StringVar(&f.singleDate, "single-date", "", "only parse the activity for YYYYMMDD")

	aggregateCmd := &cobra.Command{
		Use:   "aggregate",
		Short: "Combine parsed activity documents into a training log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAggregate(cmd, f)
		},
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Parse and aggregate in one pass",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAll(cmd, f)
		},
	}

	runCmd.Flags().StringVar(&f.singleDate, "single-date", "", "only process the activity for YYYYMMDD")

	scheduleCmd := &cobra.Command{
		Use:   "schedule",
		Short: "Rebuild the training log on a cron schedule until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchedule(cmd, f)
		},
	}
	scheduleCmd.Flags().StringVar(&f.schedule, "cron", "", "cron spec, e.g. \"0 6 * * *\" or \"@hourly\"")
	scheduleCmd.Flags().BoolVar(&f.runNow, "now", false, "run once immediately before waiting for the schedule")

	rootCmd.AddCommand(parseCmd, aggregateCmd, runCmd, scheduleCmd)
	return rootCmd
}

// load resolves the configuration and applies flags the user set.
func (f *cliFlags) load(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return nil, nil, err
	}

	flags := cmd.Flags()
	set := func(name string, apply func()) {
		if flags.Changed(name) {
			apply()
		}
	}
	set("data-dir", func() { cfg.SourceDir = f.sourceDir })
	set("output-dir", func() { cfg.ParsedDir = f.parsedDir })
	set("output", func() { cfg.LogFile = f.logFile })
	set("chunk-size", func() { cfg.ChunkSize = f.chunkSize })
	set("chunks-dir", func() { cfg.ChunksDir = f.chunksDir })
	set("chunk-pattern", func() { cfg.ChunkPattern = f.chunkPattern })
	set("include-gps", func() { cfg.IncludeGPS = f.includeGPS })
	set("strip-parsed-gps", func() { cfg.StripParsedGPS = f.stripParsedGPS })
	set("single-date", func() { cfg.SingleDate = f.singleDate })
	set("max-trackpoints", func() { cfg.MaxTrackpoints = f.maxTrackpoints })
	set("compact", func() {
		if f.compact {
			cfg.MaxTrackpoints = parser.CompactMaxTrackpoints
		}
	})
	set("skip-fit", func() { cfg.DecodeFIT = !f.skipFIT })
	set("workers", func() { cfg.Workers = f.workers })
	set("cron", func() { cfg.Schedule = f.schedule })
	set("log-level", func() { cfg.Logging.Level = f.logLevel })
	set("log-format", func() { cfg.Logging.Format = f.logFormat })

	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	return cfg, logging.New(cfg.Logging, cmd.ErrOrStderr()), nil
}

func interruptible(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}

func runParse(cmd *cobra.Command, f *cliFlags) error {
	cfg, logger, err := f.load(cmd)
	if err != nil {
		return err
	}
	ctx, cancel := interruptible(cmd)
	defer cancel()

	result, err := pipeline.NewService(cfg, logger).Parse(ctx)
	if err != nil {
		return err
	}
	printParse(cmd.OutOrStdout(), result)
	return nil
}

func runAggregate(cmd *cobra.Command, f *cliFlags) error {
	cfg, logger, err := f.load(cmd)
	if err != nil {
		return err
	}
	ctx, cancel := interruptible(cmd)
	defer cancel()

	result, err := pipeline.NewService(cfg, logger).AggregateParsed(ctx)
	if err != nil {
		return err
	}
	printAggregate(cmd.OutOrStdout(), result)
	return nil
}

func runAll(cmd *cobra.Command, f *cliFlags) error {
	cfg, logger, err := f.load(cmd)
	if err != nil {
		return err
	}
	ctx, cancel := interruptible(cmd)
	defer cancel()

	result, err := pipeline.NewService(cfg, logger).Run(ctx)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	printParse(out, result.Parse)
	printAggregate(out, result.Aggregate)
	return nil
}

func runSchedule(cmd *cobra.Command, f *cliFlags) error {
	cfg, logger, err := f.load(cmd)
	if err != nil {
		return err
	}

	app := newApp(cfg, logger)
	if err := app.init(); err != nil {
		return fmt.Errorf("failed to initialize scheduler: %w", err)
	}
	app.start(f.runNow)

	signal.Notify(app.shutdown, os.Interrupt, syscall.SIGTERM)
	select {
	case <-app.shutdown:
	case <-cmd.Context().Done():
	}
	app.stop()
	return nil
}

func printParse(w io.Writer, r *pipeline.ParseResult) {
	fmt.Fprintf(w, "Parsed %d activities, wrote %d files\n", len(r.Activities), len(r.Written))
	for _, path := range r.Removed {
		fmt.Fprintf(w, "  removed stale %s\n", path)
	}
	printSkipped(w, r.Skipped)
}

func printAggregate(w io.Writer, r *pipeline.AggregateResult) {
	s := r.Statistics
	fmt.Fprintf(w, "Aggregated %d activities", r.Activities)
	if r.Chunks > 0 {
		fmt.Fprintf(w, " into %d chunks", r.Chunks)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  Total distance: %.2f km\n", s.TotalDistanceKm)
	fmt.Fprintf(w, "  Total time:     %s\n", s.TotalTimeFormatted)
	fmt.Fprintf(w, "  Calories:       %d\n", s.TotalCalories)
	fmt.Fprintf(w, "  Average run:    %.2f km\n", s.AverageDistancePerRun)
	for _, path := range r.Written {
		fmt.Fprintf(w, "  wrote %s\n", path)
	}
	printSkipped(w, r.Skipped)
}

func printSkipped(w io.Writer, skipped []pipeline.Skip) {
	if len(skipped) == 0 {
		return
	}
	fmt.Fprintf(w, "Skipped %d:\n", len(skipped))
	for _, s := range skipped {
		fmt.Fprintf(w, "  %s: %s\n", s.Path, s.Reason)
	}
}
