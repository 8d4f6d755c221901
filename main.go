// main.go - Entry point and scheduled mode lifecycle
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/sstent/runlog-go/internal/config"
	"github.com/sstent/runlog-go/internal/pipeline"
)

// App owns the long-running scheduled mode.
type App struct {
	cfg      *config.Config
	logger   *slog.Logger
	cron     *cron.Cron
	service  *pipeline.Service
	shutdown chan os.Signal
	// tracks the immediate run started outside the scheduler
	wg       sync.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newApp(cfg *config.Config, logger *slog.Logger) *App {
	ctx, cancel := context.WithCancel(context.Background())
	return &App{
		cfg:      cfg,
		logger:   logger,
		shutdown: make(chan os.Signal, 1),
		ctx:      ctx,
		cancel:   cancel,
	}
}

func (app *App) init() error {
	app.service = pipeline.NewService(app.cfg, app.logger)

	cl := cronLogger{app.logger.With("component", "cron")}
	app.cron = cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	if _, err := app.cron.AddFunc(app.cfg.Schedule, app.runOnce); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", app.cfg.Schedule, err)
	}
	return nil
}

func (app *App) start(runNow bool) {
	app.cron.Start()
	app.logger.Info("scheduler started", "schedule", app.cfg.Schedule)
	if runNow {
		app.wg.Add(1)
		go func() {
			defer app.wg.Done()
			app.runOnce()
		}()
	}
}

func (app *App) stop() {
	app.logger.Info("shutting down")

	// Cancel any in-flight run, then wait for cron jobs to return.
	app.cancel()
	<-app.cron.Stop().Done()
	app.wg.Wait()

	app.logger.Info("shutdown complete")
}

func (app *App) runOnce() {
	app.logger.Info("starting scheduled run")
	result, err := app.service.Run(app.ctx)
	if err != nil {
		app.logger.Error("scheduled run failed", "error", err)
		return
	}
	app.logger.Info("scheduled run finished",
		"activities", result.Aggregate.Activities,
		"skipped", len(result.Parse.Skipped),
		"run_id", result.Aggregate.RunID)
}

// cronLogger routes cron's own logging through slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, append([]interface{}{"error", err}, keysAndValues...)...)
}
