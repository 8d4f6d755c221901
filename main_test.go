package main

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sstent/runlog-go/internal/config"
	"github.com/sstent/runlog-go/internal/models"
)

const splitsCSV = `Split,GetDistance,Time,Calories
1,1.00,00:07:10,85
Summary,1.00,00:07:10,85
`

type workspace struct {
	source, parsed, log, chunks string
}

func newWorkspace(t *testing.T) workspace {
	t.Helper()
	root := t.TempDir()
	t.Chdir(root)
	t.Setenv(config.ConfigPathEnv, "")

	ws := workspace{
		source: filepath.Join(root, "data"),
		parsed: filepath.Join(root, "parsed"),
		log:    filepath.Join(root, "training_log.json"),
		chunks: filepath.Join(root, "chunks"),
	}
	for _, date := range []string{"20251201", "20251202", "20251203"} {
		dir := filepath.Join(ws.source, date)
		require.NoError(t, os.MkdirAll(dir, 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "activity.csv"), []byte(splitsCSV), 0o644))
	}
	return ws
}

func (ws workspace) args(cmd string, extra ...string) []string {
	return append([]string{cmd,
		"--data-dir", ws.source,
		"--output-dir", ws.parsed,
		"--output", ws.log,
		"--chunks-dir", ws.chunks,
	}, extra...)
}

func execute(t *testing.T, args []string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestParseThenAggregate(t *testing.T) {
	ws := newWorkspace(t)

	out, err := execute(t, ws.args("parse"))
	require.NoError(t, err)
	assert.Contains(t, out, "Parsed 3 activities")
	assert.FileExists(t, filepath.Join(ws.parsed, "20251202.json"))
	assert.NoFileExists(t, ws.log)

	out, err = execute(t, ws.args("aggregate"))
	require.NoError(t, err)
	assert.Contains(t, out, "Aggregated 3 activities")
	assert.Contains(t, out, "Total distance: 3.00 km")
	assert.Contains(t, out, "Total time:     00:21:30")

	data, err := os.ReadFile(ws.log)
	require.NoError(t, err)
	var doc models.TrainingLog
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Len(t, doc.Activities, 3)
	assert.Equal(t, 255, doc.Statistics.TotalCalories)
}

func TestRunChunked(t *testing.T) {
	ws := newWorkspace(t)

	out, err := execute(t, ws.args("run", "--chunk-size", "2", "--chunk-pattern", "week{}.json"))
	require.NoError(t, err)
	assert.Contains(t, out, "into 2 chunks")
	assert.FileExists(t, filepath.Join(ws.chunks, "week1.json"))
	assert.FileExists(t, filepath.Join(ws.chunks, "week2.json"))
	assert.FileExists(t, filepath.Join(ws.chunks, "training_log_index.json"))
}

func TestRunSingleDate(t *testing.T) {
	ws := newWorkspace(t)

	out, err := execute(t, ws.args("run", "--single-date", "20251202"))
	require.NoError(t, err)
	assert.Contains(t, out, "Parsed 1 activities")

	_, err = execute(t, ws.args("parse", "--single-date", "20250101"))
	assert.ErrorContains(t, err, "activity not found")
}

func TestSkippedFilesAreListed(t *testing.T) {
	ws := newWorkspace(t)
	bad := filepath.Join(ws.source, "20251204", "activity.csv")
	require.NoError(t, os.MkdirAll(filepath.Dir(bad), 0o755))
	require.NoError(t, os.WriteFile(bad, []byte("Split,Time\n"), 0o644))

	out, err := execute(t, ws.args("parse"))
	require.NoError(t, err)
	assert.Contains(t, out, "Skipped 1:")
	assert.Contains(t, out, bad)
}

func TestInvalidFlagValues(t *testing.T) {
	ws := newWorkspace(t)

	_, err := execute(t, ws.args("parse", "--single-date", "2025-12-02"))
	assert.Error(t, err)

	_, err = execute(t, ws.args("run", "--chunk-size", "-1"))
	assert.Error(t, err)

	_, err = execute(t, ws.args("parse", "extra"))
	assert.Error(t, err)
}

func TestFlagsOverrideEnvironment(t *testing.T) {
	ws := newWorkspace(t)
	t.Setenv("RUNLOG_PARSED_DIR", filepath.Join(t.TempDir(), "from-env"))
	t.Setenv("RUNLOG_SOURCE_DIR", ws.source)

	_, err := execute(t, []string{"parse", "--output-dir", ws.parsed})
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(ws.parsed, "20251201.json"))
}

func TestAppScheduledRun(t *testing.T) {
	ws := newWorkspace(t)
	cfg := config.Default()
	cfg.SourceDir = ws.source
	cfg.ParsedDir = ws.parsed
	cfg.LogFile = ws.log
	cfg.Schedule = "@every 1h"

	app := newApp(cfg, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
	require.NoError(t, app.init())
	app.start(true)

	assert.Eventually(t, func() bool {
		_, err := os.Stat(ws.log)
		return err == nil
	}, 5*time.Second, 20*time.Millisecond)

	app.stop()
	assert.ErrorIs(t, app.ctx.Err(), context.Canceled)
}

func TestAppRejectsBadSchedule(t *testing.T) {
	cfg := config.Default()
	cfg.Schedule = "every so often"

	app := newApp(cfg, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
	assert.Error(t, app.init())
}
