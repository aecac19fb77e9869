package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/coachbook/internal/durable"
	"github.com/roach88/coachbook/internal/engine"
	"github.com/roach88/coachbook/internal/persist"
	"github.com/roach88/coachbook/internal/render"
	"github.com/roach88/coachbook/internal/state"
)

// flushTimeout bounds how long a command waits for queued writes on exit.
const flushTimeout = 30 * time.Second

// app is the runtime wiring one command works against: a hydrated store,
// the rule engine and the background writer that persists every change.
type app struct {
	store   *state.Store
	engine  *engine.Engine
	adapter durable.Adapter
	writer  *persist.AsyncWriter
	syncer  *persist.Synchronizer
	logger  *slog.Logger
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func openApp(ctx context.Context, opts *RootOptions, stderr io.Writer) (*app, error) {
	cfg := opts.Config
	logger := newLogger(stderr, opts.Verbose)

	logger.Debug("opening store", "driver", cfg.Driver, "dsn", cfg.DSN)
	adapter, err := durable.Open(ctx, cfg.Durable())
	if err != nil {
		return nil, err
	}

	st := state.New()
	writer := persist.NewAsyncWriter(adapter, persist.WithWriterLogger(logger))
	syncer := persist.NewSynchronizer(st, writer, logger)

	report, err := persist.Hydrate(ctx, adapter, st, logger)
	if err != nil {
		syncer.Stop()
		_ = writer.Close(ctx)
		_ = adapter.Close()
		return nil, err
	}
	if len(report.Corrupt) > 0 {
		logger.Warn("some collections were unreadable and start empty", "collections", report.Corrupt)
	}

	engOpts := []engine.Option{
		engine.WithLogger(logger),
		engine.WithRenderer(render.New(
			render.WithAuthor(cfg.PDFAuthor),
			render.WithCompression(cfg.PDFCompress),
		)),
	}
	if opts.Clock != nil {
		engOpts = append(engOpts, engine.WithClock(opts.Clock))
	}
	if opts.IDs != nil {
		engOpts = append(engOpts, engine.WithIDGenerator(opts.IDs))
	}

	return &app{
		store:   st,
		engine:  engine.New(st, engOpts...),
		adapter: adapter,
		writer:  writer,
		syncer:  syncer,
		logger:  logger,
	}, nil
}

// Close drains queued writes and closes the adapter.
func (a *app) Close(ctx context.Context) error {
	a.syncer.Stop()
	flushErr := a.writer.Close(ctx)

	stats := a.writer.Stats()
	a.logger.Debug("store flushed", "written", stats.Written, "skipped", stats.Skipped, "failed", stats.Failed)
	if stats.Failed > 0 {
		a.logger.Warn("some changes were not persisted", "failed", stats.Failed)
	}

	if err := a.adapter.Close(); err != nil && flushErr == nil {
		return err
	}
	return flushErr
}

// withApp opens the store, runs fn and flushes before returning.
func withApp(cmd *cobra.Command, opts *RootOptions, fn func(ctx context.Context, a *app) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := openApp(ctx, opts, cmd.ErrOrStderr())
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open store", err)
	}

	runErr := fn(ctx, a)
	if runErr != nil {
		newFormatter(opts, cmd).ReportError(runErr)
	}

	flushCtx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()
	if err := a.Close(flushCtx); err != nil && runErr == nil {
		return WrapExitError(ExitCommandError, "failed to flush store", err)
	}
	return runErr
}

// now returns the engine clock's current time.
func (a *app) now() time.Time { return a.engine.Now() }

func parseDate(s string) (time.Time, error) {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: want YYYY-MM-DD", s)
	}
	return t, nil
}
