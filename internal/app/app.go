// internal/app/app.go
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/rovshanmuradov/tokenfarm/internal/config"
	"github.com/rovshanmuradov/tokenfarm/internal/engine"
	"github.com/rovshanmuradov/tokenfarm/internal/events"
	"github.com/rovshanmuradov/tokenfarm/internal/logger"
	"github.com/rovshanmuradov/tokenfarm/internal/storage"
)

var (
	// ErrNotInitialized is returned by Open when the store holds no state.
	ErrNotInitialized = errors.New("farm not initialized, run init first")
	// ErrAlreadyInitialized is returned by Init when state exists and
	// force is not set.
	ErrAlreadyInitialized = errors.New("farm already initialized")
)

const defaultBusSize = 1024

// Options adjust how an App is assembled.
type Options struct {
	// ExtraCores are teed into the logger, e.g. a logger.Ring for the dashboard.
	ExtraCores []zapcore.Core
	// Quiet drops console logging.
	Quiet bool
	// BusSize is the event buffer; zero means the default.
	BusSize int
	// ShutdownTimeout bounds each service close.
	ShutdownTimeout time.Duration
}

// App is a loaded farm with everything around it: the event bus feeding
// the journal, the snapshot store and the engine itself.
type App struct {
	Config  *config.Config
	Logger  *logger.Logger
	Bus     *events.Bus
	Journal *events.Journal
	Store   storage.Storage
	Engine  *engine.Engine

	shutdown *ShutdownHandler
}

// Open loads the config at path and restores the engine from the latest
// snapshot.
func Open(ctx context.Context, path string, opts Options) (*App, error) {
	a, err := assemble(ctx, path, opts)
	if err != nil {
		return nil, err
	}
	snap, err := a.Store.LoadSnapshot(ctx)
	if err != nil {
		_ = a.Close(ctx)
		if errors.Is(err, storage.ErrNoSnapshot) {
			return nil, ErrNotInitialized
		}
		return nil, err
	}
	if a.Engine, err = engine.Restore(a.Logger.Logger, snap, a.Bus, nil); err != nil {
		_ = a.Close(ctx)
		return nil, fmt.Errorf("restore snapshot at block %d: %w", snap.Block, err)
	}
	a.Logger.Debug("Farm loaded", zap.Uint64("block", snap.Block))
	return a, nil
}

// Init deploys a fresh farm from the config at path and commits its first
// snapshot. Existing state is kept as history but superseded only when
// force is set.
func Init(ctx context.Context, path string, opts Options, force bool) (*App, error) {
	a, err := assemble(ctx, path, opts)
	if err != nil {
		return nil, err
	}
	_, err = a.Store.LoadSnapshot(ctx)
	switch {
	case err == nil && !force:
		_ = a.Close(ctx)
		return nil, ErrAlreadyInitialized
	case err != nil && !errors.Is(err, storage.ErrNoSnapshot):
		_ = a.Close(ctx)
		return nil, err
	}

	if a.Engine, err = engine.New(a.Logger.Logger, a.Config, a.Bus, nil); err != nil {
		_ = a.Close(ctx)
		return nil, err
	}
	if err := a.Commit(ctx); err != nil {
		_ = a.Close(ctx)
		return nil, err
	}
	return a, nil
}

func assemble(ctx context.Context, path string, opts Options) (*App, error) {
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, err
	}
	logCfg := cfg.Log
	logCfg.Quiet = opts.Quiet
	log, err := logger.New(&logCfg, opts.ExtraCores...)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}

	a := &App{
		Config:   cfg,
		Logger:   log,
		shutdown: NewShutdownHandler(log.Logger, opts.ShutdownTimeout),
	}
	a.shutdown.AddFunc("logger", log.Sync)

	store, err := storage.OpenBolt(ctx, cfg.Store.Path, storage.BoltOptions{
		Timeout: cfg.Store.OpenTimeout,
		Retries: cfg.Store.Retries,
	}, log.Logger)
	if err != nil {
		_ = a.Close(ctx)
		return nil, err
	}
	a.Store = store
	a.shutdown.Add("store", store)

	if cfg.Journal.Path != "" {
		journal, err := events.NewJournal(cfg.Journal.Path, cfg.Journal.FlushInterval, log.Logger)
		if err != nil {
			_ = a.Close(ctx)
			return nil, err
		}
		a.Journal = journal
		a.shutdown.Add("journal", journal)
	}

	size := opts.BusSize
	if size <= 0 {
		size = defaultBusSize
	}
	a.Bus = events.NewBus(log.Logger, size)
	if a.Journal != nil {
		a.Bus.Subscribe(events.AnyEvent, a.Journal)
	}
	// The bus drains into the journal, so it closes first.
	a.shutdown.AddFunc("bus", func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return a.Bus.Shutdown(ctx)
	})
	return a, nil
}

// Commit saves the engine state as a new snapshot.
func (a *App) Commit(ctx context.Context) error {
	snap := a.Engine.Snapshot()
	if err := a.Store.SaveSnapshot(ctx, snap); err != nil {
		return fmt.Errorf("commit block %d: %w", snap.Block, err)
	}
	return nil
}

// Close drains pending events and releases the journal, store and logger.
func (a *App) Close(ctx context.Context) error {
	return a.shutdown.Shutdown(ctx)
}
