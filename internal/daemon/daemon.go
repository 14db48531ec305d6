package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"mediasolver/internal/config"
	"mediasolver/internal/logging"
	"mediasolver/internal/pipeline"
	"mediasolver/internal/watch"
)

const pruneInterval = 6 * time.Hour

// HistoryPruner deletes runs that finished before cutoff.
type HistoryPruner interface {
	Prune(ctx context.Context, cutoff time.Time) (int64, error)
}

// Options wires a daemon.
type Options struct {
	Config  *config.Config
	Runner  *pipeline.Runner
	Handler http.Handler
	History HistoryPruner
	// HistoryRetention drops runs older than this; zero keeps everything.
	HistoryRetention time.Duration
	Logger           *slog.Logger
}

// Daemon runs the HTTP surface and watch folder under a process lock.
type Daemon struct {
	cfg       *config.Config
	runner    *pipeline.Runner
	history   HistoryPruner
	retention time.Duration
	logger    *slog.Logger

	lockPath string
	lock     *flock.Flock
	api      *apiServer

	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool   `json:"running"`
	APIAddress   string `json:"api_address"`
	LockFilePath string `json:"lock_file_path"`
	Watching     bool   `json:"watching"`
	WatchDir     string `json:"watch_dir,omitempty"`
}

// New constructs a daemon.
func New(opts Options) (*Daemon, error) {
	if opts.Config == nil || opts.Runner == nil || opts.Handler == nil {
		return nil, errors.New("daemon requires config, runner, and handler")
	}
	logger := logging.NewComponentLogger(opts.Logger, "daemon")
	lockPath := opts.Config.LockPath()
	return &Daemon{
		cfg:       opts.Config,
		runner:    opts.Runner,
		history:   opts.History,
		retention: opts.HistoryRetention,
		logger:    logger,
		lockPath:  lockPath,
		lock:      flock.New(lockPath),
		api:       newAPIServer(opts.Config.Paths.APIBind, opts.Handler, logger),
	}, nil
}

// Start acquires the lock, begins serving and starts the watch folder.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}
	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another mediasolver daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.api.start(runCtx); err != nil {
		cancel()
		_ = d.lock.Unlock()
		return err
	}
	d.cancel = cancel

	if d.cfg.Watch.Enabled {
		if err := d.startWatcher(runCtx); err != nil {
			logging.WarnWithContext(d.logger, "watch folder disabled", "watch_start_failed",
				logging.String(logging.FieldImpact, "new media will not start renders automatically"),
				logging.String(logging.FieldErrorHint, "check watch.source_dir in the config"),
				logging.Error(err),
			)
		}
	}
	if d.history != nil && d.retention > 0 {
		d.wg.Add(1)
		go d.pruneLoop(runCtx)
	}

	d.running.Store(true)
	d.logger.Info("mediasolver daemon started",
		logging.String("lock", d.lockPath),
		logging.String("api_address", d.api.address()),
	)
	return nil
}

func (d *Daemon) startWatcher(ctx context.Context) error {
	w, err := watch.New(watch.OptionsFromConfig(d.cfg, d.logger), d.runner)
	if err != nil {
		return err
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if err := w.Run(ctx); err != nil {
			d.logger.Error("watch folder stopped", logging.Error(err))
		}
	}()
	return nil
}

func (d *Daemon) pruneLoop(ctx context.Context) {
	defer d.wg.Done()
	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()
	for {
		d.prune(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (d *Daemon) prune(ctx context.Context) {
	removed, err := d.history.Prune(ctx, time.Now().Add(-d.retention))
	if err != nil {
		if ctx.Err() == nil {
			logging.WarnWithContext(d.logger, "history prune failed", "history_prune_failed",
				logging.String(logging.FieldImpact, "old runs stay in the history"),
				logging.Error(err),
			)
		}
		return
	}
	if removed > 0 {
		d.logger.Info("history pruned", logging.Int64("removed", removed))
	}
}

// Stop stops serving, waits for background work and releases the lock. An
// active run is interrupted through the runner's base context, which the
// caller owns.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.api.stop()
	d.wg.Wait()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("mediasolver daemon stopped")
}

// Addr returns the bound API address, useful when binding port 0.
func (d *Daemon) Addr() string {
	return d.api.address()
}

// Status returns the current daemon status.
func (d *Daemon) Status() Status {
	return Status{
		Running:      d.running.Load(),
		APIAddress:   d.api.address(),
		LockFilePath: d.lockPath,
		Watching:     d.running.Load() && d.cfg.Watch.Enabled,
		WatchDir:     d.cfg.Watch.SourceDir,
	}
}
