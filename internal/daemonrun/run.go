package daemonrun

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"mediasolver/internal/api"
	"mediasolver/internal/config"
	"mediasolver/internal/daemon"
	"mediasolver/internal/history"
	"mediasolver/internal/host/bridge"
	"mediasolver/internal/logging"
	"mediasolver/internal/pipeline"
	"mediasolver/internal/telemetry"
)

const (
	probeTimeout    = 500 * time.Millisecond
	shutdownTimeout = 30 * time.Second
	// keepRunLogs per-run logs survive regardless of age.
	keepRunLogs = 5
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
}

// Run starts the mediasolver daemon and blocks until ctx is cancelled or the
// process receives SIGINT or SIGTERM.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return errors.New("config is required")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	runStamp := time.Now().UTC().Format("20060102T150405.000Z")
	logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("mediasolver-%s.log", runStamp))
	level := opts.LogLevel
	if level == "" {
		level = cfg.Logging.Level
	}
	logger, err := logging.New(logging.Options{
		Level:       level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stdout", logPath},
		Development: opts.Development,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	if err := ensureCurrentLogPointer(cfg.Paths.LogDir, logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update %s link: %v\n", logging.LogFileName, err)
	}
	logging.PruneLogs(logger, logging.RetentionPolicy{
		Dir:        cfg.Paths.LogDir,
		Pattern:    "mediasolver-*.log",
		MaxAge:     time.Duration(cfg.Logging.RetentionDays) * 24 * time.Hour,
		KeepNewest: keepRunLogs,
		Protect:    []string{logPath},
	}, time.Now())
	logHostSnapshot(signalCtx, logger, cfg)

	shutdownTracer, err := telemetry.InitTracer(signalCtx, cfg.Telemetry, "mediasolverd", logger)
	if err != nil {
		logging.WarnWithContext(logger, "tracing disabled", "telemetry_init_failed",
			logging.String(logging.FieldImpact, "pipeline stage spans are not exported"),
			logging.Error(err),
		)
		shutdownTracer = func(context.Context) error { return nil }
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracer(ctx); err != nil {
			logger.Warn("tracer shutdown failed", logging.Error(err))
		}
	}()

	store, err := history.Open(cfg)
	if err != nil {
		logger.Error("open history store", logging.Error(err))
		return err
	}
	defer store.Close()

	// Runs outlive individual requests but stop with the process.
	runCtx, cancelRuns := context.WithCancel(context.WithoutCancel(signalCtx))
	defer cancelRuns()

	components := NewComponents(cfg, logger)
	runner := components.NewRunner(cfg, pipeline.RunnerOptions{
		History:     store,
		Logger:      logger,
		BaseContext: runCtx,
	})

	srv, err := api.New(api.Options{
		Config:     cfg,
		Runner:     runner,
		Reconciler: components.Reconciler,
		History:    store,
		Probe: func(ctx context.Context) bool {
			return bridge.Reachable(ctx, cfg.Host.BridgeNetwork, cfg.Host.BridgeAddress, probeTimeout)
		},
		Launch:      api.LaunchExecutable(cfg.Host.Executable),
		Logger:      logger,
		BaseContext: runCtx,
	})
	if err != nil {
		return fmt.Errorf("create api server: %w", err)
	}

	d, err := daemon.New(daemon.Options{
		Config:           cfg,
		Runner:           runner,
		Handler:          srv.Handler(),
		History:          store,
		HistoryRetention: time.Duration(cfg.Logging.RetentionDays) * 24 * time.Hour,
		Logger:           logger,
	})
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	if err := d.Start(signalCtx); err != nil {
		logging.ErrorWithContext(logger, "daemon start failed", "daemon_start_failed",
			logging.String(logging.FieldErrorHint, "check paths.api_bind and whether another daemon holds the lock"),
			logging.Error(err),
		)
		return err
	}

	pidPath := cfg.PIDPath()
	if err := writePIDFile(pidPath); err != nil {
		d.Stop()
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	<-signalCtx.Done()
	logger.Info("mediasolver daemon shutting down")
	d.Stop()
	cancelRuns()
	waitAll(logger, shutdownTimeout, runner.Wait, srv.Wait)
	return nil
}

// waitAll runs each wait function and gives up after timeout.
func waitAll(logger *slog.Logger, timeout time.Duration, waits ...func()) {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for _, wait := range waits {
			wait()
		}
	}()
	select {
	case <-done:
	case <-time.After(timeout):
		logging.WarnWithContext(logger, "background work still running at exit", "shutdown_timeout",
			logging.String(logging.FieldImpact, "the active run may not be recorded in history"),
			logging.Duration("timeout", timeout),
		)
	}
}

func ensureCurrentLogPointer(logDir, target string) error {
	if logDir == "" || target == "" {
		return nil
	}
	current := filepath.Join(logDir, logging.LogFileName)
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func logHostSnapshot(ctx context.Context, logger *slog.Logger, cfg *config.Config) {
	logger.Info("host snapshot",
		logging.String(logging.FieldEventType, "host_snapshot"),
		logging.String("bridge_address", cfg.Host.BridgeAddress),
		logging.String("api_generation", cfg.Host.APIGeneration),
		logging.Bool("bridge_reachable", bridge.Reachable(ctx, cfg.Host.BridgeNetwork, cfg.Host.BridgeAddress, probeTimeout)),
		logging.Bool("launch_configured", cfg.Host.Executable != ""),
		logging.String("project", cfg.Host.ProjectName),
		logging.Bool("watch_enabled", cfg.Watch.Enabled),
	)
}
