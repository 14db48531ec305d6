package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os/exec"
	"path/filepath"
	"strings"

	"mediasolver/internal/logging"
	"mediasolver/internal/services"
)

// LaunchExecutable returns a launcher that starts path detached from the
// daemon, in its own directory. The process is reaped in the background.
func LaunchExecutable(path string) func(ctx context.Context) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}
	return func(context.Context) error {
		cmd := exec.Command(path)
		cmd.Dir = filepath.Dir(path)
		if err := cmd.Start(); err != nil {
			return services.Wrap(services.ErrExternalTool, "bootstrap", "launch host", path, err)
		}
		go func() { _ = cmd.Wait() }()
		return nil
	}
}

func (s *Server) handleEnsureProject(w http.ResponseWriter, r *http.Request) {
	var body EnsureProjectRequest
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "request body too large or unreadable")
		return
	}
	if len(strings.TrimSpace(string(data))) > 0 {
		if err := json.Unmarshal(data, &body); err != nil {
			s.writeError(w, http.StatusBadRequest, "request body is not valid JSON")
			return
		}
	}
	if s.reconciler == nil {
		s.writeError(w, http.StatusServiceUnavailable, "project reconciliation is not configured")
		return
	}
	project := strings.TrimSpace(body.Project)
	if project == "" {
		project = s.reconciler.Target()
	}

	if !s.bootstrapping.CompareAndSwap(false, true) {
		s.writeJSON(w, http.StatusAccepted, EnsureProjectResponse{OK: true, Message: "host bootstrap already in progress", Project: project})
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.bootstrapping.Store(false)
		s.bootstrap(s.baseCtx, project)
	}()
	s.writeJSON(w, http.StatusAccepted, EnsureProjectResponse{OK: true, Message: "host starting in background", Project: project})
}

// bootstrap launches the host when it is off, waits for its scripting API
// and reconciles project. Failures are logged; callers poll /api/hoststatus.
func (s *Server) bootstrap(ctx context.Context, project string) {
	logger := s.logger.With(logging.String("project", project))
	if !s.probe(ctx) {
		if s.launch == nil {
			logger.Info("host not running and no executable configured; waiting for a manual start")
		} else if err := s.launch(ctx); err != nil {
			logging.WarnWithContext(logger, "host launch failed", "host_launch_failed",
				logging.String(logging.FieldImpact, "project not opened"),
				logging.String(logging.FieldErrorHint, "check host.executable in the config"),
				logging.Error(err),
			)
			return
		} else {
			logger.Info("host launched", logging.String(logging.FieldEventType, "host_launch"))
		}
	}
	if err := s.reconciler.WaitReady(ctx, s.cfg.ReadyTimeout(), s.interval); err != nil {
		logging.WarnWithContext(logger, "host did not become ready", "host_not_ready",
			logging.String(logging.FieldImpact, "project not opened"),
			logging.Error(err),
		)
		return
	}
	s.reconciler.EnsureWithRetry(ctx, project, max(1, s.cfg.Host.ReconcileAttempts))
}
