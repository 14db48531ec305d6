package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"mediasolver/internal/config"
	"mediasolver/internal/history"
	"mediasolver/internal/jobstate"
	"mediasolver/internal/logging"
	"mediasolver/internal/pipeline"
	"mediasolver/internal/reconcile"
	"mediasolver/internal/services"
)

const maxBodyBytes = 1 << 20

// HistoryLister reads recent runs.
type HistoryLister interface {
	List(ctx context.Context, limit int) ([]history.Run, error)
}

// Options wires the server to the daemon's components.
type Options struct {
	Config     *config.Config
	Runner     *pipeline.Runner
	Reconciler *reconcile.Reconciler
	History    HistoryLister
	// Probe reports whether the host bridge accepts connections. It must be
	// fast; status endpoints call it on every request.
	Probe func(ctx context.Context) bool
	// Launch starts the host application. Nil disables launching.
	Launch func(ctx context.Context) error
	// Hostname defaults to os.Hostname.
	Hostname func() (string, error)
	// ReadyInterval spaces readiness probes during bootstrap.
	ReadyInterval time.Duration
	Logger        *slog.Logger
	// BaseContext parents background bootstraps.
	BaseContext context.Context
}

// Server implements the HTTP handlers.
type Server struct {
	cfg        *config.Config
	runner     *pipeline.Runner
	reconciler *reconcile.Reconciler
	history    HistoryLister
	probe      func(ctx context.Context) bool
	launch     func(ctx context.Context) error
	hostname   func() (string, error)
	interval   time.Duration
	logger     *slog.Logger
	baseCtx    context.Context
	schema     *jsonschema.Schema

	bootstrapping atomic.Bool
	wg            sync.WaitGroup
}

// New validates opts and compiles the request schema.
func New(opts Options) (*Server, error) {
	if opts.Config == nil || opts.Runner == nil {
		return nil, errors.New("api: config and runner are required")
	}
	schema, err := compileStartSchema()
	if err != nil {
		return nil, err
	}
	s := &Server{
		cfg:        opts.Config,
		runner:     opts.Runner,
		reconciler: opts.Reconciler,
		history:    opts.History,
		probe:      opts.Probe,
		launch:     opts.Launch,
		hostname:   opts.Hostname,
		interval:   opts.ReadyInterval,
		logger:     logging.NewComponentLogger(opts.Logger, "api"),
		baseCtx:    opts.BaseContext,
		schema:     schema,
	}
	if s.probe == nil {
		s.probe = func(context.Context) bool { return true }
	}
	if s.hostname == nil {
		s.hostname = os.Hostname
	}
	if s.interval <= 0 {
		s.interval = 1500 * time.Millisecond
	}
	if s.baseCtx == nil {
		s.baseCtx = context.Background()
	}
	return s, nil
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(noStore)

	r.Get("/healthz", s.handleHealth)
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware(s.cfg.Paths.APIToken))
		r.Route("/api", func(r chi.Router) {
			r.Get("/hoststatus", s.handleHostStatus)
			r.Get("/presets", s.handlePresets)
			r.Post("/start", s.handleStart)
			r.Get("/progress", s.handleProgress)
			r.Post("/ensure-project", s.handleEnsureProject)
			r.Get("/debug/jobstatus", s.handleJobStatus)
			r.Get("/history", s.handleHistory)
		})
	})
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		s.writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	return r
}

// Wait blocks until background bootstraps have finished.
func (s *Server) Wait() {
	s.wg.Wait()
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleHostStatus(w http.ResponseWriter, r *http.Request) {
	name, err := s.hostname()
	if err != nil || name == "" {
		name = "unknown host"
	}
	payload := HostStatus{
		OK:          true,
		Hostname:    name,
		HostRunning: s.probe(r.Context()),
		Project:     s.cfg.Host.ProjectName,
	}
	if s.reconciler != nil {
		payload.Project = s.reconciler.Target()
		if out, at, ok := s.reconciler.Last(); ok {
			payload.LastCheck = &out
			payload.LastCheckAt = &at
		}
	}
	s.writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handlePresets(w http.ResponseWriter, r *http.Request) {
	if !s.probe(r.Context()) {
		s.writeJSON(w, http.StatusOK, PresetsResponse{Presets: []string{}, Error: "host is not running"})
		return
	}
	presets, err := s.runner.Pipeline().Presets(r.Context())
	if err != nil {
		s.writeJSON(w, http.StatusOK, PresetsResponse{Presets: []string{}, Error: services.Detail(err)})
		return
	}
	if presets == nil {
		presets = []string{}
	}
	s.writeJSON(w, http.StatusOK, PresetsResponse{OK: true, Presets: presets})
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "request body too large or unreadable")
		return
	}
	start, err := decodeStart(s.schema, body)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, services.Detail(err))
		return
	}
	req := s.pipelineRequest(start)
	runID, err := s.runner.Start(req)
	switch {
	case errors.Is(err, jobstate.ErrRunActive):
		s.writeError(w, http.StatusConflict, "a render run is already active")
		return
	case err != nil:
		s.writeError(w, services.HTTPStatus(err), services.Detail(err))
		return
	}
	logging.WithContext(r.Context(), s.logger).Info("render run accepted",
		logging.String("run_id", runID),
		logging.String("source", req.Source),
		logging.String("preset", req.Preset),
	)
	s.writeJSON(w, http.StatusAccepted, StartResponse{OK: true, RunID: runID})
}

// pipelineRequest overlays the body on the configured defaults.
func (s *Server) pipelineRequest(body StartRequest) pipeline.Request {
	req := pipeline.NewRequest(s.cfg)
	req.Source = body.Source
	req.OutputDir = body.OutputDir
	req.Preset = body.Preset
	req.Trigger = pipeline.TriggerAPI
	if body.Recursive != nil {
		req.Recursive = *body.Recursive
	}
	if body.BinParent != nil {
		req.BinParent = *body.BinParent
	}
	if body.BinPrefix != nil {
		req.BinPrefix = *body.BinPrefix
	}
	if body.TimelinePrefix != nil {
		req.TimelinePrefix = *body.TimelinePrefix
	}
	if body.IncludeStills != nil {
		req.IncludeStills = *body.IncludeStills
	}
	if body.Unique != nil {
		req.Unique = *body.Unique
	}
	if body.Project != "" {
		req.Project = body.Project
	}
	req.FPS = body.FPS
	req.Width = body.Width
	req.Height = body.Height
	req.CustomName = body.Name
	req.SingleClip = body.SingleClip
	req.Format = body.Format
	req.Codec = body.Codec
	req.SkipProjectCheck = body.SkipProjectCheck
	return req
}

func (s *Server) handleProgress(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.runner.Store().Snapshot())
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	jobID, raw, err := s.runner.Pipeline().JobStatus(r.Context())
	if errors.Is(err, services.ErrNotFound) {
		s.writeError(w, http.StatusBadRequest, "no render job is active")
		return
	}
	if err != nil {
		s.writeError(w, services.HTTPStatus(err), services.Detail(err))
		return
	}
	if raw == nil {
		raw = map[string]any{}
	}
	s.writeJSON(w, http.StatusOK, JobStatusResponse{OK: true, JobID: jobID, Raw: raw})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := history.DefaultLimit
	if value := r.URL.Query().Get("limit"); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil || parsed <= 0 {
			s.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}
	runs := []history.Run{}
	if s.history != nil {
		list, err := s.history.List(r.Context(), limit)
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if list != nil {
			runs = list
		}
	}
	s.writeJSON(w, http.StatusOK, HistoryResponse{OK: true, Runs: runs})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, ErrorResponse{OK: false, Error: message})
}
