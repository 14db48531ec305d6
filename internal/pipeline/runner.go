package pipeline

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"mediasolver/internal/history"
	"mediasolver/internal/jobstate"
	"mediasolver/internal/logging"
	"mediasolver/internal/reconcile"
	"mediasolver/internal/services"
)

// HistoryRecorder persists finished runs.
type HistoryRecorder interface {
	Record(ctx context.Context, run history.Run) error
}

// RunnerOptions configures a Runner.
type RunnerOptions struct {
	Pipeline   *Pipeline
	Reconciler *reconcile.Reconciler
	History    HistoryRecorder
	// ReconcileAttempts bounds reconciliation retries before each run.
	ReconcileAttempts int
	Logger            *slog.Logger
	// BaseContext parents background runs; cancelling it interrupts them.
	BaseContext context.Context
}

// Runner admits at most one run at a time and drives it to completion.
type Runner struct {
	pipeline   *Pipeline
	store      *jobstate.Store
	reconciler *reconcile.Reconciler
	history    HistoryRecorder
	attempts   int
	logger     *slog.Logger
	baseCtx    context.Context

	wg sync.WaitGroup
}

// NewRunner constructs a runner.
func NewRunner(opts RunnerOptions) *Runner {
	base := opts.BaseContext
	if base == nil {
		base = context.Background()
	}
	attempts := opts.ReconcileAttempts
	if attempts < 1 {
		attempts = 1
	}
	return &Runner{
		pipeline:   opts.Pipeline,
		store:      opts.Pipeline.Store(),
		reconciler: opts.Reconciler,
		history:    opts.History,
		attempts:   attempts,
		logger:     logging.NewComponentLogger(opts.Logger, "runner"),
		baseCtx:    base,
	}
}

// Store returns the job record store.
func (r *Runner) Store() *jobstate.Store {
	return r.store
}

// Pipeline returns the underlying pipeline.
func (r *Runner) Pipeline() *Pipeline {
	return r.pipeline
}

// Start validates req and runs it in the background. It returns the run id,
// or jobstate.ErrRunActive when a run is already in flight.
func (r *Runner) Start(req Request) (string, error) {
	runID, err := r.admit(req)
	if err != nil {
		return "", err
	}
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		_, _ = r.execute(r.baseCtx, runID, req)
	}()
	return runID, nil
}

// RunSync runs req on the calling goroutine.
func (r *Runner) RunSync(ctx context.Context, req Request) (Result, error) {
	runID, err := r.admit(req)
	if err != nil {
		return Result{}, err
	}
	return r.execute(ctx, runID, req)
}

// Wait blocks until background runs have finished.
func (r *Runner) Wait() {
	r.wg.Wait()
}

func (r *Runner) admit(req Request) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}
	runID := uuid.NewString()
	if err := r.store.Begin(runID, r.pipeline.now()); err != nil {
		return "", err
	}
	return runID, nil
}

func (r *Runner) execute(ctx context.Context, runID string, req Request) (Result, error) {
	ctx = services.WithRunID(ctx, runID)
	logger := logging.WithContext(ctx, r.logger)
	logger.Info("render run started",
		logging.String(logging.FieldEventType, "run_start"),
		logging.String("source", req.describeSource()),
		logging.String("preset", req.Preset),
		logging.String("trigger", string(req.Trigger)),
	)

	var (
		res Result
		err = r.reconcile(ctx, req)
	)
	if err != nil {
		finished := r.pipeline.now()
		r.store.Apply(func(rec *jobstate.Record) {
			rec.State = jobstate.StateError
			rec.Error = services.Detail(err)
			rec.Message = "Project not ready"
			rec.FinishedAt = &finished
		})
		logging.ErrorWithContext(logger, "render run aborted before start", "run_failed",
			logging.String("error_message", services.Detail(err)))
	} else {
		res, err = r.pipeline.Run(ctx, req)
	}
	r.record(ctx, logger, req, res)
	return res, err
}

func (r *Runner) reconcile(ctx context.Context, req Request) error {
	if req.SkipProjectCheck || r.reconciler == nil {
		return nil
	}
	r.store.Apply(func(rec *jobstate.Record) { rec.Message = "Checking project" })
	out := r.reconciler.EnsureWithRetry(ctx, req.Project, r.attempts)
	if out.OK {
		return nil
	}
	marker := services.ErrExternalTool
	switch out.Status {
	case reconcile.StatusAppOff, reconcile.StatusNoPM:
		marker = services.ErrHostUnavailable
	case reconcile.StatusUnresponsive:
		marker = services.ErrTimeout
	}
	return services.Wrap(marker, "reconcile", "ensure project",
		string(out.Status)+": "+out.Details, nil)
}

func (r *Runner) record(ctx context.Context, logger *slog.Logger, req Request, res Result) {
	if r.history == nil {
		return
	}
	rec := r.store.Snapshot()
	run := history.Run{
		RunID:     rec.RunID,
		Trigger:   string(req.Trigger),
		Source:    req.describeSource(),
		Preset:    req.Preset,
		OutputDir: strings.TrimSpace(req.OutputDir),
		Project:   req.Project,
		State:     string(rec.State),
		Percent:   rec.Percent,
		Error:     rec.Error,
		JobID:     rec.JobID,
		BinName:   res.BinName,
		Timeline:  rec.Timeline,
		FileCount: len(res.Files),
		ClipCount: rec.ClipCount,
	}
	if run.Trigger == "" {
		run.Trigger = string(TriggerAPI)
	}
	if rec.StartedAt != nil {
		run.StartedAt = *rec.StartedAt
	}
	if rec.FinishedAt != nil {
		run.FinishedAt = *rec.FinishedAt
	}
	if err := r.history.Record(context.WithoutCancel(ctx), run); err != nil {
		logging.WarnWithContext(logger, "run history not recorded", "history_write_failed",
			logging.String(logging.FieldImpact, "run missing from history listing"),
			logging.Error(err),
		)
	}
}
