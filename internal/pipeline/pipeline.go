package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"mediasolver/internal/host"
	"mediasolver/internal/hostcall"
	"mediasolver/internal/jobstate"
	"mediasolver/internal/logging"
	"mediasolver/internal/services"
)

const (
	defaultCallTimeout  = 120 * time.Second
	defaultPollInterval = 500 * time.Millisecond

	percentStart    = 0
	percentListed   = 3
	percentImported = 10
	percentTimeline = 20
)

// TracerName identifies pipeline spans.
const TracerName = "mediasolver/pipeline"

// Options configures a Pipeline.
type Options struct {
	Dialer host.Dialer
	Store  *jobstate.Store
	// CallTimeout bounds each host call. Imports of large folders are slow,
	// so this is far longer than the reconciler's probes.
	CallTimeout  time.Duration
	PollInterval time.Duration
	Logger       *slog.Logger
	// Tracer defaults to the global provider's tracer.
	Tracer trace.Tracer
	// Now defaults to time.Now.
	Now func() time.Time
}

// Pipeline runs render requests against the host.
type Pipeline struct {
	dialer       host.Dialer
	store        *jobstate.Store
	callTimeout  time.Duration
	pollInterval time.Duration
	logger       *slog.Logger
	tracer       trace.Tracer
	now          func() time.Time

	mu     sync.Mutex
	active *activeJob
}

type activeJob struct {
	project host.Project
	jobID   string
}

// Result summarizes a finished run.
type Result struct {
	Files     []string
	BinName   string
	Timeline  string
	ClipCount int
	JobID     string
	State     jobstate.State
}

// New constructs a pipeline.
func New(opts Options) *Pipeline {
	p := &Pipeline{
		dialer:       opts.Dialer,
		store:        opts.Store,
		callTimeout:  opts.CallTimeout,
		pollInterval: opts.PollInterval,
		logger:       logging.NewComponentLogger(opts.Logger, "pipeline"),
		tracer:       opts.Tracer,
		now:          opts.Now,
	}
	if p.store == nil {
		p.store = jobstate.New()
	}
	if p.callTimeout <= 0 {
		p.callTimeout = defaultCallTimeout
	}
	if p.pollInterval <= 0 {
		p.pollInterval = defaultPollInterval
	}
	if p.tracer == nil {
		p.tracer = otel.Tracer(TracerName)
	}
	if p.now == nil {
		p.now = time.Now
	}
	return p
}

// Store returns the job record store the pipeline writes.
func (p *Pipeline) Store() *jobstate.Store {
	return p.store
}

// Run executes req and leaves the job record in a terminal state. The caller
// is expected to have moved the record to preparing with Store.Begin.
func (p *Pipeline) Run(ctx context.Context, req Request) (Result, error) {
	ctx, span := p.tracer.Start(ctx, "pipeline.run", trace.WithAttributes(
		attribute.String("mediasolver.source", req.describeSource()),
		attribute.String("mediasolver.preset", req.Preset),
	))
	defer span.End()

	r := &run{p: p, req: req, ctx: ctx, logger: logging.WithContext(ctx, p.logger)}
	err := r.execute()
	r.finalize(err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, services.Detail(err))
	}
	r.result.State = p.store.Snapshot().State
	return r.result, err
}

// JobStatus returns the raw host status of the job currently being polled.
func (p *Pipeline) JobStatus(ctx context.Context) (string, host.RawStatus, error) {
	p.mu.Lock()
	active := p.active
	p.mu.Unlock()
	if active == nil {
		return "", nil, services.Wrap(services.ErrNotFound, "debug", "job status", "no render job is active", nil)
	}
	raw, err := hostcall.Call(ctx, p.callTimeout, "RenderJobStatus", func() (host.RawStatus, error) {
		return active.project.RenderJobStatus(active.jobID)
	})
	if err != nil {
		return active.jobID, nil, hostError("debug", "RenderJobStatus", "could not read job status", err)
	}
	return active.jobID, raw, nil
}

// Presets lists the render presets of the host's current project.
func (p *Pipeline) Presets(ctx context.Context) ([]string, error) {
	sess, project, err := p.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer sess.Close()
	presets, err := hostcall.Call(ctx, p.callTimeout, "RenderPresets", project.RenderPresets)
	if err != nil {
		return nil, hostError("presets", "RenderPresets", "could not list render presets", err)
	}
	return presets, nil
}

func (p *Pipeline) setActive(project host.Project, jobID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if project == nil {
		p.active = nil
		return
	}
	p.active = &activeJob{project: project, jobID: jobID}
}

// connect opens a session and returns the current project.
func (p *Pipeline) connect(ctx context.Context) (host.Session, host.Project, error) {
	sess, err := hostcall.CallRelease(ctx, p.callTimeout, "Dial", func() (host.Session, error) {
		return p.dialer.Dial(ctx)
	}, host.CloseLate)
	if err != nil {
		return nil, nil, hostError("connect", "Dial", "could not reach the host", err)
	}
	if sess == nil {
		return nil, nil, services.Wrap(services.ErrHostUnavailable, "connect", "Dial", "no host session", nil)
	}
	pm, err := hostcall.Call(ctx, p.callTimeout, "ProjectManager", sess.ProjectManager)
	if err == nil && pm == nil {
		err = host.ErrEngineUnavailable
	}
	if err != nil {
		sess.Close()
		return nil, nil, hostError("connect", "ProjectManager", "project manager unavailable", err)
	}
	project, err := hostcall.Call(ctx, p.callTimeout, "CurrentProject", pm.CurrentProject)
	if err != nil {
		sess.Close()
		return nil, nil, hostError("connect", "CurrentProject", "could not read current project", err)
	}
	if project == nil {
		sess.Close()
		return nil, nil, services.Wrap(services.ErrValidation, "connect", "CurrentProject", "no project is open in the host", nil)
	}
	return sess, project, nil
}

// hostError classifies a failed host call.
func hostError(stage, op, message string, err error) error {
	marker := services.ErrExternalTool
	switch {
	case hostcall.IsTimeout(err):
		marker = services.ErrTimeout
	case errors.Is(err, host.ErrEngineUnavailable):
		marker = services.ErrHostUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		marker = services.ErrTransient
	}
	return services.Wrap(marker, stage, op, message, err)
}

// call bounds one host call with the pipeline's call timeout.
func call[T any](r *run, op string, fn func() (T, error)) (T, error) {
	r.logger.Debug("host call", logging.HostOp(op))
	return hostcall.Call(r.ctx, r.p.callTimeout, op, fn)
}

// run carries the state of one Run.
type run struct {
	p      *Pipeline
	req    Request
	ctx    context.Context
	logger *slog.Logger

	session  host.Session
	project  host.Project
	pool     host.MediaPool
	bin      host.Folder
	clips    []host.Clip
	timeline host.Timeline
	jobID    string
	result   Result
}

func (r *run) update(fn func(*jobstate.Record)) jobstate.Record {
	return r.p.store.Apply(fn)
}

func (r *run) progress(percent int, message string) {
	r.update(func(rec *jobstate.Record) {
		rec.Percent = percent
		rec.Message = message
	})
}

// stage runs fn inside a span with a stage-scoped logger and context.
func (r *run) stage(name string, fn func() error) error {
	parentCtx, parentLogger := r.ctx, r.logger
	ctx, span := r.p.tracer.Start(parentCtx, "pipeline."+name)
	ctx = services.WithStage(ctx, name)
	r.ctx = ctx
	r.logger = logging.WithContext(ctx, r.p.logger)
	defer func() {
		span.End()
		r.ctx, r.logger = parentCtx, parentLogger
	}()

	if err := r.ctx.Err(); err != nil {
		return services.Wrap(services.ErrTransient, name, "start stage", "interrupted", err)
	}
	start := r.p.now()
	r.logger.Debug("stage started", logging.String(logging.FieldEventType, "stage_start"))
	if err := fn(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, services.Detail(err))
		r.logger.Error("stage failed",
			logging.String(logging.FieldEventType, "stage_failure"),
			logging.String("error_message", services.Detail(err)),
			logging.Error(err),
		)
		return err
	}
	r.logger.Info("stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.Duration("duration", r.p.now().Sub(start)),
	)
	return nil
}

func (r *run) warn(msg, eventType, impact string, attrs ...logging.Attr) {
	attrs = append(attrs, logging.String(logging.FieldImpact, impact))
	logging.WarnWithContext(r.logger, msg, eventType, attrs...)
}

func (r *run) execute() error {
	r.progress(percentStart, "Connecting to host")
	sess, project, err := r.p.connect(r.ctx)
	if err != nil {
		return err
	}
	r.session, r.project = sess, project
	defer func() {
		r.p.setActive(nil, "")
		r.session.Close()
	}()

	steps := []struct {
		name string
		fn   func() error
	}{
		{"enumerate", r.enumerate},
		{"bin", r.createBin},
		{"import", r.importMedia},
		{"collect", r.collect},
		{"timeline", r.buildTimeline},
		{"activate", r.activateTimeline},
		{"preset", r.applyPreset},
		{"submit", r.submit},
		{"start", r.start},
		{"render", r.poll},
		{"cleanup", r.cleanup},
	}
	for _, step := range steps {
		if err := r.stage(step.name, step.fn); err != nil {
			if step.name != "cleanup" && r.jobID != "" {
				r.cleanup()
			}
			return err
		}
	}
	return nil
}

// finalize writes the terminal state without overwriting one the poll loop
// already set.
func (r *run) finalize(err error) {
	finished := r.p.now()
	rec := r.update(func(rec *jobstate.Record) {
		if err != nil && !rec.State.Terminal() {
			rec.State = jobstate.StateError
			rec.Error = services.Detail(err)
			rec.Message = "Failed"
			rec.ETA = ""
		}
		if err == nil && !rec.State.Terminal() {
			rec.State = jobstate.StateDone
			rec.Percent = 100
			rec.Message = "Render complete"
			rec.ETA = ""
		}
		rec.FinishedAt = &finished
	})
	attrs := []logging.Attr{
		logging.String("state", string(rec.State)),
		logging.Int("percent", rec.Percent),
		logging.String("job_id", rec.JobID),
	}
	if rec.State == jobstate.StateDone {
		r.logger.Info("render run finished", logging.Args(attrs...)...)
		return
	}
	attrs = append(attrs, logging.String("error_message", rec.Error))
	logging.ErrorWithContext(r.logger, "render run failed", "run_failed", attrs...)
}
