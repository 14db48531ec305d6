package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"mediasolver/internal/host"
	"mediasolver/internal/hostcall"
	"mediasolver/internal/logging"
	"mediasolver/internal/services"
)

const (
	defaultInitTimeout = 4 * time.Second
	defaultOpTimeout   = 750 * time.Millisecond
	defaultMaxDepth    = 6
	defaultRetryDelay  = 150 * time.Millisecond
)

// Options configures a Reconciler.
type Options struct {
	// Target is the project made active when Ensure is called without a name.
	Target string
	// InitTimeout bounds session construction.
	InitTimeout time.Duration
	// OpTimeout bounds every other host call.
	OpTimeout time.Duration
	// MaxDepth limits how many folder levels below the library root are searched.
	MaxDepth int
	// RetryDelay is the pause between attempts of EnsureWithRetry.
	RetryDelay time.Duration
}

func (o Options) withDefaults() Options {
	if o.InitTimeout <= 0 {
		o.InitTimeout = defaultInitTimeout
	}
	if o.OpTimeout <= 0 {
		o.OpTimeout = defaultOpTimeout
	}
	if o.MaxDepth <= 0 {
		o.MaxDepth = defaultMaxDepth
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = defaultRetryDelay
	}
	return o
}

// Reconciler drives the host's active project to a target.
type Reconciler struct {
	dialer host.Dialer
	opts   Options
	logger *slog.Logger

	mu     sync.Mutex
	last   Outcome
	lastAt time.Time
}

// New constructs a reconciler.
func New(dialer host.Dialer, opts Options, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		dialer: dialer,
		opts:   opts.withDefaults(),
		logger: logging.NewComponentLogger(logger, "reconcile"),
	}
}

// Target returns the configured default project name.
func (r *Reconciler) Target() string {
	return r.opts.Target
}

// Last returns the most recent outcome and when it was produced.
func (r *Reconciler) Last() (Outcome, time.Time, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last, r.lastAt, !r.lastAt.IsZero()
}

// Ensure runs one reconciliation attempt. An empty target uses Options.Target.
func (r *Reconciler) Ensure(ctx context.Context, target string) Outcome {
	return r.EnsureWithRetry(ctx, target, 1)
}

// EnsureWithRetry runs up to attempts reconciliations, pausing between them.
// Host-off and missing project manager results are returned immediately.
func (r *Reconciler) EnsureWithRetry(ctx context.Context, target string, attempts int) Outcome {
	target = strings.TrimSpace(target)
	if target == "" {
		target = r.opts.Target
	}
	if attempts < 1 {
		attempts = 1
	}

	var out Outcome
	if target == "" {
		out = failed(StatusError, "no target project name configured")
	}
	for i := 1; target != "" && i <= attempts; i++ {
		out = r.ensureOnce(ctx, target)
		out.Attempts = i
		if !out.Status.Retryable() || i == attempts {
			break
		}
		r.logger.Debug("reconciliation attempt failed; retrying",
			logging.String("status", string(out.Status)),
			logging.String("details", out.Details),
			logging.Int("attempt", i),
		)
		timer := time.NewTimer(r.opts.RetryDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			out = failed(StatusError, "interrupted: "+ctx.Err().Error())
			out.Attempts = i
			i = attempts
		case <-timer.C:
		}
	}
	out.Target = target
	r.record(out)
	return out
}

// WaitReady polls the host until a session with a project manager can be
// opened or timeout elapses.
func (r *Reconciler) WaitReady(ctx context.Context, timeout, interval time.Duration) error {
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	deadline := time.Now().Add(timeout)
	for {
		if r.probe(ctx) {
			return nil
		}
		if time.Now().After(deadline) {
			return services.Wrap(services.ErrHostUnavailable, "reconcile", "wait ready",
				fmt.Sprintf("host scripting API not ready after %s", timeout), nil)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
}

func (r *Reconciler) probe(ctx context.Context) bool {
	sess, err := hostcall.CallRelease(ctx, r.opts.InitTimeout, "Dial", func() (host.Session, error) {
		return r.dialer.Dial(ctx)
	}, host.CloseLate)
	if err != nil || sess == nil {
		return false
	}
	defer sess.Close()
	pm, err := hostcall.Call(ctx, r.opts.OpTimeout, "ProjectManager", sess.ProjectManager)
	return err == nil && pm != nil
}

func (r *Reconciler) record(out Outcome) {
	r.mu.Lock()
	r.last = out
	r.lastAt = time.Now()
	r.mu.Unlock()

	attrs := []logging.Attr{
		logging.String("project", out.Target),
		logging.String("status", string(out.Status)),
		logging.String("kind", string(out.Kind)),
		logging.String("details", out.Details),
		logging.Int("attempts", out.Attempts),
	}
	if out.OK {
		r.logger.Info("project ready", logging.Args(attrs...)...)
		return
	}
	attrs = append(attrs, logging.String(logging.FieldErrorHint, hintFor(out.Status)))
	logging.WarnWithContext(r.logger, "project reconciliation failed", "reconcile_failed", attrs...)
}

func hintFor(status Status) string {
	switch status {
	case StatusAppOff:
		return "start the editing host and its scripting bridge"
	case StatusNoPM:
		return "wait for the host to finish starting, then retry"
	case StatusUnresponsive:
		return "dismiss any open dialog in the host and retry"
	case StatusCloseFailed:
		return "close the current project in the host manually"
	default:
		return "check the host and bridge logs"
	}
}

// session carries the state of one attempt.
type session struct {
	ctx    context.Context
	opts   Options
	pm     host.ProjectManager
	logger *slog.Logger
}

// errStep carries a terminal outcome out of a helper.
type errStep struct{ out Outcome }

func (e *errStep) Error() string { return string(e.out.Status) + ": " + e.out.Details }

func stepFailure(status Status, format string, args ...any) error {
	return &errStep{out: failed(status, fmt.Sprintf(format, args...))}
}

// bounded runs fn under the op timeout. A timeout becomes UNRESPONSIVE.
func bounded[T any](s *session, name string, fn func() (T, error)) (T, error) {
	v, err := hostcall.Call(s.ctx, s.opts.OpTimeout, name, fn)
	if err != nil && hostcall.IsTimeout(err) {
		return v, stepFailure(StatusUnresponsive, "%s timed out", name)
	}
	if err != nil && s.ctx.Err() != nil {
		return v, stepFailure(StatusError, "interrupted during %s", name)
	}
	return v, err
}

func (r *Reconciler) ensureOnce(ctx context.Context, target string) Outcome {
	sess, err := hostcall.CallRelease(ctx, r.opts.InitTimeout, "Dial", func() (host.Session, error) {
		return r.dialer.Dial(ctx)
	}, host.CloseLate)
	switch {
	case hostcall.IsTimeout(err):
		return failed(StatusUnresponsive, "session init timed out")
	case errors.Is(err, host.ErrEngineUnavailable):
		return failed(StatusAppOff, "scripting engine unreachable")
	case err != nil:
		return failed(StatusError, "session init: "+err.Error())
	case sess == nil:
		return failed(StatusAppOff, "no session")
	}
	defer sess.Close()

	s := &session{ctx: ctx, opts: r.opts, logger: r.logger}
	pm, err := bounded(s, "ProjectManager", sess.ProjectManager)
	if out, ok := asOutcome(err); ok {
		return out
	}
	if err != nil {
		return failed(StatusNoPM, "project manager unavailable: "+err.Error())
	}
	if pm == nil {
		return failed(StatusNoPM, "project manager unavailable")
	}
	s.pm = pm

	kind, err := s.run(target)
	if out, ok := asOutcome(err); ok {
		return out
	}
	if err != nil {
		return failed(StatusError, err.Error())
	}
	return succeeded(kind, describe(kind, target))
}

func asOutcome(err error) (Outcome, bool) {
	var step *errStep
	if errors.As(err, &step) {
		return step.out, true
	}
	return Outcome{}, false
}

func describe(kind Kind, target string) string {
	switch kind {
	case KindAlreadyActive:
		return target + " already loaded"
	case KindReplacedUnnamed:
		return target + " loaded (unnamed project replaced)"
	case KindCreatedAndLoaded:
		return target + " created and loaded"
	default:
		return target + " loaded"
	}
}

func (s *session) run(target string) (Kind, error) {
	cur, name, err := s.current()
	if err != nil {
		return "", err
	}
	if cur != nil && name == target {
		return KindAlreadyActive, nil
	}

	replacing := false
	if cur != nil {
		listed, err := bounded(s, "ProjectsInCurrentFolder", s.pm.ProjectsInCurrentFolder)
		if _, ok := asOutcome(err); ok {
			return "", err
		}
		replacing = IsUnnamed(name) || !slices.Contains(listed, name)
		if replacing {
			s.logger.Debug("unnamed project active; loading over it", logging.String("current", name))
		} else if err := s.closeNamed(cur, name); err != nil {
			return "", err
		}
	}

	created, err := s.ensureTarget(target)
	if err != nil {
		return "", err
	}
	switch {
	case replacing:
		return KindReplacedUnnamed, nil
	case created:
		return KindCreatedAndLoaded, nil
	default:
		return KindLoadedExisting, nil
	}
}

func (s *session) current() (host.Project, string, error) {
	cur, err := bounded(s, "CurrentProject", s.pm.CurrentProject)
	if err != nil {
		if _, ok := asOutcome(err); ok {
			return nil, "", err
		}
		return nil, "", stepFailure(StatusError, "CurrentProject: %v", err)
	}
	if cur == nil {
		return nil, "", nil
	}
	name, err := bounded(s, "Project.Name", cur.Name)
	if err != nil {
		if _, ok := asOutcome(err); ok {
			return nil, "", err
		}
		return nil, "", stepFailure(StatusError, "Project.Name: %v", err)
	}
	return cur, name, nil
}

func (s *session) closeNamed(cur host.Project, name string) error {
	saved, err := bounded(s, "SaveProject", s.pm.SaveProject)
	if _, ok := asOutcome(err); ok {
		return err
	}
	if err != nil || !saved {
		logging.WarnWithContext(s.logger, "save before close failed", "project_save_failed",
			logging.String("project", name),
			logging.String(logging.FieldImpact, "unsaved changes in the closed project are lost"),
			logging.String(logging.FieldErrorHint, "save the project manually in the host"),
			logging.Error(err),
		)
	}

	closed, err := bounded(s, "CloseProject", func() (bool, error) { return s.pm.CloseProject(cur) })
	if _, ok := asOutcome(err); ok {
		return err
	}
	if err == nil && closed {
		return nil
	}
	closed, err = bounded(s, "CloseProject()", func() (bool, error) { return s.pm.CloseProject(nil) })
	if _, ok := asOutcome(err); ok {
		return err
	}
	if err != nil || !closed {
		return stepFailure(StatusCloseFailed, "could not close %q", name)
	}
	return nil
}

// ensureTarget finds or creates target, loads it and verifies it is active.
func (s *session) ensureTarget(target string) (bool, error) {
	path, found, err := s.find(target)
	if err != nil {
		return false, err
	}

	created := false
	if found {
		if err := s.navigate(path); err != nil {
			if _, ok := asOutcome(err); ok {
				return false, err
			}
			return false, stepFailure(StatusLoadFailed, "could not reopen folder %q", strings.Join(path, "/"))
		}
	} else {
		if _, err := bounded(s, "GotoRootFolder", s.pm.GotoRootFolder); isStatus(err, StatusUnresponsive) {
			return false, err
		}
		p, err := bounded(s, "CreateProject", func() (host.Project, error) { return s.pm.CreateProject(target) })
		if _, ok := asOutcome(err); ok {
			return false, err
		}
		if err != nil || p == nil {
			return false, stepFailure(StatusCreateFailed, "CreateProject(%q) returned no project", target)
		}
		created = true
	}

	cur, name, err := s.current()
	if isStatus(err, StatusUnresponsive) {
		return false, err
	}
	if err != nil || cur == nil || name != target {
		p, err := bounded(s, "LoadProject", func() (host.Project, error) { return s.pm.LoadProject(target) })
		if _, ok := asOutcome(err); ok {
			return false, err
		}
		if err != nil || p == nil {
			return false, stepFailure(StatusLoadFailed, "LoadProject(%q) returned no project", target)
		}
	}

	cur, name, err = s.current()
	if isStatus(err, StatusUnresponsive) {
		return false, err
	}
	if err != nil || cur == nil || name != target {
		return false, stepFailure(StatusLoadFailed, "%s not active after load", target)
	}
	return created, nil
}

func isStatus(err error, status Status) bool {
	out, ok := asOutcome(err)
	return ok && out.Status == status
}

var errFolderMissing = errors.New("folder missing")

// navigate moves the host's folder cursor to path by starting at the root.
// The cursor is host-side state, so every visit re-derives it instead of
// relying on relative moves surviving a timed-out call.
func (s *session) navigate(path []string) error {
	ok, err := bounded(s, "GotoRootFolder", s.pm.GotoRootFolder)
	if err != nil {
		return err
	}
	if !ok {
		return errFolderMissing
	}
	for _, seg := range path {
		ok, err := bounded(s, "OpenFolder", func() (bool, error) { return s.pm.OpenFolder(seg) })
		if err != nil {
			return err
		}
		if !ok {
			return errFolderMissing
		}
	}
	return nil
}

// find walks the library depth first with an explicit stack of folder paths
// and returns the path of the folder holding target.
func (s *session) find(target string) ([]string, bool, error) {
	stack := [][]string{nil}
	for len(stack) > 0 {
		path := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if err := s.navigate(path); err != nil {
			if _, ok := asOutcome(err); ok {
				return nil, false, err
			}
			continue
		}
		projects, err := bounded(s, "ProjectsInCurrentFolder", s.pm.ProjectsInCurrentFolder)
		if _, ok := asOutcome(err); ok {
			return nil, false, err
		}
		if slices.Contains(projects, target) {
			return path, true, nil
		}
		if len(path) >= s.opts.MaxDepth {
			continue
		}
		folders, err := bounded(s, "FoldersInCurrentFolder", s.pm.FoldersInCurrentFolder)
		if _, ok := asOutcome(err); ok {
			return nil, false, err
		}
		for i := len(folders) - 1; i >= 0; i-- {
			child := make([]string, len(path), len(path)+1)
			copy(child, path)
			stack = append(stack, append(child, folders[i]))
		}
	}
	return nil, false, nil
}
