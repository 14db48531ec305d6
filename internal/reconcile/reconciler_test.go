package reconcile_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mediasolver/internal/host"
	"mediasolver/internal/host/hosttest"
	"mediasolver/internal/reconcile"
)

const target = "MediaSolver"

func newReconciler(h *hosttest.Host) *reconcile.Reconciler {
	return reconcile.New(h, reconcile.Options{
		Target:      target,
		InitTimeout: 200 * time.Millisecond,
		OpTimeout:   100 * time.Millisecond,
		RetryDelay:  time.Millisecond,
	}, nil)
}

func countCalls(h *hosttest.Host, op string) int {
	n := 0
	for _, c := range h.Calls() {
		if c == op {
			n++
		}
	}
	return n
}

func TestEnsureAlreadyActive(t *testing.T) {
	h := hosttest.New()
	p := hosttest.NewProject(target)
	h.AddProject("", p)
	h.Open(p)

	out := newReconciler(h).Ensure(context.Background(), "")

	require.True(t, out.OK, out.Details)
	assert.Equal(t, reconcile.StatusOK, out.Status)
	assert.Equal(t, reconcile.KindAlreadyActive, out.Kind)
	assert.Equal(t, target, out.Target)
	assert.False(t, h.Called("LoadProject"))
	assert.False(t, h.Called("SaveProject"))
}

func TestEnsureReplacesUntitledProjectWithoutSaving(t *testing.T) {
	h := hosttest.New()
	h.Open(hosttest.NewProject("Untitled Project 2"))

	out := newReconciler(h).Ensure(context.Background(), "")

	require.True(t, out.OK, out.Details)
	assert.Equal(t, reconcile.KindReplacedUnnamed, out.Kind)
	assert.False(t, h.Called("SaveProject"), "unnamed project must not be saved")
	assert.False(t, h.Called("CloseProject"), "unnamed project must not be closed")
	assert.False(t, h.Called("CloseProject()"))
	assert.True(t, h.Called("CreateProject"))
	assert.Equal(t, target, h.CurrentName())
}

func TestEnsureTreatsUnlistedProjectAsUnnamed(t *testing.T) {
	h := hosttest.New()
	h.AddProject("", hosttest.NewProject(target))
	h.Open(hosttest.NewProject("Scratch Edit"))

	out := newReconciler(h).Ensure(context.Background(), "")

	require.True(t, out.OK, out.Details)
	assert.Equal(t, reconcile.KindReplacedUnnamed, out.Kind)
	assert.False(t, h.Called("SaveProject"))
	assert.False(t, h.Called("CreateProject"))
	assert.Equal(t, target, h.CurrentName())
}

func TestEnsureClosesNamedProjectAndLoadsNestedTarget(t *testing.T) {
	h := hosttest.New()
	other := hosttest.NewProject("Client A")
	h.AddProject("", other)
	h.Open(other)
	h.AddProject("Archive/2024", hosttest.NewProject(target))

	out := newReconciler(h).Ensure(context.Background(), "")

	require.True(t, out.OK, out.Details)
	assert.Equal(t, reconcile.KindLoadedExisting, out.Kind)
	assert.True(t, h.Called("SaveProject"))
	assert.True(t, h.Called("CloseProject"))
	assert.False(t, h.Called("CreateProject"))
	assert.Equal(t, target, h.CurrentName())
}

func TestEnsureCreatesMissingTargetAtRoot(t *testing.T) {
	h := hosttest.New()

	out := newReconciler(h).Ensure(context.Background(), "Fresh")

	require.True(t, out.OK, out.Details)
	assert.Equal(t, reconcile.KindCreatedAndLoaded, out.Kind)
	assert.Equal(t, "Fresh", out.Target)
	assert.Contains(t, h.Library.Projects, "Fresh")
	assert.Equal(t, "Fresh", h.CurrentName())
}

func TestEnsureSearchStopsAtMaxDepth(t *testing.T) {
	h := hosttest.New()
	h.AddProject("a/b/c/d/e/f/g", hosttest.NewProject(target))

	out := newReconciler(h).Ensure(context.Background(), "")

	require.True(t, out.OK, out.Details)
	assert.Equal(t, reconcile.KindCreatedAndLoaded, out.Kind)
	assert.Contains(t, h.Library.Projects, target)
}

func TestEnsureFindsTargetAtMaxDepth(t *testing.T) {
	h := hosttest.New()
	h.AddProject("a/b/c/d/e/f", hosttest.NewProject(target))

	out := newReconciler(h).Ensure(context.Background(), "")

	require.True(t, out.OK, out.Details)
	assert.Equal(t, reconcile.KindLoadedExisting, out.Kind)
	assert.NotContains(t, h.Library.Projects, target)
}

func TestEnsureFallsBackToArgumentlessClose(t *testing.T) {
	h := hosttest.New()
	h.CloseNeedsNoArg = true
	other := hosttest.NewProject("Client B")
	h.AddProject("", other)
	h.Open(other)

	out := newReconciler(h).Ensure(context.Background(), "")

	require.True(t, out.OK, out.Details)
	assert.True(t, h.Called("CloseProject"))
	assert.True(t, h.Called("CloseProject()"))
}

func TestEnsureCloseFailure(t *testing.T) {
	h := hosttest.New()
	other := hosttest.NewProject("Client C")
	h.AddProject("", other)
	h.Open(other)
	h.Refuse("CloseProject")
	h.Refuse("CloseProject()")

	out := newReconciler(h).Ensure(context.Background(), "")

	assert.False(t, out.OK)
	assert.Equal(t, reconcile.StatusCloseFailed, out.Status)
	assert.Equal(t, reconcile.KindFailed, out.Kind)
	assert.Equal(t, 5, out.Status.ExitCode())
}

func TestEnsureSaveFailureIsOnlyAWarning(t *testing.T) {
	h := hosttest.New()
	other := hosttest.NewProject("Client D")
	h.AddProject("", other)
	h.Open(other)
	h.Fail("SaveProject", errors.New("disk full"))

	out := newReconciler(h).Ensure(context.Background(), "")

	require.True(t, out.OK, out.Details)
	assert.Equal(t, reconcile.KindCreatedAndLoaded, out.Kind)
}

func TestEnsureSessionTimeoutIsUnresponsive(t *testing.T) {
	h := hosttest.New()
	defer h.Release()
	h.Hang("Dial")

	start := time.Now()
	out := newReconciler(h).Ensure(context.Background(), "")

	assert.False(t, out.OK)
	assert.Equal(t, reconcile.StatusUnresponsive, out.Status)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, 4, out.Status.ExitCode())
}

func TestEnsureFolderTimeoutAbortsAttempt(t *testing.T) {
	h := hosttest.New()
	defer h.Release()
	h.AddProject("Sub", hosttest.NewProject("Other"))
	h.Hang("OpenFolder")

	out := newReconciler(h).Ensure(context.Background(), "")

	assert.Equal(t, reconcile.StatusUnresponsive, out.Status)
	assert.False(t, h.Called("CreateProject"), "must not create after a timed-out search")
}

func TestEnsureHostOffIsNotRetried(t *testing.T) {
	h := hosttest.New()
	h.Unavailable = true

	out := newReconciler(h).EnsureWithRetry(context.Background(), "", 3)

	assert.Equal(t, reconcile.StatusAppOff, out.Status)
	assert.Equal(t, 1, countCalls(h, "Dial"))
	assert.Equal(t, 3, out.Status.ExitCode())
}

func TestEnsureNoProjectManager(t *testing.T) {
	h := hosttest.New()
	h.NoProjectManager = true

	out := newReconciler(h).EnsureWithRetry(context.Background(), "", 2)

	assert.Equal(t, reconcile.StatusNoPM, out.Status)
	assert.Equal(t, 1, countCalls(h, "Dial"))
}

func TestEnsureRetriesUnresponsiveHost(t *testing.T) {
	h := hosttest.New()
	defer h.Release()
	h.Hang("CurrentProject")

	out := newReconciler(h).EnsureWithRetry(context.Background(), "", 2)

	assert.Equal(t, reconcile.StatusUnresponsive, out.Status)
	assert.Equal(t, 2, out.Attempts)
	assert.Equal(t, 2, countCalls(h, "Dial"))
}

func TestEnsureCreateFailure(t *testing.T) {
	h := hosttest.New()
	h.Refuse("CreateProject")

	out := newReconciler(h).Ensure(context.Background(), "")

	assert.Equal(t, reconcile.StatusCreateFailed, out.Status)
	assert.Equal(t, 6, out.Status.ExitCode())
}

func TestEnsureLoadFailure(t *testing.T) {
	h := hosttest.New()
	h.AddProject("Jobs", hosttest.NewProject(target))
	h.Refuse("LoadProject")

	out := newReconciler(h).Ensure(context.Background(), "")

	assert.Equal(t, reconcile.StatusLoadFailed, out.Status)
	assert.Equal(t, 7, out.Status.ExitCode())
}

func TestLastRecordsOutcome(t *testing.T) {
	h := hosttest.New()
	r := newReconciler(h)
	_, _, ok := r.Last()
	require.False(t, ok)

	r.Ensure(context.Background(), "")

	last, at, ok := r.Last()
	require.True(t, ok)
	assert.True(t, last.OK)
	assert.False(t, at.IsZero())
}

func TestWaitReady(t *testing.T) {
	h := hosttest.New()
	require.NoError(t, newReconciler(h).WaitReady(context.Background(), time.Second, 10*time.Millisecond))

	h.NoProjectManager = true
	err := newReconciler(h).WaitReady(context.Background(), 30*time.Millisecond, 10*time.Millisecond)
	require.Error(t, err)
}

func TestIsUnnamed(t *testing.T) {
	unnamed := []string{
		"Untitled Project",
		"Untitled Project 2",
		"untitled project12",
		"Projet sans titre",
		"Sans titre 4",
		"Unbenanntes Projekt",
		"UNBENANNT PROJEKT 3",
		"Proyecto sin título",
		"Proyecto sin titulo 2",
		"",
		"   ",
	}
	for _, name := range unnamed {
		assert.True(t, reconcile.IsUnnamed(name), name)
	}
	named := []string{"MediaSolver", "Untitled Project Final", "Client Untitled Project", "Projet"}
	for _, name := range named {
		assert.False(t, reconcile.IsUnnamed(name), name)
	}
}

func TestExitCodes(t *testing.T) {
	cases := map[reconcile.Status]int{
		reconcile.StatusOK:           0,
		reconcile.StatusAppOff:       3,
		reconcile.StatusNoPM:         3,
		reconcile.StatusUnresponsive: 4,
		reconcile.StatusCloseFailed:  5,
		reconcile.StatusCreateFailed: 6,
		reconcile.StatusLoadFailed:   7,
		reconcile.StatusError:        8,
	}
	for status, code := range cases {
		assert.Equal(t, code, status.ExitCode(), string(status))
	}
}

type countingSession struct {
	host.Session
	closed *atomic.Int32
}

func (s countingSession) Close() error {
	s.closed.Add(1)
	return nil
}

type slowDialer struct {
	delay  time.Duration
	opened atomic.Int32
	closed atomic.Int32
}

func (d *slowDialer) Dial(context.Context) (host.Session, error) {
	time.Sleep(d.delay)
	d.opened.Add(1)
	return countingSession{closed: &d.closed}, nil
}

func TestEnsureClosesSessionsThatArriveAfterInitTimeout(t *testing.T) {
	d := &slowDialer{delay: 60 * time.Millisecond}
	r := reconcile.New(d, reconcile.Options{
		Target:      target,
		InitTimeout: 20 * time.Millisecond,
		OpTimeout:   20 * time.Millisecond,
		RetryDelay:  time.Millisecond,
	}, nil)

	out := r.EnsureWithRetry(context.Background(), "", 3)

	assert.Equal(t, reconcile.StatusUnresponsive, out.Status)
	require.Eventually(t, func() bool {
		return d.opened.Load() == 3 && d.closed.Load() == 3
	}, 2*time.Second, 10*time.Millisecond, "late sessions must be closed")
}
