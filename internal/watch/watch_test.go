package watch_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mediasolver/internal/jobstate"
	"mediasolver/internal/pipeline"
	"mediasolver/internal/services"
	"mediasolver/internal/testsupport"
	"mediasolver/internal/watch"
)

type fakeStarter struct {
	mu   sync.Mutex
	reqs []pipeline.Request
	errs []error
}

func (s *fakeStarter) Start(req pipeline.Request) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reqs = append(s.reqs, req)
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		if err != nil {
			return "", err
		}
	}
	return "run-1", nil
}

func (s *fakeStarter) requests() []pipeline.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]pipeline.Request(nil), s.reqs...)
}

func startWatcher(t *testing.T, dir string, recursive bool, starter *fakeStarter) {
	t.Helper()
	w, err := watch.New(watch.Options{
		Dir: dir,
		Template: pipeline.Request{
			Source:     dir,
			Preset:     "H.264 Master",
			Extensions: []string{".mp4", ".mov"},
			Recursive:  recursive,
		},
		Debounce:      100 * time.Millisecond,
		RetryInterval: 50 * time.Millisecond,
	}, starter)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Error("watcher did not stop")
		}
	})
	// Give the watcher time to register the folder.
	time.Sleep(50 * time.Millisecond)
}

func TestWatcherBatchesFilesIntoOneRun(t *testing.T) {
	dir := t.TempDir()
	starter := &fakeStarter{}
	startWatcher(t, dir, false, starter)

	testsupport.WriteFile(t, filepath.Join(dir, "b.mov"), 64)
	testsupport.WriteFile(t, filepath.Join(dir, "a.mp4"), 64)
	testsupport.WriteFile(t, filepath.Join(dir, "notes.txt"), 64)
	testsupport.WriteFile(t, filepath.Join(dir, ".partial.mp4"), 64)

	require.Eventually(t, func() bool { return len(starter.requests()) == 1 }, 3*time.Second, 10*time.Millisecond)
	req := starter.requests()[0]
	assert.Equal(t, pipeline.TriggerWatch, req.Trigger)
	assert.Equal(t, "H.264 Master", req.Preset)
	assert.Equal(t, []string{filepath.Join(dir, "a.mp4"), filepath.Join(dir, "b.mov")}, req.Files)

	time.Sleep(250 * time.Millisecond)
	assert.Len(t, starter.requests(), 1, "batch must be started once")
}

func TestWatcherRetriesWhileRunActive(t *testing.T) {
	dir := t.TempDir()
	starter := &fakeStarter{errs: []error{jobstate.ErrRunActive, jobstate.ErrRunActive}}
	startWatcher(t, dir, false, starter)

	testsupport.WriteFile(t, filepath.Join(dir, "clip.mp4"), 64)

	require.Eventually(t, func() bool { return len(starter.requests()) == 3 }, 3*time.Second, 10*time.Millisecond)
	reqs := starter.requests()
	for _, req := range reqs {
		assert.Equal(t, []string{filepath.Join(dir, "clip.mp4")}, req.Files)
	}
	time.Sleep(200 * time.Millisecond)
	assert.Len(t, starter.requests(), 3)
}

func TestWatcherDropsBatchOnOtherErrors(t *testing.T) {
	dir := t.TempDir()
	starter := &fakeStarter{errs: []error{services.Wrap(services.ErrValidation, "request", "validate", "bad", nil)}}
	startWatcher(t, dir, false, starter)

	testsupport.WriteFile(t, filepath.Join(dir, "clip.mp4"), 64)
	require.Eventually(t, func() bool { return len(starter.requests()) == 1 }, 3*time.Second, 10*time.Millisecond)

	testsupport.WriteFile(t, filepath.Join(dir, "next.mp4"), 64)
	require.Eventually(t, func() bool { return len(starter.requests()) == 2 }, 3*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{filepath.Join(dir, "next.mp4")}, starter.requests()[1].Files)
}

func TestWatcherForgetsRemovedFiles(t *testing.T) {
	dir := t.TempDir()
	starter := &fakeStarter{}
	startWatcher(t, dir, false, starter)

	gone := filepath.Join(dir, "gone.mp4")
	testsupport.WriteFile(t, gone, 64)
	testsupport.WriteFile(t, filepath.Join(dir, "kept.mp4"), 64)
	require.NoError(t, os.Remove(gone))

	require.Eventually(t, func() bool { return len(starter.requests()) == 1 }, 3*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{filepath.Join(dir, "kept.mp4")}, starter.requests()[0].Files)
}

func TestWatcherFollowsNewFoldersWhenRecursive(t *testing.T) {
	dir := t.TempDir()
	starter := &fakeStarter{}
	startWatcher(t, dir, true, starter)

	sub := filepath.Join(dir, "day1")
	require.NoError(t, os.Mkdir(sub, 0o755))
	time.Sleep(50 * time.Millisecond)
	testsupport.WriteFile(t, filepath.Join(sub, "a.mp4"), 64)

	require.Eventually(t, func() bool { return len(starter.requests()) == 1 }, 3*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{filepath.Join(sub, "a.mp4")}, starter.requests()[0].Files)
}

func TestNewRejectsMissingFolder(t *testing.T) {
	_, err := watch.New(watch.Options{Dir: filepath.Join(t.TempDir(), "missing")}, &fakeStarter{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, services.ErrConfiguration))

	_, err = watch.New(watch.Options{}, &fakeStarter{})
	require.Error(t, err)
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithWatchFolder())

	opts := watch.OptionsFromConfig(cfg, nil)

	assert.Equal(t, cfg.Watch.SourceDir, opts.Dir)
	assert.Equal(t, cfg.Watch.Preset, opts.Template.Preset)
	assert.Equal(t, cfg.Watch.OutputDir, opts.Template.OutputDir)
	assert.Equal(t, cfg.Ingest.Extensions, opts.Template.Extensions)
	assert.Equal(t, cfg.WatchDebounce(), opts.Debounce)
}
