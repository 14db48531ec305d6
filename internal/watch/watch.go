package watch

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"mediasolver/internal/config"
	"mediasolver/internal/jobstate"
	"mediasolver/internal/logging"
	"mediasolver/internal/media"
	"mediasolver/internal/pipeline"
	"mediasolver/internal/services"
)

const defaultRetryInterval = 10 * time.Second

// Starter launches a background run.
type Starter interface {
	Start(req pipeline.Request) (string, error)
}

// Options configures a Watcher.
type Options struct {
	Dir string
	// Template is copied for every batch; Files and Trigger are overwritten.
	Template pipeline.Request
	Debounce time.Duration
	// RetryInterval spaces attempts while a run is active.
	RetryInterval time.Duration
	Logger        *slog.Logger
}

// OptionsFromConfig builds watcher options from the [watch] section.
func OptionsFromConfig(cfg *config.Config, logger *slog.Logger) Options {
	tmpl := pipeline.NewRequest(cfg)
	tmpl.Source = cfg.Watch.SourceDir
	tmpl.Preset = cfg.Watch.Preset
	tmpl.OutputDir = cfg.Watch.OutputDir
	tmpl.Recursive = cfg.Watch.Recursive
	return Options{
		Dir:      cfg.Watch.SourceDir,
		Template: tmpl,
		Debounce: cfg.WatchDebounce(),
		Logger:   logger,
	}
}

// Watcher turns file events into pipeline runs.
type Watcher struct {
	opts    Options
	media   media.Options
	starter Starter
	logger  *slog.Logger
	pending map[string]struct{}
}

// New validates opts and returns a watcher.
func New(opts Options, starter Starter) (*Watcher, error) {
	dir := strings.TrimSpace(opts.Dir)
	if dir == "" {
		return nil, services.Wrap(services.ErrConfiguration, "watch", "init", "watch folder is not configured", nil)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "watch", "init", dir, err)
	}
	info, err := os.Stat(abs)
	if err != nil || !info.IsDir() {
		return nil, services.Wrap(services.ErrConfiguration, "watch", "init", "watch folder not found: "+abs, err)
	}
	if starter == nil {
		return nil, errors.New("watch: starter is required")
	}
	opts.Dir = abs
	if opts.Debounce <= 0 {
		opts.Debounce = time.Second
	}
	if opts.RetryInterval <= 0 {
		opts.RetryInterval = defaultRetryInterval
	}
	return &Watcher{
		opts:    opts,
		media:   media.Options{Extensions: opts.Template.Extensions, Recursive: opts.Template.Recursive},
		starter: starter,
		logger:  logging.NewComponentLogger(opts.Logger, "watch"),
		pending: map[string]struct{}{},
	}, nil
}

// Run watches until ctx is cancelled. Files already in the folder are not
// rendered; only files created or written after Run starts are.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "watch", "init", "could not create file watcher", err)
	}
	defer fw.Close()
	if err := w.addTree(fw, w.opts.Dir); err != nil {
		return services.Wrap(services.ErrConfiguration, "watch", "add", w.opts.Dir, err)
	}
	w.logger.Info("watching folder",
		logging.String("dir", w.opts.Dir),
		logging.Duration("debounce", w.opts.Debounce),
		logging.Bool("recursive", w.media.Recursive),
	)

	timer := time.NewTimer(w.opts.Debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			if len(w.pending) > 0 {
				w.logger.Info("watch stopped with unrendered files", logging.Int("file_count", len(w.pending)))
			}
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if w.handle(fw, ev) {
				timer.Reset(w.opts.Debounce)
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			logging.WarnWithContext(w.logger, "file watcher error", "watch_error",
				logging.String(logging.FieldImpact, "some file events may be missed"),
				logging.Error(err),
			)
		case <-timer.C:
			if !w.flush() {
				timer.Reset(w.opts.RetryInterval)
			}
		}
	}
}

// handle records ev and reports whether the debounce should restart.
func (w *Watcher) handle(fw *fsnotify.Watcher, ev fsnotify.Event) bool {
	if isHidden(ev.Name) {
		return false
	}
	if ev.Has(fsnotify.Create) && w.media.Recursive {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if err := w.addTree(fw, ev.Name); err != nil {
				logging.WarnWithContext(w.logger, "new folder not watched", "watch_add_failed",
					logging.String(logging.FieldImpact, "files in this folder will not trigger runs"),
					logging.String("dir", ev.Name),
					logging.Error(err),
				)
			}
			return false
		}
	}
	if !w.media.Matches(ev.Name) {
		return false
	}
	switch {
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		delete(w.pending, ev.Name)
		return len(w.pending) > 0
	case ev.Has(fsnotify.Create), ev.Has(fsnotify.Write):
		w.pending[ev.Name] = struct{}{}
		return true
	}
	return false
}

// flush starts a run for the pending files. It returns false when the batch
// must be retried later.
func (w *Watcher) flush() bool {
	if len(w.pending) == 0 {
		return true
	}
	files := make([]string, 0, len(w.pending))
	for path := range w.pending {
		files = append(files, path)
	}
	sort.Strings(files)

	req := w.opts.Template
	req.Files = files
	req.Trigger = pipeline.TriggerWatch
	runID, err := w.starter.Start(req)
	switch {
	case err == nil:
		w.logger.Info("watch run started",
			logging.String(logging.FieldEventType, "watch_trigger"),
			logging.String("run_id", runID),
			logging.Int("file_count", len(files)),
		)
		clear(w.pending)
		return true
	case errors.Is(err, jobstate.ErrRunActive):
		w.logger.Debug("run active; watch batch deferred", logging.Int("file_count", len(files)))
		return false
	default:
		logging.WarnWithContext(w.logger, "watch batch dropped", "watch_trigger_failed",
			logging.String(logging.FieldImpact, "files must be rendered manually"),
			logging.Int("file_count", len(files)),
			logging.String("error_message", services.Detail(err)),
		)
		clear(w.pending)
		return true
	}
}

func (w *Watcher) addTree(fw *fsnotify.Watcher, root string) error {
	if !w.media.Recursive {
		return fw.Add(root)
	}
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return fw.Add(path)
	})
}

func isHidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}
