// Package watch regenerates the report when its inputs change on disk or on
// a cron schedule. Runs never overlap: triggers that arrive while a run is in
// progress collapse into a single follow-up run.
package watch

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// tempPrefix marks the atomic-write scratch files next to the output.
const tempPrefix = ".informes-tmp-"

// RunFunc performs one regeneration. reason says what triggered it.
type RunFunc func(ctx context.Context, reason string) error

// Options configures a Watcher.
type Options struct {
	// Files are watched through their parent directory, so editors that
	// save by rename are still seen.
	Files []string
	// Dirs are watched as a whole (photos, district plans).
	Dirs []string
	// Ignore lists paths whose events never trigger a run, typically the
	// output document.
	Ignore     []string
	Debounce   time.Duration
	Schedule   string
	RunOnStart bool
	Logger     *zap.Logger
}

// Stats counts watcher activity.
type Stats struct {
	Events    int
	Triggers  int
	Runs      int
	Failures  int
	LastRun   time.Time
	LastError string
}

// Watcher drives a RunFunc from filesystem events and a schedule.
type Watcher struct {
	mu      sync.Mutex
	watcher *fsnotify.Watcher
	cron    *cron.Cron
	run     RunFunc
	opts    Options
	logger  *zap.Logger

	files   map[string]bool
	dirs    map[string]bool
	ignore  map[string]bool
	pending map[string]time.Time

	trigger chan string
	stopCh  chan struct{}
	wg      sync.WaitGroup
	running bool
	stats   Stats
}

// New validates opts and prepares a watcher. Nothing is watched until Start.
func New(run RunFunc, opts Options) (*Watcher, error) {
	if run == nil {
		return nil, errors.New("watch: nil run func")
	}
	if opts.Debounce <= 0 {
		opts.Debounce = 2 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	w := &Watcher{
		run:     run,
		opts:    opts,
		logger:  logger,
		files:   make(map[string]bool),
		dirs:    make(map[string]bool),
		ignore:  make(map[string]bool),
		pending: make(map[string]time.Time),
		trigger: make(chan string, 1),
		stopCh:  make(chan struct{}),
	}
	for _, f := range opts.Files {
		if f = strings.TrimSpace(f); f != "" {
			w.files[absPath(f)] = true
		}
	}
	for _, d := range opts.Dirs {
		if d = strings.TrimSpace(d); d != "" {
			w.dirs[absPath(d)] = true
		}
	}
	for _, p := range opts.Ignore {
		if p = strings.TrimSpace(p); p != "" {
			w.ignore[absPath(p)] = true
		}
	}

	if opts.Schedule != "" {
		w.cron = cron.New(cron.WithLogger(cronLogger{logger.Sugar()}))
		if _, err := w.cron.AddFunc(opts.Schedule, func() { w.Trigger("schedule") }); err != nil {
			return nil, fmt.Errorf("invalid schedule %q: %w", opts.Schedule, err)
		}
	}
	return w, nil
}

// Start begins watching. It returns once the watches are in place.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}

	if len(w.files)+len(w.dirs) > 0 {
		fw, err := fsnotify.NewWatcher()
		if err != nil {
			return fmt.Errorf("create file watcher: %w", err)
		}
		added := make(map[string]bool)
		for f := range w.files {
			added[filepath.Dir(f)] = true
		}
		for d := range w.dirs {
			added[d] = true
		}
		for dir := range added {
			if err := fw.Add(dir); err != nil {
				_ = fw.Close()
				return fmt.Errorf("watch %s: %w", dir, err)
			}
			w.logger.Info("watching", zap.String("dir", dir))
		}
		w.watcher = fw
	}

	w.running = true
	w.wg.Add(2)
	go w.loop(ctx)
	go w.worker(ctx)

	if w.cron != nil {
		w.cron.Start()
		w.logger.Info("schedule armed", zap.String("schedule", w.opts.Schedule))
	}
	if w.opts.RunOnStart {
		w.triggerLocked("start")
	}
	return nil
}

// Stop halts watching and waits for an in-flight run to finish.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	if w.cron != nil {
		<-w.cron.Stop().Done()
	}
	close(w.stopCh)
	w.wg.Wait()

	if w.watcher != nil {
		if err := w.watcher.Close(); err != nil {
			w.logger.Error("closing file watcher", zap.Error(err))
		}
	}
	w.logger.Info("watch stopped")
}

// Trigger requests a run. It never blocks; a request made while one is
// already queued is merged into it.
func (w *Watcher) Trigger(reason string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.triggerLocked(reason)
}

func (w *Watcher) triggerLocked(reason string) {
	w.stats.Triggers++
	select {
	case w.trigger <- reason:
	default:
		w.logger.Debug("run already queued", zap.String("reason", reason))
	}
}

// Stats returns a copy of the counters.
func (w *Watcher) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

func (w *Watcher) loop(ctx context.Context) {
	defer w.wg.Done()

	var events <-chan fsnotify.Event
	var errs <-chan error
	if w.watcher != nil {
		events = w.watcher.Events
		errs = w.watcher.Errors
	}

	tick := min(max(w.opts.Debounce/4, 10*time.Millisecond), 100*time.Millisecond)
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-errs:
			if !ok {
				return
			}
			w.logger.Error("file watcher error", zap.Error(err))
		case <-ticker.C:
			w.flushPending()
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}
	path := absPath(event.Name)
	if !w.relevant(path) {
		return
	}

	w.logger.Debug("input changed", zap.String("path", path), zap.String("op", event.Op.String()))
	w.mu.Lock()
	w.stats.Events++
	w.pending[path] = time.Now()
	w.mu.Unlock()
}

func (w *Watcher) relevant(path string) bool {
	if w.ignore[path] || strings.HasPrefix(filepath.Base(path), tempPrefix) {
		return false
	}
	if w.files[path] {
		return true
	}
	return w.dirs[filepath.Dir(path)]
}

// flushPending triggers one run once every pending path has been quiet for
// the debounce window.
func (w *Watcher) flushPending() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.pending) == 0 {
		return
	}
	now := time.Now()
	var changed []string
	for path, at := range w.pending {
		if now.Sub(at) < w.opts.Debounce {
			return
		}
		changed = append(changed, filepath.Base(path))
	}
	clear(w.pending)
	w.triggerLocked("change: " + strings.Join(changed, ", "))
}

func (w *Watcher) worker(ctx context.Context) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case reason := <-w.trigger:
			w.runOnce(ctx, reason)
		}
	}
}

func (w *Watcher) runOnce(ctx context.Context, reason string) {
	w.logger.Info("regenerating", zap.String("reason", reason))
	start := time.Now()
	err := w.run(ctx, reason)

	w.mu.Lock()
	w.stats.Runs++
	w.stats.LastRun = start
	if err != nil {
		w.stats.Failures++
		w.stats.LastError = err.Error()
	} else {
		w.stats.LastError = ""
	}
	w.mu.Unlock()

	if err != nil {
		w.logger.Error("regeneration failed", zap.String("reason", reason), zap.Error(err))
		return
	}
	w.logger.Info("regeneration finished", zap.Duration("elapsed", time.Since(start)))
}

func absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return filepath.Clean(abs)
	}
	return filepath.Clean(p)
}

// cronLogger routes cron's logging through zap.
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
