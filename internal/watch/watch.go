// Package watch re-runs an assembly whenever the sources of a work
// directory change, and optionally on a fixed interval.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-co-op/gocron/v2"

	"git.home.luguber.info/inful/assembler/internal/logfields"
)

// DefaultDebounce collapses bursts of filesystem events into one run.
const DefaultDebounce = 300 * time.Millisecond

// Reasons passed to the RunFunc.
const (
	ReasonInitial  = "initial"
	ReasonChange   = "change"
	ReasonInterval = "interval"
)

// RunFunc performs one assembly. Calls never overlap.
type RunFunc func(ctx context.Context, reason string)

// Options configure Run.
type Options struct {
	// Root is watched recursively.
	Root string
	// Ignore lists directories whose events never trigger a run, typically
	// the output directory.
	Ignore []string
	// Debounce defaults to DefaultDebounce.
	Debounce time.Duration
	// Interval schedules additional runs; zero disables them.
	Interval time.Duration
}

// Run performs an initial run and then one run per debounced change or
// interval tick until ctx is done.
func Run(ctx context.Context, opts Options, fn RunFunc) error {
	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return fmt.Errorf("resolve watch root: %w", err)
	}
	ignore := make([]string, 0, len(opts.Ignore))
	for _, dir := range opts.Ignore {
		if abs, err := filepath.Abs(dir); err == nil {
			ignore = append(ignore, abs)
		}
	}
	w := &watcher{root: root, ignore: ignore}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("fsnotify: %w", err)
	}
	defer func() { _ = fsw.Close() }()
	if err := w.addDirsRecursive(fsw, root); err != nil {
		return err
	}

	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	requests := make(chan string, 1)
	request := func(reason string) {
		select {
		case requests <- reason:
		default:
		}
	}
	trigger := debouncer(debounce, func() { request(ReasonChange) })

	if opts.Interval > 0 {
		s, err := gocron.NewScheduler()
		if err != nil {
			return fmt.Errorf("failed to create gocron scheduler: %w", err)
		}
		if _, err := s.NewJob(
			gocron.DurationJob(opts.Interval),
			gocron.NewTask(request, ReasonInterval),
			gocron.WithName("assembly-interval"),
		); err != nil {
			_ = s.Shutdown()
			return fmt.Errorf("failed to create interval job: %w", err)
		}
		s.Start()
		defer func() {
			if err := s.Shutdown(); err != nil {
				slog.Warn("Scheduler shutdown failed", logfields.Error(err))
			}
		}()
		slog.Info("Scheduled periodic assembly", slog.Duration("interval", opts.Interval))
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case reason := <-requests:
				fn(ctx, reason)
			}
		}
	}()
	defer wg.Wait()

	request(ReasonInitial)
	slog.Info("Watching for changes", logfields.Path(root))
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(fsw, ev, trigger)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			slog.Warn("watcher error", logfields.Error(err))
		}
	}
}

// debouncer returns a trigger that calls fn once no trigger arrived for d.
func debouncer(d time.Duration, fn func()) func() {
	var mu sync.Mutex
	var timer *time.Timer
	return func() {
		mu.Lock()
		defer mu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(d, fn)
	}
}

type watcher struct {
	root   string
	ignore []string
}

func (w *watcher) handleEvent(fsw *fsnotify.Watcher, ev fsnotify.Event, trigger func()) {
	if w.ignored(ev.Name) || shouldIgnoreEvent(ev.Name) {
		return
	}
	if ev.Op&fsnotify.Create == fsnotify.Create {
		if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
			_ = w.addDirsRecursive(fsw, ev.Name)
		}
	}
	slog.Debug("File change detected", logfields.Path(ev.Name), slog.String("op", ev.Op.String()))
	trigger()
}

// ignored reports whether path lies in an ignored directory.
func (w *watcher) ignored(path string) bool {
	for _, dir := range w.ignore {
		if path == dir || strings.HasPrefix(path, dir+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

func (w *watcher) addDirsRecursive(fsw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		if path != w.root && (w.ignored(path) || skipDir(d.Name())) {
			return filepath.SkipDir
		}
		if err := fsw.Add(path); err != nil {
			slog.Warn("watch add failed", logfields.Path(path), logfields.Error(err))
		}
		return nil
	})
}

func skipDir(name string) bool {
	return strings.HasPrefix(name, ".") || name == "node_modules"
}

// shouldIgnoreEvent returns true for filesystem events that should not trigger runs.
func shouldIgnoreEvent(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return true
	}
	if strings.HasSuffix(base, "~") ||
		strings.HasSuffix(base, ".swp") ||
		strings.HasSuffix(base, ".swx") ||
		strings.HasPrefix(base, "#") && strings.HasSuffix(base, "#") {
		return true
	}
	return base == "Thumbs.db"
}
