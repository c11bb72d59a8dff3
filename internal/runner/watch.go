package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/philjestin/philfmt/internal/expand"
)

const debounce = 300 * time.Millisecond

// ErrFatal is returned by Watch when the initial run hit a configuration error.
var ErrFatal = errors.New("fatal configuration error")

// Watch runs once, then rewrites matching files whenever they change until
// ctx is done. It forces write mode.
func (r *Runner) Watch(ctx context.Context) error {
	r.opts.Write = true
	if code := r.Run(ctx); code == ExitFatal {
		return ErrFatal
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	dirs := expand.BaseDirs(r.opts.Patterns)
	if len(dirs) == 0 {
		return fmt.Errorf("nothing to watch for %s", strings.Join(r.opts.Patterns, " "))
	}
	for _, dir := range dirs {
		if err := addRecursive(watcher, dir); err != nil {
			return err
		}
	}
	log.Info("watching %s", strings.Join(dirs, ", "))
	if r.watchReady != nil {
		r.watchReady()
	}

	pr := newPrinter(r.stdout, r.stderr)
	var (
		mu      sync.Mutex
		running sync.Mutex
		closed  bool
		pending = map[string]struct{}{}
		timer   *time.Timer
		// written remembers what we last wrote so our own writes do not
		// trigger another pass.
		written = map[string]string{}
	)
	ignoreOpts := expand.Options{IgnoreNodeModules: r.opts.IgnoreNodeModules}

	flush := func() {
		running.Lock()
		defer running.Unlock()
		mu.Lock()
		if closed {
			mu.Unlock()
			return
		}
		files := make([]string, 0, len(pending))
		for f := range pending {
			if data, err := os.ReadFile(f); err == nil {
				if w, ok := written[f]; ok && w == string(data) {
					continue
				}
			}
			files = append(files, f)
		}
		pending = map[string]struct{}{}
		mu.Unlock()
		if len(files) == 0 {
			return
		}
		sort.Strings(files)

		var state ExitState
		p := r.processor(&state, pr)
		p.onWrite = func(path, content string) {
			mu.Lock()
			written[path] = content
			mu.Unlock()
		}
		if err := r.processAll(ctx, p, files); err != nil && Classify(err) == KindValidation {
			log.Error("validation failed: %v", err)
		}
	}

	for {
		select {
		case <-ctx.Done():
			mu.Lock()
			closed = true
			if timer != nil {
				timer.Stop()
			}
			mu.Unlock()
			// Wait for a pass that already started.
			running.Lock()
			running.Unlock()
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					_ = addRecursive(watcher, ev.Name)
					continue
				}
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			if !r.watched(ev.Name, ignoreOpts) {
				continue
			}
			p := ev.Name
			if a, err := filepath.Abs(p); err == nil {
				p = a
			}
			mu.Lock()
			pending[filepath.Clean(p)] = struct{}{}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounce, flush)
			mu.Unlock()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			pr.errorln(fmt.Sprintf("watch error: %v", err))
		}
	}
}

func (r *Runner) watched(path string, opts expand.Options) bool {
	for _, pat := range r.opts.Patterns {
		if expand.Matches(pat, path, opts) {
			return true
		}
	}
	return false
}

func addRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		name := d.Name()
		if path != root && (strings.HasPrefix(name, ".") || name == expand.DependencyDir) {
			return filepath.SkipDir
		}
		return w.Add(path)
	})
}
