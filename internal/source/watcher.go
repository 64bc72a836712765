package source

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"paperdash/internal/logger"

	"github.com/fsnotify/fsnotify"
)

const defaultDebounce = 500 * time.Millisecond

// Watcher 监听输入文件变化，合并短时间内的多次写入后发出一次通知。
type Watcher struct {
	fs       *fsnotify.Watcher
	targets  map[string]bool
	debounce time.Duration
	events   chan struct{}
}

// NewWatcher watches the local files among paths. Remote locations are ignored.
// Parent directories are watched so that files replaced by rename are still seen.
func NewWatcher(paths ...string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher failed: %w", err)
	}
	w := &Watcher{
		fs:       fw,
		targets:  make(map[string]bool),
		debounce: defaultDebounce,
		events:   make(chan struct{}, 1),
	}
	dirs := make(map[string]bool)
	for _, p := range paths {
		if p == "" || isRemote(p) {
			continue
		}
		abs, err := filepath.Abs(p)
		if err != nil {
			fw.Close()
			return nil, err
		}
		w.targets[abs] = true
		dir := filepath.Dir(abs)
		if dirs[dir] {
			continue
		}
		if err := fw.Add(dir); err != nil {
			fw.Close()
			return nil, fmt.Errorf("watch %s failed: %w", dir, err)
		}
		dirs[dir] = true
	}
	return w, nil
}

// Events delivers one value per settled burst of changes.
func (w *Watcher) Events() <-chan struct{} {
	return w.events
}

// Watching reports whether any local file is watched.
func (w *Watcher) Watching() bool {
	return len(w.targets) > 0
}

// Run forwards file events until ctx is done, then closes the underlying watcher.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fs.Close()
	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return nil
		case evt, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if !w.relevant(evt) {
				continue
			}
			logger.Debugf("source changed: %s %s", evt.Op, evt.Name)
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C
		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			logger.Warnf("file watcher error: %v", err)
		case <-fire:
			fire = nil
			select {
			case w.events <- struct{}{}:
			default:
			}
		}
	}
}

func (w *Watcher) relevant(evt fsnotify.Event) bool {
	if !evt.Has(fsnotify.Write) && !evt.Has(fsnotify.Create) && !evt.Has(fsnotify.Rename) && !evt.Has(fsnotify.Remove) {
		return false
	}
	return w.targets[filepath.Clean(evt.Name)]
}

// Close stops watching. Calling it after Run has returned is harmless.
func (w *Watcher) Close() error {
	return w.fs.Close()
}
