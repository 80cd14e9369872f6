package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher observes a configuration file and invokes a callback when it is
// rewritten, so deployments that cannot deliver SIGUSR1 (or that manage the
// file with a configuration tool) still pick up changes. Events are debounced
// because editors and provisioning tools often emit several writes per save.
type Watcher struct {
	path     string
	watcher  *fsnotify.Watcher
	onChange func()
	debounce time.Duration
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// Watch starts observing the store's backing file. onChange runs on the
// watcher goroutine and should only enqueue work.
func Watch(store *Store, onChange func()) (*Watcher, error) {
	if store.Path() == "" {
		return nil, fmt.Errorf("config watch: store has no backing file")
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("config watch: %w", err)
	}
	// Watch the directory instead of the file itself so atomic
	// rename-into-place updates keep being observed.
	if err := fsw.Add(filepath.Dir(store.Path())); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("config watch %s: %w", store.Path(), err)
	}

	w := &Watcher{
		path:     store.Path(),
		watcher:  fsw,
		onChange: onChange,
		debounce: 250 * time.Millisecond,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

// Close stops the watcher and releases its resources.
func (w *Watcher) Close() error {
	close(w.stopCh)
	<-w.doneCh
	return w.watcher.Close()
}

func (w *Watcher) loop() {
	defer close(w.doneCh)

	var timer *time.Timer
	var pending <-chan time.Time
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				// A fire that raced this event would make Reset deliver
				// immediately; discard it first.
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}
			pending = timer.C
		case <-pending:
			pending = nil
			w.onChange()
		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
		case <-w.stopCh:
			if timer != nil {
				timer.Stop()
			}
			return
		}
	}
}
