package render

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// Watcher reloads a single component whenever a file named
// "<component>.html" under dir is written or created, as a faster-reacting
// complement to the periodic reload scheduler. The file's content is not
// read: the reload re-reads that component's row from the database through
// Store.ReloadByName and drops its compiled entry.
type Watcher struct {
	store *Store
	dir   string

	watcher *fsnotify.Watcher
	stop    chan struct{}

	debounceMu sync.Mutex
	timers     map[string]*time.Timer
}

// NewWatcher builds a Watcher over dir, not yet running.
func NewWatcher(store *Store, dir string) *Watcher {
	return &Watcher{store: store, dir: dir, stop: make(chan struct{}), timers: make(map[string]*time.Timer)}
}

// Start begins watching dir for writes and creates. It is a no-op error if
// dir does not exist; deployments without on-disk overrides simply never
// see an event.
func (w *Watcher) Start(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	w.watcher = fw

	if err := fw.Add(w.dir); err != nil {
		fw.Close()
		return err
	}

	go w.loop(ctx)
	log.Info().Str("dir", w.dir).Msg("template directory watcher started")
	return nil
}

func (w *Watcher) loop(ctx context.Context) {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			name := componentNameFromPath(event.Name)
			if name == "" {
				continue
			}
			w.debounceReload(ctx, name)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Error().Err(err).Msg("template watcher error")

		case <-w.stop:
			return
		}
	}
}

// debounceReload coalesces rapid successive writes to the same file (editors
// commonly emit several events per save) into a single reload 100ms later.
func (w *Watcher) debounceReload(ctx context.Context, name string) {
	w.debounceMu.Lock()
	defer w.debounceMu.Unlock()

	if t, ok := w.timers[name]; ok {
		t.Stop()
	}
	w.timers[name] = time.AfterFunc(100*time.Millisecond, func() {
		if err := w.store.ReloadByName(ctx, name); err != nil {
			log.Error().Err(err).Str("component", name).Msg("failed to reload template after file change")
			return
		}
		log.Info().Str("component", name).Msg("template reloaded from disk change")
	})
}

// Stop stops the underlying fsnotify watcher.
func (w *Watcher) Stop() {
	close(w.stop)
	if w.watcher != nil {
		w.watcher.Close()
	}
}

func componentNameFromPath(path string) string {
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	if ext != ".html" {
		return ""
	}
	return strings.TrimSuffix(base, ext)
}
