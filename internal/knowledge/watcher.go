package knowledge

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/yassinsws/microsoft-agent-hackathon/internal/domain"
)

const defaultDebounce = 300 * time.Millisecond

// Watcher keeps the index in sync with a policies directory.
type Watcher struct {
	index    *Index
	dir      string
	debounce time.Duration

	mu     sync.Mutex
	timers map[string]*time.Timer
}

// NewWatcher creates a Watcher for dir.
func NewWatcher(index *Index, dir string) *Watcher {
	return &Watcher{
		index:    index,
		dir:      dir,
		debounce: defaultDebounce,
		timers:   make(map[string]*time.Timer),
	}
}

// Run watches until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return errors.Wrapf(err, "failed to create %s", w.dir)
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "failed to create watcher")
	}
	defer fw.Close()
	if err := fw.Add(w.dir); err != nil {
		return errors.Wrapf(err, "failed to watch %s", w.dir)
	}
	log.Info().Str("dir", w.dir).Msg("watching policies directory")

	defer w.stopTimers()
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			w.handle(ctx, event)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(err).Str("dir", w.dir).Msg("policy watcher error")
		}
	}
}

func (w *Watcher) handle(ctx context.Context, event fsnotify.Event) {
	name := filepath.Base(event.Name)
	if !Indexable(name) {
		return
	}
	switch {
	case event.Has(fsnotify.Create) || event.Has(fsnotify.Write):
		w.schedule(event.Name, func() { w.add(ctx, event.Name) })
	case event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename):
		w.schedule(event.Name, func() {
			if err := w.index.Remove(ctx, "policies/"+name); err != nil {
				log.Warn().Err(err).Str("file", name).Msg("failed to remove policy from index")
			}
		})
	}
}

func (w *Watcher) schedule(path string, fn func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.timers[path]; ok {
		t.Stop()
	}
	w.timers[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.timers, path)
		w.mu.Unlock()
		fn()
	})
}

func (w *Watcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, t := range w.timers {
		t.Stop()
		delete(w.timers, path)
	}
}

func (w *Watcher) add(ctx context.Context, path string) {
	if ctx.Err() != nil {
		return
	}
	b, err := os.ReadFile(path)
	if err != nil {
		log.Warn().Err(err).Str("file", path).Msg("failed to read policy file")
		return
	}
	name := filepath.Base(path)
	ok, err := w.index.Add(ctx, Document{
		Source:   "policies/" + name,
		Filename: name,
		Origin:   domain.ChunkOriginCanonical,
		Text:     string(b),
	})
	if err != nil {
		log.Warn().Err(err).Str("file", name).Msg("failed to index policy file")
		return
	}
	log.Info().Str("file", name).Bool("indexed", ok).Msg("policy file changed")
}
