package watch

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/gridforma/massing/internal/logging"
)

// Stat captures the observable state of the watched file.
type Stat struct {
	ModTime time.Time
	Size    int64
	Exists  bool
}

func (s Stat) equal(o Stat) bool {
	return s.Exists == o.Exists && s.Size == o.Size && s.ModTime.Equal(o.ModTime)
}

// Watcher polls one dataset file and notifies registered listeners when it
// changes. Deleted files do not notify; the last loaded dataset stays live.
type Watcher struct {
	mu       sync.RWMutex
	path     string
	interval time.Duration
	log      logging.Logger

	last      Stat
	listeners []func(Stat)
}

// New constructs a watcher polling path every interval.
func New(path string, interval time.Duration, log logging.Logger) *Watcher {
	if log == nil {
		log = logging.Noop()
	}
	return &Watcher{
		path:     path,
		interval: interval,
		log:      log,
	}
}

// AddListener registers a callback invoked after every observed change.
func (w *Watcher) AddListener(fn func(Stat)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.listeners = append(w.listeners, fn)
}

// Last returns the most recently observed state.
func (w *Watcher) Last() Stat {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.last
}

// Start polls in a separate goroutine until ctx is cancelled. It returns a
// channel that is closed when the watcher finishes.
func (w *Watcher) Start(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)

		w.mu.Lock()
		w.last = w.stat(ctx)
		w.mu.Unlock()

		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				cur := w.stat(ctx)

				w.mu.Lock()
				changed := !cur.equal(w.last)
				w.last = cur
				listeners := make([]func(Stat), len(w.listeners))
				copy(listeners, w.listeners)
				w.mu.Unlock()

				if !changed || !cur.Exists {
					continue
				}
				for _, fn := range listeners {
					fn(cur)
				}
			}
		}
	}()
	return done
}

func (w *Watcher) stat(ctx context.Context) Stat {
	info, err := os.Stat(w.path)
	if err != nil {
		if !os.IsNotExist(err) {
			w.log.Warn(ctx, "stat watched file failed",
				logging.String("path", w.path),
				logging.String("error", err.Error()))
		}
		return Stat{}
	}
	return Stat{ModTime: info.ModTime(), Size: info.Size(), Exists: true}
}
