package intake

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/aqueducts-ai/corona-case-upsert/internal/logger"
)

// DefaultSettleDelay is how long a file must stay quiet after its last
// write event before it is reported. Uploads arrive as a burst of
// partial writes; acting on the first one reads a truncated extract.
const DefaultSettleDelay = 500 * time.Millisecond

// Watcher reports snapshot extracts dropped into a directory.
type Watcher struct {
	dir         string
	settleDelay time.Duration

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	pending map[string]*time.Timer
	settled chan string
	done    chan struct{}
	closed  bool
}

// NewWatcher creates a watcher for dir. The directory must exist.
func NewWatcher(dir string) (*Watcher, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("drop directory error: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("drop directory error: %s is not a directory", dir)
	}

	return &Watcher{
		dir:         dir,
		settleDelay: DefaultSettleDelay,
		pending:     make(map[string]*time.Timer),
	}, nil
}

// Watch starts watching and returns a channel of settled extract paths.
// The channel closes when ctx is cancelled or the watcher is closed.
func (w *Watcher) Watch(ctx context.Context) (<-chan string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil, fmt.Errorf("watcher is closed")
	}
	if w.watcher != nil {
		return nil, fmt.Errorf("watcher already running")
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	if err := fw.Add(w.dir); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watching %s: %w", w.dir, err)
	}
	w.watcher = fw
	w.settled = make(chan string)
	w.done = make(chan struct{})

	out := make(chan string)
	go w.run(ctx, fw, out)

	logger.Info("Watching %s for snapshot extracts", w.dir)
	return out, nil
}

// run is the only goroutine that sends on (and closes) out. Settle
// timers hand paths over on the internal settled channel, so a timer
// firing during shutdown can never hit a closed out.
func (w *Watcher) run(ctx context.Context, fw *fsnotify.Watcher, out chan<- string) {
	defer close(out)
	defer fw.Close()
	defer w.cancelPending()
	// Releases any timer still blocked on settled.
	defer close(w.done)

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-fw.Events:
			if !ok {
				return
			}
			if !w.relevant(event) {
				continue
			}
			w.schedule(event.Name)

		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			logger.Warn("Watcher error: %v", err)

		case path := <-w.settled:
			select {
			case out <- path:
			case <-ctx.Done():
				return
			}
		}
	}
}

// relevant keeps Create and Write events for CSV files only.
func (w *Watcher) relevant(event fsnotify.Event) bool {
	if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) {
		return false
	}
	return strings.EqualFold(filepath.Ext(event.Name), ".csv")
}

// schedule arms (or re-arms) the settle timer for path. The callback
// fires once the file has stopped changing for settleDelay and hands
// the path to the run loop; settled is never closed, so the send is
// safe even when it loses the race against shutdown.
func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if timer, ok := w.pending[path]; ok {
		timer.Reset(w.settleDelay)
		return
	}

	w.pending[path] = time.AfterFunc(w.settleDelay, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()

		select {
		case w.settled <- path:
		case <-w.done:
		}
	})
}

func (w *Watcher) cancelPending() {
	w.mu.Lock()
	defer w.mu.Unlock()

	for path, timer := range w.pending {
		timer.Stop()
		delete(w.pending, path)
	}
}

// Close stops the watcher. Safe to call more than once.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	if w.watcher != nil {
		return w.watcher.Close()
	}
	return nil
}
