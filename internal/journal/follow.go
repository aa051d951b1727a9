package journal

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const followDebounce = 50 * time.Millisecond

type follower struct {
	path string
	fn   func(Batch)

	mu      sync.Mutex
	offset  int64
	readErr error
	timer   *time.Timer
	closed  bool
}

// Follow delivers batches appended to the journal at path after offset until
// the context is canceled. Writes are coalesced briefly before reading. It
// returns the offset just past the last delivered line; fn is never called
// after Follow returns.
func Follow(ctx context.Context, path string, offset int64, fn func(Batch)) (int64, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return offset, err
	}
	defer watcher.Close()

	// Watch the directory so the journal may be created or replaced.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return offset, err
	}

	f := &follower{path: filepath.Clean(path), fn: fn, offset: offset}
	f.mu.Lock()
	f.readLocked()
	f.mu.Unlock()

	for {
		select {
		case <-ctx.Done():
			final, err := f.stop()
			if err != nil {
				return final, err
			}
			return final, ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return f.stop()
			}
			if filepath.Clean(event.Name) != f.path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				f.schedule()
			}
		case err, ok := <-watcher.Errors:
			final, stopErr := f.stop()
			if !ok {
				return final, stopErr
			}
			return final, err
		}
	}
}

func (f *follower) schedule() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	if f.timer != nil {
		f.timer.Stop()
	}
	f.timer = time.AfterFunc(followDebounce, func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		if !f.closed {
			f.readLocked()
		}
	})
}

// stop cancels pending reads and picks up anything written before the
// watcher reported it.
func (f *follower) stop() (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.timer != nil {
		f.timer.Stop()
	}
	f.readLocked()
	f.closed = true
	return f.offset, f.readErr
}

func (f *follower) readLocked() {
	batch, err := ReadFrom(f.path, f.offset)
	if err != nil {
		f.readErr = err
		return
	}
	f.readErr = nil
	if batch.Offset == f.offset {
		return
	}
	f.offset = batch.Offset
	f.fn(batch)
}
