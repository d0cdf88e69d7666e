package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// Flusher is a unit that can durably write its pending changes.
type Flusher interface {
	Flush(ctx context.Context) error
}

// WriteBack is the shared "write to disk" cache: the set of units holding
// unwritten mutations.
type WriteBack struct {
	mu      sync.Mutex
	pending map[Flusher]struct{}

	flushes  atomic.Int64
	failures atomic.Int64
}

// NewWriteBack creates an empty write-back set.
func NewWriteBack() *WriteBack {
	return &WriteBack{pending: make(map[Flusher]struct{})}
}

// Mark records that f has unwritten changes.
func (w *WriteBack) Mark(f Flusher) {
	w.mu.Lock()
	w.pending[f] = struct{}{}
	w.mu.Unlock()
}

// Unmark forgets f.
func (w *WriteBack) Unmark(f Flusher) {
	w.mu.Lock()
	delete(w.pending, f)
	w.mu.Unlock()
}

// IsPending reports whether f is marked.
func (w *WriteBack) IsPending(f Flusher) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.pending[f]
	return ok
}

// Len returns the number of pending units.
func (w *WriteBack) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.pending)
}

// Take removes and returns the pending units accepted by match (all if nil).
func (w *WriteBack) Take(match func(Flusher) bool) []Flusher {
	w.mu.Lock()
	defer w.mu.Unlock()

	var out []Flusher
	for f := range w.pending {
		if match == nil || match(f) {
			out = append(out, f)
			delete(w.pending, f)
		}
	}
	return out
}

// Flush writes every pending unit accepted by match with at most limit
// concurrent writers. Units that fail are marked again and their errors
// joined; one failure does not stop the others.
func (w *WriteBack) Flush(ctx context.Context, match func(Flusher) bool, limit int) error {
	units := w.Take(match)
	if len(units) == 0 {
		return nil
	}
	if limit <= 0 {
		limit = 1
	}

	var (
		mu   sync.Mutex
		errs []error
		g    errgroup.Group
	)
	g.SetLimit(limit)

	for _, f := range units {
		g.Go(func() error {
			if err := f.Flush(ctx); err != nil {
				w.failures.Add(1)
				w.Mark(f)
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
				return nil
			}
			w.flushes.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	return errors.Join(errs...)
}

// Stats returns successful and failed flush counts.
func (w *WriteBack) Stats() (flushes, failures int64) {
	return w.flushes.Load(), w.failures.Load()
}
