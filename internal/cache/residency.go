package cache

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/hupe1980/termid/resource"
)

// DefaultMaxResident is the default number of resident units.
const DefaultMaxResident = 256

// Resident is a unit whose heap state may be reclaimed and rebuilt later.
type Resident interface {
	// Evict drops the heap state. A unit with unwritten changes must write
	// them first and return an error (keeping its state) if it cannot.
	Evict(ctx context.Context) error
}

// Residency is the shared "hold in memory" cache.
type Residency struct {
	lru    *LRU[Resident, int64] // value: bytes reserved with rc
	rc     *resource.Controller
	logger *slog.Logger

	evictions atomic.Int64
	refusals  atomic.Int64
}

// NewResidency keeps at most maxResident units resident (DefaultMaxResident
// if <= 0). Memory reported on Touch is reserved with rc; a rejected
// reservation evicts further units.
func NewResidency(maxResident int, rc *resource.Controller, logger *slog.Logger) *Residency {
	if maxResident <= 0 {
		maxResident = DefaultMaxResident
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Residency{
		lru:    NewLRU[Resident, int64](int64(maxResident)),
		rc:     rc,
		logger: logger,
	}
}

// Touch marks u as recently used, registering it if needed, and evicts the
// units that no longer fit. It must not be called while holding a lock that
// an Evict implementation may take.
func (r *Residency) Touch(ctx context.Context, u Resident, sizeBytes int64) {
	if _, ok := r.lru.Get(u); ok {
		return
	}

	var victims []Entry[Resident, int64]
	reserved := int64(0)
	if sizeBytes > 0 {
		for {
			if err := r.rc.AcquireMemory(sizeBytes); err == nil {
				reserved = sizeBytes
				break
			}
			oldest, ok := r.lru.RemoveOldest()
			if !ok {
				// Nothing left to reclaim: admit unaccounted.
				break
			}
			r.rc.ReleaseMemory(oldest.Value)
			victims = append(victims, oldest)
		}
	}

	for _, e := range r.lru.Add(u, reserved, 1) {
		r.rc.ReleaseMemory(e.Value)
		victims = append(victims, e)
	}

	for _, v := range victims {
		r.evict(ctx, v.Key)
	}
}

// Forget unregisters u without asking it to evict.
func (r *Residency) Forget(u Resident) {
	if reserved, ok := r.lru.Remove(u); ok {
		r.rc.ReleaseMemory(reserved)
	}
}

// Contains reports whether u is registered.
func (r *Residency) Contains(u Resident) bool {
	_, ok := r.lru.Peek(u)
	return ok
}

// Len returns the number of registered units.
func (r *Residency) Len() int {
	return r.lru.Len()
}

// Evictions returns the number of successful evictions.
func (r *Residency) Evictions() int64 {
	return r.evictions.Load()
}

// Refusals returns the number of evictions refused by units.
func (r *Residency) Refusals() int64 {
	return r.refusals.Load()
}

// EvictAll evicts every registered unit. Units that refuse stay in memory
// unregistered until their next Touch; their errors are returned.
func (r *Residency) EvictAll(ctx context.Context) []error {
	var errs []error
	for _, e := range r.lru.Purge() {
		r.rc.ReleaseMemory(e.Value)
		if err := r.evict(ctx, e.Key); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

func (r *Residency) evict(ctx context.Context, u Resident) error {
	if err := u.Evict(ctx); err != nil {
		r.refusals.Add(1)
		r.logger.ErrorContext(ctx, "eviction refused", "error", err)
		return err
	}
	r.evictions.Add(1)
	return nil
}
