package termid

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/hupe1980/termid/blobstore"
	"github.com/hupe1980/termid/identity"
	"github.com/hupe1980/termid/sparseset"
)

// NoNid is never a valid nid.
const NoNid = identity.NoNid

// Backend selects where a DB keeps its shards.
type Backend struct {
	name  string
	store func(ctx context.Context) (blobstore.Store, error) // nil for in-memory
}

// String returns the backend name used in logs.
func (b Backend) String() string { return b.name }

// InMemory keeps all bindings in memory. Commit is a no-op.
func InMemory() Backend {
	return Backend{name: "memory"}
}

// Local stores shards as files in dir, creating it if needed.
func Local(dir string) Backend {
	return Backend{
		name: "local:" + dir,
		store: func(context.Context) (blobstore.Store, error) {
			return blobstore.NewLocalStore(dir)
		},
	}
}

// Remote stores shards in an arbitrary blob store, e.g. blobstore/s3 or
// blobstore/minio.
func Remote(store blobstore.Store) Backend {
	return Backend{
		name: "remote",
		store: func(context.Context) (blobstore.Store, error) {
			return store, nil
		},
	}
}

// DB maps UUIDs to dense int32 nids and builds sparse nid sets.
// It is safe for concurrent use.
type DB struct {
	ids     *identity.Map
	backend Backend
	logger  *Logger

	closeOnce sync.Once
	closeErr  error
}

// Open opens a DB on backend. Persistent backends resume from the shards and
// high-water mark they contain.
func Open(ctx context.Context, backend Backend, optFns ...Option) (*DB, error) {
	o := applyOptions(optFns)
	logger := o.logger.WithBackend(backend.String())

	var (
		ids *identity.Map
		err error
	)
	if backend.store == nil {
		ids = identity.New(o.identityOptions()...)
	} else {
		var store blobstore.Store
		if store, err = backend.store(ctx); err == nil {
			ids, err = identity.Open(ctx, store, o.identityOptions()...)
		}
	}
	if err != nil {
		err = fmt.Errorf("termid: open %s: %w", backend, err)
		logger.LogOpen(ctx, backend.String(), NoNid, err)
		return nil, err
	}

	logger.LogOpen(ctx, backend.String(), ids.MaxNid(), nil)
	return &DB{
		ids:     ids,
		backend: backend,
		logger:  logger,
	}, nil
}

// Resolve returns the nid of u, issuing a new one if u is unknown.
func (db *DB) Resolve(ctx context.Context, u uuid.UUID) (int32, error) {
	nid, err := db.ids.GetOrAssign(ctx, u)
	db.logger.LogResolve(ctx, u, nid, err)
	return nid, err
}

// ResolveString parses s as a UUID and resolves it.
func (db *DB) ResolveString(ctx context.Context, s string) (int32, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return NoNid, fmt.Errorf("termid: %w", err)
	}
	return db.Resolve(ctx, u)
}

// Lookup returns the nid of u without issuing one.
func (db *DB) Lookup(ctx context.Context, u uuid.UUID) (int32, bool, error) {
	return db.ids.Get(ctx, u)
}

// Bind binds u to an existing nid, making u an alias of every UUID already
// bound to it. It reports whether the binding is new.
func (db *DB) Bind(ctx context.Context, u uuid.UUID, nid int32) (bool, error) {
	added, err := db.ids.Put(ctx, u, nid)
	db.logger.LogBind(ctx, u, nid, added, err)
	return added, err
}

// UUIDs returns every UUID bound to nid. Without the inverse cache each call
// scans all shards.
func (db *DB) UUIDs(ctx context.Context, nid int32) ([]uuid.UUID, error) {
	return db.ids.KeysForValue(ctx, nid)
}

// SetOf resolves each UUID, issuing nids as needed, and returns the set of
// their nids, run-length compacted.
func (db *DB) SetOf(ctx context.Context, uuids ...uuid.UUID) (*sparseset.Bitmap, error) {
	set := sparseset.NewBitmap()
	for _, u := range uuids {
		nid, err := db.Resolve(ctx, u)
		if err != nil {
			return nil, err
		}
		if err := set.Add(nid); err != nil {
			return nil, err
		}
	}
	set.Optimize()
	return set, nil
}

// UUIDsOf returns the UUIDs bound to the nids of set, in ascending nid
// order. Nids without bindings contribute nothing.
func (db *DB) UUIDsOf(ctx context.Context, set sparseset.Set) ([]uuid.UUID, error) {
	var out []uuid.UUID
	for nid := range set.All() {
		keys, err := db.UUIDs(ctx, nid)
		if err != nil {
			return nil, err
		}
		out = append(out, keys...)
	}
	return out, nil
}

// Len returns the number of bound UUIDs.
func (db *DB) Len(ctx context.Context) (int, error) {
	return db.ids.Len(ctx)
}

// Commit persists all pending changes. Failed shards stay pending and are
// retried by the next Commit.
func (db *DB) Commit(ctx context.Context) error {
	err := db.ids.Write(ctx)
	db.logger.LogCommit(ctx, db.ids.MaxNid(), err)
	return err
}

// Evict releases the memory held by resident shards. Changes are written
// first, so a failed write leaves the shard in memory and returns the error.
func (db *DB) Evict(ctx context.Context) error {
	return db.ids.Evict(ctx)
}

// Close commits and releases the DB. Calling Close again returns the first
// result.
func (db *DB) Close(ctx context.Context) error {
	db.closeOnce.Do(func() {
		db.closeErr = db.ids.Close(ctx)
		if db.closeErr != nil {
			db.logger.ErrorContext(ctx, "close failed", "error", db.closeErr)
		}
	})
	return db.closeErr
}

// Identities returns the underlying identity map.
func (db *DB) Identities() *identity.Map {
	return db.ids
}

// Stats returns a snapshot of the identity map.
func (db *DB) Stats() identity.Stats {
	return db.ids.Stats()
}
