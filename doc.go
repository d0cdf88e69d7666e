// Package termid maps 128-bit UUIDs to dense int32 nids and represents
// collections of nids as sparse sets.
//
// An identity map hands out nids in increasing order, starting just above
// math.MinInt32, so term ids can be stored in compact bitmaps and arrays
// instead of UUIDs. Several UUIDs may share one nid (aliases).
//
// # Quick Start
//
// In-memory mode:
//
//	ctx := context.Background()
//	db, _ := termid.Open(ctx, termid.InMemory())
//	nid, _ := db.Resolve(ctx, uuid.New())
//
// Local mode:
//
//	db, _ := termid.Open(ctx, termid.Local("./ids"))
//	defer db.Close(ctx)
//
// Cloud mode:
//
//	store, _ := s3.NewStoreFromConfig(ctx, "my-bucket", "ids/")
//	db, _ := termid.Open(ctx, termid.Remote(store), termid.WithMaxResidentShards(32))
//
// # Durability Model
//
// Bindings live in 256 shards. In a persistent backend each shard is a blob
// named "{shard}-uuid-nid.map"; the blob "map.params" holds the nid
// high-water mark, which is always written before any shard so a restart
// never reissues a nid:
//
//	db.Resolve(ctx, u)  // buffered in memory
//	db.Commit(ctx)      // durable after this
//
// Shards beyond WithMaxResidentShards are written back and evicted in least
// recently used order.
//
// # Sets
//
// SetOf and UUIDsOf convert between UUIDs and sparseset.Bitmap:
//
//	set, _ := db.SetOf(ctx, a, b, c)
//	both, _ := set.And(other)
//	uuids, _ := db.UUIDsOf(ctx, both)
//
// The sparseset and spine packages are usable on their own.
package termid
