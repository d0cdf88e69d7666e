package termid_test

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/google/uuid"
	"github.com/hupe1980/termid"
	"github.com/hupe1980/termid/sparseset"
)

// Example_inMemory demonstrates resolving UUIDs to nids.
func Example_inMemory() {
	ctx := context.Background()
	db, err := termid.Open(ctx, termid.InMemory())
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close(ctx)

	a := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	b := uuid.MustParse("6ba7b811-9dad-11d1-80b4-00c04fd430c8")

	na, _ := db.Resolve(ctx, a)
	nb, _ := db.Resolve(ctx, b)
	again, _ := db.Resolve(ctx, a)

	fmt.Println(na, nb, again)
	// Output: -2147483647 -2147483646 -2147483647
}

// Example_aliases demonstrates binding a second UUID to an existing nid.
func Example_aliases() {
	ctx := context.Background()
	db, err := termid.Open(ctx, termid.InMemory(), termid.WithInverseCache(0))
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close(ctx)

	canonical := uuid.MustParse("00000000-0000-0000-0000-000000000001")
	alias := uuid.MustParse("00000000-0000-0000-0000-000000000002")

	nid, _ := db.Resolve(ctx, canonical)
	added, _ := db.Bind(ctx, alias, nid)
	uuids, _ := db.UUIDs(ctx, nid)

	fmt.Println(added, len(uuids))
	// Output: true 2
}

// Example_sets demonstrates building nid sets from UUIDs.
func Example_sets() {
	ctx := context.Background()
	db, err := termid.Open(ctx, termid.InMemory())
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close(ctx)

	u1, u2, u3 := uuid.New(), uuid.New(), uuid.New()
	left, _ := db.SetOf(ctx, u1, u2)
	right, _ := db.SetOf(ctx, u2, u3)

	both, _ := left.And(right)
	uuids, _ := db.UUIDsOf(ctx, both)

	fmt.Println(both.Len(), uuids[0] == u2)
	// Output: 1 true
}

// Example_local demonstrates persisting bindings across restarts.
func Example_local() {
	ctx := context.Background()
	dir, err := os.MkdirTemp("", "termid-example")
	if err != nil {
		log.Fatal(err)
	}
	defer os.RemoveAll(dir)

	u := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

	db, err := termid.Open(ctx, termid.Local(dir), termid.WithCompression(termid.CompressionZSTD))
	if err != nil {
		log.Fatal(err)
	}
	nid, _ := db.Resolve(ctx, u)
	if err := db.Close(ctx); err != nil {
		log.Fatal(err)
	}

	db, err = termid.Open(ctx, termid.Local(dir))
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close(ctx)

	got, ok, _ := db.Lookup(ctx, u)
	fmt.Println(ok, got == nid)
	// Output: true true
}

// Example_writeSet demonstrates the portable set format.
func Example_writeSet() {
	set := sparseset.Of(3, -1, 7)

	f, err := os.CreateTemp("", "set")
	if err != nil {
		log.Fatal(err)
	}
	defer os.Remove(f.Name())

	if err := sparseset.Write(f, set); err != nil {
		log.Fatal(err)
	}
	if _, err := f.Seek(0, 0); err != nil {
		log.Fatal(err)
	}

	back := sparseset.NewBitmap()
	if err := sparseset.Read(f, back); err != nil {
		log.Fatal(err)
	}
	fmt.Println(back.ToArray())
	// Output: [-1 3 7]
}
