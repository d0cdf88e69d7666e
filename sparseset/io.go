package sparseset

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/hupe1980/termid/internal/conv"
	"golang.org/x/sync/errgroup"
)

// Write emits s as a big-endian int32 count followed by the elements in
// ascending order.
func Write(w io.Writer, s Set) error {
	n := s.Len()
	count, err := conv.IntToInt32(n)
	if err != nil {
		return fmt.Errorf("sparseset: count field: %w", err)
	}

	bw := bufio.NewWriter(w)
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], uint32(count))
	if _, err := bw.Write(buf[:]); err != nil {
		return err
	}

	written := 0
	for v := range s.All() {
		if written == n {
			break
		}
		binary.BigEndian.PutUint32(buf[:], uint32(v))
		if _, err := bw.Write(buf[:]); err != nil {
			return err
		}
		written++
	}
	if written != n {
		return fmt.Errorf("sparseset: set changed during write (%d of %d elements)", written, n)
	}
	return bw.Flush()
}

// Read reads a record produced by Write and adds each element to s.
func Read(r io.Reader, s Set) error {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return fmt.Errorf("sparseset: read count: %w", err)
	}
	n := int32(binary.BigEndian.Uint32(buf[:]))
	if n < 0 {
		return fmt.Errorf("sparseset: negative count %d", n)
	}

	for i := range n {
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			if errors.Is(err, io.EOF) {
				err = io.ErrUnexpectedEOF
			}
			return fmt.Errorf("sparseset: read element %d of %d: %w", i, n, err)
		}
		if err := s.Add(int32(binary.BigEndian.Uint32(buf[:]))); err != nil {
			return err
		}
	}
	return nil
}

// ParallelForEach calls fn for every element of s from up to workers
// goroutines. Elements are split into contiguous ascending chunks; the order
// of calls across chunks is unspecified. The first error cancels the rest.
func ParallelForEach(ctx context.Context, s Set, workers int, fn func(ctx context.Context, v int32) error) error {
	if s.IsEmpty() {
		return nil
	}
	if workers <= 0 {
		workers = 1
	}

	vals := s.ToArray()
	chunk := (len(vals) + workers - 1) / workers

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for start := 0; start < len(vals); start += chunk {
		part := vals[start:min(start+chunk, len(vals))]
		g.Go(func() error {
			for _, v := range part {
				if err := gctx.Err(); err != nil {
					return err
				}
				if err := fn(gctx, v); err != nil {
					return err
				}
			}
			return nil
		})
	}
	return g.Wait()
}
