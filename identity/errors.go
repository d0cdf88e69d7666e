package identity

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyBound is returned when binding a UUID that already maps to a
	// different nid.
	ErrAlreadyBound = errors.New("identity: uuid already bound to a different nid")

	// ErrNidSpaceExhausted is returned when no nid is left to issue.
	ErrNidSpaceExhausted = errors.New("identity: nid space exhausted")

	// ErrInvalidNid is returned for nids that can never be issued.
	ErrInvalidNid = errors.New("identity: invalid nid")

	// ErrCorrupt is returned when persisted shards or parameters fail
	// validation.
	ErrCorrupt = errors.New("identity: corrupt data")

	// ErrClosed is returned when using a closed map.
	ErrClosed = errors.New("identity: map is closed")
)

// ShardError reports a failed shard operation.
type ShardError struct {
	Shard int
	Op    string // "load" or "write"
	Err   error
}

func (e *ShardError) Error() string {
	return fmt.Sprintf("identity: %s shard %d: %v", e.Op, e.Shard, e.Err)
}

func (e *ShardError) Unwrap() error { return e.Err }
