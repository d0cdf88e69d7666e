package termid

import (
	"errors"

	"github.com/hupe1980/termid/identity"
	"github.com/hupe1980/termid/sparseset"
)

var (
	// ErrAlreadyBound is returned by Bind when the UUID is bound to another nid.
	ErrAlreadyBound = identity.ErrAlreadyBound

	// ErrNidSpaceExhausted is returned when no nid is left to issue.
	ErrNidSpaceExhausted = identity.ErrNidSpaceExhausted

	// ErrInvalidNid is returned for nids that can never be bound.
	ErrInvalidNid = identity.ErrInvalidNid

	// ErrCorrupt is returned when persisted state cannot be decoded.
	ErrCorrupt = identity.ErrCorrupt

	// ErrClosed is returned by operations on a closed database.
	ErrClosed = identity.ErrClosed

	// ErrReadOnly is returned when mutating a read-only set.
	ErrReadOnly = sparseset.ErrReadOnly

	// ErrInvalidConfig is returned by LoadConfig and Config.Options for
	// unusable settings.
	ErrInvalidConfig = errors.New("termid: invalid config")
)

// ShardError reports a failed load or write of one shard.
//
// The underlying error can be accessed via errors.Unwrap.
type ShardError = identity.ShardError
