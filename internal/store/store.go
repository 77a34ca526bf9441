// Package store defines the key-value capabilities the broker needs from
// its backing store, plus the two implementations: Redis for production
// and an in-memory store for tests.
//
// Every entity the broker knows about (sessions, client memberships,
// mailboxes) lives exclusively inside the store; the broker process holds
// no session state between requests. The store is therefore the sole
// point of ordering and mutual exclusion: each operation below is atomic,
// multi-operation sequences are not.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable is returned (wrapped) by every Store operation that fails
// at the transport or command level. Callers must not distinguish "store
// down" from "value absent" except through the documented ok-return
// semantics.
var ErrUnavailable = errors.New("store unavailable")

// Store is the capability surface consumed by the session registry and
// the mailbox manager.
//
// Lists use one consistent push/pop pairing: PushLeft appends at the head,
// the pop operations consume from the tail, so pops return elements in
// FIFO order relative to pushes.
type Store interface {
	// HashGet returns the value of field in the hash at key. ok is false
	// when the key or field is absent.
	HashGet(ctx context.Context, key, field string) (value string, ok bool, err error)

	// HashSet writes all given fields of the hash at key in one atomic
	// command.
	HashSet(ctx context.Context, key string, fields map[string]string) error

	// HashSetNX writes field only if it does not already exist in the hash
	// at key. Returns false when the field was already present.
	HashSetNX(ctx context.Context, key, field, value string) (set bool, err error)

	// HashGetAll returns every field of the hash at key. An absent key
	// yields an empty map.
	HashGetAll(ctx context.Context, key string) (map[string]string, error)

	// HashDelete removes fields from the hash at key. Missing fields are
	// not an error.
	HashDelete(ctx context.Context, key string, fields ...string) error

	// Get returns the string value at key. ok is false when absent.
	Get(ctx context.Context, key string) (value string, ok bool, err error)

	// SetNX writes key only if it does not already exist, applying ttl.
	// Returns false when the key was already present.
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (set bool, err error)

	// Exists reports whether key is present (and unexpired).
	Exists(ctx context.Context, key string) (bool, error)

	// Expire (re)applies ttl to key. Expiring an absent key is a no-op.
	Expire(ctx context.Context, key string, ttl time.Duration) error

	// PushLeft appends value at the head of the list at key.
	PushLeft(ctx context.Context, key, value string) error

	// PopRight removes and returns the tail element of the list at key.
	// ok is false when the list is empty or absent.
	PopRight(ctx context.Context, key string) (value string, ok bool, err error)

	// BlockingPopRight behaves like PopRight but, when the list is empty,
	// suspends the caller until an element arrives or timeout elapses.
	// A timeout is not an error; it returns ok=false.
	//
	// This is the broker's only intentional blocking point; it realizes
	// long polling inside a single request/response cycle.
	BlockingPopRight(ctx context.Context, key string, timeout time.Duration) (value string, ok bool, err error)

	// PopRightCount removes and returns up to count tail elements of the
	// list at key, oldest first. An empty or absent list yields nil.
	PopRightCount(ctx context.Context, key string, count int) ([]string, error)

	// Ping verifies connectivity to the backing store.
	Ping(ctx context.Context) error
}
