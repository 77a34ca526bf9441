// Package mailbox manages the per-recipient message queues used to relay
// signaling payloads between a session's host and its clients.
//
// Queues are ordered, consume-destructive, at-least-once-pushed FIFO
// lists in the backing store. Delivery is lossy by design: a drain
// removes messages before the HTTP response is written, so a caller that
// dies after the store-side pop has lost those messages. There is no
// acknowledgment or redelivery.
package mailbox

import (
	"context"
	"fmt"
	"time"

	"webrtc-rendezvous/internal/store"
)

// DefaultPollTimeout bounds the blocking portion of a drain. Long polling
// is realized by suspending the calling request inside the store's
// blocking pop for up to this long; callers must set their own request
// timeouts comfortably above it.
const DefaultPollTimeout = 5 * time.Second

// DefaultClientBatchLimit caps how many messages a single client drain
// returns.
const DefaultClientBatchLimit = 10

func hostQueueKey(sessionName string) string {
	return "sessions:" + sessionName + ":message_queue"
}

func clientQueueKey(sessionName, clientName string) string {
	return "sessions:" + sessionName + ":message_queue:" + clientName
}

// Manager pushes to and drains the host and client mailboxes of a
// session. Pushes are left-pushes, drains are right-pops, so messages
// come back oldest-first.
type Manager struct {
	store store.Store

	ttl              time.Duration
	pollTimeout      time.Duration
	clientBatchLimit int
}

func NewManager(st store.Store, ttl, pollTimeout time.Duration, clientBatchLimit int) *Manager {
	if pollTimeout <= 0 {
		pollTimeout = DefaultPollTimeout
	}
	if clientBatchLimit <= 0 {
		clientBatchLimit = DefaultClientBatchLimit
	}
	return &Manager{
		store:            st,
		ttl:              ttl,
		pollTimeout:      pollTimeout,
		clientBatchLimit: clientBatchLimit,
	}
}

// PushToHost appends message to the session's host mailbox and refreshes
// the mailbox TTL.
func (m *Manager) PushToHost(ctx context.Context, sessionName string, message string) error {
	return m.push(ctx, hostQueueKey(sessionName), message)
}

// PushToClient appends message to the (session, client) mailbox and
// refreshes the mailbox TTL.
func (m *Manager) PushToClient(ctx context.Context, sessionName, clientName string, message string) error {
	return m.push(ctx, clientQueueKey(sessionName, clientName), message)
}

func (m *Manager) push(ctx context.Context, key, message string) error {
	if err := m.store.PushLeft(ctx, key, message); err != nil {
		return fmt.Errorf("push message: %w", err)
	}
	if err := m.store.Expire(ctx, key, m.ttl); err != nil {
		return fmt.Errorf("push message: %w", err)
	}
	return nil
}

// DrainForHost removes and returns every message currently in the host
// mailbox, oldest first. When the mailbox is empty it blocks for up to
// the poll timeout waiting for the first message, then sweeps the rest
// non-blocking; an empty result after the timeout is not an error.
func (m *Manager) DrainForHost(ctx context.Context, sessionName string) ([]string, error) {
	key := hostQueueKey(sessionName)

	first, ok, err := m.store.BlockingPopRight(ctx, key, m.pollTimeout)
	if err != nil {
		return nil, fmt.Errorf("drain host mailbox: %w", err)
	}
	if !ok {
		return []string{}, nil
	}

	out := []string{first}
	for {
		v, ok, err := m.store.PopRight(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("drain host mailbox: %w", err)
		}
		if !ok {
			return out, nil
		}
		out = append(out, v)
	}
}

// DrainForClient removes and returns up to the batch limit of messages
// from the (session, client) mailbox, oldest first, blocking for up to
// the poll timeout when empty.
func (m *Manager) DrainForClient(ctx context.Context, sessionName, clientName string) ([]string, error) {
	key := clientQueueKey(sessionName, clientName)

	first, ok, err := m.store.BlockingPopRight(ctx, key, m.pollTimeout)
	if err != nil {
		return nil, fmt.Errorf("drain client mailbox: %w", err)
	}
	if !ok {
		return []string{}, nil
	}

	out := []string{first}
	rest, err := m.store.PopRightCount(ctx, key, m.clientBatchLimit-1)
	if err != nil {
		return nil, fmt.Errorf("drain client mailbox: %w", err)
	}
	return append(out, rest...), nil
}
