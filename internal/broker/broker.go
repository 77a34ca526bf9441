// Package broker implements the authenticated signaling operations that
// compose the session registry and the mailbox manager into the
// externally visible contract: host registration, join initiation,
// candidate relay, and long-polled message retrieval.
//
// The broker is fully stateless; any number of these operations may run
// concurrently across processes, coordinated only through the backing
// store. Offers, answers, and ICE candidates are opaque strings here;
// nothing validates WebRTC semantics.
package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"webrtc-rendezvous/internal/mailbox"
	"webrtc-rendezvous/internal/metrics"
	"webrtc-rendezvous/internal/names"
	"webrtc-rendezvous/internal/session"
)

// HostCredentials is the result of a successful host registration. The
// secret is issued exactly once, here; no retrieval operation ever
// returns it again.
type HostCredentials struct {
	SessionName string
	HostSecret  string
}

// Broker wires the registry and mailboxes together.
type Broker struct {
	registry  *session.Registry
	mailboxes *mailbox.Manager
	metrics   *metrics.Metrics

	nameAttempts int
}

func New(registry *session.Registry, mailboxes *mailbox.Manager, m *metrics.Metrics, nameAttempts int) *Broker {
	if nameAttempts <= 0 {
		nameAttempts = names.DefaultAttempts
	}
	return &Broker{
		registry:     registry,
		mailboxes:    mailboxes,
		metrics:      m,
		nameAttempts: nameAttempts,
	}
}

// RegisterHost creates a new session under a generated unique name and
// returns the name plus the host's bearer secret.
func (b *Broker) RegisterHost(ctx context.Context, public bool, hostName string) (HostCredentials, error) {
	if strings.TrimSpace(hostName) == "" {
		return HostCredentials{}, fmt.Errorf("%w: host_name must be a non-empty string", ErrInvalidInput)
	}

	// The uniqueness check and the registration are separate store
	// operations, so a concurrent registration can still claim a candidate
	// name between them. Register's conditional write detects that; losing
	// burns an attempt and retries with a fresh name.
	attempts := b.nameAttempts
	for attempts > 0 {
		name, err := names.UniqueSessionName(ctx, b.registry.HasSession, attempts)
		if errors.Is(err, names.ErrSpaceExhausted) {
			b.metrics.Inc(metrics.NameSpaceExhausted)
			return HostCredentials{}, ErrNameSpaceExhausted
		}
		if err != nil {
			return HostCredentials{}, err
		}

		secret, claimed, err := b.registry.Register(ctx, name, public, hostName)
		if err != nil {
			return HostCredentials{}, err
		}
		if claimed {
			b.metrics.Inc(metrics.SessionRegistered)
			return HostCredentials{SessionName: name, HostSecret: secret}, nil
		}
		attempts--
	}

	b.metrics.Inc(metrics.NameSpaceExhausted)
	return HostCredentials{}, ErrNameSpaceExhausted
}

// HostMessages authenticates the host and destructively drains its
// mailbox, blocking up to the poll timeout when empty. The returned
// messages are gone from the store once this returns; a caller that
// disconnects before reading the response has lost them.
func (b *Broker) HostMessages(ctx context.Context, sessionName, hostSecret string) ([]string, error) {
	ok, err := b.registry.AuthenticateHost(ctx, sessionName, hostSecret)
	if err != nil {
		return nil, err
	}
	if !ok {
		b.metrics.Inc(metrics.AuthFailure)
		return nil, ErrUnauthenticated
	}

	msgs, err := b.mailboxes.DrainForHost(ctx, sessionName)
	if err != nil {
		return nil, err
	}
	b.metrics.Inc(metrics.HostDrains)
	b.metrics.Add(metrics.MessagesDelivered, uint64(len(msgs)))
	return msgs, nil
}

// InitiateJoin starts a client's join: it claims the (session, client)
// membership, forwards a start_join message carrying the offer to the
// host, and returns the client's bearer secret.
//
// The session must exist; joining a dead or never-registered session is
// rejected rather than silently creating an orphaned mailbox.
func (b *Broker) InitiateJoin(ctx context.Context, sessionName, clientName, rtcOffer string) (string, error) {
	if strings.TrimSpace(sessionName) == "" || strings.TrimSpace(clientName) == "" || rtcOffer == "" {
		return "", fmt.Errorf("%w: session_name, client_name and rtc_offer are required", ErrInvalidInput)
	}

	exists, err := b.registry.HasSession(ctx, sessionName)
	if err != nil {
		return "", err
	}
	if !exists {
		return "", ErrSessionNotFound
	}

	// Claim the membership before forwarding the offer so two joins under
	// the same client name cannot both reach the host. If the push below
	// fails, the claim expires with its TTL.
	secret, claimed, err := b.registry.RegisterClientSecret(ctx, sessionName, clientName)
	if err != nil {
		return "", err
	}
	if !claimed {
		return "", ErrNameTaken
	}

	msg, err := startJoinMessage(clientName, rtcOffer)
	if err != nil {
		return "", err
	}
	if err := b.mailboxes.PushToHost(ctx, sessionName, msg); err != nil {
		return "", err
	}

	b.metrics.Inc(metrics.JoinInitiated)
	return secret, nil
}

// RelayCandidates authenticates the client and forwards its ICE
// candidates to the host mailbox as one ice_candidate message.
func (b *Broker) RelayCandidates(ctx context.Context, sessionName, clientName, clientSecret string, candidates []string) error {
	if len(candidates) == 0 {
		return fmt.Errorf("%w: candidates must be a non-empty array of strings", ErrInvalidInput)
	}

	ok, err := b.registry.AuthenticateClient(ctx, sessionName, clientName, clientSecret)
	if err != nil {
		return err
	}
	if !ok {
		b.metrics.Inc(metrics.AuthFailure)
		return ErrUnauthenticated
	}

	msg, err := iceCandidateMessage(clientName, candidates)
	if err != nil {
		return err
	}
	if err := b.mailboxes.PushToHost(ctx, sessionName, msg); err != nil {
		return err
	}

	b.metrics.Inc(metrics.CandidatesRelayed)
	return nil
}

// RelayToClient authenticates the host and appends the payload to the
// client's mailbox verbatim. Unlike the client->host paths, the broker
// imposes no envelope here; the host's own framing passes through
// untouched.
func (b *Broker) RelayToClient(ctx context.Context, sessionName, clientName, hostSecret string, messages json.RawMessage) error {
	if strings.TrimSpace(sessionName) == "" || strings.TrimSpace(clientName) == "" {
		return fmt.Errorf("%w: session_name and client_name are required", ErrInvalidInput)
	}
	if len(messages) == 0 {
		return fmt.Errorf("%w: messages is required", ErrInvalidInput)
	}

	ok, err := b.registry.AuthenticateHost(ctx, sessionName, hostSecret)
	if err != nil {
		return err
	}
	if !ok {
		b.metrics.Inc(metrics.AuthFailure)
		return ErrUnauthenticated
	}

	if err := b.mailboxes.PushToClient(ctx, sessionName, clientName, string(messages)); err != nil {
		return err
	}

	b.metrics.Inc(metrics.ResponsesRelayed)
	return nil
}

// ClientMessages authenticates the client and destructively drains its
// mailbox (up to the batch cap), blocking up to the poll timeout when
// empty.
func (b *Broker) ClientMessages(ctx context.Context, sessionName, clientName, clientSecret string) ([]string, error) {
	ok, err := b.registry.AuthenticateClient(ctx, sessionName, clientName, clientSecret)
	if err != nil {
		return nil, err
	}
	if !ok {
		b.metrics.Inc(metrics.AuthFailure)
		return nil, ErrUnauthenticated
	}

	msgs, err := b.mailboxes.DrainForClient(ctx, sessionName, clientName)
	if err != nil {
		return nil, err
	}
	b.metrics.Inc(metrics.ClientDrains)
	b.metrics.Add(metrics.MessagesDelivered, uint64(len(msgs)))
	return msgs, nil
}

// ListSessions returns the live public sessions.
func (b *Broker) ListSessions(ctx context.Context) ([]session.Summary, error) {
	return b.registry.ListPublic(ctx)
}
