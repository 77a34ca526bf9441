// Package session owns session existence, role secrets, and visibility.
//
// All state lives in the backing store under a TTL; the registry itself
// is stateless. Secrets are bearer capabilities: an exact match is the
// entire authorization model, so comparisons are constant-time and a
// missing session or membership authenticates as false rather than
// erroring.
package session

import (
	"context"
	"crypto/subtle"
	"fmt"
	"sort"
	"time"

	"webrtc-rendezvous/internal/names"
	"webrtc-rendezvous/internal/store"
)

// indexKey is the global hash of public session names -> host display
// names, used only for listing. It carries no TTL of its own; stale
// entries are pruned lazily against the per-session key in ListPublic.
const indexKey = "sessions"

const (
	fieldPublic     = "public"
	fieldHostName   = "host_name"
	fieldHostSecret = "host_secret"
)

func sessionKey(name string) string {
	return "sessions:" + name
}

func clientKey(sessionName, clientName string) string {
	return "sessions:" + sessionName + ":clients:" + clientName
}

// Summary describes one public session for listing.
type Summary struct {
	SessionName string `json:"session_name"`
	HostName    string `json:"host_name"`
}

// Registry reads and writes session records and client memberships.
type Registry struct {
	store store.Store
	ttl   time.Duration

	// newSecret is a seam for tests; defaults to names.NewSecret.
	newSecret func() (string, error)
}

func NewRegistry(st store.Store, ttl time.Duration) *Registry {
	return &Registry{
		store:     st,
		ttl:       ttl,
		newSecret: names.NewSecret,
	}
}

// HasSession reports whether a live (unexpired) session exists.
func (r *Registry) HasSession(ctx context.Context, name string) (bool, error) {
	return r.store.Exists(ctx, sessionKey(name))
}

// Register creates the session record and returns the freshly issued host
// secret. claimed is false when another registration of the same name won
// the race; no fields are written in that case and the caller should pick
// a different name.
//
// The host secret is written first with a conditional set, making the
// secret field the atomic claim on the name. The remaining fields and the
// TTL follow; a crash between those writes leaves a claimed session whose
// record is partial but whose secret is still authoritative, and the TTL
// applied at claim time bounds how long such a record can linger.
func (r *Registry) Register(ctx context.Context, name string, public bool, hostName string) (hostSecret string, claimed bool, err error) {
	secret, err := r.newSecret()
	if err != nil {
		return "", false, err
	}

	key := sessionKey(name)
	won, err := r.store.HashSetNX(ctx, key, fieldHostSecret, secret)
	if err != nil {
		return "", false, fmt.Errorf("register session: %w", err)
	}
	if !won {
		return "", false, nil
	}
	if err := r.store.Expire(ctx, key, r.ttl); err != nil {
		return "", false, fmt.Errorf("register session: %w", err)
	}

	visibility := "0"
	if public {
		visibility = "1"
	}
	if err := r.store.HashSet(ctx, key, map[string]string{
		fieldPublic:   visibility,
		fieldHostName: hostName,
	}); err != nil {
		return "", false, fmt.Errorf("register session: %w", err)
	}

	if public {
		if err := r.store.HashSet(ctx, indexKey, map[string]string{name: hostName}); err != nil {
			return "", false, fmt.Errorf("register session: %w", err)
		}
	}

	return secret, true, nil
}

// AuthenticateHost reports whether supplied matches the stored host
// secret. A missing session or secret is false, never an error.
func (r *Registry) AuthenticateHost(ctx context.Context, name, supplied string) (bool, error) {
	actual, ok, err := r.store.HashGet(ctx, sessionKey(name), fieldHostSecret)
	if err != nil {
		return false, fmt.Errorf("authenticate host: %w", err)
	}
	if !ok {
		return false, nil
	}
	return secretsEqual(actual, supplied), nil
}

// AuthenticateClient reports whether supplied matches the stored secret
// for the (session, client) membership.
func (r *Registry) AuthenticateClient(ctx context.Context, sessionName, clientName, supplied string) (bool, error) {
	actual, ok, err := r.store.Get(ctx, clientKey(sessionName, clientName))
	if err != nil {
		return false, fmt.Errorf("authenticate client: %w", err)
	}
	if !ok {
		return false, nil
	}
	return secretsEqual(actual, supplied), nil
}

// RegisterClientSecret issues and persists a secret for the (session,
// client) pair. claimed is false when a membership for that pair already
// exists; the conditional set makes concurrent joins under the same
// client name first-writer-wins.
func (r *Registry) RegisterClientSecret(ctx context.Context, sessionName, clientName string) (clientSecret string, claimed bool, err error) {
	secret, err := r.newSecret()
	if err != nil {
		return "", false, err
	}
	won, err := r.store.SetNX(ctx, clientKey(sessionName, clientName), secret, r.ttl)
	if err != nil {
		return "", false, fmt.Errorf("register client: %w", err)
	}
	if !won {
		return "", false, nil
	}
	return secret, true, nil
}

// HasClient reports whether a membership secret is currently stored for
// the (session, client) pair.
func (r *Registry) HasClient(ctx context.Context, sessionName, clientName string) (bool, error) {
	_, ok, err := r.store.Get(ctx, clientKey(sessionName, clientName))
	if err != nil {
		return false, fmt.Errorf("check client: %w", err)
	}
	return ok, nil
}

// ListPublic returns the public sessions that are still alive, pruning
// index entries whose session keys have expired.
func (r *Registry) ListPublic(ctx context.Context) ([]Summary, error) {
	entries, err := r.store.HashGetAll(ctx, indexKey)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	var out []Summary
	var stale []string
	for name, hostName := range entries {
		alive, err := r.store.Exists(ctx, sessionKey(name))
		if err != nil {
			return nil, fmt.Errorf("list sessions: %w", err)
		}
		if !alive {
			stale = append(stale, name)
			continue
		}
		out = append(out, Summary{SessionName: name, HostName: hostName})
	}

	if len(stale) > 0 {
		if err := r.store.HashDelete(ctx, indexKey, stale...); err != nil {
			return nil, fmt.Errorf("list sessions: %w", err)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].SessionName < out[j].SessionName })
	return out, nil
}

func secretsEqual(actual, supplied string) bool {
	if actual == "" || supplied == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(actual), []byte(supplied)) == 1
}
