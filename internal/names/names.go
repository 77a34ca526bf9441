// Package names produces session names and bearer secrets.
//
// Session names are three dictionary words joined by spaces ("red fox
// jumps"); they are memorable, typeable, and collision-checked against
// the registry before use. Secrets are high-entropy alphanumeric tokens;
// possession of a secret is the sole authorization for host- or
// client-scoped operations.
package names

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
)

// DefaultAttempts is the retry budget for finding an unused session name.
const DefaultAttempts = 1000

// SecretLength is the length of generated bearer secrets. 16 alphanumeric
// characters is ~95 bits of entropy; concurrent-collision probability is
// negligible over a 600s session lifetime.
const SecretLength = 16

const secretAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// ErrSpaceExhausted is returned when the retry budget runs out without
// finding an unused session name.
var ErrSpaceExhausted = errors.New("session name space exhausted")

// SessionName returns a random three-word candidate name. It does not
// check uniqueness; see UniqueSessionName.
func SessionName() (string, error) {
	a, err := pick(adjectives)
	if err != nil {
		return "", err
	}
	n, err := pick(nouns)
	if err != nil {
		return "", err
	}
	v, err := pick(verbs)
	if err != nil {
		return "", err
	}
	return a + " " + n + " " + v, nil
}

// UniqueSessionName generates candidate names until exists reports one
// unused, retrying up to attempts times before failing with
// ErrSpaceExhausted. attempts <= 0 uses DefaultAttempts.
//
// The check-then-use pair is not atomic; registration must still handle
// a concurrent claim of the same name (see session.Registry.Register).
func UniqueSessionName(ctx context.Context, exists func(context.Context, string) (bool, error), attempts int) (string, error) {
	if attempts <= 0 {
		attempts = DefaultAttempts
	}
	for i := 0; i < attempts; i++ {
		name, err := SessionName()
		if err != nil {
			return "", err
		}
		taken, err := exists(ctx, name)
		if err != nil {
			return "", err
		}
		if !taken {
			return name, nil
		}
	}
	return "", ErrSpaceExhausted
}

// NewSecret returns a SecretLength-character alphanumeric bearer token.
func NewSecret() (string, error) {
	buf := make([]byte, SecretLength)
	for i := range buf {
		idx, err := rand.Int(rand.Reader, big.NewInt(int64(len(secretAlphabet))))
		if err != nil {
			return "", fmt.Errorf("generate secret: %w", err)
		}
		buf[i] = secretAlphabet[idx.Int64()]
	}
	return string(buf), nil
}

func pick(list []string) (string, error) {
	idx, err := rand.Int(rand.Reader, big.NewInt(int64(len(list))))
	if err != nil {
		return "", fmt.Errorf("generate name: %w", err)
	}
	return list[idx.Int64()], nil
}
