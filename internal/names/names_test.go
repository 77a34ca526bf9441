package names

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestSessionName_ThreeWords(t *testing.T) {
	for i := 0; i < 50; i++ {
		name, err := SessionName()
		if err != nil {
			t.Fatalf("SessionName: %v", err)
		}
		parts := strings.Split(name, " ")
		if len(parts) != 3 {
			t.Fatalf("name %q has %d words, want 3", name, len(parts))
		}
		for _, p := range parts {
			if p == "" {
				t.Fatalf("name %q has an empty word", name)
			}
		}
	}
}

func TestNewSecret_Format(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		s, err := NewSecret()
		if err != nil {
			t.Fatalf("NewSecret: %v", err)
		}
		if len(s) != SecretLength {
			t.Fatalf("secret %q has length %d, want %d", s, len(s), SecretLength)
		}
		for _, r := range s {
			if !strings.ContainsRune(secretAlphabet, r) {
				t.Fatalf("secret %q contains %q outside the alphabet", s, r)
			}
		}
		if seen[s] {
			t.Fatalf("secret %q repeated within 100 draws", s)
		}
		seen[s] = true
	}
}

func TestUniqueSessionName_SkipsTaken(t *testing.T) {
	ctx := context.Background()

	calls := 0
	exists := func(_ context.Context, name string) (bool, error) {
		calls++
		// First two candidates are "taken".
		return calls <= 2, nil
	}

	name, err := UniqueSessionName(ctx, exists, 10)
	if err != nil {
		t.Fatalf("UniqueSessionName: %v", err)
	}
	if name == "" {
		t.Fatalf("expected a name")
	}
	if calls != 3 {
		t.Fatalf("existence checked %d times, want 3", calls)
	}
}

func TestUniqueSessionName_Exhaustion(t *testing.T) {
	ctx := context.Background()
	allTaken := func(context.Context, string) (bool, error) { return true, nil }

	_, err := UniqueSessionName(ctx, allTaken, 5)
	if !errors.Is(err, ErrSpaceExhausted) {
		t.Fatalf("err = %v, want ErrSpaceExhausted", err)
	}
}

func TestUniqueSessionName_PropagatesCheckError(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("store down")
	failing := func(context.Context, string) (bool, error) { return false, boom }

	_, err := UniqueSessionName(ctx, failing, 5)
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped store error", err)
	}
}
