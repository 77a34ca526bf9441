package broker

import "errors"

// The broker's error taxonomy. Handlers map these onto HTTP statuses;
// nothing here is retried internally except the unique-name loop.
var (
	// ErrInvalidInput marks a missing or malformed request field.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthenticated marks a wrong or absent secret. It is a first-class
	// outcome distinguishing "caller is wrong" from "the broker failed": it
	// never wraps a store error.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrNameTaken marks a join under a client name that is already a
	// member of the session.
	ErrNameTaken = errors.New("name already taken")

	// ErrSessionNotFound marks an operation against a session that does not
	// exist or has expired.
	ErrSessionNotFound = errors.New("session not found")

	// ErrNameSpaceExhausted marks a registration that ran out of retry
	// budget while generating a unique session name.
	ErrNameSpaceExhausted = errors.New("session name space exhausted")
)
