package session

import (
	"errors"
	"fmt"
)

var (
	// ErrNotAuthenticated is returned by operations that need an active session.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrIncompleteSession means a session would be left without a token or
	// without a user ID, either from a sign-in response or a user update.
	ErrIncompleteSession = errors.New("incomplete session in response")
)

// AuthenticationError is a rejected or failed sign-in. The cause stays
// reachable through errors.As, so transport failures can still be told apart.
type AuthenticationError struct {
	Err error
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("authentication failed: %v", e.Err)
}

func (e *AuthenticationError) Unwrap() error { return e.Err }
