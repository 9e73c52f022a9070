package sessions

import (
	"errors"
	"fmt"
)

var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrMatchNotFound    = errors.New("match not found")
	ErrNotEditor        = errors.New("only the session creator can record results")
	ErrMutationInFlight = errors.New("a result change for this match is already in progress")
)

// MutationError reports a result write that did not persist. The stored
// result and the caller's view are both unchanged.
type MutationError struct {
	SessionID string
	MatchID   string
	Err       error
}

func (e *MutationError) Error() string {
	return fmt.Sprintf("record result for match %s: %v", e.MatchID, e.Err)
}

func (e *MutationError) Unwrap() error {
	return e.Err
}

// UserMessage is safe to show next to the match that failed to update.
func (e *MutationError) UserMessage() string {
	return "The result could not be saved. Please try again."
}
