package session

import (
	"errors"
	"fmt"
)

// ErrSessionNotFound is returned when a session id resolves to no row.
var ErrSessionNotFound = errors.New("session not found")

// ErrSessionLocked is returned for chat attempts on a submitted session.
// The lock check runs before the cap check so a locked-and-over-cap session
// reports "locked", not "cap reached".
var ErrSessionLocked = errors.New("this assignment is submitted and locked")

// CapError reports a rejected turn with the counts that caused it.
// The turn is not charged.
type CapError struct {
	Used int
	Cap  int
}

func (e *CapError) Error() string {
	return fmt.Sprintf("prompt cap reached (%d)", e.Cap)
}

// AsCapError unwraps err into a *CapError if it is one.
func AsCapError(err error) (*CapError, bool) {
	var ce *CapError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}
