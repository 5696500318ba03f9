package shop

import (
	"errors"
	"fmt"
)

// ErrUnknownUser is returned for a non-reset event from a chat that has
// no session yet. The caller violated the protocol: /start must precede
// every first contact. Fatal for that event only.
var ErrUnknownUser = errors.New("no session for chat, /start required first")

// InvalidStateError reports a session tag outside the closed state
// enumeration. This is an internal invariant violation, never a user
// mistake, and is deliberately not coerced back to START.
type InvalidStateError struct {
	ChatID int64
	Tag    string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("invalid session state %q for chat %d", e.Tag, e.ChatID)
}

// BadPayloadError reports a payload token the current step cannot
// accept, including malformed quantity tokens.
type BadPayloadError struct {
	Raw    string
	Reason string
}

func (e *BadPayloadError) Error() string {
	return fmt.Sprintf("bad payload %q: %s", e.Raw, e.Reason)
}
