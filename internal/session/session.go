// Package session holds the purchase-flow state tag and its persistence
// contract. The dispatcher is the only writer; handlers never touch the
// store directly.
package session

import (
	"context"
	"errors"
)

// State names the step of the purchase flow a chat is currently in.
type State string

const (
	// StateStart renders the catalog and is forced by the /start command.
	StateStart State = "START"
	// StateMenu waits for a product pick or a cart request.
	StateMenu State = "MENU"
	// StateProductDetail waits for a quantity pick on one product.
	StateProductDetail State = "PRODUCT_DETAIL"
	// StateCart waits for line removal, checkout or a return to the menu.
	StateCart State = "CART"
	// StateAwaitingContact waits for the customer's email.
	StateAwaitingContact State = "AWAITING_CONTACT"
)

// Parse maps a stored raw value back onto the closed enumeration.
// The second return is false for anything outside it, including stale
// tags left behind by an older layout of the flow.
func Parse(raw string) (State, bool) {
	switch s := State(raw); s {
	case StateStart, StateMenu, StateProductDetail, StateCart, StateAwaitingContact:
		return s, true
	}
	return "", false
}

// ErrNotFound is returned by Store.Get when a chat has no session yet.
var ErrNotFound = errors.New("session not found")

// Store persists one state tag per chat identifier.
// Implementations must be safe for concurrent use.
type Store interface {
	// Get returns the current state for the chat, or ErrNotFound.
	Get(ctx context.Context, chatID int64) (State, error)
	// Set overwrites the state for the chat unconditionally.
	Set(ctx context.Context, chatID int64, state State) error
}
