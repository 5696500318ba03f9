// Package shop implements the purchase flow: a session-driven state
// machine that maps (persisted state, inbound event) to backend calls,
// a rendered screen and the next persisted state.
package shop

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"fish-shop-bot/internal/session"
	"fish-shop-bot/internal/storage"
)

type handlerFunc func(ctx context.Context, ev Event, p payload) (session.State, error)

// Journal receives one record per successfully handled event.
type Journal interface {
	AppendInteraction(storage.Interaction) error
}

// Dispatcher owns the state table and the session store. Handlers never
// touch the store; they return the next state and the dispatcher
// persists it only after every side effect of the step completed.
type Dispatcher struct {
	store    session.Store
	catalog  Catalog
	gw       Gateway
	journal  Journal
	handlers map[session.State]handlerFunc
	locks    *chatLocks
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithJournal enables the interaction journal.
func WithJournal(j Journal) DispatcherOption {
	return func(d *Dispatcher) { d.journal = j }
}

// New wires the dispatcher with its collaborators. All dependencies are
// explicit; there are no ambient globals behind this package.
func New(store session.Store, catalog Catalog, gw Gateway, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		store:   store,
		catalog: catalog,
		gw:      gw,
		locks:   newChatLocks(),
	}
	d.handlers = map[session.State]handlerFunc{
		session.StateStart:           d.handleStart,
		session.StateMenu:            d.handleMenu,
		session.StateProductDetail:   d.handleProductDetail,
		session.StateCart:            d.handleCart,
		session.StateAwaitingContact: d.handleContact,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Handle processes one inbound event to completion. On any error the
// session state is left untouched, so the user's next event replays
// against the prior screen instead of silently proceeding.
func (d *Dispatcher) Handle(ctx context.Context, ev Event) error {
	p, err := decodePayload(ev.Payload)
	if err != nil {
		return err
	}

	entry := d.locks.acquire(ev.ChatID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		d.locks.release(ev.ChatID)
	}()

	state, err := d.currentState(ctx, ev, p)
	if err != nil {
		return err
	}

	handler, ok := d.handlers[state]
	if !ok {
		return &InvalidStateError{ChatID: ev.ChatID, Tag: string(state)}
	}

	next, err := handler(ctx, ev, p)
	if err != nil {
		return err
	}

	if err := d.store.Set(ctx, ev.ChatID, next); err != nil {
		return fmt.Errorf("failed to persist state for chat %d: %w", ev.ChatID, err)
	}

	d.record(ev, state, next)
	return nil
}

// currentState resolves which step the event applies to. The reset
// token forces START regardless of what is stored. A stored tag outside
// the closed enumeration is an internal invariant violation and is not
// coerced back to START.
func (d *Dispatcher) currentState(ctx context.Context, ev Event, p payload) (session.State, error) {
	if p.kind == kindReset {
		return session.StateStart, nil
	}
	state, err := d.store.Get(ctx, ev.ChatID)
	if errors.Is(err, session.ErrNotFound) {
		return "", fmt.Errorf("chat %d: %w", ev.ChatID, ErrUnknownUser)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read state for chat %d: %w", ev.ChatID, err)
	}
	if _, ok := session.Parse(string(state)); !ok {
		return "", &InvalidStateError{ChatID: ev.ChatID, Tag: string(state)}
	}
	return state, nil
}

// record appends the transition to the journal. Journal failures are
// logged, not propagated: the event itself already succeeded.
func (d *Dispatcher) record(ev Event, from, to session.State) {
	if d.journal == nil {
		return
	}
	rec := storage.Interaction{
		Timestamp: time.Now().UTC(),
		ChatID:    ev.ChatID,
		Payload:   ev.Payload,
		FromState: string(from),
		ToState:   string(to),
	}
	if err := d.journal.AppendInteraction(rec); err != nil {
		log.Printf("failed to journal interaction for chat %d: %v", ev.ChatID, err)
	}
}
