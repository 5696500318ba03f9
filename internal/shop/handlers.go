package shop

import (
	"context"
	"fmt"

	"fish-shop-bot/internal/session"
)

// Handlers follow one ordering rule: the triggering message is
// retracted before the next screen renders, so the chat shows at most
// one active screen. Backend calls may happen on either side of the
// retraction.

// handleStart renders the catalog. The /start command itself is not
// retracted: there is no prior screen to replace.
func (d *Dispatcher) handleStart(ctx context.Context, ev Event, p payload) (session.State, error) {
	if p.kind != kindReset {
		if err := d.retract(ev); err != nil {
			return "", err
		}
	}
	if err := d.renderMenu(ctx, ev.ChatID); err != nil {
		return "", err
	}
	return session.StateMenu, nil
}

// handleMenu waits on the catalog screen: a bare token is a product
// pick, goto_cart opens the cart.
func (d *Dispatcher) handleMenu(ctx context.Context, ev Event, p payload) (session.State, error) {
	switch p.kind {
	case kindGotoCart:
		return d.showCart(ctx, ev)
	case kindText:
		product, err := d.catalog.Product(ctx, p.text)
		if err != nil {
			return "", err
		}
		if err := d.retract(ev); err != nil {
			return "", err
		}
		if err := d.renderProduct(ev.ChatID, product); err != nil {
			return "", err
		}
		return session.StateProductDetail, nil
	default:
		return "", &BadPayloadError{Raw: ev.Payload, Reason: "expected a product selection or goto_cart"}
	}
}

// handleProductDetail waits on one product's screen for a quantity
// pick, or navigates back out.
func (d *Dispatcher) handleProductDetail(ctx context.Context, ev Event, p payload) (session.State, error) {
	switch p.kind {
	case kindGotoMenu:
		return d.showMenu(ctx, ev)
	case kindGotoCart:
		return d.showCart(ctx, ev)
	case kindAddItem:
		cart, err := d.catalog.AddItem(ctx, ev.ChatID, p.productID, p.quantity)
		if err != nil {
			return "", err
		}
		if err := d.retract(ev); err != nil {
			return "", err
		}
		if err := d.renderCart(ev.ChatID, cart); err != nil {
			return "", err
		}
		return session.StateCart, nil
	default:
		return "", &BadPayloadError{Raw: ev.Payload, Reason: "expected a quantity selection or navigation"}
	}
}

// handleCart waits on the cart screen: a bare token names a line item
// to remove, goto_contacts starts checkout.
func (d *Dispatcher) handleCart(ctx context.Context, ev Event, p payload) (session.State, error) {
	switch p.kind {
	case kindGotoMenu:
		return d.showMenu(ctx, ev)
	case kindGotoContacts:
		if err := d.retract(ev); err != nil {
			return "", err
		}
		if err := d.renderContactPrompt(ev.ChatID); err != nil {
			return "", err
		}
		return session.StateAwaitingContact, nil
	case kindText:
		cart, err := d.catalog.RemoveItem(ctx, ev.ChatID, p.text)
		if err != nil {
			return "", err
		}
		if err := d.retract(ev); err != nil {
			return "", err
		}
		if err := d.renderCart(ev.ChatID, cart); err != nil {
			return "", err
		}
		return session.StateCart, nil
	default:
		return "", &BadPayloadError{Raw: ev.Payload, Reason: "expected a line removal or navigation"}
	}
}

// handleContact treats any payload as the customer's email; whether it
// is a valid address is the backend's call. Completing the step loops
// the flow back to START.
func (d *Dispatcher) handleContact(ctx context.Context, ev Event, p payload) (session.State, error) {
	customerID, err := d.catalog.CreateCustomer(ctx, ev.ChatID, ev.Payload)
	if err != nil {
		return "", err
	}
	customer, err := d.catalog.Customer(ctx, customerID)
	if err != nil {
		return "", err
	}
	if err := d.retract(ev); err != nil {
		return "", err
	}
	if err := d.renderConfirmation(ev.ChatID, customer.Email); err != nil {
		return "", err
	}
	return session.StateStart, nil
}

// showMenu retracts the triggering message and renders the catalog.
func (d *Dispatcher) showMenu(ctx context.Context, ev Event) (session.State, error) {
	if err := d.retract(ev); err != nil {
		return "", err
	}
	if err := d.renderMenu(ctx, ev.ChatID); err != nil {
		return "", err
	}
	return session.StateMenu, nil
}

// showCart fetches the cart, retracts the triggering message and
// renders the cart screen.
func (d *Dispatcher) showCart(ctx context.Context, ev Event) (session.State, error) {
	cart, err := d.catalog.Cart(ctx, ev.ChatID)
	if err != nil {
		return "", err
	}
	if err := d.retract(ev); err != nil {
		return "", err
	}
	if err := d.renderCart(ev.ChatID, cart); err != nil {
		return "", err
	}
	return session.StateCart, nil
}

func (d *Dispatcher) retract(ev Event) error {
	if err := d.gw.DeleteMessage(ev.ChatID, ev.MessageID); err != nil {
		return fmt.Errorf("failed to retract message %d for chat %d: %w", ev.MessageID, ev.ChatID, err)
	}
	return nil
}
