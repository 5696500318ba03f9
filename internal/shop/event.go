package shop

import (
	"strconv"
	"strings"
)

// resetToken restarts the flow from any state. A stateless reset must
// precede every first contact, so it is the only payload handled without
// an existing session.
const resetToken = "/start"

// Navigation tokens carried by inline-keyboard buttons.
const (
	tokenGotoMenu     = "goto_menu"
	tokenGotoCart     = "goto_cart"
	tokenGotoContacts = "goto_contacts"
)

// Event is one inbound chat event, reduced to what the flow needs:
// where it came from, which message triggered it (for retraction) and
// the raw payload. Events are transient and never persisted.
type Event struct {
	ChatID       int64
	MessageID    int
	Payload      string
	FromCallback bool
}

type payloadKind int

const (
	kindText payloadKind = iota
	kindReset
	kindGotoMenu
	kindGotoCart
	kindGotoContacts
	kindAddItem
)

// payload is the decoded form of Event.Payload. Decoding happens once,
// at the dispatcher boundary; handlers only switch on the kind and the
// state decides what a bare text means (product id, line-item id, email).
type payload struct {
	kind      payloadKind
	productID string
	quantity  int
	text      string
}

func decodePayload(raw string) (payload, error) {
	switch raw {
	case resetToken:
		return payload{kind: kindReset}, nil
	case tokenGotoMenu:
		return payload{kind: kindGotoMenu}, nil
	case tokenGotoCart:
		return payload{kind: kindGotoCart}, nil
	case tokenGotoContacts:
		return payload{kind: kindGotoContacts}, nil
	}

	if id, qty, ok := strings.Cut(raw, ":"); ok {
		n, err := strconv.Atoi(qty)
		if err != nil || n <= 0 || id == "" {
			return payload{}, &BadPayloadError{Raw: raw, Reason: "want <product_id>:<positive quantity>"}
		}
		return payload{kind: kindAddItem, productID: id, quantity: n}, nil
	}

	return payload{kind: kindText, text: raw}, nil
}
