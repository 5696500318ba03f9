package shop

import (
	"context"
	"fmt"
	"strings"

	"fish-shop-bot/internal/commerce"
)

// quantityChoices are the kg options offered on a product screen.
var quantityChoices = []int{1, 3, 5}

func (d *Dispatcher) renderMenu(ctx context.Context, chatID int64) error {
	products, err := d.catalog.Products(ctx)
	if err != nil {
		return err
	}
	keyboard := make([][]Button, 0, len(products)+1)
	for _, p := range products {
		keyboard = append(keyboard, []Button{{Label: p.Name, Data: p.ID}})
	}
	keyboard = append(keyboard, []Button{{Label: "Your cart", Data: tokenGotoCart}})
	return d.gw.SendText(chatID, "MAIN MENU", keyboard)
}

func (d *Dispatcher) renderProduct(chatID int64, p commerce.Product) error {
	caption := fmt.Sprintf("%s\n\n%s\n\n%s per kg\n\n%d on stock", p.Name, p.Description, p.Price, p.Stock)

	quantities := make([]Button, 0, len(quantityChoices))
	for _, q := range quantityChoices {
		quantities = append(quantities, Button{
			Label: fmt.Sprintf("%d kg", q),
			Data:  fmt.Sprintf("%s:%d", p.ID, q),
		})
	}
	keyboard := [][]Button{
		quantities,
		{{Label: "Main menu", Data: tokenGotoMenu}},
		{{Label: "Your cart", Data: tokenGotoCart}},
	}

	if p.ImageURL == "" {
		return d.gw.SendText(chatID, caption, keyboard)
	}
	return d.gw.SendPhoto(chatID, p.ImageURL, caption, keyboard)
}

func (d *Dispatcher) renderCart(chatID int64, cart commerce.Cart) error {
	var b strings.Builder
	b.WriteString("YOUR CART:\n")

	keyboard := make([][]Button, 0, len(cart.Items)+2)
	for _, item := range cart.Items {
		fmt.Fprintf(&b, "%s: %d kg for %s\n", item.Name, item.Quantity, item.Price)
		keyboard = append(keyboard, []Button{{Label: "Delete " + item.Name, Data: item.ID}})
	}
	fmt.Fprintf(&b, "Total:%s", cart.Total)

	keyboard = append(keyboard, []Button{{Label: "Main menu", Data: tokenGotoMenu}})
	keyboard = append(keyboard, []Button{{Label: "Order now", Data: tokenGotoContacts}})
	return d.gw.SendText(chatID, b.String(), keyboard)
}

func (d *Dispatcher) renderContactPrompt(chatID int64) error {
	return d.gw.SendText(chatID, "YOUR CONTACTS:\nTo proceed the order please send us your email.", nil)
}

func (d *Dispatcher) renderConfirmation(chatID int64, email string) error {
	text := fmt.Sprintf("Your email: %s. Please await the order's confirm. Thank you!", email)
	return d.gw.SendText(chatID, text, nil)
}
