package shop

import (
	"context"

	"fish-shop-bot/internal/commerce"
)

// Catalog is the slice of the commerce backend the flow uses. It is
// satisfied by *commerce.Client; tests substitute a fake. Every failed
// operation is a *commerce.CatalogError and aborts the current event
// without advancing session state.
type Catalog interface {
	Products(ctx context.Context) ([]commerce.ProductRef, error)
	Product(ctx context.Context, productID string) (commerce.Product, error)
	Cart(ctx context.Context, chatID int64) (commerce.Cart, error)
	AddItem(ctx context.Context, chatID int64, productID string, quantity int) (commerce.Cart, error)
	RemoveItem(ctx context.Context, chatID int64, itemID string) (commerce.Cart, error)
	CreateCustomer(ctx context.Context, chatID int64, email string) (string, error)
	Customer(ctx context.Context, customerID string) (commerce.Customer, error)
}
