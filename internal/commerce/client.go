// Package commerce adapts the Moltin (Elastic Path) v2 HTTP API to the
// typed operations the purchase flow needs. The backend stays the single
// source of truth for pricing, stock and totals; nothing is cached here.
package commerce

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2/clientcredentials"
)

// CatalogError reports a failed backend call: either a transport failure
// (Err set) or a non-success response (StatusCode set). The dispatcher
// treats every CatalogError uniformly and never advances session state
// past it.
type CatalogError struct {
	Op         string
	StatusCode int
	Message    string
	Err        error
}

func (e *CatalogError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("commerce %s: %v", e.Op, e.Err)
	}
	if e.Message != "" {
		return fmt.Sprintf("commerce %s: backend returned %d: %s", e.Op, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("commerce %s: backend returned %d", e.Op, e.StatusCode)
}

func (e *CatalogError) Unwrap() error { return e.Err }

// Client is the Moltin API client. Authentication uses the OAuth2
// client-credentials grant; the token source refreshes expired tokens
// transparently, so callers never see an auth handshake.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the OAuth2-wrapped HTTP client, mainly for
// tests against a fake backend.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// New creates a Moltin client for the given API root and credential pair.
func New(baseURL, clientID, clientSecret, tokenURL string, opts ...ClientOption) *Client {
	cc := clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     tokenURL,
	}
	hc := cc.Client(context.Background())
	hc.Timeout = 30 * time.Second

	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: hc,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Products lists the catalog in backend order.
func (c *Client) Products(ctx context.Context) ([]ProductRef, error) {
	var payload struct {
		Data []struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"data"`
	}
	if err := c.do(ctx, "list products", http.MethodGet, "/products", nil, &payload); err != nil {
		return nil, err
	}
	refs := make([]ProductRef, 0, len(payload.Data))
	for _, p := range payload.Data {
		refs = append(refs, ProductRef{ID: p.ID, Name: p.Name})
	}
	return refs, nil
}

// Product fetches the detail view of one catalog item. The main image
// relationship holds only a file id; resolving it to a URL costs a
// second round-trip, same as the backend's own clients do.
func (c *Client) Product(ctx context.Context, productID string) (Product, error) {
	var payload struct {
		Data struct {
			ID          string `json:"id"`
			Name        string `json:"name"`
			Description string `json:"description"`
			Meta        struct {
				DisplayPrice struct {
					WithTax struct {
						Formatted string `json:"formatted"`
					} `json:"with_tax"`
				} `json:"display_price"`
				Stock struct {
					Level int `json:"level"`
				} `json:"stock"`
			} `json:"meta"`
			Relationships struct {
				MainImage struct {
					Data struct {
						ID string `json:"id"`
					} `json:"data"`
				} `json:"main_image"`
			} `json:"relationships"`
		} `json:"data"`
	}
	if err := c.do(ctx, "get product", http.MethodGet, "/products/"+productID, nil, &payload); err != nil {
		return Product{}, err
	}

	p := Product{
		ID:          payload.Data.ID,
		Name:        payload.Data.Name,
		Description: payload.Data.Description,
		Price:       payload.Data.Meta.DisplayPrice.WithTax.Formatted,
		Stock:       payload.Data.Meta.Stock.Level,
	}

	if imageID := payload.Data.Relationships.MainImage.Data.ID; imageID != "" {
		var file struct {
			Data struct {
				Link struct {
					Href string `json:"href"`
				} `json:"link"`
			} `json:"data"`
		}
		if err := c.do(ctx, "get product image", http.MethodGet, "/files/"+imageID, nil, &file); err != nil {
			return Product{}, err
		}
		p.ImageURL = file.Data.Link.Href
	}
	return p, nil
}

// Cart fetches the chat's cart with backend-formatted line prices and total.
func (c *Client) Cart(ctx context.Context, chatID int64) (Cart, error) {
	var payload cartPayload
	if err := c.do(ctx, "get cart", http.MethodGet, cartItemsPath(chatID), nil, &payload); err != nil {
		return Cart{}, err
	}
	return payload.toCart(), nil
}

// AddItem puts quantity units of a product into the chat's cart and
// returns the updated cart from the mutation response.
func (c *Client) AddItem(ctx context.Context, chatID int64, productID string, quantity int) (Cart, error) {
	body := map[string]interface{}{
		"data": map[string]interface{}{
			"id":       productID,
			"type":     "cart_item",
			"quantity": quantity,
		},
	}
	var payload cartPayload
	if err := c.do(ctx, "add cart item", http.MethodPost, cartItemsPath(chatID), body, &payload); err != nil {
		return Cart{}, err
	}
	return payload.toCart(), nil
}

// RemoveItem deletes one line item and re-fetches the cart, so the
// returned totals are always the backend's, not a local projection.
func (c *Client) RemoveItem(ctx context.Context, chatID int64, itemID string) (Cart, error) {
	if err := c.do(ctx, "remove cart item", http.MethodDelete, cartItemsPath(chatID)+"/"+itemID, nil, nil); err != nil {
		return Cart{}, err
	}
	return c.Cart(ctx, chatID)
}

// CreateCustomer registers a customer record named after the chat
// identifier and returns the backend id.
func (c *Client) CreateCustomer(ctx context.Context, chatID int64, email string) (string, error) {
	body := map[string]interface{}{
		"data": map[string]interface{}{
			"type":  "customer",
			"name":  strconv.FormatInt(chatID, 10),
			"email": email,
		},
	}
	var payload struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := c.do(ctx, "create customer", http.MethodPost, "/customers", body, &payload); err != nil {
		return "", err
	}
	return payload.Data.ID, nil
}

// Customer reads a customer record back by id.
func (c *Client) Customer(ctx context.Context, customerID string) (Customer, error) {
	var payload struct {
		Data struct {
			ID    string `json:"id"`
			Email string `json:"email"`
		} `json:"data"`
	}
	if err := c.do(ctx, "get customer", http.MethodGet, "/customers/"+customerID, nil, &payload); err != nil {
		return Customer{}, err
	}
	return Customer{ID: payload.Data.ID, Email: payload.Data.Email}, nil
}

func cartItemsPath(chatID int64) string {
	return "/carts/" + strconv.FormatInt(chatID, 10) + "/items"
}

// cartPayload is the wire shape shared by cart reads and cart mutations.
type cartPayload struct {
	Data []struct {
		ID        string `json:"id"`
		ProductID string `json:"product_id"`
		Name      string `json:"name"`
		Quantity  int    `json:"quantity"`
		Meta      struct {
			DisplayPrice struct {
				WithTax struct {
					Value struct {
						Formatted string `json:"formatted"`
					} `json:"value"`
				} `json:"with_tax"`
			} `json:"display_price"`
		} `json:"meta"`
	} `json:"data"`
	Meta struct {
		DisplayPrice struct {
			WithTax struct {
				Formatted string `json:"formatted"`
			} `json:"with_tax"`
		} `json:"display_price"`
	} `json:"meta"`
}

func (p cartPayload) toCart() Cart {
	cart := Cart{
		Items: make([]CartItem, 0, len(p.Data)),
		Total: p.Meta.DisplayPrice.WithTax.Formatted,
	}
	for _, item := range p.Data {
		cart.Items = append(cart.Items, CartItem{
			ID:        item.ID,
			ProductID: item.ProductID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			Price:     item.Meta.DisplayPrice.WithTax.Value.Formatted,
		})
	}
	return cart
}

func (c *Client) do(ctx context.Context, op, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return &CatalogError{Op: op, Err: fmt.Errorf("marshal request: %w", err)}
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return &CatalogError{Op: op, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &CatalogError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return &CatalogError{Op: op, StatusCode: resp.StatusCode, Message: readAPIError(resp.Body)}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &CatalogError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// readAPIError extracts the first entry of Moltin's errors array,
// best-effort: an unreadable body just yields an empty message.
func readAPIError(r io.Reader) string {
	var payload struct {
		Errors []struct {
			Title  string `json:"title"`
			Detail string `json:"detail"`
		} `json:"errors"`
	}
	if err := json.NewDecoder(r).Decode(&payload); err != nil || len(payload.Errors) == 0 {
		return ""
	}
	first := payload.Errors[0]
	if first.Detail == "" {
		return first.Title
	}
	return first.Title + ": " + first.Detail
}
