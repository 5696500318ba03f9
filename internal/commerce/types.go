package commerce

// ProductRef is one entry of the catalog listing.
type ProductRef struct {
	ID   string
	Name string
}

// Product is the full detail view of one catalog item. Price is the
// backend-formatted display price; the core never computes money.
type Product struct {
	ID          string
	Name        string
	Description string
	Price       string
	Stock       int
	ImageURL    string
}

// CartItem is one line of a cart. ID is the backend line-item id used
// for removal, not the product id.
type CartItem struct {
	ID        string
	ProductID string
	Name      string
	Quantity  int
	Price     string
}

// Cart is the backend's view of a chat's cart, totals included.
type Cart struct {
	Items []CartItem
	Total string
}

// Customer is a backend customer record.
type Customer struct {
	ID    string
	Email string
}
