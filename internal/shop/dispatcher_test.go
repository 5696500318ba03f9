package shop

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"fish-shop-bot/internal/commerce"
	"fish-shop-bot/internal/session"
	"fish-shop-bot/internal/storage"
)

type fakeStore struct {
	mu     sync.Mutex
	states map[int64]session.State
	setErr error
	sets   int
}

func newFakeStore() *fakeStore {
	return &fakeStore{states: make(map[int64]session.State)}
}

func (f *fakeStore) Get(_ context.Context, chatID int64) (session.State, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.states[chatID]
	if !ok {
		return "", session.ErrNotFound
	}
	return s, nil
}

func (f *fakeStore) Set(_ context.Context, chatID int64, state session.State) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setErr != nil {
		return f.setErr
	}
	f.states[chatID] = state
	f.sets++
	return nil
}

// fakeCatalog keeps cart contents per chat so mutation sequencing is
// observable. Line prices are qty*12 and the total follows the items,
// making "backend total" assertions concrete.
type fakeCatalog struct {
	mu        sync.Mutex
	products  []commerce.ProductRef
	details   map[string]commerce.Product
	carts     map[int64][]commerce.CartItem
	customers map[string]commerce.Customer
	failWith  error
	onCall    func()
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		products: []commerce.ProductRef{
			{ID: "P1", Name: "Salmon"},
			{ID: "P2", Name: "Tuna"},
		},
		details: map[string]commerce.Product{
			"P1": {ID: "P1", Name: "Salmon", Description: "Fresh atlantic salmon", Price: "$12.00", Stock: 17, ImageURL: "https://cdn.example/salmon.jpg"},
			"P2": {ID: "P2", Name: "Tuna", Description: "Yellowfin tuna", Price: "$15.00", Stock: 4, ImageURL: ""},
		},
		carts:     make(map[int64][]commerce.CartItem),
		customers: make(map[string]commerce.Customer),
	}
}

func (f *fakeCatalog) call() error {
	if f.onCall != nil {
		f.onCall()
	}
	return f.failWith
}

func (f *fakeCatalog) cartFor(chatID int64) commerce.Cart {
	items := f.carts[chatID]
	total := 0
	for _, item := range items {
		total += item.Quantity * 12
	}
	return commerce.Cart{
		Items: append([]commerce.CartItem(nil), items...),
		Total: fmt.Sprintf("$%d.00", total),
	}
}

func (f *fakeCatalog) Products(context.Context) ([]commerce.ProductRef, error) {
	if err := f.call(); err != nil {
		return nil, err
	}
	return f.products, nil
}

func (f *fakeCatalog) Product(_ context.Context, productID string) (commerce.Product, error) {
	if err := f.call(); err != nil {
		return commerce.Product{}, err
	}
	p, ok := f.details[productID]
	if !ok {
		return commerce.Product{}, &commerce.CatalogError{Op: "get product", StatusCode: 404}
	}
	return p, nil
}

func (f *fakeCatalog) Cart(_ context.Context, chatID int64) (commerce.Cart, error) {
	if err := f.call(); err != nil {
		return commerce.Cart{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cartFor(chatID), nil
}

func (f *fakeCatalog) AddItem(_ context.Context, chatID int64, productID string, quantity int) (commerce.Cart, error) {
	if err := f.call(); err != nil {
		return commerce.Cart{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.carts[chatID] = append(f.carts[chatID], commerce.CartItem{
		ID:        "L-" + productID,
		ProductID: productID,
		Name:      f.details[productID].Name,
		Quantity:  quantity,
		Price:     fmt.Sprintf("$%d.00", quantity*12),
	})
	return f.cartFor(chatID), nil
}

func (f *fakeCatalog) RemoveItem(_ context.Context, chatID int64, itemID string) (commerce.Cart, error) {
	if err := f.call(); err != nil {
		return commerce.Cart{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.carts[chatID][:0]
	for _, item := range f.carts[chatID] {
		if item.ID != itemID {
			kept = append(kept, item)
		}
	}
	f.carts[chatID] = kept
	return f.cartFor(chatID), nil
}

func (f *fakeCatalog) CreateCustomer(_ context.Context, chatID int64, email string) (string, error) {
	if err := f.call(); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	id := fmt.Sprintf("C-%d", chatID)
	f.customers[id] = commerce.Customer{ID: id, Email: email}
	return id, nil
}

func (f *fakeCatalog) Customer(_ context.Context, customerID string) (commerce.Customer, error) {
	if err := f.call(); err != nil {
		return commerce.Customer{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.customers[customerID]
	if !ok {
		return commerce.Customer{}, &commerce.CatalogError{Op: "get customer", StatusCode: 404}
	}
	return c, nil
}

// gatewayCall is one recorded render-surface operation.
type gatewayCall struct {
	op       string // "text", "photo", "delete"
	chatID   int64
	text     string // text or caption
	photoURL string
	keyboard [][]Button
	msgID    int
}

type fakeGateway struct {
	mu    sync.Mutex
	calls []gatewayCall
	err   error
}

func (f *fakeGateway) SendText(chatID int64, text string, keyboard [][]Button) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.calls = append(f.calls, gatewayCall{op: "text", chatID: chatID, text: text, keyboard: keyboard})
	return nil
}

func (f *fakeGateway) SendPhoto(chatID int64, photoURL, caption string, keyboard [][]Button) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.calls = append(f.calls, gatewayCall{op: "photo", chatID: chatID, text: caption, photoURL: photoURL, keyboard: keyboard})
	return nil
}

func (f *fakeGateway) DeleteMessage(chatID int64, messageID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.calls = append(f.calls, gatewayCall{op: "delete", chatID: chatID, msgID: messageID})
	return nil
}

func (f *fakeGateway) last(t *testing.T) gatewayCall {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) == 0 {
		t.Fatal("no gateway calls recorded")
	}
	return f.calls[len(f.calls)-1]
}

func newTestDispatcher(opts ...DispatcherOption) (*Dispatcher, *fakeStore, *fakeCatalog, *fakeGateway) {
	store := newFakeStore()
	catalog := newFakeCatalog()
	gw := &fakeGateway{}
	return New(store, catalog, gw, opts...), store, catalog, gw
}

func handle(t *testing.T, d *Dispatcher, chatID int64, msgID int, payload string) {
	t.Helper()
	if err := d.Handle(context.Background(), Event{ChatID: chatID, MessageID: msgID, Payload: payload}); err != nil {
		t.Fatalf("handle %q: %v", payload, err)
	}
}

func TestFirstContactWithoutStart_FailsWithUnknownUser(t *testing.T) {
	d, store, _, gw := newTestDispatcher()

	err := d.Handle(context.Background(), Event{ChatID: 7, MessageID: 1, Payload: "hello"})
	if !errors.Is(err, ErrUnknownUser) {
		t.Fatalf("expected ErrUnknownUser, got %v", err)
	}
	if len(gw.calls) != 0 {
		t.Fatalf("no renders expected, got %+v", gw.calls)
	}
	if store.sets != 0 {
		t.Fatalf("state must not be written, got %d writes", store.sets)
	}
}

func TestStart_RendersCatalogAndPersistsMenu(t *testing.T) {
	d, store, _, gw := newTestDispatcher()

	handle(t, d, 42, 1, "/start")

	if got := store.states[42]; got != session.StateMenu {
		t.Fatalf("expected MENU persisted, got %q", got)
	}
	if len(gw.calls) != 1 {
		t.Fatalf("expected only the catalog send (no retraction for /start), got %+v", gw.calls)
	}
	menu := gw.calls[0]
	if menu.op != "text" || menu.text != "MAIN MENU" {
		t.Fatalf("unexpected screen: %+v", menu)
	}
	if len(menu.keyboard) != 3 {
		t.Fatalf("expected 2 product rows + cart row, got %+v", menu.keyboard)
	}
	if menu.keyboard[0][0].Data != "P1" || menu.keyboard[1][0].Data != "P2" {
		t.Fatalf("catalog order lost: %+v", menu.keyboard)
	}
	if menu.keyboard[2][0].Data != "goto_cart" {
		t.Fatalf("cart row missing: %+v", menu.keyboard)
	}
}

func TestStart_NonResetArrivalRetractsBeforeRender(t *testing.T) {
	d, store, _, gw := newTestDispatcher()
	store.states[42] = session.StateStart

	handle(t, d, 42, 5, "anything")

	if len(gw.calls) != 2 || gw.calls[0].op != "delete" || gw.calls[1].op != "text" {
		t.Fatalf("expected retract-then-render, got %+v", gw.calls)
	}
	if gw.calls[0].msgID != 5 {
		t.Fatalf("wrong message retracted: %+v", gw.calls[0])
	}
}

func TestMenu_ProductSelectionShowsDetail(t *testing.T) {
	d, store, _, gw := newTestDispatcher()
	store.states[42] = session.StateMenu

	handle(t, d, 42, 2, "P1")

	if got := store.states[42]; got != session.StateProductDetail {
		t.Fatalf("expected PRODUCT_DETAIL, got %q", got)
	}
	detail := gw.last(t)
	if detail.op != "photo" || detail.photoURL != "https://cdn.example/salmon.jpg" {
		t.Fatalf("expected photo screen: %+v", detail)
	}
	for _, want := range []string{"Salmon", "Fresh atlantic salmon", "$12.00 per kg", "17 on stock"} {
		if !strings.Contains(detail.text, want) {
			t.Fatalf("caption missing %q: %q", want, detail.text)
		}
	}
	quantities := detail.keyboard[0]
	if len(quantities) != 3 || quantities[0].Data != "P1:1" || quantities[1].Data != "P1:3" || quantities[2].Data != "P1:5" {
		t.Fatalf("unexpected quantity row: %+v", quantities)
	}
}

func TestMenu_ProductWithoutImageFallsBackToText(t *testing.T) {
	d, store, _, gw := newTestDispatcher()
	store.states[42] = session.StateMenu

	handle(t, d, 42, 2, "P2")

	if got := gw.last(t); got.op != "text" {
		t.Fatalf("expected text fallback, got %+v", got)
	}
}

func TestMenu_GotoCartShowsCart(t *testing.T) {
	d, store, _, gw := newTestDispatcher()
	store.states[42] = session.StateMenu

	handle(t, d, 42, 2, "goto_cart")

	if got := store.states[42]; got != session.StateCart {
		t.Fatalf("expected CART, got %q", got)
	}
	cart := gw.last(t)
	if !strings.Contains(cart.text, "YOUR CART:") || !strings.Contains(cart.text, "Total:$0.00") {
		t.Fatalf("unexpected cart screen: %q", cart.text)
	}
}

func TestProductDetail_AddItemRendersCart(t *testing.T) {
	d, store, catalog, gw := newTestDispatcher()
	store.states[42] = session.StateProductDetail

	handle(t, d, 42, 3, "P1:3")

	if got := store.states[42]; got != session.StateCart {
		t.Fatalf("expected CART, got %q", got)
	}
	if items := catalog.carts[42]; len(items) != 1 || items[0].ProductID != "P1" || items[0].Quantity != 3 {
		t.Fatalf("cart mutation lost: %+v", items)
	}
	cart := gw.last(t)
	if !strings.Contains(cart.text, "Salmon: 3 kg for $36.00") {
		t.Fatalf("line item missing: %q", cart.text)
	}
	if cart.keyboard[0][0].Label != "Delete Salmon" || cart.keyboard[0][0].Data != "L-P1" {
		t.Fatalf("removal button missing: %+v", cart.keyboard)
	}
}

func TestProductDetail_MalformedQuantityRejected(t *testing.T) {
	d, store, catalog, gw := newTestDispatcher()
	store.states[42] = session.StateProductDetail

	err := d.Handle(context.Background(), Event{ChatID: 42, MessageID: 3, Payload: "P1:x"})
	var badErr *BadPayloadError
	if !errors.As(err, &badErr) {
		t.Fatalf("expected BadPayloadError, got %v", err)
	}
	if len(catalog.carts[42]) != 0 {
		t.Fatalf("no mutation expected: %+v", catalog.carts[42])
	}
	if len(gw.calls) != 0 {
		t.Fatalf("no renders expected: %+v", gw.calls)
	}
	if got := store.states[42]; got != session.StateProductDetail {
		t.Fatalf("state must not advance, got %q", got)
	}
}

func TestCart_RemoveLineStaysInCart(t *testing.T) {
	d, store, catalog, gw := newTestDispatcher()
	store.states[42] = session.StateCart
	catalog.carts[42] = []commerce.CartItem{{ID: "L-P1", ProductID: "P1", Name: "Salmon", Quantity: 3, Price: "$36.00"}}

	handle(t, d, 42, 4, "L-P1")

	if got := store.states[42]; got != session.StateCart {
		t.Fatalf("expected CART, got %q", got)
	}
	if len(catalog.carts[42]) != 0 {
		t.Fatalf("line not removed: %+v", catalog.carts[42])
	}
	cart := gw.last(t)
	if !strings.Contains(cart.text, "Total:$0.00") {
		t.Fatalf("expected empty-cart total from backend: %q", cart.text)
	}
}

func TestCart_ProceedToOrderPromptsForContact(t *testing.T) {
	d, store, _, gw := newTestDispatcher()
	store.states[42] = session.StateCart

	handle(t, d, 42, 4, "goto_contacts")

	if got := store.states[42]; got != session.StateAwaitingContact {
		t.Fatalf("expected AWAITING_CONTACT, got %q", got)
	}
	prompt := gw.last(t)
	if !strings.Contains(prompt.text, "send us your email") {
		t.Fatalf("unexpected prompt: %q", prompt.text)
	}
}

func TestContact_CreatesCustomerAndRestartsFlow(t *testing.T) {
	d, store, catalog, gw := newTestDispatcher()
	store.states[42] = session.StateAwaitingContact

	handle(t, d, 42, 5, "a@b.com")

	if got := store.states[42]; got != session.StateStart {
		t.Fatalf("expected flow to loop back to START, got %q", got)
	}
	if c := catalog.customers["C-42"]; c.Email != "a@b.com" {
		t.Fatalf("customer not created: %+v", catalog.customers)
	}
	confirm := gw.last(t)
	if !strings.Contains(confirm.text, "a@b.com") {
		t.Fatalf("confirmation should echo the stored email: %q", confirm.text)
	}
}

func TestCatalogFailure_DoesNotAdvanceState(t *testing.T) {
	d, store, catalog, _ := newTestDispatcher()
	store.states[42] = session.StateMenu
	catalog.failWith = &commerce.CatalogError{Op: "get product", StatusCode: 500}

	err := d.Handle(context.Background(), Event{ChatID: 42, MessageID: 2, Payload: "P1"})
	var catErr *commerce.CatalogError
	if !errors.As(err, &catErr) {
		t.Fatalf("expected CatalogError to propagate, got %v", err)
	}
	if got := store.states[42]; got != session.StateMenu {
		t.Fatalf("pre-event state must survive the failure, got %q", got)
	}
}

func TestGatewayFailure_DoesNotAdvanceState(t *testing.T) {
	d, store, _, gw := newTestDispatcher()
	store.states[42] = session.StateMenu
	gw.err = errors.New("telegram unavailable")

	if err := d.Handle(context.Background(), Event{ChatID: 42, MessageID: 2, Payload: "goto_cart"}); err == nil {
		t.Fatal("expected gateway error to propagate")
	}
	if got := store.states[42]; got != session.StateMenu {
		t.Fatalf("state advanced past a failed render: %q", got)
	}
}

func TestInvalidStoredState_SurfacesWithContext(t *testing.T) {
	d, store, _, _ := newTestDispatcher()
	store.states[42] = session.State("HANDLE_MENU")

	err := d.Handle(context.Background(), Event{ChatID: 42, MessageID: 2, Payload: "P1"})
	var invErr *InvalidStateError
	if !errors.As(err, &invErr) {
		t.Fatalf("expected InvalidStateError, got %v", err)
	}
	if invErr.ChatID != 42 || invErr.Tag != "HANDLE_MENU" {
		t.Fatalf("diagnostic context missing: %+v", invErr)
	}
}

func TestScenario_FullPurchaseFlow(t *testing.T) {
	d, store, catalog, gw := newTestDispatcher()
	ctx := context.Background()

	steps := []struct {
		payload string
		want    session.State
	}{
		{"/start", session.StateMenu},
		{"P1", session.StateProductDetail},
		{"P1:3", session.StateCart},
		{"goto_contacts", session.StateAwaitingContact},
		{"a@b.com", session.StateStart},
	}
	for i, step := range steps {
		if err := d.Handle(ctx, Event{ChatID: 42, MessageID: i + 1, Payload: step.payload}); err != nil {
			t.Fatalf("step %q: %v", step.payload, err)
		}
		got, err := store.Get(ctx, 42)
		if err != nil {
			t.Fatalf("step %q: read state: %v", step.payload, err)
		}
		if got != step.want {
			t.Fatalf("step %q: persisted %q, want %q", step.payload, got, step.want)
		}
	}

	if items := catalog.carts[42]; len(items) != 1 || items[0].ProductID != "P1" || items[0].Quantity != 3 {
		t.Fatalf("unexpected final cart: %+v", items)
	}
	if c := catalog.customers["C-42"]; c.Email != "a@b.com" {
		t.Fatalf("customer not created for chat 42: %+v", catalog.customers)
	}
	if confirm := gw.last(t); !strings.Contains(confirm.text, "a@b.com") {
		t.Fatalf("missing confirmation: %q", confirm.text)
	}
}

func TestJournal_RecordsTransitions(t *testing.T) {
	journal := &memJournal{}
	d, _, _, _ := newTestDispatcher(WithJournal(journal))

	handle(t, d, 42, 1, "/start")

	if len(journal.records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(journal.records))
	}
	rec := journal.records[0]
	if rec.ChatID != 42 || rec.FromState != "START" || rec.ToState != "MENU" || rec.Payload != "/start" {
		t.Fatalf("unexpected record: %+v", rec)
	}
}

type memJournal struct {
	mu      sync.Mutex
	records []storage.Interaction
}

func (m *memJournal) AppendInteraction(rec storage.Interaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
	return nil
}

func TestConcurrentEvents_SerializedPerChat(t *testing.T) {
	d, store, catalog, _ := newTestDispatcher()
	store.states[42] = session.StateMenu

	var mu sync.Mutex
	inflight, maxInflight := 0, 0
	catalog.onCall = func() {
		mu.Lock()
		inflight++
		if inflight > maxInflight {
			maxInflight = inflight
		}
		mu.Unlock()
		time.Sleep(2 * time.Millisecond)
		mu.Lock()
		inflight--
		mu.Unlock()
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(msgID int) {
			defer wg.Done()
			_ = d.Handle(context.Background(), Event{ChatID: 42, MessageID: msgID, Payload: "goto_cart"})
		}(i + 1)
	}
	wg.Wait()

	if maxInflight != 1 {
		t.Fatalf("events for one chat overlapped: max inflight %d", maxInflight)
	}
	if got := store.states[42]; got != session.StateCart {
		t.Fatalf("expected CART after duplicates, got %q", got)
	}
}
