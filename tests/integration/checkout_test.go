//go:build integration

package integration

import (
	"math"
	"net/http"
	"net/url"
	"testing"
)

func findBook(t *testing.T, title string) bookResponse {
	t.Helper()

	resp := doGet(t, "/api/books?search="+url.QueryEscape(title))
	defer resp.Body.Close()

	page := decodeJSON[bookPageResponse](t, resp)
	if page.Total != 1 {
		t.Fatalf("search %q: expected 1 book, got %d", title, page.Total)
	}

	return page.Books[0]
}

func addToCart(t *testing.T, headers map[string]string, bookID string, qty int) cartResponse {
	t.Helper()

	resp := doRequest(t, http.MethodPost, "/api/cart/items",
		map[string]string{"bookId": bookID}, headers)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("add to cart: expected 200, got %d", resp.StatusCode)
	}
	cart := decodeJSON[cartResponse](t, resp)
	if qty == 1 {
		return cart
	}

	upd := doRequest(t, http.MethodPut, "/api/cart/items/"+bookID,
		map[string]int{"quantity": qty}, headers)
	defer upd.Body.Close()

	if upd.StatusCode != http.StatusOK {
		t.Fatalf("set quantity: expected 200, got %d", upd.StatusCode)
	}

	return decodeJSON[cartResponse](t, upd)
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 0.005
}

func TestCart_RequiresSession(t *testing.T) {
	resp := doGet(t, "/api/cart")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 without session header, got %d", resp.StatusCode)
	}
}

func TestCheckout_FullFlow(t *testing.T) {
	gatsby := findBook(t, "Great Gatsby")
	orwell := findBook(t, "1984")

	headers := sessionHeaders()

	cart := addToCart(t, headers, gatsby.ID, 1)
	if cart.ItemCount != 1 {
		t.Fatalf("item count after first add: got %d, want 1", cart.ItemCount)
	}

	cart = addToCart(t, headers, orwell.ID, 1)
	if cart.ItemCount != 2 {
		t.Fatalf("item count after second add: got %d, want 2", cart.ItemCount)
	}

	wantSubtotal := gatsby.Price + orwell.Price
	if !almostEqual(cart.Subtotal, wantSubtotal) {
		t.Errorf("cart subtotal: got %v, want %v", cart.Subtotal, wantSubtotal)
	}

	resp := doRequest(t, http.MethodPost, "/api/checkout", checkoutRequest{
		Shipping: shippingInfo{
			Name:       "Jane Doe",
			Email:      "jane@example.com",
			Address:    "1 Riverside Dr",
			City:       "Nairobi",
			PostalCode: "00100",
			Country:    "KE",
		},
		PaymentToken: "tok_integration",
	}, headers)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("checkout: expected 201, got %d", resp.StatusCode)
	}

	order := decodeJSON[orderResponse](t, resp)
	if order.Status != "PENDING" {
		t.Errorf("order status: got %q, want PENDING", order.Status)
	}
	if len(order.Items) != 2 {
		t.Fatalf("order items: got %d, want 2", len(order.Items))
	}

	// Subtotal below the free-shipping threshold, so the flat fee applies.
	wantShipping := 500.0
	wantTax := math.Round(wantSubtotal*8) / 100
	wantTotal := wantSubtotal + wantShipping + wantTax
	if !almostEqual(order.Subtotal, wantSubtotal) {
		t.Errorf("subtotal: got %v, want %v", order.Subtotal, wantSubtotal)
	}
	if !almostEqual(order.Shipping, wantShipping) {
		t.Errorf("shipping: got %v, want %v", order.Shipping, wantShipping)
	}
	if !almostEqual(order.Tax, wantTax) {
		t.Errorf("tax: got %v, want %v", order.Tax, wantTax)
	}
	if !almostEqual(order.Total, wantTotal) {
		t.Errorf("total: got %v, want %v", order.Total, wantTotal)
	}

	// Cart must be emptied after a successful checkout.
	cartResp := doRequest(t, http.MethodGet, "/api/cart", nil, headers)
	defer cartResp.Body.Close()
	cart = decodeJSON[cartResponse](t, cartResp)
	if cart.ItemCount != 0 {
		t.Errorf("cart after checkout: got %d items, want 0", cart.ItemCount)
	}

	// The order is retrievable by the session that placed it.
	orderResp := doRequest(t, http.MethodGet, "/api/orders/"+order.ID, nil, headers)
	defer orderResp.Body.Close()
	if orderResp.StatusCode != http.StatusOK {
		t.Fatalf("get order: expected 200, got %d", orderResp.StatusCode)
	}
	fetched := decodeJSON[orderResponse](t, orderResp)
	if !almostEqual(fetched.Total, order.Total) {
		t.Errorf("fetched total: got %v, want %v", fetched.Total, order.Total)
	}

	// Other sessions get not-found, and a caller with no session at all is
	// rejected outright; the shipping address stays private to the buyer.
	foreign := doRequest(t, http.MethodGet, "/api/orders/"+order.ID, nil,
		map[string]string{"X-Session-ID": "someone-else"})
	defer foreign.Body.Close()
	if foreign.StatusCode != http.StatusNotFound {
		t.Errorf("get order with foreign session: expected 404, got %d", foreign.StatusCode)
	}

	anon := doGet(t, "/api/orders/"+order.ID)
	defer anon.Body.Close()
	if anon.StatusCode != http.StatusBadRequest {
		t.Errorf("get order without session: expected 400, got %d", anon.StatusCode)
	}

	// Stock decremented by the purchase.
	after := findBook(t, "Great Gatsby")
	if after.Stock != gatsby.Stock-1 {
		t.Errorf("stock after checkout: got %d, want %d", after.Stock, gatsby.Stock-1)
	}
}

func TestCheckout_EmptyCart(t *testing.T) {
	headers := map[string]string{"X-Session-ID": "empty-cart-session"}

	resp := doRequest(t, http.MethodPost, "/api/checkout", checkoutRequest{
		Shipping: shippingInfo{
			Name:       "Jane Doe",
			Email:      "jane@example.com",
			Address:    "1 Riverside Dr",
			City:       "Nairobi",
			PostalCode: "00100",
			Country:    "KE",
		},
		PaymentToken: "tok_integration",
	}, headers)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty cart, got %d", resp.StatusCode)
	}
}

func TestAdmin_RequiresAPIKey(t *testing.T) {
	resp := doGet(t, "/api/admin/stats")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without api key, got %d", resp.StatusCode)
	}
}

func TestAdmin_Stats(t *testing.T) {
	resp := doRequest(t, http.MethodGet, "/api/admin/stats", nil, adminHeaders())
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	stats := decodeJSON[map[string]int](t, resp)
	if stats["books"] != 6 {
		t.Errorf("books total: got %d, want 6", stats["books"])
	}
	if stats["categories"] != 6 {
		t.Errorf("categories total: got %d, want 6", stats["categories"])
	}
}

func TestAdmin_OrderStatusTransition(t *testing.T) {
	headers := map[string]string{"X-Session-ID": "admin-flow-session"}
	book := findBook(t, "Atomic Habits")
	addToCart(t, headers, book.ID, 1)

	resp := doRequest(t, http.MethodPost, "/api/checkout", checkoutRequest{
		Shipping: shippingInfo{
			Name:       "John Mwangi",
			Email:      "john@example.com",
			Address:    "22 Moi Ave",
			City:       "Mombasa",
			PostalCode: "80100",
			Country:    "KE",
		},
		PaymentToken: "tok_integration",
	}, headers)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("checkout: expected 201, got %d", resp.StatusCode)
	}
	order := decodeJSON[orderResponse](t, resp)

	patch := doRequest(t, http.MethodPatch, "/api/admin/orders/"+order.ID+"/status",
		map[string]string{"status": "SHIPPED"}, adminHeaders())
	defer patch.Body.Close()
	if patch.StatusCode != http.StatusOK {
		t.Fatalf("status update: expected 200, got %d", patch.StatusCode)
	}
	updated := decodeJSON[orderResponse](t, patch)
	if updated.Status != "SHIPPED" {
		t.Errorf("status: got %q, want SHIPPED", updated.Status)
	}

	bad := doRequest(t, http.MethodPatch, "/api/admin/orders/"+order.ID+"/status",
		map[string]string{"status": "TELEPORTED"}, adminHeaders())
	defer bad.Body.Close()
	if bad.StatusCode != http.StatusBadRequest {
		t.Fatalf("invalid status: expected 400, got %d", bad.StatusCode)
	}

	list := doRequest(t, http.MethodGet, "/api/admin/orders?status=SHIPPED", nil, adminHeaders())
	defer list.Body.Close()
	if list.StatusCode != http.StatusOK {
		t.Fatalf("admin list orders: expected 200, got %d", list.StatusCode)
	}
	page := decodeJSON[struct {
		Orders []orderResponse `json:"orders"`
		Total  int             `json:"total"`
	}](t, list)
	found := false
	for _, o := range page.Orders {
		if o.ID == order.ID {
			found = true
		}
	}
	if !found {
		t.Errorf("shipped order %s missing from filtered admin list", order.ID)
	}
}
