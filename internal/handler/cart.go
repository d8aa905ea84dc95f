package handler

import (
	"net/http"

	"github.com/xenking/bookrack/internal/domain/cart"
)

// sessionHeader identifies the shopper's cart. The storefront generates a
// random session ID on first visit and sends it with every cart request.
const sessionHeader = "X-Session-ID"

// sessionID extracts the cart session from the request. On a missing header
// it writes a 400 response and returns false.
func sessionID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := r.Header.Get(sessionHeader)
	if id == "" {
		respondError(w, http.StatusBadRequest, sessionHeader+" header is required")
		return "", false
	}
	return id, true
}

type cartItemResponse struct {
	BookID   string  `json:"bookId"`
	Title    string  `json:"title"`
	Author   string  `json:"author"`
	Price    float64 `json:"price"`
	Image    string  `json:"image,omitempty"`
	Quantity int     `json:"quantity"`
}

type cartResponse struct {
	Items     []cartItemResponse `json:"items"`
	ItemCount int                `json:"itemCount"`
	Subtotal  float64            `json:"subtotal"`
}

func (h *Handler) toCartResponse(c *cart.Cart) cartResponse {
	items := c.Items()
	resp := cartResponse{
		Items:     make([]cartItemResponse, len(items)),
		ItemCount: c.ItemCount(),
		Subtotal:  c.Subtotal().InexactFloat64(),
	}
	for i, item := range items {
		resp.Items[i] = cartItemResponse{
			BookID:   item.BookID,
			Title:    item.Title,
			Author:   item.Author,
			Price:    item.UnitPrice.InexactFloat64(),
			Image:    h.imageURL(item.Image),
			Quantity: item.Quantity,
		}
	}
	return resp
}

func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionID(w, r)
	if !ok {
		return
	}
	c, err := h.carts.Load(r.Context(), session)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, h.toCartResponse(c))
}

type addCartItemRequest struct {
	BookID string `json:"bookId"`
}

// addCartItem adds one copy of a book to the cart, merging with an existing
// line for the same book.
func (h *Handler) addCartItem(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionID(w, r)
	if !ok {
		return
	}
	var req addCartItemRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.BookID == "" {
		respondError(w, http.StatusBadRequest, "bookId is required")
		return
	}

	b, err := h.books.GetByID(r.Context(), req.BookID)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	c, err := h.carts.Load(r.Context(), session)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	c.Add(cart.Item{
		BookID:    b.ID,
		Title:     b.Title,
		Author:    b.Author,
		UnitPrice: b.Price,
		Image:     b.Image,
	})
	if err := h.carts.Save(r.Context(), session, c); err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, h.toCartResponse(c))
}

type updateCartItemRequest struct {
	Quantity int `json:"quantity"`
}

// updateCartItem sets the quantity of a cart line. Zero or negative removes
// the line; an unknown book ID is a no-op.
func (h *Handler) updateCartItem(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionID(w, r)
	if !ok {
		return
	}
	var req updateCartItemRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	c, err := h.carts.Load(r.Context(), session)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	c.UpdateQuantity(r.PathValue("bookId"), req.Quantity)
	if err := h.carts.Save(r.Context(), session, c); err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, h.toCartResponse(c))
}

func (h *Handler) removeCartItem(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionID(w, r)
	if !ok {
		return
	}
	c, err := h.carts.Load(r.Context(), session)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	c.Remove(r.PathValue("bookId"))
	if err := h.carts.Save(r.Context(), session, c); err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, h.toCartResponse(c))
}

func (h *Handler) clearCart(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionID(w, r)
	if !ok {
		return
	}
	if err := h.carts.Clear(r.Context(), session); err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, h.toCartResponse(cart.New()))
}
