package handler

import (
	"net/http"
	"time"

	"github.com/xenking/bookrack/internal/domain/order"
)

// userHeader optionally attributes a checkout to a signed-in shopper.
const userHeader = "X-User-ID"

type orderItemResponse struct {
	ID        string  `json:"id"`
	BookID    string  `json:"bookId"`
	Title     string  `json:"title"`
	Author    string  `json:"author"`
	Image     string  `json:"image,omitempty"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unitPrice"`
}

type shippingInfoJSON struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

type orderResponse struct {
	ID         string              `json:"id"`
	UserID     string              `json:"userId,omitempty"`
	UserName   string              `json:"userName,omitempty"`
	UserEmail  string              `json:"userEmail,omitempty"`
	Subtotal   float64             `json:"subtotal"`
	Shipping   float64             `json:"shipping"`
	Tax        float64             `json:"tax"`
	Total      float64             `json:"total"`
	Status     string              `json:"status"`
	PaymentRef string              `json:"paymentRef,omitempty"`
	ShippingTo shippingInfoJSON    `json:"shippingInfo"`
	Items      []orderItemResponse `json:"items"`
	CreatedAt  time.Time           `json:"createdAt"`
	UpdatedAt  time.Time           `json:"updatedAt"`
}

func (h *Handler) toOrderResponse(o *order.Order) orderResponse {
	items := make([]orderItemResponse, len(o.Items))
	for i, item := range o.Items {
		items[i] = orderItemResponse{
			ID:        item.ID,
			BookID:    item.BookID,
			Title:     item.Title,
			Author:    item.Author,
			Image:     h.imageURL(item.Image),
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice.InexactFloat64(),
		}
	}
	return orderResponse{
		ID:         o.ID,
		UserID:     o.UserID,
		UserName:   o.UserName,
		UserEmail:  o.UserEmail,
		Subtotal:   o.Subtotal.InexactFloat64(),
		Shipping:   o.Shipping.InexactFloat64(),
		Tax:        o.Tax.InexactFloat64(),
		Total:      o.Total.InexactFloat64(),
		Status:     string(o.Status),
		PaymentRef: o.PaymentRef,
		ShippingTo: shippingInfoJSON{
			Name:       o.ShippingInfo.Name,
			Email:      o.ShippingInfo.Email,
			Address:    o.ShippingInfo.Address,
			City:       o.ShippingInfo.City,
			PostalCode: o.ShippingInfo.PostalCode,
			Country:    o.ShippingInfo.Country,
		},
		Items:     items,
		CreatedAt: o.CreatedAt,
		UpdatedAt: o.UpdatedAt,
	}
}

type checkoutRequest struct {
	Shipping     shippingInfoJSON `json:"shipping"`
	PaymentToken string           `json:"paymentToken"`
}

// placeOrder projects the session's cart into a persisted order.
func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionID(w, r)
	if !ok {
		return
	}
	var req checkoutRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	shipping := order.ShippingInfo{
		Name:       req.Shipping.Name,
		Email:      req.Shipping.Email,
		Address:    req.Shipping.Address,
		City:       req.Shipping.City,
		PostalCode: req.Shipping.PostalCode,
		Country:    req.Shipping.Country,
	}
	if err := shipping.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	c, err := h.carts.Load(r.Context(), session)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	o, err := h.checkout.Checkout(r.Context(), order.CheckoutRequest{
		SessionID:    session,
		UserID:       r.Header.Get(userHeader),
		Cart:         c,
		Shipping:     shipping,
		PaymentToken: req.PaymentToken,
	})
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, h.toOrderResponse(o))
}

// getOrder serves the post-checkout confirmation view. The order carries the
// shopper's address and email, so it is only returned to the session that
// placed it; any other caller sees not-found rather than a hint the order
// exists.
func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionID(w, r)
	if !ok {
		return
	}
	o, err := h.orders.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	if o.SessionID != session {
		respondDomainError(w, r, order.ErrNotFound)
		return
	}
	respondJSON(w, http.StatusOK, h.toOrderResponse(o))
}
