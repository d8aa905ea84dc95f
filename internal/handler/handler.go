// Package handler exposes the storefront and back-office JSON API over
// net/http, delegating business logic to the injected domain dependencies.
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/bookrack/internal/domain/auth"
	"github.com/xenking/bookrack/internal/domain/book"
	"github.com/xenking/bookrack/internal/domain/cart"
	"github.com/xenking/bookrack/internal/domain/order"
	"github.com/xenking/bookrack/internal/domain/payment"
	"github.com/xenking/bookrack/internal/domain/stats"
	"github.com/xenking/bookrack/internal/domain/user"
)

// Config holds non-dependency configuration for the Handler.
type Config struct {
	// ImageBaseURL is prepended to relative image paths in book responses.
	// When empty, image paths are returned as stored in the database.
	ImageBaseURL string
	// APIKeyPepper is the HMAC key for hashing admin API keys.
	APIKeyPepper string
}

// Dependencies bundles the domain contracts the Handler delegates to.
type Dependencies struct {
	Books      book.Repository
	BookAdmin  book.AdminRepository
	Categories book.CategoryRepository
	Carts      cart.Repository
	Checkout   *order.Service
	Orders     order.Repository
	Users      user.Repository
	Stats      stats.Repository
	APIKeys    auth.Repository
}

// Handler serves the storefront and back-office API.
type Handler struct {
	books      book.Repository
	bookAdmin  book.AdminRepository
	categories book.CategoryRepository
	carts      cart.Repository
	checkout   *order.Service
	orders     order.Repository
	users      user.Repository
	stats      stats.Repository
	apikeys    auth.Repository

	imageBaseURL string
	pepper       []byte
}

// New constructs a Handler with the required domain dependencies.
func New(cfg Config, deps Dependencies) *Handler {
	return &Handler{
		books:        deps.Books,
		bookAdmin:    deps.BookAdmin,
		categories:   deps.Categories,
		carts:        deps.Carts,
		checkout:     deps.Checkout,
		orders:       deps.Orders,
		users:        deps.Users,
		stats:        deps.Stats,
		apikeys:      deps.APIKeys,
		imageBaseURL: cfg.ImageBaseURL,
		pepper:       []byte(cfg.APIKeyPepper),
	}
}

// Routes returns the API mux. Admin routes are wrapped with API key
// authentication; everything else is public.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	// Storefront catalog.
	mux.HandleFunc("GET /api/books", h.listBooks)
	mux.HandleFunc("GET /api/books/featured", h.featuredBooks)
	mux.HandleFunc("GET /api/books/bestsellers", h.bestsellers)
	mux.HandleFunc("GET /api/books/{id}", h.getBook)
	mux.HandleFunc("GET /api/categories", h.listCategories)
	mux.HandleFunc("GET /api/categories/{slug}", h.getCategory)

	// Cart, keyed by the X-Session-ID header.
	mux.HandleFunc("GET /api/cart", h.getCart)
	mux.HandleFunc("DELETE /api/cart", h.clearCart)
	mux.HandleFunc("POST /api/cart/items", h.addCartItem)
	mux.HandleFunc("PUT /api/cart/items/{bookId}", h.updateCartItem)
	mux.HandleFunc("DELETE /api/cart/items/{bookId}", h.removeCartItem)

	// Checkout.
	mux.HandleFunc("POST /api/checkout", h.placeOrder)
	mux.HandleFunc("GET /api/orders/{id}", h.getOrder)

	// Back office.
	admin := h.requireAPIKey
	mux.Handle("GET /api/admin/books", admin(h.adminListBooks))
	mux.Handle("POST /api/admin/books", admin(h.adminCreateBook))
	mux.Handle("PUT /api/admin/books/{id}", admin(h.adminUpdateBook))
	mux.Handle("DELETE /api/admin/books/{id}", admin(h.adminDeleteBook))

	mux.Handle("GET /api/admin/categories", admin(h.adminListCategories))
	mux.Handle("POST /api/admin/categories", admin(h.adminCreateCategory))
	mux.Handle("PUT /api/admin/categories/{id}", admin(h.adminUpdateCategory))
	mux.Handle("DELETE /api/admin/categories/{id}", admin(h.adminDeleteCategory))

	mux.Handle("GET /api/admin/orders", admin(h.adminListOrders))
	mux.Handle("GET /api/admin/orders/{id}", admin(h.adminGetOrder))
	mux.Handle("PATCH /api/admin/orders/{id}/status", admin(h.adminUpdateOrderStatus))

	mux.Handle("GET /api/admin/users", admin(h.adminListUsers))
	mux.Handle("GET /api/admin/users/{id}", admin(h.adminGetUser))
	mux.Handle("PATCH /api/admin/users/{id}/role", admin(h.adminUpdateUserRole))
	mux.Handle("DELETE /api/admin/users/{id}", admin(h.adminDeleteUser))

	mux.Handle("GET /api/admin/stats", admin(h.adminStats))
	mux.Handle("GET /api/admin/analytics", admin(h.adminAnalytics))

	return mux
}

// errorResponse is the uniform error body for every failed request.
type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// respondJSON writes v as a JSON response with the given status.
func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// respondError writes the uniform error body.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, errorResponse{Code: status, Message: message})
}

const maxBodyBytes = 1 << 20

// decodeJSON reads the request body into dst. On failure it writes a 400
// response and returns false.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

// respondDomainError maps domain errors to the API error taxonomy. Unmapped
// errors are logged and returned as an opaque 500.
func respondDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		notFound *order.BookNotFoundError
		lowStock *order.InsufficientStockError
	)
	var status int
	message := err.Error()

	switch {
	case errors.Is(err, book.ErrNotFound),
		errors.Is(err, book.ErrCategoryNotFound),
		errors.Is(err, order.ErrNotFound),
		errors.Is(err, user.ErrNotFound):
		status = http.StatusNotFound

	case errors.Is(err, book.ErrDuplicateSlug),
		errors.Is(err, book.ErrCategoryInUse),
		errors.Is(err, book.ErrBookInUse),
		errors.Is(err, user.ErrLastAdmin):
		status = http.StatusConflict

	case errors.As(err, &lowStock):
		status = http.StatusConflict

	case errors.Is(err, payment.ErrDeclined):
		status = http.StatusPaymentRequired

	case errors.Is(err, order.ErrEmptyCart),
		errors.Is(err, order.ErrInvalidStatus),
		errors.Is(err, user.ErrInvalidRole),
		errors.As(err, &notFound):
		status = http.StatusBadRequest

	default:
		zctx.From(r.Context()).Error("request failed", zap.Error(err))
		status = http.StatusInternalServerError
		message = "internal server error"
	}

	respondError(w, status, message)
}
