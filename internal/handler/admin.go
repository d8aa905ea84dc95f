package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/xenking/bookrack/internal/domain/book"
	"github.com/xenking/bookrack/internal/domain/order"
	"github.com/xenking/bookrack/internal/domain/user"
)

// bookRequest is the admin write shape for catalog entries.
type bookRequest struct {
	Title       string  `json:"title"`
	Author      string  `json:"author"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Image       string  `json:"image"`
	ISBN        string  `json:"isbn"`
	Pages       int     `json:"pages"`
	PublishedAt string  `json:"publishedAt"`
	Stock       int     `json:"stock"`
	Featured    bool    `json:"featured"`
	CategoryID  string  `json:"categoryId"`
}

func (req bookRequest) toDomain(id string) (*book.Book, error) {
	b := &book.Book{
		ID:          id,
		Title:       strings.TrimSpace(req.Title),
		Author:      strings.TrimSpace(req.Author),
		Description: req.Description,
		Price:       decimal.NewFromFloat(req.Price).Round(2),
		Image:       req.Image,
		ISBN:        req.ISBN,
		Pages:       req.Pages,
		Stock:       req.Stock,
		Featured:    req.Featured,
		CategoryID:  req.CategoryID,
	}
	if req.PublishedAt != "" {
		t, err := time.Parse(time.DateOnly, req.PublishedAt)
		if err != nil {
			return nil, errInvalidPublishedAt
		}
		b.PublishedAt = &t
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return b, nil
}

var errInvalidPublishedAt = validationError("publishedAt must be formatted YYYY-MM-DD")

type validationError string

func (e validationError) Error() string { return string(e) }

func (h *Handler) adminListBooks(w http.ResponseWriter, r *http.Request) {
	v := r.URL.Query()
	q := book.ParseQuery(v.Get("search"), "", "", v.Get("sort"), v.Get("page"), v.Get("pageSize"))

	page, err := h.books.Search(r.Context(), q)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, h.toBookPage(page))
}

func (h *Handler) adminCreateBook(w http.ResponseWriter, r *http.Request) {
	var req bookRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	b, err := req.toDomain(uuid.New().String())
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.bookAdmin.Create(r.Context(), b); err != nil {
		respondDomainError(w, r, err)
		return
	}
	created, err := h.books.GetByID(r.Context(), b.ID)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, h.toBookResponse(*created))
}

func (h *Handler) adminUpdateBook(w http.ResponseWriter, r *http.Request) {
	var req bookRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	b, err := req.toDomain(r.PathValue("id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.bookAdmin.Update(r.Context(), b); err != nil {
		respondDomainError(w, r, err)
		return
	}
	updated, err := h.books.GetByID(r.Context(), b.ID)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, h.toBookResponse(*updated))
}

func (h *Handler) adminDeleteBook(w http.ResponseWriter, r *http.Request) {
	if err := h.bookAdmin.Delete(r.Context(), r.PathValue("id")); err != nil {
		respondDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type categoryRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (req categoryRequest) toDomain(id string) (*book.Category, error) {
	name := strings.TrimSpace(req.Name)
	slug := book.Slugify(name)
	if name == "" || slug == "" {
		return nil, validationError("name is required")
	}
	return &book.Category{
		ID:          id,
		Name:        name,
		Slug:        slug,
		Description: req.Description,
	}, nil
}

func (h *Handler) adminListCategories(w http.ResponseWriter, r *http.Request) {
	h.listCategories(w, r)
}

func (h *Handler) adminCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	c, err := req.toDomain(uuid.New().String())
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.categories.Create(r.Context(), c); err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, toCategoryResponse(*c))
}

func (h *Handler) adminUpdateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	c, err := req.toDomain(r.PathValue("id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.categories.Update(r.Context(), c); err != nil {
		respondDomainError(w, r, err)
		return
	}
	updated, err := h.categories.GetByID(r.Context(), c.ID)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toCategoryResponse(*updated))
}

func (h *Handler) adminDeleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := h.categories.Delete(r.Context(), r.PathValue("id")); err != nil {
		respondDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

const (
	defaultAdminPageSize = 20
	maxAdminPageSize     = 100
)

// parsePage reads 1-based pagination from query values, falling back to
// defaults on malformed input.
func parsePage(v string, def, max int) int {
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return def
	}
	if n > max {
		return max
	}
	return n
}

type orderListResponse struct {
	Orders   []orderResponse `json:"orders"`
	Total    int             `json:"total"`
	Page     int             `json:"page"`
	PageSize int             `json:"pageSize"`
}

func (h *Handler) adminListOrders(w http.ResponseWriter, r *http.Request) {
	v := r.URL.Query()
	f := order.ListFilter{
		UserID:   v.Get("userId"),
		Page:     parsePage(v.Get("page"), 1, 1<<30),
		PageSize: parsePage(v.Get("pageSize"), defaultAdminPageSize, maxAdminPageSize),
	}
	if s := v.Get("status"); s != "" {
		status, err := order.ParseStatus(s)
		if err != nil {
			respondDomainError(w, r, err)
			return
		}
		f.Status = status
	}

	orders, total, err := h.orders.List(r.Context(), f)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	resp := orderListResponse{
		Orders:   make([]orderResponse, len(orders)),
		Total:    total,
		Page:     f.Page,
		PageSize: f.PageSize,
	}
	for i := range orders {
		resp.Orders[i] = h.toOrderResponse(&orders[i])
	}
	respondJSON(w, http.StatusOK, resp)
}

// adminGetOrder is the back-office lookup: no session ownership applies.
func (h *Handler) adminGetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, h.toOrderResponse(o))
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) adminUpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	status, err := order.ParseStatus(req.Status)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	o, err := h.orders.UpdateStatus(r.Context(), r.PathValue("id"), status)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, h.toOrderResponse(o))
}

type userResponse struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Role       string    `json:"role"`
	OrderCount int       `json:"orderCount"`
	CreatedAt  time.Time `json:"createdAt"`
}

func toUserResponse(u user.User) userResponse {
	return userResponse{
		ID:         u.ID,
		Name:       u.Name,
		Email:      u.Email,
		Role:       string(u.Role),
		OrderCount: u.OrderCount,
		CreatedAt:  u.CreatedAt,
	}
}

func (h *Handler) adminListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context())
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	resp := make([]userResponse, len(users))
	for i, u := range users {
		resp[i] = toUserResponse(u)
	}
	respondJSON(w, http.StatusOK, map[string]any{"users": resp})
}

const recentUserOrders = 5

// adminGetUser returns a user with their most recent orders.
func (h *Handler) adminGetUser(w http.ResponseWriter, r *http.Request) {
	u, err := h.users.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	orders, _, err := h.orders.List(r.Context(), order.ListFilter{
		UserID:   u.ID,
		Page:     1,
		PageSize: recentUserOrders,
	})
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	recent := make([]orderResponse, len(orders))
	for i := range orders {
		recent[i] = h.toOrderResponse(&orders[i])
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"user":         toUserResponse(*u),
		"recentOrders": recent,
	})
}

type updateRoleRequest struct {
	Role string `json:"role"`
}

func (h *Handler) adminUpdateUserRole(w http.ResponseWriter, r *http.Request) {
	var req updateRoleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	role, err := user.ParseRole(req.Role)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	u, err := h.users.UpdateRole(r.Context(), r.PathValue("id"), role)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toUserResponse(*u))
}

func (h *Handler) adminDeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := h.users.Delete(r.Context(), r.PathValue("id")); err != nil {
		respondDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) adminStats(w http.ResponseWriter, r *http.Request) {
	totals, err := h.stats.Totals(r.Context())
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{
		"books":      totals.Books,
		"categories": totals.Categories,
		"orders":     totals.Orders,
		"users":      totals.Users,
	})
}

const (
	recentOrderWindow  = 7 * 24 * time.Hour
	recentOrderLimit   = 10
	topBookLimit       = 5
	revenueWindowMonth = 6
)

// adminAnalytics assembles the analytics panel: recent orders, status
// distribution, top sellers, and monthly revenue.
func (h *Handler) adminAnalytics(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	now := time.Now()

	totals, err := h.stats.Totals(ctx)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	recent, err := h.stats.RecentOrders(ctx, now.Add(-recentOrderWindow), recentOrderLimit)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	statuses, err := h.stats.StatusDistribution(ctx)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	topBooks, err := h.stats.TopBooks(ctx, topBookLimit)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	revenue, err := h.stats.MonthlyRevenue(ctx, now.AddDate(0, -revenueWindowMonth, 0))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	recentResp := make([]orderResponse, len(recent))
	for i := range recent {
		recentResp[i] = h.toOrderResponse(&recent[i])
	}

	type statusCountJSON struct {
		Status string `json:"status"`
		Count  int    `json:"count"`
	}
	statusResp := make([]statusCountJSON, len(statuses))
	for i, s := range statuses {
		statusResp[i] = statusCountJSON{Status: string(s.Status), Count: s.Count}
	}

	type topBookJSON struct {
		BookID     string  `json:"bookId"`
		Title      string  `json:"title"`
		Author     string  `json:"author"`
		Price      float64 `json:"price"`
		Image      string  `json:"image,omitempty"`
		TotalSold  int     `json:"totalSold"`
		OrderCount int     `json:"orderCount"`
	}
	topResp := make([]topBookJSON, len(topBooks))
	for i, t := range topBooks {
		topResp[i] = topBookJSON{
			BookID:     t.BookID,
			Title:      t.Title,
			Author:     t.Author,
			Price:      t.Price.InexactFloat64(),
			Image:      h.imageURL(t.Image),
			TotalSold:  t.TotalSold,
			OrderCount: t.OrderCount,
		}
	}

	type monthRevenueJSON struct {
		Month   string  `json:"month"`
		Revenue float64 `json:"revenue"`
	}
	revenueResp := make([]monthRevenueJSON, len(revenue))
	for i, m := range revenue {
		revenueResp[i] = monthRevenueJSON{Month: m.Month, Revenue: m.Revenue.InexactFloat64()}
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"totals": map[string]int{
			"books":      totals.Books,
			"categories": totals.Categories,
			"orders":     totals.Orders,
			"users":      totals.Users,
		},
		"recentOrders":       recentResp,
		"statusDistribution": statusResp,
		"topBooks":           topResp,
		"monthlyRevenue":     revenueResp,
	})
}
