package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/xenking/bookrack/internal/domain/book"
)

// bookResponse is the JSON shape of a catalog entry. Prices cross the JSON
// boundary as numbers; decimals live only inside the domain.
type bookResponse struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Author      string  `json:"author"`
	Description string  `json:"description,omitempty"`
	Price       float64 `json:"price"`
	Image       string  `json:"image,omitempty"`
	ISBN        string  `json:"isbn,omitempty"`
	Pages       int     `json:"pages,omitempty"`
	PublishedAt *string `json:"publishedAt,omitempty"`
	Stock       int     `json:"stock"`
	Featured    bool    `json:"featured"`

	Category categoryRef `json:"category"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// categoryRef is the category summary embedded in book responses.
type categoryRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type bookPageResponse struct {
	Books     []bookResponse `json:"books"`
	Total     int            `json:"total"`
	Page      int            `json:"page"`
	PageSize  int            `json:"pageSize"`
	PageCount int            `json:"pageCount"`
}

type bestsellerResponse struct {
	bookResponse
	TotalSold  int `json:"totalSold"`
	OrderCount int `json:"orderCount"`
}

func (h *Handler) toBookResponse(b book.Book) bookResponse {
	resp := bookResponse{
		ID:          b.ID,
		Title:       b.Title,
		Author:      b.Author,
		Description: b.Description,
		Price:       b.Price.InexactFloat64(),
		Image:       h.imageURL(b.Image),
		ISBN:        b.ISBN,
		Pages:       b.Pages,
		Stock:       b.Stock,
		Featured:    b.Featured,
		Category: categoryRef{
			ID:   b.CategoryID,
			Name: b.CategoryName,
			Slug: b.CategorySlug,
		},
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	}
	if b.PublishedAt != nil {
		s := b.PublishedAt.Format(time.DateOnly)
		resp.PublishedAt = &s
	}
	return resp
}

// imageURL prepends the configured base URL to relative image paths.
// Absolute URLs are returned unchanged.
func (h *Handler) imageURL(image string) string {
	if image == "" || h.imageBaseURL == "" || strings.Contains(image, "://") {
		return image
	}
	return strings.TrimSuffix(h.imageBaseURL, "/") + "/" + strings.TrimPrefix(image, "/")
}

func (h *Handler) toBookPage(p book.Page) bookPageResponse {
	books := make([]bookResponse, len(p.Books))
	for i, b := range p.Books {
		books[i] = h.toBookResponse(b)
	}
	return bookPageResponse{
		Books:     books,
		Total:     p.Total,
		Page:      p.Number,
		PageSize:  p.PageSize,
		PageCount: p.PageCount(),
	}
}

// listBooks runs the catalog query. Malformed filter values fall back to
// defaults rather than failing the request.
func (h *Handler) listBooks(w http.ResponseWriter, r *http.Request) {
	v := r.URL.Query()
	q := book.ParseQuery(
		v.Get("search"),
		v.Get("categories"),
		v.Get("price"),
		v.Get("sort"),
		v.Get("page"),
		v.Get("pageSize"),
	)

	page, err := h.books.Search(r.Context(), q)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, h.toBookPage(page))
}

func (h *Handler) getBook(w http.ResponseWriter, r *http.Request) {
	b, err := h.books.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, h.toBookResponse(*b))
}

const storefrontListLimit = 8

func (h *Handler) featuredBooks(w http.ResponseWriter, r *http.Request) {
	books, err := h.books.Featured(r.Context(), storefrontListLimit)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	resp := make([]bookResponse, len(books))
	for i, b := range books {
		resp[i] = h.toBookResponse(b)
	}
	respondJSON(w, http.StatusOK, map[string]any{"books": resp})
}

func (h *Handler) bestsellers(w http.ResponseWriter, r *http.Request) {
	sellers, err := h.books.Bestsellers(r.Context(), storefrontListLimit)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	resp := make([]bestsellerResponse, len(sellers))
	for i, s := range sellers {
		resp[i] = bestsellerResponse{
			bookResponse: h.toBookResponse(s.Book),
			TotalSold:    s.TotalSold,
			OrderCount:   s.OrderCount,
		}
	}
	respondJSON(w, http.StatusOK, map[string]any{"books": resp})
}

// categoryResponse is the JSON shape of a category with its book count.
type categoryResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description,omitempty"`
	BookCount   int       `json:"bookCount"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func toCategoryResponse(c book.Category) categoryResponse {
	return categoryResponse{
		ID:          c.ID,
		Name:        c.Name,
		Slug:        c.Slug,
		Description: c.Description,
		BookCount:   c.BookCount,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

func (h *Handler) listCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.categories.List(r.Context())
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	resp := make([]categoryResponse, len(categories))
	for i, c := range categories {
		resp[i] = toCategoryResponse(c)
	}
	respondJSON(w, http.StatusOK, map[string]any{"categories": resp})
}

func (h *Handler) getCategory(w http.ResponseWriter, r *http.Request) {
	c, err := h.categories.GetBySlug(r.Context(), r.PathValue("slug"))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toCategoryResponse(*c))
}
