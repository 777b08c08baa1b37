package httpx

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/veltaire/storefront/internal/catalog"
)

// CatalogSource is the catalog surface the handler serves; satisfied
// by *catalog.Service.
type CatalogSource interface {
	List(ctx context.Context, f catalog.Filter) ([]catalog.Product, error)
	GetBySlug(ctx context.Context, slug string) (*catalog.Product, error)
	Search(ctx context.Context, term string) ([]catalog.Product, error)
}

type CatalogHandler struct {
	Catalog CatalogSource
}

func (h *CatalogHandler) Register(r *chi.Mux) {
	r.Get("/api/products", h.listProducts)
	r.Get("/api/products/{slug}", h.getProduct)
	r.Get("/api/search", h.search)
}

func (h *CatalogHandler) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var f catalog.Filter
	if c := r.URL.Query().Get("category"); c != "" {
		cat := catalog.Category(c)
		if !cat.Valid() {
			writeError(w, http.StatusBadRequest, "unknown category")
			return
		}
		f.Category = cat
	}
	f.FeaturedOnly = r.URL.Query().Get("featured") == "true"

	products, err := h.Catalog.List(ctx, f)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, products)
}

func (h *CatalogHandler) getProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	p, err := h.Catalog.GetBySlug(ctx, chi.URLParam(r, "slug"))
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	if p == nil {
		writeError(w, http.StatusNotFound, "product not found")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *CatalogHandler) search(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	term := r.URL.Query().Get("q")
	if term == "" {
		writeError(w, http.StatusBadRequest, "missing q")
		return
	}
	products, err := h.Catalog.Search(ctx, term)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, products)
}
