package httpapi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/avolkov/storefront/internal/domain"
)

// Catalog is the read-only product view the handlers need.
type Catalog interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
}

// Enhancer rewrites product copy through the generative-language API.
type Enhancer interface {
	EnhanceDescription(ctx context.Context, name, description string) (string, error)
}

type ProductHandler struct {
	catalog  Catalog
	enhancer Enhancer
}

func NewProductHandler(catalog Catalog, enhancer Enhancer) *ProductHandler {
	return &ProductHandler{catalog: catalog, enhancer: enhancer}
}

type ProductResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       string `json:"price"`
	ImageURL    string `json:"image_url"`
	Category    string `json:"category"`
}

type ProductsResponse struct {
	Products []ProductResponse `json:"products"`
}

func toProductResponse(p domain.Product) ProductResponse {
	return ProductResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price.String(),
		ImageURL:    p.ImageURL,
		Category:    p.Category,
	}
}

func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalog.ListProducts(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	out := make([]ProductResponse, len(products))
	for i, p := range products {
		out[i] = toProductResponse(p)
	}

	respondJSON(w, http.StatusOK, ProductsResponse{Products: out})
}

func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "productID")

	product, err := h.catalog.GetProduct(r.Context(), id)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, toProductResponse(*product))
}

type EnhanceRequestDTO struct {
	Description string `json:"description"`
}

type EnhanceResponseDTO struct {
	Description string `json:"description"`
}

// EnhanceDescription rewrites a product's copy. The stored catalog entry is
// untouched; the caller decides what to do with the suggestion.
func (h *ProductHandler) EnhanceDescription(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "productID")

	product, err := h.catalog.GetProduct(r.Context(), id)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	var req EnhanceRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	description := req.Description
	if description == "" {
		description = product.Description
	}

	enhanced, err := h.enhancer.EnhanceDescription(r.Context(), product.Name, description)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, EnhanceResponseDTO{Description: enhanced})
}
