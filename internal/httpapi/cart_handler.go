package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/avolkov/storefront/internal/domain"
	"github.com/avolkov/storefront/internal/session"
)

type CartHandler struct {
	sessions *session.Manager
	catalog  Catalog
}

func NewCartHandler(sessions *session.Manager, catalog Catalog) *CartHandler {
	return &CartHandler{
		sessions: sessions,
		catalog:  catalog,
	}
}

type CartItemDTO struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Price     string `json:"price"`
	ImageURL  string `json:"image_url"`
	Quantity  int    `json:"quantity"`
}

type CartResponse struct {
	Items     []CartItemDTO `json:"items"`
	Total     string        `json:"total"`
	UpdatedAt time.Time     `json:"updated_at"`
}

type AddItemRequestDTO struct {
	ProductID string `json:"product_id"`
}

type ChangeQuantityRequestDTO struct {
	Delta int `json:"delta"`
}

func toCartResponse(cart domain.Cart) CartResponse {
	items := make([]CartItemDTO, len(cart.Items))
	for i, item := range cart.Items {
		items[i] = CartItemDTO{
			ProductID: item.ProductID,
			Name:      item.Name,
			Price:     item.Price.String(),
			ImageURL:  item.ImageURL,
			Quantity:  item.Quantity,
		}
	}
	return CartResponse{
		Items:     items,
		Total:     cart.DisplayTotal(),
		UpdatedAt: cart.UpdatedAt,
	}
}

func (h *CartHandler) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	s, err := h.sessions.Session(r.Context(), getUserIDFromContext(r.Context()))
	if err != nil {
		handleServiceError(w, err)
		return nil, false
	}
	return s, true
}

// GetCart returns the last observed snapshot, which may still be ahead of
// or behind the backend until the feed settles.
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	respondJSON(w, http.StatusOK, toCartResponse(s.Current()))
}

// AddItem enqueues an add-to-cart mutation. The reply is the snapshot the
// mutation was computed against; the write confirms through the feed, so
// the status is 202, not 200.
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var req AddItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.ProductID == "" {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id is required")
		return
	}

	product, err := h.catalog.GetProduct(r.Context(), req.ProductID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if err := s.Mutate(domain.AddItem(*product)); err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusAccepted, toCartResponse(s.Current()))
}

// ChangeQuantity enqueues a quantity adjustment. A product missing from the
// cart is a documented no-op, so this never 404s on cart contents.
func (h *CartHandler) ChangeQuantity(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	productID := chi.URLParam(r, "productID")

	var req ChangeQuantityRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if err := s.Mutate(domain.ChangeQuantity(productID, req.Delta)); err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusAccepted, toCartResponse(s.Current()))
}

// Notifications drains pending user-visible failure reports.
func (h *CartHandler) Notifications(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	notifications := []session.Notification{}
	for {
		select {
		case n := <-s.Notifications():
			notifications = append(notifications, n)
		default:
			respondJSON(w, http.StatusOK, notifications)
			return
		}
	}
}
