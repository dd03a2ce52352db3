package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// NewRouter assembles the storefront API surface.
func NewRouter(
	auth *AuthHandler,
	products *ProductHandler,
	carts *CartHandler,
	verifier TokenVerifier,
	log *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(log))
	r.Use(AuthMiddleware(verifier))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/register", auth.Register)
		r.Post("/auth/login", auth.Login)
		r.Post("/auth/logout", auth.Logout)

		r.Get("/products", products.ListProducts)
		r.Get("/products/{productID}", products.GetProduct)
		r.Post("/products/{productID}/enhance", products.EnhanceDescription)

		r.Get("/cart", carts.GetCart)
		r.Post("/cart/items", carts.AddItem)
		r.Patch("/cart/items/{productID}", carts.ChangeQuantity)
		r.Get("/cart/notifications", carts.Notifications)
	})

	return r
}
