package domain

import "github.com/shopspring/decimal"

// Product is a catalog entry, read-only to the cart. Its price and name are
// copied into a CartItem when added; later catalog changes do not flow into
// existing cart lines.
type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	ImageURL    string          `json:"image_url"`
	Category    string          `json:"category"`
}
