package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CartItem is one line of a cart. Price and Name are denormalized copies
// taken from the catalog at add time, not live-joined.
type CartItem struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	ImageURL  string          `json:"image_url"`
	Quantity  int             `json:"quantity"`
}

// Cart is a full point-in-time snapshot of one user's cart as observed
// from the backing store. It is replaced wholesale on every write; the
// item list is never patched item-by-item.
type Cart struct {
	UserID    string     `json:"user_id"`
	Items     []CartItem `json:"items"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Empty returns an empty snapshot for userID. A missing remote document
// is represented this way rather than as an error.
func Empty(userID string) Cart {
	return Cart{UserID: userID}
}

// Total is the sum of price*quantity over all items, computed in full
// decimal precision. Rounding to two places happens at display time only.
func (c Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.Items {
		total = total.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total
}

// DisplayTotal renders the total rounded to two decimal places.
func (c Cart) DisplayTotal() string {
	return c.Total().StringFixed(2)
}

// ItemCount is the number of distinct lines in the cart.
func (c Cart) ItemCount() int {
	return len(c.Items)
}

// Find returns the item with the given product ID, if present.
func (c Cart) Find(productID string) (CartItem, bool) {
	for _, item := range c.Items {
		if item.ProductID == productID {
			return item, true
		}
	}
	return CartItem{}, false
}

func (c Cart) cloneItems() []CartItem {
	if len(c.Items) == 0 {
		return nil
	}
	items := make([]CartItem, len(c.Items))
	copy(items, c.Items)
	return items
}
