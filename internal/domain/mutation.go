package domain

import "github.com/shopspring/decimal"

// MutationKind tags the variants of Mutation.
type MutationKind int

const (
	// MutationAddItem adds a product to the cart, or increments its
	// quantity by one when the product is already present.
	MutationAddItem MutationKind = iota
	// MutationChangeQuantity adjusts an existing line's quantity by a
	// signed delta. Quantities reaching zero or below remove the line.
	MutationChangeQuantity
)

// Mutation is a transient request against a cart snapshot. It is consumed
// by Apply and discarded.
type Mutation struct {
	Kind      MutationKind
	ProductID string

	// AddItem unit fields, snapshotted from the catalog.
	Name     string
	Price    decimal.Decimal
	ImageURL string

	// ChangeQuantity delta, may be negative.
	Delta int
}

// AddItem builds an add-to-cart mutation from a catalog product.
func AddItem(p Product) Mutation {
	return Mutation{
		Kind:      MutationAddItem,
		ProductID: p.ID,
		Name:      p.Name,
		Price:     p.Price,
		ImageURL:  p.ImageURL,
	}
}

// ChangeQuantity builds a quantity-adjustment mutation.
func ChangeQuantity(productID string, delta int) Mutation {
	return Mutation{
		Kind:      MutationChangeQuantity,
		ProductID: productID,
		Delta:     delta,
	}
}

// Apply computes the next snapshot from (current, mutation). It is pure and
// deterministic: the same pair always yields the same result, and the input
// snapshot is never modified, which keeps retries predictable.
//
// AddItem on a product already in the cart increments its quantity by one
// and keeps the existing line's fields; the supplied unit fields are
// ignored. ChangeQuantity on a product not in the cart is a no-op rather
// than an error, so stale UI state referencing a removed item cannot fail.
// A quantity driven to zero or below removes the line entirely; a quantity
// of zero is never stored.
func Apply(current Cart, m Mutation) Cart {
	next := current
	next.Items = current.cloneItems()

	switch m.Kind {
	case MutationAddItem:
		for i := range next.Items {
			if next.Items[i].ProductID == m.ProductID {
				next.Items[i].Quantity++
				return next
			}
		}
		next.Items = append(next.Items, CartItem{
			ProductID: m.ProductID,
			Name:      m.Name,
			Price:     m.Price,
			ImageURL:  m.ImageURL,
			Quantity:  1,
		})

	case MutationChangeQuantity:
		for i := range next.Items {
			if next.Items[i].ProductID != m.ProductID {
				continue
			}
			q := next.Items[i].Quantity + m.Delta
			if q <= 0 {
				next.Items = append(next.Items[:i], next.Items[i+1:]...)
			} else {
				next.Items[i].Quantity = q
			}
			return next
		}
		// Absent product: no-op.
	}

	return next
}
