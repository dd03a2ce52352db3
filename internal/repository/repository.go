package repository

import (
	"context"
	"errors"

	"github.com/avolkov/storefront/internal/domain"
)

var (
	ErrCartNotFound    = errors.New("cart not found")
	ErrProductNotFound = errors.New("product not found")
)

// FeedEvent is one push from a cart subscription. Exactly one of the three
// conditions holds: Snapshot carries a full replaced document, Absent marks
// a document that does not (or no longer) exist, or Err reports a terminal
// transport failure after which no further events arrive.
type FeedEvent struct {
	Snapshot *domain.Cart
	Absent   bool
	Err      error
}

// CartFeed is a cancellable per-document subscription handle. The caller
// owns its lifecycle and must Close it on teardown; Events is closed after
// a terminal error or Close.
type CartFeed interface {
	Events() <-chan FeedEvent
	Close()
}

// CartRepository is the persistence adapter contract for cart documents.
// Consumers define behavior against this interface, not the MongoDB
// implementation.
type CartRepository interface {
	// Get returns the stored snapshot, or ErrCartNotFound when no document
	// exists for the user yet.
	Get(ctx context.Context, userID string) (*domain.Cart, error)
	// Upsert writes the full document, replacing the item list wholesale
	// and stamping a server-assigned updated_at.
	Upsert(ctx context.Context, cart *domain.Cart) error
	// Watch opens a push subscription for the user's cart document.
	Watch(ctx context.Context, userID string) (CartFeed, error)
}

// ProductRepository reads the catalog. The cart module never writes it.
type ProductRepository interface {
	List(ctx context.Context) ([]domain.Product, error)
	Get(ctx context.Context, id string) (*domain.Product, error)
}
