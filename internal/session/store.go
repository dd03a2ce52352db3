package session

import (
	"sync"

	"github.com/avolkov/storefront/internal/domain"
)

// SnapshotStore holds the most recently observed cart snapshot for exactly
// one user at a time. It is fed by the subscription feed and read
// synchronously by the view layer; it never talks to the network itself.
type SnapshotStore struct {
	mu     sync.RWMutex
	userID string
	cart   domain.Cart
}

func NewSnapshotStore(userID string) *SnapshotStore {
	return &SnapshotStore{
		userID: userID,
		cart:   domain.Empty(userID),
	}
}

// Current returns the held snapshot. Before the first feed event it is the
// empty cart, not an error.
func (s *SnapshotStore) Current() domain.Cart {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cart
}

// Replace swaps in a newly observed snapshot. A nil cart means the remote
// document does not exist and is held as an empty item set.
func (s *SnapshotStore) Replace(cart *domain.Cart) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cart == nil {
		s.cart = domain.Empty(s.userID)
		return
	}
	next := *cart
	next.UserID = s.userID
	s.cart = next
}

// Reset clears all held state and rebinds the store to a new identity.
// Items never leak across users.
func (s *SnapshotStore) Reset(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userID = userID
	s.cart = domain.Empty(userID)
}
