package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/avolkov/storefront/internal/domain"
	"github.com/avolkov/storefront/internal/identity"
	"github.com/avolkov/storefront/internal/repository"
)

// watchingCarts hands every caller its own feed so sessions can be opened
// for more than one user.
type watchingCarts struct {
	fakeCarts
}

func (w *watchingCarts) Watch(context.Context, string) (repository.CartFeed, error) {
	return newFakeFeed(), nil
}

func TestManager_RequiresIdentity(t *testing.T) {
	m := NewManager(&watchingCarts{}, nil, zap.NewNop())
	defer m.Close()

	_, err := m.Session(context.Background(), "")
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestManager_ReusesLiveSession(t *testing.T) {
	m := NewManager(&watchingCarts{}, nil, zap.NewNop())
	defer m.Close()

	first, err := m.Session(context.Background(), "user-1")
	require.NoError(t, err)
	second, err := m.Session(context.Background(), "user-1")
	require.NoError(t, err)

	assert.Same(t, first, second)
}

func TestManager_DropOpensFreshSession(t *testing.T) {
	m := NewManager(&watchingCarts{}, nil, zap.NewNop())
	defer m.Close()

	first, err := m.Session(context.Background(), "user-1")
	require.NoError(t, err)

	m.Drop("user-1")

	assert.ErrorIs(t, first.Mutate(domain.ChangeQuantity("p1", 0)), ErrSessionClosed)

	second, err := m.Session(context.Background(), "user-1")
	require.NoError(t, err)
	assert.NotSame(t, first, second)
}

func TestManager_LogoutEventClosesSession(t *testing.T) {
	m := NewManager(&watchingCarts{}, nil, zap.NewNop())
	defer m.Close()

	s, err := m.Session(context.Background(), "user-1")
	require.NoError(t, err)

	events := make(chan identity.Event, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Watch(ctx, events)

	events <- identity.Event{Kind: identity.EventLogout, UserID: "user-1"}

	assert.Eventually(t, func() bool {
		return s.Mutate(domain.ChangeQuantity("p1", 0)) != nil
	}, time.Second, 5*time.Millisecond)
}

func TestManager_CloseRejectsFurtherUse(t *testing.T) {
	m := NewManager(&watchingCarts{}, nil, zap.NewNop())

	_, err := m.Session(context.Background(), "user-1")
	require.NoError(t, err)

	m.Close()

	_, err = m.Session(context.Background(), "user-1")
	assert.ErrorIs(t, err, ErrSessionClosed)
}
