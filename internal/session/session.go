package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/avolkov/storefront/internal/domain"
	"github.com/avolkov/storefront/internal/repository"
)

var (
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrSessionClosed    = errors.New("session closed")
)

const (
	mutationQueueSize     = 16
	notificationQueueSize = 32
	writeTimeout          = 10 * time.Second
)

// ActivityPublisher receives confirmed cart changes. Publishing is best
// effort and never blocks or fails the cart path.
type ActivityPublisher interface {
	CartUpdated(ctx context.Context, cart domain.Cart) error
}

// Session is the per-user unit of cart state. Feed events and mutation
// requests are processed by a single goroutine, so mutator invocations are
// never concurrent within one session; cross-device writes stay
// last-write-wins and are only discovered when the feed echoes them.
type Session struct {
	userID   string
	store    *SnapshotStore
	carts    repository.CartRepository
	feed     repository.CartFeed
	activity ActivityPublisher
	log      *zap.Logger

	mutations chan domain.Mutation
	notifs    chan Notification

	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Open subscribes to the user's cart document and starts the session loop.
// The caller owns the session and must Close it on teardown.
func Open(ctx context.Context, userID string, carts repository.CartRepository, activity ActivityPublisher, log *zap.Logger) (*Session, error) {
	if userID == "" {
		return nil, ErrNotAuthenticated
	}

	feed, err := carts.Watch(ctx, userID)
	if err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	s := &Session{
		userID:    userID,
		store:     NewSnapshotStore(userID),
		carts:     carts,
		feed:      feed,
		activity:  activity,
		log:       log.With(zap.String("user_id", userID)),
		mutations: make(chan domain.Mutation, mutationQueueSize),
		notifs:    make(chan Notification, notificationQueueSize),
		cancel:    cancel,
		done:      make(chan struct{}),
	}

	go s.run(runCtx)

	return s, nil
}

// UserID returns the identity the session is bound to.
func (s *Session) UserID() string { return s.userID }

// Current returns the last observed snapshot without blocking.
func (s *Session) Current() domain.Cart { return s.store.Current() }

// Notifications is the stream of user-visible failure reports.
func (s *Session) Notifications() <-chan Notification { return s.notifs }

// Mutate enqueues a mutation. It is fire-and-forget with respect to the
// write round trip: failures surface on Notifications, and the local state
// stays unconfirmed until the feed echoes the write back. There is no
// cancellation for an accepted mutation.
func (s *Session) Mutate(m domain.Mutation) error {
	select {
	case <-s.done:
		return ErrSessionClosed
	default:
	}
	select {
	case s.mutations <- m:
		return nil
	case <-s.done:
		return ErrSessionClosed
	}
}

// Close cancels the subscription and stops the loop. Guaranteed release of
// the feed handle; safe to call more than once.
func (s *Session) Close() {
	s.once.Do(func() {
		s.cancel()
		s.feed.Close()
	})
	<-s.done
}

func (s *Session) run(ctx context.Context) {
	defer close(s.done)

	events := s.feed.Events()

	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-events:
			if !ok {
				// Terminal feed failure already reported; keep serving the
				// last known snapshot and any further mutations. Re-opening
				// the session is the caller's decision, never automatic.
				events = nil
				continue
			}
			s.handleFeedEvent(ev)

		case m := <-s.mutations:
			s.applyAndPersist(ctx, m)
		}
	}
}

func (s *Session) handleFeedEvent(ev repository.FeedEvent) {
	switch {
	case ev.Err != nil:
		s.log.Warn("cart subscription failed", zap.Error(ev.Err))
		s.notify(NoteSubscriptionError, "lost connection to your cart; showing the last known state")
	case ev.Absent:
		s.store.Replace(nil)
	default:
		s.store.Replace(ev.Snapshot)
	}
}

func (s *Session) applyAndPersist(ctx context.Context, m domain.Mutation) {
	next := domain.Apply(s.store.Current(), m)

	writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
	err := s.carts.Upsert(writeCtx, &next)
	cancel()
	if err != nil {
		s.log.Warn("cart write failed", zap.Error(err))
		s.notify(NotePersistenceError, "could not save your cart, please try again")
		return
	}

	// The write is not durable until the feed echoes it; the store is only
	// updated from feed events. Publish confirmed activity best effort.
	if s.activity != nil {
		if err := s.activity.CartUpdated(ctx, next); err != nil {
			s.log.Warn("cart activity publish failed", zap.Error(err))
		}
	}
}

func (s *Session) notify(kind NotificationKind, message string) {
	n := Notification{Kind: kind, Message: message, Time: time.Now()}
	select {
	case s.notifs <- n:
	default:
		// The view stopped draining; dropping the oldest report keeps the
		// session loop from blocking.
		select {
		case <-s.notifs:
		default:
		}
		select {
		case s.notifs <- n:
		default:
		}
	}
}
