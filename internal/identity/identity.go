package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

// User is an account record. The ID is the opaque identifier every other
// module keys on; nothing outside this package reads the email or hash.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// Repository stores accounts.
type Repository interface {
	// Create inserts a new user, failing with ErrEmailTaken on a duplicate
	// email.
	Create(ctx context.Context, user *User) error
	// FindByEmail returns ErrUserNotFound when no account exists.
	FindByEmail(ctx context.Context, email string) (*User, error)
}

// EventKind tags identity changes.
type EventKind int

const (
	EventLogin EventKind = iota
	EventLogout
)

// Event is a discrete, observable identity change.
type Event struct {
	Kind   EventKind
	UserID string
}

// Grant is the result of a successful register or login.
type Grant struct {
	UserID    string    `json:"user_id"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type claims struct {
	jwt.RegisteredClaims
}

const eventQueueSize = 32

// Service issues opaque user identities and signed session tokens, and
// publishes identity changes as discrete events.
type Service struct {
	repo     Repository
	secret   []byte
	tokenTTL time.Duration
	issuer   string
	events   chan Event
	log      *zap.Logger
}

func NewService(repo Repository, secret []byte, tokenTTL time.Duration, log *zap.Logger) *Service {
	return &Service{
		repo:     repo,
		secret:   secret,
		tokenTTL: tokenTTL,
		issuer:   "storefront",
		events:   make(chan Event, eventQueueSize),
		log:      log,
	}
}

// Events is the stream of identity changes. Consumers that stop draining
// lose events rather than blocking auth.
func (s *Service) Events() <-chan Event { return s.events }

func (s *Service) Register(ctx context.Context, email, password string) (*Grant, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    time.Now(),
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}

	grant, err := s.grant(user.ID)
	if err != nil {
		return nil, err
	}
	s.emit(Event{Kind: EventLogin, UserID: user.ID})
	return grant, nil
}

func (s *Service) Login(ctx context.Context, email, password string) (*Grant, error) {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}

	grant, err := s.grant(user.ID)
	if err != nil {
		return nil, err
	}
	s.emit(Event{Kind: EventLogin, UserID: user.ID})
	return grant, nil
}

// Logout only emits the identity change; tokens stay valid until expiry.
func (s *Service) Logout(userID string) {
	if userID == "" {
		return
	}
	s.emit(Event{Kind: EventLogout, UserID: userID})
}

// Verify parses a session token and returns the opaque user ID it carries.
func (s *Service) Verify(tokenStr string) (string, error) {
	tok, err := jwt.ParseWithClaims(tokenStr, &claims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	})
	if err != nil {
		return "", ErrInvalidToken
	}
	c, ok := tok.Claims.(*claims)
	if !ok || !tok.Valid || c.Subject == "" {
		return "", ErrInvalidToken
	}
	return c.Subject, nil
}

func (s *Service) grant(userID string) (*Grant, error) {
	now := time.Now()
	exp := now.Add(s.tokenTTL)
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := t.SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}
	return &Grant{UserID: userID, Token: signed, ExpiresAt: exp}, nil
}

func (s *Service) emit(ev Event) {
	select {
	case s.events <- ev:
	default:
		s.log.Warn("identity event dropped", zap.String("user_id", ev.UserID))
	}
}
