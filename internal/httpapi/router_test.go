package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/avolkov/storefront/internal/domain"
	"github.com/avolkov/storefront/internal/enhance"
	"github.com/avolkov/storefront/internal/identity"
	"github.com/avolkov/storefront/internal/repository"
	"github.com/avolkov/storefront/internal/session"
)

type fakeVerifier struct{}

func (fakeVerifier) Verify(token string) (string, error) {
	if token == "valid" {
		return "user-1", nil
	}
	return "", identity.ErrInvalidToken
}

type fakeIdentity struct {
	grant *identity.Grant
	err   error

	mu         sync.Mutex
	registered []string
	loggedOut  []string
}

func (f *fakeIdentity) Register(_ context.Context, email, _ string) (*identity.Grant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.registered = append(f.registered, email)
	return f.grant, f.err
}

func (f *fakeIdentity) Login(context.Context, string, string) (*identity.Grant, error) {
	return f.grant, f.err
}

func (f *fakeIdentity) Logout(userID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loggedOut = append(f.loggedOut, userID)
}

type fakeCatalog struct {
	products []domain.Product
	err      error
}

func (f *fakeCatalog) ListProducts(context.Context) ([]domain.Product, error) {
	return f.products, f.err
}

func (f *fakeCatalog) GetProduct(_ context.Context, id string) (*domain.Product, error) {
	if f.err != nil {
		return nil, f.err
	}
	for i := range f.products {
		if f.products[i].ID == id {
			return &f.products[i], nil
		}
	}
	return nil, repository.ErrProductNotFound
}

type fakeEnhancer struct {
	text string
	err  error
}

func (f *fakeEnhancer) EnhanceDescription(context.Context, string, string) (string, error) {
	return f.text, f.err
}

// fakeFeed and fakeCartRepo stand in for the Mongo-backed adapter so the
// full middleware-to-session path can run in-process.
type fakeFeed struct {
	events chan repository.FeedEvent
	once   sync.Once
}

func (f *fakeFeed) Events() <-chan repository.FeedEvent { return f.events }
func (f *fakeFeed) Close()                              { f.once.Do(func() { close(f.events) }) }

type fakeCartRepo struct {
	mu    sync.Mutex
	carts map[string]domain.Cart
	feeds map[string]*fakeFeed
	err   error
}

func newFakeCartRepo() *fakeCartRepo {
	return &fakeCartRepo{
		carts: map[string]domain.Cart{},
		feeds: map[string]*fakeFeed{},
	}
}

func (f *fakeCartRepo) Get(_ context.Context, userID string) (*domain.Cart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if cart, ok := f.carts[userID]; ok {
		return &cart, nil
	}
	return nil, repository.ErrCartNotFound
}

func (f *fakeCartRepo) Upsert(_ context.Context, cart *domain.Cart) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	stored := *cart
	stored.UpdatedAt = time.Now()
	f.carts[cart.UserID] = stored
	if feed, ok := f.feeds[cart.UserID]; ok {
		echo := stored
		feed.events <- repository.FeedEvent{Snapshot: &echo}
	}
	return nil
}

func (f *fakeCartRepo) Watch(_ context.Context, userID string) (repository.CartFeed, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	feed := &fakeFeed{events: make(chan repository.FeedEvent, 16)}
	f.feeds[userID] = feed
	return feed, nil
}

func testProducts() []domain.Product {
	return []domain.Product{
		{ID: "p1", Name: "Widget", Description: "a widget", Price: decimal.RequireFromString("10"), Category: "tools"},
	}
}

type testServer struct {
	http.Handler
	sessions *session.Manager
	identity *fakeIdentity
}

func newTestServer(t *testing.T, carts repository.CartRepository, catalog Catalog, enhancer Enhancer) *testServer {
	t.Helper()
	log := zap.NewNop()
	manager := session.NewManager(carts, nil, log)
	t.Cleanup(manager.Close)

	id := &fakeIdentity{grant: &identity.Grant{UserID: "user-1", Token: "valid"}}
	router := NewRouter(
		NewAuthHandler(id),
		NewProductHandler(catalog, enhancer),
		NewCartHandler(manager, catalog),
		fakeVerifier{},
		log,
	)
	return &testServer{Handler: router, sessions: manager, identity: id}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func TestListProducts(t *testing.T) {
	srv := newTestServer(t, newFakeCartRepo(), &fakeCatalog{products: testProducts()}, &fakeEnhancer{})

	rec := srv.do(t, http.MethodGet, "/api/v1/products", "", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp ProductsResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Products, 1)
	assert.Equal(t, "10", resp.Products[0].Price)
}

func TestGetProduct_NotFound(t *testing.T) {
	srv := newTestServer(t, newFakeCartRepo(), &fakeCatalog{products: testProducts()}, &fakeEnhancer{})

	rec := srv.do(t, http.MethodGet, "/api/v1/products/p404", "", nil)

	require.Equal(t, http.StatusNotFound, rec.Code)
	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "product_not_found", resp.Code)
}

func TestGetCart_RequiresAuth(t *testing.T) {
	srv := newTestServer(t, newFakeCartRepo(), &fakeCatalog{products: testProducts()}, &fakeEnhancer{})

	rec := srv.do(t, http.MethodGet, "/api/v1/cart", "", nil)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "not_authenticated", resp.Code)
}

func TestGetCart_InvalidToken(t *testing.T) {
	srv := newTestServer(t, newFakeCartRepo(), &fakeCatalog{products: testProducts()}, &fakeEnhancer{})

	rec := srv.do(t, http.MethodGet, "/api/v1/cart", "garbage", nil)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAddItem_FlowsThroughSessionAndConfirms(t *testing.T) {
	carts := newFakeCartRepo()
	srv := newTestServer(t, carts, &fakeCatalog{products: testProducts()}, &fakeEnhancer{})

	rec := srv.do(t, http.MethodPost, "/api/v1/cart/items", "valid", AddItemRequestDTO{ProductID: "p1"})
	require.Equal(t, http.StatusAccepted, rec.Code)

	// The write confirms asynchronously through the feed echo.
	assert.Eventually(t, func() bool {
		rec := srv.do(t, http.MethodGet, "/api/v1/cart", "valid", nil)
		var resp CartResponse
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			return false
		}
		return len(resp.Items) == 1 && resp.Total == "10.00"
	}, time.Second, 10*time.Millisecond)
}

func TestAddItem_UnknownProduct(t *testing.T) {
	srv := newTestServer(t, newFakeCartRepo(), &fakeCatalog{products: testProducts()}, &fakeEnhancer{})

	rec := srv.do(t, http.MethodPost, "/api/v1/cart/items", "valid", AddItemRequestDTO{ProductID: "p404"})

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestChangeQuantity_WriteFailureSurfacesAsNotification(t *testing.T) {
	carts := newFakeCartRepo()
	carts.err = errors.New("backend down")
	srv := newTestServer(t, carts, &fakeCatalog{products: testProducts()}, &fakeEnhancer{})

	rec := srv.do(t, http.MethodPatch, "/api/v1/cart/items/p1", "valid", ChangeQuantityRequestDTO{Delta: 1})
	require.Equal(t, http.StatusAccepted, rec.Code)

	assert.Eventually(t, func() bool {
		rec := srv.do(t, http.MethodGet, "/api/v1/cart/notifications", "valid", nil)
		var notes []session.Notification
		if err := json.NewDecoder(rec.Body).Decode(&notes); err != nil {
			return false
		}
		return len(notes) == 1 && notes[0].Kind == session.NotePersistenceError
	}, time.Second, 10*time.Millisecond)
}

func TestRegister_Validation(t *testing.T) {
	srv := newTestServer(t, newFakeCartRepo(), &fakeCatalog{}, &fakeEnhancer{})

	rec := srv.do(t, http.MethodPost, "/api/v1/auth/register", "", CredentialsDTO{Email: "not-an-email", Password: "hunter22"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = srv.do(t, http.MethodPost, "/api/v1/auth/register", "", CredentialsDTO{Email: "a@example.com", Password: "short"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = srv.do(t, http.MethodPost, "/api/v1/auth/register", "", CredentialsDTO{Email: "a@example.com", Password: "hunter22"})
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestRegister_NormalizesEmail(t *testing.T) {
	srv := newTestServer(t, newFakeCartRepo(), &fakeCatalog{}, &fakeEnhancer{})

	rec := srv.do(t, http.MethodPost, "/api/v1/auth/register", "", CredentialsDTO{Email: "  A@Example.COM ", Password: "hunter22"})
	require.Equal(t, http.StatusCreated, rec.Code)

	srv.identity.mu.Lock()
	defer srv.identity.mu.Unlock()
	assert.Equal(t, []string{"a@example.com"}, srv.identity.registered)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	srv := newTestServer(t, newFakeCartRepo(), &fakeCatalog{}, &fakeEnhancer{})
	srv.identity.grant = nil
	srv.identity.err = identity.ErrInvalidCredentials

	rec := srv.do(t, http.MethodPost, "/api/v1/auth/login", "", CredentialsDTO{Email: "a@example.com", Password: "wrong"})

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "invalid_credentials", resp.Code)
}

func TestLogout(t *testing.T) {
	srv := newTestServer(t, newFakeCartRepo(), &fakeCatalog{}, &fakeEnhancer{})

	rec := srv.do(t, http.MethodPost, "/api/v1/auth/logout", "valid", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	srv.identity.mu.Lock()
	defer srv.identity.mu.Unlock()
	assert.Equal(t, []string{"user-1"}, srv.identity.loggedOut)
}

func TestEnhanceDescription_Success(t *testing.T) {
	srv := newTestServer(t, newFakeCartRepo(), &fakeCatalog{products: testProducts()}, &fakeEnhancer{text: "A widget you will love."})

	rec := srv.do(t, http.MethodPost, "/api/v1/products/p1/enhance", "", EnhanceRequestDTO{Description: "a widget"})

	require.Equal(t, http.StatusOK, rec.Code)
	var resp EnhanceResponseDTO
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "A widget you will love.", resp.Description)
}

func TestEnhanceDescription_UpstreamFailureIs502(t *testing.T) {
	srv := newTestServer(t, newFakeCartRepo(), &fakeCatalog{products: testProducts()},
		&fakeEnhancer{err: &enhance.StatusError{StatusCode: 429, Body: "quota"}})

	rec := srv.do(t, http.MethodPost, "/api/v1/products/p1/enhance", "", EnhanceRequestDTO{})

	require.Equal(t, http.StatusBadGateway, rec.Code)
	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "enhancement_failed", resp.Code)
}
