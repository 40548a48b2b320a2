package handlers_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/dkotelnikov/storefront/internal/handlers"
	authmw "github.com/dkotelnikov/storefront/internal/middleware/auth"
	"github.com/dkotelnikov/storefront/internal/models"
	"github.com/dkotelnikov/storefront/internal/payment"
	"github.com/dkotelnikov/storefront/internal/repo"
	"github.com/dkotelnikov/storefront/internal/service"
	httpserver "github.com/dkotelnikov/storefront/internal/transport/http"
)

const testWebhookSecret = "whsec_test_secret"

type testEnv struct {
	e        *echo.Echo
	db       *gorm.DB
	provider *stubProvider
}

type stubProvider struct {
	calls int
	err   error
}

func (s *stubProvider) CreateCheckoutSession(_ context.Context, _ uint, _ []payment.LineItem) (*payment.Session, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	id := fmt.Sprintf("cs_test_%s", uuid.NewString()[:8])
	return &payment.Session{ID: id, URL: "https://checkout.example/pay/" + id}, nil
}

// newEnv wires the full router against an in-memory store, with a stub
// session provider and the real signature verifier.
func newEnv(t *testing.T) *testEnv {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Product{},
		&models.Cart{},
		&models.CartItem{},
		&models.Order{},
		&models.OrderItem{},
	))

	jwtSecret := []byte("handler-test-secret")
	users := &repo.UserRepo{DB: db}
	products := &repo.ProductRepo{DB: db}
	carts := &repo.CartRepo{DB: db}
	orders := &repo.OrderRepo{DB: db}

	provider := &stubProvider{}
	verifier := payment.NewStripeProvider("sk_test_x", testWebhookSecret, "https://shop.example")

	deps := &httpserver.Deps{
		DB:          db,
		Gate:        &authmw.Gate{Users: users, JWTSecret: jwtSecret},
		AuthHandler: &handlers.AuthHandler{Svc: &service.AuthService{Users: users, JWTSecret: jwtSecret}},
		CartHandler: &handlers.CartHandler{Svc: &service.CartService{Carts: carts, Products: products}},
		CheckoutHandler: &handlers.CheckoutHandler{Svc: &service.CheckoutService{
			Carts:    carts,
			Products: products,
			Orders:   orders,
			Provider: provider,
		}},
		WebhookHandler: &handlers.WebhookHandler{Svc: &service.WebhookService{Orders: orders, Verifier: verifier}},
		ProductHandler: &handlers.ProductHandler{Svc: &service.CatalogService{Products: products}},
		OrderHandler:   &handlers.OrderHandler{Svc: &service.OrderService{Orders: orders}},
		AdminHandler:   &handlers.AdminHandler{Svc: &service.AdminService{Users: users}},
	}

	e := echo.New()
	httpserver.Register(e, deps)
	return &testEnv{e: e, db: db, provider: provider}
}

// doJSON runs one request through the router. A non-nil cookie authenticates
// the call; body may be a raw string or anything JSON-marshalable.
func (env *testEnv) doJSON(t *testing.T, method, path string, body any, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var reader *strings.Reader
	switch b := body.(type) {
	case nil:
		reader = strings.NewReader("")
	case string:
		reader = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = strings.NewReader(string(raw))
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if cookie != nil {
		req.AddCookie(cookie)
	}

	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)
	return rec
}

// doSigned posts a raw webhook payload with its signature header.
func (env *testEnv) doSigned(t *testing.T, payload, sigHeader string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/webhook/payment", strings.NewReader(payload))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set("Stripe-Signature", sigHeader)

	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)
	return rec
}

// register creates an account through the API and hands back its token cookie.
func (env *testEnv) register(t *testing.T, email, password string) *http.Cookie {
	t.Helper()

	rec := env.doJSON(t, http.MethodPost, "/auth/register", map[string]string{
		"name":     "test",
		"email":    email,
		"password": password,
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	for _, c := range rec.Result().Cookies() {
		if c.Name == "token" {
			return c
		}
	}
	t.Fatal("no token cookie in register response")
	return nil
}

func (env *testEnv) seedProduct(t *testing.T, name, price string) *models.Product {
	t.Helper()

	p := &models.Product{
		Name:     name,
		Price:    decimal.RequireFromString(price),
		Category: "test",
		Stock:    10,
	}
	require.NoError(t, env.db.Create(p).Error)
	return p
}

func requireJSONList(t *testing.T, raw []byte, out *[]any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(raw, out), string(raw))
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}
