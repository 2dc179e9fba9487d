package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Kartik-Sangwan/dtk-site/internal/config"
	"github.com/Kartik-Sangwan/dtk-site/internal/domain/model"
	"github.com/Kartik-Sangwan/dtk-site/internal/handler"
	"github.com/Kartik-Sangwan/dtk-site/internal/infra/db"
	infraRepo "github.com/Kartik-Sangwan/dtk-site/internal/infra/repository"
	"github.com/Kartik-Sangwan/dtk-site/internal/inventory"
	"github.com/Kartik-Sangwan/dtk-site/internal/middleware"
	"github.com/Kartik-Sangwan/dtk-site/internal/notify"
	"github.com/Kartik-Sangwan/dtk-site/internal/payment"
	"github.com/Kartik-Sangwan/dtk-site/internal/pricing"
	"github.com/Kartik-Sangwan/dtk-site/internal/ratelimit"
	"github.com/Kartik-Sangwan/dtk-site/internal/server"
	"github.com/Kartik-Sangwan/dtk-site/internal/usecase"
	auth "github.com/Kartik-Sangwan/dtk-site/internal/usecase/auth_usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const inventoryCSV = `Item,Description,Quantity On Hand,Price,Customer Part#
DAC-100,Dowel pin,12,$4.50,CUST-9
DAC-200,Bushing,0,,
XYZ-1,Internal part,3,1.00,
`

// 決済代行の代わり。署名は "ok" だけ通す
type fakeGateway struct {
	intents int
	last    payment.Intent
}

func (g *fakeGateway) CreatePaymentIntent(_ context.Context, in payment.CreateIntentInput) (payment.Intent, error) {
	g.intents++
	g.last = payment.Intent{ID: "pi_test", ClientSecret: "pi_test_secret", AmountCents: in.AmountCents, Currency: in.Currency}
	return g.last, nil
}

func (g *fakeGateway) GetPaymentIntent(_ context.Context, intentID string) (payment.Intent, error) {
	if intentID != g.last.ID {
		return payment.Intent{}, errors.New("no such payment intent")
	}
	return payment.Intent{ID: g.last.ID, AmountCents: g.last.AmountCents, Currency: g.last.Currency}, nil
}

func (g *fakeGateway) ReceiptURL(context.Context, string) (string, error) {
	return "https://pay.example/receipt/pi_test", nil
}

func (g *fakeGateway) ParseWebhook(payload []byte, sig string) (payment.WebhookEvent, error) {
	if sig != "ok" {
		return payment.WebhookEvent{}, payment.ErrInvalidSignature
	}
	var ev payment.WebhookEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return payment.WebhookEvent{}, errors.New("bad payload")
	}
	return ev, nil
}

type testApp struct {
	srv *httptest.Server
	db  *gorm.DB
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	csvPath := filepath.Join(t.TempDir(), "inventory.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte(inventoryCSV), 0o600))

	gdb, err := db.OpenSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))

	cfg := config.Config{JWTSecret: "test-secret", AccessTokenTTL: 15 * time.Minute, InventoryAccessCode: "cust1"}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	repos := infraRepo.NewRepos(gdb)
	txm := infraRepo.NewTxManagerGorm(gdb)
	users := repos.Users()
	limiter := ratelimit.NewMemoryLimiter(nil)

	inv := inventory.NewResolver(inventory.Options{Path: csvPath})
	calc := pricing.NewCalculator(inv)
	gateway := &fakeGateway{}
	dispatcher := notify.NewDispatcher(notify.NewLogMailer(log), notify.NewRenderer("", "https://dtk.example"), notify.Config{
		SiteURL:           "https://dtk.example",
		CompanyOrderEmail: "sales@dtk.example",
	})

	clock := auth.SystemClock{}
	hasher := auth.NewBcryptPasswordHasher(4)
	orderUC := usecase.NewOrderUsecase(txm, repos.Orders(), repos.Carts(), repos.CartItems(), calc, gateway)
	cartUC := usecase.NewCartUsecase(txm, repos.Carts(), repos.CartItems())

	authz, err := middleware.NewStaffAuthorizer()
	require.NoError(t, err)

	cookie := handler.CartCookie{}
	h := server.Handlers{
		Auth: handler.NewAuthHandler(
			auth.NewRegisterUserUsecase(txm, users, hasher, dispatcher, limiter, auth.UUIDGenerator{}, clock),
			auth.NewVerifyEmailUsecase(txm, users, repos.AuthTokens(), clock),
			auth.NewLoginUsecase(users, auth.NewBcryptPasswordVerifier(), auth.NewJWTIssuer(cfg.JWTSecret, cfg.AccessTokenTTL), limiter, clock),
			auth.NewRequestPasswordResetUsecase(txm, users, dispatcher, limiter, auth.UUIDGenerator{}, clock),
			auth.NewConfirmPasswordResetUsecase(txm, users, repos.AuthTokens(), hasher, limiter, clock),
			users,
		),
		Inventory:  handler.NewInventoryHandler(usecase.NewInventoryUsecase(inv, cfg.InventoryAccessCode)),
		Cart:       handler.NewCartHandler(cartUC, cookie),
		Checkout:   handler.NewCheckoutHandler(cartUC, usecase.NewCheckoutUsecase(calc, repos.CartItems(), gateway), cookie),
		Orders:     handler.NewOrderHandler(orderUC, users, cookie),
		Webhook:    handler.NewWebhookHandler(usecase.NewPaymentWebhookUsecase(repos.Orders(), gateway, dispatcher)),
		Account:    handler.NewAccountHandler(usecase.NewAccountUsecase(txm, users, repos.Addresses()), orderUC),
		Contact:    handler.NewContactHandler(usecase.NewContactUsecase(dispatcher, limiter)),
		AdminOrder: handler.NewAdminOrderHandler(usecase.NewAdminOrderUsecase(txm, repos.Orders(), users, repos.AuditLogs(), dispatcher), orderUC, authz),
	}

	e := server.New(log)
	server.RegisterRoutes(e, cfg, users, h)

	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)
	return &testApp{srv: srv, db: gdb}
}

// cookie(dtk_cart_id) を持ち回るクライアント
func (a *testApp) client(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{Jar: jar, Timeout: 10 * time.Second}
}

func (a *testApp) do(t *testing.T, c *http.Client, method, path, bearer string, body any, headers ...string) (*http.Response, []byte) {
	t.Helper()

	var reqBody io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(context.Background(), method, a.srv.URL+path, reqBody)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	resp, err := c.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func requireStatus(t *testing.T, resp *http.Response, want int, body []byte) {
	t.Helper()
	if resp.StatusCode != want {
		t.Fatalf("status=%d want=%d body=%s", resp.StatusCode, want, string(body))
	}
}

func decode[T any](t *testing.T, body []byte) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(body, &v); err != nil {
		t.Fatalf("json.Unmarshal failed: %v body=%s", err, string(body))
	}
	return v
}

// メール確認済みのスタッフを直接作ってログインする
func (a *testApp) staffLogin(t *testing.T, c *http.Client, role model.Role) string {
	t.Helper()

	hash, err := auth.NewBcryptPasswordHasher(4).Hash("password123")
	require.NoError(t, err)
	verified := time.Now()
	email := strings.ToLower(string(role)) + "@dtk.example"
	require.NoError(t, a.db.Create(&model.User{
		Email:           email,
		Name:            "Staff",
		PasswordHash:    hash,
		Role:            role,
		IsActive:        true,
		EmailVerifiedAt: &verified,
	}).Error)

	resp, body := a.do(t, c, http.MethodPost, "/api/auth/login", "", map[string]string{"email": email, "password": "password123"})
	requireStatus(t, resp, http.StatusOK, body)

	out := decode[auth.LoginOutput](t, body)
	require.NotEmpty(t, out.Token.AccessToken)
	return out.Token.AccessToken
}

func TestHealthz(t *testing.T) {
	app := newTestApp(t)
	resp, body := app.do(t, app.client(t), http.MethodGet, "/healthz", "", nil)
	requireStatus(t, resp, http.StatusOK, body)
	assert.NotEmpty(t, resp.Header.Get("X-Request-Id"))
}

func TestInventory_PublicAndPrivileged(t *testing.T) {
	app := newTestApp(t)
	c := app.client(t)

	resp, body := app.do(t, c, http.MethodGet, "/api/inventory?q=dac", "", nil)
	requireStatus(t, resp, http.StatusOK, body)
	public := decode[usecase.InventorySearchOutput](t, body)
	assert.False(t, public.Privileged)
	require.Equal(t, 2, public.Count)
	for _, it := range public.Items {
		assert.Empty(t, it.CustomerPartNo)
	}

	resp, body = app.do(t, c, http.MethodGet, "/api/inventory?q=cust&field=customer", "", nil, "x-inventory-access-code", "cust1")
	requireStatus(t, resp, http.StatusOK, body)
	priv := decode[usecase.InventorySearchOutput](t, body)
	assert.True(t, priv.Privileged)
	require.Len(t, priv.Items, 1)
	assert.Equal(t, "CUST-9", priv.Items[0].CustomerPartNo)

	resp, body = app.do(t, c, http.MethodGet, "/api/inventory/lookup?partNo=dac100", "", nil)
	requireStatus(t, resp, http.StatusOK, body)
	lookup := decode[usecase.InventoryLookupOutput](t, body)
	assert.True(t, lookup.Found)
	require.NotNil(t, lookup.Item)
	assert.Equal(t, "DAC-100", lookup.Item.Item)
}

func TestCart_CookieFlowAndSummary(t *testing.T) {
	app := newTestApp(t)
	c := app.client(t)

	qty := 2.9
	resp, body := app.do(t, c, http.MethodPost, "/api/cart", "", map[string]any{"op": "add", "partNo": "DAC-100", "qty": qty})
	requireStatus(t, resp, http.StatusOK, body)

	var cartCookie *http.Cookie
	for _, ck := range resp.Cookies() {
		if ck.Name == "dtk_cart_id" {
			cartCookie = ck
		}
	}
	require.NotNil(t, cartCookie)
	assert.True(t, cartCookie.HttpOnly)
	assert.Equal(t, "/", cartCookie.Path)

	added := decode[usecase.CartOutput](t, body)
	require.Len(t, added.Cart.Items, 1)
	assert.Equal(t, int64(2), added.Cart.Items[0].Qty)

	resp, body = app.do(t, c, http.MethodPost, "/api/cart", "", map[string]any{"op": "add", "partNo": "DAC-200", "qty": 1})
	requireStatus(t, resp, http.StatusOK, body)

	resp, body = app.do(t, c, http.MethodGet, "/api/cart", "", nil)
	requireStatus(t, resp, http.StatusOK, body)
	got := decode[usecase.CartOutput](t, body)
	assert.Equal(t, added.Cart.ID, got.Cart.ID)
	assert.Len(t, got.Cart.Items, 2)

	// 価格なしの行は小計に入らない
	resp, body = app.do(t, c, http.MethodGet, "/api/checkout/summary", "", nil)
	requireStatus(t, resp, http.StatusOK, body)
	sum := decode[usecase.SummaryOutput](t, body)
	assert.Equal(t, 1, sum.PricedCount)
	assert.Equal(t, int64(900), sum.SubtotalCents)
	assert.Equal(t, int64(90), sum.ShippingCents)
	assert.Equal(t, int64(117), sum.TaxCents)
	assert.Equal(t, int64(1107), sum.TotalCents)

	resp, body = app.do(t, c, http.MethodPost, "/api/cart", "", map[string]any{"op": "explode", "partNo": "DAC-100"})
	requireStatus(t, resp, http.StatusBadRequest, body)
}

func TestCheckout_OrderCurrencyFollowsCharge(t *testing.T) {
	app := newTestApp(t)
	buyer := app.client(t)

	resp, body := app.do(t, buyer, http.MethodPost, "/api/cart", "", map[string]any{"op": "set", "partNo": "DAC-100", "qty": 2})
	requireStatus(t, resp, http.StatusOK, body)

	// US請求でカナダへ配送
	resp, body = app.do(t, buyer, http.MethodPost, "/api/stripe/create-payment-intent", "", map[string]any{
		"billing": map[string]string{"country": "US", "postal": "14201"},
	})
	requireStatus(t, resp, http.StatusOK, body)
	intent := decode[usecase.PaymentIntentOutput](t, body)
	assert.Equal(t, "usd", intent.Currency)

	resp, body = app.do(t, buyer, http.MethodPost, "/api/orders", "", map[string]any{
		"stripePaymentIntentId": intent.PaymentIntentID,
		"shipping": map[string]string{
			"name":     "Buyer",
			"email":    "buyer@example.com",
			"phone":    "905-268-0393",
			"line1":    "7-20 Lightbeam Terrace",
			"city":     "Brampton",
			"province": "ON",
			"postal":   "L6Y 6H9",
			"country":  "CA",
		},
	})
	requireStatus(t, resp, http.StatusOK, body)
	created := decode[usecase.CreateOrderOutput](t, body)

	var stored model.Order
	require.NoError(t, app.db.Where("id = ?", created.OrderID).First(&stored).Error)
	assert.Equal(t, "USD", stored.Currency)
	assert.Equal(t, "CA", stored.ShipCountry)
	assert.Equal(t, intent.AmountCents, stored.TotalCents)
}

func TestCheckout_OrderWebhookAndAdmin(t *testing.T) {
	app := newTestApp(t)
	buyer := app.client(t)

	resp, body := app.do(t, buyer, http.MethodPost, "/api/cart", "", map[string]any{"op": "set", "partNo": "DAC-100", "qty": 2})
	requireStatus(t, resp, http.StatusOK, body)

	resp, body = app.do(t, buyer, http.MethodPost, "/api/stripe/create-payment-intent", "", map[string]any{
		"receiptEmail": "buyer@example.com",
		"billing":      map[string]string{"country": "CA", "postal": "L6Y 6H9"},
	})
	requireStatus(t, resp, http.StatusOK, body)
	intent := decode[usecase.PaymentIntentOutput](t, body)
	assert.Equal(t, "pi_test", intent.PaymentIntentID)
	assert.Equal(t, int64(1107), intent.AmountCents)
	assert.Equal(t, "cad", intent.Currency)

	order := map[string]any{
		"paymentMethod":         "STRIPE",
		"stripePaymentIntentId": intent.PaymentIntentID,
		"shipping": map[string]string{
			"name":     "Buyer",
			"email":    "buyer@example.com",
			"phone":    "905-268-0393",
			"line1":    "7-20 Lightbeam Terrace",
			"city":     "Brampton",
			"province": "ON",
			"postal":   "L6Y 6H9",
			"country":  "Canada",
		},
	}
	resp, body = app.do(t, buyer, http.MethodPost, "/api/orders", "", order)
	requireStatus(t, resp, http.StatusOK, body)
	created := decode[usecase.CreateOrderOutput](t, body)
	assert.False(t, created.Reused)
	assert.Equal(t, model.OrderStatusAwaitingPayment, created.Status)

	// 同じPaymentIntentなら同じ注文
	resp, body = app.do(t, buyer, http.MethodPost, "/api/orders", "", order)
	requireStatus(t, resp, http.StatusOK, body)
	again := decode[usecase.CreateOrderOutput](t, body)
	assert.True(t, again.Reused)
	assert.Equal(t, created.OrderID, again.OrderID)

	// ゲストは内部idでだけ見られる
	resp, body = app.do(t, buyer, http.MethodGet, "/api/orders/"+created.OrderID, "", nil)
	requireStatus(t, resp, http.StatusOK, body)
	resp, body = app.do(t, buyer, http.MethodGet, "/api/orders/"+created.PublicRef, "", nil)
	requireStatus(t, resp, http.StatusNotFound, body)

	event := map[string]string{"Type": payment.EventPaymentSucceeded, "PaymentIntentID": "pi_test"}
	resp, body = app.do(t, buyer, http.MethodPost, "/api/stripe/webhook", "", event)
	requireStatus(t, resp, http.StatusBadRequest, body)
	resp, body = app.do(t, buyer, http.MethodPost, "/api/stripe/webhook", "", event, "Stripe-Signature", "bad")
	requireStatus(t, resp, http.StatusBadRequest, body)

	resp, body = app.do(t, buyer, http.MethodPost, "/api/webhooks/stripe", "", event, "Stripe-Signature", "ok")
	requireStatus(t, resp, http.StatusOK, body)

	resp, body = app.do(t, buyer, http.MethodPost, "/api/stripe/webhook", "", event, "Stripe-Signature", "ok")
	requireStatus(t, resp, http.StatusOK, body)
	redelivered := decode[usecase.WebhookOutput](t, body)
	assert.True(t, redelivered.AlreadyPaid)

	var stored model.Order
	require.NoError(t, app.db.Where("id = ?", created.OrderID).First(&stored).Error)
	assert.Equal(t, model.OrderStatusPaid, stored.Status)
	assert.True(t, stored.ConfirmationEmailSent)
	assert.Equal(t, "CA", stored.ShipCountry)

	staff := app.client(t)
	resp, body = app.do(t, staff, http.MethodGet, "/api/admin/orders", "", nil)
	requireStatus(t, resp, http.StatusUnauthorized, body)

	salesToken := app.staffLogin(t, staff, model.RoleSales)
	resp, body = app.do(t, staff, http.MethodGet, "/api/admin/dashboard", salesToken, nil)
	requireStatus(t, resp, http.StatusOK, body)
	dash := decode[usecase.DashboardOutput](t, body)
	assert.Equal(t, int64(1), dash.TotalOrders)

	resp, body = app.do(t, staff, http.MethodPatch, "/api/admin/orders/"+created.OrderID+"/status", salesToken,
		map[string]string{"status": "SHIPPED", "trackingUrl": "https://track.example/1"})
	requireStatus(t, resp, http.StatusOK, body)
	shipped := decode[handler.OrderDetailResponse](t, body)
	assert.Equal(t, model.OrderStatusShipped, shipped.Order.Status)

	// 監査ログは ADMIN だけ
	resp, body = app.do(t, staff, http.MethodGet, "/api/admin/audit-logs", salesToken, nil)
	requireStatus(t, resp, http.StatusForbidden, body)

	adminToken := app.staffLogin(t, staff, model.RoleAdmin)
	resp, body = app.do(t, staff, http.MethodGet, "/api/admin/audit-logs?resourceId="+created.OrderID, adminToken, nil)
	requireStatus(t, resp, http.StatusOK, body)
	assert.Contains(t, string(body), string(model.AuditActionUpdateOrderStatus))

	// スタッフは publicRef でも見られる
	resp, body = app.do(t, staff, http.MethodGet, "/api/orders/"+created.PublicRef, adminToken, nil)
	requireStatus(t, resp, http.StatusOK, body)
}

func TestAuth_MeAndRevokedToken(t *testing.T) {
	app := newTestApp(t)
	c := app.client(t)

	resp, body := app.do(t, c, http.MethodGet, "/api/auth/me", "", nil)
	requireStatus(t, resp, http.StatusUnauthorized, body)

	token := app.staffLogin(t, c, model.RoleOps)
	resp, body = app.do(t, c, http.MethodGet, "/api/auth/me", token, nil)
	requireStatus(t, resp, http.StatusOK, body)
	assert.Contains(t, string(body), `"role":"OPS"`)

	resp, body = app.do(t, c, http.MethodGet, "/api/account/profile", token, nil)
	requireStatus(t, resp, http.StatusOK, body)

	// token_version が上がれば古いトークンは使えない
	require.NoError(t, app.db.Model(&model.User{}).Where("email = ?", "ops@dtk.example").
		UpdateColumn("token_version", gorm.Expr("token_version + 1")).Error)
	resp, body = app.do(t, c, http.MethodGet, "/api/account/profile", token, nil)
	requireStatus(t, resp, http.StatusUnauthorized, body)
}

func TestSignup_LoginRequiresVerification(t *testing.T) {
	app := newTestApp(t)
	c := app.client(t)

	resp, body := app.do(t, c, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"name": "New Buyer", "email": "New@Example.com", "password": "password123",
	})
	requireStatus(t, resp, http.StatusOK, body)

	resp, body = app.do(t, c, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "new@example.com", "password": "password123",
	})
	requireStatus(t, resp, http.StatusForbidden, body)
	assert.Equal(t, "EMAIL_NOT_VERIFIED", decode[handler.ErrorResponse](t, body).Code)
}
