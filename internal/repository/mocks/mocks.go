// Package mocks はユースケースのテスト用 testify モック
package mocks

import (
	"context"
	"time"

	"github.com/Kartik-Sangwan/dtk-site/internal/domain/model"
	repo "github.com/Kartik-Sangwan/dtk-site/internal/repository"

	"github.com/stretchr/testify/mock"
)

// =====================
// TxManager / TxRepos
// =====================

// TxManagerMock は WithinTx の中で渡す repos を固定して unit テストを回す
type TxManagerMock struct {
	mock.Mock
	Repos repo.TxRepos
}

func (m *TxManagerMock) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	// 呼ばれた事実だけ記録（ctxの具体値は問わない）
	m.Called(ctx)
	return fn(m.Repos)
}

// TxRepos は使うものだけ入れる（nilのものを呼ぶとpanic）
type TxRepos struct {
	OrderRepo     repo.OrderRepository
	OrderItemRepo repo.OrderItemRepository
	CartRepo      repo.CartRepository
	CartItemRepo  repo.CartItemRepository
	AddressRepo   repo.AddressRepository
	UserRepo      repo.UserRepository
	AuthTokenRepo repo.AuthTokenRepository
	AuditLogRepo  repo.AuditLogRepository
}

func (r *TxRepos) Orders() repo.OrderRepository         { return r.OrderRepo }
func (r *TxRepos) OrderItems() repo.OrderItemRepository { return r.OrderItemRepo }
func (r *TxRepos) Carts() repo.CartRepository           { return r.CartRepo }
func (r *TxRepos) CartItems() repo.CartItemRepository   { return r.CartItemRepo }
func (r *TxRepos) Addresses() repo.AddressRepository    { return r.AddressRepo }
func (r *TxRepos) Users() repo.UserRepository           { return r.UserRepo }
func (r *TxRepos) AuthTokens() repo.AuthTokenRepository { return r.AuthTokenRepo }
func (r *TxRepos) AuditLogs() repo.AuditLogRepository   { return r.AuditLogRepo }

// =====================
// Orders
// =====================

type OrderRepo struct{ mock.Mock }

func (m *OrderRepo) Create(ctx context.Context, order *model.Order) error {
	return m.Called(ctx, order).Error(0)
}

func (m *OrderRepo) FindByID(ctx context.Context, orderID string) (model.Order, error) {
	args := m.Called(ctx, orderID)
	o, _ := args.Get(0).(model.Order)
	return o, args.Error(1)
}

func (m *OrderRepo) FindByIDOrPublicRef(ctx context.Context, ref string) (model.Order, error) {
	args := m.Called(ctx, ref)
	o, _ := args.Get(0).(model.Order)
	return o, args.Error(1)
}

func (m *OrderRepo) FindByPaymentIntentID(ctx context.Context, intentID string) (model.Order, bool, error) {
	args := m.Called(ctx, intentID)
	o, _ := args.Get(0).(model.Order)
	return o, args.Bool(1), args.Error(2)
}

func (m *OrderRepo) ListByUserID(ctx context.Context, userID int64, limit int) ([]model.Order, error) {
	args := m.Called(ctx, userID, limit)
	orders, _ := args.Get(0).([]model.Order)
	return orders, args.Error(1)
}

func (m *OrderRepo) ListAdmin(ctx context.Context, f repo.AdminOrderListFilter) ([]model.Order, error) {
	args := m.Called(ctx, f)
	orders, _ := args.Get(0).([]model.Order)
	return orders, args.Error(1)
}

func (m *OrderRepo) Counts(ctx context.Context) (repo.OrderCounts, error) {
	args := m.Called(ctx)
	c, _ := args.Get(0).(repo.OrderCounts)
	return c, args.Error(1)
}

func (m *OrderRepo) MarkPaid(ctx context.Context, orderID string, paidAt time.Time, receiptURL string) (bool, error) {
	args := m.Called(ctx, orderID, paidAt, receiptURL)
	return args.Bool(0), args.Error(1)
}

func (m *OrderRepo) UpdateStatus(ctx context.Context, orderID string, patch repo.OrderStatusPatch) error {
	return m.Called(ctx, orderID, patch).Error(0)
}

func (m *OrderRepo) ClaimConfirmationEmail(ctx context.Context, orderID string, now time.Time, lease time.Duration) (bool, error) {
	args := m.Called(ctx, orderID, now, lease)
	return args.Bool(0), args.Error(1)
}

func (m *OrderRepo) ReleaseConfirmationEmail(ctx context.Context, orderID string) error {
	return m.Called(ctx, orderID).Error(0)
}

func (m *OrderRepo) SetConfirmationEmailSent(ctx context.Context, orderID string) error {
	return m.Called(ctx, orderID).Error(0)
}

func (m *OrderRepo) SetShipmentEmailSent(ctx context.Context, orderID string) error {
	return m.Called(ctx, orderID).Error(0)
}

type OrderItemRepo struct{ mock.Mock }

func (m *OrderItemRepo) CreateBulk(ctx context.Context, orderID string, items []model.OrderItem) error {
	return m.Called(ctx, orderID, items).Error(0)
}

func (m *OrderItemRepo) ListByOrderID(ctx context.Context, orderID string) ([]model.OrderItem, error) {
	args := m.Called(ctx, orderID)
	items, _ := args.Get(0).([]model.OrderItem)
	return items, args.Error(1)
}

// =====================
// Carts
// =====================

type CartRepo struct{ mock.Mock }

func (m *CartRepo) Create(ctx context.Context, cart model.Cart) error {
	return m.Called(ctx, cart).Error(0)
}

func (m *CartRepo) FindByID(ctx context.Context, cartID string) (model.Cart, error) {
	args := m.Called(ctx, cartID)
	c, _ := args.Get(0).(model.Cart)
	return c, args.Error(1)
}

func (m *CartRepo) FindActiveByUserID(ctx context.Context, userID int64) (model.Cart, error) {
	args := m.Called(ctx, userID)
	c, _ := args.Get(0).(model.Cart)
	return c, args.Error(1)
}

func (m *CartRepo) AttachUser(ctx context.Context, cartID string, userID int64) error {
	return m.Called(ctx, cartID, userID).Error(0)
}

func (m *CartRepo) UpdateStatus(ctx context.Context, cartID string, status model.CartStatus) error {
	return m.Called(ctx, cartID, status).Error(0)
}

func (m *CartRepo) Delete(ctx context.Context, cartID string) error {
	return m.Called(ctx, cartID).Error(0)
}

type CartItemRepo struct{ mock.Mock }

func (m *CartItemRepo) ListByCartID(ctx context.Context, cartID string) ([]model.CartItem, error) {
	args := m.Called(ctx, cartID)
	items, _ := args.Get(0).([]model.CartItem)
	return items, args.Error(1)
}

func (m *CartItemRepo) Increment(ctx context.Context, cartID string, partNo string, inc int64) error {
	return m.Called(ctx, cartID, partNo, inc).Error(0)
}

func (m *CartItemRepo) SetQty(ctx context.Context, cartID string, partNo string, qty int64) error {
	return m.Called(ctx, cartID, partNo, qty).Error(0)
}

func (m *CartItemRepo) DeleteLine(ctx context.Context, cartID string, partNo string) error {
	return m.Called(ctx, cartID, partNo).Error(0)
}

// =====================
// Users / Auth
// =====================

type UserRepo struct{ mock.Mock }

func (m *UserRepo) Create(ctx context.Context, user *model.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *UserRepo) FindByID(ctx context.Context, userID int64) (*model.User, error) {
	args := m.Called(ctx, userID)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *UserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *UserRepo) Update(ctx context.Context, user *model.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *UserRepo) IncrementTokenVersion(ctx context.Context, userID int64) error {
	return m.Called(ctx, userID).Error(0)
}

func (m *UserRepo) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	n, _ := args.Get(0).(int64)
	return n, args.Error(1)
}

type AuthTokenRepo struct{ mock.Mock }

func (m *AuthTokenRepo) Create(ctx context.Context, token *model.AuthToken) error {
	return m.Called(ctx, token).Error(0)
}

func (m *AuthTokenRepo) FindByHash(ctx context.Context, purpose model.AuthTokenPurpose, tokenHash string) (*model.AuthToken, error) {
	args := m.Called(ctx, purpose, tokenHash)
	t, _ := args.Get(0).(*model.AuthToken)
	return t, args.Error(1)
}

func (m *AuthTokenRepo) MarkConsumed(ctx context.Context, tokenID string, at time.Time) error {
	return m.Called(ctx, tokenID, at).Error(0)
}

func (m *AuthTokenRepo) DeleteOthers(ctx context.Context, userID int64, purpose model.AuthTokenPurpose, keepID string) error {
	return m.Called(ctx, userID, purpose, keepID).Error(0)
}

// =====================
// Addresses / Audit
// =====================

type AddressRepo struct{ mock.Mock }

func (m *AddressRepo) FindByUserID(ctx context.Context, userID int64) (model.Address, error) {
	args := m.Called(ctx, userID)
	a, _ := args.Get(0).(model.Address)
	return a, args.Error(1)
}

func (m *AddressRepo) Upsert(ctx context.Context, address model.Address) (model.Address, error) {
	args := m.Called(ctx, address)
	a, _ := args.Get(0).(model.Address)
	return a, args.Error(1)
}

type AuditLogRepo struct{ mock.Mock }

func (m *AuditLogRepo) Create(ctx context.Context, log model.AuditLog) error {
	return m.Called(ctx, log).Error(0)
}

func (m *AuditLogRepo) List(ctx context.Context, filter repo.AuditLogFilter) ([]model.AuditLog, error) {
	args := m.Called(ctx, filter)
	logs, _ := args.Get(0).([]model.AuditLog)
	return logs, args.Error(1)
}

// コンパイル時チェック
var (
	_ repo.TransactionManager  = (*TxManagerMock)(nil)
	_ repo.TxRepos             = (*TxRepos)(nil)
	_ repo.OrderRepository     = (*OrderRepo)(nil)
	_ repo.OrderItemRepository = (*OrderItemRepo)(nil)
	_ repo.CartRepository      = (*CartRepo)(nil)
	_ repo.CartItemRepository  = (*CartItemRepo)(nil)
	_ repo.UserRepository      = (*UserRepo)(nil)
	_ repo.AuthTokenRepository = (*AuthTokenRepo)(nil)
	_ repo.AddressRepository   = (*AddressRepo)(nil)
	_ repo.AuditLogRepository  = (*AuditLogRepo)(nil)
)
