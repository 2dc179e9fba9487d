package repository

import (
	"context"
	"time"

	"github.com/Kartik-Sangwan/dtk-site/internal/domain/model"
)

type AdminOrderListFilter struct {
	Status string
	Limit  int
}

// ステータス更新時に一緒に変える項目（nilは変更なし）
type OrderStatusPatch struct {
	Status      model.OrderStatus
	TrackingURL *string
	ShippedAt   *time.Time
}

// ダッシュボードの件数
type OrderCounts struct {
	Total           int64
	AwaitingPayment int64
	PaidProcessing  int64
	Shipped         int64
}

type OrderRepository interface {
	// 明細は OrderItemRepository.CreateBulk で作る
	Create(ctx context.Context, order *model.Order) error
	FindByID(ctx context.Context, orderID string) (model.Order, error)
	//idでもpublicRefでも引ける
	FindByIDOrPublicRef(ctx context.Context, ref string) (model.Order, error)
	//同じPaymentIntentなら同じ注文
	FindByPaymentIntentID(ctx context.Context, intentID string) (model.Order, bool, error)
	ListByUserID(ctx context.Context, userID int64, limit int) ([]model.Order, error)
	//管理者用の注文一覧（新しい順）
	ListAdmin(ctx context.Context, f AdminOrderListFilter) ([]model.Order, error)
	Counts(ctx context.Context) (OrderCounts, error)

	// 支払い待ちのときだけPAIDにする。更新したらtrue
	MarkPaid(ctx context.Context, orderID string, paidAt time.Time, receiptURL string) (bool, error)
	UpdateStatus(ctx context.Context, orderID string, patch OrderStatusPatch) error
	// 未送信で誰も送っていない（印が lease より古い）ときだけ取れる。取れたらtrue
	ClaimConfirmationEmail(ctx context.Context, orderID string, now time.Time, lease time.Duration) (bool, error)
	ReleaseConfirmationEmail(ctx context.Context, orderID string) error
	SetConfirmationEmailSent(ctx context.Context, orderID string) error
	SetShipmentEmailSent(ctx context.Context, orderID string) error
}
