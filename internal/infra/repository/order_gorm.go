package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Kartik-Sangwan/dtk-site/internal/domain/model"
	repo "github.com/Kartik-Sangwan/dtk-site/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// 管理一覧の最大件数
const adminOrderListMax = 200

type OrderGormRepository struct {
	db *gorm.DB
}

func NewOrderGormRepository(db *gorm.DB) *OrderGormRepository {
	return &OrderGormRepository{db: db}
}

func (r *OrderGormRepository) Create(ctx context.Context, order *model.Order) error {
	//明細は別で作る
	return mapError(r.db.WithContext(ctx).Omit(clause.Associations).Create(order).Error)
}

func (r *OrderGormRepository) FindByID(ctx context.Context, orderID string) (model.Order, error) {
	var o model.Order
	err := r.db.WithContext(ctx).Preload("Items", orderItemsAsc).Where("id = ?", orderID).First(&o).Error
	if err != nil {
		return model.Order{}, mapError(err)
	}
	return o, nil
}

func (r *OrderGormRepository) FindByIDOrPublicRef(ctx context.Context, ref string) (model.Order, error) {
	var o model.Order
	err := r.db.WithContext(ctx).
		Preload("Items", orderItemsAsc).
		Where("id = ? OR public_ref = ?", ref, ref).
		First(&o).Error
	if err != nil {
		return model.Order{}, mapError(err)
	}
	return o, nil
}

func (r *OrderGormRepository) FindByPaymentIntentID(ctx context.Context, intentID string) (model.Order, bool, error) {
	var o model.Order
	err := r.db.WithContext(ctx).
		Preload("Items", orderItemsAsc).
		Where("stripe_payment_intent_id = ?", intentID).
		First(&o).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Order{}, false, nil
	}
	if err != nil {
		return model.Order{}, false, err
	}
	return o, true, nil
}

func (r *OrderGormRepository) ListByUserID(ctx context.Context, userID int64, limit int) ([]model.Order, error) {
	if limit <= 0 || limit > adminOrderListMax {
		limit = 50
	}

	var items []model.Order
	err := r.db.WithContext(ctx).
		Preload("Items", orderItemsAsc).
		Where("user_id = ?", userID).
		Order("created_at desc").
		Limit(limit).
		Find(&items).Error
	if err != nil {
		return []model.Order{}, err
	}
	return items, nil
}

func (r *OrderGormRepository) ListAdmin(ctx context.Context, f repo.AdminOrderListFilter) ([]model.Order, error) {
	if f.Limit <= 0 || f.Limit > adminOrderListMax {
		f.Limit = adminOrderListMax
	}

	q := r.db.WithContext(ctx).Model(&model.Order{}).Preload("Items", orderItemsAsc)

	//status 絞り込み
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}

	var items []model.Order
	if err := q.Order("created_at desc").Limit(f.Limit).Find(&items).Error; err != nil {
		return []model.Order{}, err
	}
	return items, nil
}

func (r *OrderGormRepository) Counts(ctx context.Context) (repo.OrderCounts, error) {
	type row struct {
		Status model.OrderStatus
		N      int64
	}
	var rows []row
	err := r.db.WithContext(ctx).
		Model(&model.Order{}).
		Select("status, count(*) as n").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return repo.OrderCounts{}, err
	}

	var c repo.OrderCounts
	for _, rw := range rows {
		c.Total += rw.N
		switch rw.Status {
		case model.OrderStatusAwaitingPayment:
			c.AwaitingPayment += rw.N
		case model.OrderStatusPaid, model.OrderStatusProcessing:
			c.PaidProcessing += rw.N
		case model.OrderStatusShipped:
			c.Shipped += rw.N
		}
	}
	return c, nil
}

// 条件付き更新なので同時に来たwebhookでも遷移は1回
func (r *OrderGormRepository) MarkPaid(ctx context.Context, orderID string, paidAt time.Time, receiptURL string) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&model.Order{}).
		Where("id = ? AND status = ?", orderID, model.OrderStatusAwaitingPayment).
		Updates(map[string]any{
			"status":      model.OrderStatusPaid,
			"paid_at":     paidAt,
			"receipt_url": receiptURL,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *OrderGormRepository) UpdateStatus(ctx context.Context, orderID string, patch repo.OrderStatusPatch) error {
	fields := map[string]any{"status": patch.Status}
	if patch.TrackingURL != nil {
		fields["tracking_url"] = *patch.TrackingURL
	}
	if patch.ShippedAt != nil {
		fields["shipped_at"] = *patch.ShippedAt
	}

	res := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ?", orderID).
		Updates(fields)

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// 同時に来た配信のうち1つだけが確認メールを送る
func (r *OrderGormRepository) ClaimConfirmationEmail(ctx context.Context, orderID string, now time.Time, lease time.Duration) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&model.Order{}).
		Where("id = ? AND confirmation_email_sent = ?", orderID, false).
		Where("(confirmation_claimed_at IS NULL OR confirmation_claimed_at < ?)", now.Add(-lease)).
		Update("confirmation_claimed_at", now)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// 送れなかったので次の配信に回す
func (r *OrderGormRepository) ReleaseConfirmationEmail(ctx context.Context, orderID string) error {
	return r.db.WithContext(ctx).
		Model(&model.Order{}).
		Where("id = ? AND confirmation_email_sent = ?", orderID, false).
		Update("confirmation_claimed_at", nil).Error
}

func (r *OrderGormRepository) SetConfirmationEmailSent(ctx context.Context, orderID string) error {
	return r.setFlag(ctx, orderID, "confirmation_email_sent")
}

func (r *OrderGormRepository) SetShipmentEmailSent(ctx context.Context, orderID string) error {
	return r.setFlag(ctx, orderID, "shipment_email_sent")
}

// MySQLは値が同じだと0件になるので件数は見ない
func (r *OrderGormRepository) setFlag(ctx context.Context, orderID string, column string) error {
	return r.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ?", orderID).
		Update(column, true).Error
}

func orderItemsAsc(db *gorm.DB) *gorm.DB {
	return db.Order("id asc")
}
