package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Kartik-Sangwan/dtk-site/internal/domain/model"
	repo "github.com/Kartik-Sangwan/dtk-site/internal/repository"
)

const (
	adminOrderListLimit = 200
	auditLogDefaultLim  = 50
	auditLogMaxLimit    = 200
)

type AdminOrderUsecase struct {
	tx       repo.TransactionManager
	orders   repo.OrderRepository
	users    repo.UserRepository
	audits   repo.AuditLogRepository
	notifier OrderNotifier
	now      func() time.Time
}

// DI
func NewAdminOrderUsecase(
	tx repo.TransactionManager,
	orders repo.OrderRepository,
	users repo.UserRepository,
	audits repo.AuditLogRepository,
	notifier OrderNotifier,
) *AdminOrderUsecase {
	return &AdminOrderUsecase{tx: tx, orders: orders, users: users, audits: audits, notifier: notifier, now: time.Now}
}

type DashboardOutput struct {
	TotalOrders     int64 `json:"totalOrders"`
	AwaitingPayment int64 `json:"awaitingPayment"`
	PaidProcessing  int64 `json:"paidProcessing"`
	Shipped         int64 `json:"shipped"`
	Users           int64 `json:"users"`
}

func (u *AdminOrderUsecase) Dashboard(ctx context.Context) (DashboardOutput, error) {
	c, err := u.orders.Counts(ctx)
	if err != nil {
		return DashboardOutput{}, errDB()
	}
	users, err := u.users.Count(ctx)
	if err != nil {
		return DashboardOutput{}, errDB()
	}
	return DashboardOutput{
		TotalOrders:     c.Total,
		AwaitingPayment: c.AwaitingPayment,
		PaidProcessing:  c.PaidProcessing,
		Shipped:         c.Shipped,
		Users:           users,
	}, nil
}

// List は新しい順に最大200件。status は空なら全件
func (u *AdminOrderUsecase) List(ctx context.Context, status string) ([]model.Order, error) {
	status = strings.TrimSpace(status)
	if status != "" {
		if _, ok := model.ParseOrderStatus(status); !ok {
			return nil, NewHTTPError(http.StatusBadRequest, "invalid status")
		}
	}

	orders, err := u.orders.ListAdmin(ctx, repo.AdminOrderListFilter{Status: status, Limit: adminOrderListLimit})
	if err != nil {
		return nil, errDB()
	}
	return orders, nil
}

type AdminUpdateOrderStatusInput struct {
	Status      string
	TrackingURL string
}

type orderAuditState struct {
	Status      model.OrderStatus `json:"status"`
	TrackingURL string            `json:"trackingUrl,omitempty"`
}

// UpdateStatus はスタッフ操作。PAIDはwebhookだけが付ける。
// 発送メールはコミット後に1回だけ送る（失敗してもエラーにしない）
func (u *AdminOrderUsecase) UpdateStatus(ctx context.Context, actorUserID int64, orderID string, in AdminUpdateOrderStatusInput) (model.Order, error) {
	if actorUserID <= 0 {
		return model.Order{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return model.Order{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	next, ok := model.ParseOrderStatus(strings.TrimSpace(in.Status))
	if !ok {
		return model.Order{}, NewHTTPError(http.StatusBadRequest, "Invalid order status update payload")
	}
	if next == model.OrderStatusPaid {
		return model.Order{}, NewHTTPError(http.StatusBadRequest, "PAID is set by payment confirmation only")
	}
	tracking := strings.TrimSpace(in.TrackingURL)
	if tracking != "" && !isHTTPURL(tracking) {
		return model.Order{}, NewHTTPError(http.StatusBadRequest, "tracking URL must be an absolute http(s) URL")
	}

	var out model.Order
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return errDB()
		}

		// 終端ガード
		if o.Status.IsTerminal() {
			return NewHTTPError(http.StatusBadRequest, "cannot change "+strings.ToLower(string(o.Status))+" order")
		}

		if next == model.OrderStatusShipped && tracking == "" {
			tracking = o.TrackingURL
		}
		if next == model.OrderStatusShipped && !isHTTPURL(tracking) {
			return NewHTTPError(http.StatusBadRequest, "tracking URL is required to mark an order shipped")
		}

		action := model.AuditActionUpdateOrderStatus
		if o.Status == next {
			// 同じステータスは何もしない。発送済みの追跡URL変更だけ通す
			if next != model.OrderStatusShipped || tracking == o.TrackingURL {
				out = o
				return nil
			}
			action = model.AuditActionUpdateTracking
		}

		before := orderAuditState{Status: o.Status, TrackingURL: o.TrackingURL}
		patch := repo.OrderStatusPatch{Status: next}
		if next == model.OrderStatusShipped {
			patch.TrackingURL = &tracking
			o.TrackingURL = tracking
			if o.ShippedAt == nil {
				now := u.now()
				patch.ShippedAt = &now
				o.ShippedAt = &now
			}
		}
		o.Status = next

		if err := r.Orders().UpdateStatus(ctx, o.ID, patch); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return NewHTTPError(http.StatusNotFound, "not found")
			}
			return errDB()
		}

		// ★監査ログ
		after := orderAuditState{Status: o.Status, TrackingURL: o.TrackingURL}
		if err := r.AuditLogs().Create(ctx, model.AuditLog{
			ActorUserID:  actorUserID,
			Action:       action,
			ResourceType: model.AuditResourceOrder,
			ResourceID:   o.ID,
			BeforeJSON:   mustJSON(before),
			AfterJSON:    mustJSON(after),
			CreatedAt:    u.now(),
		}); err != nil {
			return errDB()
		}

		out = o
		return nil
	})
	if err != nil {
		return model.Order{}, err
	}

	u.maybeSendShipment(ctx, &out)
	return out, nil
}

func (u *AdminOrderUsecase) maybeSendShipment(ctx context.Context, o *model.Order) {
	if o.Status != model.OrderStatusShipped || o.TrackingURL == "" || o.ShipEmail == "" || o.ShipmentEmailSent {
		return
	}

	if err := u.notifier.SendShipmentNotice(ctx, *o); err != nil {
		slog.ErrorContext(ctx, "shipment email failed", slog.String("order_id", o.ID), slog.Any("err", err))
		return
	}
	if err := u.orders.SetShipmentEmailSent(ctx, o.ID); err != nil {
		slog.ErrorContext(ctx, "mark shipment email sent failed", slog.String("order_id", o.ID), slog.Any("err", err))
		return
	}
	o.ShipmentEmailSent = true
}

type AuditLogQuery struct {
	ResourceID string
	Action     string
	Limit      int
	Offset     int
}

// ListAuditLogs は ADMIN 用
func (u *AdminOrderUsecase) ListAuditLogs(ctx context.Context, q AuditLogQuery) ([]model.AuditLog, error) {
	if q.Limit == 0 {
		q.Limit = auditLogDefaultLim
	}
	if q.Limit < 1 || q.Limit > auditLogMaxLimit {
		return nil, NewHTTPError(http.StatusBadRequest, "invalid limit")
	}
	if q.Offset < 0 {
		return nil, NewHTTPError(http.StatusBadRequest, "invalid offset")
	}

	f := repo.AuditLogFilter{
		ResourceType: model.AuditResourceOrder,
		ResourceID:   strings.TrimSpace(q.ResourceID),
		Limit:        q.Limit,
		Offset:       q.Offset,
	}
	if a := strings.TrimSpace(q.Action); a != "" {
		action, ok := model.ParseAuditAction(a)
		if !ok {
			return nil, NewHTTPError(http.StatusBadRequest, "invalid action")
		}
		f.Action = action
	}

	logs, err := u.audits.List(ctx, f)
	if err != nil {
		return nil, errDB()
	}
	return logs, nil
}

func isHTTPURL(s string) bool {
	p, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (p.Scheme == "http" || p.Scheme == "https") && p.Host != ""
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(b)
}
