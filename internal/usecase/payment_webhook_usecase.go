package usecase

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/Kartik-Sangwan/dtk-site/internal/domain/model"
	"github.com/Kartik-Sangwan/dtk-site/internal/notify"
	"github.com/Kartik-Sangwan/dtk-site/internal/payment"
	repo "github.com/Kartik-Sangwan/dtk-site/internal/repository"
)

// OrderNotifier は注文メール（notify.Dispatcher）
type OrderNotifier interface {
	SendOrderConfirmation(ctx context.Context, o model.Order) error
	SendCompanyOrderNotice(ctx context.Context, o model.Order) error
	SendShipmentNotice(ctx context.Context, o model.Order) error
}

type PaymentWebhookUsecase struct {
	orders   repo.OrderRepository
	gateway  payment.Gateway
	notifier OrderNotifier
	now      func() time.Time
}

// DI
func NewPaymentWebhookUsecase(orders repo.OrderRepository, gateway payment.Gateway, notifier OrderNotifier) *PaymentWebhookUsecase {
	return &PaymentWebhookUsecase{orders: orders, gateway: gateway, notifier: notifier, now: time.Now}
}

type WebhookOutput struct {
	OK          bool   `json:"ok"`
	Matched     *bool  `json:"matched,omitempty"`
	AlreadyPaid bool   `json:"alreadyPaid,omitempty"`
	Ignored     string `json:"ignored,omitempty"`
}

// HandleWebhook は署名を確かめて payment_intent.succeeded だけ処理する
func (u *PaymentWebhookUsecase) HandleWebhook(ctx context.Context, payload []byte, signature string) (WebhookOutput, error) {
	ev, err := u.gateway.ParseWebhook(payload, signature)
	if err != nil {
		slog.WarnContext(ctx, "webhook rejected", slog.Any("err", err))
		if errors.Is(err, payment.ErrInvalidSignature) {
			return WebhookOutput{}, NewHTTPError(http.StatusBadRequest, "Webhook signature verification failed")
		}
		return WebhookOutput{}, NewHTTPError(http.StatusBadRequest, "invalid webhook payload")
	}

	if ev.Type != payment.EventPaymentSucceeded {
		return WebhookOutput{OK: true, Ignored: ev.Type}, nil
	}
	return u.HandlePaymentConfirmed(ctx, ev.PaymentIntentID)
}

// 確認メール送信中の印の有効期間。これを過ぎたら別の配信が取り直せる
const confirmationClaimLease = 2 * time.Minute

// HandlePaymentConfirmed は注文をPAIDにして確認メールを送る。
// 送ろうとしたメールが全部失敗したら500を返して再送させる
func (u *PaymentWebhookUsecase) HandlePaymentConfirmed(ctx context.Context, intentID string) (WebhookOutput, error) {
	o, found, err := u.orders.FindByPaymentIntentID(ctx, intentID)
	if err != nil {
		return WebhookOutput{}, errDB()
	}
	if !found {
		matched := false
		return WebhookOutput{OK: true, Matched: &matched}, nil
	}

	if o.Status == model.OrderStatusPaid && o.ConfirmationEmailSent {
		return WebhookOutput{OK: true, AlreadyPaid: true}, nil
	}

	if o.Status == model.OrderStatusAwaitingPayment {
		paid, moved, err := u.markPaid(ctx, o)
		if err != nil {
			return WebhookOutput{}, err
		}
		if !moved {
			// 同時に来た別の配信が先にPAIDにした。メールもそちらが送る
			return WebhookOutput{OK: true, AlreadyPaid: true}, nil
		}
		o = paid
	}

	if o.Status == model.OrderStatusCancelled {
		slog.WarnContext(ctx, "payment received for cancelled order",
			slog.String("order_id", o.ID), slog.String("payment_intent_id", intentID))
		return WebhookOutput{OK: true}, nil
	}

	if o.ConfirmationEmailSent {
		return WebhookOutput{OK: true}, nil
	}

	claimed, err := u.orders.ClaimConfirmationEmail(ctx, o.ID, u.now(), confirmationClaimLease)
	if err != nil {
		return WebhookOutput{}, errDB()
	}
	if !claimed {
		slog.InfoContext(ctx, "confirmation email handled by another delivery", slog.String("order_id", o.ID))
		return WebhookOutput{OK: true, AlreadyPaid: true}, nil
	}

	if err := u.sendConfirmation(ctx, o); err != nil {
		return WebhookOutput{}, err
	}
	return WebhookOutput{OK: true}, nil
}

// 条件付き更新に勝ったら moved=true
func (u *PaymentWebhookUsecase) markPaid(ctx context.Context, o model.Order) (model.Order, bool, error) {
	// 領収書URLは取れなくても進める
	receiptURL, err := u.gateway.ReceiptURL(ctx, o.StripePaymentIntentID)
	if err != nil {
		slog.WarnContext(ctx, "receipt url lookup failed", slog.String("order_id", o.ID), slog.Any("err", err))
		receiptURL = ""
	}

	paidAt := u.now()
	moved, err := u.orders.MarkPaid(ctx, o.ID, paidAt, receiptURL)
	if err != nil {
		return model.Order{}, false, errDB()
	}
	if !moved {
		return o, false, nil
	}

	o.Status = model.OrderStatusPaid
	o.PaidAt = &paidAt
	o.ReceiptURL = receiptURL
	return o, true, nil
}

func (u *PaymentWebhookUsecase) sendConfirmation(ctx context.Context, o model.Order) error {
	sends := []struct {
		name string
		fn   func(context.Context, model.Order) error
	}{
		{"buyer", u.notifier.SendOrderConfirmation},
		{"company", u.notifier.SendCompanyOrderNotice},
	}

	attempted, sent := 0, 0
	for _, s := range sends {
		err := s.fn(ctx, o)
		if errors.Is(err, notify.ErrNoRecipient) {
			slog.WarnContext(ctx, "order email skipped: no recipient", slog.String("order_id", o.ID), slog.String("to", s.name))
			continue
		}
		attempted++
		if err != nil {
			slog.ErrorContext(ctx, "order email failed", slog.String("order_id", o.ID), slog.String("to", s.name), slog.Any("err", err))
			continue
		}
		sent++
	}

	if sent > 0 {
		if err := u.orders.SetConfirmationEmailSent(ctx, o.ID); err != nil {
			return errDB()
		}
		return nil
	}

	if err := u.orders.ReleaseConfirmationEmail(ctx, o.ID); err != nil {
		slog.ErrorContext(ctx, "release confirmation claim failed", slog.String("order_id", o.ID), slog.Any("err", err))
	}
	if attempted > 0 {
		return NewHTTPError(http.StatusInternalServerError, "order email delivery failed")
	}
	return nil
}
