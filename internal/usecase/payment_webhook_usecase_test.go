package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/Kartik-Sangwan/dtk-site/internal/domain/model"
	"github.com/Kartik-Sangwan/dtk-site/internal/notify"
	"github.com/Kartik-Sangwan/dtk-site/internal/payment"
	"github.com/Kartik-Sangwan/dtk-site/internal/repository/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var webhookNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newWebhookUC() (*PaymentWebhookUsecase, *mocks.OrderRepo, *GatewayMock, *NotifierMock) {
	orders := &mocks.OrderRepo{}
	gw := &GatewayMock{}
	n := &NotifierMock{}
	uc := NewPaymentWebhookUsecase(orders, gw, n)
	uc.now = func() time.Time { return webhookNow }
	return uc, orders, gw, n
}

func awaitingOrder() model.Order {
	return model.Order{
		ID:                    "order-1",
		PublicRef:             "DTK-ABCD2345",
		Status:                model.OrderStatusAwaitingPayment,
		StripePaymentIntentID: "pi_123",
		ShipEmail:             "pat@example.com",
	}
}

func TestPaymentWebhook_HandleWebhook_BadSignature(t *testing.T) {
	uc, _, gw, _ := newWebhookUC()
	gw.On("ParseWebhook", []byte("{}"), "bad").Return(payment.WebhookEvent{}, fmt.Errorf("%w: mismatch", payment.ErrInvalidSignature)).Once()

	_, err := uc.HandleWebhook(context.Background(), []byte("{}"), "bad")
	assertHTTPError(t, err, http.StatusBadRequest, "Webhook signature verification failed")
}

func TestPaymentWebhook_HandleWebhook_IgnoresOtherEvents(t *testing.T) {
	uc, orders, gw, _ := newWebhookUC()
	gw.On("ParseWebhook", mock.Anything, "sig").Return(payment.WebhookEvent{Type: "charge.refunded"}, nil).Once()

	out, err := uc.HandleWebhook(context.Background(), []byte("{}"), "sig")
	require.NoError(t, err)
	assert.Equal(t, WebhookOutput{OK: true, Ignored: "charge.refunded"}, out)
	orders.AssertNotCalled(t, "FindByPaymentIntentID", mock.Anything, mock.Anything)
}

func TestPaymentWebhook_NoMatchingOrder(t *testing.T) {
	uc, orders, _, _ := newWebhookUC()
	ctx := context.Background()
	orders.On("FindByPaymentIntentID", ctx, "pi_x").Return(model.Order{}, false, nil).Once()

	out, err := uc.HandlePaymentConfirmed(ctx, "pi_x")
	require.NoError(t, err)
	require.NotNil(t, out.Matched)
	assert.False(t, *out.Matched)
	assert.True(t, out.OK)
}

func TestPaymentWebhook_AlreadyPaid(t *testing.T) {
	uc, orders, gw, n := newWebhookUC()
	ctx := context.Background()
	o := awaitingOrder()
	o.Status = model.OrderStatusPaid
	o.ConfirmationEmailSent = true
	orders.On("FindByPaymentIntentID", ctx, "pi_123").Return(o, true, nil).Once()

	out, err := uc.HandlePaymentConfirmed(ctx, "pi_123")
	require.NoError(t, err)
	assert.Equal(t, WebhookOutput{OK: true, AlreadyPaid: true}, out)
	gw.AssertNotCalled(t, "ReceiptURL", mock.Anything, mock.Anything)
	n.AssertNotCalled(t, "SendOrderConfirmation", mock.Anything, mock.Anything)
}

func TestPaymentWebhook_MarksPaidAndSendsBoth(t *testing.T) {
	uc, orders, gw, n := newWebhookUC()
	ctx := context.Background()
	orders.On("FindByPaymentIntentID", ctx, "pi_123").Return(awaitingOrder(), true, nil).Once()
	gw.On("ReceiptURL", ctx, "pi_123").Return("https://pay.stripe.com/receipts/r1", nil).Once()
	orders.On("MarkPaid", ctx, "order-1", webhookNow, "https://pay.stripe.com/receipts/r1").Return(true, nil).Once()
	orders.On("ClaimConfirmationEmail", ctx, "order-1", webhookNow, confirmationClaimLease).Return(true, nil).Once()

	paid := mock.MatchedBy(func(o model.Order) bool {
		return o.Status == model.OrderStatusPaid && o.ReceiptURL == "https://pay.stripe.com/receipts/r1"
	})
	n.On("SendOrderConfirmation", ctx, paid).Return(nil).Once()
	n.On("SendCompanyOrderNotice", ctx, paid).Return(nil).Once()
	orders.On("SetConfirmationEmailSent", ctx, "order-1").Return(nil).Once()

	out, err := uc.HandlePaymentConfirmed(ctx, "pi_123")
	require.NoError(t, err)
	assert.Equal(t, WebhookOutput{OK: true}, out)
	orders.AssertExpectations(t)
	n.AssertExpectations(t)
}

func TestPaymentWebhook_ReceiptLookupFailureStillPays(t *testing.T) {
	uc, orders, gw, n := newWebhookUC()
	ctx := context.Background()
	orders.On("FindByPaymentIntentID", ctx, "pi_123").Return(awaitingOrder(), true, nil).Once()
	gw.On("ReceiptURL", ctx, "pi_123").Return("", errors.New("timeout")).Once()
	orders.On("MarkPaid", ctx, "order-1", webhookNow, "").Return(true, nil).Once()
	orders.On("ClaimConfirmationEmail", ctx, "order-1", webhookNow, confirmationClaimLease).Return(true, nil).Once()
	n.On("SendOrderConfirmation", ctx, mock.Anything).Return(nil).Once()
	n.On("SendCompanyOrderNotice", ctx, mock.Anything).Return(errors.New("smtp down")).Once()
	orders.On("SetConfirmationEmailSent", ctx, "order-1").Return(nil).Once()

	_, err := uc.HandlePaymentConfirmed(ctx, "pi_123")
	require.NoError(t, err)
	orders.AssertExpectations(t)
}

func TestPaymentWebhook_LostMarkPaidDoesNotSend(t *testing.T) {
	// 先にPAIDにした配信がまだ送信中でも、負けた側は送らない
	uc, orders, gw, n := newWebhookUC()
	ctx := context.Background()
	orders.On("FindByPaymentIntentID", ctx, "pi_123").Return(awaitingOrder(), true, nil).Once()
	gw.On("ReceiptURL", ctx, "pi_123").Return("", nil).Once()
	orders.On("MarkPaid", ctx, "order-1", webhookNow, "").Return(false, nil).Once()

	out, err := uc.HandlePaymentConfirmed(ctx, "pi_123")
	require.NoError(t, err)
	assert.Equal(t, WebhookOutput{OK: true, AlreadyPaid: true}, out)
	orders.AssertNotCalled(t, "ClaimConfirmationEmail", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	n.AssertNotCalled(t, "SendOrderConfirmation", mock.Anything, mock.Anything)
	n.AssertNotCalled(t, "SendCompanyOrderNotice", mock.Anything, mock.Anything)
}

func TestPaymentWebhook_AllSendsFailReturns500(t *testing.T) {
	uc, orders, gw, n := newWebhookUC()
	ctx := context.Background()
	orders.On("FindByPaymentIntentID", ctx, "pi_123").Return(awaitingOrder(), true, nil).Once()
	gw.On("ReceiptURL", ctx, "pi_123").Return("", nil).Once()
	orders.On("MarkPaid", ctx, "order-1", webhookNow, "").Return(true, nil).Once()
	orders.On("ClaimConfirmationEmail", ctx, "order-1", webhookNow, confirmationClaimLease).Return(true, nil).Once()
	n.On("SendOrderConfirmation", ctx, mock.Anything).Return(errors.New("rejected")).Once()
	n.On("SendCompanyOrderNotice", ctx, mock.Anything).Return(errors.New("rejected")).Once()
	orders.On("ReleaseConfirmationEmail", ctx, "order-1").Return(nil).Once()

	_, err := uc.HandlePaymentConfirmed(ctx, "pi_123")
	assertHTTPError(t, err, http.StatusInternalServerError, "order email delivery failed")
	orders.AssertNotCalled(t, "SetConfirmationEmailSent", mock.Anything, mock.Anything)
	orders.AssertExpectations(t)
}

func TestPaymentWebhook_NoRecipientsIsNotAnError(t *testing.T) {
	uc, orders, gw, n := newWebhookUC()
	ctx := context.Background()
	orders.On("FindByPaymentIntentID", ctx, "pi_123").Return(awaitingOrder(), true, nil).Once()
	gw.On("ReceiptURL", ctx, "pi_123").Return("", nil).Once()
	orders.On("MarkPaid", ctx, "order-1", webhookNow, "").Return(true, nil).Once()
	orders.On("ClaimConfirmationEmail", ctx, "order-1", webhookNow, confirmationClaimLease).Return(true, nil).Once()
	n.On("SendOrderConfirmation", ctx, mock.Anything).Return(notify.ErrNoRecipient).Once()
	n.On("SendCompanyOrderNotice", ctx, mock.Anything).Return(notify.ErrNoRecipient).Once()
	orders.On("ReleaseConfirmationEmail", ctx, "order-1").Return(nil).Once()

	out, err := uc.HandlePaymentConfirmed(ctx, "pi_123")
	require.NoError(t, err)
	assert.True(t, out.OK)
	orders.AssertNotCalled(t, "SetConfirmationEmailSent", mock.Anything, mock.Anything)
}

func TestPaymentWebhook_PaidButUnsentRetriesEmail(t *testing.T) {
	uc, orders, gw, n := newWebhookUC()
	ctx := context.Background()
	o := awaitingOrder()
	o.Status = model.OrderStatusPaid
	orders.On("FindByPaymentIntentID", ctx, "pi_123").Return(o, true, nil).Once()
	orders.On("ClaimConfirmationEmail", ctx, "order-1", webhookNow, confirmationClaimLease).Return(true, nil).Once()
	n.On("SendOrderConfirmation", ctx, o).Return(nil).Once()
	n.On("SendCompanyOrderNotice", ctx, o).Return(nil).Once()
	orders.On("SetConfirmationEmailSent", ctx, "order-1").Return(nil).Once()

	_, err := uc.HandlePaymentConfirmed(ctx, "pi_123")
	require.NoError(t, err)
	gw.AssertNotCalled(t, "ReceiptURL", mock.Anything, mock.Anything)
	orders.AssertNotCalled(t, "MarkPaid", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestPaymentWebhook_PaidButClaimedElsewhereSkips(t *testing.T) {
	uc, orders, _, n := newWebhookUC()
	ctx := context.Background()
	o := awaitingOrder()
	o.Status = model.OrderStatusPaid
	orders.On("FindByPaymentIntentID", ctx, "pi_123").Return(o, true, nil).Once()
	orders.On("ClaimConfirmationEmail", ctx, "order-1", webhookNow, confirmationClaimLease).Return(false, nil).Once()

	out, err := uc.HandlePaymentConfirmed(ctx, "pi_123")
	require.NoError(t, err)
	assert.Equal(t, WebhookOutput{OK: true, AlreadyPaid: true}, out)
	n.AssertNotCalled(t, "SendOrderConfirmation", mock.Anything, mock.Anything)
	orders.AssertNotCalled(t, "SetConfirmationEmailSent", mock.Anything, mock.Anything)
}

func TestPaymentWebhook_CancelledOrderOnlyLogs(t *testing.T) {
	uc, orders, _, n := newWebhookUC()
	ctx := context.Background()
	o := awaitingOrder()
	o.Status = model.OrderStatusCancelled
	orders.On("FindByPaymentIntentID", ctx, "pi_123").Return(o, true, nil).Once()

	out, err := uc.HandlePaymentConfirmed(ctx, "pi_123")
	require.NoError(t, err)
	assert.True(t, out.OK)
	n.AssertNotCalled(t, "SendOrderConfirmation", mock.Anything, mock.Anything)
}
