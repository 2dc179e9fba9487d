package usecase

import (
	"context"

	"github.com/Kartik-Sangwan/dtk-site/internal/domain/model"
	"github.com/Kartik-Sangwan/dtk-site/internal/payment"
	"github.com/Kartik-Sangwan/dtk-site/internal/pricing"

	"github.com/stretchr/testify/mock"
)

type SummarizerMock struct{ mock.Mock }

func (m *SummarizerMock) Summarize(ctx context.Context, lines []pricing.Line) (pricing.Summary, error) {
	args := m.Called(ctx, lines)
	s, _ := args.Get(0).(pricing.Summary)
	return s, args.Error(1)
}

type GatewayMock struct{ mock.Mock }

func (m *GatewayMock) CreatePaymentIntent(ctx context.Context, in payment.CreateIntentInput) (payment.Intent, error) {
	args := m.Called(ctx, in)
	i, _ := args.Get(0).(payment.Intent)
	return i, args.Error(1)
}

func (m *GatewayMock) GetPaymentIntent(ctx context.Context, intentID string) (payment.Intent, error) {
	args := m.Called(ctx, intentID)
	i, _ := args.Get(0).(payment.Intent)
	return i, args.Error(1)
}

func (m *GatewayMock) ReceiptURL(ctx context.Context, intentID string) (string, error) {
	args := m.Called(ctx, intentID)
	return args.String(0), args.Error(1)
}

func (m *GatewayMock) ParseWebhook(payload []byte, signature string) (payment.WebhookEvent, error) {
	args := m.Called(payload, signature)
	ev, _ := args.Get(0).(payment.WebhookEvent)
	return ev, args.Error(1)
}

type NotifierMock struct{ mock.Mock }

func (m *NotifierMock) SendOrderConfirmation(ctx context.Context, o model.Order) error {
	return m.Called(ctx, o).Error(0)
}

func (m *NotifierMock) SendCompanyOrderNotice(ctx context.Context, o model.Order) error {
	return m.Called(ctx, o).Error(0)
}

func (m *NotifierMock) SendShipmentNotice(ctx context.Context, o model.Order) error {
	return m.Called(ctx, o).Error(0)
}

// DAC-250F 2個 ×24.50、DF-20 は価格なし
func sampleSummary() pricing.Summary {
	return pricing.Summary{
		Currency: pricing.DefaultCurrency,
		Lines: []pricing.PricedLine{
			{PartNo: "DAC-250F", Name: "Clevis bracket", Qty: 2, UnitPriceCents: 2450, LineTotalCents: 4900, Priced: true},
			{PartNo: "DF-20", Name: "DF-20", Qty: 1, Priced: false},
		},
		PricedCount:   1,
		SubtotalCents: 4900,
		ShippingCents: 490,
		TaxCents:      637,
		TotalCents:    6027,
	}
}

func pricing0() pricing.Summary {
	return pricing.Summary{
		Currency: pricing.DefaultCurrency,
		Lines:    []pricing.PricedLine{{PartNo: "DF-20", Name: "DF-20", Qty: 1}},
	}
}
