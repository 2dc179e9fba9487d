package usecase

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Kartik-Sangwan/dtk-site/internal/payment"
	"github.com/Kartik-Sangwan/dtk-site/internal/pricing"
	repo "github.com/Kartik-Sangwan/dtk-site/internal/repository"
)

// 決済代行の最低金額（セント）
const minPaymentCents = 50

// Summarizer は pricing.Calculator
type Summarizer interface {
	Summarize(ctx context.Context, lines []pricing.Line) (pricing.Summary, error)
}

type CheckoutUsecase struct {
	pricing Summarizer
	items   repo.CartItemRepository
	gateway payment.Gateway
}

// DI
func NewCheckoutUsecase(pricing Summarizer, items repo.CartItemRepository, gateway payment.Gateway) *CheckoutUsecase {
	return &CheckoutUsecase{pricing: pricing, items: items, gateway: gateway}
}

type SummaryLine struct {
	PartNo         string  `json:"partNo"`
	Qty            int64   `json:"qty"`
	Name           string  `json:"name"`
	Priced         bool    `json:"priced"`
	Price          float64 `json:"price"`
	LineTotal      float64 `json:"lineTotal"`
	UnitPriceCents int64   `json:"unitPriceCents"`
	LineTotalCents int64   `json:"lineTotalCents"`
}

// SummaryOutput はセントと通貨単位の両方を返す
type SummaryOutput struct {
	OK          bool          `json:"ok"`
	Currency    string        `json:"currency"`
	LineItems   []SummaryLine `json:"lineItems"`
	PricedCount int           `json:"pricedCount"`

	Subtotal float64 `json:"subtotal"`
	Shipping float64 `json:"shipping"`
	Tax      float64 `json:"tax"`
	Total    float64 `json:"total"`

	SubtotalCents int64 `json:"subtotalCents"`
	ShippingCents int64 `json:"shippingCents"`
	TaxCents      int64 `json:"taxCents"`
	TotalCents    int64 `json:"totalCents"`
}

// Summarize はクライアントから来た明細を在庫表の価格で計算し直す
func (u *CheckoutUsecase) Summarize(ctx context.Context, lines []CartLine) (SummaryOutput, error) {
	s, err := u.summarize(ctx, lines)
	if err != nil {
		return SummaryOutput{}, err
	}
	return toSummaryOutput(s), nil
}

// SummarizeCart は cookie カートの中身で計算する
func (u *CheckoutUsecase) SummarizeCart(ctx context.Context, cartID string) (SummaryOutput, error) {
	lines, err := u.cartLines(ctx, cartID)
	if err != nil {
		return SummaryOutput{}, err
	}
	return u.Summarize(ctx, lines)
}

func (u *CheckoutUsecase) cartLines(ctx context.Context, cartID string) ([]CartLine, error) {
	items, err := u.items.ListByCartID(ctx, cartID)
	if err != nil {
		return nil, errDB()
	}
	lines := make([]CartLine, 0, len(items))
	for _, it := range items {
		lines = append(lines, CartLine{PartNo: it.PartNo, Qty: it.Qty})
	}
	return lines, nil
}

func (u *CheckoutUsecase) summarize(ctx context.Context, lines []CartLine) (pricing.Summary, error) {
	in := make([]pricing.Line, 0, len(lines))
	for _, l := range lines {
		in = append(in, pricing.Line{PartNo: l.PartNo, Qty: l.Qty})
	}

	s, err := u.pricing.Summarize(ctx, in)
	if err != nil {
		slog.ErrorContext(ctx, "pricing failed", slog.Any("err", err))
		return pricing.Summary{}, NewHTTPError(http.StatusInternalServerError, "inventory unavailable")
	}
	return s, nil
}

func toSummaryOutput(s pricing.Summary) SummaryOutput {
	out := SummaryOutput{
		OK:            true,
		Currency:      s.Currency,
		LineItems:     make([]SummaryLine, 0, len(s.Lines)),
		PricedCount:   s.PricedCount,
		Subtotal:      pricing.Major(s.SubtotalCents),
		Shipping:      pricing.Major(s.ShippingCents),
		Tax:           pricing.Major(s.TaxCents),
		Total:         pricing.Major(s.TotalCents),
		SubtotalCents: s.SubtotalCents,
		ShippingCents: s.ShippingCents,
		TaxCents:      s.TaxCents,
		TotalCents:    s.TotalCents,
	}
	for _, l := range s.Lines {
		out.LineItems = append(out.LineItems, SummaryLine{
			PartNo:         l.PartNo,
			Qty:            l.Qty,
			Name:           l.Name,
			Priced:         l.Priced,
			Price:          pricing.Major(l.UnitPriceCents),
			LineTotal:      pricing.Major(l.LineTotalCents),
			UnitPriceCents: l.UnitPriceCents,
			LineTotalCents: l.LineTotalCents,
		})
	}
	return out
}

// POST /api/stripe/create-payment-intent の入力。金額はクライアントから受け取らない
type PaymentIntentInput struct {
	ReceiptEmail   string
	Shipping       *payment.Address
	BillingCountry string
	BillingPostal  string
	IdempotencyKey string
}

type PaymentIntentOutput struct {
	ClientSecret    string `json:"clientSecret"`
	PaymentIntentID string `json:"paymentIntentId"`
	AmountCents     int64  `json:"amountCents"`
	Currency        string `json:"currency"`
}

func (u *CheckoutUsecase) CreatePaymentIntent(ctx context.Context, cartID string, in PaymentIntentInput) (PaymentIntentOutput, error) {
	lines, err := u.cartLines(ctx, cartID)
	if err != nil {
		return PaymentIntentOutput{}, err
	}
	if len(lines) == 0 {
		return PaymentIntentOutput{}, NewHTTPError(http.StatusBadRequest, "Cart is empty")
	}

	s, err := u.summarize(ctx, lines)
	if err != nil {
		return PaymentIntentOutput{}, err
	}
	if s.TotalCents < minPaymentCents {
		return PaymentIntentOutput{}, NewHTTPError(http.StatusBadRequest, "amountCents must be a number >= 50")
	}

	billing, _ := NormalizeCountry(in.BillingCountry)
	currency := strings.ToLower(currencyFor(billing))

	intent, err := u.gateway.CreatePaymentIntent(ctx, payment.CreateIntentInput{
		AmountCents:    s.TotalCents,
		Currency:       currency,
		ReceiptEmail:   strings.TrimSpace(in.ReceiptEmail),
		Shipping:       in.Shipping,
		CartID:         cartID,
		BillingCountry: strings.TrimSpace(in.BillingCountry),
		BillingPostal:  strings.TrimSpace(in.BillingPostal),
		IdempotencyKey: strings.TrimSpace(in.IdempotencyKey),
	})
	if err != nil {
		slog.ErrorContext(ctx, "create payment intent failed", slog.String("cart_id", cartID), slog.Any("err", err))
		return PaymentIntentOutput{}, NewHTTPError(http.StatusInternalServerError, "payment provider error")
	}

	return PaymentIntentOutput{
		ClientSecret:    intent.ClientSecret,
		PaymentIntentID: intent.ID,
		AmountCents:     s.TotalCents,
		Currency:        currency,
	}, nil
}
