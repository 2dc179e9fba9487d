package payment

import (
	"context"
	"errors"
)

// EventPaymentSucceeded だけを処理対象にする
const EventPaymentSucceeded = "payment_intent.succeeded"

// ErrInvalidSignature は署名検証に失敗したとき
var ErrInvalidSignature = errors.New("invalid webhook signature")

type Address struct {
	Name       string
	Phone      string
	Line1      string
	Line2      string
	City       string
	Province   string
	PostalCode string
	Country    string
}

type CreateIntentInput struct {
	AmountCents    int64
	Currency       string // 小文字（cad / usd）
	ReceiptEmail   string
	Shipping       *Address
	CartID         string
	BillingCountry string
	BillingPostal  string
	IdempotencyKey string
}

type Intent struct {
	ID           string
	ClientSecret string
	AmountCents  int64
	Currency     string
}

type WebhookEvent struct {
	Type            string
	PaymentIntentID string
}

// Gateway は決済代行への窓口
type Gateway interface {
	CreatePaymentIntent(ctx context.Context, in CreateIntentInput) (Intent, error)
	// GetPaymentIntent は実際に請求する金額と通貨を返す（ClientSecretは空）
	GetPaymentIntent(ctx context.Context, intentID string) (Intent, error)
	// ReceiptURL は決済の領収書URL。無ければ ""
	ReceiptURL(ctx context.Context, intentID string) (string, error)
	ParseWebhook(payload []byte, signatureHeader string) (WebhookEvent, error)
}
