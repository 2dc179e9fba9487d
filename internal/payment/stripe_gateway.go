package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
)

const (
	metadataSource = "dtk_place_order"
	// metadata の値は500文字まで
	maxMetadataLen = 500
	maxPostalLen   = 20
)

type StripeGateway struct {
	sc            *client.API
	webhookSecret string
}

// NewStripeGateway は backends が nil なら本番APIに向く
func NewStripeGateway(secretKey, webhookSecret string, backends *stripe.Backends) *StripeGateway {
	sc := &client.API{}
	sc.Init(secretKey, backends)
	return &StripeGateway{sc: sc, webhookSecret: webhookSecret}
}

func (g *StripeGateway) CreatePaymentIntent(ctx context.Context, in CreateIntentInput) (Intent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:             stripe.Int64(in.AmountCents),
		Currency:           stripe.String(strings.ToLower(in.Currency)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
	}
	params.Context = ctx

	if in.ReceiptEmail != "" {
		params.ReceiptEmail = stripe.String(in.ReceiptEmail)
	}
	if in.Shipping != nil {
		params.Shipping = shippingParams(*in.Shipping)
	}

	params.AddMetadata("source", metadataSource)
	params.AddMetadata("cart", truncate(in.CartID, maxMetadataLen))
	params.AddMetadata("billing_country", strings.ToUpper(in.BillingCountry))
	params.AddMetadata("billing_postal", truncate(in.BillingPostal, maxPostalLen))

	if in.IdempotencyKey != "" {
		params.SetIdempotencyKey(in.IdempotencyKey)
	}

	pi, err := g.sc.PaymentIntents.New(params)
	if err != nil {
		return Intent{}, fmt.Errorf("create payment intent: %w", err)
	}

	return Intent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		AmountCents:  pi.Amount,
		Currency:     string(pi.Currency),
	}, nil
}

func (g *StripeGateway) GetPaymentIntent(ctx context.Context, intentID string) (Intent, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	pi, err := g.sc.PaymentIntents.Get(intentID, params)
	if err != nil {
		return Intent{}, fmt.Errorf("retrieve payment intent: %w", err)
	}
	return Intent{ID: pi.ID, AmountCents: pi.Amount, Currency: string(pi.Currency)}, nil
}

func (g *StripeGateway) ReceiptURL(ctx context.Context, intentID string) (string, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	params.AddExpand("latest_charge")

	pi, err := g.sc.PaymentIntents.Get(intentID, params)
	if err != nil {
		return "", fmt.Errorf("retrieve payment intent: %w", err)
	}
	if pi.LatestCharge == nil {
		return "", nil
	}
	return pi.LatestCharge.ReceiptURL, nil
}

func (g *StripeGateway) ParseWebhook(payload []byte, signatureHeader string) (WebhookEvent, error) {
	if signatureHeader == "" {
		return WebhookEvent{}, ErrInvalidSignature
	}

	event, err := webhook.ConstructEventWithOptions(payload, signatureHeader, g.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return WebhookEvent{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	out := WebhookEvent{Type: string(event.Type)}
	if out.Type != EventPaymentSucceeded {
		return out, nil
	}

	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		return WebhookEvent{}, fmt.Errorf("decode payment intent: %w", err)
	}
	out.PaymentIntentID = pi.ID
	return out, nil
}

func shippingParams(a Address) *stripe.ShippingDetailsParams {
	return &stripe.ShippingDetailsParams{
		Name:  stripe.String(a.Name),
		Phone: optional(a.Phone),
		Address: &stripe.AddressParams{
			Line1:      optional(a.Line1),
			Line2:      optional(a.Line2),
			City:       optional(a.City),
			State:      optional(a.Province),
			PostalCode: optional(a.PostalCode),
			Country:    optional(a.Country),
		},
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return stripe.String(s)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
