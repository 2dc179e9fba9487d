package usecase

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode"

	"github.com/Kartik-Sangwan/dtk-site/internal/domain/model"
	"github.com/Kartik-Sangwan/dtk-site/internal/payment"
	"github.com/Kartik-Sangwan/dtk-site/internal/pricing"
	repo "github.com/Kartik-Sangwan/dtk-site/internal/repository"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	publicRefAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	publicRefPrefix   = "DTK-"
	publicRefAttempts = 5
	myOrdersLimit     = 50
)

// NewPublicRef は DTK-XXXXXXXX
func NewPublicRef() (string, error) {
	id, err := gonanoid.Generate(publicRefAlphabet, 8)
	if err != nil {
		return "", err
	}
	return publicRefPrefix + id, nil
}

// NormalizeCountry は CA / US に寄せる。対象外なら false
func NormalizeCountry(country string) (string, bool) {
	switch strings.ToUpper(strings.TrimSpace(country)) {
	case "CA", "CANADA":
		return "CA", true
	case "US", "USA", "UNITED STATES":
		return "US", true
	default:
		return "", false
	}
}

// 請求通貨が分からないときの既定（US は USD、それ以外 CAD）
func currencyFor(country string) string {
	if country == "US" {
		return "USD"
	}
	return "CAD"
}

// ハイフン・空白は許して数字10桁
func hasValidPhone(v string) bool {
	n := 0
	for _, r := range v {
		if unicode.IsDigit(r) {
			n++
		}
	}
	return n == 10
}

// IntentReader は請求予定の金額・通貨を決済代行から読む
type IntentReader interface {
	GetPaymentIntent(ctx context.Context, intentID string) (payment.Intent, error)
}

type OrderUsecase struct {
	tx        repo.TransactionManager
	orders    repo.OrderRepository
	carts     repo.CartRepository
	cartItems repo.CartItemRepository
	pricing   Summarizer
	intents   IntentReader

	newID  func() string
	newRef func() (string, error)
}

// DI
func NewOrderUsecase(
	tx repo.TransactionManager,
	orders repo.OrderRepository,
	carts repo.CartRepository,
	cartItems repo.CartItemRepository,
	pricing Summarizer,
	intents IntentReader,
) *OrderUsecase {
	return &OrderUsecase{
		tx:        tx,
		orders:    orders,
		carts:     carts,
		cartItems: cartItems,
		pricing:   pricing,
		intents:   intents,
		newID:     uuid.NewString,
		newRef:    NewPublicRef,
	}
}

type ShippingInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Company  string `json:"company"`
	Phone    string `json:"phone"`
	Line1    string `json:"line1"`
	Line2    string `json:"line2"`
	City     string `json:"city"`
	Province string `json:"province"`
	Postal   string `json:"postal"`
	Country  string `json:"country"`
}

type CreateOrderInput struct {
	PaymentMethod         string
	Shipping              ShippingInput
	SaveToProfile         bool
	StripePaymentIntentID string

	CartID       string
	UserID       *int64
	SessionEmail string
}

type CreateOrderOutput struct {
	OK            bool                `json:"ok"`
	OrderID       string              `json:"orderId"`
	PublicRef     string              `json:"publicRef"`
	Status        model.OrderStatus   `json:"status"`
	PaymentMethod model.PaymentMethod `json:"paymentMethod"`
	Reused        bool                `json:"reused"`
}

func toCreateOrderOutput(o model.Order, reused bool) CreateOrderOutput {
	return CreateOrderOutput{
		OK:            true,
		OrderID:       o.ID,
		PublicRef:     o.Label(),
		Status:        o.Status,
		PaymentMethod: o.PaymentMethod,
		Reused:        reused,
	}
}

// CreateOrder は PaymentIntent ごとに1件。カートは同じTxで CHECKED_OUT にする
func (u *OrderUsecase) CreateOrder(ctx context.Context, in CreateOrderInput) (CreateOrderOutput, error) {
	if in.PaymentMethod != "" && in.PaymentMethod != string(model.PaymentMethodStripe) {
		return CreateOrderOutput{}, NewHTTPError(http.StatusBadRequest, "Only card payments are currently supported.")
	}

	sh := trimShipping(in.Shipping)
	if sh.Line1 == "" || sh.City == "" || sh.Province == "" || sh.Postal == "" || sh.Country == "" {
		return CreateOrderOutput{}, NewHTTPError(http.StatusBadRequest, "Missing shipping fields")
	}
	country, ok := NormalizeCountry(sh.Country)
	if !ok {
		return CreateOrderOutput{}, NewHTTPError(http.StatusBadRequest, "Shipping is only available to Canada and USA")
	}
	if !hasValidPhone(sh.Phone) {
		return CreateOrderOutput{}, NewHTTPError(http.StatusBadRequest, "Phone number must include 10 digits (dashes/spaces allowed).")
	}

	intentID := strings.TrimSpace(in.StripePaymentIntentID)
	if intentID == "" {
		return CreateOrderOutput{}, NewHTTPError(http.StatusBadRequest, "Missing stripePaymentIntentId for card payment")
	}

	//同じPaymentIntentなら同じ注文
	if existing, found, err := u.orders.FindByPaymentIntentID(ctx, intentID); err != nil {
		return CreateOrderOutput{}, errDB()
	} else if found {
		return toCreateOrderOutput(existing, true), nil
	}

	cart, lines, err := u.loadCart(ctx, in.CartID)
	if err != nil {
		return CreateOrderOutput{}, err
	}

	summary, err := u.pricing.Summarize(ctx, lines)
	if err != nil {
		slog.ErrorContext(ctx, "pricing failed", slog.String("cart_id", cart.ID), slog.Any("err", err))
		return CreateOrderOutput{}, NewHTTPError(http.StatusInternalServerError, "Failed to compute totals")
	}
	if summary.PricedCount == 0 || summary.SubtotalCents <= 0 {
		return CreateOrderOutput{}, NewHTTPError(http.StatusBadRequest, "Invalid cart totals")
	}

	// 通貨と金額は実際に請求する PaymentIntent に合わせる
	intent, err := u.intents.GetPaymentIntent(ctx, intentID)
	if err != nil {
		slog.ErrorContext(ctx, "payment intent lookup failed", slog.String("payment_intent_id", intentID), slog.Any("err", err))
		return CreateOrderOutput{}, NewHTTPError(http.StatusInternalServerError, "Failed to verify payment")
	}
	if intent.AmountCents != summary.TotalCents {
		slog.WarnContext(ctx, "payment amount mismatch",
			slog.String("payment_intent_id", intentID),
			slog.Int64("intent_cents", intent.AmountCents),
			slog.Int64("cart_cents", summary.TotalCents))
		return CreateOrderOutput{}, NewHTTPError(http.StatusBadRequest, "Payment amount does not match cart totals")
	}
	currency := strings.ToUpper(strings.TrimSpace(intent.Currency))
	if currency == "" {
		currency = currencyFor(country)
	}

	var profile *model.Address
	if in.UserID != nil && in.SaveToProfile {
		profile = &model.Address{
			UserID:     *in.UserID,
			Name:       sh.Name,
			Company:    sh.Company,
			Phone:      sh.Phone,
			Line1:      sh.Line1,
			Line2:      sh.Line2,
			City:       sh.City,
			Province:   sh.Province,
			PostalCode: sh.Postal,
			Country:    country,
		}
	}

	shipEmail := sh.Email
	if shipEmail == "" {
		shipEmail = strings.TrimSpace(in.SessionEmail)
	}

	base := model.Order{
		UserID:                in.UserID,
		Status:                model.OrderStatusAwaitingPayment,
		PaymentMethod:         model.PaymentMethodStripe,
		Currency:              currency,
		SubtotalCents:         summary.SubtotalCents,
		ShippingCents:         summary.ShippingCents,
		TaxCents:              summary.TaxCents,
		TotalCents:            summary.TotalCents,
		ShipName:              sh.Name,
		ShipCompany:           sh.Company,
		ShipEmail:             shipEmail,
		ShipPhone:             sh.Phone,
		ShipLine1:             sh.Line1,
		ShipLine2:             sh.Line2,
		ShipCity:              sh.City,
		ShipProvince:          sh.Province,
		ShipPostal:            sh.Postal,
		ShipCountry:           country,
		StripePaymentIntentID: intentID,
	}
	items := orderItemsFrom(summary)

	for attempt := 0; attempt < publicRefAttempts; attempt++ {
		ref, err := u.newRef()
		if err != nil {
			return CreateOrderOutput{}, NewHTTPError(http.StatusInternalServerError, "failed to generate order reference")
		}

		order := base
		order.ID = u.newID()
		order.PublicRef = ref

		err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
			if err := r.Orders().Create(ctx, &order); err != nil {
				return err
			}
			if err := r.OrderItems().CreateBulk(ctx, order.ID, items); err != nil {
				return err
			}
			if profile != nil {
				if _, err := r.Addresses().Upsert(ctx, *profile); err != nil {
					return err
				}
			}
			return r.Carts().UpdateStatus(ctx, cart.ID, model.CartStatusCheckedOut)
		})
		if err == nil {
			return toCreateOrderOutput(order, false), nil
		}
		if !errors.Is(err, repo.ErrDuplicate) {
			return CreateOrderOutput{}, errDB()
		}

		// 同時に来た同じPaymentIntentに負けた
		winner, found, ferr := u.orders.FindByPaymentIntentID(ctx, intentID)
		if ferr != nil {
			return CreateOrderOutput{}, errDB()
		}
		if found {
			return toCreateOrderOutput(winner, true), nil
		}
		// publicRefの衝突なので作り直す
	}

	return CreateOrderOutput{}, NewHTTPError(http.StatusInternalServerError, "Failed to create order (retry exceeded)")
}

func (u *OrderUsecase) loadCart(ctx context.Context, cartID string) (model.Cart, []pricing.Line, error) {
	if strings.TrimSpace(cartID) == "" {
		return model.Cart{}, nil, NewHTTPError(http.StatusBadRequest, "Cart is empty (missing cart cookie)")
	}

	cart, err := u.carts.FindByID(ctx, cartID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Cart{}, nil, NewHTTPError(http.StatusBadRequest, "Cart is empty")
	}
	if err != nil {
		return model.Cart{}, nil, errDB()
	}
	if cart.Status != model.CartStatusActive {
		return model.Cart{}, nil, NewHTTPError(http.StatusBadRequest, "Cart is empty")
	}

	cartItems, err := u.cartItems.ListByCartID(ctx, cart.ID)
	if err != nil {
		return model.Cart{}, nil, errDB()
	}
	if len(cartItems) == 0 {
		return model.Cart{}, nil, NewHTTPError(http.StatusBadRequest, "Cart is empty")
	}

	lines := make([]pricing.Line, 0, len(cartItems))
	for _, it := range cartItems {
		lines = append(lines, pricing.Line{PartNo: it.PartNo, Qty: it.Qty})
	}
	return cart, lines, nil
}

// 価格の付いた行だけ注文明細にする
func orderItemsFrom(s pricing.Summary) []model.OrderItem {
	items := make([]model.OrderItem, 0, len(s.Lines))
	for _, l := range s.Lines {
		if !l.Priced {
			continue
		}
		desc := l.Name
		if desc == l.PartNo {
			desc = ""
		}
		items = append(items, model.OrderItem{
			PartNo:         l.PartNo,
			Description:    desc,
			Qty:            l.Qty,
			UnitPriceCents: l.UnitPriceCents,
		})
	}
	return items
}

func trimShipping(s ShippingInput) ShippingInput {
	return ShippingInput{
		Name:     strings.TrimSpace(s.Name),
		Email:    strings.ToLower(strings.TrimSpace(s.Email)),
		Company:  strings.TrimSpace(s.Company),
		Phone:    strings.TrimSpace(s.Phone),
		Line1:    strings.TrimSpace(s.Line1),
		Line2:    strings.TrimSpace(s.Line2),
		City:     strings.TrimSpace(s.City),
		Province: strings.TrimSpace(s.Province),
		Postal:   strings.TrimSpace(s.Postal),
		Country:  strings.TrimSpace(s.Country),
	}
}

// Viewer は注文を見ようとしている人
type Viewer struct {
	UserID *int64
	Staff  bool
}

// GetOrder はidかpublicRefで引く。スタッフは全件、本人は自分の注文、ゲストはidでだけ見られる
func (u *OrderUsecase) GetOrder(ctx context.Context, viewer Viewer, ref string) (model.Order, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return model.Order{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	o, err := u.orders.FindByIDOrPublicRef(ctx, ref)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Order{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return model.Order{}, errDB()
	}

	switch {
	case viewer.Staff:
	case viewer.UserID != nil && o.UserID != nil && *o.UserID == *viewer.UserID:
	case o.ID == ref:
	default:
		// 存在を漏らさない
		return model.Order{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	return o, nil
}

type MyOrderOutput struct {
	ID         string            `json:"id"`
	PublicRef  string            `json:"publicRef"`
	Status     model.OrderStatus `json:"status"`
	Currency   string            `json:"currency"`
	TotalCents int64             `json:"totalCents"`
	ItemCount  int               `json:"itemCount"`
	CreatedAt  time.Time         `json:"createdAt"`
}

// ListMyOrders は新しい順
func (u *OrderUsecase) ListMyOrders(ctx context.Context, userID int64) ([]MyOrderOutput, error) {
	if userID <= 0 {
		return nil, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	orders, err := u.orders.ListByUserID(ctx, userID, myOrdersLimit)
	if err != nil {
		return nil, errDB()
	}

	out := make([]MyOrderOutput, 0, len(orders))
	for _, o := range orders {
		count := 0
		for _, it := range o.Items {
			count += int(it.Qty)
		}
		out = append(out, MyOrderOutput{
			ID:         o.ID,
			PublicRef:  o.Label(),
			Status:     o.Status,
			Currency:   o.Currency,
			TotalCents: o.TotalCents,
			ItemCount:  count,
			CreatedAt:  o.CreatedAt,
		})
	}
	return out, nil
}
