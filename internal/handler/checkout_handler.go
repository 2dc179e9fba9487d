package handler

import (
	"net/http"
	"strings"

	"github.com/Kartik-Sangwan/dtk-site/internal/payment"
	"github.com/Kartik-Sangwan/dtk-site/internal/usecase"

	"github.com/labstack/echo/v4"
)

// 合計計算と決済インテント
type CheckoutHandler struct {
	carts  *usecase.CartUsecase
	uc     *usecase.CheckoutUsecase
	cookie CartCookie
}

func NewCheckoutHandler(carts *usecase.CartUsecase, uc *usecase.CheckoutUsecase, cookie CartCookie) *CheckoutHandler {
	return &CheckoutHandler{carts: carts, uc: uc, cookie: cookie}
}

type SummaryRequest struct {
	Items []usecase.CartLine `json:"items"`
}

type intentShipping struct {
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Line1    string `json:"line1"`
	Line2    string `json:"line2"`
	City     string `json:"city"`
	Province string `json:"province"`
	State    string `json:"state"`
	Postal   string `json:"postal"`
	Country  string `json:"country"`
}

type intentBilling struct {
	Country string `json:"country"`
	Postal  string `json:"postal"`
}

// 金額は受け取らない（カートから計算する）
type PaymentIntentRequest struct {
	ReceiptEmail string          `json:"receiptEmail"`
	Email        string          `json:"email"`
	Shipping     *intentShipping `json:"shipping"`
	Billing      *intentBilling  `json:"billing"`
}

func (h *CheckoutHandler) RegisterRoutes(g *echo.Group) {
	g.POST("/checkout/summary", h.summarize)
	g.GET("/checkout/summary", h.summarizeCart)
	g.POST("/stripe/create-payment-intent", h.createPaymentIntent)
}

func (h *CheckoutHandler) summarize(c echo.Context) error {
	var req SummaryRequest
	if err := c.Bind(&req); err != nil {
		return invalidBody(c)
	}

	out, err := h.uc.Summarize(c.Request().Context(), req.Items)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CheckoutHandler) summarizeCart(c echo.Context) error {
	cart, err := h.carts.ResolveCart(c.Request().Context(), h.cookie.read(c), userIDPtr(c))
	if err != nil {
		return writeError(c, err)
	}
	h.cookie.set(c, cart.ID)

	out, err := h.uc.SummarizeCart(c.Request().Context(), cart.ID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CheckoutHandler) createPaymentIntent(c echo.Context) error {
	var req PaymentIntentRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid JSON"})
	}

	cart, err := h.carts.ResolveCart(c.Request().Context(), h.cookie.read(c), userIDPtr(c))
	if err != nil {
		return writeError(c, err)
	}
	h.cookie.set(c, cart.ID)

	in := usecase.PaymentIntentInput{
		ReceiptEmail:   firstNonEmpty(req.ReceiptEmail, req.Email),
		IdempotencyKey: c.Request().Header.Get("X-Idempotency-Key"),
	}
	if s := req.Shipping; s != nil {
		in.Shipping = &payment.Address{
			Name:       s.Name,
			Phone:      s.Phone,
			Line1:      s.Line1,
			Line2:      s.Line2,
			City:       s.City,
			Province:   firstNonEmpty(s.Province, s.State),
			PostalCode: s.Postal,
			Country:    s.Country,
		}
	}
	if b := req.Billing; b != nil {
		in.BillingCountry = strings.ToUpper(strings.TrimSpace(b.Country))
		in.BillingPostal = truncate(strings.TrimSpace(b.Postal), 20)
	}

	out, err := h.uc.CreatePaymentIntent(c.Request().Context(), cart.ID, in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
