package handler

import (
	"io"
	"net/http"

	"github.com/Kartik-Sangwan/dtk-site/internal/usecase"

	"github.com/labstack/echo/v4"
)

// Stripe の1イベントの上限
const maxWebhookBody = 1 << 20

type WebhookHandler struct {
	uc *usecase.PaymentWebhookUsecase
}

func NewWebhookHandler(uc *usecase.PaymentWebhookUsecase) *WebhookHandler {
	return &WebhookHandler{uc: uc}
}

func (h *WebhookHandler) RegisterRoutes(g *echo.Group) {
	g.POST("/stripe/webhook", h.stripe)
	g.POST("/webhooks/stripe", h.stripe)
}

// 署名検証には生のボディが要る
func (h *WebhookHandler) stripe(c echo.Context) error {
	payload, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBody))
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	sig := c.Request().Header.Get("Stripe-Signature")
	if sig == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Missing Stripe-Signature"})
	}

	out, err := h.uc.HandleWebhook(c.Request().Context(), payload, sig)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
