package handler

import (
	"net/http"

	"github.com/Kartik-Sangwan/dtk-site/internal/usecase"

	"github.com/labstack/echo/v4"
)

// フィードバックと見積もり依頼
type ContactHandler struct {
	uc *usecase.ContactUsecase
}

func NewContactHandler(uc *usecase.ContactUsecase) *ContactHandler {
	return &ContactHandler{uc: uc}
}

func (h *ContactHandler) RegisterRoutes(g *echo.Group) {
	g.POST("/feedback", h.feedback)
	g.POST("/quote-request", h.quote)
}

func (h *ContactHandler) feedback(c echo.Context) error {
	var req usecase.FeedbackInput
	if err := c.Bind(&req); err != nil {
		return invalidBody(c)
	}

	if err := h.uc.SubmitFeedback(c.Request().Context(), clientIP(c), req); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, OKResponse{OK: true})
}

func (h *ContactHandler) quote(c echo.Context) error {
	var req usecase.QuoteInput
	if err := c.Bind(&req); err != nil {
		return invalidBody(c)
	}

	if err := h.uc.SubmitQuote(c.Request().Context(), clientIP(c), req); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, OKResponse{OK: true})
}
