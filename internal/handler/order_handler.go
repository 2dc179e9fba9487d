package handler

import (
	"net/http"

	"github.com/Kartik-Sangwan/dtk-site/internal/domain/model"
	"github.com/Kartik-Sangwan/dtk-site/internal/middleware"
	"github.com/Kartik-Sangwan/dtk-site/internal/repository"
	"github.com/Kartik-Sangwan/dtk-site/internal/usecase"

	"github.com/labstack/echo/v4"
)

type OrderHandler struct {
	uc     *usecase.OrderUsecase
	users  repository.UserRepository
	cookie CartCookie
}

func NewOrderHandler(uc *usecase.OrderUsecase, users repository.UserRepository, cookie CartCookie) *OrderHandler {
	return &OrderHandler{uc: uc, users: users, cookie: cookie}
}

type OrderCreateRequest struct {
	PaymentMethod         string                `json:"paymentMethod"`
	Shipping              usecase.ShippingInput `json:"shipping"`
	SaveToProfile         bool                  `json:"saveToProfile"`
	StripePaymentIntentID string                `json:"stripePaymentIntentId"`
}

type OrderDetailResponse struct {
	OK    bool        `json:"ok"`
	Order model.Order `json:"order"`
}

// ゲストも注文できるので OptionalAuth の後ろ
func (h *OrderHandler) RegisterRoutes(g *echo.Group) {
	g.POST("/orders", h.create)
	g.GET("/orders/:ref", h.detail)
}

func (h *OrderHandler) create(c echo.Context) error {
	var req OrderCreateRequest
	if err := c.Bind(&req); err != nil {
		return invalidBody(c)
	}

	ctx := c.Request().Context()
	in := usecase.CreateOrderInput{
		PaymentMethod:         req.PaymentMethod,
		Shipping:              req.Shipping,
		SaveToProfile:         req.SaveToProfile,
		StripePaymentIntentID: req.StripePaymentIntentID,
		CartID:                h.cookie.read(c),
		UserID:                userIDPtr(c),
	}
	// 配送先メールが空ならアカウントのメールを使う
	if in.UserID != nil {
		if u, err := h.users.FindByID(ctx, *in.UserID); err == nil && u != nil {
			in.SessionEmail = u.Email
		}
	}

	out, err := h.uc.CreateOrder(ctx, in)
	if err != nil {
		return writeError(c, err)
	}

	h.cookie.clear(c)
	return c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) detail(c echo.Context) error {
	viewer := usecase.Viewer{
		UserID: userIDPtr(c),
		Staff:  middleware.RoleFrom(c).IsStaff(),
	}

	o, err := h.uc.GetOrder(c.Request().Context(), viewer, c.Param("ref"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, OrderDetailResponse{OK: true, Order: o})
}
