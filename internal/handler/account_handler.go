package handler

import (
	"net/http"

	"github.com/Kartik-Sangwan/dtk-site/internal/middleware"
	"github.com/Kartik-Sangwan/dtk-site/internal/usecase"

	"github.com/labstack/echo/v4"
)

// /api/account（ログイン必須）
type AccountHandler struct {
	uc     *usecase.AccountUsecase
	orders *usecase.OrderUsecase
}

func NewAccountHandler(uc *usecase.AccountUsecase, orders *usecase.OrderUsecase) *AccountHandler {
	return &AccountHandler{uc: uc, orders: orders}
}

type MyOrdersResponse struct {
	OK     bool                    `json:"ok"`
	Orders []usecase.MyOrderOutput `json:"orders"`
}

func (h *AccountHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/profile", h.getProfile)
	g.PUT("/profile", h.updateProfile)
	g.POST("/update", h.updateProfile)
	g.GET("/orders", h.myOrders)
}

func (h *AccountHandler) getProfile(c echo.Context) error {
	userID, ok := middleware.UserIDFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
	}

	out, err := h.uc.GetProfile(c.Request().Context(), userID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AccountHandler) updateProfile(c echo.Context) error {
	userID, ok := middleware.UserIDFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
	}

	var req usecase.UpdateProfileInput
	if err := c.Bind(&req); err != nil {
		return invalidBody(c)
	}

	out, err := h.uc.UpdateProfile(c.Request().Context(), userID, req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AccountHandler) myOrders(c echo.Context) error {
	userID, ok := middleware.UserIDFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
	}

	orders, err := h.orders.ListMyOrders(c.Request().Context(), userID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, MyOrdersResponse{OK: true, Orders: orders})
}
