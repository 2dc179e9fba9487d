package handler

import (
	"net/http"
	"time"

	"github.com/Kartik-Sangwan/dtk-site/internal/domain/model"
	"github.com/Kartik-Sangwan/dtk-site/internal/usecase"

	"github.com/labstack/echo/v4"
)

const (
	cartCookieName   = "dtk_cart_id"
	cartCookieMaxAge = 30 * 24 * time.Hour
)

// CartCookie は dtk_cart_id の読み書き
type CartCookie struct {
	Secure bool
}

func (cc CartCookie) read(c echo.Context) string {
	ck, err := c.Cookie(cartCookieName)
	if err != nil {
		return ""
	}
	return ck.Value
}

func (cc CartCookie) set(c echo.Context, cartID string) {
	c.SetCookie(&http.Cookie{
		Name:     cartCookieName,
		Value:    cartID,
		Path:     "/",
		HttpOnly: true,
		Secure:   cc.Secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(cartCookieMaxAge.Seconds()),
	})
}

func (cc CartCookie) clear(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     cartCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   cc.Secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

// /api/cartのHTTP
type CartHandler struct {
	uc     *usecase.CartUsecase
	cookie CartCookie
}

// DI
func NewCartHandler(uc *usecase.CartUsecase, cookie CartCookie) *CartHandler {
	return &CartHandler{uc: uc, cookie: cookie}
}

type MutateCartRequest struct {
	Op     string   `json:"op"`
	PartNo string   `json:"partNo"`
	Qty    *float64 `json:"qty"`
}

type RestoreCartRequest struct {
	Items []usecase.CartLine `json:"items"`
}

// /api/cart を登録（OptionalAuth の後ろ）
func (h *CartHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/cart", h.getCart)
	g.POST("/cart", h.mutate)
	g.POST("/cart/items", h.mutate)
	g.POST("/cart/restore", h.restore)
}

// resolve は使うカートを決めて cookie を書き直す
func (h *CartHandler) resolve(c echo.Context) (model.Cart, error) {
	cart, err := h.uc.ResolveCart(c.Request().Context(), h.cookie.read(c), userIDPtr(c))
	if err != nil {
		return model.Cart{}, err
	}
	h.cookie.set(c, cart.ID)
	return cart, nil
}

func (h *CartHandler) getCart(c echo.Context) error {
	cart, err := h.resolve(c)
	if err != nil {
		return writeError(c, err)
	}

	view, err := h.uc.View(c.Request().Context(), cart.ID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, usecase.CartOutput{OK: true, Cart: view})
}

func (h *CartHandler) mutate(c echo.Context) error {
	var req MutateCartRequest
	if err := c.Bind(&req); err != nil || req.Op == "" {
		return invalidBody(c)
	}

	in := usecase.MutateCartInput{Op: req.Op, PartNo: req.PartNo, Qty: req.Qty}
	// カートを作る前に弾く
	if err := usecase.ValidateMutation(in); err != nil {
		return writeError(c, err)
	}

	cart, err := h.resolve(c)
	if err != nil {
		return writeError(c, err)
	}

	view, err := h.uc.Mutate(c.Request().Context(), cart.ID, in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, usecase.CartOutput{OK: true, Cart: view})
}

func (h *CartHandler) restore(c echo.Context) error {
	var req RestoreCartRequest
	if err := c.Bind(&req); err != nil {
		return invalidBody(c)
	}

	cart, err := h.resolve(c)
	if err != nil {
		return writeError(c, err)
	}

	view, err := h.uc.Restore(c.Request().Context(), cart.ID, req.Items)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, usecase.CartOutput{OK: true, Cart: view})
}
