package server

import (
	"net/http"

	"github.com/Kartik-Sangwan/dtk-site/internal/config"
	"github.com/Kartik-Sangwan/dtk-site/internal/handler"
	"github.com/Kartik-Sangwan/dtk-site/internal/middleware"
	"github.com/Kartik-Sangwan/dtk-site/internal/repository"

	"github.com/labstack/echo/v4"
)

// Handlers は main で組み立てたハンドラ一式
type Handlers struct {
	Auth       *handler.AuthHandler
	Inventory  *handler.InventoryHandler
	Cart       *handler.CartHandler
	Checkout   *handler.CheckoutHandler
	Orders     *handler.OrderHandler
	Webhook    *handler.WebhookHandler
	Account    *handler.AccountHandler
	Contact    *handler.ContactHandler
	AdminOrder *handler.AdminOrderHandler
}

// RegisterRoutes はルートとガードを登録する
func RegisterRoutes(e *echo.Echo, cfg config.Config, users repository.UserRepository, h Handlers) {
	authed := []echo.MiddlewareFunc{middleware.AuthJWT(cfg), middleware.TokenVersionGuard(users)}

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, handler.OKResponse{OK: true})
	})

	api := e.Group("/api")

	// 署名付きなので認証なし
	h.Webhook.RegisterRoutes(api)

	h.Auth.RegisterRoutes(api.Group("/auth"), authed...)
	h.Inventory.RegisterRoutes(api)
	h.Contact.RegisterRoutes(api)

	// ゲストでも使える（ログイン中ならカートを紐付ける）
	visitor := api.Group("", middleware.OptionalAuth(cfg, users))
	h.Cart.RegisterRoutes(visitor)
	h.Checkout.RegisterRoutes(visitor)
	h.Orders.RegisterRoutes(visitor)

	h.Account.RegisterRoutes(api.Group("/account", authed...))

	h.AdminOrder.RegisterRoutes(api.Group("/admin", authed...), e.Group("/admin", authed...))
}
