package handler

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/Kartik-Sangwan/dtk-site/internal/domain/model"
	"github.com/Kartik-Sangwan/dtk-site/internal/middleware"
	"github.com/Kartik-Sangwan/dtk-site/internal/usecase"

	"github.com/labstack/echo/v4"
)

const adminOrdersPath = "/admin/orders"

// スタッフ用の注文管理
type AdminOrderHandler struct {
	uc     *usecase.AdminOrderUsecase
	orders *usecase.OrderUsecase
	authz  *middleware.StaffAuthorizer
}

func NewAdminOrderHandler(uc *usecase.AdminOrderUsecase, orders *usecase.OrderUsecase, authz *middleware.StaffAuthorizer) *AdminOrderHandler {
	return &AdminOrderHandler{uc: uc, orders: orders, authz: authz}
}

type OrderStatusUpdateRequest struct {
	Status      string `json:"status" form:"status"`
	TrackingURL string `json:"trackingUrl" form:"trackingUrl"`
}

type AdminOrderListResponse struct {
	OK     bool          `json:"ok"`
	Orders []model.Order `json:"orders"`
}

type AuditLogListResponse struct {
	OK   bool             `json:"ok"`
	Logs []model.AuditLog `json:"logs"`
}

// api は /api/admin、form は /admin（どちらも AuthJWT + TokenVersionGuard 済み）
func (h *AdminOrderHandler) RegisterRoutes(api *echo.Group, form *echo.Group) {
	read := middleware.StaffGuard(h.authz, middleware.ResourceOrders, middleware.ActionRead)
	write := middleware.StaffGuard(h.authz, middleware.ResourceOrders, middleware.ActionWrite)
	audit := middleware.StaffGuard(h.authz, middleware.ResourceAudit, middleware.ActionRead)

	api.GET("/dashboard", h.dashboard, read)
	api.GET("/orders", h.list, read)
	api.GET("/orders/:id", h.detail, read)
	api.PATCH("/orders/:id/status", h.updateStatus, write)
	api.GET("/audit-logs", h.auditLogs, audit)

	form.POST("/orders/:id/status", h.updateStatusForm, write)
}

func (h *AdminOrderHandler) dashboard(c echo.Context) error {
	out, err := h.uc.Dashboard(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AdminOrderHandler) list(c echo.Context) error {
	orders, err := h.uc.List(c.Request().Context(), c.QueryParam("status"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, AdminOrderListResponse{OK: true, Orders: orders})
}

func (h *AdminOrderHandler) detail(c echo.Context) error {
	o, err := h.orders.GetOrder(c.Request().Context(), usecase.Viewer{Staff: true}, c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, OrderDetailResponse{OK: true, Order: o})
}

func (h *AdminOrderHandler) updateStatus(c echo.Context) error {
	actorID, _ := middleware.UserIDFrom(c)

	var req OrderStatusUpdateRequest
	if err := c.Bind(&req); err != nil {
		return invalidBody(c)
	}

	o, err := h.uc.UpdateStatus(c.Request().Context(), actorID, c.Param("id"), usecase.AdminUpdateOrderStatusInput{
		Status:      req.Status,
		TrackingURL: req.TrackingURL,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, OrderDetailResponse{OK: true, Order: o})
}

// フォーム送信は結果を一覧画面へのリダイレクト(303)で返す
func (h *AdminOrderHandler) updateStatusForm(c echo.Context) error {
	actorID, _ := middleware.UserIDFrom(c)

	var req OrderStatusUpdateRequest
	if err := c.Bind(&req); err != nil {
		return c.Redirect(http.StatusSeeOther, adminOrdersPath+"?error="+url.QueryEscape("Invalid form"))
	}

	o, err := h.uc.UpdateStatus(c.Request().Context(), actorID, c.Param("id"), usecase.AdminUpdateOrderStatusInput{
		Status:      req.Status,
		TrackingURL: req.TrackingURL,
	})
	if err != nil {
		msg := "internal error"
		if he, ok := usecase.AsHTTPError(err); ok {
			msg = he.Message
		}
		return c.Redirect(http.StatusSeeOther, adminOrdersPath+"?error="+url.QueryEscape(msg))
	}
	return c.Redirect(http.StatusSeeOther, adminOrdersPath+"?updated="+url.QueryEscape(o.Label()))
}

func (h *AdminOrderHandler) auditLogs(c echo.Context) error {
	q := usecase.AuditLogQuery{ResourceID: c.QueryParam("resourceId"), Action: c.QueryParam("action")}
	if v := c.QueryParam("limit"); v != "" {
		l, err := strconv.Atoi(v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid limit"})
		}
		q.Limit = l
	}
	if v := c.QueryParam("offset"); v != "" {
		o, err := strconv.Atoi(v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid offset"})
		}
		q.Offset = o
	}

	logs, err := h.uc.ListAuditLogs(c.Request().Context(), q)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, AuditLogListResponse{OK: true, Logs: logs})
}
