package middleware

import (
	_ "embed"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/Kartik-Sangwan/dtk-site/internal/domain/model"

	"github.com/casbin/casbin/v2"
	casbinmodel "github.com/casbin/casbin/v2/model"
	"github.com/labstack/echo/v4"
)

//go:embed staff_model.conf
var staffModelText string

// 管理画面のリソースと操作
const (
	ResourceOrders = "orders"
	ResourceAudit  = "audit_logs"

	ActionRead  = "read"
	ActionWrite = "write"
)

// OPS は SALES を、ADMIN は OPS を継承する
var (
	staffPolicies = [][]string{
		{string(model.RoleSales), ResourceOrders, ActionRead},
		{string(model.RoleSales), ResourceOrders, ActionWrite},
		{string(model.RoleAdmin), ResourceAudit, ActionRead},
	}
	staffRoleLinks = [][]string{
		{string(model.RoleOps), string(model.RoleSales)},
		{string(model.RoleAdmin), string(model.RoleOps)},
	}
)

// StaffAuthorizer はロール → 管理画面の権限（casbin RBAC）
type StaffAuthorizer struct {
	enforcer *casbin.Enforcer
}

func NewStaffAuthorizer() (*StaffAuthorizer, error) {
	m, err := casbinmodel.NewModelFromString(staffModelText)
	if err != nil {
		return nil, fmt.Errorf("load staff model: %w", err)
	}
	e, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("init staff enforcer: %w", err)
	}
	if _, err := e.AddPolicies(staffPolicies); err != nil {
		return nil, fmt.Errorf("add staff policies: %w", err)
	}
	if _, err := e.AddGroupingPolicies(staffRoleLinks); err != nil {
		return nil, fmt.Errorf("add staff roles: %w", err)
	}
	return &StaffAuthorizer{enforcer: e}, nil
}

// Allowed はロールが resource に対して action できるか
func (a *StaffAuthorizer) Allowed(role model.Role, resource, action string) bool {
	if !role.IsStaff() {
		return false
	}
	ok, err := a.enforcer.Enforce(string(role), resource, action)
	if err != nil {
		slog.Error("staff enforce failed", slog.String("role", string(role)), slog.Any("err", err))
		return false
	}
	return ok
}

// StaffGuard は AuthJWT + TokenVersionGuard の後ろに置く
func StaffGuard(authz *StaffAuthorizer, resource, action string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if _, ok := UserIDFrom(c); !ok {
				return c.JSON(http.StatusUnauthorized, errorJSON("Unauthorized"))
			}
			if !authz.Allowed(RoleFrom(c), resource, action) {
				return c.JSON(http.StatusForbidden, errorJSON("Forbidden"))
			}
			return next(c)
		}
	}
}
