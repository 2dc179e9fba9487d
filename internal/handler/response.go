package handler

import (
	"net/http"
	"strconv"

	"github.com/Kartik-Sangwan/dtk-site/internal/middleware"
	"github.com/Kartik-Sangwan/dtk-site/internal/ratelimit"
	"github.com/Kartik-Sangwan/dtk-site/internal/usecase"

	"github.com/labstack/echo/v4"
)

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

type OKResponse struct {
	OK bool `json:"ok"`
}

// writeError は HTTPError をそのまま返す。429 には Retry-After を付ける
func writeError(c echo.Context, err error) error {
	if err == nil {
		return nil
	}
	if he, ok := usecase.AsHTTPError(err); ok {
		if he.RetryAfter > 0 {
			c.Response().Header().Set("Retry-After", strconv.Itoa(he.RetryAfter))
		}
		return c.JSON(he.Status, ErrorResponse{Error: he.Message, Code: he.Code})
	}

	//500
	return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
}

func invalidBody(c echo.Context) error {
	return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid body"})
}

// ログイン中なら user_id、ゲストなら nil
func userIDPtr(c echo.Context) *int64 {
	id, ok := middleware.UserIDFrom(c)
	if !ok {
		return nil
	}
	return &id
}

func clientIP(c echo.Context) string {
	return ratelimit.ClientIP(c.Request())
}
