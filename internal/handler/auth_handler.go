package handler

import (
	"net/http"

	"github.com/Kartik-Sangwan/dtk-site/internal/middleware"
	"github.com/Kartik-Sangwan/dtk-site/internal/repository"
	auth "github.com/Kartik-Sangwan/dtk-site/internal/usecase/auth_usecase"

	"github.com/labstack/echo/v4"
)

// /api/auth のハンドラ
type AuthHandler struct {
	registerUC     *auth.RegisterUserUsecase
	verifyUC       *auth.VerifyEmailUsecase
	loginUC        *auth.LoginUsecase
	resetRequestUC *auth.RequestPasswordResetUsecase
	resetConfirmUC *auth.ConfirmPasswordResetUsecase
	users          repository.UserRepository
}

// DIコンストラクタ
func NewAuthHandler(
	registerUC *auth.RegisterUserUsecase,
	verifyUC *auth.VerifyEmailUsecase,
	loginUC *auth.LoginUsecase,
	resetRequestUC *auth.RequestPasswordResetUsecase,
	resetConfirmUC *auth.ConfirmPasswordResetUsecase,
	users repository.UserRepository,
) *AuthHandler {
	return &AuthHandler{
		registerUC:     registerUC,
		verifyUC:       verifyUC,
		loginUC:        loginUC,
		resetRequestUC: resetRequestUC,
		resetConfirmUC: resetConfirmUC,
		users:          users,
	}
}

type signupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type verifyRequest struct {
	Email string `json:"email" query:"email"`
	Token string `json:"token" query:"token"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type resetRequest struct {
	Email string `json:"email"`
}

type resetConfirmRequest struct {
	Email    string `json:"email"`
	Token    string `json:"token"`
	Password string `json:"password"`
}

type meResponse struct {
	OK   bool         `json:"ok"`
	User auth.UserDTO `json:"user"`
}

// authed は AuthJWT + TokenVersionGuard 付きのグループ
func (h *AuthHandler) RegisterRoutes(g *echo.Group, authed ...echo.MiddlewareFunc) {
	g.POST("/signup", h.signup)
	g.GET("/verify", h.verify)
	g.POST("/verify", h.verify)
	g.POST("/login", h.login)
	g.POST("/reset", h.requestReset)
	g.POST("/reset/confirm", h.confirmReset)
	g.GET("/me", h.me, authed...)
}

func (h *AuthHandler) signup(c echo.Context) error {
	var req signupRequest
	if err := c.Bind(&req); err != nil {
		return invalidBody(c)
	}

	err := h.registerUC.Execute(c.Request().Context(), auth.RegisterUserInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		IP:       clientIP(c),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, OKResponse{OK: true})
}

// メールのリンク（GET）とフォーム（POST）の両方
func (h *AuthHandler) verify(c echo.Context) error {
	var req verifyRequest
	if err := c.Bind(&req); err != nil {
		return invalidBody(c)
	}

	out, err := h.verifyUC.Execute(c.Request().Context(), auth.VerifyEmailInput{Email: req.Email, Token: req.Token})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AuthHandler) login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return invalidBody(c)
	}

	out, err := h.loginUC.Execute(c.Request().Context(), auth.LoginInput{
		Email:    req.Email,
		Password: req.Password,
		IP:       clientIP(c),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AuthHandler) requestReset(c echo.Context) error {
	var req resetRequest
	if err := c.Bind(&req); err != nil {
		return invalidBody(c)
	}

	out, err := h.resetRequestUC.Execute(c.Request().Context(), auth.RequestPasswordResetInput{
		Email: req.Email,
		IP:    clientIP(c),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AuthHandler) confirmReset(c echo.Context) error {
	var req resetConfirmRequest
	if err := c.Bind(&req); err != nil {
		return invalidBody(c)
	}

	err := h.resetConfirmUC.Execute(c.Request().Context(), auth.ConfirmPasswordResetInput{
		Email:    req.Email,
		Token:    req.Token,
		Password: req.Password,
		IP:       clientIP(c),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, OKResponse{OK: true})
}

func (h *AuthHandler) me(c echo.Context) error {
	userID, ok := middleware.UserIDFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
	}

	u, err := h.users.FindByID(c.Request().Context(), userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "db error"})
	}
	if u == nil {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
	}
	return c.JSON(http.StatusOK, meResponse{OK: true, User: auth.ToUserDTO(*u)})
}
