package middleware

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/Kartik-Sangwan/dtk-site/internal/config"
	"github.com/Kartik-Sangwan/dtk-site/internal/domain/model"
	"github.com/Kartik-Sangwan/dtk-site/internal/repository"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
)

const (
	CtxUserIDKey       = "user_id"       // int64
	CtxUserRoleKey     = "user_role"     // string
	CtxTokenVersionKey = "token_version" // int
)

// bearerAuth用のJWT検証ミドルウェア。
func AuthJWT(cfg config.Config) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, ok := parseBearer(c.Request(), cfg.JWTSecret)
			if !ok {
				return c.JSON(http.StatusUnauthorized, errorJSON("Unauthorized"))
			}
			claims.store(c)
			return next(c)
		}
	}
}

// OptionalAuth はトークンがあれば検証して載せる。無い・不正・失効ならゲスト扱い
func OptionalAuth(cfg config.Config, userRepo repository.UserRepository) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, ok := parseBearer(c.Request(), cfg.JWTSecret)
			if !ok {
				return next(c)
			}

			user, err := userRepo.FindByID(c.Request().Context(), claims.userID)
			if err != nil || user == nil || !user.IsActive || user.TokenVersion != claims.tokenVersion {
				return next(c)
			}

			claims.store(c)
			return next(c)
		}
	}
}

// UserIDFrom は AuthJWT / OptionalAuth が入れた user_id
func UserIDFrom(c echo.Context) (int64, bool) {
	id, ok := c.Get(CtxUserIDKey).(int64)
	return id, ok && id > 0
}

// RoleFrom は AuthJWT / OptionalAuth が入れた role
func RoleFrom(c echo.Context) model.Role {
	role, _ := c.Get(CtxUserRoleKey).(string)
	return model.Role(role)
}

type bearerClaims struct {
	userID       int64
	role         string
	tokenVersion int
}

func (b bearerClaims) store(c echo.Context) {
	c.Set(CtxUserIDKey, b.userID)
	c.Set(CtxUserRoleKey, b.role)
	c.Set(CtxTokenVersionKey, b.tokenVersion)
}

func parseBearer(r *http.Request, secret string) (bearerClaims, bool) {
	//Authorizationヘッダを取得
	authz := r.Header.Get("Authorization")
	if authz == "" {
		return bearerClaims{}, false
	}

	//Bearer形式か確認してtokenを抜く
	parts := strings.SplitN(authz, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return bearerClaims{}, false
	}
	rawToken := strings.TrimSpace(parts[1])
	if rawToken == "" {
		return bearerClaims{}, false
	}

	//JWTをパースして検証する
	token, err := jwt.Parse(rawToken, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil || token == nil || !token.Valid {
		return bearerClaims{}, false
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return bearerClaims{}, false
	}

	userID, err := parseUserID(claims["sub"])
	if err != nil || userID <= 0 {
		return bearerClaims{}, false
	}

	//roleを取り出す（CUSTOMER/SALES/OPS/ADMIN）
	role, err := parseString(claims["role"])
	if err != nil || role == "" {
		return bearerClaims{}, false
	}

	tv, err := parseInt(claims["tv"])
	if err != nil || tv < 0 {
		return bearerClaims{}, false
	}

	return bearerClaims{userID: userID, role: role, tokenVersion: tv}, true
}

type errorResponse struct {
	Error string `json:"error"`
}

func errorJSON(msg string) errorResponse {
	return errorResponse{Error: msg}
}

// user_idをint64に変換する
func parseUserID(v interface{}) (int64, error) {
	switch t := v.(type) {
	case float64:
		return int64(t), nil
	case string:
		return strconv.ParseInt(t, 10, 64)
	default:
		return 0, errors.New("invalid sub")
	}
}

func parseString(v interface{}) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", errors.New("invalid string")
	}
	return s, nil
}

func parseInt(v interface{}) (int, error) {
	switch t := v.(type) {
	case float64:
		return int(t), nil
	case int:
		return t, nil
	case string:
		i64, err := strconv.ParseInt(t, 10, 32)
		if err != nil {
			return 0, err
		}
		return int(i64), nil
	default:
		return 0, errors.New("invalid int")
	}
}
