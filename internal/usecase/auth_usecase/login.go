package auth

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/Kartik-Sangwan/dtk-site/internal/domain/model"
	"github.com/Kartik-Sangwan/dtk-site/internal/ratelimit"
	"github.com/Kartik-Sangwan/dtk-site/internal/repository"
	"github.com/Kartik-Sangwan/dtk-site/internal/usecase"
	"github.com/Kartik-Sangwan/dtk-site/internal/validator"
)

var loginIPRule = ratelimit.Rule{Window: 15 * time.Minute, Max: 20, Block: 15 * time.Minute}

// handlerからusecaseに渡す入力
type LoginInput struct {
	Email    string
	Password string
	IP       string
}

// token 形（JwtAccessToken相当）
type JwtAccessToken struct {
	AccessToken  string `json:"access_token"`
	ExpiresIn    int    `json:"expires_in"`
	TokenVersion int    `json:"token_version"`
}

type UserDTO struct {
	ID            int64  `json:"id"`
	Email         string `json:"email"`
	Name          string `json:"name"`
	Role          string `json:"role"`
	EmailVerified bool   `json:"emailVerified"`
}

// handlerがJSONにして返す
type LoginOutput struct {
	OK    bool           `json:"ok"`
	User  UserDTO        `json:"user"`
	Token JwtAccessToken `json:"token"`
}

type LoginUsecase struct {
	users    repository.UserRepository
	verifier PasswordVerifier
	issuer   AccessTokenIssuer
	limiter  ratelimit.Limiter
	clock    Clock
}

func NewLoginUsecase(
	users repository.UserRepository,
	verifier PasswordVerifier,
	issuer AccessTokenIssuer,
	limiter ratelimit.Limiter,
	clock Clock,
) *LoginUsecase {
	return &LoginUsecase{
		users:    users,
		verifier: verifier,
		issuer:   issuer,
		limiter:  limiter,
		clock:    clock,
	}
}

// ログイン処理を実行する
func (u *LoginUsecase) Execute(ctx context.Context, in LoginInput) (LoginOutput, error) {
	var out LoginOutput

	if err := usecase.CheckRateLimit(ctx, u.limiter, "auth:login:ip:"+in.IP, loginIPRule, "Too many sign-in attempts."); err != nil {
		return out, err
	}

	email := validator.NormalizeEmail(in.Email)
	if err := validator.ValidateLogin(email, in.Password); err != nil {
		return out, usecase.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	//emailでユーザー取得
	user, err := u.users.FindByEmail(ctx, email)
	if err != nil {
		return out, usecase.NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if user == nil || user.PasswordHash == "" {
		return out, errInvalidCredentials()
	}

	//パスワード照合
	if !u.verifier.Verify(in.Password, user.PasswordHash) {
		return out, errInvalidCredentials()
	}

	//停止ユーザーはログイン不可
	if !user.IsActive {
		return out, usecase.NewHTTPError(http.StatusForbidden, "Account is disabled.")
	}
	if !user.EmailVerified() {
		return out, usecase.NewCodedHTTPError(http.StatusForbidden, "EMAIL_NOT_VERIFIED", "Please verify your email before signing in.")
	}

	//AccessToken発行
	now := u.clock.Now()
	accessToken, accessExp, err := u.issuer.Issue(user.ID, user.Role, user.TokenVersion, now)
	if err != nil {
		return out, usecase.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	//最終ログイン時刻更新（失敗してもログインは通す）
	user.LastLoginAt = &now
	if err := u.users.Update(ctx, user); err != nil {
		slog.WarnContext(ctx, "update last login failed", slog.Int64("user_id", user.ID), slog.Any("err", err))
	}

	out.OK = true
	out.User = ToUserDTO(*user)
	out.Token = JwtAccessToken{
		AccessToken:  accessToken,
		ExpiresIn:    int(accessExp.Sub(now).Seconds()),
		TokenVersion: user.TokenVersion,
	}
	return out, nil
}

// ToUserDTO はパスワードハッシュを含めない形にする
func ToUserDTO(u model.User) UserDTO {
	return UserDTO{
		ID:            u.ID,
		Email:         u.Email,
		Name:          u.Name,
		Role:          string(u.Role),
		EmailVerified: u.EmailVerified(),
	}
}

func errInvalidCredentials() error {
	return usecase.NewHTTPError(http.StatusUnauthorized, "Invalid email or password.")
}
