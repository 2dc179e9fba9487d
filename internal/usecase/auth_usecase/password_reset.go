package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Kartik-Sangwan/dtk-site/internal/domain/model"
	"github.com/Kartik-Sangwan/dtk-site/internal/ratelimit"
	"github.com/Kartik-Sangwan/dtk-site/internal/repository"
	"github.com/Kartik-Sangwan/dtk-site/internal/usecase"
	"github.com/Kartik-Sangwan/dtk-site/internal/validator"
)

// 再設定リンクの有効期限
const resetTokenTTL = time.Hour

var (
	resetIPRule        = ratelimit.Rule{Window: 15 * time.Minute, Max: 8, Block: 20 * time.Minute}
	resetEmailRule     = ratelimit.Rule{Window: 10 * time.Second, Max: 3, Block: 10 * time.Second}
	resetConfirmIPRule = ratelimit.Rule{Window: 15 * time.Minute, Max: 20, Block: 15 * time.Minute}
)

// ---- 再設定メールの要求 ----

type RequestPasswordResetInput struct {
	Email string
	IP    string
}

type RequestPasswordResetOutput struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

type RequestPasswordResetUsecase struct {
	tx      repository.TransactionManager
	users   repository.UserRepository
	mailer  AccountMailer
	limiter ratelimit.Limiter
	idGen   IDGenerator
	clock   Clock
}

func NewRequestPasswordResetUsecase(
	tx repository.TransactionManager,
	users repository.UserRepository,
	mailer AccountMailer,
	limiter ratelimit.Limiter,
	idGen IDGenerator,
	clock Clock,
) *RequestPasswordResetUsecase {
	return &RequestPasswordResetUsecase{
		tx:      tx,
		users:   users,
		mailer:  mailer,
		limiter: limiter,
		idGen:   idGen,
		clock:   clock,
	}
}

func (u *RequestPasswordResetUsecase) Execute(ctx context.Context, in RequestPasswordResetInput) (RequestPasswordResetOutput, error) {
	var out RequestPasswordResetOutput
	email := validator.NormalizeEmail(in.Email)

	if err := usecase.CheckRateLimit(ctx, u.limiter, "auth:reset:ip:"+in.IP, resetIPRule, "Too many reset requests."); err != nil {
		return out, err
	}
	if err := validator.ValidateResetRequest(email); err != nil {
		return out, usecase.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := usecase.CheckRateLimit(ctx, u.limiter, "auth:reset:email:"+email, resetEmailRule, "Too many reset requests for this email."); err != nil {
		return out, err
	}

	user, err := u.users.FindByEmail(ctx, email)
	if err != nil {
		return out, usecase.NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if user == nil {
		return out, usecase.NewCodedHTTPError(http.StatusNotFound, "ACCOUNT_NOT_FOUND", "Account doesn't exist for this email.")
	}

	plain, err := generateSecureToken(32)
	if err != nil {
		return out, usecase.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	now := u.clock.Now()
	err = u.tx.WithinTx(ctx, func(r repository.TxRepos) error {
		token := &model.AuthToken{
			ID:        u.idGen.NewID(),
			UserID:    user.ID,
			Purpose:   model.AuthTokenPasswordReset,
			TokenHash: hashToken(plain),
			ExpiresAt: now.Add(resetTokenTTL),
			CreatedAt: now,
		}
		if err := r.AuthTokens().Create(ctx, token); err != nil {
			return err
		}
		return r.AuthTokens().DeleteOthers(ctx, user.ID, model.AuthTokenPasswordReset, token.ID)
	})
	if err != nil {
		return out, usecase.NewHTTPError(http.StatusInternalServerError, "db error")
	}

	if err := u.mailer.SendPasswordReset(ctx, user.Email, user.Name, plain); err != nil {
		slog.ErrorContext(ctx, "reset email failed", slog.Int64("user_id", user.ID), slog.Any("err", err))
		return out, usecase.NewHTTPError(http.StatusInternalServerError, "Failed to send reset email.")
	}

	out.OK = true
	out.Message = "Reset password email sent."
	return out, nil
}

// ---- 再設定の確定 ----

type ConfirmPasswordResetInput struct {
	Email    string
	Token    string
	Password string
	IP       string
}

type ConfirmPasswordResetUsecase struct {
	tx      repository.TransactionManager
	users   repository.UserRepository
	tokens  repository.AuthTokenRepository
	hasher  PasswordHasher
	limiter ratelimit.Limiter
	clock   Clock
}

func NewConfirmPasswordResetUsecase(
	tx repository.TransactionManager,
	users repository.UserRepository,
	tokens repository.AuthTokenRepository,
	hasher PasswordHasher,
	limiter ratelimit.Limiter,
	clock Clock,
) *ConfirmPasswordResetUsecase {
	return &ConfirmPasswordResetUsecase{
		tx:      tx,
		users:   users,
		tokens:  tokens,
		hasher:  hasher,
		limiter: limiter,
		clock:   clock,
	}
}

// Execute はパスワードを更新し、token_version を上げて既存セッションを切る
func (u *ConfirmPasswordResetUsecase) Execute(ctx context.Context, in ConfirmPasswordResetInput) error {
	if err := usecase.CheckRateLimit(ctx, u.limiter, "auth:reset:confirm:ip:"+in.IP, resetConfirmIPRule, "Too many attempts."); err != nil {
		return err
	}

	email := validator.NormalizeEmail(in.Email)
	plain := strings.TrimSpace(in.Token)
	if err := validator.ValidateResetConfirm(email, plain, in.Password); err != nil {
		return usecase.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	token, user, err := findTokenFor(ctx, u.tokens, u.users, model.AuthTokenPasswordReset, plain, email)
	if err != nil {
		return usecase.NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if token == nil {
		return usecase.NewHTTPError(http.StatusBadRequest, "Invalid reset link.")
	}
	if token.ConsumedAt != nil {
		return errResetUsed()
	}
	now := u.clock.Now()
	if !now.Before(token.ExpiresAt) {
		return usecase.NewHTTPError(http.StatusBadRequest, "Reset link expired.")
	}

	hashed, err := u.hasher.Hash(in.Password)
	if err != nil {
		return usecase.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	err = u.tx.WithinTx(ctx, func(r repository.TxRepos) error {
		if err := r.AuthTokens().MarkConsumed(ctx, token.ID, now); err != nil {
			return err
		}
		user.PasswordHash = hashed
		if err := r.Users().Update(ctx, user); err != nil {
			return err
		}
		if err := r.AuthTokens().DeleteOthers(ctx, user.ID, model.AuthTokenPasswordReset, token.ID); err != nil {
			return err
		}
		return r.Users().IncrementTokenVersion(ctx, user.ID)
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return errResetUsed()
		}
		return usecase.NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return nil
}

func errResetUsed() error {
	return usecase.NewHTTPError(http.StatusBadRequest, "Reset link already used.")
}
