package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/Kartik-Sangwan/dtk-site/internal/domain/model"
	"github.com/Kartik-Sangwan/dtk-site/internal/repository"
	"github.com/Kartik-Sangwan/dtk-site/internal/usecase"
	"github.com/Kartik-Sangwan/dtk-site/internal/validator"
)

// 確認結果
type VerifyStatus string

const (
	VerifySuccess VerifyStatus = "success"
	VerifyAlready VerifyStatus = "already"
	VerifyExpired VerifyStatus = "expired"
	VerifyInvalid VerifyStatus = "invalid"
)

type VerifyEmailInput struct {
	Email string
	Token string
}

type VerifyEmailOutput struct {
	OK     bool         `json:"ok"`
	Status VerifyStatus `json:"status"`
}

type VerifyEmailUsecase struct {
	tx     repository.TransactionManager
	users  repository.UserRepository
	tokens repository.AuthTokenRepository
	clock  Clock
}

func NewVerifyEmailUsecase(
	tx repository.TransactionManager,
	users repository.UserRepository,
	tokens repository.AuthTokenRepository,
	clock Clock,
) *VerifyEmailUsecase {
	return &VerifyEmailUsecase{tx: tx, users: users, tokens: tokens, clock: clock}
}

// Execute はリンクのトークンを消費してメール確認済みにする。
// リンクの不備は status で返し、エラーはDB障害のときだけ
func (u *VerifyEmailUsecase) Execute(ctx context.Context, in VerifyEmailInput) (VerifyEmailOutput, error) {
	email := validator.NormalizeEmail(in.Email)
	plain := strings.TrimSpace(in.Token)
	if email == "" || plain == "" {
		return result(VerifyInvalid), nil
	}

	token, user, err := findTokenFor(ctx, u.tokens, u.users, model.AuthTokenEmailVerify, plain, email)
	if err != nil {
		return VerifyEmailOutput{}, usecase.NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if token == nil {
		// 既に確認済みのアカウントなら別リンクでも already
		existing, err := u.users.FindByEmail(ctx, email)
		if err != nil {
			return VerifyEmailOutput{}, usecase.NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if existing != nil && existing.EmailVerified() {
			return result(VerifyAlready), nil
		}
		return result(VerifyInvalid), nil
	}

	now := u.clock.Now()
	if token.ConsumedAt != nil {
		return result(VerifyAlready), nil
	}
	if !now.Before(token.ExpiresAt) {
		return result(VerifyExpired), nil
	}

	err = u.tx.WithinTx(ctx, func(r repository.TxRepos) error {
		if err := r.AuthTokens().MarkConsumed(ctx, token.ID, now); err != nil {
			return err
		}
		user.EmailVerifiedAt = &now
		if err := r.Users().Update(ctx, user); err != nil {
			return err
		}
		return r.AuthTokens().DeleteOthers(ctx, user.ID, model.AuthTokenEmailVerify, token.ID)
	})
	if err != nil {
		// 同時に消費された
		if errors.Is(err, repository.ErrNotFound) {
			return result(VerifyAlready), nil
		}
		return VerifyEmailOutput{}, usecase.NewHTTPError(http.StatusInternalServerError, "db error")
	}

	return result(VerifySuccess), nil
}

func result(s VerifyStatus) VerifyEmailOutput {
	return VerifyEmailOutput{OK: s == VerifySuccess || s == VerifyAlready, Status: s}
}

// findTokenFor はハッシュでトークンを引き、持ち主のメールが一致するときだけ返す
func findTokenFor(
	ctx context.Context,
	tokens repository.AuthTokenRepository,
	users repository.UserRepository,
	purpose model.AuthTokenPurpose,
	plain, email string,
) (*model.AuthToken, *model.User, error) {
	token, err := tokens.FindByHash(ctx, purpose, hashToken(plain))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, nil
		}
		return nil, nil, err
	}

	user, err := users.FindByID(ctx, token.UserID)
	if err != nil {
		return nil, nil, err
	}
	if user == nil || user.Email != email {
		return nil, nil, nil
	}
	return token, user, nil
}
