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

// 確認リンクの有効期限
const verifyTokenTTL = 24 * time.Hour

var (
	signupIPRule    = ratelimit.Rule{Window: 15 * time.Minute, Max: 10, Block: 20 * time.Minute}
	signupEmailRule = ratelimit.Rule{Window: 30 * time.Minute, Max: 4, Block: 30 * time.Minute}
)

// 会員登録の入力
type RegisterUserInput struct {
	Name     string
	Email    string
	Password string
	IP       string
}

// RegisterUserUsecaseは会員登録の処理。未確認のメールは上書きして確認メールを送り直す
type RegisterUserUsecase struct {
	tx      repository.TransactionManager
	users   repository.UserRepository
	hasher  PasswordHasher
	mailer  AccountMailer
	limiter ratelimit.Limiter
	idGen   IDGenerator
	clock   Clock
}

// DI
func NewRegisterUserUsecase(
	tx repository.TransactionManager,
	users repository.UserRepository,
	hasher PasswordHasher,
	mailer AccountMailer,
	limiter ratelimit.Limiter,
	idGen IDGenerator,
	clock Clock,
) *RegisterUserUsecase {
	return &RegisterUserUsecase{
		tx:      tx,
		users:   users,
		hasher:  hasher,
		mailer:  mailer,
		limiter: limiter,
		idGen:   idGen,
		clock:   clock,
	}
}

// 会員登録実行
func (u *RegisterUserUsecase) Execute(ctx context.Context, in RegisterUserInput) error {
	name := strings.TrimSpace(in.Name)
	email := validator.NormalizeEmail(in.Email)

	if err := usecase.CheckRateLimit(ctx, u.limiter, "auth:signup:ip:"+in.IP, signupIPRule, "Too many attempts."); err != nil {
		return err
	}
	if err := usecase.CheckRateLimit(ctx, u.limiter, "auth:signup:email:"+email, signupEmailRule, "Too many attempts for this email."); err != nil {
		return err
	}

	if err := validator.ValidateSignup(name, email, in.Password); err != nil {
		return usecase.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	existing, err := u.users.FindByEmail(ctx, email)
	if err != nil {
		return usecase.NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if existing != nil && existing.EmailVerified() {
		return errAccountExists()
	}

	// パスワードをハッシュ化（平文は保存しない）
	hashed, err := u.hasher.Hash(in.Password)
	if err != nil {
		return usecase.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	plain, err := generateSecureToken(32)
	if err != nil {
		return usecase.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	now := u.clock.Now()
	err = u.tx.WithinTx(ctx, func(r repository.TxRepos) error {
		user := existing
		if user == nil {
			user = &model.User{
				Email:        email,
				Name:         name,
				PasswordHash: hashed,
				Role:         model.RoleCustomer,
				IsActive:     true,
			}
			if err := r.Users().Create(ctx, user); err != nil {
				return err
			}
		} else {
			user.Name = name
			user.PasswordHash = hashed
			user.EmailVerifiedAt = nil
			if err := r.Users().Update(ctx, user); err != nil {
				return err
			}
		}

		token := &model.AuthToken{
			ID:        u.idGen.NewID(),
			UserID:    user.ID,
			Purpose:   model.AuthTokenEmailVerify,
			TokenHash: hashToken(plain),
			ExpiresAt: now.Add(verifyTokenTTL),
			CreatedAt: now,
		}
		if err := r.AuthTokens().Create(ctx, token); err != nil {
			return err
		}
		return r.AuthTokens().DeleteOthers(ctx, user.ID, model.AuthTokenEmailVerify, token.ID)
	})
	if err != nil {
		// 同時登録で先を越された
		if errors.Is(err, repository.ErrDuplicate) {
			return errAccountExists()
		}
		return usecase.NewHTTPError(http.StatusInternalServerError, "db error")
	}

	if err := u.mailer.SendVerification(ctx, email, name, plain); err != nil {
		slog.ErrorContext(ctx, "verification email failed", slog.String("email", email), slog.Any("err", err))
		return usecase.NewHTTPError(http.StatusInternalServerError, "Failed to send verification email.")
	}
	return nil
}

func errAccountExists() error {
	return usecase.NewHTTPError(http.StatusConflict, "An account already exists for this email. Please sign in.")
}
