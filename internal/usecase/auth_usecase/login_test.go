package auth

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/Kartik-Sangwan/dtk-site/internal/domain/model"
	"github.com/Kartik-Sangwan/dtk-site/internal/ratelimit"
	"github.com/Kartik-Sangwan/dtk-site/internal/repository/mocks"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testJWTSecret = "test-secret"

func loginUser(t *testing.T) *model.User {
	t.Helper()
	hashed, err := NewBcryptPasswordHasher(bcrypt.MinCost).Hash("hunter22")
	require.NoError(t, err)
	return &model.User{
		ID:              42,
		Email:           "pat@example.com",
		Name:            "Pat",
		PasswordHash:    hashed,
		Role:            model.RoleOps,
		TokenVersion:    3,
		IsActive:        true,
		EmailVerifiedAt: timePtr(authNow.Add(-time.Hour)),
	}
}

func newLoginUC(users *mocks.UserRepo, limiter ratelimit.Limiter) *LoginUsecase {
	return NewLoginUsecase(users, NewBcryptPasswordVerifier(), NewJWTIssuer(testJWTSecret, 15*time.Minute), limiter, fixedClock{authNow})
}

func TestLogin_Success(t *testing.T) {
	ctx := context.Background()
	users := &mocks.UserRepo{}
	user := loginUser(t)

	users.On("FindByEmail", ctx, "pat@example.com").Return(user, nil).Once()
	users.On("Update", ctx, mock.MatchedBy(func(u *model.User) bool {
		return u.LastLoginAt != nil && u.LastLoginAt.Equal(authNow)
	})).Return(nil).Once()

	out, err := newLoginUC(users, nil).Execute(ctx, LoginInput{Email: " PAT@example.com", Password: "hunter22", IP: "10.0.0.1"})
	require.NoError(t, err)

	assert.True(t, out.OK)
	assert.Equal(t, UserDTO{ID: 42, Email: "pat@example.com", Name: "Pat", Role: "OPS", EmailVerified: true}, out.User)
	assert.Equal(t, 900, out.Token.ExpiresIn)
	assert.Equal(t, 3, out.Token.TokenVersion)

	// 署名とクレームを検証する（期限判定は発行時刻に合わせる）
	parser := jwt.Parser{SkipClaimsValidation: true}
	tok, err := parser.Parse(out.Token.AccessToken, func(tk *jwt.Token) (interface{}, error) {
		assert.Equal(t, jwt.SigningMethodHS256, tk.Method)
		return []byte(testJWTSecret), nil
	})
	require.NoError(t, err)
	claims := tok.Claims.(jwt.MapClaims)
	assert.Equal(t, "42", claims["sub"])
	assert.Equal(t, "OPS", claims["role"])
	assert.Equal(t, float64(3), claims["tv"])
	assert.Equal(t, float64(authNow.Add(15*time.Minute).Unix()), claims["exp"])
	users.AssertExpectations(t)
}

func TestLogin_LastLoginFailureIsIgnored(t *testing.T) {
	ctx := context.Background()
	users := &mocks.UserRepo{}
	users.On("FindByEmail", ctx, "pat@example.com").Return(loginUser(t), nil).Once()
	users.On("Update", ctx, mock.Anything).Return(errors.New("locked")).Once()

	out, err := newLoginUC(users, nil).Execute(ctx, LoginInput{Email: "pat@example.com", Password: "hunter22"})
	require.NoError(t, err)
	assert.NotEmpty(t, out.Token.AccessToken)
}

func TestLogin_Rejections(t *testing.T) {
	ctx := context.Background()

	t.Run("missing fields", func(t *testing.T) {
		_, err := newLoginUC(&mocks.UserRepo{}, nil).Execute(ctx, LoginInput{Email: "pat@example.com"})
		assertHTTPError(t, err, http.StatusBadRequest, "Email and password are required.")
	})

	t.Run("unknown email", func(t *testing.T) {
		users := &mocks.UserRepo{}
		users.On("FindByEmail", ctx, "nobody@example.com").Return((*model.User)(nil), nil).Once()
		_, err := newLoginUC(users, nil).Execute(ctx, LoginInput{Email: "nobody@example.com", Password: "hunter22"})
		assertHTTPError(t, err, http.StatusUnauthorized, "Invalid email or password.")
	})

	t.Run("wrong password", func(t *testing.T) {
		users := &mocks.UserRepo{}
		users.On("FindByEmail", ctx, "pat@example.com").Return(loginUser(t), nil).Once()
		_, err := newLoginUC(users, nil).Execute(ctx, LoginInput{Email: "pat@example.com", Password: "wrong-pass"})
		assertHTTPError(t, err, http.StatusUnauthorized, "Invalid email or password.")
	})

	t.Run("disabled", func(t *testing.T) {
		users := &mocks.UserRepo{}
		u := loginUser(t)
		u.IsActive = false
		users.On("FindByEmail", ctx, "pat@example.com").Return(u, nil).Once()
		_, err := newLoginUC(users, nil).Execute(ctx, LoginInput{Email: "pat@example.com", Password: "hunter22"})
		assertHTTPError(t, err, http.StatusForbidden, "Account is disabled.")
	})

	t.Run("unverified", func(t *testing.T) {
		users := &mocks.UserRepo{}
		u := loginUser(t)
		u.EmailVerifiedAt = nil
		users.On("FindByEmail", ctx, "pat@example.com").Return(u, nil).Once()
		_, err := newLoginUC(users, nil).Execute(ctx, LoginInput{Email: "pat@example.com", Password: "hunter22"})
		he := assertHTTPError(t, err, http.StatusForbidden, "Please verify your email before signing in.")
		assert.Equal(t, "EMAIL_NOT_VERIFIED", he.Code)
		users.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("rate limited", func(t *testing.T) {
		users := &mocks.UserRepo{}
		users.On("FindByEmail", ctx, "nobody@example.com").Return((*model.User)(nil), nil)
		uc := newLoginUC(users, ratelimit.NewMemoryLimiter(func() time.Time { return authNow }))

		for i := 0; i < loginIPRule.Max; i++ {
			_, err := uc.Execute(ctx, LoginInput{Email: "nobody@example.com", Password: "guess1234", IP: "10.0.0.5"})
			assertHTTPError(t, err, http.StatusUnauthorized, "")
		}
		_, err := uc.Execute(ctx, LoginInput{Email: "nobody@example.com", Password: "guess1234", IP: "10.0.0.5"})
		he := assertHTTPError(t, err, http.StatusTooManyRequests, "Too many sign-in attempts. Try again in 900s.")
		assert.Equal(t, 900, he.RetryAfter)
	})
}
