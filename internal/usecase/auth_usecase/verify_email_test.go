package auth

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/Kartik-Sangwan/dtk-site/internal/domain/model"
	repo "github.com/Kartik-Sangwan/dtk-site/internal/repository"
	"github.com/Kartik-Sangwan/dtk-site/internal/repository/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newVerifyFixture() (*VerifyEmailUsecase, *mocks.TxManagerMock, *mocks.UserRepo, *mocks.AuthTokenRepo) {
	users := &mocks.UserRepo{}
	tokens := &mocks.AuthTokenRepo{}
	tx := &mocks.TxManagerMock{Repos: &mocks.TxRepos{UserRepo: users, AuthTokenRepo: tokens}}
	return NewVerifyEmailUsecase(tx, users, tokens, fixedClock{authNow}), tx, users, tokens
}

func verifyToken() *model.AuthToken {
	return &model.AuthToken{
		ID:        "tok-1",
		UserID:    7,
		Purpose:   model.AuthTokenEmailVerify,
		TokenHash: hashToken("plain-token"),
		ExpiresAt: authNow.Add(verifyTokenTTL),
		CreatedAt: authNow,
	}
}

func TestVerifyEmail_Success(t *testing.T) {
	ctx := context.Background()
	uc, tx, users, tokens := newVerifyFixture()

	tokens.On("FindByHash", ctx, model.AuthTokenEmailVerify, hashToken("plain-token")).Return(verifyToken(), nil).Once()
	users.On("FindByID", ctx, int64(7)).Return(&model.User{ID: 7, Email: "pat@example.com"}, nil).Once()
	tx.On("WithinTx", ctx).Return(nil).Once()
	tokens.On("MarkConsumed", ctx, "tok-1", authNow).Return(nil).Once()
	users.On("Update", ctx, mock.MatchedBy(func(u *model.User) bool {
		return u.EmailVerifiedAt != nil && u.EmailVerifiedAt.Equal(authNow)
	})).Return(nil).Once()
	tokens.On("DeleteOthers", ctx, int64(7), model.AuthTokenEmailVerify, "tok-1").Return(nil).Once()

	out, err := uc.Execute(ctx, VerifyEmailInput{Email: "Pat@Example.com", Token: " plain-token "})
	require.NoError(t, err)
	assert.Equal(t, VerifyEmailOutput{OK: true, Status: VerifySuccess}, out)
	tokens.AssertExpectations(t)
	users.AssertExpectations(t)
}

func TestVerifyEmail_Statuses(t *testing.T) {
	ctx := context.Background()

	t.Run("missing params", func(t *testing.T) {
		uc, _, _, _ := newVerifyFixture()
		out, err := uc.Execute(ctx, VerifyEmailInput{Email: "pat@example.com"})
		require.NoError(t, err)
		assert.Equal(t, VerifyEmailOutput{OK: false, Status: VerifyInvalid}, out)
	})

	t.Run("unknown token", func(t *testing.T) {
		uc, _, users, tokens := newVerifyFixture()
		tokens.On("FindByHash", ctx, model.AuthTokenEmailVerify, mock.Anything).Return((*model.AuthToken)(nil), repo.ErrNotFound).Once()
		users.On("FindByEmail", ctx, "pat@example.com").Return((*model.User)(nil), nil).Once()

		out, err := uc.Execute(ctx, VerifyEmailInput{Email: "pat@example.com", Token: "nope"})
		require.NoError(t, err)
		assert.Equal(t, VerifyInvalid, out.Status)
	})

	t.Run("unknown token but already verified", func(t *testing.T) {
		uc, _, users, tokens := newVerifyFixture()
		tokens.On("FindByHash", ctx, model.AuthTokenEmailVerify, mock.Anything).Return((*model.AuthToken)(nil), repo.ErrNotFound).Once()
		users.On("FindByEmail", ctx, "pat@example.com").
			Return(&model.User{ID: 7, Email: "pat@example.com", EmailVerifiedAt: timePtr(authNow)}, nil).Once()

		out, err := uc.Execute(ctx, VerifyEmailInput{Email: "pat@example.com", Token: "old-link"})
		require.NoError(t, err)
		assert.Equal(t, VerifyEmailOutput{OK: true, Status: VerifyAlready}, out)
	})

	t.Run("email mismatch", func(t *testing.T) {
		uc, _, users, tokens := newVerifyFixture()
		tokens.On("FindByHash", ctx, model.AuthTokenEmailVerify, mock.Anything).Return(verifyToken(), nil).Once()
		users.On("FindByID", ctx, int64(7)).Return(&model.User{ID: 7, Email: "pat@example.com"}, nil).Once()
		users.On("FindByEmail", ctx, "eve@example.com").Return((*model.User)(nil), nil).Once()

		out, err := uc.Execute(ctx, VerifyEmailInput{Email: "eve@example.com", Token: "plain-token"})
		require.NoError(t, err)
		assert.Equal(t, VerifyInvalid, out.Status)
	})

	t.Run("consumed", func(t *testing.T) {
		uc, tx, users, tokens := newVerifyFixture()
		tok := verifyToken()
		tok.ConsumedAt = timePtr(authNow)
		tokens.On("FindByHash", ctx, model.AuthTokenEmailVerify, mock.Anything).Return(tok, nil).Once()
		users.On("FindByID", ctx, int64(7)).Return(&model.User{ID: 7, Email: "pat@example.com"}, nil).Once()

		out, err := uc.Execute(ctx, VerifyEmailInput{Email: "pat@example.com", Token: "plain-token"})
		require.NoError(t, err)
		assert.Equal(t, VerifyAlready, out.Status)
		tx.AssertNotCalled(t, "WithinTx", mock.Anything)
	})

	t.Run("expired", func(t *testing.T) {
		uc, _, users, tokens := newVerifyFixture()
		tok := verifyToken()
		tok.ExpiresAt = authNow
		tokens.On("FindByHash", ctx, model.AuthTokenEmailVerify, mock.Anything).Return(tok, nil).Once()
		users.On("FindByID", ctx, int64(7)).Return(&model.User{ID: 7, Email: "pat@example.com"}, nil).Once()

		out, err := uc.Execute(ctx, VerifyEmailInput{Email: "pat@example.com", Token: "plain-token"})
		require.NoError(t, err)
		assert.Equal(t, VerifyEmailOutput{OK: false, Status: VerifyExpired}, out)
	})

	t.Run("consumed concurrently", func(t *testing.T) {
		uc, tx, users, tokens := newVerifyFixture()
		tokens.On("FindByHash", ctx, model.AuthTokenEmailVerify, mock.Anything).Return(verifyToken(), nil).Once()
		users.On("FindByID", ctx, int64(7)).Return(&model.User{ID: 7, Email: "pat@example.com"}, nil).Once()
		tx.On("WithinTx", ctx).Return(nil).Once()
		tokens.On("MarkConsumed", ctx, "tok-1", authNow).Return(repo.ErrNotFound).Once()

		out, err := uc.Execute(ctx, VerifyEmailInput{Email: "pat@example.com", Token: "plain-token"})
		require.NoError(t, err)
		assert.Equal(t, VerifyAlready, out.Status)
	})

	t.Run("db error", func(t *testing.T) {
		uc, _, _, tokens := newVerifyFixture()
		tokens.On("FindByHash", ctx, model.AuthTokenEmailVerify, mock.Anything).Return((*model.AuthToken)(nil), errors.New("conn reset")).Once()

		_, err := uc.Execute(ctx, VerifyEmailInput{Email: "pat@example.com", Token: "plain-token"})
		assertHTTPError(t, err, http.StatusInternalServerError, "db error")
	})
}
