package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Kartik-Sangwan/dtk-site/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var authNow = time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type fixedID string

func (f fixedID) NewID() string { return string(f) }

// 平文の前に "hashed:" を付けるだけ
type stubHasher struct{ err error }

func (h stubHasher) Hash(plain string) (string, error) {
	if h.err != nil {
		return "", h.err
	}
	return "hashed:" + plain, nil
}

type AccountMailerMock struct{ mock.Mock }

func (m *AccountMailerMock) SendVerification(ctx context.Context, to, name, token string) error {
	return m.Called(ctx, to, name, token).Error(0)
}

func (m *AccountMailerMock) SendPasswordReset(ctx context.Context, to, name, token string) error {
	return m.Called(ctx, to, name, token).Error(0)
}

func assertHTTPError(t *testing.T, err error, status int, msg string) *usecase.HTTPError {
	t.Helper()
	require.Error(t, err)
	var he *usecase.HTTPError
	require.True(t, errors.As(err, &he), "expected HTTPError, got %T: %v", err, err)
	assert.Equal(t, status, he.Status)
	if msg != "" {
		assert.Equal(t, msg, he.Message)
	}
	return he
}

func timePtr(t time.Time) *time.Time { return &t }
