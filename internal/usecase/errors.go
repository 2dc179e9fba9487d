package usecase

import (
	"errors"
	"fmt"
	"net/http"
)

// HTTPError はハンドラでそのままステータスとメッセージにする
type HTTPError struct {
	Status  int
	Message string
	// 429 のとき Retry-After（秒）
	RetryAfter int
	// クライアントが分岐に使う機械向けコード（任意）
	Code string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

func NewHTTPError(status int, message string) error {
	return &HTTPError{
		Status:  status,
		Message: message,
	}
}

// NewCodedHTTPError は code 付き
func NewCodedHTTPError(status int, code, message string) error {
	return &HTTPError{
		Status:  status,
		Message: message,
		Code:    code,
	}
}

// NewRateLimitError は 429
func NewRateLimitError(message string, retryAfterSec int) error {
	return &HTTPError{
		Status:     http.StatusTooManyRequests,
		Message:    fmt.Sprintf("%s Try again in %ds.", message, retryAfterSec),
		RetryAfter: retryAfterSec,
	}
}

func AsHTTPError(err error) (*HTTPError, bool) {
	var he *HTTPError
	ok := errors.As(err, &he)
	return he, ok
}

func errDB() error {
	return NewHTTPError(http.StatusInternalServerError, "db error")
}
