package validator

import (
	"errors"
	"regexp"
	"strings"
)

// パスワード最低文字数
const MinPasswordLen = 8

var (
	ErrSignupRequired   = errors.New("Name, email, and password are required.")
	ErrInvalidEmail     = errors.New("Please enter a valid email address.")
	ErrPasswordTooShort = errors.New("Password must be at least 8 characters.")
	ErrResetEmail       = errors.New("Enter a valid email address.")
	ErrResetParams      = errors.New("Missing reset parameters.")
	ErrLoginRequired    = errors.New("Email and password are required.")
)

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// NormalizeEmail は trim + 小文字
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// IsEmailLike はざっくり形式チェック
func IsEmailLike(email string) bool {
	return emailRe.MatchString(email)
}

// サインアップの入力を検証（emailは正規化済み）
func ValidateSignup(name, email, password string) error {
	if strings.TrimSpace(name) == "" || email == "" || password == "" {
		return ErrSignupRequired
	}
	if !IsEmailLike(email) {
		return ErrInvalidEmail
	}
	if len(password) < MinPasswordLen {
		return ErrPasswordTooShort
	}
	return nil
}

// ログインの入力を検証
func ValidateLogin(email, password string) error {
	if email == "" || password == "" {
		return ErrLoginRequired
	}
	if !IsEmailLike(email) {
		return ErrInvalidEmail
	}
	return nil
}

// 再設定メール要求
func ValidateResetRequest(email string) error {
	if email == "" || !IsEmailLike(email) {
		return ErrResetEmail
	}
	return nil
}

// 再設定の確定
func ValidateResetConfirm(email, token, password string) error {
	if email == "" || token == "" || password == "" {
		return ErrResetParams
	}
	if len(password) < MinPasswordLen {
		return ErrPasswordTooShort
	}
	return nil
}
