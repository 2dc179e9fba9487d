package validator

import (
	"errors"
	"strings"
)

var (
	ErrFeedbackRequired = errors.New("Please fill out all fields.")
	ErrQuoteRequired    = errors.New("Please provide name, email, part number, and quantity.")
	ErrFeedbackEmail    = errors.New("Please enter a valid email.")
)

// フィードバック（全項目必須）
func ValidateFeedback(name, email, phone, comment string) error {
	if blank(name, email, phone, comment) {
		return ErrFeedbackRequired
	}
	if !IsEmailLike(email) {
		return ErrFeedbackEmail
	}
	return nil
}

// 見積もり依頼（会社・希望日・備考は任意）
func ValidateQuote(name, email, partNo, qty string) error {
	if blank(name, email, partNo, qty) {
		return ErrQuoteRequired
	}
	if !IsEmailLike(email) {
		return ErrInvalidEmail
	}
	return nil
}

func blank(vals ...string) bool {
	for _, v := range vals {
		if strings.TrimSpace(v) == "" {
			return true
		}
	}
	return false
}
