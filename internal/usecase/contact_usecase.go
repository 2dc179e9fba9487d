package usecase

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Kartik-Sangwan/dtk-site/internal/notify"
	"github.com/Kartik-Sangwan/dtk-site/internal/ratelimit"
	"github.com/Kartik-Sangwan/dtk-site/internal/validator"
)

// 問い合わせはIPごとに15分5件まで
var contactRule = ratelimit.Rule{Window: 15 * time.Minute, Max: 5, Block: 15 * time.Minute}

// ContactMailer は問い合わせの転送（notify.Dispatcher）
type ContactMailer interface {
	ForwardFeedback(ctx context.Context, f notify.Feedback) error
	ForwardQuoteRequest(ctx context.Context, q notify.QuoteRequest) error
}

type ContactUsecase struct {
	mailer  ContactMailer
	limiter ratelimit.Limiter
}

// DI
func NewContactUsecase(mailer ContactMailer, limiter ratelimit.Limiter) *ContactUsecase {
	return &ContactUsecase{mailer: mailer, limiter: limiter}
}

type FeedbackInput struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Comment string `json:"comment"`
}

type QuoteInput struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Company string `json:"company"`
	PartNo  string `json:"partNo"`
	Qty     string `json:"qty"`
	NeedBy  string `json:"needBy"`
	Notes   string `json:"notes"`
}

// SubmitFeedback は営業宛てに転送する（返信先は送信者）
func (u *ContactUsecase) SubmitFeedback(ctx context.Context, ip string, in FeedbackInput) error {
	if err := CheckRateLimit(ctx, u.limiter, "feedback:ip:"+ip, contactRule, "Too many submissions."); err != nil {
		return err
	}

	f := notify.Feedback{
		Name:    strings.TrimSpace(in.Name),
		Email:   strings.TrimSpace(in.Email),
		Phone:   strings.TrimSpace(in.Phone),
		Comment: strings.TrimSpace(in.Comment),
	}
	if err := validator.ValidateFeedback(f.Name, f.Email, f.Phone, f.Comment); err != nil {
		return NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := u.mailer.ForwardFeedback(ctx, f); err != nil {
		slog.ErrorContext(ctx, "feedback email failed", slog.Any("err", err))
		return NewHTTPError(http.StatusInternalServerError, "Email failed to send.")
	}
	return nil
}

// SubmitQuote は見積もり依頼を転送する
func (u *ContactUsecase) SubmitQuote(ctx context.Context, ip string, in QuoteInput) error {
	if err := CheckRateLimit(ctx, u.limiter, "quote:ip:"+ip, contactRule, "Too many submissions."); err != nil {
		return err
	}

	q := notify.QuoteRequest{
		Name:    strings.TrimSpace(in.Name),
		Email:   strings.TrimSpace(in.Email),
		Company: strings.TrimSpace(in.Company),
		PartNo:  strings.TrimSpace(in.PartNo),
		Qty:     strings.TrimSpace(in.Qty),
		NeedBy:  strings.TrimSpace(in.NeedBy),
		Notes:   strings.TrimSpace(in.Notes),
	}
	if err := validator.ValidateQuote(q.Name, q.Email, q.PartNo, q.Qty); err != nil {
		return NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := u.mailer.ForwardQuoteRequest(ctx, q); err != nil {
		slog.ErrorContext(ctx, "quote email failed", slog.Any("err", err))
		return NewHTTPError(http.StatusInternalServerError, "Failed to send quote request.")
	}
	return nil
}
