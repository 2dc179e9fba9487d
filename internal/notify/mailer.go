package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/resend/resend-go/v2"
)

// ErrNoRecipient は宛先が無いので送らなかったとき
var ErrNoRecipient = errors.New("no recipient")

type Message struct {
	To      []string
	Subject string
	HTML    string
	Text    string
	ReplyTo string
}

// Mailer は失敗をそのまま返す（再送キューは持たない）
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

type ResendMailer struct {
	client *resend.Client
	from   string
}

func NewResendMailer(client *resend.Client, from string) *ResendMailer {
	return &ResendMailer{client: client, from: from}
}

func (m *ResendMailer) Send(ctx context.Context, msg Message) error {
	if len(msg.To) == 0 {
		return ErrNoRecipient
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	_, err := m.client.Emails.Send(&resend.SendEmailRequest{
		From:    m.from,
		To:      msg.To,
		Subject: msg.Subject,
		Html:    msg.HTML,
		Text:    msg.Text,
		ReplyTo: msg.ReplyTo,
	})
	if err != nil {
		return fmt.Errorf("resend: %w", err)
	}
	return nil
}

// LogMailer はAPIキーが無い環境用。件名と宛先だけログに出す
type LogMailer struct {
	logger *slog.Logger
}

func NewLogMailer(logger *slog.Logger) *LogMailer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogMailer{logger: logger}
}

func (m *LogMailer) Send(ctx context.Context, msg Message) error {
	if len(msg.To) == 0 {
		return ErrNoRecipient
	}
	m.logger.InfoContext(ctx, "email not sent (no provider configured)",
		slog.Any("to", msg.To),
		slog.String("subject", msg.Subject),
		slog.String("reply_to", msg.ReplyTo),
	)
	return nil
}
