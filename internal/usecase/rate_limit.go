package usecase

import (
	"context"
	"log/slog"

	"github.com/Kartik-Sangwan/dtk-site/internal/ratelimit"
)

// CheckRateLimit は超過なら 429 を返す。リミッタ自体の障害は通す（ログだけ）
func CheckRateLimit(ctx context.Context, limiter ratelimit.Limiter, key string, rule ratelimit.Rule, message string) error {
	if limiter == nil {
		return nil
	}

	res, err := limiter.Allow(ctx, key, rule)
	if err != nil {
		slog.WarnContext(ctx, "rate limiter unavailable", slog.String("key", key), slog.Any("err", err))
		return nil
	}
	if !res.OK {
		return NewRateLimitError(message, res.RetryAfterSeconds())
	}
	return nil
}
