package ratelimit

import (
	"context"
	"math"
	"net/http"
	"strings"
	"time"
)

// Rule は固定ウィンドウ。Block が0なら Window と同じ時間ブロックする
type Rule struct {
	Window time.Duration
	Max    int
	Block  time.Duration
}

func (r Rule) blockFor() time.Duration {
	if r.Block > 0 {
		return r.Block
	}
	return r.Window
}

type Result struct {
	OK         bool
	Remaining  int
	RetryAfter time.Duration
}

// RetryAfterSeconds は Retry-After ヘッダ用（切り上げ）
func (r Result) RetryAfterSeconds() int {
	if r.RetryAfter <= 0 {
		return 0
	}
	return int(math.Ceil(r.RetryAfter.Seconds()))
}

type Limiter interface {
	Allow(ctx context.Context, key string, rule Rule) (Result, error)
}

// ClientIP は X-Forwarded-For の先頭 → CF-Connecting-IP → X-Real-IP
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if first := strings.TrimSpace(strings.Split(fwd, ",")[0]); first != "" {
			return first
		}
		return "unknown"
	}
	if ip := strings.TrimSpace(r.Header.Get("CF-Connecting-IP")); ip != "" {
		return ip
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	return "unknown"
}
