package ratelimit

import (
	"context"
	"sync"
	"time"
)

type memoryState struct {
	count        int
	windowStart  time.Time
	blockedUntil time.Time
}

// MemoryLimiter はプロセス内だけで数える（複数台だと共有されない）
type MemoryLimiter struct {
	mu    sync.Mutex
	state map[string]*memoryState
	now   func() time.Time
}

func NewMemoryLimiter(now func() time.Time) *MemoryLimiter {
	if now == nil {
		now = time.Now
	}
	return &MemoryLimiter{state: map[string]*memoryState{}, now: now}
}

func (l *MemoryLimiter) Allow(ctx context.Context, key string, rule Rule) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	st := l.state[key]

	if st != nil && st.blockedUntil.After(now) {
		return Result{OK: false, RetryAfter: st.blockedUntil.Sub(now)}, nil
	}

	if st == nil || now.Sub(st.windowStart) >= rule.Window {
		l.state[key] = &memoryState{count: 1, windowStart: now}
		return Result{OK: true, Remaining: max(0, rule.Max-1)}, nil
	}

	st.count++
	if st.count > rule.Max {
		st.blockedUntil = now.Add(rule.blockFor())
		return Result{OK: false, RetryAfter: rule.blockFor()}, nil
	}
	return Result{OK: true, Remaining: max(0, rule.Max-st.count)}, nil
}
