package ratelimit

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter は複数台で同じカウンタを使う
type RedisLimiter struct {
	client *redis.Client
	prefix string
}

func NewRedisLimiter(client *redis.Client, prefix string) *RedisLimiter {
	return &RedisLimiter{client: client, prefix: prefix}
}

func (l *RedisLimiter) counterKey(key string) string {
	return fmt.Sprintf("%s:ratelimit:%s", l.prefix, key)
}

func (l *RedisLimiter) blockKey(key string) string {
	return fmt.Sprintf("%s:ratelimit:%s:block", l.prefix, key)
}

func (l *RedisLimiter) Allow(ctx context.Context, key string, rule Rule) (Result, error) {
	blockKey := l.blockKey(key)

	// PTTL は キー無しで -2、期限無しで -1
	ttl, err := l.client.PTTL(ctx, blockKey).Result()
	if err != nil {
		return Result{}, fmt.Errorf("ratelimit pttl: %w", err)
	}
	if ttl > 0 {
		return Result{OK: false, RetryAfter: ttl}, nil
	}

	counterKey := l.counterKey(key)
	count, err := l.client.Incr(ctx, counterKey).Result()
	if err != nil {
		return Result{}, fmt.Errorf("ratelimit incr: %w", err)
	}
	if count == 1 {
		if err := l.client.PExpire(ctx, counterKey, rule.Window).Err(); err != nil {
			return Result{}, fmt.Errorf("ratelimit pexpire: %w", err)
		}
	}

	if count > int64(rule.Max) {
		block := rule.blockFor()
		_, err := l.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, blockKey, 1, block)
			p.Del(ctx, counterKey)
			return nil
		})
		if err != nil {
			return Result{}, fmt.Errorf("ratelimit block: %w", err)
		}
		return Result{OK: false, RetryAfter: block}, nil
	}

	return Result{OK: true, Remaining: max(0, rule.Max-int(count))}, nil
}
