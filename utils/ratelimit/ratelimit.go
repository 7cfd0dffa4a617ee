// Package ratelimit throttles dashboard API clients. A redis-backed fixed
// window is used when a redis address is configured, an in-process token
// bucket otherwise.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Gopher0727/HappyBot/config"
	logger "github.com/Gopher0727/HappyBot/middleware/log"
)

// Limiter decides whether the caller identified by key may proceed.
type Limiter interface {
	// Allow consumes one request for key and reports whether it fits the rule.
	Allow(ctx context.Context, key string) (bool, error)

	// Remaining returns how many requests key has left right now.
	Remaining(ctx context.Context, key string) (int, error)

	// Rule returns the limit being enforced.
	Rule() Rule
}

// Rule is Limit requests per Window.
type Rule struct {
	Limit  int
	Window time.Duration
}

// RetryAfter is a conservative wait, in whole seconds, before a denied
// client should try again.
func (r Rule) RetryAfter() int {
	return int((r.Window + time.Second - 1) / time.Second)
}

// DefaultPerMinute applies when the configured limit is not positive.
const DefaultPerMinute = 120

// New builds the limiter the configuration asks for. The returned close
// function releases the redis client, if one was opened.
func New(ctx context.Context, cfg config.RateLimitConfig, log *logger.Logger) (Limiter, func() error, error) {
	if log == nil {
		log = logger.NewNop()
	}
	log = log.Named("ratelimit")

	perMinute := cfg.PerMinute
	if perMinute <= 0 {
		perMinute = DefaultPerMinute
	}
	rule := Rule{Limit: perMinute, Window: time.Minute}

	if cfg.RedisAddr == "" {
		log.Info("using in-process rate limiter", zap.Int("per_minute", perMinute))
		return NewLocalLimiter(rule, cfg.Burst), func() error { return nil }, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
		DB:   cfg.RedisDB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		if !cfg.FailOpen {
			_ = client.Close()
			return nil, nil, fmt.Errorf("连接 Redis 失败: %w", err)
		}
		log.Warn("redis unreachable at startup, limiter will fail open", zap.Error(err))
	}

	log.Info("using redis rate limiter", zap.String("addr", cfg.RedisAddr), zap.Int("per_minute", perMinute))
	return NewWindowLimiter(client, rule, log, cfg.FailOpen), client.Close, nil
}
