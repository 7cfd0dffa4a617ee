package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	logger "github.com/Gopher0727/HappyBot/middleware/log"
)

const keyPrefix = "happybot:ratelimit:"

// WindowLimiter counts requests per fixed window in redis, so several API
// processes share one budget per client.
type WindowLimiter struct {
	client   *redis.Client
	rule     Rule
	log      *logger.Logger
	failOpen bool // 为 true 时 Redis 不可用也放行
	now      func() time.Time
}

func NewWindowLimiter(client *redis.Client, rule Rule, log *logger.Logger, failOpen bool) *WindowLimiter {
	if log == nil {
		log = logger.NewNop()
	}
	return &WindowLimiter{
		client:   client,
		rule:     rule,
		log:      log,
		failOpen: failOpen,
		now:      time.Now,
	}
}

func (l *WindowLimiter) Rule() Rule {
	return l.rule
}

// Allow increments the counter of the current window and expires it with the
// window.
func (l *WindowLimiter) Allow(ctx context.Context, key string) (bool, error) {
	bucketKey := l.bucketKey(key, l.now())

	pipe := l.client.Pipeline()
	incr := pipe.Incr(ctx, bucketKey)
	pipe.Expire(ctx, bucketKey, l.rule.Window+time.Second)
	if _, err := pipe.Exec(ctx); err != nil {
		if l.failOpen {
			l.log.BestEffort(ctx, "ratelimit.allow", err, zap.String("key", key))
			return true, nil
		}
		return false, fmt.Errorf("rate limit check failed: %w", err)
	}

	count := incr.Val()
	if count > int64(l.rule.Limit) {
		l.log.DebugContext(ctx, "rate limit exceeded",
			zap.String("key", key),
			zap.Int64("count", count),
			zap.Int("limit", l.rule.Limit),
		)
		return false, nil
	}
	return true, nil
}

func (l *WindowLimiter) Remaining(ctx context.Context, key string) (int, error) {
	count, err := l.client.Get(ctx, l.bucketKey(key, l.now())).Int()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return l.rule.Limit, nil
		}
		return 0, fmt.Errorf("failed to read rate limit: %w", err)
	}
	return max(l.rule.Limit-count, 0), nil
}

func (l *WindowLimiter) bucketKey(key string, now time.Time) string {
	window := l.rule.Window
	if window <= 0 {
		window = time.Minute
	}
	bucket := now.UnixNano() / int64(window)
	return keyPrefix + key + ":" + strconv.FormatInt(bucket, 10)
}
