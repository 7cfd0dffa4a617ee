package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Gopher0727/HappyBot/internal/handler"
	"github.com/Gopher0727/HappyBot/middleware/jwt"
	logger "github.com/Gopher0727/HappyBot/middleware/log"
	"github.com/Gopher0727/HappyBot/utils/ratelimit"
)

// TraceHeader carries the request trace id in and out.
const TraceHeader = "X-Request-ID"

type MiddlewareManager struct {
	tokens  *jwt.TokenManager
	limiter ratelimit.Limiter
	log     *logger.Logger
}

// NewMiddlewareManager builds the API middleware. A nil limiter disables
// rate limiting.
func NewMiddlewareManager(tokens *jwt.TokenManager, limiter ratelimit.Limiter, log *logger.Logger) *MiddlewareManager {
	return &MiddlewareManager{
		tokens:  tokens,
		limiter: limiter,
		log:     log,
	}
}

// Auth verifies the bearer token. Verification is the only gate: it does not
// check the caller's permissions on the guild in the path.
func (m *MiddlewareManager) Auth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := jwt.BearerToken(c.GetHeader("Authorization"))
		if err == nil {
			var claims *jwt.Claims
			claims, err = m.tokens.Verify(token)
			if err == nil {
				handler.SetIdentity(c, claims.Identity())
				c.Next()
				return
			}
		}

		m.log.DebugContext(c.Request.Context(), "authentication failed",
			zap.String("ip", c.ClientIP()),
			zap.String("reason", err.Error()),
		)
		handler.RespondError(c, m.log, err)
	}
}

// RateLimit applies the limiter per client IP.
func (m *MiddlewareManager) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m.limiter == nil {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		key := "ip:" + c.ClientIP()

		allowed, err := m.limiter.Allow(ctx, key)
		if err != nil {
			m.log.ErrorContext(ctx, "rate limit check failed", zap.String("key", key), zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			return
		}

		rule := m.limiter.Rule()
		c.Header("X-RateLimit-Limit", strconv.Itoa(rule.Limit))
		if remaining, err := m.limiter.Remaining(ctx, key); err == nil {
			c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		} else {
			m.log.BestEffort(ctx, "ratelimit.remaining", err)
		}

		if !allowed {
			c.Header("Retry-After", strconv.Itoa(rule.RetryAfter()))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate limit exceeded",
				"retry_after": rule.RetryAfter(),
			})
			return
		}

		c.Next()
	}
}

// Logger tags the request context with a trace id and logs the outcome.
func (m *MiddlewareManager) Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		traceID := c.GetHeader(TraceHeader)
		if traceID == "" || len(traceID) > 64 {
			traceID = logger.NewTraceID()
		}
		ctx := logger.WithTraceID(c.Request.Context(), traceID)
		c.Request = c.Request.WithContext(ctx)
		c.Header(TraceHeader, traceID)

		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()),
		}
		if id, ok := handler.CurrentIdentity(c); ok {
			fields = append(fields, zap.String("user_id", id.UserID))
		}

		// 按状态码分级记录
		switch {
		case status >= 500:
			m.log.ErrorContext(ctx, "server error", fields...)
		case status >= 400:
			m.log.WarnContext(ctx, "client error", fields...)
		default:
			m.log.InfoContext(ctx, "request completed", fields...)
		}
	}
}

func (m *MiddlewareManager) Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				m.log.ErrorContext(c.Request.Context(), "panic recovered",
					zap.Any("error", err),
					zap.String("path", c.Request.URL.Path),
					zap.String("method", c.Request.Method),
				)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			}
		}()

		c.Next()
	}
}
