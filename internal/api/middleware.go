package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Gopher0727/FeedbackBot/config"
	"github.com/Gopher0727/FeedbackBot/middleware/jwt"
	logger "github.com/Gopher0727/FeedbackBot/middleware/log"
	"github.com/Gopher0727/FeedbackBot/utils/ratelimit"
)

const (
	ctxClientID = "client_id"
	ctxScopes   = "scopes"

	headerTraceID = "X-Trace-ID"
)

type MiddlewareManager struct {
	tokenManager *jwt.TokenManager
	rateLimiter  ratelimit.Limiter
	logger       *zap.Logger
	rateLimitCfg *config.RateLimitConfig
}

// NewMiddlewareManager builds the shared middleware. rateLimiter may be nil,
// which turns RateLimit into a pass-through.
func NewMiddlewareManager(
	tokenManager *jwt.TokenManager,
	rateLimiter ratelimit.Limiter,
	logger *zap.Logger,
	rateLimitCfg *config.RateLimitConfig,
) *MiddlewareManager {
	return &MiddlewareManager{
		tokenManager: tokenManager,
		rateLimiter:  rateLimiter,
		logger:       logger,
		rateLimitCfg: rateLimitCfg,
	}
}

// TraceID propagates the caller's X-Trace-ID, or a fresh one, through the
// request context and echoes it in the response.
func (m *MiddlewareManager) TraceID() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := logger.WithTraceID(c.Request.Context(), c.GetHeader(headerTraceID))
		c.Request = c.Request.WithContext(ctx)
		c.Header(headerTraceID, logger.GetTraceID(ctx))
		c.Next()
	}
}

func (m *MiddlewareManager) JWTAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization header required"})
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header format"})
			return
		}

		claims, err := m.tokenManager.ParseToken(parts[1])
		if err != nil {
			logger.Ctx(c.Request.Context(), m.logger).Warn("token validation failed",
				zap.Error(err),
				zap.String("ip", c.ClientIP()),
			)

			message := "invalid token"
			switch {
			case errors.Is(err, jwt.ErrExpiredToken):
				message = "token has expired"
			case errors.Is(err, jwt.ErrTokenNotYetValid):
				message = "token not yet valid"
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": message})
			return
		}

		c.Set(ctxClientID, claims.ClientID)
		c.Set(ctxScopes, claims.Scopes)
		c.Next()
	}
}

// RequireScope rejects tokens that were not granted scope. It must run after
// JWTAuth.
func (m *MiddlewareManager) RequireScope(scope string) gin.HandlerFunc {
	return func(c *gin.Context) {
		scopes, _ := c.Get(ctxScopes)
		list, _ := scopes.([]string)
		claims := jwt.Claims{Scopes: list}
		if !claims.HasScope(scope) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "missing scope " + scope})
			return
		}
		c.Next()
	}
}

// RateLimit throttles each authenticated client, falling back to the client
// IP before authentication.
func (m *MiddlewareManager) RateLimit(endpoint string) gin.HandlerFunc {
	rule := ratelimit.RuleFor(endpoint, m.rateLimitCfg)

	return func(c *gin.Context) {
		if m.rateLimiter == nil {
			c.Next()
			return
		}

		var key string
		if clientID := c.GetString(ctxClientID); clientID != "" {
			key = fmt.Sprintf("client:%s:%s", clientID, endpoint)
		} else {
			key = fmt.Sprintf("ip:%s:%s", c.ClientIP(), endpoint)
		}

		allowed, err := m.rateLimiter.Allow(c.Request.Context(), key, rule.Limit, rule.Window)
		if err != nil {
			logger.Ctx(c.Request.Context(), m.logger).Error("rate limit check failed",
				zap.Error(err),
				zap.String("key", key),
			)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "rate limit check failed"})
			return
		}
		if !allowed {
			remaining, _ := m.rateLimiter.Remaining(c.Request.Context(), key, rule.Limit, rule.Window)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate limit exceeded",
				"retry_after": int(rule.Window.Seconds()),
				"remaining":   remaining,
			})
			return
		}
		c.Next()
	}
}

func (m *MiddlewareManager) Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		statusCode := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.Int("status", statusCode),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()),
		}
		if clientID := c.GetString(ctxClientID); clientID != "" {
			fields = append(fields, zap.String("client_id", clientID))
		}

		log := logger.Ctx(c.Request.Context(), m.logger)
		switch {
		case statusCode >= 500:
			log.Error("server error", fields...)
		case statusCode >= 400:
			log.Warn("client error", fields...)
		default:
			log.Info("request completed", fields...)
		}
	}
}

func (m *MiddlewareManager) CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Trace-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func (m *MiddlewareManager) Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.Ctx(c.Request.Context(), m.logger).Error("panic recovered",
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
