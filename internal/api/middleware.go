package api

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"alert-notification-service/internal/models"
)

const currentUserKey = "currentUser"

// UserResolver turns a bearer token into the current user.
type UserResolver interface {
	GetUserByToken(ctx context.Context, token string) (models.User, error)
}

// CurrentUser returns the authenticated user set by AuthMiddleware.
func CurrentUser(c *gin.Context) (models.User, bool) {
	v, exists := c.Get(currentUserKey)
	if !exists {
		return models.User{}, false
	}
	user, ok := v.(models.User)
	return user, ok
}

// RequestIDMiddleware tags every request with a uuid for log correlation.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}

// RequestLoggingMiddleware logs method, path, status, and latency.
func RequestLoggingMiddleware(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method
		c.Next()
		latency := time.Since(start)
		status := c.Writer.Status()
		logger.Infof("Request: %s %s, Status: %d, Latency: %v, RequestID: %s",
			method, path, status, latency, c.GetString("request_id"))
	}
}

// AuthMiddleware resolves the Authorization bearer token to a user and
// stores it on the context. Unauthenticated callers are rejected before any
// dispatch logic runs.
func AuthMiddleware(users UserResolver, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or malformed token"})
			return
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		user, err := users.GetUserByToken(c.Request.Context(), token)
		if err != nil {
			logger.Warnf("Token resolution failed: %v", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}

		c.Set(currentUserKey, user)
		c.Next()
	}
}

// RateLimitMiddleware applies a per-user token bucket. Runs after auth.
func RateLimitMiddleware(perMinute int, logger *logrus.Logger) gin.HandlerFunc {
	var (
		mu       sync.Mutex
		limiters = make(map[int64]*rate.Limiter)
	)
	limit := rate.Every(time.Minute / time.Duration(perMinute))

	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
			return
		}

		mu.Lock()
		limiter, exists := limiters[user.ID]
		if !exists {
			limiter = rate.NewLimiter(limit, perMinute)
			limiters[user.ID] = limiter
		}
		mu.Unlock()

		if !limiter.Allow() {
			logger.Warnf("Rate limit exceeded for user %d", user.ID)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
