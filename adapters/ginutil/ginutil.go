// Package ginutil holds the small response and rate-limit helpers shared by
// the gin handlers.
package ginutil

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Rate limit buckets.
const (
	RLLogin   = "login"
	RLLoginIP = "login_ip"
)

// RateLimiter is satisfied by the memory and redis limiters.
type RateLimiter interface {
	Allow(ctx context.Context, bucket, key string) (bool, error)
}

// Resetter clears a key after a successful attempt.
type Resetter interface {
	Reset(ctx context.Context, bucket, key string) error
}

// AllowNamed limits by client IP.
func AllowNamed(c *gin.Context, rl RateLimiter, bucket string) bool {
	return AllowKeyed(c, rl, bucket, c.ClientIP())
}

// AllowKeyed limits by an explicit key. A nil limiter allows everything and a
// failing limiter fails open.
func AllowKeyed(c *gin.Context, rl RateLimiter, bucket, key string) bool {
	if rl == nil || key == "" {
		return true
	}
	ok, err := rl.Allow(c.Request.Context(), bucket, key)
	if err != nil {
		logrus.WithError(err).WithField("bucket", bucket).Warn("rate limiter unavailable")
		return true
	}
	return ok
}

// Reset clears key in bucket when rl supports it.
func Reset(c *gin.Context, rl RateLimiter, bucket, key string) {
	if r, ok := rl.(Resetter); ok && key != "" {
		_ = r.Reset(c.Request.Context(), bucket, key)
	}
}

func BadRequest(c *gin.Context, code string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": code})
}

func Unauthorized(c *gin.Context, code string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": code})
}

func Forbidden(c *gin.Context, code string) {
	c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": code})
}

func TooMany(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate_limited"})
}

func ServerErr(c *gin.Context, code string) {
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": code})
}

// ServerErrWithLog logs err against the request before answering 500.
func ServerErrWithLog(c *gin.Context, code string, err error) {
	logrus.WithError(err).WithFields(logrus.Fields{
		"path":   c.FullPath(),
		"method": c.Request.Method,
	}).Error(code)
	ServerErr(c, code)
}
