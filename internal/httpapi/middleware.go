package httpapi

import (
	"bytes"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/wurksy/wurksy/internal/auth"
	"github.com/wurksy/wurksy/internal/common"
	"github.com/wurksy/wurksy/internal/store/redisstore"
)

const requestIDHeader = "X-Request-ID"

// RequestID tags every request, generating an ID when the client sent none.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			if generated, err := common.NewULID(); err == nil {
				id = generated
			}
		}
		c.Set("request_id", id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// RequestLogger logs one structured line per request.
func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			zap.String("request_id", c.GetString("request_id")),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()),
		)
	}
}

// Recovery converts panics into the standard 500 envelope.
func Recovery(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic recovered",
					zap.Any("panic", r),
					zap.String("path", c.Request.URL.Path),
				)
				common.Fail(c, http.StatusInternalServerError, 500, "internal error")
				c.Abort()
			}
		}()
		c.Next()
	}
}

// authAllowlist lists paths reachable without the access cookie.
var authAllowlist = map[string]bool{
	"/healthz":     true,
	"/auth/login":  true,
	"/auth/logout": true,
	"/api/config":  true,
}

// AuthWall gates the API behind the shared-password cookie. A nil manager
// (no access password configured) disables the wall entirely.
func AuthWall(m *auth.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil || authAllowlist[c.Request.URL.Path] {
			c.Next()
			return
		}
		token, err := c.Cookie(auth.CookieName)
		if err != nil || m.Verify(token) != nil {
			common.Fail(c, http.StatusUnauthorized, 401, "login required")
			c.Abort()
			return
		}
		c.Next()
	}
}

// AdminKey gates admin routes on the X-Admin-Key header.
func AdminKey(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		given := c.GetHeader("X-Admin-Key")
		if key == "" || subtle.ConstantTimeCompare([]byte(given), []byte(key)) != 1 {
			common.Fail(c, http.StatusForbidden, 403, "admin key required")
			c.Abort()
			return
		}
		c.Next()
	}
}

// RateLimit applies a fixed-window limit keyed by keyFn. Redis outages
// fail open: a throttle is not worth taking the service down for.
func RateLimit(limiter *redisstore.Limiter, logger *zap.Logger, name string, limit int, window time.Duration, keyFn func(*gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}
		key := fmt.Sprintf("%s:%s", name, keyFn(c))
		ok, err := limiter.Allow(c.Request.Context(), key, limit, window)
		if err != nil {
			logger.Warn("rate limiter unavailable", zap.String("limit", name), zap.Error(err))
			c.Next()
			return
		}
		if !ok {
			common.Fail(c, http.StatusTooManyRequests, 429, "too many requests")
			c.Abort()
			return
		}
		c.Next()
	}
}

// ClientKey keys a limit by caller IP.
func ClientKey(c *gin.Context) string { return c.ClientIP() }

// SessionKey keys a limit by caller IP plus the session it targets, so one
// busy session cannot starve a shared lab IP. Chat requests carry the
// session ID in the JSON body, so the body is peeked and restored for the
// handler; GET routes fall back to the query parameter.
func SessionKey(c *gin.Context) string {
	if sid := c.Query("sessionId"); sid != "" {
		return c.ClientIP() + ":" + sid
	}
	return c.ClientIP() + ":" + peekSessionID(c)
}

func peekSessionID(c *gin.Context) string {
	if c.Request.Body == nil {
		return ""
	}
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return ""
	}
	c.Request.Body = io.NopCloser(bytes.NewReader(raw))

	var body struct {
		SessionID string `json:"sessionId"`
	}
	if json.Unmarshal(raw, &body) != nil {
		return ""
	}
	return body.SessionID
}
