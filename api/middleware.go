package api

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
	"time"

	"food-delivery/auth"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/ulule/limiter/v3"
	mgin "github.com/ulule/limiter/v3/drivers/middleware/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	"go.uber.org/zap"
)

const (
	claimsKey       = "claims"
	requestIDHeader = "X-Request-ID"
)

// requestLogger logs one line per request with its latency.
func requestLogger(logger *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(requestIDHeader, id)
		c.Next()

		fields := []any{
			"request_id", id,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
			"client_ip", c.ClientIP(),
		}
		if claims, ok := c.Get(claimsKey); ok {
			cl := claims.(*auth.Claims)
			fields = append(fields, "role", cl.Role, "subject", cl.Subject)
		}
		switch {
		case c.Writer.Status() >= 500:
			logger.Errorw("request", fields...)
		case c.Writer.Status() >= 400:
			logger.Warnw("request", fields...)
		default:
			logger.Infow("request", fields...)
		}
	}
}

func rateLimit(formatted string) (gin.HandlerFunc, error) {
	rate, err := limiter.NewRateFromFormatted(formatted)
	if err != nil {
		return nil, fmt.Errorf("rate limit %q: %w", formatted, err)
	}
	instance := limiter.New(memory.NewStore(), rate)
	return mgin.NewMiddleware(instance, mgin.WithLimitReachedHandler(func(c *gin.Context) {
		fail(c, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests")
	})), nil
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", requestIDHeader},
		ExposeHeaders: []string{requestIDHeader, "Retry-After"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}

type TokenVerifier interface {
	ParseToken(token string) (*auth.Claims, error)
}

// requireRole admits bearer tokens carrying one of roles.
func requireRole(verifier TokenVerifier, roles ...auth.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			fail(c, http.StatusUnauthorized, "MISSING_TOKEN", "bearer token required")
			return
		}
		claims, err := verifier.ParseToken(token)
		if err != nil {
			fail(c, http.StatusUnauthorized, "INVALID_TOKEN", "invalid or expired token")
			return
		}
		for _, r := range roles {
			if claims.Role == r {
				c.Set(claimsKey, claims)
				c.Next()
				return
			}
		}
		fail(c, http.StatusForbidden, "ROLE_NOT_ALLOWED", fmt.Sprintf("role %q cannot call this endpoint", claims.Role))
	}
}

func subject(c *gin.Context) string {
	return c.MustGet(claimsKey).(*auth.Claims).Subject
}

// WebhookAuthorization is the header value the gateway sends with callbacks:
// hex(sha256(username:password)).
func WebhookAuthorization(username, password string) string {
	sum := sha256.Sum256([]byte(username + ":" + password))
	return hex.EncodeToString(sum[:])
}

func webhookAuth(expected string) gin.HandlerFunc {
	return func(c *gin.Context) {
		got := strings.TrimPrefix(c.GetHeader("Authorization"), "SHA256 ")
		if expected == "" || subtle.ConstantTimeCompare([]byte(strings.ToLower(got)), []byte(expected)) != 1 {
			fail(c, http.StatusUnauthorized, "INVALID_SIGNATURE", "webhook authorization failed")
			return
		}
		c.Next()
	}
}
