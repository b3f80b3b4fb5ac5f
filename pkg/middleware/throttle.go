package middleware

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"cloud-storage/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ThrottleConfig struct {
	UserRate string `env:"THROTTLE_USER_RATE" env-default:"600/minute"`
	AnonRate string `env:"THROTTLE_ANON_RATE" env-default:"200/minute"`
}

// Rate is a number of requests allowed per window. A zero Limit disables
// throttling.
type Rate struct {
	Limit  int64
	Window time.Duration
}

var rateUnits = map[string]time.Duration{
	"s": time.Second,
	"m": time.Minute,
	"h": time.Hour,
	"d": 24 * time.Hour,
}

// ParseRate reads rates like "600/minute", "10/s" or "1000/day".
func ParseRate(s string) (Rate, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Rate{}, nil
	}
	num, unit, ok := strings.Cut(s, "/")
	if !ok {
		return Rate{}, fmt.Errorf("invalid rate %q: want <count>/<period>", s)
	}
	limit, err := strconv.ParseInt(strings.TrimSpace(num), 10, 64)
	if err != nil || limit < 0 {
		return Rate{}, fmt.Errorf("invalid rate count %q", num)
	}
	unit = strings.ToLower(strings.TrimSpace(unit))
	if unit == "" {
		return Rate{}, fmt.Errorf("invalid rate period in %q", s)
	}
	window, ok := rateUnits[unit[:1]]
	if !ok {
		return Rate{}, fmt.Errorf("invalid rate period %q", unit)
	}
	return Rate{Limit: limit, Window: window}, nil
}

func (c ThrottleConfig) Rates() (userRate, anonRate Rate, err error) {
	if userRate, err = ParseRate(c.UserRate); err != nil {
		return Rate{}, Rate{}, fmt.Errorf("THROTTLE_USER_RATE: %w", err)
	}
	if anonRate, err = ParseRate(c.AnonRate); err != nil {
		return Rate{}, Rate{}, fmt.Errorf("THROTTLE_ANON_RATE: %w", err)
	}
	return userRate, anonRate, nil
}

type Counter interface {
	Hit(ctx context.Context, subject string, window time.Duration, now time.Time) (int64, time.Duration, error)
}

// Throttle limits authenticated callers by user id and anonymous callers by
// client IP. It must run after the auth middleware. When the counter is
// unavailable requests are let through.
func Throttle(counter Counter, userRate, anonRate Rate) gin.HandlerFunc {
	return func(c *gin.Context) {
		rate, subject := anonRate, "anon:"+c.ClientIP()
		if p, ok := PrincipalFrom(c); ok {
			rate, subject = userRate, fmt.Sprintf("user:%d", p.ID)
		}
		if rate.Limit <= 0 {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		count, reset, err := counter.Hit(ctx, subject, rate.Window, time.Now())
		if err != nil {
			logger.GetLogger(ctx).Warn("throttle unavailable, allowing request", zap.Error(err))
			c.Next()
			return
		}
		if count > rate.Limit {
			retryAfter := int(math.Ceil(reset.Seconds()))
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "THROTTLED",
					"message": fmt.Sprintf("Request was throttled. Expected available in %d seconds.", retryAfter),
				},
			})
			return
		}
		c.Next()
	}
}
