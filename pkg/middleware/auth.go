package middleware

import (
	"context"
	"net/http"
	"strings"

	"cloud-storage/internal/model/user"
	"cloud-storage/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	principalKey = "principal"
	tokenKey     = "access_token"
)

type Authenticator interface {
	Authenticate(ctx context.Context, token string) (user.Principal, error)
}

// RequireAuth rejects requests without a valid bearer token.
func RequireAuth(auth Authenticator) gin.HandlerFunc {
	return authenticate(auth, true)
}

// OptionalAuth resolves a bearer token when one is sent and lets anonymous
// requests through.
func OptionalAuth(auth Authenticator) gin.HandlerFunc {
	return authenticate(auth, false)
}

func authenticate(auth Authenticator, required bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" {
			if required {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
					"success": false,
					"error":   gin.H{"code": "UNAUTHORIZED", "message": "Authentication credentials were not provided."},
				})
				return
			}
			c.Next()
			return
		}

		ctx := c.Request.Context()
		principal, err := auth.Authenticate(ctx, token)
		if err != nil {
			logger.GetLogger(ctx).Debug("authentication failed", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   gin.H{"code": "INVALID_TOKEN", "message": "Invalid or expired token."},
			})
			return
		}

		c.Set(principalKey, principal)
		c.Set(tokenKey, token)
		c.Request = c.Request.WithContext(logger.WithLogger(ctx,
			logger.GetLogger(ctx).With(zap.Uint32("user_id", principal.ID))))
		c.Next()
	}
}

// PrincipalFrom returns the authenticated principal of the request, if any.
func PrincipalFrom(c *gin.Context) (*user.Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return nil, false
	}
	p, ok := v.(user.Principal)
	if !ok {
		return nil, false
	}
	return &p, true
}

// TokenFrom returns the bearer token the request was authenticated with.
func TokenFrom(c *gin.Context) string {
	return c.GetString(tokenKey)
}

func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
