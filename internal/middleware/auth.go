package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	iauth "github.com/kitchenshare/kitchenshare/internal/auth"
	"github.com/kitchenshare/kitchenshare/pkg/errors"
	"github.com/kitchenshare/kitchenshare/pkg/response"
)

const (
	CtxClaimsKey = "authClaims"
	CtxUserIDKey = "userID"
)

// Auth enforces JWT authentication using the supplied JWT service.
func Auth(jwt *iauth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authz := c.GetHeader("Authorization")
		if len(authz) < 8 || !strings.EqualFold(authz[:7], "Bearer ") {
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		token := strings.TrimSpace(authz[7:])
		claims, err := jwt.ValidateAccessToken(token)
		if err != nil {
			// Normalise all validation failures to 401
			c.Header("WWW-Authenticate", "Bearer")
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		// Propagate identity into request context
		c.Set(CtxClaimsKey, claims)
		c.Set(CtxUserIDKey, claims.UserID)

		c.Next()
	}
}

// OptionalAuth resolves a Bearer token when one is supplied but lets
// anonymous requests through. The invitation accept endpoint uses it so an
// unauthenticated attempt can be answered with a resumable token instead of
// a flat 401.
func OptionalAuth(jwt *iauth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authz := c.GetHeader("Authorization")
		if len(authz) >= 8 && strings.EqualFold(authz[:7], "Bearer ") {
			token := strings.TrimSpace(authz[7:])
			if claims, err := jwt.ValidateAccessToken(token); err == nil {
				c.Set(CtxClaimsKey, claims)
				c.Set(CtxUserIDKey, claims.UserID)
			}
		}
		c.Next()
	}
}
