package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"seqstore/internal/core/apperror"
	appctx "seqstore/internal/core/context"
)

// JWTValidator interface for token validation.
type JWTValidator interface {
	ValidateToken(tokenString string) (*appctx.ClientContext, error)
}

// Auth middleware validates JWT tokens and populates client context.
func Auth(validator JWTValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortUnauthorized(c, "missing authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			abortUnauthorized(c, "invalid authorization header format")
			return
		}

		client, err := validator.ValidateToken(parts[1])
		if err != nil {
			abortUnauthorized(c, "invalid token")
			return
		}

		ctx := appctx.WithClient(c.Request.Context(), client)
		c.Request = c.Request.WithContext(ctx)

		// Store in gin context for easy access
		c.Set("subject", client.Subject)
		c.Set("scopes", client.Scopes)

		c.Next()
	}
}

// RequireScope middleware checks if the client was granted scope.
func RequireScope(scope string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		if appctx.GetClient(ctx) == nil {
			abortUnauthorized(c, "authentication required")
			return
		}

		if !appctx.HasScope(ctx, scope) {
			_ = c.Error(
				apperror.NewForbidden("insufficient scope").
					WithDetail("required_scope", scope),
			)
			c.Abort()
			return
		}

		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, message string) {
	_ = c.Error(apperror.NewUnauthorized(message))
	c.Abort()
}
