package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/pageza/agrisoil/backend/internal/types"
)

const (
	ContextUserID = "user_id"
	ContextClaims = "claims"
)

// TokenValidator is an interface for validating JWT tokens
type TokenValidator interface {
	ValidateToken(token string) (*types.TokenClaims, error)
}

// RefreshTokenValidator validates refresh tokens for the refresh endpoint
type RefreshTokenValidator interface {
	ValidateRefreshToken(token string) (*types.TokenClaims, error)
}

// AuthMiddleware creates a middleware that requires a valid access token
func AuthMiddleware(validator TokenValidator) gin.HandlerFunc {
	return bearerAuth(validator.ValidateToken)
}

// RefreshAuthMiddleware creates a middleware that requires a valid refresh token
func RefreshAuthMiddleware(validator RefreshTokenValidator) gin.HandlerFunc {
	return bearerAuth(validator.ValidateRefreshToken)
}

func bearerAuth(validate func(string) (*types.TokenClaims, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header format"})
			c.Abort()
			return
		}

		claims, err := validate(parts[1])
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": tokenErrorMessage(err)})
			c.Abort()
			return
		}

		// Store user info in context
		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextClaims, claims)
		c.Next()
	}
}

func tokenErrorMessage(err error) string {
	msg := err.Error()
	for {
		next := errors.Unwrap(err)
		if next == nil {
			break
		}
		msg = strings.TrimPrefix(msg, next.Error()+": ")
		err = next
	}
	return msg
}

// AdminOnly rejects requests whose token lacks the is_admin claim. It must run
// after AuthMiddleware.
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := ClaimsFrom(c)
		if !ok || !claims.IsAdmin {
			c.JSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// ClaimsFrom returns the claims AuthMiddleware stored on the context.
func ClaimsFrom(c *gin.Context) (*types.TokenClaims, bool) {
	v, ok := c.Get(ContextClaims)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*types.TokenClaims)
	return claims, ok
}
