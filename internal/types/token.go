package types

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// TokenClaims represents the claims in a JWT token. The jti lives in
// RegisteredClaims.ID and the user id is mirrored in Subject.
type TokenClaims struct {
	jwt.RegisteredClaims
	UserID    uuid.UUID `json:"user_id"`
	TokenType string    `json:"type"`
	IsAdmin   bool      `json:"is_admin"`
}

// JTI returns the unique token identifier.
func (c *TokenClaims) JTI() string {
	return c.RegisteredClaims.ID
}
