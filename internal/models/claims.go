package models

import "github.com/golang-jwt/jwt/v5"

// UserClaims are the claims carried by identity-provider access tokens.
// Only the subject is trusted; role and agency are always re-read from the
// profile store.
type UserClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
}

// UserID returns the verified subject of the token.
func (c *UserClaims) UserID() string {
	return c.Subject
}
