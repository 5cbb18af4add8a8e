package models

import "github.com/golang-jwt/jwt/v5"

// OwnerClaims is the JWT payload identifying the calling teacher. Tokens are
// issued by the upstream auth layer; this service only verifies them.
type OwnerClaims struct {
	OwnerID     string `json:"owner_id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name,omitempty"`
	jwt.RegisteredClaims
}

// OwnerContext converts claims into the explicit context the import takes.
func (c *OwnerClaims) OwnerContext() OwnerContext {
	return OwnerContext{
		OwnerID:     c.OwnerID,
		Email:       c.Email,
		DisplayName: c.DisplayName,
	}
}
