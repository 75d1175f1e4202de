package models

import "github.com/golang-jwt/jwt/v5"

// JWTClaims is the access token payload. UserID is the host gradebook user
// whose bulk grade listing backs score resolution.
type JWTClaims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}
