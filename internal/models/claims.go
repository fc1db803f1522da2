package models

import "github.com/golang-jwt/jwt/v5"

// ClientClaims are the JWT claims carried by API clients of the gateway.
type ClientClaims struct {
	ClientID string `json:"client_id"`
	Role     string `json:"role,omitempty"`
	jwt.RegisteredClaims
}
