package models

import "github.com/golang-jwt/jwt/v5"

// Principal is the authenticated caller handed to every engine entry point by
// the transport layer. A nil *Principal means an anonymous caller.
type Principal struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}

// AccessClaims is the JWT claims structure the auth verifier extracts a
// Principal from. The engine never issues tokens; it only consumes verified
// claims.
type AccessClaims struct {
	jwt.RegisteredClaims        // Standard JWT claims (sub, iss, aud, exp, iat, etc.)
	Username             string `json:"username"`
	Email                string `json:"email"`
	Role                 string `json:"role"` // "authenticated" or "anon"
	SessionID            string `json:"session_id"`
}

// Principal converts verified claims into the caller identity the engine
// consumes. The subject claim is the user id.
func (c *AccessClaims) Principal() *Principal {
	return &Principal{
		UserID:   c.Subject,
		Username: c.Username,
	}
}
