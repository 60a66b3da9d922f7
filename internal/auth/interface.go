package auth

import "github.com/mattyatea/zxcv-sub000/internal/domain/models"

// TokenVerifier resolves a bearer token to the principal the engine consumes.
// The engine never issues or refreshes tokens; every entry point just takes
// the resolved principal (or nil for anonymous callers).
type TokenVerifier interface {
	// VerifyToken validates a JWT and returns the principal it identifies.
	// Returns an error if the token is invalid, expired, or has an invalid
	// signature.
	VerifyToken(tokenString string) (*models.Principal, error)

	// Close releases any resources held by the verifier (e.g., HTTP
	// connections for JWKS refresh).
	Close() error
}
