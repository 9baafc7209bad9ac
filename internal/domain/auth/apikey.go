package auth

import "context"

// APIKeyInfo holds the identity and permission data for a validated API key.
// The key's user ID is the requesting principal for user-scoped operations.
type APIKeyInfo struct {
	ID      string
	KeyHash string
	Name    string
	UserID  string
	Scopes  []string
}

// ScopeAdmin grants access to product mutation endpoints.
const ScopeAdmin = "admin"

// HasScope reports whether the key carries the given scope.
func (k *APIKeyInfo) HasScope(scope string) bool {
	for _, s := range k.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// Repository provides lookup of API keys by their HMAC-SHA256 hash.
type Repository interface {
	FindByHash(ctx context.Context, hash string) (*APIKeyInfo, error)
}
