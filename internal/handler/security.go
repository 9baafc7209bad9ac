package handler

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"

	"github.com/solentra/storefront/internal/domain/auth"
)

// APIKeyHeader is the request header carrying the client's API key.
const APIKeyHeader = "api_key"

type principalKey struct{}

// PrincipalFromContext returns the authenticated API key, or nil.
func PrincipalFromContext(ctx context.Context) *auth.APIKeyInfo {
	p, _ := ctx.Value(principalKey{}).(*auth.APIKeyInfo)
	return p
}

// Security authenticates requests via HMAC-SHA256 hashed API keys. The key's
// owning user is the requesting principal for user-scoped operations.
type Security struct {
	apikeys auth.Repository
	pepper  []byte
}

// NewSecurity creates a Security guard with the given API key repository and
// HMAC pepper.
func NewSecurity(apikeys auth.Repository, pepper []byte) *Security {
	return &Security{apikeys: apikeys, pepper: pepper}
}

// HashKey computes the stored HMAC-SHA256 hash for a raw API key.
func (s *Security) HashKey(key string) string {
	mac := hmac.New(sha256.New, s.pepper)
	mac.Write([]byte(key))
	return hex.EncodeToString(mac.Sum(nil))
}

// Authenticate requires a valid API key and stores the resolved principal in
// the request context.
func (s *Security) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get(APIKeyHeader)
		if key == "" {
			respondError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		hash := s.HashKey(key)
		info, err := s.apikeys.FindByHash(r.Context(), hash)
		if err != nil {
			respondError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		// Constant-time comparison guards against a repository returning a
		// stale or wrong row.
		stored, err := hex.DecodeString(info.KeyHash)
		computed, _ := hex.DecodeString(hash)
		if err != nil || subtle.ConstantTimeCompare(computed, stored) != 1 {
			respondError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		ctx := context.WithValue(r.Context(), principalKey{}, info)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireScope rejects authenticated requests whose key lacks the scope.
func (s *Security) RequireScope(scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := PrincipalFromContext(r.Context())
			if p == nil || !p.HasScope(scope) {
				respondError(w, http.StatusForbidden, "forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
