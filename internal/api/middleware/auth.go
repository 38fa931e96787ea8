package middleware

import (
	"context"
	"net/http"

	"github.com/lightsaway/event-gateway/internal/auth"
)

type identityKey struct{}

// AuthMiddleware authenticates requests via the configured provider chain.
// A chain with no enabled providers (the default — JWT is unconfigured)
// lets every request through anonymously.
type AuthMiddleware struct {
	chain *auth.ProviderChain
}

// NewAuthMiddleware wraps a provider chain as HTTP middleware.
func NewAuthMiddleware(chain *auth.ProviderChain) *AuthMiddleware {
	return &AuthMiddleware{chain: chain}
}

func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, err := m.chain.Authenticate(r.Context(), r)
		if err != nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if identity != nil {
			ctx := context.WithValue(r.Context(), identityKey{}, identity)
			r = r.WithContext(ctx)
		}
		next.ServeHTTP(w, r)
	})
}

// GetIdentity returns the authenticated identity from context, if any.
func GetIdentity(ctx context.Context) *auth.Identity {
	id, _ := ctx.Value(identityKey{}).(*auth.Identity)
	return id
}
