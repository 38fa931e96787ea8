package auth

import (
	"context"
	"net/http"

	"github.com/lightsaway/event-gateway/internal/config"
)

// JWTProvider is the event gateway's sole auth provider. Enabled() is
// false unless a JWKS URL is configured, in which case the chain falls
// through to anonymous and every request passes. Validating the bearer
// token against the configured JWKS/issuer/audience is out of this
// module's scope.
type JWTProvider struct {
	cfg config.AuthConfig
}

// NewJWTProvider builds a JWTProvider from the auth section of Config.
func NewJWTProvider(cfg config.AuthConfig) *JWTProvider {
	return &JWTProvider{cfg: cfg}
}

func (p *JWTProvider) Name() string { return "jwt" }

func (p *JWTProvider) Enabled() bool { return p.cfg.JWKSURL != "" }

func (p *JWTProvider) Authenticate(ctx context.Context, r *http.Request) (*Identity, error) {
	return nil, nil
}
