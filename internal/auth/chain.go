// Package auth provides the JWT authentication boundary for the event
// gateway. Non-goal: actual JWT/JWKS validation is out of scope for this
// module — the chain and provider shape exist so the boundary (config,
// middleware slot, identity propagation) is specified even though it is
// presently a pass-through.
package auth

import (
	"context"
	"net/http"
	"sync"

	"github.com/rs/zerolog/log"
)

// Identity is the authenticated caller, when a provider recognizes the
// request.
type Identity struct {
	Subject string
	Role    string
}

// Provider authenticates a single request.
//
// Contract:
//   - (*Identity, nil) → authenticated, stop walking the chain
//   - (nil, nil) → this provider doesn't handle this request, try next
//   - (nil, error) → auth attempted but failed, reject immediately
type Provider interface {
	Name() string
	Enabled() bool
	Authenticate(ctx context.Context, r *http.Request) (*Identity, error)
}

// ProviderChain walks registered providers in order until one returns an
// Identity.
type ProviderChain struct {
	mu        sync.RWMutex
	providers []Provider
}

// NewProviderChain creates an empty auth provider chain.
func NewProviderChain() *ProviderChain {
	return &ProviderChain{}
}

// RegisterProvider adds a provider to the end of the chain.
func (c *ProviderChain) RegisterProvider(p Provider) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.providers = append(c.providers, p)
	log.Info().Str("provider", p.Name()).Bool("enabled", p.Enabled()).Msg("auth provider registered")
}

// Authenticate walks the chain in registration order.
func (c *ProviderChain) Authenticate(ctx context.Context, r *http.Request) (*Identity, error) {
	c.mu.RLock()
	providers := make([]Provider, len(c.providers))
	copy(providers, c.providers)
	c.mu.RUnlock()

	for _, p := range providers {
		if !p.Enabled() {
			continue
		}
		identity, err := p.Authenticate(ctx, r)
		if err != nil {
			return nil, err
		}
		if identity != nil {
			return identity, nil
		}
	}
	return nil, nil
}
