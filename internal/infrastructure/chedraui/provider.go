package chedraui

import (
	"sync"

	"github.com/google/uuid"

	"github.com/cartbridge/backend/internal/domain/cart"
)

// Options carries the provider-wide settings applied to every account
// session.
type Options struct {
	// BaseURL overrides the production storefront (tests, staging).
	BaseURL string
	// TimeoutSeconds is the per-request HTTP timeout.
	TimeoutSeconds int
	// UserAgent overrides the default User-Agent header.
	UserAgent string
}

// Provider hands out one Client per account, keeping sessions (and
// their cookie jars) alive across calls.
type Provider struct {
	opts Options

	mu      sync.RWMutex
	clients map[uuid.UUID]*Client
}

// NewProvider creates a session provider.
func NewProvider(opts Options) *Provider {
	return &Provider{
		opts:    opts,
		clients: make(map[uuid.UUID]*Client),
	}
}

// Gateway returns the live session for the account, creating one on
// first use.
func (p *Provider) Gateway(creds cart.Credentials) (cart.Gateway, error) {
	p.mu.RLock()
	client, ok := p.clients[creds.AccountID]
	p.mu.RUnlock()
	if ok {
		return client, nil
	}

	config := NewConfig(creds.Username, creds.Password, creds.StoreID)
	if p.opts.BaseURL != "" {
		config.BaseURL = p.opts.BaseURL
	}
	if p.opts.TimeoutSeconds > 0 {
		config.TimeoutSeconds = p.opts.TimeoutSeconds
	}
	if p.opts.UserAgent != "" {
		config.UserAgent = p.opts.UserAgent
	}

	client, err := NewClient(config)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	// Another goroutine may have won the race.
	if existing, ok := p.clients[creds.AccountID]; ok {
		return existing, nil
	}
	p.clients[creds.AccountID] = client
	return client, nil
}

// Evict drops the cached session for an account.
func (p *Provider) Evict(accountID uuid.UUID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.clients, accountID)
}

// Ensure Provider implements the gateway provider port
var _ cart.GatewayProvider = (*Provider)(nil)
