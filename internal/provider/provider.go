// Package provider implements the pluggable AuthProvider abstraction: a
// uniform interface over heterogeneous authentication methods, dispatched
// by a factory keyed on provider_id. Adding a provider is one variant plus
// one factory arm.
package provider

import (
	"context"
	"errors"
)

// ErrProviderNotSupported is returned by the factory for unknown provider_id.
var ErrProviderNotSupported = errors.New("provider not supported")

// UserInfo is the normalized identity a provider resolves a credential to.
type UserInfo struct {
	ProviderAccountID string
	Email             string
	Name              string
	Metadata          map[string]any
}

// AuthProvider authenticates a credential against one provider variant.
// Credential is provider-specific (PasswordCredential, WeChatCredential,
// TestCredential); implementations type-assert it.
type AuthProvider interface {
	ProviderID() string
	Authenticate(ctx context.Context, config map[string]any, credential any) (UserInfo, error)
}

// Factory maps provider_id strings to concrete AuthProvider implementations.
type Factory struct {
	providers map[string]AuthProvider
}

// NewFactory builds a Factory with the given providers registered by their
// own ProviderID().
func NewFactory(providers ...AuthProvider) *Factory {
	f := &Factory{providers: make(map[string]AuthProvider, len(providers))}
	for _, p := range providers {
		f.providers[p.ProviderID()] = p
	}
	return f
}

// Create returns the AuthProvider registered for providerID.
func (f *Factory) Create(providerID string) (AuthProvider, error) {
	p, ok := f.providers[providerID]
	if !ok {
		return nil, ErrProviderNotSupported
	}
	return p, nil
}
