package auth

import (
	"sort"

	"tenantauth/internal/domain/service"

	"go.uber.org/fx"
)

// ProviderRegistryParams collects every provider and verifier registered in the fx graph.
type ProviderRegistryParams struct {
	fx.In

	Providers []service.OAuthProvider   `group:"oauth_providers"`
	Verifiers []service.IDTokenVerifier `group:"id_token_verifiers"`
}

type providerRegistry struct {
	providers map[string]service.OAuthProvider
	verifiers map[string]service.IDTokenVerifier
}

// NewProviderRegistry indexes providers and verifiers by name. Later registrations win.
func NewProviderRegistry(params ProviderRegistryParams) service.OAuthProviderRegistry {
	registry := &providerRegistry{
		providers: make(map[string]service.OAuthProvider, len(params.Providers)),
		verifiers: make(map[string]service.IDTokenVerifier, len(params.Verifiers)),
	}
	for _, provider := range params.Providers {
		registry.providers[provider.Name()] = provider
	}
	for _, verifier := range params.Verifiers {
		registry.verifiers[verifier.Name()] = verifier
	}

	return registry
}

// Provider returns the named provider only if it has credentials.
func (r *providerRegistry) Provider(name string) (service.OAuthProvider, bool) {
	provider, ok := r.providers[name]
	if !ok || !provider.IsConfigured() {
		return nil, false
	}

	return provider, true
}

func (r *providerRegistry) Verifier(name string) (service.IDTokenVerifier, bool) {
	verifier, ok := r.verifiers[name]

	return verifier, ok
}

func (r *providerRegistry) Configured() []string {
	names := make([]string, 0, len(r.providers))
	for name, provider := range r.providers {
		if provider.IsConfigured() {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	return names
}
