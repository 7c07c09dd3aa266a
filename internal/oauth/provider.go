// Package oauth talks to the OAuth providers accounts can be linked with
package oauth

import (
	"bigfootds/auth-api/config"
	"bigfootds/auth-api/internal/apperr"
	"bigfootds/auth-api/internal/model"
	"context"
	"errors"
	"slices"

	"golang.org/x/oauth2"
)

var ErrNoProfile = errors.New("provider returned no profile")

// Provider is an OAuth provider that can identify the profile behind an
// authorization code
type Provider interface {
	Name() string
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (profileID string, err error)
}

func oauthConfig(c config.OAuthProviderConfig, endpoint oauth2.Endpoint, scopes ...string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		RedirectURL:  c.RedirectURL,
		Endpoint:     endpoint,
		Scopes:       scopes,
	}
}

// Registry holds the configured providers by name
type Registry struct {
	providers map[string]Provider
}

// NewRegistry builds a provider for every configured entry. Unknown names are
// ignored.
func NewRegistry(cfg map[string]config.OAuthProviderConfig) *Registry {
	r := &Registry{providers: map[string]Provider{}}

	for name, c := range cfg {
		switch name {
		case model.ProviderDiscord:
			r.Add(NewDiscord(c))
		case model.ProviderTwitch:
			r.Add(NewTwitch(c))
		}
	}

	return r
}

func (r *Registry) Add(p Provider) {
	r.providers[p.Name()] = p
}

// Get returns the provider called name
func (r *Registry) Get(name string) (Provider, error) {
	p, ok := r.providers[name]
	if !ok {
		return nil, apperr.ErrUnknownProvider
	}

	return p, nil
}

// Names lists the configured providers in alphabetical order
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}

	slices.Sort(names)

	return names
}
