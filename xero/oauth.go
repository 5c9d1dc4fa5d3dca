package xero

import (
	"context"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"

	"sitebooks/backend/config"
)

// NewOAuthConfig builds the authorization-code grant configuration for Xero.
// Client credentials go in the Basic auth header as Xero requires.
func NewOAuthConfig(cfg *config.Config) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     cfg.XeroClientID,
		ClientSecret: cfg.XeroClientSecret,
		RedirectURL:  cfg.XeroRedirectURI,
		Scopes:       cfg.XeroScopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:   cfg.XeroAuthURL,
			TokenURL:  cfg.XeroTokenURL,
			AuthStyle: oauth2.AuthStyleInHeader,
		},
	}
}

// Exchange trades an authorization code for a token pair.
func Exchange(ctx context.Context, oc *oauth2.Config, hc *http.Client, code string) (*oauth2.Token, error) {
	tok, err := oc.Exchange(withHTTPClient(ctx, hc), code)
	if err != nil {
		return nil, fmt.Errorf("xero: exchanging authorization code: %w", err)
	}
	if tok.RefreshToken == "" {
		return nil, fmt.Errorf("xero: token response has no refresh token (is offline_access in scope?)")
	}
	return tok, nil
}

func withHTTPClient(ctx context.Context, hc *http.Client) context.Context {
	if hc == nil {
		return ctx
	}
	return context.WithValue(ctx, oauth2.HTTPClient, hc)
}
