package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"github.com/layarapp/layar-server/internal/config"
)

// FederatedIdentity is what a federated provider vouches for.
type FederatedIdentity struct {
	Subject       string
	Email         string
	EmailVerified bool
	PhotoURL      string
}

// Federator runs the authorization code flow against an external identity
// provider.
type Federator interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*FederatedIdentity, error)
}

// OIDCFederator is a Federator backed by an OpenID Connect issuer.
type OIDCFederator struct {
	provider *oidc.Provider
	oauth    oauth2.Config
}

// NewOIDCFederator discovers the issuer's endpoints.
func NewOIDCFederator(ctx context.Context, cfg config.OIDCConfig) (*OIDCFederator, error) {
	provider, err := oidc.NewProvider(ctx, cfg.IssuerURL)
	if err != nil {
		return nil, fmt.Errorf("discover OIDC provider %s: %w", cfg.IssuerURL, err)
	}

	return &OIDCFederator{
		provider: provider,
		oauth: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     provider.Endpoint(),
			Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
		},
	}, nil
}

// AuthCodeURL returns the URL the browser is sent to.
func (f *OIDCFederator) AuthCodeURL(state string) string {
	return f.oauth.AuthCodeURL(state)
}

// Exchange trades an authorization code for a verified identity.
func (f *OIDCFederator) Exchange(ctx context.Context, code string) (*FederatedIdentity, error) {
	if code == "" {
		return nil, errors.New("missing authorization code")
	}

	token, err := f.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange code: %w", err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok {
		return nil, errors.New("token response has no id_token")
	}

	verifier := f.provider.Verifier(&oidc.Config{ClientID: f.oauth.ClientID})
	idToken, err := verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("verify id token: %w", err)
	}

	var claims struct {
		Email         string `json:"email"`
		EmailVerified bool   `json:"email_verified"`
		Picture       string `json:"picture"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("parse id token claims: %w", err)
	}
	if claims.Email == "" {
		return nil, errors.New("id token carries no email")
	}

	return &FederatedIdentity{
		Subject:       idToken.Issuer + "|" + idToken.Subject,
		Email:         claims.Email,
		EmailVerified: claims.EmailVerified,
		PhotoURL:      claims.Picture,
	}, nil
}
