package sso

import (
	"context"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
)

// IDTokenClaims are the identity claims read from a verified id_token
type IDTokenClaims struct {
	Subject           string `json:"sub"`
	Name              string `json:"name"`
	Email             string `json:"email"`
	PreferredUsername string `json:"preferred_username"`
	TenantID          string `json:"tid"`
}

// IDTokenVerifier checks id_token signature, issuer, audience and expiry
type IDTokenVerifier struct {
	verifier *oidc.IDTokenVerifier
}

// NewIDTokenVerifier discovers the issuer's signing keys through OIDC discovery
func NewIDTokenVerifier(ctx context.Context, config Config) (*IDTokenVerifier, error) {
	provider, err := oidc.NewProvider(ctx, config.Issuer())
	if err != nil {
		return nil, fmt.Errorf("failed to discover OIDC provider: %w", err)
	}
	return &IDTokenVerifier{
		verifier: provider.Verifier(&oidc.Config{ClientID: config.ClientID}),
	}, nil
}

// NewIDTokenVerifierWithKeySet verifies against a fixed key set
func NewIDTokenVerifierWithKeySet(issuer, clientID string, keySet oidc.KeySet) *IDTokenVerifier {
	return &IDTokenVerifier{
		verifier: oidc.NewVerifier(issuer, keySet, &oidc.Config{ClientID: clientID}),
	}
}

// Verify validates rawIDToken and returns its claims
func (v *IDTokenVerifier) Verify(ctx context.Context, rawIDToken string) (*IDTokenClaims, error) {
	token, err := v.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("failed to verify id token: %w", err)
	}

	var claims IDTokenClaims
	if err := token.Claims(&claims); err != nil {
		return nil, fmt.Errorf("failed to parse id token claims: %w", err)
	}
	return &claims, nil
}
