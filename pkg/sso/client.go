package sso

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/platinummonkey/accountgate/pkg/auth"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/microsoft"
)

// maxProfileBytes bounds the profile response read from the provider
const maxProfileBytes = 1 << 20

// CallObserver receives the duration of every outbound provider call
type CallObserver func(call string, elapsed time.Duration, err error)

// AzureClient performs the authorization-code flow against Azure AD and reads
// the signed-in user's profile from Microsoft Graph. Calls are never retried.
type AzureClient struct {
	config     Config
	oauth2     *oauth2.Config
	httpClient *http.Client
	verifier   *IDTokenVerifier
	observe    CallObserver
}

// Option configures an AzureClient
type Option func(*AzureClient)

// WithHTTPClient sets the client used for the token and profile calls
func WithHTTPClient(client *http.Client) Option {
	return func(c *AzureClient) {
		c.httpClient = client
	}
}

// WithIDTokenVerifier enables id_token verification with the given verifier
func WithIDTokenVerifier(v *IDTokenVerifier) Option {
	return func(c *AzureClient) {
		c.verifier = v
	}
}

// WithCallObserver registers a hook for call latency
func WithCallObserver(observe CallObserver) Option {
	return func(c *AzureClient) {
		c.observe = observe
	}
}

// NewAzureClient builds a client from config
func NewAzureClient(config Config, opts ...Option) (*AzureClient, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid provider config: %w", err)
	}
	if len(config.Scopes) == 0 {
		config.Scopes = DefaultScopes
	}
	if config.Timeout == 0 {
		config.Timeout = DefaultTimeout
	}
	if config.ProfileURL == "" {
		config.ProfileURL = DefaultProfileURL
	}

	endpoint := microsoft.AzureADEndpoint(config.TenantID)
	if config.AuthURL != "" {
		endpoint.AuthURL = config.AuthURL
	}
	if config.TokenURL != "" {
		endpoint.TokenURL = config.TokenURL
	}
	endpoint.AuthStyle = oauth2.AuthStyleInParams

	c := &AzureClient{
		config: config,
		oauth2: &oauth2.Config{
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			Endpoint:     endpoint,
			RedirectURL:  config.RedirectURL,
			Scopes:       config.Scopes,
		},
		httpClient: http.DefaultClient,
		observe:    func(string, time.Duration, error) {},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Scopes returns the configured scopes
func (c *AzureClient) Scopes() []string {
	return c.config.Scopes
}

func (c *AzureClient) withScopes(scopes []string) *oauth2.Config {
	conf := *c.oauth2
	if len(scopes) > 0 {
		conf.Scopes = scopes
	}
	if c.verifier != nil && !containsScope(conf.Scopes, "openid") {
		conf.Scopes = append(append([]string{}, conf.Scopes...), "openid")
	}
	return &conf
}

// BuildAuthorizationURL returns the provider URL the browser is sent to.
// It embeds scopes, state, client id and the fixed redirect URI; no network call is made.
func (c *AzureClient) BuildAuthorizationURL(scopes []string, state string) string {
	return c.withScopes(scopes).AuthCodeURL(state)
}

// ExchangeCodeForToken redeems an authorization code. Every failure, including
// the configured timeout elapsing, is a KindProvider error.
func (c *AzureClient) ExchangeCodeForToken(ctx context.Context, code string, scopes []string) (*oauth2.Token, error) {
	const op = "sso.ExchangeCodeForToken"

	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)

	conf := c.withScopes(scopes)
	start := time.Now()
	token, err := conf.Exchange(ctx, code,
		oauth2.SetAuthURLParam("scope", strings.Join(conf.Scopes, " ")))
	c.observe("token", time.Since(start), err)
	if err != nil {
		return nil, providerError(ctx, op, err)
	}
	if token.AccessToken == "" {
		return nil, auth.E(auth.KindProvider, op, "", errors.New("token response has no access_token"))
	}

	if c.verifier != nil {
		rawIDToken, _ := token.Extra("id_token").(string)
		if rawIDToken == "" {
			return nil, auth.E(auth.KindProvider, op, "", errors.New("token response has no id_token"))
		}
		if _, err := c.verifier.Verify(ctx, rawIDToken); err != nil {
			return nil, auth.E(auth.KindProvider, op, "", err)
		}
	}
	return token, nil
}

// FetchProfile reads the Graph profile of the token's owner.
// A non-2xx response is a KindProvider error.
func (c *AzureClient) FetchProfile(ctx context.Context, token *oauth2.Token) (*Profile, error) {
	const op = "sso.FetchProfile"

	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.ProfileURL, nil)
	if err != nil {
		return nil, auth.E(auth.KindProvider, op, "", err)
	}
	req.Header.Set("Accept", "application/json")
	token.SetAuthHeader(req)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.observe("profile", time.Since(start), err)
	if err != nil {
		return nil, providerError(ctx, op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, auth.E(auth.KindProvider, op, "",
			fmt.Errorf("profile request failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
	}

	var profile Profile
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxProfileBytes)).Decode(&profile); err != nil {
		return nil, auth.E(auth.KindProvider, op, "", fmt.Errorf("failed to decode profile: %w", err))
	}
	return &profile, nil
}

func providerError(ctx context.Context, op string, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return auth.E(auth.KindProvider, op, "identity provider timed out", err)
	}
	return auth.E(auth.KindProvider, op, "", err)
}

func containsScope(scopes []string, want string) bool {
	for _, s := range scopes {
		if s == want {
			return true
		}
	}
	return false
}
