package sso

import (
	"fmt"
	"strings"
	"time"
)

// Default endpoints for the Microsoft identity platform
const (
	DefaultProfileURL = "https://graph.microsoft.com/v1.0/me"
	DefaultTimeout    = 10 * time.Second
	issuerTemplate    = "https://login.microsoftonline.com/%s/v2.0"
)

// DefaultScopes are requested when the configuration names none
var DefaultScopes = []string{"User.Read"}

// Config holds the identity provider settings. It is built once at startup and
// passed to NewAzureClient; nothing in this package reads the environment.
type Config struct {
	TenantID     string        `yaml:"tenant_id" env:"TENANT_ID"`
	ClientID     string        `yaml:"client_id" env:"CLIENT_ID"`
	ClientSecret string        `yaml:"client_secret" env:"CLIENT_SECRET"`
	RedirectURL  string        `yaml:"redirect_url" env:"REDIRECT_URL"`
	Scopes       []string      `yaml:"scopes" env:"SCOPES" envSeparator:","`
	Timeout      time.Duration `yaml:"timeout" env:"TIMEOUT"`

	// VerifyIDToken checks the id_token returned with the access token
	// against the tenant's signing keys
	VerifyIDToken bool `yaml:"verify_id_token" env:"VERIFY_ID_TOKEN"`

	// Endpoint overrides, used for sovereign clouds and tests
	AuthURL    string `yaml:"auth_url" env:"AUTH_URL"`
	TokenURL   string `yaml:"token_url" env:"TOKEN_URL"`
	ProfileURL string `yaml:"profile_url" env:"PROFILE_URL"`
	IssuerURL  string `yaml:"issuer_url" env:"ISSUER_URL"`
}

// Validate checks the configuration
func (c *Config) Validate() error {
	if c.ClientID == "" {
		return fmt.Errorf("client_id is required")
	}
	if c.ClientSecret == "" {
		return fmt.Errorf("client_secret is required")
	}
	if c.TenantID == "" && (c.AuthURL == "" || c.TokenURL == "") {
		return fmt.Errorf("tenant_id is required")
	}
	if c.RedirectURL == "" {
		return fmt.Errorf("redirect_url is required")
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative")
	}
	return nil
}

// Issuer returns the expected id_token issuer
func (c *Config) Issuer() string {
	if c.IssuerURL != "" {
		return c.IssuerURL
	}
	return fmt.Sprintf(issuerTemplate, c.TenantID)
}

// Profile is the subset of the Graph /me document used for reconciliation
type Profile struct {
	ID                string `json:"id"`
	DisplayName       string `json:"displayName"`
	Mail              string `json:"mail"`
	UserPrincipalName string `json:"userPrincipalName"`
}

// PrimaryEmail returns the mail claim, falling back to the principal name.
// It is empty when the profile carries neither.
func (p *Profile) PrimaryEmail() string {
	if mail := strings.TrimSpace(p.Mail); mail != "" {
		return mail
	}
	return strings.TrimSpace(p.UserPrincipalName)
}
