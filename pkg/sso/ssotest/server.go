// Package ssotest provides a fake Azure AD token and Graph profile endpoint for tests.
package ssotest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/platinummonkey/accountgate/pkg/sso"
)

const (
	ClientID     = "test-client-id"
	ClientSecret = "test-client-secret"
	RedirectURL  = "http://localhost/auth/callback"
)

// Server issues tokens for registered codes and serves the matching profile.
// Codes are single use, like the real token endpoint.
type Server struct {
	*httptest.Server

	mu            sync.Mutex
	codes         map[string]sso.Profile
	tokens        map[string]sso.Profile
	profileStatus int
	tokenDelay    time.Duration
	idToken       func(sso.Profile) string
	tokenRequests int
}

// NewServer starts a fake provider. Callers must Close it.
func NewServer() *Server {
	s := &Server{
		codes:  make(map[string]sso.Profile),
		tokens: make(map[string]sso.Profile),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/oauth2/v2.0/authorize", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/oauth2/v2.0/token", s.handleToken)
	mux.HandleFunc("/v1.0/me", s.handleProfile)
	s.Server = httptest.NewServer(mux)
	return s
}

// Config returns a provider config pointing at this server
func (s *Server) Config() sso.Config {
	return sso.Config{
		TenantID:     "test-tenant",
		ClientID:     ClientID,
		ClientSecret: ClientSecret,
		RedirectURL:  RedirectURL,
		Scopes:       []string{"User.Read"},
		Timeout:      2 * time.Second,
		AuthURL:      s.URL + "/oauth2/v2.0/authorize",
		TokenURL:     s.URL + "/oauth2/v2.0/token",
		ProfileURL:   s.URL + "/v1.0/me",
		IssuerURL:    s.URL + "/v2.0",
	}
}

// AddCode registers an authorization code that resolves to profile
func (s *Server) AddCode(code string, profile sso.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes[code] = profile
}

// SetProfileStatus forces the profile endpoint to answer with status
func (s *Server) SetProfileStatus(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profileStatus = status
}

// SetTokenDelay delays every token response
func (s *Server) SetTokenDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokenDelay = d
}

// SetIDTokenIssuer makes the token endpoint include an id_token built by mint
func (s *Server) SetIDTokenIssuer(mint func(sso.Profile) string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.idToken = mint
}

// TokenRequests returns how many token requests were received
func (s *Server) TokenRequests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tokenRequests
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeOAuthError(w, "invalid_request")
		return
	}

	s.mu.Lock()
	s.tokenRequests++
	delay := s.tokenDelay
	mint := s.idToken
	profile, ok := s.codes[r.PostForm.Get("code")]
	if ok {
		delete(s.codes, r.PostForm.Get("code"))
	}
	s.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}

	switch {
	case r.PostForm.Get("client_id") != ClientID || r.PostForm.Get("client_secret") != ClientSecret:
		writeOAuthError(w, "invalid_client")
		return
	case r.PostForm.Get("redirect_uri") != RedirectURL:
		writeOAuthError(w, "invalid_grant")
		return
	case !ok:
		writeOAuthError(w, "invalid_grant")
		return
	}

	accessToken := "at-" + profile.ID + "-" + time.Now().Format("150405.000000000")
	s.mu.Lock()
	s.tokens[accessToken] = profile
	s.mu.Unlock()

	resp := map[string]interface{}{
		"access_token": accessToken,
		"token_type":   "Bearer",
		"expires_in":   3600,
		"scope":        r.PostForm.Get("scope"),
	}
	if mint != nil {
		resp["id_token"] = mint(profile)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")

	s.mu.Lock()
	status := s.profileStatus
	profile, ok := s.tokens[token]
	s.mu.Unlock()

	if status != 0 && status != http.StatusOK {
		w.WriteHeader(status)
		w.Write([]byte(`{"error":{"code":"forced"}}`))
		return
	}
	if !ok {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"code":"InvalidAuthenticationToken"}}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(profile)
}

func writeOAuthError(w http.ResponseWriter, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	json.NewEncoder(w).Encode(map[string]string{"error": code})
}
