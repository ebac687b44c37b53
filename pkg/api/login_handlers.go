package api

import (
	"net/http"

	"github.com/platinummonkey/accountgate/pkg/auth"
	"github.com/platinummonkey/accountgate/pkg/login"
	"github.com/platinummonkey/accountgate/pkg/observability"
)

// azureLogin handles GET /azure_login
func (s *Server) azureLogin(w http.ResponseWriter, r *http.Request) {
	logger := observability.FromContext(r.Context())

	authURL, state, err := s.flow.Begin(r.Context())
	if err != nil {
		logger.WithError(err).Error("failed to start login")
		s.failLogin(w, r, auth.MsgLoginFailed)
		return
	}
	if err := s.sessions.SetState(w, r, state); err != nil {
		logger.WithError(err).Error("failed to remember login state")
		s.failLogin(w, r, auth.MsgLoginFailed)
		return
	}

	http.Redirect(w, r, authURL, http.StatusFound)
}

// callback handles GET /auth/callback
func (s *Server) callback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	cb := login.Callback{
		Code:          query.Get("code"),
		State:         query.Get("state"),
		ProviderError: query.Get("error"),
	}
	if cb.Code == "" && cb.ProviderError == "" {
		http.Redirect(w, r, string(auth.DestinationHome), http.StatusFound)
		return
	}

	logger := observability.FromContext(r.Context())

	expected, err := s.sessions.PopState(w, r)
	if err != nil {
		logger.WithError(err).Warn("failed to read login state")
	}
	cb.ExpectedState = expected

	res, err := s.flow.Complete(r.Context(), cb)
	if err != nil {
		// The flow has already logged and audited the failure
		msg := auth.MsgLoginFailed
		if auth.KindOf(err) == auth.KindSuspended {
			msg = auth.MsgSuspended
		}
		s.failLogin(w, r, msg)
		return
	}

	if err := s.sessions.Bind(w, r, res.Session); err != nil {
		logger.WithError(err).Error("failed to bind session")
		s.failLogin(w, r, auth.MsgLoginFailed)
		return
	}

	http.Redirect(w, r, string(res.Destination), http.StatusFound)
}

// logout handles GET /logout
func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Clear(r.Context(), w, r); err != nil {
		observability.FromContext(r.Context()).WithError(err).Error("failed to clear session")
	}
	http.Redirect(w, r, string(auth.DestinationHome), http.StatusFound)
}

func (s *Server) failLogin(w http.ResponseWriter, r *http.Request, msg string) {
	if err := s.sessions.AddFlash(w, r, msg); err != nil {
		observability.FromContext(r.Context()).WithError(err).Error("failed to add flash")
	}
	http.Redirect(w, r, string(auth.DestinationLogin), http.StatusFound)
}
