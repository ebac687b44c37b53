package api

import (
	"net/http"

	"github.com/platinummonkey/accountgate/pkg/accounts"
	"github.com/platinummonkey/accountgate/pkg/auth"
	"github.com/platinummonkey/accountgate/pkg/contextkeys"
	"github.com/platinummonkey/accountgate/pkg/httputil"
)

// statusRequest is the body of PUT /admin/deactivate_user/{id}. A missing status
// deactivates the account.
type statusRequest struct {
	Status *string `json:"status"`
}

// allowOwner rejects requests without a session before the body is read
func (s *Server) allowOwner(w http.ResponseWriter, r *http.Request) bool {
	if err := s.gate.RequireSession(contextkeys.GetSession(r.Context())); err != nil {
		httputil.WriteAuthError(w, err, "")
		return false
	}
	return true
}

// allowAdmin rejects requests whose session is missing or lacks the admin role
// before the path or body is read. The live status check runs in the service.
func (s *Server) allowAdmin(w http.ResponseWriter, r *http.Request) bool {
	if err := s.gate.RequireRole(contextkeys.GetSession(r.Context()), auth.RoleAdmin); err != nil {
		writeAdminError(w, err)
		return false
	}
	return true
}

// updateProfile handles PUT /user/profile/update
func (s *Server) updateProfile(w http.ResponseWriter, r *http.Request) {
	if !s.allowOwner(w, r) {
		return
	}
	var req accounts.ProfileInput
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	if _, err := s.accounts.UpdateProfile(r.Context(), contextkeys.GetSession(r.Context()), req); err != nil {
		httputil.WriteAuthError(w, err, "")
		return
	}
	httputil.WriteMessage(w, http.StatusOK, accounts.MsgProfileUpdated)
}

// createUser handles POST /admin/create_user
func (s *Server) createUser(w http.ResponseWriter, r *http.Request) {
	if !s.allowAdmin(w, r) {
		return
	}
	var req accounts.CreateInput
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	if _, err := s.accounts.Create(r.Context(), contextkeys.GetSession(r.Context()), req); err != nil {
		writeAdminError(w, err)
		return
	}
	httputil.WriteMessage(w, http.StatusCreated, accounts.MsgUserCreated)
}

// updateUser handles PUT /admin/update_user/{id}
func (s *Server) updateUser(w http.ResponseWriter, r *http.Request) {
	if !s.allowAdmin(w, r) {
		return
	}
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	var req accounts.UpdateInput
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	if _, err := s.accounts.Update(r.Context(), contextkeys.GetSession(r.Context()), id, req); err != nil {
		writeAdminError(w, err)
		return
	}
	httputil.WriteMessage(w, http.StatusOK, accounts.MsgUserUpdated)
}

// setStatus handles PUT /admin/deactivate_user/{id}
func (s *Server) setStatus(w http.ResponseWriter, r *http.Request) {
	if !s.allowAdmin(w, r) {
		return
	}
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	var req statusRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	acct, err := s.accounts.SetStatus(r.Context(), contextkeys.GetSession(r.Context()), id, req.Status)
	if err != nil {
		writeAdminError(w, err)
		return
	}

	msg := accounts.MsgUserActivated
	if acct.Status == auth.StatusDeactivated {
		msg = accounts.MsgUserSuspended
	}
	httputil.WriteMessage(w, http.StatusOK, msg)
}

// listUsers handles GET /admin/all_users
func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	list, err := s.accounts.List(r.Context(), contextkeys.GetSession(r.Context()))
	if err != nil {
		writeAdminError(w, err)
		return
	}
	if list == nil {
		list = []*auth.Account{}
	}
	_ = httputil.WriteJSON(w, http.StatusOK, list)
}

// writeAdminError answers admin endpoints. A missing session is reported like a
// role mismatch: 403 Unauthorized.
func writeAdminError(w http.ResponseWriter, err error) {
	if auth.KindOf(err) == auth.KindUnauthenticated {
		httputil.WriteErrorMessage(w, http.StatusForbidden, auth.MsgUnauthorized)
		return
	}
	httputil.WriteAuthError(w, err, "")
}
