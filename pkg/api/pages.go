package api

import (
	"net/http"

	"github.com/platinummonkey/accountgate/pkg/auth"
	"github.com/platinummonkey/accountgate/pkg/contextkeys"
	"github.com/platinummonkey/accountgate/pkg/httputil"
	"github.com/platinummonkey/accountgate/pkg/observability"
)

// Page names, each served at "/" + name
const (
	PageIndex            = "index"
	PageLogin            = "login"
	PageBasicUserHome    = "basic_user_home"
	PageBasicUserView    = "basic_user_view"
	PageBasicUserEdit    = "basic_user_edit"
	PageAdminHome        = "admin_home"
	PageAdminCreateUser  = "admin_create_user"
	PageAdminDeleteUser  = "admin_delete_user"
	PageAdminEditProfile = "admin_edit_profile"
	PageAdminUpdateUser  = "admin_update_user"
	PageAdminViewProfile = "admin_view_profile"
	PageAdminViewUsers   = "admin_view_users"
)

// Page is what a Renderer draws
type Page struct {
	Name    string                 `json:"page"`
	Data    map[string]interface{} `json:"data,omitempty"`
	Flashes []string               `json:"flashes,omitempty"`
}

// Renderer draws pages. Templates live outside this service; the default renderer
// writes the page as JSON for a client-side front end.
type Renderer interface {
	Render(w http.ResponseWriter, r *http.Request, page Page) error
}

// JSONRenderer writes {"page": ..., "data": ..., "flashes": ...}
type JSONRenderer struct{}

// Render implements Renderer
func (JSONRenderer) Render(w http.ResponseWriter, r *http.Request, page Page) error {
	return httputil.WriteJSON(w, http.StatusOK, page)
}

// pageData returns what each page shows from the session snapshot
func pageData(name string, sess *auth.Session) map[string]interface{} {
	if sess == nil {
		return nil
	}
	switch name {
	case PageBasicUserHome, PageAdminHome:
		return map[string]interface{}{"user_name": sess.Name}
	case PageBasicUserView, PageBasicUserEdit, PageAdminEditProfile, PageAdminViewProfile:
		return map[string]interface{}{"user": map[string]interface{}{
			"name":   sess.Name,
			"email":  sess.Email,
			"role":   sess.Role,
			"status": sess.Status,
		}}
	default:
		return nil
	}
}

func (s *Server) page(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.render(w, r, Page{Name: name, Data: pageData(name, contextkeys.GetSession(r.Context()))})
	}
}

// loginPage handles GET /login, consuming any queued flash messages
func (s *Server) loginPage(w http.ResponseWriter, r *http.Request) {
	flashes, err := s.sessions.Flashes(w, r)
	if err != nil {
		observability.FromContext(r.Context()).WithError(err).Warn("failed to read flashes")
	}
	s.render(w, r, Page{Name: PageLogin, Flashes: flashes})
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, page Page) {
	if err := s.renderer.Render(w, r, page); err != nil {
		observability.FromContext(r.Context()).WithError(err).WithField("page", page.Name).Error("failed to render page")
	}
}
