package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/accountgate/pkg/access"
	"github.com/platinummonkey/accountgate/pkg/accounts"
	"github.com/platinummonkey/accountgate/pkg/httputil"
	"github.com/platinummonkey/accountgate/pkg/login"
	"github.com/platinummonkey/accountgate/pkg/middleware"
	"github.com/platinummonkey/accountgate/pkg/observability"
	"github.com/platinummonkey/accountgate/pkg/session"
)

// Dependencies are the collaborators the server routes requests to.
// Renderer, Metrics and RateLimit may be nil.
type Dependencies struct {
	Flow     *login.Flow
	Accounts *accounts.Service
	Gate     *access.Gate
	Sessions *session.Manager
	Renderer Renderer
	Metrics  *observability.Metrics
	Logger   *observability.Logger

	// RateLimit throttles /azure_login and /auth/callback
	RateLimit *middleware.RateLimit

	MaxBodyBytes int64
	// Tracing wraps the router with otelhttp
	Tracing bool
}

// Server represents our HTTP server
type Server struct {
	router   *mux.Router
	handler  http.Handler
	flow     *login.Flow
	accounts *accounts.Service
	gate     *access.Gate
	sessions *session.Manager
	renderer Renderer
	guard    *middleware.PageGuard
	logger   *observability.Logger
}

// NewServer creates a new HTTP server
func NewServer(deps Dependencies) *Server {
	if deps.Logger == nil {
		deps.Logger = observability.NopLogger()
	}
	if deps.Renderer == nil {
		deps.Renderer = JSONRenderer{}
	}

	s := &Server{
		router:   mux.NewRouter(),
		flow:     deps.Flow,
		accounts: deps.Accounts,
		gate:     deps.Gate,
		sessions: deps.Sessions,
		renderer: deps.Renderer,
		guard:    middleware.NewPageGuard(deps.Gate, deps.Sessions),
		logger:   deps.Logger,
	}

	s.router.Use(
		httputil.RequestIDMiddleware,
		httputil.LoggingMiddleware(deps.Logger),
		httputil.RecoveryMiddleware(deps.Logger),
	)
	if deps.Metrics != nil {
		s.router.Use(observability.HTTPMetricsMiddleware(deps.Metrics))
	}
	if deps.MaxBodyBytes > 0 {
		s.router.Use(httputil.MaxBytesMiddleware(deps.MaxBodyBytes))
	}
	s.router.Use(middleware.NewSessionLoader(deps.Sessions).Handler)

	s.setupRoutes(deps.RateLimit)

	s.handler = s.router
	if deps.Tracing {
		s.handler = observability.InstrumentHandler(s.router, "accountgate")
	}
	return s
}

// setupRoutes configures all the routes
func (s *Server) setupRoutes(rateLimit *middleware.RateLimit) {
	// Login routes
	loginRoutes := s.router.NewRoute().Subrouter()
	if rateLimit != nil {
		loginRoutes.Use(rateLimit.Handler)
	}
	loginRoutes.HandleFunc("/azure_login", s.azureLogin).Methods(http.MethodGet)
	loginRoutes.HandleFunc("/auth/callback", s.callback).Methods(http.MethodGet)
	s.router.HandleFunc("/logout", s.logout).Methods(http.MethodGet)

	// Public pages
	s.router.HandleFunc("/", s.page(PageIndex)).Methods(http.MethodGet)
	s.router.HandleFunc("/login", s.loginPage).Methods(http.MethodGet)

	// Standard user pages
	userPages := s.router.NewRoute().Subrouter()
	userPages.Use(s.guard.RequireSession)
	for _, p := range []string{PageBasicUserHome, PageBasicUserView, PageBasicUserEdit} {
		userPages.HandleFunc("/"+p, s.page(p)).Methods(http.MethodGet)
	}

	// Admin pages
	adminPages := s.router.NewRoute().Subrouter()
	adminPages.Use(s.guard.RequireAdmin)
	for _, p := range []string{
		PageAdminHome, PageAdminCreateUser, PageAdminDeleteUser, PageAdminEditProfile,
		PageAdminUpdateUser, PageAdminViewProfile, PageAdminViewUsers,
	} {
		adminPages.HandleFunc("/"+p, s.page(p)).Methods(http.MethodGet)
	}

	// JSON endpoints
	s.router.HandleFunc("/user/profile/update", s.updateProfile).Methods(http.MethodPut)
	s.router.HandleFunc("/admin/create_user", s.createUser).Methods(http.MethodPost)
	s.router.HandleFunc("/admin/update_user/{id:[0-9]+}", s.updateUser).Methods(http.MethodPut)
	s.router.HandleFunc("/admin/deactivate_user/{id:[0-9]+}", s.setStatus).Methods(http.MethodPut)
	s.router.HandleFunc("/admin/all_users", s.listUsers).Methods(http.MethodGet)
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Router exposes the router so callers can mount extra routes
func (s *Server) Router() *mux.Router {
	return s.router
}
