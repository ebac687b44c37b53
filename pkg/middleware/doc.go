// Package middleware provides the HTTP middleware that binds sessions to requests,
// guards the rendered pages and throttles the login endpoints.
//
//	router.Use(middleware.NewSessionLoader(manager).Handler)
//
//	pages := router.NewRoute().Subrouter()
//	pages.Use(guard.RequireSession)
//
//	admin := router.NewRoute().Subrouter()
//	admin.Use(guard.RequireAdmin)
//
//	login := router.NewRoute().Subrouter()
//	login.Use(middleware.NewRateLimit(limiter, cfg, metrics).Handler)
//
// SessionLoader never rejects a request. JSON endpoints pass the bound session
// explicitly to the access gate; pages use PageGuard, which redirects instead of
// answering 401/403.
//
// # Rate limiting
//
// MemoryLimiter keeps token buckets per client address in process. RedisLimiter keeps
// a fixed window counter in Redis so limits are shared by every instance. Limiter
// errors fail open.
package middleware
