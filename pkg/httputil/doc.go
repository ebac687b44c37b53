// Package httputil provides HTTP utilities for standardized request/response handling.
//
// # Response Helpers
//
//	httputil.WriteMessage(w, http.StatusCreated, "User created successfully!")
//	httputil.WriteErrorMessage(w, http.StatusForbidden, "Unauthorized")
//	httputil.WriteAuthError(w, err, "")   // status and message from *auth.Error
//
// # Request Parsing
//
//	var in accounts.UpdateInput
//	if !httputil.ParseJSONOrError(w, r, &in) {
//		return
//	}
//	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
//
// # Middleware
//
//	handler := httputil.Chain(
//		httputil.RequestIDMiddleware,
//		httputil.LoggingMiddleware(logger),
//		httputil.RecoveryMiddleware(logger),
//		httputil.MaxBytesMiddleware(1<<20),
//	)(router)
//
// RequestIDMiddleware must run before LoggingMiddleware so the request logger
// carries the id.
package httputil
