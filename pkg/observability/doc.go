// Package observability provides structured logging, Prometheus metrics, health probes,
// OpenTelemetry tracing and graceful shutdown for accountgate.
//
// # Structured Logging
//
// Logger wraps logrus with a JSON formatter:
//
//	logger := observability.NewLogger(observability.InfoLevel, os.Stdout)
//	logger.WithField("email", email).Warn("login failed")
//
// Request handlers use FromContext, which adds the request id set by the
// httputil request-id middleware.
//
// # Prometheus Metrics
//
//	metrics := observability.NewMetrics(prometheus.DefaultRegisterer)
//	metrics.RecordLogin("success")
//	metrics.RecordGateDecision("role", false)
//
// All Record helpers are nil-safe so components can run without metrics in tests.
// HTTPMetricsMiddleware is installed with mux.Router.Use so route templates, not raw
// paths, become label values.
//
// StatsCollector refreshes accountgate_accounts{status} and the pool gauges on a
// robfig/cron schedule.
//
// # Health Checks
//
//	checker := observability.NewHealthChecker(conns, redisClient, version)
//	observability.RegisterHealthRoutes(router, checker)
//
// /healthz always answers 200. /readyz answers 503 when the database is down and
// 200 "degraded" when only redis is down.
//
// # Tracing
//
// InitOTel installs OTLP gRPC tracer and meter providers when enabled and
// InstrumentHandler wraps the router with otelhttp.
//
// # Shutdown
//
//	sm := observability.NewShutdownManager(logger, 15*time.Second, apiServer, metricsServer)
//	sm.Register("redis", func(ctx context.Context) error { return client.Close() })
//	err := sm.Shutdown(ctx)
package observability
