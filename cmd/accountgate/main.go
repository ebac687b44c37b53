package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/platinummonkey/accountgate/pkg/access"
	"github.com/platinummonkey/accountgate/pkg/accounts"
	"github.com/platinummonkey/accountgate/pkg/api"
	"github.com/platinummonkey/accountgate/pkg/audit"
	"github.com/platinummonkey/accountgate/pkg/config"
	"github.com/platinummonkey/accountgate/pkg/httputil"
	"github.com/platinummonkey/accountgate/pkg/login"
	"github.com/platinummonkey/accountgate/pkg/middleware"
	"github.com/platinummonkey/accountgate/pkg/observability"
	"github.com/platinummonkey/accountgate/pkg/session"
	"github.com/platinummonkey/accountgate/pkg/sso"
	"github.com/platinummonkey/accountgate/pkg/storage"
	"github.com/platinummonkey/accountgate/pkg/storage/memory"
	"github.com/platinummonkey/accountgate/pkg/storage/postgres"
	"github.com/platinummonkey/accountgate/pkg/storage/redis"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

// replicaCheckInterval is how often unreachable read replicas are dropped
const replicaCheckInterval = 30 * time.Second

// stores holds the selected backends and what must be released on shutdown
type stores struct {
	accounts storage.AccountStore
	sessions storage.SessionStore
	states   storage.StateStore

	postgres *postgres.ConnectionManager
	redis    *redis.Client

	limiter middleware.Limiter
}

func main() {
	configPath := flag.String("config", "", "Path to a YAML config file (overrides $"+config.FileEnv+")")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := cfg.NewLogger().WithField("service", "accountgate")
	if err := run(cfg, logger); err != nil {
		logger.WithError(err).Error("accountgate stopped with error")
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *observability.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	telemetry, err := observability.InitOTel(ctx, cfg.Observability.OTel, logger)
	if err != nil {
		return fmt.Errorf("init opentelemetry: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(registry)

	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		return err
	}

	provider, err := newProvider(ctx, cfg.Provider, metrics)
	if err != nil {
		return err
	}

	auditor := audit.NewLogrusLogger(logger.Entry())
	gate := access.NewGate(st.accounts, st.sessions, metrics, logger.WithField("component", "access"))
	flow := login.NewFlow(provider, st.states, login.NewReconciler(st.accounts),
		login.NewIssuer(st.sessions, cfg.Store.SessionTTL), metrics, auditor, logger.WithField("component", "login"))
	service := accounts.NewService(st.accounts, st.sessions, gate, auditor, metrics, logger.WithField("component", "accounts"))

	sessionCfg := cfg.Session
	if sessionCfg.MaxAge == 0 {
		sessionCfg.MaxAge = cfg.Store.SessionTTL
	}

	var rateLimit *middleware.RateLimit
	if cfg.RateLimit.Enabled {
		rateLimit = middleware.NewRateLimit(st.limiter, cfg.RateLimit, metrics)
	}

	app := api.NewServer(api.Dependencies{
		Flow:         flow,
		Accounts:     service,
		Gate:         gate,
		Sessions:     session.NewManager(sessionCfg, st.sessions),
		Metrics:      metrics,
		Logger:       logger,
		RateLimit:    rateLimit,
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
		Tracing:      telemetry != nil,
	})

	appServer := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      app,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	opsServer := &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.Host, cfg.Server.MetricsPort),
		Handler:           opsRouter(st, registry, cfg.Observability.MetricsEnabled, logger),
		ReadHeaderTimeout: 5 * time.Second,
	}

	var poolStats func() sql.DBStats
	if st.postgres != nil {
		poolStats = func() sql.DBStats { return st.postgres.Stats().Primary }
		st.postgres.StartHealthCheckRoutine(ctx, replicaCheckInterval)
	}
	stats := observability.NewStatsCollector(st.accounts, poolStats, metrics, logger)
	if err := stats.Start(ctx, cfg.Observability.StatsSchedule); err != nil {
		return fmt.Errorf("start stats collector: %w", err)
	}

	shutdown := observability.NewShutdownManager(logger, cfg.Server.ShutdownTimeout, appServer, opsServer)
	shutdown.Register("stats", stats.Stop)
	if st.redis != nil {
		shutdown.Register("redis", func(context.Context) error { return st.redis.Close() })
	}
	if st.postgres != nil {
		shutdown.Register("postgres", func(context.Context) error { return st.postgres.Close() })
	}
	if telemetry != nil {
		shutdown.Register("otel", func(ctx context.Context) error { return observability.ShutdownOTel(ctx, telemetry, logger) })
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, srv := range []*http.Server{appServer, opsServer} {
		srv := srv
		g.Go(func() error {
			logger.WithField("addr", srv.Addr).Info("listening")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("serve %s: %w", srv.Addr, err)
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		return shutdown.Shutdown(context.Background())
	})

	logger.WithFields(map[string]interface{}{
		"version":         version,
		"account_backend": cfg.Store.AccountBackend,
		"session_backend": cfg.Store.SessionBackend,
		"tracing":         telemetry != nil,
	}).Info("accountgate started")

	return g.Wait()
}

// openStores connects the configured account and session backends
func openStores(ctx context.Context, cfg *config.Config, logger *observability.Logger) (*stores, error) {
	st := &stores{}

	switch cfg.Store.AccountBackend {
	case "postgres":
		conns, err := postgres.NewConnectionManager(postgres.ConnectionConfigFrom(cfg.Store), logger)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		st.postgres = conns
		st.accounts = postgres.NewAccountStore(conns)
	default:
		logger.Warn("using in-memory account store, accounts are lost on restart")
		st.accounts = memory.NewAccountStore()
	}

	switch cfg.Store.SessionBackend {
	case "redis":
		client, err := redis.NewClient(cfg.Store)
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		st.redis = client
		st.sessions = redis.NewSessionStore(client, cfg.Store.SessionTTL)
		st.states = redis.NewStateStore(client, cfg.Store.StateTTL)
		st.limiter = middleware.NewRedisLimiter(client.Raw(), cfg.RateLimit, cfg.Store.RedisKeyPrefix+"ratelimit")
	default:
		st.sessions = memory.NewSessionStore(cfg.Store.MemoryCapacity, cfg.Store.SessionTTL)
		st.states = memory.NewStateStore(cfg.Store.MemoryCapacity, cfg.Store.StateTTL)
		limiter := middleware.NewMemoryLimiter(cfg.RateLimit)
		limiter.StartCleanup(ctx)
		st.limiter = limiter
	}

	return st, nil
}

// newProvider builds the identity provider client, verifying id_tokens when enabled
func newProvider(ctx context.Context, cfg sso.Config, metrics *observability.Metrics) (*sso.AzureClient, error) {
	opts := []sso.Option{sso.WithCallObserver(metrics.RecordProviderCall)}

	if cfg.VerifyIDToken {
		verifier, err := sso.NewIDTokenVerifier(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("init id_token verifier: %w", err)
		}
		opts = append(opts, sso.WithIDTokenVerifier(verifier))
	}

	client, err := sso.NewAzureClient(cfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("init identity provider client: %w", err)
	}
	return client, nil
}

// opsRouter serves /metrics, /healthz and /readyz on the metrics port
func opsRouter(st *stores, gatherer prometheus.Gatherer, metricsEnabled bool, logger *observability.Logger) http.Handler {
	var db, cache observability.Pinger
	if st.postgres != nil {
		db = st.postgres
	}
	if st.redis != nil {
		cache = st.redis
	}

	router := mux.NewRouter()
	observability.RegisterHealthRoutes(router, observability.NewHealthChecker(db, cache, version))
	if metricsEnabled {
		observability.RegisterMetricsEndpoint(router, gatherer)
	}
	return httputil.Chain(
		httputil.RequestIDMiddleware,
		httputil.RecoveryMiddleware(logger),
	)(router)
}
