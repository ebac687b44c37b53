package observability

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// ShutdownFunc is a function to call during shutdown
type ShutdownFunc func(context.Context) error

// ShutdownManager stops the HTTP servers first and then releases the backing
// resources (stores, cron, telemetry) in parallel.
type ShutdownManager struct {
	logger          *Logger
	servers         []*http.Server
	shutdownFuncs   map[string]ShutdownFunc
	order           []string
	shutdownTimeout time.Duration
	mu              sync.Mutex
}

// NewShutdownManager creates a new shutdown manager
func NewShutdownManager(logger *Logger, timeout time.Duration, servers ...*http.Server) *ShutdownManager {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ShutdownManager{
		logger:          logger,
		servers:         servers,
		shutdownFuncs:   make(map[string]ShutdownFunc),
		shutdownTimeout: timeout,
	}
}

// Register adds a named resource to release after the servers have stopped
func (sm *ShutdownManager) Register(name string, fn ShutdownFunc) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if _, ok := sm.shutdownFuncs[name]; !ok {
		sm.order = append(sm.order, name)
	}
	sm.shutdownFuncs[name] = fn
}

// Shutdown runs the shutdown sequence bounded by the configured timeout
func (sm *ShutdownManager) Shutdown(parent context.Context) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), sm.shutdownTimeout)
	defer cancel()

	servers, _ := errgroup.WithContext(ctx)
	for _, srv := range sm.servers {
		srv := srv
		servers.Go(func() error {
			sm.logger.WithField("addr", srv.Addr).Info("shutting down HTTP server")
			if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("HTTP server %s shutdown failed: %w", srv.Addr, err)
			}
			return nil
		})
	}
	serverErr := servers.Wait()

	sm.mu.Lock()
	names := append([]string(nil), sm.order...)
	funcs := make(map[string]ShutdownFunc, len(sm.shutdownFuncs))
	for k, v := range sm.shutdownFuncs {
		funcs[k] = v
	}
	sm.mu.Unlock()

	var (
		errMu sync.Mutex
		errs  []error
	)
	if serverErr != nil {
		errs = append(errs, serverErr)
	}

	var g errgroup.Group
	for _, name := range names {
		name, fn := name, funcs[name]
		g.Go(func() error {
			if err := fn(ctx); err != nil {
				sm.logger.WithError(err).WithField("resource", name).Error("shutdown step failed")
				errMu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				errMu.Unlock()
				return nil
			}
			sm.logger.WithField("resource", name).Debug("shutdown step complete")
			return nil
		})
	}

	done := make(chan struct{})
	go func() {
		_ = g.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		sm.logger.Warn("shutdown timeout reached, forcing shutdown")
		return fmt.Errorf("shutdown timeout reached")
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown completed with %d errors: %w", len(errs), errors.Join(errs...))
	}

	sm.logger.Info("graceful shutdown complete")
	return nil
}
