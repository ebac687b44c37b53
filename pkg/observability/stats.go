package observability

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/platinummonkey/accountgate/pkg/auth"
	"github.com/robfig/cron/v3"
)

// DefaultStatsSchedule refreshes the account gauges once a minute
const DefaultStatsSchedule = "@every 1m"

// AccountCounter is the slice of the account store the stats job reads
type AccountCounter interface {
	CountByStatus(ctx context.Context) (map[auth.Status]int64, error)
}

// StatsCollector periodically publishes account counts and pool usage as gauges
type StatsCollector struct {
	accounts  AccountCounter
	poolStats func() sql.DBStats
	metrics   *Metrics
	logger    *Logger
	timeout   time.Duration
	cron      *cron.Cron
}

// NewStatsCollector creates a collector. poolStats may be nil for the memory backend.
func NewStatsCollector(accounts AccountCounter, poolStats func() sql.DBStats, metrics *Metrics, logger *Logger) *StatsCollector {
	return &StatsCollector{
		accounts:  accounts,
		poolStats: poolStats,
		metrics:   metrics,
		logger:    logger,
		timeout:   10 * time.Second,
	}
}

// Collect runs one refresh
func (c *StatsCollector) Collect(ctx context.Context) {
	defer RecoverPanic(c.logger, "account stats")

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	counts, err := c.accounts.CountByStatus(ctx)
	if err != nil {
		c.logger.WithError(err).Warn("failed to count accounts")
	} else {
		for _, status := range []auth.Status{auth.StatusActive, auth.StatusDeactivated} {
			c.metrics.Accounts.WithLabelValues(string(status)).Set(float64(counts[status]))
		}
	}

	if c.poolStats != nil {
		stats := c.poolStats()
		c.metrics.DBConnectionsOpen.Set(float64(stats.OpenConnections))
		c.metrics.DBConnectionsInUse.Set(float64(stats.InUse))
	}
}

// Start schedules Collect on schedule and runs it once immediately
func (c *StatsCollector) Start(ctx context.Context, schedule string) error {
	if schedule == "" {
		schedule = DefaultStatsSchedule
	}

	c.cron = cron.New()
	if _, err := c.cron.AddFunc(schedule, func() { c.Collect(ctx) }); err != nil {
		return fmt.Errorf("invalid stats schedule %q: %w", schedule, err)
	}

	c.Collect(ctx)
	c.cron.Start()
	c.logger.WithField("schedule", schedule).Info("account stats collector started")
	return nil
}

// Stop halts the scheduler and waits for a running refresh to finish
func (c *StatsCollector) Stop(ctx context.Context) error {
	if c.cron == nil {
		return nil
	}
	select {
	case <-c.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
