package observability

import (
	"context"
	"database/sql"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/platinummonkey/accountgate/pkg/auth"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCounter struct {
	counts map[auth.Status]int64
	err    error
	calls  int32
}

func (f *fakeCounter) CountByStatus(ctx context.Context) (map[auth.Status]int64, error) {
	atomic.AddInt32(&f.calls, 1)
	return f.counts, f.err
}

func TestStatsCollector_Collect(t *testing.T) {
	metrics := NewMetrics(prometheus.NewRegistry())
	counter := &fakeCounter{counts: map[auth.Status]int64{auth.StatusActive: 7}}
	pool := func() sql.DBStats { return sql.DBStats{OpenConnections: 4, InUse: 2} }

	NewStatsCollector(counter, pool, metrics, NopLogger()).Collect(context.Background())

	assert.Equal(t, 7.0, testutil.ToFloat64(metrics.Accounts.WithLabelValues("active")))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.Accounts.WithLabelValues("deactivated")))
	assert.Equal(t, 4.0, testutil.ToFloat64(metrics.DBConnectionsOpen))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.DBConnectionsInUse))
}

func TestStatsCollector_CountErrorKeepsGauges(t *testing.T) {
	metrics := NewMetrics(prometheus.NewRegistry())
	metrics.Accounts.WithLabelValues("active").Set(3)

	counter := &fakeCounter{err: errors.New("db down")}
	NewStatsCollector(counter, nil, metrics, NopLogger()).Collect(context.Background())

	assert.Equal(t, 3.0, testutil.ToFloat64(metrics.Accounts.WithLabelValues("active")))
}

func TestStatsCollector_StartStop(t *testing.T) {
	metrics := NewMetrics(prometheus.NewRegistry())
	counter := &fakeCounter{counts: map[auth.Status]int64{}}
	collector := NewStatsCollector(counter, nil, metrics, NopLogger())

	require.NoError(t, collector.Start(context.Background(), "@every 1h"))
	assert.Equal(t, int32(1), atomic.LoadInt32(&counter.calls))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, collector.Stop(ctx))
}

func TestStatsCollector_InvalidSchedule(t *testing.T) {
	collector := NewStatsCollector(&fakeCounter{}, nil, NewMetrics(prometheus.NewRegistry()), NopLogger())

	err := collector.Start(context.Background(), "every now and then")
	assert.Error(t, err)
	assert.NoError(t, collector.Stop(context.Background()))
}
