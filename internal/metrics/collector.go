// Package metrics collects Prometheus metrics for the service. It is
// internal and not part of the public API.
package metrics

import (
	"database/sql"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/agentverse/agentverse/types"
)

// Collector owns every metric the service exposes. It satisfies the
// orchestrator's Recorder interface.
type Collector struct {
	runsTotal   *prometheus.CounterVec
	runDuration *prometheus.HistogramVec
	turnsTotal  *prometheus.CounterVec

	providerCallsTotal   *prometheus.CounterVec
	providerCallDuration *prometheus.HistogramVec

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	cacheHits   prometheus.Counter
	cacheMisses prometheus.Counter

	dbConnectionsOpen prometheus.Gauge
	dbConnectionsIdle prometheus.Gauge

	logger *zap.Logger
}

// NewCollector registers every metric under namespace. A nil registerer
// uses the default Prometheus registry; tests pass their own.
func NewCollector(namespace string, reg prometheus.Registerer, logger *zap.Logger) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	c.runsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Conversation runs by terminal state",
		},
		[]string{"state"},
	)
	c.runDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Conversation run duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
		},
		[]string{"state"},
	)
	c.turnsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Persisted conversation turns by provider",
		},
		[]string{"provider"},
	)

	c.providerCallsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_calls_total",
			Help:      "Upstream LLM calls by provider and outcome",
		},
		[]string{"provider", "status"},
	)
	c.providerCallDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_call_duration_seconds",
			Help:      "Upstream LLM call duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"provider"},
	)

	c.httpRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route, and status",
		},
		[]string{"method", "path", "status"},
	)
	c.httpRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	c.cacheHits = factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_hits_total",
		Help:      "Report cache hits",
	})
	c.cacheMisses = factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_misses_total",
		Help:      "Report cache misses",
	})

	c.dbConnectionsOpen = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "db_connections_open",
		Help:      "Open database connections",
	})
	c.dbConnectionsIdle = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "db_connections_idle",
		Help:      "Idle database connections",
	})

	return c
}

// ObserveRun records one finished conversation run.
func (c *Collector) ObserveRun(state types.RunState, d time.Duration) {
	c.runsTotal.WithLabelValues(string(state)).Inc()
	c.runDuration.WithLabelValues(string(state)).Observe(d.Seconds())
}

// ObserveTurn records one persisted turn.
func (c *Collector) ObserveTurn(provider string) {
	c.turnsTotal.WithLabelValues(provider).Inc()
}

// ObserveProviderCall records one upstream LLM call.
func (c *Collector) ObserveProviderCall(provider string, d time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	c.providerCallsTotal.WithLabelValues(provider, status).Inc()
	c.providerCallDuration.WithLabelValues(provider).Observe(d.Seconds())
}

// ObserveHTTPRequest records one served HTTP request.
func (c *Collector) ObserveHTTPRequest(method, path string, status int, d time.Duration) {
	c.httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	c.httpRequestDuration.WithLabelValues(method, path).Observe(d.Seconds())
}

// ObserveCache records a cache lookup outcome.
func (c *Collector) ObserveCache(hit bool) {
	if hit {
		c.cacheHits.Inc()
		return
	}
	c.cacheMisses.Inc()
}

// SetDBStats publishes connection pool gauges.
func (c *Collector) SetDBStats(stats sql.DBStats) {
	c.dbConnectionsOpen.Set(float64(stats.OpenConnections))
	c.dbConnectionsIdle.Set(float64(stats.Idle))
}
