// Package metrics exposes Prometheus collectors for the ledger processors and
// the HTTP layer.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "finops"

// Collector implements ledger.MetricsCollector on a private registry.
type Collector struct {
	registry *prometheus.Registry

	opDuration     *prometheus.HistogramVec
	opResults      *prometheus.CounterVec
	retries        *prometheus.CounterVec
	errors         *prometheus.CounterVec
	balanceChanges *prometheus.CounterVec
	balanceVolume  *prometheus.CounterVec

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// New creates a Collector with its own registry, including the process and Go
// runtime collectors.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		opDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "ledger",
				Name:      "operation_duration_seconds",
				Help:      "Duration of ledger units of work, retries included.",
				Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
			},
			[]string{"operation"},
		),
		opResults: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "ledger",
				Name:      "operations_total",
				Help:      "Ledger units of work by result.",
			},
			[]string{"operation", "result"},
		),
		retries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "ledger",
				Name:      "stale_balance_retries_total",
				Help:      "Units of work replayed after a stale balance read.",
			},
			[]string{"operation"},
		),
		errors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "ledger",
				Name:      "errors_total",
				Help:      "Failed units of work by error kind.",
			},
			[]string{"operation", "kind"},
		),
		balanceChanges: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "ledger",
				Name:      "entries_total",
				Help:      "Ledger entries appended by transaction kind.",
			},
			[]string{"kind"},
		),
		balanceVolume: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "ledger",
				Name:      "volume_total",
				Help:      "Absolute amount moved by transaction kind and direction.",
			},
			[]string{"kind", "direction"},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests handled.",
			},
			[]string{"method", "path", "status"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "Duration of HTTP requests.",
				Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
			},
			[]string{"method", "path"},
		),
	}

	c.registry.MustRegister(
		c.opDuration,
		c.opResults,
		c.retries,
		c.errors,
		c.balanceChanges,
		c.balanceVolume,
		c.httpRequests,
		c.httpDuration,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
	return c
}

// Registry returns the registry the collectors are registered on.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler exposes the registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func (c *Collector) RecordOperationDuration(operation string, duration time.Duration) {
	c.opDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

func (c *Collector) RecordOperationResult(operation, result string) {
	c.opResults.WithLabelValues(operation, result).Inc()
}

func (c *Collector) RecordRetry(operation string) {
	c.retries.WithLabelValues(operation).Inc()
}

func (c *Collector) RecordError(operation, kind string) {
	c.errors.WithLabelValues(operation, kind).Inc()
}

func (c *Collector) RecordBalanceChange(kind string, delta int64) {
	c.balanceChanges.WithLabelValues(kind).Inc()
	direction := "credit"
	magnitude := uint64(delta)
	if delta < 0 {
		direction = "debit"
		magnitude = uint64(-(delta + 1)) + 1
	}
	c.balanceVolume.WithLabelValues(kind, direction).Add(float64(magnitude))
}

// Middleware records request counts and latencies. The matched route pattern
// is used as the path label to keep cardinality bounded.
func (c *Collector) Middleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		start := time.Now()
		err := ctx.Next()

		path := ctx.Route().Path
		if path == "" {
			path = "unmatched"
		}
		status := ctx.Response().StatusCode()
		if fe, ok := err.(*fiber.Error); ok {
			status = fe.Code
		}

		c.httpRequests.WithLabelValues(ctx.Method(), path, strconv.Itoa(status)).Inc()
		c.httpDuration.WithLabelValues(ctx.Method(), path).Observe(time.Since(start).Seconds())
		return err
	}
}
