package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// Collector tracks counters for a single enrichment run. It registers on a
// private registry so repeated runs in one process never collide.
type Collector struct {
	logger   *zap.Logger
	registry *prometheus.Registry

	// Query metrics
	queriesTotal *prometheus.CounterVec
	retryPauses  prometheus.Counter
	keysFailed   prometheus.Counter

	// Row metrics
	rowsProcessed prometheus.Counter
	rowsSkipped   prometheus.Counter
}

func NewCollector(logger *zap.Logger) *Collector {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	mc := &Collector{
		logger:   logger,
		registry: registry,

		queriesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pubcounter_queries_total",
				Help: "Total number of remote queries issued",
			},
			[]string{"outcome"}, // ok, throttled, server_error, other, transport
		),

		retryPauses: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "pubcounter_retry_pauses_total",
				Help: "Total number of inter-attempt pauses taken",
			},
		),

		keysFailed: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "pubcounter_keys_failed_total",
				Help: "Total number of keys resolved to the failure sentinel",
			},
		),

		rowsProcessed: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "pubcounter_rows_processed_total",
				Help: "Total number of data rows written to the output file",
			},
		),

		rowsSkipped: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "pubcounter_rows_skipped_total",
				Help: "Total number of malformed rows skipped",
			},
		),
	}

	return mc
}

// RecordQuery increments the query counter for one attempt's outcome.
func (mc *Collector) RecordQuery(outcome string) {
	mc.queriesTotal.WithLabelValues(outcome).Inc()
}

// RecordRetryPause increments the inter-attempt pause counter.
func (mc *Collector) RecordRetryPause() {
	mc.retryPauses.Inc()
}

// RecordKeyFailed increments the exhausted-retries counter.
func (mc *Collector) RecordKeyFailed() {
	mc.keysFailed.Inc()
}

// RecordRowProcessed increments the written-row counter.
func (mc *Collector) RecordRowProcessed() {
	mc.rowsProcessed.Inc()
}

// RecordRowSkipped increments the malformed-row counter.
func (mc *Collector) RecordRowSkipped() {
	mc.rowsSkipped.Inc()
}

// Registry exposes the run's private registry.
func (mc *Collector) Registry() *prometheus.Registry {
	return mc.registry
}

// LogSummary gathers every registered metric and logs its final value, one
// line per series, as the end-of-run report.
func (mc *Collector) LogSummary() {
	families, err := mc.registry.Gather()
	if err != nil {
		mc.logger.Error("Failed to gather run metrics", zap.Error(err))
		return
	}

	for _, family := range families {
		for _, metric := range family.GetMetric() {
			fields := make([]zap.Field, 0, len(metric.GetLabel())+1)
			for _, label := range metric.GetLabel() {
				fields = append(fields, zap.String(label.GetName(), label.GetValue()))
			}
			fields = append(fields, zap.Float64("value", metric.GetCounter().GetValue()))
			mc.logger.Info(family.GetName(), fields...)
		}
	}
}
