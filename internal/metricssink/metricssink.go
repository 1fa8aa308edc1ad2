// Package metricssink defines the append-only, lock-free metrics
// collaborator the core pipeline emits into (spec.md §1, §5: "Metrics
// sink is append-only, lock-free or lightly locked; counters are
// monotonic"). Sink is an interface so tests can use a no-op
// implementation without standing up a Prometheus registry.
package metricssink

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/vitalpipe/ingest/internal/model"
)

// Sink is the collaborator every pipeline stage reports into.
type Sink interface {
	RecordIngested(family model.Family, n int)
	RecordRejected(family model.Family, n int)
	RecordDeduplicated(family model.Family, n int)
	RecordChunkLatency(family model.Family, seconds float64)
	RecordParameterLimitAlert(family model.Family)
	RecordWarning(family model.Family)
}

// Prometheus is the production Sink implementation.
type Prometheus struct {
	ingested         *prometheus.CounterVec
	rejected         *prometheus.CounterVec
	deduplicated     *prometheus.CounterVec
	chunkLatency     *prometheus.HistogramVec
	parameterLimits  *prometheus.CounterVec
	warnings         *prometheus.CounterVec
}

// NewPrometheus registers the sink's collectors against reg.
func NewPrometheus(reg prometheus.Registerer) *Prometheus {
	factory := promauto.With(reg)
	return &Prometheus{
		ingested: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vitalpipe",
			Name:      "records_ingested_total",
			Help:      "Total records successfully upserted, by family.",
		}, []string{"family"}),
		rejected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vitalpipe",
			Name:      "records_rejected_total",
			Help:      "Total records rejected by validation, by family.",
		}, []string{"family"}),
		deduplicated: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vitalpipe",
			Name:      "records_deduplicated_total",
			Help:      "Total records removed as intra-batch duplicates, by family.",
		}, []string{"family"}),
		chunkLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "vitalpipe",
			Name:      "chunk_upsert_seconds",
			Help:      "Latency of one chunk's bulk-upsert transaction.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"family"}),
		parameterLimits: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vitalpipe",
			Name:      "parameter_limit_alerts_total",
			Help:      "Alert-level events: a planned or observed statement exceeded the bind-parameter ceiling.",
		}, []string{"family"}),
		warnings: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vitalpipe",
			Name:      "record_warnings_total",
			Help:      "In-range but suspicious records (e.g. HR > 220), by family.",
		}, []string{"family"}),
	}
}

func (p *Prometheus) RecordIngested(family model.Family, n int) {
	p.ingested.WithLabelValues(string(family)).Add(float64(n))
}

func (p *Prometheus) RecordRejected(family model.Family, n int) {
	p.rejected.WithLabelValues(string(family)).Add(float64(n))
}

func (p *Prometheus) RecordDeduplicated(family model.Family, n int) {
	p.deduplicated.WithLabelValues(string(family)).Add(float64(n))
}

func (p *Prometheus) RecordChunkLatency(family model.Family, seconds float64) {
	p.chunkLatency.WithLabelValues(string(family)).Observe(seconds)
}

func (p *Prometheus) RecordParameterLimitAlert(family model.Family) {
	p.parameterLimits.WithLabelValues(string(family)).Inc()
}

func (p *Prometheus) RecordWarning(family model.Family) {
	p.warnings.WithLabelValues(string(family)).Inc()
}

// Noop discards every observation. Used by tests that don't care about
// metrics.
type Noop struct{}

func (Noop) RecordIngested(model.Family, int)           {}
func (Noop) RecordRejected(model.Family, int)           {}
func (Noop) RecordDeduplicated(model.Family, int)       {}
func (Noop) RecordChunkLatency(model.Family, float64)   {}
func (Noop) RecordParameterLimitAlert(model.Family)     {}
func (Noop) RecordWarning(model.Family)                  {}
