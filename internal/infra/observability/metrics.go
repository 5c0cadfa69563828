package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"

	"github.com/boddenberg/motor-quote-bfa-go/internal/domain"
)

// Metrics holds all Prometheus metrics for the BFA.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration *prometheus.HistogramVec
	externalErrors  *prometheus.CounterVec
	cacheHits       *prometheus.CounterVec
	cacheMisses     *prometheus.CounterVec
	turnsTotal      *prometheus.CounterVec
	sessionsCreated prometheus.Counter
	quotesIssued    prometheus.Counter
	policiesBound   prometheus.Counter
	finalPremium    *prometheus.HistogramVec
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "quote_request_duration_seconds",
				Help:    "Duration of requests by operation.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		externalErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quote_external_errors_total",
				Help: "Total errors from external services.",
			},
			[]string{"service"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quote_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quote_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
		turnsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quote_turns_total",
				Help: "Conversation turns processed, by the mode of the reply.",
			},
			[]string{"mode"},
		),
		sessionsCreated: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "quote_sessions_created_total",
				Help: "Conversation sessions created.",
			},
		),
		quotesIssued: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "quote_quotes_issued_total",
				Help: "Quote snapshots recorded.",
			},
		),
		policiesBound: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "quote_policies_bound_total",
				Help: "Payments completed and policies issued.",
			},
		),
		finalPremium: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "quote_final_premium_sgd",
				Help:    "Final annual premium of recorded quotes.",
				Buckets: []float64{250, 500, 750, 1000, 1500, 2000, 3000},
			},
			[]string{"coverage"},
		),
	}
}

// RecordRequestDuration records the duration of an operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrExternalError increments the external error counter.
func (m *Metrics) IncrExternalError(service string) {
	m.externalErrors.WithLabelValues(service).Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// IncrTurn counts one processed turn under the mode of the assistant reply.
func (m *Metrics) IncrTurn(mode domain.Mode) {
	m.turnsTotal.WithLabelValues(string(mode)).Inc()
}

// IncrSession counts a created session.
func (m *Metrics) IncrSession() {
	m.sessionsCreated.Inc()
}

// RecordQuote counts a quote snapshot and observes its final premium.
func (m *Metrics) RecordQuote(coverage domain.CoverageType, finalPremium float64) {
	m.quotesIssued.Inc()
	m.finalPremium.WithLabelValues(string(coverage)).Observe(finalPremium)
}

// IncrPolicyBound counts a completed payment.
func (m *Metrics) IncrPolicyBound() {
	m.policiesBound.Inc()
}

// FunnelSnapshot returns the cumulative conversion funnel suitable for the
// GET /v1/metrics/funnel endpoint.
func (m *Metrics) FunnelSnapshot() *domain.FunnelMetrics {
	sessions := counterValue(m.sessionsCreated)
	quotes := counterValue(m.quotesIssued)
	policies := counterValue(m.policiesBound)

	turnsByMode := collectByLabel(m.turnsTotal, "mode")
	var turns int64
	for _, v := range turnsByMode {
		turns += v
	}

	conversion := float64(0)
	if sessions > 0 {
		conversion = policies / sessions
	}

	hits := getCounterValue(m.cacheHits, "vin")
	misses := getCounterValue(m.cacheMisses, "vin")
	hitRate := float64(0)
	if hits+misses > 0 {
		hitRate = hits / (hits + misses)
	}

	var premiumSum float64
	var premiumCount uint64
	ch := make(chan prometheus.Metric, 8)
	go func() {
		m.finalPremium.Collect(ch)
		close(ch)
	}()
	for metric := range ch {
		pb := &dto.Metric{}
		if err := metric.Write(pb); err != nil || pb.Histogram == nil {
			continue
		}
		premiumSum += pb.Histogram.GetSampleSum()
		premiumCount += pb.Histogram.GetSampleCount()
	}
	avgPremium := float64(0)
	if premiumCount > 0 {
		avgPremium = premiumSum / float64(premiumCount)
	}

	return &domain.FunnelMetrics{
		SessionsCreated: int64(sessions),
		TurnsTotal:      turns,
		TurnsByMode:     turnsByMode,
		QuotesIssued:    int64(quotes),
		PoliciesBound:   int64(policies),
		ConversionRate:  conversion,
		VINCacheHitRate: hitRate,
		ExternalErrors:  collectByLabel(m.externalErrors, "service"),
		AvgFinalPremium: avgPremium,
		Period:          "all_time",
	}
}

// getCounterValue extracts the current float64 value from a CounterVec for a given label.
func getCounterValue(cv *prometheus.CounterVec, label string) float64 {
	return counterValue(cv.WithLabelValues(label))
}

func counterValue(c prometheus.Counter) float64 {
	m := &dto.Metric{}
	if err := c.Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}

// collectByLabel returns every child counter of cv keyed by the value of label.
func collectByLabel(cv *prometheus.CounterVec, label string) map[string]int64 {
	out := make(map[string]int64)
	ch := make(chan prometheus.Metric, 16)
	go func() {
		cv.Collect(ch)
		close(ch)
	}()
	for metric := range ch {
		pb := &dto.Metric{}
		if err := metric.Write(pb); err != nil || pb.Counter == nil {
			continue
		}
		for _, lp := range pb.GetLabel() {
			if lp.GetName() == label {
				out[lp.GetValue()] += int64(pb.Counter.GetValue())
			}
		}
	}
	return out
}
