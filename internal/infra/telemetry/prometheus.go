package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"mcpdex/internal/domain"
)

type PrometheusMetrics struct {
	cycles           *prometheus.CounterVec
	cycleDuration    *prometheus.HistogramVec
	providerResults  *prometheus.CounterVec
	providerDuration *prometheus.HistogramVec
	coalesced        prometheus.Counter
	registrations    *prometheus.CounterVec
	catalogServers   *prometheus.GaugeVec
	mergeCollisions  prometheus.Counter
}

func NewPrometheusMetrics(registerer prometheus.Registerer) *PrometheusMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registerer)

	return &PrometheusMetrics{
		cycles: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mcpdex_discovery_cycles_total",
				Help: "Total number of completed discovery cycles",
			},
			[]string{"mode", "status"},
		),
		cycleDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mcpdex_discovery_cycle_duration_seconds",
				Help:    "Duration of discovery cycles in seconds",
				Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"mode"},
		),
		providerResults: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mcpdex_provider_results_total",
				Help: "Total number of provider attempts by outcome",
			},
			[]string{"provider", "status"},
		),
		providerDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mcpdex_provider_duration_seconds",
				Help:    "Duration of provider attempts in seconds",
				Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"provider"},
		),
		coalesced: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "mcpdex_discovery_coalesced_total",
				Help: "Total number of callers that attached to an in-flight discovery cycle",
			},
		),
		registrations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mcpdex_registrations_total",
				Help: "Total number of execution registry registration attempts by outcome",
			},
			[]string{"outcome"},
		),
		catalogServers: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "mcpdex_catalog_servers",
				Help: "Number of tool servers in the most recent merged catalog view",
			},
			[]string{"provenance"},
		),
		mergeCollisions: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "mcpdex_merge_collisions_total",
				Help: "Total number of identifiers dropped by merge precedence",
			},
		),
	}
}

func (p *PrometheusMetrics) ObserveCycle(mode domain.DiscoveryMode, status domain.DiscoveryStatus, duration time.Duration) {
	p.cycles.WithLabelValues(string(mode), string(status)).Inc()
	p.cycleDuration.WithLabelValues(string(mode)).Observe(duration.Seconds())
}

func (p *PrometheusMetrics) ObserveProvider(provider string, status domain.DiscoveryStatus, duration time.Duration) {
	p.providerResults.WithLabelValues(provider, string(status)).Inc()
	p.providerDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

func (p *PrometheusMetrics) AddCoalesced(n int) {
	if n <= 0 {
		return
	}
	p.coalesced.Add(float64(n))
}

func (p *PrometheusMetrics) ObserveRegistration(outcome domain.RegistrationOutcome) {
	p.registrations.WithLabelValues(string(outcome)).Inc()
}

func (p *PrometheusMetrics) SetCatalogSize(provenance domain.Provenance, count int) {
	p.catalogServers.WithLabelValues(string(provenance)).Set(float64(count))
}

func (p *PrometheusMetrics) AddMergeCollisions(n int) {
	if n <= 0 {
		return
	}
	p.mergeCollisions.Add(float64(n))
}

var _ domain.Metrics = (*PrometheusMetrics)(nil)
