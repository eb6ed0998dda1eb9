package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// simulation service.
type Metrics struct {
	SimulationsSubmitted *prometheus.CounterVec // labels: calamity
	SimulationsFinished  *prometheus.CounterVec // labels: calamity, outcome={completed,failed,cancelled}
	SimulationDuration   *prometheus.HistogramVec
	ActiveSimulations    prometheus.Gauge

	// Provider metrics.
	ProviderFallbacks *prometheus.CounterVec   // labels: provider={facility,weather,terrain}
	ProviderDuration  *prometheus.HistogramVec // labels: provider

	// Risk-profile publishing metrics.
	RiskProfilesPublished prometheus.Counter
	PublishErrors         prometheus.Counter
}

// NewMetrics creates and registers all service metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		SimulationsSubmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "falloutsim",
			Name:      "simulations_submitted_total",
			Help:      "Simulation requests accepted, by calamity type.",
		}, []string{"calamity"}),
		SimulationsFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "falloutsim",
			Name:      "simulations_finished_total",
			Help:      "Simulations reaching a terminal state, by calamity type and outcome.",
		}, []string{"calamity", "outcome"}),
		SimulationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "falloutsim",
			Name:      "simulation_duration_seconds",
			Help:      "Wall time from processing start to a terminal state.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"calamity"}),
		ActiveSimulations: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "falloutsim",
			Name:      "active_simulations",
			Help:      "Simulations currently in the PROCESSING state.",
		}),
		ProviderFallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "falloutsim",
			Name:      "provider_fallbacks_total",
			Help:      "Degraded-mode substitutions by provider.",
		}, []string{"provider"}),
		ProviderDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "falloutsim",
			Name:      "provider_duration_seconds",
			Help:      "Provider lookup duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"provider"}),
		RiskProfilesPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "falloutsim",
			Name:      "risk_profiles_published_total",
			Help:      "Completed risk profiles written to the broker.",
		}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "falloutsim",
			Name:      "publish_errors_total",
			Help:      "Risk-profile publish failures.",
		}),
	}

	prometheus.MustRegister(
		m.SimulationsSubmitted,
		m.SimulationsFinished,
		m.SimulationDuration,
		m.ActiveSimulations,
		m.ProviderFallbacks,
		m.ProviderDuration,
		m.RiskProfilesPublished,
		m.PublishErrors,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		SimulationsSubmitted:  prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "falloutsim", Name: "simulations_submitted_total"}, []string{"calamity"}),
		SimulationsFinished:   prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "falloutsim", Name: "simulations_finished_total"}, []string{"calamity", "outcome"}),
		SimulationDuration:    prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: "falloutsim", Name: "simulation_duration_seconds"}, []string{"calamity"}),
		ActiveSimulations:     prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "falloutsim", Name: "active_simulations"}),
		ProviderFallbacks:     prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "falloutsim", Name: "provider_fallbacks_total"}, []string{"provider"}),
		ProviderDuration:      prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: "falloutsim", Name: "provider_duration_seconds"}, []string{"provider"}),
		RiskProfilesPublished: prometheus.NewCounter(prometheus.CounterOpts{Namespace: "falloutsim", Name: "risk_profiles_published_total"}),
		PublishErrors:         prometheus.NewCounter(prometheus.CounterOpts{Namespace: "falloutsim", Name: "publish_errors_total"}),
	}
}
