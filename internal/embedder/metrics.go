package embedder

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts embedding traffic. A nil *Metrics records nothing.
type Metrics struct {
	requests *prometheus.CounterVec
	retries  *prometheus.CounterVec
	failures *prometheus.CounterVec
	texts    *prometheus.CounterVec
}

// NewMetrics registers the embedding collectors with reg. Tests pass an
// isolated prometheus.NewRegistry().
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "finrag",
			Subsystem: "embedding",
			Name:      "requests_total",
			Help:      "Provider round trips, including retries.",
		}, []string{"provider", "mode"}),
		retries: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "finrag",
			Subsystem: "embedding",
			Name:      "retries_total",
			Help:      "Retries after rate-limit or unavailable responses.",
		}, []string{"provider"}),
		failures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "finrag",
			Subsystem: "embedding",
			Name:      "failures_total",
			Help:      "Embed calls that returned an error to the caller.",
		}, []string{"provider"}),
		texts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "finrag",
			Subsystem: "embedding",
			Name:      "texts_total",
			Help:      "Texts successfully embedded.",
		}, []string{"provider", "mode"}),
	}
}

func (m *Metrics) request(provider string, mode Mode) {
	if m != nil {
		m.requests.WithLabelValues(provider, mode.String()).Inc()
	}
}

func (m *Metrics) retry(provider string) {
	if m != nil {
		m.retries.WithLabelValues(provider).Inc()
	}
}

func (m *Metrics) failure(provider string) {
	if m != nil {
		m.failures.WithLabelValues(provider).Inc()
	}
}

func (m *Metrics) embedded(provider string, mode Mode, n int) {
	if m != nil {
		m.texts.WithLabelValues(provider, mode.String()).Add(float64(n))
	}
}
