// Package metrics exposes run counters to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dtnitsch/corpus-collector/models"
)

// Collector holds the collector's counters on its own registry.
type Collector struct {
	registry *prometheus.Registry

	attempts      *prometheus.CounterVec
	pages         *prometheus.CounterVec
	downloadBytes prometheus.Counter
}

// NewCollector creates the counters under namespace and registers them.
func NewCollector(namespace string) *Collector {
	c := &Collector{registry: prometheus.NewRegistry()}

	c.attempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "vectorize_attempts_total",
			Help:      "Vectorize requests sent to the trainee service, by result",
		},
		[]string{"result"},
	)
	c.pages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pages_total",
			Help:      "Pages finished, by outcome",
		},
		[]string{"outcome"},
	)
	c.downloadBytes = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "download_bytes_total",
			Help:      "Bytes of corpus documents handed to the download sink",
		},
	)

	c.registry.MustRegister(c.attempts, c.pages, c.downloadBytes)
	return c
}

// Attempt counts one vectorize request.
func (c *Collector) Attempt(success bool) {
	result := "error"
	if success {
		result = "success"
	}
	c.attempts.WithLabelValues(result).Inc()
}

// Page counts one finished page.
func (c *Collector) Page(outcome models.Outcome) {
	if outcome == "" {
		outcome = models.OutcomeFailed
	}
	c.pages.WithLabelValues(string(outcome)).Inc()
}

// Downloaded counts a written document.
func (c *Collector) Downloaded(bytes int) {
	c.downloadBytes.Add(float64(bytes))
}

// Handler serves the counters in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
