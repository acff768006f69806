package scraper

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the scraper.
type Metrics struct {
	Registry             *prometheus.Registry
	NavigationsTotal     *prometheus.CounterVec
	NavigationDuration   prometheus.Histogram
	ListingsScrapedTotal prometheus.Counter
	CommentsScrapedTotal prometheus.Counter
	ErrorsTotal          *prometheus.CounterVec
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	navigations := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_navigations_total",
			Help: "Total page loads issued by the scraper.",
		},
		[]string{"phase"},
	)
	navigationDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scraper_navigation_duration_seconds",
			Help:    "Page load latency, excluding pacing delays.",
			Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32, 64},
		},
	)
	listings := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scraper_listings_scraped_total",
			Help: "Total number of listings committed to the output.",
		},
	)
	comments := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scraper_comments_scraped_total",
			Help: "Total number of guest comments committed to the output.",
		},
	)
	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_errors_total",
			Help: "Total number of failed listings by error type.",
		},
		[]string{"error_type"},
	)

	registry.MustRegister(navigations, navigationDuration, listings, comments, errorsTotal)

	return &Metrics{
		Registry:             registry,
		NavigationsTotal:     navigations,
		NavigationDuration:   navigationDuration,
		ListingsScrapedTotal: listings,
		CommentsScrapedTotal: comments,
		ErrorsTotal:          errorsTotal,
	}
}

// IncNavigation increments the navigation counter for a phase.
func (m *Metrics) IncNavigation(phase string) {
	if m == nil {
		return
	}
	m.NavigationsTotal.WithLabelValues(phase).Inc()
}

// ObserveDuration records a page load duration.
func (m *Metrics) ObserveDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.NavigationDuration.Observe(d.Seconds())
}

// AddListing counts one committed listing and its comments.
func (m *Metrics) AddListing(comments int) {
	if m == nil {
		return
	}
	m.ListingsScrapedTotal.Inc()
	m.CommentsScrapedTotal.Add(float64(comments))
}

// IncError increments the errors counter for a type label.
func (m *Metrics) IncError(errorType string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(errorType).Inc()
}
