// Package metrics exposes Prometheus instrumentation for the sync core.
//
// A Metrics value is created once per process and handed to the api client,
// the mutation engine, and the chat channel; there is no global singleton so
// tests can use isolated registries.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Config configures the metrics collection.
type Config struct {
	// Namespace is the metrics namespace (default: "gathersync").
	Namespace string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for request duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// Option configures the metrics collection.
type Option func(*Config)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) {
		c.Namespace = namespace
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) Option {
	return func(c *Config) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) Option {
	return func(c *Config) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) Option {
	return func(c *Config) {
		c.Registry = registry
	}
}

// Metrics holds the Prometheus collectors for the sync core.
type Metrics struct {
	requestsTotal     *prometheus.CounterVec
	requestDuration   *prometheus.HistogramVec
	mutationsTotal    *prometheus.CounterVec
	cacheMergeTotal   *prometheus.CounterVec
	inflightMutations prometheus.Gauge
	openChatChannels  prometheus.Gauge
	chatMessagesTotal *prometheus.CounterVec
}

// New creates the collectors and registers them with the configured registry.
func New(opts ...Option) *Metrics {
	cfg := Config{
		Namespace: "gathersync",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	factory := promauto.With(cfg.Registry)

	return &Metrics{
		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Name:        "requests_total",
			Help:        "Total backend requests by operation and outcome",
			ConstLabels: cfg.ConstLabels,
		}, []string{"operation", "status"}),

		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   cfg.Namespace,
			Name:        "request_duration_seconds",
			Help:        "Backend request duration in seconds",
			ConstLabels: cfg.ConstLabels,
			Buckets:     cfg.Buckets,
		}, []string{"operation"}),

		mutationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Name:        "optimistic_mutations_total",
			Help:        "Optimistic mutations by kind and outcome",
			ConstLabels: cfg.ConstLabels,
		}, []string{"kind", "outcome"}),

		cacheMergeTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Name:        "like_cache_merge_total",
			Help:        "Feed merge decisions by winner (cache or fetch)",
			ConstLabels: cfg.ConstLabels,
		}, []string{"winner"}),

		inflightMutations: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   cfg.Namespace,
			Name:        "inflight_mutations",
			Help:        "Mutations currently awaiting backend confirmation",
			ConstLabels: cfg.ConstLabels,
		}),

		openChatChannels: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   cfg.Namespace,
			Name:        "open_chat_channels",
			Help:        "Connected realtime chat channels",
			ConstLabels: cfg.ConstLabels,
		}),

		chatMessagesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Name:        "chat_messages_total",
			Help:        "Chat messages by direction (sent or received)",
			ConstLabels: cfg.ConstLabels,
		}, []string{"direction"}),
	}
}

// RecordRequest records one backend request outcome with its duration.
func (m *Metrics) RecordRequest(operation, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(operation, status).Inc()
	m.requestDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

// RecordMutation records an optimistic mutation outcome.
// Outcomes: "confirmed", "rolled_back", "suppressed".
func (m *Metrics) RecordMutation(kind, outcome string) {
	if m == nil {
		return
	}
	m.mutationsTotal.WithLabelValues(kind, outcome).Inc()
}

// RecordCacheMerge records a merge decision for one post.
func (m *Metrics) RecordCacheMerge(winner string) {
	if m == nil {
		return
	}
	m.cacheMergeTotal.WithLabelValues(winner).Inc()
}

// MutationStarted marks a mutation as in flight.
func (m *Metrics) MutationStarted() {
	if m == nil {
		return
	}
	m.inflightMutations.Inc()
}

// MutationFinished marks a mutation as resolved.
func (m *Metrics) MutationFinished() {
	if m == nil {
		return
	}
	m.inflightMutations.Dec()
}

// ChannelOpened marks a chat channel as connected.
func (m *Metrics) ChannelOpened() {
	if m == nil {
		return
	}
	m.openChatChannels.Inc()
}

// ChannelClosed marks a chat channel as disconnected.
func (m *Metrics) ChannelClosed() {
	if m == nil {
		return
	}
	m.openChatChannels.Dec()
}

// RecordChatMessage records a chat message. Direction is "sent" or "received".
func (m *Metrics) RecordChatMessage(direction string) {
	if m == nil {
		return
	}
	m.chatMessagesTotal.WithLabelValues(direction).Inc()
}

// Handler returns an HTTP handler serving the given registry in the
// Prometheus exposition format.
func Handler(registry *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
