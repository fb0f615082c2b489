// Package metrics exposes Prometheus counters for the dashboard client.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	namespace string
	buckets   []float64
	registry  *prometheus.Registry

	pushMessages *prometheus.CounterVec
	pushDropped  *prometheus.CounterVec
	restRequests *prometheus.CounterVec
	restDuration *prometheus.HistogramVec
	channelOpens prometheus.Counter
	tableRenders prometheus.Counter
	superseded   *prometheus.CounterVec
	subscribers  prometheus.Gauge
}

func New(opts ...Option) *Metrics {
	m := &Metrics{
		namespace: "relay_dashboard",
		buckets:   prometheus.DefBuckets,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.registry == nil {
		m.registry = prometheus.NewRegistry()
	}

	auto := promauto.With(m.registry)
	m.pushMessages = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "push_messages_total",
		Help:      "Push messages received on the live channel by kind.",
	}, []string{"kind"})
	m.pushDropped = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "push_messages_dropped_total",
		Help:      "Push messages dropped without a state change, by reason.",
	}, []string{"reason"})
	m.restRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "rest_requests_total",
		Help:      "REST calls to the relay backend by operation and result.",
	}, []string{"op", "result"})
	m.restDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Name:      "rest_request_duration_seconds",
		Help:      "REST call latency by operation.",
		Buckets:   m.buckets,
	}, []string{"op"})
	m.channelOpens = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "live_channel_opens_total",
		Help:      "Live channels successfully opened.",
	})
	m.tableRenders = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "table_renders_total",
		Help:      "Player table re-renders.",
	})
	m.superseded = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "superseded_actions_total",
		Help:      "Action results discarded because a newer action of the same group started.",
	}, []string{"group"})
	m.subscribers = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Name:      "view_subscribers",
		Help:      "Operator console viewers currently subscribed.",
	})
	return m
}

func (m *Metrics) PushMessage(kind string) {
	if m == nil {
		return
	}
	m.pushMessages.WithLabelValues(kind).Inc()
}

func (m *Metrics) PushDropped(reason string) {
	if m == nil {
		return
	}
	m.pushDropped.WithLabelValues(reason).Inc()
}

// ObserveREST records one backend call. err == nil counts as success.
func (m *Metrics) ObserveREST(op string, started time.Time, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.restRequests.WithLabelValues(op, result).Inc()
	m.restDuration.WithLabelValues(op).Observe(time.Since(started).Seconds())
}

func (m *Metrics) ChannelOpened() {
	if m == nil {
		return
	}
	m.channelOpens.Inc()
}

func (m *Metrics) TableRendered() {
	if m == nil {
		return
	}
	m.tableRenders.Inc()
}

func (m *Metrics) Superseded(group string) {
	if m == nil {
		return
	}
	m.superseded.WithLabelValues(group).Inc()
}

func (m *Metrics) SetSubscribers(n int) {
	if m == nil {
		return
	}
	m.subscribers.Set(float64(n))
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.HandlerFor(prometheus.NewRegistry(), promhttp.HandlerOpts{})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }
