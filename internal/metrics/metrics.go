package metrics

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Metrics holds all Prometheus metrics for the push worker
type Metrics struct {
	// Inbound events
	PushEventsTotal    prometheus.Counter
	PushFailuresTotal  prometheus.Counter
	PushDurationSecs   prometheus.Histogram
	CommandsTotal      *prometheus.CounterVec
	EffectsInFlight    prometheus.Gauge
	EffectPanicsTotal  prometheus.Counter
	DroppedEventsTotal prometheus.Counter

	// Side effects
	NotificationsTotal *prometheus.CounterVec
	BadgeUpdatesTotal  *prometheus.CounterVec

	// Foreground instances
	ConnectedInstances       prometheus.Gauge
	BroadcastDeliveriesTotal prometheus.Counter
	BroadcastFailuresTotal   prometheus.Counter

	// Web Push delivery
	WebPushSendsTotal   prometheus.Counter
	WebPushErrorsTotal  prometheus.Counter
	WebPushGoneTotal    prometheus.Counter
	WebPushDurationSecs prometheus.Histogram
	WebPushRetriesTotal prometheus.Counter

	// Mirrors
	NtfyPublishErrorsTotal  prometheus.Counter
	NtfyPublishDurationSecs prometheus.Histogram
	NtfyPublishesTotal      prometheus.Counter

	// Redis metrics
	RedisOperationErrorsTotal prometheus.Counter

	// Error tracking
	ErrorsTotal prometheus.Counter

	registry *prometheus.Registry
	pusher   *push.Pusher
}

// NewMetrics creates a new Metrics instance. The Pushgateway is only used when both
// pushgatewayURL and jobName are set.
func NewMetrics(pushgatewayURL, jobName, instance string) *Metrics {
	m := &Metrics{
		PushEventsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "push_worker_push_events_total",
			Help: "Total number of inbound push events handled",
		}),
		PushFailuresTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "push_worker_push_failures_total",
			Help: "Total number of push events where badge or notification failed",
		}),
		PushDurationSecs: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "push_worker_push_duration_seconds",
			Help:    "Duration of push event handling in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
		}),
		CommandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "push_worker_client_commands_total",
			Help: "Total number of client commands received, by kind",
		}, []string{"kind"}),
		EffectsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "push_worker_effects_in_flight",
			Help: "Number of effects the worker is currently kept alive for",
		}),
		EffectPanicsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "push_worker_effect_panics_total",
			Help: "Total number of effects that panicked and were recovered",
		}),
		DroppedEventsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "push_worker_dropped_events_total",
			Help: "Total number of events dropped because the worker was shutting down",
		}),

		NotificationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "push_worker_notifications_total",
			Help: "Total number of notification attempts, by outcome",
		}, []string{"outcome"}),
		BadgeUpdatesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "push_worker_badge_updates_total",
			Help: "Total number of badge updates, by operation and outcome",
		}, []string{"operation", "outcome"}),

		ConnectedInstances: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "push_worker_connected_instances",
			Help: "Number of connected foreground instances",
		}),
		BroadcastDeliveriesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "push_worker_broadcast_deliveries_total",
			Help: "Total number of broadcast messages delivered to foreground instances",
		}),
		BroadcastFailuresTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "push_worker_broadcast_failures_total",
			Help: "Total number of broadcast messages that could not be delivered",
		}),

		WebPushSendsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "push_worker_webpush_sends_total",
			Help: "Total number of successful Web Push sends",
		}),
		WebPushErrorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "push_worker_webpush_errors_total",
			Help: "Total number of Web Push sends that failed after retries",
		}),
		WebPushGoneTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "push_worker_webpush_gone_total",
			Help: "Total number of subscriptions removed after 410 Gone",
		}),
		WebPushDurationSecs: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "push_worker_webpush_duration_seconds",
			Help:    "Duration of Web Push send attempts in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
		}),
		WebPushRetriesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "push_worker_webpush_retries_total",
			Help: "Total number of Web Push send retries",
		}),

		NtfyPublishErrorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "push_worker_ntfy_publish_errors_total",
			Help: "Total number of ntfy publish errors",
		}),
		NtfyPublishDurationSecs: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "push_worker_ntfy_publish_duration_seconds",
			Help:    "Duration of ntfy publish requests in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
		}),
		NtfyPublishesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "push_worker_ntfy_publishes_total",
			Help: "Total number of successful ntfy publishes",
		}),

		RedisOperationErrorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "push_worker_redis_operation_errors_total",
			Help: "Total number of Redis operation errors (GET, SET, SUBSCRIBE, etc.)",
		}),

		ErrorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "push_worker_errors_total",
			Help: "Total number of errors encountered",
		}),
	}

	m.registry = prometheus.NewRegistry()
	m.registry.MustRegister(
		m.PushEventsTotal,
		m.PushFailuresTotal,
		m.PushDurationSecs,
		m.CommandsTotal,
		m.EffectsInFlight,
		m.EffectPanicsTotal,
		m.DroppedEventsTotal,
		m.NotificationsTotal,
		m.BadgeUpdatesTotal,
		m.ConnectedInstances,
		m.BroadcastDeliveriesTotal,
		m.BroadcastFailuresTotal,
		m.WebPushSendsTotal,
		m.WebPushErrorsTotal,
		m.WebPushGoneTotal,
		m.WebPushDurationSecs,
		m.WebPushRetriesTotal,
		m.NtfyPublishErrorsTotal,
		m.NtfyPublishDurationSecs,
		m.NtfyPublishesTotal,
		m.RedisOperationErrorsTotal,
		m.ErrorsTotal,
	)

	if pushgatewayURL != "" && jobName != "" {
		m.pusher = push.New(pushgatewayURL, jobName).
			Gatherer(m.registry)
		if instance != "" {
			m.pusher = m.pusher.Grouping("instance", instance)
		}
		log.Printf("metrics: Pushgateway URL: %s, Job: %s, Instance: %s", pushgatewayURL, jobName, instance)
	}

	return m
}

// Handler exposes the private registry for scraping.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordPush records a handled push event
func (m *Metrics) RecordPush(duration time.Duration, failed bool) {
	if m == nil {
		return
	}
	m.PushEventsTotal.Inc()
	m.PushDurationSecs.Observe(duration.Seconds())
	if failed {
		m.PushFailuresTotal.Inc()
		m.ErrorsTotal.Inc()
	}
}

// RecordCommand records a received client command
func (m *Metrics) RecordCommand(kind string) {
	if m == nil {
		return
	}
	if kind == "" {
		kind = "unknown"
	}
	m.CommandsTotal.WithLabelValues(kind).Inc()
}

// RecordEffectStarted and RecordEffectSettled track the keep-alive window
func (m *Metrics) RecordEffectStarted() {
	if m == nil {
		return
	}
	m.EffectsInFlight.Inc()
}

func (m *Metrics) RecordEffectSettled(panicked bool) {
	if m == nil {
		return
	}
	m.EffectsInFlight.Dec()
	if panicked {
		m.EffectPanicsTotal.Inc()
		m.ErrorsTotal.Inc()
	}
}

func (m *Metrics) RecordDroppedEvent() {
	if m == nil {
		return
	}
	m.DroppedEventsTotal.Inc()
}

// RecordNotification records a notification attempt: shown, permission_denied or error
func (m *Metrics) RecordNotification(outcome string) {
	if m == nil {
		return
	}
	m.NotificationsTotal.WithLabelValues(outcome).Inc()
	if outcome == "error" {
		m.ErrorsTotal.Inc()
	}
}

// RecordBadge records a badge update: operation is set or clear, outcome is ok, unsupported or error
func (m *Metrics) RecordBadge(operation, outcome string) {
	if m == nil {
		return
	}
	m.BadgeUpdatesTotal.WithLabelValues(operation, outcome).Inc()
	if outcome == "error" {
		m.ErrorsTotal.Inc()
	}
}

// SetConnectedInstances records the current number of foreground instances
func (m *Metrics) SetConnectedInstances(count int) {
	if m == nil {
		return
	}
	m.ConnectedInstances.Set(float64(count))
}

// RecordBroadcast records the result of a single fan-out
func (m *Metrics) RecordBroadcast(delivered, failed int) {
	if m == nil {
		return
	}
	m.BroadcastDeliveriesTotal.Add(float64(delivered))
	m.BroadcastFailuresTotal.Add(float64(failed))
}

// RecordWebPush records a single Web Push send attempt
func (m *Metrics) RecordWebPush(duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.WebPushDurationSecs.Observe(duration.Seconds())
	if err != nil {
		m.WebPushErrorsTotal.Inc()
		m.ErrorsTotal.Inc()
		return
	}
	m.WebPushSendsTotal.Inc()
}

func (m *Metrics) RecordWebPushRetry() {
	if m == nil {
		return
	}
	m.WebPushRetriesTotal.Inc()
}

func (m *Metrics) RecordWebPushGone() {
	if m == nil {
		return
	}
	m.WebPushGoneTotal.Inc()
}

// RecordNtfyPublish records an ntfy publish operation
func (m *Metrics) RecordNtfyPublish(duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.NtfyPublishDurationSecs.Observe(duration.Seconds())
	if err != nil {
		m.NtfyPublishErrorsTotal.Inc()
		m.ErrorsTotal.Inc()
		log.Printf("metrics: ntfy publish error recorded")
	} else {
		m.NtfyPublishesTotal.Inc()
	}
}

// RecordRedisOperationError records a Redis operation error
func (m *Metrics) RecordRedisOperationError() {
	if m == nil {
		return
	}
	m.RedisOperationErrorsTotal.Inc()
	m.ErrorsTotal.Inc()
	log.Printf("metrics: Redis operation error recorded")
}

// Push pushes all metrics to the Pushgateway
func (m *Metrics) Push(ctx context.Context) error {
	if m == nil || m.pusher == nil {
		return nil
	}

	log.Printf("pushing metrics to Pushgateway")
	if err := m.pusher.PushContext(ctx); err != nil {
		log.Printf("metrics: failed to push to Pushgateway: %v", err)
		return fmt.Errorf("failed to push metrics to Pushgateway: %w", err)
	}
	log.Printf("metrics: successfully pushed to Pushgateway")
	return nil
}
