// Package telemetry records usage and error events for webhook processing.
package telemetry

import (
	"context"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

// Tracker is the event-tracking contract consumed by the dispatcher and
// routers. Implementations must be safe for concurrent use.
type Tracker interface {
	TrackWebhookReceived(ctx context.Context, platform string)
	TrackHookExecuted(ctx context.Context, hookName, platform, eventType string)
	TrackHookFailed(ctx context.Context, hookName, platform string)
}

// Service implements Tracker on Prometheus counters.
type Service struct {
	webhooksReceived *prometheus.CounterVec
	hooksExecuted    *prometheus.CounterVec
	hooksFailed      *prometheus.CounterVec
}

// New registers the counters on reg and returns the service.
func New(reg prometheus.Registerer) *Service {
	s := &Service{
		webhooksReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "assistant_webhooks_received_total",
			Help: "Accepted webhook deliveries by source platform.",
		}, []string{"platform"}),
		hooksExecuted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "assistant_hooks_executed_total",
			Help: "Successful hook handler executions.",
		}, []string{"hook", "platform", "event_type"}),
		hooksFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "assistant_hooks_failed_total",
			Help: "Hook handler executions contained as failures.",
		}, []string{"hook", "platform"}),
	}

	reg.MustRegister(s.webhooksReceived, s.hooksExecuted, s.hooksFailed)
	return s
}

func (s *Service) TrackWebhookReceived(ctx context.Context, platform string) {
	s.webhooksReceived.WithLabelValues(platform).Inc()
}

func (s *Service) TrackHookExecuted(ctx context.Context, hookName, platform, eventType string) {
	s.hooksExecuted.WithLabelValues(hookName, platform, eventType).Inc()
	slog.DebugContext(ctx, "hook execution tracked", "hook", hookName)
}

func (s *Service) TrackHookFailed(ctx context.Context, hookName, platform string) {
	s.hooksFailed.WithLabelValues(hookName, platform).Inc()
}
