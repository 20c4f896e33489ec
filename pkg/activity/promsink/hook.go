// Package promsink counts form state activity with Prometheus.
package promsink

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/goliatone/go-formsaver/pkg/activity"
)

// Hook increments formsaver_events_total{verb,channel} per event and
// formsaver_failures_total{verb} for events carrying an error.
type Hook struct {
	events   *prometheus.CounterVec
	failures *prometheus.CounterVec
}

// New registers the counters with reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Hook {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Hook{
		events: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "formsaver_events_total",
			Help: "Form state events by verb and channel",
		}, []string{"verb", "channel"}),
		failures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "formsaver_failures_total",
			Help: "Form state events that carried an error, by verb",
		}, []string{"verb"}),
	}
}

// Notify implements activity.ActivityHook.
func (h *Hook) Notify(_ context.Context, event activity.Event) error {
	if h == nil {
		return nil
	}
	normalized := activity.NormalizeEvent(event)
	if normalized.Verb == "" {
		return nil
	}
	h.events.WithLabelValues(normalized.Verb, normalized.Channel).Inc()
	if _, failed := normalized.Metadata["error"]; failed {
		h.failures.WithLabelValues(normalized.Verb).Inc()
	}
	return nil
}
