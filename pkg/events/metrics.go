package events

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// MetricsHandler counts emitted events by name and level.
type MetricsHandler struct {
	total *prometheus.CounterVec
}

// NewMetricsHandler registers lexlog_events_total on reg. An already
// registered collector is reused.
func NewMetricsHandler(reg prometheus.Registerer) (*MetricsHandler, error) {
	total := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lexlog_events_total",
		Help: "Structured events emitted, by event name and level.",
	}, []string{"event", "level"})

	if err := reg.Register(total); err != nil {
		var already prometheus.AlreadyRegisteredError
		if !errors.As(err, &already) {
			return nil, err
		}
		existing, ok := already.ExistingCollector.(*prometheus.CounterVec)
		if !ok {
			return nil, err
		}
		total = existing
	}

	return &MetricsHandler{total: total}, nil
}

func (h *MetricsHandler) Handle(_ context.Context, event Event) error {
	h.total.WithLabelValues(event.Name, event.Level.String()).Inc()
	return nil
}
