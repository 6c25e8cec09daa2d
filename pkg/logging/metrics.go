package logging

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts records per level and records lost to failing transports.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	records *prometheus.CounterVec
	dropped prometheus.Counter
}

// NewMetrics registers the logger counters on reg. Collectors already
// registered on reg are reused.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	records := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lexlog_records_total",
		Help: "Records written, by level.",
	}, []string{"level"})

	dropped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "lexlog_dropped_records_total",
		Help: "Records at least one transport failed to write.",
	})

	var err error
	if records, err = register(reg, records); err != nil {
		return nil, err
	}
	if dropped, err = register(reg, dropped); err != nil {
		return nil, err
	}

	return &Metrics{records: records, dropped: dropped}, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

func (m *Metrics) recordEmitted(level Level) {
	if m == nil {
		return
	}
	m.records.WithLabelValues(level.String()).Inc()
}

func (m *Metrics) recordDropped() {
	if m == nil {
		return
	}
	m.dropped.Inc()
}
