package observability

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aretw0/weft/pkg/domain"
)

// Metrics holds the weft collectors.
type Metrics struct {
	Resolutions    prometheus.Counter
	Cycles         prometheus.Counter
	ComputeErrors  *prometheus.CounterVec
	ComputeSeconds *prometheus.HistogramVec
	GraphEvents    *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Resolutions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "weft_resolutions_total",
			Help: "Total number of resolution passes",
		}),
		Cycles: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "weft_cycles_total",
			Help: "Total number of cycles broken during resolution",
		}),
		ComputeErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "weft_compute_errors_total",
				Help: "Total number of failed node computations",
			},
			[]string{"kind"},
		),
		ComputeSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "weft_node_compute_seconds",
				Help:    "Duration of node computations",
				Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10),
			},
			[]string{"kind"},
		),
		GraphEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "weft_graph_events_total",
				Help: "Total number of graph events",
			},
			[]string{"type"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.Resolutions, m.Cycles, m.ComputeErrors, m.ComputeSeconds, m.GraphEvents)
	}
	return m
}

// Hooks returns lifecycle hooks recording into m.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnResolveEnter: func(_ context.Context, e *domain.ResolveEvent) {
			if e.Depth == 0 {
				m.Resolutions.Inc()
			}
		},
		OnResolveLeave: func(_ context.Context, e *domain.ResolveEvent) {
			if e.Err == nil {
				m.ComputeSeconds.WithLabelValues(e.Kind).Observe(e.Duration.Seconds())
				return
			}
			// Failures propagate through every caller; count the origin only.
			var nerr *domain.NodeError
			if errors.As(e.Err, &nerr) && nerr.Node == e.Node {
				m.ComputeErrors.WithLabelValues(e.Kind).Inc()
			}
		},
		OnCycle: func(context.Context, *domain.CycleError) {
			m.Cycles.Inc()
		},
	}
}

// Observe counts one graph event. It fits Editor.Subscribe.
func (m *Metrics) Observe(ev domain.GraphEvent) {
	m.GraphEvents.WithLabelValues(string(ev.Type)).Inc()
}

// Publish implements ports.EventPublisher.
func (m *Metrics) Publish(_ context.Context, _ string, ev domain.GraphEvent) error {
	m.Observe(ev)
	return nil
}

// Combine runs each hook set in order.
func Combine(sets ...domain.LifecycleHooks) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnResolveEnter: func(ctx context.Context, e *domain.ResolveEvent) {
			for _, s := range sets {
				if s.OnResolveEnter != nil {
					s.OnResolveEnter(ctx, e)
				}
			}
		},
		OnResolveLeave: func(ctx context.Context, e *domain.ResolveEvent) {
			for _, s := range sets {
				if s.OnResolveLeave != nil {
					s.OnResolveLeave(ctx, e)
				}
			}
		},
		OnCycle: func(ctx context.Context, e *domain.CycleError) {
			for _, s := range sets {
				if s.OnCycle != nil {
					s.OnCycle(ctx, e)
				}
			}
		},
	}
}
