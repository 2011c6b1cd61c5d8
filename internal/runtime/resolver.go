package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/aretw0/weft/internal/logging"
	"github.com/aretw0/weft/pkg/domain"
	"github.com/aretw0/weft/pkg/graph"
)

var (
	tracer = otel.Tracer("weft.runtime")
	meter  = otel.Meter("weft.runtime")
)

// Graph is the read side of the graph store used by the resolver.
// *graph.Store satisfies it.
type Graph interface {
	Node(id domain.NodeID) (graph.Node, error)
	Port(id domain.PortID) (graph.Port, error)
	ProducerOf(in domain.PortID) (domain.PortID, bool)
	Hold() (release func())
}

// Resolver computes node outputs on demand by walking the graph upstream.
//
// Nothing is cached: every call recomputes the whole upstream closure, so
// a resolution always reflects the current topology and sinks re-run their
// side effects each time.
type Resolver struct {
	graph  Graph
	logger *slog.Logger
	hooks  domain.LifecycleHooks

	metricsOnce  sync.Once
	nodeLatency  metric.Float64Histogram
	resolutions  metric.Int64Counter
	cycleCounter metric.Int64Counter
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the logger used for resolution diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(r *Resolver) {
		r.hooks = hooks
	}
}

// NewResolver creates a resolver reading from g.
func NewResolver(g Graph, opts ...Option) *Resolver {
	r := &Resolver{
		graph:  g,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Resolver) initMetrics() {
	r.metricsOnce.Do(func() {
		var err error
		r.nodeLatency, err = meter.Float64Histogram("weft_node_compute_seconds",
			metric.WithDescription("Node compute latency"),
			metric.WithUnit("s"),
		)
		if err != nil {
			r.logger.Warn("failed to create latency histogram", "error", err)
		}
		r.resolutions, err = meter.Int64Counter("weft_resolutions_total",
			metric.WithDescription("Resolution passes"),
		)
		if err != nil {
			r.logger.Warn("failed to create resolutions counter", "error", err)
		}
		r.cycleCounter, err = meter.Int64Counter("weft_cycles_total",
			metric.WithDescription("Cycles broken during resolution"),
		)
		if err != nil {
			r.logger.Warn("failed to create cycles counter", "error", err)
		}
	})
}

// Resolve computes the current output of node id.
//
// Cycles do not fail the pass: Empty is substituted for the re-entered input
// and the returned error joins one *domain.CycleError per cycle met, next to
// the computed Value. A kind failure aborts the pass with a *domain.NodeError.
func (r *Resolver) Resolve(ctx context.Context, id domain.NodeID) (domain.Value, error) {
	node, err := r.graph.Node(id)
	if err != nil {
		return domain.Empty(), err
	}
	label := ""
	if len(node.Outputs) > 0 {
		out, err := r.graph.Port(node.Outputs[0])
		if err != nil {
			return domain.Empty(), err
		}
		label = out.Label
	}
	return r.run(ctx, id, label)
}

// ResolvePort computes the value carried by a specific output port.
func (r *Resolver) ResolvePort(ctx context.Context, out domain.PortID) (domain.Value, error) {
	p, err := r.graph.Port(out)
	if err != nil {
		return domain.Empty(), err
	}
	if p.Direction != domain.DirectionOutput {
		return domain.Empty(), fmt.Errorf("resolve %s: not an output: %w", out, domain.ErrIncompatibleEndpoint)
	}
	return r.run(ctx, p.Node, p.Label)
}

func (r *Resolver) run(ctx context.Context, id domain.NodeID, label string) (domain.Value, error) {
	r.initMetrics()
	release := r.graph.Hold()
	defer release()

	ctx, span := tracer.Start(ctx, "weft.Resolve",
		trace.WithAttributes(
			attribute.Int64("weft.node_id", int64(id)),
			attribute.String("weft.output", label),
		),
	)
	defer span.End()

	if r.resolutions != nil {
		r.resolutions.Add(ctx, 1)
	}

	p := &pass{r: r, onPath: make(map[domain.NodeID]int)}
	v, err := p.resolve(ctx, id, label)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return domain.Empty(), err
	}

	if len(p.cycles) > 0 {
		errs := make([]error, len(p.cycles))
		for i, c := range p.cycles {
			errs[i] = c
		}
		span.SetAttributes(attribute.Int("weft.cycles", len(p.cycles)))
		span.SetStatus(codes.Error, "cycle detected")
		return v, errors.Join(errs...)
	}

	span.SetStatus(codes.Ok, "")
	return v, nil
}

// pass holds the per-call state of one resolution: the nodes on the active
// path (the visiting set) and the cycles broken so far.
type pass struct {
	r      *Resolver
	path   []domain.NodeID
	onPath map[domain.NodeID]int
	cycles []*domain.CycleError
}

func (p *pass) resolve(ctx context.Context, id domain.NodeID, label string) (domain.Value, error) {
	if at, visiting := p.onPath[id]; visiting {
		p.breakCycle(ctx, id, at)
		return domain.Empty(), nil
	}

	node, err := p.r.graph.Node(id)
	if err != nil {
		return domain.Empty(), err
	}
	kindName := node.Kind.Name()

	p.onPath[id] = len(p.path)
	p.path = append(p.path, id)
	defer func() {
		p.path = p.path[:len(p.path)-1]
		delete(p.onPath, id)
	}()

	ctx, span := tracer.Start(ctx, kindName,
		trace.WithAttributes(
			attribute.Int64("weft.node_id", int64(id)),
			attribute.String("weft.kind", kindName),
			attribute.Int("weft.depth", len(p.path)-1),
		),
	)
	defer span.End()

	ev := &domain.ResolveEvent{Node: id, Kind: kindName, Depth: len(p.path) - 1}
	if p.r.hooks.OnResolveEnter != nil {
		p.r.hooks.OnResolveEnter(ctx, ev)
	}

	in := make(domain.Inputs, len(node.Inputs))
	for _, pid := range node.Inputs {
		if err := p.input(ctx, pid, in); err != nil {
			p.leave(ctx, span, ev, domain.Empty(), err, 0)
			return domain.Empty(), err
		}
	}

	start := time.Now()
	v, err := compute(ctx, node.Kind, label, in)
	elapsed := time.Since(start)

	if p.r.nodeLatency != nil {
		p.r.nodeLatency.Record(ctx, elapsed.Seconds(),
			metric.WithAttributes(attribute.String("kind", kindName)),
		)
	}

	if err != nil {
		err = &domain.NodeError{Node: id, Kind: kindName, Err: err}
		p.r.logger.Debug("node compute failed", "node_id", id, "kind", kindName, "error", err)
		p.leave(ctx, span, ev, domain.Empty(), err, elapsed)
		return domain.Empty(), err
	}

	p.r.logger.Debug("node resolved", "node_id", id, "kind", kindName, "value", v.String())
	p.leave(ctx, span, ev, v, nil, elapsed)
	return v, nil
}

// input fills in the value of one input port: its default when unconnected,
// otherwise the resolved output of its producer.
func (p *pass) input(ctx context.Context, pid domain.PortID, in domain.Inputs) error {
	port, err := p.r.graph.Port(pid)
	if err != nil {
		return err
	}
	out, connected := p.r.graph.ProducerOf(pid)
	if !connected {
		in[port.Label] = port.Default
		return nil
	}
	src, err := p.r.graph.Port(out)
	if err != nil {
		return err
	}
	v, err := p.resolve(ctx, src.Node, src.Label)
	if err != nil {
		return err
	}
	in[port.Label] = v
	return nil
}

func (p *pass) leave(ctx context.Context, span trace.Span, ev *domain.ResolveEvent, v domain.Value, err error, d time.Duration) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	ev.Value = v
	ev.Err = err
	ev.Duration = d
	if p.r.hooks.OnResolveLeave != nil {
		p.r.hooks.OnResolveLeave(ctx, ev)
	}
}

func (p *pass) breakCycle(ctx context.Context, id domain.NodeID, at int) {
	path := make([]domain.NodeID, 0, len(p.path)-at+1)
	path = append(path, p.path[at:]...)
	path = append(path, id)
	cerr := &domain.CycleError{Path: path}
	p.cycles = append(p.cycles, cerr)

	if p.r.cycleCounter != nil {
		p.r.cycleCounter.Add(ctx, 1)
	}
	trace.SpanFromContext(ctx).AddEvent("cycle_detected",
		trace.WithAttributes(attribute.Int64("weft.node_id", int64(id))),
	)
	p.r.logger.Debug("cycle broken", "node_id", id, "path", cerr.Error())
	if p.r.hooks.OnCycle != nil {
		p.r.hooks.OnCycle(ctx, cerr)
	}
}

// compute runs the kind, recovering panics into errors.
func compute(ctx context.Context, kind domain.Kind, label string, in domain.Inputs) (v domain.Value, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			v = domain.Empty()
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	if m, ok := kind.(domain.MultiOutput); ok && label != "" {
		return m.ComputeOutput(ctx, label, in)
	}
	return kind.Compute(ctx, in)
}
