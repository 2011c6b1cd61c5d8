package weft

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/aretw0/weft/internal/logging"
	"github.com/aretw0/weft/internal/runtime"
	"github.com/aretw0/weft/pkg/domain"
	"github.com/aretw0/weft/pkg/graph"
	"github.com/aretw0/weft/pkg/kinds"
	"github.com/aretw0/weft/pkg/ports"
	"github.com/aretw0/weft/pkg/registry"
)

// Editor is the high-level entry point for the weft library.
// It composes a graph store, a resolver and a kind registry.
//
// An Editor is not safe for concurrent use; see pkg/session for shared access.
type Editor struct {
	store     *graph.Store
	resolver  *runtime.Resolver
	registry  *registry.Registry
	publisher ports.EventPublisher
	hooks     domain.LifecycleHooks
	logger    *slog.Logger
	output    io.Writer
	queueCap  int
	Name      string
}

// Option defines a functional option for configuring the Editor.
type Option func(*Editor)

// WithLifecycleHooks registers resolver observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Editor) {
		e.hooks = hooks
	}
}

// WithLogger sets a custom structured logger for the editor.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Editor) {
		e.logger = logger
	}
}

// WithRegistry replaces the builtin kind registry.
func WithRegistry(r *registry.Registry) Option {
	return func(e *Editor) {
		e.registry = r
	}
}

// WithOutput sets where the builtin print kind writes (default: stdout).
// Ignored when WithRegistry is used.
func WithOutput(w io.Writer) Option {
	return func(e *Editor) {
		e.output = w
	}
}

// WithPublisher forwards every graph event to p, tagged with the editor name.
func WithPublisher(p ports.EventPublisher) Option {
	return func(e *Editor) {
		e.publisher = p
	}
}

// WithName labels the editor; it is used as the event stream name.
func WithName(name string) Option {
	return func(e *Editor) {
		e.Name = name
	}
}

// WithQueueCapacity bounds the queue returned by Drain.
func WithQueueCapacity(n int) Option {
	return func(e *Editor) {
		e.queueCap = n
	}
}

// New creates an empty graph editor.
func New(opts ...Option) *Editor {
	e := &Editor{queueCap: graph.DefaultQueueCapacity}
	for _, opt := range opts {
		opt(e)
	}

	if e.logger == nil {
		e.logger = logging.NewNop()
	}
	if e.Name != "" {
		e.logger = e.logger.With("graph", e.Name)
	}
	if e.output == nil {
		e.output = os.Stdout
	}
	if e.registry == nil {
		e.registry = kinds.NewRegistry(e.output)
	}

	e.store = graph.New(
		graph.WithLogger(e.logger),
		graph.WithQueueCapacity(e.queueCap),
	)
	e.resolver = runtime.NewResolver(e.store,
		runtime.WithLogger(e.logger),
		runtime.WithLifecycleHooks(e.hooks),
	)

	if e.publisher != nil {
		e.store.Subscribe(e.forward)
	}
	return e
}

func (e *Editor) forward(ev domain.GraphEvent) {
	if err := e.publisher.Publish(context.Background(), e.Name, ev); err != nil {
		e.logger.Warn("Failed to publish graph event", "type", ev.Type, "seq", ev.Seq, "err", err)
	}
}

// AddNode creates a node from a kind instance.
func (e *Editor) AddNode(kind domain.Kind) (domain.NodeID, error) {
	return e.store.AddNode(kind)
}

// AddNodeByName creates a node from a registered kind.
func (e *Editor) AddNodeByName(name string, params map[string]any) (domain.NodeID, error) {
	kind, err := e.registry.New(name, params)
	if err != nil {
		return domain.NoNode, err
	}
	return e.store.AddNode(kind)
}

// RemoveNode deletes a node and every connection touching it.
func (e *Editor) RemoveNode(id domain.NodeID) error {
	return e.store.RemoveNode(id)
}

// Connect links an output to an input that has no producer yet.
func (e *Editor) Connect(out, in domain.PortID) error {
	return e.store.Connect(out, in)
}

// Reconnect links an output to an input, replacing any existing producer.
func (e *Editor) Reconnect(out, in domain.PortID) error {
	return e.store.Reconnect(out, in)
}

// Disconnect removes the connection feeding in, if any.
func (e *Editor) Disconnect(in domain.PortID) error {
	return e.store.Disconnect(in)
}

// Wire connects node from's output labelled fromLabel to node to's input
// labelled toLabel. An empty fromLabel selects the only output. With replace
// set, an existing producer is replaced.
func (e *Editor) Wire(from domain.NodeID, fromLabel string, to domain.NodeID, toLabel string, replace bool) error {
	out, err := e.store.OutputPort(from, fromLabel)
	if err != nil {
		return err
	}
	in, err := e.store.InputPort(to, toLabel)
	if err != nil {
		return err
	}
	if replace {
		return e.store.Reconnect(out, in)
	}
	return e.store.Connect(out, in)
}

// Resolve computes the current output value of a node.
// The Value is meaningful even when the error reports cycles.
func (e *Editor) Resolve(ctx context.Context, id domain.NodeID) (domain.Value, error) {
	return e.resolver.Resolve(ctx, id)
}

// ResolvePort computes the value of a specific output port.
func (e *Editor) ResolvePort(ctx context.Context, out domain.PortID) (domain.Value, error) {
	return e.resolver.ResolvePort(ctx, out)
}

// ProducerOf returns the output feeding in, if any.
func (e *Editor) ProducerOf(in domain.PortID) (domain.PortID, bool) {
	return e.store.ProducerOf(in)
}

// ConsumersOf returns the inputs fed by out.
func (e *Editor) ConsumersOf(out domain.PortID) []domain.PortID {
	return e.store.ConsumersOf(out)
}

// InputPort finds a node's input by label.
func (e *Editor) InputPort(id domain.NodeID, label string) (domain.PortID, error) {
	return e.store.InputPort(id, label)
}

// OutputPort finds a node's output by label; "" selects the only output.
func (e *Editor) OutputPort(id domain.NodeID, label string) (domain.PortID, error) {
	return e.store.OutputPort(id, label)
}

// Node returns a view of a node.
func (e *Editor) Node(id domain.NodeID) (graph.Node, error) {
	return e.store.Node(id)
}

// Port returns a view of a port.
func (e *Editor) Port(id domain.PortID) (graph.Port, error) {
	return e.store.Port(id)
}

// Nodes returns every node handle in creation order.
func (e *Editor) Nodes() []domain.NodeID {
	return e.store.Nodes()
}

// Snapshot captures the current topology.
func (e *Editor) Snapshot() graph.Snapshot {
	return e.store.Snapshot()
}

// Subscribe registers an observer of graph events.
func (e *Editor) Subscribe(fn func(domain.GraphEvent)) (cancel func()) {
	return e.store.Subscribe(fn)
}

// Drain returns and clears the queued graph events.
func (e *Editor) Drain() []domain.GraphEvent {
	return e.store.Drain()
}

// Registry returns the kind registry used by AddNodeByName.
func (e *Editor) Registry() *registry.Registry {
	return e.registry
}

// Store returns the underlying graph store.
func (e *Editor) Store() *graph.Store {
	return e.store
}
