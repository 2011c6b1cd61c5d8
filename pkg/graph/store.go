package graph

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/aretw0/weft/internal/logging"
	"github.com/aretw0/weft/pkg/domain"
)

// Node is a read-only view of a node instance.
type Node struct {
	ID      domain.NodeID
	Kind    domain.Kind
	Inputs  []domain.PortID
	Outputs []domain.PortID
}

// Port is a read-only view of a port.
type Port struct {
	ID        domain.PortID
	Node      domain.NodeID
	Label     string
	Direction domain.Direction
	Default   domain.Value
}

// Connection is a directed edge from an output port to an input port.
type Connection struct {
	Output domain.PortID `json:"output"`
	Input  domain.PortID `json:"input"`
}

type nodeEntry struct {
	kind    domain.Kind
	inputs  []domain.PortID
	outputs []domain.PortID
}

// Store owns every node, port and connection of one graph.
//
// Nodes and ports live in an arena addressed by integer handles that are
// never reused. Connections are indexed both ways: input -> producing output
// and output -> set of consuming inputs.
//
// Store is not safe for concurrent use.
type Store struct {
	nodes     map[domain.NodeID]*nodeEntry
	ports     map[domain.PortID]*Port
	producer  map[domain.PortID]domain.PortID
	consumers map[domain.PortID]map[domain.PortID]struct{}

	lastNode domain.NodeID
	lastPort domain.PortID

	holds int

	events *eventHub
	logger *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for mutation diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithQueueCapacity bounds the outbound event queue consumed by Drain.
// When full, the oldest events are dropped. Zero or negative disables the bound.
func WithQueueCapacity(n int) Option {
	return func(s *Store) {
		s.events.capacity = n
	}
}

// New creates an empty graph store.
func New(opts ...Option) *Store {
	s := &Store{
		nodes:     make(map[domain.NodeID]*nodeEntry),
		ports:     make(map[domain.PortID]*Port),
		producer:  make(map[domain.PortID]domain.PortID),
		consumers: make(map[domain.PortID]map[domain.PortID]struct{}),
		events:    newEventHub(DefaultQueueCapacity),
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Hold marks the store as being read by a resolution pass. Mutations fail with
// ErrGraphBusy until every hold is released. The returned func is idempotent.
func (s *Store) Hold() (release func()) {
	s.holds++
	released := false
	return func() {
		if released {
			return
		}
		released = true
		s.holds--
	}
}

// Busy reports whether a resolution pass currently holds the store.
func (s *Store) Busy() bool { return s.holds > 0 }

func (s *Store) checkIdle(op string) error {
	if s.holds > 0 {
		return fmt.Errorf("%s: %w", op, domain.ErrGraphBusy)
	}
	return nil
}

// AddNode creates a node of the given kind together with its ports.
// Ports are allocated inputs first, in declaration order.
func (s *Store) AddNode(kind domain.Kind) (domain.NodeID, error) {
	if err := s.checkIdle("add node"); err != nil {
		return domain.NoNode, err
	}
	if err := domain.ValidateKind(kind); err != nil {
		return domain.NoNode, err
	}

	s.lastNode++
	id := s.lastNode
	entry := &nodeEntry{kind: kind}

	for _, spec := range kind.Inputs() {
		entry.inputs = append(entry.inputs, s.newPort(id, spec, domain.DirectionInput))
	}
	for _, spec := range kind.Outputs() {
		entry.outputs = append(entry.outputs, s.newPort(id, domain.PortSpec{Label: spec.Label}, domain.DirectionOutput))
	}
	s.nodes[id] = entry

	s.logger.Debug("node added", "node_id", id, "kind", kind.Name())
	s.events.emit(domain.GraphEvent{Type: domain.EventNodeAdded, Node: id, Kind: kind.Name()})
	return id, nil
}

func (s *Store) newPort(node domain.NodeID, spec domain.PortSpec, dir domain.Direction) domain.PortID {
	s.lastPort++
	s.ports[s.lastPort] = &Port{
		ID:        s.lastPort,
		Node:      node,
		Label:     spec.Label,
		Direction: dir,
		Default:   spec.Default,
	}
	return s.lastPort
}

// RemoveNode deletes a node, its ports and every connection touching them.
// All indexes are updated before any event is emitted.
func (s *Store) RemoveNode(id domain.NodeID) error {
	if err := s.checkIdle("remove node"); err != nil {
		return err
	}
	entry, ok := s.nodes[id]
	if !ok {
		return fmt.Errorf("remove node %s: %w", id, domain.ErrNodeNotFound)
	}

	var edges []Connection
	for _, in := range entry.inputs {
		if out, ok := s.producer[in]; ok {
			edges = append(edges, Connection{Output: out, Input: in})
		}
	}
	for _, out := range entry.outputs {
		for in := range s.consumers[out] {
			edges = append(edges, Connection{Output: out, Input: in})
		}
	}
	sortConnections(edges)

	for _, e := range edges {
		s.unlink(e.Output, e.Input)
	}
	for _, p := range entry.inputs {
		delete(s.ports, p)
	}
	for _, p := range entry.outputs {
		delete(s.consumers, p)
		delete(s.ports, p)
	}
	delete(s.nodes, id)

	batch := make([]domain.GraphEvent, 0, len(edges)+1)
	for _, e := range edges {
		batch = append(batch, s.connectionEvent(domain.EventConnectionRemoved, e.Output, e.Input, id))
	}
	batch = append(batch, domain.GraphEvent{Type: domain.EventNodeRemoved, Node: id, Kind: entry.kind.Name()})

	s.logger.Debug("node removed", "node_id", id, "connections", len(edges))
	s.events.emit(batch...)
	return nil
}

// Connect records the edge out -> in.
//
// It fails with ErrIncompatibleEndpoint for self-loops or when the ports are not
// an output/input pair, and with ErrAlreadyConnected when in already has a producer.
func (s *Store) Connect(out, in domain.PortID) error {
	if err := s.checkIdle("connect"); err != nil {
		return err
	}
	if err := s.checkEndpoints("connect", out, in); err != nil {
		return err
	}
	if cur, ok := s.producer[in]; ok {
		return &domain.ConnectionError{
			Op: "connect", Output: out, Input: in, Err: domain.ErrAlreadyConnected,
			Reason: "fed by " + cur.String(),
		}
	}

	s.link(out, in)
	s.logger.Debug("connected", "output", out, "input", in)
	s.events.emit(s.connectionEvent(domain.EventConnectionAdded, out, in, domain.NoNode))
	return nil
}

// Reconnect replaces whatever feeds in with out.
// If validation fails the previous connection is left in place.
func (s *Store) Reconnect(out, in domain.PortID) error {
	if err := s.checkIdle("reconnect"); err != nil {
		return err
	}
	if err := s.checkEndpoints("reconnect", out, in); err != nil {
		return err
	}

	var batch []domain.GraphEvent
	if cur, ok := s.producer[in]; ok {
		if cur == out {
			return nil
		}
		s.unlink(cur, in)
		batch = append(batch, s.connectionEvent(domain.EventConnectionRemoved, cur, in, domain.NoNode))
	}
	s.link(out, in)
	batch = append(batch, s.connectionEvent(domain.EventConnectionAdded, out, in, domain.NoNode))

	s.logger.Debug("reconnected", "output", out, "input", in)
	s.events.emit(batch...)
	return nil
}

// Disconnect removes the connection feeding in, if any.
func (s *Store) Disconnect(in domain.PortID) error {
	if err := s.checkIdle("disconnect"); err != nil {
		return err
	}
	p, ok := s.ports[in]
	if !ok {
		return &domain.ConnectionError{Op: "disconnect", Input: in, Err: domain.ErrPortNotFound}
	}
	if p.Direction != domain.DirectionInput {
		return &domain.ConnectionError{Op: "disconnect", Input: in, Err: domain.ErrIncompatibleEndpoint, Reason: "not an input"}
	}
	out, ok := s.producer[in]
	if !ok {
		return nil
	}

	s.unlink(out, in)
	s.logger.Debug("disconnected", "output", out, "input", in)
	s.events.emit(s.connectionEvent(domain.EventConnectionRemoved, out, in, domain.NoNode))
	return nil
}

func (s *Store) checkEndpoints(op string, out, in domain.PortID) error {
	fail := func(err error, reason string) error {
		return &domain.ConnectionError{Op: op, Output: out, Input: in, Err: err, Reason: reason}
	}
	po, ok := s.ports[out]
	if !ok {
		return fail(domain.ErrPortNotFound, "unknown output")
	}
	pi, ok := s.ports[in]
	if !ok {
		return fail(domain.ErrPortNotFound, "unknown input")
	}
	if po.Direction != domain.DirectionOutput {
		return fail(domain.ErrIncompatibleEndpoint, out.String()+" is not an output")
	}
	if pi.Direction != domain.DirectionInput {
		return fail(domain.ErrIncompatibleEndpoint, in.String()+" is not an input")
	}
	if po.Node == pi.Node {
		return fail(domain.ErrIncompatibleEndpoint, "self-loop on "+po.Node.String())
	}
	return nil
}

func (s *Store) link(out, in domain.PortID) {
	s.producer[in] = out
	set, ok := s.consumers[out]
	if !ok {
		set = make(map[domain.PortID]struct{})
		s.consumers[out] = set
	}
	set[in] = struct{}{}
}

func (s *Store) unlink(out, in domain.PortID) {
	delete(s.producer, in)
	if set, ok := s.consumers[out]; ok {
		delete(set, in)
		if len(set) == 0 {
			delete(s.consumers, out)
		}
	}
}

// connectionEvent resolves endpoint owners. removed is the node being deleted,
// whose ports may already be gone from the index.
func (s *Store) connectionEvent(t domain.EventType, out, in domain.PortID, removed domain.NodeID) domain.GraphEvent {
	ev := domain.GraphEvent{Type: t, Output: out, Input: in}
	ev.OutputNode = s.ownerOf(out, removed)
	ev.InputNode = s.ownerOf(in, removed)
	return ev
}

func (s *Store) ownerOf(p domain.PortID, fallback domain.NodeID) domain.NodeID {
	if port, ok := s.ports[p]; ok {
		return port.Node
	}
	return fallback
}

// ProducerOf returns the output feeding in, if any.
func (s *Store) ProducerOf(in domain.PortID) (domain.PortID, bool) {
	out, ok := s.producer[in]
	return out, ok
}

// ConsumersOf returns the inputs fed by out, in handle order.
func (s *Store) ConsumersOf(out domain.PortID) []domain.PortID {
	set := s.consumers[out]
	ids := make([]domain.PortID, 0, len(set))
	for in := range set {
		ids = append(ids, in)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Node returns a view of the node with the given handle.
func (s *Store) Node(id domain.NodeID) (Node, error) {
	entry, ok := s.nodes[id]
	if !ok {
		return Node{}, fmt.Errorf("node %s: %w", id, domain.ErrNodeNotFound)
	}
	return Node{
		ID:      id,
		Kind:    entry.kind,
		Inputs:  append([]domain.PortID(nil), entry.inputs...),
		Outputs: append([]domain.PortID(nil), entry.outputs...),
	}, nil
}

// Port returns a view of the port with the given handle.
func (s *Store) Port(id domain.PortID) (Port, error) {
	p, ok := s.ports[id]
	if !ok {
		return Port{}, fmt.Errorf("port %s: %w", id, domain.ErrPortNotFound)
	}
	return *p, nil
}

// InputPort finds the input of node id labelled label.
func (s *Store) InputPort(id domain.NodeID, label string) (domain.PortID, error) {
	entry, ok := s.nodes[id]
	if !ok {
		return domain.NoPort, fmt.Errorf("node %s: %w", id, domain.ErrNodeNotFound)
	}
	return s.findPort(id, entry.inputs, label, "input")
}

// OutputPort finds the output of node id labelled label.
// An empty label selects the node's only output.
func (s *Store) OutputPort(id domain.NodeID, label string) (domain.PortID, error) {
	entry, ok := s.nodes[id]
	if !ok {
		return domain.NoPort, fmt.Errorf("node %s: %w", id, domain.ErrNodeNotFound)
	}
	if label == "" && len(entry.outputs) == 1 {
		return entry.outputs[0], nil
	}
	return s.findPort(id, entry.outputs, label, "output")
}

func (s *Store) findPort(id domain.NodeID, ports []domain.PortID, label, dir string) (domain.PortID, error) {
	for _, p := range ports {
		if s.ports[p].Label == label {
			return p, nil
		}
	}
	return domain.NoPort, fmt.Errorf("%s %q on %s: %w", dir, label, id, domain.ErrPortNotFound)
}

// Nodes returns every node handle in creation order.
func (s *Store) Nodes() []domain.NodeID {
	ids := make([]domain.NodeID, 0, len(s.nodes))
	for id := range s.nodes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Connections returns every edge ordered by input handle.
func (s *Store) Connections() []Connection {
	edges := make([]Connection, 0, len(s.producer))
	for in, out := range s.producer {
		edges = append(edges, Connection{Output: out, Input: in})
	}
	sortConnections(edges)
	return edges
}

// Len returns the number of nodes.
func (s *Store) Len() int { return len(s.nodes) }

func sortConnections(edges []Connection) {
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].Input != edges[j].Input {
			return edges[i].Input < edges[j].Input
		}
		return edges[i].Output < edges[j].Output
	})
}
