package dsl

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aretw0/weft"
	"github.com/aretw0/weft/pkg/domain"
)

// Builder manages the graph construction.
//
// Nodes and connections are recorded as they are declared and applied to a
// fresh Editor by Build, in declaration order.
type Builder struct {
	opts  []weft.Option
	nodes map[string]*NodeBuilder
	order []string
	links []link
}

type link struct {
	from, to string
	replace  bool
}

// New creates a new graph builder. The options configure the Editor that
// Build produces.
func New(opts ...weft.Option) *Builder {
	return &Builder{
		opts:  opts,
		nodes: make(map[string]*NodeBuilder),
	}
}

// Add declares a node named name of the registered kind.
// If the node already exists, it returns the existing builder.
func (b *Builder) Add(name, kind string) *NodeBuilder {
	if nb, ok := b.nodes[name]; ok {
		return nb
	}
	nb := &NodeBuilder{
		name:     name,
		kindName: kind,
		builder:  b,
	}
	b.nodes[name] = nb
	b.order = append(b.order, name)
	return nb
}

// Constant is shorthand for a constant node emitting v.
func (b *Builder) Constant(name string, v any) *NodeBuilder {
	return b.Add(name, "constant").Param("value", v)
}

// Connect wires an output address to an input address. Addresses take the
// form "node.port"; a bare "node" selects its only port of that direction.
func (b *Builder) Connect(from, to string) *Builder {
	b.links = append(b.links, link{from: from, to: to})
	return b
}

// Reconnect is Connect, replacing whatever already feeds to.
func (b *Builder) Reconnect(from, to string) *Builder {
	b.links = append(b.links, link{from: from, to: to, replace: true})
	return b
}

// Build creates the Editor and applies every declaration. All declaration
// errors are reported together.
func (b *Builder) Build() (*Graph, error) {
	g := &Graph{
		Editor: weft.New(b.opts...),
		ids:    make(map[string]domain.NodeID, len(b.order)),
	}

	var errs []error
	for _, name := range b.order {
		nb := b.nodes[name]
		if name == "" || strings.Contains(name, ".") {
			errs = append(errs, fmt.Errorf("node %q: invalid name", name))
			continue
		}
		id, err := nb.add(g.Editor)
		if err != nil {
			errs = append(errs, fmt.Errorf("node %q: %w", name, err))
			continue
		}
		g.ids[name] = id
		g.names = append(g.names, name)
	}

	for _, l := range b.links {
		if err := g.wire(l); err != nil {
			errs = append(errs, fmt.Errorf("connect %s -> %s: %w", l.from, l.to, err))
		}
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("failed to build graph: %w", errors.Join(errs...))
	}
	return g, nil
}

// Graph is a built graph whose nodes can be addressed by their declared names.
type Graph struct {
	*weft.Editor
	ids   map[string]domain.NodeID
	names []string
}

// ID returns the handle of the node declared as name.
func (g *Graph) ID(name string) (domain.NodeID, bool) {
	id, ok := g.ids[name]
	return id, ok
}

// Names returns the declared node names in declaration order.
func (g *Graph) Names() []string {
	return append([]string(nil), g.names...)
}

// Value resolves the node or output port at addr.
func (g *Graph) Value(ctx context.Context, addr string) (domain.Value, error) {
	name, label := SplitAddress(addr)
	id, ok := g.ids[name]
	if !ok {
		return domain.Empty(), fmt.Errorf("%q: %w", name, domain.ErrNodeNotFound)
	}
	if label == "" {
		return g.Resolve(ctx, id)
	}
	out, err := g.OutputPort(id, label)
	if err != nil {
		return domain.Empty(), err
	}
	return g.ResolvePort(ctx, out)
}

func (g *Graph) wire(l link) error {
	fromName, fromLabel := SplitAddress(l.from)
	toName, toLabel := SplitAddress(l.to)
	from, ok := g.ids[fromName]
	if !ok {
		return fmt.Errorf("%q: %w", fromName, domain.ErrNodeNotFound)
	}
	to, ok := g.ids[toName]
	if !ok {
		return fmt.Errorf("%q: %w", toName, domain.ErrNodeNotFound)
	}
	if toLabel == "" {
		label, err := g.onlyInput(to)
		if err != nil {
			return err
		}
		toLabel = label
	}
	return g.Wire(from, fromLabel, to, toLabel, l.replace)
}

func (g *Graph) onlyInput(id domain.NodeID) (string, error) {
	n, err := g.Node(id)
	if err != nil {
		return "", err
	}
	if len(n.Inputs) != 1 {
		return "", fmt.Errorf("node %s has %d inputs, name one: %w", id, len(n.Inputs), domain.ErrPortNotFound)
	}
	p, err := g.Port(n.Inputs[0])
	if err != nil {
		return "", err
	}
	return p.Label, nil
}

// SplitAddress splits "node.port" into its node name and port label.
// The label is empty for a bare node name.
func SplitAddress(addr string) (node, port string) {
	node, port, _ = strings.Cut(addr, ".")
	return node, port
}
