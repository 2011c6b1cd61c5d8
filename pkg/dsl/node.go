package dsl

import (
	"github.com/aretw0/weft"
	"github.com/aretw0/weft/pkg/domain"
)

// NodeBuilder provides a fluent API for configuring a node.
type NodeBuilder struct {
	name     string
	kindName string
	kind     domain.Kind
	params   map[string]any
	builder  *Builder
}

// Param sets one factory parameter of a registered kind.
func (n *NodeBuilder) Param(key string, value any) *NodeBuilder {
	if n.params == nil {
		n.params = make(map[string]any)
	}
	n.params[key] = value
	return n
}

// Params merges factory parameters.
func (n *NodeBuilder) Params(params map[string]any) *NodeBuilder {
	for k, v := range params {
		n.Param(k, v)
	}
	return n
}

// Kind uses an explicit kind instance instead of the registry.
func (n *NodeBuilder) Kind(kind domain.Kind) *NodeBuilder {
	n.kind = kind
	return n
}

// To connects this node's only output to the input address target.
func (n *NodeBuilder) To(target string) *NodeBuilder {
	n.builder.Connect(n.name, target)
	return n
}

// From connects the output address source to this node's input label.
func (n *NodeBuilder) From(label, source string) *NodeBuilder {
	n.builder.Connect(source, n.name+"."+label)
	return n
}

// Name returns the declared node name.
func (n *NodeBuilder) Name() string {
	return n.name
}

func (n *NodeBuilder) add(e *weft.Editor) (domain.NodeID, error) {
	if n.kind != nil {
		return e.AddNode(n.kind)
	}
	return e.AddNodeByName(n.kindName, n.params)
}
