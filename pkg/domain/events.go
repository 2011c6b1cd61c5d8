package domain

import (
	"context"
	"time"
)

// EventType defines the category of a graph change.
type EventType string

const (
	EventNodeAdded         EventType = "node_added"
	EventNodeRemoved       EventType = "node_removed"
	EventConnectionAdded   EventType = "connection_added"
	EventConnectionRemoved EventType = "connection_removed"
)

// GraphEvent is a "graph changed" notification emitted by the graph store
// after a mutating call has completed.
type GraphEvent struct {
	Seq  uint64    `json:"seq"`
	Type EventType `json:"type"`

	// Node and Kind are set for node events.
	Node NodeID `json:"node,omitempty"`
	Kind string `json:"kind,omitempty"`

	// Connection endpoints, set for connection events.
	Output     PortID `json:"output,omitempty"`
	Input      PortID `json:"input,omitempty"`
	OutputNode NodeID `json:"output_node,omitempty"`
	InputNode  NodeID `json:"input_node,omitempty"`
}

// Touches reports whether the event concerns node id, either directly or as
// an endpoint of a connection.
func (e GraphEvent) Touches(id NodeID) bool {
	return e.Node == id || e.OutputNode == id || e.InputNode == id
}

// ResolveEvent describes one node evaluation inside a resolution pass.
type ResolveEvent struct {
	Node  NodeID
	Kind  string
	Depth int

	// Set on leave only.
	Value    Value
	Err      error
	Duration time.Duration
}

// LifecycleHooks defines callbacks for resolver observability.
type LifecycleHooks struct {
	OnResolveEnter func(context.Context, *ResolveEvent)
	OnResolveLeave func(context.Context, *ResolveEvent)
	OnCycle        func(context.Context, *CycleError)
}
