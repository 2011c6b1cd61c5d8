package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrIncompatibleEndpoint is returned for self-loops and for ports that are
	// not an output/input pair.
	ErrIncompatibleEndpoint = errors.New("incompatible endpoint")

	// ErrAlreadyConnected is returned by Connect when the input already has a producer.
	// Reconnect is the sanctioned way to replace it.
	ErrAlreadyConnected = errors.New("input already connected")

	// ErrCycleDetected is reported when resolution re-enters a node on the active path.
	ErrCycleDetected = errors.New("cycle detected")

	// ErrTypeMismatch is returned when a Value's tag does not match what a consumer expects.
	ErrTypeMismatch = errors.New("type mismatch")

	// ErrNodeNotFound is returned for unknown node handles.
	ErrNodeNotFound = errors.New("node not found")

	// ErrPortNotFound is returned for unknown port handles or labels.
	ErrPortNotFound = errors.New("port not found")

	// ErrGraphBusy is returned when the graph is mutated while a resolution pass is in flight.
	ErrGraphBusy = errors.New("graph is being resolved")

	// ErrInvalidKind is returned when a kind declares an inconsistent port layout.
	ErrInvalidKind = errors.New("invalid kind")

	// ErrUnknownKind is returned when a kind name is not registered.
	ErrUnknownKind = errors.New("unknown kind")

	// ErrSessionNotFound is returned when a session ID cannot be found.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionExists is returned when creating a session whose ID is taken.
	ErrSessionExists = errors.New("session already exists")
)

// ConnectionError describes a rejected connection manager operation.
type ConnectionError struct {
	Op     string // "connect", "reconnect", "disconnect"
	Output PortID
	Input  PortID
	Reason string
	Err    error
}

func (e *ConnectionError) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	if e.Output != NoPort {
		fmt.Fprintf(&b, " %s ->", e.Output)
	}
	fmt.Fprintf(&b, " %s: %v", e.Input, e.Err)
	if e.Reason != "" {
		b.WriteString(" (" + e.Reason + ")")
	}
	return b.String()
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// CycleError reports a resolution path that re-entered a node.
// Path starts and ends with the re-entered node.
type CycleError struct {
	Path []NodeID
}

func (e *CycleError) Error() string {
	parts := make([]string, len(e.Path))
	for i, id := range e.Path {
		parts[i] = id.String()
	}
	return fmt.Sprintf("%v: %s", ErrCycleDetected, strings.Join(parts, " -> "))
}

func (e *CycleError) Unwrap() error { return ErrCycleDetected }

// NodeError wraps a failure raised by a node kind's computation.
type NodeError struct {
	Node NodeID
	Kind string
	Err  error
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("node %s (%s): %v", e.Node, e.Kind, e.Err)
}

func (e *NodeError) Unwrap() error { return e.Err }

// TypeMismatchError is returned by the Value conversion helpers.
type TypeMismatchError struct {
	Want ValueKind
	Got  ValueKind
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("%v: expected %s, got %s", ErrTypeMismatch, e.Want, e.Got)
}

func (e *TypeMismatchError) Unwrap() error { return ErrTypeMismatch }
