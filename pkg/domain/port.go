package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// NodeID is the opaque handle of a node instance. Handles are never reused
// within one graph store. The zero value means "no node".
type NodeID uint64

// PortID is the opaque handle of a port. The zero value means "no port".
type PortID uint64

const (
	NoNode NodeID = 0
	NoPort PortID = 0
)

func (id NodeID) String() string { return "n" + strconv.FormatUint(uint64(id), 10) }

func (id PortID) String() string { return "p" + strconv.FormatUint(uint64(id), 10) }

// ParseNodeID accepts both the "n12" form produced by String and a bare "12".
func ParseNodeID(s string) (NodeID, error) {
	n, err := parseHandle(s, "n")
	if err != nil {
		return NoNode, fmt.Errorf("%w: %q", ErrNodeNotFound, s)
	}
	return NodeID(n), nil
}

// ParsePortID accepts both the "p7" form produced by String and a bare "7".
func ParsePortID(s string) (PortID, error) {
	n, err := parseHandle(s, "p")
	if err != nil {
		return NoPort, fmt.Errorf("%w: %q", ErrPortNotFound, s)
	}
	return PortID(n), nil
}

func parseHandle(s, prefix string) (uint64, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), prefix)
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, fmt.Errorf("zero handle")
	}
	return n, nil
}

// Direction tells inputs from outputs.
type Direction int

const (
	DirectionInput Direction = iota
	DirectionOutput
)

func (d Direction) String() string {
	switch d {
	case DirectionInput:
		return "input"
	case DirectionOutput:
		return "output"
	default:
		return fmt.Sprintf("Direction(%d)", int(d))
	}
}

// PortSpec is the static description of one slot of a node kind.
// Default is only meaningful for inputs: it is used when nothing is connected.
type PortSpec struct {
	Label   string `json:"label"`
	Default Value  `json:"default"`
}

// In declares an input with a default value.
func In(label string, def Value) PortSpec {
	return PortSpec{Label: label, Default: def}
}

// Out declares an output.
func Out(label string) PortSpec {
	return PortSpec{Label: label}
}
