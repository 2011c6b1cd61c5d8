package graph

import "github.com/aretw0/weft/pkg/domain"

// Snapshot is a serializable picture of the graph topology.
// It is meant for presentation layers; it is not a persistence format.
type Snapshot struct {
	Nodes       []NodeSnapshot `json:"nodes"`
	Connections []Connection   `json:"connections"`
}

// NodeSnapshot describes one node and its ports.
type NodeSnapshot struct {
	ID      domain.NodeID  `json:"id"`
	Kind    string         `json:"kind"`
	Inputs  []PortSnapshot `json:"inputs"`
	Outputs []PortSnapshot `json:"outputs"`
}

// PortSnapshot describes one port. Producer is set on connected inputs.
type PortSnapshot struct {
	ID       domain.PortID `json:"id"`
	Label    string        `json:"label"`
	Default  *domain.Value `json:"default,omitempty"`
	Producer domain.PortID `json:"producer,omitempty"`
}

// Snapshot captures the current topology, ordered by handle.
func (s *Store) Snapshot() Snapshot {
	snap := Snapshot{
		Nodes:       make([]NodeSnapshot, 0, len(s.nodes)),
		Connections: s.Connections(),
	}
	for _, id := range s.Nodes() {
		entry := s.nodes[id]
		ns := NodeSnapshot{
			ID:      id,
			Kind:    entry.kind.Name(),
			Inputs:  make([]PortSnapshot, 0, len(entry.inputs)),
			Outputs: make([]PortSnapshot, 0, len(entry.outputs)),
		}
		for _, p := range entry.inputs {
			port := s.ports[p]
			def := port.Default
			ps := PortSnapshot{ID: p, Label: port.Label, Default: &def}
			ps.Producer = s.producer[p]
			ns.Inputs = append(ns.Inputs, ps)
		}
		for _, p := range entry.outputs {
			ns.Outputs = append(ns.Outputs, PortSnapshot{ID: p, Label: s.ports[p].Label})
		}
		snap.Nodes = append(snap.Nodes, ns)
	}
	return snap
}

// Node looks up a node in the snapshot.
func (snap Snapshot) Node(id domain.NodeID) (NodeSnapshot, bool) {
	for _, n := range snap.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return NodeSnapshot{}, false
}
