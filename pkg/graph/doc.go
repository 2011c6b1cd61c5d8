// Package graph holds the node graph and its connection manager.
//
// A Store owns nodes, their ports and the connections between them, and keeps
// the single-producer invariant: every input is fed by at most one output,
// while an output may fan out to any number of inputs. Every mutation emits
// domain.GraphEvent values to subscribers and to a queue drained by the host.
package graph
