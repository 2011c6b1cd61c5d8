/*
Package weft is a node graph dataflow runtime.

A user assembles a directed graph of typed computational nodes connected
through input and output ports, then asks for the current value of any node.
Evaluation is lazy and pull based: the resolver walks upstream from the
requested node, computes every dependency and returns the result. Nothing is
cached, so every request reflects the graph as it is right now.

# Concept

Each node is an instance of a Kind, which declares labelled input slots (each
with a default used when unconnected) and zero or one output. An input accepts
at most one producer; an output may fan out to any number of inputs. Values
flowing along connections are tagged unions (Empty, Number, Bool, Text or a
host-defined variant).

Cycles are allowed in the topology. When resolution re-enters a node that is
already on the active path, Empty is substituted for that input, evaluation
continues, and the cycle is reported next to the computed value.

# Usage

	package main

	import (
		"context"
		"fmt"

		"github.com/aretw0/weft"
	)

	func main() {
		ed := weft.New()

		v1, _ := ed.AddNodeByName("constant", map[string]any{"value": 5})
		v2, _ := ed.AddNodeByName("constant", map[string]any{"value": 7})
		add, _ := ed.AddNodeByName("add", nil)

		_ = ed.Wire(v1, "", add, "a", false)
		_ = ed.Wire(v2, "", add, "b", false)

		v, err := ed.Resolve(context.Background(), add)
		if err != nil {
			panic(err)
		}
		fmt.Println(v) // 12
	}

# Presentation

The Editor emits a domain.GraphEvent for every mutation. Hosts either
Subscribe to them or Drain the queue once per frame. pkg/runner provides an
interactive console, pkg/adapters/http a JSON API and pkg/adapters/mcp an MCP
tool server, all on top of this package.
*/
package weft
