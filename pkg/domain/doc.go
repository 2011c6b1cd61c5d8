/*
Package domain contains the core domain model of the Weft node graph runtime.

It defines the data that flows along connections (Value), the static metadata of
node slots (PortSpec), the behaviour contract every node kind implements (Kind),
the opaque handles used to address nodes and ports, and the error taxonomy shared
by the graph store, the resolver and the adapters. This package is kept pure and
free of I/O, following Hexagonal Architecture principles.

# Key Entities

  - Value: a runtime-tagged union (Empty, Number, Bool, Text, host-defined Custom).
  - PortSpec: label and default Value of one input or output slot of a kind.
  - Kind: the pure computation of a node, from resolved inputs to an output Value.
  - GraphEvent: a "graph changed" notification (node or connection added/removed).
  - LifecycleHooks: callbacks fired by the resolver for observability.
*/
package domain
