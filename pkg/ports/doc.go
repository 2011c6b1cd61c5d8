/*
Package ports defines the driven ports (interfaces) of the weft runtime.

These interfaces decouple the graph core from external implementations, allowing
graph-changed notifications to be forwarded to in-process listeners or to a
message broker.

# Key Interfaces

  - EventPublisher: Forwards domain.GraphEvent values for a named graph.
  - EventSubscriber: Reads them back (used by watchers and tests).
  - EventBus: Both sides; adapters are checked with RunEventBusContract.
*/
package ports
