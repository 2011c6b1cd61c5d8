/*
Package observability provides Prometheus metrics for weft graphs.

Metrics is fed from two places: the resolver lifecycle hooks (resolutions,
cycles, compute errors and per-kind compute latency) and the graph event
stream (one counter per event type). It implements ports.EventPublisher so it
can sit next to other publishers behind ports.Fanout.

	m := observability.NewMetrics(prometheus.DefaultRegisterer)
	ed := weft.New(
		weft.WithLifecycleHooks(m.Hooks()),
		weft.WithPublisher(m),
	)
*/
package observability
