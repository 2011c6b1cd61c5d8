package ports

import (
	"context"
	"errors"

	"github.com/aretw0/weft/pkg/domain"
)

// EventPublisher forwards graph-changed notifications outside the process.
// graph names the stream (usually the session ID).
type EventPublisher interface {
	Publish(ctx context.Context, graph string, ev domain.GraphEvent) error
}

// EventSubscriber receives notifications published for a graph.
type EventSubscriber interface {
	// Subscribe returns a channel of events for graph. The channel is closed
	// after cancel is called or ctx is done.
	Subscribe(ctx context.Context, graph string) (events <-chan domain.GraphEvent, cancel func(), err error)
}

// EventBus is a publisher whose events can be read back.
type EventBus interface {
	EventPublisher
	EventSubscriber
}

// Fanout publishes every event to each of pubs in order. Nil entries are
// skipped; the errors of failing publishers are joined.
func Fanout(pubs ...EventPublisher) EventPublisher {
	live := make(fanout, 0, len(pubs))
	for _, p := range pubs {
		if p != nil {
			live = append(live, p)
		}
	}
	return live
}

type fanout []EventPublisher

func (f fanout) Publish(ctx context.Context, graph string, ev domain.GraphEvent) error {
	var errs []error
	for _, p := range f {
		if err := p.Publish(ctx, graph, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
