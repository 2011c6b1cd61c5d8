package memory

import (
	"context"
	"sync"

	"github.com/aretw0/weft/pkg/domain"
)

// subscriberBuffer is the channel capacity of each subscription.
const subscriberBuffer = 64

type subscriber struct {
	ch   chan domain.GraphEvent
	done chan struct{}
	once sync.Once
}

func (s *subscriber) close() {
	s.once.Do(func() {
		close(s.ch)
		close(s.done)
	})
}

// EventBus implements ports.EventBus in memory.
// It also records every published event for later inspection.
// Safe for concurrent use.
type EventBus struct {
	mu       sync.RWMutex
	recorded map[string][]domain.GraphEvent
	subs     map[string]map[*subscriber]struct{}
}

// NewEventBus creates a new in-memory event bus.
func NewEventBus() *EventBus {
	return &EventBus{
		recorded: make(map[string][]domain.GraphEvent),
		subs:     make(map[string]map[*subscriber]struct{}),
	}
}

// Publish records ev and delivers it to the subscribers of graph.
// Slow subscribers whose buffer is full miss the event.
func (b *EventBus) Publish(ctx context.Context, graph string, ev domain.GraphEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.recorded[graph] = append(b.recorded[graph], ev)
	for s := range b.subs[graph] {
		select {
		case s.ch <- ev:
		default:
		}
	}
	return nil
}

// Subscribe returns a channel receiving the events published for graph.
func (b *EventBus) Subscribe(ctx context.Context, graph string) (<-chan domain.GraphEvent, func(), error) {
	s := &subscriber{
		ch:   make(chan domain.GraphEvent, subscriberBuffer),
		done: make(chan struct{}),
	}

	b.mu.Lock()
	if b.subs[graph] == nil {
		b.subs[graph] = make(map[*subscriber]struct{})
	}
	b.subs[graph][s] = struct{}{}
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		delete(b.subs[graph], s)
		if len(b.subs[graph]) == 0 {
			delete(b.subs, graph)
		}
		b.mu.Unlock()
		s.close()
	}

	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-s.done:
		}
	}()

	return s.ch, cancel, nil
}

// Recorded returns a copy of the events published for graph.
func (b *EventBus) Recorded(graph string) []domain.GraphEvent {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]domain.GraphEvent(nil), b.recorded[graph]...)
}

// Reset forgets the recorded events of graph.
func (b *EventBus) Reset(graph string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.recorded, graph)
}
