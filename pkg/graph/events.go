package graph

import (
	"sort"

	"github.com/aretw0/weft/pkg/domain"
)

// DefaultQueueCapacity bounds the Drain queue of a new Store.
const DefaultQueueCapacity = 1024

type eventHub struct {
	seq       uint64
	observers map[int]func(domain.GraphEvent)
	nextObs   int
	queue     []domain.GraphEvent
	capacity  int
	dropped   uint64
}

func newEventHub(capacity int) *eventHub {
	return &eventHub{
		observers: make(map[int]func(domain.GraphEvent)),
		capacity:  capacity,
	}
}

// emit stamps, queues and delivers events, in order.
func (h *eventHub) emit(events ...domain.GraphEvent) {
	for i := range events {
		h.seq++
		events[i].Seq = h.seq
	}
	h.queue = append(h.queue, events...)
	if h.capacity > 0 && len(h.queue) > h.capacity {
		over := len(h.queue) - h.capacity
		h.dropped += uint64(over)
		h.queue = append(h.queue[:0], h.queue[over:]...)
	}

	// Observers may subscribe or cancel while being notified.
	keys := make([]int, 0, len(h.observers))
	for k := range h.observers {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	for _, ev := range events {
		for _, k := range keys {
			if fn, ok := h.observers[k]; ok {
				fn(ev)
			}
		}
	}
}

// Subscribe registers fn to be called synchronously for every event, after the
// mutation that produced it has completed. The returned func cancels the subscription.
func (s *Store) Subscribe(fn func(domain.GraphEvent)) (cancel func()) {
	h := s.events
	h.nextObs++
	key := h.nextObs
	h.observers[key] = fn
	return func() {
		delete(h.observers, key)
	}
}

// Drain returns the queued events and empties the queue.
// Presentation layers call it once per frame.
func (s *Store) Drain() []domain.GraphEvent {
	out := s.events.queue
	s.events.queue = nil
	return out
}

// Dropped returns how many events were discarded because the queue was full.
func (s *Store) Dropped() uint64 { return s.events.dropped }
