package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/weft/internal/logging"
	"github.com/aretw0/weft/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

const (
	// DefaultHistory is how many recent events are kept per graph.
	DefaultHistory = 256
	// DefaultQueueSize bounds the events waiting to be written.
	DefaultQueueSize = 1024
	// DefaultWriteTimeout bounds a single write to Redis.
	DefaultWriteTimeout = 2 * time.Second
)

var (
	// ErrQueueFull is returned by Publish when the write queue is saturated.
	// The event is dropped.
	ErrQueueFull = errors.New("redis event queue full")
	// ErrClosed is returned by Publish and Flush after Close.
	ErrClosed = errors.New("redis event bus closed")
)

// EventBus implements ports.EventBus using Redis pub/sub.
// Every event is also appended to a capped per-graph history list.
//
// Publish only enqueues: a single goroutine owned by the bus writes events
// in order, so a slow or unreachable Redis never blocks the graph mutation
// that emitted the event. Close drains the queue before releasing the client.
type EventBus struct {
	client  *backend.Client
	logger  *slog.Logger
	prefix  string
	ttl     time.Duration
	history int64
	timeout time.Duration
	size    int

	mu     sync.RWMutex
	closed bool
	queue  chan queued
	done   chan struct{}
}

// queued is one event, or a flush marker when flushed is set.
type queued struct {
	graph   string
	data    []byte
	flushed chan struct{}
}

type Option func(*EventBus)

// WithTTL sets the expiration of a graph's history after its last event.
func WithTTL(ttl time.Duration) Option {
	return func(b *EventBus) {
		b.ttl = ttl
	}
}

// WithPrefix sets the key and channel prefix.
func WithPrefix(prefix string) Option {
	return func(b *EventBus) {
		b.prefix = prefix
	}
}

// WithLogger sets the logger used to report failed writes.
func WithLogger(logger *slog.Logger) Option {
	return func(b *EventBus) {
		b.logger = logger
	}
}

// WithQueueSize bounds the number of events waiting to be written.
func WithQueueSize(n int) Option {
	return func(b *EventBus) {
		b.size = n
	}
}

// WithWriteTimeout bounds each write to Redis. Clients built by NewFromURL
// honour it on the wire; for NewFromClient, enable ContextTimeoutEnabled on
// the client.
func WithWriteTimeout(d time.Duration) Option {
	return func(b *EventBus) {
		b.timeout = d
	}
}

// WithHistory sets how many events are retained per graph. Zero disables history.
func WithHistory(n int) Option {
	return func(b *EventBus) {
		b.history = int64(n)
	}
}

// New creates a new Redis event bus with options.
func New(address, password string, db int, opts ...Option) *EventBus {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromURL creates an event bus from a redis:// URL.
func NewFromURL(url string, opts ...Option) (*EventBus, error) {
	o, err := backend.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	o.ContextTimeoutEnabled = true
	return NewFromClient(backend.NewClient(o), opts...), nil
}

// NewFromClient creates a new Redis event bus from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *EventBus {
	bus := &EventBus{
		client:  client,
		prefix:  "weft:",
		ttl:     0, // No expiration by default
		history: DefaultHistory,
		timeout: DefaultWriteTimeout,
		size:    DefaultQueueSize,
	}

	for _, opt := range opts {
		opt(bus)
	}
	if bus.logger == nil {
		bus.logger = logging.NewNop()
	}
	if bus.size < 1 {
		bus.size = 1
	}

	bus.queue = make(chan queued, bus.size)
	bus.done = make(chan struct{})
	go bus.loop()
	return bus
}

func (b *EventBus) channel(graph string) string {
	return b.prefix + "events:" + graph
}

func (b *EventBus) historyKey(graph string) string {
	return b.prefix + "history:" + graph
}

func (b *EventBus) indexKey() string {
	return b.prefix + "graphs"
}

// Publish queues ev to be sent on the graph's channel and appended to the
// history. It never waits on Redis; when the queue is full the event is
// dropped and ErrQueueFull returned.
func (b *EventBus) Publish(_ context.Context, graph string, ev domain.GraphEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrClosed
	}
	select {
	case b.queue <- queued{graph: graph, data: data}:
		return nil
	default:
		return fmt.Errorf("%w: graph=%s seq=%d", ErrQueueFull, graph, ev.Seq)
	}
}

// Flush waits until every event published before the call has been written.
func (b *EventBus) Flush(ctx context.Context) error {
	marker := queued{flushed: make(chan struct{})}

	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return ErrClosed
	}
	select {
	case b.queue <- marker:
		b.mu.RUnlock()
	case <-ctx.Done():
		b.mu.RUnlock()
		return ctx.Err()
	}

	select {
	case <-marker.flushed:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *EventBus) loop() {
	defer close(b.done)
	for w := range b.queue {
		if w.flushed != nil {
			close(w.flushed)
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
		if err := b.write(ctx, w.graph, w.data); err != nil {
			b.logger.Warn("Failed to write graph event", "graph", w.graph, "err", err)
		}
		cancel()
	}
}

func (b *EventBus) write(ctx context.Context, graph string, data []byte) error {
	pipe := b.client.Pipeline()
	pipe.Publish(ctx, b.channel(graph), data)

	if b.history > 0 {
		pipe.RPush(ctx, b.historyKey(graph), data)
		pipe.LTrim(ctx, b.historyKey(graph), -b.history, -1)
		if b.ttl > 0 {
			pipe.Expire(ctx, b.historyKey(graph), b.ttl)
		}

		// Score = Now + TTL. If TTL = 0, Score = +Inf (approx).
		score := float64(time.Now().Add(b.ttl).Unix())
		if b.ttl == 0 {
			score = 4102444800 // 2100-01-01
		}
		pipe.ZAdd(ctx, b.indexKey(), backend.Z{Score: score, Member: graph})
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to publish to redis: %w", err)
	}
	return nil
}

// Subscribe listens on the graph's channel. It returns once the subscription
// is confirmed, so events published afterwards are not missed.
func (b *EventBus) Subscribe(ctx context.Context, graph string) (<-chan domain.GraphEvent, func(), error) {
	ps := b.client.Subscribe(ctx, b.channel(graph))
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, nil, fmt.Errorf("failed to subscribe: %w", err)
	}

	out := make(chan domain.GraphEvent)
	done := make(chan struct{})
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			close(done)
			_ = ps.Close()
		})
	}

	go func() {
		defer close(out)
		msgs := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				cancel()
				return
			case <-done:
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var ev domain.GraphEvent
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					continue
				}
				select {
				case out <- ev:
				case <-done:
					return
				case <-ctx.Done():
					cancel()
					return
				}
			}
		}
	}()

	return out, cancel, nil
}

// History returns up to the last n events published for graph, oldest first.
// n <= 0 returns the whole retained history.
func (b *EventBus) History(ctx context.Context, graph string, n int) ([]domain.GraphEvent, error) {
	start := int64(0)
	if n > 0 {
		start = int64(-n)
	}
	raw, err := b.client.LRange(ctx, b.historyKey(graph), start, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}

	events := make([]domain.GraphEvent, 0, len(raw))
	for _, item := range raw {
		var ev domain.GraphEvent
		if err := json.Unmarshal([]byte(item), &ev); err != nil {
			return nil, fmt.Errorf("failed to unmarshal event: %w", err)
		}
		events = append(events, ev)
	}
	return events, nil
}

// Graphs returns the graphs with retained history, pruning expired entries.
func (b *EventBus) Graphs(ctx context.Context) ([]string, error) {
	now := float64(time.Now().Unix())
	if err := b.client.ZRemRangeByScore(ctx, b.indexKey(), "-inf", fmt.Sprintf("%f", now)).Err(); err != nil {
		return nil, fmt.Errorf("failed to prune expired graphs: %w", err)
	}

	graphs, err := b.client.ZRange(ctx, b.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list graphs: %w", err)
	}
	return graphs, nil
}

// Forget drops the history of graph.
func (b *EventBus) Forget(ctx context.Context, graph string) error {
	pipe := b.client.Pipeline()
	pipe.Del(ctx, b.historyKey(graph))
	pipe.ZRem(ctx, b.indexKey(), graph)
	_, err := pipe.Exec(ctx)
	return err
}

// Close stops accepting events, writes the queued ones and closes the
// redis client.
func (b *EventBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	close(b.queue)
	b.mu.Unlock()

	<-b.done
	return b.client.Close()
}
