package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/aretw0/weft/internal/logging"
	"github.com/aretw0/weft/pkg/domain"
	"github.com/aretw0/weft/pkg/ports"
)

// StreamManager handles active SSE connections. It is an event publisher:
// register it with the session manager to feed the streams.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan domain.GraphEvent]struct{} // SessionID -> Set of Channels
	logger      *slog.Logger
}

var _ ports.EventPublisher = (*StreamManager)(nil)

// NewStreamManager creates an empty stream manager.
func NewStreamManager() *StreamManager {
	return &StreamManager{
		subscribers: make(map[string]map[chan domain.GraphEvent]struct{}),
		logger:      logging.NewNop(),
	}
}

// SetLogger replaces the logger used to report dropped events.
func (sm *StreamManager) SetLogger(logger *slog.Logger) {
	sm.logger = logger
}

// Subscribe registers a listener for sessionID.
func (sm *StreamManager) Subscribe(sessionID string) (<-chan domain.GraphEvent, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan domain.GraphEvent, 16)
	if _, ok := sm.subscribers[sessionID]; !ok {
		sm.subscribers[sessionID] = make(map[chan domain.GraphEvent]struct{})
	}
	sm.subscribers[sessionID][ch] = struct{}{}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			sm.mu.Lock()
			defer sm.mu.Unlock()
			if subs, ok := sm.subscribers[sessionID]; ok {
				delete(subs, ch)
				close(ch)
				if len(subs) == 0 {
					delete(sm.subscribers, sessionID)
				}
			}
		})
	}
}

// Publish broadcasts ev to the listeners of sessionID without blocking.
func (sm *StreamManager) Publish(_ context.Context, sessionID string, ev domain.GraphEvent) error {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	for ch := range sm.subscribers[sessionID] {
		select {
		case ch <- ev:
		default:
			// Drop message if channel is full (slow client)
			sm.logger.Warn("SSE: Client buffer full, dropping event", "session_id", sessionID, "seq", ev.Seq)
		}
	}
	return nil
}

// SubscribeEvents handles the GET /sessions/{sid}/events request (SSE).
//
// Query filters: "types" keeps a comma separated list of event types and
// "node" keeps the events touching one node.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		s.logger.Error("SubscribeEvents: Streaming not supported")
		return
	}

	sessionID := chi.URLParam(r, "sid")
	if _, err := s.Sessions.Info(r.Context(), sessionID); err != nil {
		s.writeError(w, r, err)
		return
	}

	match, err := eventFilter(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	ch, cancel := s.Streams.Subscribe(sessionID)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	s.logger.Info("SSE: Subscribing to Session Updates", "session_id", sessionID)
	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Info("SSE Client Disconnected", "session_id", sessionID)
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			if !match(ev) {
				continue
			}
			payload, err := json.Marshal(ev)
			if err != nil {
				s.logger.Error("SSE: event encode failed", "err", err)
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, payload)
			flusher.Flush()
		}
	}
}

func eventFilter(r *http.Request) (func(domain.GraphEvent) bool, error) {
	q := r.URL.Query()

	types := make(map[domain.EventType]bool)
	if raw := q.Get("types"); raw != "" {
		for _, t := range strings.Split(raw, ",") {
			types[domain.EventType(strings.TrimSpace(t))] = true
		}
	}

	node := domain.NoNode
	if raw := q.Get("node"); raw != "" {
		id, err := domain.ParseNodeID(raw)
		if err != nil {
			return nil, err
		}
		node = id
	}

	return func(ev domain.GraphEvent) bool {
		if len(types) > 0 && !types[ev.Type] {
			return false
		}
		return node == domain.NoNode || ev.Touches(node)
	}, nil
}
