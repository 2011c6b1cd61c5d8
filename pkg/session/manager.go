package session

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"log/slog"

	"github.com/google/uuid"

	"github.com/aretw0/weft"
	"github.com/aretw0/weft/internal/logging"
	"github.com/aretw0/weft/pkg/domain"
	"github.com/aretw0/weft/pkg/ports"
)

// Info describes a live session.
type Info struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Nodes     int       `json:"nodes"`
}

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

type sessionEntry struct {
	editor    *weft.Editor
	createdAt time.Time
}

// Manager owns a set of named in-memory graph editors and serializes every
// operation on a given session. It uses Reference Counting to garbage collect unused locks.
type Manager struct {
	mu       sync.Mutex               // Global lock for the maps
	locks    map[string]*lockEntry    // Map of active locks
	sessions map[string]*sessionEntry // Live sessions

	publisher  ports.EventPublisher
	editorOpts []weft.Option
	logger     *slog.Logger
	now        func() time.Time
}

// Option configures the Manager.
type Option func(*Manager)

// WithLogger configures a logger for the Manager and its editors.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithPublisher forwards the events of every session to p, on a stream named after the session ID.
func WithPublisher(p ports.EventPublisher) Option {
	return func(m *Manager) {
		m.publisher = p
	}
}

// WithEditorOptions appends options applied to every new editor.
func WithEditorOptions(opts ...weft.Option) Option {
	return func(m *Manager) {
		m.editorOpts = append(m.editorOpts, opts...)
	}
}

// NewManager creates a new Session Manager.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		locks:    make(map[string]*lockEntry),
		sessions: make(map[string]*sessionEntry),
		logger:   logging.NewNop(), // Default to no-op
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(sessionID) after unlocking.
func (m *Manager) acquire(sessionID string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[sessionID]
	if !exists {
		entry = &lockEntry{}
		m.locks[sessionID] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[sessionID]
	if !exists {
		return // Should not happen if paired correctly
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, sessionID)
	}
}

func (m *Manager) newEditor(id string) *weft.Editor {
	opts := []weft.Option{
		weft.WithName(id),
		weft.WithLogger(m.logger.With("session_id", id)),
	}
	if m.publisher != nil {
		opts = append(opts, weft.WithPublisher(m.publisher))
	}
	opts = append(opts, m.editorOpts...)
	return weft.New(opts...)
}

// Create starts an empty session. An empty id gets a random UUID.
func (m *Manager) Create(ctx context.Context, id string) (string, error) {
	if id == "" {
		id = uuid.NewString()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[id]; exists {
		return "", fmt.Errorf("%w: %s", domain.ErrSessionExists, id)
	}
	m.sessions[id] = &sessionEntry{editor: m.newEditor(id), createdAt: m.now()}
	m.logger.Debug("session created", "session_id", id)
	return id, nil
}

// Ensure creates the session if it does not exist yet.
func (m *Manager) Ensure(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[id]; !exists {
		m.sessions[id] = &sessionEntry{editor: m.newEditor(id), createdAt: m.now()}
		m.logger.Debug("session created", "session_id", id)
	}
	return nil
}

// Delete removes the session. In-flight operations on it complete first.
func (m *Manager) Delete(ctx context.Context, id string) error {
	return m.WithLock(ctx, id, func(ctx context.Context) error {
		m.mu.Lock()
		defer m.mu.Unlock()

		if _, exists := m.sessions[id]; !exists {
			return fmt.Errorf("%w: %s", domain.ErrSessionNotFound, id)
		}
		delete(m.sessions, id)
		m.logger.Debug("session deleted", "session_id", id)
		return nil
	})
}

// List returns the live session IDs, sorted.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Info describes a session.
func (m *Manager) Info(ctx context.Context, id string) (Info, error) {
	var info Info
	err := m.Do(ctx, id, func(ctx context.Context, ed *weft.Editor) error {
		m.mu.Lock()
		created := m.sessions[id].createdAt
		m.mu.Unlock()
		info = Info{ID: id, CreatedAt: created, Nodes: len(ed.Nodes())}
		return nil
	})
	return info, err
}

// Do runs fn with exclusive access to the session's editor.
func (m *Manager) Do(ctx context.Context, id string, fn func(context.Context, *weft.Editor) error) error {
	return m.WithLock(ctx, id, func(ctx context.Context) error {
		m.mu.Lock()
		entry, exists := m.sessions[id]
		m.mu.Unlock()

		if !exists {
			return fmt.Errorf("%w: %s", domain.ErrSessionNotFound, id)
		}
		return fn(ctx, entry.editor)
	})
}

// WithLock executes a function while holding the lock for the session.
func (m *Manager) WithLock(ctx context.Context, sessionID string, fn func(context.Context) error) error {
	entry := m.acquire(sessionID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(sessionID)
	}()

	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(ctx)
}
