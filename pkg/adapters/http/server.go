package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/aretw0/weft"
	"github.com/aretw0/weft/internal/logging"
	mermaid "github.com/aretw0/weft/internal/presentation/graph"
	"github.com/aretw0/weft/pkg/domain"
	"github.com/aretw0/weft/pkg/graph"
	"github.com/aretw0/weft/pkg/kinds"
	"github.com/aretw0/weft/pkg/registry"
	"github.com/aretw0/weft/pkg/session"
)

// Sessions is the part of session.Manager the server depends on.
type Sessions interface {
	Create(ctx context.Context, id string) (string, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]string, error)
	Info(ctx context.Context, id string) (session.Info, error)
	Do(ctx context.Context, id string, fn func(context.Context, *weft.Editor) error) error
}

// Server exposes graph sessions over HTTP.
type Server struct {
	Sessions Sessions
	Kinds    *registry.Registry
	Streams  *StreamManager
	logger   *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithStreams serves GET /sessions/{sid}/events from sm. The same manager must
// be registered as an event publisher of the sessions to receive anything.
func WithStreams(sm *StreamManager) Option {
	return func(s *Server) {
		s.Streams = sm
	}
}

// WithKinds sets the registry listed by GET /kinds (default: the builtins).
func WithKinds(r *registry.Registry) Option {
	return func(s *Server) {
		s.Kinds = r
	}
}

// NewHandler creates a new HTTP handler over the session manager.
func NewHandler(sessions Sessions, opts ...Option) http.Handler {
	s := &Server{
		Sessions: sessions,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.Kinds == nil {
		s.Kinds = kinds.NewRegistry(io.Discard)
	}
	if s.Streams == nil {
		s.Streams = NewStreamManager()
	}

	r := chi.NewRouter()
	r.Use(enableCORS)

	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Get("/kinds", s.ListKinds)

	r.Route("/sessions", func(r chi.Router) {
		r.Get("/", s.ListSessions)
		r.Post("/", s.CreateSession)
		r.Route("/{sid}", func(r chi.Router) {
			r.Get("/", s.GetSession)
			r.Delete("/", s.DeleteSession)
			r.Get("/events", s.SubscribeEvents)
			r.Get("/graph", s.GetGraph)
			r.Get("/graph.mmd", s.GetMermaid)
			r.Post("/nodes", s.AddNode)
			r.Delete("/nodes/{nid}", s.RemoveNode)
			r.Get("/nodes/{nid}/value", s.Resolve)
			r.Post("/connections", s.Connect)
			r.Delete("/connections/{pid}", s.Disconnect)
			r.Get("/ports/{pid}/producer", s.GetProducer)
		})
	})

	return r
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Custom-Header")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"app":     "weft-http",
		"version": strings.TrimSpace(weft.Version),
	})
}

// ListKinds handles the GET /kinds request.
func (s *Server) ListKinds(w http.ResponseWriter, r *http.Request) {
	kinds, err := s.Kinds.DescribeAll()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, kinds)
}

// ListSessions handles the GET /sessions request.
func (s *Server) ListSessions(w http.ResponseWriter, r *http.Request) {
	ids, err := s.Sessions.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string][]string{"sessions": ids})
}

// CreateSessionRequest is the optional body of POST /sessions.
type CreateSessionRequest struct {
	ID string `json:"id"`
}

// CreateSession handles the POST /sessions request.
func (s *Server) CreateSession(w http.ResponseWriter, r *http.Request) {
	var body CreateSessionRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			s.badRequest(w, "Invalid request body", err)
			return
		}
	}
	id, err := s.Sessions.Create(r.Context(), body.ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.logger.Info("Session created", "session_id", id)
	s.writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

// GetSession handles the GET /sessions/{sid} request.
func (s *Server) GetSession(w http.ResponseWriter, r *http.Request) {
	info, err := s.Sessions.Info(r.Context(), chi.URLParam(r, "sid"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, info)
}

// DeleteSession handles the DELETE /sessions/{sid} request.
func (s *Server) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.Sessions.Delete(r.Context(), chi.URLParam(r, "sid")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetGraph handles the GET /sessions/{sid}/graph request.
func (s *Server) GetGraph(w http.ResponseWriter, r *http.Request) {
	var snap graph.Snapshot
	err := s.do(r, func(_ context.Context, ed *weft.Editor) error {
		snap = ed.Snapshot()
		return nil
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, snap)
}

// GetMermaid handles the GET /sessions/{sid}/graph.mmd request.
func (s *Server) GetMermaid(w http.ResponseWriter, r *http.Request) {
	var snap graph.Snapshot
	err := s.do(r, func(_ context.Context, ed *weft.Editor) error {
		snap = ed.Snapshot()
		return nil
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, mermaid.GenerateMermaid(snap, nil))
}

// AddNodeRequest is the body of POST /sessions/{sid}/nodes.
type AddNodeRequest struct {
	Kind   string         `json:"kind"`
	Params map[string]any `json:"params,omitempty"`
}

// AddNode handles the POST /sessions/{sid}/nodes request.
func (s *Server) AddNode(w http.ResponseWriter, r *http.Request) {
	var body AddNodeRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.badRequest(w, "Invalid request body", err)
		return
	}

	var node graph.NodeSnapshot
	err := s.do(r, func(_ context.Context, ed *weft.Editor) error {
		id, err := ed.AddNodeByName(body.Kind, body.Params)
		if err != nil {
			return err
		}
		node, _ = ed.Snapshot().Node(id)
		return nil
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, node)
}

// RemoveNode handles the DELETE /sessions/{sid}/nodes/{nid} request.
func (s *Server) RemoveNode(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseNodeID(chi.URLParam(r, "nid"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	err = s.do(r, func(_ context.Context, ed *weft.Editor) error {
		return ed.RemoveNode(id)
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ValueResponse is returned by GET /sessions/{sid}/nodes/{nid}/value.
// Cycles lists the cycles broken while computing Value.
type ValueResponse struct {
	Node   domain.NodeID `json:"node"`
	Output string        `json:"output,omitempty"`
	Value  domain.Value  `json:"value"`
	Cycles [][]string    `json:"cycles,omitempty"`
}

// Resolve handles the GET /sessions/{sid}/nodes/{nid}/value request.
// The optional "output" query parameter selects an output by label.
func (s *Server) Resolve(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseNodeID(chi.URLParam(r, "nid"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	label := r.URL.Query().Get("output")

	resp := ValueResponse{Node: id, Output: label}
	err = s.do(r, func(ctx context.Context, ed *weft.Editor) error {
		var v domain.Value
		var err error
		if label == "" {
			v, err = ed.Resolve(ctx, id)
		} else {
			out, perr := ed.OutputPort(id, label)
			if perr != nil {
				return perr
			}
			v, err = ed.ResolvePort(ctx, out)
		}
		cycles, rest := splitCycles(err)
		resp.Value = v
		resp.Cycles = cycles
		return rest
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// ConnectRequest is the body of POST /sessions/{sid}/connections.
// Endpoints are given either as port handles (Output, Input) or as node
// handles with port labels (From, FromPort, To, ToPort).
type ConnectRequest struct {
	Output   domain.PortID `json:"output,omitempty"`
	Input    domain.PortID `json:"input,omitempty"`
	From     domain.NodeID `json:"from,omitempty"`
	FromPort string        `json:"from_port,omitempty"`
	To       domain.NodeID `json:"to,omitempty"`
	ToPort   string        `json:"to_port,omitempty"`

	// Replace selects reconnect semantics.
	Replace bool `json:"replace,omitempty"`
}

// Connect handles the POST /sessions/{sid}/connections request.
func (s *Server) Connect(w http.ResponseWriter, r *http.Request) {
	var body ConnectRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.badRequest(w, "Invalid request body", err)
		return
	}

	var conn graph.Connection
	err := s.do(r, func(_ context.Context, ed *weft.Editor) error {
		out, in, err := body.endpoints(ed)
		if err != nil {
			return err
		}
		if body.Replace {
			err = ed.Reconnect(out, in)
		} else {
			err = ed.Connect(out, in)
		}
		conn = graph.Connection{Output: out, Input: in}
		return err
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, conn)
}

func (c ConnectRequest) endpoints(ed *weft.Editor) (out, in domain.PortID, err error) {
	out, in = c.Output, c.Input
	if out == domain.NoPort {
		if out, err = ed.OutputPort(c.From, c.FromPort); err != nil {
			return
		}
	}
	if in == domain.NoPort {
		in, err = ed.InputPort(c.To, c.ToPort)
	}
	return
}

// Disconnect handles the DELETE /sessions/{sid}/connections/{pid} request,
// where pid is the input port.
func (s *Server) Disconnect(w http.ResponseWriter, r *http.Request) {
	in, err := domain.ParsePortID(chi.URLParam(r, "pid"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	err = s.do(r, func(_ context.Context, ed *weft.Editor) error {
		return ed.Disconnect(in)
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ProducerResponse is returned by GET /sessions/{sid}/ports/{pid}/producer.
type ProducerResponse struct {
	Input     domain.PortID   `json:"input"`
	Connected bool            `json:"connected"`
	Producer  domain.PortID   `json:"producer,omitempty"`
	Consumers []domain.PortID `json:"consumers,omitempty"`
}

// GetProducer handles the GET /sessions/{sid}/ports/{pid}/producer request.
// For an output port it lists the consumers instead.
func (s *Server) GetProducer(w http.ResponseWriter, r *http.Request) {
	pid, err := domain.ParsePortID(chi.URLParam(r, "pid"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var resp ProducerResponse
	err = s.do(r, func(_ context.Context, ed *weft.Editor) error {
		port, err := ed.Port(pid)
		if err != nil {
			return err
		}
		if port.Direction == domain.DirectionOutput {
			resp.Consumers = ed.ConsumersOf(pid)
			return nil
		}
		resp.Input = pid
		resp.Producer, resp.Connected = ed.ProducerOf(pid)
		return nil
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) do(r *http.Request, fn func(context.Context, *weft.Editor) error) error {
	return s.Sessions.Do(r.Context(), chi.URLParam(r, "sid"), fn)
}

// splitCycles separates the cycle reports of a resolution from a real failure.
func splitCycles(err error) (cycles [][]string, rest error) {
	if err == nil {
		return nil, nil
	}
	errs := []error{err}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		errs = joined.Unwrap()
	}
	var others []error
	for _, e := range errs {
		var cerr *domain.CycleError
		if errors.As(e, &cerr) {
			path := make([]string, len(cerr.Path))
			for i, id := range cerr.Path {
				path[i] = id.String()
			}
			cycles = append(cycles, path)
			continue
		}
		others = append(others, e)
	}
	return cycles, errors.Join(others...)
}
