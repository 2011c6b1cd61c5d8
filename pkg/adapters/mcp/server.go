package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"golang.org/x/sync/errgroup"

	"github.com/aretw0/weft"
	"github.com/aretw0/weft/internal/logging"
	mermaid "github.com/aretw0/weft/internal/presentation/graph"
	"github.com/aretw0/weft/pkg/domain"
	"github.com/aretw0/weft/pkg/graph"
	"github.com/aretw0/weft/pkg/registry"
	"github.com/aretw0/weft/pkg/runner"
)

// DefaultSession is the session edited by the MCP tools.
const DefaultSession = "default"

// Sessions is the part of session.Manager the server depends on.
type Sessions interface {
	Ensure(ctx context.Context, id string) error
	Do(ctx context.Context, id string, fn func(context.Context, *weft.Editor) error) error
}

// NodeResult is returned by add_node.
type NodeResult struct {
	Node graph.NodeSnapshot `json:"node" jsonschema_description:"The created node and its ports"`
}

// ConnectionResult is returned by connect.
type ConnectionResult struct {
	Output   domain.PortID `json:"output" jsonschema_description:"The producing output port"`
	Input    domain.PortID `json:"input" jsonschema_description:"The consuming input port"`
	Replaced bool          `json:"replaced" jsonschema_description:"Whether reconnect semantics were used"`
}

// ResolveResult is returned by resolve.
type ResolveResult struct {
	Node   domain.NodeID `json:"node" jsonschema_description:"The resolved node"`
	Value  domain.Value  `json:"value" jsonschema_description:"The computed value"`
	Text   string        `json:"text" jsonschema_description:"Human readable form of the value"`
	Cycles []string      `json:"cycles,omitempty" jsonschema_description:"Cycles broken with an empty value"`
}

// Server exposes the default graph session as an MCP Server.
type Server struct {
	sessions  Sessions
	session   string
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// Option configures the Server.
type Option func(*Server)

// WithSession selects the session edited by the tools (default: DefaultSession).
func WithSession(id string) Option {
	return func(s *Server) {
		s.session = id
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(sessions Sessions, opts ...Option) *Server {
	s := &Server{
		sessions:  sessions,
		session:   DefaultSession,
		logger:    logging.NewNop(),
		mcpServer: server.NewMCPServer("weft-mcp", strings.TrimSpace(weft.Version)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying mcp-go server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio(ctx context.Context) error {
	if err := s.sessions.Ensure(ctx, s.session); err != nil {
		return err
	}
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE and stops it when
// ctx is done.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	if err := s.sessions.Ensure(ctx, s.session); err != nil {
		return err
	}

	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Info("Shutdown signal received, shutting down MCP server")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	})
	return g.Wait()
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With, Baggage, Sentry-Trace")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("list_kinds",
		mcp.WithDescription("List the node kinds that add_node accepts, with their ports."),
	), s.handleListKinds)

	addNodeTool := mcp.NewTool("add_node",
		mcp.WithDescription("Add a node of a registered kind to the graph."),
		mcp.WithString("kind", mcp.Required(), mcp.Description("Kind name, see list_kinds")),
		mcp.WithString("params", mcp.Description(`JSON object of kind parameters, e.g. {"value": 5} for constant`)),
		mcp.WithOutputSchema[NodeResult](),
	)
	s.mcpServer.AddTool(addNodeTool, mcp.NewStructuredToolHandler(s.handleAddNode))

	connectTool := mcp.NewTool("connect",
		mcp.WithDescription("Connect a node output to a node input. Fails if the input is already fed unless replace is set."),
		mcp.WithString("from", mcp.Required(), mcp.Description("Producing node handle, e.g. n1")),
		mcp.WithString("from_port", mcp.Description("Output label (optional when the node has one output)")),
		mcp.WithString("to", mcp.Required(), mcp.Description("Consuming node handle, e.g. n3")),
		mcp.WithString("to_port", mcp.Required(), mcp.Description("Input label")),
		mcp.WithBoolean("replace", mcp.Description("Replace the current producer of the input")),
		mcp.WithOutputSchema[ConnectionResult](),
	)
	s.mcpServer.AddTool(connectTool, mcp.NewStructuredToolHandler(s.handleConnect))

	s.mcpServer.AddTool(mcp.NewTool("disconnect",
		mcp.WithDescription("Remove the connection feeding a node input."),
		mcp.WithString("node", mcp.Required(), mcp.Description("Node handle, e.g. n3")),
		mcp.WithString("port", mcp.Required(), mcp.Description("Input label")),
	), s.handleDisconnect)

	s.mcpServer.AddTool(mcp.NewTool("remove_node",
		mcp.WithDescription("Remove a node and every connection touching it."),
		mcp.WithString("node", mcp.Required(), mcp.Description("Node handle, e.g. n3")),
	), s.handleRemoveNode)

	resolveTool := mcp.NewTool("resolve",
		mcp.WithDescription("Compute the current output value of a node."),
		mcp.WithString("node", mcp.Required(), mcp.Description("Node handle, e.g. n3")),
		mcp.WithString("output", mcp.Description("Output label (optional)")),
		mcp.WithOutputSchema[ResolveResult](),
	)
	s.mcpServer.AddTool(resolveTool, mcp.NewStructuredToolHandler(s.handleResolve))

	s.mcpServer.AddTool(mcp.NewTool("get_graph",
		mcp.WithDescription("Get the current graph topology for introspection."),
		mcp.WithString("format", mcp.Description(`"json" (default) or "mermaid"`)),
	), s.handleGetGraph)
}

func (s *Server) do(ctx context.Context, fn func(context.Context, *weft.Editor) error) error {
	if err := s.sessions.Ensure(ctx, s.session); err != nil {
		return err
	}
	return s.sessions.Do(ctx, s.session, fn)
}

func (s *Server) handleListKinds(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var kinds []registry.Descriptor
	err := s.do(ctx, func(_ context.Context, ed *weft.Editor) error {
		var err error
		kinds, err = ed.Registry().DescribeAll()
		return err
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("list kinds failed: %v", err)), nil
	}
	jsonBytes, _ := json.Marshal(kinds)
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func (s *Server) handleAddNode(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (NodeResult, error) {
	kind, _ := args["kind"].(string)

	var params map[string]any
	if raw, ok := args["params"].(string); ok && raw != "" {
		clean, err := runner.SanitizeParams(raw)
		if err != nil {
			s.logger.Warn("MCP add_node: params rejected", "err", err, "size", len(raw))
			return NodeResult{}, fmt.Errorf("params rejected: %w", err)
		}
		if err := json.Unmarshal([]byte(clean), &params); err != nil {
			return NodeResult{}, fmt.Errorf("params must be a JSON object: %w", err)
		}
	}

	var res NodeResult
	err := s.do(ctx, func(_ context.Context, ed *weft.Editor) error {
		id, err := ed.AddNodeByName(kind, params)
		if err != nil {
			return err
		}
		res.Node, _ = ed.Snapshot().Node(id)
		return nil
	})
	if err != nil {
		return NodeResult{}, fmt.Errorf("add_node failed: %w", err)
	}
	return res, nil
}

func (s *Server) handleConnect(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (ConnectionResult, error) {
	from, err := nodeArg(args, "from")
	if err != nil {
		return ConnectionResult{}, err
	}
	to, err := nodeArg(args, "to")
	if err != nil {
		return ConnectionResult{}, err
	}
	fromPort, _ := args["from_port"].(string)
	toPort, _ := args["to_port"].(string)
	replace, _ := args["replace"].(bool)

	res := ConnectionResult{Replaced: replace}
	err = s.do(ctx, func(_ context.Context, ed *weft.Editor) error {
		if err := ed.Wire(from, fromPort, to, toPort, replace); err != nil {
			return err
		}
		res.Input, _ = ed.InputPort(to, toPort)
		res.Output, _ = ed.ProducerOf(res.Input)
		return nil
	})
	if err != nil {
		return ConnectionResult{}, fmt.Errorf("connect failed: %w", err)
	}
	return res, nil
}

func (s *Server) handleDisconnect(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	node, err := nodeArg(args, "node")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	label, _ := args["port"].(string)

	err = s.do(ctx, func(_ context.Context, ed *weft.Editor) error {
		in, err := ed.InputPort(node, label)
		if err != nil {
			return err
		}
		return ed.Disconnect(in)
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("disconnect failed: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("disconnected %s.%s", node, label)), nil
}

func (s *Server) handleRemoveNode(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	node, err := nodeArg(request.GetArguments(), "node")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	err = s.do(ctx, func(_ context.Context, ed *weft.Editor) error {
		return ed.RemoveNode(node)
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("remove_node failed: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("removed %s", node)), nil
}

func (s *Server) handleResolve(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (ResolveResult, error) {
	node, err := nodeArg(args, "node")
	if err != nil {
		return ResolveResult{}, err
	}
	label, _ := args["output"].(string)

	res := ResolveResult{Node: node}
	err = s.do(ctx, func(ctx context.Context, ed *weft.Editor) error {
		var v domain.Value
		var err error
		if label == "" {
			v, err = ed.Resolve(ctx, node)
		} else {
			out, perr := ed.OutputPort(node, label)
			if perr != nil {
				return perr
			}
			v, err = ed.ResolvePort(ctx, out)
		}
		if errors.Is(err, domain.ErrCycleDetected) && !errors.As(err, new(*domain.NodeError)) {
			res.Cycles = cycleStrings(err)
			err = nil
		}
		res.Value = v
		res.Text = v.String()
		return err
	})
	if err != nil {
		return ResolveResult{}, fmt.Errorf("resolve failed: %w", err)
	}
	return res, nil
}

func (s *Server) handleGetGraph(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	format := request.GetString("format", "json")

	var snap graph.Snapshot
	err := s.do(ctx, func(_ context.Context, ed *weft.Editor) error {
		snap = ed.Snapshot()
		return nil
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("inspect failed: %v", err)), nil
	}

	switch format {
	case "mermaid":
		return mcp.NewToolResultText(mermaid.GenerateMermaid(snap, nil)), nil
	case "json", "":
		jsonBytes, _ := json.Marshal(snap)
		return mcp.NewToolResultText(string(jsonBytes)), nil
	default:
		return mcp.NewToolResultError(fmt.Sprintf("unknown format %q", format)), nil
	}
}

func (s *Server) registerResources() {
	// EXPOSE: weft://graph
	s.mcpServer.AddResource(mcp.NewResource("weft://graph", "Current Graph Topology",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		var snap graph.Snapshot
		err := s.do(ctx, func(_ context.Context, ed *weft.Editor) error {
			snap = ed.Snapshot()
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to inspect graph: %w", err)
		}
		jsonBytes, _ := json.Marshal(snap)

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      "weft://graph",
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})
}

func nodeArg(args map[string]interface{}, key string) (domain.NodeID, error) {
	raw, _ := args[key].(string)
	id, err := domain.ParseNodeID(raw)
	if err != nil {
		return domain.NoNode, fmt.Errorf("%s: %w", key, err)
	}
	return id, nil
}

func cycleStrings(err error) []string {
	var out []string
	var walk func(error)
	walk = func(err error) {
		if joined, ok := err.(interface{ Unwrap() []error }); ok {
			for _, e := range joined.Unwrap() {
				walk(e)
			}
			return
		}
		var cerr *domain.CycleError
		if errors.As(err, &cerr) {
			out = append(out, cerr.Error())
		}
	}
	walk(err)
	return out
}
