package mcp

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/weft"
	"github.com/aretw0/weft/pkg/domain"
	"github.com/aretw0/weft/pkg/runner"
	"github.com/aretw0/weft/pkg/session"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	m := session.NewManager(session.WithEditorOptions(weft.WithOutput(io.Discard)))
	return NewServer(m)
}

func callRequest(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, res)
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content, got %T", res.Content[0])
	return text.Text
}

func TestServer_BuildAndResolve(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	add := func(kind, params string) domain.NodeID {
		args := map[string]any{"kind": kind}
		if params != "" {
			args["params"] = params
		}
		res, err := s.handleAddNode(ctx, callRequest(args), args)
		require.NoError(t, err)
		return res.Node.ID
	}

	v1 := add("constant", `{"value": 5}`)
	v2 := add("constant", `{"value": 7}`)
	sum := add("add", "")

	for _, args := range []map[string]any{
		{"from": v1.String(), "to": sum.String(), "to_port": "a"},
		{"from": v2.String(), "to": sum.String(), "to_port": "b"},
	} {
		res, err := s.handleConnect(ctx, callRequest(args), args)
		require.NoError(t, err)
		assert.NotEqual(t, domain.NoPort, res.Output)
	}

	args := map[string]any{"node": sum.String()}
	res, err := s.handleResolve(ctx, callRequest(args), args)
	require.NoError(t, err)
	assert.Equal(t, 12.0, res.Value.MustNumber())
	assert.Equal(t, "12", res.Text)

	t.Run("AlreadyConnected", func(t *testing.T) {
		args := map[string]any{"from": v2.String(), "to": sum.String(), "to_port": "a"}
		_, err := s.handleConnect(ctx, callRequest(args), args)
		assert.ErrorIs(t, err, domain.ErrAlreadyConnected)

		args["replace"] = true
		res, err := s.handleConnect(ctx, callRequest(args), args)
		require.NoError(t, err)
		assert.True(t, res.Replaced)

		args = map[string]any{"node": sum.String()}
		v, err := s.handleResolve(ctx, callRequest(args), args)
		require.NoError(t, err)
		assert.Equal(t, 14.0, v.Value.MustNumber())
	})

	t.Run("Disconnect", func(t *testing.T) {
		out, err := s.handleDisconnect(ctx, callRequest(map[string]any{"node": sum.String(), "port": "a"}))
		require.NoError(t, err)
		assert.False(t, out.IsError, resultText(t, out))

		args := map[string]any{"node": sum.String()}
		v, err := s.handleResolve(ctx, callRequest(args), args)
		require.NoError(t, err)
		assert.Equal(t, 7.0, v.Value.MustNumber())
	})

	t.Run("GetGraph", func(t *testing.T) {
		out, err := s.handleGetGraph(ctx, callRequest(nil))
		require.NoError(t, err)
		var snap struct {
			Nodes []json.RawMessage `json:"nodes"`
		}
		require.NoError(t, json.Unmarshal([]byte(resultText(t, out)), &snap))
		assert.Len(t, snap.Nodes, 3)

		out, err = s.handleGetGraph(ctx, callRequest(map[string]any{"format": "mermaid"}))
		require.NoError(t, err)
		assert.Contains(t, resultText(t, out), "graph LR")

		out, err = s.handleGetGraph(ctx, callRequest(map[string]any{"format": "svg"}))
		require.NoError(t, err)
		assert.True(t, out.IsError)
	})

	t.Run("RemoveNode", func(t *testing.T) {
		out, err := s.handleRemoveNode(ctx, callRequest(map[string]any{"node": v2.String()}))
		require.NoError(t, err)
		assert.False(t, out.IsError)

		out, err = s.handleRemoveNode(ctx, callRequest(map[string]any{"node": v2.String()}))
		require.NoError(t, err)
		assert.True(t, out.IsError, "removing twice reports an error")
	})
}

func TestServer_AddNodeErrors(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	tests := []struct {
		name string
		args map[string]any
		want error
	}{
		{"UnknownKind", map[string]any{"kind": "warp"}, domain.ErrUnknownKind},
		{"BadParams", map[string]any{"kind": "add", "params": `{"x": 1}`}, domain.ErrInvalidKind},
		{"NotJSON", map[string]any{"kind": "constant", "params": `value=5`}, nil},
		{"OversizedParams", map[string]any{"kind": "constant", "params": `{"value": "` + strings.Repeat("x", runner.DefaultMaxParamsSize) + `"}`}, runner.ErrInputTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.handleAddNode(ctx, callRequest(tt.args), tt.args)
			require.Error(t, err)
			if tt.want != nil {
				assert.ErrorIs(t, err, tt.want)
			}
		})
	}
}

func TestServer_ResolveCycle(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	var x, y domain.NodeID
	err := s.do(ctx, func(_ context.Context, ed *weft.Editor) error {
		x, _ = ed.AddNodeByName("add", nil)
		y, _ = ed.AddNodeByName("add", nil)
		if err := ed.Wire(y, "", x, "a", false); err != nil {
			return err
		}
		return ed.Wire(x, "", y, "a", false)
	})
	require.NoError(t, err)

	args := map[string]any{"node": x.String()}
	res, err := s.handleResolve(ctx, callRequest(args), args)
	require.NoError(t, err)
	assert.Equal(t, 0.0, res.Value.MustNumber())
	require.Len(t, res.Cycles, 1)
	assert.Contains(t, res.Cycles[0], "cycle detected")
}

func TestServer_ListKinds(t *testing.T) {
	s := newTestServer(t)
	out, err := s.handleListKinds(context.Background(), callRequest(nil))
	require.NoError(t, err)
	text := resultText(t, out)
	for _, name := range []string{"constant", "add", "print", "split"} {
		assert.Contains(t, text, `"`+name+`"`)
	}
	assert.Contains(t, text, `"schema":{"a":"number","b":"number"}`)
}

func TestServer_ToolsRegistered(t *testing.T) {
	s := newTestServer(t)
	msg := s.MCPServer().HandleMessage(context.Background(),
		json.RawMessage(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))
	raw, err := json.Marshal(msg)
	require.NoError(t, err)
	for _, tool := range []string{"list_kinds", "add_node", "connect", "disconnect", "remove_node", "resolve", "get_graph"} {
		assert.Contains(t, string(raw), `"`+tool+`"`)
	}
}
