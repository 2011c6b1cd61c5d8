package cli

import (
	"context"
	"fmt"

	"github.com/aretw0/weft/pkg/adapters/mcp"
)

// RunMCP exposes a graph to MCP clients over stdio or SSE.
// Empty arguments fall back to the config file.
func RunMCP(ctx context.Context, env *Env, transport string, port int) error {
	if transport == "" {
		transport = env.Config.MCP.Transport
	}
	if port == 0 {
		port = env.Config.MCP.Port
	}

	mgr, closeBus, err := env.NewSessionManager()
	if err != nil {
		return err
	}
	defer closeBus()

	srv := mcp.NewServer(mgr, mcp.WithLogger(env.Logger))

	switch transport {
	case "stdio":
		env.Logger.Info("Starting weft MCP server (stdio)")
		return handleExecutionError(srv.ServeStdio(ctx))
	case "sse":
		env.Logger.Info("Starting weft MCP server (SSE)", "port", port)
		return handleExecutionError(srv.ServeSSE(ctx, port))
	default:
		return fmt.Errorf("unknown transport %q, supported: stdio, sse", transport)
	}
}
