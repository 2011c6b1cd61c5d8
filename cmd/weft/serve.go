package main

import (
	"github.com/spf13/cobra"

	"github.com/aretw0/weft/internal/cli"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Serves in-memory graph sessions over a JSON API, with graph events
streamed over SSE and Prometheus metrics on /metrics.`,
	RunE: withEnv(false, func(cmd *cobra.Command, args []string, env *cli.Env) error {
		addr, _ := cmd.Flags().GetString("addr")
		return cli.RunServe(cmd.Context(), env, addr)
	}),
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("addr", "a", "", "Address to listen on (default: http.addr from config)")
}
