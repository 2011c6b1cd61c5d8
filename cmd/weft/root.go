package main

import (
	"github.com/spf13/cobra"

	"github.com/aretw0/weft/internal/cli"
)

var rootCmd = &cobra.Command{
	Use:   "weft",
	Short: "Weft is a node graph dataflow runtime",
	Long: `Weft builds graphs of computation nodes whose typed ports are wired
together, and resolves any node's value on demand by pulling from upstream.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("config", "", "Config file (default: weft.yaml when present)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logs and resolver tracing hooks")
}

// setupEnv reads the persistent flags and the config file.
func setupEnv(cmd *cobra.Command, quiet bool) (*cli.Env, error) {
	configPath, _ := cmd.Flags().GetString("config")
	logLevel, _ := cmd.Flags().GetString("log-level")
	debug, _ := cmd.Flags().GetBool("debug")

	return cli.Setup(cmd.Context(), cli.Options{
		ConfigPath: configPath,
		LogLevel:   logLevel,
		Debug:      debug,
		Quiet:      quiet,
	})
}

// withEnv wraps a command body with environment setup and teardown.
func withEnv(quiet bool, fn func(cmd *cobra.Command, args []string, env *cli.Env) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		env, err := setupEnv(cmd, quiet)
		if err != nil {
			return err
		}
		defer env.Close(cmd.Context())
		return fn(cmd, args, env)
	}
}
