package main

import (
	"github.com/spf13/cobra"

	"github.com/aretw0/weft/internal/cli"
)

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Edit and evaluate a graph interactively",
	Long: `Starts the weft console on an empty graph. Type 'help' for the commands.

Use --json for NDJSON replies (one command per input line), which suits
scripts and pipes.`,
	RunE: withEnv(true, func(cmd *cobra.Command, args []string, env *cli.Env) error {
		jsonMode, _ := cmd.Flags().GetBool("json")
		headless, _ := cmd.Flags().GetBool("headless")
		autoTick, _ := cmd.Flags().GetBool("auto-tick")

		return cli.RunRepl(cmd.Context(), env, cli.ReplOptions{
			JSON:     jsonMode,
			Headless: headless,
			AutoTick: autoTick,
			Stdin:    cmd.InOrStdin(),
			Stdout:   cmd.OutOrStdout(),
		})
	}),
}

func init() {
	rootCmd.AddCommand(replCmd)

	replCmd.Flags().Bool("json", false, "Run in JSON mode (NDJSON output)")
	replCmd.Flags().Bool("headless", false, "No banner or prompts")
	replCmd.Flags().Bool("auto-tick", false, "Recompute watched nodes after every edit")

	// The console is the default command.
	rootCmd.RunE = replCmd.RunE
	rootCmd.Flags().AddFlagSet(replCmd.Flags())
}
