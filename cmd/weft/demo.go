package main

import (
	"github.com/spf13/cobra"

	"github.com/aretw0/weft/internal/cli"
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Build and resolve a small example graph",
	RunE: withEnv(true, func(cmd *cobra.Command, args []string, env *cli.Env) error {
		return cli.RunDemo(cmd.Context(), env, cmd.OutOrStdout())
	}),
}

var kindsCmd = &cobra.Command{
	Use:   "kinds",
	Short: "List the builtin node kinds",
	RunE: func(cmd *cobra.Command, args []string) error {
		return cli.PrintKinds(cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(demoCmd)
	rootCmd.AddCommand(kindsCmd)
}
