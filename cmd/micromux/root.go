package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const version = "0.1.0"

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "micromux",
	Short: "A local process supervisor with a terminal UI",
	Long: `micromux runs a set of commands declared in micromux.yaml: each
gets a PTY, a restart policy, an optional healthcheck, and can depend on
other services being started or healthy before it runs.

Examples:
  micromux                  # start the engine (same as 'serve')
  micromux serve            # start the engine
  micromux tui              # interactive dashboard: attach, logs, restart
  micromux check-config     # validate micromux.yaml without starting anything
  micromux init             # write a starter micromux.yaml`,
	Version: version,
	// Default to serve when no subcommand is given.
	Run: func(cmd *cobra.Command, args []string) {
		serveCmd.Run(cmd, args)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "path to micromux.yaml (default: discovered in the current directory)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(tuiCmd)
	rootCmd.AddCommand(checkConfigCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
}
