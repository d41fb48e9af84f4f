package main

import (
	"fmt"
	"os"

	"github.com/micromux/micromux/internal/scaffold"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter micromux.yaml",
	Long:  `Write a two-service example micromux.yaml into the current (or given) directory, ready to edit.`,
	Run:   runInit,
}

var (
	initOutDir   string
	initAppName  string
	initLogLevel string
	initDryRun   bool
)

func init() {
	initCmd.Flags().StringVar(&initOutDir, "dir", ".", "directory to write micromux.yaml into")
	initCmd.Flags().StringVar(&initAppName, "app-name", "app", "placeholder name used in the scaffolded example")
	initCmd.Flags().StringVar(&initLogLevel, "log-level", "info", "scaffolded global.log_level")
	initCmd.Flags().BoolVar(&initDryRun, "print", false, "print the scaffolded config instead of writing it")
}

func runInit(cmd *cobra.Command, args []string) {
	gen := scaffold.NewGenerator(initOutDir)
	gen.SetAppName(initAppName)
	gen.SetLogLevel(initLogLevel)

	if initDryRun {
		content, err := gen.Preview()
		if err != nil {
			fmt.Fprintf(os.Stderr, "micromux: %v\n", err)
			os.Exit(1)
		}
		fmt.Print(content)
		return
	}

	if err := gen.Generate(); err != nil {
		fmt.Fprintf(os.Stderr, "micromux: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("wrote %s/micromux.yaml\n", initOutDir)
}
