package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/micromux/micromux/internal/config"
	"github.com/spf13/cobra"
)

var checkConfigCmd = &cobra.Command{
	Use:   "check-config",
	Short: "Validate micromux.yaml",
	Long:  `Load and resolve micromux.yaml, reporting any errors or warnings without starting any service.`,
	Run:   runCheckConfig,
}

func init() {
	checkConfigCmd.Flags().Bool("strict", false, "fail on warnings, not just errors")
	checkConfigCmd.Flags().Bool("json", false, "output validation results as JSON")
	checkConfigCmd.Flags().Bool("quiet", false, "print only a one-line summary")
}

type checkConfigJSON struct {
	ConfigPath   string   `json:"config_path"`
	Version      string   `json:"version"`
	ServiceCount int      `json:"service_count"`
	Valid        bool     `json:"valid"`
	Errors       []string `json:"errors,omitempty"`
	Warnings     []string `json:"warnings,omitempty"`
}

func runCheckConfig(cmd *cobra.Command, args []string) {
	strict, _ := cmd.Flags().GetBool("strict")
	jsonOutput, _ := cmd.Flags().GetBool("json")
	quiet, _ := cmd.Flags().GetBool("quiet")

	cfgPath, err := config.Discover(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "micromux: %v\n", err)
		os.Exit(1)
	}

	cfg, specs, result, err := config.Load(cfgPath)
	if result == nil {
		fmt.Fprintf(os.Stderr, "micromux: %v\n", err)
		os.Exit(1)
	}

	if jsonOutput {
		out := checkConfigJSON{
			ConfigPath:   cfgPath,
			Valid:        !result.HasErrors(),
			ServiceCount: len(specs),
		}
		if cfg != nil {
			out.Version = cfg.Version
		}
		for _, e := range result.Errors {
			out.Errors = append(out.Errors, e.String())
		}
		for _, w := range result.Warnings {
			out.Warnings = append(out.Warnings, w.String())
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(out)
		if result.HasErrors() || (strict && len(result.Warnings) > 0) {
			os.Exit(1)
		}
		return
	}

	if result.HasErrors() {
		if quiet {
			fmt.Printf("invalid: %s\n", config.FormatSummary(result))
		} else {
			fmt.Print(config.FormatReport(result))
		}
		os.Exit(1)
	}

	if quiet {
		fmt.Println(config.FormatSummary(result))
	} else {
		if len(result.Warnings) > 0 {
			fmt.Print(config.FormatReport(result))
		}
		fmt.Printf("\nconfiguration summary\n")
		fmt.Printf("  path:     %s\n", cfgPath)
		fmt.Printf("  version:  %s\n", cfg.Version)
		fmt.Printf("  services: %d\n", len(specs))
		fmt.Printf("  log level: %s\n", cfg.Global.LogLevel)
		fmt.Printf("  shutdown timeout: %ds\n", cfg.Global.ShutdownTimeout)
		fmt.Println("\nconfiguration is valid")
	}

	if strict && len(result.Warnings) > 0 {
		if !quiet {
			fmt.Println("\nfailing in strict mode: warnings present")
		}
		os.Exit(1)
	}
}
