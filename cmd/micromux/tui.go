package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/micromux/micromux/internal/audit"
	"github.com/micromux/micromux/internal/config"
	"github.com/micromux/micromux/internal/depgraph"
	"github.com/micromux/micromux/internal/logger"
	"github.com/micromux/micromux/internal/protocol"
	"github.com/micromux/micromux/internal/supervisor"
	"github.com/micromux/micromux/internal/tui"
	"github.com/spf13/cobra"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive terminal dashboard",
	Long: `Launch a k9s-style interactive dashboard over the supervisor: live
service status, attach to a service's PTY, view its scrollback, and
start/stop/restart/enable/disable services without leaving the terminal.

The TUI runs the supervisor itself in the foreground; there is no separate
daemon to attach to.`,
	Run: runTUI,
}

func runTUI(cmd *cobra.Command, args []string) {
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
	if err != nil || result.HasErrors() {
		fmt.Fprintln(os.Stderr, config.FormatReport(result))
		os.Exit(1)
	}

	graph, err := depgraph.Build(specs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "micromux: %v\n", err)
		os.Exit(1)
	}

	// The TUI owns the terminal, so engine logs are kept quiet (error
	// level) and routed to the session log file; stderr is used only when
	// the session log cannot be opened.
	sessionLog, _, err := logger.OpenSessionLog()
	var log *slog.Logger
	if err != nil {
		log = logger.NewTo("error", "json", os.Stderr)
	} else {
		defer sessionLog.Close()
		log = logger.NewTo("error", "json", sessionLog)
	}
	slog.SetDefault(log)

	auditLogger := audit.NewLogger(log, cfg.Global.AuditEnabled)

	sup := supervisor.New(specs, graph, supervisor.Options{
		ShutdownGrace:    time.Duration(cfg.Global.ShutdownTimeout) * time.Second,
		StabilityWindow:  time.Duration(cfg.Global.StabilityWindow) * time.Second,
		OutputBufferSize: cfg.Global.OutputBufferBytes,
		Logger:           log,
		Audit:            auditLogger,
		Hooks:            cfg.Hooks,
		Version:          version,
	})

	ctx, cancel := context.WithCancel(context.Background())

	// tui.Run starts the supervisor's reconciliation loop itself.
	tuiErr := tui.Run(ctx, sup)

	sup.Commands() <- protocol.Command{Kind: protocol.Shutdown}
	for range sup.Events() {
	}
	cancel()

	if tuiErr != nil {
		fmt.Fprintf(os.Stderr, "micromux: tui error: %v\n", tuiErr)
		os.Exit(1)
	}
}
