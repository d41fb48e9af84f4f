package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/micromux/micromux/internal/audit"
	"github.com/micromux/micromux/internal/config"
	"github.com/micromux/micromux/internal/depgraph"
	"github.com/micromux/micromux/internal/logger"
	"github.com/micromux/micromux/internal/metrics"
	"github.com/micromux/micromux/internal/protocol"
	"github.com/micromux/micromux/internal/shutdown"
	"github.com/micromux/micromux/internal/supervisor"
	"github.com/micromux/micromux/internal/tracing"
	"github.com/micromux/micromux/internal/watcher"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the supervisor and run until shutdown",
	Long: `Start micromux in the foreground: load micromux.yaml, resolve the
dependency graph, and bring every service up in order. Blocks until an
interrupt/terminate signal drives a graceful shutdown; it keeps running
after every service has exited.`,
	Run: runServe,
}

var (
	dryRun    bool
	watchMode bool
)

func init() {
	serveCmd.Flags().BoolVar(&dryRun, "dry-run", false, "validate configuration and exit without starting services")
	serveCmd.Flags().BoolVar(&watchMode, "watch", false, "warn (without reloading) when micromux.yaml changes on disk")
}

func runServe(cmd *cobra.Command, args []string) {
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

	if dryRun {
		fmt.Fprintf(os.Stderr, "micromux: %s is valid (%d services)\n", cfgPath, len(specs))
		return
	}

	sessionLog, sessionPath, err := logger.OpenSessionLog()
	var logWriter io.Writer = os.Stderr
	if err != nil {
		fmt.Fprintf(os.Stderr, "micromux: session log disabled: %v\n", err)
	} else {
		defer sessionLog.Close()
		logWriter = io.MultiWriter(os.Stderr, sessionLog)
	}

	log := logger.NewTo(cfg.Global.LogLevel, cfg.Global.LogFormat, logWriter)
	slog.SetDefault(log)

	log.Info("micromux starting",
		"version", version,
		"pid", os.Getpid(),
		"config", cfgPath,
		"services", len(specs),
		"session_log", sessionPath,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tracingProvider, err := tracing.NewProvider(ctx, tracing.TracerConfig{
		Enabled:     cfg.Global.TracingEnabled,
		Exporter:    cfg.Global.TracingExporter,
		Endpoint:    cfg.Global.TracingOTLPEndpoint,
		SampleRate:  cfg.Global.TracingSampleRate,
		ServiceName: "micromux",
		Version:     version,
		UseTLS:      cfg.Global.TracingUseTLS,
	}, log)
	if err != nil {
		log.Error("failed to initialize tracing", "error", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracingProvider.Shutdown(shutdownCtx); err != nil {
			log.Warn("tracing shutdown error", "error", err)
		}
	}()

	auditLogger := audit.NewLogger(log, cfg.Global.AuditEnabled)

	shutdownGrace := time.Duration(cfg.Global.ShutdownTimeout) * time.Second

	sup := supervisor.New(specs, graph, supervisor.Options{
		ShutdownGrace:    shutdownGrace,
		StabilityWindow:  time.Duration(cfg.Global.StabilityWindow) * time.Second,
		OutputBufferSize: cfg.Global.OutputBufferBytes,
		Logger:           log,
		Audit:            auditLogger,
		Hooks:            cfg.Hooks,
		Version:          version,
	})

	var metricsServer *metrics.Server
	if cfg.Global.MetricsEnabled {
		metricsServer = metrics.NewServer(cfg.Global.MetricsPort, cfg.Global.MetricsPath, log)
		if err := metricsServer.Start(ctx); err != nil {
			log.Warn("failed to start metrics server, continuing without it", "error", err)
			metricsServer = nil
		} else {
			metrics.SetBuildInfo(version, "go")
		}
	}

	var configWatcher *watcher.Watcher
	if watchMode {
		configWatcher, err = watcher.New(watcher.Config{
			ConfigPath: cfgPath,
			Handler: func() error {
				log.Warn("config file changed on disk; restart micromux to apply the change")
				return nil
			},
			Logger:   log,
			Debounce: 2 * time.Second,
		})
		if err != nil {
			log.Error("failed to start config watcher", "error", err)
			os.Exit(1)
		}
		if err := configWatcher.Start(ctx); err != nil {
			log.Error("failed to start config watcher", "error", err)
			os.Exit(1)
		}
		defer configWatcher.Stop()
	}

	loggedEvents := make(chan protocol.Event, 256)
	go func() {
		defer close(loggedEvents)
		for ev := range sup.Events() {
			logEvent(log, ev)
			loggedEvents <- ev
		}
	}()

	go sup.Run(ctx)

	hardDeadline := shutdownGrace + 10*time.Second

	coordinator := shutdown.New(log)
	coordinator.Run(ctx, sup.Commands(), loggedEvents, hardDeadline, func() {
		cancel()
	})

	if metricsServer != nil {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer stopCancel()
		_ = metricsServer.Stop(stopCtx)
	}

	log.Info("micromux shutdown complete")
}

func logEvent(log *slog.Logger, ev protocol.Event) {
	switch ev.Kind {
	case protocol.ServiceStateChanged:
		log.Info("service state changed", "service", ev.Name, "state", ev.State.Kind, "reason", ev.Reason)
	case protocol.Started:
		log.Info("service started", "service", ev.Name, "pid", ev.Pid)
	case protocol.Exited:
		log.Info("service exited", "service", ev.Name, "exit_code", ev.ExitCode, "signaled", ev.Signaled)
	case protocol.Warning:
		log.Warn(ev.Message, "service", ev.Name)
	case protocol.EngineShutdownComplete:
		log.Info("engine shutdown complete")
	}
}
