// Package shutdown listens for OS interrupt/terminate signals and drives
// the supervisor through a graceful drain, escalating to an immediate hard
// kill if a second signal arrives or the drain overruns its deadline.
package shutdown

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/micromux/micromux/internal/protocol"
)

// Coordinator is a one-shot signal-to-shutdown bridge; construct one per
// process lifetime.
type Coordinator struct {
	logger *slog.Logger
}

// New builds a Coordinator. logger defaults to slog.Default() if nil.
func New(logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{logger: logger}
}

// Run blocks until ctx is done or an interrupt/terminate signal arrives.
// On the first signal it sends a Shutdown command and waits for events to
// close, which the supervisor does once every service has settled. A
// second signal at any point during the drain, or the drain exceeding
// hardDeadline, escalates: hardKill is called and Run returns immediately
// without waiting for events to finish draining.
func (c *Coordinator) Run(ctx context.Context, cmds chan<- protocol.Command, events <-chan protocol.Event, hardDeadline time.Duration, hardKill func()) {
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		c.logger.Info("shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		return
	}

	cmds <- protocol.Command{Kind: protocol.Shutdown}

	drained := make(chan struct{})
	go func() {
		for range events {
		}
		close(drained)
	}()

	timeout := time.NewTimer(hardDeadline)
	defer timeout.Stop()

	select {
	case <-drained:
		c.logger.Info("graceful shutdown complete")
		return
	case sig := <-sigCh:
		c.logger.Warn("second shutdown signal received, escalating to hard kill", "signal", sig.String())
	case <-timeout.C:
		c.logger.Warn("graceful shutdown deadline exceeded, escalating to hard kill")
	}

	hardKill()
}
