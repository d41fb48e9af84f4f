// Package health runs a service's configured exec healthcheck on a
// schedule and reports each probe's outcome. It does not decide whether a
// service is healthy or unhealthy overall — that state machine lives on
// runtimestate.Record (ConsecutiveFailures), since it needs the probe
// history rather than just the latest result.
package health

import (
	"context"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/micromux/micromux/internal/config"
	"github.com/micromux/micromux/internal/metrics"
	"github.com/micromux/micromux/internal/runtimestate"
	"github.com/micromux/micromux/internal/tracing"
)

// stderrExcerptLimit bounds how much of a failing probe's stderr is kept,
// per spec.md's HealthResult.stderr_excerpt.
const stderrExcerptLimit = 2048

// Runner probes one service's healthcheck command on the configured
// interval and publishes a runtimestate.HealthResult for each attempt.
type Runner struct {
	serviceName string
	spec        *config.HealthSpec
	logger      *slog.Logger
}

// NewRunner builds a Runner for spec. spec must be non-nil; callers should
// not start a Runner for a service with no healthcheck configured.
func NewRunner(serviceName string, spec *config.HealthSpec, logger *slog.Logger) *Runner {
	return &Runner{serviceName: serviceName, spec: spec, logger: logger}
}

// Start waits start_period, then probes every interval until ctx is
// canceled. The returned channel is closed when the runner stops.
func (r *Runner) Start(ctx context.Context) <-chan runtimestate.HealthResult {
	results := make(chan runtimestate.HealthResult, 1)

	go func() {
		defer close(results)

		if r.spec.StartPeriod > 0 {
			select {
			case <-time.After(r.spec.StartPeriod):
			case <-ctx.Done():
				return
			}
		}

		ticker := time.NewTicker(r.spec.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				res := r.probe(ctx)
				select {
				case results <- res:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	return results
}

func (r *Runner) probe(ctx context.Context) runtimestate.HealthResult {
	spanCtx, span := tracing.StartHealthCheckSpan(ctx, r.serviceName, "exec")
	defer span.End()

	probeCtx, cancel := context.WithTimeout(spanCtx, r.spec.Timeout)
	defer cancel()

	start := time.Now()
	cmd := buildProbeCmd(probeCtx, r.spec.Test)
	var stderr strings.Builder
	cmd.Stderr = &stderr

	err := cmd.Run()
	duration := time.Since(start)

	outcome := runtimestate.Pass
	excerpt := ""
	if err != nil {
		outcome = runtimestate.Fail
		excerpt = probeExcerpt(stderr.String(), err)
		tracing.RecordError(span, err, "healthcheck probe failed")
		r.logger.Warn("healthcheck failed",
			"service", r.serviceName,
			"error", err,
			"duration", duration,
		)
	} else {
		tracing.RecordSuccess(span)
	}

	metrics.RecordHealthCheck(r.serviceName, "exec", duration.Seconds(), outcome == runtimestate.Pass)

	return runtimestate.HealthResult{
		Timestamp:     start,
		Outcome:       outcome,
		StderrExcerpt: excerpt,
		Duration:      duration,
	}
}

// buildProbeCmd interprets the Compose-style test argv: a leading "CMD"
// runs the remaining argv directly, "CMD-SHELL" runs the remaining single
// string through sh -c, and a bare argv (no recognized prefix) runs
// directly for convenience.
func buildProbeCmd(ctx context.Context, test []string) *exec.Cmd {
	if len(test) == 0 {
		return exec.CommandContext(ctx, "true")
	}
	switch test[0] {
	case "CMD-SHELL":
		return exec.CommandContext(ctx, "sh", "-c", strings.Join(test[1:], " "))
	case "CMD":
		return exec.CommandContext(ctx, test[1], test[2:]...)
	default:
		return exec.CommandContext(ctx, test[0], test[1:]...)
	}
}

func probeExcerpt(stderr string, err error) string {
	s := strings.TrimSpace(stderr)
	if s == "" {
		s = err.Error()
	}
	if len(s) > stderrExcerptLimit {
		s = s[:stderrExcerptLimit]
	}
	return s
}
