// Package restart decides whether an exited service should be respawned
// and after how long, per its configured restart policy. It is pure
// decision logic: the attempt counter and the scheduled wake time live on
// runtimestate.Record, not here.
package restart

import (
	"math/rand"
	"time"

	"github.com/micromux/micromux/internal/config"
	"github.com/micromux/micromux/internal/runtimestate"
)

const (
	defaultBase = 500 * time.Millisecond
	defaultCap  = 30 * time.Second
	maxShift    = 20 // 500ms*2^20 already far exceeds defaultCap
)

// ShouldRestart reports whether policy calls for restarting a service that
// just exited with the given status, given how many restart attempts have
// already been spent and why the service was last asked to stop.
func ShouldRestart(policy config.RestartPolicy, exitCode int, success bool, lastDesired runtimestate.DesiredReason, attempts int) bool {
	switch policy.Kind {
	case config.RestartNever:
		return false
	case config.RestartAlways:
		return true
	case config.RestartUnlessStopped:
		return lastDesired != runtimestate.ReasonUserDisabled && lastDesired != runtimestate.ReasonShutdown
	case config.RestartOnFailure:
		if success {
			return false
		}
		if policy.MaxAttempts <= 0 {
			return true
		}
		return attempts < policy.MaxAttempts
	default:
		return false
	}
}

// Backoff computes the delay before the (attempts+1)th restart: capped
// exponential with jitter, base 500ms, cap 30s, per spec.md §4.6.
func Backoff(attempts int) time.Duration {
	if attempts < 0 {
		attempts = 0
	}
	shift := attempts
	if shift > maxShift {
		shift = maxShift
	}
	delay := defaultBase * time.Duration(uint64(1)<<uint(shift))
	if delay > defaultCap {
		delay = defaultCap
	}
	return jitter(delay)
}

// jitter returns d scaled by a uniform random factor in [0.8, 1.2), so
// concurrent restarts of many services don't all retry in lockstep.
func jitter(d time.Duration) time.Duration {
	factor := 0.8 + rand.Float64()*0.4
	return time.Duration(float64(d) * factor)
}
