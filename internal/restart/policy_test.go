package restart

import (
	"testing"
	"time"

	"github.com/micromux/micromux/internal/config"
	"github.com/micromux/micromux/internal/runtimestate"
)

func TestShouldRestartNever(t *testing.T) {
	p := config.RestartPolicy{Kind: config.RestartNever}
	if ShouldRestart(p, 1, false, runtimestate.ReasonNone, 0) {
		t.Error("never policy must not restart")
	}
}

func TestShouldRestartAlwaysRegardlessOfStatus(t *testing.T) {
	p := config.RestartPolicy{Kind: config.RestartAlways}
	if !ShouldRestart(p, 0, true, runtimestate.ReasonNone, 50) {
		t.Error("always policy must restart even on clean exit and high attempt count")
	}
}

func TestShouldRestartUnlessStopped(t *testing.T) {
	p := config.RestartPolicy{Kind: config.RestartUnlessStopped}

	if !ShouldRestart(p, 1, false, runtimestate.ReasonNone, 0) {
		t.Error("unless-stopped must restart on an externally caused exit")
	}
	if ShouldRestart(p, 0, true, runtimestate.ReasonUserDisabled, 0) {
		t.Error("unless-stopped must not restart after a user-initiated stop")
	}
	if ShouldRestart(p, 0, true, runtimestate.ReasonShutdown, 0) {
		t.Error("unless-stopped must not restart during engine shutdown")
	}
}

func TestShouldRestartOnFailure(t *testing.T) {
	p := config.RestartPolicy{Kind: config.RestartOnFailure, MaxAttempts: 2}

	if ShouldRestart(p, 0, true, runtimestate.ReasonNone, 0) {
		t.Error("on-failure must not restart a clean exit")
	}
	if !ShouldRestart(p, 1, false, runtimestate.ReasonNone, 1) {
		t.Error("on-failure must restart while attempts remain")
	}
	if ShouldRestart(p, 1, false, runtimestate.ReasonNone, 2) {
		t.Error("on-failure must stop once max attempts are exhausted")
	}
}

func TestShouldRestartOnFailureUnlimited(t *testing.T) {
	p := config.RestartPolicy{Kind: config.RestartOnFailure, MaxAttempts: 0}
	if !ShouldRestart(p, 1, false, runtimestate.ReasonNone, 1000) {
		t.Error("on-failure with MaxAttempts=0 means unlimited retries")
	}
}

func TestBackoffIsCappedAndJittered(t *testing.T) {
	for attempts := 0; attempts < 10; attempts++ {
		d := Backoff(attempts)
		if d <= 0 {
			t.Fatalf("attempts=%d: backoff must be positive, got %v", attempts, d)
		}
		if d > defaultCap+defaultCap/5 {
			t.Fatalf("attempts=%d: backoff %v exceeds cap plus jitter margin", attempts, d)
		}
	}
}

func TestBackoffGrowsWithAttempts(t *testing.T) {
	// With jitter in [0.8, 1.2), attempt 0's backoff (base ~500ms) should
	// never exceed attempt 5's backoff (base 500ms * 2^5 = 16s).
	low := Backoff(0)
	high := Backoff(5)
	if low >= high {
		t.Errorf("expected backoff to grow with attempts: attempt0=%v attempt5=%v", low, high)
	}
}

func TestBackoffNegativeAttemptsTreatedAsZero(t *testing.T) {
	d := Backoff(-3)
	if d < 400*time.Millisecond || d > 600*time.Millisecond {
		t.Errorf("Backoff(-3) = %v, want close to base 500ms", d)
	}
}
