package tui

import (
	"strings"
	"testing"

	"github.com/micromux/micromux/internal/runtimestate"
)

func TestFormatState(t *testing.T) {
	tests := []struct {
		kind runtimestate.ActualKind
		want string
	}{
		{runtimestate.Running, "Running"},
		{runtimestate.Starting, "Starting"},
		{runtimestate.Stopping, "Stopping"},
		{runtimestate.Pending, "Pending"},
		{runtimestate.Exited, "Exited"},
		{runtimestate.Disabled, "Disabled"},
	}
	for _, tt := range tests {
		if got := formatState(tt.kind); !strings.Contains(got, tt.want) {
			t.Errorf("formatState(%v) = %q, want substring %q", tt.kind, got, tt.want)
		}
	}
}

func TestFormatHealth(t *testing.T) {
	tests := []struct {
		h    runtimestate.HealthState
		want string
	}{
		{runtimestate.HealthHealthy, "healthy"},
		{runtimestate.HealthUnhealthy, "unhealthy"},
		{runtimestate.HealthUnknown, "unknown"},
		{runtimestate.HealthNone, "-"},
	}
	for _, tt := range tests {
		if got := formatHealth(tt.h); !strings.Contains(got, tt.want) {
			t.Errorf("formatHealth(%v) = %q, want substring %q", tt.h, got, tt.want)
		}
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   uint64
		want string
	}{
		{0, "0B"},
		{512, "512B"},
		{1024, "1.0KiB"},
		{10 * 1024 * 1024, "10.0MiB"},
	}
	for _, tt := range tests {
		if got := formatBytes(tt.in); got != tt.want {
			t.Errorf("formatBytes(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
