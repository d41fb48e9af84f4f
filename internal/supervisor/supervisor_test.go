package supervisor

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/micromux/micromux/internal/config"
	"github.com/micromux/micromux/internal/depgraph"
	"github.com/micromux/micromux/internal/protocol"
	"github.com/micromux/micromux/internal/runtimestate"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func buildGraph(t *testing.T, specs map[string]*config.ServiceSpec) *depgraph.Graph {
	t.Helper()
	g, err := depgraph.Build(specs)
	if err != nil {
		t.Fatalf("depgraph.Build: %v", err)
	}
	return g
}

func waitForEvent(t *testing.T, events <-chan protocol.Event, timeout time.Duration, match func(protocol.Event) bool) protocol.Event {
	t.Helper()
	deadline := time.After(timeout)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				t.Fatal("event channel closed before expected event arrived")
			}
			if match(ev) {
				return ev
			}
		case <-deadline:
			t.Fatal("timed out waiting for expected event")
		}
	}
}

func TestSupervisorStartsServiceAndShutsDown(t *testing.T) {
	specs := map[string]*config.ServiceSpec{
		"sleeper": {
			Name:    "sleeper",
			Command: []string{"sh", "-c", "sleep 5"},
			Cwd:     ".",
			Restart: config.RestartPolicy{Kind: config.RestartNever},
		},
	}
	g := buildGraph(t, specs)
	sup := New(specs, g, Options{Logger: discardLogger(), ShutdownGrace: 500 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		sup.Run(ctx)
		close(done)
	}()

	waitForEvent(t, sup.Events(), 2*time.Second, func(ev protocol.Event) bool {
		return ev.Kind == protocol.Started && ev.Name == "sleeper"
	})

	sup.Commands() <- protocol.Command{Kind: protocol.Shutdown}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("supervisor did not shut down in time")
	}
}

func TestSupervisorDependencyGating(t *testing.T) {
	specs := map[string]*config.ServiceSpec{
		"api": {
			Name:    "api",
			Command: []string{"sh", "-c", "sleep 5"},
			Cwd:     ".",
			Restart: config.RestartPolicy{Kind: config.RestartNever},
		},
		"worker": {
			Name:    "worker",
			Command: []string{"sh", "-c", "sleep 5"},
			Cwd:     ".",
			Restart: config.RestartPolicy{Kind: config.RestartNever},
			DependsOn: []config.DependencyEdge{
				{Name: "api", Condition: config.ConditionStarted},
			},
		},
	}
	g := buildGraph(t, specs)
	sup := New(specs, g, Options{Logger: discardLogger(), ShutdownGrace: 500 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		sup.Run(ctx)
		close(done)
	}()

	waitForEvent(t, sup.Events(), 2*time.Second, func(ev protocol.Event) bool {
		return ev.Kind == protocol.Started && ev.Name == "api"
	})
	waitForEvent(t, sup.Events(), 2*time.Second, func(ev protocol.Event) bool {
		return ev.Kind == protocol.Started && ev.Name == "worker"
	})

	sup.Commands() <- protocol.Command{Kind: protocol.Shutdown}
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("supervisor did not shut down in time")
	}
}

func TestSupervisorRestartOnFailureExhaustsAttempts(t *testing.T) {
	specs := map[string]*config.ServiceSpec{
		"flaky": {
			Name:    "flaky",
			Command: []string{"sh", "-c", "exit 1"},
			Cwd:     ".",
			Restart: config.RestartPolicy{Kind: config.RestartOnFailure, MaxAttempts: 2},
		},
	}
	g := buildGraph(t, specs)
	sup := New(specs, g, Options{Logger: discardLogger(), TickInterval: 50 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		sup.Run(ctx)
		close(done)
	}()

	exits := 0
	deadline := time.After(6 * time.Second)
loop:
	for {
		select {
		case ev, ok := <-sup.Events():
			if !ok {
				break loop
			}
			if ev.Kind == protocol.Exited {
				exits++
				if exits == 3 {
					break loop
				}
			}
		case <-deadline:
			t.Fatal("timed out waiting for three exits")
		}
	}

	if exits != 3 {
		t.Fatalf("exits = %d, want 3 (initial + 2 retries)", exits)
	}

	rec, ok := sup.Store().Get("flaky")
	if !ok {
		t.Fatal("record not found")
	}
	if rec.Actual.Kind != runtimestate.Exited || rec.Actual.Restarting {
		t.Errorf("final state = %+v, want a terminal non-restarting Exited", rec.Actual)
	}

	cancel()
	<-done
}
