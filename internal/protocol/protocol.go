// Package protocol defines the closed set of messages that flow between a
// user interface (the TUI, or any other front end) and the supervisor
// engine. Both directions are plain Go values over bounded channels: there
// is no serialization format and no shared memory, since spec.md's engine
// boundary is deliberately a message channel, not a library call.
package protocol

import (
	"time"

	"github.com/micromux/micromux/internal/runtimestate"
)

// CommandKind tags which variant a Command carries. Exactly one of the
// Command's fields is meaningful for a given Kind; see the doc comment on
// each constant for which.
type CommandKind int

const (
	// Start requests the named service's desired state become Up. Name.
	Start CommandKind = iota
	// Stop requests the named service's desired state become
	// Down(user-disabled) without disabling it permanently. Name.
	Stop
	// Restart explicitly restarts a running or exited service, resetting
	// its attempt counter. Name.
	Restart
	// RestartAll restarts every currently enabled service.
	RestartAll
	// Disable stops the named service and keeps it out of reconciliation
	// until Enable. Name.
	Disable
	// Enable clears a prior Disable. Name.
	Enable
	// Attach subscribes the caller to the named service's output replay
	// and live stream. Name, ReplyTo.
	Attach
	// Detach unsubscribes a prior Attach. Name.
	Detach
	// SendInput writes Input bytes to the named service's PTY. Name, Input.
	SendInput
	// Resize changes the named service's PTY window size. Name, Rows, Cols.
	Resize
	// Shutdown begins graceful engine shutdown.
	Shutdown
)

// Command is one message sent from a UI to the engine.
type Command struct {
	Kind CommandKind
	Name string

	Input []byte
	Rows  int
	Cols  int

	// ReplyTo receives the attached Process's output (replay followed by
	// live chunks) when Kind is Attach. The engine never closes it: Detach
	// stops delivery to every subscriber of Name, and until then the
	// subscription carries on across the service's exits and restarts.
	ReplyTo chan<- []byte
}

// EventKind tags which variant an Event carries.
type EventKind int

const (
	// ServiceStateChanged fires whenever a service's ActualState changes.
	// Name, State, Reason.
	ServiceStateChanged EventKind = iota
	// HealthAttempt fires after every healthcheck probe. Name, Health.
	HealthAttempt
	// Output carries a chunk of a service's PTY output. Name, Output.
	Output
	// Started fires when a service's child process is spawned. Name, Pid.
	Started
	// Exited fires when a service's child process has terminated. Name,
	// ExitCode, Signaled.
	Exited
	// EngineShutdownComplete fires once every service is Exited, Disabled
	// or still Pending (never started) during shutdown and the engine is
	// about to return.
	EngineShutdownComplete
	// Warning is an out-of-band notice not tied to a state transition
	// (dropped output due to a lagging attach, a config reload problem).
	// Name is optional (empty means engine-wide).
	Warning
)

// Event is one message sent from the engine to subscribed UIs.
type Event struct {
	Kind EventKind
	Time time.Time
	Name string

	State  runtimestate.ActualState
	Reason string

	Health runtimestate.HealthResult

	Output []byte

	Pid int

	ExitCode int
	Signaled bool

	Message string
}
