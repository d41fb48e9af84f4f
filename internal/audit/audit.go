// Package audit provides structured audit logging for engine lifecycle
// and per-service events, independent of the ambient slog stream: every
// audit event carries a machine-parseable EventType, Actor, Resource, and
// Status so it can be filtered or shipped separately from ordinary logs.
package audit

import (
	"encoding/json"
	"log/slog"
	"time"
)

// EventType represents the category of audit event.
type EventType string

const (
	EventProcessStart   EventType = "process.start"
	EventProcessStop    EventType = "process.stop"
	EventProcessRestart EventType = "process.restart"
	EventProcessCrash   EventType = "process.crash"
	EventProcessDisable EventType = "process.disable"
	EventProcessEnable  EventType = "process.enable"

	EventConfigLoad EventType = "config.load"

	EventSystemStart    EventType = "system.start"
	EventSystemShutdown EventType = "system.shutdown"
	EventSystemError    EventType = "system.error"
)

// Status represents the outcome of an audited action.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
	StatusError   Status = "error"
)

// Actor represents who or what performed the action.
type Actor struct {
	Type string `json:"type"` // "system"
	ID   string `json:"id"`
}

// Resource represents what was affected by the action.
type Resource struct {
	Type string `json:"type"` // "process", "config", "system"
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Event represents a single audit log entry.
type Event struct {
	Timestamp time.Time              `json:"timestamp"`
	EventType EventType              `json:"event_type"`
	Actor     Actor                  `json:"actor"`
	Action    string                 `json:"action"`
	Resource  Resource               `json:"resource"`
	Status    Status                 `json:"status"`
	Message   string                 `json:"message"`
	Context   map[string]interface{} `json:"context,omitempty"`
}

// Logger provides structured audit logging on top of a slog.Logger.
type Logger struct {
	logger  *slog.Logger
	enabled bool
}

// NewLogger creates a new audit logger. When enabled is false, every Log
// call is a no-op, so callers don't need to branch on cfg.Global.AuditEnabled
// themselves.
func NewLogger(log *slog.Logger, enabled bool) *Logger {
	return &Logger{
		logger:  log.With("subsystem", "audit"),
		enabled: enabled,
	}
}

// Log logs an audit event.
func (l *Logger) Log(event Event) {
	if !l.enabled {
		return
	}

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	eventJSON, _ := json.Marshal(event)

	switch event.Status {
	case StatusFailure, StatusError:
		l.logger.Error("audit_event",
			"event_type", event.EventType,
			"actor", event.Actor.ID,
			"action", event.Action,
			"resource", event.Resource.ID,
			"status", event.Status,
			"message", event.Message,
			"event_json", string(eventJSON),
		)
	default:
		l.logger.Info("audit_event",
			"event_type", event.EventType,
			"actor", event.Actor.ID,
			"action", event.Action,
			"resource", event.Resource.ID,
			"status", event.Status,
			"message", event.Message,
			"event_json", string(eventJSON),
		)
	}
}

// LogProcessStart logs a service starting.
func (l *Logger) LogProcessStart(serviceName string, pid int) {
	l.Log(Event{
		EventType: EventProcessStart,
		Actor:     Actor{Type: "system", ID: "supervisor"},
		Action:    "start",
		Resource:  Resource{Type: "process", ID: serviceName, Name: serviceName},
		Status:    StatusSuccess,
		Message:   "service started",
		Context:   map[string]interface{}{"pid": pid},
	})
}

// LogProcessStop logs a service stopping.
func (l *Logger) LogProcessStop(serviceName string, pid int, reason string) {
	l.Log(Event{
		EventType: EventProcessStop,
		Actor:     Actor{Type: "system", ID: "supervisor"},
		Action:    "stop",
		Resource:  Resource{Type: "process", ID: serviceName, Name: serviceName},
		Status:    StatusSuccess,
		Message:   "service stopped",
		Context:   map[string]interface{}{"pid": pid, "reason": reason},
	})
}

// LogProcessCrash logs a service exiting with a non-zero or unknown status.
func (l *Logger) LogProcessCrash(serviceName string, pid int, exitCode int, signaled bool) {
	l.Log(Event{
		EventType: EventProcessCrash,
		Actor:     Actor{Type: "system", ID: "supervisor"},
		Action:    "crash",
		Resource:  Resource{Type: "process", ID: serviceName, Name: serviceName},
		Status:    StatusError,
		Message:   "service crashed",
		Context:   map[string]interface{}{"pid": pid, "exit_code": exitCode, "signaled": signaled},
	})
}

// LogProcessRestart logs a service restart triggered by restart policy.
func (l *Logger) LogProcessRestart(serviceName string, oldPID, newPID int, reason string) {
	l.Log(Event{
		EventType: EventProcessRestart,
		Actor:     Actor{Type: "system", ID: "supervisor"},
		Action:    "restart",
		Resource:  Resource{Type: "process", ID: serviceName, Name: serviceName},
		Status:    StatusSuccess,
		Message:   "service restarted",
		Context:   map[string]interface{}{"old_pid": oldPID, "new_pid": newPID, "reason": reason},
	})
}

// LogProcessDisable logs a service being disabled by user command.
func (l *Logger) LogProcessDisable(serviceName string) {
	l.Log(Event{
		EventType: EventProcessDisable,
		Actor:     Actor{Type: "system", ID: "supervisor"},
		Action:    "disable",
		Resource:  Resource{Type: "process", ID: serviceName, Name: serviceName},
		Status:    StatusSuccess,
		Message:   "service disabled",
	})
}

// LogProcessEnable logs a service being re-enabled by user command.
func (l *Logger) LogProcessEnable(serviceName string) {
	l.Log(Event{
		EventType: EventProcessEnable,
		Actor:     Actor{Type: "system", ID: "supervisor"},
		Action:    "enable",
		Resource:  Resource{Type: "process", ID: serviceName, Name: serviceName},
		Status:    StatusSuccess,
		Message:   "service enabled",
	})
}

// LogConfigLoad logs a configuration file being parsed and resolved.
func (l *Logger) LogConfigLoad(configFile string, serviceCount int) {
	l.Log(Event{
		EventType: EventConfigLoad,
		Actor:     Actor{Type: "system", ID: "config_loader"},
		Action:    "load",
		Resource:  Resource{Type: "config", ID: configFile},
		Status:    StatusSuccess,
		Message:   "configuration loaded",
		Context:   map[string]interface{}{"service_count": serviceCount},
	})
}

// LogSystemStart logs engine startup.
func (l *Logger) LogSystemStart(version string) {
	l.Log(Event{
		EventType: EventSystemStart,
		Actor:     Actor{Type: "system", ID: "micromux"},
		Action:    "start",
		Resource:  Resource{Type: "system", ID: "micromux"},
		Status:    StatusSuccess,
		Message:   "micromux started",
		Context:   map[string]interface{}{"version": version},
	})
}

// LogSystemShutdown logs engine shutdown.
func (l *Logger) LogSystemShutdown(reason string, graceful bool) {
	status := StatusSuccess
	if !graceful {
		status = StatusError
	}

	l.Log(Event{
		EventType: EventSystemShutdown,
		Actor:     Actor{Type: "system", ID: "micromux"},
		Action:    "shutdown",
		Resource:  Resource{Type: "system", ID: "micromux"},
		Status:    status,
		Message:   "micromux shutdown",
		Context:   map[string]interface{}{"reason": reason, "graceful": graceful},
	})
}

// LogSystemError logs a component-level error outside the normal
// process/config lifecycle.
func (l *Logger) LogSystemError(component string, errorMsg string) {
	l.Log(Event{
		EventType: EventSystemError,
		Actor:     Actor{Type: "system", ID: component},
		Action:    "error",
		Resource:  Resource{Type: "system", ID: component},
		Status:    StatusError,
		Message:   errorMsg,
	})
}
