// Package config parses and validates micromux's YAML configuration into
// the ServiceSpec set the supervision engine runs against.
package config

import "time"

// Config is the top-level micromux.yaml document.
type Config struct {
	Version  string              `yaml:"version"`
	Global   GlobalConfig        `yaml:"global"`
	Hooks    HooksConfig         `yaml:"hooks"`
	Services map[string]*Service `yaml:"services"`
}

// GlobalConfig holds engine-wide defaults.
type GlobalConfig struct {
	ShutdownTimeout     int     `yaml:"shutdown_timeout"`      // seconds, per-service grace before hard kill
	RestartPolicy       string  `yaml:"restart_policy"`        // not applied; each service's own restart setting decides
	MaxRestartAttempts  int     `yaml:"max_restart_attempts"`  // not applied; attempt limits come from a service's on-failure:N
	RestartBackoff      int     `yaml:"restart_backoff"`       // seconds; not applied: restart backoff starts at a fixed 500ms
	RestartBackoffMax   int     `yaml:"restart_backoff_max"`   // seconds; not applied: restart backoff is capped at a fixed 30s
	StabilityWindow     int     `yaml:"stability_window"`      // seconds a run must survive to reset attempt count
	OutputBufferBytes   int     `yaml:"output_buffer_bytes"`   // per-service ring buffer size, default 1 MiB
	LogFormat           string  `yaml:"log_format"`            // json | text
	LogLevel            string  `yaml:"log_level"`             // debug | info | warn | error
	MetricsEnabled      bool    `yaml:"metrics_enabled"`
	MetricsPort         int     `yaml:"metrics_port"`
	MetricsPath         string  `yaml:"metrics_path"`
	TracingEnabled      bool    `yaml:"tracing_enabled"`
	TracingExporter     string  `yaml:"tracing_exporter"`      // stdout | otlp-http
	TracingOTLPEndpoint string  `yaml:"tracing_otlp_endpoint"` // endpoint for the otlp-http exporter; tracing_exporter picks the exporter
	TracingSampleRate   float64 `yaml:"tracing_sample_rate"`
	TracingUseTLS       bool    `yaml:"tracing_use_tls"`
	AuditEnabled        bool    `yaml:"audit_enabled"`
}

// HooksConfig lists engine-lifecycle hooks (not per-service).
type HooksConfig struct {
	PreStart  []Hook `yaml:"pre_start"`
	PostStart []Hook `yaml:"post_start"`
	PreStop   []Hook `yaml:"pre_stop"`
	PostStop  []Hook `yaml:"post_stop"`
}

// Hook is a single lifecycle hook command.
type Hook struct {
	Name            string            `yaml:"name"`
	Command         []string          `yaml:"command"`
	Timeout         int               `yaml:"timeout"` // seconds
	Retry           int               `yaml:"retry"`
	RetryDelay      int               `yaml:"retry_delay"` // seconds
	ContinueOnError bool              `yaml:"continue_on_error"`
	Env             map[string]string `yaml:"env"`
	WorkingDir      string            `yaml:"working_dir"`
}

// Service is one entry under `services:` in the raw YAML document, before
// resolution into a ServiceSpec.
type Service struct {
	Command     StringOrList      `yaml:"command"`
	Shell       bool              `yaml:"shell"`
	Cwd         string            `yaml:"cwd"`
	Environment MapOrList         `yaml:"environment"`
	EnvFile     StringOrList      `yaml:"env_file"`
	Ports       []string          `yaml:"ports"` // informational only
	Labels      map[string]string `yaml:"labels"`
	Restart     string            `yaml:"restart"` // always | unless-stopped | on-failure[:N] | never
	DependsOn   DependsOn         `yaml:"depends_on"`
	HealthCheck *HealthCheck      `yaml:"healthcheck"`
	Logging     *LoggingConfig    `yaml:"logging"`
}

// HealthCheck mirrors Compose's healthcheck block: an argv test command run
// on an interval, classified by exit status.
type HealthCheck struct {
	Test        StringOrList `yaml:"test"` // ["CMD", ...] or ["CMD-SHELL", "..."]
	Interval    Duration     `yaml:"interval"`
	Timeout     Duration     `yaml:"timeout"`
	Retries     int          `yaml:"retries"`
	StartPeriod Duration     `yaml:"start_period"`
}

// Condition gates a dependent service on a dependency's observed state.
type Condition string

const (
	ConditionStarted               Condition = "service_started"
	ConditionHealthy               Condition = "service_healthy"
	ConditionCompletedSuccessfully Condition = "service_completed_successfully"
)

// DependsOn is the resolved, ordered dependency list for a service.
type DependsOn []DependencyEdge

// DependencyEdge names one dependency and the condition gating on it.
type DependencyEdge struct {
	Name      string
	Condition Condition
}

// Duration wraps time.Duration so it can unmarshal from "500ms"/"5s"/"2m"
// style YAML scalars as well as bare integers (seconds).
type Duration time.Duration

func (d Duration) Duration() time.Duration { return time.Duration(d) }
