package scaffold

import (
	"bytes"
	"fmt"
	"text/template"
)

// Config holds the values substituted into the scaffolded micromux.yaml.
type Config struct {
	AppName  string
	LogLevel string
}

// DefaultConfig returns the baseline scaffold configuration.
func DefaultConfig() *Config {
	return &Config{
		AppName:  "app",
		LogLevel: "info",
	}
}

// configTemplate mirrors spec.md §8 scenario 1: an `api` service with no
// dependencies and a health check, and a `worker` that only starts once
// `api` is healthy.
const configTemplate = `version: "1"

global:
  log_level: {{ .LogLevel }}
  shutdown_timeout: 10
  restart_backoff: 1
  restart_backoff_max: 30
  stability_window: 10
  metrics_enabled: false
  metrics_port: 9090

services:
  api:
    command: ["./bin/{{ .AppName }}-api"]
    cwd: .
    restart: unless-stopped
    healthcheck:
      test: ["CMD", "curl", "-f", "http://localhost:8080/healthz"]
      interval: 5s
      timeout: 2s
      retries: 3
      start_period: 3s

  worker:
    command: ["./bin/{{ .AppName }}-worker"]
    cwd: .
    restart: on-failure:5
    depends_on:
      - name: api
        condition: service_healthy
`

// GenerateConfig renders configTemplate with cfg.
func GenerateConfig(cfg *Config) (string, error) {
	tmpl, err := template.New("micromux.yaml").Parse(configTemplate)
	if err != nil {
		return "", fmt.Errorf("parsing scaffold template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, cfg); err != nil {
		return "", fmt.Errorf("rendering scaffold template: %w", err)
	}

	return buf.String(), nil
}
