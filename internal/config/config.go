package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// discoveryNames is the set of filenames searched, in order, in the
// current directory when no --config path is given.
var discoveryNames = []string{"micromux.yaml", ".micromux.yaml", "micromux.yml", ".micromux.yml"}

// Discover finds the config file to load, honoring an explicit path
// override. It returns an error if an explicit path was given and does not
// exist, or if no path was given and none of the discovery names exists in
// the current directory.
func Discover(explicitPath string) (string, error) {
	if explicitPath != "" {
		if _, err := os.Stat(explicitPath); err != nil {
			return "", fmt.Errorf("config file %q: %w", explicitPath, err)
		}
		return explicitPath, nil
	}

	for _, name := range discoveryNames {
		if _, err := os.Stat(name); err == nil {
			return name, nil
		}
	}
	return "", fmt.Errorf("no config file found (looked for %v); pass --config or run 'micromux init'", discoveryNames)
}

// Load reads, decodes, and resolves the config file at path into a
// name-keyed ServiceSpec map. Unknown keys are not rejected by the decoder
// itself; checkUnknownKeys reports them as diagnostics. The returned *Config is the raw parsed
// document, useful for callers (like check-config) that want to report
// structural issues before resolution.
func Load(path string) (*Config, map[string]*ServiceSpec, *Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("reading config %q: %w", path, err)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, nil, nil, fmt.Errorf("parsing config %q: %w", path, err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, nil, nil, fmt.Errorf("parsing config %q: %w", path, err)
	}

	if cfg.Services == nil {
		cfg.Services = map[string]*Service{}
	}
	ApplyGlobalEnvOverrides(&cfg.Global)
	applyGlobalDefaults(&cfg.Global)

	result := &Result{}
	checkUnknownKeys(&doc, result)

	baseDir, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		baseDir = "."
	}

	specs, resolveResult := Resolve(cfg, baseDir)
	result.Errors = append(result.Errors, resolveResult.Errors...)
	result.Warnings = append(result.Warnings, resolveResult.Warnings...)
	structuralValidate(cfg, result)
	Lint(cfg, result)

	if result.HasErrors() {
		return cfg, specs, result, result.Err()
	}
	return cfg, specs, result, nil
}

var topLevelKeys = map[string]bool{"version": true, "global": true, "hooks": true, "services": true}

var globalKeys = map[string]bool{
	"shutdown_timeout": true, "restart_policy": true, "max_restart_attempts": true,
	"restart_backoff": true, "restart_backoff_max": true, "stability_window": true,
	"output_buffer_bytes": true, "log_format": true, "log_level": true,
	"metrics_enabled": true, "metrics_port": true, "metrics_path": true,
	"tracing_enabled": true, "tracing_otlp_endpoint": true, "tracing_exporter": true,
	"tracing_sample_rate": true, "tracing_use_tls": true, "audit_enabled": true,
}

var serviceKeys = map[string]bool{
	"command": true, "shell": true, "cwd": true, "environment": true, "env_file": true,
	"ports": true, "labels": true, "restart": true, "depends_on": true, "healthcheck": true,
	"logging": true,
}

// checkUnknownKeys walks the raw document tree for keys unrecognized by
// the schema: unknown top-level and global keys are errors, unknown
// per-service keys are warnings, matching spec.md's split.
func checkUnknownKeys(doc *yaml.Node, result *Result) {
	if len(doc.Content) == 0 {
		return
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return
	}
	for i := 0; i < len(root.Content)-1; i += 2 {
		key, val := root.Content[i], root.Content[i+1]
		if !topLevelKeys[key.Value] {
			result.addError(key.Value, "", key.Line, key.Column, "unknown top-level key %q", key.Value)
			continue
		}
		switch key.Value {
		case "global":
			checkMappingKeys(val, globalKeys, "global", "", true, result)
		case "services":
			if val.Kind != yaml.MappingNode {
				continue
			}
			for j := 0; j < len(val.Content)-1; j += 2 {
				svcName, svcVal := val.Content[j], val.Content[j+1]
				checkMappingKeys(svcVal, serviceKeys, "services."+svcName.Value, svcName.Value, false, result)
			}
		}
	}
}

func checkMappingKeys(node *yaml.Node, known map[string]bool, fieldPrefix, service string, asError bool, result *Result) {
	if node.Kind != yaml.MappingNode {
		return
	}
	for i := 0; i < len(node.Content)-1; i += 2 {
		key := node.Content[i]
		if known[key.Value] {
			continue
		}
		if asError {
			result.addError(fieldPrefix+"."+key.Value, service, key.Line, key.Column, "unknown key %q", key.Value)
		} else {
			result.addWarning(fieldPrefix+"."+key.Value, service, key.Line, key.Column, "unknown key %q", key.Value)
		}
	}
}

func applyGlobalDefaults(g *GlobalConfig) {
	if g.ShutdownTimeout == 0 {
		g.ShutdownTimeout = 5
	}
	if g.RestartBackoff == 0 {
		g.RestartBackoff = 1 // not read by the engine; the restart package's base backoff is a fixed 500ms
	}
	if g.RestartBackoffMax == 0 {
		g.RestartBackoffMax = 30
	}
	if g.StabilityWindow == 0 {
		g.StabilityWindow = 10
	}
	if g.OutputBufferBytes == 0 {
		g.OutputBufferBytes = 1 << 20
	}
	if g.LogFormat == "" {
		g.LogFormat = "text"
	}
	if g.LogLevel == "" {
		g.LogLevel = "info"
	}
	if g.MetricsPort == 0 {
		g.MetricsPort = 9090
	}
	if g.MetricsPath == "" {
		g.MetricsPath = "/metrics"
	}
	if g.TracingExporter == "" {
		g.TracingExporter = "stdout"
	}
	if g.TracingSampleRate == 0 {
		g.TracingSampleRate = 1.0
	}
}
