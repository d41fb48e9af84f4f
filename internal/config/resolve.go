package config

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"
)

// ServiceSpec is the immutable, fully resolved description of one service,
// produced by Resolve and consumed by the supervisor. Unlike Service (the
// raw YAML shape), every field here is ready to hand to the process runner:
// command is a concrete argv, env is flattened and interpolated, durations
// are time.Duration.
type ServiceSpec struct {
	Name        string
	Command     []string
	Shell       bool
	Cwd         string
	Env         []EnvVar // ordered, later entries win on lookup
	Labels      map[string]string
	Restart     RestartPolicy
	HealthCheck *HealthSpec
	DependsOn   []DependencyEdge
	Logging     *LoggingConfig
}

// EnvVar is one resolved environment entry, kept as a slice (not a map) so
// declaration order is preserved for display and for deterministic
// interpolation.
type EnvVar struct {
	Name  string
	Value string
}

// Lookup returns the value of name from the already-resolved prefix of e,
// scanning from the end so the last (highest-precedence) assignment wins.
func Lookup(env []EnvVar, name string) (string, bool) {
	for i := len(env) - 1; i >= 0; i-- {
		if env[i].Name == name {
			return env[i].Value, true
		}
	}
	return "", false
}

// HealthSpec is the resolved healthcheck: an argv test command on an
// interval, Compose-style.
type HealthSpec struct {
	Test        []string
	Interval    time.Duration
	Timeout     time.Duration
	Retries     int
	StartPeriod time.Duration
}

var interpPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(:-([^}]*))?\}`)

// Resolve turns a raw Config into a name-keyed ServiceSpec map and a
// Result carrying any diagnostics. It never panics or exits; every failure
// is reported as a Diagnostic with as much source context as is available.
func Resolve(cfg *Config, baseDir string) (map[string]*ServiceSpec, *Result) {
	result := &Result{}
	specs := make(map[string]*ServiceSpec, len(cfg.Services))

	names := make([]string, 0, len(cfg.Services))
	for name := range cfg.Services {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		svc := cfg.Services[name]
		spec, ok := resolveService(name, svc, baseDir, result)
		if ok {
			specs[name] = spec
		}
	}

	for _, name := range names {
		svc := cfg.Services[name]
		for _, edge := range svc.DependsOn {
			if _, exists := cfg.Services[edge.Name]; !exists {
				result.addError("depends_on", name, 0, 0, "unknown dependency %q", edge.Name)
			}
		}
	}

	return specs, result
}

func resolveService(name string, svc *Service, baseDir string, result *Result) (*ServiceSpec, bool) {
	ok := true

	command := []string(svc.Command)
	if len(command) == 0 {
		result.addError("command", name, 0, 0, "service has no command")
		ok = false
	}

	cwd := svc.Cwd
	if cwd == "" {
		cwd = baseDir
	} else if !filepath.IsAbs(cwd) {
		cwd = filepath.Join(baseDir, cwd)
	}

	env, envOK := resolveEnv(name, svc, result)
	ok = ok && envOK

	restart, err := ParseRestartPolicy(svc.Restart)
	if err != nil {
		result.addError("restart", name, 0, 0, "%s", err)
		ok = false
	}

	var health *HealthSpec
	if svc.HealthCheck != nil {
		validateHealthCheck(name, svc.HealthCheck, result)
		health = buildHealthSpec(svc.HealthCheck)
	}

	if !ok {
		return nil, false
	}

	command, ok = interpolateSlice(name, "command", command, env, result)
	interpCwd, cwdOK := interpolate(name, "cwd", cwd, env, result)
	cwd = interpCwd
	ok = ok && cwdOK

	return &ServiceSpec{
		Name:        name,
		Command:     command,
		Shell:       svc.Shell,
		Cwd:         cwd,
		Env:         env,
		Labels:      svc.Labels,
		Restart:     restart,
		HealthCheck: health,
		DependsOn:   []DependencyEdge(svc.DependsOn),
		Logging:     svc.Logging,
	}, ok
}

// resolveEnv implements the precedence from spec: process environment <
// each env_file in declaration order < inline environment. ${VAR}
// interpolation at each step sees only the environment resolved so far.
func resolveEnv(name string, svc *Service, result *Result) ([]EnvVar, bool) {
	ok := true
	var env []EnvVar

	for _, kv := range os.Environ() {
		k, v, found := strings.Cut(kv, "=")
		if found {
			env = append(env, EnvVar{Name: k, Value: v})
		}
	}

	for _, path := range svc.EnvFile {
		fileEnv, err := parseEnvFile(path)
		if err != nil {
			result.addError("env_file", name, 0, 0, "%s", err)
			ok = false
			continue
		}
		for _, kv := range fileEnv {
			value, vOK := interpolate(name, "env_file:"+path, kv.Value, env, result)
			ok = ok && vOK
			env = append(env, EnvVar{Name: kv.Name, Value: value})
		}
	}

	inlineNames := make([]string, 0, len(svc.Environment))
	for k := range svc.Environment {
		inlineNames = append(inlineNames, k)
	}
	sort.Strings(inlineNames)
	for _, k := range inlineNames {
		value, vOK := interpolate(name, "environment."+k, svc.Environment[k], env, result)
		ok = ok && vOK
		env = append(env, EnvVar{Name: k, Value: value})
	}

	return env, ok
}

func parseEnvFile(path string) ([]EnvVar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("env file %q: %w", path, err)
	}
	defer f.Close()

	var entries []EnvVar
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")
		k, v, found := strings.Cut(line, "=")
		if !found {
			return nil, fmt.Errorf("env file %q line %d: expected KEY=value", path, lineNo)
		}
		k = strings.TrimSpace(k)
		v = strings.TrimSpace(v)
		if len(v) >= 2 && (v[0] == '"' && v[len(v)-1] == '"' || v[0] == '\'' && v[len(v)-1] == '\'') {
			v = v[1 : len(v)-1]
		}
		entries = append(entries, EnvVar{Name: k, Value: v})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("env file %q: %w", path, err)
	}
	return entries, nil
}

// interpolate replaces ${VAR} and ${VAR:-default} references in value
// against env. An unresolved ${VAR} with no default is a Diagnostic error,
// per spec.md's "undefined variables produce a validation error".
func interpolate(service, field, value string, env []EnvVar, result *Result) (string, bool) {
	ok := true
	expanded := interpPattern.ReplaceAllStringFunc(value, func(match string) string {
		groups := interpPattern.FindStringSubmatch(match)
		name, hasDefault, def := groups[1], groups[2] != "", groups[3]
		if v, found := Lookup(env, name); found {
			return v
		}
		if hasDefault {
			return def
		}
		result.addError(field, service, 0, 0, "undefined variable %q", name)
		ok = false
		return match
	})
	return expanded, ok
}

func interpolateSlice(service, field string, values []string, env []EnvVar, result *Result) ([]string, bool) {
	ok := true
	out := make([]string, len(values))
	for i, v := range values {
		expanded, vOK := interpolate(service, fmt.Sprintf("%s[%d]", field, i), v, env, result)
		out[i] = expanded
		ok = ok && vOK
	}
	return out, ok
}

func buildHealthSpec(hc *HealthCheck) *HealthSpec {
	return &HealthSpec{
		Test:        []string(hc.Test),
		Interval:    hc.Interval.Duration(),
		Timeout:     hc.Timeout.Duration(),
		Retries:     hc.Retries,
		StartPeriod: hc.StartPeriod.Duration(),
	}
}

func validateHealthCheck(name string, hc *HealthCheck, result *Result) {
	if len(hc.Test) == 0 {
		result.addError("healthcheck.test", name, 0, 0, "healthcheck has no test command")
		return
	}
	if hc.Retries == 0 {
		result.addWarning("healthcheck.retries", name, 0, 0, "retries=0 marks unhealthy on the first failure")
	}
	if hc.Interval.Duration() <= 0 {
		result.addError("healthcheck.interval", name, 0, 0, "interval must be positive")
	}
	if hc.Timeout.Duration() > 0 && hc.Timeout.Duration() >= hc.Interval.Duration() {
		result.addWarning("healthcheck.timeout", name, 0, 0, "timeout >= interval may cause overlapping probes")
	}
}
