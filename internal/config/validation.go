package config

import "fmt"

// Lint performs checks beyond per-service resolution. An empty services
// map and a dependency cycle are reported as errors; the remaining cases
// are surfaced as warnings because they indicate a config that will never
// do what it looks like it does.
func Lint(cfg *Config, result *Result) {
	if len(cfg.Services) == 0 {
		result.addError("services", "", 0, 0, "no services defined")
		return
	}

	for name, svc := range cfg.Services {
		if _, err := ParseRestartPolicy(svc.Restart); err != nil {
			continue // already reported by Resolve
		}

		for _, dep := range svc.DependsOn {
			depSvc, exists := cfg.Services[dep.Name]
			if !exists {
				continue // reported by Resolve
			}
			depPolicy, err := ParseRestartPolicy(depSvc.Restart)
			if err != nil {
				continue
			}
			if dep.Condition == ConditionCompletedSuccessfully && depPolicy.Kind == RestartAlways {
				result.addWarning("depends_on", name, 0, 0,
					"dependency %q gated on completed-successfully is never satisfied: %q restarts always and never reaches a final Exited(0)", dep.Name, dep.Name)
			}
		}

		if svc.HealthCheck != nil && svc.HealthCheck.Retries == 0 {
			result.addWarning("healthcheck.retries", name, 0, 0, "retries=0 marks unhealthy after a single failed probe")
		}
	}

	checkCycles(cfg, result)
}

func checkCycles(cfg *Config, result *Result) {
	const (
		unvisited = 0
		visiting  = 1
		done      = 2
	)
	state := make(map[string]int, len(cfg.Services))

	var path []string
	var visit func(name string) bool
	visit = func(name string) bool {
		switch state[name] {
		case done:
			return false
		case visiting:
			return true
		}
		state[name] = visiting
		path = append(path, name)

		svc, exists := cfg.Services[name]
		if exists {
			for _, dep := range svc.DependsOn {
				if _, depExists := cfg.Services[dep.Name]; !depExists {
					continue // reported separately
				}
				if visit(dep.Name) {
					return true
				}
			}
		}

		path = path[:len(path)-1]
		state[name] = done
		return false
	}

	for name := range cfg.Services {
		if state[name] == unvisited {
			if visit(name) {
				result.addError("depends_on", "", 0, 0, "dependency cycle detected: %s", cyclePath(path))
				return
			}
		}
	}
}

func cyclePath(path []string) string {
	if len(path) == 0 {
		return ""
	}
	s := ""
	for i, name := range path {
		if i > 0 {
			s += " -> "
		}
		s += name
	}
	return s + " -> " + path[0]
}

// structuralValidate is kept as a small indirection point so future
// passes (e.g. linting hook commands) have one place to hang additional
// checks without touching Load's signature.
func structuralValidate(cfg *Config, result *Result) {
	if cfg.Version != "" && cfg.Version != "1" {
		result.addWarning("version", "", 0, 0, "unrecognized config version %q, expected \"1\"", cfg.Version)
	}
	for name, svc := range cfg.Services {
		for _, edge := range svc.DependsOn {
			if edge.Name == name {
				result.addError("depends_on", name, 0, 0, fmt.Sprintf("service %q depends on itself", name))
			}
		}
	}
}
