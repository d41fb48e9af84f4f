package depgraph

import (
	"errors"
	"testing"

	"github.com/micromux/micromux/internal/config"
)

func spec(name string, deps ...string) *config.ServiceSpec {
	edges := make([]config.DependencyEdge, len(deps))
	for i, d := range deps {
		edges[i] = config.DependencyEdge{Name: d, Condition: config.ConditionStarted}
	}
	return &config.ServiceSpec{Name: name, Command: []string{"true"}, DependsOn: edges}
}

func TestBuild_SimpleChain(t *testing.T) {
	specs := map[string]*config.ServiceSpec{
		"a": spec("a"),
		"b": spec("b", "a"),
		"c": spec("c", "b"),
	}

	g, err := Build(specs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	order := g.TopologicalOrder()
	want := []string{"a", "b", "c"}
	if !equalSlices(order, want) {
		t.Errorf("order = %v, want %v", order, want)
	}
}

func TestBuild_DiamondAlphabeticalTieBreak(t *testing.T) {
	specs := map[string]*config.ServiceSpec{
		"a": spec("a"),
		"b": spec("b", "a"),
		"c": spec("c", "a"),
		"d": spec("d", "b", "c"),
	}

	g, err := Build(specs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	order := g.TopologicalOrder()
	want := []string{"a", "b", "c", "d"}
	if !equalSlices(order, want) {
		t.Errorf("order = %v, want %v", order, want)
	}
}

func TestBuild_OrderIndependent(t *testing.T) {
	// Same specs, built twice with map iteration order naturally varying;
	// the result must be identical both times.
	specs := map[string]*config.ServiceSpec{
		"web":    spec("web", "api", "cache"),
		"api":    spec("api", "db"),
		"cache":  spec("cache"),
		"db":     spec("db"),
		"worker": spec("worker", "db", "cache"),
	}

	g1, err := Build(specs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	g2, err := Build(specs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !equalSlices(g1.TopologicalOrder(), g2.TopologicalOrder()) {
		t.Errorf("graph construction is not a pure function of the input spec set")
	}
}

func TestBuild_UnknownDependency(t *testing.T) {
	specs := map[string]*config.ServiceSpec{
		"web": spec("web", "ghost"),
	}

	_, err := Build(specs)
	var unknown *UnknownDependencyError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected UnknownDependencyError, got %v", err)
	}
	if unknown.From != "web" || unknown.To != "ghost" {
		t.Errorf("unexpected error fields: %+v", unknown)
	}
}

func TestBuild_Cycle(t *testing.T) {
	specs := map[string]*config.ServiceSpec{
		"a": spec("a", "b"),
		"b": spec("b", "a"),
	}

	_, err := Build(specs)
	var cycle *CycleError
	if !errors.As(err, &cycle) {
		t.Fatalf("expected CycleError, got %v", err)
	}
	if len(cycle.Path) < 2 {
		t.Errorf("cycle path too short: %v", cycle.Path)
	}
}

func TestGatingReady(t *testing.T) {
	specs := map[string]*config.ServiceSpec{
		"api": spec("api"),
		"worker": {
			Name: "worker",
			DependsOn: []config.DependencyEdge{
				{Name: "api", Condition: config.ConditionHealthy},
			},
		},
	}
	g, err := Build(specs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	unhealthy := func(dep string, cond config.Condition) bool { return false }
	if g.GatingReady("worker", unhealthy) {
		t.Errorf("expected worker to not be gating-ready when api is unhealthy")
	}

	healthy := func(dep string, cond config.Condition) bool { return dep == "api" && cond == config.ConditionHealthy }
	if !g.GatingReady("worker", healthy) {
		t.Errorf("expected worker to be gating-ready when api is healthy")
	}

	if !g.GatingReady("api", healthy) {
		t.Errorf("service with no dependencies must always be gating-ready")
	}
}

func TestDependents(t *testing.T) {
	specs := map[string]*config.ServiceSpec{
		"a": spec("a"),
		"b": spec("b", "a"),
		"c": spec("c", "a"),
	}
	g, err := Build(specs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	deps := g.Dependents("a")
	if !equalSlices(sortedCopy(deps), []string{"b", "c"}) {
		t.Errorf("Dependents(a) = %v, want [b c]", deps)
	}
}

func equalSlices(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func sortedCopy(s []string) []string {
	out := append([]string{}, s...)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}
