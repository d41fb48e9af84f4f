package tui

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/micromux/micromux/internal/config"
	"github.com/micromux/micromux/internal/depgraph"
	"github.com/micromux/micromux/internal/supervisor"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testSupervisor(t *testing.T) *supervisor.Supervisor {
	t.Helper()
	specs := map[string]*config.ServiceSpec{
		"web": {Name: "web", Command: []string{"sh", "-c", "sleep 5"}, Cwd: "."},
		"db":  {Name: "db", Command: []string{"sh", "-c", "sleep 5"}, Cwd: "."},
	}
	g, err := depgraph.Build(specs)
	if err != nil {
		t.Fatalf("depgraph.Build: %v", err)
	}
	return supervisor.New(specs, g, supervisor.Options{Logger: discardLogger()})
}

func TestNewModel_DefaultsToTableView(t *testing.T) {
	m := New(testSupervisor(t))
	if m.view != viewTable {
		t.Errorf("view = %v, want viewTable", m.view)
	}
	if m.width != 100 || m.height != 30 {
		t.Errorf("unexpected default dimensions: %dx%d", m.width, m.height)
	}
}

func TestModel_RefreshPopulatesNames(t *testing.T) {
	m := New(testSupervisor(t))
	updated, _ := m.Update(refreshMsg(time.Now()))
	m2 := updated.(Model)
	if len(m2.names) != 2 {
		t.Fatalf("names = %v, want 2 entries", m2.names)
	}
	if m2.names[0] != "db" || m2.names[1] != "web" {
		t.Errorf("names not sorted: %v", m2.names)
	}
}

func TestModel_SelectedNameEmptyWithNoRows(t *testing.T) {
	m := New(testSupervisor(t))
	if got := m.selectedName(); got != "" {
		t.Errorf("selectedName() = %q, want empty", got)
	}
}
