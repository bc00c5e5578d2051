package viz

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/san-kum/livetrain/internal/config"
	"github.com/san-kum/livetrain/internal/experiment"
	"github.com/san-kum/livetrain/internal/robot"
)

func newTestModel(t *testing.T) Model {
	t.Helper()
	s, err := experiment.Build(config.GetPreset("line"), experiment.NewRegistry(), nil)
	if err != nil {
		t.Fatal(err)
	}
	return NewModel(s, Options{Title: "line", AdvanceBy: 0.5})
}

func key(s string) tea.KeyMsg {
	if s == " " {
		return tea.KeyMsg{Type: tea.KeySpace}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(m Model, keys ...string) Model {
	for _, k := range keys {
		next, _ := m.Update(key(k))
		m = next.(Model)
	}
	return m
}

func TestModel_SamplesPath(t *testing.T) {
	m := newTestModel(t)
	if len(m.path) != pathSamples+1 {
		t.Fatalf("expected %d path samples, got %d", pathSamples+1, len(m.path))
	}
	if m.view.MinX >= 24 || m.view.MaxX <= 120 {
		t.Errorf("viewport %+v does not cover the path", m.view)
	}
}

func TestModel_Keys(t *testing.T) {
	m := newTestModel(t)

	m = press(m, " ")
	if !m.sim.Running() {
		t.Error("space should start the simulation")
	}
	m = press(m, " ")
	if m.sim.Running() {
		t.Error("space should pause the simulation")
	}

	m = press(m, "+")
	if m.sim.Speed() != 2 {
		t.Errorf("expected speed 2, got %v", m.sim.Speed())
	}
	m = press(m, "-", "-", "-")
	if m.sim.Speed() != 0.25 {
		t.Errorf("expected speed 0.25, got %v", m.sim.Speed())
	}

	m = press(m, "f")
	_ = m.sim.WithRobot(func(r *robot.Robot) error {
		if r.Following() {
			t.Error("f should disable following")
		}
		return nil
	})

	m = press(m, "n")
	if !m.sim.Noise().Enabled() {
		t.Error("n should enable noise")
	}
}

func TestModel_AdvanceAndReset(t *testing.T) {
	m := newTestModel(t)
	m = press(m, "a")
	if err := m.sim.Update(); err != nil {
		t.Fatal(err)
	}
	next, _ := m.Update(TickMsg{})
	m = next.(Model)
	if m.last.Time <= 0 {
		t.Errorf("expected time to advance, got %v", m.last.Time)
	}
	if len(m.trail) == 0 {
		t.Error("expected a trail point")
	}

	m = press(m, "r")
	if len(m.trail) != 1 || m.last.Time != 0 {
		t.Errorf("reset should clear the trail, got %d points at t=%v", len(m.trail), m.last.Time)
	}
}

func TestModel_View(t *testing.T) {
	m := newTestModel(t)
	out := m.View()
	for _, want := range []string{"LINE", "PAUSED", "Following", "FL"} {
		if !strings.Contains(out, want) {
			t.Errorf("view missing %q", want)
		}
	}

	m = press(m, "?")
	if !strings.Contains(m.View(), "KEYBOARD SHORTCUTS") {
		t.Error("expected help overlay")
	}
}

func TestModel_Quit(t *testing.T) {
	m := newTestModel(t)
	_, cmd := m.Update(key("q"))
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
}
