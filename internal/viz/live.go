package viz

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"go.uber.org/zap"

	"github.com/san-kum/livetrain/internal/dynamo"
	"github.com/san-kum/livetrain/internal/robot"
	"github.com/san-kum/livetrain/internal/sim"
)

const (
	width           = 64
	height          = 22
	historyCapacity = 600
	pathSamples     = 200
	minSpeed        = 0.125
	maxSpeed        = 16
)

type TickMsg time.Time

type Options struct {
	Title     string
	FrameRate int
	AdvanceBy float64
	Logger    *zap.Logger
}

// Model renders a running simulation and maps keys onto its controls.
// The simulation loop itself runs elsewhere; the model only snapshots.
type Model struct {
	sim       *sim.Simulation
	title     string
	frame     time.Duration
	advanceBy float64

	canvas        *Canvas
	view          Viewport
	path          []dynamo.Vec2
	robotW        float64
	robotH        float64
	trail         []dynamo.Vec2
	errorHistory  []float64
	last          dynamo.Telemetry
	message       string
	showHelp      bool
	width, height int
	logger        *zap.Logger
}

func NewModel(s *sim.Simulation, opts Options) Model {
	if opts.FrameRate <= 0 {
		opts.FrameRate = 30
	}
	if opts.AdvanceBy <= 0 {
		opts.AdvanceBy = 0.1
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	m := Model{
		sim:          s,
		title:        opts.Title,
		frame:        time.Second / time.Duration(opts.FrameRate),
		advanceBy:    opts.AdvanceBy,
		canvas:       NewCanvas(width, height),
		trail:        make([]dynamo.Vec2, 0, historyCapacity),
		errorHistory: make([]float64, 0, historyCapacity),
		width:        width,
		height:       height,
		logger:       opts.Logger,
	}

	_ = s.WithRobot(func(r *robot.Robot) error {
		m.robotW, m.robotH = r.Size()
		if traj := r.Follower().Trajectory(); traj != nil {
			for i := 0; i <= pathSamples; i++ {
				t := traj.Duration() * float64(i) / pathSamples
				m.path = append(m.path, traj.PoseAt(t).Position())
			}
		}
		return nil
	})

	bounds := append([]dynamo.Vec2{s.InitialPose().Position()}, m.path...)
	m.view = FitViewport(bounds, m.robotW+m.robotH)
	m.last = s.Snapshot()
	return m
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.frame, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Init() tea.Cmd {
	return m.tick()
}

// Update handles input events and samples the simulation.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
	case TickMsg:
		m.observe(m.sim.Snapshot())
		return m, m.tick()
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var err error
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case " ":
		m.sim.SetRunning(!m.sim.Running())
	case "r":
		m.sim.Reset()
		m.trail = m.trail[:0]
		m.errorHistory = m.errorHistory[:0]
	case "+", "=":
		err = m.sim.SetSpeed(clampSpeed(m.sim.Speed() * 2))
	case "-", "_":
		err = m.sim.SetSpeed(clampSpeed(m.sim.Speed() / 2))
	case "a":
		err = m.sim.AdvanceBy(m.advanceBy)
	case "f":
		err = m.sim.WithRobot(func(r *robot.Robot) error {
			r.SetFollowing(!r.Following())
			return nil
		})
	case "n":
		gen := m.sim.Noise()
		gen.SetEnabled(!gen.Enabled())
	case "t":
		NextTheme()
	case "?":
		m.showHelp = !m.showHelp
	default:
		return m, nil
	}

	m.message = ""
	if err != nil {
		m.message = err.Error()
		m.logger.Warn("live command failed", zap.String("key", msg.String()), zap.Error(err))
	}
	m.observe(m.sim.Snapshot())
	return m, nil
}

func clampSpeed(f float64) float64 {
	if f < minSpeed {
		return minSpeed
	}
	if f > maxSpeed {
		return maxSpeed
	}
	return f
}

func (m *Model) observe(tel dynamo.Telemetry) {
	m.last = tel
	if !tel.Pose.IsValid() {
		return
	}
	pos := tel.Pose.Position()
	if n := len(m.trail); n == 0 || m.trail[n-1] != pos {
		m.trail = appendCapped(m.trail, pos)
		m.errorHistory = appendCapped(m.errorHistory, tel.Error().Position().Norm())
	}
}

func appendCapped[T any](s []T, v T) []T {
	if len(s) >= historyCapacity {
		copy(s, s[1:])
		s = s[:len(s)-1]
	}
	return append(s, v)
}

func (m *Model) draw() {
	m.canvas.Clear()
	m.canvas.DrawPolyline(m.view, m.path)
	for _, p := range m.trail {
		m.canvas.Plot(m.view, p)
	}
	if m.last.Following {
		m.canvas.DrawCross(m.view, m.last.Reference.Position())
	}
	m.canvas.DrawRobot(m.view, m.last.Pose, m.robotW, m.robotH)
}

// View renders the TUI interface.
func (m Model) View() string {
	m.draw()
	p := currentPalette()
	tel := m.last

	var s strings.Builder
	title := m.title
	if title == "" {
		title = "livetrain"
	}
	s.WriteString(p.header.Render(strings.ToUpper(title)) + "\n")

	status := p.paused.Render("PAUSED")
	if tel.Running {
		status = p.running.Render("RUNNING")
	}
	s.WriteString(status + "\n\n")

	row := func(label, value string) {
		s.WriteString(p.label.Render(label) + p.value.Render(value) + "\n")
	}
	row("Time", fmt.Sprintf("%.2fs", tel.Time))
	row("Speed", fmt.Sprintf("%gx", tel.Speed))
	row("Following", onOff(tel.Following))
	row("Noise", onOff(tel.NoiseEnabled))
	row("Pose", tel.Pose.String())
	row("Estimate", tel.Estimated.String())
	row("Reference", tel.Reference.String())
	row("Error", fmt.Sprintf("%.3f", tel.Error().Position().Norm()))

	s.WriteString("\n" + p.muted.Render("WHEELS") + "\n")
	for i, name := range []string{"FL", "BL", "BR", "FR"} {
		s.WriteString(fmt.Sprintf("%s %s %+.2f\n", p.label.Width(4).Render(name), PowerBar(tel.Powers[i], 8), tel.Powers[i]))
	}

	if len(m.errorHistory) > 1 {
		chart := asciigraph.Plot(m.errorHistory, asciigraph.Height(4), asciigraph.Width(30), asciigraph.Caption("position error"))
		s.WriteString(p.graph.Render(chart) + "\n")
	}
	if m.message != "" {
		s.WriteString(p.warn.Render(m.message) + "\n")
	}

	s.WriteString("\n" + keyHints(p))
	statsView := p.panel.Render(s.String())
	canvasView := lipgloss.NewStyle().Padding(1, 2).Render(m.canvas.String())
	mainView := lipgloss.JoinHorizontal(lipgloss.Top, canvasView, statsView)
	if m.showHelp {
		return helpText + "\n" + mainView
	}
	return mainView
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func keyHints(p palette) string {
	hints := []struct{ key, desc string }{
		{"space", "run"}, {"r", "reset"}, {"+/-", "speed"}, {"a", "advance"},
		{"f", "follow"}, {"n", "noise"}, {"?", "help"}, {"q", "quit"},
	}
	var b strings.Builder
	for i, h := range hints {
		if i > 0 && i%4 == 0 {
			b.WriteString("\n")
		}
		b.WriteString(p.key.Render(h.key) + p.muted.Render(" "+h.desc+"  "))
	}
	return b.String()
}

const helpText = `
╔══════════════════════════════════════╗
║          KEYBOARD SHORTCUTS          ║
╠══════════════════════════════════════╣
║  Space    - Run/Pause simulation     ║
║  R        - Reset to initial pose    ║
║  + / -    - Double / halve speed     ║
║  A        - Advance paused time      ║
║  F        - Toggle trajectory follow ║
║  N        - Toggle pose noise        ║
║  T        - Cycle themes             ║
║  ?        - Toggle this help         ║
║  Q        - Quit                     ║
╚══════════════════════════════════════╝`
