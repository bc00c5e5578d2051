package viz

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/san-kum/livetrain/internal/config"
	"github.com/san-kum/livetrain/internal/experiment"
	"github.com/san-kum/livetrain/internal/sim"
)

var presetInfo = map[string]string{
	"default": "quintic diagonal", "line": "straight cubic run", "square": "closed four-corner loop",
	"s-curve": "jerk-limited sweep", "slalom": "alternating gates", "noisy": "random pose noise",
	"drift": "additive odometry drift",
}

const (
	stateMenu = iota
	stateConfig
	stateSim
)

// tick is the wall-clock period of the background simulation loop.
const tick = 10 * time.Millisecond

type param struct {
	name string
	step float64
	get  func(*config.Config) float64
	set  func(*config.Config, float64)
}

var params = []param{
	{"speed", 0.25,
		func(c *config.Config) float64 { return c.Sim.Speed },
		func(c *config.Config, v float64) { c.Sim.Speed = v }},
	{"update_hz", 10,
		func(c *config.Config) float64 { return c.Robot.UpdateFrequency },
		func(c *config.Config, v float64) { c.Robot.UpdateFrequency = v }},
	{"heading_p", 0.1,
		func(c *config.Config) float64 { return c.Follower.Heading[0] },
		func(c *config.Config, v float64) { c.Follower.Heading[0] = v }},
	{"lateral_p", 0.1,
		func(c *config.Config) float64 { return c.Follower.Lateral[0] },
		func(c *config.Config, v float64) { c.Follower.Lateral[0] = v }},
	{"axial_p", 0.1,
		func(c *config.Config) float64 { return c.Follower.Axial[0] },
		func(c *config.Config, v float64) { c.Follower.Axial[0] = v }},
	{"max_vel", 1,
		func(c *config.Config) float64 { return c.Constraints.MaxVelocity },
		func(c *config.Config, v float64) { c.Constraints.MaxVelocity = v }},
}

type app struct {
	state, cursor int
	presets       []string
	cfg           *config.Config
	paramCursor   int
	editing       bool
	editBuf       string
	message       string
	registry      *experiment.Registry
	logger        *zap.Logger
	cancel        context.CancelFunc
	liveModel     Model
}

func NewInteractiveApp(registry *experiment.Registry, logger *zap.Logger) *app {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &app{
		state:    stateMenu,
		presets:  config.ListPresets(),
		registry: registry,
		logger:   logger,
	}
}

func (m app) Init() tea.Cmd { return nil }

func (m app) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	default:
		if m.state == stateSim {
			newLive, cmd := m.liveModel.Update(msg)
			m.liveModel = newLive.(Model)
			return m, cmd
		}
	}
	return m, nil
}

func (m app) handleKey(msg tea.KeyMsg) (app, tea.Cmd) {
	switch m.state {
	case stateMenu:
		return m.menuKey(msg)
	case stateConfig:
		return m.configKey(msg)
	case stateSim:
		if msg.String() == "esc" {
			m.stop()
			m.state = stateConfig
			return m, nil
		}
		newLive, cmd := m.liveModel.Update(msg)
		m.liveModel = newLive.(Model)
		return m, cmd
	}
	return m, nil
}

func (m app) menuKey(msg tea.KeyMsg) (app, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.presets)-1 {
			m.cursor++
		}
	case "enter", " ":
		m.cfg = config.GetPreset(m.presets[m.cursor])
		m.state, m.paramCursor, m.message = stateConfig, 0, ""
	}
	return m, nil
}

func (m app) configKey(msg tea.KeyMsg) (app, tea.Cmd) {
	p := params[m.paramCursor]
	if m.editing {
		switch msg.String() {
		case "enter":
			if val, err := strconv.ParseFloat(m.editBuf, 64); err == nil {
				p.set(m.cfg, val)
			}
			m.editing, m.editBuf = false, ""
		case "esc":
			m.editing, m.editBuf = false, ""
		case "backspace":
			if len(m.editBuf) > 0 {
				m.editBuf = m.editBuf[:len(m.editBuf)-1]
			}
		default:
			if len(msg.String()) == 1 {
				c := msg.String()[0]
				if (c >= '0' && c <= '9') || c == '.' || c == '-' {
					m.editBuf += string(c)
				}
			}
		}
		return m, nil
	}
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "q", "esc":
		m.state = stateMenu
	case "up", "k":
		if m.paramCursor > 0 {
			m.paramCursor--
		}
	case "down", "j":
		if m.paramCursor < len(params)-1 {
			m.paramCursor++
		}
	case "enter", " ":
		m.editing, m.editBuf = true, strconv.FormatFloat(p.get(m.cfg), 'f', -1, 64)
	case "left", "h":
		p.set(m.cfg, p.get(m.cfg)-p.step)
	case "right", "l":
		p.set(m.cfg, p.get(m.cfg)+p.step)
	case "s":
		return m.start()
	}
	return m, nil
}

// start builds the simulation from the edited config and runs its loop in
// the background until the user leaves the live view.
func (m app) start() (app, tea.Cmd) {
	if err := m.cfg.Validate(); err != nil {
		m.message = err.Error()
		return m, nil
	}
	s, err := experiment.Build(m.cfg, m.registry, m.logger)
	if err != nil {
		m.message = err.Error()
		return m, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx, tick)
	s.SetRunning(true)

	m.cancel = cancel
	m.liveModel = NewModel(s, Options{
		Title:     m.cfg.Name,
		FrameRate: m.cfg.Sim.FrameRate,
		AdvanceBy: m.cfg.Sim.AdvanceBy,
		Logger:    m.logger,
	})
	m.state, m.message = stateSim, ""
	return m, m.liveModel.Init()
}

func (m *app) stop() {
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
}

func (m app) View() string {
	switch m.state {
	case stateMenu:
		return m.viewMenu()
	case stateConfig:
		return m.viewConfig()
	case stateSim:
		return m.liveModel.View()
	}
	return ""
}

func (m app) viewMenu() string {
	p := currentPalette()
	var b strings.Builder
	b.WriteString("\n\n    " + p.header.Render("LIVETRAIN") + "\n    " + p.muted.Render("trajectory tracking simulator") + "\n    " + p.muted.Render("─────────────────────────────") + "\n\n")
	for i, name := range m.presets {
		if i == m.cursor {
			b.WriteString(fmt.Sprintf("    %s %s  %s\n", p.key.Render("▸"), p.value.Bold(true).Render(fmt.Sprintf("%-10s", name)), p.running.Render(presetInfo[name])))
		} else {
			b.WriteString(fmt.Sprintf("      %s  %s\n", p.label.Render(fmt.Sprintf("%-10s", name)), p.muted.Render(presetInfo[name])))
		}
	}
	b.WriteString("\n    " + p.key.Render("j/k") + p.muted.Render(" navigate  ") + p.key.Render("enter") + p.muted.Render(" select  ") + p.key.Render("q") + p.muted.Render(" quit") + "\n")
	return b.String()
}

func (m app) viewConfig() string {
	p := currentPalette()
	var b strings.Builder
	b.WriteString("\n\n    " + p.header.Render(strings.ToUpper(m.cfg.Name)) + "\n    " + p.muted.Render(presetInfo[m.cfg.Name]) + "\n    " + p.muted.Render("─────────────────────────") + "\n\n")
	for i, prm := range params {
		valStr := fmt.Sprintf("%8.3f", prm.get(m.cfg))
		if m.editing && i == m.paramCursor {
			valStr = fmt.Sprintf("%8s", m.editBuf+"_")
		}
		if i == m.paramCursor {
			b.WriteString(fmt.Sprintf("    %s %s %s\n", p.key.Render("▸"), p.value.Bold(true).Render(fmt.Sprintf("%-10s", prm.name)), p.running.Render(valStr)))
		} else {
			b.WriteString(fmt.Sprintf("      %s %s\n", p.label.Render(fmt.Sprintf("%-10s", prm.name)), p.muted.Render(valStr)))
		}
	}
	if m.message != "" {
		b.WriteString("\n    " + p.warn.Render(m.message) + "\n")
	}
	b.WriteString("\n    " + p.key.Render("j/k") + p.muted.Render(" select  ") + p.key.Render("h/l") + p.muted.Render(" adjust  ") + p.key.Render("s") + p.muted.Render(" start  ") + p.key.Render("esc") + p.muted.Render(" back") + "\n")
	return b.String()
}

// RunInteractive opens the preset menu on the alternate screen.
func RunInteractive(registry *experiment.Registry, logger *zap.Logger) error {
	final, err := tea.NewProgram(NewInteractiveApp(registry, logger), tea.WithAltScreen()).Run()
	switch a := final.(type) {
	case app:
		a.stop()
	case *app:
		a.stop()
	}
	return err
}

// RunLive starts the background loop of s and shows it until quit.
func RunLive(ctx context.Context, s *sim.Simulation, opts Options) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.Start(ctx, tick)
	_, err := tea.NewProgram(NewModel(s, opts), tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}
