package automation

import (
	"context"
	"fmt"
	"math"
	"os"
	"sort"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/livetrain/internal/dynamo"
	"github.com/san-kum/livetrain/internal/robot"
	"github.com/san-kum/livetrain/internal/sim"
)

// Scenario is a timeline of commands applied to a simulation. Command
// times are scenario seconds: while paused they pass without moving
// simulation time.
type Scenario struct {
	Name           string    `yaml:"name"`
	Description    string    `yaml:"description"`
	Preset         string    `yaml:"preset"`
	Duration       float64   `yaml:"duration"`
	SampleInterval float64   `yaml:"sample_interval"`
	Commands       []Command `yaml:"commands"`
}

type Command struct {
	At      float64   `yaml:"at"`
	Action  string    `yaml:"action"`
	Value   float64   `yaml:"value,omitempty"`
	Values  []float64 `yaml:"values,omitempty,flow"`
	Axis    string    `yaml:"axis,omitempty"`
	Enabled bool      `yaml:"enabled,omitempty"`
}

const (
	ActionRun          = "run"
	ActionPause        = "pause"
	ActionAdvance      = "advance"
	ActionSpeed        = "speed"
	ActionFollow       = "follow"
	ActionNoise        = "noise"
	ActionReset        = "reset"
	ActionPowers       = "powers"
	ActionCoefficients = "coefficients"
	ActionFrequency    = "frequency"
)

// LoadScenario loads a scenario from a YAML file
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, err
	}
	if err := scenario.Validate(); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", path, err)
	}
	return &scenario, nil
}

func (sc *Scenario) Validate() error {
	if sc.SampleInterval == 0 {
		sc.SampleInterval = 0.05
	}
	if !(sc.SampleInterval > 0) {
		return fmt.Errorf("sample interval %v: %w", sc.SampleInterval, dynamo.ErrParameterBounds)
	}
	for i, c := range sc.Commands {
		if c.At < 0 || math.IsNaN(c.At) {
			return fmt.Errorf("command %d at %v: %w", i, c.At, dynamo.ErrParameterBounds)
		}
		switch c.Action {
		case ActionRun, ActionPause, ActionAdvance, ActionSpeed, ActionFollow,
			ActionNoise, ActionReset, ActionPowers, ActionCoefficients, ActionFrequency:
		default:
			return fmt.Errorf("command %d action %q: %w", i, c.Action, dynamo.ErrUnknownKind)
		}
		if c.Action == ActionPowers && len(c.Values) != 4 {
			return fmt.Errorf("command %d needs 4 powers, got %d: %w", i, len(c.Values), dynamo.ErrParameterBounds)
		}
	}
	return nil
}

// Runner plays a scenario against one simulation.
type Runner struct {
	sim     *sim.Simulation
	running bool
	samples []dynamo.Telemetry
	steps   int
	errs    []error
	logger  *zap.Logger
}

func NewRunner(s *sim.Simulation, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{sim: s, logger: logger}
}

// Play executes the scenario and returns everything recorded. Metrics
// observe every pass across the whole timeline.
func (r *Runner) Play(ctx context.Context, sc *Scenario, metrics ...dynamo.Metric) (*dynamo.Result, error) {
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	commands := append([]Command(nil), sc.Commands...)
	sort.SliceStable(commands, func(i, j int) bool { return commands[i].At < commands[j].At })

	for _, m := range metrics {
		m.Reset()
	}
	r.sim.AddObserver(observerFunc(func(tel dynamo.Telemetry) {
		for _, m := range metrics {
			m.Observe(tel)
		}
	}))
	r.samples = append(r.samples[:0], r.sim.Snapshot())

	end := sc.Duration
	if n := len(commands); n > 0 && commands[n-1].At > end {
		end = commands[n-1].At
	}

	now := 0.0
	for i, c := range commands {
		if err := r.wait(ctx, c.At-now, sc.SampleInterval); err != nil {
			return r.result(metrics), err
		}
		now = c.At
		r.logger.Info("scenario command",
			zap.Int("index", i),
			zap.Float64("at", c.At),
			zap.String("action", c.Action))
		if err := r.apply(ctx, c, sc.SampleInterval); err != nil {
			return r.result(metrics), fmt.Errorf("command %d (%s): %w", i, c.Action, err)
		}
	}
	if err := r.wait(ctx, end-now, sc.SampleInterval); err != nil {
		return r.result(metrics), err
	}
	return r.result(metrics), nil
}

// wait lets d scenario seconds pass, moving simulation time only while
// running.
func (r *Runner) wait(ctx context.Context, d, interval float64) error {
	if d <= 1e-12 || !r.running {
		return nil
	}
	return r.advance(ctx, d, interval)
}

func (r *Runner) advance(ctx context.Context, d, interval float64) error {
	res, err := r.sim.RunFor(ctx, d, interval)
	if res != nil {
		r.samples = append(r.samples, res.Samples[1:]...)
		r.steps += res.StepsTaken
		r.errs = append(r.errs, res.Errors...)
	}
	return err
}

func (r *Runner) apply(ctx context.Context, c Command, interval float64) error {
	switch c.Action {
	case ActionRun:
		r.running = true
	case ActionPause:
		r.running = false
	case ActionAdvance:
		if !(c.Value > 0) || c.Value > r.sim.MaxAdvance() {
			return fmt.Errorf("advance %v: %w", c.Value, dynamo.ErrParameterBounds)
		}
		return r.advance(ctx, c.Value, interval)
	case ActionSpeed:
		return r.sim.SetSpeed(c.Value)
	case ActionNoise:
		r.sim.Noise().SetEnabled(c.Enabled)
	case ActionReset:
		r.running = false
		r.sim.Reset()
	case ActionFollow:
		return r.sim.WithRobot(func(rb *robot.Robot) error {
			rb.SetFollowing(c.Enabled)
			return nil
		})
	case ActionPowers:
		return r.sim.WithRobot(func(rb *robot.Robot) error {
			rb.SetPowers(dynamo.WheelPowers{c.Values[0], c.Values[1], c.Values[2], c.Values[3]})
			return nil
		})
	case ActionFrequency:
		return r.sim.WithRobot(func(rb *robot.Robot) error {
			return rb.SetUpdateFrequency(c.Value)
		})
	case ActionCoefficients:
		return r.sim.WithRobot(func(rb *robot.Robot) error {
			h, l, a := rb.Follower().Coefficients()
			switch c.Axis {
			case "heading":
				return rb.Follower().SetCoefficients(c.Values, l[:], a[:])
			case "lateral":
				return rb.Follower().SetCoefficients(h[:], c.Values, a[:])
			case "axial":
				return rb.Follower().SetCoefficients(h[:], l[:], c.Values)
			default:
				return fmt.Errorf("axis %q: %w", c.Axis, dynamo.ErrUnknownKind)
			}
		})
	}
	return nil
}

func (r *Runner) result(metrics []dynamo.Metric) *dynamo.Result {
	res := &dynamo.Result{
		Samples:    r.samples,
		Metrics:    make(map[string]float64, len(metrics)),
		StepsTaken: r.steps,
		Errors:     r.errs,
	}
	for _, m := range metrics {
		res.Metrics[m.Name()] = m.Value()
	}
	return res
}

type observerFunc func(dynamo.Telemetry)

func (f observerFunc) OnStep(tel dynamo.Telemetry) { f(tel) }
