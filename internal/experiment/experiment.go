package experiment

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/san-kum/livetrain/internal/clock"
	"github.com/san-kum/livetrain/internal/config"
	"github.com/san-kum/livetrain/internal/dynamo"
	"github.com/san-kum/livetrain/internal/noise"
	"github.com/san-kum/livetrain/internal/physics"
	"github.com/san-kum/livetrain/internal/robot"
	"github.com/san-kum/livetrain/internal/sim"
)

type Experiment struct {
	cfg       *config.Config
	registry  *Registry
	simulator *sim.Simulation
	metrics   []dynamo.Metric
	logger    *zap.Logger
}

func New(cfg *config.Config, logger *zap.Logger) *Experiment {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Experiment{cfg: cfg, registry: NewRegistry(), logger: logger}
}

// Setup builds the simulation described by the config. Metrics default to
// every registered metric.
func (e *Experiment) Setup(metrics ...dynamo.Metric) error {
	s, err := Build(e.cfg, e.registry, e.logger)
	if err != nil {
		return err
	}
	if len(metrics) == 0 {
		metrics = e.registry.DefaultMetrics()
	}
	e.simulator = s
	e.metrics = metrics
	return nil
}

// Run advances the simulation headlessly for the configured duration.
func (e *Experiment) Run(ctx context.Context) (*dynamo.Result, error) {
	if e.simulator == nil {
		return nil, fmt.Errorf("experiment not setup")
	}
	return e.simulator.RunFor(ctx, e.cfg.Sim.Duration, e.cfg.Sim.SampleInterval, e.metrics...)
}

func (e *Experiment) Config() *config.Config { return e.cfg }

// GetSimulator returns the underlying simulation for adding observers.
func (e *Experiment) GetSimulator() *sim.Simulation {
	return e.simulator
}

// Build wires clock, noise, body, robot and simulation from cfg. The
// simulation is returned paused at the initial pose.
func Build(cfg *config.Config, registry *Registry, logger *zap.Logger) (*sim.Simulation, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if registry == nil {
		registry = NewRegistry()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	integ, err := registry.GetIntegrator(cfg.Sim.Integrator)
	if err != nil {
		return nil, err
	}

	clk := clock.New()
	gen := noise.NewGenerator(cfg.Sim.Seed, logger.Named("noise"))
	gen.SetStatic(cfg.Noise.Static)
	gen.SetAdditive(cfg.Noise.Additive)
	gen.SetEnabled(cfg.Noise.Enabled)

	body := physics.NewBody("robot", integ, clk)
	r := robot.New(cfg.Robot.Width, cfg.Robot.Height, body, gen, logger.Named("robot"))
	if err := Apply(cfg, r); err != nil {
		return nil, err
	}

	s := sim.New(clk, gen, r, sim.Options{
		Resolution: cfg.Sim.Resolution,
		MaxAdvance: cfg.Sim.MaxAdvance,
		Logger:     logger.Named("sim"),
	})
	if err := s.SetSpeed(cfg.Sim.Speed); err != nil {
		return nil, err
	}
	return s, nil
}

// Apply pushes the robot sections of cfg onto r and rebuilds its
// trajectory.
func Apply(cfg *config.Config, r *robot.Robot) error {
	r.ResetPose(cfg.Robot.InitialPose.Pose())
	if err := r.SetSize(cfg.Robot.Width, cfg.Robot.Height); err != nil {
		return err
	}
	if err := r.SetUpdateFrequency(cfg.Robot.UpdateFrequency); err != nil {
		return err
	}

	dt := r.Drivetrain()
	dt.SetType(cfg.Drivetrain.Type)
	dt.SetMaxVelocity(cfg.Drivetrain.MaxVelocity)
	if err := dt.SetWheelRadius(cfg.Drivetrain.WheelRadius); err != nil {
		return err
	}
	r.SetPowers(cfg.Robot.InitialPowers)

	if err := r.Follower().SetCoefficients(cfg.Follower.Heading, cfg.Follower.Lateral, cfg.Follower.Axial); err != nil {
		return err
	}
	r.SetConstraints(cfg.Constraints)
	r.SetFollowing(cfg.Robot.Following)

	_, err := r.BuildTrajectory(cfg.Waypoints(), cfg.Trajectory.Profile, cfg.Trajectory.Path)
	if errors.Is(err, dynamo.ErrDegeneratePath) && len(cfg.Trajectory.Waypoints) < 2 {
		// open-loop configuration
		return nil
	}
	return err
}
