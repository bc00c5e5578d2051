package config

import (
	"fmt"
	"math"
	"os"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/livetrain/internal/dynamo"
	"github.com/san-kum/livetrain/internal/integrators"
	"github.com/san-kum/livetrain/internal/noise"
	"github.com/san-kum/livetrain/internal/robot"
	"github.com/san-kum/livetrain/internal/trajectory"
)

const (
	DefaultDuration       = 20.0
	DefaultSampleInterval = 0.05
	DefaultResolution     = 0.01
	DefaultMaxAdvance     = 600.0
	DefaultFrameRate      = 30
	DefaultAdvanceBy      = 0.1

	DefaultWidth       = 18.0
	DefaultHeight      = 18.0
	DefaultWheelRadius = 2.0
	MinWheelRadius     = robot.MinWheelRadius
)

type Config struct {
	Name        string                 `yaml:"name,omitempty"`
	Sim         SimConfig              `yaml:"sim"`
	Robot       RobotConfig            `yaml:"robot"`
	Drivetrain  DrivetrainConfig       `yaml:"drivetrain"`
	Follower    FollowerConfig         `yaml:"follower"`
	Constraints trajectory.Constraints `yaml:"constraints"`
	Trajectory  TrajectoryConfig       `yaml:"trajectory"`
	Noise       NoiseConfig            `yaml:"noise"`
}

type SimConfig struct {
	Duration       float64 `yaml:"duration"`
	SampleInterval float64 `yaml:"sample_interval"`
	Resolution     float64 `yaml:"resolution"`
	MaxAdvance     float64 `yaml:"max_advance"`
	AdvanceBy      float64 `yaml:"advance_by"`
	Speed          float64 `yaml:"speed"`
	Seed           int64   `yaml:"seed"`
	Integrator     string  `yaml:"integrator"`
	FrameRate      int     `yaml:"frame_rate"`
}

type RobotConfig struct {
	Width           float64            `yaml:"width"`
	Height          float64            `yaml:"height"`
	UpdateFrequency float64            `yaml:"update_frequency"`
	Following       bool               `yaml:"following"`
	InitialPose     WaypointConfig     `yaml:"initial_pose"`
	InitialPowers   dynamo.WheelPowers `yaml:"initial_powers"`
}

type DrivetrainConfig struct {
	Type        robot.DriveType `yaml:"type"`
	WheelRadius float64         `yaml:"wheel_radius"`
	MaxVelocity float64         `yaml:"max_velocity"`
}

// FollowerConfig holds {P, I, D, V, A, S} per axis.
type FollowerConfig struct {
	Heading []float64 `yaml:"heading,flow"`
	Lateral []float64 `yaml:"lateral,flow"`
	Axial   []float64 `yaml:"axial,flow"`
}

// WaypointConfig is a pose with its heading in degrees.
type WaypointConfig struct {
	X       float64 `json:"x" yaml:"x"`
	Y       float64 `json:"y" yaml:"y"`
	Heading float64 `json:"heading" yaml:"heading"`
}

func (w WaypointConfig) Pose() dynamo.Pose {
	return dynamo.NewPose(w.X, w.Y, w.Heading*math.Pi/180)
}

type TrajectoryConfig struct {
	Path      trajectory.PathType    `yaml:"path"`
	Profile   trajectory.ProfileType `yaml:"profile"`
	Waypoints []WaypointConfig       `yaml:"waypoints"`
}

type NoiseConfig struct {
	Enabled  bool        `yaml:"enabled"`
	Static   noise.Noise `yaml:"static"`
	Additive noise.Noise `yaml:"additive"`
}

func DefaultConfig() *Config {
	return &Config{
		Name: "default",
		Sim: SimConfig{
			Duration:       DefaultDuration,
			SampleInterval: DefaultSampleInterval,
			Resolution:     DefaultResolution,
			MaxAdvance:     DefaultMaxAdvance,
			AdvanceBy:      DefaultAdvanceBy,
			Speed:          1,
			Integrator:     "exact",
			FrameRate:      DefaultFrameRate,
		},
		Robot: RobotConfig{
			Width:           DefaultWidth,
			Height:          DefaultHeight,
			UpdateFrequency: robot.DefaultUpdateFrequency,
			Following:       true,
			InitialPose:     WaypointConfig{X: 24, Y: 24},
		},
		Drivetrain: DrivetrainConfig{
			Type:        robot.Mecanum,
			WheelRadius: DefaultWheelRadius,
			MaxVelocity: robot.DefaultMaxVelocity,
		},
		Follower: FollowerConfig{
			Heading: []float64{2, 0, 0, 0, 0, 0},
			Lateral: []float64{-0.5, 0, 0, 0.01, 0, 0},
			Axial:   []float64{-0.5, 0, 0, 0.01, 0, 0},
		},
		Constraints: trajectory.NewConstraints(12, 6, 4),
		Trajectory: TrajectoryConfig{
			Path:    trajectory.HermiteQuintic,
			Profile: trajectory.Trapezoidal,
			Waypoints: []WaypointConfig{
				{X: 24, Y: 24, Heading: 0},
				{X: 144, Y: 144, Heading: 45},
			},
		},
		Noise: NoiseConfig{
			Enabled:  false,
			Static:   noise.New(noise.Sinusoidal, 0, 0),
			Additive: noise.New(noise.Sinusoidal, 0, 0),
		},
	}
}

// Load reads a YAML file on top of DefaultConfig and validates it.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate %s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate reports every out-of-range field at once.
func (c *Config) Validate() error {
	var errs error
	bound := func(ok bool, format string, args ...any) {
		if !ok {
			errs = multierr.Append(errs, fmt.Errorf(format+": %w", append(args, dynamo.ErrParameterBounds)...))
		}
	}

	bound(c.Sim.Duration > 0, "sim.duration %v", c.Sim.Duration)
	bound(c.Sim.SampleInterval > 0, "sim.sample_interval %v", c.Sim.SampleInterval)
	bound(c.Sim.Resolution > 0 && c.Sim.Resolution <= c.Sim.SampleInterval,
		"sim.resolution %v", c.Sim.Resolution)
	bound(c.Sim.MaxAdvance > 0, "sim.max_advance %v", c.Sim.MaxAdvance)
	bound(c.Sim.AdvanceBy > 0 && c.Sim.AdvanceBy <= c.Sim.MaxAdvance, "sim.advance_by %v", c.Sim.AdvanceBy)
	bound(c.Sim.Speed >= 0, "sim.speed %v", c.Sim.Speed)
	bound(c.Sim.FrameRate > 0, "sim.frame_rate %v", c.Sim.FrameRate)
	if _, err := integrators.New(c.Sim.Integrator); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("sim.integrator: %w", err))
	}

	bound(c.Robot.Width > 0 && c.Robot.Height > 0, "robot size %vx%v", c.Robot.Width, c.Robot.Height)
	bound(c.Robot.UpdateFrequency >= robot.MinUpdateFrequency, "robot.update_frequency %v", c.Robot.UpdateFrequency)
	bound(c.Drivetrain.WheelRadius >= MinWheelRadius, "drivetrain.wheel_radius %v", c.Drivetrain.WheelRadius)
	bound(c.Drivetrain.MaxVelocity > 0, "drivetrain.max_velocity %v", c.Drivetrain.MaxVelocity)

	for axis, coeffs := range map[string][]float64{
		"heading": c.Follower.Heading,
		"lateral": c.Follower.Lateral,
		"axial":   c.Follower.Axial,
	} {
		if len(coeffs) != 6 {
			errs = multierr.Append(errs, fmt.Errorf("follower.%s has %d values: %w", axis, len(coeffs), dynamo.ErrCoefficientLength))
		}
	}

	if err := c.Constraints.Validate(c.Trajectory.Profile); err != nil {
		errs = multierr.Append(errs, err)
	}
	if !c.Robot.InitialPose.Pose().IsValid() {
		errs = multierr.Append(errs, fmt.Errorf("robot.initial_pose: %w", dynamo.ErrNonFinite))
	}
	for i, w := range c.Trajectory.Waypoints {
		if !w.Pose().IsValid() {
			errs = multierr.Append(errs, fmt.Errorf("trajectory.waypoints[%d]: %w", i, dynamo.ErrNonFinite))
		}
	}
	bound(c.Noise.Static.Upper >= c.Noise.Static.Lower, "noise.static %v", c.Noise.Static)
	bound(c.Noise.Additive.Upper >= c.Noise.Additive.Lower, "noise.additive %v", c.Noise.Additive)
	return errs
}

// Waypoints converts the trajectory waypoints to radians.
func (c *Config) Waypoints() []dynamo.Pose {
	poses := make([]dynamo.Pose, len(c.Trajectory.Waypoints))
	for i, w := range c.Trajectory.Waypoints {
		poses[i] = w.Pose()
	}
	return poses
}

// Clone returns a deep copy so presets are never mutated by callers.
func (c *Config) Clone() *Config {
	out := *c
	out.Follower.Heading = append([]float64(nil), c.Follower.Heading...)
	out.Follower.Lateral = append([]float64(nil), c.Follower.Lateral...)
	out.Follower.Axial = append([]float64(nil), c.Follower.Axial...)
	out.Trajectory.Waypoints = append([]WaypointConfig(nil), c.Trajectory.Waypoints...)
	return &out
}
