package sim

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/san-kum/livetrain/internal/clock"
	"github.com/san-kum/livetrain/internal/dynamo"
	"github.com/san-kum/livetrain/internal/noise"
	"github.com/san-kum/livetrain/internal/robot"
)

const (
	DefaultResolution = 0.01
	DefaultMaxAdvance = 600.0
)

type Options struct {
	Resolution float64
	MaxAdvance float64
	Logger     *zap.Logger
}

func DefaultOptions() Options {
	return Options{Resolution: DefaultResolution, MaxAdvance: DefaultMaxAdvance}
}

// Simulation owns the clock, the noise generator and an ordered list of
// bodies, the robot always first. All mutators take the simulation lock,
// so changes are visible from the next pass.
type Simulation struct {
	mu          sync.Mutex
	clock       *clock.Clock
	noise       *noise.Generator
	robot       *robot.Robot
	bodies      []dynamo.Body
	observers   []dynamo.Observer
	resolution  float64
	maxAdvance  float64
	pending     float64
	initialPose dynamo.Pose
	initPowers  dynamo.WheelPowers
	passCount   int
	buffers     *passPool
	logger      *zap.Logger
}

func New(clk *clock.Clock, gen *noise.Generator, r *robot.Robot, opts Options) *Simulation {
	if opts.Resolution <= 0 {
		opts.Resolution = DefaultResolution
	}
	if opts.MaxAdvance <= 0 {
		opts.MaxAdvance = DefaultMaxAdvance
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Simulation{
		clock:       clk,
		noise:       gen,
		robot:       r,
		bodies:      []dynamo.Body{r},
		resolution:  opts.Resolution,
		maxAdvance:  opts.MaxAdvance,
		initialPose: r.Pose(),
		initPowers:  r.Powers(),
		buffers:     newPassPool(64),
		logger:      logger,
	}
}

func (s *Simulation) AddBody(b dynamo.Body) {
	s.mu.Lock()
	s.bodies = append(s.bodies, b)
	s.mu.Unlock()
}

func (s *Simulation) AddObserver(o dynamo.Observer) {
	s.mu.Lock()
	s.observers = append(s.observers, o)
	s.mu.Unlock()
}

// Update applies any pending advance in resolution-sized steps, then runs
// one pass at the current simulation time if the clock is running.
func (s *Simulation) Update() error {
	buf := s.buffers.Get()
	defer s.buffers.Put(buf)

	s.mu.Lock()
	err := s.update(buf)
	observers := s.observers
	s.mu.Unlock()

	for _, tel := range *buf {
		for _, o := range observers {
			o.OnStep(tel)
		}
	}
	return err
}

func (s *Simulation) update(buf *[]dynamo.Telemetry) error {
	var errs error

	if s.pending > 0 {
		steps := advanceSteps(s.pending, s.resolution)
		for i := 0; i < steps; i++ {
			s.clock.Bank(s.resolution)
			errs = multierr.Append(errs, s.pass(s.clock.SimulationTime(), buf))
		}
		s.pending = 0
	}

	if s.clock.Running() {
		errs = multierr.Append(errs, s.pass(s.clock.SimulationTime(), buf))
	}
	return errs
}

// advanceSteps counts the iterations of t := 0; t < amount; t += res
// without accumulating rounding error.
func advanceSteps(amount, res float64) int {
	return int(math.Ceil(amount/res - 1e-9))
}

func (s *Simulation) pass(t float64, buf *[]dynamo.Telemetry) error {
	var errs error
	for _, b := range s.bodies {
		if err := b.Update(t); err != nil {
			errs = multierr.Append(errs, &dynamo.SimulationError{Body: b.Name(), Time: t, Wrapped: err})
		}
	}
	s.passCount++
	*buf = append(*buf, s.snapshot(t))
	return errs
}

func (s *Simulation) snapshot(t float64) dynamo.Telemetry {
	r := s.robot
	f := r.Follower()
	tel := dynamo.Telemetry{
		Time:         t,
		Running:      s.clock.Running(),
		Speed:        s.clock.Speed(),
		Following:    r.Following(),
		NoiseEnabled: s.noise.Enabled(),
		ControlFired: r.ControlFired(),
		Pose:         r.Pose(),
		Velocity:     r.Velocity(),
		Estimated:    r.EstimatedPose(),
		Powers:       r.Powers(),
		RawPowers:    r.RawPowers(),
	}
	if traj := f.Trajectory(); traj != nil {
		tel.Reference = traj.PoseAt(t)
		tel.ReferenceVelocity = traj.VelocityAt(t)
		tel.ReferenceAcceleration = traj.AccelerationAt(t)
	} else {
		tel.Reference = tel.Pose
	}
	return tel
}

// Snapshot describes the simulation at the current simulation time.
func (s *Simulation) Snapshot() dynamo.Telemetry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot(s.clock.SimulationTime())
}

func (s *Simulation) resetTimestamps() {
	for _, b := range s.bodies {
		b.ResetTimestamp()
	}
}

// SetRunning resumes or pauses the clock. Every body skips integration on
// its next update.
func (s *Simulation) SetRunning(running bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if running {
		s.clock.Resume()
	} else {
		s.clock.Pause()
	}
	s.resetTimestamps()
	s.logger.Info("simulation running changed", zap.Bool("running", running))
}

func (s *Simulation) Running() bool {
	return s.clock.Running()
}

// AdvanceBy queues seconds of simulation time for the next Update.
func (s *Simulation) AdvanceBy(seconds float64) error {
	if !(seconds > 0) || seconds > s.maxAdvance {
		return fmt.Errorf("advance %v s (max %v): %w", seconds, s.maxAdvance, dynamo.ErrParameterBounds)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetTimestamps()
	s.pending += seconds
	s.logger.Info("simulation advance queued", zap.Float64("seconds", seconds))
	return nil
}

// Reset pauses, returns the robot to its initial pose at rest with its
// initial wheel powers and zeroes simulation time.
func (s *Simulation) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clock.Pause()
	s.robot.ResetPose(s.initialPose)
	s.robot.SetPowers(s.initPowers)
	s.clock.Reset()
	s.resetTimestamps()
	s.pending = 0
	s.logger.Info("simulation reset", zap.Stringer("pose", s.initialPose))
}

// SetInitialPose changes the pose Reset returns to.
func (s *Simulation) SetInitialPose(p dynamo.Pose) {
	s.mu.Lock()
	s.initialPose = p
	s.mu.Unlock()
}

// SetInitialPowers changes the wheel powers Reset restores.
func (s *Simulation) SetInitialPowers(p dynamo.WheelPowers) {
	s.mu.Lock()
	s.initPowers = p
	s.mu.Unlock()
}

func (s *Simulation) InitialPose() dynamo.Pose {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initialPose
}

func (s *Simulation) SetSpeed(f float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.clock.SetSpeed(f); err != nil {
		return err
	}
	s.logger.Info("simulation speed changed", zap.Float64("speed", f))
	return nil
}

func (s *Simulation) Speed() float64 { return s.clock.Speed() }

func (s *Simulation) Time() float64 { return s.clock.SimulationTime() }

func (s *Simulation) Resolution() float64 { return s.resolution }

func (s *Simulation) MaxAdvance() float64 { return s.maxAdvance }

func (s *Simulation) Passes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.passCount
}

func (s *Simulation) Clock() *clock.Clock { return s.clock }

func (s *Simulation) Noise() *noise.Generator { return s.noise }

// WithRobot runs fn under the simulation lock.
func (s *Simulation) WithRobot(fn func(r *robot.Robot) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.robot)
}

// Run calls Update every tick until ctx is done. Repeated identical
// errors are logged once.
func (s *Simulation) Run(ctx context.Context, tick time.Duration) error {
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	lastErr := ""
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		if err := s.Update(); err != nil {
			if msg := err.Error(); msg != lastErr {
				s.logger.Warn("simulation update failed", zap.Error(err))
				lastErr = msg
			}
		} else {
			lastErr = ""
		}
	}
}

// Start runs the loop on its own goroutine. The returned channel yields
// the loop's exit error once ctx is done.
func (s *Simulation) Start(ctx context.Context, tick time.Duration) <-chan error {
	done := make(chan error, 1)
	go func() {
		done <- s.Run(ctx, tick)
	}()
	return done
}
