package robot

import (
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/san-kum/livetrain/internal/dynamo"
	"github.com/san-kum/livetrain/internal/noise"
	"github.com/san-kum/livetrain/internal/physics"
	"github.com/san-kum/livetrain/internal/trajectory"
)

const (
	DefaultUpdateFrequency = 100.0
	DefaultMaxVelocity     = 50.0
	// MinUpdateFrequency is the lowest controller rate accepted.
	MinUpdateFrequency = 1.0

	noControl = -1.0
)

// Robot combines a mecanum drivetrain, a trajectory follower and a
// kinematic body. Its controller only runs when following and at most
// once per 1/UpdateFrequency seconds of simulation time; the body is
// integrated on every update.
type Robot struct {
	body        *physics.Body
	drivetrain  *Drivetrain
	follower    *Follower
	noise       *noise.Generator
	constraints trajectory.Constraints

	width, height   float64
	updateFrequency float64
	following       bool
	lastControl     float64
	fired           bool
	controlCount    int

	actual, estimated, offset dynamo.Pose
	raw                       dynamo.WheelPowers
	logger                    *zap.Logger
}

func New(width, height float64, body *physics.Body, gen *noise.Generator, logger *zap.Logger) *Robot {
	if logger == nil {
		logger = zap.NewNop()
	}
	if gen == nil {
		gen = noise.NewGenerator(0, logger)
		gen.SetEnabled(false)
	}
	return &Robot{
		body:            body,
		drivetrain:      NewDrivetrain(Mecanum, width, height, DefaultMaxVelocity, logger.Named("drivetrain")),
		follower:        NewFollower(logger.Named("follower")),
		noise:           gen,
		width:           width,
		height:          height,
		updateFrequency: DefaultUpdateFrequency,
		following:       true,
		lastControl:     noControl,
		logger:          logger,
	}
}

func (r *Robot) Name() string { return r.body.Name() }

// Update runs one cycle at simulation time t.
func (r *Robot) Update(t float64) error {
	var controlErr error
	r.fired = false

	if r.following && (r.lastControl == noControl || t-r.lastControl >= 1/r.updateFrequency) {
		r.lastControl = t
		r.fired = true
		r.controlCount++

		r.actual = r.body.Pose()
		r.offset = r.noise.Perturb(noise.Additive, t, r.offset)
		r.estimated = r.noise.Perturb(noise.Static, t, r.actual.Add(r.offset))

		powers, err := r.follower.Update(r.estimated, t)
		if err != nil {
			controlErr = err
		} else {
			r.raw = powers
			r.drivetrain.SetPowers(powers)
		}
	}

	vel := r.drivetrain.State()
	linear := vel.Position().Rotated(r.body.Pose().Heading)
	r.body.SetVelocity(linear.X, linear.Y, -vel.Heading)

	return multierr.Append(controlErr, r.body.Update(t))
}

// ResetTimestamp also clears the additive noise offset and the
// controller timestamp.
func (r *Robot) ResetTimestamp() {
	r.body.ResetTimestamp()
	r.offset = dynamo.Pose{}
	r.lastControl = noControl
}

// ResetPose teleports the robot to p at rest.
func (r *Robot) ResetPose(p dynamo.Pose) {
	r.body.SetPose(p)
	r.body.ZeroVelocities()
	r.actual = p
	r.estimated = p
}

func (r *Robot) ZeroVelocities() { r.body.ZeroVelocities() }

func (r *Robot) Body() *physics.Body { return r.body }

func (r *Robot) Drivetrain() *Drivetrain { return r.drivetrain }

func (r *Robot) Follower() *Follower { return r.follower }

func (r *Robot) Noise() *noise.Generator { return r.noise }

func (r *Robot) Pose() dynamo.Pose { return r.body.Pose() }

func (r *Robot) Velocity() dynamo.Pose { return r.body.Velocity() }

// ActualPose is the true pose sampled at the last controller firing.
func (r *Robot) ActualPose() dynamo.Pose { return r.actual }

// EstimatedPose is the noisy pose the controller last acted on.
func (r *Robot) EstimatedPose() dynamo.Pose { return r.estimated }

// NoiseOffset is the accumulated additive noise.
func (r *Robot) NoiseOffset() dynamo.Pose { return r.offset }

func (r *Robot) Powers() dynamo.WheelPowers { return r.drivetrain.Powers() }

// RawPowers are the follower's last unclamped outputs.
func (r *Robot) RawPowers() dynamo.WheelPowers { return r.raw }

// SetPowers drives the wheels directly. Followed trajectories overwrite
// these on the next controller firing.
func (r *Robot) SetPowers(p dynamo.WheelPowers) {
	r.drivetrain.SetPowers(p)
}

func (r *Robot) ControlFired() bool { return r.fired }

func (r *Robot) ControlCount() int { return r.controlCount }

func (r *Robot) Following() bool { return r.following }

func (r *Robot) SetFollowing(f bool) {
	r.following = f
	r.logger.Info("following changed", zap.Bool("following", f))
}

func (r *Robot) UpdateFrequency() float64 { return r.updateFrequency }

// SetUpdateFrequency clamps f to at least MinUpdateFrequency.
func (r *Robot) SetUpdateFrequency(f float64) error {
	if !finite(f) {
		return fmt.Errorf("update frequency %v: %w", f, dynamo.ErrParameterBounds)
	}
	if f < MinUpdateFrequency {
		f = MinUpdateFrequency
	}
	r.updateFrequency = f
	r.logger.Info("update frequency changed", zap.Float64("hz", f))
	return nil
}

func (r *Robot) Constraints() trajectory.Constraints { return r.constraints }

func (r *Robot) SetConstraints(c trajectory.Constraints) {
	r.constraints = c
	r.logger.Info("constraints changed", zap.Stringer("constraints", c))
}

func (r *Robot) Size() (width, height float64) { return r.width, r.height }

// SetSize also updates the drivetrain half-track.
func (r *Robot) SetSize(width, height float64) error {
	if !(width > 0) || !(height > 0) || !finite(width) || !finite(height) {
		return fmt.Errorf("size %vx%v: %w", width, height, dynamo.ErrParameterBounds)
	}
	r.width, r.height = width, height
	r.drivetrain.SetHalfTrack(width/2, height/2)
	r.logger.Info("size changed", zap.Float64("width", width), zap.Float64("height", height))
	return nil
}

func (r *Robot) SetTrajectory(t dynamo.Trajectory) {
	r.follower.SetTrajectory(t)
}

// BuildTrajectory fits a trajectory through waypoints using the robot's
// constraints and installs it. With fewer than two waypoints the
// trajectory is cleared and following is switched off.
func (r *Robot) BuildTrajectory(waypoints []dynamo.Pose, profile trajectory.ProfileType, path trajectory.PathType) (*trajectory.Trajectory, error) {
	if len(waypoints) < 2 {
		r.follower.SetTrajectory(nil)
		r.SetFollowing(false)
		return nil, fmt.Errorf("%d waypoints: %w", len(waypoints), dynamo.ErrDegeneratePath)
	}
	traj, err := trajectory.Build(waypoints, r.constraints, profile, path)
	if err != nil {
		return nil, err
	}
	r.follower.SetTrajectory(traj)
	return traj, nil
}

var _ dynamo.Body = (*Robot)(nil)
