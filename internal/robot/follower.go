package robot

import (
	"fmt"
	"math"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/san-kum/livetrain/internal/control"
	"github.com/san-kum/livetrain/internal/dynamo"
)

// Follower turns the error between an estimated pose and a trajectory's
// reference into mecanum wheel powers.
type Follower struct {
	heading, lateral, axial dynamo.FeedbackController
	trajectory              dynamo.Trajectory

	refPose, refVel, refAcc dynamo.Pose
	lastError               dynamo.Pose
	logger                  *zap.Logger
}

func NewFollower(logger *zap.Logger) *Follower {
	if logger == nil {
		logger = zap.NewNop()
	}
	zero := make([]float64, control.CoefficientCount)
	h, _ := control.NewPIDF(zero)
	l, _ := control.NewPIDF(zero)
	a, _ := control.NewPIDF(zero)
	return &Follower{heading: h, lateral: l, axial: a, logger: logger}
}

// SetCoefficients replaces all three controllers. Every set must hold
// exactly six values or nothing is changed.
func (f *Follower) SetCoefficients(heading, lateral, axial []float64) error {
	h, errH := control.NewPIDF(heading)
	l, errL := control.NewPIDF(lateral)
	a, errA := control.NewPIDF(axial)

	if err := multierr.Combine(
		wrapAxis("heading", errH),
		wrapAxis("lateral", errL),
		wrapAxis("axial", errA),
	); err != nil {
		return err
	}

	f.heading, f.lateral, f.axial = h, l, a
	f.logger.Info("follower coefficients changed",
		zap.Float64s("heading", heading),
		zap.Float64s("lateral", lateral),
		zap.Float64s("axial", axial))
	return nil
}

func wrapAxis(axis string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s coefficients: %w", axis, err)
}

// SetControllers installs arbitrary controllers for each axis.
func (f *Follower) SetControllers(heading, lateral, axial dynamo.FeedbackController) {
	f.heading, f.lateral, f.axial = heading, lateral, axial
}

// Coefficients reports the PIDF gains, when the controllers are PIDF.
func (f *Follower) Coefficients() (heading, lateral, axial control.Coefficients) {
	if p, ok := f.heading.(*control.PIDF); ok {
		heading = p.Coefficients()
	}
	if p, ok := f.lateral.(*control.PIDF); ok {
		lateral = p.Coefficients()
	}
	if p, ok := f.axial.(*control.PIDF); ok {
		axial = p.Coefficients()
	}
	return heading, lateral, axial
}

func (f *Follower) SetTrajectory(t dynamo.Trajectory) {
	f.trajectory = t
	f.heading.Reset()
	f.lateral.Reset()
	f.axial.Reset()
	if t == nil {
		f.logger.Info("follower trajectory cleared")
		return
	}
	f.logger.Info("follower trajectory changed",
		zap.Any("trajectory", t),
		zap.Float64("duration", t.Duration()))
}

func (f *Follower) Trajectory() dynamo.Trajectory { return f.trajectory }

func (f *Follower) HasTrajectory() bool { return f.trajectory != nil }

func (f *Follower) Reference() dynamo.Pose { return f.refPose }

func (f *Follower) ReferenceVelocity() dynamo.Pose { return f.refVel }

func (f *Follower) ReferenceAcceleration() dynamo.Pose { return f.refAcc }

// LastError is the (axial, lateral, heading) error of the last update.
func (f *Follower) LastError() dynamo.Pose { return f.lastError }

// Update computes unclamped wheel powers for the estimated pose at time t.
func (f *Follower) Update(estimated dynamo.Pose, t float64) (dynamo.WheelPowers, error) {
	if f.trajectory == nil {
		return dynamo.WheelPowers{}, dynamo.ErrNoTrajectory
	}

	f.refPose = f.trajectory.PoseAt(t)
	f.refVel = f.trajectory.VelocityAt(t)
	f.refAcc = f.trajectory.AccelerationAt(t)

	headingError := estimated.Heading - f.refPose.Heading
	headingUpdate := f.heading.Update(headingError, t, 0, 0)

	poseError := estimated.Position().Sub(f.refPose.Position()).Rotated(-estimated.Heading)
	robotVel := f.refVel.Position().Rotated(-estimated.Heading)
	robotAcc := f.refAcc.Position().Rotated(-estimated.Heading)

	axialUpdate := f.axial.Update(poseError.X, t, robotVel.X, robotAcc.X)
	lateralUpdate := f.lateral.Update(poseError.Y, t, robotVel.Y, robotAcc.Y)

	f.lastError = dynamo.Pose{X: poseError.X, Y: poseError.Y, Heading: headingError}

	powers := mix(axialUpdate, lateralUpdate, headingUpdate)
	if !powers.IsValid() {
		return dynamo.WheelPowers{}, fmt.Errorf("follower at t=%.4f produced %v: %w", t, powers, dynamo.ErrNonFinite)
	}

	f.logger.Debug("follower update",
		zap.Float64("t", t),
		zap.Stringer("reference", f.refPose),
		zap.Stringer("error", f.lastError),
		zap.Float64("axial", axialUpdate),
		zap.Float64("lateral", lateralUpdate),
		zap.Float64("heading", headingUpdate))
	return powers, nil
}

func mix(axial, lateral, heading float64) dynamo.WheelPowers {
	return dynamo.WheelPowers{
		axial - lateral - heading,
		axial + lateral - heading,
		axial - lateral + heading,
		axial + lateral + heading,
	}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
