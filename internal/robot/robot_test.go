package robot_test

import (
	"errors"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/livetrain/internal/control"
	"github.com/san-kum/livetrain/internal/dynamo"
	"github.com/san-kum/livetrain/internal/integrators"
	"github.com/san-kum/livetrain/internal/noise"
	"github.com/san-kum/livetrain/internal/physics"
	"github.com/san-kum/livetrain/internal/robot"
	"github.com/san-kum/livetrain/internal/trajectory"
)

// stillTrajectory holds a single pose forever.
type stillTrajectory struct{ pose dynamo.Pose }

func (s stillTrajectory) PoseAt(float64) dynamo.Pose         { return s.pose }
func (s stillTrajectory) VelocityAt(float64) dynamo.Pose     { return dynamo.Pose{} }
func (s stillTrajectory) AccelerationAt(float64) dynamo.Pose { return dynamo.Pose{} }
func (s stillTrajectory) Duration() float64                  { return 0 }

// countingController records how often it is asked for output.
type countingController struct {
	calls int
	out   float64
}

func (c *countingController) Update(err, t, vel, acc float64) float64 {
	c.calls++
	return c.out
}

func (c *countingController) Reset() {}

func newRobot(gen *noise.Generator) *robot.Robot {
	body := physics.NewBody("robot", integrators.NewExact(), physics.UnitSpeed)
	return robot.New(18, 18, body, gen, nil)
}

func quietNoise() *noise.Generator {
	gen := noise.NewGenerator(1, nil)
	gen.SetEnabled(false)
	return gen
}

var _ = Describe("Robot", func() {
	var r *robot.Robot

	BeforeEach(func() {
		r = newRobot(quietNoise())
	})

	Describe("open-loop driving", func() {
		BeforeEach(func() {
			r.SetFollowing(false)
			r.SetPowers(dynamo.WheelPowers{1, 1, 1, 1})
		})

		It("moves at 100 units/s along its heading", func() {
			Expect(r.Update(0)).To(Succeed())
			Expect(r.Update(1)).To(Succeed())
			Expect(r.Pose().X).To(BeNumerically("~", 100, 1e-9))
			Expect(r.Pose().Y).To(BeNumerically("~", 0, 1e-9))
		})

		It("rotates body velocity into the world frame", func() {
			r.ResetPose(dynamo.NewPose(0, 0, math.Pi/2))
			Expect(r.Update(0)).To(Succeed())
			Expect(r.Update(0.5)).To(Succeed())
			Expect(r.Pose().X).To(BeNumerically("~", 0, 1e-9))
			Expect(r.Pose().Y).To(BeNumerically("~", 50, 1e-9))
		})

		It("turns opposite to the drivetrain heading rate", func() {
			r.SetPowers(dynamo.WheelPowers{-1, -1, 1, 1})
			omega := r.Drivetrain().State().Heading
			Expect(r.Update(0)).To(Succeed())
			Expect(r.Update(1)).To(Succeed())
			Expect(r.Velocity().Heading).To(Equal(-omega))
			Expect(r.Pose().Heading).To(BeNumerically("~", -omega, 1e-12))
		})

		It("never calls the follower", func() {
			Expect(r.Update(0)).To(Succeed())
			Expect(r.ControlFired()).To(BeFalse())
			Expect(r.ControlCount()).To(BeZero())
		})
	})

	Describe("controller gating", func() {
		var heading *countingController

		BeforeEach(func() {
			heading = &countingController{}
			r.Follower().SetControllers(heading, &countingController{}, &countingController{})
			r.SetTrajectory(stillTrajectory{})
			Expect(r.SetUpdateFrequency(10)).To(Succeed())
		})

		It("fires once for updates 0.05 s apart", func() {
			Expect(r.Update(0)).To(Succeed())
			Expect(r.Update(0.05)).To(Succeed())
			Expect(heading.calls).To(Equal(1))
		})

		It("fires twice for updates 0.11 s apart", func() {
			Expect(r.Update(0)).To(Succeed())
			Expect(r.Update(0.11)).To(Succeed())
			Expect(heading.calls).To(Equal(2))
		})

		It("fires again after the timestamp is reset", func() {
			Expect(r.Update(0)).To(Succeed())
			r.ResetTimestamp()
			Expect(r.Update(0.01)).To(Succeed())
			Expect(heading.calls).To(Equal(2))
		})

		It("clamps the update frequency to 1 Hz", func() {
			Expect(r.SetUpdateFrequency(0.1)).To(Succeed())
			Expect(r.UpdateFrequency()).To(Equal(1.0))
			Expect(r.SetUpdateFrequency(math.NaN())).To(MatchError(dynamo.ErrParameterBounds))
		})
	})

	Describe("closed-loop control", func() {
		It("writes clamped powers from the follower", func() {
			r.Follower().SetControllers(
				&countingController{out: 0},
				&countingController{out: 0},
				&countingController{out: 5},
			)
			r.SetTrajectory(stillTrajectory{})
			Expect(r.Update(0)).To(Succeed())
			Expect(r.Powers()).To(Equal(dynamo.WheelPowers{1, 1, 1, 1}))
		})

		It("reports a missing trajectory and keeps integrating", func() {
			r.SetPowers(dynamo.WheelPowers{1, 1, 1, 1})
			Expect(r.Update(0)).To(MatchError(dynamo.ErrNoTrajectory))
			err := r.Update(1)
			Expect(errors.Is(err, dynamo.ErrNoTrajectory)).To(BeTrue())
			Expect(r.Pose().X).To(BeNumerically("~", 100, 1e-9))
		})

		It("converges on a straight trajectory", func() {
			r.SetConstraints(trajectory.NewConstraints(20, 40, 200))
			// all four wheels at p move the robot at 2*50*p units/s
			gains := []float64{-0.2, 0, 0, 1.0 / (2 * robot.DefaultMaxVelocity), 0, 0}
			Expect(r.Follower().SetCoefficients(
				make([]float64, 6), gains, gains)).To(Succeed())

			traj, err := r.BuildTrajectory([]dynamo.Pose{
				dynamo.NewPose(0, 0, 0),
				dynamo.NewPose(100, 0, 0),
			}, trajectory.Trapezoidal, trajectory.HermiteCubic)
			Expect(err).NotTo(HaveOccurred())

			end := traj.Duration() + 2
			for t := 0.0; t <= end; t += 0.01 {
				Expect(r.Update(t)).To(Succeed())
			}
			Expect(r.Pose().X).To(BeNumerically("~", 100, 1))
			Expect(r.Pose().Y).To(BeNumerically("~", 0, 0.5))
		})
	})

	Describe("noise", func() {
		It("accumulates additive noise into the offset", func() {
			gen := noise.NewGenerator(1, nil)
			gen.SetEnabled(true)
			gen.SetAdditive(noise.New(noise.Sinusoidal, 0, 4))
			r = newRobot(gen)
			r.SetTrajectory(stillTrajectory{})

			Expect(r.Update(0)).To(Succeed())
			Expect(r.NoiseOffset()).To(Equal(dynamo.NewPose(1, 1, 1)))
			Expect(r.Update(0.01)).To(Succeed())
			Expect(r.NoiseOffset().X).To(BeNumerically("~", 2+math.Sin(0.01)*4, 1e-12))
		})

		It("applies static noise on top of the true pose", func() {
			gen := noise.NewGenerator(1, nil)
			gen.SetEnabled(true)
			gen.SetStatic(noise.New(noise.Sinusoidal, 0, 8))
			r = newRobot(gen)
			r.ResetPose(dynamo.NewPose(10, 20, 0))
			r.SetTrajectory(stillTrajectory{})

			Expect(r.Update(0)).To(Succeed())
			Expect(r.ActualPose()).To(Equal(dynamo.NewPose(10, 20, 0)))
			Expect(r.EstimatedPose()).To(Equal(dynamo.NewPose(12, 22, 2)))
			Expect(r.NoiseOffset()).To(Equal(dynamo.Pose{}))
		})

		It("clears the additive offset on timestamp reset", func() {
			gen := noise.NewGenerator(1, nil)
			gen.SetEnabled(true)
			gen.SetAdditive(noise.New(noise.Sinusoidal, 0, 4))
			r = newRobot(gen)
			r.SetTrajectory(stillTrajectory{})
			Expect(r.Update(0)).To(Succeed())

			r.ResetTimestamp()
			Expect(r.NoiseOffset()).To(Equal(dynamo.Pose{}))
		})
	})

	Describe("configuration", func() {
		It("feeds size into the drivetrain half-track", func() {
			Expect(r.SetSize(10, 30)).To(Succeed())
			hw, hl := r.Drivetrain().HalfTrack()
			Expect(hw).To(Equal(5.0))
			Expect(hl).To(Equal(15.0))
			Expect(r.SetSize(0, 1)).To(MatchError(dynamo.ErrParameterBounds))
		})

		It("disables following with fewer than two waypoints", func() {
			_, err := r.BuildTrajectory([]dynamo.Pose{dynamo.NewPose(0, 0, 0)},
				trajectory.Triangular, trajectory.HermiteCubic)
			Expect(err).To(MatchError(dynamo.ErrDegeneratePath))
			Expect(r.Following()).To(BeFalse())
			Expect(r.Follower().HasTrajectory()).To(BeFalse())
		})

		It("rejects bad coefficient sets without partial application", func() {
			Expect(r.Follower().SetCoefficients(
				[]float64{1, 0, 0, 0, 0, 0},
				[]float64{1, 0, 0, 0, 0, 0},
				[]float64{1, 0, 0, 0, 0, 0})).To(Succeed())

			err := r.Follower().SetCoefficients(
				[]float64{9, 0, 0, 0, 0, 0},
				[]float64{1, 2},
				[]float64{1, 2, 3, 4, 5, 6, 7})
			Expect(err).To(MatchError(dynamo.ErrCoefficientLength))

			h, l, a := r.Follower().Coefficients()
			Expect(h).To(Equal(control.Coefficients{1, 0, 0, 0, 0, 0}))
			Expect(l).To(Equal(control.Coefficients{1, 0, 0, 0, 0, 0}))
			Expect(a).To(Equal(control.Coefficients{1, 0, 0, 0, 0, 0}))
		})
	})
})
