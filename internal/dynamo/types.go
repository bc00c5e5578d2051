package dynamo

import (
	"fmt"
	"math"
)

type Vec2 struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

func (v Vec2) Add(o Vec2) Vec2 { return Vec2{v.X + o.X, v.Y + o.Y} }

func (v Vec2) Sub(o Vec2) Vec2 { return Vec2{v.X - o.X, v.Y - o.Y} }

func (v Vec2) Scale(f float64) Vec2 { return Vec2{v.X * f, v.Y * f} }

func (v Vec2) Dot(o Vec2) float64 { return v.X*o.X + v.Y*o.Y }

func (v Vec2) Norm() float64 { return math.Hypot(v.X, v.Y) }

// Rotated returns v rotated counter-clockwise by theta radians.
func (v Vec2) Rotated(theta float64) Vec2 {
	sin, cos := math.Sincos(theta)
	return Vec2{v.X*cos - v.Y*sin, v.X*sin + v.Y*cos}
}

// Pose is a planar position and heading. Arithmetic is component-wise,
// heading included, and heading is never wrapped.
type Pose struct {
	X       float64 `json:"x" yaml:"x"`
	Y       float64 `json:"y" yaml:"y"`
	Heading float64 `json:"heading" yaml:"heading"`
}

func NewPose(x, y, heading float64) Pose {
	return Pose{X: x, Y: y, Heading: heading}
}

func (p Pose) Position() Vec2 { return Vec2{p.X, p.Y} }

func (p Pose) Add(o Pose) Pose {
	return Pose{p.X + o.X, p.Y + o.Y, p.Heading + o.Heading}
}

func (p Pose) Sub(o Pose) Pose {
	return Pose{p.X - o.X, p.Y - o.Y, p.Heading - o.Heading}
}

func (p Pose) IsValid() bool {
	return finite(p.X) && finite(p.Y) && finite(p.Heading)
}

func (p Pose) String() string {
	return fmt.Sprintf("<%.4f, %.4f, %.4f>", p.X, p.Y, p.Heading)
}

// MotionState is the kinematic state along one axis.
type MotionState struct {
	Pos  float64 `json:"pos"`
	Vel  float64 `json:"vel"`
	Acc  float64 `json:"acc"`
	Jerk float64 `json:"jerk"`
}

func (m MotionState) IsValid() bool {
	return finite(m.Pos) && finite(m.Vel) && finite(m.Acc) && finite(m.Jerk)
}

// Wheel indices run counter-clockwise from the front left.
const (
	FrontLeft = iota
	BackLeft
	BackRight
	FrontRight
)

type WheelPowers [4]float64

func (w WheelPowers) IsValid() bool {
	for _, p := range w {
		if !finite(p) {
			return false
		}
	}
	return true
}

type Integrator interface {
	Step(s MotionState, dt float64) MotionState
}

// Trajectory is sampled in simulation time.
type Trajectory interface {
	PoseAt(t float64) Pose
	VelocityAt(t float64) Pose
	AccelerationAt(t float64) Pose
	Duration() float64
}

type FeedbackController interface {
	Update(err, t, vel, acc float64) float64
	Reset()
}

// Body is a simulated object advanced once per pass.
type Body interface {
	Name() string
	Update(t float64) error
	ResetTimestamp()
}

// Telemetry is a snapshot taken after a simulation pass.
type Telemetry struct {
	Time                  float64     `json:"time"`
	Running               bool        `json:"running"`
	Speed                 float64     `json:"speed"`
	Following             bool        `json:"following"`
	NoiseEnabled          bool        `json:"noise_enabled"`
	ControlFired          bool        `json:"control_fired"`
	Pose                  Pose        `json:"pose"`
	Velocity              Pose        `json:"velocity"`
	Estimated             Pose        `json:"estimated"`
	Reference             Pose        `json:"reference"`
	ReferenceVelocity     Pose        `json:"reference_velocity"`
	ReferenceAcceleration Pose        `json:"reference_acceleration"`
	Powers                WheelPowers `json:"powers"`
	RawPowers             WheelPowers `json:"raw_powers"`
}

// Error is the true pose minus the reference pose.
func (t Telemetry) Error() Pose {
	return t.Pose.Sub(t.Reference)
}

type Observer interface {
	OnStep(tel Telemetry)
}

type Metric interface {
	Name() string
	Observe(tel Telemetry)
	Value() float64
	Reset()
}

type Result struct {
	Samples    []Telemetry
	Metrics    map[string]float64
	StepsTaken int
	Errors     []error
}

type SimError struct {
	Time    float64
	Step    int
	Message string
}

func (e SimError) Error() string {
	return fmt.Sprintf("step %d (t=%.4f): %s", e.Step, e.Time, e.Message)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
