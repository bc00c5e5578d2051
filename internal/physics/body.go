package physics

import (
	"fmt"

	"github.com/san-kum/livetrain/internal/dynamo"
)

// noUpdate marks a body that has not been updated since its timestamp
// was last reset.
const noUpdate = -1.0

type SpeedSource interface {
	Speed() float64
}

type constantSpeed float64

func (c constantSpeed) Speed() float64 { return float64(c) }

// UnitSpeed is a SpeedSource that always reports 1.
var UnitSpeed SpeedSource = constantSpeed(1)

type Body struct {
	name       string
	x, y, h    dynamo.MotionState
	lastUpdate float64
	integrator dynamo.Integrator
	speed      SpeedSource
}

func NewBody(name string, integ dynamo.Integrator, speed SpeedSource) *Body {
	if speed == nil {
		speed = UnitSpeed
	}
	return &Body{
		name:       name,
		lastUpdate: noUpdate,
		integrator: integ,
		speed:      speed,
	}
}

func (b *Body) Name() string { return b.name }

// Update integrates every axis over the scaled time since the previous
// update. The first update after a reset only records t.
func (b *Body) Update(t float64) error {
	if b.lastUpdate != noUpdate {
		dt := (t - b.lastUpdate) * b.speed.Speed()
		x := b.integrator.Step(b.x, dt)
		y := b.integrator.Step(b.y, dt)
		h := b.integrator.Step(b.h, dt)
		if !x.IsValid() || !y.IsValid() || !h.IsValid() {
			b.lastUpdate = t
			return fmt.Errorf("%s at t=%.4f: %w", b.name, t, dynamo.ErrInvalidState)
		}
		b.x, b.y, b.h = x, y, h
	}
	b.lastUpdate = t
	return nil
}

func (b *Body) ResetTimestamp() {
	b.lastUpdate = noUpdate
}

// LastUpdate returns the time of the last update, or -1 after a reset.
func (b *Body) LastUpdate() float64 {
	return b.lastUpdate
}

func (b *Body) SetIntegrator(integ dynamo.Integrator) {
	b.integrator = integ
}

// SetPose teleports the body without touching its derivatives.
func (b *Body) SetPose(p dynamo.Pose) {
	b.x.Pos = p.X
	b.y.Pos = p.Y
	b.h.Pos = p.Heading
}

func (b *Body) ZeroVelocities() {
	for _, axis := range []*dynamo.MotionState{&b.x, &b.y, &b.h} {
		axis.Vel = 0
		axis.Acc = 0
		axis.Jerk = 0
	}
}

// SetVelocity sets world-frame velocities; omega is the heading rate.
func (b *Body) SetVelocity(vx, vy, omega float64) {
	b.x.Vel = vx
	b.y.Vel = vy
	b.h.Vel = omega
}

func (b *Body) Pose() dynamo.Pose {
	return dynamo.Pose{X: b.x.Pos, Y: b.y.Pos, Heading: b.h.Pos}
}

func (b *Body) Velocity() dynamo.Pose {
	return dynamo.Pose{X: b.x.Vel, Y: b.y.Vel, Heading: b.h.Vel}
}

// Axes returns the x, y and heading motion states.
func (b *Body) Axes() (x, y, heading dynamo.MotionState) {
	return b.x, b.y, b.h
}
