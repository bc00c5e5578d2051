package integrators

import "github.com/san-kum/livetrain/internal/dynamo"

type Euler struct{}

func NewEuler() *Euler {
	return &Euler{}
}

func (e *Euler) Step(s dynamo.MotionState, dt float64) dynamo.MotionState {
	dx := derive(chain{s.Pos, s.Vel, s.Acc}, s.Jerk)
	return dynamo.MotionState{
		Pos:  s.Pos + dt*dx[0],
		Vel:  s.Vel + dt*dx[1],
		Acc:  s.Acc + dt*dx[2],
		Jerk: s.Jerk,
	}
}
