package integrators

import "github.com/san-kum/livetrain/internal/dynamo"

// Exact advances a constant-jerk axis in closed form.
type Exact struct{}

func NewExact() *Exact {
	return &Exact{}
}

func (e *Exact) Step(s dynamo.MotionState, dt float64) dynamo.MotionState {
	dt2 := dt * dt
	return dynamo.MotionState{
		Pos:  s.Pos + s.Vel*dt + s.Acc*dt2/2 + s.Jerk*dt2*dt/6,
		Vel:  s.Vel + s.Acc*dt + s.Jerk*dt2/2,
		Acc:  s.Acc + s.Jerk*dt,
		Jerk: s.Jerk,
	}
}
