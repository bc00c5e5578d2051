package integrators

import "github.com/san-kum/livetrain/internal/dynamo"

// chain is the [pos, vel, acc] vector of one axis.
type chain [3]float64

// derive returns d/dt of the chain under constant jerk.
func derive(x chain, jerk float64) chain {
	return chain{x[1], x[2], jerk}
}

type RK4 struct {
	k1, k2, k3, k4 chain
	scratch        chain
}

func NewRK4() *RK4 {
	return &RK4{}
}

func (r *RK4) Step(s dynamo.MotionState, dt float64) dynamo.MotionState {
	x := chain{s.Pos, s.Vel, s.Acc}

	r.k1 = derive(x, s.Jerk)

	for i := range x {
		r.scratch[i] = x[i] + dt*0.5*r.k1[i]
	}
	r.k2 = derive(r.scratch, s.Jerk)

	for i := range x {
		r.scratch[i] = x[i] + dt*0.5*r.k2[i]
	}
	r.k3 = derive(r.scratch, s.Jerk)

	for i := range x {
		r.scratch[i] = x[i] + dt*r.k3[i]
	}
	r.k4 = derive(r.scratch, s.Jerk)

	var result chain
	dt6 := dt / 6.0
	for i := range x {
		result[i] = x[i] + dt6*(r.k1[i]+2*r.k2[i]+2*r.k3[i]+r.k4[i])
	}

	return dynamo.MotionState{Pos: result[0], Vel: result[1], Acc: result[2], Jerk: s.Jerk}
}
