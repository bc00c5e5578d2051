package integrators

import (
	"errors"
	"math"
	"testing"

	"github.com/san-kum/livetrain/internal/dynamo"
)

func closedForm(s dynamo.MotionState, t float64) dynamo.MotionState {
	return dynamo.MotionState{
		Pos:  s.Pos + s.Vel*t + s.Acc*t*t/2 + s.Jerk*t*t*t/6,
		Vel:  s.Vel + s.Acc*t + s.Jerk*t*t/2,
		Acc:  s.Acc + s.Jerk*t,
		Jerk: s.Jerk,
	}
}

func TestRK4Accuracy(t *testing.T) {
	integ := NewRK4()
	s0 := dynamo.MotionState{Pos: 1.0, Vel: -2.0, Acc: 0.5, Jerk: 3.0}
	dt := 0.01
	steps := 100

	s := s0
	for i := 0; i < steps; i++ {
		s = integ.Step(s, dt)
	}

	expected := closedForm(s0, float64(steps)*dt)

	if math.Abs(s.Pos-expected.Pos) > 1e-9 {
		t.Errorf("position error too large: got %.9f, expected %.9f", s.Pos, expected.Pos)
	}
	if math.Abs(s.Vel-expected.Vel) > 1e-9 {
		t.Errorf("velocity error too large: got %.9f, expected %.9f", s.Vel, expected.Vel)
	}
}

func TestExactMatchesClosedForm(t *testing.T) {
	tests := []struct {
		name string
		s    dynamo.MotionState
		dt   float64
	}{
		{"at rest", dynamo.MotionState{Pos: 3}, 1.0},
		{"constant velocity", dynamo.MotionState{Vel: 100}, 0.05},
		{"constant acceleration", dynamo.MotionState{Vel: 1, Acc: 2}, 0.5},
		{"jerk", dynamo.MotionState{Pos: -1, Vel: 1, Acc: 2, Jerk: -4}, 2.0},
		{"zero dt", dynamo.MotionState{Pos: 5, Vel: 1}, 0},
	}

	integ := NewExact()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := integ.Step(tt.s, tt.dt)
			want := closedForm(tt.s, tt.dt)
			if math.Abs(got.Pos-want.Pos) > 1e-12 || math.Abs(got.Vel-want.Vel) > 1e-12 {
				t.Errorf("expected %+v, got %+v", want, got)
			}
		})
	}
}

func TestEulerConstantVelocity(t *testing.T) {
	integ := NewEuler()
	s := dynamo.MotionState{Vel: 100}
	for i := 0; i < 10; i++ {
		s = integ.Step(s, 0.1)
	}
	if math.Abs(s.Pos-100) > 1e-9 {
		t.Errorf("expected 100, got %v", s.Pos)
	}
}

func TestRegistry(t *testing.T) {
	for _, name := range Names() {
		integ, err := New(name)
		if err != nil || integ == nil {
			t.Errorf("New(%q) failed: %v", name, err)
		}
	}
	if _, err := New("verlet"); !errors.Is(err, dynamo.ErrUnknownKind) {
		t.Errorf("expected ErrUnknownKind, got %v", err)
	}
}
