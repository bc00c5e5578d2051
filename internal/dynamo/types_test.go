package dynamo

import (
	"math"
	"testing"
)

func TestPose_IsValid(t *testing.T) {
	tests := []struct {
		name  string
		pose  Pose
		valid bool
	}{
		{"zero", Pose{}, true},
		{"normal", Pose{1, 2, 3}, true},
		{"with NaN", Pose{1, math.NaN(), 0}, false},
		{"with +Inf", Pose{math.Inf(1), 0, 0}, false},
		{"with -Inf heading", Pose{0, 0, math.Inf(-1)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.pose.IsValid(); got != tt.valid {
				t.Errorf("IsValid() = %v, want %v", got, tt.valid)
			}
		})
	}
}

func TestPose_Arithmetic(t *testing.T) {
	a := Pose{1, 2, 3}
	b := Pose{4, 5, 6}

	sum := a.Add(b)
	if sum != (Pose{5, 7, 9}) {
		t.Errorf("Add failed: got %v", sum)
	}

	diff := b.Sub(a)
	if diff != (Pose{3, 3, 3}) {
		t.Errorf("Sub failed: got %v", diff)
	}

	// heading accumulates without wrapping
	wound := Pose{0, 0, 3 * math.Pi}.Add(Pose{0, 0, 3 * math.Pi})
	if wound.Heading != 6*math.Pi {
		t.Errorf("heading was wrapped: got %v", wound.Heading)
	}
}

func TestVec2_Rotated(t *testing.T) {
	tests := []struct {
		v     Vec2
		theta float64
		want  Vec2
	}{
		{Vec2{1, 0}, math.Pi / 2, Vec2{0, 1}},
		{Vec2{1, 0}, math.Pi, Vec2{-1, 0}},
		{Vec2{0, 1}, -math.Pi / 2, Vec2{1, 0}},
		{Vec2{3, 4}, 0, Vec2{3, 4}},
	}

	for _, tt := range tests {
		got := tt.v.Rotated(tt.theta)
		if math.Abs(got.X-tt.want.X) > 1e-12 || math.Abs(got.Y-tt.want.Y) > 1e-12 {
			t.Errorf("%v.Rotated(%v) = %v, want %v", tt.v, tt.theta, got, tt.want)
		}
	}
}

func TestVec2_Norm(t *testing.T) {
	if got := (Vec2{3, 4}).Norm(); math.Abs(got-5) > 1e-12 {
		t.Errorf("Norm = %v, want 5", got)
	}
}

func TestWheelPowers_IsValid(t *testing.T) {
	if !(WheelPowers{1, -1, 0.5, 0}).IsValid() {
		t.Error("finite powers reported invalid")
	}
	if (WheelPowers{0, math.NaN(), 0, 0}).IsValid() {
		t.Error("NaN powers reported valid")
	}
}

func TestTelemetry_Error(t *testing.T) {
	tel := Telemetry{Pose: Pose{2, 3, 1}, Reference: Pose{1, 1, 0.5}}
	if got := tel.Error(); got != (Pose{1, 2, 0.5}) {
		t.Errorf("Error() = %v", got)
	}
}

func TestSimError(t *testing.T) {
	err := SimError{Time: 1.5, Step: 150, Message: "test error"}
	expected := "step 150 (t=1.5000): test error"
	if err.Error() != expected {
		t.Errorf("SimError.Error() = %q, want %q", err.Error(), expected)
	}
}
