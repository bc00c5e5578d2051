package control

import (
	"errors"
	"math"
	"testing"

	"github.com/san-kum/livetrain/internal/dynamo"
)

func TestNewPIDF_Length(t *testing.T) {
	tests := []struct {
		name    string
		coeffs  []float64
		wantErr bool
	}{
		{"six", []float64{1, 0, 0, 0, 0, 0}, false},
		{"five", []float64{1, 0, 0, 0, 0}, true},
		{"seven", []float64{1, 0, 0, 0, 0, 0, 0}, true},
		{"nil", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPIDF(tt.coeffs)
			if tt.wantErr && !errors.Is(err, dynamo.ErrCoefficientLength) {
				t.Errorf("expected ErrCoefficientLength, got %v", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestPIDF_Proportional(t *testing.T) {
	ctrl, _ := NewPIDF([]float64{-10.0, 0.1, 5.0, 0, 0, 0})
	u := ctrl.Update(1.0, 0, 0, 0)
	if u >= 0 {
		t.Error("negative P should output negative command for positive error")
	}
	if u != -10 {
		t.Errorf("expected -10 on first call, got %v", u)
	}
}

func TestPIDF_Feedforward(t *testing.T) {
	tests := []struct {
		name string
		vel  float64
		acc  float64
		want float64
	}{
		{"velocity", 2, 0, 2*0.5 + 0.1},
		{"acceleration", 0, 4, 4*0.25 + 0.1},
		{"reverse", -2, 0, -2*0.5 - 0.1},
		{"no motion has no static term", 0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl, _ := NewPIDF([]float64{0, 0, 0, 0.5, 0.25, 0.1})
			got := ctrl.Update(0, 0, tt.vel, tt.acc)
			if math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestPIDF_IntegralAndDerivative(t *testing.T) {
	ctrl, _ := NewPIDF([]float64{0, 1, 1, 0, 0, 0})

	ctrl.Update(1, 0, 0, 0)
	u := ctrl.Update(2, 0.5, 0, 0)

	// integral = 2*0.5, derivative = (2-1)/0.5
	want := 1.0 + 2.0
	if math.Abs(u-want) > 1e-12 {
		t.Errorf("expected %v, got %v", want, u)
	}
}

func TestPIDF_Reset(t *testing.T) {
	ctrl, _ := NewPIDF([]float64{0, 1, 0, 0, 0, 0})
	ctrl.Update(1, 0, 0, 0)
	ctrl.Update(1, 1, 0, 0)
	ctrl.Reset()

	if u := ctrl.Update(1, 2, 0, 0); u != 0 {
		t.Errorf("expected integral cleared, got %v", u)
	}
}

func TestPIDF_SetCoefficients(t *testing.T) {
	ctrl, _ := NewPIDF(make([]float64, 6))
	ctrl.SetCoefficients(Coefficients{3, 0, 0, 0, 0, 0.2})

	if c := ctrl.Coefficients(); c[0] != 3 || c[5] != 0.2 {
		t.Errorf("unexpected coefficients %v", c)
	}
	if u := ctrl.Update(1, 0, 0, 0); u != 3 {
		t.Errorf("expected 3, got %v", u)
	}
}
