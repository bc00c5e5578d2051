package control

import (
	"fmt"
	"math"

	"github.com/san-kum/livetrain/internal/dynamo"
)

// CoefficientCount is the length of a PIDF coefficient set.
const CoefficientCount = 6

// Coefficients are ordered {P, I, D, V, A, S}.
type Coefficients [CoefficientCount]float64

// ParseCoefficients converts a slice of exactly six values.
func ParseCoefficients(c []float64) (Coefficients, error) {
	var out Coefficients
	if len(c) != CoefficientCount {
		return out, fmt.Errorf("got %d: %w", len(c), dynamo.ErrCoefficientLength)
	}
	copy(out[:], c)
	return out, nil
}

// PIDF sums feedback on the error with velocity, acceleration and static
// feedforward. Corrective gains carry the sign the plant needs, so a
// positive error usually pairs with a negative P.
type PIDF struct {
	Kp, Ki, Kd float64
	Kv, Ka, Ks float64
	integral   float64
	prevErr    float64
	prevT      float64
	first      bool
}

func NewPIDF(c []float64) (*PIDF, error) {
	coeffs, err := ParseCoefficients(c)
	if err != nil {
		return nil, err
	}
	p := &PIDF{first: true}
	p.SetCoefficients(coeffs)
	return p, nil
}

func (p *PIDF) SetCoefficients(c Coefficients) {
	p.Kp, p.Ki, p.Kd = c[0], c[1], c[2]
	p.Kv, p.Ka, p.Ks = c[3], c[4], c[5]
}

func (p *PIDF) Coefficients() Coefficients {
	return Coefficients{p.Kp, p.Ki, p.Kd, p.Kv, p.Ka, p.Ks}
}

func (p *PIDF) Update(err, t, vel, acc float64) float64 {
	feedback := p.Kp * err

	if p.first {
		p.first = false
	} else if dt := t - p.prevT; dt > 0 {
		p.integral += err * dt
		feedback += p.Ki*p.integral + p.Kd*(err-p.prevErr)/dt
	} else {
		feedback += p.Ki * p.integral
	}
	p.prevErr = err
	p.prevT = t

	ff := p.Kv*vel + p.Ka*acc
	if ff != 0 {
		ff += p.Ks * math.Copysign(1, ff)
	}
	return feedback + ff
}

// Reset clears integral and derivative state
func (p *PIDF) Reset() {
	p.integral = 0
	p.prevErr = 0
	p.prevT = 0
	p.first = true
}
