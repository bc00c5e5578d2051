package trajectory

import (
	"fmt"
	"math"

	"github.com/san-kum/livetrain/internal/dynamo"
)

const bisectIterations = 64

// Profile is a symmetric rest-to-rest motion over a fixed distance. The
// acceleration half ramps jerk up for tj, holds peak acceleration for tc,
// then ramps down for tj; deceleration mirrors it.
type Profile struct {
	kind     ProfileType
	distance float64
	vp       float64
	ap       float64
	jerk     float64
	tj, tc   float64
	tAcc     float64
	dAcc     float64
	tCruise  float64
	duration float64
}

func NewProfile(kind ProfileType, distance float64, c Constraints) (*Profile, error) {
	if err := c.Validate(kind); err != nil {
		return nil, err
	}
	if !(distance > 0) || math.IsInf(distance, 0) {
		return nil, fmt.Errorf("profile distance %v: %w", distance, dynamo.ErrDegeneratePath)
	}

	p := &Profile{kind: kind, distance: distance}
	switch kind {
	case Triangular:
		p.vp = math.Min(c.MaxVelocity, math.Sqrt(distance*c.MaxAcceleration))
		p.ap = p.vp * p.vp / distance
		p.tc = p.vp / p.ap
	case Trapezoidal:
		p.vp = math.Min(c.MaxVelocity, math.Sqrt(distance*c.MaxAcceleration))
		p.ap = c.MaxAcceleration
		p.tc = p.vp / p.ap
	case SCurve:
		p.jerk = c.MaxJerk
		vp := c.MaxVelocity
		if 2*sCurveDistance(vp, c.MaxAcceleration, c.MaxJerk) > distance {
			lo, hi := 0.0, vp
			for i := 0; i < bisectIterations; i++ {
				mid := (lo + hi) / 2
				if 2*sCurveDistance(mid, c.MaxAcceleration, c.MaxJerk) <= distance {
					lo = mid
				} else {
					hi = mid
				}
			}
			vp = lo
		}
		p.vp = vp
		p.ap, p.tj, p.tc = sCurveShape(vp, c.MaxAcceleration, c.MaxJerk)
	default:
		return nil, fmt.Errorf("profile type %d: %w", int(kind), dynamo.ErrUnknownKind)
	}

	p.tAcc = 2*p.tj + p.tc
	p.dAcc = p.vp * p.tAcc / 2
	if p.vp > 0 {
		p.tCruise = math.Max(0, (distance-2*p.dAcc)/p.vp)
	}
	p.duration = 2*p.tAcc + p.tCruise
	return p, nil
}

// sCurveShape returns the peak acceleration and phase durations that reach
// vp from rest.
func sCurveShape(vp, amax, j float64) (ap, tj, tc float64) {
	if vp*j >= amax*amax {
		ap = amax
		tj = amax / j
		tc = vp/amax - tj
		return ap, tj, tc
	}
	ap = math.Sqrt(vp * j)
	return ap, ap / j, 0
}

func sCurveDistance(vp, amax, j float64) float64 {
	_, tj, tc := sCurveShape(vp, amax, j)
	return vp * (2*tj + tc) / 2
}

// accelerate samples the acceleration half at tau in [0, tAcc].
func (p *Profile) accelerate(tau float64) (s, v, a float64) {
	if tau <= 0 {
		return 0, 0, 0
	}
	j := p.jerk
	if tau <= p.tj {
		return j * tau * tau * tau / 6, j * tau * tau / 2, j * tau
	}
	s1 := j * p.tj * p.tj * p.tj / 6
	v1 := j * p.tj * p.tj / 2

	if tau <= p.tj+p.tc {
		t2 := tau - p.tj
		return s1 + v1*t2 + p.ap*t2*t2/2, v1 + p.ap*t2, p.ap
	}
	s2 := s1 + v1*p.tc + p.ap*p.tc*p.tc/2
	v2 := v1 + p.ap*p.tc

	t3 := math.Min(tau, p.tAcc) - p.tj - p.tc
	s = s2 + v2*t3 + p.ap*t3*t3/2 - j*t3*t3*t3/6
	v = v2 + p.ap*t3 - j*t3*t3/2
	a = p.ap - j*t3
	return s, v, a
}

// At samples distance, velocity and acceleration at t, clamped to the
// profile's duration.
func (p *Profile) At(t float64) (s, v, a float64) {
	switch {
	case t <= 0:
		return 0, 0, 0
	case t >= p.duration:
		return p.distance, 0, 0
	case t < p.tAcc:
		return p.accelerate(t)
	case t < p.tAcc+p.tCruise:
		return p.dAcc + p.vp*(t-p.tAcc), p.vp, 0
	}
	sa, va, aa := p.accelerate(p.duration - t)
	return p.distance - sa, va, -aa
}

func (p *Profile) Type() ProfileType { return p.kind }

func (p *Profile) Duration() float64 { return p.duration }

func (p *Profile) Distance() float64 { return p.distance }

func (p *Profile) PeakVelocity() float64 { return p.vp }

func (p *Profile) PeakAcceleration() float64 { return p.ap }

func (p *Profile) String() string {
	return fmt.Sprintf("%s d=%.3f vp=%.3f ap=%.3f T=%.3f", p.kind, p.distance, p.vp, p.ap, p.duration)
}
