package trajectory

import (
	"fmt"
	"math"

	"go.uber.org/multierr"

	"github.com/san-kum/livetrain/internal/dynamo"
)

// Constraints bound the motion profile. Jerk is only used by S-curves.
type Constraints struct {
	MaxVelocity     float64 `json:"max_velocity" yaml:"max_velocity"`
	MaxAcceleration float64 `json:"max_acceleration" yaml:"max_acceleration"`
	MaxJerk         float64 `json:"max_jerk" yaml:"max_jerk"`
}

func NewConstraints(v, a, j float64) Constraints {
	return Constraints{MaxVelocity: v, MaxAcceleration: a, MaxJerk: j}
}

// positive reports whether v is a finite limit above zero.
func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 1)
}

// Validate checks the limits the given profile type depends on. Every
// limit must be finite.
func (c Constraints) Validate(kind ProfileType) error {
	var err error
	if !positive(c.MaxVelocity) {
		err = multierr.Append(err, fmt.Errorf("max velocity %v: %w", c.MaxVelocity, dynamo.ErrInvalidConstraints))
	}
	if !positive(c.MaxAcceleration) {
		err = multierr.Append(err, fmt.Errorf("max acceleration %v: %w", c.MaxAcceleration, dynamo.ErrInvalidConstraints))
	}
	if kind == SCurve && !positive(c.MaxJerk) {
		err = multierr.Append(err, fmt.Errorf("max jerk %v: %w", c.MaxJerk, dynamo.ErrInvalidConstraints))
	}
	return err
}

func (c Constraints) String() string {
	return fmt.Sprintf("v=%g a=%g j=%g", c.MaxVelocity, c.MaxAcceleration, c.MaxJerk)
}
