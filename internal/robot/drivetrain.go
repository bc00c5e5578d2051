package robot

import (
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/san-kum/livetrain/internal/dynamo"
)

// MinWheelRadius is the smallest radius accepted from numeric entry.
const MinWheelRadius = 0.01

type DriveType int

const (
	Mecanum DriveType = iota
	// Tank is recognised but produces no motion.
	Tank
)

func (d DriveType) String() string {
	switch d {
	case Mecanum:
		return "mecanum"
	case Tank:
		return "tank"
	}
	return fmt.Sprintf("DriveType(%d)", int(d))
}

func ParseDriveType(name string) (DriveType, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "mecanum":
		return Mecanum, nil
	case "tank":
		return Tank, nil
	}
	return 0, fmt.Errorf("drive type %q: %w", name, dynamo.ErrUnknownKind)
}

func (d DriveType) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

func (d *DriveType) UnmarshalText(b []byte) error {
	parsed, err := ParseDriveType(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Drivetrain turns four wheel powers into a body-frame velocity. Wheel
// indices start at the front left and run counter-clockwise.
type Drivetrain struct {
	kind        DriveType
	powers      dynamo.WheelPowers
	radius      float64
	halfWidth   float64
	halfLength  float64
	maxVelocity float64
	logger      *zap.Logger
}

func NewDrivetrain(kind DriveType, width, height, maxVelocity float64, logger *zap.Logger) *Drivetrain {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Drivetrain{
		kind:        kind,
		radius:      2,
		halfWidth:   width / 2,
		halfLength:  height / 2,
		maxVelocity: maxVelocity,
		logger:      logger,
	}
}

// clamp limits p to [-1, 1]; NaN maps to 0.
func clamp(p float64) float64 {
	if math.IsNaN(p) {
		return 0
	}
	return math.Max(-1, math.Min(1, p))
}

func (d *Drivetrain) Power(i int) float64 { return d.powers[i] }

func (d *Drivetrain) Powers() dynamo.WheelPowers { return d.powers }

func (d *Drivetrain) SetPower(i int, p float64) error {
	if i < 0 || i >= len(d.powers) {
		return fmt.Errorf("wheel index %d: %w", i, dynamo.ErrParameterBounds)
	}
	d.powers[i] = clamp(p)
	return nil
}

func (d *Drivetrain) SetPowers(p dynamo.WheelPowers) {
	for i := range d.powers {
		d.powers[i] = clamp(p[i])
	}
}

// UpdatePowers adds delta to the current powers, clamping the result.
func (d *Drivetrain) UpdatePowers(delta dynamo.WheelPowers) {
	for i := range d.powers {
		d.powers[i] = clamp(d.powers[i] + delta[i])
	}
}

func (d *Drivetrain) Type() DriveType { return d.kind }

func (d *Drivetrain) SetType(kind DriveType) {
	d.kind = kind
	d.logger.Info("drivetrain type changed", zap.Stringer("type", kind))
}

func (d *Drivetrain) WheelRadius() float64 { return d.radius }

func (d *Drivetrain) SetWheelRadius(r float64) error {
	if !(r > 0) || math.IsInf(r, 0) {
		return fmt.Errorf("wheel radius %v: %w", r, dynamo.ErrParameterBounds)
	}
	d.radius = r
	d.logger.Info("wheel radius changed", zap.Float64("radius", r))
	return nil
}

func (d *Drivetrain) HalfTrack() (halfWidth, halfLength float64) {
	return d.halfWidth, d.halfLength
}

func (d *Drivetrain) SetHalfTrack(halfWidth, halfLength float64) {
	d.halfWidth = halfWidth
	d.halfLength = halfLength
}

func (d *Drivetrain) MaxVelocity() float64 { return d.maxVelocity }

func (d *Drivetrain) SetMaxVelocity(v float64) {
	d.maxVelocity = v
}

// State returns the body-frame velocity for the current powers. X and Y
// are scaled by the maximum velocity; the heading rate is not.
func (d *Drivetrain) State() dynamo.Pose {
	var xVel, yVel, thetaVel float64
	w := d.powers

	switch d.kind {
	case Mecanum:
		xVel = (w[0] + w[3] + w[1] + w[2]) * (d.radius / 4)
		yVel = (-w[0] + w[3] + w[1] - w[2]) * (d.radius / 4)
		thetaVel = (-w[0] + w[3] - w[1] + w[2]) * (d.radius / (4 * (d.halfWidth + d.halfLength)))
	case Tank:
	}

	return dynamo.Pose{X: xVel * d.maxVelocity, Y: yVel * d.maxVelocity, Heading: thetaVel}
}
