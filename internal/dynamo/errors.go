package dynamo

import "errors"

// Domain errors for simulation operations.
var (
	// ErrInvalidState indicates a state or pose holding NaN or Inf.
	ErrInvalidState = errors.New("dynamo: invalid state (NaN or Inf detected)")

	// ErrNonFinite indicates a computed command that is NaN or Inf.
	ErrNonFinite = errors.New("dynamo: non-finite command")

	// ErrParameterBounds indicates a parameter value is outside valid range.
	ErrParameterBounds = errors.New("dynamo: parameter out of valid bounds")

	// ErrNoTrajectory indicates the follower was asked to track without a trajectory.
	ErrNoTrajectory = errors.New("dynamo: no trajectory assigned")

	// ErrCoefficientLength indicates a controller coefficient set of the wrong size.
	ErrCoefficientLength = errors.New("dynamo: coefficient sets must be 6 in length")

	// ErrInvalidConstraints indicates non-positive motion constraints.
	ErrInvalidConstraints = errors.New("dynamo: motion constraints must be positive")

	// ErrDegeneratePath indicates too few or coincident waypoints.
	ErrDegeneratePath = errors.New("dynamo: degenerate path")

	// ErrUnknownKind indicates an unrecognised enum name.
	ErrUnknownKind = errors.New("dynamo: unknown kind")
)

// SimulationError wraps an error with simulation context.
type SimulationError struct {
	Body    string
	Time    float64
	Wrapped error
}

func (e *SimulationError) Error() string {
	return e.Body + ": " + e.Wrapped.Error()
}

func (e *SimulationError) Unwrap() error {
	return e.Wrapped
}
