// Package dynamo provides the core value types and contracts shared by the
// simulator packages.
//
// The package defines:
//
//   - [Pose] and [Vec2]: planar poses and vectors (heading is never wrapped)
//   - [MotionState]: position, velocity, acceleration and jerk along one axis
//   - [WheelPowers]: the four mecanum wheel commands
//   - [Integrator]: "state after dt" for a single [MotionState]
//   - [Trajectory]: time-sampled reference pose, velocity and acceleration
//   - [FeedbackController]: a single corrective axis of the follower
//   - [Telemetry], [Observer], [Metric]: per-pass snapshots and their consumers
//
// # Example
//
//	integ := integrators.NewExact()
//	next := integ.Step(dynamo.MotionState{Pos: 0, Vel: 2}, 0.5)
//	// next.Pos == 1
//
// # Thread Safety
//
// Values in this package are immutable once constructed and safe to share.
package dynamo
