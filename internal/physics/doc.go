// Package physics integrates planar kinematic bodies.
//
// A [Body] carries three independent [dynamo.MotionState] axes (x, y and
// heading) and advances them with a [dynamo.Integrator] each time it is
// updated with a new simulation time:
//
//	b := physics.NewBody("robot", integrators.NewExact(), clk)
//	b.SetVelocity(10, 0, 0)
//	b.Update(0)   // records the timestamp only
//	b.Update(0.5) // x advances by 5 at speed 1
//
// The elapsed time is scaled by the speed factor read from the
// [SpeedSource] on every update.
package physics
