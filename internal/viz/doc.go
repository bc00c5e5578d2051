// Package viz renders a running simulation in the terminal.
//
// The live view is a Bubble Tea model that samples [sim.Simulation]
// snapshots at the configured frame rate while the simulation loop runs
// on its own goroutine:
//
//   - [Model]: field view with the planned path, the driven trail, the robot
//     footprint and the current reference
//   - [Canvas]: Braille-based pixel canvas with a world [Viewport]
//   - Theme selection with 3 built-in color schemes
//
// # Key Bindings
//
//	Space - Run/Pause simulation
//	R     - Reset to the initial pose
//	+ / - - Double / halve speed
//	A     - Advance paused time by one step
//	F     - Toggle trajectory following
//	N     - Toggle pose noise
//	T     - Cycle color themes
//	?     - Show help overlay
package viz
