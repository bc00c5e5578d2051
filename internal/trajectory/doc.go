// Package trajectory builds time-parameterised reference motions.
//
// A [Path] is a chain of Hermite segments through waypoints, reparameterised
// by arc length. A [Profile] maps time to distance along the path under
// velocity, acceleration and (for S-curves) jerk limits. A [Trajectory]
// combines the two and satisfies [dynamo.Trajectory]:
//
//	traj, err := trajectory.Build(waypoints, constraints,
//	    trajectory.Trapezoidal, trajectory.HermiteQuintic)
//	ref := traj.PoseAt(t)
//
// Trajectories are sampled in absolute simulation time starting at 0.
package trajectory
