package trajectory

import (
	"fmt"

	"github.com/san-kum/livetrain/internal/dynamo"
)

// Trajectory follows a Path at the pace of a Profile.
type Trajectory struct {
	path      *Path
	profile   *Profile
	waypoints []dynamo.Pose
}

// Build validates the constraints, fits a path through the waypoints and
// profiles its full length.
func Build(waypoints []dynamo.Pose, c Constraints, profile ProfileType, path PathType) (*Trajectory, error) {
	if err := c.Validate(profile); err != nil {
		return nil, err
	}
	p, err := NewPath(path, waypoints)
	if err != nil {
		return nil, err
	}
	prof, err := NewProfile(profile, p.Length(), c)
	if err != nil {
		return nil, err
	}
	wps := make([]dynamo.Pose, len(waypoints))
	copy(wps, waypoints)
	return &Trajectory{path: p, profile: prof, waypoints: wps}, nil
}

func (tr *Trajectory) Path() *Path { return tr.path }

func (tr *Trajectory) Profile() *Profile { return tr.profile }

func (tr *Trajectory) Waypoints() []dynamo.Pose {
	out := make([]dynamo.Pose, len(tr.waypoints))
	copy(out, tr.waypoints)
	return out
}

func (tr *Trajectory) Duration() float64 { return tr.profile.Duration() }

func (tr *Trajectory) PoseAt(t float64) dynamo.Pose {
	s, _, _ := tr.profile.At(t)
	return tr.path.PoseAtLength(s)
}

func (tr *Trajectory) VelocityAt(t float64) dynamo.Pose {
	s, v, _ := tr.profile.At(t)
	d1, _ := tr.path.DerivativesAtLength(s)
	return scale(d1, v)
}

func (tr *Trajectory) AccelerationAt(t float64) dynamo.Pose {
	s, v, a := tr.profile.At(t)
	d1, d2 := tr.path.DerivativesAtLength(s)
	return scale(d2, v*v).Add(scale(d1, a))
}

// Sample returns n+1 evenly spaced poses covering the whole trajectory.
func (tr *Trajectory) Sample(n int) []dynamo.Pose {
	if n < 1 {
		n = 1
	}
	out := make([]dynamo.Pose, n+1)
	T := tr.Duration()
	for i := 0; i <= n; i++ {
		out[i] = tr.PoseAt(T * float64(i) / float64(n))
	}
	return out
}

func (tr *Trajectory) String() string {
	return fmt.Sprintf("%s through %d waypoints (length %.3f), %s",
		tr.path.Type(), len(tr.waypoints), tr.path.Length(), tr.profile)
}

func scale(p dynamo.Pose, f float64) dynamo.Pose {
	return dynamo.Pose{X: p.X * f, Y: p.Y * f, Heading: p.Heading * f}
}

var _ dynamo.Trajectory = (*Trajectory)(nil)
