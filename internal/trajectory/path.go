package trajectory

import (
	"fmt"
	"math"
	"sort"

	"github.com/san-kum/livetrain/internal/dynamo"
)

// arcSamples is the number of parameter intervals in each segment's
// arc-length table.
const arcSamples = 256

// Segment is one Hermite span between two waypoints. Tangents point
// along the waypoint headings with magnitude equal to the chord length;
// quintic segments use zero second-derivative end conditions.
type Segment struct {
	start, end dynamo.Pose
	m0, m1     dynamo.Vec2
	quintic    bool
	length     float64
	cumulative []float64
}

func newSegment(start, end dynamo.Pose, quintic bool) (*Segment, error) {
	chord := end.Position().Sub(start.Position()).Norm()
	if chord == 0 || math.IsNaN(chord) {
		return nil, fmt.Errorf("waypoints %v and %v coincide: %w", start, end, dynamo.ErrDegeneratePath)
	}
	s := &Segment{
		start:   start,
		end:     end,
		m0:      dynamo.Vec2{X: chord, Y: 0}.Rotated(start.Heading),
		m1:      dynamo.Vec2{X: chord, Y: 0}.Rotated(end.Heading),
		quintic: quintic,
	}
	s.buildTable()
	if !(s.length > 0) || math.IsInf(s.length, 0) {
		return nil, fmt.Errorf("segment %v to %v has length %v: %w", start, end, s.length, dynamo.ErrDegeneratePath)
	}
	return s, nil
}

// basis returns the weights of (p0, m0, m1, p1) for the given derivative
// order at parameter u.
func (s *Segment) basis(u float64, order int) [4]float64 {
	u2 := u * u
	u3 := u2 * u
	if !s.quintic {
		switch order {
		case 0:
			return [4]float64{2*u3 - 3*u2 + 1, u3 - 2*u2 + u, u3 - u2, -2*u3 + 3*u2}
		case 1:
			return [4]float64{6*u2 - 6*u, 3*u2 - 4*u + 1, 3*u2 - 2*u, -6*u2 + 6*u}
		default:
			return [4]float64{12*u - 6, 6*u - 4, 6*u - 2, -12*u + 6}
		}
	}
	u4 := u3 * u
	u5 := u4 * u
	switch order {
	case 0:
		return [4]float64{
			1 - 10*u3 + 15*u4 - 6*u5,
			u - 6*u3 + 8*u4 - 3*u5,
			-4*u3 + 7*u4 - 3*u5,
			10*u3 - 15*u4 + 6*u5,
		}
	case 1:
		return [4]float64{
			-30*u2 + 60*u3 - 30*u4,
			1 - 18*u2 + 32*u3 - 15*u4,
			-12*u2 + 28*u3 - 15*u4,
			30*u2 - 60*u3 + 30*u4,
		}
	default:
		return [4]float64{
			-60*u + 180*u2 - 120*u3,
			-36*u + 96*u2 - 60*u3,
			-24*u + 84*u2 - 60*u3,
			60*u - 180*u2 + 120*u3,
		}
	}
}

func (s *Segment) eval(u float64, order int) dynamo.Vec2 {
	b := s.basis(u, order)
	p0 := s.start.Position()
	p1 := s.end.Position()
	return p0.Scale(b[0]).Add(s.m0.Scale(b[1])).Add(s.m1.Scale(b[2])).Add(p1.Scale(b[3]))
}

func (s *Segment) speed(u float64) float64 {
	return s.eval(u, 1).Norm()
}

// buildTable integrates |P'(u)| with Simpson's rule on each interval.
func (s *Segment) buildTable() {
	s.cumulative = make([]float64, arcSamples+1)
	h := 1.0 / arcSamples
	for i := 1; i <= arcSamples; i++ {
		a := float64(i-1) * h
		b := float64(i) * h
		area := h / 6 * (s.speed(a) + 4*s.speed((a+b)/2) + s.speed(b))
		s.cumulative[i] = s.cumulative[i-1] + area
	}
	s.length = s.cumulative[arcSamples]
}

// paramAt inverts the arc-length table. NaN maps to the start.
func (s *Segment) paramAt(length float64) float64 {
	if !(length > 0) {
		return 0
	}
	if length >= s.length {
		return 1
	}
	i := sort.SearchFloat64s(s.cumulative, length)
	if i == 0 {
		return 0
	}
	lo, hi := s.cumulative[i-1], s.cumulative[i]
	frac := 0.0
	if hi > lo {
		frac = (length - lo) / (hi - lo)
	}
	return (float64(i-1) + frac) / arcSamples
}

func (s *Segment) Length() float64 { return s.length }

func (s *Segment) Start() dynamo.Pose { return s.start }

func (s *Segment) End() dynamo.Pose { return s.end }

// PoseAt evaluates the segment at parameter u in [0, 1]. Heading is
// interpolated linearly in u.
func (s *Segment) PoseAt(u float64) dynamo.Pose {
	p := s.eval(u, 0)
	return dynamo.Pose{X: p.X, Y: p.Y, Heading: s.start.Heading + (s.end.Heading-s.start.Heading)*u}
}

// derivatives returns the first and second derivatives of the pose with
// respect to arc length at parameter u.
func (s *Segment) derivatives(u float64) (d1, d2 dynamo.Pose) {
	p1 := s.eval(u, 1)
	p2 := s.eval(u, 2)
	n2 := p1.Dot(p1)
	if n2 == 0 {
		return dynamo.Pose{}, dynamo.Pose{}
	}
	n := math.Sqrt(n2)
	dh := s.end.Heading - s.start.Heading
	dot := p1.Dot(p2)

	t := p1.Scale(1 / n)
	c := p2.Sub(p1.Scale(dot / n2)).Scale(1 / n2)

	d1 = dynamo.Pose{X: t.X, Y: t.Y, Heading: dh / n}
	d2 = dynamo.Pose{X: c.X, Y: c.Y, Heading: -dh * dot / (n2 * n2)}
	return d1, d2
}

type Path struct {
	kind     PathType
	segments []*Segment
	offsets  []float64
	length   float64
}

// NewPath joins consecutive waypoints with Hermite segments.
func NewPath(kind PathType, waypoints []dynamo.Pose) (*Path, error) {
	if len(waypoints) < 2 {
		return nil, fmt.Errorf("%d waypoints: %w", len(waypoints), dynamo.ErrDegeneratePath)
	}
	if _, ok := pathNames[kind]; !ok {
		return nil, fmt.Errorf("path type %d: %w", int(kind), dynamo.ErrUnknownKind)
	}
	for i, wp := range waypoints {
		if !wp.IsValid() {
			return nil, fmt.Errorf("waypoint %d: %w", i, dynamo.ErrInvalidState)
		}
	}

	p := &Path{kind: kind}
	for i := 0; i+1 < len(waypoints); i++ {
		seg, err := newSegment(waypoints[i], waypoints[i+1], kind == HermiteQuintic)
		if err != nil {
			return nil, fmt.Errorf("segment %d: %w", i, err)
		}
		p.offsets = append(p.offsets, p.length)
		p.segments = append(p.segments, seg)
		p.length += seg.length
	}
	return p, nil
}

func (p *Path) Type() PathType { return p.kind }

func (p *Path) Segments() []*Segment { return p.segments }

func (p *Path) Length() float64 { return p.length }

// locate maps an arc length to a segment and its parameter. NaN maps to
// the start.
func (p *Path) locate(s float64) (*Segment, float64) {
	if !(s > 0) {
		return p.segments[0], 0
	}
	if s >= p.length {
		return p.segments[len(p.segments)-1], 1
	}
	i := sort.Search(len(p.offsets), func(i int) bool { return p.offsets[i] > s }) - 1
	if i < 0 {
		i = 0
	}
	seg := p.segments[i]
	return seg, seg.paramAt(s - p.offsets[i])
}

// PoseAtLength clamps s to [0, Length()].
func (p *Path) PoseAtLength(s float64) dynamo.Pose {
	seg, u := p.locate(s)
	return seg.PoseAt(u)
}

// DerivativesAtLength returns dPose/ds and d²Pose/ds² at s.
func (p *Path) DerivativesAtLength(s float64) (d1, d2 dynamo.Pose) {
	seg, u := p.locate(s)
	return seg.derivatives(u)
}
