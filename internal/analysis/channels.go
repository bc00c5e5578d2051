package analysis

import (
	"fmt"
	"sort"

	"github.com/san-kum/livetrain/internal/dynamo"
)

var channels = map[string]func(dynamo.Telemetry) float64{
	"x":             func(t dynamo.Telemetry) float64 { return t.Pose.X },
	"y":             func(t dynamo.Telemetry) float64 { return t.Pose.Y },
	"heading":       func(t dynamo.Telemetry) float64 { return t.Pose.Heading },
	"x_error":       func(t dynamo.Telemetry) float64 { return t.Error().X },
	"y_error":       func(t dynamo.Telemetry) float64 { return t.Error().Y },
	"heading_error": func(t dynamo.Telemetry) float64 { return t.Error().Heading },
	"position_error": func(t dynamo.Telemetry) float64 {
		return t.Error().Position().Norm()
	},
	// robot-frame errors, as the follower sees them
	"axial_error": func(t dynamo.Telemetry) float64 {
		return t.Error().Position().Rotated(-t.Pose.Heading).X
	},
	"lateral_error": func(t dynamo.Telemetry) float64 {
		return t.Error().Position().Rotated(-t.Pose.Heading).Y
	},
	"speed": func(t dynamo.Telemetry) float64 { return t.Velocity.Position().Norm() },
	"p0":    func(t dynamo.Telemetry) float64 { return t.Powers[dynamo.FrontLeft] },
	"p1":    func(t dynamo.Telemetry) float64 { return t.Powers[dynamo.BackLeft] },
	"p2":    func(t dynamo.Telemetry) float64 { return t.Powers[dynamo.BackRight] },
	"p3":    func(t dynamo.Telemetry) float64 { return t.Powers[dynamo.FrontRight] },
}

func Channels() []string {
	names := make([]string, 0, len(channels))
	for name := range channels {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Extract returns one value per sample for the named channel.
func Extract(samples []dynamo.Telemetry, channel string) ([]float64, error) {
	fn, ok := channels[channel]
	if !ok {
		return nil, fmt.Errorf("channel %q: %w", channel, dynamo.ErrUnknownKind)
	}
	out := make([]float64, len(samples))
	for i, s := range samples {
		out[i] = fn(s)
	}
	return out, nil
}

type PhasePoint struct {
	Value, Rate float64
}

// GeneratePhasePlane pairs each interior sample of a channel with its
// central-difference rate.
func GeneratePhasePlane(samples []dynamo.Telemetry, channel string) ([]PhasePoint, error) {
	values, err := Extract(samples, channel)
	if err != nil {
		return nil, err
	}
	if len(values) < 3 {
		return nil, nil
	}
	points := make([]PhasePoint, 0, len(values)-2)
	for i := 1; i < len(values)-1; i++ {
		dt := samples[i+1].Time - samples[i-1].Time
		if dt <= 0 {
			continue
		}
		points = append(points, PhasePoint{
			Value: values[i],
			Rate:  (values[i+1] - values[i-1]) / dt,
		})
	}
	return points, nil
}
