package metrics

import (
	"math"

	"github.com/san-kum/livetrain/internal/dynamo"
)

// TrackingRMS is the root mean square position error against the
// reference, over passes where the robot is following.
type TrackingRMS struct {
	name    string
	sumSq   float64
	samples int
}

func NewTrackingRMS() *TrackingRMS {
	return &TrackingRMS{name: "tracking_rms"}
}

func (m *TrackingRMS) Name() string { return m.name }

func (m *TrackingRMS) Observe(tel dynamo.Telemetry) {
	if !tel.Following {
		return
	}
	e := tel.Error().Position().Norm()
	m.sumSq += e * e
	m.samples++
}

func (m *TrackingRMS) Value() float64 {
	if m.samples == 0 {
		return 0
	}
	return math.Sqrt(m.sumSq / float64(m.samples))
}

func (m *TrackingRMS) Reset() {
	m.sumSq = 0
	m.samples = 0
}

type MaxError struct {
	name string
	max  float64
}

func NewMaxError() *MaxError {
	return &MaxError{name: "max_error"}
}

func (m *MaxError) Name() string { return m.name }

func (m *MaxError) Observe(tel dynamo.Telemetry) {
	if !tel.Following {
		return
	}
	m.max = math.Max(m.max, tel.Error().Position().Norm())
}

func (m *MaxError) Value() float64 { return m.max }

func (m *MaxError) Reset() { m.max = 0 }

// HeadingRMS is TrackingRMS for the heading axis, in radians.
type HeadingRMS struct {
	name    string
	sumSq   float64
	samples int
}

func NewHeadingRMS() *HeadingRMS {
	return &HeadingRMS{name: "heading_rms"}
}

func (m *HeadingRMS) Name() string { return m.name }

func (m *HeadingRMS) Observe(tel dynamo.Telemetry) {
	if !tel.Following {
		return
	}
	e := tel.Error().Heading
	m.sumSq += e * e
	m.samples++
}

func (m *HeadingRMS) Value() float64 {
	if m.samples == 0 {
		return 0
	}
	return math.Sqrt(m.sumSq / float64(m.samples))
}

func (m *HeadingRMS) Reset() {
	m.sumSq = 0
	m.samples = 0
}

// Defaults is the metric set recorded for every run.
func Defaults() []dynamo.Metric {
	return []dynamo.Metric{
		NewTrackingRMS(),
		NewMaxError(),
		NewHeadingRMS(),
		NewControlEffort(),
		NewSaturation(),
	}
}

// ByName builds one of the Defaults metrics.
func ByName(name string) (dynamo.Metric, bool) {
	for _, m := range Defaults() {
		if m.Name() == name {
			return m, true
		}
	}
	return nil, false
}
