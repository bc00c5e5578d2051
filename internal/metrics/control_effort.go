package metrics

import (
	"math"

	"github.com/san-kum/livetrain/internal/dynamo"
)

// ControlEffort is the mean absolute wheel power per pass.
type ControlEffort struct {
	name    string
	sum     float64
	samples int
}

func NewControlEffort() *ControlEffort {
	return &ControlEffort{
		name: "control_effort",
	}
}

func (c *ControlEffort) Name() string {
	return c.name
}

func (c *ControlEffort) Observe(tel dynamo.Telemetry) {
	var total float64
	for _, p := range tel.Powers {
		total += math.Abs(p)
	}
	c.sum += total / float64(len(tel.Powers))
	c.samples++
}

func (c *ControlEffort) Value() float64 {
	if c.samples == 0 {
		return 0
	}
	return c.sum / float64(c.samples)
}

func (c *ControlEffort) Reset() {
	c.sum = 0
	c.samples = 0
}

// Saturation is the fraction of controller firings whose raw output
// exceeded the [-1, 1] power range on any wheel.
type Saturation struct {
	name      string
	saturated int
	samples   int
}

func NewSaturation() *Saturation {
	return &Saturation{name: "saturation"}
}

func (s *Saturation) Name() string { return s.name }

func (s *Saturation) Observe(tel dynamo.Telemetry) {
	if !tel.ControlFired {
		return
	}
	s.samples++
	for _, p := range tel.RawPowers {
		if math.Abs(p) > 1 {
			s.saturated++
			break
		}
	}
}

func (s *Saturation) Value() float64 {
	if s.samples == 0 {
		return 0
	}
	return float64(s.saturated) / float64(s.samples)
}

func (s *Saturation) Reset() {
	s.saturated = 0
	s.samples = 0
}
