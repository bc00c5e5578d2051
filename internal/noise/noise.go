package noise

import (
	"fmt"
	"math"
	"math/rand"
	"strings"

	"github.com/san-kum/livetrain/internal/dynamo"
)

type Type int

const (
	Sinusoidal Type = iota
	Random
)

var typeNames = map[Type]string{
	Sinusoidal: "sinusoidal",
	Random:     "random",
}

func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

func ParseType(name string) (Type, error) {
	for t, n := range typeNames {
		if strings.EqualFold(n, strings.TrimSpace(name)) {
			return t, nil
		}
	}
	return 0, fmt.Errorf("noise type %q: %w", name, dynamo.ErrUnknownKind)
}

func (t Type) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *Type) UnmarshalText(b []byte) error {
	parsed, err := ParseType(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Noise is a waveform bounded by Lower and Upper.
type Noise struct {
	Type  Type    `json:"type" yaml:"type"`
	Lower float64 `json:"lower" yaml:"lower"`
	Upper float64 `json:"upper" yaml:"upper"`
}

func New(t Type, lower, upper float64) Noise {
	return Noise{Type: t, Lower: lower, Upper: upper}
}

func (n Noise) Range() float64 {
	return n.Upper - n.Lower
}

// Generate samples the waveform at time t. Random draws come from rng.
func (n Noise) Generate(t float64, rng *rand.Rand) float64 {
	r := n.Range()
	switch n.Type {
	case Sinusoidal:
		return math.Sin(t)*r + r/4
	case Random:
		return n.Lower + rng.Float64()*r
	}
	return 0
}

func (n Noise) String() string {
	return fmt.Sprintf("%s[%g, %g]", n.Type, n.Lower, n.Upper)
}
