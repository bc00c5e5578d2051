package noise

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/san-kum/livetrain/internal/dynamo"
)

// Kind selects which of the generator's two waveforms is sampled.
type Kind int

const (
	// Static noise is applied fresh on every estimate.
	Static Kind = iota
	// Additive noise is accumulated into a persistent offset.
	Additive
)

func (k Kind) String() string {
	switch k {
	case Static:
		return "static"
	case Additive:
		return "additive"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

func ParseKind(name string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "static":
		return Static, nil
	case "additive":
		return Additive, nil
	}
	return 0, fmt.Errorf("noise kind %q: %w", name, dynamo.ErrUnknownKind)
}

type Generator struct {
	mu       sync.Mutex
	static   Noise
	additive Noise
	enabled  bool
	rng      *rand.Rand
	logger   *zap.Logger
}

// NewGenerator starts disabled with zero-range static and additive noise.
func NewGenerator(seed int64, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{
		static:   New(Sinusoidal, 0, 0),
		additive: New(Sinusoidal, 0, 0),
		rng:      rand.New(rand.NewSource(seed)),
		logger:   logger,
	}
}

func (g *Generator) SetStatic(n Noise) {
	g.mu.Lock()
	g.static = n
	g.mu.Unlock()
	g.logger.Info("static noise changed", zap.Stringer("noise", n))
}

func (g *Generator) SetAdditive(n Noise) {
	g.mu.Lock()
	g.additive = n
	g.mu.Unlock()
	g.logger.Info("additive noise changed", zap.Stringer("noise", n))
}

func (g *Generator) SetEnabled(enabled bool) {
	g.mu.Lock()
	g.enabled = enabled
	g.mu.Unlock()
	g.logger.Info("noise toggled", zap.Bool("enabled", enabled))
}

func (g *Generator) Enabled() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.enabled
}

func (g *Generator) Static() Noise {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.static
}

func (g *Generator) Additive() Noise {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.additive
}

// Reseed restarts the random stream.
func (g *Generator) Reseed(seed int64) {
	g.mu.Lock()
	g.rng = rand.New(rand.NewSource(seed))
	g.mu.Unlock()
}

// Generate draws one sample of the selected waveform, or exactly 0 when
// noise is disabled.
func (g *Generator) Generate(kind Kind, t float64) float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.generate(kind, t)
}

func (g *Generator) generate(kind Kind, t float64) float64 {
	if !g.enabled {
		return 0
	}
	if kind == Additive {
		return g.additive.Generate(t, g.rng)
	}
	return g.static.Generate(t, g.rng)
}

// Perturb adds an independent draw to each component of p.
func (g *Generator) Perturb(kind Kind, t float64, p dynamo.Pose) dynamo.Pose {
	g.mu.Lock()
	defer g.mu.Unlock()
	return dynamo.Pose{
		X:       p.X + g.generate(kind, t),
		Y:       p.Y + g.generate(kind, t),
		Heading: p.Heading + g.generate(kind, t),
	}
}
