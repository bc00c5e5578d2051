package noise

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/san-kum/livetrain/internal/dynamo"
)

func TestNoise_Sinusoidal(t *testing.T) {
	tests := []struct {
		name  string
		lower float64
		upper float64
		t     float64
		want  float64
	}{
		{"zero time gives quarter range", 0, 4, 0, 1},
		{"offset bounds", -1, 1, 0, 0.5},
		{"peak", 0, 4, math.Pi / 2, 5},
		{"trough", 0, 4, 3 * math.Pi / 2, -3},
		{"empty range", 2, 2, 1.3, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := New(Sinusoidal, tt.lower, tt.upper)
			got := n.Generate(tt.t, nil)
			if math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestNoise_RandomWithinBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	n := New(Random, -0.5, 1.5)

	for i := 0; i < 1000; i++ {
		v := n.Generate(0, rng)
		if v < -0.5 || v >= 1.5 {
			t.Fatalf("sample %d out of bounds: %v", i, v)
		}
	}
}

func TestParseType(t *testing.T) {
	tests := []struct {
		in      string
		want    Type
		wantErr bool
	}{
		{"sinusoidal", Sinusoidal, false},
		{"RANDOM", Random, false},
		{" random ", Random, false},
		{"gaussian", 0, true},
	}

	for _, tt := range tests {
		got, err := ParseType(tt.in)
		if tt.wantErr {
			if !errors.Is(err, dynamo.ErrUnknownKind) {
				t.Errorf("ParseType(%q): expected ErrUnknownKind, got %v", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParseType(%q) = %v, %v", tt.in, got, err)
		}
	}
}

func TestType_TextRoundTrip(t *testing.T) {
	var typ Type
	if err := typ.UnmarshalText([]byte("random")); err != nil {
		t.Fatal(err)
	}
	b, _ := typ.MarshalText()
	if string(b) != "random" {
		t.Errorf("expected random, got %s", b)
	}
}

func TestGenerator_StartsDisabled(t *testing.T) {
	g := NewGenerator(1, nil)
	if g.Enabled() {
		t.Error("new generator should be disabled")
	}
	g.SetStatic(New(Sinusoidal, 0, 4))
	if v := g.Generate(Static, 0); v != 0 {
		t.Errorf("expected 0 before enabling, got %v", v)
	}
}

func TestGenerator_DisabledReturnsZero(t *testing.T) {
	g := NewGenerator(1, nil)
	g.SetStatic(New(Random, 5, 10))
	g.SetAdditive(New(Sinusoidal, 0, 8))
	g.SetEnabled(false)

	for _, kind := range []Kind{Static, Additive} {
		for _, ts := range []float64{0, 0.3, 12} {
			if v := g.Generate(kind, ts); v != 0 {
				t.Errorf("kind %v at %v: expected 0, got %v", kind, ts, v)
			}
		}
	}

	p := dynamo.NewPose(1, 2, 3)
	if got := g.Perturb(Static, 1, p); got != p {
		t.Errorf("disabled perturb changed pose: %v", got)
	}
}

func TestGenerator_SelectsWaveform(t *testing.T) {
	g := NewGenerator(1, nil)
	g.SetStatic(New(Sinusoidal, 0, 4))
	g.SetAdditive(New(Sinusoidal, 0, 8))
	g.SetEnabled(true)

	if v := g.Generate(Static, 0); v != 1 {
		t.Errorf("static: expected 1, got %v", v)
	}
	if v := g.Generate(Additive, 0); v != 2 {
		t.Errorf("additive: expected 2, got %v", v)
	}
}

func TestGenerator_PerturbDrawsPerAxis(t *testing.T) {
	g := NewGenerator(3, nil)
	g.SetStatic(New(Random, 0, 1))
	g.SetEnabled(true)

	p := g.Perturb(Static, 0, dynamo.Pose{})
	if p.X == p.Y && p.Y == p.Heading {
		t.Errorf("expected independent draws, got %v", p)
	}
}

func TestGenerator_SeededIsDeterministic(t *testing.T) {
	a := NewGenerator(42, nil)
	b := NewGenerator(42, nil)
	a.SetStatic(New(Random, -1, 1))
	b.SetStatic(New(Random, -1, 1))
	a.SetEnabled(true)
	b.SetEnabled(true)

	for i := 0; i < 10; i++ {
		if a.Generate(Static, 0) != b.Generate(Static, 0) {
			t.Fatal("same seed produced different streams")
		}
	}
}

func TestParseKind(t *testing.T) {
	if k, err := ParseKind("Additive"); err != nil || k != Additive {
		t.Errorf("ParseKind(Additive) = %v, %v", k, err)
	}
	if _, err := ParseKind("other"); !errors.Is(err, dynamo.ErrUnknownKind) {
		t.Errorf("expected ErrUnknownKind, got %v", err)
	}
}
