package viz

import (
	"math"
	"strings"
	"testing"

	"github.com/san-kum/livetrain/internal/dynamo"
)

func TestCanvas_Set(t *testing.T) {
	c := NewCanvas(2, 1)
	c.Set(0, 0)
	c.Set(3, 3)
	c.Set(-1, 0)
	c.Set(100, 100)

	if c.Grid[0][0] != brailleBlank|0x1 {
		t.Errorf("cell 0 = %U", c.Grid[0][0])
	}
	if c.Grid[0][1] != brailleBlank|0x80 {
		t.Errorf("cell 1 = %U", c.Grid[0][1])
	}

	c.Clear()
	if strings.Trim(c.String(), string(rune(brailleBlank))+"\n") != "" {
		t.Error("expected blank canvas after Clear")
	}
}

func TestFitViewport(t *testing.T) {
	v := FitViewport([]dynamo.Vec2{{X: 0, Y: 10}, {X: 20, Y: -5}}, 2)
	want := Viewport{MinX: -2, MinY: -7, MaxX: 22, MaxY: 12}
	if v != want {
		t.Errorf("got %+v, want %+v", v, want)
	}
	if FitViewport(nil, 5) != (Viewport{0, 0, 1, 1}) {
		t.Error("expected unit viewport for no points")
	}
}

func TestViewport_Project(t *testing.T) {
	c := NewCanvas(10, 5)
	v := Viewport{MinX: 0, MinY: 0, MaxX: 19, MaxY: 19}

	tests := []struct {
		name   string
		p      dynamo.Vec2
		wx, wy int
	}{
		{"bottom left", dynamo.Vec2{X: 0, Y: 0}, 0, 19},
		{"top right", dynamo.Vec2{X: 19, Y: 19}, 19, 0},
		{"centre", dynamo.Vec2{X: 9.5, Y: 9.5}, 10, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x, y := v.Project(c, tt.p)
			if x != tt.wx || y != tt.wy {
				t.Errorf("got (%d, %d), want (%d, %d)", x, y, tt.wx, tt.wy)
			}
		})
	}
}

func TestDrawRobot(t *testing.T) {
	c := NewCanvas(20, 10)
	v := Viewport{MinX: -20, MinY: -20, MaxX: 20, MaxY: 20}
	c.DrawRobot(v, dynamo.NewPose(0, 0, math.Pi/4), 18, 18)

	lit := 0
	for _, row := range c.Grid {
		for _, cell := range row {
			if cell != brailleBlank {
				lit++
			}
		}
	}
	if lit == 0 {
		t.Fatal("expected robot outline on canvas")
	}
}

func TestPowerBar(t *testing.T) {
	tests := []struct {
		p    float64
		want string
	}{
		{0, "    │    "},
		{1, "    │████"},
		{-0.5, "  ██│    "},
		{2, "    │████"},
	}
	for _, tt := range tests {
		if got := PowerBar(tt.p, 4); got != tt.want {
			t.Errorf("PowerBar(%v) = %q, want %q", tt.p, got, tt.want)
		}
	}
}
