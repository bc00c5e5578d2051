package viz

import (
	"math"
	"strings"

	"github.com/san-kum/livetrain/internal/dynamo"
)

// Braille cells hold 2x4 dots:
// 1 4
// 2 5
// 3 6
// 7 8
var pixelMap = [4][2]int{
	{0x1, 0x8},
	{0x2, 0x10},
	{0x4, 0x20},
	{0x40, 0x80},
}

const brailleBlank = 0x2800

type Canvas struct {
	Width, Height int
	Grid          [][]rune
}

func NewCanvas(w, h int) *Canvas {
	c := &Canvas{
		Width:  w,
		Height: h,
		Grid:   make([][]rune, h),
	}
	for i := range c.Grid {
		c.Grid[i] = make([]rune, w)
	}
	c.Clear()
	return c
}

// Set lights the dot at sub-pixel (x, y). The canvas is Width*2 by
// Height*4 dots.
func (c *Canvas) Set(x, y int) {
	if x < 0 || y < 0 {
		return
	}

	col := x / 2
	row := y / 4
	if col >= c.Width || row >= c.Height {
		return
	}

	c.Grid[row][col] |= rune(pixelMap[y%4][x%2])
}

func (c *Canvas) Clear() {
	for i := range c.Grid {
		for j := range c.Grid[i] {
			c.Grid[i][j] = brailleBlank
		}
	}
}

// DrawLine draws a line using Bresenham's algorithm
func (c *Canvas) DrawLine(x0, y0, x1, y1 int) {
	dx := absInt(x1 - x0)
	dy := absInt(y1 - y0)
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx - dy

	for {
		c.Set(x0, y0)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x0 += sx
		}
		if e2 < dx {
			err += dx
			y0 += sy
		}
	}
}

func (c *Canvas) String() string {
	var b strings.Builder
	for _, row := range c.Grid {
		b.WriteString(string(row) + "\n")
	}
	return b.String()
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// Viewport maps field coordinates (y up) onto canvas dots (y down).
type Viewport struct {
	MinX, MinY, MaxX, MaxY float64
}

// FitViewport bounds every point with margin on each side.
func FitViewport(points []dynamo.Vec2, margin float64) Viewport {
	if len(points) == 0 {
		return Viewport{0, 0, 1, 1}
	}
	v := Viewport{points[0].X, points[0].Y, points[0].X, points[0].Y}
	for _, p := range points[1:] {
		v.MinX, v.MaxX = math.Min(v.MinX, p.X), math.Max(v.MaxX, p.X)
		v.MinY, v.MaxY = math.Min(v.MinY, p.Y), math.Max(v.MaxY, p.Y)
	}
	v.MinX -= margin
	v.MinY -= margin
	v.MaxX += margin
	v.MaxY += margin
	return v
}

func (v Viewport) Project(c *Canvas, p dynamo.Vec2) (int, int) {
	w, h := float64(c.Width*2-1), float64(c.Height*4-1)
	sx, sy := v.MaxX-v.MinX, v.MaxY-v.MinY
	if sx <= 0 {
		sx = 1
	}
	if sy <= 0 {
		sy = 1
	}
	x := (p.X - v.MinX) / sx * w
	y := (v.MaxY - p.Y) / sy * h
	return int(math.Round(x)), int(math.Round(y))
}

func (c *Canvas) Plot(v Viewport, p dynamo.Vec2) {
	x, y := v.Project(c, p)
	c.Set(x, y)
}

func (c *Canvas) Line(v Viewport, a, b dynamo.Vec2) {
	x0, y0 := v.Project(c, a)
	x1, y1 := v.Project(c, b)
	c.DrawLine(x0, y0, x1, y1)
}

// DrawPolyline joins consecutive points.
func (c *Canvas) DrawPolyline(v Viewport, points []dynamo.Vec2) {
	for i := 1; i < len(points); i++ {
		c.Line(v, points[i-1], points[i])
	}
}

// DrawRobot outlines a width by height footprint at pose with a tick
// from the centre to the front edge.
func (c *Canvas) DrawRobot(v Viewport, pose dynamo.Pose, width, height float64) {
	hw, hl := width/2, height/2
	corners := []dynamo.Vec2{{X: hl, Y: hw}, {X: -hl, Y: hw}, {X: -hl, Y: -hw}, {X: hl, Y: -hw}}
	centre := pose.Position()
	for i := range corners {
		corners[i] = corners[i].Rotated(pose.Heading).Add(centre)
	}
	c.DrawPolyline(v, append(corners, corners[0]))
	front := dynamo.Vec2{X: hl}.Rotated(pose.Heading).Add(centre)
	c.Line(v, centre, front)
}

// DrawCross marks p with a small plus sign.
func (c *Canvas) DrawCross(v Viewport, p dynamo.Vec2) {
	x, y := v.Project(c, p)
	for d := -1; d <= 1; d++ {
		c.Set(x+d, y)
		c.Set(x, y+d)
	}
}
