package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/san-kum/livetrain/internal/dynamo"
	"github.com/san-kum/livetrain/internal/viz"
)

const (
	referenceColor = "#555555"
	pathColor      = "#00ff00"
	estimateColor  = "#ffaa00"
)

// SVGOptions controls RunToSVG. Zero values pick a 800x600 image with
// the estimate hidden.
type SVGOptions struct {
	Width, Height int
	Estimate      bool
}

// RunToSVG draws the reference path and the driven path of a run in
// field coordinates, y up.
func RunToSVG(samples []dynamo.Telemetry, opts SVGOptions) string {
	if len(samples) < 2 {
		return ""
	}
	if opts.Width <= 0 {
		opts.Width = 800
	}
	if opts.Height <= 0 {
		opts.Height = 600
	}

	actual := make([]dynamo.Vec2, len(samples))
	reference := make([]dynamo.Vec2, len(samples))
	estimate := make([]dynamo.Vec2, len(samples))
	all := make([]dynamo.Vec2, 0, 2*len(samples))
	for i, s := range samples {
		actual[i] = s.Pose.Position()
		reference[i] = s.Reference.Position()
		estimate[i] = s.Estimated.Position()
		all = append(all, actual[i], reference[i])
	}

	v := viz.FitViewport(all, 0)
	padX := (v.MaxX - v.MinX) * 0.1
	padY := (v.MaxY - v.MinY) * 0.1
	if padX == 0 {
		padX = 1
	}
	if padY == 0 {
		padY = 1
	}
	v.MinX, v.MaxX = v.MinX-padX, v.MaxX+padX
	v.MinY, v.MaxY = v.MinY-padY, v.MaxY+padY

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`, opts.Width, opts.Height, opts.Width, opts.Height))

	writePath(&sb, v, opts, reference, referenceColor, `stroke-dasharray="6,4"`)
	if opts.Estimate {
		writePath(&sb, v, opts, estimate, estimateColor, `stroke-opacity="0.7"`)
	}
	writePath(&sb, v, opts, actual, pathColor, "")

	start := project(v, opts, actual[0])
	end := project(v, opts, actual[len(actual)-1])
	sb.WriteString(fmt.Sprintf(`<circle cx="%.1f" cy="%.1f" r="4" fill="%s"/>
<circle cx="%.1f" cy="%.1f" r="4" fill="none" stroke="%s"/>
`, start.X, start.Y, pathColor, end.X, end.Y, pathColor))

	sb.WriteString("</svg>")
	return sb.String()
}

// WriteRunSVG writes RunToSVG to w.
func WriteRunSVG(w io.Writer, samples []dynamo.Telemetry, opts SVGOptions) error {
	out := RunToSVG(samples, opts)
	if out == "" {
		return fmt.Errorf("need at least 2 samples, got %d", len(samples))
	}
	_, err := io.WriteString(w, out)
	return err
}

func project(v viz.Viewport, opts SVGOptions, p dynamo.Vec2) dynamo.Vec2 {
	return dynamo.Vec2{
		X: (p.X - v.MinX) / (v.MaxX - v.MinX) * float64(opts.Width),
		Y: float64(opts.Height) - (p.Y-v.MinY)/(v.MaxY-v.MinY)*float64(opts.Height),
	}
}

func writePath(sb *strings.Builder, v viz.Viewport, opts SVGOptions, points []dynamo.Vec2, color, extra string) {
	sb.WriteString(fmt.Sprintf(`<path fill="none" stroke="%s" stroke-width="1.5" %s d="M`, color, extra))
	for i, p := range points {
		q := project(v, opts, p)
		if i == 0 {
			sb.WriteString(fmt.Sprintf("%.1f,%.1f", q.X, q.Y))
		} else {
			sb.WriteString(fmt.Sprintf(" L%.1f,%.1f", q.X, q.Y))
		}
	}
	sb.WriteString("\"/>\n")
}
