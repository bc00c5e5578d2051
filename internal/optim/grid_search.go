package optim

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/san-kum/livetrain/internal/config"
	"github.com/san-kum/livetrain/internal/dynamo"
	"github.com/san-kum/livetrain/internal/experiment"
)

type GridSearch struct {
	paramNames []string
	ranges     [][]float64
}

func NewGridSearch(params []string, ranges [][]float64) *GridSearch {
	return &GridSearch{paramNames: params, ranges: ranges}
}

// Evaluation is one grid point and its metric value.
type Evaluation struct {
	Params map[string]float64
	Value  float64
	Err    error
}

// Search runs every grid point and returns the one minimising metricName.
// Points whose experiment fails or reports errors are skipped.
func (g *GridSearch) Search(
	ctx context.Context,
	buildExperiment func(params map[string]float64) (*experiment.Experiment, error),
	metricName string,
) (map[string]float64, float64, error) {
	if len(g.paramNames) != len(g.ranges) {
		return nil, 0, fmt.Errorf("%d params but %d ranges", len(g.paramNames), len(g.ranges))
	}

	best := math.Inf(1)
	var bestParams map[string]float64

	err := g.searchRecursive(ctx, 0, make(map[string]float64), func(ev Evaluation) {
		if ev.Err == nil && ev.Value < best {
			best = ev.Value
			bestParams = ev.Params
		}
	}, buildExperiment, metricName)
	if err != nil {
		return bestParams, best, err
	}
	if bestParams == nil {
		return nil, best, fmt.Errorf("no grid point produced %s", metricName)
	}
	return bestParams, best, nil
}

// Evaluate returns every grid point in iteration order.
func (g *GridSearch) Evaluate(
	ctx context.Context,
	buildExperiment func(params map[string]float64) (*experiment.Experiment, error),
	metricName string,
) ([]Evaluation, error) {
	var evals []Evaluation
	err := g.searchRecursive(ctx, 0, make(map[string]float64), func(ev Evaluation) {
		evals = append(evals, ev)
	}, buildExperiment, metricName)
	return evals, err
}

func (g *GridSearch) searchRecursive(
	ctx context.Context,
	depth int,
	current map[string]float64,
	visit func(Evaluation),
	buildExperiment func(map[string]float64) (*experiment.Experiment, error),
	metricName string,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if depth == len(g.paramNames) {
		visit(evaluate(ctx, current, buildExperiment, metricName))
		return nil
	}

	paramName := g.paramNames[depth]
	for _, val := range g.ranges[depth] {
		newParams := make(map[string]float64)
		for k, v := range current {
			newParams[k] = v
		}
		newParams[paramName] = val

		if err := g.searchRecursive(ctx, depth+1, newParams, visit, buildExperiment, metricName); err != nil {
			return err
		}
	}
	return nil
}

func evaluate(
	ctx context.Context,
	params map[string]float64,
	buildExperiment func(map[string]float64) (*experiment.Experiment, error),
	metricName string,
) Evaluation {
	ev := Evaluation{Params: params}
	exp, err := buildExperiment(params)
	if err != nil {
		ev.Err = err
		return ev
	}
	result, err := exp.Run(ctx)
	if err != nil {
		ev.Err = err
		return ev
	}
	if len(result.Errors) > 0 {
		ev.Err = result.Errors[0]
		return ev
	}
	val, ok := result.Metrics[metricName]
	if !ok {
		ev.Err = fmt.Errorf("metric %q: %w", metricName, dynamo.ErrUnknownKind)
		return ev
	}
	ev.Value = val
	return ev
}

var coefficientIndex = map[string]int{"p": 0, "i": 1, "d": 2, "v": 3, "a": 4, "s": 5}

// ApplyGains writes parameters named "<axis>.<coef>", such as "axial.p"
// or "heading.d", into cfg's follower coefficients.
func ApplyGains(cfg *config.Config, params map[string]float64) error {
	for name, val := range params {
		axis, coef, ok := strings.Cut(strings.ToLower(name), ".")
		idx, known := coefficientIndex[coef]
		if !ok || !known {
			return fmt.Errorf("gain %q: %w", name, dynamo.ErrUnknownKind)
		}
		var target []float64
		switch axis {
		case "heading":
			target = cfg.Follower.Heading
		case "lateral":
			target = cfg.Follower.Lateral
		case "axial":
			target = cfg.Follower.Axial
		default:
			return fmt.Errorf("gain %q: %w", name, dynamo.ErrUnknownKind)
		}
		if len(target) <= idx {
			return fmt.Errorf("gain %q: %w", name, dynamo.ErrCoefficientLength)
		}
		target[idx] = val
	}
	return nil
}

// GainExperiments returns a builder for Search that tunes a copy of base.
func GainExperiments(base *config.Config, registry *experiment.Registry) func(map[string]float64) (*experiment.Experiment, error) {
	return func(params map[string]float64) (*experiment.Experiment, error) {
		cfg := base.Clone()
		if err := ApplyGains(cfg, params); err != nil {
			return nil, err
		}
		exp := experiment.New(cfg, nil)
		var metrics []dynamo.Metric
		if registry != nil {
			metrics = registry.DefaultMetrics()
		}
		if err := exp.Setup(metrics...); err != nil {
			return nil, err
		}
		return exp, nil
	}
}

// Linspace returns n evenly spaced values from lo to hi inclusive.
func Linspace(lo, hi float64, n int) []float64 {
	if n <= 1 {
		return []float64{lo}
	}
	out := make([]float64, n)
	step := (hi - lo) / float64(n-1)
	for i := range out {
		out[i] = lo + float64(i)*step
	}
	return out
}
