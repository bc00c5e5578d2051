package automation

import (
	"context"
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/san-kum/livetrain/internal/config"
	"github.com/san-kum/livetrain/internal/dynamo"
	"github.com/san-kum/livetrain/internal/experiment"
	"github.com/san-kum/livetrain/internal/sim"
)

// MonteCarloConfig repeats one configuration over consecutive noise
// seeds.
type MonteCarloConfig struct {
	Base      *config.Config
	NumTrials int
	SeedStart int64
	// DivergeAt marks a trial unstable once its max error exceeds it.
	DivergeAt float64
}

type MonteCarloResult struct {
	TrialID   int
	Seed      int64
	FinalPose dynamo.Pose
	Metrics   map[string]float64
	Stable    bool
}

type Summary struct {
	Metric   string
	Mean     float64
	StdDev   float64
	Min, Max float64
	P95      float64
}

// RunMonteCarlo executes every trial in parallel through a sim.Ensemble.
func RunMonteCarlo(ctx context.Context, cfg *MonteCarloConfig, registry *experiment.Registry, logger *zap.Logger) ([]MonteCarloResult, error) {
	if registry == nil {
		registry = experiment.NewRegistry()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	divergeAt := cfg.DivergeAt
	if divergeAt <= 0 {
		divergeAt = 1e3
	}

	factory := func(seed int64) (*sim.Simulation, []dynamo.Metric, error) {
		trial := cfg.Base.Clone()
		trial.Sim.Seed = seed
		s, err := experiment.Build(trial, registry, logger.With(zap.Int64("seed", seed)))
		if err != nil {
			return nil, nil, err
		}
		return s, registry.DefaultMetrics(), nil
	}

	ens := sim.NewEnsemble(factory, cfg.NumTrials, cfg.SeedStart)
	runs, err := ens.Run(ctx, cfg.Base.Sim.Duration, cfg.Base.Sim.SampleInterval)
	if err != nil {
		return nil, err
	}

	results := make([]MonteCarloResult, 0, len(runs))
	for i, run := range runs {
		res := MonteCarloResult{
			TrialID: i,
			Seed:    cfg.SeedStart + int64(i),
			Metrics: run.Metrics,
			Stable:  len(run.Errors) == 0 && run.Metrics["max_error"] < divergeAt,
		}
		if n := len(run.Samples); n > 0 {
			res.FinalPose = run.Samples[n-1].Pose
		}
		results = append(results, res)
	}
	logger.Info("monte carlo complete", zap.Int("trials", len(results)))
	return results, nil
}

// MonteCarloStats counts stable and unstable trials.
func MonteCarloStats(results []MonteCarloResult) (stableCount int, unstableCount int) {
	for _, r := range results {
		if r.Stable {
			stableCount++
		} else {
			unstableCount++
		}
	}
	return
}

// Summarize reduces one metric across trials.
func Summarize(results []MonteCarloResult, metric string) Summary {
	s := Summary{Metric: metric}
	if len(results) == 0 {
		return s
	}

	values := make([]float64, len(results))
	for i, r := range results {
		values[i] = r.Metrics[metric]
		s.Mean += values[i]
	}
	s.Mean /= float64(len(values))
	for _, v := range values {
		s.StdDev += (v - s.Mean) * (v - s.Mean)
	}
	s.StdDev = math.Sqrt(s.StdDev / float64(len(values)))

	sort.Float64s(values)
	s.Min, s.Max = values[0], values[len(values)-1]
	s.P95 = values[int(math.Ceil(0.95*float64(len(values))))-1]
	return s
}
