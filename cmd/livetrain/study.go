package main

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/san-kum/livetrain/internal/automation"
	"github.com/san-kum/livetrain/internal/experiment"
	"github.com/san-kum/livetrain/internal/optim"
)

var (
	trials    int
	seedStart int64
	divergeAt float64

	tuneParams []string
	tuneLo     []float64
	tuneHi     []float64
	tuneSteps  int
	tuneMetric string
	tuneAll    bool
)

func sweepCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "repeat a configuration over consecutive noise seeds",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := signalContext()
			defer cancel()

			fmt.Printf("running %d trials of %s...\n", trials, cfg.Name)
			results, err := automation.RunMonteCarlo(ctx, &automation.MonteCarloConfig{
				Base:      cfg,
				NumTrials: trials,
				SeedStart: seedStart,
				DivergeAt: divergeAt,
			}, experiment.NewRegistry(), logger)
			if err != nil {
				return err
			}

			stable, unstable := automation.MonteCarloStats(results)
			fmt.Printf("stable: %d  unstable: %d\n\n", stable, unstable)

			var names []string
			if len(results) > 0 {
				for name := range results[0].Metrics {
					names = append(names, name)
				}
			}
			sort.Strings(names)

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "METRIC\tMEAN\tSTDDEV\tMIN\tMAX\tP95")
			for _, name := range names {
				s := automation.Summarize(results, name)
				fmt.Fprintf(w, "%s\t%.4f\t%.4f\t%.4f\t%.4f\t%.4f\n",
					s.Metric, s.Mean, s.StdDev, s.Min, s.Max, s.P95)
			}
			return w.Flush()
		},
	}
	simFlags(cmd)
	cmd.Flags().IntVarP(&trials, "trials", "n", 20, "number of trials")
	cmd.Flags().Int64Var(&seedStart, "seed-start", 1, "seed of the first trial")
	cmd.Flags().Float64Var(&divergeAt, "diverge-at", 0, "max_error above which a trial counts as unstable (0 uses the default)")
	return cmd
}

func tuneCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tune",
		Short: "grid search follower gains",
		Long: "Grid search over follower coefficients named <axis>.<coef>, e.g.\n" +
			"  livetrain tune --param lateral.p --param axial.p --lo -2,-2 --hi -0.1,-0.1",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(tuneParams) != len(tuneLo) || len(tuneParams) != len(tuneHi) {
				return fmt.Errorf("need one --lo and --hi per --param (got %d params, %d lo, %d hi)",
					len(tuneParams), len(tuneLo), len(tuneHi))
			}
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			ranges := make([][]float64, len(tuneParams))
			for i := range tuneParams {
				ranges[i] = optim.Linspace(tuneLo[i], tuneHi[i], tuneSteps)
			}

			ctx, cancel := signalContext()
			defer cancel()

			grid := optim.NewGridSearch(tuneParams, ranges)
			build := optim.GainExperiments(cfg, experiment.NewRegistry())

			if tuneAll {
				evals, err := grid.Evaluate(ctx, build, tuneMetric)
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
				fmt.Fprintf(w, "%s\t%s\n", strings.ToUpper(strings.Join(tuneParams, "\t")), strings.ToUpper(tuneMetric))
				for _, ev := range evals {
					for _, p := range tuneParams {
						fmt.Fprintf(w, "%.4f\t", ev.Params[p])
					}
					if ev.Err != nil {
						fmt.Fprintf(w, "error: %v\n", ev.Err)
						continue
					}
					fmt.Fprintf(w, "%.6f\n", ev.Value)
				}
				if err := w.Flush(); err != nil {
					return err
				}
				fmt.Println()
				return printBest(evals)
			}

			best, value, err := grid.Search(ctx, build, tuneMetric)
			if err != nil {
				return err
			}
			fmt.Printf("best %s: %.6f\n", tuneMetric, value)
			for _, p := range tuneParams {
				fmt.Printf("  %s = %.4f\n", p, best[p])
			}
			return nil
		},
	}
	simFlags(cmd)
	cmd.Flags().StringSliceVar(&tuneParams, "param", []string{"lateral.p", "axial.p"}, "coefficients to tune")
	cmd.Flags().Float64SliceVar(&tuneLo, "lo", []float64{-2, -2}, "lower bound per param")
	cmd.Flags().Float64SliceVar(&tuneHi, "hi", []float64{-0.1, -0.1}, "upper bound per param")
	cmd.Flags().IntVar(&tuneSteps, "steps", 5, "grid points per param")
	cmd.Flags().StringVar(&tuneMetric, "metric", "tracking_rms", "metric to minimise")
	cmd.Flags().BoolVar(&tuneAll, "all", false, "print every grid point")
	return cmd
}

func printBest(evals []optim.Evaluation) error {
	var best *optim.Evaluation
	for i := range evals {
		ev := &evals[i]
		if ev.Err == nil && (best == nil || ev.Value < best.Value) {
			best = ev
		}
	}
	if best == nil {
		return fmt.Errorf("no grid point produced %s", tuneMetric)
	}
	fmt.Printf("best %s: %.6f\n", tuneMetric, best.Value)
	for _, p := range tuneParams {
		fmt.Printf("  %s = %.4f\n", p, best.Params[p])
	}
	return nil
}
