package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/livetrain/internal/analysis"
	"github.com/san-kum/livetrain/internal/config"
	"github.com/san-kum/livetrain/internal/experiment"
	"github.com/san-kum/livetrain/internal/export"
	"github.com/san-kum/livetrain/internal/storage"
)

var (
	plotChannels []string
	channel      string
	outFile      string
)

// openRun resolves an ID prefix and loads the run with its telemetry.
func openRun(prefix string) (*storage.Store, *storage.RunMetadata, error) {
	st := storage.New(dataDir)
	runID, err := st.Resolve(prefix)
	if err != nil {
		return nil, nil, err
	}
	meta, err := st.Load(runID)
	if err != nil {
		return nil, nil, err
	}
	return st, meta, nil
}

func output() (*os.File, func() error, error) {
	if outFile == "" || outFile == "-" {
		return os.Stdout, func() error { return nil }, nil
	}
	f, err := os.Create(outFile)
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}

func listCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "list runs",
		RunE:  listRuns,
	}
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tTIME\tDURATION\tINTEG\tPROFILE\tRMS")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.2fs\t%s\t%s\t%.3f\n",
			run.ID[:8],
			run.Name,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Duration,
			run.Integrator,
			run.Profile,
			run.Metrics["tracking_rms"],
		)
	}

	return w.Flush()
}

func plotCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot run channels against time",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	cmd.Flags().StringSliceVar(&plotChannels, "channels", []string{"x", "y", "position_error", "p0"},
		"channels to plot ("+strings.Join(analysis.Channels(), ", ")+")")
	return cmd
}

func plotRun(cmd *cobra.Command, args []string) error {
	st, meta, err := openRun(args[0])
	if err != nil {
		return err
	}
	samples, err := st.LoadTelemetry(meta.ID)
	if err != nil {
		return err
	}
	if len(samples) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("name: %s\n", meta.Name)
	fmt.Printf("samples: %d\n\n", len(samples))

	for _, ch := range plotChannels {
		data, err := analysis.Extract(samples, ch)
		if err != nil {
			return err
		}
		graph := asciigraph.Plot(data,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(ch+" vs time"),
		)
		fmt.Println(graph)
		fmt.Println()
	}
	return nil
}

func analyzeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "frequency analysis of a tracking channel",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}
	cmd.Flags().StringVar(&channel, "channel", "lateral_error", "channel to analyse")
	return cmd
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	st, meta, err := openRun(args[0])
	if err != nil {
		return err
	}
	samples, err := st.LoadTelemetry(meta.ID)
	if err != nil {
		return err
	}
	data, err := analysis.Extract(samples, channel)
	if err != nil {
		return err
	}
	spec, err := analysis.Analyze(data, meta.SampleInterval)
	if err != nil {
		return err
	}

	fmt.Printf("frequency analysis: %s\n", meta.ID)
	fmt.Printf("channel: %s\n\n", channel)
	fmt.Printf("dominant frequency: %.4f Hz\n", spec.DominantFrequency)
	fmt.Printf("dominant power: %.6f\n", spec.DominantPower)
	if spec.DominantFrequency > 0 {
		fmt.Printf("period: %.4f s\n", 1/spec.DominantFrequency)
	}

	n := len(spec.Power)
	if n > 80 {
		n = 80
	}
	if n > 1 {
		fmt.Println()
		fmt.Println(asciigraph.Plot(spec.Power[1:n],
			asciigraph.Height(8),
			asciigraph.Width(80),
			asciigraph.Caption("power spectrum"),
		))
	}
	return nil
}

func exportJSONCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export run data to JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, meta, err := openRun(args[0])
			if err != nil {
				return err
			}
			w, closeFn, err := output()
			if err != nil {
				return err
			}
			if err := st.Export(w, meta.ID); err != nil {
				closeFn()
				return err
			}
			return closeFn()
		},
	}
	cmd.Flags().StringVarP(&outFile, "out", "o", "", "output file (stdout when empty)")
	return cmd
}

func exportCSVCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export run telemetry to CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, meta, err := openRun(args[0])
			if err != nil {
				return err
			}
			samples, err := st.LoadTelemetry(meta.ID)
			if err != nil {
				return err
			}
			w, closeFn, err := output()
			if err != nil {
				return err
			}
			if err := storage.WriteCSV(w, samples); err != nil {
				closeFn()
				return err
			}
			return closeFn()
		},
	}
	cmd.Flags().StringVarP(&outFile, "out", "o", "", "output file (stdout when empty)")
	return cmd
}

func exportSVGCommand() *cobra.Command {
	var opts export.SVGOptions
	cmd := &cobra.Command{
		Use:   "export-svg [run_id]",
		Short: "render the reference and driven paths of a run as SVG",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, meta, err := openRun(args[0])
			if err != nil {
				return err
			}
			samples, err := st.LoadTelemetry(meta.ID)
			if err != nil {
				return err
			}
			w, closeFn, err := output()
			if err != nil {
				return err
			}
			if err := export.WriteRunSVG(w, samples, opts); err != nil {
				closeFn()
				return err
			}
			return closeFn()
		},
	}
	cmd.Flags().StringVarP(&outFile, "out", "o", "", "output file (stdout when empty)")
	cmd.Flags().IntVar(&opts.Width, "width", 800, "image width")
	cmd.Flags().IntVar(&opts.Height, "height", 600, "image height")
	cmd.Flags().BoolVar(&opts.Estimate, "estimate", false, "also draw the odometry estimate")
	return cmd
}

func presetsCommand() *cobra.Command {
	var show bool
	cmd := &cobra.Command{
		Use:   "presets [name]",
		Short: "list presets, or print one as json",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				registry := experiment.NewRegistry()
				fmt.Println("presets:")
				for _, p := range config.ListPresets() {
					fmt.Printf("  %s\n", p)
				}
				if show {
					fmt.Printf("\nintegrators: %s\n", strings.Join(registry.ListIntegrators(), ", "))
					fmt.Printf("paths:       %s\n", strings.Join(registry.ListPaths(), ", "))
					fmt.Printf("profiles:    %s\n", strings.Join(registry.ListProfiles(), ", "))
					fmt.Printf("noise:       %s\n", strings.Join(registry.ListNoise(), ", "))
					fmt.Printf("drivetrains: %s\n", strings.Join(registry.ListDrivetrains(), ", "))
					fmt.Printf("metrics:     %s\n", strings.Join(registry.ListMetrics(), ", "))
				}
				return nil
			}
			cfg := config.GetPreset(args[0])
			if cfg == nil {
				return fmt.Errorf("unknown preset: %s (available: %v)", args[0], config.ListPresets())
			}
			if outFile != "" {
				return config.Save(outFile, cfg)
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(cfg)
		},
	}
	cmd.Flags().BoolVar(&show, "all", false, "also list registered kinds")
	cmd.Flags().StringVarP(&outFile, "out", "o", "", "write the preset as a yaml config file")
	return cmd
}
