package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/san-kum/livetrain/internal/config"
	"github.com/san-kum/livetrain/internal/experiment"
	"github.com/san-kum/livetrain/internal/logging"
	"github.com/san-kum/livetrain/internal/viz"
)

var (
	dataDir    string
	configFile string
	preset     string
	logLevel   string
	logFormat  string

	duration   float64
	seed       int64
	integrator string

	logger *zap.Logger
)

// env returns the LIVETRAIN_<key> environment variable or def.
func env(key, def string) string {
	if v, ok := os.LookupEnv("LIVETRAIN_" + key); ok && v != "" {
		return v
	}
	return def
}

func main() {
	// .env is optional
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "livetrain",
		Short: "ground robot trajectory tracking simulator",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			l, err := logging.New(logLevel, logFormat)
			if err != nil {
				return err
			}
			logger = l
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logger.Sync()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return viz.RunInteractive(experiment.NewRegistry(), logger)
		},
		SilenceUsage: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&dataDir, "data", env("DATA", ".livetrain"), "data directory")
	pf.StringVar(&configFile, "config", "", "config file path (yaml)")
	pf.StringVar(&preset, "preset", "", "use preset configuration")
	pf.StringVar(&logLevel, "log-level", env("LOG_LEVEL", "warn"), "log level")
	pf.StringVar(&logFormat, "log-format", env("LOG_FORMAT", logging.FormatConsole), "log format (console, json)")

	rootCmd.AddCommand(
		runCommand(), liveCommand(), serveCommand(), watchCommand(), scenarioCommand(),
		listCommand(), plotCommand(), analyzeCommand(), exportJSONCommand(), exportCSVCommand(), exportSVGCommand(),
		presetsCommand(), sweepCommand(), tuneCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// simFlags registers the overrides shared by every command that builds a
// simulation.
func simFlags(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&duration, "time", 0, "duration in simulation seconds (0 keeps the config value)")
	cmd.Flags().Int64Var(&seed, "seed", 0, "noise seed")
	cmd.Flags().StringVar(&integrator, "integrator", "", "integrator ("+strings.Join(experiment.NewRegistry().ListIntegrators(), ", ")+")")
}

// loadConfig resolves --config, then --preset, then the defaults, and
// applies command-line overrides on top.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	var cfg *config.Config
	switch {
	case configFile != "":
		c, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = c
	case preset != "":
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	default:
		cfg = config.DefaultConfig()
	}

	flags := cmd.Flags()
	if flags.Changed("time") {
		cfg.Sim.Duration = duration
	}
	if flags.Changed("seed") {
		cfg.Sim.Seed = seed
	}
	if flags.Changed("integrator") {
		cfg.Sim.Integrator = integrator
	}
	return cfg, cfg.Validate()
}
