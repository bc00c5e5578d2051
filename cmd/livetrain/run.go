package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/san-kum/livetrain/internal/automation"
	"github.com/san-kum/livetrain/internal/config"
	"github.com/san-kum/livetrain/internal/dynamo"
	"github.com/san-kum/livetrain/internal/experiment"
	"github.com/san-kum/livetrain/internal/server"
	"github.com/san-kum/livetrain/internal/storage"
	"github.com/san-kum/livetrain/internal/telemetry"
	"github.com/san-kum/livetrain/internal/viz"
)

const loopTick = 10 * time.Millisecond

var (
	mqttBroker string
	mqttPrefix string
	addr       string
	liveStart  bool
	serveStart bool
	watchCount int
	watchAddr  string
	noSave     bool
)

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// connectMQTT returns nil when no broker is configured.
func connectMQTT() (*telemetry.Publisher, error) {
	if mqttBroker == "" {
		return nil, nil
	}
	return telemetry.Connect(telemetry.Options{
		Broker: mqttBroker,
		Prefix: mqttPrefix,
		Logger: logger,
	})
}

func mqttFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&mqttBroker, "mqtt", env("MQTT_BROKER", ""), "MQTT broker url for telemetry (e.g. tcp://localhost:1883)")
	cmd.Flags().StringVar(&mqttPrefix, "mqtt-prefix", env("MQTT_PREFIX", telemetry.DefaultPrefix), "MQTT topic prefix")
}

func printMetrics(m map[string]float64) {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("  %s: %.6f\n", name, m[name])
	}
}

func runCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "run a headless simulation and save it",
		RunE:  runSimulation,
	}
	simFlags(cmd)
	mqttFlags(cmd)
	cmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the run")
	return cmd
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	exp := experiment.New(cfg, logger)
	if err := exp.Setup(); err != nil {
		return err
	}
	pub, err := connectMQTT()
	if err != nil {
		return err
	}
	if pub != nil {
		defer pub.Close()
		exp.GetSimulator().AddObserver(pub)
	}

	ctx, cancel := signalContext()
	defer cancel()

	fmt.Printf("running %s simulation...\n", cfg.Name)
	start := time.Now()
	result, err := exp.Run(ctx)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	fmt.Printf("completed in %v\n", elapsed)
	if !noSave {
		st := storage.New(dataDir)
		if err := st.Init(); err != nil {
			return err
		}
		runID, err := st.Save(runMetadata(cfg), result)
		if err != nil {
			return err
		}
		fmt.Printf("run id: %s\n", runID)
	}
	fmt.Printf("passes: %d\n", result.StepsTaken)
	fmt.Printf("samples: %d\n", len(result.Samples))
	if n := len(result.Errors); n > 0 {
		fmt.Printf("errors: %d (first: %v)\n", n, result.Errors[0])
	}
	if pub != nil {
		fmt.Printf("published: %d\n", pub.Published())
	}
	fmt.Println("\nmetrics:")
	printMetrics(result.Metrics)
	return nil
}

func runMetadata(cfg *config.Config) storage.RunMetadata {
	return storage.RunMetadata{
		Name:           cfg.Name,
		Seed:           cfg.Sim.Seed,
		Duration:       cfg.Sim.Duration,
		SampleInterval: cfg.Sim.SampleInterval,
		Resolution:     cfg.Sim.Resolution,
		Integrator:     cfg.Sim.Integrator,
		Path:           cfg.Trajectory.Path.String(),
		Profile:        cfg.Trajectory.Profile.String(),
	}
}

func liveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "live",
		Short: "run the simulation with the terminal view",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			s, err := experiment.Build(cfg, experiment.NewRegistry(), logger)
			if err != nil {
				return err
			}
			pub, err := connectMQTT()
			if err != nil {
				return err
			}
			if pub != nil {
				defer pub.Close()
				s.AddObserver(pub)
			}
			s.SetRunning(liveStart)

			ctx, cancel := signalContext()
			defer cancel()
			return viz.RunLive(ctx, s, viz.Options{
				Title:     cfg.Name,
				FrameRate: cfg.Sim.FrameRate,
				AdvanceBy: cfg.Sim.AdvanceBy,
				Logger:    logger,
			})
		},
	}
	simFlags(cmd)
	mqttFlags(cmd)
	cmd.Flags().BoolVar(&liveStart, "start", true, "start running immediately")
	return cmd
}

func serveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "serve the HTTP control API and websocket telemetry",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			s, err := experiment.Build(cfg, experiment.NewRegistry(), logger)
			if err != nil {
				return err
			}
			pub, err := connectMQTT()
			if err != nil {
				return err
			}
			if pub != nil {
				defer pub.Close()
				s.AddObserver(pub)
			}

			ctx, cancel := signalContext()
			defer cancel()

			s.SetRunning(serveStart)
			loop := s.Start(ctx, loopTick)
			srv := server.New(s, cfg, server.Options{Logger: logger})

			fmt.Printf("serving on %s (ws: /ws/telemetry)\n", addr)
			err = srv.ListenAndServe(ctx, addr)
			cancel()
			if loopErr := <-loop; loopErr != nil && !errors.Is(loopErr, context.Canceled) {
				logger.Warn("simulation loop stopped", zap.Error(loopErr))
			}
			return err
		},
	}
	simFlags(cmd)
	mqttFlags(cmd)
	cmd.Flags().StringVar(&addr, "addr", env("ADDR", ":8080"), "listen address")
	cmd.Flags().BoolVar(&serveStart, "start", false, "start running immediately")
	return cmd
}

func watchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "print telemetry streamed by a running server",
		RunE: func(cmd *cobra.Command, args []string) error {
			url := "ws://" + watchAddr + "/ws/telemetry"
			conn, _, err := websocket.DefaultDialer.Dial(url, nil)
			if err != nil {
				return fmt.Errorf("dial %s: %w", url, err)
			}
			defer conn.Close()

			ctx, cancel := signalContext()
			defer cancel()
			go func() {
				<-ctx.Done()
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				_ = conn.Close()
			}()

			for n := 0; watchCount <= 0 || n < watchCount; n++ {
				var tel dynamo.Telemetry
				if err := conn.ReadJSON(&tel); err != nil {
					if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure) {
						return nil
					}
					return err
				}
				status := "paused"
				if tel.Running {
					status = "running"
				}
				fmt.Printf("t=%8.3f %-7s pose=%s ref=%s err=%.3f powers=%+.2f\n",
					tel.Time, status, tel.Pose, tel.Reference, tel.Error().Position().Norm(), tel.Powers)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&watchAddr, "addr", env("WATCH_ADDR", "localhost:8080"), "server address")
	cmd.Flags().IntVar(&watchCount, "count", 0, "stop after n messages (0 streams forever)")
	return cmd
}

func scenarioCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scenario [file]",
		Short: "play a scripted command timeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := automation.LoadScenario(args[0])
			if err != nil {
				return err
			}
			if sc.Preset != "" && !cmd.Flags().Changed("preset") && configFile == "" {
				preset = sc.Preset
			}
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			registry := experiment.NewRegistry()
			s, err := experiment.Build(cfg, registry, logger)
			if err != nil {
				return err
			}

			ctx, cancel := signalContext()
			defer cancel()

			fmt.Printf("playing %s (%d commands)...\n", sc.Name, len(sc.Commands))
			result, err := automation.NewRunner(s, logger).Play(ctx, sc, registry.DefaultMetrics()...)
			if err != nil {
				return err
			}

			st := storage.New(dataDir)
			if err := st.Init(); err != nil {
				return err
			}
			meta := runMetadata(cfg)
			meta.Name = sc.Name
			meta.Duration = sc.Duration
			meta.SampleInterval = sc.SampleInterval
			runID, err := st.Save(meta, result)
			if err != nil {
				return err
			}
			fmt.Printf("run id: %s\n", runID)
			fmt.Printf("samples: %d\n", len(result.Samples))
			fmt.Println("\nmetrics:")
			printMetrics(result.Metrics)
			return nil
		},
	}
	simFlags(cmd)
	return cmd
}
