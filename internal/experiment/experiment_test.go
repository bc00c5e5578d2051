package experiment

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/san-kum/livetrain/internal/config"
	"github.com/san-kum/livetrain/internal/dynamo"
)

func TestRegistry(t *testing.T) {
	r := NewRegistry()

	for _, name := range r.ListIntegrators() {
		if _, err := r.GetIntegrator(name); err != nil {
			t.Errorf("GetIntegrator(%q): %v", name, err)
		}
	}
	if _, err := r.GetIntegrator("verlet"); !errors.Is(err, dynamo.ErrUnknownKind) {
		t.Errorf("expected ErrUnknownKind, got %v", err)
	}
	if got := len(r.DefaultMetrics()); got != len(r.ListMetrics()) {
		t.Errorf("expected %d metrics, got %d", len(r.ListMetrics()), got)
	}
	if len(r.ListPaths()) != 2 || len(r.ListProfiles()) != 3 {
		t.Errorf("unexpected kinds %v %v", r.ListPaths(), r.ListProfiles())
	}
}

func TestBuild_Defaults(t *testing.T) {
	cfg := config.DefaultConfig()
	s, err := Build(cfg, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if s.Running() {
		t.Error("simulation should start paused")
	}
	if s.InitialPose() != dynamo.NewPose(24, 24, 0) {
		t.Errorf("unexpected initial pose %v", s.InitialPose())
	}
	snap := s.Snapshot()
	if !snap.Following {
		t.Error("expected following by default")
	}
}

func TestBuild_Invalid(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Drivetrain.WheelRadius = 0
	if _, err := Build(cfg, nil, nil); !errors.Is(err, dynamo.ErrParameterBounds) {
		t.Errorf("expected ErrParameterBounds, got %v", err)
	}
}

func TestBuild_OpenLoop(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Trajectory.Waypoints = nil
	cfg.Robot.InitialPowers = dynamo.WheelPowers{0.5, 0.5, 0.5, 0.5}

	s, err := Build(cfg, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if s.Snapshot().Following {
		t.Error("following should be off without waypoints")
	}
	if err := s.AdvanceBy(1); err != nil {
		t.Fatal(err)
	}
	if err := s.Update(); err != nil {
		t.Fatal(err)
	}
	// 50 units/s; the first pass after an advance only stamps the body
	if x := s.Snapshot().Pose.X; math.Abs(x-73.5) > 1e-6 {
		t.Errorf("expected x=73.5, got %v", x)
	}
}

func TestExperiment_TracksLine(t *testing.T) {
	cfg := config.GetPreset("line")
	exp := New(cfg, nil)
	if _, err := exp.Run(context.Background()); err == nil {
		t.Error("expected error before setup")
	}
	if err := exp.Setup(); err != nil {
		t.Fatal(err)
	}

	result, err := exp.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Errors) != 0 {
		t.Fatalf("unexpected errors %v", result.Errors)
	}

	end := result.Samples[len(result.Samples)-1].Pose
	if math.Abs(end.X-120) > 1 || math.Abs(end.Y-24) > 1 {
		t.Errorf("robot ended at %v", end)
	}
	if rms := result.Metrics["tracking_rms"]; rms > 2 {
		t.Errorf("tracking rms %v too large", rms)
	}
	if n := len(result.Samples); n != 301 {
		t.Errorf("expected 301 samples, got %d", n)
	}
}

func TestExperiment_Deterministic(t *testing.T) {
	run := func() *dynamo.Result {
		exp := New(config.GetPreset("noisy"), nil)
		if err := exp.Setup(); err != nil {
			t.Fatal(err)
		}
		res, err := exp.Run(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		return res
	}

	a, b := run(), run()
	if a.Samples[len(a.Samples)-1].Pose != b.Samples[len(b.Samples)-1].Pose {
		t.Error("same seed should reproduce the same run")
	}
}
