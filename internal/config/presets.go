package config

import (
	"sort"

	"github.com/san-kum/livetrain/internal/noise"
	"github.com/san-kum/livetrain/internal/trajectory"
)

// Presets are named configurations built on DefaultConfig.
var Presets = map[string]func() *Config{
	"default": DefaultConfig,
	"line": func() *Config {
		cfg := DefaultConfig()
		cfg.Name = "line"
		cfg.Sim.Duration = 15
		cfg.Trajectory.Path = trajectory.HermiteCubic
		cfg.Trajectory.Waypoints = []WaypointConfig{
			{X: 24, Y: 24, Heading: 0},
			{X: 120, Y: 24, Heading: 0},
		}
		return cfg
	},
	"square": func() *Config {
		cfg := DefaultConfig()
		cfg.Name = "square"
		cfg.Sim.Duration = 60
		cfg.Constraints = trajectory.NewConstraints(20, 10, 8)
		cfg.Trajectory.Waypoints = []WaypointConfig{
			{X: 24, Y: 24, Heading: 0},
			{X: 120, Y: 24, Heading: 90},
			{X: 120, Y: 120, Heading: 180},
			{X: 24, Y: 120, Heading: 270},
			{X: 24, Y: 24, Heading: 360},
		}
		return cfg
	},
	"s-curve": func() *Config {
		cfg := DefaultConfig()
		cfg.Name = "s-curve"
		cfg.Sim.Duration = 40
		cfg.Trajectory.Profile = trajectory.SCurve
		cfg.Trajectory.Waypoints = []WaypointConfig{
			{X: 24, Y: 24, Heading: 0},
			{X: 72, Y: 72, Heading: 90},
			{X: 120, Y: 120, Heading: 0},
		}
		return cfg
	},
	"slalom": func() *Config {
		cfg := DefaultConfig()
		cfg.Name = "slalom"
		cfg.Sim.Duration = 60
		cfg.Constraints = trajectory.NewConstraints(24, 12, 10)
		cfg.Trajectory.Profile = trajectory.SCurve
		cfg.Trajectory.Waypoints = []WaypointConfig{
			{X: 24, Y: 72, Heading: 0},
			{X: 60, Y: 96, Heading: 0},
			{X: 96, Y: 48, Heading: 0},
			{X: 132, Y: 96, Heading: 0},
		}
		return cfg
	},
	"noisy": func() *Config {
		cfg := DefaultConfig()
		cfg.Name = "noisy"
		cfg.Noise.Enabled = true
		cfg.Noise.Static = noise.New(noise.Random, -0.5, 0.5)
		cfg.Noise.Additive = noise.New(noise.Random, -0.01, 0.01)
		return cfg
	},
	"drift": func() *Config {
		cfg := DefaultConfig()
		cfg.Name = "drift"
		cfg.Noise.Enabled = true
		cfg.Noise.Additive = noise.New(noise.Sinusoidal, 0, 0.02)
		return cfg
	},
}

// GetPreset returns a fresh copy of the named preset, or nil.
func GetPreset(name string) *Config {
	fn, ok := Presets[name]
	if !ok {
		return nil
	}
	return fn()
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
