package experiment

import (
	"fmt"
	"sort"

	"github.com/san-kum/livetrain/internal/dynamo"
	"github.com/san-kum/livetrain/internal/integrators"
	"github.com/san-kum/livetrain/internal/metrics"
	"github.com/san-kum/livetrain/internal/noise"
	"github.com/san-kum/livetrain/internal/robot"
	"github.com/san-kum/livetrain/internal/trajectory"
)

// Registry maps the names used by config files, flags and the HTTP API
// to the components they select.
type Registry struct {
	integrators map[string]func() dynamo.Integrator
	metrics     map[string]func() dynamo.Metric
}

func NewRegistry() *Registry {
	r := &Registry{
		integrators: make(map[string]func() dynamo.Integrator),
		metrics:     make(map[string]func() dynamo.Metric),
	}

	for _, name := range integrators.Names() {
		name := name
		r.integrators[name] = func() dynamo.Integrator {
			integ, _ := integrators.New(name)
			return integ
		}
	}

	r.metrics["tracking_rms"] = func() dynamo.Metric { return metrics.NewTrackingRMS() }
	r.metrics["max_error"] = func() dynamo.Metric { return metrics.NewMaxError() }
	r.metrics["heading_rms"] = func() dynamo.Metric { return metrics.NewHeadingRMS() }
	r.metrics["control_effort"] = func() dynamo.Metric { return metrics.NewControlEffort() }
	r.metrics["saturation"] = func() dynamo.Metric { return metrics.NewSaturation() }

	return r
}

func (r *Registry) GetIntegrator(name string) (dynamo.Integrator, error) {
	fn, ok := r.integrators[name]
	if !ok {
		return nil, fmt.Errorf("integrator %q: %w", name, dynamo.ErrUnknownKind)
	}
	return fn(), nil
}

func (r *Registry) GetMetric(name string) (dynamo.Metric, error) {
	fn, ok := r.metrics[name]
	if !ok {
		return nil, fmt.Errorf("metric %q: %w", name, dynamo.ErrUnknownKind)
	}
	return fn(), nil
}

func (r *Registry) ListIntegrators() []string { return sortedKeys(r.integrators) }

func (r *Registry) ListMetrics() []string { return sortedKeys(r.metrics) }

func (r *Registry) ListPaths() []string {
	var names []string
	for _, p := range trajectory.PathTypes() {
		names = append(names, p.String())
	}
	return names
}

func (r *Registry) ListProfiles() []string {
	var names []string
	for _, p := range trajectory.ProfileTypes() {
		names = append(names, p.String())
	}
	return names
}

func (r *Registry) ListNoise() []string {
	return []string{noise.Sinusoidal.String(), noise.Random.String()}
}

func (r *Registry) ListDrivetrains() []string {
	return []string{robot.Mecanum.String(), robot.Tank.String()}
}

// DefaultMetrics returns fresh instances of every registered metric.
func (r *Registry) DefaultMetrics() []dynamo.Metric {
	names := r.ListMetrics()
	out := make([]dynamo.Metric, 0, len(names))
	for _, name := range names {
		out = append(out, r.metrics[name]())
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
