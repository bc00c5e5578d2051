package sim

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/multierr"

	"github.com/san-kum/livetrain/internal/dynamo"
)

// metricObserver feeds every pass to a set of metrics.
type metricObserver []dynamo.Metric

func (m metricObserver) OnStep(tel dynamo.Telemetry) {
	for _, metric := range m {
		metric.Observe(tel)
	}
}

// RunFor advances a paused simulation by duration in chunks of
// sampleInterval, recording one sample per chunk. Registered observers
// see every pass as in Update. The result does not depend on wall time.
func (s *Simulation) RunFor(ctx context.Context, duration, sampleInterval float64, metrics ...dynamo.Metric) (*dynamo.Result, error) {
	if !(duration > 0) || math.IsInf(duration, 0) {
		return nil, fmt.Errorf("duration %v: %w", duration, dynamo.ErrParameterBounds)
	}
	if !(sampleInterval > 0) {
		return nil, fmt.Errorf("sample interval %v: %w", sampleInterval, dynamo.ErrParameterBounds)
	}
	if sampleInterval > s.maxAdvance {
		sampleInterval = s.maxAdvance
	}

	s.SetRunning(false)
	for _, m := range metrics {
		m.Reset()
	}

	// The step count is fixed for the whole duration so rounding a chunk
	// up to whole steps never lengthens the run.
	total := advanceSteps(duration, s.resolution)
	chunks := advanceSteps(duration, sampleInterval)
	result := &dynamo.Result{
		Samples: make([]dynamo.Telemetry, 0, chunks+1),
		Metrics: make(map[string]float64, len(metrics)),
	}
	result.Samples = append(result.Samples, s.Snapshot())

	observer := metricObserver(metrics)
	startPasses := s.Passes()
	done := 0

	for i := 0; i < chunks && done < total; i++ {
		select {
		case <-ctx.Done():
			result.StepsTaken = s.Passes() - startPasses
			return result, ctx.Err()
		default:
		}

		target := advanceSteps(math.Min(float64(i+1)*sampleInterval, duration), s.resolution)
		if target > total {
			target = total
		}
		steps := target - done
		if steps <= 0 {
			continue
		}
		done = target

		// Chunks continue one another, so body timestamps are only reset
		// once by SetRunning above.
		buf := s.buffers.Get()
		s.mu.Lock()
		s.pending += float64(steps) * s.resolution
		err := s.update(buf)
		observers := s.observers
		s.mu.Unlock()
		for _, tel := range *buf {
			observer.OnStep(tel)
			for _, o := range observers {
				o.OnStep(tel)
			}
		}
		s.buffers.Put(buf)

		if err != nil {
			result.Errors = append(result.Errors, multierr.Errors(err)...)
		}
		sample := s.Snapshot()
		if !sample.Pose.IsValid() {
			result.Errors = append(result.Errors, dynamo.SimError{
				Time: sample.Time, Step: s.Passes() - startPasses, Message: "invalid pose (NaN/Inf)",
			})
			break
		}
		result.Samples = append(result.Samples, sample)
	}

	result.StepsTaken = s.Passes() - startPasses
	for _, m := range metrics {
		result.Metrics[m.Name()] = m.Value()
	}
	return result, nil
}
