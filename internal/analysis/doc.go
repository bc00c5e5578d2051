// Package analysis inspects recorded telemetry for controller behaviour.
//
//   - [Extract]: pulls one named channel (errors, powers, pose) out of samples
//   - [Analyze]: power spectrum and dominant frequency of a channel
//   - [GeneratePhasePlane]: error against error rate, for spotting limit cycles
//
// A sustained peak in the heading or lateral error spectrum usually means
// the gains are high enough to oscillate:
//
//	ch, _ := analysis.Extract(samples, "lateral_error")
//	spec, _ := analysis.Analyze(ch, sampleInterval)
//	fmt.Println(spec.DominantFrequency)
package analysis
