package analysis

import (
	"fmt"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

// FFT transforms real samples. Any length works; PadPow2 keeps it on
// the radix-2 path.
func FFT(data []float64) []complex128 {
	return fft.FFTReal(data)
}

// PadPow2 removes the mean and zero-pads to the next power of two.
func PadPow2(data []float64) []float64 {
	n := 1
	for n < len(data) {
		n <<= 1
	}
	var mean float64
	for _, v := range data {
		mean += v
	}
	if len(data) > 0 {
		mean /= float64(len(data))
	}
	out := make([]float64, n)
	for i, v := range data {
		out[i] = v - mean
	}
	return out
}

func PowerSpectrum(data []float64) []float64 {
	bins := FFT(PadPow2(data))
	ps := make([]float64, len(bins)/2)

	for i := range ps {
		ps[i] = cmplx.Abs(bins[i])
	}

	return ps
}

type Spectrum struct {
	Frequencies       []float64
	Power             []float64
	DominantFrequency float64
	DominantPower     float64
}

// Analyze computes the spectrum of evenly spaced samples taken every
// interval seconds. The DC bin is ignored when picking the peak.
func Analyze(data []float64, interval float64) (*Spectrum, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("need at least 4 samples, got %d", len(data))
	}
	if !(interval > 0) {
		return nil, fmt.Errorf("sample interval %v must be positive", interval)
	}

	ps := PowerSpectrum(data)
	n := 2 * len(ps)
	spec := &Spectrum{
		Frequencies: make([]float64, len(ps)),
		Power:       ps,
	}
	for i := range ps {
		spec.Frequencies[i] = float64(i) / (float64(n) * interval)
		if i > 0 && ps[i] > spec.DominantPower {
			spec.DominantPower = ps[i]
			spec.DominantFrequency = spec.Frequencies[i]
		}
	}
	return spec, nil
}
