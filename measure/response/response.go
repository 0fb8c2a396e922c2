package response

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	algofft "github.com/cwbudde/algo-fft"
	"github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/algo-fuzzbox/dsp/core"
)

// Processor is anything that processes a block in place, such as a
// stage.Stage.
type Processor interface {
	Process(block []float64)
}

// Result holds a measured response. Spectrum slices cover the bins
// 0..size/2 inclusive.
type Result struct {
	SampleRate  float64
	Impulse     []float64
	Freqs       []float64
	Magnitude   []float64
	MagnitudeDB []float64
	Phase       []float64
}

var errInvalidSize = errors.New("response: size must be a power of two >= 2")

// Measure feeds a unit impulse of size samples through p and returns its
// response. p should be freshly constructed; its state is advanced.
func Measure(p Processor, sampleRate float64, size int) (Result, error) {
	if p == nil {
		return Result{}, errors.New("response: nil processor")
	}

	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return Result{}, fmt.Errorf("response: sample rate must be > 0 and finite: %f", sampleRate)
	}

	if size < 2 || size&(size-1) != 0 {
		return Result{}, fmt.Errorf("%w: %d", errInvalidSize, size)
	}

	impulse := make([]float64, size)
	impulse[0] = 1
	p.Process(impulse)

	plan, err := algofft.NewPlan64(size)
	if err != nil {
		return Result{}, fmt.Errorf("response: %w", err)
	}

	in := make([]complex128, size)
	for i, v := range impulse {
		in[i] = complex(v, 0)
	}

	out := make([]complex128, size)
	if err := plan.Forward(out, in); err != nil {
		return Result{}, fmt.Errorf("response: %w", err)
	}

	bins := size/2 + 1
	re := make([]float64, bins)
	im := make([]float64, bins)

	res := Result{
		SampleRate:  sampleRate,
		Impulse:     impulse,
		Freqs:       make([]float64, bins),
		Magnitude:   make([]float64, bins),
		MagnitudeDB: make([]float64, bins),
		Phase:       make([]float64, bins),
	}

	binHz := sampleRate / float64(size)

	for k := range bins {
		re[k] = real(out[k])
		im[k] = imag(out[k])
		res.Freqs[k] = float64(k) * binHz
		res.Phase[k] = cmplx.Phase(out[k])
	}

	vecmath.Magnitude(res.Magnitude, re, im)

	for k, m := range res.Magnitude {
		res.MagnitudeDB[k] = core.LinearToDB(m)
	}

	return res, nil
}

// Bin returns the index of the bin nearest to freq.
func (r Result) Bin(freq float64) int {
	if len(r.Freqs) < 2 {
		return 0
	}

	binHz := r.Freqs[1]
	k := int(math.Round(freq / binHz))

	return min(max(k, 0), len(r.Freqs)-1)
}

// At returns the magnitude in dB at the bin nearest to freq.
func (r Result) At(freq float64) float64 {
	if len(r.MagnitudeDB) == 0 {
		return math.NaN()
	}

	return r.MagnitudeDB[r.Bin(freq)]
}

// Peak returns the frequency and level of the loudest bin.
func (r Result) Peak() (freq, db float64) {
	if len(r.Magnitude) == 0 {
		return 0, math.Inf(-1)
	}

	best := 0
	for k, m := range r.Magnitude {
		if m > r.Magnitude[best] {
			best = k
		}
	}

	return r.Freqs[best], r.MagnitudeDB[best]
}
