package iir

import (
	"math"
	"math/cmplx"
)

// Coefficients holds the transfer function of a third-order section:
//
//	H(z) = (B0 + B1 z^-1 + B2 z^-2 + B3 z^-3) / (A0 + A1 z^-1 + A2 z^-2 + A3 z^-3)
//
// Processing applies gain = 1/A0 to the whole difference equation, so
// coefficients need not be pre-normalized.
type Coefficients struct {
	B0, B1, B2, B3 float64 // feedforward (numerator)
	A0, A1, A2, A3 float64 // feedback (denominator)
}

// Gain returns 1/A0. An A0 of zero is treated as 1.
func (c *Coefficients) Gain() float64 {
	if c.A0 == 0 {
		return 1
	}

	return 1 / c.A0
}

// Response computes the complex frequency response H(e^jw) at the given
// frequency (Hz) and sample rate (Hz).
func (c *Coefficients) Response(freqHz, sampleRate float64) complex128 {
	w := 2 * math.Pi * freqHz / sampleRate
	z1 := cmplx.Exp(complex(0, -w))
	z2 := z1 * z1
	z3 := z2 * z1

	num := complex(c.B0, 0) + complex(c.B1, 0)*z1 + complex(c.B2, 0)*z2 + complex(c.B3, 0)*z3

	a0 := c.A0
	if a0 == 0 {
		a0 = 1
	}

	den := complex(a0, 0) + complex(c.A1, 0)*z1 + complex(c.A2, 0)*z2 + complex(c.A3, 0)*z3

	return num / den
}

// MagnitudeDB returns 20*log10(|H(f)|).
func (c *Coefficients) MagnitudeDB(freqHz, sampleRate float64) float64 {
	return 20 * math.Log10(cmplx.Abs(c.Response(freqHz, sampleRate)))
}

// State is the filter history. Index 0 is the most recent sample.
type State struct {
	X [3]float64 // x[n-1], x[n-2], x[n-3]
	Y [3]float64 // y[n-1], y[n-2], y[n-3]
}

// Section is a third-order direct-form I filter with coefficients and
// history. It is not safe for concurrent use.
type Section struct {
	Coefficients

	gain  float64
	state State
}

// NewSection returns a Section with the given coefficients and zero history.
func NewSection(c Coefficients) *Section {
	return &Section{Coefficients: c, gain: c.Gain()}
}

// ProcessSample filters one input sample and returns the output:
//
//	y[n] = g*(B0 x[n] + B1 x[n-1] + B2 x[n-2] + B3 x[n-3]
//	          - A1 y[n-1] - A2 y[n-2] - A3 y[n-3])
func (s *Section) ProcessSample(x float64) float64 {
	h := &s.state
	y := s.gain * (s.B0*x + s.B1*h.X[0] + s.B2*h.X[1] + s.B3*h.X[2] -
		s.A1*h.Y[0] - s.A2*h.Y[1] - s.A3*h.Y[2])

	h.X[2], h.X[1], h.X[0] = h.X[1], h.X[0], x
	h.Y[2], h.Y[1], h.Y[0] = h.Y[1], h.Y[0], y

	return y
}

// ProcessBlock filters a block of samples in-place. Zero-alloc.
func (s *Section) ProcessBlock(buf []float64) {
	for i, x := range buf {
		buf[i] = s.ProcessSample(x)
	}
}

// ProcessBlockTo filters src into dst. Both slices must have the same length.
// Zero-alloc.
func (s *Section) ProcessBlockTo(dst, src []float64) {
	if len(src) == 0 {
		return
	}

	_ = dst[len(src)-1] // bounds check hint
	for i, x := range src {
		dst[i] = s.ProcessSample(x)
	}
}

// Reset clears the input and output histories to zero.
func (s *Section) Reset() {
	s.state = State{}
}

// State returns a copy of the current history.
func (s *Section) State() State {
	return s.state
}

// SetState restores a previously saved history.
func (s *Section) SetState(state State) {
	s.state = state
}
