package otohost

import "math"

// Source fills the input ports of a client once per block. Fill runs on
// the audio goroutine and must not block.
type Source interface {
	Fill(buf []float32)
}

// SourceFunc adapts a function to a Source.
type SourceFunc func(buf []float32)

// Fill calls f.
func (f SourceFunc) Fill(buf []float32) { f(buf) }

// Silence is a Source of zeros.
type Silence struct{}

// Fill zeroes buf.
func (Silence) Fill(buf []float32) { clear(buf) }

// Tone is a continuous sine Source.
type Tone struct {
	step  float64
	amp   float64
	phase float64
}

// NewTone returns a sine source of the given frequency and amplitude.
func NewTone(freqHz, amplitude, sampleRate float64) *Tone {
	return &Tone{
		step: 2 * math.Pi * freqHz / sampleRate,
		amp:  amplitude,
	}
}

// Fill writes the next len(buf) samples of the tone.
func (t *Tone) Fill(buf []float32) {
	for i := range buf {
		buf[i] = float32(t.amp * math.Sin(t.phase))

		t.phase += t.step
		if t.phase >= 2*math.Pi {
			t.phase -= 2 * math.Pi
		}
	}
}
