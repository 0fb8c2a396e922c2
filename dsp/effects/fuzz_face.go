package effects

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-fuzzbox/dsp/filter/iir"
)

const (
	defaultFuzzFaceFuzz  = 0.5
	defaultFuzzFaceLevel = 0.5

	// fuzzFaceSmoothing is the one-pole smoothing factor applied to both
	// controls before coefficient derivation.
	fuzzFaceSmoothing = 0.993

	// fuzzFaceLevelTaper is the log-pot taper of the level control.
	fuzzFaceLevelTaper = 3.0

	// potEpsilon is the single-precision machine epsilon; tapers at or
	// below it are linear.
	potEpsilon = 0x1p-23
)

// FuzzFaceOption mutates fuzz face construction parameters.
type FuzzFaceOption func(*fuzzFaceConfig) error

type fuzzFaceConfig struct {
	fuzz  float64
	level float64
}

func defaultFuzzFaceConfig() fuzzFaceConfig {
	return fuzzFaceConfig{
		fuzz:  defaultFuzzFaceFuzz,
		level: defaultFuzzFaceLevel,
	}
}

// WithFuzzFaceFuzz sets the fuzz control in [0, 1].
func WithFuzzFaceFuzz(fuzz float64) FuzzFaceOption {
	return func(cfg *fuzzFaceConfig) error {
		if fuzz < 0 || fuzz > 1 || math.IsNaN(fuzz) {
			return fmt.Errorf("fuzz face fuzz must be in [0, 1]: %f", fuzz)
		}

		cfg.fuzz = fuzz

		return nil
	}
}

// WithFuzzFaceLevel sets the output level control in [0, 1].
func WithFuzzFaceLevel(level float64) FuzzFaceOption {
	return func(cfg *fuzzFaceConfig) error {
		if level < 0 || level > 1 || math.IsNaN(level) {
			return fmt.Errorf("fuzz face level must be in [0, 1]: %f", level)
		}

		cfg.level = level

		return nil
	}
}

// FuzzFaceParams are the immutable control values of a [FuzzFace].
type FuzzFaceParams struct {
	Fuzz       float64
	Level      float64
	SampleRate float64
}

// FuzzFace emulates a Fuzz Face style pedal as a recursive filter whose
// coefficients are a polynomial fit of the analog circuit's transfer
// function in the smoothed fuzz and level controls and the sample rate.
//
// Parameters are fixed at construction. To change them, build a new
// instance; the filter history of the old instance is not carried over.
// The coefficient fit only specifies B0 and B1; the remaining taps of the
// third-order section are fixed to the truncated second-order recursion
//
//	y[n] = B0 x[n] + B1 x[n-1] + x[n-2] - y[n-1] - y[n-2]
//
// while the section still records three samples of history.
type FuzzFace struct {
	params FuzzFaceParams

	smoothedFuzz  float64
	smoothedLevel float64

	section *iir.Section
}

// NewFuzzFace creates a fuzz face model with zero filter history.
func NewFuzzFace(sampleRate float64, opts ...FuzzFaceOption) (*FuzzFace, error) {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("fuzz face sample rate must be > 0 and finite: %f", sampleRate)
	}

	cfg := defaultFuzzFaceConfig()
	for _, opt := range opts {
		if opt == nil {
			continue
		}

		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	ff := &FuzzFace{
		params: FuzzFaceParams{
			Fuzz:       cfg.fuzz,
			Level:      cfg.level,
			SampleRate: sampleRate,
		},
	}

	ff.smoothedFuzz = smoothControl(invertControl(cfg.fuzz), fuzzFaceSmoothing)
	ff.smoothedLevel = smoothControl(invertControl(logPot(fuzzFaceLevelTaper, cfg.level)), fuzzFaceSmoothing)
	ff.section = iir.NewSection(fuzzFaceCoefficients(ff.smoothedFuzz, ff.smoothedLevel, sampleRate))

	return ff, nil
}

// ProcessSample processes one sample through the model.
func (ff *FuzzFace) ProcessSample(input float64) float64 {
	return ff.section.ProcessSample(input)
}

// ProcessInPlace applies the model to buf in place. Zero-alloc.
func (ff *FuzzFace) ProcessInPlace(buf []float64) {
	ff.section.ProcessBlock(buf)
}

// Params returns the construction parameters.
func (ff *FuzzFace) Params() FuzzFaceParams { return ff.params }

// SampleRate returns the sample rate in Hz.
func (ff *FuzzFace) SampleRate() float64 { return ff.params.SampleRate }

// SmoothedFuzz returns the inverted, smoothed fuzz control used by the fit.
func (ff *FuzzFace) SmoothedFuzz() float64 { return ff.smoothedFuzz }

// SmoothedLevel returns the tapered, inverted, smoothed level control.
func (ff *FuzzFace) SmoothedLevel() float64 { return ff.smoothedLevel }

// Coefficients returns the derived filter coefficients.
func (ff *FuzzFace) Coefficients() iir.Coefficients { return ff.section.Coefficients }

// State returns the current filter history.
func (ff *FuzzFace) State() iir.State { return ff.section.State() }

// smoothControl is one step of the inverting exponential smoother used by
// the pedal model: value*(1-s) + s.
func smoothControl(value, s float64) float64 {
	return value*(1-s) + s
}

// logPot maps x in [0, 1] through a logarithmic potentiometer taper.
func logPot(a, x float64) float64 {
	if math.Abs(a) > potEpsilon {
		return (math.Exp(a*x) - 1) / (math.Exp(a) - 1)
	}

	return x
}

func invertControl(x float64) float64 {
	return 1 - x
}

// fuzzFaceCoefficients evaluates the transfer-function fit. The constants
// are reproduced verbatim from the circuit fit and must not be rounded.
func fuzzFaceCoefficients(fuzz, level, fs float64) iir.Coefficients {
	fs2 := fs * fs
	fs3 := fs2 * fs

	b0 := fuzz*(fuzz*(4.47934267089816e-14*level*fs3-4.57075782744711e-14*fs3)+
		2.1870008532593e-12*level*fs3-
		2.23163352373398e-12*fs3) +
		level*fs2*(-2.23179427996828e-12*fs-2.84573463334658e-11) +
		fs2*(2.27734110200845e-12*fs+2.90381085035365e-11)

	b1 := fuzz*(fuzz*(-1.34380280126945e-13*level*fs3+1.37122734823413e-13*fs3)-
		6.5610025597779e-12*level*fs3+
		6.69490057120194e-12*fs3) +
		level*fs2*(6.69538283990485e-12*fs+2.84573463334658e-11) +
		fs2*(-6.83202330602535e-12*fs-2.90381085035365e-11)

	return iir.Coefficients{
		B0: b0,
		B1: b1,
		B2: 1,
		A0: 1,
		A1: 1,
		A2: 1,
	}
}
