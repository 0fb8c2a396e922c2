package quantize

import "math"

const (
	// Scale24 is 2^23, the scale of the default 24-bit grid.
	Scale24 = 1 << defaultFractionBits

	// Limit24 is the clamp bound of the default grid.
	Limit24 = float64(Scale24)
)

// Quantize clamps x to [-2^23, 2^23] and rounds it to the nearest multiple
// of 2^-23. Halfway cases round away from zero. NaN is passed through.
func Quantize(x float64) float64 {
	return quantize(x, Limit24, Scale24)
}

// ProcessInPlace applies [Quantize] to every sample in buf. Zero-alloc.
func ProcessInPlace(buf []float64) {
	for i, x := range buf {
		buf[i] = quantize(x, Limit24, Scale24)
	}
}

// Quantizer is a quantization stage with a configurable grid. It holds no
// per-sample state and is safe to share between channels.
type Quantizer struct {
	fractionBits int

	// derived from fractionBits
	scale float64
	limit float64
}

// NewQuantizer creates a Quantizer. The default grid has 23 fraction bits,
// matching [Quantize].
func NewQuantizer(opts ...Option) (*Quantizer, error) {
	cfg := defaultConfig()

	for _, opt := range opts {
		if opt == nil {
			continue
		}

		err := opt(&cfg)
		if err != nil {
			return nil, err
		}
	}

	q := &Quantizer{fractionBits: cfg.fractionBits}
	q.scale = math.Exp2(float64(q.fractionBits))
	q.limit = q.scale

	return q, nil
}

// ProcessSample returns the quantized value of x.
func (q *Quantizer) ProcessSample(x float64) float64 {
	return quantize(x, q.limit, q.scale)
}

// ProcessInPlace quantizes each sample in buf in-place.
func (q *Quantizer) ProcessInPlace(buf []float64) {
	for i, x := range buf {
		buf[i] = quantize(x, q.limit, q.scale)
	}
}

// FractionBits returns the number of fractional bits of the grid.
func (q *Quantizer) FractionBits() int { return q.fractionBits }

// Step returns the grid spacing 2^-bits.
func (q *Quantizer) Step() float64 { return 1 / q.scale }

// Limit returns the clamp bound 2^bits.
func (q *Quantizer) Limit() float64 { return q.limit }

// quantize is exact in float64 as long as limit*scale <= 2^53.
func quantize(x, limit, scale float64) float64 {
	if x > limit {
		x = limit
	} else if x < -limit {
		x = -limit
	}

	return math.Round(x*scale) / scale
}
