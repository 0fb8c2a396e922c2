package quantize

import "fmt"

const (
	defaultFractionBits = 23
	minFractionBits     = 1
	maxFractionBits     = 26
)

type config struct {
	fractionBits int
}

func defaultConfig() config {
	return config{fractionBits: defaultFractionBits}
}

// Option configures a [Quantizer].
type Option func(*config) error

// WithFractionBits sets the number of fractional bits of the target grid
// (1..26, default 23). The clamp range is ±2^bits and the step is 2^-bits.
func WithFractionBits(bits int) Option {
	return func(cfg *config) error {
		if bits < minFractionBits || bits > maxFractionBits {
			return fmt.Errorf("quantize: fraction bits must be in [%d, %d]: %d",
				minFractionBits, maxFractionBits, bits)
		}

		cfg.fractionBits = bits

		return nil
	}
}
