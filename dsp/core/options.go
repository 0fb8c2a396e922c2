package core

import (
	"fmt"
	"math"
)

// MaxBlockSize bounds the block length a stream may be configured with.
const MaxBlockSize = 1 << 16

// StreamConfig holds the sample rate and the largest block length a host
// delivers per callback.
type StreamConfig struct {
	SampleRate float64
	BlockSize  int
}

// StreamOption sets one field of a StreamConfig.
type StreamOption func(*StreamConfig) error

// DefaultStreamConfig returns 48 kHz with 256-frame blocks.
func DefaultStreamConfig() StreamConfig {
	return StreamConfig{SampleRate: 48000, BlockSize: 256}
}

// WithSampleRate sets the stream sample rate in Hz.
func WithSampleRate(sampleRate float64) StreamOption {
	return func(cfg *StreamConfig) error {
		if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
			return fmt.Errorf("core: sample rate must be > 0 and finite: %f", sampleRate)
		}

		cfg.SampleRate = sampleRate

		return nil
	}
}

// WithBlockSize sets the largest block length in frames (1..MaxBlockSize).
func WithBlockSize(blockSize int) StreamOption {
	return func(cfg *StreamConfig) error {
		if blockSize < 1 || blockSize > MaxBlockSize {
			return fmt.Errorf("core: block size must be in [1, %d]: %d", MaxBlockSize, blockSize)
		}

		cfg.BlockSize = blockSize

		return nil
	}
}

// NewStreamConfig applies opts to the defaults. Nil options are skipped;
// the first invalid option aborts.
func NewStreamConfig(opts ...StreamOption) (StreamConfig, error) {
	cfg := DefaultStreamConfig()

	for _, opt := range opts {
		if opt == nil {
			continue
		}

		if err := opt(&cfg); err != nil {
			return StreamConfig{}, err
		}
	}

	return cfg, nil
}
