package otohost

import (
	"errors"
	"fmt"
	"math"
)

const (
	defaultSampleRate = 48000
	defaultBufferSize = 256
	defaultToneHz     = 220
	defaultToneAmp    = 0.25
)

type config struct {
	sampleRate int
	bufferSize int
	source     Source
	gain       float64
	gainSet    bool
	dev        device
}

// Option configures a [Client].
type Option func(*config) error

// WithSampleRate sets the device sample rate in Hz.
func WithSampleRate(rate int) Option {
	return func(cfg *config) error {
		if rate < 8000 || rate > 384000 {
			return fmt.Errorf("otohost: sample rate out of range: %d", rate)
		}

		cfg.sampleRate = rate

		return nil
	}
}

// WithBufferSize sets the maximum block length delivered to the callback.
func WithBufferSize(frames int) Option {
	return func(cfg *config) error {
		if frames < 1 {
			return fmt.Errorf("otohost: buffer size must be >= 1: %d", frames)
		}

		cfg.bufferSize = frames

		return nil
	}
}

// WithSource sets the signal fed into every input port.
func WithSource(s Source) Option {
	return func(cfg *config) error {
		if s == nil {
			return errors.New("otohost: nil source")
		}

		cfg.source = s

		return nil
	}
}

// WithGain sets the linear gain applied to the output mix. The default
// averages the output ports.
func WithGain(gain float64) Option {
	return func(cfg *config) error {
		if gain < 0 || math.IsNaN(gain) || math.IsInf(gain, 0) {
			return fmt.Errorf("otohost: gain must be >= 0 and finite: %f", gain)
		}

		cfg.gain = gain
		cfg.gainSet = true

		return nil
	}
}

func withDevice(d device) Option {
	return func(cfg *config) error {
		cfg.dev = d
		return nil
	}
}
