// Package stage defines the per-channel processing stages the engine runs
// on every block, and the factories that build them.
package stage

import (
	"errors"
	"fmt"

	"github.com/cwbudde/algo-fuzzbox/dsp/effects"
	"github.com/cwbudde/algo-fuzzbox/dsp/quantize"
	"github.com/cwbudde/algo-fuzzbox/engine/channel"
)

// Context describes the channel a stage is built for.
type Context struct {
	Channel    channel.ID
	SampleRate float64
}

// Stage processes one channel in place.
//
// Process runs on the real-time path: it must not allocate, block, or
// fail. Stages keep their state between calls and are owned by a single
// channel.
type Stage interface {
	Process(block []float64)
}

// Factory builds one Stage per channel.
type Factory func(ctx Context) (Stage, error)

// ErrNilStage is returned when a factory yields neither a stage nor an error.
var ErrNilStage = errors.New("stage: factory returned nil stage")

// Build calls f for ctx and checks the result.
func Build(f Factory, ctx Context) (Stage, error) {
	if f == nil {
		return nil, errors.New("stage: nil factory")
	}

	s, err := f(ctx)
	if err != nil {
		return nil, fmt.Errorf("stage: channel %d: %w", ctx.Channel, err)
	}

	if s == nil {
		return nil, fmt.Errorf("%w: channel %d", ErrNilStage, ctx.Channel)
	}

	return s, nil
}

type passThrough struct{}

func (passThrough) Process([]float64) {}

// PassThrough returns a factory for the identity stage.
func PassThrough() Factory {
	return func(Context) (Stage, error) { return passThrough{}, nil }
}

type fuzzFaceStage struct {
	ff *effects.FuzzFace
}

func (s *fuzzFaceStage) Process(block []float64) { s.ff.ProcessInPlace(block) }

// FuzzFace returns a factory building one fuzz face model per channel at
// the context sample rate.
func FuzzFace(opts ...effects.FuzzFaceOption) Factory {
	return func(ctx Context) (Stage, error) {
		ff, err := effects.NewFuzzFace(ctx.SampleRate, opts...)
		if err != nil {
			return nil, err
		}

		return &fuzzFaceStage{ff: ff}, nil
	}
}

type quantizeStage struct {
	q *quantize.Quantizer
}

func (s *quantizeStage) Process(block []float64) { s.q.ProcessInPlace(block) }

// Quantize returns a factory for the sample precision reducer.
func Quantize(opts ...quantize.Option) Factory {
	return func(Context) (Stage, error) {
		q, err := quantize.NewQuantizer(opts...)
		if err != nil {
			return nil, err
		}

		return &quantizeStage{q: q}, nil
	}
}

// Fuzz returns the fuzz pipeline: a fuzz face model followed by 24-bit
// quantization.
func Fuzz(opts ...effects.FuzzFaceOption) Factory {
	return Chain(FuzzFace(opts...), Quantize())
}

type chain []Stage

func (c chain) Process(block []float64) {
	for _, s := range c {
		s.Process(block)
	}
}

// Chain returns a factory running the stages of factories in order.
func Chain(factories ...Factory) Factory {
	return func(ctx Context) (Stage, error) {
		c := make(chain, 0, len(factories))

		for i, f := range factories {
			if f == nil {
				return nil, fmt.Errorf("stage: chain element %d is nil", i)
			}

			s, err := f(ctx)
			if err != nil {
				return nil, err
			}

			if s == nil {
				return nil, fmt.Errorf("%w: chain element %d", ErrNilStage, i)
			}

			c = append(c, s)
		}

		if len(c) == 1 {
			return c[0], nil
		}

		return c, nil
	}
}
