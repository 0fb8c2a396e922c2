package stage

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/cwbudde/algo-fuzzbox/dsp/effects"
	"github.com/cwbudde/algo-fuzzbox/dsp/quantize"
)

// Builder turns stage parameters into a factory. Builders validate eagerly
// so that bad parameters fail before any channel is touched.
type Builder func(p Params) (Factory, error)

// Registry maps stage type names to builders. Names are matched without
// regard to case or surrounding space.
type Registry struct {
	builders map[string]Builder
}

var (
	// ErrUnknownStage is returned by Build for unregistered types.
	ErrUnknownStage = errors.New("stage: unknown stage type")
	// ErrDuplicateStage is returned by Register for a taken name.
	ErrDuplicateStage = errors.New("stage: duplicate stage type")
)

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{builders: make(map[string]Builder)}
}

func normalizeType(stageType string) string {
	return strings.ToLower(strings.TrimSpace(stageType))
}

// validType reports whether name consists of lower-case letters, digits
// and '-' only, starting with a letter.
func validType(name string) bool {
	if name == "" || name[0] < 'a' || name[0] > 'z' {
		return false
	}

	for _, c := range name {
		if (c < 'a' || c > 'z') && (c < '0' || c > '9') && c != '-' {
			return false
		}
	}

	return true
}

// Register adds a builder under stageType.
func (r *Registry) Register(stageType string, b Builder) error {
	name := normalizeType(stageType)
	if !validType(name) {
		return fmt.Errorf("stage: invalid stage type %q", stageType)
	}

	if b == nil {
		return fmt.Errorf("stage: %s: nil builder", name)
	}

	if _, taken := r.builders[name]; taken {
		return fmt.Errorf("%w: %s", ErrDuplicateStage, name)
	}

	r.builders[name] = b

	return nil
}

// Lookup returns the builder registered under stageType.
func (r *Registry) Lookup(stageType string) (Builder, bool) {
	b, ok := r.builders[normalizeType(stageType)]
	return b, ok
}

// Types returns the registered type names in sorted order.
func (r *Registry) Types() []string {
	names := make([]string, 0, len(r.builders))
	for name := range r.builders {
		names = append(names, name)
	}

	slices.Sort(names)

	return names
}

// Build returns the factory described by p.
func (r *Registry) Build(p Params) (Factory, error) {
	b, ok := r.Lookup(p.Type)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStage, p.Type)
	}

	f, err := b(p)
	if err != nil {
		return nil, fmt.Errorf("stage: %s: %w", p.Type, err)
	}

	return f, nil
}

// Default parameter values of the built-in stages.
const (
	DefaultFuzz         = 0.5
	DefaultLevel        = 0.5
	DefaultFractionBits = 23
)

// DefaultRegistry returns a registry with the built-in stages:
//
//	passthrough              identity copy
//	fuzz      fuzz, level, bits   fuzz face model then quantization
//	fuzzface  fuzz, level         fuzz face model only
//	quantize  bits                sample precision reducer
func DefaultRegistry() *Registry {
	return &Registry{builders: map[string]Builder{
		"passthrough": buildPassThrough,
		"fuzz":        buildFuzz,
		"fuzzface":    buildFuzzFace,
		"quantize":    quantizeFactory,
	}}
}

func buildPassThrough(Params) (Factory, error) { return PassThrough(), nil }

func buildFuzz(p Params) (Factory, error) {
	ff, err := fuzzFaceOptions(p)
	if err != nil {
		return nil, err
	}

	qf, err := quantizeFactory(p)
	if err != nil {
		return nil, err
	}

	return Chain(FuzzFace(ff...), qf), nil
}

func buildFuzzFace(p Params) (Factory, error) {
	ff, err := fuzzFaceOptions(p)
	if err != nil {
		return nil, err
	}

	return FuzzFace(ff...), nil
}

func fuzzFaceOptions(p Params) ([]effects.FuzzFaceOption, error) {
	opts := []effects.FuzzFaceOption{
		effects.WithFuzzFaceFuzz(p.GetNum("fuzz", DefaultFuzz)),
		effects.WithFuzzFaceLevel(p.GetNum("level", DefaultLevel)),
	}

	// Validate with a nominal rate; the real rate comes from the context.
	if _, err := effects.NewFuzzFace(48000, opts...); err != nil {
		return nil, err
	}

	return opts, nil
}

func quantizeFactory(p Params) (Factory, error) {
	bits := p.GetNum("bits", DefaultFractionBits)
	if bits != math.Trunc(bits) || bits < 0 || bits > 64 {
		return nil, fmt.Errorf("quantize bits must be a small integer: %g", bits)
	}

	opt := quantize.WithFractionBits(int(bits))
	if _, err := quantize.NewQuantizer(opt); err != nil {
		return nil, err
	}

	return Quantize(opt), nil
}
