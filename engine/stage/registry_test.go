package stage

import (
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/cwbudde/algo-fuzzbox/internal/testutil"
)

func TestRegistryRegister(t *testing.T) {
	t.Parallel()

	dummy := func(Params) (Factory, error) { return PassThrough(), nil }

	tests := []struct {
		name      string
		stageType string
		builder   Builder
		wantErr   bool
	}{
		{name: "simple", stageType: "echo", builder: dummy},
		{name: "digits and dash", stageType: "fuzz-2", builder: dummy},
		{name: "normalized", stageType: "  Octave ", builder: dummy},
		{name: "empty", stageType: "", builder: dummy, wantErr: true},
		{name: "leading digit", stageType: "2x", builder: dummy, wantErr: true},
		{name: "inner space", stageType: "big muff", builder: dummy, wantErr: true},
		{name: "nil builder", stageType: "x", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := NewRegistry()

			err := r.Register(tt.stageType, tt.builder)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}

				return
			}

			if err != nil {
				t.Fatal(err)
			}

			if _, ok := r.Lookup(strings.ToUpper(tt.stageType)); !ok {
				t.Fatalf("Lookup(%q) missed", strings.ToUpper(tt.stageType))
			}
		})
	}

	t.Run("duplicate", func(t *testing.T) {
		t.Parallel()

		r := NewRegistry()
		_ = r.Register("echo", dummy)

		if err := r.Register("ECHO", dummy); !errors.Is(err, ErrDuplicateStage) {
			t.Fatalf("err = %v, want ErrDuplicateStage", err)
		}
	})

	t.Run("lookup missing", func(t *testing.T) {
		t.Parallel()

		if b, ok := NewRegistry().Lookup("echo"); ok || b != nil {
			t.Fatal("Lookup found an unregistered type")
		}
	})
}

func TestDefaultRegistryTypes(t *testing.T) {
	want := []string{"fuzz", "fuzzface", "passthrough", "quantize"}
	if got := DefaultRegistry().Types(); !slices.Equal(got, want) {
		t.Fatalf("Types() = %v, want %v", got, want)
	}
}

func TestDefaultRegistryBuild(t *testing.T) {
	r := DefaultRegistry()

	tests := []struct {
		name    string
		params  Params
		wantErr error
		bad     bool
	}{
		{name: "passthrough", params: Params{Type: "passthrough"}},
		{name: "case and space", params: Params{Type: " Fuzz "}},
		{name: "fuzz defaults", params: Params{Type: "fuzz"}},
		{name: "fuzz explicit", params: Params{Type: "fuzz", Num: map[string]float64{"fuzz": 1, "level": 0, "bits": 15}}},
		{name: "fuzzface", params: Params{Type: "fuzzface", Num: map[string]float64{"fuzz": 0.1}}},
		{name: "quantize", params: Params{Type: "quantize", Num: map[string]float64{"bits": 8}}},
		{name: "unknown", params: Params{Type: "chorus"}, wantErr: ErrUnknownStage},
		{name: "fuzz out of range", params: Params{Type: "fuzz", Num: map[string]float64{"fuzz": 1.5}}, bad: true},
		{name: "level out of range", params: Params{Type: "fuzzface", Num: map[string]float64{"level": -0.1}}, bad: true},
		{name: "fractional bits", params: Params{Type: "quantize", Num: map[string]float64{"bits": 7.5}}, bad: true},
		{name: "too many bits", params: Params{Type: "quantize", Num: map[string]float64{"bits": 40}}, bad: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := r.Build(tt.params)

			switch {
			case tt.wantErr != nil:
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
			case tt.bad:
				if err == nil {
					t.Fatal("expected error")
				}
			default:
				if err != nil {
					t.Fatal(err)
				}

				if _, err := Build(f, testCtx); err != nil {
					t.Fatal(err)
				}
			}
		})
	}
}

func TestDefaultRegistryFuzzMatchesFuzzFactory(t *testing.T) {
	f, err := DefaultRegistry().Build(Params{Type: "fuzz"})
	if err != nil {
		t.Fatal(err)
	}

	in := testutil.DeterministicNoise(11, 0.7, 300)
	a := slices.Clone(in)
	b := slices.Clone(in)

	mustBuild(t, f).Process(a)
	mustBuild(t, Fuzz()).Process(b)

	if !slices.Equal(a, b) {
		t.Fatal("registry fuzz differs from Fuzz()")
	}
}

func TestParams(t *testing.T) {
	p := Params{Type: "fuzz", Num: map[string]float64{"level": 0.25}}

	if got := p.GetNum("level", 1); got != 0.25 {
		t.Fatalf("GetNum(level) = %v", got)
	}

	if got := p.GetNum("fuzz", 0.5); got != 0.5 {
		t.Fatalf("GetNum(missing) = %v", got)
	}

	q := p.With("fuzz", 0.75)
	if _, ok := p.Num["fuzz"]; ok {
		t.Fatal("With mutated the receiver")
	}

	if got := q.String(); got != "fuzz(fuzz=0.75, level=0.25)" {
		t.Fatalf("String() = %q", got)
	}
}
