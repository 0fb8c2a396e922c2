package iir

import (
	"math"
	"math/cmplx"
	"testing"

	"github.com/cwbudde/algo-fuzzbox/internal/testutil"
)

const eps = 1e-12

func TestNewSectionZeroState(t *testing.T) {
	c := Coefficients{B0: 1, B1: 2, B2: 3, B3: 4, A0: 1, A1: 5, A2: 6, A3: 7}
	s := NewSection(c)

	if s.Coefficients != c {
		t.Fatalf("coefficients mismatch: got %v, want %v", s.Coefficients, c)
	}

	if st := s.State(); st != (State{}) {
		t.Fatalf("initial state not zero: %+v", st)
	}
}

func TestProcessSamplePassthrough(t *testing.T) {
	s := NewSection(Coefficients{B0: 1, A0: 1})
	for i, x := range []float64{1, 0, -1, 0.5, 0.25} {
		if y := s.ProcessSample(x); y != x {
			t.Errorf("sample %d: got %v, want %v", i, y, x)
		}
	}
}

func TestProcessSampleHandTraced(t *testing.T) {
	// B = [1, 0.5, 0.25, 0.125], A = [1, -0.5, 0, 0], impulse input:
	//
	// n=0: y = 1
	// n=1: y = 0.5*1 + 0.5*1 = 1
	// n=2: y = 0.25*1 + 0.5*1 = 0.75
	// n=3: y = 0.125*1 + 0.5*0.75 = 0.5
	// n=4: y = 0.5*0.5 = 0.25
	s := NewSection(Coefficients{B0: 1, B1: 0.5, B2: 0.25, B3: 0.125, A0: 1, A1: -0.5})

	got := make([]float64, 5)
	s.ProcessBlockTo(got, testutil.Impulse(5, 0))

	testutil.RequireSliceNearlyEqual(t, got, []float64{1, 1, 0.75, 0.5, 0.25}, eps)

	want := State{Y: [3]float64{0.25, 0.5, 0.75}}
	if st := s.State(); st != want {
		t.Fatalf("state = %+v, want %+v", st, want)
	}
}

func TestHistoryShiftsInTemporalOrder(t *testing.T) {
	s := NewSection(Coefficients{B0: 1, A0: 1})
	for _, x := range []float64{1, 2, 3, 4} {
		s.ProcessSample(x)
	}

	want := State{X: [3]float64{4, 3, 2}, Y: [3]float64{4, 3, 2}}
	if st := s.State(); st != want {
		t.Fatalf("state = %+v, want %+v", st, want)
	}
}

func TestGainNormalization(t *testing.T) {
	s := NewSection(Coefficients{B0: 4, A0: 2})
	if y := s.ProcessSample(1); y != 2 {
		t.Fatalf("y = %v, want 2", y)
	}

	c := Coefficients{B0: 1}
	if c.Gain() != 1 {
		t.Fatalf("Gain() with A0=0 = %v, want 1", c.Gain())
	}
}

func TestProcessBlockMatchesSample(t *testing.T) {
	c := Coefficients{B0: 0.3, B1: -0.2, B2: 0.1, B3: 0.05, A0: 1, A1: -0.4, A2: 0.1, A3: -0.02}
	in := testutil.DeterministicNoise(5, 1.0, 257)

	ref := NewSection(c)
	want := make([]float64, len(in))
	for i, x := range in {
		want[i] = ref.ProcessSample(x)
	}

	blk := NewSection(c)
	buf := append([]float64(nil), in...)
	blk.ProcessBlock(buf)

	testutil.RequireSliceNearlyEqual(t, buf, want, 0)

	if blk.State() != ref.State() {
		t.Fatalf("state mismatch: %+v vs %+v", blk.State(), ref.State())
	}
}

func TestResetAndSetState(t *testing.T) {
	s := NewSection(Coefficients{B0: 1, B1: 1, A0: 1, A1: 0.5})
	s.ProcessBlock([]float64{1, 2, 3})

	saved := s.State()
	a := s.ProcessSample(0.5)

	s.Reset()
	if s.State() != (State{}) {
		t.Fatalf("state after Reset = %+v, want zero", s.State())
	}

	s.SetState(saved)
	if b := s.ProcessSample(0.5); a != b {
		t.Fatalf("restored output = %v, want %v", b, a)
	}
}

func TestResponseMatchesImpulseResponse(t *testing.T) {
	c := Coefficients{B0: 0.2, B1: 0.3, B2: 0.2, B3: 0.1, A0: 1, A1: -0.5, A2: 0.1, A3: -0.01}
	s := NewSection(c)

	const n = 4096
	ir := testutil.Impulse(n, 0)
	s.ProcessBlock(ir)

	const sampleRate = 48000.0
	for _, freq := range []float64{0, 100, 1000, 6000, 20000} {
		var dft complex128
		w := 2 * math.Pi * freq / sampleRate
		for k, h := range ir {
			dft += complex(h, 0) * cmplx.Exp(complex(0, -w*float64(k)))
		}

		want := c.Response(freq, sampleRate)
		if cmplx.Abs(dft-want) > 1e-9 {
			t.Errorf("f=%v: DFT = %v, Response = %v", freq, dft, want)
		}
	}

	dc := c.MagnitudeDB(0, sampleRate)
	wantDC := 20 * math.Log10((0.2+0.3+0.2+0.1)/(1-0.5+0.1-0.01))
	if math.Abs(dc-wantDC) > 1e-9 {
		t.Errorf("MagnitudeDB(0) = %v, want %v", dc, wantDC)
	}
}

func TestProcessBlockZeroAlloc(t *testing.T) {
	s := NewSection(Coefficients{B0: 0.5, B1: 0.5, A0: 1})
	buf := testutil.DeterministicSine(1000, 48000, 0.5, 256)

	allocs := testing.AllocsPerRun(100, func() {
		s.ProcessBlock(buf)
	})
	if allocs != 0 {
		t.Fatalf("ProcessBlock allocs = %v, want 0", allocs)
	}
}

func BenchmarkProcessBlock(b *testing.B) {
	s := NewSection(Coefficients{B0: 0.2, B1: 0.3, B2: 0.2, B3: 0.1, A0: 1, A1: -0.5, A2: 0.1, A3: -0.01})
	buf := testutil.DeterministicNoise(1, 1.0, 256)

	b.ReportAllocs()
	b.SetBytes(int64(len(buf) * 8))

	for b.Loop() {
		s.ProcessBlock(buf)
	}
}
