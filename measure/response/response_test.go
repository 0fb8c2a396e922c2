package response

import (
	"math"
	"testing"

	"github.com/cwbudde/algo-fuzzbox/engine/stage"
)

const fs = 48000

func build(t *testing.T, f stage.Factory) stage.Stage {
	t.Helper()

	s, err := stage.Build(f, stage.Context{Channel: 1, SampleRate: fs})
	if err != nil {
		t.Fatal(err)
	}

	return s
}

type average struct{ prev float64 }

func (a *average) Process(b []float64) {
	for i, x := range b {
		b[i] = 0.5 * (x + a.prev)
		a.prev = x
	}
}

func TestPassThroughIsFlat(t *testing.T) {
	res, err := Measure(build(t, stage.PassThrough()), fs, 256)
	if err != nil {
		t.Fatal(err)
	}

	if len(res.Freqs) != 129 || res.Freqs[128] != fs/2 {
		t.Fatalf("bins = %d, last = %v", len(res.Freqs), res.Freqs[len(res.Freqs)-1])
	}

	for k, db := range res.MagnitudeDB {
		if math.Abs(db) > 1e-9 {
			t.Fatalf("bin %d = %v dB, want 0", k, db)
		}
	}
}

func TestTwoTapAverage(t *testing.T) {
	res, err := Measure(&average{}, fs, 1024)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		freq float64
		want float64
	}{
		{0, 0},
		{fs / 4, 20 * math.Log10(math.Sqrt2/2)},
		{fs / 8, 20 * math.Log10(math.Cos(math.Pi/8))},
	}

	for _, tt := range tests {
		if got := res.At(tt.freq); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("At(%v) = %v dB, want %v", tt.freq, got, tt.want)
		}
	}

	if !math.IsInf(res.MagnitudeDB[len(res.MagnitudeDB)-1], -1) && res.MagnitudeDB[len(res.MagnitudeDB)-1] > -200 {
		t.Errorf("Nyquist = %v dB, want a null", res.MagnitudeDB[len(res.MagnitudeDB)-1])
	}
}

func TestFuzzFaceResonatesAtThirdOfSampleRate(t *testing.T) {
	const size = 4096

	res, err := Measure(build(t, stage.FuzzFace()), fs, size)
	if err != nil {
		t.Fatal(err)
	}

	freq, _ := res.Peak()
	binHz := float64(fs) / size

	if math.Abs(freq-fs/3) > 2*binHz {
		t.Fatalf("peak at %v Hz, want near %v Hz", freq, fs/3.0)
	}
}

func TestMeasureRejects(t *testing.T) {
	p := &average{}

	for _, size := range []int{0, 1, 3, 100} {
		if _, err := Measure(p, fs, size); err == nil {
			t.Errorf("size %d accepted", size)
		}
	}

	if _, err := Measure(p, 0, 64); err == nil {
		t.Error("zero sample rate accepted")
	}

	if _, err := Measure(nil, fs, 64); err == nil {
		t.Error("nil processor accepted")
	}
}

func TestBinClamps(t *testing.T) {
	res, _ := Measure(&average{}, fs, 64)

	if res.Bin(-100) != 0 || res.Bin(1e9) != 32 {
		t.Fatalf("Bin clamping failed: %d %d", res.Bin(-100), res.Bin(1e9))
	}
}
