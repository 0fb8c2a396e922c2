package otohost

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/cwbudde/algo-fuzzbox/host"
)

type nopDevice struct {
	r      *reader
	closed bool
}

func (d *nopDevice) start(r *reader) error { d.r = r; return nil }
func (d *nopDevice) close() error        { d.closed = true; return nil }

func newTestClient(t *testing.T, opts ...Option) (*Client, *nopDevice) {
	t.Helper()

	dev := &nopDevice{}

	c, err := New("oto", append([]Option{withDevice(dev), WithBufferSize(8)}, opts...)...)
	if err != nil {
		t.Fatal(err)
	}

	return c, dev
}

func pull(t *testing.T, dev *nopDevice, frames int) []float32 {
	t.Helper()

	p := make([]byte, frames*bytesPerSample)

	n, err := dev.r.Read(p)
	if err != nil || n != len(p) {
		t.Fatalf("Read = %d, %v", n, err)
	}

	out := make([]float32, frames)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(p[i*bytesPerSample:]))
	}

	return out
}

func TestSilentWhileInactive(t *testing.T) {
	_, dev := newTestClient(t, WithSource(SourceFunc(func(buf []float32) {
		for i := range buf {
			buf[i] = 1
		}
	})))

	for i, v := range pull(t, dev, 20) {
		if v != 0 {
			t.Fatalf("sample %d = %v, want silence", i, v)
		}
	}
}

func TestRenderFeedsInputsAndMixesOutputs(t *testing.T) {
	ones := SourceFunc(func(buf []float32) {
		for i := range buf {
			buf[i] = 1
		}
	})
	c, dev := newTestClient(t, WithSource(ones))

	in, _ := c.RegisterPort("in", host.FlagInput)
	outA, _ := c.RegisterPort("a", host.FlagOutput)
	outB, _ := c.RegisterPort("b", host.FlagOutput)

	var maxFrames int

	err := c.Activate(func(s host.Scope) host.Control {
		maxFrames = max(maxFrames, s.Frames())

		src := s.Buffer(in)
		a, b := s.Buffer(outA), s.Buffer(outB)

		for i := range src {
			a[i] = 2 * src[i]
			b[i] = 4 * src[i]
		}

		return host.Continue
	})
	if err != nil {
		t.Fatal(err)
	}

	for i, v := range pull(t, dev, 20) {
		if v != 3 {
			t.Fatalf("sample %d = %v, want 3", i, v)
		}
	}

	if maxFrames != 8 {
		t.Fatalf("largest block = %d, want 8", maxFrames)
	}

	if c.Blocks() != 3 {
		t.Fatalf("Blocks() = %d, want 3", c.Blocks())
	}
}

func TestGainOption(t *testing.T) {
	c, dev := newTestClient(t, WithGain(0.5), WithSource(SourceFunc(func(buf []float32) {
		for i := range buf {
			buf[i] = 1
		}
	})))

	in, _ := c.RegisterPort("in", host.FlagInput)
	out, _ := c.RegisterPort("out", host.FlagOutput)

	_ = c.Activate(func(s host.Scope) host.Control {
		copy(s.Buffer(out), s.Buffer(in))
		return host.Continue
	})

	if got := pull(t, dev, 4); got[0] != 0.5 {
		t.Fatalf("sample = %v, want 0.5", got[0])
	}
}

func TestLifecycleErrors(t *testing.T) {
	c, dev := newTestClient(t)
	fn := func(host.Scope) host.Control { return host.Quit }

	if err := c.Deactivate(); !errors.Is(err, host.ErrNotActive) {
		t.Fatalf("Deactivate err = %v", err)
	}

	if err := c.Activate(fn); err != nil {
		t.Fatal(err)
	}

	if err := c.Activate(fn); !errors.Is(err, host.ErrAlreadyActive) {
		t.Fatalf("second Activate err = %v", err)
	}

	pull(t, dev, 4)

	if c.IsActive() {
		t.Fatal("Quit did not deactivate")
	}

	if err := c.Close(); err != nil || !dev.closed {
		t.Fatalf("Close = %v, device closed %v", err, dev.closed)
	}

	if err := c.Activate(fn); !errors.Is(err, host.ErrClosed) {
		t.Fatalf("Activate after Close err = %v", err)
	}
}

func TestOptionValidation(t *testing.T) {
	for name, opt := range map[string]Option{
		"rate":   WithSampleRate(10),
		"buffer": WithBufferSize(0),
		"gain":   WithGain(-1),
		"source": WithSource(nil),
	} {
		if _, err := New("oto", withDevice(&nopDevice{}), opt); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestToneIsContinuousAcrossBlocks(t *testing.T) {
	whole := make([]float32, 64)
	NewTone(1000, 0.5, 48000).Fill(whole)

	split := make([]float32, 64)
	tone := NewTone(1000, 0.5, 48000)
	tone.Fill(split[:20])
	tone.Fill(split[20:])

	for i := range whole {
		if math.Abs(float64(whole[i]-split[i])) > 1e-6 {
			t.Fatalf("sample %d: %v vs %v", i, whole[i], split[i])
		}
	}

	if whole[0] != 0 || math.Abs(float64(whole[12])-0.5) > 1e-6 {
		t.Fatalf("unexpected tone samples %v %v", whole[0], whole[12])
	}
}

func TestReadZeroAlloc(t *testing.T) {
	c, dev := newTestClient(t)
	in, _ := c.RegisterPort("in", host.FlagInput)
	out, _ := c.RegisterPort("out", host.FlagOutput)

	_ = c.Activate(func(s host.Scope) host.Control {
		copy(s.Buffer(out), s.Buffer(in))
		return host.Continue
	})

	p := make([]byte, 64*bytesPerSample)
	_, _ = dev.r.Read(p)

	allocs := testing.AllocsPerRun(50, func() {
		_, _ = dev.r.Read(p)
	})
	if allocs != 0 {
		t.Fatalf("Read allocated %.1f times", allocs)
	}
}
