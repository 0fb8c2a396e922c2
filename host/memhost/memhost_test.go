package memhost

import (
	"errors"
	"testing"

	"github.com/cwbudde/algo-fuzzbox/dsp/core"
	"github.com/cwbudde/algo-fuzzbox/host"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()

	c, err := New("test", core.WithSampleRate(44100), core.WithBlockSize(4))
	if err != nil {
		t.Fatal(err)
	}

	return c
}

func TestNewValidatesName(t *testing.T) {
	for _, name := range []string{"", "a:b"} {
		if _, err := New(name); !errors.Is(err, host.ErrInvalidName) {
			t.Errorf("New(%q) err = %v, want ErrInvalidName", name, err)
		}
	}

	if _, err := New("test", core.WithBlockSize(0)); err == nil {
		t.Error("zero block size accepted")
	}
}

func TestClientConfig(t *testing.T) {
	c := newTestClient(t)
	if c.Name() != "test" || c.SampleRate() != 44100 || c.BufferSize() != 4 {
		t.Fatalf("unexpected config: %s %v %d", c.Name(), c.SampleRate(), c.BufferSize())
	}
}

func TestLifecycle(t *testing.T) {
	c := newTestClient(t)
	noop := func(host.Scope) host.Control { return host.Continue }

	if err := c.Deactivate(); !errors.Is(err, host.ErrNotActive) {
		t.Fatalf("Deactivate while idle err = %v", err)
	}

	if _, err := c.Process(4); !errors.Is(err, host.ErrNotActive) {
		t.Fatalf("Process while idle err = %v", err)
	}

	if err := c.Activate(nil); err == nil {
		t.Fatal("Activate(nil) should fail")
	}

	if err := c.Activate(noop); err != nil {
		t.Fatal(err)
	}

	if err := c.Activate(noop); !errors.Is(err, host.ErrAlreadyActive) {
		t.Fatalf("second Activate err = %v", err)
	}

	if !c.IsActive() || c.Activations() != 1 {
		t.Fatalf("IsActive=%v Activations=%d", c.IsActive(), c.Activations())
	}

	if _, err := c.Process(5); err == nil {
		t.Fatal("oversized block should fail")
	}

	if err := c.Deactivate(); err != nil {
		t.Fatal(err)
	}

	if err := c.Close(); err != nil {
		t.Fatal(err)
	}

	if err := c.Activate(noop); !errors.Is(err, host.ErrClosed) {
		t.Fatalf("Activate after Close err = %v", err)
	}

	if _, err := c.RegisterPort("x", host.FlagInput); !errors.Is(err, host.ErrClosed) {
		t.Fatalf("RegisterPort after Close err = %v", err)
	}
}

func TestQuitDeactivates(t *testing.T) {
	c := newTestClient(t)
	if err := c.Activate(func(host.Scope) host.Control { return host.Quit }); err != nil {
		t.Fatal(err)
	}

	ctl, err := c.Process(2)
	if err != nil || ctl != host.Quit {
		t.Fatalf("Process = %v, %v", ctl, err)
	}

	if c.IsActive() {
		t.Fatal("callback still installed after Quit")
	}
}

func TestProcessCopiesThroughPorts(t *testing.T) {
	c := newTestClient(t)
	in, _ := c.RegisterPort("in", host.FlagInput)
	out, _ := c.RegisterPort("out", host.FlagOutput)

	var foreign host.Port
	other, _ := New("other")
	foreign, _ = other.RegisterPort("in", host.FlagInput)

	err := c.Activate(func(s host.Scope) host.Control {
		if s.Buffer(foreign) != nil {
			panic("foreign port resolved")
		}

		src, dst := s.Buffer(in), s.Buffer(out)
		for i := range dst {
			dst[i] = 2 * src[i]
		}

		return host.Continue
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := c.SetInput("in", []float32{1, 2, 3}); err != nil {
		t.Fatal(err)
	}

	if _, err := c.Process(4); err != nil {
		t.Fatal(err)
	}

	got, err := c.Output("test:out", 4)
	if err != nil {
		t.Fatal(err)
	}

	want := []float32{2, 4, 6, 0}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("out = %v, want %v", got, want)
		}
	}

	if err := c.SetInput("out", nil); err == nil {
		t.Fatal("SetInput on an output port should fail")
	}

	if err := c.SetInput("missing", nil); !errors.Is(err, host.ErrUnknownPort) {
		t.Fatalf("SetInput(missing) err = %v", err)
	}
}

func TestRunChunksSignals(t *testing.T) {
	c := newTestClient(t)
	in, _ := c.RegisterPort("in", host.FlagInput)
	out, _ := c.RegisterPort("out", host.FlagOutput)

	_ = c.Activate(func(s host.Scope) host.Control {
		copy(s.Buffer(out), s.Buffer(in))
		return host.Continue
	})

	sig := []float32{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}

	res, err := c.Run(map[string][]float32{"in": sig}, "out")
	if err != nil {
		t.Fatal(err)
	}

	got := res["out"]
	if len(got) != len(sig) {
		t.Fatalf("len = %d, want %d", len(got), len(sig))
	}

	for i := range sig {
		if got[i] != sig[i] {
			t.Fatalf("out = %v, want %v", got, sig)
		}
	}

	if c.Blocks() != 3 {
		t.Fatalf("Blocks() = %d, want 3", c.Blocks())
	}
}

func TestPortQueries(t *testing.T) {
	c := newTestClient(t)
	p, _ := c.RegisterPort("input_port_1", host.FlagInput)
	_, _ = c.RegisterPort("output_port_1", host.FlagOutput)

	names, err := c.Ports(`^test:.*`)
	if err != nil || len(names) != 2 {
		t.Fatalf("Ports = %v, %v", names, err)
	}

	if c.PortByName("test:input_port_1") != p {
		t.Fatal("PortByName mismatch")
	}

	if c.PortByName("test:nope") != nil {
		t.Fatal("PortByName should return a nil interface for missing ports")
	}

	if err := c.UnregisterPort(p); err != nil {
		t.Fatal(err)
	}

	if _, err := c.RegisterPort("input_port_1", host.FlagInput); err != nil {
		t.Fatalf("re-register after unregister: %v", err)
	}
}
