package otohost

import (
	"encoding/binary"
	"errors"
	"math"
	"sync"

	"github.com/cwbudde/algo-fuzzbox/dsp/core"
	"github.com/cwbudde/algo-fuzzbox/host"
	"github.com/cwbudde/algo-fuzzbox/host/internal/porttab"
	"github.com/cwbudde/algo-vecmath"
)

const bytesPerSample = 4

// device pulls rendered audio from a reader until closed.
type device interface {
	start(r *reader) error
	close() error
}

// Client is a host client backed by the audio device.
type Client struct {
	name string
	cfg  config

	mu     sync.Mutex // guards ports and closed
	ports  *porttab.Table
	closed bool

	procMu  sync.Mutex // held while a block renders
	fn      host.ProcessFunc
	inputs  []*porttab.Port
	outputs []*porttab.Port
	scope   scope
	src     []float32
	mix     []float64
	tmp     []float64
	blocks  uint64

	dev device
}

type scope struct {
	ports  *porttab.Table
	frames int
}

func (s *scope) Frames() int { return s.frames }

func (s *scope) Buffer(port host.Port) []float32 {
	p, ok := s.ports.Owns(port)
	if !ok {
		return nil
	}

	return p.Buffer(s.frames)
}

var _ host.Client = (*Client)(nil)

// New opens the audio device and returns a client that renders silence
// until a callback is activated.
func New(name string, opts ...Option) (*Client, error) {
	if err := host.ValidateName(name); err != nil {
		return nil, err
	}

	cfg := config{
		sampleRate: defaultSampleRate,
		bufferSize: defaultBufferSize,
	}

	for _, opt := range opts {
		if opt == nil {
			continue
		}

		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if cfg.source == nil {
		cfg.source = NewTone(defaultToneHz, defaultToneAmp, float64(cfg.sampleRate))
	}

	if cfg.dev == nil {
		cfg.dev = newDevice(cfg.sampleRate, cfg.bufferSize)
	}

	ports := porttab.New(name, cfg.bufferSize)
	c := &Client{
		name:  name,
		cfg:   cfg,
		ports: ports,
		scope: scope{ports: ports},
		src:   make([]float32, cfg.bufferSize),
		mix:   make([]float64, cfg.bufferSize),
		tmp:   make([]float64, cfg.bufferSize),
		dev:   cfg.dev,
	}

	if err := c.dev.start(&reader{c: c}); err != nil {
		return nil, err
	}

	return c, nil
}

// Name returns the client name.
func (c *Client) Name() string { return c.name }

// SampleRate returns the device sample rate.
func (c *Client) SampleRate() float64 { return float64(c.cfg.sampleRate) }

// BufferSize returns the maximum block length.
func (c *Client) BufferSize() int { return c.cfg.bufferSize }

// RegisterPort registers a port. Ports registered while a callback is
// active are delivered from the next activation on.
func (c *Client) RegisterPort(shortName string, flags host.PortFlags) (host.Port, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, host.ErrClosed
	}

	p, err := c.ports.Register(shortName, flags)
	if err != nil {
		return nil, err
	}

	return p, nil
}

// UnregisterPort removes a port.
func (c *Client) UnregisterPort(port host.Port) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.ports.Unregister(port)
}

// Ports returns full port names matching pattern.
func (c *Client) Ports(pattern string) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.ports.Match(pattern)
}

// PortByName returns the port with the given full name, or nil.
func (c *Client) PortByName(name string) host.Port {
	c.mu.Lock()
	defer c.mu.Unlock()

	if p := c.ports.Lookup(name); p != nil {
		return p
	}

	return nil
}

// Activate installs fn. The input and output ports registered at this
// point are the ones the block loop feeds and mixes.
func (c *Client) Activate(fn host.ProcessFunc) error {
	if fn == nil {
		return errors.New("otohost: nil process callback")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return host.ErrClosed
	}

	var inputs, outputs []*porttab.Port

	for _, p := range c.ports.Ports() {
		if p.Flags().IsInput() {
			inputs = append(inputs, p)
		} else {
			outputs = append(outputs, p)
		}
	}

	c.procMu.Lock()
	defer c.procMu.Unlock()

	if c.fn != nil {
		return host.ErrAlreadyActive
	}

	c.fn = fn
	c.inputs = inputs
	c.outputs = outputs

	return nil
}

// Deactivate removes the callback, waiting for a running block to finish.
func (c *Client) Deactivate() error {
	c.procMu.Lock()
	defer c.procMu.Unlock()

	if c.fn == nil {
		return host.ErrNotActive
	}

	c.fn = nil
	c.inputs = nil
	c.outputs = nil

	return nil
}

// IsActive reports whether a callback is installed.
func (c *Client) IsActive() bool {
	c.procMu.Lock()
	defer c.procMu.Unlock()

	return c.fn != nil
}

// Blocks returns the number of blocks rendered through a callback.
func (c *Client) Blocks() uint64 {
	c.procMu.Lock()
	defer c.procMu.Unlock()

	return c.blocks
}

// Close stops the device and the callback.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}

	c.closed = true
	c.mu.Unlock()

	err := c.dev.close()

	c.procMu.Lock()
	c.fn = nil
	c.procMu.Unlock()

	return err
}

// render fills out with the next len(out) mono samples.
func (c *Client) render(out []float32) {
	c.procMu.Lock()
	defer c.procMu.Unlock()

	for off := 0; off < len(out); off += c.cfg.bufferSize {
		end := min(off+c.cfg.bufferSize, len(out))
		c.renderBlock(out[off:end])
	}
}

func (c *Client) renderBlock(out []float32) {
	frames := len(out)

	if c.fn == nil {
		clear(out)
		return
	}

	src := c.src[:frames]
	c.cfg.source.Fill(src)

	for _, p := range c.inputs {
		copy(p.Buffer(frames), src)
	}

	c.scope.frames = frames
	ctl := c.fn(&c.scope)
	c.blocks++

	mix := c.mix[:frames]
	clear(mix)

	if len(c.outputs) > 0 {
		tmp := c.tmp[:frames]

		for _, p := range c.outputs {
			core.Widen(tmp, p.Buffer(frames))
			vecmath.AddBlockInPlace(mix, tmp)
		}

		gain := c.cfg.gain
		if !c.cfg.gainSet {
			gain = 1 / float64(len(c.outputs))
		}

		vecmath.ScaleBlockInPlace(mix, gain)
	}

	core.Narrow(out, mix)

	if ctl == host.Quit {
		c.fn = nil
		c.inputs = nil
		c.outputs = nil
	}
}

// reader encodes rendered blocks as 32-bit little-endian float PCM.
type reader struct {
	c   *Client
	buf []float32
}

func (r *reader) Read(p []byte) (int, error) {
	frames := len(p) / bytesPerSample
	if frames == 0 {
		return 0, nil
	}

	if cap(r.buf) < frames {
		r.buf = make([]float32, frames)
	}

	samples := r.buf[:frames]
	r.c.render(samples)

	for i, s := range samples {
		binary.LittleEndian.PutUint32(p[i*bytesPerSample:], math.Float32bits(s))
	}

	return frames * bytesPerSample, nil
}
