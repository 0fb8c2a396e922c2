// Package memhost implements an in-memory audio host.
//
// Blocks are delivered synchronously by calling [Client.Process] (or
// [Client.Run] for whole signals), which makes it suitable for tests and
// offline rendering. Process and the activation lifecycle share one lock,
// so a callback is never invoked concurrently with Activate, Deactivate,
// or another block.
package memhost

import (
	"errors"
	"fmt"
	"sync"

	"github.com/cwbudde/algo-fuzzbox/dsp/core"
	"github.com/cwbudde/algo-fuzzbox/host"
	"github.com/cwbudde/algo-fuzzbox/host/internal/porttab"
)

// Client is an in-memory host client.
type Client struct {
	name string
	cfg  core.StreamConfig

	mu     sync.Mutex // guards ports and closed
	ports  *porttab.Table
	closed bool

	procMu      sync.Mutex // held for the duration of each block
	fn          host.ProcessFunc
	scope       scope
	activations int
	blocks      int
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

// New opens an in-memory client. Options set the reported sample rate and
// the maximum block length (defaults: 48 kHz, 256 frames).
func New(name string, opts ...core.StreamOption) (*Client, error) {
	if err := host.ValidateName(name); err != nil {
		return nil, err
	}

	cfg, err := core.NewStreamConfig(opts...)
	if err != nil {
		return nil, fmt.Errorf("memhost: %w", err)
	}

	ports := porttab.New(name, cfg.BlockSize)

	return &Client{
		name:  name,
		cfg:   cfg,
		ports: ports,
		scope: scope{ports: ports},
	}, nil
}

// Name returns the client name.
func (c *Client) Name() string { return c.name }

// SampleRate returns the configured sample rate.
func (c *Client) SampleRate() float64 { return c.cfg.SampleRate }

// BufferSize returns the maximum block length.
func (c *Client) BufferSize() int { return c.cfg.BlockSize }

// RegisterPort registers a port with the given short name and flags.
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

// Activate installs fn as the process callback.
func (c *Client) Activate(fn host.ProcessFunc) error {
	if fn == nil {
		return errors.New("memhost: nil process callback")
	}

	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()

	if closed {
		return host.ErrClosed
	}

	c.procMu.Lock()
	defer c.procMu.Unlock()

	if c.fn != nil {
		return host.ErrAlreadyActive
	}

	c.fn = fn
	c.activations++

	return nil
}

// Deactivate removes the installed callback. It waits for a running block
// to finish.
func (c *Client) Deactivate() error {
	c.procMu.Lock()
	defer c.procMu.Unlock()

	if c.fn == nil {
		return host.ErrNotActive
	}

	c.fn = nil

	return nil
}

// IsActive reports whether a callback is installed.
func (c *Client) IsActive() bool {
	c.procMu.Lock()
	defer c.procMu.Unlock()

	return c.fn != nil
}

// Process runs one block of the given length through the installed
// callback. Input port buffers hold whatever was last written with
// SetInput. A callback returning host.Quit is deactivated.
func (c *Client) Process(frames int) (host.Control, error) {
	c.procMu.Lock()
	defer c.procMu.Unlock()

	if c.fn == nil {
		return host.Quit, host.ErrNotActive
	}

	if frames < 0 || frames > c.cfg.BlockSize {
		return host.Quit, fmt.Errorf("memhost: block of %d frames outside [0, %d]", frames, c.cfg.BlockSize)
	}

	c.scope.frames = frames
	ctl := c.fn(&c.scope)
	c.blocks++

	if ctl == host.Quit {
		c.fn = nil
	}

	return ctl, nil
}

// SetInput writes samples into an input port buffer, zero-filling the
// remainder. name may be a short or full port name.
func (c *Client) SetInput(name string, samples []float32) error {
	c.mu.Lock()
	p, err := c.lookup(name)
	c.mu.Unlock()

	if err != nil {
		return err
	}

	if !p.Flags().IsInput() {
		return fmt.Errorf("memhost: %s is not an input port", p.Name())
	}

	if len(samples) > c.cfg.BlockSize {
		return fmt.Errorf("memhost: %d samples exceed buffer size %d", len(samples), c.cfg.BlockSize)
	}

	c.procMu.Lock()
	defer c.procMu.Unlock()

	buf := p.Buffer(c.cfg.BlockSize)
	n := copy(buf, samples)
	clear(buf[n:])

	return nil
}

// Output returns a copy of the first frames samples of a port buffer.
func (c *Client) Output(name string, frames int) ([]float32, error) {
	c.mu.Lock()
	p, err := c.lookup(name)
	c.mu.Unlock()

	if err != nil {
		return nil, err
	}

	frames = min(max(frames, 0), c.cfg.BlockSize)

	c.procMu.Lock()
	defer c.procMu.Unlock()

	return append([]float32(nil), p.Buffer(frames)...), nil
}

// Run feeds whole signals through the callback block by block and returns
// the collected signals of the requested output ports. Inputs are keyed by
// short or full port name; missing inputs are silent. The length of the
// longest input determines the number of frames rendered.
func (c *Client) Run(inputs map[string][]float32, outputs ...string) (map[string][]float32, error) {
	total := 0
	for _, sig := range inputs {
		total = max(total, len(sig))
	}

	result := make(map[string][]float32, len(outputs))
	for _, name := range outputs {
		result[name] = make([]float32, 0, total)
	}

	for off := 0; off < total; off += c.cfg.BlockSize {
		frames := min(c.cfg.BlockSize, total-off)

		for name, sig := range inputs {
			var chunk []float32
			if off < len(sig) {
				chunk = sig[off:min(off+frames, len(sig))]
			}

			if err := c.SetInput(name, chunk); err != nil {
				return nil, err
			}
		}

		if _, err := c.Process(frames); err != nil {
			return nil, err
		}

		for _, name := range outputs {
			out, err := c.Output(name, frames)
			if err != nil {
				return nil, err
			}

			result[name] = append(result[name], out...)
		}
	}

	return result, nil
}

// Activations returns how many times a callback has been installed.
func (c *Client) Activations() int {
	c.procMu.Lock()
	defer c.procMu.Unlock()

	return c.activations
}

// Blocks returns the number of blocks processed.
func (c *Client) Blocks() int {
	c.procMu.Lock()
	defer c.procMu.Unlock()

	return c.blocks
}

// Close deactivates the client and rejects further registrations.
func (c *Client) Close() error {
	c.procMu.Lock()
	c.fn = nil
	c.procMu.Unlock()

	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	return nil
}

func (c *Client) lookup(name string) (*porttab.Port, error) {
	if p := c.ports.Lookup(name); p != nil {
		return p, nil
	}

	if p := c.ports.Lookup(host.FullName(c.name, name)); p != nil {
		return p, nil
	}

	return nil, fmt.Errorf("%w: %s", host.ErrUnknownPort, name)
}
