package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/cwbudde/algo-fuzzbox/engine/channel"
	"github.com/cwbudde/algo-fuzzbox/engine/stage"
	"github.com/cwbudde/algo-fuzzbox/host"
)

var (
	// ErrInvalidState is returned for transitions not allowed in the
	// current state, including any transition after Shutdown.
	ErrInvalidState = errors.New("engine: invalid state")
	// ErrNilFactory is returned when a nil stage factory is passed.
	ErrNilFactory = errors.New("engine: nil stage factory")
)

// State is the controller state.
type State int

const (
	// Idle means no callback is installed.
	Idle State = iota
	// Live means a callback is installed and receives blocks.
	Live
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Live:
		return "live"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Peak is the absolute peak of a channel's last processed block. NaN
// samples do not count towards the peak.
type Peak struct {
	Channel channel.ID
	Linear  float64
	DB      float64
}

// Controller drives the channel engine of one host client. Its methods
// are safe for concurrent use and serialize against each other.
type Controller struct {
	mu sync.Mutex

	client   host.Client
	registry *channel.Registry
	logger   *slog.Logger
	maxBlock int

	state  State
	closed bool
	proc   *processor
}

// New creates an idle controller for client.
func New(client host.Client, opts ...Option) (*Controller, error) {
	if client == nil {
		return nil, errors.New("engine: nil host client")
	}

	cfg := config{logger: slog.Default()}
	for _, opt := range opts {
		if opt == nil {
			continue
		}

		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if cfg.maxBlockSize == 0 {
		cfg.maxBlockSize = client.BufferSize()
		if cfg.maxBlockSize < 1 {
			cfg.maxBlockSize = defaultMaxBlockSize
		}
	}

	return &Controller{
		client:   client,
		registry: channel.NewRegistry(client),
		logger:   cfg.logger.With("client", client.Name()),
		maxBlock: cfg.maxBlockSize,
	}, nil
}

// Activate registers n channels with the given topology and installs a
// callback running one stage from factory per channel. Existing ports of
// the client are removed first. On failure the controller stays Idle with
// no channel ports registered; an unsupported topology is rejected before
// any port is touched.
func (c *Controller) Activate(topo channel.Topology, n int, factory stage.Factory) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || c.state != Idle {
		return fmt.Errorf("%w: activate while %s", ErrInvalidState, c.describe())
	}

	if factory == nil {
		return ErrNilFactory
	}

	if !topo.Supported() {
		return fmt.Errorf("engine: activate: %w: %s", channel.ErrUnsupportedTopology, topo)
	}

	if err := c.registry.Reset(); err != nil {
		return fmt.Errorf("engine: activate: %w", err)
	}

	if err := c.registry.Materialize(n, topo); err != nil {
		return fmt.Errorf("engine: activate: %w", err)
	}

	for _, id := range c.registry.Identities() {
		c.logger.Debug("registered channel", "channel", id.ID, "input", id.InputName, "output", id.OutputName)
	}

	stages, err := c.buildStages(factory)
	if err != nil {
		c.abandon()
		return fmt.Errorf("engine: activate: %w", err)
	}

	if err := c.install(stages); err != nil {
		c.abandon()
		return fmt.Errorf("engine: activate: %w", err)
	}

	c.state = Live
	c.logger.Info("engine live", "topology", topo, "channels", n)

	return nil
}

// Reconfigure replaces the stage of every channel with one built by
// factory. Channel identities and ports are kept. New stages are built
// before the running callback is stopped, so a failing factory leaves the
// engine running unchanged.
//
// If the host refuses the new callback the controller drops to Idle with
// its ports still registered; Activate starts over.
func (c *Controller) Reconfigure(factory stage.Factory) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || c.state != Live {
		return fmt.Errorf("%w: reconfigure while %s", ErrInvalidState, c.describe())
	}

	if factory == nil {
		return ErrNilFactory
	}

	stages, err := c.buildStages(factory)
	if err != nil {
		return fmt.Errorf("engine: reconfigure: %w", err)
	}

	if err := c.client.Deactivate(); err != nil && !errors.Is(err, host.ErrNotActive) {
		return fmt.Errorf("engine: reconfigure: deactivate: %w", err)
	}

	if err := c.reclaim(); err != nil {
		c.state = Idle
		return fmt.Errorf("engine: reconfigure: %w", err)
	}

	if err := c.install(stages); err != nil {
		c.state = Idle
		c.logger.Error("reconfigure failed, engine idle", "error", err)

		return fmt.Errorf("engine: reconfigure: %w", err)
	}

	c.logger.Info("engine reconfigured", "channels", len(stages))

	return nil
}

// Shutdown stops the callback and unregisters all ports. The controller
// cannot be used afterwards.
//
// If the host fails to stop the callback, Shutdown returns that error and
// changes nothing: the engine stays Live and Shutdown may be retried.
func (c *Controller) Shutdown() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return fmt.Errorf("%w: already shut down", ErrInvalidState)
	}

	if c.state == Live {
		if err := c.client.Deactivate(); err != nil && !errors.Is(err, host.ErrNotActive) {
			return fmt.Errorf("engine: shutdown: deactivate: %w", err)
		}
	}

	var errs []error

	if err := c.reclaim(); err != nil {
		errs = append(errs, err)
	}

	if err := c.registry.Reset(); err != nil {
		errs = append(errs, err)
	}

	c.state = Idle
	c.closed = true
	c.proc = nil
	c.logger.Info("engine shut down")

	if len(errs) > 0 {
		return fmt.Errorf("engine: shutdown: %w", errors.Join(errs...))
	}

	return nil
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state
}

// Closed reports whether Shutdown has been called.
func (c *Controller) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.closed
}

// Identities returns the channel identities ordered by ID.
func (c *Controller) Identities() []channel.Identity {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.registry.Identities()
}

// Peaks returns the per-channel peak of the last processed block. It is
// empty while Idle.
func (c *Controller) Peaks() []Peak {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.proc == nil {
		return nil
	}

	return c.proc.peaks()
}

// MaxBlockSize returns the work buffer length.
func (c *Controller) MaxBlockSize() int { return c.maxBlock }

func (c *Controller) describe() string {
	if c.closed {
		return "shut down"
	}

	return c.state.String()
}

func (c *Controller) buildStages(factory stage.Factory) ([]stage.Stage, error) {
	ids := c.registry.Identities()
	stages := make([]stage.Stage, len(ids))

	for i, id := range ids {
		s, err := stage.Build(factory, stage.Context{
			Channel:    id.ID,
			SampleRate: c.client.SampleRate(),
		})
		if err != nil {
			return nil, err
		}

		stages[i] = s
	}

	return stages, nil
}

// install moves the registry's resources into a new processor and hands
// its callback to the host. On failure the resources go back to the
// registry.
func (c *Controller) install(stages []stage.Stage) error {
	res := c.registry.TakeResources()
	if len(res) != len(stages) {
		_ = c.registry.Return(res)
		return fmt.Errorf("engine: %d channel resources for %d stages", len(res), len(stages))
	}

	proc := newProcessor(res, stages, c.maxBlock)

	if err := c.client.Activate(proc.process); err != nil {
		_ = c.registry.Return(proc.release())
		return err
	}

	c.proc = proc

	return nil
}

// reclaim returns the resources of the deactivated processor.
func (c *Controller) reclaim() error {
	if c.proc == nil {
		return nil
	}

	res := c.proc.release()
	c.proc = nil

	return c.registry.Return(res)
}

// abandon undoes a partial activation.
func (c *Controller) abandon() {
	if err := c.registry.Reset(); err != nil {
		c.logger.Warn("reset after failed activation", "error", err)
	}
}
