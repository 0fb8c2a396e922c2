package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"github.com/cwbudde/algo-fuzzbox/config"
	"github.com/cwbudde/algo-fuzzbox/control"
	"github.com/cwbudde/algo-fuzzbox/engine"
	"github.com/cwbudde/algo-fuzzbox/engine/stage"
	"github.com/cwbudde/algo-fuzzbox/host"
	"github.com/cwbudde/algo-fuzzbox/host/otohost"
)

const controlInterval = 50 * time.Millisecond

// resolveConfig loads the config file, if any, and applies flag overrides.
func resolveConfig(o options) (config.Config, error) {
	cfg := config.Default()

	if o.configPath != "" {
		var err error

		cfg, err = config.Load(o.configPath)
		if err != nil {
			return config.Config{}, err
		}
	}

	cfg = applyOverrides(cfg, o)

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}

	return cfg, nil
}

func applyOverrides(cfg config.Config, o options) config.Config {
	cfg.Stage.Params = maps.Clone(cfg.Stage.Params)
	if cfg.Stage.Params == nil {
		cfg.Stage.Params = make(map[string]float64)
	}

	if o.client != "" {
		cfg.Client = o.client
	}

	if o.channels > 0 {
		cfg.Channels = o.channels
	}

	if o.topology != "" {
		cfg.Topology = o.topology
	}

	if o.stage != "" && o.stage != cfg.Stage.Type {
		cfg.Stage = config.Stage{Type: o.stage, Params: make(map[string]float64)}
	}

	if o.fuzz >= 0 {
		cfg.Stage.Params["fuzz"] = o.fuzz
	}

	if o.level >= 0 {
		cfg.Stage.Params["level"] = o.level
	}

	if o.bits > 0 {
		cfg.Stage.Params["bits"] = float64(o.bits)
	}

	return cfg
}

// clientName returns the host client name, optionally made unique.
func clientName(cfg config.Config, unique bool) string {
	if !unique {
		return cfg.Client
	}

	suffix := uuid.NewString()[:8]
	name := cfg.Client
	if len(name)+len(suffix)+1 > host.MaxNameLen {
		name = name[:host.MaxNameLen-len(suffix)-1]
	}

	return name + "-" + suffix
}

// app ties the controller to the config watcher and MIDI control.
type app struct {
	opts   options
	logger *slog.Logger
	reg    *stage.Registry
	ctl    *engine.Controller

	mu  sync.Mutex
	cfg config.Config
}

// start activates the channels as pass-through and then swaps in the
// configured stage.
func start(client host.Client, cfg config.Config, o options, logger *slog.Logger) (*app, error) {
	a := &app{
		opts:   o,
		logger: logger,
		reg:    stage.DefaultRegistry(),
		cfg:    cfg,
	}

	factory, err := cfg.Factory(a.reg)
	if err != nil {
		return nil, err
	}

	topo, err := cfg.TopologyValue()
	if err != nil {
		return nil, err
	}

	ctl, err := engine.New(client, engine.WithLogger(logger), engine.WithMaxBlockSize(client.BufferSize()))
	if err != nil {
		return nil, err
	}

	if err := ctl.Activate(topo, cfg.Channels, stage.PassThrough()); err != nil {
		return nil, err
	}

	if err := ctl.Reconfigure(factory); err != nil {
		return nil, errors.Join(err, ctl.Shutdown())
	}

	a.ctl = ctl
	logger.Info("stage installed", "stage", cfg.Stage)

	return a, nil
}

// applyConfig handles a reloaded config file.
func (a *app) applyConfig(cfg config.Config) {
	cfg = applyOverrides(cfg, a.opts)
	if err := cfg.Validate(); err != nil {
		a.logger.Warn("ignoring config with overrides applied", "error", err)
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.cfg.NeedsRestart(cfg) {
		a.logger.Warn("client, channel or topology changes take effect after restart")
	}

	if a.cfg.StageEqual(cfg) {
		return
	}

	if err := a.swapLocked(cfg.Stage); err != nil {
		a.logger.Error("applying config stage", "error", err)
	}
}

// applyControl handles coalesced MIDI values.
func (a *app) applyControl(v control.Values) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	p := v.Apply(a.cfg.StageParams())

	err := a.swapLocked(config.Stage{Type: p.Type, Params: p.Num})
	if errors.Is(err, engine.ErrInvalidState) {
		return err
	}

	if err != nil {
		a.logger.Warn("applying midi control", "error", err)
	}

	return nil
}

func (a *app) swapLocked(s config.Stage) error {
	f, err := a.reg.Build(stage.Params{Type: s.Type, Num: s.Params})
	if err != nil {
		return err
	}

	if err := a.ctl.Reconfigure(f); err != nil {
		return err
	}

	a.cfg.Stage = s
	a.logger.Info("stage swapped", "stage", s)

	return nil
}

func (a *app) stageValues() control.Values {
	a.mu.Lock()
	defer a.mu.Unlock()

	p := a.cfg.StageParams()

	return control.Values{
		Fuzz:  p.GetNum("fuzz", stage.DefaultFuzz),
		Level: p.GetNum("level", stage.DefaultLevel),
	}
}

func (a *app) meter(ctx context.Context, every time.Duration) error {
	t := time.NewTicker(every)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			for _, p := range a.ctl.Peaks() {
				a.logger.Debug("peak", "channel", p.Channel, "db", fmt.Sprintf("%.1f", p.DB))
			}
		}
	}
}

// promptQuit cancels once Enter is read from an interactive stdin.
func promptQuit(cancel context.CancelFunc) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return
	}

	fmt.Fprintln(os.Stderr, "press Enter to quit")

	go func() {
		_, _ = bufio.NewReader(os.Stdin).ReadString('\n')
		cancel()
	}()
}

func run(ctx context.Context, o options) error {
	cfg, err := resolveConfig(o)
	if err != nil {
		return err
	}

	if o.response > 0 {
		return printResponse(cfg, o, os.Stdout)
	}

	name := clientName(cfg, o.unique)

	if o.offline > 0 {
		return renderOffline(ctx, name, cfg, o, os.Stdout)
	}

	client, err := otohost.New(name,
		otohost.WithSampleRate(o.sampleRate),
		otohost.WithBufferSize(o.bufferSize),
		otohost.WithSource(otohost.NewTone(o.toneHz, o.toneAmp, float64(o.sampleRate))),
	)
	if err != nil {
		return err
	}
	defer client.Close()

	a, err := start(client, cfg, o, logger.With("client", name))
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	promptQuit(cancel)

	g, gctx := errgroup.WithContext(ctx)

	if o.configPath != "" {
		g.Go(func() error {
			return config.Watch(gctx, o.configPath, a.logger, a.applyConfig)
		})
	}

	if o.midiPort != "" {
		mapper, err := control.NewMapper(a.stageValues(), control.WithChannel(o.midiCh))
		if err != nil {
			cancel()
			return errors.Join(err, a.ctl.Shutdown())
		}

		g.Go(func() error {
			return control.Listen(gctx, o.midiPort, mapper, a.logger)
		})
		g.Go(func() error {
			return control.Coalesce(gctx, mapper, controlInterval, a.applyControl)
		})
	}

	if o.meter > 0 {
		g.Go(func() error { return a.meter(gctx, o.meter) })
	}

	g.Go(func() error {
		<-gctx.Done()
		return nil
	})

	err = g.Wait()

	return errors.Join(err, a.ctl.Shutdown())
}
