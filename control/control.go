// Package control maps MIDI control change messages onto the fuzz and
// level parameters and batches them into engine reconfigurations.
//
// A CC value v in 0..127 maps linearly to v/127. Because every parameter
// change builds a new effect model, changes are coalesced: a [Mapper]
// records the latest values and [Coalesce] applies them at most once per
// interval.
package control

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"gitlab.com/gomidi/midi/v2"

	"github.com/cwbudde/algo-fuzzbox/engine/stage"
)

// Default controller numbers. 20 and 21 are undefined in the General MIDI
// controller list.
const (
	DefaultFuzzCC  = 20
	DefaultLevelCC = 21

	// AnyChannel makes a mapper accept messages on every MIDI channel.
	AnyChannel = -1
)

// Values are the pedal controls, each in [0, 1].
type Values struct {
	Fuzz  float64
	Level float64
}

// Apply returns p with the fuzz and level parameters set to v.
func (v Values) Apply(p stage.Params) stage.Params {
	return p.With("fuzz", v.Fuzz).With("level", v.Level)
}

// CCValue maps a 7-bit controller value to [0, 1].
func CCValue(v uint8) float64 {
	return float64(min(v, 127)) / 127
}

type config struct {
	channel int
	fuzzCC  uint8
	levelCC uint8
}

// Option configures a [Mapper].
type Option func(*config) error

// WithChannel restricts the mapper to one MIDI channel (0-15).
func WithChannel(ch int) Option {
	return func(cfg *config) error {
		if ch != AnyChannel && (ch < 0 || ch > 15) {
			return fmt.Errorf("control: midi channel must be in [0, 15]: %d", ch)
		}

		cfg.channel = ch

		return nil
	}
}

// WithControllers sets the controller numbers for fuzz and level.
func WithControllers(fuzzCC, levelCC int) Option {
	return func(cfg *config) error {
		if fuzzCC < 0 || fuzzCC > 127 || levelCC < 0 || levelCC > 127 {
			return fmt.Errorf("control: controller numbers must be in [0, 127]: %d, %d", fuzzCC, levelCC)
		}

		if fuzzCC == levelCC {
			return errors.New("control: fuzz and level need distinct controllers")
		}

		cfg.fuzzCC = uint8(fuzzCC)
		cfg.levelCC = uint8(levelCC)

		return nil
	}
}

// Mapper tracks the control values set by incoming MIDI messages. It is
// safe for concurrent use.
type Mapper struct {
	cfg config

	mu      sync.Mutex
	values  Values
	pending bool
}

// NewMapper returns a mapper starting at initial.
func NewMapper(initial Values, opts ...Option) (*Mapper, error) {
	cfg := config{channel: AnyChannel, fuzzCC: DefaultFuzzCC, levelCC: DefaultLevelCC}

	for _, opt := range opts {
		if opt == nil {
			continue
		}

		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if !inUnit(initial.Fuzz) || !inUnit(initial.Level) {
		return nil, fmt.Errorf("control: initial values must be in [0, 1]: %+v", initial)
	}

	return &Mapper{cfg: cfg, values: initial}, nil
}

func inUnit(x float64) bool { return x >= 0 && x <= 1 }

// Handle applies msg and reports whether it was a mapped control change.
func (m *Mapper) Handle(msg midi.Message) bool {
	var ch, cc, val uint8
	if !msg.GetControlChange(&ch, &cc, &val) {
		return false
	}

	if m.cfg.channel != AnyChannel && int(ch) != m.cfg.channel {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	switch cc {
	case m.cfg.fuzzCC:
		m.values.Fuzz = CCValue(val)
	case m.cfg.levelCC:
		m.values.Level = CCValue(val)
	default:
		return false
	}

	m.pending = true

	return true
}

// Values returns the current values.
func (m *Mapper) Values() Values {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.values
}

// Take returns the current values and whether they changed since the
// last Take.
func (m *Mapper) Take() (Values, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	changed := m.pending
	m.pending = false

	return m.values, changed
}

// Coalesce calls apply with the latest values at most once per interval
// while changes arrive, until ctx is done. An error from apply is
// returned.
func Coalesce(ctx context.Context, m *Mapper, interval time.Duration, apply func(Values) error) error {
	if interval <= 0 {
		return fmt.Errorf("control: coalesce interval must be > 0: %v", interval)
	}

	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			v, changed := m.Take()
			if !changed {
				continue
			}

			if err := apply(v); err != nil {
				return err
			}
		}
	}
}
