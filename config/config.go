// Package config loads the engine configuration file and watches it for
// changes.
//
// The file is JSON:
//
//	{
//	  "client": "fuzzbox",
//	  "channels": 2,
//	  "topology": "one-to-one",
//	  "stage": {"type": "fuzz", "fuzz": 0.5, "level": 0.5}
//	}
//
// Missing fields keep their defaults. Stage keys other than "type" are the
// numeric parameters of the stage type (see stage.DefaultRegistry).
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"os"
	"slices"

	"github.com/cwbudde/algo-fuzzbox/engine/channel"
	"github.com/cwbudde/algo-fuzzbox/engine/stage"
	"github.com/cwbudde/algo-fuzzbox/host"
)

// Config is the engine configuration.
type Config struct {
	Client   string `json:"client"`
	Channels int    `json:"channels"`
	Topology string `json:"topology"`
	Stage    Stage  `json:"stage"`
}

// Stage selects the per-channel stage.
type Stage struct {
	Type   string
	Params map[string]float64
}

// UnmarshalJSON reads a flat object with a "type" key and numeric
// parameters. Without a "type" key the parameters are merged into the
// current stage; with one they replace it.
func (s *Stage) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	out := Stage{Type: s.Type, Params: maps.Clone(s.Params)}

	if v, ok := raw["type"]; ok {
		if err := json.Unmarshal(v, &out.Type); err != nil {
			return fmt.Errorf("stage type: %w", err)
		}

		out.Params = nil
	}

	if out.Params == nil {
		out.Params = make(map[string]float64, len(raw))
	}

	for k, v := range raw {
		if k == "type" {
			continue
		}

		var f float64
		if err := json.Unmarshal(v, &f); err != nil {
			return fmt.Errorf("stage parameter %q: %w", k, err)
		}

		out.Params[k] = f
	}

	*s = out

	return nil
}

// MarshalJSON writes s as a flat object.
func (s Stage) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(s.Params)+1)
	for k, v := range s.Params {
		m[k] = v
	}

	m["type"] = s.Type

	return json.Marshal(m)
}

// Default returns the built-in configuration: two channels through the
// fuzz pipeline at mid settings.
func Default() Config {
	return Config{
		Client:   "fuzzbox",
		Channels: 2,
		Topology: channel.OneToOne.String(),
		Stage: Stage{
			Type: "fuzz",
			Params: map[string]float64{
				"fuzz":  stage.DefaultFuzz,
				"level": stage.DefaultLevel,
			},
		},
	}
}

// NeedsRestart reports whether moving from c to o changes the client or
// the channel layout, which requires a new activation rather than a stage
// swap.
func (c Config) NeedsRestart(o Config) bool {
	return c.Client != o.Client || c.Channels != o.Channels || c.Topology != o.Topology
}

// Parse decodes data over the defaults and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := Default()

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Load reads and parses the file at path.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks every field against the default stage registry.
func (c Config) Validate() error {
	var errs []error

	if err := host.ValidateName(c.Client); err != nil {
		errs = append(errs, fmt.Errorf("client: %w", err))
	}

	if c.Channels < 1 {
		errs = append(errs, fmt.Errorf("channels must be >= 1: %d", c.Channels))
	}

	if _, err := channel.ParseTopology(c.Topology); err != nil {
		errs = append(errs, err)
	}

	if _, err := c.Factory(nil); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}

	return nil
}

// TopologyValue parses the topology field.
func (c Config) TopologyValue() (channel.Topology, error) {
	return channel.ParseTopology(c.Topology)
}

// StageParams returns the stage section as registry parameters.
func (c Config) StageParams() stage.Params {
	return stage.Params{Type: c.Stage.Type, Num: maps.Clone(c.Stage.Params)}
}

// Factory builds the stage factory from reg, or from the default registry
// if reg is nil.
func (c Config) Factory(reg *stage.Registry) (stage.Factory, error) {
	if reg == nil {
		reg = stage.DefaultRegistry()
	}

	return reg.Build(c.StageParams())
}

// Equal reports whether c and o describe the same configuration.
func (c Config) Equal(o Config) bool {
	return c.Client == o.Client &&
		c.Channels == o.Channels &&
		c.Topology == o.Topology &&
		c.Stage.Type == o.Stage.Type &&
		maps.Equal(c.Stage.Params, o.Stage.Params)
}

// StageEqual reports whether c and o select the same stage.
func (c Config) StageEqual(o Config) bool {
	return c.Stage.Type == o.Stage.Type && maps.Equal(c.Stage.Params, o.Stage.Params)
}

// String formats the stage section for logs.
func (s Stage) String() string {
	keys := slices.Sorted(maps.Keys(s.Params))

	var b bytes.Buffer
	b.WriteString(s.Type)

	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%g", k, s.Params[k])
	}

	return b.String()
}
