// Package host defines the audio-server collaborator the engine runs on.
//
// A host owns a client with named ports, delivers fixed-length blocks of
// float32 samples to one installed [ProcessFunc] at a time, and exposes the
// activate/deactivate lifecycle of that callback. Implementations live in
// the subpackages: memhost (synchronous, in-memory) and otohost (speaker
// output through oto).
package host

import (
	"errors"
	"fmt"
	"strings"
)

// Errors reported by host implementations. Callers test with errors.Is.
var (
	ErrInvalidName   = errors.New("host: invalid name")
	ErrPortExists    = errors.New("host: port already exists")
	ErrInvalidFlags  = errors.New("host: invalid port flags")
	ErrUnknownPort   = errors.New("host: unknown port")
	ErrAlreadyActive = errors.New("host: client already active")
	ErrNotActive     = errors.New("host: client not active")
	ErrClosed        = errors.New("host: client closed")
)

// MaxNameLen bounds client and short port names.
const MaxNameLen = 64

// PortFlags are the capability flags of a port. Exactly one of FlagInput
// and FlagOutput must be set.
type PortFlags uint32

const (
	// FlagInput marks a port the client reads from.
	FlagInput PortFlags = 1 << iota
	// FlagOutput marks a port the client writes to.
	FlagOutput
	// FlagPhysical marks a port backed by hardware.
	FlagPhysical
	// FlagTerminal marks a port whose data does not pass through to other ports.
	FlagTerminal
)

// Validate reports whether the flags describe exactly one direction.
func (f PortFlags) Validate() error {
	in, out := f&FlagInput != 0, f&FlagOutput != 0
	if in == out {
		return fmt.Errorf("%w: %s", ErrInvalidFlags, f)
	}

	if f&^(FlagInput|FlagOutput|FlagPhysical|FlagTerminal) != 0 {
		return fmt.Errorf("%w: unknown bits %#x", ErrInvalidFlags, uint32(f))
	}

	return nil
}

// IsInput reports whether FlagInput is set.
func (f PortFlags) IsInput() bool { return f&FlagInput != 0 }

// IsOutput reports whether FlagOutput is set.
func (f PortFlags) IsOutput() bool { return f&FlagOutput != 0 }

// String returns a '|' separated list of flag names.
func (f PortFlags) String() string {
	names := make([]string, 0, 4)
	for _, e := range []struct {
		flag PortFlags
		name string
	}{
		{FlagInput, "input"},
		{FlagOutput, "output"},
		{FlagPhysical, "physical"},
		{FlagTerminal, "terminal"},
	} {
		if f&e.flag != 0 {
			names = append(names, e.name)
		}
	}

	if len(names) == 0 {
		return "none"
	}

	return strings.Join(names, "|")
}

// Port is a handle to a registered port. Handles are only meaningful to
// the client that registered them.
type Port interface {
	// Name returns the full name "client:short".
	Name() string
	// ShortName returns the name the port was registered with.
	ShortName() string
	// Flags returns the capability flags given at registration.
	Flags() PortFlags
}

// Scope gives the process callback access to the current block.
type Scope interface {
	// Frames returns the block length chosen by the host.
	Frames() int
	// Buffer returns the sample buffer of port for the current block. Input
	// buffers must be treated as read-only. The result is nil for ports the
	// client does not own.
	Buffer(port Port) []float32
}

// Control is returned by a process callback to the host.
type Control int

const (
	// Continue keeps the callback installed.
	Continue Control = iota
	// Quit asks the host to stop invoking the callback.
	Quit
)

// ProcessFunc is invoked once per block on the host's real-time context.
// It must not allocate, block, or panic.
type ProcessFunc func(Scope) Control

// Client is an open connection to an audio server.
//
// Control-plane methods may block. Deactivate returns only once the host
// has stopped invoking the previously installed callback, so a following
// Activate never runs concurrently with it.
type Client interface {
	Name() string
	SampleRate() float64
	// BufferSize returns the maximum block length the host delivers.
	BufferSize() int

	RegisterPort(shortName string, flags PortFlags) (Port, error)
	UnregisterPort(port Port) error
	// Ports returns the full names of ports matching the regular expression
	// pattern, in registration order.
	Ports(pattern string) ([]string, error)
	// PortByName looks up a port by full name; nil if absent.
	PortByName(name string) Port

	Activate(fn ProcessFunc) error
	Deactivate() error
	IsActive() bool
}

// FullName joins a client name and a short port name.
func FullName(client, short string) string {
	return client + ":" + short
}

// ValidateName checks a client or short port name.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty", ErrInvalidName)
	}

	if len(name) > MaxNameLen {
		return fmt.Errorf("%w: %q longer than %d bytes", ErrInvalidName, name, MaxNameLen)
	}

	if strings.ContainsRune(name, ':') {
		return fmt.Errorf("%w: %q contains ':'", ErrInvalidName, name)
	}

	return nil
}
