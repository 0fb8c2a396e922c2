// Package porttab keeps the port table shared by host implementations.
package porttab

import (
	"fmt"
	"regexp"

	"github.com/cwbudde/algo-fuzzbox/host"
)

// Port is a registered port with its block buffer.
type Port struct {
	owner *Table
	name  string
	short string
	flags host.PortFlags
	buf   []float32
}

// Name returns the full port name.
func (p *Port) Name() string { return p.name }

// ShortName returns the registration name.
func (p *Port) ShortName() string { return p.short }

// Flags returns the capability flags.
func (p *Port) Flags() host.PortFlags { return p.flags }

// Buffer returns the first frames samples of the port buffer.
func (p *Port) Buffer(frames int) []float32 {
	return p.buf[:frames]
}

// Table maps full port names to ports. It is not safe for concurrent use;
// hosts guard it with their control-plane lock.
type Table struct {
	client  string
	bufSize int
	byName  map[string]*Port
	order   []*Port
}

// New creates an empty table for the named client. Each port gets a
// buffer of bufSize samples.
func New(client string, bufSize int) *Table {
	return &Table{
		client:  client,
		bufSize: bufSize,
		byName:  make(map[string]*Port),
	}
}

// Register adds a port.
func (t *Table) Register(short string, flags host.PortFlags) (*Port, error) {
	if err := host.ValidateName(short); err != nil {
		return nil, err
	}

	if err := flags.Validate(); err != nil {
		return nil, err
	}

	name := host.FullName(t.client, short)
	if _, ok := t.byName[name]; ok {
		return nil, fmt.Errorf("%w: %s", host.ErrPortExists, name)
	}

	p := &Port{
		owner: t,
		name:  name,
		short: short,
		flags: flags,
		buf:   make([]float32, t.bufSize),
	}
	t.byName[name] = p
	t.order = append(t.order, p)

	return p, nil
}

// Unregister removes a port. The port's buffer stays valid for holders of
// the handle.
func (t *Table) Unregister(port host.Port) error {
	p, ok := t.Owns(port)
	if !ok || t.byName[p.name] != p {
		return fmt.Errorf("%w: %v", host.ErrUnknownPort, portName(port))
	}

	delete(t.byName, p.name)

	for i, q := range t.order {
		if q == p {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}

	return nil
}

// Match returns full names matching the regular expression pattern in
// registration order.
func (t *Table) Match(pattern string) ([]string, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("host: port pattern %q: %w", pattern, err)
	}

	var names []string
	for _, p := range t.order {
		if re.MatchString(p.name) {
			names = append(names, p.name)
		}
	}

	return names, nil
}

// Lookup returns the port with the given full name, or nil.
func (t *Table) Lookup(name string) *Port {
	return t.byName[name]
}

// Owns reports whether port is a handle issued by this table. It does not
// allocate or lock, so it is usable from the process callback.
func (t *Table) Owns(port host.Port) (*Port, bool) {
	p, ok := port.(*Port)
	if !ok || p == nil || p.owner != t {
		return nil, false
	}

	return p, true
}

// Ports returns the registered ports in registration order. The slice is
// shared; callers must not modify it.
func (t *Table) Ports() []*Port {
	return t.order
}

// Len returns the number of registered ports.
func (t *Table) Len() int { return len(t.order) }

func portName(p host.Port) string {
	if pp, ok := p.(*Port); p == nil || (ok && pp == nil) {
		return "<nil>"
	}

	return p.Name()
}
