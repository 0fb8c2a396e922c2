package channel

import (
	"errors"
	"fmt"
	"regexp"
	"slices"

	"github.com/cwbudde/algo-fuzzbox/host"
)

// Configuration errors reported by the registry.
var (
	// ErrUnsupportedTopology is returned by Materialize for topologies
	// without a port mapping. The registry is left untouched.
	ErrUnsupportedTopology = errors.New("channel: unsupported topology")
	// ErrPortRegistrationFailed wraps a host rejection of a port.
	ErrPortRegistrationFailed = errors.New("channel: port registration failed")
	// ErrInvalidCount is returned for channel counts below one.
	ErrInvalidCount = errors.New("channel: channel count must be >= 1")
	// ErrMaterialized is returned when Materialize is called without a
	// Reset since the last successful call.
	ErrMaterialized = errors.New("channel: registry already materialized")
	// ErrForeignResource is returned by Return for resources the registry
	// did not hand out.
	ErrForeignResource = errors.New("channel: resource not issued by this registry")
)

// PortError reports the port the host refused. It matches both
// ErrPortRegistrationFailed and the host error with errors.Is.
type PortError struct {
	Port string
	Err  error
}

func (e *PortError) Error() string {
	return fmt.Sprintf("channel: register port %q: %v", e.Port, e.Err)
}

// Unwrap returns ErrPortRegistrationFailed and the host error.
func (e *PortError) Unwrap() []error {
	return []error{ErrPortRegistrationFailed, e.Err}
}

// Registry owns the channel identities of one host client and the port
// pairs registered for them. It is a control-plane object and is not safe
// for concurrent use.
type Registry struct {
	client     host.Client
	identities map[ID]Identity
	ports      map[ID]Resource // every registered pair, held or not
	held       map[ID]Resource
}

// NewRegistry creates an empty registry for client.
func NewRegistry(client host.Client) *Registry {
	return &Registry{
		client:     client,
		identities: make(map[ID]Identity),
		ports:      make(map[ID]Resource),
		held:       make(map[ID]Resource),
	}
}

// Reset unregisters every port of the client and clears all records. This
// covers recorded channel ports and any port the host lists under the
// client's name. Resources handed out by TakeResources become invalid;
// callers deactivate the callback first.
//
// All ports are attempted; failures are joined into the returned error and
// the records are cleared regardless.
func (r *Registry) Reset() error {
	var errs []error

	for _, id := range sortedKeys(r.ports) {
		res := r.ports[id]
		for _, p := range []host.Port{res.In, res.Out} {
			if err := r.client.UnregisterPort(p); err != nil && !errors.Is(err, host.ErrUnknownPort) {
				errs = append(errs, err)
			}
		}
	}

	pattern := "^" + regexp.QuoteMeta(r.client.Name()) + ":.*"

	names, err := r.client.Ports(pattern)
	if err != nil {
		errs = append(errs, err)
	}

	for _, name := range names {
		p := r.client.PortByName(name)
		if p == nil {
			continue
		}

		if err := r.client.UnregisterPort(p); err != nil && !errors.Is(err, host.ErrUnknownPort) {
			errs = append(errs, err)
		}
	}

	clear(r.identities)
	clear(r.ports)
	clear(r.held)

	if len(errs) > 0 {
		return fmt.Errorf("channel: reset: %w", errors.Join(errs...))
	}

	return nil
}

// Materialize creates n channel identities with IDs 1..n and registers an
// input and output port for each. Only OneToOne is supported; any other
// topology fails with ErrUnsupportedTopology before anything is touched.
//
// If the host rejects a port, ports registered by this call are removed
// again and a *PortError is returned.
func (r *Registry) Materialize(n int, topo Topology) error {
	if !topo.Supported() {
		return fmt.Errorf("%w: %s", ErrUnsupportedTopology, topo)
	}

	if n < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidCount, n)
	}

	if len(r.identities) > 0 {
		return ErrMaterialized
	}

	created := make([]Resource, 0, n)

	for i := 1; i <= n; i++ {
		ident := NewIdentity(ID(i))

		res, err := r.register(ident)
		if err != nil {
			for _, c := range created {
				_ = r.client.UnregisterPort(c.In)
				_ = r.client.UnregisterPort(c.Out)
			}

			return err
		}

		created = append(created, res)
	}

	for _, res := range created {
		r.identities[res.ID] = NewIdentity(res.ID)
		r.ports[res.ID] = res
		r.held[res.ID] = res
	}

	return nil
}

func (r *Registry) register(ident Identity) (Resource, error) {
	in, err := r.client.RegisterPort(ident.InputName, host.FlagInput)
	if err != nil {
		return Resource{}, &PortError{Port: ident.InputName, Err: err}
	}

	out, err := r.client.RegisterPort(ident.OutputName, host.FlagOutput)
	if err != nil {
		_ = r.client.UnregisterPort(in)
		return Resource{}, &PortError{Port: ident.OutputName, Err: err}
	}

	return Resource{ID: ident.ID, In: in, Out: out}, nil
}

// TakeResources removes and returns every resource the registry holds,
// ordered by ID. Identities are kept.
func (r *Registry) TakeResources() []Resource {
	out := make([]Resource, 0, len(r.held))
	for _, id := range sortedKeys(r.held) {
		out = append(out, r.held[id])
	}

	clear(r.held)

	return out
}

// Return gives resources obtained from TakeResources back to the registry.
func (r *Registry) Return(res []Resource) error {
	for _, rs := range res {
		known, ok := r.ports[rs.ID]
		if !ok || known.In != rs.In || known.Out != rs.Out {
			return fmt.Errorf("%w: channel %d", ErrForeignResource, rs.ID)
		}
	}

	for _, rs := range res {
		r.held[rs.ID] = rs
	}

	return nil
}

// Identities returns the channel identities ordered by ID.
func (r *Registry) Identities() []Identity {
	out := make([]Identity, 0, len(r.identities))
	for _, id := range sortedKeys(r.identities) {
		out = append(out, r.identities[id])
	}

	return out
}

// Len returns the number of channels.
func (r *Registry) Len() int { return len(r.identities) }

// Held returns the number of resources currently held by the registry.
func (r *Registry) Held() int { return len(r.held) }

func sortedKeys[V any](m map[ID]V) []ID {
	keys := make([]ID, 0, len(m))
	for id := range m {
		keys = append(keys, id)
	}

	slices.Sort(keys)

	return keys
}
