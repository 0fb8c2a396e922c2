package channel

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cwbudde/algo-fuzzbox/host"
)

// ID is a channel number. Valid IDs are positive; after materializing n
// channels the set of IDs is exactly 1..n.
type ID int

// String returns the decimal channel number.
func (id ID) String() string { return strconv.Itoa(int(id)) }

// Port name prefixes. The channel number is appended.
const (
	InputPrefix  = "input_port_"
	OutputPrefix = "output_port_"
)

// Identity is the naming record of one channel.
//
// Equality is defined by ID alone. Use Equal or Key rather than comparing
// records with ==, which also compares the name strings.
type Identity struct {
	ID         ID
	InputName  string
	OutputName string
}

// NewIdentity derives the port names for id.
func NewIdentity(id ID) Identity {
	return Identity{
		ID:         id,
		InputName:  InputPrefix + id.String(),
		OutputName: OutputPrefix + id.String(),
	}
}

// Equal reports whether i and o denote the same channel.
func (i Identity) Equal(o Identity) bool { return i.ID == o.ID }

// Key returns the map key for i.
func (i Identity) Key() ID { return i.ID }

// String returns "id(input,output)".
func (i Identity) String() string {
	return fmt.Sprintf("%d(%s,%s)", i.ID, i.InputName, i.OutputName)
}

// Resource is the port pair the host granted for one channel.
type Resource struct {
	ID  ID
	In  host.Port
	Out host.Port
}

// Topology selects how requested channels map to ports.
type Topology int

const (
	// OneToOne gives every channel its own input and output port.
	OneToOne Topology = iota
	// AllToOne mixes every channel into a single output. Not supported yet.
	AllToOne
)

// String returns the configuration name of t.
func (t Topology) String() string {
	switch t {
	case OneToOne:
		return "one-to-one"
	case AllToOne:
		return "all-to-one"
	default:
		return "topology(" + strconv.Itoa(int(t)) + ")"
	}
}

// Supported reports whether the registry can map channels with t.
func (t Topology) Supported() bool { return t == OneToOne }

// ParseTopology parses a configuration name. Matching ignores case and
// accepts the forms "one-to-one", "one_to_one" and "onetoone".
func ParseTopology(s string) (Topology, error) {
	norm := strings.NewReplacer("-", "", "_", "", " ", "").Replace(strings.ToLower(s))

	switch norm {
	case "onetoone":
		return OneToOne, nil
	case "alltoone":
		return AllToOne, nil
	default:
		return 0, fmt.Errorf("channel: unknown topology %q", s)
	}
}
