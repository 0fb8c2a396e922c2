package porttab

import (
	"errors"
	"slices"
	"testing"

	"github.com/cwbudde/algo-fuzzbox/host"
)

func TestRegisterAndLookup(t *testing.T) {
	tab := New("fx", 8)

	p, err := tab.Register("in_1", host.FlagInput)
	if err != nil {
		t.Fatal(err)
	}

	if p.Name() != "fx:in_1" || p.ShortName() != "in_1" || !p.Flags().IsInput() {
		t.Fatalf("unexpected port: %s %s %s", p.Name(), p.ShortName(), p.Flags())
	}

	if len(p.Buffer(8)) != 8 {
		t.Fatalf("buffer len = %d, want 8", len(p.Buffer(8)))
	}

	if tab.Lookup("fx:in_1") != p {
		t.Fatal("Lookup did not return the registered port")
	}
}

func TestRegisterRejects(t *testing.T) {
	tab := New("fx", 8)
	if _, err := tab.Register("a", host.FlagOutput); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		short string
		flags host.PortFlags
		want  error
	}{
		{"duplicate", "a", host.FlagOutput, host.ErrPortExists},
		{"no direction", "b", 0, host.ErrInvalidFlags},
		{"both directions", "b", host.FlagInput | host.FlagOutput, host.ErrInvalidFlags},
		{"unknown bits", "b", host.FlagInput | 1<<10, host.ErrInvalidFlags},
		{"empty name", "", host.FlagInput, host.ErrInvalidName},
		{"colon", "x:y", host.FlagInput, host.ErrInvalidName},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tab.Register(tt.short, tt.flags)
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestUnregisterAndMatch(t *testing.T) {
	tab := New("fx", 4)
	a, _ := tab.Register("input_port_1", host.FlagInput)
	b, _ := tab.Register("output_port_1", host.FlagOutput)
	_, _ = tab.Register("input_port_2", host.FlagInput)

	names, err := tab.Match(`^fx:input_.*`)
	if err != nil {
		t.Fatal(err)
	}

	if !slices.Equal(names, []string{"fx:input_port_1", "fx:input_port_2"}) {
		t.Fatalf("Match = %v", names)
	}

	if err := tab.Unregister(a); err != nil {
		t.Fatal(err)
	}

	if err := tab.Unregister(a); !errors.Is(err, host.ErrUnknownPort) {
		t.Fatalf("second Unregister err = %v, want ErrUnknownPort", err)
	}

	if tab.Len() != 2 || tab.Ports()[0] != b {
		t.Fatalf("unexpected order after unregister: %d ports", tab.Len())
	}

	if _, err := tab.Match("("); err == nil {
		t.Fatal("expected error for invalid pattern")
	}
}

func TestOwnsForeignPort(t *testing.T) {
	a := New("a", 4)
	b := New("b", 4)
	p, _ := b.Register("x", host.FlagInput)

	if _, ok := a.Owns(p); ok {
		t.Fatal("table claims a foreign port")
	}

	if _, ok := a.Owns(nil); ok {
		t.Fatal("table claims nil")
	}

	var typedNil *Port
	if err := a.Unregister(typedNil); !errors.Is(err, host.ErrUnknownPort) {
		t.Fatalf("Unregister(typed nil) err = %v", err)
	}
}
