package governor

import (
	"fmt"

	"github.com/srg/blgov/internal/identity"
)

// Kind tags the type of Bluetooth object a governor controls. The set is closed.
type Kind int

const (
	KindAdapter Kind = iota
	KindDevice
	KindCharacteristic
)

func (k Kind) String() string {
	switch k {
	case KindAdapter:
		return "adapter"
	case KindDevice:
		return "device"
	case KindCharacteristic:
		return "characteristic"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// KindOf derives the object kind from the depth of its identity
func KindOf(id identity.Identity) Kind {
	switch id.Depth() {
	case 3:
		return KindCharacteristic
	case 2:
		return KindDevice
	default:
		return KindAdapter
	}
}

// Visitor receives governors by kind, letting callers traverse a mixed
// collection without type switches of their own.
type Visitor interface {
	VisitAdapter(g *Governor) error
	VisitDevice(g *Governor) error
	VisitCharacteristic(g *Governor) error
}

// VisitorFuncs adapts optional functions to Visitor. Kinds without a function are skipped.
type VisitorFuncs struct {
	Adapter        func(g *Governor) error
	Device         func(g *Governor) error
	Characteristic func(g *Governor) error
}

func (v VisitorFuncs) VisitAdapter(g *Governor) error        { return call(v.Adapter, g) }
func (v VisitorFuncs) VisitDevice(g *Governor) error         { return call(v.Device, g) }
func (v VisitorFuncs) VisitCharacteristic(g *Governor) error { return call(v.Characteristic, g) }

func call(fn func(*Governor) error, g *Governor) error {
	if fn == nil {
		return nil
	}
	return fn(g)
}

// Accept dispatches g to the Visitor method matching its kind
func (g *Governor) Accept(v Visitor) error {
	switch g.kind {
	case KindAdapter:
		return v.VisitAdapter(g)
	case KindDevice:
		return v.VisitDevice(g)
	case KindCharacteristic:
		return v.VisitCharacteristic(g)
	default:
		return fmt.Errorf("unknown governor kind %s", g.kind)
	}
}

// Walk visits every governor in order and stops at the first error
func Walk(governors []*Governor, v Visitor) error {
	for _, g := range governors {
		if err := g.Accept(v); err != nil {
			return fmt.Errorf("visiting %s %s: %w", g.kind, g.id, err)
		}
	}
	return nil
}
