// Package buildings provides the building catalog and the per-building
// construction, staffing and storage state.
package buildings

import (
	"fmt"

	"github.com/talgya/hamlet/internal/economy"
	"github.com/talgya/hamlet/internal/names"
)

// Type enumerates building kinds.
type Type uint8

const (
	House Type = iota
	Farm
	LumberMill
	Quarry
	Storehouse
	HuntingLodge
)

// NumTypes is the total number of building types.
const NumTypes = 6

// Spec is the static description of a building type.
type Spec struct {
	Name         string
	Width        int
	Height       int
	Cost         economy.Bundle
	WorkRequired int
	MaxWorkers   int
	Capacity     int            // resident capacity, houses only
	Output       economy.Bundle // per present worker per production round
}

// Producer reports whether the type yields goods in the production pass.
func (s Spec) Producer() bool { return !s.Output.IsZero() }

var catalog = [NumTypes]Spec{
	House: {
		Name: "house", Width: 2, Height: 2,
		Cost:         economy.Bundle{economy.Wood: 10, economy.Stone: 2},
		WorkRequired: 40,
		Capacity:     6,
	},
	Farm: {
		Name: "farm", Width: 3, Height: 3,
		Cost:         economy.Bundle{economy.Wood: 8},
		WorkRequired: 30,
		MaxWorkers:   3,
		Output:       economy.Bundle{economy.Food: 2},
	},
	LumberMill: {
		Name: "lumber_mill", Width: 2, Height: 2,
		Cost:         economy.Bundle{economy.Wood: 10, economy.Stone: 4},
		WorkRequired: 50,
		MaxWorkers:   2,
		Output:       economy.Bundle{economy.Wood: 2},
	},
	Quarry: {
		Name: "quarry", Width: 2, Height: 2,
		Cost:         economy.Bundle{economy.Wood: 12},
		WorkRequired: 50,
		MaxWorkers:   2,
		Output:       economy.Bundle{economy.Stone: 1},
	},
	Storehouse: {
		Name: "storehouse", Width: 3, Height: 2,
		Cost:         economy.Bundle{economy.Wood: 15, economy.Stone: 5},
		WorkRequired: 60,
		MaxWorkers:   1,
	},
	HuntingLodge: {
		Name: "hunting_lodge", Width: 2, Height: 2,
		Cost:         economy.Bundle{economy.Wood: 10},
		WorkRequired: 40,
		MaxWorkers:   2,
		Output:       economy.Bundle{economy.Hide: 1, economy.Food: 1},
	},
}

// Lookup returns the spec for a building type.
func Lookup(t Type) (Spec, bool) {
	if int(t) >= NumTypes {
		return Spec{}, false
	}
	return catalog[t], true
}

func (t Type) String() string {
	if int(t) < NumTypes {
		return catalog[t].Name
	}
	return fmt.Sprintf("building(%d)", t)
}

// TypeNames returns every building type name in catalog order.
func TypeNames() []string {
	out := make([]string, NumTypes)
	for i := range catalog {
		out[i] = catalog[i].Name
	}
	return out
}

// ParseType maps a name such as "lumber_mill" to its Type.
func ParseType(name string) (Type, error) {
	n := names.Normalize(name)
	for i := range catalog {
		if catalog[i].Name == n {
			return Type(i), nil
		}
	}
	return 0, fmt.Errorf("unknown building type %q%s", name, names.Hint(name, TypeNames()))
}

// Rotation is a footprint rotation in degrees.
type Rotation uint16

const (
	Rot0   Rotation = 0
	Rot90  Rotation = 90
	Rot180 Rotation = 180
	Rot270 Rotation = 270
)

// ParseRotation validates a rotation in degrees.
func ParseRotation(deg int) (Rotation, error) {
	switch deg {
	case 0, 90, 180, 270:
		return Rotation(deg), nil
	}
	return 0, fmt.Errorf("rotation must be 0, 90, 180 or 270, got %d", deg)
}

// Extent returns the footprint width and height after rotation. Quarter
// turns swap the extent.
func (s Spec) Extent(r Rotation) (w, h int) {
	if r == Rot90 || r == Rot270 {
		return s.Height, s.Width
	}
	return s.Width, s.Height
}

// MarshalText encodes the type by name.
func (t Type) MarshalText() ([]byte, error) { return []byte(t.String()), nil }
