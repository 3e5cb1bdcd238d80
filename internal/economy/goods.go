// Package economy provides resource kinds and the non-negative ledgers that
// the village and each building keep their stock in.
package economy

import (
	"fmt"

	"github.com/talgya/hamlet/internal/names"
)

// Resource enumerates stockpiled resource kinds.
type Resource uint8

const (
	Wood  Resource = iota // Construction, from forests
	Stone                 // Construction, from rock
	Food                  // Eaten by people
	Hide                  // From hunting
	Tools                 // Crafted
)

// NumResources is the total number of resource kinds.
const NumResources = 5

var resourceNames = [NumResources]string{"wood", "stone", "food", "hide", "tools"}

func (r Resource) String() string {
	if int(r) < NumResources {
		return resourceNames[r]
	}
	return fmt.Sprintf("resource(%d)", r)
}

// Valid reports whether r is a known resource kind.
func (r Resource) Valid() bool { return int(r) < NumResources }

// Resources returns every resource kind in ledger order.
func Resources() []Resource {
	out := make([]Resource, NumResources)
	for i := range out {
		out[i] = Resource(i)
	}
	return out
}

// ParseResource maps a name such as "wood" to its Resource.
func ParseResource(name string) (Resource, error) {
	n := names.Normalize(name)
	for i, rn := range resourceNames {
		if rn == n {
			return Resource(i), nil
		}
	}
	return 0, fmt.Errorf("unknown resource %q%s", name, names.Hint(name, resourceNames[:]))
}

// Bundle is a fixed-size quantity per resource kind, used for costs, drops
// and production output. Index it with Resource constants:
//
//	economy.Bundle{economy.Wood: 10, economy.Stone: 4}
type Bundle [NumResources]int

// IsZero returns true if every quantity is zero.
func (b Bundle) IsZero() bool {
	for _, q := range b {
		if q != 0 {
			return false
		}
	}
	return true
}

// Map returns the non-zero entries keyed by resource name.
func (b Bundle) Map() map[string]int {
	out := make(map[string]int)
	for i, q := range b {
		if q != 0 {
			out[resourceNames[i]] = q
		}
	}
	return out
}

// BundleFromMap parses a name → quantity map into a Bundle.
func BundleFromMap(m map[string]int) (Bundle, error) {
	var b Bundle
	for name, q := range m {
		r, err := ParseResource(name)
		if err != nil {
			return Bundle{}, err
		}
		if q < 0 {
			return Bundle{}, fmt.Errorf("%s: negative quantity %d", r, q)
		}
		b[r] = q
	}
	return b, nil
}
