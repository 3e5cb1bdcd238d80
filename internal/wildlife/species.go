// Package wildlife provides animal species, their base stats and the
// per-entity needs and damage model. Decisions that need the surrounding
// world (fleeing, hunting, grazing) are made by the engine.
package wildlife

import (
	"fmt"
	"slices"

	"github.com/talgya/hamlet/internal/economy"
	"github.com/talgya/hamlet/internal/names"
)

// Species enumerates animal kinds.
type Species uint8

const (
	Deer Species = iota
	Rabbit
	Boar
	Wolf
	Bear
	Fox
)

// NumSpecies is the total number of species.
const NumSpecies = 6

// Diet determines what satisfies an animal's hunger.
type Diet uint8

const (
	Grazer    Diet = iota // eats grass
	Carnivore             // eats prey it kills
)

// Stats are the base values fixed by species at spawn.
type Stats struct {
	Name            string
	MaxHealth       float64
	MoveEvery       int // ticks per tile
	FleeDistance    int
	DetectionRange  int
	TerritoryRadius int
	MaturityAge     uint64 // ticks
	HungerRate      float64
	AttackDamage    float64
	BreedCooldown   int
	FleesPeople     bool
	Diet            Diet
	Predators       []Species
	Prey            []Species
	Drops           economy.Bundle
}

var species = [NumSpecies]Stats{
	Deer: {
		Name: "deer", MaxHealth: 60, MoveEvery: 1, FleeDistance: 8,
		DetectionRange: 6, TerritoryRadius: 12, MaturityAge: 300,
		HungerRate: 0.25, BreedCooldown: 400, FleesPeople: true,
		Diet: Grazer, Predators: []Species{Wolf, Bear},
		Drops: economy.Bundle{economy.Food: 6, economy.Hide: 2},
	},
	Rabbit: {
		Name: "rabbit", MaxHealth: 20, MoveEvery: 1, FleeDistance: 6,
		DetectionRange: 4, TerritoryRadius: 6, MaturityAge: 150,
		HungerRate: 0.5, BreedCooldown: 200, FleesPeople: true,
		Diet: Grazer, Predators: []Species{Wolf, Fox},
		Drops: economy.Bundle{economy.Food: 2, economy.Hide: 1},
	},
	Boar: {
		Name: "boar", MaxHealth: 80, MoveEvery: 2, FleeDistance: 5,
		DetectionRange: 5, TerritoryRadius: 10, MaturityAge: 300,
		HungerRate: 0.25, AttackDamage: 8, BreedCooldown: 400, FleesPeople: true,
		Diet: Grazer, Predators: []Species{Wolf, Bear},
		Drops: economy.Bundle{economy.Food: 8, economy.Hide: 3},
	},
	Wolf: {
		Name: "wolf", MaxHealth: 90, MoveEvery: 1, FleeDistance: 6,
		DetectionRange: 10, TerritoryRadius: 20, MaturityAge: 400,
		HungerRate: 0.5, AttackDamage: 20, BreedCooldown: 600, FleesPeople: true,
		Diet: Carnivore, Prey: []Species{Deer, Rabbit, Boar},
		Drops: economy.Bundle{economy.Food: 2, economy.Hide: 3},
	},
	Bear: {
		Name: "bear", MaxHealth: 150, MoveEvery: 2, FleeDistance: 4,
		DetectionRange: 8, TerritoryRadius: 16, MaturityAge: 600,
		HungerRate: 0.25, AttackDamage: 35, BreedCooldown: 800,
		Diet: Carnivore, Prey: []Species{Deer, Boar},
		Drops: economy.Bundle{economy.Food: 12, economy.Hide: 5},
	},
	Fox: {
		Name: "fox", MaxHealth: 35, MoveEvery: 1, FleeDistance: 6,
		DetectionRange: 7, TerritoryRadius: 10, MaturityAge: 200,
		HungerRate: 0.5, AttackDamage: 12, BreedCooldown: 300, FleesPeople: true,
		Diet: Carnivore, Predators: []Species{Wolf}, Prey: []Species{Rabbit},
		Drops: economy.Bundle{economy.Food: 1, economy.Hide: 2},
	},
}

// Stats returns the base stats of the species.
func (s Species) Stats() Stats {
	if int(s) >= NumSpecies {
		return Stats{Name: s.String()}
	}
	return species[s]
}

func (s Species) String() string {
	if int(s) < NumSpecies {
		return species[s].Name
	}
	return fmt.Sprintf("species(%d)", s)
}

// Valid reports whether s is a known species.
func (s Species) Valid() bool { return int(s) < NumSpecies }

// Hunts reports whether s preys on other.
func (s Species) Hunts(other Species) bool {
	return slices.Contains(s.Stats().Prey, other)
}

// Fears reports whether other is a predator of s.
func (s Species) Fears(other Species) bool {
	return slices.Contains(s.Stats().Predators, other)
}

// SpeciesNames returns every species name in table order.
func SpeciesNames() []string {
	out := make([]string, NumSpecies)
	for i := range species {
		out[i] = species[i].Name
	}
	return out
}

// ParseSpecies maps a name such as "wolf" to its Species.
func ParseSpecies(name string) (Species, error) {
	n := names.Normalize(name)
	for i := range species {
		if species[i].Name == n {
			return Species(i), nil
		}
	}
	return 0, fmt.Errorf("unknown species %q%s", name, names.Hint(name, SpeciesNames()))
}

// MarshalText encodes the species by name.
func (s Species) MarshalText() ([]byte, error) { return []byte(s.String()), nil }
