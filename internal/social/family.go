// Package social provides households and the village they belong to.
package social

import (
	"github.com/talgya/hamlet/internal/agents"
	"github.com/talgya/hamlet/internal/world"
)

// FamilyID is a unique identifier for a family.
type FamilyID = uint64

// Family is a household. Members is the owning list of its persons.
type Family struct {
	ID    FamilyID `json:"id"`
	Name  string   `json:"name"`
	Owner uint64   `json:"owner"` // player that founded the family

	Members []*agents.Person `json:"members"`

	Home         *world.Coord `json:"home,omitempty"`
	HomeBuilding uint64       `json:"home_building,omitempty"`

	FoundedTick uint64 `json:"founded_tick"`
}

// Living returns the members still alive, in member order.
func (f *Family) Living() []*agents.Person {
	out := make([]*agents.Person, 0, len(f.Members))
	for _, p := range f.Members {
		if p.Alive {
			out = append(out, p)
		}
	}
	return out
}

// IdleAdults returns living, awake adults with no task, in member order.
func (f *Family) IdleAdults(adultAge uint16) []*agents.Person {
	var out []*agents.Person
	for _, p := range f.Members {
		if p.IsIdle() && p.IsAdult(adultAge) {
			out = append(out, p)
		}
	}
	return out
}

// Member returns the member with the given ID.
func (f *Family) Member(id agents.PersonID) (*agents.Person, bool) {
	for _, p := range f.Members {
		if p.ID == id {
			return p, true
		}
	}
	return nil, false
}

// Extinct reports whether every member has died.
func (f *Family) Extinct() bool {
	for _, p := range f.Members {
		if p.Alive {
			return false
		}
	}
	return true
}
