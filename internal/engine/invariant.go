package engine

import (
	"fmt"

	"github.com/talgya/hamlet/internal/agents"
	"github.com/talgya/hamlet/internal/wildlife"
	"github.com/talgya/hamlet/internal/world"
)

// InvariantError is the panic value raised for a broken invariant in debug
// mode.
type InvariantError struct {
	Tick    uint64
	Message string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("invariant violated at tick %d: %s", e.Tick, e.Message)
}

// invariant reports ok. A false ok panics in debug builds and is otherwise
// logged as an error event so the tick can carry on.
func (w *World) invariant(ok bool, format string, args ...any) bool {
	if ok {
		return true
	}
	msg := fmt.Sprintf(format, args...)
	if w.Config.Engine.Debug {
		panic(&InvariantError{Tick: w.Tick, Message: msg})
	}
	w.Emit(LevelError, CatInvariant, msg, nil)
	return false
}

// checkOccupancy cross-checks tile occupancy against entity positions:
// every living entity is registered exactly on its tile and every
// registration belongs to a living entity standing there.
func (w *World) checkOccupancy() {
	for _, p := range w.People {
		if p.Alive {
			w.invariant(w.Grid.HasPerson(p.Pos, uint64(p.ID)), "person %d missing from %s", p.ID, p.Pos)
		}
	}
	for _, e := range w.Wildlife {
		if e.Alive {
			w.invariant(w.Grid.HasWildlife(e.Pos, e.ID), "animal %d missing from %s", e.ID, e.Pos)
		}
	}
	w.Grid.Each(func(c world.Coord, t *world.Tile) {
		for _, id := range t.PeopleIDs() {
			p, ok := w.Person(agents.PersonID(id))
			w.invariant(ok && p.Alive && p.Pos == c, "tile %s holds stale person %d", c, id)
		}
		for _, id := range t.WildlifeIDs() {
			e, ok := w.Animal(wildlife.ID(id))
			w.invariant(ok && e.Alive && e.Pos == c, "tile %s holds stale animal %d", c, id)
		}
		if t.Building != 0 {
			_, ok := w.Building(t.Building)
			w.invariant(ok && !t.Walkable, "tile %s holds unknown building %d", c, t.Building)
		}
	})
}
