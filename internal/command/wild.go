package command

import (
	"fmt"
	"strconv"

	"github.com/talgya/hamlet/internal/agents"
	"github.com/talgya/hamlet/internal/engine"
	"github.com/talgya/hamlet/internal/wildlife"
	"github.com/talgya/hamlet/internal/world"
)

// SpawnWildlife places a new adult animal. Its territory centres on At.
type SpawnWildlife struct {
	Base
	Species wildlife.Species
	At      world.Coord
}

// Kind implements engine.Command.
func (SpawnWildlife) Kind() engine.Kind { return KindSpawnWildlife }

// Validate implements engine.Command.
func (c SpawnWildlife) Validate(w *engine.World) engine.Result {
	if !c.Species.Valid() {
		return engine.Fail(engine.StatusInvalidTarget, "unknown species %d", c.Species)
	}
	if res := inBounds(w, c.At); !res.OK() {
		return res
	}
	if !w.Grid.IsWalkable(c.At) {
		return engine.Fail(engine.StatusInvalidTarget, "a %s cannot stand on %s", c.Species, c.At)
	}
	return engine.Succeed("spot is free")
}

// Execute implements engine.Command.
func (c SpawnWildlife) Execute(w *engine.World) engine.Result {
	if res := c.Validate(w); !res.OK() {
		return res
	}
	e := w.SpawnAnimal(c.Species, c.At)
	w.Emit(engine.LevelInfo, engine.CatWildlife, fmt.Sprintf("a %s appeared at %s", e.Species, e.Pos), map[string]any{
		"wildlife_id": e.ID,
		"species":     e.Species.String(),
	})
	return engine.Succeed("a %s appeared", e.Species).With("wildlife_id", idString(e.ID))
}

// Hunt has a person strike an adjacent animal. A kill credits the
// species' drops to the village stock.
type Hunt struct {
	Base
	Person agents.PersonID
	Target wildlife.ID
	Damage float64 // 0 = the configured hunt damage
}

// Kind implements engine.Command.
func (Hunt) Kind() engine.Kind { return KindHunt }

func (c Hunt) resolve(w *engine.World) (*agents.Person, *wildlife.Entity, engine.Result) {
	p, res := lookupPerson(w, c.By, c.Person)
	if !res.OK() {
		return nil, nil, res
	}
	if p.Sleeping {
		return nil, nil, engine.Fail(engine.StatusInvalidState, "%s is asleep", p.Name)
	}
	if c.damage(w) <= 0 {
		return nil, nil, engine.Fail(engine.StatusInvalidTarget, "damage must be positive")
	}
	e, res := lookupAnimal(w, c.Target)
	if !res.OK() {
		return nil, nil, res
	}
	if d := world.Chebyshev(p.Pos, e.Pos); d > 1 {
		return nil, nil, engine.Fail(engine.StatusInvalidState, "the %s is %d tiles from %s", e.Species, d, p.Name)
	}
	return p, e, engine.Succeed("in reach")
}

func (c Hunt) damage(w *engine.World) float64 {
	if c.Damage == 0 {
		return float64(w.Config.People.HuntDamage)
	}
	return c.Damage
}

// Validate implements engine.Command.
func (c Hunt) Validate(w *engine.World) engine.Result {
	_, _, res := c.resolve(w)
	return res
}

// Execute implements engine.Command.
func (c Hunt) Execute(w *engine.World) engine.Result {
	p, e, res := c.resolve(w)
	if !res.OK() {
		return res
	}
	killed := e.TakeDamage(c.damage(w), wildlife.Attacker{Person: uint64(p.ID)}, w.Config.Wildlife.DamageFear, w.Tick)
	if !killed {
		return engine.Succeed("%s wounded the %s", p.Name, e.Species).
			With("killed", "false").
			With("health", strconv.FormatFloat(e.Health, 'f', -1, 64))
	}
	w.RemoveAnimal(e)
	drops := e.Species.Stats().Drops
	if err := w.Village.Stock.Credit(drops); err != nil {
		return engine.Fail(engine.StatusFailed, "%v", err)
	}
	meta := personMeta(p)
	meta["wildlife_id"] = e.ID
	meta["drops"] = drops.Map()
	w.Emit(engine.LevelSuccess, engine.CatWildlife, fmt.Sprintf("%s killed a %s", p.Name, e.Species), meta)
	return engine.Succeed("%s killed the %s", p.Name, e.Species).With("killed", "true")
}
