package command

import (
	"fmt"

	"github.com/talgya/hamlet/internal/agents"
	"github.com/talgya/hamlet/internal/buildings"
	"github.com/talgya/hamlet/internal/engine"
	"github.com/talgya/hamlet/internal/social"
	"github.com/talgya/hamlet/internal/world"
)

// SpawnFamily founds a family owned by the issuing player. Members appear
// on free walkable tiles near At.
type SpawnFamily struct {
	Base
	Name     string
	At       world.Coord
	Adults   int
	Children int
}

// Kind implements engine.Command.
func (SpawnFamily) Kind() engine.Kind { return KindSpawnFamily }

// Validate implements engine.Command.
func (c SpawnFamily) Validate(w *engine.World) engine.Result {
	if res := inBounds(w, c.At); !res.OK() {
		return res
	}
	n := c.Adults + c.Children
	if c.Adults < 0 || c.Children < 0 || n == 0 {
		return engine.Fail(engine.StatusInvalidTarget, "a family needs at least one member")
	}
	if free := len(world.FreeTilesNear(w.Grid, c.At, n, engine.FamilySpawnRadius)); free < n {
		return engine.Fail(engine.StatusInvalidTarget, "only %d free tiles near %s for %d members", free, c.At, n)
	}
	return engine.Succeed("family can settle")
}

// Execute implements engine.Command.
func (c SpawnFamily) Execute(w *engine.World) engine.Result {
	if res := c.Validate(w); !res.OK() {
		return res
	}
	f, err := w.FoundFamily(c.Name, c.By, c.At, c.Adults, c.Children)
	if err != nil {
		return engine.Fail(engine.StatusFailed, "%v", err)
	}
	w.Emit(engine.LevelSuccess, engine.CatFamily, fmt.Sprintf("the %s family arrived near %s", f.Name, c.At), map[string]any{
		"family_id": f.ID,
		"owner":     uint64(c.By),
		"members":   len(f.Members),
	})
	return engine.Succeed("the %s family arrived with %d members", f.Name, len(f.Members)).
		With("family_id", idString(f.ID))
}

// SetHome moves a family into a finished house. Living members become its
// residents; the previous home, if any, is vacated.
type SetHome struct {
	Base
	Family   social.FamilyID
	Building buildings.ID
}

// Kind implements engine.Command.
func (SetHome) Kind() engine.Kind { return KindSetHome }

func (c SetHome) resolve(w *engine.World) (*social.Family, *buildings.Building, engine.Result) {
	f, res := lookupFamily(w, c.By, c.Family)
	if !res.OK() {
		return nil, nil, res
	}
	b, res := lookupBuilding(w, c.Building)
	if !res.OK() {
		return nil, nil, res
	}
	switch {
	case b.Type != buildings.House:
		return nil, nil, engine.Fail(engine.StatusInvalidTarget, "building %d is a %s, not a house", b.ID, b.Type)
	case !b.Constructed:
		return nil, nil, engine.Fail(engine.StatusInvalidState, "house %d is still under construction", b.ID)
	case f.HomeBuilding == b.ID:
		return nil, nil, engine.Fail(engine.StatusInvalidState, "the %s family already lives in house %d", f.Name, b.ID)
	case !b.HasResidentCapacity(len(f.Living())):
		return nil, nil, engine.Fail(engine.StatusInvalidState, "house %d has no room for %d more", b.ID, len(f.Living()))
	}
	return f, b, engine.Succeed("house available")
}

// Validate implements engine.Command.
func (c SetHome) Validate(w *engine.World) engine.Result {
	_, _, res := c.resolve(w)
	return res
}

// Execute implements engine.Command.
func (c SetHome) Execute(w *engine.World) engine.Result {
	f, b, res := c.resolve(w)
	if !res.OK() {
		return res
	}
	if old, ok := w.Building(f.HomeBuilding); ok {
		for _, m := range f.Members {
			old.RemoveResident(uint64(m.ID))
		}
	}
	home := b.Origin
	f.Home = &home
	f.HomeBuilding = b.ID
	for _, m := range f.Living() {
		m.HomeBuilding = b.ID
		b.AddResident(uint64(m.ID))
	}
	w.Emit(engine.LevelInfo, engine.CatFamily, fmt.Sprintf("the %s family moved into house %d", f.Name, b.ID), map[string]any{
		"family_id":   f.ID,
		"building_id": b.ID,
		"x":           home.X,
		"y":           home.Y,
	})
	return engine.Succeed("the %s family now lives in house %d", f.Name, b.ID)
}

// SleepFamily sends every awake member of a family home to sleep. Members
// keep their jobs but leave construction sites and gathering.
type SleepFamily struct {
	Base
	Family social.FamilyID
}

// Kind implements engine.Command.
func (SleepFamily) Kind() engine.Kind { return KindSleepFamily }

type trip struct {
	p    *agents.Person
	path []world.Coord
}

func (c SleepFamily) plan(w *engine.World) (*social.Family, []trip, engine.Result) {
	f, res := lookupFamily(w, c.By, c.Family)
	if !res.OK() {
		return nil, nil, res
	}
	home, ok := w.Building(f.HomeBuilding)
	if !ok {
		return nil, nil, engine.Fail(engine.StatusInvalidState, "the %s family has no home", f.Name)
	}
	var trips []trip
	for _, p := range f.Living() {
		if p.Sleeping || p.Task == agents.TaskGoingHome {
			continue
		}
		if path := w.ApproachPath(p.Pos, home); path != nil {
			trips = append(trips, trip{p: p, path: path})
		}
	}
	if len(trips) == 0 {
		return nil, nil, engine.Fail(engine.StatusInvalidState, "nobody in the %s family can go home to sleep", f.Name)
	}
	return f, trips, engine.Succeed("ready for bed")
}

// Validate implements engine.Command.
func (c SleepFamily) Validate(w *engine.World) engine.Result {
	_, _, res := c.plan(w)
	return res
}

// Execute implements engine.Command.
func (c SleepFamily) Execute(w *engine.World) engine.Result {
	f, trips, res := c.plan(w)
	if !res.OK() {
		return res
	}
	for _, t := range trips {
		p := t.p
		if b, ok := w.Building(p.ConstructionSite); ok {
			b.RemoveConstructionWorker(uint64(p.ID))
		}
		p.ConstructionSite = 0
		p.GatherTarget = nil
		p.GatherTicks = 0
		p.SetPath(t.path, agents.TaskGoingHome, agents.TaskIdle)
	}
	w.Emit(engine.LevelInfo, engine.CatFamily, fmt.Sprintf("the %s family is heading home to sleep", f.Name),
		map[string]any{"family_id": f.ID, "members": len(trips)})
	return engine.Succeed("%d members of the %s family are going home", len(trips), f.Name).
		With("count", idString(uint64(len(trips))))
}

// WakeFamily wakes every sleeping member of a family. Members with a job
// walk back to it; the rest stand idle.
type WakeFamily struct {
	Base
	Family social.FamilyID
}

// Kind implements engine.Command.
func (WakeFamily) Kind() engine.Kind { return KindWakeFamily }

func (c WakeFamily) sleepers(w *engine.World) (*social.Family, []*agents.Person, engine.Result) {
	f, res := lookupFamily(w, c.By, c.Family)
	if !res.OK() {
		return nil, nil, res
	}
	var out []*agents.Person
	for _, p := range f.Living() {
		if p.Sleeping || p.Task == agents.TaskGoingHome {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return nil, nil, engine.Fail(engine.StatusInvalidState, "nobody in the %s family is asleep", f.Name)
	}
	return f, out, engine.Succeed("sleepers found")
}

// Validate implements engine.Command.
func (c WakeFamily) Validate(w *engine.World) engine.Result {
	_, _, res := c.sleepers(w)
	return res
}

// Execute implements engine.Command.
func (c WakeFamily) Execute(w *engine.World) engine.Result {
	f, sleepers, res := c.sleepers(w)
	if !res.OK() {
		return res
	}
	toWork := 0
	for _, p := range sleepers {
		p.Wake()
		if p.Task == agents.TaskGoingHome {
			p.Task = agents.TaskIdle
			p.ClearPath()
		}
		job, ok := w.Building(p.JobBuilding)
		if !ok || !job.Constructed {
			continue
		}
		path := w.ApproachPath(p.Pos, job)
		if path == nil {
			w.ReleaseAssignments(p)
			w.Emit(engine.LevelWarning, engine.CatPathing, fmt.Sprintf("%s cannot reach the %s and gives up the job", p.Name, job.Type),
				personMeta(p))
			continue
		}
		p.SetPath(path, agents.TaskGoingToWork, agents.TaskIdle)
		toWork++
	}
	w.Emit(engine.LevelInfo, engine.CatFamily, fmt.Sprintf("the %s family woke up", f.Name),
		map[string]any{"family_id": f.ID, "woken": len(sleepers), "to_work": toWork})
	return engine.Succeed("%d woke, %d went to work", len(sleepers), toWork).
		With("count", idString(uint64(len(sleepers))))
}
