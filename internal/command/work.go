package command

import (
	"fmt"

	"github.com/talgya/hamlet/internal/agents"
	"github.com/talgya/hamlet/internal/buildings"
	"github.com/talgya/hamlet/internal/engine"
	"github.com/talgya/hamlet/internal/social"
	"github.com/talgya/hamlet/internal/world"
)

// AssignConstruction sends up to Count idle adults of a family to an
// unfinished building.
type AssignConstruction struct {
	Base
	Building buildings.ID
	Family   social.FamilyID
	Count    int
}

// Kind implements engine.Command.
func (AssignConstruction) Kind() engine.Kind { return KindAssignConstruction }

func (c AssignConstruction) plan(w *engine.World) (*buildings.Building, []trip, engine.Result) {
	b, res := lookupBuilding(w, c.Building)
	if !res.OK() {
		return nil, nil, res
	}
	if b.Constructed {
		return nil, nil, engine.Fail(engine.StatusInvalidState, "the %s is already built", b.Type)
	}
	if c.Count < 1 {
		return nil, nil, engine.Fail(engine.StatusInvalidTarget, "count must be at least 1")
	}
	f, res := lookupFamily(w, c.By, c.Family)
	if !res.OK() {
		return nil, nil, res
	}
	idle := f.IdleAdults(w.Config.People.AdultAge)
	if len(idle) == 0 {
		return nil, nil, engine.Fail(engine.StatusFailed, "the %s family has no idle adults", f.Name)
	}
	var trips []trip
	for _, p := range idle {
		if len(trips) == c.Count {
			break
		}
		if path := w.ApproachPath(p.Pos, b); path != nil {
			trips = append(trips, trip{p: p, path: path})
		}
	}
	if len(trips) == 0 {
		return nil, nil, engine.Fail(engine.StatusFailed, "no idle adult of the %s family can reach the %s", f.Name, b.Type)
	}
	return b, trips, engine.Succeed("builders available")
}

// Validate implements engine.Command.
func (c AssignConstruction) Validate(w *engine.World) engine.Result {
	_, _, res := c.plan(w)
	return res
}

// Execute implements engine.Command.
func (c AssignConstruction) Execute(w *engine.World) engine.Result {
	b, trips, res := c.plan(w)
	if !res.OK() {
		return res
	}
	for _, t := range trips {
		p := t.p
		p.ConstructionSite = b.ID
		b.AddConstructionWorker(uint64(p.ID))
		p.SetPath(t.path, agents.TaskMovingToLocation, agents.TaskConstructing)
		meta := personMeta(p)
		meta["building_id"] = b.ID
		w.Emit(engine.LevelInfo, engine.CatWorker, fmt.Sprintf("%s heads off to build the %s", p.Name, b.Type), meta)
	}
	return engine.Succeed("%d builders assigned to the %s", len(trips), b.Type).
		With("count", idString(uint64(len(trips))))
}

// AssignJob sends one idle adult of a family to work at a finished
// building with a free worker slot.
type AssignJob struct {
	Base
	Building buildings.ID
	Family   social.FamilyID
}

// Kind implements engine.Command.
func (AssignJob) Kind() engine.Kind { return KindAssignJob }

func (c AssignJob) plan(w *engine.World) (*buildings.Building, trip, engine.Result) {
	b, res := lookupBuilding(w, c.Building)
	if !res.OK() {
		return nil, trip{}, res
	}
	switch {
	case !b.Constructed:
		return nil, trip{}, engine.Fail(engine.StatusInvalidState, "the %s is still under construction", b.Type)
	case b.Spec().MaxWorkers == 0:
		return nil, trip{}, engine.Fail(engine.StatusInvalidTarget, "a %s has no jobs", b.Type)
	case !b.HasWorkerCapacity():
		return nil, trip{}, engine.Fail(engine.StatusInvalidState, "the %s is fully staffed", b.Type)
	}
	f, res := lookupFamily(w, c.By, c.Family)
	if !res.OK() {
		return nil, trip{}, res
	}
	idle := f.IdleAdults(w.Config.People.AdultAge)
	if len(idle) == 0 {
		return nil, trip{}, engine.Fail(engine.StatusFailed, "the %s family has no idle adults", f.Name)
	}
	for _, p := range idle {
		if path := w.ApproachPath(p.Pos, b); path != nil {
			return b, trip{p: p, path: path}, engine.Succeed("worker available")
		}
	}
	return nil, trip{}, engine.Fail(engine.StatusFailed, "no idle adult of the %s family can reach the %s", f.Name, b.Type)
}

// Validate implements engine.Command.
func (c AssignJob) Validate(w *engine.World) engine.Result {
	_, _, res := c.plan(w)
	return res
}

// Execute implements engine.Command.
func (c AssignJob) Execute(w *engine.World) engine.Result {
	b, t, res := c.plan(w)
	if !res.OK() {
		return res
	}
	p := t.p
	p.JobBuilding = b.ID
	b.AddWorker(uint64(p.ID))
	p.SetPath(t.path, agents.TaskGoingToWork, agents.TaskIdle)
	meta := personMeta(p)
	meta["building_id"] = b.ID
	w.Emit(engine.LevelInfo, engine.CatWorker, fmt.Sprintf("%s now works at the %s", p.Name, b.Type), meta)
	return engine.Succeed("%s assigned to the %s", p.Name, b.Type).
		With("person_id", idString(uint64(p.ID)))
}

// UnassignWorker releases a person from every job, construction site and
// errand. Their home is kept.
type UnassignWorker struct {
	Base
	Person agents.PersonID
}

// Kind implements engine.Command.
func (UnassignWorker) Kind() engine.Kind { return KindUnassignWorker }

// Validate implements engine.Command.
func (c UnassignWorker) Validate(w *engine.World) engine.Result {
	p, res := lookupPerson(w, c.By, c.Person)
	if !res.OK() {
		return res
	}
	if p.JobBuilding == 0 && p.ConstructionSite == 0 && p.GatherTarget == nil && p.Task == agents.TaskIdle {
		return engine.Fail(engine.StatusInvalidState, "%s has nothing to be released from", p.Name)
	}
	if p.Sleeping {
		return engine.Fail(engine.StatusInvalidState, "%s is asleep", p.Name)
	}
	return engine.Succeed("can release")
}

// Execute implements engine.Command.
func (c UnassignWorker) Execute(w *engine.World) engine.Result {
	if res := c.Validate(w); !res.OK() {
		return res
	}
	p, _ := w.Person(c.Person)
	was := p.Task
	w.ReleaseAssignments(p)
	meta := personMeta(p)
	meta["was"] = was.String()
	w.Emit(engine.LevelInfo, engine.CatWorker, fmt.Sprintf("%s stops %s", p.Name, was), meta)
	return engine.Succeed("%s is idle", p.Name)
}

// Gather sends a person to a forest, rock or grass tile to gather its
// resource into the village stock.
type Gather struct {
	Base
	Person agents.PersonID
	At     world.Coord
}

// Kind implements engine.Command.
func (Gather) Kind() engine.Kind { return KindGather }

func (c Gather) plan(w *engine.World) (*agents.Person, []world.Coord, engine.Result) {
	p, res := lookupPerson(w, c.By, c.Person)
	if !res.OK() {
		return nil, nil, res
	}
	if p.Sleeping {
		return nil, nil, engine.Fail(engine.StatusInvalidState, "%s is asleep", p.Name)
	}
	if res := inBounds(w, c.At); !res.OK() {
		return nil, nil, res
	}
	tile := w.Grid.Tile(c.At)
	if _, ok := engine.GatherYield(tile.Terrain); !ok {
		return nil, nil, engine.Fail(engine.StatusInvalidTarget, "nothing to gather on %s at %s", tile.Terrain, c.At)
	}
	if tile.Building != 0 {
		return nil, nil, engine.Fail(engine.StatusInvalidTarget, "building %d stands on %s", tile.Building, c.At)
	}
	path := w.FindPath(p.Pos, c.At)
	if path == nil {
		return nil, nil, engine.Fail(engine.StatusFailed, "%s has no route to %s", p.Name, c.At)
	}
	return p, path, engine.Succeed("route found")
}

// Validate implements engine.Command.
func (c Gather) Validate(w *engine.World) engine.Result {
	_, _, res := c.plan(w)
	return res
}

// Execute implements engine.Command.
func (c Gather) Execute(w *engine.World) engine.Result {
	p, path, res := c.plan(w)
	if !res.OK() {
		return res
	}
	w.ReleaseAssignments(p)
	p.SetPath(path, agents.TaskMovingToLocation, agents.TaskGathering)
	target := c.At
	p.GatherTarget = &target
	meta := personMeta(p)
	meta["x"], meta["y"] = target.X, target.Y
	w.Emit(engine.LevelInfo, engine.CatWorker, fmt.Sprintf("%s goes to gather at %s", p.Name, target), meta)
	return engine.Succeed("%s is on the way to %s", p.Name, target)
}

// MovePerson walks a person to a tile, dropping whatever they were doing.
type MovePerson struct {
	Base
	Person agents.PersonID
	To     world.Coord
}

// Kind implements engine.Command.
func (MovePerson) Kind() engine.Kind { return KindMovePerson }

func (c MovePerson) plan(w *engine.World) (*agents.Person, []world.Coord, engine.Result) {
	p, res := lookupPerson(w, c.By, c.Person)
	if !res.OK() {
		return nil, nil, res
	}
	if p.Sleeping {
		return nil, nil, engine.Fail(engine.StatusInvalidState, "%s is asleep", p.Name)
	}
	if res := inBounds(w, c.To); !res.OK() {
		return nil, nil, res
	}
	if !w.Grid.IsWalkable(c.To) {
		return nil, nil, engine.Fail(engine.StatusInvalidTarget, "%s cannot be walked on", c.To)
	}
	path := w.FindPath(p.Pos, c.To)
	if path == nil {
		return nil, nil, engine.Fail(engine.StatusFailed, "%s has no route to %s", p.Name, c.To)
	}
	return p, path, engine.Succeed("route found")
}

// Validate implements engine.Command.
func (c MovePerson) Validate(w *engine.World) engine.Result {
	_, _, res := c.plan(w)
	return res
}

// Execute implements engine.Command.
func (c MovePerson) Execute(w *engine.World) engine.Result {
	p, path, res := c.plan(w)
	if !res.OK() {
		return res
	}
	w.ReleaseAssignments(p)
	p.SetPath(path, agents.TaskMovingToLocation, agents.TaskIdle)
	return engine.Succeed("%s is walking to %s", p.Name, c.To).
		With("steps", idString(uint64(len(path)-1)))
}
