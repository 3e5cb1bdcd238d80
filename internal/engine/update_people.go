package engine

import (
	"fmt"

	"github.com/talgya/hamlet/internal/agents"
	"github.com/talgya/hamlet/internal/economy"
	"github.com/talgya/hamlet/internal/world"
)

// updatePeople advances every living person one step, in ID order.
func (w *World) updatePeople() {
	tun := w.Config.People
	for _, p := range w.People {
		if !p.Alive {
			continue
		}

		if p.DecayNeeds(tun) {
			w.KillPerson(p, "starvation")
			continue
		}
		if p.WantsFood(tun) && w.Village.Stock.DebitOne(economy.Food, 1) == nil {
			p.Eat(tun)
		}

		if p.CheckFatigue(tun) && p.Task == agents.TaskResting {
			w.Emit(LevelInfo, CatWorker, fmt.Sprintf("%s is exhausted and stops to rest", p.Name),
				map[string]any{"person_id": uint64(p.ID)})
		}

		switch {
		case p.Task.IsMoving():
			w.stepPerson(p)
		case p.Task == agents.TaskGathering:
			w.gather(p)
		}
	}
}

// stepPerson moves a person one tile along their path, or arrives when
// the path is used up.
func (w *World) stepPerson(p *agents.Person) {
	if p.PathDone() {
		w.arrive(p)
		return
	}
	next, ok := p.NextWaypoint()
	if !w.invariant(ok && world.Chebyshev(next, p.Pos) == 1,
		"person %d has a broken path at cursor %d of %d", p.ID, p.Cursor, len(p.Path)) {
		w.strand(p, "lost their way")
		return
	}

	if !w.Grid.IsWalkable(next) {
		w.reroute(p)
		return
	}
	if w.Grid.HasOtherPerson(next, uint64(p.ID)) && !p.IsFinalWaypoint() {
		return // wait for the tile to clear
	}
	if !w.invariant(w.Grid.MovePerson(uint64(p.ID), p.Pos, next),
		"person %d is not registered on %s", p.ID, p.Pos) {
		w.Grid.AddPerson(next, uint64(p.ID))
	}
	p.AdvanceCursor(next)
	if p.PathDone() {
		w.arrive(p)
	}
}

// reroute recomputes a blocked path to the same goal. A goal that is now
// covered by a building is approached from the building's side instead.
func (w *World) reroute(p *agents.Person) {
	goal, _ := p.Goal()
	var path []world.Coord
	if w.Grid.IsWalkable(goal) {
		path = w.FindPath(p.Pos, goal)
	} else if b, ok := w.Building(w.Grid.BuildingAt(goal)); ok {
		path = w.ApproachPath(p.Pos, b)
	}
	if path == nil {
		w.strand(p, "has no route")
		return
	}
	p.SetPath(path, p.Task, p.Purpose)
	w.Emit(LevelInfo, CatPathing, fmt.Sprintf("%s takes a detour", p.Name),
		map[string]any{"person_id": uint64(p.ID)})
}

// strand drops a person's route and assignments and leaves them idle.
func (w *World) strand(p *agents.Person, why string) {
	w.ReleaseAssignments(p)
	w.Emit(LevelWarning, CatPathing, fmt.Sprintf("%s %s and stands idle", p.Name, why), map[string]any{
		"person_id": uint64(p.ID),
		"x":         p.Pos.X,
		"y":         p.Pos.Y,
	})
}

func (w *World) arrive(p *agents.Person) {
	if !p.Arrive() {
		return
	}
	meta := map[string]any{"person_id": uint64(p.ID), "task": p.Task.String()}
	switch p.Task {
	case agents.TaskConstructing:
		b, ok := w.Building(p.ConstructionSite)
		if !ok || b.Constructed {
			w.ReleaseAssignments(p)
			return
		}
		meta["building_id"] = b.ID
		w.Emit(LevelInfo, CatArrival, fmt.Sprintf("%s arrived to build the %s", p.Name, b.Type), meta)
	case agents.TaskWorkingAtBuilding:
		b, ok := w.Building(p.JobBuilding)
		if !ok {
			w.ReleaseAssignments(p)
			return
		}
		meta["building_id"] = b.ID
		w.Emit(LevelInfo, CatArrival, fmt.Sprintf("%s started work at the %s", p.Name, b.Type), meta)
	case agents.TaskSleeping:
		w.Emit(LevelInfo, CatArrival, fmt.Sprintf("%s went to sleep at home", p.Name), meta)
	case agents.TaskGathering:
		w.Emit(LevelInfo, CatArrival, fmt.Sprintf("%s started gathering", p.Name), meta)
	default:
		meta["x"], meta["y"] = p.Pos.X, p.Pos.Y
		w.Emit(LevelInfo, CatArrival, fmt.Sprintf("%s arrived at %s", p.Name, p.Pos), meta)
	}
}

// GatherYield returns the resource a terrain yields to gatherers.
func GatherYield(t world.Terrain) (economy.Resource, bool) {
	switch t {
	case world.TerrainForest:
		return economy.Wood, true
	case world.TerrainRock:
		return economy.Stone, true
	case world.TerrainGrass:
		return economy.Food, true
	}
	return 0, false
}

// gather credits the village with one yield of the person's gather tile
// every GatherInterval ticks.
func (w *World) gather(p *agents.Person) {
	if p.GatherTarget == nil {
		w.ReleaseAssignments(p)
		return
	}
	tile := w.Grid.Tile(*p.GatherTarget)
	if tile == nil {
		w.ReleaseAssignments(p)
		return
	}
	res, ok := GatherYield(tile.Terrain)
	if !ok {
		w.ReleaseAssignments(p)
		return
	}
	if !p.Gather(w.Config.People) {
		return
	}
	n := w.Config.People.GatherYield
	if err := w.Village.Stock.CreditOne(res, n); err != nil {
		w.invariant(false, "gather credit: %v", err)
		return
	}
	w.Stats.Gathered += n
}
