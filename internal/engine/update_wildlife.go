package engine

import (
	"fmt"

	"github.com/talgya/hamlet/internal/wildlife"
	"github.com/talgya/hamlet/internal/world"
)

// fleeFromPersonFear is the fear level at which an animal flees the person
// that last hurt it even when they are outside the usual alarm distance.
const fleeFromPersonFear = 50

// updateWildlife advances every living animal one step, in ID order:
// needs, then a decision, then movement.
func (w *World) updateWildlife() {
	tun := w.Config.Wildlife
	// Offspring born this tick are appended to w.Wildlife; they start next tick.
	herd := w.Wildlife
	for _, e := range herd {
		if !e.Alive {
			continue
		}
		if e.UpdateNeeds(tun, w.Tick) {
			w.RemoveAnimal(e)
			w.Emit(LevelInfo, CatWildlife, fmt.Sprintf("a %s died of hunger", e.Species),
				map[string]any{"wildlife_id": e.ID, "species": e.Species.String()})
			continue
		}
		w.decide(e, tun)
		if e.Alive {
			w.moveAnimal(e)
		}
	}
}

func (w *World) decide(e *wildlife.Entity, tun wildlife.Tuning) {
	// Threats come first: a fleeing animal keeps running while one is near.
	if from, ok := w.nearestThreat(e); ok {
		if e.Behavior == wildlife.Breeding {
			e.Mate = 0
		}
		if e.Behavior != wildlife.Fleeing || e.PathDone() {
			w.flee(e, from)
		}
		return
	}
	if e.Behavior == wildlife.Fleeing {
		if !e.PathDone() {
			return
		}
		e.Behavior = wildlife.Idle
	}

	switch e.Behavior {
	case wildlife.Breeding:
		w.continueBreeding(e)
		return
	case wildlife.Eating:
		e.Feed(tun.EatFood)
		e.BehaviorTicks--
		if e.BehaviorTicks <= 0 {
			e.Behavior = wildlife.Idle
		}
		return
	case wildlife.Resting:
		if e.Energy < tun.RestedThreshold {
			return
		}
		e.Behavior = wildlife.Idle
	}

	if e.Energy <= tun.TiredThreshold {
		e.ClearPath()
		e.Target = 0
		e.Behavior = wildlife.Resting
		return
	}

	if e.IsHungry(tun) {
		if e.Species.Stats().Diet == wildlife.Carnivore {
			if w.hunt(e) {
				return
			}
		} else if w.graze(e, tun) {
			return
		}
	} else if e.Behavior == wildlife.Grazing || e.Behavior == wildlife.Hunting {
		e.ClearPath()
		e.Target = 0
		e.Behavior = wildlife.Idle
	}

	if tun.BreedingEnabled && e.CanBreed(tun) && w.startBreeding(e, tun) {
		return
	}

	w.wander(e, tun)
}

// nearestThreat finds the closest living predator within detection range,
// or a person close enough to alarm a shy species. Ties go to the lower ID.
// e.Threat names the predator when one wins and is cleared when a person does.
func (w *World) nearestThreat(e *wildlife.Entity) (world.Coord, bool) {
	st := e.Species.Stats()
	best, bestDist := world.Coord{}, st.DetectionRange+1
	var predator wildlife.ID
	for _, o := range w.Wildlife {
		if !o.Alive || o.ID == e.ID || !e.Species.Fears(o.Species) {
			continue
		}
		if d := world.Chebyshev(e.Pos, o.Pos); d < bestDist {
			best, bestDist, predator = o.Pos, d, o.ID
		}
	}
	found := predator != 0
	if st.FleesPeople {
		alarm := st.DetectionRange / 2
		for _, p := range w.People {
			if !p.Alive {
				continue
			}
			d := world.Chebyshev(e.Pos, p.Pos)
			limit := alarm
			if uint64(p.ID) == e.ThreatPerson && e.Fear >= fleeFromPersonFear {
				limit = st.DetectionRange
			}
			if d <= limit && d < bestDist {
				best, bestDist, found, predator = p.Pos, d, true, 0
			}
		}
	}
	if found {
		e.Threat = predator
	}
	return best, found
}

// flee runs directly away from a threat for the species' flee distance,
// settling for the closest walkable tile to that spot.
func (w *World) flee(e *wildlife.Entity, from world.Coord) {
	st := e.Species.Stats()
	dx, dy := sign(e.Pos.X-from.X), sign(e.Pos.Y-from.Y)
	if dx == 0 && dy == 0 {
		dx = 1
	}
	spot := w.Grid.Clamp(e.Pos.Add(dx*st.FleeDistance, dy*st.FleeDistance))
	e.Target = 0
	e.Mate = 0
	e.Behavior = wildlife.Fleeing
	dest, ok := world.NearestWalkable(w.Grid, spot, 3)
	if !ok {
		e.ClearPath()
		return
	}
	if path := w.FindPath(e.Pos, dest); path != nil {
		e.SetPath(path, wildlife.Fleeing)
	} else {
		e.ClearPath()
	}
}

// hunt chases and bites the current or nearest prey. Returns false if there
// is no prey in range.
func (w *World) hunt(e *wildlife.Entity) bool {
	st := e.Species.Stats()
	prey, ok := w.Animal(e.Target)
	if !ok || !prey.Alive || world.Chebyshev(e.Pos, prey.Pos) > st.DetectionRange {
		prey = w.nearestPrey(e)
		if prey == nil {
			e.Target = 0
			if e.Behavior == wildlife.Hunting {
				e.ClearPath()
				e.Behavior = wildlife.Idle
			}
			return false
		}
		e.Target = prey.ID
	}

	if world.Chebyshev(e.Pos, prey.Pos) <= 1 {
		e.ClearPath()
		e.Behavior = wildlife.Hunting
		killed := prey.TakeDamage(st.AttackDamage, wildlife.Attacker{Wildlife: e.ID},
			w.Config.Wildlife.DamageFear, w.Tick)
		if killed {
			w.RemoveAnimal(prey)
			e.Target = 0
			e.Behavior = wildlife.Eating
			e.BehaviorTicks = w.Config.Wildlife.EatTicks
			w.Emit(LevelInfo, CatWildlife, fmt.Sprintf("a %s killed a %s", e.Species, prey.Species), map[string]any{
				"wildlife_id": e.ID,
				"prey_id":     prey.ID,
				"x":           prey.Pos.X,
				"y":           prey.Pos.Y,
			})
		}
		return true
	}

	goal, hasGoal := pathGoal(e.Path)
	if e.Behavior != wildlife.Hunting || e.PathDone() || !hasGoal || world.Chebyshev(goal, prey.Pos) > 1 {
		path := w.FindPath(e.Pos, prey.Pos)
		if path == nil {
			e.Target = 0
			return false
		}
		e.SetPath(path, wildlife.Hunting)
	}
	return true
}

func (w *World) nearestPrey(e *wildlife.Entity) *wildlife.Entity {
	st := e.Species.Stats()
	var best *wildlife.Entity
	bestDist := st.DetectionRange + 1
	for _, o := range w.Wildlife {
		if !o.Alive || o.ID == e.ID || !e.Species.Hunts(o.Species) {
			continue
		}
		if d := world.Chebyshev(e.Pos, o.Pos); d < bestDist {
			best, bestDist = o, d
		}
	}
	return best
}

// graze eats grass in place or walks to the nearest grass in sight.
func (w *World) graze(e *wildlife.Entity, tun wildlife.Tuning) bool {
	if tile := w.Grid.Tile(e.Pos); tile != nil && tile.Terrain == world.TerrainGrass {
		e.ClearPath()
		e.Behavior = wildlife.Grazing
		e.Feed(tun.GrazeFood)
		return true
	}
	if e.Behavior == wildlife.Wandering && !e.PathDone() {
		return true // already heading somewhere
	}
	grass, ok := world.NearestTerrain(w.Grid, e.Pos, world.TerrainGrass, e.Species.Stats().DetectionRange)
	if !ok {
		return false
	}
	path := w.FindPath(e.Pos, grass)
	if path == nil {
		return false
	}
	e.SetPath(path, wildlife.Wandering)
	return true
}

// wander occasionally picks a random walkable tile inside the territory.
func (w *World) wander(e *wildlife.Entity, tun wildlife.Tuning) {
	if e.Behavior == wildlife.Wandering && !e.PathDone() {
		return
	}
	e.Behavior = wildlife.Idle
	if !w.rng.Chance(tun.WanderChance) {
		return
	}
	r := e.Species.Stats().TerritoryRadius
	spot := w.Grid.Clamp(e.Home.Add(w.rng.Range(-r, r), w.rng.Range(-r, r)))
	dest, ok := world.NearestWalkable(w.Grid, spot, 2)
	if !ok || dest == e.Pos {
		return
	}
	if path := w.FindPath(e.Pos, dest); path != nil {
		e.SetPath(path, wildlife.Wandering)
	}
}

// startBreeding pairs e with an eligible, unpaired animal of its species on
// the same or an adjacent tile. The lower ID is the first parent.
func (w *World) startBreeding(e *wildlife.Entity, tun wildlife.Tuning) bool {
	for _, o := range w.Wildlife {
		if o.ID == e.ID || o.Species != e.Species || o.Mate != 0 || o.Behavior == wildlife.Breeding {
			continue
		}
		if world.Chebyshev(e.Pos, o.Pos) > 1 || !o.CanBreed(tun) {
			continue
		}
		for _, a := range []*wildlife.Entity{e, o} {
			a.ClearPath()
			a.Behavior = wildlife.Breeding
			a.BehaviorTicks = tun.BreedingTicks
		}
		e.Mate, o.Mate = o.ID, e.ID
		return true
	}
	return false
}

// continueBreeding counts the pair down on the first parent only; the
// second parent waits until the first completes the pair for both.
func (w *World) continueBreeding(e *wildlife.Entity) {
	mate, ok := w.Animal(e.Mate)
	if !ok || !mate.Alive || mate.Mate != e.ID || mate.Behavior != wildlife.Breeding {
		e.Mate = 0
		e.Behavior = wildlife.Idle
		return
	}
	if e.ID > mate.ID {
		return
	}
	e.BehaviorTicks--
	if e.BehaviorTicks > 0 {
		return
	}
	cooldown := e.Species.Stats().BreedCooldown
	for _, a := range []*wildlife.Entity{e, mate} {
		a.Mate = 0
		a.Behavior = wildlife.Idle
		a.BehaviorTicks = 0
		a.BreedCooldown = cooldown
	}
	baby := wildlife.NewOffspring(w.nextAnimal, e.Species, e.Pos, w.Tick)
	w.registerAnimal(baby)
	w.Stats.Births++
	w.Emit(LevelSuccess, CatWildlife, fmt.Sprintf("a %s was born", e.Species), map[string]any{
		"wildlife_id": baby.ID,
		"parent_id":   e.ID,
		"mate_id":     mate.ID,
	})
}

// moveAnimal steps one tile along the path when the species' pace allows.
// Occupancy moves with the animal on every step.
func (w *World) moveAnimal(e *wildlife.Entity) {
	if len(e.Path) == 0 || e.PathDone() {
		return
	}
	if !e.StepDue() {
		return
	}
	next, ok := e.NextWaypoint()
	if !w.invariant(ok && world.Chebyshev(next, e.Pos) == 1,
		"animal %d has a broken path at cursor %d of %d", e.ID, e.Cursor, len(e.Path)) {
		e.ClearPath()
		return
	}
	if !w.Grid.IsWalkable(next) {
		goal, _ := pathGoal(e.Path)
		if path := w.FindPath(e.Pos, goal); path != nil {
			e.SetPath(path, e.Behavior)
		} else {
			e.ClearPath()
		}
		return
	}
	if !w.invariant(w.Grid.MoveWildlife(e.ID, e.Pos, next),
		"animal %d is not registered on %s", e.ID, e.Pos) {
		w.Grid.AddWildlife(next, e.ID)
	}
	e.AdvanceCursor(next)
}

func pathGoal(path []world.Coord) (world.Coord, bool) {
	if len(path) == 0 {
		return world.Coord{}, false
	}
	return path[len(path)-1], true
}

func sign(v int) int {
	switch {
	case v < 0:
		return -1
	case v > 0:
		return 1
	}
	return 0
}
