// Package engine holds the world state, the tick scheduler and the update
// passes that advance the simulation, plus the loop that drives it.
package engine

import (
	"fmt"

	"github.com/talgya/hamlet/internal/agents"
	"github.com/talgya/hamlet/internal/buildings"
	"github.com/talgya/hamlet/internal/config"
	"github.com/talgya/hamlet/internal/entropy"
	"github.com/talgya/hamlet/internal/pathfind"
	"github.com/talgya/hamlet/internal/social"
	"github.com/talgya/hamlet/internal/wildlife"
	"github.com/talgya/hamlet/internal/world"
)

// World is the complete simulation state. It is owned by the tick pipeline:
// only commands and update passes running inside Engine.Step mutate it.
//
// Registries are slices in ID order; IDs are issued sequentially so
// appending keeps them sorted.
type World struct {
	Config config.Config

	Grid      *world.Grid
	Village   *social.Village
	Families  []*social.Family
	People    []*agents.Person
	Buildings []*buildings.Building
	Wildlife  []*wildlife.Entity

	Tick  uint64
	Stats Stats

	familyIndex   map[social.FamilyID]*social.Family
	personIndex   map[agents.PersonID]*agents.Person
	buildingIndex map[buildings.ID]*buildings.Building
	animalIndex   map[wildlife.ID]*wildlife.Entity

	nextFamily   social.FamilyID
	nextBuilding buildings.ID
	nextAnimal   wildlife.ID
	spawner      *agents.Spawner

	rng  *entropy.Source
	sink Sink

	tickEvents []Event
}

// Stats are running totals for reporting.
type Stats struct {
	Deaths       int `json:"deaths"`
	AnimalDeaths int `json:"animal_deaths"`
	Births       int `json:"births"`
	Completed    int `json:"buildings_completed"`
	Gathered     int `json:"gathered"`
	Produced     int `json:"produced"`
}

// NewWorld creates an empty world on grid. The grid must already carry
// terrain; the engine never generates it. A nil sink discards events.
func NewWorld(cfg config.Config, grid *world.Grid, sink Sink) (*World, error) {
	if grid == nil {
		return nil, fmt.Errorf("new world: nil grid")
	}
	if sink == nil {
		sink = NopSink{}
	}
	center := world.Coord{X: grid.Width / 2, Y: grid.Height / 2}
	village, err := social.NewVillage(cfg.Village.Name, center, cfg.Village.Resources())
	if err != nil {
		return nil, fmt.Errorf("new world: %w", err)
	}
	return &World{
		Config:        cfg,
		Grid:          grid,
		Village:       village,
		familyIndex:   make(map[social.FamilyID]*social.Family),
		personIndex:   make(map[agents.PersonID]*agents.Person),
		buildingIndex: make(map[buildings.ID]*buildings.Building),
		animalIndex:   make(map[wildlife.ID]*wildlife.Entity),
		nextFamily:    1,
		nextBuilding:  1,
		nextAnimal:    1,
		spawner:       agents.NewSpawner(cfg.People),
		rng:           entropy.New(cfg.Engine.Seed),
		sink:          sink,
	}, nil
}

// Rand returns the world's random source. Drawing from it is part of the
// simulation state, so only the tick pipeline may use it.
func (w *World) Rand() *entropy.Source { return w.rng }

// Family returns a family by ID.
func (w *World) Family(id social.FamilyID) (*social.Family, bool) {
	f, ok := w.familyIndex[id]
	return f, ok
}

// Person returns a person by ID.
func (w *World) Person(id agents.PersonID) (*agents.Person, bool) {
	p, ok := w.personIndex[id]
	return p, ok
}

// Building returns a building by ID.
func (w *World) Building(id buildings.ID) (*buildings.Building, bool) {
	b, ok := w.buildingIndex[id]
	return b, ok
}

// Animal returns a wildlife entity by ID.
func (w *World) Animal(id wildlife.ID) (*wildlife.Entity, bool) {
	e, ok := w.animalIndex[id]
	return e, ok
}

// Authorized reports whether player may command family f.
func (w *World) Authorized(player PlayerID, f *social.Family) bool {
	return player == SystemPlayer || uint64(player) == f.Owner
}

// FamilyOf returns the family a person belongs to.
func (w *World) FamilyOf(p *agents.Person) (*social.Family, bool) {
	return w.Family(p.FamilyID)
}

// Emit records an event and forwards it to the sink immediately.
func (w *World) Emit(level Level, category, msg string, meta map[string]any) {
	ev := Event{Tick: w.Tick, Level: level, Category: category, Message: msg, Meta: meta}
	w.tickEvents = append(w.tickEvents, ev)
	w.sink.Emit(ev)
}

func (w *World) drainEvents() []Event {
	evs := w.tickEvents
	w.tickEvents = nil
	return evs
}

// FamilySpawnRadius bounds how far from the requested spot members appear.
const FamilySpawnRadius = 8

// FoundFamily creates a family with adults and children on free walkable
// tiles near origin. It fails without side effects if there is not enough
// room.
func (w *World) FoundFamily(name string, owner PlayerID, origin world.Coord, adults, children int) (*social.Family, error) {
	n := adults + children
	if n <= 0 {
		return nil, fmt.Errorf("found family: no members")
	}
	tiles := world.FreeTilesNear(w.Grid, origin, n, FamilySpawnRadius)
	if len(tiles) < n {
		return nil, fmt.Errorf("found family: only %d free tiles near %s, need %d", len(tiles), origin, n)
	}
	if name == "" {
		name = agents.FamilyName(w.rng)
	}

	f := &social.Family{
		ID:          w.nextFamily,
		Name:        name,
		Owner:       uint64(owner),
		FoundedTick: w.Tick,
	}
	w.nextFamily++
	for i, c := range tiles {
		p := w.spawner.Spawn(w.rng, f.ID, c, i < adults, w.Tick)
		f.Members = append(f.Members, p)
		w.People = append(w.People, p)
		w.personIndex[p.ID] = p
		w.Grid.AddPerson(c, uint64(p.ID))
	}
	w.Families = append(w.Families, f)
	w.familyIndex[f.ID] = f
	return f, nil
}

// AddBuilding registers a new unconstructed building and claims its
// footprint. Callers check FootprintClear first.
func (w *World) AddBuilding(t buildings.Type, origin world.Coord, rot buildings.Rotation) (*buildings.Building, error) {
	b := buildings.New(w.nextBuilding, t, origin, rot, w.Tick)
	if err := w.Grid.ClaimBuilding(b.Footprint(), b.ID); err != nil {
		return nil, fmt.Errorf("add building: %w", err)
	}
	w.nextBuilding++
	w.Buildings = append(w.Buildings, b)
	w.buildingIndex[b.ID] = b
	return b, nil
}

// FootprintClear checks that every tile of a footprint is in bounds,
// walkable, free of buildings and not occupied by a living person or
// animal. It reports the first offending tile.
func (w *World) FootprintClear(footprint []world.Coord) (world.Coord, string, bool) {
	for _, c := range footprint {
		tile := w.Grid.Tile(c)
		switch {
		case tile == nil:
			return c, "out of bounds", false
		case tile.Building != 0:
			return c, fmt.Sprintf("occupied by building %d", tile.Building), false
		case !tile.Walkable:
			return c, "not walkable", false
		case w.Grid.Occupied(c):
			return c, "someone is standing there", false
		}
	}
	return world.Coord{}, "", true
}

// SpawnAnimal creates a wildlife entity on pos.
func (w *World) SpawnAnimal(s wildlife.Species, pos world.Coord) *wildlife.Entity {
	e := wildlife.New(w.nextAnimal, s, pos, w.Tick)
	w.registerAnimal(e)
	return e
}

func (w *World) registerAnimal(e *wildlife.Entity) {
	w.nextAnimal++
	w.Wildlife = append(w.Wildlife, e)
	w.animalIndex[e.ID] = e
	w.Grid.AddWildlife(e.Pos, e.ID)
}

// FindPath routes between two tiles using the configured connectivity.
func (w *World) FindPath(from, to world.Coord) []world.Coord {
	return pathfind.Find(w.Grid, from, to, pathfind.Options{
		Diagonal: w.Config.Engine.Diagonal,
		MaxNodes: w.Config.Engine.MaxPathNodes,
	})
}

// ApproachPath routes from a tile to the nearest reachable tile next to a
// building. Perimeter tiles are tried closest first, ties in row-major
// order. A start already next to the building yields a one-tile path.
func (w *World) ApproachPath(from world.Coord, b *buildings.Building) []world.Coord {
	if b.Adjacent(from) {
		return []world.Coord{from}
	}
	var best []world.Coord
	for _, c := range sortByDistance(b.Perimeter(), from, w.Distance) {
		if !w.Grid.IsWalkable(c) {
			continue
		}
		// A route has at least Distance+1 tiles.
		if best != nil && w.Distance(from, c) >= len(best) {
			break
		}
		if path := w.FindPath(from, c); path != nil && (best == nil || len(path) < len(best)) {
			best = path
		}
	}
	return best
}

// Distance is the grid distance matching the pathfinding connectivity.
func (w *World) Distance(a, b world.Coord) int {
	if w.Config.Engine.Diagonal {
		return world.Chebyshev(a, b)
	}
	return world.Manhattan(a, b)
}

func sortByDistance(cs []world.Coord, from world.Coord, dist func(a, b world.Coord) int) []world.Coord {
	out := make([]world.Coord, len(cs))
	copy(out, cs)
	// Insertion sort keeps row-major order among equal distances.
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && dist(out[j], from) < dist(out[j-1], from); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

// ReleaseAssignments removes a person from every building list they are on
// except their home, and clears their assignments.
func (w *World) ReleaseAssignments(p *agents.Person) {
	if b, ok := w.Building(p.JobBuilding); ok {
		b.RemoveWorker(uint64(p.ID))
	}
	if b, ok := w.Building(p.ConstructionSite); ok {
		b.RemoveConstructionWorker(uint64(p.ID))
	}
	p.Release()
}

// KillPerson marks a person dead and removes them from tile occupancy and
// every building list.
func (w *World) KillPerson(p *agents.Person, cause string) {
	if !p.Alive {
		return
	}
	task := p.Task
	if b, ok := w.Building(p.JobBuilding); ok {
		b.RemoveWorker(uint64(p.ID))
	}
	if b, ok := w.Building(p.ConstructionSite); ok {
		b.RemoveConstructionWorker(uint64(p.ID))
	}
	if b, ok := w.Building(p.HomeBuilding); ok {
		b.RemoveResident(uint64(p.ID))
	}
	w.invariant(w.Grid.RemovePerson(p.Pos, uint64(p.ID)),
		"person %d was not registered on %s", p.ID, p.Pos)
	p.Die(w.Tick)
	w.Stats.Deaths++
	w.Emit(LevelError, CatDeath, fmt.Sprintf("%s has died of %s", p.Name, cause), map[string]any{
		"person_id": uint64(p.ID),
		"family_id": p.FamilyID,
		"task":      task.String(),
	})
}

// RemoveAnimal deregisters a dead animal from tile occupancy.
func (w *World) RemoveAnimal(e *wildlife.Entity) {
	w.invariant(w.Grid.RemoveWildlife(e.Pos, e.ID),
		"animal %d was not registered on %s", e.ID, e.Pos)
	w.Stats.AnimalDeaths++
}

// Living returns the number of living persons.
func (w *World) Living() int {
	n := 0
	for _, p := range w.People {
		if p.Alive {
			n++
		}
	}
	return n
}

// LivingAnimals returns the number of living animals.
func (w *World) LivingAnimals() int {
	n := 0
	for _, e := range w.Wildlife {
		if e.Alive {
			n++
		}
	}
	return n
}
