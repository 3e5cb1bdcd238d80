package engine

import (
	"cmp"
	"slices"

	"github.com/talgya/hamlet/internal/agents"
	"github.com/talgya/hamlet/internal/buildings"
	"github.com/talgya/hamlet/internal/economy"
	"github.com/talgya/hamlet/internal/wildlife"
	"github.com/talgya/hamlet/internal/world"
)

// Snapshot is an immutable copy of the world taken after a tick. Readers
// such as the API may hold it for as long as they like.
type Snapshot struct {
	Tick   uint64 `json:"tick"`
	Digest string `json:"digest"`
	Stats  Stats  `json:"stats"`

	Width   int             `json:"width"`
	Height  int             `json:"height"`
	Terrain []world.Terrain `json:"terrain"` // row-major

	Village   VillageView          `json:"village"`
	Families  []FamilyView         `json:"families"`
	People    []agents.Person      `json:"people"`
	Buildings []buildings.Building `json:"buildings"`
	Wildlife  []wildlife.Entity    `json:"wildlife"`
}

// VillageView is the village summary inside a snapshot.
type VillageView struct {
	Name   string         `json:"name"`
	Center world.Coord    `json:"center"`
	Stock  economy.Bundle `json:"-"`
	Living int            `json:"living"`
	Stocks map[string]int `json:"stock"`
}

// FamilyView is a family with member IDs in place of pointers.
type FamilyView struct {
	ID           uint64       `json:"id"`
	Name         string       `json:"name"`
	Owner        uint64       `json:"owner"`
	Home         *world.Coord `json:"home,omitempty"`
	HomeBuilding uint64       `json:"home_building,omitempty"`
	Members      []uint64     `json:"members"`
	Living       int          `json:"living"`
}

// Snapshot copies the current state. It must run on the tick goroutine.
func (w *World) Snapshot() *Snapshot {
	s := &Snapshot{
		Tick:    w.Tick,
		Digest:  w.Digest(),
		Stats:   w.Stats,
		Width:   w.Grid.Width,
		Height:  w.Grid.Height,
		Terrain: make([]world.Terrain, 0, w.Grid.Width*w.Grid.Height),
		Village: VillageView{
			Name:   w.Village.Name,
			Center: w.Village.Center,
			Stock:  w.Village.Stock.Contents(),
			Living: w.Living(),
			Stocks: w.Village.Stock.Contents().Map(),
		},
	}
	w.Grid.Each(func(_ world.Coord, t *world.Tile) {
		s.Terrain = append(s.Terrain, t.Terrain)
	})

	s.Families = make([]FamilyView, 0, len(w.Families))
	for _, f := range w.Families {
		v := FamilyView{
			ID:           f.ID,
			Name:         f.Name,
			Owner:        f.Owner,
			HomeBuilding: f.HomeBuilding,
			Living:       len(f.Living()),
		}
		if f.Home != nil {
			h := *f.Home
			v.Home = &h
		}
		for _, m := range f.Members {
			v.Members = append(v.Members, uint64(m.ID))
		}
		s.Families = append(s.Families, v)
	}

	s.People = make([]agents.Person, 0, len(w.People))
	for _, p := range w.People {
		c := *p
		c.Path = slices.Clone(p.Path)
		if p.GatherTarget != nil {
			t := *p.GatherTarget
			c.GatherTarget = &t
		}
		s.People = append(s.People, c)
	}

	s.Buildings = make([]buildings.Building, 0, len(w.Buildings))
	for _, b := range w.Buildings {
		c := *b
		c.ConstructionWorkers = slices.Clone(b.ConstructionWorkers)
		c.Workers = slices.Clone(b.Workers)
		c.Residents = slices.Clone(b.Residents)
		s.Buildings = append(s.Buildings, c)
	}

	s.Wildlife = make([]wildlife.Entity, 0, len(w.Wildlife))
	for _, e := range w.Wildlife {
		c := *e
		c.Path = slices.Clone(e.Path)
		s.Wildlife = append(s.Wildlife, c)
	}
	return s
}

// Person finds a person in the snapshot by ID.
func (s *Snapshot) Person(id agents.PersonID) (agents.Person, bool) {
	i, ok := slices.BinarySearchFunc(s.People, id, func(p agents.Person, id agents.PersonID) int {
		return cmp.Compare(p.ID, id)
	})
	if !ok {
		return agents.Person{}, false
	}
	return s.People[i], true
}

// Building finds a building in the snapshot by ID.
func (s *Snapshot) Building(id uint64) (buildings.Building, bool) {
	i, ok := slices.BinarySearchFunc(s.Buildings, id, func(b buildings.Building, id uint64) int {
		return cmp.Compare(b.ID, id)
	})
	if !ok {
		return buildings.Building{}, false
	}
	return s.Buildings[i], true
}

// Family finds a family in the snapshot by ID.
func (s *Snapshot) Family(id uint64) (FamilyView, bool) {
	i, ok := slices.BinarySearchFunc(s.Families, id, func(f FamilyView, id uint64) int {
		return cmp.Compare(f.ID, id)
	})
	if !ok {
		return FamilyView{}, false
	}
	return s.Families[i], true
}
