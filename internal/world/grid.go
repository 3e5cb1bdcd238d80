package world

import (
	"fmt"
	"slices"
)

// Tile is a single grid cell.
//
// Walkable is false whenever Building is non-zero. The occupant sets are only
// touched through the Grid methods so they always agree with the positions
// held by the entities themselves.
type Tile struct {
	Terrain  Terrain `json:"terrain"`
	Walkable bool    `json:"walkable"`
	Building uint64  `json:"building,omitempty"` // 0 = none

	people   map[uint64]struct{}
	wildlife map[uint64]struct{}
}

// Grid holds the complete tile state of the world.
type Grid struct {
	Width  int `json:"width"`
	Height int `json:"height"`

	tiles []Tile
}

// NewGrid creates a width×height grid filled with one terrain.
func NewGrid(width, height int, fill Terrain) *Grid {
	if width <= 0 || height <= 0 {
		panic(fmt.Sprintf("world: invalid grid size %dx%d", width, height))
	}
	g := &Grid{
		Width:  width,
		Height: height,
		tiles:  make([]Tile, width*height),
	}
	for i := range g.tiles {
		g.tiles[i].Terrain = fill
		g.tiles[i].Walkable = fill.Walkable()
	}
	return g
}

// InBounds returns true if the coordinate lies on the grid.
func (g *Grid) InBounds(c Coord) bool {
	return c.X >= 0 && c.Y >= 0 && c.X < g.Width && c.Y < g.Height
}

// Tile returns the tile at c, or nil if out of bounds.
func (g *Grid) Tile(c Coord) *Tile {
	if !g.InBounds(c) {
		return nil
	}
	return &g.tiles[c.Y*g.Width+c.X]
}

// SetTerrain changes the terrain of a tile. Walkability follows the terrain
// unless a building stands there.
func (g *Grid) SetTerrain(c Coord, t Terrain) {
	tile := g.Tile(c)
	if tile == nil {
		return
	}
	tile.Terrain = t
	tile.Walkable = tile.Building == 0 && t.Walkable()
}

// IsWalkable reports whether an entity may stand on or path through c.
func (g *Grid) IsWalkable(c Coord) bool {
	tile := g.Tile(c)
	return tile != nil && tile.Walkable
}

// BuildingAt returns the building ID on c (0 = none).
func (g *Grid) BuildingAt(c Coord) uint64 {
	tile := g.Tile(c)
	if tile == nil {
		return 0
	}
	return tile.Building
}

// ClaimBuilding marks every footprint tile as occupied by the building and
// non-walkable. Callers validate the footprint first; a tile that is already
// claimed or out of bounds is a programming error.
func (g *Grid) ClaimBuilding(footprint []Coord, id uint64) error {
	for _, c := range footprint {
		tile := g.Tile(c)
		if tile == nil {
			return fmt.Errorf("claim %s: out of bounds", c)
		}
		if tile.Building != 0 {
			return fmt.Errorf("claim %s: already holds building %d", c, tile.Building)
		}
	}
	for _, c := range footprint {
		tile := g.Tile(c)
		tile.Building = id
		tile.Walkable = false
	}
	return nil
}

// AddPerson registers a person on c.
func (g *Grid) AddPerson(c Coord, id uint64) {
	tile := g.Tile(c)
	if tile == nil {
		return
	}
	if tile.people == nil {
		tile.people = make(map[uint64]struct{})
	}
	tile.people[id] = struct{}{}
}

// RemovePerson deregisters a person from c. Returns false if the person was
// not registered there.
func (g *Grid) RemovePerson(c Coord, id uint64) bool {
	tile := g.Tile(c)
	if tile == nil {
		return false
	}
	if _, ok := tile.people[id]; !ok {
		return false
	}
	delete(tile.people, id)
	return true
}

// MovePerson moves a person's registration from one tile to another.
// Returns false (and changes nothing) if the person was not on from.
func (g *Grid) MovePerson(id uint64, from, to Coord) bool {
	if !g.InBounds(to) || !g.RemovePerson(from, id) {
		return false
	}
	g.AddPerson(to, id)
	return true
}

// HasPerson reports whether the person is registered on c.
func (g *Grid) HasPerson(c Coord, id uint64) bool {
	tile := g.Tile(c)
	if tile == nil {
		return false
	}
	_, ok := tile.people[id]
	return ok
}

// HasOtherPerson reports whether anyone other than self stands on c.
func (g *Grid) HasOtherPerson(c Coord, self uint64) bool {
	tile := g.Tile(c)
	if tile == nil {
		return false
	}
	for id := range tile.people {
		if id != self {
			return true
		}
	}
	return false
}

// PeopleAt returns the person IDs on c in ascending order.
func (g *Grid) PeopleAt(c Coord) []uint64 {
	tile := g.Tile(c)
	if tile == nil {
		return nil
	}
	return sortedIDs(tile.people)
}

// AddWildlife registers an animal on c.
func (g *Grid) AddWildlife(c Coord, id uint64) {
	tile := g.Tile(c)
	if tile == nil {
		return
	}
	if tile.wildlife == nil {
		tile.wildlife = make(map[uint64]struct{})
	}
	tile.wildlife[id] = struct{}{}
}

// RemoveWildlife deregisters an animal from c.
func (g *Grid) RemoveWildlife(c Coord, id uint64) bool {
	tile := g.Tile(c)
	if tile == nil {
		return false
	}
	if _, ok := tile.wildlife[id]; !ok {
		return false
	}
	delete(tile.wildlife, id)
	return true
}

// MoveWildlife moves an animal's registration from one tile to another.
func (g *Grid) MoveWildlife(id uint64, from, to Coord) bool {
	if !g.InBounds(to) || !g.RemoveWildlife(from, id) {
		return false
	}
	g.AddWildlife(to, id)
	return true
}

// HasWildlife reports whether the animal is registered on c.
func (g *Grid) HasWildlife(c Coord, id uint64) bool {
	tile := g.Tile(c)
	if tile == nil {
		return false
	}
	_, ok := tile.wildlife[id]
	return ok
}

// WildlifeAt returns the animal IDs on c in ascending order.
func (g *Grid) WildlifeAt(c Coord) []uint64 {
	tile := g.Tile(c)
	if tile == nil {
		return nil
	}
	return sortedIDs(tile.wildlife)
}

// Occupied reports whether any person or animal stands on c.
func (g *Grid) Occupied(c Coord) bool {
	tile := g.Tile(c)
	return tile != nil && (len(tile.people) > 0 || len(tile.wildlife) > 0)
}

// Neighbors returns the in-bounds orthogonal neighbours of c in N, E, S, W order.
func (g *Grid) Neighbors(c Coord) []Coord {
	out := make([]Coord, 0, 4)
	for _, d := range Orthogonal {
		n := c.Add(d.X, d.Y)
		if g.InBounds(n) {
			out = append(out, n)
		}
	}
	return out
}

// Each calls fn for every tile in row-major order.
func (g *Grid) Each(fn func(c Coord, t *Tile)) {
	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			fn(Coord{X: x, Y: y}, &g.tiles[y*g.Width+x])
		}
	}
}

// String returns a summary of the grid.
func (g *Grid) String() string {
	return fmt.Sprintf("Grid(%dx%d)", g.Width, g.Height)
}

// PeopleIDs returns the occupant IDs of the tile in ascending order.
func (t *Tile) PeopleIDs() []uint64 { return sortedIDs(t.people) }

// WildlifeIDs returns the animal IDs of the tile in ascending order.
func (t *Tile) WildlifeIDs() []uint64 { return sortedIDs(t.wildlife) }

func sortedIDs(set map[uint64]struct{}) []uint64 {
	if len(set) == 0 {
		return nil
	}
	ids := make([]uint64, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
