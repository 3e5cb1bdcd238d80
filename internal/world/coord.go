// Package world provides the tile grid, terrain, and occupancy bookkeeping
// the simulation runs on. Coordinates are integer (x, y) with y growing
// downward; the grid is fixed size and row-major.
package world

import "fmt"

// Coord is a tile position on the grid.
type Coord struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Add returns c offset by (dx, dy).
func (c Coord) Add(dx, dy int) Coord {
	return Coord{X: c.X + dx, Y: c.Y + dy}
}

// Less orders coordinates by row, then column. Used wherever a stable
// secondary key is needed so ties never depend on map iteration.
func (c Coord) Less(o Coord) bool {
	if c.Y != o.Y {
		return c.Y < o.Y
	}
	return c.X < o.X
}

func (c Coord) String() string {
	return fmt.Sprintf("(%d,%d)", c.X, c.Y)
}

// Orthogonal offsets in fixed N, E, S, W order.
var Orthogonal = [4]Coord{
	{X: 0, Y: -1},
	{X: 1, Y: 0},
	{X: 0, Y: 1},
	{X: -1, Y: 0},
}

// Diagonal offsets in fixed NE, SE, SW, NW order.
var Diagonal = [4]Coord{
	{X: 1, Y: -1},
	{X: 1, Y: 1},
	{X: -1, Y: 1},
	{X: -1, Y: -1},
}

// Manhattan returns the 4-connected grid distance between two coordinates.
func Manhattan(a, b Coord) int {
	return abs(a.X-b.X) + abs(a.Y-b.Y)
}

// Chebyshev returns the 8-connected grid distance between two coordinates.
func Chebyshev(a, b Coord) int {
	dx := abs(a.X - b.X)
	dy := abs(a.Y - b.Y)
	if dx > dy {
		return dx
	}
	return dy
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
