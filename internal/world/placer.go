package world

// FreeTilesNear returns up to n walkable, unoccupied tiles closest to origin,
// searching outward ring by ring (Chebyshev radius) up to maxRadius. Within a
// ring tiles are visited in row-major order, so the result only depends on
// grid state.
func FreeTilesNear(g *Grid, origin Coord, n, maxRadius int) []Coord {
	if n <= 0 {
		return nil
	}
	out := make([]Coord, 0, n)
	for r := 0; r <= maxRadius && len(out) < n; r++ {
		for y := origin.Y - r; y <= origin.Y+r; y++ {
			for x := origin.X - r; x <= origin.X+r; x++ {
				c := Coord{X: x, Y: y}
				if Chebyshev(c, origin) != r {
					continue
				}
				if !g.IsWalkable(c) || g.Occupied(c) {
					continue
				}
				out = append(out, c)
				if len(out) == n {
					return out
				}
			}
		}
	}
	return out
}

// NearestWalkable returns the walkable tile closest to target within
// maxRadius, or false if there is none. Occupancy is ignored.
func NearestWalkable(g *Grid, target Coord, maxRadius int) (Coord, bool) {
	for r := 0; r <= maxRadius; r++ {
		for y := target.Y - r; y <= target.Y+r; y++ {
			for x := target.X - r; x <= target.X+r; x++ {
				c := Coord{X: x, Y: y}
				if Chebyshev(c, target) != r {
					continue
				}
				if g.IsWalkable(c) {
					return c, true
				}
			}
		}
	}
	return Coord{}, false
}

// Clamp returns c moved inside the grid bounds.
func (g *Grid) Clamp(c Coord) Coord {
	if c.X < 0 {
		c.X = 0
	}
	if c.Y < 0 {
		c.Y = 0
	}
	if c.X >= g.Width {
		c.X = g.Width - 1
	}
	if c.Y >= g.Height {
		c.Y = g.Height - 1
	}
	return c
}

// NearestTerrain returns the closest walkable tile of terrain t within
// maxRadius of from, scanning rings in row-major order.
func NearestTerrain(g *Grid, from Coord, t Terrain, maxRadius int) (Coord, bool) {
	for r := 0; r <= maxRadius; r++ {
		for y := from.Y - r; y <= from.Y+r; y++ {
			for x := from.X - r; x <= from.X+r; x++ {
				c := Coord{X: x, Y: y}
				if Chebyshev(c, from) != r {
					continue
				}
				tile := g.Tile(c)
				if tile != nil && tile.Walkable && tile.Terrain == t {
					return c, true
				}
			}
		}
	}
	return Coord{}, false
}
