package world

// Terrain types for grid tiles.
type Terrain uint8

const (
	TerrainGrass    Terrain = iota // Open meadow: forage, grazing
	TerrainForest                  // Timber
	TerrainRock                    // Stone outcrops
	TerrainSand                    // Shoreline, nothing to gather
	TerrainWater                   // Impassable
	TerrainMountain                // Impassable
)

// NumTerrains is the total number of terrain types.
const NumTerrains = 6

// Walkable reports whether the terrain can be walked on when no building
// stands on it.
func (t Terrain) Walkable() bool {
	return t != TerrainWater && t != TerrainMountain
}

// TerrainName returns a human-readable name for a terrain type.
func TerrainName(t Terrain) string {
	switch t {
	case TerrainGrass:
		return "Grass"
	case TerrainForest:
		return "Forest"
	case TerrainRock:
		return "Rock"
	case TerrainSand:
		return "Sand"
	case TerrainWater:
		return "Water"
	case TerrainMountain:
		return "Mountain"
	default:
		return "Unknown"
	}
}

func (t Terrain) String() string { return TerrainName(t) }

// MarshalText encodes the terrain by name.
func (t Terrain) MarshalText() ([]byte, error) { return []byte(t.String()), nil }
