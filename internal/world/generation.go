// Terrain generation using layered simplex noise.
// Generates elevation and moisture fields, then derives terrain per tile.
// This is the reference generator wired by cmd/hamlet; the simulation core
// only needs a populated Grid and never calls it.
package world

import (
	"math"
	"math/rand"

	opensimplex "github.com/ojrac/opensimplex-go"
)

// GenConfig holds terrain generation parameters.
type GenConfig struct {
	Width         int     `yaml:"width"`
	Height        int     `yaml:"height"`
	Seed          int64   `yaml:"seed"`           // 0 = random
	WaterLevel    float64 `yaml:"water_level"`    // Elevation threshold for water (0.0–1.0)
	MountainLevel float64 `yaml:"mountain_level"` // Elevation threshold for mountains (0.0–1.0)
	ClearRadius   int     `yaml:"clear_radius"`   // Guaranteed grass around the centre for the village
}

// DefaultGenConfig returns a reasonable starting configuration.
func DefaultGenConfig() GenConfig {
	return GenConfig{
		Width:         64,
		Height:        64,
		Seed:          42,
		WaterLevel:    0.28,
		MountainLevel: 0.78,
		ClearRadius:   6,
	}
}

// SmallTestConfig returns a tiny world for rapid iteration.
func SmallTestConfig() GenConfig {
	return GenConfig{
		Width:         16,
		Height:        16,
		Seed:          7,
		WaterLevel:    0.25,
		MountainLevel: 0.85,
		ClearRadius:   3,
	}
}

// Generate creates a grid with terrain derived from noise.
func Generate(cfg GenConfig) *Grid {
	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Int63()
	}

	elevNoise := opensimplex.NewNormalized(seed)
	moistNoise := opensimplex.NewNormalized(seed + 1)

	g := NewGrid(cfg.Width, cfg.Height, TerrainGrass)
	cx := float64(cfg.Width-1) / 2
	cy := float64(cfg.Height-1) / 2
	maxDist := math.Hypot(cx, cy)

	for y := 0; y < cfg.Height; y++ {
		for x := 0; x < cfg.Width; x++ {
			fx, fy := float64(x), float64(y)
			elev := octaveNoise(elevNoise, fx, fy, 4, 0.06, 0.5)
			moist := octaveNoise(moistNoise, fx, fy, 3, 0.08, 0.5)

			// Lakes pool toward the edges rather than the middle of the map.
			dist := math.Hypot(fx-cx, fy-cy) / maxDist
			elev = elev*0.85 + (1.0-dist)*0.15

			c := Coord{X: x, Y: y}
			if Chebyshev(c, Coord{X: int(cx), Y: int(cy)}) <= cfg.ClearRadius {
				g.SetTerrain(c, TerrainGrass)
				continue
			}
			g.SetTerrain(c, deriveTerrain(elev, moist, cfg))
		}
	}

	markShores(g)
	return g
}

// deriveTerrain determines terrain type from environmental parameters.
func deriveTerrain(elev, moist float64, cfg GenConfig) Terrain {
	if elev < cfg.WaterLevel {
		return TerrainWater
	}
	if elev > cfg.MountainLevel {
		return TerrainMountain
	}
	if elev > cfg.MountainLevel-0.08 {
		return TerrainRock
	}
	if moist > 0.55 {
		return TerrainForest
	}
	return TerrainGrass
}

// markShores converts grass next to water into sand.
func markShores(g *Grid) {
	var toMark []Coord
	g.Each(func(c Coord, t *Tile) {
		if t.Terrain != TerrainGrass {
			return
		}
		for _, n := range g.Neighbors(c) {
			if g.Tile(n).Terrain == TerrainWater {
				toMark = append(toMark, c)
				return
			}
		}
	})
	for _, c := range toMark {
		g.SetTerrain(c, TerrainSand)
	}
}

// octaveNoise generates fractal noise by layering multiple frequencies.
func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0

	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}

	return total / maxVal
}

// TerrainCounts returns a summary of terrain type distribution.
func TerrainCounts(g *Grid) map[Terrain]int {
	counts := make(map[Terrain]int)
	g.Each(func(_ Coord, t *Tile) {
		counts[t.Terrain]++
	})
	return counts
}
