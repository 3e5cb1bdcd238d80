package engine

import (
	"fmt"
	"slices"

	"github.com/talgya/hamlet/internal/config"
	"github.com/talgya/hamlet/internal/wildlife"
	"github.com/talgya/hamlet/internal/world"
)

// familyOffsets spread the starting families around the village centre.
var familyOffsets = []world.Coord{
	{X: 0, Y: 0}, {X: 4, Y: 0}, {X: -4, Y: 0}, {X: 0, Y: 4}, {X: 0, Y: -4},
	{X: 4, Y: 4}, {X: -4, Y: -4}, {X: 4, Y: -4}, {X: -4, Y: 4},
}

// wildlifePlacementTries bounds the random search for a starting tile.
const wildlifePlacementTries = 64

// Bootstrap generates terrain from cfg and returns a populated world. A
// terrain seed of 0 falls back to the engine seed, so the result depends on
// cfg alone.
func Bootstrap(cfg config.Config, sink Sink) (*World, error) {
	gen := cfg.World
	if gen.Seed == 0 {
		gen.Seed = cfg.Engine.Seed
	}
	w, err := NewWorld(cfg, world.Generate(gen), sink)
	if err != nil {
		return nil, err
	}
	if err := w.Populate(); err != nil {
		return nil, err
	}
	return w, nil
}

// Populate founds the configured starting families and scatters the
// starting wildlife outside the village clearing. Families belong to the
// system player.
func (w *World) Populate() error {
	vc := w.Config.Village
	for i := 0; i < vc.StartingFamilies; i++ {
		off := familyOffsets[i%len(familyOffsets)]
		origin := w.Grid.Clamp(w.Village.Center.Add(off.X, off.Y))
		f, err := w.FoundFamily("", SystemPlayer, origin, vc.FamilyAdults, vc.FamilyChildren)
		if err != nil {
			return fmt.Errorf("populate: family %d: %w", i+1, err)
		}
		w.Emit(LevelInfo, CatFamily, fmt.Sprintf("the %s family settled in %s", f.Name, w.Village.Name),
			map[string]any{"family_id": f.ID, "members": len(f.Members)})
	}

	kinds := make([]string, 0, len(vc.StartingWildlife))
	for name := range vc.StartingWildlife {
		kinds = append(kinds, name)
	}
	slices.Sort(kinds)
	for _, name := range kinds {
		s, err := wildlife.ParseSpecies(name)
		if err != nil {
			return fmt.Errorf("populate: %w", err)
		}
		for n := vc.StartingWildlife[name]; n > 0; n-- {
			pos, ok := w.wildSpot()
			if !ok {
				return fmt.Errorf("populate: no room for another %s", s)
			}
			w.SpawnAnimal(s, pos)
		}
	}
	return nil
}

// wildSpot draws a random walkable, unoccupied tile away from the village.
func (w *World) wildSpot() (world.Coord, bool) {
	keepOut := w.Config.World.ClearRadius + 2
	for range wildlifePlacementTries {
		c := world.Coord{X: w.rng.Intn(w.Grid.Width), Y: w.rng.Intn(w.Grid.Height)}
		if world.Chebyshev(c, w.Village.Center) <= keepOut {
			continue
		}
		if w.Grid.IsWalkable(c) && !w.Grid.Occupied(c) {
			return c, true
		}
	}
	return world.Coord{}, false
}
