package engine

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"hash"
	"math"

	"github.com/talgya/hamlet/internal/economy"
	"github.com/talgya/hamlet/internal/world"
)

// digester writes fixed-width little-endian fields into a hash so equal
// states always produce equal digests.
type digester struct {
	h   hash.Hash
	tmp [8]byte
}

func (d *digester) u64(v uint64) {
	binary.LittleEndian.PutUint64(d.tmp[:], v)
	d.h.Write(d.tmp[:])
}

func (d *digester) int(v int) { d.u64(uint64(int64(v))) }

func (d *digester) f64(v float64) { d.u64(math.Float64bits(v)) }

func (d *digester) coord(c world.Coord) {
	d.int(c.X)
	d.int(c.Y)
}

func (d *digester) bool(v bool) {
	if v {
		d.u64(1)
	} else {
		d.u64(0)
	}
}

func (d *digester) str(s string) {
	d.u64(uint64(len(s)))
	d.h.Write([]byte(s))
}

func (d *digester) ids(ids []uint64) {
	d.u64(uint64(len(ids)))
	for _, id := range ids {
		d.u64(id)
	}
}

func (d *digester) path(p []world.Coord) {
	d.u64(uint64(len(p)))
	for _, c := range p {
		d.coord(c)
	}
}

func (d *digester) bundle(b economy.Bundle) {
	for _, q := range b {
		d.int(q)
	}
}

func (d *digester) optCoord(c *world.Coord) {
	d.bool(c != nil)
	if c != nil {
		d.coord(*c)
	}
}

// Digest returns a hex SHA-256 over the full simulation state. Two worlds
// with the same seed and command history have the same digest at every
// tick. Wall-clock data and events are not part of the state.
func (w *World) Digest() string {
	d := &digester{h: sha256.New()}

	d.u64(w.Tick)
	d.u64(w.rng.State())
	d.u64(w.nextFamily)
	d.u64(w.nextBuilding)
	d.u64(w.nextAnimal)
	d.u64(uint64(w.spawner.NextID()))
	d.int(w.Stats.Deaths)
	d.int(w.Stats.AnimalDeaths)
	d.int(w.Stats.Births)
	d.int(w.Stats.Completed)
	d.int(w.Stats.Gathered)
	d.int(w.Stats.Produced)

	d.int(w.Grid.Width)
	d.int(w.Grid.Height)
	w.Grid.Each(func(_ world.Coord, t *world.Tile) {
		d.u64(uint64(t.Terrain))
		d.bool(t.Walkable)
		d.u64(t.Building)
		d.ids(t.PeopleIDs())
		d.ids(t.WildlifeIDs())
	})

	d.str(w.Village.Name)
	d.coord(w.Village.Center)
	d.bundle(w.Village.Stock.Contents())

	d.u64(uint64(len(w.Families)))
	for _, f := range w.Families {
		d.u64(f.ID)
		d.str(f.Name)
		d.u64(f.Owner)
		d.optCoord(f.Home)
		d.u64(f.HomeBuilding)
		d.u64(f.FoundedTick)
		d.u64(uint64(len(f.Members)))
		for _, m := range f.Members {
			d.u64(uint64(m.ID))
		}
	}

	d.u64(uint64(len(w.People)))
	for _, p := range w.People {
		d.u64(uint64(p.ID))
		d.str(p.Name)
		d.u64(uint64(p.Age))
		d.u64(uint64(p.Sex))
		d.u64(p.FamilyID)
		d.coord(p.Pos)
		d.path(p.Path)
		d.int(p.Cursor)
		d.u64(uint64(p.Task))
		d.u64(uint64(p.Purpose))
		d.u64(uint64(p.ResumeTask))
		d.bool(p.Arrived)
		d.u64(p.JobBuilding)
		d.u64(p.ConstructionSite)
		d.u64(p.HomeBuilding)
		d.optCoord(p.GatherTarget)
		d.int(p.GatherTicks)
		d.f64(p.Hunger)
		d.f64(p.Energy)
		d.bool(p.Sleeping)
		d.bool(p.Alive)
		d.u64(p.BornTick)
		d.u64(p.DiedTick)
	}

	d.u64(uint64(len(w.Buildings)))
	for _, b := range w.Buildings {
		d.u64(b.ID)
		d.u64(uint64(b.Type))
		d.coord(b.Origin)
		d.u64(uint64(b.Rotation))
		d.bool(b.Constructed)
		d.int(b.Progress)
		d.int(b.WorkRequired)
		d.ids(b.ConstructionWorkers)
		d.ids(b.Workers)
		d.ids(b.Residents)
		d.bundle(b.Store.Contents())
		d.u64(b.PlacedTick)
		d.u64(b.CompletedTick)
		d.u64(b.LastProduceTick)
	}

	d.u64(uint64(len(w.Wildlife)))
	for _, e := range w.Wildlife {
		d.u64(e.ID)
		d.u64(uint64(e.Species))
		d.coord(e.Pos)
		d.coord(e.Home)
		d.path(e.Path)
		d.int(e.Cursor)
		d.int(e.MoveTimer)
		d.u64(uint64(e.Behavior))
		d.int(e.BehaviorTicks)
		d.f64(e.Health)
		d.f64(e.Hunger)
		d.f64(e.Fear)
		d.f64(e.Energy)
		d.u64(e.Age)
		d.int(e.BreedCooldown)
		d.u64(e.Target)
		d.u64(e.Threat)
		d.u64(e.ThreatPerson)
		d.u64(e.Mate)
		d.bool(e.Alive)
		d.u64(e.BornTick)
		d.u64(e.DiedTick)
	}

	return hex.EncodeToString(d.h.Sum(nil))
}
