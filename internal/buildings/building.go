package buildings

import (
	"slices"

	"github.com/talgya/hamlet/internal/economy"
	"github.com/talgya/hamlet/internal/world"
)

// ID is a unique identifier for a building. 0 is never issued.
type ID = uint64

// Building is a placed structure. Worker and resident lists hold person IDs
// only; the persons are owned by their families.
type Building struct {
	ID       ID          `json:"id"`
	Type     Type        `json:"type"`
	Origin   world.Coord `json:"origin"`
	Rotation Rotation    `json:"rotation"`

	Constructed  bool `json:"constructed"`
	Progress     int  `json:"progress"`
	WorkRequired int  `json:"work_required"`

	ConstructionWorkers []uint64 `json:"construction_workers,omitempty"`
	Workers             []uint64 `json:"workers,omitempty"`
	Residents           []uint64 `json:"residents,omitempty"`

	Store economy.Ledger `json:"store"`

	PlacedTick      uint64 `json:"placed_tick"`
	CompletedTick   uint64 `json:"completed_tick,omitempty"`
	LastProduceTick uint64 `json:"last_produce_tick,omitempty"`
}

// New creates an unconstructed building of type t.
func New(id ID, t Type, origin world.Coord, rot Rotation, tick uint64) *Building {
	spec, _ := Lookup(t)
	return &Building{
		ID:           id,
		Type:         t,
		Origin:       origin,
		Rotation:     rot,
		WorkRequired: spec.WorkRequired,
		PlacedTick:   tick,
	}
}

// Spec returns the catalog entry for the building's type.
func (b *Building) Spec() Spec {
	s, _ := Lookup(b.Type)
	return s
}

// Footprint returns the tiles covered by a building of type t at origin,
// in row-major order.
func Footprint(t Type, origin world.Coord, rot Rotation) []world.Coord {
	spec, ok := Lookup(t)
	if !ok {
		return nil
	}
	w, h := spec.Extent(rot)
	out := make([]world.Coord, 0, w*h)
	for dy := 0; dy < h; dy++ {
		for dx := 0; dx < w; dx++ {
			out = append(out, origin.Add(dx, dy))
		}
	}
	return out
}

// Footprint returns the tiles this building covers.
func (b *Building) Footprint() []world.Coord {
	return Footprint(b.Type, b.Origin, b.Rotation)
}

// Contains reports whether c lies inside the footprint.
func (b *Building) Contains(c world.Coord) bool {
	w, h := b.Spec().Extent(b.Rotation)
	return c.X >= b.Origin.X && c.Y >= b.Origin.Y &&
		c.X < b.Origin.X+w && c.Y < b.Origin.Y+h
}

// Perimeter returns the tiles orthogonally adjacent to the footprint, in
// row-major order. These are where workers stand. Bounds are not checked.
func (b *Building) Perimeter() []world.Coord {
	w, h := b.Spec().Extent(b.Rotation)
	var out []world.Coord
	for y := b.Origin.Y - 1; y <= b.Origin.Y+h; y++ {
		for x := b.Origin.X - 1; x <= b.Origin.X+w; x++ {
			c := world.Coord{X: x, Y: y}
			if b.Contains(c) {
				continue
			}
			insideX := x >= b.Origin.X && x < b.Origin.X+w
			insideY := y >= b.Origin.Y && y < b.Origin.Y+h
			if insideX || insideY {
				out = append(out, c)
			}
		}
	}
	return out
}

// Adjacent reports whether c touches the footprint orthogonally.
func (b *Building) Adjacent(c world.Coord) bool {
	for _, d := range world.Orthogonal {
		if b.Contains(c.Add(d.X, d.Y)) {
			return !b.Contains(c)
		}
	}
	return false
}

// AddProgress adds construction work, saturating at the requirement.
// Returns true on the one call that completes the building.
func (b *Building) AddProgress(amount int, tick uint64) bool {
	if b.Constructed || amount <= 0 {
		return false
	}
	b.Progress += amount
	if b.Progress < b.WorkRequired {
		return false
	}
	b.Progress = b.WorkRequired
	b.Constructed = true
	b.CompletedTick = tick
	return true
}

// Remaining returns the work still needed to finish construction.
func (b *Building) Remaining() int {
	if b.Constructed {
		return 0
	}
	return b.WorkRequired - b.Progress
}

// HasWorkerCapacity reports whether another permanent worker fits.
func (b *Building) HasWorkerCapacity() bool {
	return len(b.Workers) < b.Spec().MaxWorkers
}

// HasResidentCapacity reports whether n more residents fit.
func (b *Building) HasResidentCapacity(n int) bool {
	return len(b.Residents)+n <= b.Spec().Capacity
}

// AddWorker appends a permanent worker. Returns false if already listed.
func (b *Building) AddWorker(id uint64) bool { return addID(&b.Workers, id) }

// RemoveWorker drops a permanent worker.
func (b *Building) RemoveWorker(id uint64) bool { return removeID(&b.Workers, id) }

// HasWorker reports whether id is a permanent worker.
func (b *Building) HasWorker(id uint64) bool { return slices.Contains(b.Workers, id) }

// AddConstructionWorker appends a construction worker.
func (b *Building) AddConstructionWorker(id uint64) bool {
	return addID(&b.ConstructionWorkers, id)
}

// RemoveConstructionWorker drops a construction worker.
func (b *Building) RemoveConstructionWorker(id uint64) bool {
	return removeID(&b.ConstructionWorkers, id)
}

// AddResident appends a resident.
func (b *Building) AddResident(id uint64) bool { return addID(&b.Residents, id) }

// RemoveResident drops a resident.
func (b *Building) RemoveResident(id uint64) bool { return removeID(&b.Residents, id) }

func addID(list *[]uint64, id uint64) bool {
	if slices.Contains(*list, id) {
		return false
	}
	*list = append(*list, id)
	return true
}

func removeID(list *[]uint64, id uint64) bool {
	i := slices.Index(*list, id)
	if i < 0 {
		return false
	}
	*list = slices.Delete(*list, i, i+1)
	return true
}
