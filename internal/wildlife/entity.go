package wildlife

import (
	"fmt"

	"github.com/talgya/hamlet/internal/world"
)

// ID is a unique identifier for an animal.
type ID = uint64

// Behavior is an animal's current AI state.
type Behavior uint8

const (
	Idle Behavior = iota
	Grazing
	Wandering
	Fleeing
	Hunting
	Eating
	Resting
	Breeding
	Dead
)

var behaviorNames = [...]string{
	"idle", "grazing", "wandering", "fleeing", "hunting",
	"eating", "resting", "breeding", "dead",
}

func (b Behavior) String() string {
	if int(b) < len(behaviorNames) {
		return behaviorNames[b]
	}
	return fmt.Sprintf("behavior(%d)", b)
}

// Entity is one animal. Target, Threat, ThreatPerson and Mate are
// non-owning IDs that may refer to entities that have since died.
type Entity struct {
	ID      ID          `json:"id"`
	Species Species     `json:"species"`
	Pos     world.Coord `json:"pos"`
	Home    world.Coord `json:"home"` // territory centre

	Path      []world.Coord `json:"path,omitempty"`
	Cursor    int           `json:"cursor"`
	MoveTimer int           `json:"move_timer"`

	Behavior      Behavior `json:"behavior"`
	BehaviorTicks int      `json:"behavior_ticks"` // ticks left in a timed behavior

	Health float64 `json:"health"`
	Hunger float64 `json:"hunger"`
	Fear   float64 `json:"fear"`
	Energy float64 `json:"energy"`

	Age           uint64 `json:"age"`
	BreedCooldown int    `json:"breed_cooldown"`

	Target       ID     `json:"target,omitempty"`
	Threat       ID     `json:"threat,omitempty"`
	ThreatPerson uint64 `json:"threat_person,omitempty"`
	Mate         ID     `json:"mate,omitempty"`

	Alive    bool   `json:"alive"`
	BornTick uint64 `json:"born_tick"`
	DiedTick uint64 `json:"died_tick,omitempty"`
}

// New creates a healthy adult of the given species at pos. Its territory is
// centred on pos.
func New(id ID, s Species, pos world.Coord, tick uint64) *Entity {
	st := s.Stats()
	return &Entity{
		ID:       id,
		Species:  s,
		Pos:      pos,
		Home:     pos,
		Behavior: Idle,
		Health:   st.MaxHealth,
		Hunger:   20,
		Energy:   80,
		Age:      st.MaturityAge,
		Alive:    true,
		BornTick: tick,
	}
}

// NewOffspring creates a newborn with a cooldown so it cannot breed at once.
func NewOffspring(id ID, s Species, pos world.Coord, tick uint64) *Entity {
	e := New(id, s, pos, tick)
	e.Age = 0
	e.BreedCooldown = s.Stats().BreedCooldown
	return e
}

// SetPath attaches a route and switches to behavior b.
func (e *Entity) SetPath(path []world.Coord, b Behavior) {
	e.Path = path
	e.Cursor = 1
	e.Behavior = b
}

// ClearPath drops the current route.
func (e *Entity) ClearPath() {
	e.Path = nil
	e.Cursor = 0
}

// PathDone reports whether every waypoint has been consumed.
func (e *Entity) PathDone() bool { return e.Cursor >= len(e.Path) }

// NextWaypoint returns the tile the animal steps onto next.
func (e *Entity) NextWaypoint() (world.Coord, bool) {
	if e.Cursor < 1 || e.PathDone() {
		return world.Coord{}, false
	}
	return e.Path[e.Cursor], true
}

// AdvanceCursor records a step onto the next waypoint.
func (e *Entity) AdvanceCursor(to world.Coord) {
	e.Pos = to
	e.Cursor++
}

// StepDue counts one tick toward the species' movement rate and reports
// whether the animal may step this tick.
func (e *Entity) StepDue() bool {
	every := e.Species.Stats().MoveEvery
	if every < 1 {
		every = 1
	}
	e.MoveTimer++
	if e.MoveTimer >= every {
		e.MoveTimer = 0
		return true
	}
	return false
}

// Die marks the animal dead. Dead is absorbing.
func (e *Entity) Die(tick uint64) {
	e.Alive = false
	e.Behavior = Dead
	e.DiedTick = tick
	e.Target = 0
	e.Mate = 0
	e.ClearPath()
}

// MarshalText encodes the behavior by name.
func (b Behavior) MarshalText() ([]byte, error) { return []byte(b.String()), nil }
