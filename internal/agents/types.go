// Package agents provides the person data model, the task state machine and
// needs decay that the engine's update pass drives every tick.
package agents

import (
	"github.com/talgya/hamlet/internal/world"
)

// PersonID is a unique identifier for a person.
type PersonID uint64

// Sex represents biological sex for demographic simulation.
type Sex uint8

const (
	SexMale   Sex = 0
	SexFemale Sex = 1
)

func (s Sex) String() string {
	if s == SexFemale {
		return "female"
	}
	return "male"
}

// Person is a villager. Persons are owned by their family's member list and
// the engine's person registry; every other reference is by ID.
type Person struct {
	ID       PersonID `json:"id"`
	Name     string   `json:"name"`
	Age      uint16   `json:"age"`
	Sex      Sex      `json:"sex"`
	FamilyID uint64   `json:"family_id"`

	// Movement
	Pos    world.Coord   `json:"pos"`
	Path   []world.Coord `json:"path,omitempty"`
	Cursor int           `json:"cursor"` // index of the next waypoint in Path

	// Task state
	Task       Task `json:"task"`
	Purpose    Task `json:"purpose"`     // task entered on arrival
	ResumeTask Task `json:"resume_task"` // work task to return to after Resting
	Arrived    bool `json:"arrived"`

	// Assignments (building IDs, 0 = none)
	JobBuilding      uint64       `json:"job_building,omitempty"`
	ConstructionSite uint64       `json:"construction_site,omitempty"`
	HomeBuilding     uint64       `json:"home_building,omitempty"`
	GatherTarget     *world.Coord `json:"gather_target,omitempty"`
	GatherTicks      int          `json:"gather_ticks,omitempty"`

	// Needs, 0–100
	Hunger float64 `json:"hunger"`
	Energy float64 `json:"energy"`

	Sleeping bool   `json:"sleeping"`
	Alive    bool   `json:"alive"`
	BornTick uint64 `json:"born_tick"`
	DiedTick uint64 `json:"died_tick,omitempty"`
}

// IsAdult reports whether the person is old enough to work.
func (p *Person) IsAdult(adultAge uint16) bool {
	return p.Age >= adultAge
}

// IsIdle reports whether the person is alive, awake and without a task.
func (p *Person) IsIdle() bool {
	return p.Alive && !p.Sleeping && p.Task == TaskIdle
}

// SetPath attaches a route and puts the person into a moving task.
// path[0] is the current position; the cursor starts at the first step.
// purpose is the task entered on arrival for TaskMovingToLocation.
func (p *Person) SetPath(path []world.Coord, moving, purpose Task) {
	p.Path = path
	p.Cursor = 1
	p.Task = moving
	p.Purpose = purpose
	p.Arrived = false
}

// ClearPath drops any route without changing the task.
func (p *Person) ClearPath() {
	p.Path = nil
	p.Cursor = 0
}

// PathDone reports whether every waypoint has been consumed.
func (p *Person) PathDone() bool {
	return p.Cursor >= len(p.Path)
}

// NextWaypoint returns the tile the person steps onto next.
func (p *Person) NextWaypoint() (world.Coord, bool) {
	if p.Cursor < 1 || p.PathDone() {
		return world.Coord{}, false
	}
	return p.Path[p.Cursor], true
}

// IsFinalWaypoint reports whether the next waypoint is the destination.
func (p *Person) IsFinalWaypoint() bool {
	return p.Cursor == len(p.Path)-1
}

// Goal returns the last waypoint of the current path.
func (p *Person) Goal() (world.Coord, bool) {
	if len(p.Path) == 0 {
		return world.Coord{}, false
	}
	return p.Path[len(p.Path)-1], true
}

// AdvanceCursor records that the person stepped onto the next waypoint.
func (p *Person) AdvanceCursor(to world.Coord) {
	p.Pos = to
	p.Cursor++
}

// Die marks the person dead. Their task is left frozen as it was.
func (p *Person) Die(tick uint64) {
	p.Alive = false
	p.DiedTick = tick
	p.Sleeping = false
	p.ClearPath()
}
