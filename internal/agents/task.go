package agents

import "fmt"

// Task is a person's current activity.
type Task uint8

const (
	TaskIdle Task = iota
	TaskMovingToLocation
	TaskWorkingAtBuilding
	TaskConstructing
	TaskGathering
	TaskResting
	TaskSleeping
	TaskGoingHome
	TaskGoingToWork
)

var taskNames = [...]string{
	"idle",
	"moving_to_location",
	"working_at_building",
	"constructing",
	"gathering",
	"resting",
	"sleeping",
	"going_home",
	"going_to_work",
}

func (t Task) String() string {
	if int(t) < len(taskNames) {
		return taskNames[t]
	}
	return fmt.Sprintf("task(%d)", t)
}

// IsMoving reports whether the task follows a path.
func (t Task) IsMoving() bool {
	return t == TaskMovingToLocation || t == TaskGoingHome || t == TaskGoingToWork
}

// IsWork reports whether the task drains energy.
func (t Task) IsWork() bool {
	return t == TaskWorkingAtBuilding || t == TaskConstructing || t == TaskGathering
}

// Arrive transitions a moving person into the task its route was for.
// It returns true only the first time for a given route, so the arrival
// notification fires once.
func (p *Person) Arrive() bool {
	if p.Arrived || !p.Task.IsMoving() {
		return false
	}
	switch p.Task {
	case TaskGoingHome:
		p.Task = TaskSleeping
		p.Sleeping = true
	case TaskGoingToWork:
		p.Task = TaskWorkingAtBuilding
	default:
		p.Task = p.Purpose
	}
	p.Purpose = TaskIdle
	p.Arrived = true
	p.ClearPath()
	return true
}

// Release drops the person's job and construction assignments and leaves
// them idle where they stand. The home assignment is kept.
func (p *Person) Release() {
	p.JobBuilding = 0
	p.ConstructionSite = 0
	p.GatherTarget = nil
	p.GatherTicks = 0
	p.Task = TaskIdle
	p.Purpose = TaskIdle
	p.ResumeTask = TaskIdle
	p.ClearPath()
}

// Wake clears the sleeping flag. A sleeping task resets to idle.
func (p *Person) Wake() {
	p.Sleeping = false
	if p.Task == TaskSleeping {
		p.Task = TaskIdle
	}
}

// MarshalText encodes the task by name.
func (t Task) MarshalText() ([]byte, error) { return []byte(t.String()), nil }
