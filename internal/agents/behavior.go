package agents

// CheckFatigue handles the rest cycle of working persons. A worker whose
// energy has dropped to TiredThreshold stops in place and rests; a resting
// person whose energy has recovered to RestedThreshold resumes the work task
// they left. Returns true if the task changed.
func (p *Person) CheckFatigue(t Tuning) bool {
	if !p.Alive || p.Sleeping {
		return false
	}
	switch {
	case p.Task.IsWork() && p.Energy <= t.TiredThreshold:
		p.ResumeTask = p.Task
		p.Task = TaskResting
		return true
	case p.Task == TaskResting && p.Energy >= t.RestedThreshold:
		p.Task = p.ResumeTask
		p.ResumeTask = TaskIdle
		return true
	}
	return false
}

// Gather counts one tick of gathering and reports whether a unit is ready.
func (p *Person) Gather(t Tuning) bool {
	if p.Task != TaskGathering {
		return false
	}
	p.GatherTicks++
	interval := t.GatherInterval
	if interval < 1 {
		interval = 1
	}
	if p.GatherTicks >= interval {
		p.GatherTicks = 0
		return true
	}
	return false
}
