package agents

// Tuning holds the per-tick need rates and thresholds for persons.
// Every value is in need points (0–100) unless noted.
type Tuning struct {
	HungerPerTick      float64 `yaml:"hunger_per_tick"`
	SleepHungerPerTick float64 `yaml:"sleep_hunger_per_tick"`
	WorkEnergyCost     float64 `yaml:"work_energy_cost"`
	IdleEnergyGain     float64 `yaml:"idle_energy_gain"`
	SleepEnergyGain    float64 `yaml:"sleep_energy_gain"`

	EatThreshold    float64 `yaml:"eat_threshold"`
	FoodValue       float64 `yaml:"food_value"`
	TiredThreshold  float64 `yaml:"tired_threshold"`
	RestedThreshold float64 `yaml:"rested_threshold"`

	AdultAge       uint16 `yaml:"adult_age"`
	GatherInterval int    `yaml:"gather_interval"` // ticks per gathered unit
	GatherYield    int    `yaml:"gather_yield"`
	HuntDamage     int    `yaml:"hunt_damage"` // default damage of one strike
}

// DefaultTuning returns the baseline person tunables.
func DefaultTuning() Tuning {
	return Tuning{
		HungerPerTick:      0.25,
		SleepHungerPerTick: 0.125,
		WorkEnergyCost:     0.5,
		IdleEnergyGain:     0.25,
		SleepEnergyGain:    1,
		EatThreshold:       60,
		FoodValue:          40,
		TiredThreshold:     10,
		RestedThreshold:    50,
		AdultAge:           16,
		GatherInterval:     5,
		GatherYield:        1,
		HuntDamage:         25,
	}
}

// MaxNeed is the ceiling of hunger and energy. Hunger reaching it is fatal.
const MaxNeed = 100

// DecayNeeds advances hunger and energy by one tick. Returns true if the
// person starved this tick. Dead persons are never touched.
func (p *Person) DecayNeeds(t Tuning) bool {
	if !p.Alive {
		return false
	}
	if p.Sleeping {
		p.Hunger += t.SleepHungerPerTick
	} else {
		p.Hunger += t.HungerPerTick
	}
	p.Hunger = clampNeed(p.Hunger)

	switch {
	case p.Task.IsWork():
		p.Energy -= t.WorkEnergyCost
	case p.Task == TaskSleeping:
		p.Energy += t.SleepEnergyGain
	case p.Task == TaskIdle || p.Task == TaskResting:
		p.Energy += t.IdleEnergyGain
	}
	p.Energy = clampNeed(p.Energy)

	return p.Hunger >= MaxNeed
}

// WantsFood reports whether the person is hungry enough to eat.
func (p *Person) WantsFood(t Tuning) bool {
	return p.Alive && p.Hunger >= t.EatThreshold
}

// Eat lowers hunger by one food unit's worth.
func (p *Person) Eat(t Tuning) {
	p.Hunger = clampNeed(p.Hunger - t.FoodValue)
}

func clampNeed(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > MaxNeed {
		return MaxNeed
	}
	return v
}
