package wildlife

// Tuning holds wildlife need rates and thresholds. Scalars are 0–100
// except health, which is capped by the species.
type Tuning struct {
	FearDecay       float64 `yaml:"fear_decay"`
	DamageFear      float64 `yaml:"damage_fear"`
	FleeEnergyCost  float64 `yaml:"flee_energy_cost"`
	HuntEnergyCost  float64 `yaml:"hunt_energy_cost"`
	RestEnergyGain  float64 `yaml:"rest_energy_gain"`
	GrazeEnergyGain float64 `yaml:"graze_energy_gain"`

	StarveThreshold float64 `yaml:"starve_threshold"`
	StarveDamage    float64 `yaml:"starve_damage"`
	RegenThreshold  float64 `yaml:"regen_threshold"`
	RegenRate       float64 `yaml:"regen_rate"`

	HungryThreshold float64 `yaml:"hungry_threshold"`
	GrazeFood       float64 `yaml:"graze_food"`
	EatFood         float64 `yaml:"eat_food"`
	EatTicks        int     `yaml:"eat_ticks"`
	TiredThreshold  float64 `yaml:"tired_threshold"`
	RestedThreshold float64 `yaml:"rested_threshold"`
	WanderChance    float64 `yaml:"wander_chance"`

	BreedingEnabled bool    `yaml:"breeding_enabled"`
	BreedHungerMax  float64 `yaml:"breed_hunger_max"`
	BreedEnergyMin  float64 `yaml:"breed_energy_min"`
	BreedingTicks   int     `yaml:"breeding_ticks"`
}

// DefaultTuning returns the baseline wildlife tunables. Breeding is off.
func DefaultTuning() Tuning {
	return Tuning{
		FearDecay:       2,
		DamageFear:      40,
		FleeEnergyCost:  1,
		HuntEnergyCost:  0.75,
		RestEnergyGain:  1,
		GrazeEnergyGain: 0.25,
		StarveThreshold: 80,
		StarveDamage:    0.5,
		RegenThreshold:  30,
		RegenRate:       0.25,
		HungryThreshold: 50,
		GrazeFood:       2,
		EatFood:         10,
		EatTicks:        5,
		TiredThreshold:  20,
		RestedThreshold: 80,
		WanderChance:    0.125,
		BreedHungerMax:  40,
		BreedEnergyMin:  60,
		BreedingTicks:   10,
	}
}

const maxScalar = 100

// UpdateNeeds advances the animal's needs by one tick. Returns true if it
// died of its wounds or starvation this tick.
func (e *Entity) UpdateNeeds(t Tuning, tick uint64) bool {
	if !e.Alive {
		return false
	}
	st := e.Species.Stats()
	e.Age++
	if e.BreedCooldown > 0 {
		e.BreedCooldown--
	}

	e.Hunger = clamp(e.Hunger+st.HungerRate, 0, maxScalar)
	e.Fear = clamp(e.Fear-t.FearDecay, 0, maxScalar)

	switch e.Behavior {
	case Fleeing:
		e.Energy -= t.FleeEnergyCost
	case Hunting:
		e.Energy -= t.HuntEnergyCost
	case Resting, Idle:
		e.Energy += t.RestEnergyGain
	case Grazing, Eating:
		e.Energy += t.GrazeEnergyGain
	}
	e.Energy = clamp(e.Energy, 0, maxScalar)

	switch {
	case e.Hunger >= t.StarveThreshold:
		e.Health -= t.StarveDamage
	case e.Hunger < t.RegenThreshold && e.Health < st.MaxHealth:
		e.Health = clamp(e.Health+t.RegenRate, 0, st.MaxHealth)
	}

	if e.Health <= 0 {
		e.Health = 0
		e.Die(tick)
		return true
	}
	return false
}

// Attacker identifies who dealt damage. At most one field is set.
type Attacker struct {
	Person   uint64
	Wildlife ID
}

// TakeDamage lowers health and raises fear, remembering the attacker as the
// current threat. Returns true if the blow was fatal.
func (e *Entity) TakeDamage(amount float64, by Attacker, fear float64, tick uint64) bool {
	if !e.Alive || amount <= 0 {
		return false
	}
	e.Health -= amount
	e.Fear = clamp(e.Fear+fear, 0, maxScalar)
	if by.Person != 0 {
		e.ThreatPerson = by.Person
	}
	if by.Wildlife != 0 {
		e.Threat = by.Wildlife
	}
	if e.Health <= 0 {
		e.Health = 0
		e.Die(tick)
		return true
	}
	return false
}

// Feed lowers hunger by amount.
func (e *Entity) Feed(amount float64) {
	e.Hunger = clamp(e.Hunger-amount, 0, maxScalar)
}

// CanBreed reports whether the animal is eligible to breed. It has no side
// effects.
func (e *Entity) CanBreed(t Tuning) bool {
	return e.Alive &&
		e.Age >= e.Species.Stats().MaturityAge &&
		e.BreedCooldown == 0 &&
		e.Hunger < t.BreedHungerMax &&
		e.Energy > t.BreedEnergyMin
}

// IsHungry reports whether the animal will look for food.
func (e *Entity) IsHungry(t Tuning) bool {
	return e.Hunger >= t.HungryThreshold
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
