package wildlife

import (
	"testing"

	"github.com/talgya/hamlet/internal/world"
)

func TestUpdateNeeds_Monotonic(t *testing.T) {
	tun := DefaultTuning()
	e := New(1, Deer, world.Coord{}, 0)
	e.Fear = 10

	prevHunger, prevFear := e.Hunger, e.Fear
	for i := 0; i < 20; i++ {
		e.UpdateNeeds(tun, uint64(i))
		if e.Hunger < prevHunger {
			t.Fatalf("hunger decreased: %v -> %v", prevHunger, e.Hunger)
		}
		if e.Fear > prevFear {
			t.Fatalf("fear increased: %v -> %v", prevFear, e.Fear)
		}
		prevHunger, prevFear = e.Hunger, e.Fear
	}
	if e.Fear != 0 {
		t.Fatalf("fear = %v, want decayed to 0", e.Fear)
	}
}

func TestUpdateNeeds_EnergyByBehavior(t *testing.T) {
	tun := DefaultTuning()
	cases := []struct {
		b     Behavior
		delta float64
	}{
		{Fleeing, -tun.FleeEnergyCost},
		{Hunting, -tun.HuntEnergyCost},
		{Resting, tun.RestEnergyGain},
		{Idle, tun.RestEnergyGain},
		{Grazing, tun.GrazeEnergyGain},
		{Eating, tun.GrazeEnergyGain},
	}
	for _, tc := range cases {
		e := New(1, Wolf, world.Coord{}, 0)
		e.Energy = 50
		e.Behavior = tc.b
		e.UpdateNeeds(tun, 1)
		if got := e.Energy - 50; got != tc.delta {
			t.Errorf("%s: energy delta = %v, want %v", tc.b, got, tc.delta)
		}
	}
}

func TestUpdateNeeds_StarvationKills(t *testing.T) {
	tun := DefaultTuning()
	e := New(1, Rabbit, world.Coord{}, 0)
	e.Hunger = 100
	e.Health = tun.StarveDamage
	e.SetPath([]world.Coord{{}, {X: 1}}, Wandering)

	if !e.UpdateNeeds(tun, 9) {
		t.Fatal("expected death")
	}
	if e.Alive || e.Behavior != Dead || e.Path != nil || e.DiedTick != 9 {
		t.Fatalf("after death: %+v", e)
	}
	if e.UpdateNeeds(tun, 10) {
		t.Fatal("dead animals do not die twice")
	}
}

func TestUpdateNeeds_Regenerates(t *testing.T) {
	tun := DefaultTuning()
	e := New(1, Boar, world.Coord{}, 0)
	e.Health = 10
	e.Hunger = 0
	e.UpdateNeeds(tun, 1)
	if e.Health != 10+tun.RegenRate {
		t.Fatalf("health = %v", e.Health)
	}
}

func TestTakeDamage(t *testing.T) {
	tun := DefaultTuning()
	e := New(1, Deer, world.Coord{}, 0)

	if e.TakeDamage(10, Attacker{Wildlife: 7}, tun.DamageFear, 3) {
		t.Fatal("10 damage should not kill a deer")
	}
	if e.Threat != 7 || e.Fear != tun.DamageFear || e.Health != 50 {
		t.Fatalf("after hit: %+v", e)
	}
	if !e.TakeDamage(100, Attacker{Person: 4}, tun.DamageFear, 4) {
		t.Fatal("expected fatal hit")
	}
	if e.ThreatPerson != 4 || e.Behavior != Dead || e.Health != 0 {
		t.Fatalf("after kill: %+v", e)
	}
	if e.TakeDamage(5, Attacker{}, 0, 5) {
		t.Fatal("a corpse cannot be killed again")
	}
}

func TestCanBreed_IsPure(t *testing.T) {
	tun := DefaultTuning()
	e := New(1, Fox, world.Coord{}, 0)
	e.Hunger = 10
	e.Energy = 90
	before := *e
	if !e.CanBreed(tun) {
		t.Fatal("healthy adult fox should be eligible")
	}
	if e.Hunger != before.Hunger || e.Energy != before.Energy || e.BreedCooldown != before.BreedCooldown {
		t.Fatal("CanBreed changed state")
	}

	young := NewOffspring(2, Fox, world.Coord{}, 0)
	young.Hunger, young.Energy = 10, 90
	if young.CanBreed(tun) {
		t.Fatal("newborn should not be eligible")
	}
}

func TestSpeciesRelations(t *testing.T) {
	if !Wolf.Hunts(Deer) || Deer.Hunts(Wolf) {
		t.Fatal("wolf hunts deer, not the other way round")
	}
	if !Rabbit.Fears(Fox) || Rabbit.Fears(Deer) {
		t.Fatal("rabbit fear list wrong")
	}
	if s, err := ParseSpecies("Wolf"); err != nil || s != Wolf {
		t.Fatalf("ParseSpecies = %v, %v", s, err)
	}
	if _, err := ParseSpecies("wofl"); err == nil {
		t.Fatal("expected error")
	}
}

func TestStepDue(t *testing.T) {
	e := New(1, Bear, world.Coord{}, 0) // moves every 2 ticks
	if e.StepDue() || !e.StepDue() || e.StepDue() {
		t.Fatal("bear should step every second tick")
	}
}
