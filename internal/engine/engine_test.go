package engine

import (
	"context"
	"testing"
	"time"

	"github.com/talgya/hamlet/internal/agents"
	"github.com/talgya/hamlet/internal/buildings"
	"github.com/talgya/hamlet/internal/config"
	"github.com/talgya/hamlet/internal/economy"
	"github.com/talgya/hamlet/internal/wildlife"
	"github.com/talgya/hamlet/internal/world"
)

func foundOne(t *testing.T, w *World, at world.Coord) *agents.Person {
	t.Helper()
	f, err := w.FoundFamily("Test", SystemPlayer, at, 1, 0)
	if err != nil {
		t.Fatalf("FoundFamily: %v", err)
	}
	return f.Members[0]
}

func TestStarvationKillsOnce(t *testing.T) {
	w, sink := newTestWorld(t, testConfig(), 8)
	p := foundOne(t, w, world.Coord{X: 2, Y: 2})
	p.Hunger = agents.MaxNeed - 0.125
	e := NewEngine(w)

	e.Step()
	if p.Alive {
		t.Fatal("person survived reaching max hunger")
	}
	if p.DiedTick != 0 {
		t.Errorf("DiedTick = %d, want 0", p.DiedTick)
	}
	if w.Grid.HasPerson(p.Pos, uint64(p.ID)) {
		t.Error("dead person still registered on their tile")
	}

	e.Step()
	if w.Stats.Deaths != 1 || sink.Count(CatDeath) != 1 {
		t.Errorf("deaths = %d, death events = %d, want 1 and 1", w.Stats.Deaths, sink.Count(CatDeath))
	}
	if w.Living() != 0 {
		t.Errorf("Living = %d", w.Living())
	}
}

func TestHungryPersonEatsFromVillageStock(t *testing.T) {
	cfg := testConfig()
	cfg.Village.StartingResources = map[string]int{"food": 1}
	w, _ := newTestWorld(t, cfg, 8)
	p := foundOne(t, w, world.Coord{X: 2, Y: 2})
	p.Hunger = cfg.People.EatThreshold
	NewEngine(w).Step()

	want := cfg.People.EatThreshold + cfg.People.HungerPerTick - cfg.People.FoodValue
	if p.Hunger != want {
		t.Errorf("hunger = %v, want %v", p.Hunger, want)
	}
	if got := w.Village.Stock.Get(economy.Food); got != 0 {
		t.Errorf("food left = %d, want 0", got)
	}
}

func TestPersonWalksAndArrivesOnLastStep(t *testing.T) {
	w, sink := newTestWorld(t, testConfig(), 10)
	p := foundOne(t, w, world.Coord{X: 1, Y: 1})
	dest := world.Coord{X: 5, Y: 1}
	path := w.FindPath(p.Pos, dest)
	if len(path) != 5 {
		t.Fatalf("path length = %d, want 5", len(path))
	}
	p.SetPath(path, agents.TaskMovingToLocation, agents.TaskIdle)
	e := NewEngine(w)

	for i := 0; i < 3; i++ {
		e.Step()
	}
	if p.Task != agents.TaskMovingToLocation || p.Pos != (world.Coord{X: 4, Y: 1}) {
		t.Fatalf("after 3 ticks: task %s at %s", p.Task, p.Pos)
	}
	e.Step()
	if p.Pos != dest || p.Task != agents.TaskIdle {
		t.Fatalf("after 4 ticks: task %s at %s", p.Task, p.Pos)
	}
	if !w.Grid.HasPerson(dest, uint64(p.ID)) || w.Grid.HasPerson(world.Coord{X: 4, Y: 1}, uint64(p.ID)) {
		t.Error("occupancy did not follow the person")
	}
	e.Step()
	if n := sink.Count(CatArrival); n != 1 {
		t.Errorf("arrival events = %d, want 1", n)
	}
}

func TestPersonWaitsBehindOccupiedWaypoint(t *testing.T) {
	w, _ := newTestWorld(t, testConfig(), 8)
	a := foundOne(t, w, world.Coord{X: 0, Y: 1})
	b := foundOne(t, w, world.Coord{X: 2, Y: 1})
	a.SetPath([]world.Coord{{X: 0, Y: 1}, {X: 1, Y: 1}, {X: 2, Y: 1}, {X: 3, Y: 1}},
		agents.TaskMovingToLocation, agents.TaskIdle)
	e := NewEngine(w)

	e.Step()
	if a.Pos != (world.Coord{X: 1, Y: 1}) {
		t.Fatalf("after 1 tick a at %s, want (1,1)", a.Pos)
	}
	for i := 0; i < 3; i++ {
		e.Step()
		if a.Pos != (world.Coord{X: 1, Y: 1}) || a.Task != agents.TaskMovingToLocation {
			t.Fatalf("a stepped onto an occupied waypoint: %s at %s", a.Task, a.Pos)
		}
	}

	// The occupied tile is fine as the last waypoint.
	a.SetPath([]world.Coord{{X: 1, Y: 1}, {X: 2, Y: 1}}, agents.TaskMovingToLocation, agents.TaskIdle)
	e.Step()
	if a.Pos != b.Pos || a.Task != agents.TaskIdle {
		t.Fatalf("a = %s at %s, want idle at %s", a.Task, a.Pos, b.Pos)
	}
	if !w.Grid.HasPerson(b.Pos, uint64(a.ID)) || !w.Grid.HasPerson(b.Pos, uint64(b.ID)) {
		t.Error("shared tile does not hold both people")
	}
}

func TestConstructionCompletesOnce(t *testing.T) {
	w, sink := newTestWorld(t, testConfig(), 16)
	f, err := w.FoundFamily("Builders", SystemPlayer, world.Coord{X: 2, Y: 2}, 2, 0)
	if err != nil {
		t.Fatal(err)
	}
	b, err := w.AddBuilding(buildings.House, world.Coord{X: 8, Y: 8}, buildings.Rot0)
	if err != nil {
		t.Fatal(err)
	}
	for _, p := range f.Members {
		path := w.ApproachPath(p.Pos, b)
		if path == nil {
			t.Fatalf("no approach path for %d", p.ID)
		}
		p.ConstructionSite = b.ID
		b.AddConstructionWorker(uint64(p.ID))
		p.SetPath(path, agents.TaskMovingToLocation, agents.TaskConstructing)
	}

	e := NewEngine(w)
	for i := 0; i < 120; i++ {
		e.Step()
	}
	if !b.Constructed || b.Progress != b.WorkRequired {
		t.Fatalf("building constructed=%v progress=%d/%d", b.Constructed, b.Progress, b.WorkRequired)
	}
	if w.Stats.Completed != 1 {
		t.Errorf("Completed = %d, want 1", w.Stats.Completed)
	}
	done := 0
	for _, ev := range sink.Events() {
		if ev.Category == CatConstruction && ev.Level == LevelSuccess {
			done++
		}
	}
	if done != 1 {
		t.Errorf("completion events = %d, want 1", done)
	}
	for _, p := range f.Members {
		if p.Task != agents.TaskIdle || p.ConstructionSite != 0 {
			t.Errorf("builder %d left as %s on site %d", p.ID, p.Task, p.ConstructionSite)
		}
		if !b.Adjacent(p.Pos) {
			t.Errorf("builder %d at %s is not next to the house", p.ID, p.Pos)
		}
	}
	if len(b.ConstructionWorkers) != 0 {
		t.Errorf("construction workers not cleared: %v", b.ConstructionWorkers)
	}
}

func TestWolfKillsAdjacentRabbit(t *testing.T) {
	w, sink := newTestWorld(t, testConfig(), 12)
	wolf := w.SpawnAnimal(wildlife.Wolf, world.Coord{X: 5, Y: 5})
	rabbit := w.SpawnAnimal(wildlife.Rabbit, world.Coord{X: 6, Y: 5})
	wolf.Hunger = 60
	rabbit.Health = 1

	NewEngine(w).Step()
	if rabbit.Alive {
		t.Fatal("rabbit survived the bite")
	}
	if wolf.Behavior != wildlife.Eating {
		t.Errorf("wolf behavior = %s, want eating", wolf.Behavior)
	}
	if w.Grid.HasWildlife(rabbit.Pos, rabbit.ID) {
		t.Error("dead rabbit still on its tile")
	}
	if w.Stats.AnimalDeaths != 1 || sink.Count(CatWildlife) != 1 {
		t.Errorf("animal deaths = %d, wildlife events = %d", w.Stats.AnimalDeaths, sink.Count(CatWildlife))
	}
	if w.LivingAnimals() != 1 {
		t.Errorf("LivingAnimals = %d, want 1", w.LivingAnimals())
	}
}

func TestAdjacentDeerBreedOnce(t *testing.T) {
	cfg := testConfig()
	cfg.Wildlife.BreedingEnabled = true
	cfg.Wildlife.WanderChance = 0
	w, sink := newTestWorld(t, cfg, 12)
	a := w.SpawnAnimal(wildlife.Deer, world.Coord{X: 5, Y: 5})
	b := w.SpawnAnimal(wildlife.Deer, world.Coord{X: 6, Y: 5})
	e := NewEngine(w)

	for i := 0; i < 40; i++ {
		e.Step()
	}
	if w.Stats.Births != 1 {
		t.Fatalf("births = %d, want 1", w.Stats.Births)
	}
	if w.LivingAnimals() != 3 {
		t.Errorf("LivingAnimals = %d, want 3", w.LivingAnimals())
	}
	for _, p := range []*wildlife.Entity{a, b} {
		if p.BreedCooldown <= 0 || p.Mate != 0 || p.Behavior == wildlife.Breeding {
			t.Errorf("parent %d: cooldown %d, mate %d, behavior %s", p.ID, p.BreedCooldown, p.Mate, p.Behavior)
		}
	}
	if d := a.BreedCooldown - b.BreedCooldown; d < -1 || d > 1 {
		t.Errorf("cooldowns diverge: %d vs %d", a.BreedCooldown, b.BreedCooldown)
	}
	baby := w.Wildlife[len(w.Wildlife)-1]
	if baby.Species != wildlife.Deer || baby.Age > 40 || baby.BreedCooldown == 0 {
		t.Errorf("offspring = %+v", baby)
	}
	born := 0
	for _, ev := range sink.Events() {
		if ev.Category == CatWildlife && ev.Level == LevelSuccess {
			born++
		}
	}
	if born != 1 {
		t.Errorf("birth events = %d, want 1", born)
	}
}

func TestInvariantPanicEscapesCommandInDebug(t *testing.T) {
	w, _ := newTestWorld(t, testConfig(), 8)
	e := NewEngine(w)
	bad := &testCmd{id: "bad", execute: func(w *World) Result {
		w.invariant(false, "forced")
		return Succeed("unreachable")
	}}
	if _, err := e.Submit(bad); err != nil {
		t.Fatal(err)
	}
	defer func() {
		r := recover()
		if _, ok := r.(*InvariantError); !ok {
			t.Fatalf("recovered %v, want *InvariantError", r)
		}
	}()
	e.Step()
	t.Fatal("Step returned after a broken invariant")
}

func TestInvariantFailureIsRecordedWithoutDebug(t *testing.T) {
	cfg := testConfig()
	cfg.Engine.Debug = false
	w, sink := newTestWorld(t, cfg, 8)
	e := NewEngine(w)
	bad := &testCmd{id: "bad", execute: func(w *World) Result {
		if !w.invariant(false, "forced") {
			return Fail(StatusFailed, "broken")
		}
		return Succeed("unreachable")
	}}
	if _, err := e.Submit(bad); err != nil {
		t.Fatal(err)
	}
	e.Step()
	rec, _ := e.Scheduler().Record("bad")
	if rec.Result.Status != StatusFailed || sink.Count(CatInvariant) != 1 {
		t.Errorf("status = %s, invariant events = %d", rec.Result.Status, sink.Count(CatInvariant))
	}
}

func TestNearestThreatNamesOnlyTheWinner(t *testing.T) {
	w, _ := newTestWorld(t, testConfig(), 16)
	deer := w.SpawnAnimal(wildlife.Deer, world.Coord{X: 5, Y: 5})
	wolf := w.SpawnAnimal(wildlife.Wolf, world.Coord{X: 10, Y: 5})

	if from, ok := w.nearestThreat(deer); !ok || from != wolf.Pos || deer.Threat != wolf.ID {
		t.Fatalf("wolf alone: from %s ok %v threat %d", from, ok, deer.Threat)
	}

	p := foundOne(t, w, world.Coord{X: 5, Y: 6})
	if from, ok := w.nearestThreat(deer); !ok || from != p.Pos {
		t.Fatalf("closer person not chosen: from %s ok %v", from, ok)
	}
	if deer.Threat != 0 {
		t.Errorf("threat = %d after a person won, want 0", deer.Threat)
	}
}

func determinismConfig(seed int64) config.Config {
	cfg := config.Default()
	cfg.Engine.Seed = seed
	cfg.World = world.SmallTestConfig()
	cfg.World.Width, cfg.World.Height = 32, 32
	cfg.Wildlife.BreedingEnabled = true
	return cfg
}

func runDigests(t *testing.T, cfg config.Config, ticks int) []string {
	t.Helper()
	w, err := Bootstrap(cfg, nil)
	if err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	e := NewEngine(w)
	for i, tick := range []uint64{3, 3, 10} {
		spawn := &testCmd{id: SequentialID(uint64(i + 1)), tick: tick, execute: func(w *World) Result {
			pos, ok := w.wildSpot()
			if !ok {
				return Fail(StatusInvalidState, "no room")
			}
			w.SpawnAnimal(wildlife.Deer, pos)
			return Succeed("spawned")
		}}
		if _, err := e.Submit(spawn); err != nil {
			t.Fatal(err)
		}
	}
	out := make([]string, 0, ticks)
	for i := 0; i < ticks; i++ {
		out = append(out, e.Step().Digest)
	}
	return out
}

func TestSameSeedSameDigests(t *testing.T) {
	a := runDigests(t, determinismConfig(7), 300)
	b := runDigests(t, determinismConfig(7), 300)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("digests diverge at tick %d: %s vs %s", i, a[i], b[i])
		}
	}
	c := runDigests(t, determinismConfig(8), 300)
	if a[len(a)-1] == c[len(c)-1] {
		t.Error("different seeds produced the same final digest")
	}
}

func TestSnapshotIsIsolated(t *testing.T) {
	w, _ := newTestWorld(t, testConfig(), 8)
	p := foundOne(t, w, world.Coord{X: 1, Y: 1})
	e := NewEngine(w)
	snap := e.Step().Snapshot
	if e.Snapshot() != snap {
		t.Fatal("published snapshot is not the one reported")
	}
	e.Inspect(func(w *World) {
		p.Name = "Changed"
		p.Path = append(p.Path, world.Coord{X: 3, Y: 3})
	})
	got, ok := snap.Person(p.ID)
	if !ok {
		t.Fatal("person missing from snapshot")
	}
	if got.Name == "Changed" || len(got.Path) != 0 {
		t.Errorf("snapshot shares state with the world: %+v", got)
	}
	if snap.Tick != 1 {
		t.Errorf("snapshot tick = %d, want 1", snap.Tick)
	}
}

func TestRunHonoursPauseAndCancel(t *testing.T) {
	cfg := testConfig()
	cfg.Engine.Speed = 0
	cfg.Engine.Interval = time.Millisecond
	w, _ := newTestWorld(t, cfg, 8)
	e := NewEngine(w)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()

	time.Sleep(100 * time.Millisecond)
	if tick := e.Snapshot().Tick; tick != 0 {
		t.Fatalf("paused engine advanced to tick %d", tick)
	}

	e.SetSpeed(1)
	deadline := time.Now().Add(2 * time.Second)
	for e.Snapshot().Tick < 3 {
		if time.Now().After(deadline) {
			t.Fatal("engine did not tick after unpausing")
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestOnTickHooksSeeEveryTick(t *testing.T) {
	w, _ := newTestWorld(t, testConfig(), 8)
	e := NewEngine(w)
	var ticks []uint64
	e.OnTick(func(r TickReport) { ticks = append(ticks, r.Tick) })
	e.Submit(&testCmd{id: "hook", tick: 1})
	var recs int
	e.OnTick(func(r TickReport) { recs += len(r.Records) })
	for i := 0; i < 3; i++ {
		e.Step()
	}
	if len(ticks) != 3 || ticks[0] != 0 || ticks[2] != 2 {
		t.Errorf("hook ticks = %v", ticks)
	}
	if recs != 1 {
		t.Errorf("records seen by hooks = %d, want 1", recs)
	}
}
