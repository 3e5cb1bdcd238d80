package persistence

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/talgya/hamlet/internal/command"
	"github.com/talgya/hamlet/internal/config"
	"github.com/talgya/hamlet/internal/engine"
	"github.com/talgya/hamlet/internal/world"
)

func testConfig(seed int64) config.Config {
	cfg := config.Default()
	cfg.Engine.Seed = seed
	cfg.World = world.SmallTestConfig()
	cfg.World.Width, cfg.World.Height = 32, 32
	cfg.World.Seed = seed
	cfg.Village.StartingFamilies = 1
	return cfg
}

func newEngine(t *testing.T, cfg config.Config) *engine.Engine {
	t.Helper()
	w, err := engine.Bootstrap(cfg, nil)
	if err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	return engine.NewEngine(w)
}

func openDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

var scripted = []command.Envelope{
	{Type: "move_person", ID: "c1", Tick: 5, Params: map[string]string{"person": "1", "x": "18", "y": "16"}},
	{Type: "place_building", ID: "c2", Player: 4, Tick: 2, Params: map[string]string{"type": "farm", "x": "12", "y": "12"}},
	{Type: "hunt", ID: "c3", Tick: 9, Params: map[string]string{"person": "2", "wildlife": "999"}},
}

// tracedRun runs ticks with the scripted commands, writing every report to
// db and a trace under dir.
func tracedRun(t *testing.T, cfg config.Config, db *DB, dir string, segment uint64, ticks int) string {
	t.Helper()
	e := newEngine(t, cfg)
	tw := NewTraceWriter(dir, segment)
	var hookErr error
	e.OnTick(func(rep engine.TickReport) {
		if hookErr != nil {
			return
		}
		if err := db.SaveTick(rep); err != nil {
			hookErr = err
			return
		}
		hookErr = tw.Write(NewTraceEntry(rep))
	})
	for _, env := range scripted {
		cmd, err := command.Decode(env)
		if err != nil {
			t.Fatalf("Decode: %v", err)
		}
		if _, err := e.Submit(cmd); err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}
	var last string
	for i := 0; i < ticks; i++ {
		last = e.Step().Digest
	}
	if hookErr != nil {
		t.Fatalf("journal: %v", hookErr)
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	return last
}

func TestReplayReproducesDigests(t *testing.T) {
	dir := t.TempDir()
	db := openDB(t)
	tracedRun(t, testConfig(11), db, dir, 16, 60)

	segs, err := TraceSegments(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(segs) != 4 {
		t.Errorf("segments = %d, want 4", len(segs))
	}

	checked, err := Replay(newEngine(t, testConfig(11)), dir)
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if checked != 60 {
		t.Errorf("checked %d ticks, want 60", checked)
	}
}

func TestReplayDetectsDivergence(t *testing.T) {
	dir := t.TempDir()
	tracedRun(t, testConfig(11), openDB(t), dir, 0, 10)

	checked, err := Replay(newEngine(t, testConfig(12)), dir)
	if !errors.Is(err, ErrDigestMismatch) {
		t.Fatalf("err = %v, want ErrDigestMismatch", err)
	}
	if checked != 0 {
		t.Errorf("checked = %d before the mismatch", checked)
	}
}

func TestJournalRoundTrip(t *testing.T) {
	db := openDB(t)
	tracedRun(t, testConfig(11), db, t.TempDir(), 0, 20)

	envs, err := db.LoadCommands()
	if err != nil {
		t.Fatal(err)
	}
	if len(envs) != 3 {
		t.Fatalf("loaded %d commands, want 3", len(envs))
	}
	if envs[0].ID != "c2" || envs[1].ID != "c1" || envs[2].ID != "c3" {
		t.Errorf("order = %s %s %s", envs[0].ID, envs[1].ID, envs[2].ID)
	}
	if envs[0].Player != 4 || envs[0].Params["type"] != "farm" {
		t.Errorf("place_building envelope = %+v", envs[0])
	}

	recs, err := db.Records(9)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 || recs[0].Result.Status != engine.StatusInvalidTarget {
		t.Errorf("records at tick 9 = %+v", recs)
	}

	if last, _ := db.GetMeta("last_tick"); last != "20" {
		t.Errorf("last_tick = %q", last)
	}
	if v, err := db.GetMeta("nope"); err != nil || v != "" {
		t.Errorf("missing key = %q, %v", v, err)
	}

	evs, err := db.RecentEvents(engine.CatCommand, 10)
	if err != nil {
		t.Fatal(err)
	}
	for _, ev := range evs {
		if ev.Category != engine.CatCommand {
			t.Errorf("category filter leaked %s", ev.Category)
		}
	}
}

func TestJournalRunDrainsOnCancel(t *testing.T) {
	db := openDB(t)
	j := NewJournal(db, NewTraceWriter(t.TempDir(), 0), 4)
	e := newEngine(t, testConfig(3))
	j.Attach(e)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- j.Run(ctx) }()

	for i := 0; i < 12; i++ {
		e.Step()
	}
	cancel()
	if err := <-errc; err != nil {
		t.Fatalf("Run: %v", err)
	}
	if last, _ := db.GetMeta("last_tick"); last != "12" {
		t.Errorf("last_tick = %q, want 12", last)
	}
	// After Run returns, further ticks must not block.
	e.Step()
}
