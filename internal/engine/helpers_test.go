package engine

import (
	"testing"

	"github.com/talgya/hamlet/internal/config"
	"github.com/talgya/hamlet/internal/world"
)

// testConfig is a config with no starting population or stock.
func testConfig() config.Config {
	cfg := config.Default()
	cfg.Engine.Debug = true
	cfg.Village.StartingResources = nil
	cfg.Village.StartingFamilies = 0
	cfg.Village.StartingWildlife = nil
	return cfg
}

// newTestWorld builds an all-grass world of the given size.
func newTestWorld(t *testing.T, cfg config.Config, size int) (*World, *MemorySink) {
	t.Helper()
	sink := NewMemorySink(0)
	w, err := NewWorld(cfg, world.NewGrid(size, size, world.TerrainGrass), sink)
	if err != nil {
		t.Fatalf("NewWorld: %v", err)
	}
	return w, sink
}

// testCmd is a scriptable command.
type testCmd struct {
	id       CommandID
	player   PlayerID
	tick     uint64
	validate func(*World) Result
	execute  func(*World) Result
}

func (c *testCmd) ID() CommandID      { return c.id }
func (c *testCmd) Player() PlayerID   { return c.player }
func (c *testCmd) TargetTick() uint64 { return c.tick }
func (c *testCmd) Kind() Kind         { return "test" }

func (c *testCmd) Validate(w *World) Result {
	if c.validate != nil {
		return c.validate(w)
	}
	return Succeed("ok")
}

func (c *testCmd) Execute(w *World) Result {
	if c.execute != nil {
		return c.execute(w)
	}
	return Succeed("done")
}
