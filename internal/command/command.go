// Package command implements the player and admin commands the scheduler
// runs, and the closed codec that maps them to and from wire envelopes.
//
// Every command validates without touching the world, and Execute repeats
// the validation before applying anything, so a command that fails leaves
// the world exactly as it found it.
package command

import (
	"errors"
	"strconv"

	"github.com/talgya/hamlet/internal/agents"
	"github.com/talgya/hamlet/internal/buildings"
	"github.com/talgya/hamlet/internal/engine"
	"github.com/talgya/hamlet/internal/social"
	"github.com/talgya/hamlet/internal/wildlife"
	"github.com/talgya/hamlet/internal/world"
)

var (
	// ErrUnknownKind is returned when decoding an envelope of unknown type.
	ErrUnknownKind = errors.New("unknown command kind")
	// ErrBadParam is returned when a parameter is missing or malformed.
	ErrBadParam = errors.New("bad command parameter")
)

// Kinds of every command in the codec table.
const (
	KindSpawnFamily        engine.Kind = "spawn_family"
	KindPlaceBuilding      engine.Kind = "place_building"
	KindAssignConstruction engine.Kind = "assign_construction"
	KindAssignJob          engine.Kind = "assign_job"
	KindUnassignWorker     engine.Kind = "unassign_worker"
	KindSetHome            engine.Kind = "set_home"
	KindGather             engine.Kind = "gather"
	KindMovePerson         engine.Kind = "move_person"
	KindSleepFamily        engine.Kind = "sleep_family"
	KindWakeFamily         engine.Kind = "wake_family"
	KindTransferResources  engine.Kind = "transfer_resources"
	KindSpawnWildlife      engine.Kind = "spawn_wildlife"
	KindHunt               engine.Kind = "hunt"
)

// Base carries the envelope fields shared by every command.
type Base struct {
	CmdID  engine.CommandID
	By     engine.PlayerID
	AtTick uint64
}

// ID implements engine.Command.
func (b Base) ID() engine.CommandID { return b.CmdID }

// Player implements engine.Command.
func (b Base) Player() engine.PlayerID { return b.By }

// TargetTick implements engine.Command.
func (b Base) TargetTick() uint64 { return b.AtTick }

// The lookups return a zero (successful) Result when the target resolves.

// lookupFamily resolves a family the player is allowed to command.
func lookupFamily(w *engine.World, player engine.PlayerID, id social.FamilyID) (*social.Family, engine.Result) {
	f, ok := w.Family(id)
	if !ok {
		return nil, engine.Fail(engine.StatusInvalidTarget, "no family %d", id)
	}
	if !w.Authorized(player, f) {
		return nil, engine.Fail(engine.StatusUnauthorized, "player %d does not control the %s family", player, f.Name)
	}
	if f.Extinct() {
		return nil, engine.Fail(engine.StatusInvalidState, "the %s family has no living members", f.Name)
	}
	return f, engine.Result{}
}

// lookupPerson resolves a living person whose family the player controls.
func lookupPerson(w *engine.World, player engine.PlayerID, id agents.PersonID) (*agents.Person, engine.Result) {
	p, ok := w.Person(id)
	if !ok {
		return nil, engine.Fail(engine.StatusInvalidTarget, "no person %d", id)
	}
	f, ok := w.FamilyOf(p)
	if !ok {
		return nil, engine.Fail(engine.StatusInvalidState, "person %d has no family", id)
	}
	if !w.Authorized(player, f) {
		return nil, engine.Fail(engine.StatusUnauthorized, "player %d does not control %s", player, p.Name)
	}
	if !p.Alive {
		return nil, engine.Fail(engine.StatusInvalidState, "%s is dead", p.Name)
	}
	return p, engine.Result{}
}

func lookupBuilding(w *engine.World, id buildings.ID) (*buildings.Building, engine.Result) {
	b, ok := w.Building(id)
	if !ok {
		return nil, engine.Fail(engine.StatusInvalidTarget, "no building %d", id)
	}
	return b, engine.Result{}
}

func lookupAnimal(w *engine.World, id wildlife.ID) (*wildlife.Entity, engine.Result) {
	e, ok := w.Animal(id)
	if !ok {
		return nil, engine.Fail(engine.StatusInvalidTarget, "no animal %d", id)
	}
	if !e.Alive {
		return nil, engine.Fail(engine.StatusInvalidState, "animal %d is dead", id)
	}
	return e, engine.Result{}
}

func inBounds(w *engine.World, c world.Coord) engine.Result {
	if !w.Grid.InBounds(c) {
		return engine.Fail(engine.StatusInvalidTarget, "%s is outside the %dx%d map", c, w.Grid.Width, w.Grid.Height)
	}
	return engine.Result{}
}

func personMeta(p *agents.Person) map[string]any {
	return map[string]any{"person_id": uint64(p.ID), "family_id": p.FamilyID}
}

func idString(id uint64) string { return strconv.FormatUint(id, 10) }
