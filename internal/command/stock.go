package command

import (
	"fmt"

	"github.com/talgya/hamlet/internal/buildings"
	"github.com/talgya/hamlet/internal/economy"
	"github.com/talgya/hamlet/internal/engine"
	"github.com/talgya/hamlet/internal/world"
)

// PlaceBuilding pays a building's cost from the village stock and claims
// its footprint. The building starts unconstructed.
type PlaceBuilding struct {
	Base
	Type     buildings.Type
	Origin   world.Coord
	Rotation buildings.Rotation
}

// Kind implements engine.Command.
func (PlaceBuilding) Kind() engine.Kind { return KindPlaceBuilding }

// Validate implements engine.Command.
func (c PlaceBuilding) Validate(w *engine.World) engine.Result {
	spec, ok := buildings.Lookup(c.Type)
	if !ok {
		return engine.Fail(engine.StatusInvalidTarget, "unknown building type %d", c.Type)
	}
	fp := buildings.Footprint(c.Type, c.Origin, c.Rotation)
	if at, why, ok := w.FootprintClear(fp); !ok {
		return engine.Fail(engine.StatusInvalidTarget, "cannot build a %s at %s: %s is %s", c.Type, c.Origin, at, why)
	}
	if err := w.Village.Stock.Shortfall(spec.Cost); err != nil {
		return engine.Fail(engine.StatusInsufficientResources, "cannot afford a %s: %v", c.Type, err)
	}
	return engine.Succeed("site clear and affordable")
}

// Execute implements engine.Command.
func (c PlaceBuilding) Execute(w *engine.World) engine.Result {
	if res := c.Validate(w); !res.OK() {
		return res
	}
	spec, _ := buildings.Lookup(c.Type)
	if err := w.Village.Stock.Debit(spec.Cost); err != nil {
		return engine.Fail(engine.StatusInsufficientResources, "%v", err)
	}
	b, err := w.AddBuilding(c.Type, c.Origin, c.Rotation)
	if err != nil {
		// Refund; the debit above is the only change made so far.
		_ = w.Village.Stock.Credit(spec.Cost)
		return engine.Fail(engine.StatusFailed, "%v", err)
	}
	w.Emit(engine.LevelInfo, engine.CatConstruction, fmt.Sprintf("construction of a %s started at %s", b.Type, b.Origin), map[string]any{
		"building_id": b.ID,
		"type":        b.Type.String(),
		"x":           b.Origin.X,
		"y":           b.Origin.Y,
		"cost":        spec.Cost.Map(),
	})
	return engine.Succeed("a %s was placed at %s", b.Type, b.Origin).
		With("building_id", idString(b.ID))
}

// VillageStock addresses the village ledger in TransferResources.
const VillageStock buildings.ID = 0

// TransferResources moves stock between the village and building stores.
type TransferResources struct {
	Base
	From     buildings.ID
	To       buildings.ID
	Resource economy.Resource
	Amount   int
}

// Kind implements engine.Command.
func (TransferResources) Kind() engine.Kind { return KindTransferResources }

func ledgerOf(w *engine.World, id buildings.ID) (*economy.Ledger, engine.Result) {
	if id == VillageStock {
		return &w.Village.Stock, engine.Result{}
	}
	b, res := lookupBuilding(w, id)
	if !res.OK() {
		return nil, res
	}
	return &b.Store, engine.Result{}
}

func (c TransferResources) plan(w *engine.World) (from, to *economy.Ledger, amounts economy.Bundle, res engine.Result) {
	if c.From == c.To {
		return nil, nil, amounts, engine.Fail(engine.StatusInvalidTarget, "source and destination are the same")
	}
	if !c.Resource.Valid() || c.Amount <= 0 {
		return nil, nil, amounts, engine.Fail(engine.StatusInvalidTarget, "nothing to transfer")
	}
	if from, res = ledgerOf(w, c.From); !res.OK() {
		return nil, nil, amounts, res
	}
	if to, res = ledgerOf(w, c.To); !res.OK() {
		return nil, nil, amounts, res
	}
	amounts[c.Resource] = c.Amount
	if err := from.Shortfall(amounts); err != nil {
		return nil, nil, amounts, engine.Fail(engine.StatusInsufficientResources, "%v", err)
	}
	return from, to, amounts, engine.Succeed("transfer possible")
}

// Validate implements engine.Command.
func (c TransferResources) Validate(w *engine.World) engine.Result {
	_, _, _, res := c.plan(w)
	return res
}

// Execute implements engine.Command.
func (c TransferResources) Execute(w *engine.World) engine.Result {
	from, to, amounts, res := c.plan(w)
	if !res.OK() {
		return res
	}
	if err := economy.Transfer(from, to, amounts); err != nil {
		return engine.Fail(engine.StatusInsufficientResources, "%v", err)
	}
	w.Emit(engine.LevelInfo, engine.CatResources, fmt.Sprintf("moved %d %s from %s to %s", c.Amount, c.Resource, stockName(c.From), stockName(c.To)),
		map[string]any{"from": c.From, "to": c.To, "resource": c.Resource.String(), "amount": c.Amount})
	return engine.Succeed("moved %d %s", c.Amount, c.Resource)
}

func stockName(id buildings.ID) string {
	if id == VillageStock {
		return "the village"
	}
	return fmt.Sprintf("building %d", id)
}
