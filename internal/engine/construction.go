package engine

import (
	"fmt"

	"github.com/talgya/hamlet/internal/agents"
	"github.com/talgya/hamlet/internal/buildings"
	"github.com/talgya/hamlet/internal/economy"
)

// constructionPass advances every unfinished building by the work of the
// construction workers actually on site this tick.
func (w *World) constructionPass() {
	perWorker := w.Config.Construction.WorkPerWorker
	for _, b := range w.Buildings {
		if b.Constructed {
			continue
		}
		onSite := w.presentWorkers(b.ConstructionWorkers, func(p *agents.Person) bool {
			return p.Task == agents.TaskConstructing && p.ConstructionSite == b.ID
		})
		if onSite == 0 {
			continue
		}
		if !b.AddProgress(perWorker*onSite, w.Tick) {
			continue
		}
		w.Stats.Completed++
		w.completeConstruction(b)
	}
}

func (w *World) completeConstruction(b *buildings.Building) {
	released := 0
	for _, id := range b.ConstructionWorkers {
		p, ok := w.Person(agents.PersonID(id))
		if !ok || p.ConstructionSite != b.ID {
			continue
		}
		p.Release()
		released++
	}
	b.ConstructionWorkers = nil
	w.Emit(LevelSuccess, CatConstruction, fmt.Sprintf("the %s is complete", b.Type), map[string]any{
		"building_id": b.ID,
		"type":        b.Type.String(),
		"released":    released,
	})
}

// productionPass runs every ProductionIntervalTicks: each constructed
// producer adds its output once per worker present into its own store.
func (w *World) productionPass() {
	interval := w.Config.Production.IntervalTicks
	if interval == 0 || w.Tick == 0 || w.Tick%interval != 0 {
		return
	}
	for _, b := range w.Buildings {
		spec := b.Spec()
		if !b.Constructed || !spec.Producer() {
			continue
		}
		present := w.presentWorkers(b.Workers, func(p *agents.Person) bool {
			return p.Task == agents.TaskWorkingAtBuilding && p.JobBuilding == b.ID
		})
		if present == 0 {
			continue
		}
		var out economy.Bundle
		for i, q := range spec.Output {
			out[i] = q * present
			w.Stats.Produced += out[i]
		}
		if err := b.Store.Credit(out); err != nil {
			w.invariant(false, "production credit for building %d: %v", b.ID, err)
			continue
		}
		b.LastProduceTick = w.Tick
	}
}

func (w *World) presentWorkers(ids []uint64, present func(*agents.Person) bool) int {
	n := 0
	for _, id := range ids {
		if p, ok := w.Person(agents.PersonID(id)); ok && p.Alive && present(p) {
			n++
		}
	}
	return n
}
