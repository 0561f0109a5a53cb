package agent

import (
	"fmt"

	"github.com/nstehr/vimy/hivemind/model"
)

// EventKind identifies a significant change between two consecutive ticks.
type EventKind string

const (
	EventStructureLost   EventKind = "structure_lost"
	EventArmyDevastated  EventKind = "army_devastated"
	EventFirstContact    EventKind = "first_contact"
	EventEconomyCrisis   EventKind = "economy_crisis"
	EventPhaseTransition EventKind = "phase_transition"
)

// Event is a game event detected by diffing consecutive observations.
type Event struct {
	Kind   EventKind
	Tick   int
	Detail string
}

// Phase is a coarse game stage derived from time, supply and tech.
type Phase string

const (
	PhaseEarly Phase = "early"
	PhaseMid   Phase = "mid"
	PhaseLate  Phase = "late"
)

// stateSnapshot captures the diffable fields of one tick. The Brain keeps the
// previous one and compares it with the next tick.
type stateSnapshot struct {
	structures  map[model.UnitID]model.UnitType // critical structures only
	combatCount int
	workerCount int
	phase       Phase
	contacted   bool // enemies have been seen at least once this match
}

// isCriticalStructure covers structures whose loss changes what we can do.
func isCriticalStructure(t model.UnitType) bool {
	return t.IsPrimary() || t.IsProduction() || t.IsTech()
}

func gamePhase(l model.Ledger) Phase {
	tech := 0
	for _, t := range model.AllUnitTypes() {
		if t.IsTech() && l.Count(t) > 0 {
			tech++
		}
	}
	supply := l.Resources.SupplyUsed
	switch {
	case l.Time() >= 900 || supply >= 120 || tech >= 3:
		return PhaseLate
	case l.Time() >= 360 || supply >= 50 || tech >= 2:
		return PhaseMid
	}
	return PhaseEarly
}

func takeSnapshot(l model.Ledger, enemies []model.UnitSummary, prev *stateSnapshot) stateSnapshot {
	snap := stateSnapshot{
		structures:  make(map[model.UnitID]model.UnitType),
		combatCount: len(l.CombatUnits()),
		workerCount: len(l.Workers()),
		phase:       gamePhase(l),
		contacted:   len(enemies) > 0 || (prev != nil && prev.contacted),
	}
	for _, u := range l.Owned {
		if u.IsStructure() && isCriticalStructure(u.Type) {
			snap.structures[u.ID] = u.Type
		}
	}
	return snap
}

// detectEvents compares the current tick against the previous snapshot and
// returns the events it triggers with the snapshot to keep for next tick.
// No events fire on the first tick.
func detectEvents(l model.Ledger, enemies []model.UnitSummary, prev *stateSnapshot) ([]Event, stateSnapshot) {
	cur := takeSnapshot(l, enemies, prev)
	if prev == nil {
		return nil, cur
	}

	var events []Event
	emit := func(kind EventKind, detail string) {
		events = append(events, Event{Kind: kind, Tick: l.Tick, Detail: detail})
	}

	// One structure_lost per tick is enough; report the lowest id for stable output.
	var lostID model.UnitID
	var lostType model.UnitType
	for id, typ := range prev.structures {
		if _, ok := cur.structures[id]; ok {
			continue
		}
		if lostType == model.UnitTypeUnknown || id < lostID {
			lostID, lostType = id, typ
		}
	}
	if lostType != model.UnitTypeUnknown {
		emit(EventStructureLost, fmt.Sprintf("lost %s (id %d)", lostType, lostID))
	}

	// More than half the army gone, with a floor of 6 to ignore early skirmishes.
	if prev.combatCount >= 6 {
		lost := prev.combatCount - cur.combatCount
		if lost > 0 && float64(lost)/float64(prev.combatCount) > 0.5 {
			emit(EventArmyDevastated, fmt.Sprintf("army %d→%d (lost %d%%)",
				prev.combatCount, cur.combatCount, 100*lost/prev.combatCount))
		}
	}

	if !prev.contacted && cur.contacted {
		emit(EventFirstContact, fmt.Sprintf("%d enemies visible", len(enemies)))
	}

	switch {
	case prev.workerCount > 0 && cur.workerCount == 0:
		emit(EventEconomyCrisis, "all workers lost")
	case prev.workerCount >= 8 && cur.workerCount*2 < prev.workerCount:
		emit(EventEconomyCrisis, fmt.Sprintf("workers %d→%d", prev.workerCount, cur.workerCount))
	}

	if prev.phase != cur.phase {
		emit(EventPhaseTransition, fmt.Sprintf("%s → %s", prev.phase, cur.phase))
	}

	return events, cur
}
