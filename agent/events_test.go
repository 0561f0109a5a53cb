package agent

import (
	"testing"

	"github.com/nstehr/vimy/hivemind/model"
)

// baseLedger returns a mid-sized zerg base for diffing.
func baseLedger(tick int) model.Observation {
	owned := []model.UnitSummary{
		unit(1, model.Hatchery, 10, 10, true),
		unit(2, model.SpawningPool, 14, 10, true),
		unit(3, model.Extractor, 6, 12, true),
	}
	for i := 0; i < 10; i++ {
		owned = append(owned, unit(model.UnitID(100+i), model.Drone, 12, 9, true))
	}
	for i := 0; i < 8; i++ {
		owned = append(owned, unit(model.UnitID(200+i), model.Roach, 20, 20, true))
	}
	return model.Observation{
		Tick:      tick,
		Resources: model.ResourceSnapshot{Minerals: 300, SupplyUsed: 30, SupplyCap: 44, ElapsedTime: 200},
		Owned:     owned,
	}
}

func without(owned []model.UnitSummary, drop func(model.UnitSummary) bool) []model.UnitSummary {
	var out []model.UnitSummary
	for _, u := range owned {
		if !drop(u) {
			out = append(out, u)
		}
	}
	return out
}

func kinds(events []Event) map[EventKind]int {
	m := make(map[EventKind]int)
	for _, e := range events {
		m[e.Kind]++
	}
	return m
}

func TestDetectEvents_NilPrev(t *testing.T) {
	events, snap := detectEvents(model.NewLedger(baseLedger(100)), nil, nil)
	if events != nil {
		t.Errorf("expected nil events for nil prev, got %+v", events)
	}
	if snap.combatCount != 8 || snap.workerCount != 10 {
		t.Errorf("snapshot = %+v", snap)
	}
}

func TestDetectEvents_NoEvents(t *testing.T) {
	_, prev := detectEvents(model.NewLedger(baseLedger(100)), nil, nil)
	events, _ := detectEvents(model.NewLedger(baseLedger(101)), nil, &prev)
	if len(events) != 0 {
		t.Errorf("expected 0 events, got %+v", events)
	}
}

func TestDetectEvents_StructureLost(t *testing.T) {
	_, prev := detectEvents(model.NewLedger(baseLedger(100)), nil, nil)

	obs := baseLedger(101)
	obs.Owned = without(obs.Owned, func(u model.UnitSummary) bool { return u.ID == 2 || u.ID == 3 })
	events, _ := detectEvents(model.NewLedger(obs), nil, &prev)

	if len(events) != 1 || events[0].Kind != EventStructureLost {
		t.Fatalf("expected one structure_lost, got %+v", events)
	}
	// The extractor is not critical; only the pool is reported.
	if events[0].Detail != "lost SpawningPool (id 2)" {
		t.Errorf("detail = %q", events[0].Detail)
	}
}

func TestDetectEvents_ArmyDevastated(t *testing.T) {
	tests := []struct {
		name   string
		army   int
		remain int
		want   bool
	}{
		{"lost more than half", 8, 3, true},
		{"lost exactly half", 8, 4, false},
		{"wiped out", 8, 0, true},
		{"below floor", 5, 1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trim := func(keep int) model.Observation {
				obs := baseLedger(0)
				n := 0
				obs.Owned = without(obs.Owned, func(u model.UnitSummary) bool {
					if u.Type != model.Roach {
						return false
					}
					n++
					return n > keep
				})
				return obs
			}
			_, prev := detectEvents(model.NewLedger(trim(tt.army)), nil, nil)
			cur := trim(tt.remain)
			cur.Tick = 1
			events, _ := detectEvents(model.NewLedger(cur), nil, &prev)
			if got := kinds(events)[EventArmyDevastated] == 1; got != tt.want {
				t.Errorf("army_devastated = %v, want %v (%+v)", got, tt.want, events)
			}
		})
	}
}

func TestDetectEvents_FirstContactOnce(t *testing.T) {
	enemies := []model.UnitSummary{unit(900, model.Marine, 60, 60, false)}

	_, snap := detectEvents(model.NewLedger(baseLedger(1)), nil, nil)
	events, snap := detectEvents(model.NewLedger(baseLedger(2)), enemies, &snap)
	if kinds(events)[EventFirstContact] != 1 {
		t.Fatalf("expected first_contact, got %+v", events)
	}
	if events[0].Detail != "1 enemies visible" {
		t.Errorf("detail = %q", events[0].Detail)
	}

	// Enemies leave vision and come back: not a first contact any more.
	events, snap = detectEvents(model.NewLedger(baseLedger(3)), nil, &snap)
	events2, _ := detectEvents(model.NewLedger(baseLedger(4)), enemies, &snap)
	if kinds(events)[EventFirstContact]+kinds(events2)[EventFirstContact] != 0 {
		t.Errorf("first_contact repeated: %+v %+v", events, events2)
	}
}

func TestDetectEvents_EconomyCrisis(t *testing.T) {
	tests := []struct {
		name   string
		remain int
		want   bool
	}{
		{"all workers lost", 0, true},
		{"more than half lost", 4, true},
		{"half lost", 5, false},
		{"minor losses", 9, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, prev := detectEvents(model.NewLedger(baseLedger(0)), nil, nil)
			obs := baseLedger(1)
			n := 0
			obs.Owned = without(obs.Owned, func(u model.UnitSummary) bool {
				if u.Type != model.Drone {
					return false
				}
				n++
				return n > tt.remain
			})
			events, _ := detectEvents(model.NewLedger(obs), nil, &prev)
			if got := kinds(events)[EventEconomyCrisis] == 1; got != tt.want {
				t.Errorf("economy_crisis = %v, want %v (%+v)", got, tt.want, events)
			}
		})
	}
}

func TestGamePhase(t *testing.T) {
	tests := []struct {
		name    string
		elapsed float64
		supply  int
		owned   []model.UnitSummary
		want    Phase
	}{
		{"opening", 60, 14, base(12), PhaseEarly},
		{"clock", 400, 30, base(12), PhaseMid},
		{"supply", 100, 60, base(12), PhaseMid},
		{"two tech", 200, 30, append(base(12), unit(2, model.SpawningPool, 0, 0, true), unit(3, model.RoachWarren, 0, 0, true)), PhaseMid},
		{"three tech", 200, 30, append(base(12), unit(2, model.SpawningPool, 0, 0, true), unit(3, model.RoachWarren, 0, 0, true), unit(4, model.Lair, 0, 0, true)), PhaseLate},
		{"late clock", 950, 30, base(12), PhaseLate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obs := model.Observation{
				Resources: model.ResourceSnapshot{SupplyUsed: tt.supply, SupplyCap: 200, ElapsedTime: tt.elapsed},
				Owned:     tt.owned,
			}
			if got := gamePhase(model.NewLedger(obs)); got != tt.want {
				t.Errorf("phase = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestDetectEvents_PhaseTransition(t *testing.T) {
	_, prev := detectEvents(model.NewLedger(baseLedger(0)), nil, nil)
	obs := baseLedger(1)
	obs.Resources.ElapsedTime = 400
	events, _ := detectEvents(model.NewLedger(obs), nil, &prev)
	if kinds(events)[EventPhaseTransition] != 1 {
		t.Fatalf("expected phase_transition, got %+v", events)
	}
}
