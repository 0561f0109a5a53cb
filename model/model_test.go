package model

import (
	"encoding/json"
	"math"
	"testing"
)

func TestParseUnitType(t *testing.T) {
	tests := []struct {
		name string
		want UnitType
		ok   bool
	}{
		{"SpawningPool", SpawningPool, true},
		{"SPAWNINGPOOL", SpawningPool, true},
		{"spawning_pool", SpawningPool, true},
		{" Hatchery ", Hatchery, true},
		{"command-center", CommandCenter, true},
		{"Mothership", UnitTypeUnknown, false},
		{"", UnitTypeUnknown, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ParseUnitType(tc.name)
			if got != tc.want || ok != tc.ok {
				t.Errorf("ParseUnitType(%q) = %v, %v; want %v, %v", tc.name, got, ok, tc.want, tc.ok)
			}
		})
	}
}

func TestUnitTableComplete(t *testing.T) {
	for _, ut := range AllUnitTypes() {
		if ut.String() == "" {
			t.Errorf("unit type %d has no name", ut)
		}
		if ut.Race() == RaceUnknown {
			t.Errorf("%s has no race", ut)
		}
		if ut.Category() == CategoryUnknown {
			t.Errorf("%s has no category", ut)
		}
		if back, ok := ParseUnitType(ut.String()); !ok || back != ut {
			t.Errorf("%s does not round-trip by name", ut)
		}
	}
	if len(AllUnitTypes()) != NumUnitTypes-1 {
		t.Errorf("AllUnitTypes() = %d entries, want %d", len(AllUnitTypes()), NumUnitTypes-1)
	}
}

func TestUnitTypeFlags(t *testing.T) {
	if !Hatchery.IsPrimary() || !Nexus.IsPrimary() || !CommandCenter.IsPrimary() {
		t.Error("town halls must be primary")
	}
	if !SpawningPool.IsStructure() || Zergling.IsStructure() {
		t.Error("IsStructure misclassifies")
	}
	if Zergling.HitsAir() || !Zergling.HitsGround() {
		t.Error("zerglings are ground-only")
	}
	if !Corruptor.HitsAir() || Corruptor.HitsGround() {
		t.Error("corruptors are air-only")
	}
	if !SporeCrawler.IsStaticDefense() || !SporeCrawler.IsDetector() {
		t.Error("spore crawler is static defense and a detector")
	}
	if UnitType(250).Known() || UnitType(250).IsStructure() {
		t.Error("out-of-range type must not be known")
	}
}

func TestUnitTypeJSON(t *testing.T) {
	var u UnitSummary
	if err := json.Unmarshal([]byte(`{"id":7,"type":"roach","category":"combat","position":{"x":1,"y":2},"health":0.5}`), &u); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if u.Type != Roach || u.Category != Combat || u.Position != (Point{1, 2}) {
		t.Errorf("unexpected summary %+v", u)
	}

	// Unknown type names degrade instead of failing the whole observation.
	if err := json.Unmarshal([]byte(`{"id":8,"type":"broodling","category":"combat"}`), &u); err != nil {
		t.Fatalf("unmarshal unknown type: %v", err)
	}
	if u.Type != UnitTypeUnknown || !u.IsCombat() || u.Value() != 1 {
		t.Errorf("unknown combat unit = %+v, combat=%v value=%v", u, u.IsCombat(), u.Value())
	}

	if err := json.Unmarshal([]byte(`{"id":9,"type":"Overlord","category":"air"}`), &u); err != nil {
		t.Fatalf("unmarshal unknown category: %v", err)
	}
	if u.Category != CategoryUnknown || u.Type != Overlord {
		t.Errorf("unknown category = %+v, want CategoryUnknown with the type kept", u)
	}

	b, err := json.Marshal(Directive{Action: ActionBuild, BuildingType: SpawningPool})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `{"action":"build","buildingType":"SpawningPool"}` {
		t.Errorf("directive JSON = %s", b)
	}
}

func TestCanHit(t *testing.T) {
	ling := UnitSummary{Type: Zergling}
	hydra := UnitSummary{Type: Hydralisk}
	muta := UnitSummary{Type: Mutalisk, Category: Flyer}
	marine := UnitSummary{Type: Marine}

	if ling.CanHit(muta) {
		t.Error("zergling must not hit air")
	}
	if !hydra.CanHit(muta) || !hydra.CanHit(marine) {
		t.Error("hydralisk hits both")
	}
	unknownAir := UnitSummary{Category: Flyer}
	if marine.CanHit(unknownAir) != true {
		t.Error("marine hits air targets of unknown type")
	}
}

func TestResourceSnapshotSanitize(t *testing.T) {
	r, fixed := ResourceSnapshot{Minerals: -5, Gas: 10, SupplyUsed: -1, SupplyCap: 14, ElapsedTime: math.NaN()}.Sanitize()
	if !fixed {
		t.Error("expected fixed=true")
	}
	want := ResourceSnapshot{Minerals: 0, Gas: 10, SupplyUsed: 0, SupplyCap: 14, ElapsedTime: 0}
	if r != want {
		t.Errorf("Sanitize() = %+v, want %+v", r, want)
	}

	if _, fixed := (ResourceSnapshot{Minerals: 50, SupplyUsed: 12, SupplyCap: 14, ElapsedTime: 3}).Sanitize(); fixed {
		t.Error("clean snapshot must not report a fix")
	}
}

func TestLedger(t *testing.T) {
	obs := Observation{
		Resources: ResourceSnapshot{Minerals: -1, ElapsedTime: 90},
		Owned: []UnitSummary{
			{ID: 1, Type: Hatchery, Position: Point{0, 0}, Health: 1},
			{ID: 2, Type: Drone, Position: Point{1, 0}, Health: 1},
			{ID: 3, Type: Zergling, Position: Point{2, 0}, Health: 1},
			{ID: 4, Type: Roach, Position: Point{3, 0}, Health: 1},
			{ID: 5, Type: SpineCrawler, Position: Point{0, 3}, Health: 1},
		},
		Pending: []UnitType{SpawningPool},
	}
	l := NewLedger(obs)

	if l.Resources.Minerals != 0 {
		t.Errorf("ledger must sanitize resources, got minerals=%d", l.Resources.Minerals)
	}
	if l.Time() != 90 {
		t.Errorf("Time() = %v", l.Time())
	}
	if !l.Has(SpawningPool) || l.Count(SpawningPool) != 0 || l.PendingCount(SpawningPool) != 1 {
		t.Error("pending spawning pool not tracked")
	}
	if !l.Has(Hatchery) || l.Has(RoachWarren) {
		t.Error("Has misreports")
	}
	if n := len(l.Structures()); n != 2 {
		t.Errorf("Structures() = %d, want 2", n)
	}
	if n := len(l.Workers()); n != 1 {
		t.Errorf("Workers() = %d, want 1", n)
	}
	if n := len(l.CombatUnits()); n != 2 {
		t.Errorf("CombatUnits() = %d, want 2 (static defense excluded)", n)
	}
	if n := len(l.PrimaryStructures()); n != 1 {
		t.Errorf("PrimaryStructures() = %d, want 1", n)
	}
	if v := l.ArmyValue(); v != 2.5 {
		t.Errorf("ArmyValue() = %v, want 2.5", v)
	}
}

func TestModeText(t *testing.T) {
	for _, s := range []string{"NORMAL", "aggressive", "all-in", "ALL_IN", "allin", "Defend"} {
		if _, err := ParseMode(s); err != nil {
			t.Errorf("ParseMode(%q): %v", s, err)
		}
	}
	if _, err := ParseMode("PANIC"); err == nil {
		t.Error("expected error for unknown mode")
	}
	if m, _ := ParseMode("all-in"); m != ModeAllIn || !m.Sticky() {
		t.Errorf("all-in parsed to %v", m)
	}
	if Mode(42).Valid() {
		t.Error("Mode(42) must be invalid")
	}
}

func TestCentroid(t *testing.T) {
	if c := Centroid(nil); c != (Point{}) {
		t.Errorf("Centroid(nil) = %v", c)
	}
	c := Centroid([]Point{{0, 0}, {4, 0}, {4, 4}, {0, 4}})
	if c != (Point{2, 2}) {
		t.Errorf("Centroid = %v, want {2 2}", c)
	}
	if d := (Point{0, 0}).Dist(Point{3, 4}); d != 5 {
		t.Errorf("Dist = %v, want 5", d)
	}
}
