package agent

import (
	"errors"
	"slices"
	"testing"

	"go.uber.org/mock/gomock"

	"github.com/nstehr/vimy/hivemind/config"
	"github.com/nstehr/vimy/hivemind/model"
	"github.com/nstehr/vimy/hivemind/rules"
	"github.com/nstehr/vimy/hivemind/sitrep"
	"github.com/nstehr/vimy/hivemind/telemetry"
	"github.com/nstehr/vimy/hivemind/telemetry/mocks"
)

func unit(id model.UnitID, t model.UnitType, x, y float64, ours bool) model.UnitSummary {
	return model.UnitSummary{
		ID:       id,
		Type:     t,
		Category: t.Category(),
		Position: model.Point{X: x, Y: y},
		Health:   1,
		IsOurs:   ours,
	}
}

// base returns a hatchery at (10,10) with n drones around it.
func base(n int) []model.UnitSummary {
	owned := []model.UnitSummary{unit(1, model.Hatchery, 10, 10, true)}
	for i := 0; i < n; i++ {
		owned = append(owned, unit(model.UnitID(100+i), model.Drone, 12, 8+float64(i%4), true))
	}
	return owned
}

func marines(n int, x, y float64) []model.UnitSummary {
	var out []model.UnitSummary
	for i := 0; i < n; i++ {
		out = append(out, unit(model.UnitID(900+i), model.Marine, x, y+float64(i)*0.5, false))
	}
	return out
}

func observation(tick int, elapsed float64, owned, enemies []model.UnitSummary) model.Observation {
	return model.Observation{
		Tick: tick,
		Resources: model.ResourceSnapshot{
			Minerals: 50, Gas: 0, SupplyUsed: 12, SupplyCap: 14, ElapsedTime: elapsed,
		},
		Owned:   owned,
		Enemies: enemies,
	}
}

func newBrain(t *testing.T, sink telemetry.Sink) *Brain {
	t.Helper()
	b, err := NewBrain(config.Default(), sink)
	if err != nil {
		t.Fatalf("NewBrain: %v", err)
	}
	b.NewMatch("match-1", "hive", "zerg")
	return b
}

// recordingSink captures every published event through a mock.
func recordingSink(t *testing.T) (*mocks.MockSink, *[]telemetry.Event) {
	ctrl := gomock.NewController(t)
	sink := mocks.NewMockSink(ctrl)
	var got []telemetry.Event
	sink.EXPECT().Publish(gomock.Any()).DoAndReturn(func(e telemetry.Event) error {
		got = append(got, e)
		return nil
	}).AnyTimes()
	return sink, &got
}

func modeTargets(events []telemetry.Event) []string {
	var out []string
	for _, e := range events {
		if e.Kind == telemetry.KindMode {
			out = append(out, e.Detail["to"].(string))
		}
	}
	return out
}

func TestOpeningWithoutEnemies(t *testing.T) {
	b := newBrain(t, nil)
	b.Tick(observation(1, 0, base(12), nil))

	r, ok := b.Report()
	if !ok {
		t.Fatal("expected a report after the first tick")
	}
	if r.Threat != sitrep.ThreatNone || r.Opportunity != sitrep.OpportunityNone {
		t.Errorf("report = %s/%s, want NONE/NONE", r.Threat, r.Opportunity)
	}
	if b.Mode() != model.ModeNormal {
		t.Errorf("mode = %s, want NORMAL", b.Mode())
	}
}

func TestSpawningPoolRequestedTwiceBuiltOnce(t *testing.T) {
	b := newBrain(t, nil)
	obs := observation(1, 80, base(18), nil)
	obs.Resources.Minerals = 200
	obs.Resources.SupplyUsed = 18
	obs.Resources.SupplyCap = 30

	dirs := b.Tick(obs)
	pools := 0
	for _, d := range dirs {
		if d.Action == model.ActionBuild && d.BuildingType == model.SpawningPool {
			pools++
		}
	}
	if pools != 1 {
		t.Fatalf("got %d spawning pool directives, want 1: %+v", pools, dirs)
	}
	if dirs[0].Action != model.ActionBuild {
		t.Errorf("builds should come first, got %+v", dirs[0])
	}

	// Still within the cooldown and the pool is not yet reported pending.
	obs.Tick, obs.Resources.ElapsedTime = 2, 82
	for _, d := range b.Tick(obs) {
		if d.BuildingType == model.SpawningPool {
			t.Fatalf("second pool granted within cooldown: %+v", d)
		}
	}
}

func TestEmergencyHoldsUntilSecondCalmReport(t *testing.T) {
	sink, events := recordingSink(t)
	b := newBrain(t, sink)

	b.Tick(observation(1, 0, base(6), nil))
	if b.Mode() != model.ModeNormal {
		t.Fatalf("mode = %s, want NORMAL", b.Mode())
	}

	b.Tick(observation(2, 4, base(6), marines(4, 12, 10)))
	if b.Mode() != model.ModeEmergency {
		t.Fatalf("after critical report mode = %s, want EMERGENCY", b.Mode())
	}

	b.Tick(observation(3, 8, base(6), marines(3, 12, 10)))
	if r, _ := b.Report(); r.Threat != sitrep.ThreatHigh {
		t.Fatalf("threat = %s, want HIGH", r.Threat)
	}
	if b.Mode() != model.ModeEmergency {
		t.Fatalf("one calm report released emergency: mode = %s", b.Mode())
	}

	b.Tick(observation(4, 12, base(6), marines(3, 12, 10)))
	if b.Mode() == model.ModeEmergency {
		t.Fatal("emergency should release after the second calm report")
	}
	if b.Mode() != model.ModeDefend {
		t.Errorf("mode = %s, want DEFEND from the defense heuristic", b.Mode())
	}

	want := []string{"EMERGENCY", "NORMAL", "DEFEND"}
	if got := modeTargets(*events); !slices.Equal(got, want) {
		t.Errorf("mode events = %v, want %v", got, want)
	}

	var contact, reports int
	for _, e := range *events {
		if e.MatchID != "match-1" {
			t.Errorf("event without match id: %+v", e)
		}
		switch {
		case e.Kind == telemetry.KindEvent && e.Name == string(EventFirstContact):
			contact++
		case e.Kind == telemetry.KindReport:
			reports++
		}
	}
	if contact != 1 {
		t.Errorf("first_contact fired %d times", contact)
	}
	if reports != 4 {
		t.Errorf("published %d reports, want 4", reports)
	}
}

func TestMatchEventCarriesPlayer(t *testing.T) {
	ctrl := gomock.NewController(t)
	sink := mocks.NewMockSink(ctrl)
	sink.EXPECT().Publish(telemetry.Event{
		MatchID: "m-7",
		Kind:    telemetry.KindMatch,
		Mode:    model.ModeNormal,
		Detail:  map[string]any{"player": "hive", "race": "zerg"},
	}).Return(nil)

	b, err := NewBrain(config.Default(), sink)
	if err != nil {
		t.Fatal(err)
	}
	b.NewMatch("m-7", "hive", "zerg")
}

func TestTelemetryErrorsDoNotFailTick(t *testing.T) {
	ctrl := gomock.NewController(t)
	sink := mocks.NewMockSink(ctrl)
	sink.EXPECT().Publish(gomock.Any()).Return(telemetry.ErrBackpressure).AnyTimes()

	b := newBrain(t, sink)
	b.Tick(observation(1, 0, base(4), nil))
	if b.LastTick() != 1 {
		t.Fatalf("tick not applied: last = %d", b.LastTick())
	}
}

func TestStaleTicksAreSkipped(t *testing.T) {
	b := newBrain(t, nil)
	b.Tick(observation(5, 10, base(4), nil))

	if dirs := b.Tick(observation(5, 10, base(4), nil)); dirs != nil {
		t.Errorf("duplicate tick produced directives: %+v", dirs)
	}
	b.Tick(observation(4, 9, base(4), nil))
	if b.Skipped() != 2 {
		t.Errorf("skipped = %d, want 2", b.Skipped())
	}
	if b.LastTick() != 5 {
		t.Errorf("last tick = %d, want 5", b.LastTick())
	}
}

func TestSkipKeepsCachedReportAndMode(t *testing.T) {
	b := newBrain(t, nil)
	b.Tick(observation(1, 0, base(6), marines(4, 12, 10)))
	before, _ := b.Report()

	if dirs := b.Skip(errors.New("observation timed out")); dirs != nil {
		t.Fatalf("Skip returned directives: %+v", dirs)
	}
	after, ok := b.Report()
	if !ok || after.Threat != before.Threat || after.Timestamp != before.Timestamp {
		t.Errorf("cached report changed: %+v -> %+v", before, after)
	}
	if b.Mode() != model.ModeEmergency {
		t.Errorf("mode = %s, want EMERGENCY kept", b.Mode())
	}
}

func TestTickRecoversFromPanic(t *testing.T) {
	b := newBrain(t, nil)
	b.policy = nil

	if dirs := b.Tick(observation(1, 0, base(4), marines(1, 40, 40))); dirs != nil {
		t.Fatalf("panicking tick returned directives: %+v", dirs)
	}
}

func TestNewMatchClearsState(t *testing.T) {
	b := newBrain(t, nil)
	b.Tick(observation(9, 30, base(6), marines(4, 12, 10)))
	if b.Mode() != model.ModeEmergency {
		t.Fatalf("setup: mode = %s", b.Mode())
	}

	b.NewMatch("match-2", "hive", "zerg")
	if b.Mode() != model.ModeNormal || b.LastTick() != 0 || b.MatchID() != "match-2" {
		t.Errorf("state not cleared: mode %s tick %d match %s", b.Mode(), b.LastTick(), b.MatchID())
	}
	if _, ok := b.Report(); ok {
		t.Error("report should be cleared")
	}
	// Tick 1 is valid again in the new match.
	b.Tick(observation(1, 0, base(6), nil))
	if b.Skipped() != 0 {
		t.Errorf("skipped = %d", b.Skipped())
	}
}

func TestSetDoctrineSwapsRules(t *testing.T) {
	b := newBrain(t, nil)
	if slices.Contains(b.Rules(), "build-order-spire") {
		t.Fatal("balanced doctrine should not include the spire rule")
	}
	if err := b.SetDoctrine(rules.Doctrine{Name: "Air", TechPriority: 0.9, EconomyPriority: 0.5}); err != nil {
		t.Fatalf("SetDoctrine: %v", err)
	}
	if !slices.Contains(b.Rules(), "build-order-spire") {
		t.Errorf("rules = %v, want build-order-spire", b.Rules())
	}
}
