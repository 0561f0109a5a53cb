package strategy

import (
	"testing"

	"github.com/nstehr/vimy/hivemind/model"
	"github.com/nstehr/vimy/hivemind/sitrep"
)

func report(threat sitrep.ThreatLevel, opp sitrep.Opportunity) *sitrep.SituationReport {
	return &sitrep.SituationReport{Threat: threat, Opportunity: opp}
}

func TestStaysNormalOnQuietReport(t *testing.T) {
	m := NewMachine(DefaultConfig())
	tr := m.Evaluate(report(sitrep.ThreatNone, sitrep.OpportunityNone))
	if m.Mode() != model.ModeNormal || tr.Changed || tr.Rule != RuleNone {
		t.Errorf("mode = %v, transition %+v; want NORMAL unchanged", m.Mode(), tr)
	}
}

func TestEmergencyStickiness(t *testing.T) {
	m := NewMachine(DefaultConfig())
	steps := []struct {
		threat sitrep.ThreatLevel
		want   model.Mode
	}{
		{sitrep.ThreatNone, model.ModeNormal},
		{sitrep.ThreatCritical, model.ModeEmergency},
		{sitrep.ThreatHigh, model.ModeEmergency}, // one calm report is not enough
		{sitrep.ThreatHigh, model.ModeNormal},
	}
	for i, s := range steps {
		m.Evaluate(report(s.threat, sitrep.OpportunityNone))
		if m.Mode() != s.want {
			t.Fatalf("step %d (threat %v): mode = %v, want %v", i, s.threat, m.Mode(), s.want)
		}
	}
	if m.EmergencyActive() {
		t.Error("emergency flag must clear on exit")
	}
}

func TestEmergencyStreakResetsOnCritical(t *testing.T) {
	m := NewMachine(DefaultConfig())
	for _, th := range []sitrep.ThreatLevel{sitrep.ThreatCritical, sitrep.ThreatLow, sitrep.ThreatCritical, sitrep.ThreatLow} {
		m.Evaluate(report(th, sitrep.OpportunityNone))
	}
	if m.Mode() != model.ModeEmergency {
		t.Fatalf("mode = %v, want EMERGENCY after interrupted calm streak", m.Mode())
	}
	m.Evaluate(report(sitrep.ThreatLow, sitrep.OpportunityNone))
	if m.Mode() != model.ModeNormal {
		t.Errorf("mode = %v, want NORMAL after two calm reports", m.Mode())
	}
}

func TestEmergencyExitReevaluatesOpportunity(t *testing.T) {
	m := NewMachine(DefaultConfig())
	m.Evaluate(report(sitrep.ThreatCritical, sitrep.OpportunityNone))
	m.Evaluate(report(sitrep.ThreatLow, sitrep.OpportunityHigh))
	if m.Mode() != model.ModeEmergency {
		t.Fatalf("opportunity must not fire while emergency holds, mode = %v", m.Mode())
	}
	tr := m.Evaluate(report(sitrep.ThreatLow, sitrep.OpportunityHigh))
	if m.Mode() != model.ModeAggressive || tr.Rule != RuleAggressive {
		t.Errorf("mode = %v rule = %v, want AGGRESSIVE via rule 3", m.Mode(), tr.Rule)
	}
}

func TestCriticalDominatesAllIn(t *testing.T) {
	m := NewMachine(DefaultConfig())
	m.Evaluate(report(sitrep.ThreatNone, sitrep.OpportunityGameEnding))
	if m.Mode() != model.ModeAllIn {
		t.Fatalf("mode = %v, want ALL_IN", m.Mode())
	}
	tr := m.Evaluate(report(sitrep.ThreatCritical, sitrep.OpportunityGameEnding))
	if m.Mode() != model.ModeEmergency || tr.Rule != RuleEmergency {
		t.Errorf("mode = %v, want EMERGENCY", m.Mode())
	}
}

func TestAllInStickiness(t *testing.T) {
	m := NewMachine(DefaultConfig())
	m.Evaluate(report(sitrep.ThreatNone, sitrep.OpportunityGameEnding))
	m.Evaluate(report(sitrep.ThreatNone, sitrep.OpportunityModerate))
	if m.Mode() != model.ModeAllIn {
		t.Fatalf("one weaker report must not release ALL_IN, mode = %v", m.Mode())
	}
	m.Evaluate(report(sitrep.ThreatNone, sitrep.OpportunityModerate))
	if m.Mode() != model.ModeNormal {
		t.Errorf("mode = %v, want NORMAL", m.Mode())
	}
}

func TestAggressiveOnlyFromHigh(t *testing.T) {
	m := NewMachine(DefaultConfig())
	tr := m.Evaluate(report(sitrep.ThreatModerate, sitrep.OpportunityHigh))
	if m.Mode() != model.ModeAggressive || !tr.Changed {
		t.Fatalf("mode = %v, want AGGRESSIVE", m.Mode())
	}
	// Dropping back leaves the mode to heuristics.
	m.Evaluate(report(sitrep.ThreatNone, sitrep.OpportunityLow))
	if m.Mode() != model.ModeAggressive {
		t.Errorf("mode = %v, rule 4 must not reset the mode", m.Mode())
	}
}

func TestInvalidReportIsNoop(t *testing.T) {
	m := NewMachine(DefaultConfig())
	m.Evaluate(report(sitrep.ThreatCritical, sitrep.OpportunityNone))

	for _, r := range []*sitrep.SituationReport{nil, report(sitrep.ThreatLevel(9), sitrep.OpportunityNone), report(sitrep.ThreatNone, sitrep.Opportunity(-1))} {
		tr := m.Evaluate(r)
		if tr.Changed || m.Mode() != model.ModeEmergency {
			t.Fatalf("invalid report changed mode to %v", m.Mode())
		}
	}
	// Invalid reports do not count toward the calm streak.
	m.Evaluate(report(sitrep.ThreatNone, sitrep.OpportunityNone))
	if m.Mode() != model.ModeEmergency {
		t.Errorf("mode = %v, want EMERGENCY after a single calm report", m.Mode())
	}
}

func TestRequest(t *testing.T) {
	tests := []struct {
		name  string
		setup []*sitrep.SituationReport
		mode  model.Mode
		want  bool
		final model.Mode
	}{
		{"quiet accepts economy", []*sitrep.SituationReport{report(sitrep.ThreatNone, sitrep.OpportunityNone)}, model.ModeEconomy, true, model.ModeEconomy},
		{"before any report", nil, model.ModeDefend, true, model.ModeDefend},
		{"emergency refuses", []*sitrep.SituationReport{report(sitrep.ThreatCritical, sitrep.OpportunityNone)}, model.ModeEconomy, false, model.ModeEmergency},
		{"rule 3 refuses", []*sitrep.SituationReport{report(sitrep.ThreatNone, sitrep.OpportunityHigh)}, model.ModeEconomy, false, model.ModeAggressive},
		{"cannot request all-in", nil, model.ModeAllIn, false, model.ModeNormal},
		{"cannot request emergency", nil, model.ModeEmergency, false, model.ModeNormal},
		{"invalid mode", nil, model.Mode(99), false, model.ModeNormal},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m := NewMachine(DefaultConfig())
			for _, r := range tc.setup {
				m.Evaluate(r)
			}
			if got := m.Request(tc.mode, "test"); got != tc.want {
				t.Errorf("Request(%v) = %v, want %v", tc.mode, got, tc.want)
			}
			if m.Mode() != tc.final {
				t.Errorf("mode = %v, want %v", m.Mode(), tc.final)
			}
		})
	}
}

func TestExitStreakFloor(t *testing.T) {
	m := NewMachine(Config{ExitStreak: 0})
	m.Evaluate(report(sitrep.ThreatCritical, sitrep.OpportunityNone))
	m.Evaluate(report(sitrep.ThreatNone, sitrep.OpportunityNone))
	if m.Mode() != model.ModeEmergency {
		t.Errorf("exit streak below 2 must be raised to 2, mode = %v", m.Mode())
	}

	m.Reset()
	if m.Mode() != model.ModeNormal || m.EmergencyActive() || m.LastRule() != RuleNone {
		t.Error("Reset must return to NORMAL")
	}
}
