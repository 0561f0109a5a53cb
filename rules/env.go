package rules

import (
	"github.com/nstehr/vimy/hivemind/model"
	"github.com/nstehr/vimy/hivemind/sitrep"
)

// Env is the read-only view rule conditions are evaluated against. Its
// methods are callable from expr expressions; unit type and level names are
// resolved case-insensitively and unknown names read as absent.
type Env struct {
	Report  sitrep.SituationReport
	Ledger  model.Ledger
	Mode    model.Mode
	Enemies []model.UnitSummary
}

func (e Env) Time() float64           { return e.Ledger.Time() }
func (e Env) Minerals() int           { return e.Ledger.Resources.Minerals }
func (e Env) Gas() int                { return e.Ledger.Resources.Gas }
func (e Env) SupplyUsed() int         { return e.Ledger.Resources.SupplyUsed }
func (e Env) SupplyCap() int          { return e.Ledger.Resources.SupplyCap }
func (e Env) SupplyLeft() int         { return e.Ledger.Resources.SupplyLeft() }
func (e Env) Workers() int            { return len(e.Ledger.Workers()) }
func (e Env) ArmySize() int           { return e.Report.Military.ArmySize }
func (e Env) ArmyValue() float64      { return e.Report.Military.ArmyValue }
func (e Env) EnemyArmyValue() float64 { return e.Report.Military.EnemyArmyValue }
func (e Env) EnemiesVisible() int     { return len(e.Enemies) }

func (e Env) Count(name string) int {
	t, ok := model.ParseUnitType(name)
	if !ok {
		return 0
	}
	return e.Ledger.Count(t)
}

func (e Env) Pending(name string) int {
	t, ok := model.ParseUnitType(name)
	if !ok {
		return 0
	}
	return e.Ledger.PendingCount(t)
}

// Has reports whether the type exists or is under construction.
func (e Env) Has(name string) bool {
	t, ok := model.ParseUnitType(name)
	return ok && e.Ledger.Has(t)
}

// Planned is Count + Pending.
func (e Env) Planned(name string) int { return e.Count(name) + e.Pending(name) }

func (e Env) EnemyFlyers() int {
	n := 0
	for _, u := range e.Enemies {
		if u.IsFlying() && u.IsCombat() {
			n++
		}
	}
	return n
}

func (e Env) Threat() string      { return e.Report.Threat.String() }
func (e Env) Opportunity() string { return e.Report.Opportunity.String() }

func (e Env) ThreatAtLeast(level string) bool {
	l, ok := sitrep.ParseThreatLevel(level)
	return ok && e.Report.Threat >= l
}

func (e Env) OpportunityAtLeast(level string) bool {
	o, ok := sitrep.ParseOpportunity(level)
	return ok && e.Report.Opportunity >= o
}

// Score returns a strategy score by name ("economy", "tech", ...).
func (e Env) Score(name string) float64 {
	s, ok := sitrep.ParseStrategy(name)
	if !ok {
		return 0
	}
	return e.Report.Score(s)
}

func (e Env) ModeIs(name string) bool {
	m, err := model.ParseMode(name)
	return err == nil && e.Mode == m
}
