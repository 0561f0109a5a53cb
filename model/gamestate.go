package model

import "math"

// ResourceSnapshot is the per-tick economy read-out. It is replaced wholesale
// every tick and its fields are never negative once sanitized.
type ResourceSnapshot struct {
	Minerals    int     `json:"minerals"`
	Gas         int     `json:"gas"`
	SupplyUsed  int     `json:"supplyUsed"`
	SupplyCap   int     `json:"supplyCap"`
	ElapsedTime float64 `json:"elapsedTime"` // seconds of game time
}

// Sanitize clamps negative (or NaN) fields to zero and reports whether any
// field had to be corrected.
func (r ResourceSnapshot) Sanitize() (ResourceSnapshot, bool) {
	fixed := false
	clampInt := func(v *int) {
		if *v < 0 {
			*v = 0
			fixed = true
		}
	}
	clampInt(&r.Minerals)
	clampInt(&r.Gas)
	clampInt(&r.SupplyUsed)
	clampInt(&r.SupplyCap)
	if math.IsNaN(r.ElapsedTime) || math.IsInf(r.ElapsedTime, 0) || r.ElapsedTime < 0 {
		r.ElapsedTime = 0
		fixed = true
	}
	return r, fixed
}

// SupplyLeft is the free supply, never negative.
func (r ResourceSnapshot) SupplyLeft() int {
	return max(r.SupplyCap-r.SupplyUsed, 0)
}

// Observation is the inbound per-tick payload from the game-state collaborator.
type Observation struct {
	Tick      int              `json:"tick"`
	Resources ResourceSnapshot `json:"resources"`
	Owned     []UnitSummary    `json:"owned"`
	Enemies   []UnitSummary    `json:"enemies"`
	Pending   []UnitType       `json:"pending"` // structures under construction
}

// Ledger is the read-only snapshot of our side of the game for one tick.
type Ledger struct {
	Tick      int
	Resources ResourceSnapshot
	Owned     []UnitSummary
	Pending   []UnitType

	counts  [numUnitTypes]int
	pending [numUnitTypes]int
}

// NewLedger builds a sanitized ledger from an observation. The observation's
// slices are shared, never modified.
func NewLedger(obs Observation) Ledger {
	res, _ := obs.Resources.Sanitize()
	l := Ledger{
		Tick:      obs.Tick,
		Resources: res,
		Owned:     obs.Owned,
		Pending:   obs.Pending,
	}
	for _, u := range obs.Owned {
		if u.Type.Known() {
			l.counts[u.Type]++
		}
	}
	for _, t := range obs.Pending {
		if t.Known() {
			l.pending[t]++
		}
	}
	return l
}

// Time is the elapsed game time in seconds.
func (l Ledger) Time() float64 { return l.Resources.ElapsedTime }

// Count returns how many completed units of type t we own.
func (l Ledger) Count(t UnitType) int {
	if !t.Known() {
		return 0
	}
	return l.counts[t]
}

// PendingCount returns how many structures of type t are under construction.
func (l Ledger) PendingCount(t UnitType) int {
	if !t.Known() {
		return 0
	}
	return l.pending[t]
}

// Has reports whether t exists or is pending.
func (l Ledger) Has(t UnitType) bool {
	return l.Count(t)+l.PendingCount(t) > 0
}

func (l Ledger) filter(keep func(UnitSummary) bool) []UnitSummary {
	var out []UnitSummary
	for _, u := range l.Owned {
		if keep(u) {
			out = append(out, u)
		}
	}
	return out
}

func (l Ledger) Structures() []UnitSummary { return l.filter(UnitSummary.IsStructure) }
func (l Ledger) Workers() []UnitSummary    { return l.filter(UnitSummary.IsWorker) }
func (l Ledger) CombatUnits() []UnitSummary {
	return l.filter(func(u UnitSummary) bool { return u.IsCombat() && !u.IsStructure() })
}

// PrimaryStructures returns our town halls.
func (l Ledger) PrimaryStructures() []UnitSummary {
	return l.filter(func(u UnitSummary) bool { return u.Type.IsPrimary() })
}

// ArmyValue sums the value of our mobile combat units.
func (l Ledger) ArmyValue() float64 {
	v := 0.0
	for _, u := range l.Owned {
		if u.IsCombat() && !u.IsStructure() {
			v += u.Value()
		}
	}
	return v
}
