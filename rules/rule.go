package rules

import (
	"github.com/expr-lang/expr/vm"
	"github.com/nstehr/vimy/hivemind/model"
)

// ActionFunc records what a rule wants when its condition is true. Actions
// never command units directly; they append to the tick's Proposals.
type ActionFunc func(env Env, out *Proposals)

// Rule is the atomic unit of heuristic behavior: a condition → proposal pair.
// The engine evaluates rules by priority and uses Category + Exclusive
// to keep conflicting proposals from firing together.
type Rule struct {
	Name         string      // human-readable identifier
	Priority     int         // higher = evaluated first
	Category     string      // grouping for exclusive semantics
	Exclusive    bool        // if true, blocks lower-priority rules in same category
	Requester    string      // subsystem the proposal is attributed to
	Cooldown     float64     // game seconds before the rule may fire again; 0 = every tick
	ConditionSrc string      // expr source (preserved for serialization)
	program      *vm.Program // compiled bytecode
	Action       ActionFunc
}

// ProposeMode asks the state machine for a mode change.
func ProposeMode(m model.Mode) ActionFunc {
	return func(_ Env, out *Proposals) { out.ProposeMode(m) }
}

// RequestBuild asks the arbitrator for a building.
func RequestBuild(t model.UnitType) ActionFunc {
	return func(_ Env, out *Proposals) { out.RequestBuild(t) }
}
