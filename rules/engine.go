package rules

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Engine runs compiled rules against the tick's Env.
// Rules fire in priority order; exclusive rules block lower-priority rules
// in the same category, preventing conflicting proposals.
type Engine struct {
	mu    sync.RWMutex
	rules []*Rule

	firedAt      map[string]float64 // rule name → game time it last fired
	lastDiagTick int
}

// NewEngine compiles all rule conditions into expr bytecode and sorts by priority.
func NewEngine(rules []*Rule) (*Engine, error) {
	compiled, err := compileRules(rules)
	if err != nil {
		return nil, err
	}
	return &Engine{rules: compiled, firedAt: make(map[string]float64), lastDiagTick: -diagInterval}, nil
}

// Reset forgets rule cooldowns for a new match.
func (e *Engine) Reset() {
	clear(e.firedAt)
	e.lastDiagTick = -diagInterval
}

// Evaluate runs all rules against env and returns what they proposed.
// It must only be called from one goroutine; Swap may run concurrently.
func (e *Engine) Evaluate(env Env) Proposals {
	e.mu.RLock()
	rules := e.rules
	e.mu.RUnlock()

	var out Proposals
	fired := make(map[string]bool) // category → exclusive rule already fired
	now := env.Ledger.Time()

	for _, r := range rules {
		if fired[r.Category] || e.coolingDown(r, now) {
			continue
		}

		result, err := vm.Run(r.program, env)
		if err != nil {
			slog.Warn("rule condition error", "rule", r.Name, "error", err)
			continue
		}

		match, ok := result.(bool)
		if !ok || !match {
			continue
		}

		slog.Debug("rule fired", "rule", r.Name, "priority", r.Priority, "category", r.Category)
		out.Fired = append(out.Fired, r.Name)
		if r.Cooldown > 0 {
			e.firedAt[r.Name] = now
		}
		if r.Action != nil {
			out.current = r
			r.Action(env, &out)
			out.current = nil
		}

		if r.Exclusive {
			fired[r.Category] = true
		}
	}

	e.logDiagnostics(env, out)
	return out
}

// coolingDown reports whether r fired less than r.Cooldown game seconds ago.
// A clock that went backwards ends the cooldown.
func (e *Engine) coolingDown(r *Rule, now float64) bool {
	if r.Cooldown <= 0 {
		return false
	}
	last, ok := e.firedAt[r.Name]
	return ok && now >= last && now-last < r.Cooldown
}

// Swap atomically replaces the rule set. Compiles first; if compilation
// fails the old rules remain active.
func (e *Engine) Swap(newRules []*Rule) error {
	compiled, err := compileRules(newRules)
	if err != nil {
		return err
	}
	e.mu.Lock()
	e.rules = compiled
	e.mu.Unlock()
	slog.Info("rule set swapped", "count", len(compiled), "rules", ruleNames(compiled))
	return nil
}

// Names lists the active rules in evaluation order.
func (e *Engine) Names() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return ruleNames(e.rules)
}

const diagInterval = 100

// logDiagnostics helps debug "why isn't the hivemind doing anything?".
// Throttled to every diagInterval ticks.
func (e *Engine) logDiagnostics(env Env, out Proposals) {
	tick := env.Ledger.Tick
	if tick >= e.lastDiagTick && tick-e.lastDiagTick < diagInterval {
		return
	}
	e.lastDiagTick = tick

	slog.Info("heuristics diagnostics",
		"tick", tick,
		"mode", env.Mode.String(),
		"threat", env.Threat(),
		"opportunity", env.Opportunity(),
		"minerals", env.Minerals(),
		"gas", env.Gas(),
		"workers", env.Workers(),
		"fired", len(out.Fired),
		"builds", len(out.Builds),
	)
}

func ruleNames(rules []*Rule) []string {
	names := make([]string, len(rules))
	for i, r := range rules {
		names[i] = r.Name
	}
	return names
}

func compileRules(rules []*Rule) ([]*Rule, error) {
	for _, r := range rules {
		prog, err := expr.Compile(r.ConditionSrc, expr.Env(Env{}), expr.AsBool())
		if err != nil {
			return nil, fmt.Errorf("compile rule %q: %w", r.Name, err)
		}
		r.program = prog
	}
	sort.SliceStable(rules, func(i, j int) bool {
		return rules[i].Priority > rules[j].Priority
	})
	return rules, nil
}
