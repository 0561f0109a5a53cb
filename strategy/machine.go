// Package strategy owns the active strategic mode. The scorer's report can
// force a mode; heuristics may only steer it when the report does not.
package strategy

import (
	"fmt"
	"log/slog"

	"github.com/nstehr/vimy/hivemind/model"
	"github.com/nstehr/vimy/hivemind/sitrep"
)

// Rule identifies which transition rule decided the last evaluation.
type Rule int

const (
	RuleNone       Rule = iota // nothing fired; heuristics own the mode
	RuleEmergency              // threat CRITICAL
	RuleAllIn                  // opportunity GAME_ENDING
	RuleAggressive             // opportunity HIGH
	RuleSticky                 // a sticky mode is holding
)

func (r Rule) String() string {
	switch r {
	case RuleNone:
		return "none"
	case RuleEmergency:
		return "emergency"
	case RuleAllIn:
		return "all_in"
	case RuleAggressive:
		return "aggressive"
	case RuleSticky:
		return "sticky"
	default:
		return fmt.Sprintf("Rule(%d)", int(r))
	}
}

func (r Rule) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

// Forced reports whether the rule is one of the report-driven rules that
// lock heuristics out for the evaluation.
func (r Rule) Forced() bool {
	return r == RuleEmergency || r == RuleAllIn || r == RuleAggressive
}

type Config struct {
	// ExitStreak is how many consecutive calmer reports a sticky mode needs
	// before it is released. Values below 2 are raised to 2.
	ExitStreak int `yaml:"exit_streak"`
}

func DefaultConfig() Config { return Config{ExitStreak: 2} }

// Transition is the outcome of one evaluation.
type Transition struct {
	From    model.Mode `json:"from"`
	To      model.Mode `json:"to"`
	Rule    Rule       `json:"rule"`
	Reason  string     `json:"reason"`
	Changed bool       `json:"changed"`
}

// Machine is the single writer of the current mode.
type Machine struct {
	exitStreak int

	mode      model.Mode
	emergency bool
	calm      int // consecutive evaluations below the sticky mode's trigger
	lastRule  Rule
}

func NewMachine(cfg Config) *Machine {
	return &Machine{exitStreak: max(cfg.ExitStreak, 2)}
}

func (m *Machine) Mode() model.Mode      { return m.mode }
func (m *Machine) EmergencyActive() bool { return m.emergency }
func (m *Machine) LastRule() Rule        { return m.lastRule }

// Reset returns to NORMAL for a new match.
func (m *Machine) Reset() {
	*m = Machine{exitStreak: m.exitStreak}
}

// Evaluate applies the transition rules to a fresh report. A nil or
// malformed report leaves everything untouched.
func (m *Machine) Evaluate(report *sitrep.SituationReport) Transition {
	from := m.mode
	if !report.Valid() {
		slog.Warn("ignoring invalid situation report", "mode", from.String())
		return Transition{From: from, To: from, Rule: RuleNone, Reason: "invalid report"}
	}

	// Threat always wins, including over ALL_IN.
	if report.Threat == sitrep.ThreatCritical {
		m.calm = 0
		m.emergency = true
		return m.set(from, model.ModeEmergency, RuleEmergency, "threat CRITICAL")
	}

	released := false
	switch m.mode {
	case model.ModeEmergency:
		m.calm++
		if m.calm < m.exitStreak {
			return m.set(from, from, RuleSticky,
				fmt.Sprintf("threat %s, holding emergency (%d/%d)", report.Threat, m.calm, m.exitStreak))
		}
		m.emergency = false
		m.calm = 0
		released = true
	case model.ModeAllIn:
		if report.Opportunity == sitrep.OpportunityGameEnding {
			m.calm = 0
			return m.set(from, from, RuleAllIn, "opportunity GAME_ENDING")
		}
		m.calm++
		if m.calm < m.exitStreak {
			return m.set(from, from, RuleSticky,
				fmt.Sprintf("opportunity %s, holding all-in (%d/%d)", report.Opportunity, m.calm, m.exitStreak))
		}
		m.calm = 0
		released = true
	}

	switch report.Opportunity {
	case sitrep.OpportunityGameEnding:
		m.calm = 0
		return m.set(from, model.ModeAllIn, RuleAllIn, "opportunity GAME_ENDING")
	case sitrep.OpportunityHigh:
		return m.set(from, model.ModeAggressive, RuleAggressive, "opportunity HIGH")
	}

	if released {
		return m.set(from, model.ModeNormal, RuleNone, "sticky mode released")
	}
	return m.set(from, from, RuleNone, "")
}

func (m *Machine) set(from, to model.Mode, rule Rule, reason string) Transition {
	m.mode = to
	m.lastRule = rule
	t := Transition{From: from, To: to, Rule: rule, Reason: reason, Changed: from != to}
	if t.Changed {
		slog.Info("strategy mode changed", "from", from.String(), "to", to.String(), "rule", rule.String(), "reason", reason)
	}
	return t
}

// Request lets a heuristic change the mode. It is refused while a sticky mode
// holds, when the last evaluation was decided by a report-driven rule, and
// for modes only the report may enter.
func (m *Machine) Request(mode model.Mode, source string) bool {
	switch {
	case !mode.Valid() || mode.Sticky():
		slog.Debug("mode request refused", "mode", mode.String(), "source", source, "reason", "not requestable")
		return false
	case m.mode.Sticky() || m.emergency:
		slog.Debug("mode request refused", "mode", mode.String(), "source", source, "reason", "sticky "+m.mode.String())
		return false
	case m.lastRule.Forced():
		slog.Debug("mode request refused", "mode", mode.String(), "source", source, "reason", "rule "+m.lastRule.String())
		return false
	}
	if mode != m.mode {
		slog.Info("strategy mode changed", "from", m.mode.String(), "to", mode.String(), "source", source)
		m.mode = mode
	}
	return true
}
