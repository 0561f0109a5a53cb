package agent

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/nstehr/vimy/hivemind/arbiter"
	"github.com/nstehr/vimy/hivemind/combat"
	"github.com/nstehr/vimy/hivemind/config"
	"github.com/nstehr/vimy/hivemind/model"
	"github.com/nstehr/vimy/hivemind/rules"
	"github.com/nstehr/vimy/hivemind/sitrep"
	"github.com/nstehr/vimy/hivemind/strategy"
	"github.com/nstehr/vimy/hivemind/telemetry"
)

var (
	// ErrStaleState marks a tick that is older than one already processed.
	ErrStaleState = errors.New("stale state")
	// ErrMissingData marks an observation that could not be read at all.
	ErrMissingData = errors.New("missing data")
)

// Brain holds everything one match needs across ticks. It runs on the
// connection's goroutine and is not safe for concurrent use.
type Brain struct {
	matchID string

	scorer  *sitrep.Scorer
	machine *strategy.Machine
	engine  *rules.Engine
	arbiter *arbiter.Arbitrator
	policy  *combat.Policy
	sink    telemetry.Sink

	prev     *stateSnapshot
	lastTick int
	ticked   bool
	skipped  int
}

func NewBrain(cfg config.Config, sink telemetry.Sink) (*Brain, error) {
	engine, err := rules.NewEngine(rules.CompileDoctrine(cfg.Doctrine))
	if err != nil {
		return nil, fmt.Errorf("compile doctrine: %w", err)
	}
	arb, err := arbiter.New(cfg.Arbiter)
	if err != nil {
		return nil, fmt.Errorf("arbiter: %w", err)
	}
	if sink == nil {
		sink = telemetry.Nop{}
	}
	return &Brain{
		scorer:  sitrep.NewScorer(cfg.Scorer),
		machine: strategy.NewMachine(cfg.Machine),
		engine:  engine,
		arbiter: arb,
		policy:  combat.NewPolicy(cfg.Combat),
		sink:    sink,
	}, nil
}

func (b *Brain) MatchID() string  { return b.matchID }
func (b *Brain) Mode() model.Mode { return b.machine.Mode() }
func (b *Brain) LastTick() int    { return b.lastTick }
func (b *Brain) Skipped() int     { return b.skipped }
func (b *Brain) Rules() []string  { return b.engine.Names() }

// Report returns the cached situation report, if any.
func (b *Brain) Report() (sitrep.SituationReport, bool) { return b.scorer.Latest() }

// NewMatch clears all cross-tick state and tags telemetry with matchID.
func (b *Brain) NewMatch(matchID, player, race string) {
	b.matchID = matchID
	b.scorer.Reset()
	b.machine.Reset()
	b.arbiter.Reset()
	b.policy.Reset()
	b.engine.Reset()
	b.prev = nil
	b.lastTick = 0
	b.ticked = false
	b.skipped = 0
	b.emit(telemetry.Event{
		Kind:   telemetry.KindMatch,
		Detail: map[string]any{"player": player, "race": race},
	})
}

// SetDoctrine recompiles the heuristics. On failure the old rules stay.
func (b *Brain) SetDoctrine(d rules.Doctrine) error {
	d.Validate()
	if err := b.engine.Swap(rules.CompileDoctrine(d)); err != nil {
		return fmt.Errorf("swap doctrine %q: %w", d.Name, err)
	}
	slog.Info("doctrine applied", "match", b.matchID, "doctrine", d.Name,
		"economy", d.EconomyPriority, "aggression", d.Aggression,
		"defense", d.DefensePriority, "tech", d.TechPriority)
	b.emit(telemetry.Event{
		Kind: telemetry.KindEvent,
		Name: "doctrine_applied",
		Detail: map[string]any{
			"name":       d.Name,
			"economy":    d.EconomyPriority,
			"aggression": d.Aggression,
			"defense":    d.DefensePriority,
			"tech":       d.TechPriority,
		},
	})
	return nil
}

// Skip handles a tick whose observation could not be used. The cached report
// and current mode stay as they are and nothing is commanded.
func (b *Brain) Skip(err error) []model.Directive {
	b.skipped++
	slog.Warn("tick skipped", "match", b.matchID, "lastTick", b.lastTick, "mode", b.machine.Mode().String(), "error", err)
	b.emit(telemetry.Event{
		Tick:   b.lastTick,
		Kind:   telemetry.KindEvent,
		Name:   "tick_skipped",
		Detail: map[string]any{"error": err.Error()},
	})
	return nil
}

// Tick runs one decision cycle and returns directives in execution order:
// builds, retreats, recalls, attacks, holds. A panic anywhere in the cycle
// is logged and yields no directives.
func (b *Brain) Tick(obs model.Observation) (dirs []model.Directive) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("tick panicked", "match", b.matchID, "tick", obs.Tick, "panic", r, "stack", string(debug.Stack()))
			dirs = nil
		}
	}()

	if b.ticked && obs.Tick <= b.lastTick {
		return b.Skip(fmt.Errorf("%w: tick %d after %d", ErrStaleState, obs.Tick, b.lastTick))
	}

	if _, fixed := obs.Resources.Sanitize(); fixed {
		slog.Debug("sanitized resource snapshot", "match", b.matchID, "tick", obs.Tick)
	}
	ledger := model.NewLedger(obs)

	report, fresh := b.scorer.Update(ledger, obs.Enemies)
	if fresh {
		tr := b.machine.Evaluate(&report)
		b.emitReport(ledger, report)
		if tr.Changed {
			b.emitMode(ledger, tr.From, tr.To, tr.Rule.String(), tr.Reason)
		}
	}

	props := b.engine.Evaluate(rules.Env{
		Report:  report,
		Ledger:  ledger,
		Mode:    b.machine.Mode(),
		Enemies: obs.Enemies,
	})
	if p := props.Mode; p != nil {
		from := b.machine.Mode()
		if b.machine.Request(p.Mode, p.Requester) && from != p.Mode {
			b.emitMode(ledger, from, p.Mode, p.Requester, p.Rule)
		}
	}

	b.arbiter.Observe(ledger)
	for _, bp := range props.Builds {
		d := b.arbiter.Decide(arbiter.BuildRequest{Type: bp.Type, Requester: bp.Requester, RequestedAt: ledger.Time()})
		if d.Err != nil {
			slog.Warn("build request rejected", "rule", bp.Rule, "error", d.Err)
			continue
		}
		if !d.Granted {
			continue
		}
		if dir, ok := b.arbiter.Directive(bp.Type, ledger); ok {
			dirs = append(dirs, dir)
		}
	}

	plan := b.policy.Assign(obs.Owned, obs.Enemies, b.machine.Mode())
	dirs = append(dirs, plan.Directives()...)

	events, snap := detectEvents(ledger, obs.Enemies, b.prev)
	b.prev = &snap
	for _, e := range events {
		slog.Info("game event", "match", b.matchID, "kind", string(e.Kind), "tick", e.Tick, "detail", e.Detail)
		b.emit(telemetry.Event{
			Tick:   e.Tick,
			Time:   ledger.Time(),
			Kind:   telemetry.KindEvent,
			Name:   string(e.Kind),
			Detail: map[string]any{"detail": e.Detail},
		})
	}

	b.lastTick = obs.Tick
	b.ticked = true
	slog.Debug("tick complete", "match", b.matchID, "tick", obs.Tick, "mode", b.machine.Mode().String(),
		"fired", len(props.Fired), "directives", len(dirs))
	return dirs
}

func (b *Brain) emitReport(l model.Ledger, r sitrep.SituationReport) {
	b.emit(telemetry.Event{Tick: l.Tick, Time: l.Time(), Kind: telemetry.KindReport, Report: &r})
}

func (b *Brain) emitMode(l model.Ledger, from, to model.Mode, source, reason string) {
	b.emit(telemetry.Event{
		Tick:   l.Tick,
		Time:   l.Time(),
		Kind:   telemetry.KindMode,
		Detail: map[string]any{"from": from.String(), "to": to.String(), "source": source, "reason": reason},
	})
}

// emit fills in match and mode. Telemetry never fails a tick.
func (b *Brain) emit(e telemetry.Event) {
	e.MatchID = b.matchID
	e.Mode = b.machine.Mode()
	if err := b.sink.Publish(e); err != nil {
		slog.Debug("telemetry event dropped", "kind", string(e.Kind), "error", err)
	}
}
