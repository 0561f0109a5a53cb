// Package arbiter is the single gate every construction request passes
// through. It deduplicates unique buildings across independent requesters
// and rate-limits them with a per-type cooldown.
package arbiter

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/nstehr/vimy/hivemind/model"
)

// ErrInvalidRequest marks a request for an unknown or non-structure type.
var ErrInvalidRequest = errors.New("invalid build request")

// DefaultUnique lists the tech structures of which only one should ever exist.
var DefaultUnique = []string{
	"SpawningPool", "RoachWarren", "BanelingNest", "HydraliskDen",
	"LurkerDen", "Spire", "InfestationPit", "UltraliskCavern",
}

type Config struct {
	Cooldown float64  `yaml:"cooldown"` // game seconds
	Unique   []string `yaml:"unique"`
}

func DefaultConfig() Config {
	return Config{Cooldown: 10.0, Unique: append([]string(nil), DefaultUnique...)}
}

// Reason explains a decision.
type Reason string

const (
	ReasonGranted  Reason = "granted"
	ReasonInvalid  Reason = "invalid type"
	ReasonExists   Reason = "unique building exists or is pending"
	ReasonCooldown Reason = "unique building granted within cooldown"
)

// BuildRequest is one subsystem asking to construct a building.
type BuildRequest struct {
	Type        model.UnitType
	Requester   string
	RequestedAt float64
}

type Decision struct {
	Request BuildRequest
	Granted bool
	Reason  Reason
	Err     error // ErrInvalidRequest for rejected types
}

// Arbitrator owns the request ledger. It is not safe for concurrent use; the
// tick loop calls it from one goroutine.
type Arbitrator struct {
	cooldown float64
	unique   [model.NumUnitTypes]bool
	ledger   RequestLedger
	state    model.Ledger
}

func New(cfg Config) (*Arbitrator, error) {
	if cfg.Cooldown < 0 || math.IsNaN(cfg.Cooldown) {
		return nil, fmt.Errorf("cooldown must be non-negative, got %v", cfg.Cooldown)
	}
	types, err := model.ParseUnitTypes(cfg.Unique)
	if err != nil {
		return nil, fmt.Errorf("unique set: %w", err)
	}
	a := &Arbitrator{cooldown: cfg.Cooldown}
	for _, t := range types {
		if !t.IsStructure() {
			return nil, fmt.Errorf("unique set: %s is not a structure", t)
		}
		a.unique[t] = true
	}
	return a, nil
}

// Observe refreshes the game state the arbitrator checks existence against.
// Call once per tick before any request.
func (a *Arbitrator) Observe(state model.Ledger) { a.state = state }

func (a *Arbitrator) Unique(t model.UnitType) bool { return t.Known() && a.unique[t] }

func (a *Arbitrator) Ledger() *RequestLedger { return &a.ledger }

// Reset clears the grant history for a new match.
func (a *Arbitrator) Reset() {
	a.ledger.reset()
	a.state = model.Ledger{}
}

// CanBuild reports whether a request for t would be granted now. It has no
// side effects.
func (a *Arbitrator) CanBuild(t model.UnitType) bool {
	return a.evaluate(BuildRequest{Type: t, RequestedAt: a.state.Time()}).Granted
}

// Request asks to build t and records the grant on success.
func (a *Arbitrator) Request(t model.UnitType, requester string) bool {
	return a.Decide(BuildRequest{Type: t, Requester: requester, RequestedAt: a.state.Time()}).Granted
}

// Decide runs the full policy for req and records it if granted.
func (a *Arbitrator) Decide(req BuildRequest) Decision {
	d := a.evaluate(req)
	if d.Granted {
		a.ledger.record(req.Type, req.RequestedAt)
		slog.Info("build granted", "type", req.Type.String(), "requester", req.Requester, "time", req.RequestedAt)
	} else {
		slog.Debug("build denied", "type", req.Type.String(), "requester", req.Requester, "reason", string(d.Reason))
	}
	return d
}

func (a *Arbitrator) evaluate(req BuildRequest) Decision {
	t := req.Type
	switch {
	case !t.IsStructure():
		return Decision{Request: req, Reason: ReasonInvalid,
			Err: fmt.Errorf("%w: %s from %q", ErrInvalidRequest, t, req.Requester)}
	case !a.unique[t]:
		return Decision{Request: req, Granted: true, Reason: ReasonGranted}
	case a.state.Has(t):
		return Decision{Request: req, Reason: ReasonExists}
	case a.ledger.within(t, req.RequestedAt, a.cooldown):
		return Decision{Request: req, Reason: ReasonCooldown}
	}
	return Decision{Request: req, Granted: true, Reason: ReasonGranted}
}

// Directive builds the construction order for a granted type: the nearest
// healthy worker to our primary structure, placed near the base centroid.
// It returns false when we have no worker to send.
func (a *Arbitrator) Directive(t model.UnitType, state model.Ledger) (model.Directive, bool) {
	workers := state.Workers()
	if len(workers) == 0 {
		return model.Directive{}, false
	}
	structures := state.Structures()
	anchor := model.Centroid(model.Positions(structures))
	if ps := state.PrimaryStructures(); len(ps) > 0 {
		anchor = ps[0].Position
	}

	var best *model.UnitSummary
	bestD := math.Inf(1)
	for i := range workers {
		w := &workers[i]
		d := w.Position.DistSq(anchor)
		if w.HealthFraction() < 0.5 {
			d += 1e6 // prefer healthy workers, fall back to any
		}
		if best == nil || d < bestD || d == bestD && w.ID < best.ID {
			best, bestD = w, d
		}
	}

	hint := anchor
	if len(structures) > 0 {
		hint = model.Centroid(model.Positions(structures))
	}
	return model.Directive{
		UnitID:       best.ID,
		Action:       model.ActionBuild,
		Position:     &hint,
		BuildingType: t,
		Reason:       "build " + t.String(),
	}, true
}
