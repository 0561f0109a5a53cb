// Package combat decides which enemy each of our combat units should attack,
// which units pull back, and where they regroup.
package combat

import (
	"cmp"
	"log/slog"
	"math"
	"slices"

	"github.com/nstehr/vimy/hivemind/model"
)

type Config struct {
	EngagementRadius      float64 `yaml:"engagement_radius"`
	DefendRadius          float64 `yaml:"defend_radius"`
	ProximityWeight       float64 `yaml:"proximity_weight"`
	FinishWeight          float64 `yaml:"finish_weight"`
	MaxUnitsPerTarget     int     `yaml:"max_units_per_target"`
	MinUnitsPerStructure  int     `yaml:"min_units_per_structure"`
	StructureHealthFloor  float64 `yaml:"structure_health_floor"`
	AggressiveHealthFloor float64 `yaml:"aggressive_health_floor"`
	RetreatThreshold      float64 `yaml:"retreat_threshold"`
}

func DefaultConfig() Config {
	return Config{
		EngagementRadius:      12,
		DefendRadius:          10,
		ProximityWeight:       20,
		FinishWeight:          25,
		MaxUnitsPerTarget:     6,
		MinUnitsPerStructure:  3,
		StructureHealthFloor:  0.5,
		AggressiveHealthFloor: 0.3,
		RetreatThreshold:      0.25,
	}
}

// classPriority ranks targets before proximity and finishing bonuses.
var classPriority = [model.NumClasses]float64{
	model.ClassSpellcaster:   100,
	model.ClassProduction:    80,
	model.ClassPrimary:       70,
	model.ClassTech:          60,
	model.ClassStaticDefense: 55,
	model.ClassSiege:         50,
	model.ClassCombat:        40,
	model.ClassWorker:        30,
	model.ClassStructure:     20,
	model.ClassSupport:       10,
}

// basePriority falls back to the reported category for types we don't know.
func basePriority(u model.UnitSummary) float64 {
	if u.Type.Known() {
		return classPriority[u.Type.Class()]
	}
	switch u.Category {
	case model.Structure:
		return classPriority[model.ClassStructure]
	case model.Worker:
		return classPriority[model.ClassWorker]
	case model.Combat, model.Flyer:
		return classPriority[model.ClassCombat]
	}
	return classPriority[model.ClassSupport]
}

// TargetAssignment pairs one of our units with the enemy it should attack.
type TargetAssignment struct {
	UnitID   model.UnitID `json:"unitId"`
	TargetID model.UnitID `json:"targetId"`
	Priority float64      `json:"priority"`
}

// Plan is the full combat output for one tick.
type Plan struct {
	Assignments []TargetAssignment
	Retreats    []model.UnitID // sent to Rally
	Recalls     []model.UnitID // sent to Threatened during an emergency
	Holds       []model.UnitID // idle, no target in reach
	Rally       model.Point
	Threatened  *model.UnitSummary
}

// Policy keeps last tick's assignments so engaged units don't switch targets.
// It is owned by one match and not safe for concurrent use.
type Policy struct {
	cfg    Config
	sticky map[model.UnitID]model.UnitID
}

func NewPolicy(cfg Config) *Policy {
	return &Policy{cfg: cfg, sticky: make(map[model.UnitID]model.UnitID)}
}

// Reset forgets standing assignments.
func (p *Policy) Reset() { clear(p.sticky) }

// Assign computes the combat plan. Neither input slice is modified.
func (p *Policy) Assign(owned, enemies []model.UnitSummary, mode model.Mode) Plan {
	var structures, army []model.UnitSummary
	for _, u := range owned {
		switch {
		case u.IsStructure():
			structures = append(structures, u)
		case u.IsCombat():
			army = append(army, u)
		}
	}

	plan := Plan{Rally: rallyPoint(structures, army, enemies)}

	var available []model.UnitSummary
	for _, u := range army {
		if mode != model.ModeAllIn && u.HealthFraction() < p.cfg.RetreatThreshold {
			plan.Retreats = append(plan.Retreats, u.ID)
			delete(p.sticky, u.ID)
			continue
		}
		available = append(available, u)
	}

	if len(enemies) == 0 {
		clear(p.sticky)
		for _, u := range available {
			plan.Holds = append(plan.Holds, u.ID)
		}
		return plan
	}

	plan.Threatened = p.mostPressured(structures, enemies)
	if plan.Threatened == nil && mode == model.ModeEmergency {
		plan.Threatened = closestTo(structures, model.Centroid(model.Positions(enemies)))
	}

	var candidates []model.UnitSummary
	recall := mode == model.ModeEmergency && plan.Threatened != nil
	if recall {
		// Every standing order is dropped; only enemies at the threatened
		// structure are fair game.
		clear(p.sticky)
		for _, u := range available {
			plan.Recalls = append(plan.Recalls, u.ID)
		}
		for _, e := range enemies {
			if e.Position.Dist(plan.Threatened.Position) <= p.cfg.EngagementRadius {
				candidates = append(candidates, e)
			}
		}
	} else {
		candidates = p.candidates(available, structures, enemies, mode)
	}

	assigned := p.assign(available, candidates, mode)
	plan.Assignments = assigned

	busy := make(map[model.UnitID]bool, len(assigned))
	clear(p.sticky)
	for _, a := range assigned {
		busy[a.UnitID] = true
		p.sticky[a.UnitID] = a.TargetID
	}
	if !recall {
		for _, u := range available {
			if !busy[u.ID] {
				plan.Holds = append(plan.Holds, u.ID)
			}
		}
	}

	if len(assigned) > 0 || len(plan.Retreats) > 0 || recall {
		slog.Debug("combat plan",
			"mode", mode.String(),
			"candidates", len(candidates),
			"assignments", len(assigned),
			"retreats", len(plan.Retreats),
			"recalls", len(plan.Recalls),
			"holds", len(plan.Holds),
		)
	}
	return plan
}

// candidates filters enemies down to the ones worth engaging in this mode.
func (p *Policy) candidates(army, structures, enemies []model.UnitSummary, mode model.Mode) []model.UnitSummary {
	var out []model.UnitSummary
	for _, e := range enemies {
		if !reachable(army, e) {
			continue
		}
		switch mode {
		case model.ModeAggressive, model.ModeAllIn:
			out = append(out, e)
		case model.ModeDefend:
			if near(e.Position, structures, p.cfg.DefendRadius) {
				out = append(out, e)
			}
		default:
			if near(e.Position, army, p.cfg.EngagementRadius) || near(e.Position, structures, p.cfg.DefendRadius) {
				out = append(out, e)
			}
		}
	}
	return out
}

type scored struct {
	target model.UnitSummary
	score  float64
}

func (p *Policy) score(army []model.UnitSummary, target model.UnitSummary, mode model.Mode) float64 {
	radius := p.cfg.EngagementRadius
	if mode == model.ModeDefend {
		radius = p.cfg.DefendRadius
	}
	d := math.Inf(1)
	for _, u := range army {
		if u.CanHit(target) {
			d = math.Min(d, u.Position.Dist(target.Position))
		}
	}
	proximity := 0.0
	if radius > 0 && !math.IsInf(d, 1) {
		proximity = math.Max(0, 1-d/radius)
	}
	return basePriority(target) +
		p.cfg.ProximityWeight*proximity +
		p.cfg.FinishWeight*(1-target.HealthFraction())
}

// assign greedily fills targets in score order with the nearest free units,
// after honoring last tick's engagements.
func (p *Policy) assign(army, candidates []model.UnitSummary, mode model.Mode) []TargetAssignment {
	if len(army) == 0 || len(candidates) == 0 {
		return nil
	}

	targets := make([]scored, 0, len(candidates))
	byID := make(map[model.UnitID]int, len(candidates))
	for _, c := range candidates {
		if _, dup := byID[c.ID]; dup {
			continue
		}
		byID[c.ID] = len(targets)
		targets = append(targets, scored{target: c, score: p.score(army, c, mode)})
	}
	slices.SortFunc(targets, func(a, b scored) int {
		if c := cmp.Compare(b.score, a.score); c != 0 {
			return c
		}
		return cmp.Compare(a.target.ID, b.target.ID)
	})
	for i, t := range targets {
		byID[t.target.ID] = i
	}

	floor := p.cfg.StructureHealthFloor
	if mode == model.ModeAggressive || mode == model.ModeAllIn {
		floor = p.cfg.AggressiveHealthFloor
	}

	var out []TargetAssignment
	taken := make(map[model.UnitID]bool, len(army))
	count := make([]int, len(targets))

	// Units keep last tick's target while it is still a candidate.
	ordered := slices.Clone(army)
	slices.SortFunc(ordered, func(a, b model.UnitSummary) int { return cmp.Compare(a.ID, b.ID) })
	for _, u := range ordered {
		prev, ok := p.sticky[u.ID]
		if !ok {
			continue
		}
		i, ok := byID[prev]
		if !ok || count[i] >= p.cfg.MaxUnitsPerTarget || !u.CanHit(targets[i].target) {
			continue
		}
		if targets[i].target.IsStructure() && u.HealthFraction() < floor {
			continue
		}
		count[i]++
		taken[u.ID] = true
		out = append(out, TargetAssignment{UnitID: u.ID, TargetID: prev, Priority: targets[i].score})
	}

	for i, t := range targets {
		need := p.cfg.MaxUnitsPerTarget - count[i]
		if need <= 0 {
			continue
		}
		isStructure := t.target.IsStructure()
		var pool []model.UnitSummary
		for _, u := range army {
			if taken[u.ID] || !u.CanHit(t.target) {
				continue
			}
			if isStructure && u.HealthFraction() < floor {
				continue
			}
			pool = append(pool, u)
		}
		if isStructure && count[i]+len(pool) < p.cfg.MinUnitsPerStructure {
			// Survivors of an engagement don't carry on alone.
			if count[i] > 0 {
				out = slices.DeleteFunc(out, func(a TargetAssignment) bool {
					if a.TargetID != t.target.ID {
						return false
					}
					delete(taken, a.UnitID)
					return true
				})
				count[i] = 0
			}
			continue
		}
		slices.SortFunc(pool, func(a, b model.UnitSummary) int {
			da, db := a.Position.DistSq(t.target.Position), b.Position.DistSq(t.target.Position)
			if c := cmp.Compare(da, db); c != 0 {
				return c
			}
			return cmp.Compare(a.ID, b.ID)
		})
		for _, u := range pool[:min(need, len(pool))] {
			taken[u.ID] = true
			count[i]++
			out = append(out, TargetAssignment{UnitID: u.ID, TargetID: t.target.ID, Priority: t.score})
		}
	}
	return out
}

// mostPressured returns the primary structure (any structure if we have no
// primary) with the most enemy combat value within the engagement radius.
func (p *Policy) mostPressured(structures, enemies []model.UnitSummary) *model.UnitSummary {
	pool := make([]model.UnitSummary, 0, len(structures))
	for _, s := range structures {
		if s.Type.IsPrimary() {
			pool = append(pool, s)
		}
	}
	if len(pool) == 0 {
		pool = structures
	}

	var best *model.UnitSummary
	bestV := 0.0
	for i := range pool {
		v := 0.0
		for _, e := range enemies {
			if e.IsCombat() && e.Position.Dist(pool[i].Position) <= p.cfg.EngagementRadius {
				v += e.Value()
			}
		}
		if v > bestV || v == bestV && v > 0 && pool[i].ID < best.ID {
			s := pool[i]
			best, bestV = &s, v
		}
	}
	return best
}

// rallyPoint is the owned structure furthest from the enemy centroid. With
// no enemies in sight it is the primary structure, or the centre of whatever
// we own.
func rallyPoint(structures, army, enemies []model.UnitSummary) model.Point {
	if len(structures) == 0 {
		return model.Centroid(model.Positions(army))
	}
	if len(enemies) == 0 {
		for _, s := range structures {
			if s.Type.IsPrimary() {
				return s.Position
			}
		}
		return model.Centroid(model.Positions(structures))
	}
	threat := model.Centroid(model.Positions(enemies))
	best := structures[0]
	for _, s := range structures[1:] {
		if s.Position.DistSq(threat) > best.Position.DistSq(threat) {
			best = s
		}
	}
	return best.Position
}

// closestTo prefers primary structures; nil when we own none.
func closestTo(structures []model.UnitSummary, p model.Point) *model.UnitSummary {
	var best *model.UnitSummary
	for i := range structures {
		s := &structures[i]
		switch {
		case best == nil,
			s.Type.IsPrimary() && !best.Type.IsPrimary(),
			s.Type.IsPrimary() == best.Type.IsPrimary() && s.Position.DistSq(p) < best.Position.DistSq(p):
			best = s
		}
	}
	if best == nil {
		return nil
	}
	c := *best
	return &c
}

func reachable(army []model.UnitSummary, target model.UnitSummary) bool {
	for _, u := range army {
		if u.CanHit(target) {
			return true
		}
	}
	return false
}

func near(p model.Point, units []model.UnitSummary, radius float64) bool {
	r2 := radius * radius
	for _, u := range units {
		if p.DistSq(u.Position) <= r2 {
			return true
		}
	}
	return false
}
