// Package sitrep turns a tick's ledger and enemy sightings into a
// SituationReport. The scorer is throttled on game time and keeps only the
// most recent report.
package sitrep

import (
	"log/slog"
	"math"

	"github.com/nstehr/vimy/hivemind/model"
)

// Config holds the scorer's thresholds. Radii are in game distance units,
// Interval in game seconds.
type Config struct {
	Interval       float64 `yaml:"interval"`
	ThreatRadius   float64 `yaml:"threat_radius"`
	DefenseRadius  float64 `yaml:"defense_radius"`
	CriticalHealth float64 `yaml:"critical_health"`
	CriticalRatio  float64 `yaml:"critical_ratio"`
	KillThreshold  float64 `yaml:"kill_threshold"`
	MinAttackArmy  float64 `yaml:"min_attack_army"`
}

func DefaultConfig() Config {
	return Config{
		Interval:       3.0,
		ThreatRadius:   15,
		DefenseRadius:  20,
		CriticalHealth: 0.35,
		CriticalRatio:  4.0,
		KillThreshold:  30,
		MinAttackArmy:  12,
	}
}

// Scorer is owned by one match. It is not safe for concurrent use.
type Scorer struct {
	cfg     Config
	latest  SituationReport
	hasRun  bool
	lastRun float64
}

func NewScorer(cfg Config) *Scorer {
	return &Scorer{cfg: cfg}
}

// Latest returns the cached report and whether one has been computed.
func (s *Scorer) Latest() (SituationReport, bool) {
	return s.latest, s.hasRun
}

// Reset drops the cached report so the next Update always runs.
func (s *Scorer) Reset() {
	s.latest = SituationReport{}
	s.hasRun = false
	s.lastRun = 0
}

// Update recomputes the report if at least Interval game seconds have passed
// since the last run. Otherwise it returns the cached report and false.
func (s *Scorer) Update(ledger model.Ledger, enemies []model.UnitSummary) (SituationReport, bool) {
	now := ledger.Time()
	if s.hasRun && now >= s.lastRun && now-s.lastRun < s.cfg.Interval {
		return s.latest, false
	}
	if s.hasRun && now < s.lastRun {
		slog.Info("game clock moved backwards, rescoring", "last", s.lastRun, "now", now)
	}

	prev := s.latest
	r := s.score(ledger, enemies)
	if s.hasRun && (r.Threat != prev.Threat || r.Opportunity != prev.Opportunity) {
		slog.Info("situation changed",
			"time", now,
			"threat", r.Threat.String(),
			"opportunity", r.Opportunity.String(),
			"ratio", round2(r.ThreatRatio),
			"advantage", round2(r.Advantage),
		)
	}
	s.latest = r
	s.hasRun = true
	s.lastRun = now
	return r, true
}

func (s *Scorer) score(ledger model.Ledger, enemies []model.UnitSummary) SituationReport {
	res := ledger.Resources
	r := SituationReport{
		Timestamp: res.ElapsedTime,
		Economy: Economy{
			Minerals:   res.Minerals,
			Gas:        res.Gas,
			SupplyUsed: res.SupplyUsed,
			SupplyCap:  res.SupplyCap,
		},
		Military: Military{
			ArmySize:  len(ledger.CombatUnits()),
			ArmyValue: ledger.ArmyValue(),
		},
	}

	var enemyValue float64
	for _, e := range enemies {
		if e.IsCombat() && !e.IsStructure() {
			enemyValue += e.Value()
		}
	}
	r.Military.EnemyArmyValue = enemyValue

	if len(enemies) > 0 {
		r.Threat, r.ThreatRatio = s.threat(ledger, enemies)
		r.Opportunity, r.Advantage, r.Exposure = s.opportunity(r.Military.ArmyValue, enemyValue, enemies)
	}
	r.Military.StrategyScores = strategyScores(ledger, r)
	return r
}

// threat compares enemy pressure near our structures against what we can
// bring to bear there.
func (s *Scorer) threat(ledger model.Ledger, enemies []model.UnitSummary) (ThreatLevel, float64) {
	structures := ledger.Structures()
	if len(structures) == 0 {
		return ThreatNone, 0
	}

	pressure := 0.0
	for _, e := range enemies {
		if e.IsCombat() && !e.IsStructure() && withinAny(e.Position, structures, s.cfg.ThreatRadius) {
			pressure += e.Value()
		}
	}
	capacity := s.capacity(ledger, structures)
	ratio := pressure / math.Max(capacity, 1)

	if _, critical := s.mostThreatened(ledger, enemies); critical {
		return ThreatCritical, ratio
	}
	switch {
	case ratio >= 2:
		return ThreatHigh, ratio
	case ratio >= 1:
		return ThreatModerate, ratio
	case pressure > 0:
		return ThreatLow, ratio
	}
	return ThreatNone, ratio
}

// capacity sums our mobile army near any of the given structures plus the
// static defense among them.
func (s *Scorer) capacity(ledger model.Ledger, near []model.UnitSummary) float64 {
	c := 0.0
	for _, u := range ledger.Owned {
		defends := u.Type.IsStaticDefense() || u.IsCombat() && !u.IsStructure()
		if defends && withinAny(u.Position, near, s.cfg.DefenseRadius) {
			c += u.Value()
		}
	}
	return c
}

// mostThreatened returns the primary structure under the highest local
// pressure and whether that structure is in critical danger.
func (s *Scorer) mostThreatened(ledger model.Ledger, enemies []model.UnitSummary) (*model.UnitSummary, bool) {
	var (
		best      *model.UnitSummary
		bestRatio = -1.0
		critical  bool
	)
	for _, p := range ledger.PrimaryStructures() {
		local := 0.0
		for _, e := range enemies {
			if e.IsCombat() && !e.IsStructure() && e.Position.Dist(p.Position) <= s.cfg.ThreatRadius {
				local += e.Value()
			}
		}
		if local == 0 {
			continue
		}
		ratio := local / math.Max(s.capacity(ledger, []model.UnitSummary{p}), 1)
		// A damaged town hall is only in danger if its defenders are outmatched.
		isCritical := ratio >= s.cfg.CriticalRatio || p.HealthFraction() < s.cfg.CriticalHealth && ratio >= 1
		if isCritical && !critical || isCritical == critical && ratio > bestRatio {
			pc := p
			best, bestRatio, critical = &pc, ratio, isCritical
		}
	}
	return best, critical
}

// Threatened returns the primary structure under the most pressure, or nil
// when no primary structure has an enemy combat unit in range.
func (s *Scorer) Threatened(ledger model.Ledger, enemies []model.UnitSummary) *model.UnitSummary {
	p, _ := s.mostThreatened(ledger, enemies)
	return p
}

func (s *Scorer) opportunity(own, enemy float64, enemies []model.UnitSummary) (Opportunity, float64, int) {
	advantage := own / math.Max(enemy, 1)
	exposure := 0
	staticDefense := false
	for _, e := range enemies {
		switch {
		case e.Type.IsStaticDefense():
			staticDefense = true
			if e.HealthFraction() < 0.5 {
				exposure++
			}
		case e.IsWorker():
			exposure++
		case e.IsStructure() && e.HealthFraction() < 0.5:
			exposure++
		}
	}

	switch {
	case enemy == 0 && !staticDefense && own >= s.cfg.KillThreshold:
		return OpportunityGameEnding, advantage, exposure
	case advantage >= 2 && own >= s.cfg.MinAttackArmy, advantage >= 1.5 && exposure >= 4:
		return OpportunityHigh, advantage, exposure
	case advantage >= 1.5, exposure >= 4:
		return OpportunityModerate, advantage, exposure
	case advantage >= 1 && own > 0:
		return OpportunityLow, advantage, exposure
	}
	return OpportunityNone, advantage, exposure
}

func strategyScores(ledger model.Ledger, r SituationReport) map[Strategy]float64 {
	res := ledger.Resources
	supply := 0.0
	if res.SupplyCap > 0 {
		supply = 1 - float64(res.SupplyUsed)/float64(res.SupplyCap)
	}
	bank := float64(res.Minerals+res.Gas) / 1000

	return map[Strategy]float64{
		StrategyAggression: clamp01(r.Advantage / 3),
		StrategyDefense:    clamp01(r.ThreatRatio / 3),
		StrategyEconomy:    clamp01(0.7*clamp01(supply) + 0.3*clamp01(bank)),
		StrategyTech:       techProgress(ledger),
	}
}

// techProgress is the fraction of our race's tech structures we have unlocked.
func techProgress(ledger model.Ledger) float64 {
	primaries := ledger.PrimaryStructures()
	if len(primaries) == 0 {
		return 0
	}
	race := primaries[0].Type.Race()
	total, have := 0, 0
	for _, t := range model.AllUnitTypes() {
		if t.Race() != race || !t.IsStructure() || !t.IsTech() || t.IsPrimary() {
			continue
		}
		total++
		if ledger.Count(t) > 0 {
			have++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(have) / float64(total)
}

func withinAny(p model.Point, units []model.UnitSummary, radius float64) bool {
	r2 := radius * radius
	for _, u := range units {
		if p.DistSq(u.Position) <= r2 {
			return true
		}
	}
	return false
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
