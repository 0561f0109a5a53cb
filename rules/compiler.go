package rules

import (
	"fmt"

	"github.com/nstehr/vimy/hivemind/model"
)

// Requester names the subsystems compiled rules speak for. The economy and
// build-order families overlap on purpose: both ask for a spawning pool and
// the arbitrator keeps only the first.
const (
	RequesterEconomy    = "economy_manager"
	RequesterBuildOrder = "build_order_system"
	RequesterDefense    = "defense_manager"
	RequesterArmy       = "army_manager"
)

// repeatBuildCooldown spaces out requests for structures we build more than
// once, which the arbitrator does not deduplicate. It covers the time until
// the engine reports the structure as pending.
const repeatBuildCooldown = 5.0

// CompileDoctrine generates a complete rule set from a doctrine's weights.
// All conditions are built via fmt.Sprintf with interpolated values,
// so the compiler never generates invalid expr.
func CompileDoctrine(d Doctrine) []*Rule {
	d.Validate()
	var rules []*Rule

	// --- Mode heuristics (one proposal per evaluation) ---

	defendAt := "MODERATE"
	if d.DefensePriority >= 0.7 {
		defendAt = "LOW"
	}
	rules = append(rules, &Rule{
		Name:         "defend-under-pressure",
		Priority:     900,
		Category:     "mode",
		Exclusive:    true,
		Requester:    RequesterDefense,
		ConditionSrc: fmt.Sprintf(`ThreatAtLeast(%q)`, defendAt),
		Action:       ProposeMode(model.ModeDefend),
	})

	pressArmy := lerpf(30, 8, d.Aggression)
	rules = append(rules, &Rule{
		Name:         "press-advantage",
		Priority:     850,
		Category:     "mode",
		Exclusive:    true,
		Requester:    RequesterArmy,
		ConditionSrc: fmt.Sprintf(`OpportunityAtLeast("MODERATE") && ArmyValue() >= %.1f`, pressArmy),
		Action:       ProposeMode(model.ModeAggressive),
	})

	droneTarget := lerp(16, 44, d.EconomyPriority)
	rules = append(rules, &Rule{
		Name:         "drone-up",
		Priority:     800,
		Category:     "mode",
		Exclusive:    true,
		Requester:    RequesterEconomy,
		ConditionSrc: fmt.Sprintf(`Threat() == "NONE" && Workers() < %d && Score("economy") >= %.2f`, droneTarget, lerpf(0.6, 0.2, d.EconomyPriority)),
		Action:       ProposeMode(model.ModeEconomy),
	})

	rules = append(rules, &Rule{
		Name:         "stand-down",
		Priority:     100,
		Category:     "mode",
		Exclusive:    true,
		Requester:    RequesterArmy,
		ConditionSrc: `!ThreatAtLeast("LOW") && !OpportunityAtLeast("MODERATE") && !ModeIs("NORMAL")`,
		Action:       ProposeMode(model.ModeNormal),
	})

	// --- Economy manager ---

	poolWorkers := lerp(13, 18, d.EconomyPriority)
	rules = append(rules, &Rule{
		Name:         "economy-spawning-pool",
		Priority:     700,
		Category:     "build",
		Requester:    RequesterEconomy,
		ConditionSrc: fmt.Sprintf(`Workers() >= %d && !Has("SpawningPool") && Minerals() >= 150`, poolWorkers),
		Action:       RequestBuild(model.SpawningPool),
	})

	gasWorkers := lerp(14, 22, d.EconomyPriority)
	extractorCap := clampInt(lerp(1, 4, d.TechPriority), 1, 4)
	rules = append(rules, &Rule{
		Name:         "economy-extractor",
		Priority:     650,
		Category:     "build",
		Requester:    RequesterEconomy,
		Cooldown:     repeatBuildCooldown,
		ConditionSrc: fmt.Sprintf(`Workers() >= %d && Planned("Extractor") < %d && Minerals() >= 25 && !ModeIs("ALL_IN")`, gasWorkers, extractorCap),
		Action:       RequestBuild(model.Extractor),
	})

	expandBank := lerp(500, 300, d.EconomyPriority)
	rules = append(rules, &Rule{
		Name:         "economy-expand",
		Priority:     600,
		Category:     "build",
		Requester:    RequesterEconomy,
		Cooldown:     repeatBuildCooldown,
		ConditionSrc: fmt.Sprintf(`Minerals() >= %d && Planned("Hatchery") < 1 + Workers() / 16 && !ThreatAtLeast("MODERATE") && !ModeIs("ALL_IN")`, expandBank),
		Action:       RequestBuild(model.Hatchery),
	})

	// --- Build order ---

	poolTime := lerpf(75, 35, d.Aggression)
	rules = append(rules, &Rule{
		Name:         "build-order-spawning-pool",
		Priority:     690,
		Category:     "build",
		Requester:    RequesterBuildOrder,
		ConditionSrc: fmt.Sprintf(`Time() >= %.0f && !Has("SpawningPool") && Minerals() >= 150`, poolTime),
		Action:       RequestBuild(model.SpawningPool),
	})

	rules = append(rules, &Rule{
		Name:         "build-order-roach-warren",
		Priority:     680,
		Category:     "build",
		Requester:    RequesterBuildOrder,
		ConditionSrc: fmt.Sprintf(`Count("SpawningPool") > 0 && Time() >= %.0f && !Has("RoachWarren") && Minerals() >= 150`, lerpf(180, 120, d.Aggression)),
		Action:       RequestBuild(model.RoachWarren),
	})

	if d.TechPriority > 0.2 {
		rules = append(rules, &Rule{
			Name:         "build-order-evolution-chamber",
			Priority:     lerp(500, 620, d.TechPriority),
			Category:     "build",
			Requester:    RequesterBuildOrder,
			ConditionSrc: fmt.Sprintf(`Count("SpawningPool") > 0 && Time() >= %.0f && Planned("EvolutionChamber") < %d && Minerals() >= 75`, lerpf(300, 180, d.TechPriority), lerp(1, 2, d.TechPriority)),
			Action:       RequestBuild(model.EvolutionChamber),
		})
		rules = append(rules, &Rule{
			Name:         "build-order-hydralisk-den",
			Priority:     lerp(480, 600, d.TechPriority),
			Category:     "build",
			Requester:    RequesterBuildOrder,
			ConditionSrc: `Count("Lair") > 0 && Count("RoachWarren") > 0 && !Has("HydraliskDen") && Minerals() >= 100 && Gas() >= 100`,
			Action:       RequestBuild(model.HydraliskDen),
		})
	}

	if d.TechPriority > 0.6 {
		rules = append(rules, &Rule{
			Name:         "build-order-spire",
			Priority:     470,
			Category:     "build",
			Requester:    RequesterBuildOrder,
			ConditionSrc: `Count("Lair") > 0 && !Has("Spire") && Minerals() >= 200 && Gas() >= 200 && !ModeIs("ALL_IN")`,
			Action:       RequestBuild(model.Spire),
		})
	}

	// --- Static defense (gated by DefensePriority) ---

	if d.DefensePriority > 0.2 {
		spineCap := clampInt(lerp(1, 4, d.DefensePriority), 1, 4)
		rules = append(rules, &Rule{
			Name:         "defense-spine-crawler",
			Priority:     lerp(550, 750, d.DefensePriority),
			Category:     "build",
			Requester:    RequesterDefense,
			Cooldown:     repeatBuildCooldown,
			ConditionSrc: fmt.Sprintf(`ThreatAtLeast(%q) && Count("SpawningPool") > 0 && Planned("SpineCrawler") < %d && Minerals() >= 100`, defendAt, spineCap),
			Action:       RequestBuild(model.SpineCrawler),
		})
	}

	rules = append(rules, &Rule{
		Name:         "defense-spore-crawler",
		Priority:     740,
		Category:     "build",
		Requester:    RequesterDefense,
		Cooldown:     repeatBuildCooldown,
		ConditionSrc: fmt.Sprintf(`EnemyFlyers() > 0 && Count("SpawningPool") > 0 && Planned("SporeCrawler") < %d && Minerals() >= 75`, lerp(1, 3, d.DefensePriority)),
		Action:       RequestBuild(model.SporeCrawler),
	})

	return rules
}

// DefaultRules compiles the balanced doctrine.
func DefaultRules() []*Rule {
	return CompileDoctrine(DefaultDoctrine())
}
