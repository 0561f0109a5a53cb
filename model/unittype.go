package model

import (
	"fmt"
	"strings"
)

// UnitType identifies a unit or structure. It is a closed enum keyed into
// fixed-size tables; strings only appear at the wire and config boundary.
type UnitType uint8

const (
	UnitTypeUnknown UnitType = iota

	// Zerg
	Drone
	Overlord
	Zergling
	Baneling
	Queen
	Roach
	Ravager
	Hydralisk
	Lurker
	Mutalisk
	Corruptor
	Infestor
	SwarmHost
	Ultralisk
	BroodLord
	Hatchery
	Lair
	Hive
	Extractor
	SpawningPool
	EvolutionChamber
	RoachWarren
	BanelingNest
	HydraliskDen
	LurkerDen
	Spire
	InfestationPit
	UltraliskCavern
	SpineCrawler
	SporeCrawler

	// Terran
	SCV
	Marine
	Marauder
	Reaper
	Hellion
	SiegeTank
	Thor
	Medivac
	VikingFighter
	Banshee
	Raven
	Ghost
	Battlecruiser
	CommandCenter
	SupplyDepot
	Refinery
	Barracks
	Factory
	Starport
	EngineeringBay
	Bunker
	MissileTurret

	// Protoss
	Probe
	Zealot
	Stalker
	Sentry
	Adept
	HighTemplar
	DarkTemplar
	Immortal
	Colossus
	Observer
	Phoenix
	VoidRay
	Oracle
	Carrier
	Nexus
	Pylon
	Assimilator
	Gateway
	Forge
	CyberneticsCore
	RoboticsFacility
	Stargate
	TwilightCouncil
	PhotonCannon
	ShieldBattery

	numUnitTypes
)

// NumUnitTypes sizes per-type tables in other packages.
const NumUnitTypes = int(numUnitTypes)

// Race is the faction a unit type belongs to.
type Race uint8

const (
	RaceUnknown Race = iota
	Zerg
	Terran
	Protoss
)

func (r Race) String() string {
	switch r {
	case Zerg:
		return "zerg"
	case Terran:
		return "terran"
	case Protoss:
		return "protoss"
	default:
		return "unknown"
	}
}

// Class is the target-priority class of a unit type. The combat policy keys
// its static priority table on it.
type Class uint8

const (
	ClassSupport Class = iota // overlords, pylons, depots
	ClassStructure
	ClassWorker
	ClassCombat
	ClassSiege
	ClassStaticDefense
	ClassTech
	ClassPrimary
	ClassProduction
	ClassSpellcaster

	NumClasses = int(ClassSpellcaster) + 1
)

type typeFlag uint16

const (
	fCombat typeFlag = 1 << iota
	fHitsGround
	fHitsAir
	fPrimary
	fProduction
	fTech
	fStaticDefense
	fDetector
)

type unitInfo struct {
	name     string
	race     Race
	category Category
	class    Class
	value    float64 // army value, roughly (minerals+gas)/50
	flags    typeFlag
}

const (
	ground = fCombat | fHitsGround
	both   = fCombat | fHitsGround | fHitsAir
	air    = fCombat | fHitsAir
)

var unitTable = [numUnitTypes]unitInfo{
	UnitTypeUnknown: {name: "unknown"},

	Drone:            {"Drone", Zerg, Worker, ClassWorker, 0, 0},
	Overlord:         {"Overlord", Zerg, Flyer, ClassSupport, 0, 0},
	Zergling:         {"Zergling", Zerg, Combat, ClassCombat, 0.5, ground},
	Baneling:         {"Baneling", Zerg, Combat, ClassCombat, 1, ground},
	Queen:            {"Queen", Zerg, Combat, ClassCombat, 3, both},
	Roach:            {"Roach", Zerg, Combat, ClassCombat, 2, ground},
	Ravager:          {"Ravager", Zerg, Combat, ClassSiege, 4, ground},
	Hydralisk:        {"Hydralisk", Zerg, Combat, ClassCombat, 3, both},
	Lurker:           {"Lurker", Zerg, Combat, ClassSiege, 6, ground},
	Mutalisk:         {"Mutalisk", Zerg, Flyer, ClassCombat, 4, both},
	Corruptor:        {"Corruptor", Zerg, Flyer, ClassCombat, 5, air},
	Infestor:         {"Infestor", Zerg, Combat, ClassSpellcaster, 5, fCombat | fHitsGround | fHitsAir},
	SwarmHost:        {"SwarmHost", Zerg, Combat, ClassSiege, 4, ground},
	Ultralisk:        {"Ultralisk", Zerg, Combat, ClassCombat, 10, ground},
	BroodLord:        {"BroodLord", Zerg, Flyer, ClassSiege, 10, ground},
	Hatchery:         {"Hatchery", Zerg, Structure, ClassPrimary, 0, fPrimary | fProduction},
	Lair:             {"Lair", Zerg, Structure, ClassPrimary, 0, fPrimary | fProduction | fTech},
	Hive:             {"Hive", Zerg, Structure, ClassPrimary, 0, fPrimary | fProduction | fTech},
	Extractor:        {"Extractor", Zerg, Structure, ClassStructure, 0, 0},
	SpawningPool:     {"SpawningPool", Zerg, Structure, ClassTech, 0, fTech},
	EvolutionChamber: {"EvolutionChamber", Zerg, Structure, ClassTech, 0, fTech},
	RoachWarren:      {"RoachWarren", Zerg, Structure, ClassTech, 0, fTech},
	BanelingNest:     {"BanelingNest", Zerg, Structure, ClassTech, 0, fTech},
	HydraliskDen:     {"HydraliskDen", Zerg, Structure, ClassTech, 0, fTech},
	LurkerDen:        {"LurkerDen", Zerg, Structure, ClassTech, 0, fTech},
	Spire:            {"Spire", Zerg, Structure, ClassTech, 0, fTech},
	InfestationPit:   {"InfestationPit", Zerg, Structure, ClassTech, 0, fTech},
	UltraliskCavern:  {"UltraliskCavern", Zerg, Structure, ClassTech, 0, fTech},
	SpineCrawler:     {"SpineCrawler", Zerg, Structure, ClassStaticDefense, 3, fStaticDefense | fHitsGround},
	SporeCrawler:     {"SporeCrawler", Zerg, Structure, ClassStaticDefense, 2, fStaticDefense | fHitsAir | fDetector},

	SCV:            {"SCV", Terran, Worker, ClassWorker, 0, 0},
	Marine:         {"Marine", Terran, Combat, ClassCombat, 1, both},
	Marauder:       {"Marauder", Terran, Combat, ClassCombat, 2.5, ground},
	Reaper:         {"Reaper", Terran, Combat, ClassCombat, 2, ground},
	Hellion:        {"Hellion", Terran, Combat, ClassCombat, 2, ground},
	SiegeTank:      {"SiegeTank", Terran, Combat, ClassSiege, 5, ground},
	Thor:           {"Thor", Terran, Combat, ClassCombat, 10, both},
	Medivac:        {"Medivac", Terran, Flyer, ClassSpellcaster, 4, fCombat},
	VikingFighter:  {"VikingFighter", Terran, Flyer, ClassCombat, 4, air},
	Banshee:        {"Banshee", Terran, Flyer, ClassCombat, 5, ground},
	Raven:          {"Raven", Terran, Flyer, ClassSpellcaster, 6, fCombat | fDetector},
	Ghost:          {"Ghost", Terran, Combat, ClassSpellcaster, 5, both},
	Battlecruiser:  {"Battlecruiser", Terran, Flyer, ClassCombat, 14, both},
	CommandCenter:  {"CommandCenter", Terran, Structure, ClassPrimary, 0, fPrimary | fProduction},
	SupplyDepot:    {"SupplyDepot", Terran, Structure, ClassSupport, 0, 0},
	Refinery:       {"Refinery", Terran, Structure, ClassStructure, 0, 0},
	Barracks:       {"Barracks", Terran, Structure, ClassProduction, 0, fProduction},
	Factory:        {"Factory", Terran, Structure, ClassProduction, 0, fProduction},
	Starport:       {"Starport", Terran, Structure, ClassProduction, 0, fProduction},
	EngineeringBay: {"EngineeringBay", Terran, Structure, ClassTech, 0, fTech},
	Bunker:         {"Bunker", Terran, Structure, ClassStaticDefense, 4, fStaticDefense | fHitsGround | fHitsAir},
	MissileTurret:  {"MissileTurret", Terran, Structure, ClassStaticDefense, 2, fStaticDefense | fHitsAir | fDetector},

	Probe:            {"Probe", Protoss, Worker, ClassWorker, 0, 0},
	Zealot:           {"Zealot", Protoss, Combat, ClassCombat, 2, ground},
	Stalker:          {"Stalker", Protoss, Combat, ClassCombat, 3, both},
	Sentry:           {"Sentry", Protoss, Combat, ClassSpellcaster, 3, both},
	Adept:            {"Adept", Protoss, Combat, ClassCombat, 3, ground},
	HighTemplar:      {"HighTemplar", Protoss, Combat, ClassSpellcaster, 5, fCombat},
	DarkTemplar:      {"DarkTemplar", Protoss, Combat, ClassCombat, 6, ground},
	Immortal:         {"Immortal", Protoss, Combat, ClassCombat, 7, ground},
	Colossus:         {"Colossus", Protoss, Combat, ClassSiege, 10, ground},
	Observer:         {"Observer", Protoss, Flyer, ClassSupport, 0, fDetector},
	Phoenix:          {"Phoenix", Protoss, Flyer, ClassCombat, 5, air},
	VoidRay:          {"VoidRay", Protoss, Flyer, ClassCombat, 7, both},
	Oracle:           {"Oracle", Protoss, Flyer, ClassSpellcaster, 5, ground},
	Carrier:          {"Carrier", Protoss, Flyer, ClassCombat, 14, both},
	Nexus:            {"Nexus", Protoss, Structure, ClassPrimary, 0, fPrimary | fProduction},
	Pylon:            {"Pylon", Protoss, Structure, ClassSupport, 0, 0},
	Assimilator:      {"Assimilator", Protoss, Structure, ClassStructure, 0, 0},
	Gateway:          {"Gateway", Protoss, Structure, ClassProduction, 0, fProduction},
	Forge:            {"Forge", Protoss, Structure, ClassTech, 0, fTech},
	CyberneticsCore:  {"CyberneticsCore", Protoss, Structure, ClassTech, 0, fTech},
	RoboticsFacility: {"RoboticsFacility", Protoss, Structure, ClassProduction, 0, fProduction},
	Stargate:         {"Stargate", Protoss, Structure, ClassProduction, 0, fProduction},
	TwilightCouncil:  {"TwilightCouncil", Protoss, Structure, ClassTech, 0, fTech},
	PhotonCannon:     {"PhotonCannon", Protoss, Structure, ClassStaticDefense, 3, fStaticDefense | fHitsGround | fHitsAir | fDetector},
	ShieldBattery:    {"ShieldBattery", Protoss, Structure, ClassStaticDefense, 2, fStaticDefense},
}

// typeByName is keyed by the normalized (lowercase, no separators) name.
var typeByName = func() map[string]UnitType {
	m := make(map[string]UnitType, numUnitTypes)
	for t := UnitType(1); t < numUnitTypes; t++ {
		m[normalizeName(unitTable[t].name)] = t
	}
	return m
}()

func normalizeName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer("_", "", "-", "", " ", "").Replace(s)
}

// ParseUnitType resolves "SpawningPool", "SPAWNINGPOOL" and "spawning_pool"
// alike. Unknown names return UnitTypeUnknown and false.
func ParseUnitType(name string) (UnitType, bool) {
	t, ok := typeByName[normalizeName(name)]
	return t, ok
}

// AllUnitTypes lists every known type in declaration order.
func AllUnitTypes() []UnitType {
	out := make([]UnitType, 0, numUnitTypes-1)
	for t := UnitType(1); t < numUnitTypes; t++ {
		out = append(out, t)
	}
	return out
}

func (t UnitType) info() unitInfo {
	if t >= numUnitTypes {
		return unitTable[UnitTypeUnknown]
	}
	return unitTable[t]
}

// Known reports whether t is a member of the enum other than UnitTypeUnknown.
func (t UnitType) Known() bool { return t > UnitTypeUnknown && t < numUnitTypes }

func (t UnitType) String() string { return t.info().name }

func (t UnitType) Race() Race            { return t.info().race }
func (t UnitType) Category() Category    { return t.info().category }
func (t UnitType) Class() Class          { return t.info().class }
func (t UnitType) Value() float64        { return t.info().value }
func (t UnitType) IsStructure() bool     { return t.Known() && t.info().category == Structure }
func (t UnitType) IsPrimary() bool       { return t.info().flags&fPrimary != 0 }
func (t UnitType) IsProduction() bool    { return t.info().flags&fProduction != 0 }
func (t UnitType) IsTech() bool          { return t.info().flags&fTech != 0 }
func (t UnitType) IsStaticDefense() bool { return t.info().flags&fStaticDefense != 0 }
func (t UnitType) IsDetector() bool      { return t.info().flags&fDetector != 0 }
func (t UnitType) IsCombat() bool        { return t.info().flags&fCombat != 0 }
func (t UnitType) HitsGround() bool      { return t.info().flags&fHitsGround != 0 }
func (t UnitType) HitsAir() bool         { return t.info().flags&fHitsAir != 0 }

func (t UnitType) MarshalText() ([]byte, error) {
	if !t.Known() {
		return []byte(unitTable[UnitTypeUnknown].name), nil
	}
	return []byte(t.String()), nil
}

// UnmarshalText never fails: observations are noisy and an unrecognized
// type degrades to UnitTypeUnknown with the category carried separately.
func (t *UnitType) UnmarshalText(b []byte) error {
	v, _ := ParseUnitType(string(b))
	*t = v
	return nil
}

// ParseUnitTypes resolves a list of names, failing on the first unknown one.
func ParseUnitTypes(names []string) ([]UnitType, error) {
	out := make([]UnitType, 0, len(names))
	for _, n := range names {
		t, ok := ParseUnitType(n)
		if !ok {
			return nil, fmt.Errorf("unknown unit type %q", n)
		}
		out = append(out, t)
	}
	return out, nil
}
