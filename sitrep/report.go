package sitrep

import "fmt"

// ThreatLevel is totally ordered: a larger value is a worse situation.
type ThreatLevel int

const (
	ThreatNone ThreatLevel = iota
	ThreatLow
	ThreatModerate
	ThreatHigh
	ThreatCritical
)

var threatNames = [...]string{"NONE", "LOW", "MODERATE", "HIGH", "CRITICAL"}

func (t ThreatLevel) Valid() bool { return t >= ThreatNone && t <= ThreatCritical }

func (t ThreatLevel) String() string {
	if !t.Valid() {
		return fmt.Sprintf("ThreatLevel(%d)", int(t))
	}
	return threatNames[t]
}

func (t ThreatLevel) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

func (t *ThreatLevel) UnmarshalText(b []byte) error {
	v, ok := ParseThreatLevel(string(b))
	if !ok {
		return fmt.Errorf("unknown threat level %q", b)
	}
	*t = v
	return nil
}

// Opportunity is totally ordered: a larger value is a better opening.
type Opportunity int

const (
	OpportunityNone Opportunity = iota
	OpportunityLow
	OpportunityModerate
	OpportunityHigh
	OpportunityGameEnding
)

var opportunityNames = [...]string{"NONE", "LOW", "MODERATE", "HIGH", "GAME_ENDING"}

func (o Opportunity) Valid() bool { return o >= OpportunityNone && o <= OpportunityGameEnding }

func (o Opportunity) String() string {
	if !o.Valid() {
		return fmt.Sprintf("Opportunity(%d)", int(o))
	}
	return opportunityNames[o]
}

func (o Opportunity) MarshalText() ([]byte, error) { return []byte(o.String()), nil }

func (o *Opportunity) UnmarshalText(b []byte) error {
	v, ok := ParseOpportunity(string(b))
	if !ok {
		return fmt.Errorf("unknown opportunity %q", b)
	}
	*o = v
	return nil
}

// Strategy names one of the per-report strategy scores.
type Strategy uint8

const (
	StrategyAggression Strategy = iota
	StrategyDefense
	StrategyEconomy
	StrategyTech
)

func (s Strategy) String() string {
	switch s {
	case StrategyAggression:
		return "aggression"
	case StrategyDefense:
		return "defense"
	case StrategyEconomy:
		return "economy"
	case StrategyTech:
		return "tech"
	default:
		return fmt.Sprintf("Strategy(%d)", uint8(s))
	}
}

func (s Strategy) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Strategy) UnmarshalText(b []byte) error {
	v, ok := ParseStrategy(string(b))
	if !ok {
		return fmt.Errorf("unknown strategy %q", b)
	}
	*s = v
	return nil
}

type Economy struct {
	Minerals   int `json:"minerals"`
	Gas        int `json:"gas"`
	SupplyUsed int `json:"supplyUsed"`
	SupplyCap  int `json:"supplyCap"`
}

type Military struct {
	ArmySize       int                  `json:"armySize"`
	ArmyValue      float64              `json:"armyValue"`
	EnemyArmyValue float64              `json:"enemyArmyValue"`
	StrategyScores map[Strategy]float64 `json:"strategyScores"`
}

// SituationReport is the scorer's periodic read of the battlefield.
// ThreatRatio, Advantage and Exposure are the raw inputs behind the levels.
type SituationReport struct {
	Timestamp   float64     `json:"timestamp"`
	Threat      ThreatLevel `json:"threat"`
	Opportunity Opportunity `json:"opportunity"`
	Economy     Economy     `json:"economy"`
	Military    Military    `json:"military"`

	ThreatRatio float64 `json:"threatRatio"`
	Advantage   float64 `json:"advantage"`
	Exposure    int     `json:"exposure"`
}

// Valid reports whether both levels are in range.
func (r *SituationReport) Valid() bool {
	return r != nil && r.Threat.Valid() && r.Opportunity.Valid()
}

// Score returns a strategy score, 0 when absent.
func (r *SituationReport) Score(s Strategy) float64 {
	if r == nil {
		return 0
	}
	return r.Military.StrategyScores[s]
}

// ParseThreatLevel resolves a level name such as "HIGH".
func ParseThreatLevel(s string) (ThreatLevel, bool) {
	for i, n := range threatNames {
		if n == s {
			return ThreatLevel(i), true
		}
	}
	return ThreatNone, false
}

// ParseOpportunity resolves a level name such as "GAME_ENDING".
func ParseOpportunity(s string) (Opportunity, bool) {
	for i, n := range opportunityNames {
		if n == s {
			return Opportunity(i), true
		}
	}
	return OpportunityNone, false
}

// ParseStrategy resolves a score name such as "economy".
func ParseStrategy(s string) (Strategy, bool) {
	for st := StrategyAggression; st <= StrategyTech; st++ {
		if st.String() == s {
			return st, true
		}
	}
	return 0, false
}
