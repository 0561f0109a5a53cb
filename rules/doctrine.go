package rules

import "math"

// Doctrine is a high-level strategic posture. Weights are 0.0–1.0; the
// compiler maps them to concrete rule thresholds.
type Doctrine struct {
	Name            string  `yaml:"name" json:"name"`
	Rationale       string  `yaml:"rationale" json:"rationale"`
	EconomyPriority float64 `yaml:"economy_priority" json:"economy_priority"`
	Aggression      float64 `yaml:"aggression" json:"aggression"`
	DefensePriority float64 `yaml:"defense_priority" json:"defense_priority"`
	TechPriority    float64 `yaml:"tech_priority" json:"tech_priority"`
}

// DefaultDoctrine returns a balanced baseline doctrine.
func DefaultDoctrine() Doctrine {
	return Doctrine{
		Name:            "Balanced",
		Rationale:       "Default balanced strategy",
		EconomyPriority: 0.5,
		Aggression:      0.5,
		DefensePriority: 0.5,
		TechPriority:    0.5,
	}
}

// Validate clamps all weights to their valid ranges. NaN reads as 0.
func (d *Doctrine) Validate() {
	d.EconomyPriority = clamp(d.EconomyPriority, 0, 1)
	d.Aggression = clamp(d.Aggression, 0, 1)
	d.DefensePriority = clamp(d.DefensePriority, 0, 1)
	d.TechPriority = clamp(d.TechPriority, 0, 1)
}

// clampInt restricts v to [min, max].
func clampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// lerp linearly interpolates between min and max by t (0–1), returning an int.
func lerp(min, max int, t float64) int {
	return min + int(math.Round(float64(max-min)*t))
}

// lerpf linearly interpolates between min and max by t (0–1), returning a float64.
func lerpf(min, max, t float64) float64 {
	return min + (max-min)*t
}

// clamp restricts v to [min, max].
func clamp(v, min, max float64) float64 {
	if math.IsNaN(v) || v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
