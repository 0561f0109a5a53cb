package model

import (
	"math"
	"strings"
)

// Category is the coarse kind reported by the observation collaborator.
type Category uint8

const (
	CategoryUnknown Category = iota
	Worker
	Combat
	Structure
	Flyer
)

var categoryNames = [...]string{
	CategoryUnknown: "unknown",
	Worker:          "worker",
	Combat:          "combat",
	Structure:       "structure",
	Flyer:           "flyer",
}

func (c Category) String() string {
	if int(c) < len(categoryNames) {
		return categoryNames[c]
	}
	return "unknown"
}

func (c Category) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

// UnmarshalText never fails; an unrecognized category reads as
// CategoryUnknown, like an unrecognized unit type.
func (c *Category) UnmarshalText(b []byte) error {
	s := strings.ToLower(string(b))
	*c = CategoryUnknown
	for i, n := range categoryNames {
		if n == s {
			*c = Category(i)
			break
		}
	}
	return nil
}

// UnitID is the engine's opaque unit tag.
type UnitID uint64

// Point is a map position in game units.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (p Point) DistSq(q Point) float64 {
	dx, dy := p.X-q.X, p.Y-q.Y
	return dx*dx + dy*dy
}

func (p Point) Dist(q Point) float64 { return math.Sqrt(p.DistSq(q)) }

// Centroid returns the mean of pts, or the zero point for an empty slice.
func Centroid(pts []Point) Point {
	if len(pts) == 0 {
		return Point{}
	}
	var c Point
	for _, p := range pts {
		c.X += p.X
		c.Y += p.Y
	}
	n := float64(len(pts))
	return Point{X: c.X / n, Y: c.Y / n}
}

// UnitSummary is a read-only view of one unit or structure.
type UnitSummary struct {
	ID       UnitID   `json:"id"`
	Type     UnitType `json:"type"`
	Category Category `json:"category"`
	Position Point    `json:"position"`
	Health   float64  `json:"health"` // fraction in [0,1]
	IsOurs   bool     `json:"isOurs"`
}

// Kind returns the category, preferring the type table when the type is known.
func (u UnitSummary) Kind() Category {
	if u.Type.Known() {
		return u.Type.Category()
	}
	return u.Category
}

func (u UnitSummary) IsStructure() bool { return u.Kind() == Structure }
func (u UnitSummary) IsWorker() bool    { return u.Kind() == Worker }
func (u UnitSummary) IsFlying() bool    { return u.Kind() == Flyer }

// IsCombat reports whether the unit fights. Unknown types fall back to the
// reported category: combat and flyer both count.
func (u UnitSummary) IsCombat() bool {
	if u.Type.Known() {
		return u.Type.IsCombat()
	}
	return u.Category == Combat || u.Category == Flyer
}

// Value is the army value used for threat and opportunity sums.
func (u UnitSummary) Value() float64 {
	if u.Type.Known() {
		return u.Type.Value()
	}
	if u.IsCombat() {
		return 1
	}
	return 0
}

// CanHit reports whether u can attack target.
func (u UnitSummary) CanHit(target UnitSummary) bool {
	if u.Type.Known() {
		if target.IsFlying() {
			return u.Type.HitsAir()
		}
		return u.Type.HitsGround()
	}
	return u.IsCombat() && !target.IsFlying()
}

// HealthFraction clamps Health into [0,1]; NaN reads as 0.
func (u UnitSummary) HealthFraction() float64 {
	h := u.Health
	if math.IsNaN(h) || h < 0 {
		return 0
	}
	if h > 1 {
		return 1
	}
	return h
}

// Positions extracts unit positions.
func Positions(units []UnitSummary) []Point {
	out := make([]Point, len(units))
	for i, u := range units {
		out[i] = u.Position
	}
	return out
}
