package model

// Action is what a directive asks a unit to do.
type Action string

const (
	ActionMove   Action = "move"
	ActionAttack Action = "attack"
	ActionBuild  Action = "build"
	ActionHold   Action = "hold"
)

// Directive is one command handed to the command-execution collaborator.
// Zero-valued fields are omitted on the wire.
type Directive struct {
	UnitID       UnitID   `json:"unitId,omitempty"`
	Action       Action   `json:"action"`
	TargetID     UnitID   `json:"targetId,omitempty"`
	Position     *Point   `json:"position,omitempty"`
	BuildingType UnitType `json:"buildingType,omitempty"`
	Reason       string   `json:"reason,omitempty"`
}
