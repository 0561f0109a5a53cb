package combat

import (
	"fmt"

	"github.com/nstehr/vimy/hivemind/model"
)

// Directives flattens the plan in execution order: retreats, recalls,
// attacks, holds. A recalled unit that also has a target attacks instead of
// moving.
func (p Plan) Directives() []model.Directive {
	out := make([]model.Directive, 0, len(p.Retreats)+len(p.Recalls)+len(p.Assignments)+len(p.Holds))

	for _, id := range p.Retreats {
		rally := p.Rally
		out = append(out, model.Directive{UnitID: id, Action: model.ActionMove, Position: &rally, Reason: "retreat"})
	}

	attacking := make(map[model.UnitID]bool, len(p.Assignments))
	for _, a := range p.Assignments {
		attacking[a.UnitID] = true
	}
	if p.Threatened != nil {
		for _, id := range p.Recalls {
			if attacking[id] {
				continue
			}
			pos := p.Threatened.Position
			out = append(out, model.Directive{
				UnitID:   id,
				Action:   model.ActionMove,
				Position: &pos,
				Reason:   fmt.Sprintf("recall to %s", p.Threatened.Type),
			})
		}
	}

	for _, a := range p.Assignments {
		out = append(out, model.Directive{
			UnitID:   a.UnitID,
			Action:   model.ActionAttack,
			TargetID: a.TargetID,
			Reason:   fmt.Sprintf("priority %.1f", a.Priority),
		})
	}

	for _, id := range p.Holds {
		out = append(out, model.Directive{UnitID: id, Action: model.ActionHold})
	}
	return out
}
