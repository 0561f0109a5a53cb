package rules

import "github.com/nstehr/vimy/hivemind/model"

type ModeProposal struct {
	Mode      model.Mode
	Rule      string
	Requester string
}

type BuildProposal struct {
	Type      model.UnitType
	Rule      string
	Requester string
}

// Proposals collects what the rules asked for in one evaluation. Only the
// first (highest priority) mode proposal is kept; build proposals are kept
// in firing order so the arbitrator sees them in arrival order.
type Proposals struct {
	Mode   *ModeProposal
	Builds []BuildProposal
	Fired  []string

	current *Rule
}

func (p *Proposals) ProposeMode(m model.Mode) {
	if p.Mode != nil {
		return
	}
	p.Mode = &ModeProposal{Mode: m, Rule: p.ruleName(), Requester: p.requester()}
}

func (p *Proposals) RequestBuild(t model.UnitType) {
	p.Builds = append(p.Builds, BuildProposal{Type: t, Rule: p.ruleName(), Requester: p.requester()})
}

func (p *Proposals) ruleName() string {
	if p.current == nil {
		return ""
	}
	return p.current.Name
}

func (p *Proposals) requester() string {
	if p.current == nil {
		return ""
	}
	if p.current.Requester != "" {
		return p.current.Requester
	}
	return p.current.Name
}
