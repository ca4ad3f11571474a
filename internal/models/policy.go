package models

import (
	"fmt"
	"slices"
)

// RolePolicy holds the role-compatibility tables and status vocabularies
// the engine enforces.
type RolePolicy struct {
	AssignmentTargets map[Role][]Role   `yaml:"assignment_targets"`
	ShareTargets      map[Role][]Role   `yaml:"share_targets"`
	Vocabularies      map[Role][]Status `yaml:"vocabularies"`
	Terminal          []Status          `yaml:"terminal"`
	Rank              map[Role]int      `yaml:"rank"`
}

// CanAssign reports whether an actor in role from may assign work to role to.
func (p *RolePolicy) CanAssign(from, to Role) bool {
	return slices.Contains(p.AssignmentTargets[from], to)
}

// CanShare reports whether an actor in role from may share a task with role to.
func (p *RolePolicy) CanShare(from, to Role) bool {
	return slices.Contains(p.ShareTargets[from], to)
}

// IsLegal reports whether status belongs to the vocabulary of tier.
func (p *RolePolicy) IsLegal(tier Role, status Status) bool {
	return slices.Contains(p.Vocabularies[tier], status)
}

// IsTerminal reports whether an overall status closes the task.
func (p *RolePolicy) IsTerminal(status Status) bool {
	return slices.Contains(p.Terminal, status)
}

// Outranks reports whether role a is strictly superior to role b.
func (p *RolePolicy) Outranks(a, b Role) bool {
	ra, okA := p.Rank[a]
	rb, okB := p.Rank[b]
	return okA && okB && ra > rb
}

// Validate checks the policy for unknown roles and missing vocabulary.
func (p *RolePolicy) Validate() error {
	checkTargets := func(section string, table map[Role][]Role) error {
		for from, targets := range table {
			if !from.Valid() {
				return fmt.Errorf("%s: unknown role %q", section, from)
			}
			for _, to := range targets {
				if !to.Valid() {
					return fmt.Errorf("%s.%s: unknown target role %q", section, from, to)
				}
			}
		}
		return nil
	}
	if len(p.AssignmentTargets) == 0 {
		return fmt.Errorf("assignment_targets is required")
	}
	if err := checkTargets("assignment_targets", p.AssignmentTargets); err != nil {
		return err
	}
	if err := checkTargets("share_targets", p.ShareTargets); err != nil {
		return err
	}
	for _, role := range AllRoles {
		vocab := p.Vocabularies[role]
		if len(vocab) == 0 {
			return fmt.Errorf("vocabularies.%s is required", role)
		}
		if !slices.Contains(vocab, StatusPending) {
			return fmt.Errorf("vocabularies.%s must include %q", role, StatusPending)
		}
		if _, ok := p.Rank[role]; !ok {
			return fmt.Errorf("rank.%s is required", role)
		}
	}
	for tier, vocab := range p.Vocabularies {
		if !tier.Valid() {
			return fmt.Errorf("vocabularies: unknown tier %q", tier)
		}
		for _, status := range vocab {
			if !status.Valid() {
				return fmt.Errorf("vocabularies.%s: unknown status %q", tier, status)
			}
		}
	}
	if len(p.Terminal) == 0 {
		return fmt.Errorf("terminal is required")
	}
	for _, status := range p.Terminal {
		if !status.Valid() {
			return fmt.Errorf("terminal: unknown status %q", status)
		}
		if status == StatusPending {
			return fmt.Errorf("terminal must not include %q", StatusPending)
		}
		if !p.reportable(status) {
			return fmt.Errorf("terminal: %q is not legal for any reporting tier", status)
		}
	}
	return nil
}

// reportable reports whether some tier feeding the overall status may
// report status.
func (p *RolePolicy) reportable(status Status) bool {
	for _, tier := range []Role{RoleAdmin, RoleTeamLead, RoleManager} {
		if p.IsLegal(tier, status) {
			return true
		}
	}
	return false
}
