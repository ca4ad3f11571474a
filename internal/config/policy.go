package config

import (
	"bytes"
	"fmt"
	"os"

	"github.com/yukikurage/intake-workflow-api/internal/models"
	"gopkg.in/yaml.v3"
)

const defaultPolicy = `# Role policy for task routing.
assignment_targets:
  admin: [manager, team_lead, employee]
  manager: [team_lead]
  team_lead: [employee, team_lead]
  employee: [employee]

share_targets:
  admin: [admin, manager, team_lead, employee]
  manager: [admin, manager, team_lead, employee]
  team_lead: [admin, manager, team_lead, employee]
  employee: [admin, manager, team_lead, employee]

vocabularies:
  admin: [pending, in_progress, completed, approved, rejected]
  manager: [pending, in_progress, completed, approved, rejected]
  team_lead: [pending, in_progress, completed, approved, rejected]
  employee: [pending, in_progress, completed, rejected, signed, not_available, not_interested, reschedule]

terminal: [completed, approved, rejected]

rank:
  admin: 3
  manager: 2
  team_lead: 1
  employee: 0
`

// DefaultPolicy returns the built-in role policy.
func DefaultPolicy() *models.RolePolicy {
	p, err := PolicyFromYAML([]byte(defaultPolicy))
	if err != nil {
		panic(fmt.Sprintf("default policy: %v", err))
	}
	return p
}

// DefaultPolicyYAML returns the built-in policy document.
func DefaultPolicyYAML() string {
	return defaultPolicy
}

// LoadPolicy reads a policy file, or returns the default when path is empty.
func LoadPolicy(path string) (*models.RolePolicy, error) {
	if path == "" {
		return DefaultPolicy(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy: %w", err)
	}
	p, err := PolicyFromYAML(data)
	if err != nil {
		return nil, fmt.Errorf("policy %s: %w", path, err)
	}
	return p, nil
}

// PolicyFromYAML decodes and validates a policy document.
func PolicyFromYAML(data []byte) (*models.RolePolicy, error) {
	var p models.RolePolicy
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("decode policy: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid policy: %w", err)
	}
	return &p, nil
}
