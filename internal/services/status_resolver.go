package services

import "github.com/yukikurage/intake-workflow-api/internal/models"

// precedence lists the tiers that feed the overall status, highest first.
// Employee reports are tracked per assignment and never take part.
var precedence = []models.Role{models.RoleAdmin, models.RoleTeamLead, models.RoleManager}

// Resolve derives the overall status from per-tier reports. The highest
// tier with a non-pending report wins regardless of when it was made.
func Resolve(reports map[models.Role]models.Status) models.Status {
	for _, tier := range precedence {
		if s, ok := reports[tier]; ok && s != "" && s != models.StatusPending {
			return s
		}
	}
	return models.StatusPending
}
