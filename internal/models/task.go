package models

import (
	"maps"
	"slices"
	"strings"
	"time"
)

// Task is the unit of work routed through the engine. It is stored as one
// document; every mutation goes through a version-conditional write.
type Task struct {
	ID            string          `gorm:"type:varchar(36);primarykey" json:"id"`
	Kind          TaskKind        `gorm:"type:varchar(20);not null" json:"kind"`
	ParentID      *string         `gorm:"type:varchar(36);index" json:"parent_id,omitempty"`
	OriginRole    Role            `gorm:"type:varchar(20);not null" json:"origin_role"`
	OriginActorID string          `gorm:"type:varchar(64);not null" json:"origin_actor_id"`
	Payload       map[string]any  `gorm:"type:text;serializer:json" json:"payload"`
	Assignments   []Assignment    `gorm:"type:text;serializer:json" json:"assignments"`
	Shares        []ShareEdge     `gorm:"type:text;serializer:json" json:"shares"`
	Claimable     bool            `gorm:"not null" json:"claimable"`
	EligibleRoles []Role          `gorm:"type:text;serializer:json" json:"eligible_roles,omitempty"`
	Claim         *Claim          `gorm:"type:text;serializer:json" json:"claim,omitempty"`
	StatusReports map[Role]Status `gorm:"type:text;serializer:json" json:"status_reports"`
	OverallStatus Status          `gorm:"type:varchar(20);not null" json:"overall_status"`
	Feedback      []FeedbackEntry `gorm:"type:text;serializer:json" json:"feedback"`
	Participants  string          `gorm:"type:text" json:"-"`
	Version       int64           `gorm:"not null" json:"version"`
	CreatedAt     time.Time       `gorm:"autoCreateTime:false" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime:false" json:"updated_at"`
	CompletedAt   *time.Time      `json:"completed_at"`
}

// Clone returns a deep copy so callers can mutate it without touching
// a stored or shared instance.
func (t *Task) Clone() *Task {
	c := *t
	if t.ParentID != nil {
		id := *t.ParentID
		c.ParentID = &id
	}
	c.Payload = cloneValue(t.Payload)
	c.Assignments = slices.Clone(t.Assignments)
	for i := range c.Assignments {
		c.Assignments[i].CompletedAt = cloneTime(c.Assignments[i].CompletedAt)
	}
	c.Shares = slices.Clone(t.Shares)
	c.EligibleRoles = slices.Clone(t.EligibleRoles)
	if t.Claim != nil {
		claim := *t.Claim
		c.Claim = &claim
	}
	c.StatusReports = maps.Clone(t.StatusReports)
	c.Feedback = make([]FeedbackEntry, len(t.Feedback))
	for i, f := range t.Feedback {
		f.Replies = slices.Clone(f.Replies)
		c.Feedback[i] = f
	}
	if t.Feedback == nil {
		c.Feedback = nil
	}
	c.CompletedAt = cloneTime(t.CompletedAt)
	return &c
}

// FindAssignment returns the index of the first assignment held by actorID, or -1.
func (t *Task) FindAssignment(actorID string) int {
	return slices.IndexFunc(t.Assignments, func(a Assignment) bool {
		return a.ActorID == actorID
	})
}

// HasAssignment reports whether (actorID, role) already holds an assignment.
func (t *Task) HasAssignment(actorID string, role Role) bool {
	return slices.ContainsFunc(t.Assignments, func(a Assignment) bool {
		return a.ActorID == actorID && a.ActorRole == role
	})
}

// IsSharedWith reports whether the task has a share edge to actorID.
func (t *Task) IsSharedWith(actorID string) bool {
	return slices.ContainsFunc(t.Shares, func(s ShareEdge) bool {
		return s.SharedTo == actorID
	})
}

// FindFeedback returns the index of the feedback entry with the given id, or -1.
func (t *Task) FindFeedback(id string) int {
	return slices.IndexFunc(t.Feedback, func(f FeedbackEntry) bool {
		return f.ID == id
	})
}

// IsParticipant reports whether actorID is the origin, an assignee, a share
// target or the current claimant.
func (t *Task) IsParticipant(actorID string) bool {
	if t.Claim != nil && t.Claim.ClaimedBy == actorID {
		return true
	}
	return t.OriginActorID == actorID || t.FindAssignment(actorID) >= 0 || t.IsSharedWith(actorID)
}

// ParticipantKey renders the set of participant ids as a delimited string so
// stores can filter tasks by participant with a portable LIKE query.
func (t *Task) ParticipantKey() string {
	ids := []string{t.OriginActorID}
	for _, a := range t.Assignments {
		ids = append(ids, a.ActorID)
	}
	for _, s := range t.Shares {
		ids = append(ids, s.SharedTo)
	}
	if t.Claim != nil {
		ids = append(ids, t.Claim.ClaimedBy)
	}
	slices.Sort(ids)
	ids = slices.Compact(ids)
	return "|" + strings.Join(ids, "|") + "|"
}

// ParticipantPattern returns the LIKE pattern matching ParticipantKey for actorID.
func ParticipantPattern(actorID string) string {
	return "%|" + actorID + "|%"
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func cloneValue[T any](v T) T {
	switch x := any(v).(type) {
	case map[string]any:
		if x == nil {
			return v
		}
		out := make(map[string]any, len(x))
		for k, inner := range x {
			out[k] = cloneValue(inner)
		}
		return any(out).(T)
	case []any:
		if x == nil {
			return v
		}
		out := make([]any, len(x))
		for i, inner := range x {
			out[i] = cloneValue(inner)
		}
		return any(out).(T)
	default:
		return v
	}
}
