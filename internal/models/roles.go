package models

// Role is the organisational level of an actor. The same values name the
// tiers that can report a status on a task.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleManager  Role = "manager"
	RoleTeamLead Role = "team_lead"
	RoleEmployee Role = "employee"
)

// AllRoles lists every known role, highest rank first.
var AllRoles = []Role{RoleAdmin, RoleManager, RoleTeamLead, RoleEmployee}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleTeamLead, RoleEmployee:
		return true
	}
	return false
}

// Status is a reported or derived task status.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusApproved   Status = "approved"
	StatusRejected   Status = "rejected"

	// Employee outcome vocabulary
	StatusSigned        Status = "signed"
	StatusNotAvailable  Status = "not_available"
	StatusNotInterested Status = "not_interested"
	StatusReschedule    Status = "reschedule"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusApproved, StatusRejected,
		StatusSigned, StatusNotAvailable, StatusNotInterested, StatusReschedule:
		return true
	}
	return false
}

// TaskKind distinguishes the task-like entities routed through the engine.
type TaskKind string

const (
	TaskKindForm      TaskKind = "form"
	TaskKindBroadcast TaskKind = "broadcast"
	TaskKindSubtask   TaskKind = "subtask"
	TaskKindShared    TaskKind = "shared"
)

// Valid reports whether k is a known task kind.
func (k TaskKind) Valid() bool {
	switch k {
	case TaskKindForm, TaskKindBroadcast, TaskKindSubtask, TaskKindShared:
		return true
	}
	return false
}

// ActorRef identifies an actor acting in a given role.
type ActorRef struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
}
