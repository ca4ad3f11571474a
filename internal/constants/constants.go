package constants

import "time"

// Session and request context keys
const (
	SessionCookieName   = "intake_session"
	ContextKeyActorID   = "actor_id"
	ContextKeyActorRole = "actor_role"
	ContextKeyTask      = "task"
)

// Pagination
const (
	MinPageSize     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Engine defaults
const (
	DefaultWriteMaxAttempts   = 3
	DefaultDispatchWorkers    = 2
	DefaultDispatchConcurrent = 8
	DefaultRecipientTimeout   = 10 * time.Second
	DefaultDedupWindow        = 4096
)

// Field limits
const (
	MaxFeedbackBodyLength = 4000
	MaxAssigneesPerCall   = 100
)
