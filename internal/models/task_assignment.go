package models

import "time"

// Assignment is a responsibility edge from one actor to a task.
type Assignment struct {
	ActorID     string     `json:"actor_id"`
	ActorRole   Role       `json:"actor_role"`
	Status      Status     `json:"status"`
	AssignedBy  string     `json:"assigned_by"`
	AssignedAt  time.Time  `json:"assigned_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// ShareEdge grants visibility of a task without responsibility.
type ShareEdge struct {
	SharedBy     string    `json:"shared_by"`
	SharedByRole Role      `json:"shared_by_role"`
	SharedTo     string    `json:"shared_to"`
	SharedToRole Role      `json:"shared_to_role"`
	SharedAt     time.Time `json:"shared_at"`
}

// Claim records the exclusive pickup of an offered task.
type Claim struct {
	ClaimedBy     string    `json:"claimed_by"`
	ClaimedByRole Role      `json:"claimed_by_role"`
	ClaimedAt     time.Time `json:"claimed_at"`
}
