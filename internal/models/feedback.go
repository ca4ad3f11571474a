package models

import "time"

// FeedbackEntry is a top-level comment on a task.
type FeedbackEntry struct {
	ID         string    `json:"id"`
	AuthorID   string    `json:"author_id"`
	AuthorRole Role      `json:"author_role"`
	Body       string    `json:"body"`
	CreatedAt  time.Time `json:"created_at"`
	Replies    []Reply   `json:"replies"`
}

// Reply is a nested answer to a feedback entry.
type Reply struct {
	ID         string    `json:"id"`
	AuthorID   string    `json:"author_id"`
	AuthorRole Role      `json:"author_role"`
	Body       string    `json:"body"`
	CreatedAt  time.Time `json:"created_at"`
}
