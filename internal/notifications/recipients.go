package notifications

import (
	"github.com/yukikurage/intake-workflow-api/internal/events"
	"github.com/yukikurage/intake-workflow-api/internal/models"
)

// Recipients returns who should hear about an event: never the actor who
// caused it, and each actor at most once.
func Recipients(e events.Event) []models.ActorRef {
	task := e.Task
	if task == nil {
		return nil
	}
	origin := models.ActorRef{ID: task.OriginActorID, Role: task.OriginRole}

	var candidates []models.ActorRef
	switch e.Type {
	case events.EventTaskCreated:
		candidates = assignees(task)
	case events.EventAssigneeAdded, events.EventAssigneeRemoved,
		events.EventTaskShared, events.EventTaskUnshared:
		candidates = []models.ActorRef{e.Subject}
	case events.EventTaskClaimed, events.EventTaskReleased:
		candidates = []models.ActorRef{origin}
	case events.EventStatusChanged:
		candidates = append([]models.ActorRef{origin}, assignees(task)...)
	case events.EventFeedbackAdded:
		candidates = append([]models.ActorRef{origin}, assignees(task)...)
		for _, s := range task.Shares {
			candidates = append(candidates, models.ActorRef{ID: s.SharedTo, Role: s.SharedToRole})
		}
	case events.EventReplyAdded:
		if idx := task.FindFeedback(e.FeedbackID); idx >= 0 {
			f := task.Feedback[idx]
			candidates = append(candidates, models.ActorRef{ID: f.AuthorID, Role: f.AuthorRole})
		}
		candidates = append(candidates, origin)
	}

	seen := make(map[string]struct{}, len(candidates))
	out := make([]models.ActorRef, 0, len(candidates))
	for _, c := range candidates {
		if c.ID == "" || c.ID == e.Actor.ID {
			continue
		}
		if _, dup := seen[c.ID]; dup {
			continue
		}
		seen[c.ID] = struct{}{}
		out = append(out, c)
	}
	return out
}

func assignees(task *models.Task) []models.ActorRef {
	out := make([]models.ActorRef, 0, len(task.Assignments))
	for _, a := range task.Assignments {
		out = append(out, models.ActorRef{ID: a.ActorID, Role: a.ActorRole})
	}
	return out
}
