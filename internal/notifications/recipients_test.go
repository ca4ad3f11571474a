package notifications

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/yukikurage/intake-workflow-api/internal/events"
	"github.com/yukikurage/intake-workflow-api/internal/models"
)

func sampleTask() *models.Task {
	return &models.Task{
		ID:            "t1",
		OriginActorID: "admin-1",
		OriginRole:    models.RoleAdmin,
		Assignments: []models.Assignment{
			{ActorID: "tl-1", ActorRole: models.RoleTeamLead},
			{ActorID: "emp-1", ActorRole: models.RoleEmployee},
		},
		Shares: []models.ShareEdge{
			{SharedBy: "tl-1", SharedTo: "tl-2", SharedToRole: models.RoleTeamLead},
		},
		Feedback: []models.FeedbackEntry{
			{ID: "f1", AuthorID: "emp-1", AuthorRole: models.RoleEmployee},
		},
	}
}

func ids(refs []models.ActorRef) []string {
	out := make([]string, len(refs))
	for i, r := range refs {
		out[i] = r.ID
	}
	return out
}

func TestRecipients(t *testing.T) {
	tl := models.ActorRef{ID: "tl-1", Role: models.RoleTeamLead}
	admin := models.ActorRef{ID: "admin-1", Role: models.RoleAdmin}
	emp := models.ActorRef{ID: "emp-1", Role: models.RoleEmployee}

	tests := []struct {
		name  string
		event events.Event
		want  []string
	}{
		{"created notifies assignees", events.Event{Type: events.EventTaskCreated, Actor: admin}, []string{"tl-1", "emp-1"}},
		{"added notifies subject", events.Event{Type: events.EventAssigneeAdded, Actor: tl, Subject: emp}, []string{"emp-1"}},
		{"removed notifies subject", events.Event{Type: events.EventAssigneeRemoved, Actor: tl, Subject: emp}, []string{"emp-1"}},
		{"self removal notifies nobody", events.Event{Type: events.EventAssigneeRemoved, Actor: emp, Subject: emp}, []string{}},
		{"shared notifies target", events.Event{Type: events.EventTaskShared, Actor: tl, Subject: models.ActorRef{ID: "tl-2"}}, []string{"tl-2"}},
		{"claim notifies origin", events.Event{Type: events.EventTaskClaimed, Actor: emp}, []string{"admin-1"}},
		{"release notifies origin", events.Event{Type: events.EventTaskReleased, Actor: emp}, []string{"admin-1"}},
		{"status excludes the actor", events.Event{Type: events.EventStatusChanged, Actor: tl}, []string{"admin-1", "emp-1"}},
		{"feedback reaches share targets", events.Event{Type: events.EventFeedbackAdded, Actor: emp}, []string{"admin-1", "tl-1", "tl-2"}},
		{"reply reaches feedback author and origin", events.Event{Type: events.EventReplyAdded, Actor: tl, FeedbackID: "f1"}, []string{"emp-1", "admin-1"}},
		{"deleted feedback notifies nobody", events.Event{Type: events.EventFeedbackDeleted, Actor: emp}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.event.Task = sampleTask()
			assert.Equal(t, tt.want, ids(Recipients(tt.event)))
		})
	}
}

func TestRecipients_OriginAlsoAssigneeOnce(t *testing.T) {
	task := sampleTask()
	task.Assignments = append(task.Assignments, models.Assignment{ActorID: "admin-1", ActorRole: models.RoleAdmin})

	got := Recipients(events.Event{
		Type:  events.EventStatusChanged,
		Actor: models.ActorRef{ID: "mgr-1", Role: models.RoleManager},
		Task:  task,
	})
	assert.Equal(t, []string{"admin-1", "tl-1", "emp-1"}, ids(got))
}

func TestRecipients_NoSnapshot(t *testing.T) {
	assert.Empty(t, Recipients(events.Event{Type: events.EventStatusChanged}))
}
