package notifications

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/yukikurage/intake-workflow-api/internal/events"
)

type message struct {
	Title string
	Body  string
}

func describe(e events.Event, actorName string) message {
	switch e.Type {
	case events.EventTaskCreated:
		return message{"New task assigned", fmt.Sprintf("%s assigned you a new task.", actorName)}
	case events.EventAssigneeAdded:
		return message{"You were added to a task", fmt.Sprintf("%s added you as an assignee.", actorName)}
	case events.EventAssigneeRemoved:
		return message{"You were removed from a task", fmt.Sprintf("%s removed your assignment.", actorName)}
	case events.EventTaskShared:
		return message{"A task was shared with you", fmt.Sprintf("%s shared a task with you.", actorName)}
	case events.EventTaskUnshared:
		return message{"A task is no longer shared with you", fmt.Sprintf("%s stopped sharing a task with you.", actorName)}
	case events.EventTaskClaimed:
		return message{"Your task was claimed", fmt.Sprintf("%s claimed your task.", actorName)}
	case events.EventTaskReleased:
		return message{"Your task is available again", fmt.Sprintf("%s released your task.", actorName)}
	case events.EventStatusChanged:
		return message{"Task status changed", fmt.Sprintf("%s changed the status from %s to %s.", actorName, e.OldStatus, e.NewStatus)}
	case events.EventFeedbackAdded:
		return message{"New feedback on a task", fmt.Sprintf("%s left feedback.", actorName)}
	case events.EventReplyAdded:
		return message{"New reply to feedback", fmt.Sprintf("%s replied to feedback.", actorName)}
	default:
		return message{"Task updated", fmt.Sprintf("%s updated a task.", actorName)}
	}
}

var emailTemplate = template.Must(template.New("email").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: sans-serif; color: #222;">
  <p>Hello {{.RecipientName}},</p>
  <p>{{.Body}}</p>
  {{if .Link}}<p><a href="{{.Link}}">Open the task</a></p>{{end}}
  <p style="color: #888; font-size: 12px;">You received this because you take part in this task.</p>
</body>
</html>
`))

type emailData struct {
	RecipientName string
	Body          string
	Link          string
}

func renderEmail(recipientName string, msg message, link string) (string, error) {
	var buf bytes.Buffer
	err := emailTemplate.Execute(&buf, emailData{
		RecipientName: recipientName,
		Body:          msg.Body,
		Link:          link,
	})
	if err != nil {
		return "", fmt.Errorf("render email: %w", err)
	}
	return buf.String(), nil
}
