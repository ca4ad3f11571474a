package services

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/yukikurage/intake-workflow-api/internal/constants"
	"github.com/yukikurage/intake-workflow-api/internal/events"
	"github.com/yukikurage/intake-workflow-api/internal/models"
)

// AddFeedback appends a feedback entry. Feedback stays open after the task
// reaches a terminal status.
func (s *TaskService) AddFeedback(ctx context.Context, taskID string, author models.ActorRef, body string) (*models.FeedbackEntry, error) {
	body, err := s.checkFeedback(author, body)
	if err != nil {
		return nil, err
	}

	entryID := s.newID()
	task, err := s.update(ctx, "add_feedback", taskID, func(task *models.Task, now time.Time) ([]events.Event, error) {
		if !s.CanView(task, author) {
			return nil, fmt.Errorf("%w: actor cannot see this task", ErrForbidden)
		}
		task.Feedback = append(task.Feedback, models.FeedbackEntry{
			ID:         entryID,
			AuthorID:   author.ID,
			AuthorRole: author.Role,
			Body:       body,
			CreatedAt:  now,
			Replies:    []models.Reply{},
		})
		return []events.Event{{
			Type:       events.EventFeedbackAdded,
			Actor:      author,
			FeedbackID: entryID,
		}}, nil
	})
	if err != nil {
		return nil, err
	}

	entry := task.Feedback[task.FindFeedback(entryID)]
	return &entry, nil
}

// AddReply appends a reply to a feedback entry.
func (s *TaskService) AddReply(ctx context.Context, taskID, feedbackID string, author models.ActorRef, body string) (*models.Reply, error) {
	body, err := s.checkFeedback(author, body)
	if err != nil {
		return nil, err
	}

	replyID := s.newID()
	task, err := s.update(ctx, "add_reply", taskID, func(task *models.Task, now time.Time) ([]events.Event, error) {
		if !s.CanView(task, author) {
			return nil, fmt.Errorf("%w: actor cannot see this task", ErrForbidden)
		}
		idx := task.FindFeedback(feedbackID)
		if idx < 0 {
			return nil, fmt.Errorf("feedback %w", ErrNotFound)
		}
		task.Feedback[idx].Replies = append(task.Feedback[idx].Replies, models.Reply{
			ID:         replyID,
			AuthorID:   author.ID,
			AuthorRole: author.Role,
			Body:       body,
			CreatedAt:  now,
		})
		return []events.Event{{
			Type:       events.EventReplyAdded,
			Actor:      author,
			FeedbackID: feedbackID,
			ReplyID:    replyID,
		}}, nil
	})
	if err != nil {
		return nil, err
	}

	replies := task.Feedback[task.FindFeedback(feedbackID)].Replies
	reply := replies[slices.IndexFunc(replies, func(r models.Reply) bool { return r.ID == replyID })]
	return &reply, nil
}

// DeleteFeedback removes a feedback entry together with all of its
// replies, whoever wrote them. Only the entry's author may delete it.
func (s *TaskService) DeleteFeedback(ctx context.Context, taskID, feedbackID string, requester models.ActorRef) error {
	if err := validateActor(requester); err != nil {
		return err
	}

	_, err := s.update(ctx, "delete_feedback", taskID, func(task *models.Task, _ time.Time) ([]events.Event, error) {
		idx := task.FindFeedback(feedbackID)
		if idx < 0 {
			return nil, fmt.Errorf("feedback %w", ErrNotFound)
		}
		if task.Feedback[idx].AuthorID != requester.ID {
			return nil, fmt.Errorf("%w: only the author can delete feedback", ErrForbidden)
		}
		task.Feedback = slices.Delete(task.Feedback, idx, idx+1)
		return []events.Event{{
			Type:       events.EventFeedbackDeleted,
			Actor:      requester,
			FeedbackID: feedbackID,
		}}, nil
	})
	return err
}

func (s *TaskService) checkFeedback(author models.ActorRef, body string) (string, error) {
	if err := validateActor(author); err != nil {
		return "", err
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return "", invalidInput("feedback body is required")
	}
	if utf8.RuneCountInString(body) > constants.MaxFeedbackBodyLength {
		return "", invalidInput("feedback body exceeds %d characters", constants.MaxFeedbackBodyLength)
	}
	return body, nil
}
