package services

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"
	"github.com/yukikurage/intake-workflow-api/internal/events"
	"github.com/yukikurage/intake-workflow-api/internal/models"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// mutation computes the next state of a freshly loaded task in place and
// returns the events the change produces. It is called once per attempt.
type mutation func(task *models.Task, now time.Time) ([]events.Event, error)

// errUnchanged signals that the mutation is a no-op: nothing is written
// and nothing is published.
var errUnchanged = errors.New("unchanged")

var errVersionMismatch = errors.New("version mismatch")

// update runs the read, modify, conditional-write loop for one task.
// Version mismatches are retried up to maxAttempts in total; business
// rule violations and store failures end the loop at once.
func (s *TaskService) update(ctx context.Context, op, taskID string, apply mutation) (*models.Task, error) {
	// in-flight writes complete or fail atomically even if the caller leaves
	ctx = context.WithoutCancel(ctx)

	var (
		result  *models.Task
		pending []events.Event
		at      time.Time
		wrote   bool
	)
	attempt := func() error {
		task, version, err := s.store.Get(ctx, taskID)
		if err != nil {
			return backoff.Permanent(storeError(err))
		}

		now := s.now()
		evts, err := apply(task, now)
		if errors.Is(err, errUnchanged) {
			result, pending = task, nil
			return nil
		}
		if err != nil {
			return backoff.Permanent(err)
		}

		task.UpdatedAt = now
		ok, _, err := s.store.CompareAndSwap(ctx, taskID, version, task)
		if err != nil {
			return backoff.Permanent(storeError(err))
		}
		if !ok {
			s.conflicts.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op)))
			log.Debug().Str("task_id", taskID).Str("op", op).Int64("version", version).Msg("version conflict, retrying")
			return errVersionMismatch
		}
		result, pending, at, wrote = task, evts, now, true
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = s.retryWait
	policy.MaxInterval = 20 * s.retryWait
	policy.MaxElapsedTime = 0
	retries := uint64(s.maxAttempts - 1)

	if err := backoff.Retry(attempt, backoff.WithMaxRetries(policy, retries)); err != nil {
		if errors.Is(err, errVersionMismatch) {
			return nil, ErrConflict
		}
		return nil, err
	}

	if wrote {
		s.countWrite(ctx, op)
		s.publish(ctx, result, at, pending)
	}
	return result, nil
}

// publish stamps events with an id, the written snapshot and the write
// time, then hands them to the publisher. Failures are logged only.
func (s *TaskService) publish(ctx context.Context, task *models.Task, at time.Time, evts []events.Event) {
	for _, e := range evts {
		e.ID = s.newID()
		e.TaskID = task.ID
		e.Task = task.Clone()
		e.OccurredAt = at
		if err := s.publisher.Publish(ctx, e); err != nil {
			log.Warn().Err(err).
				Str("task_id", task.ID).
				Str("event_type", string(e.Type)).
				Msg("failed to publish event")
		}
	}
}

func (s *TaskService) countWrite(ctx context.Context, op string) {
	s.writes.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op)))
}
