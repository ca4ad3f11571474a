package notifications

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/yukikurage/intake-workflow-api/internal/constants"
	"github.com/yukikurage/intake-workflow-api/internal/events"
	"github.com/yukikurage/intake-workflow-api/internal/models"
	"github.com/yukikurage/intake-workflow-api/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"
)

const (
	sinkNotifier = "notifier"
	sinkEmail    = "email"
)

// Dispatcher drains the event queue and delivers each event to its
// recipients. Delivery failures are logged and counted, never returned.
type Dispatcher struct {
	queue      *events.Queue
	notifier   Notifier
	email      EmailSink
	identities IdentityResolver

	workers     int
	concurrency int
	timeout     time.Duration
	baseURL     string
	recent      *recentSet

	delivered metric.Int64Counter
	failed    metric.Int64Counter
	skipped   metric.Int64Counter

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// Options tunes a Dispatcher. Zero values take the defaults.
type Options struct {
	Workers          int
	Concurrency      int
	RecipientTimeout time.Duration
	DedupWindow      int
	BaseURL          string
	Meter            metric.Meter
}

// NewDispatcher creates a Dispatcher reading from queue. A nil email sink
// disables email.
func NewDispatcher(queue *events.Queue, notifier Notifier, email EmailSink, identities IdentityResolver, opts Options) *Dispatcher {
	if opts.Workers < 1 {
		opts.Workers = constants.DefaultDispatchWorkers
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = constants.DefaultDispatchConcurrent
	}
	if opts.RecipientTimeout <= 0 {
		opts.RecipientTimeout = constants.DefaultRecipientTimeout
	}
	if opts.DedupWindow < 1 {
		opts.DedupWindow = constants.DefaultDedupWindow
	}
	if opts.Meter == nil {
		opts.Meter = telemetry.Meter("")
	}

	d := &Dispatcher{
		queue:       queue,
		notifier:    notifier,
		email:       email,
		identities:  identities,
		workers:     opts.Workers,
		concurrency: opts.Concurrency,
		timeout:     opts.RecipientTimeout,
		baseURL:     strings.TrimRight(opts.BaseURL, "/"),
		recent:      newRecentSet(opts.DedupWindow),
	}

	var err error
	d.delivered, err = opts.Meter.Int64Counter("dispatch.notifications.delivered",
		metric.WithDescription("Notifications handed to a sink"))
	if err != nil {
		log.Warn().Err(err).Msg("dispatch: delivered counter")
	}
	d.failed, err = opts.Meter.Int64Counter("dispatch.notifications.failed",
		metric.WithDescription("Notifications a sink failed to accept"))
	if err != nil {
		log.Warn().Err(err).Msg("dispatch: failed counter")
	}
	d.skipped, err = opts.Meter.Int64Counter("dispatch.notifications.skipped",
		metric.WithDescription("Redelivered notifications suppressed"))
	if err != nil {
		log.Warn().Err(err).Msg("dispatch: skipped counter")
	}
	return d
}

// Start launches the workers.
func (d *Dispatcher) Start(ctx context.Context) {
	ctx, d.cancel = context.WithCancel(ctx)
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			for {
				e, ok := d.queue.Next(ctx)
				if !ok {
					return
				}
				d.Handle(ctx, e)
				d.queue.Done()
			}
		}()
	}
	log.Info().Int("workers", d.workers).Int("concurrency", d.concurrency).Msg("notification dispatcher started")
}

// Flush waits until every queued event has been handled.
func (d *Dispatcher) Flush(ctx context.Context) error {
	return d.queue.Flush(ctx)
}

// Close stops accepting events, drains the queue and waits for workers.
func (d *Dispatcher) Close() {
	d.queue.Close()
	d.wg.Wait()
	if d.cancel != nil {
		d.cancel()
	}
}

// Handle delivers one event to all its recipients. Recipients are served
// concurrently up to the configured limit; each has its own timeout.
func (d *Dispatcher) Handle(ctx context.Context, e events.Event) {
	recipients := Recipients(e)
	if len(recipients) == 0 {
		return
	}

	actorName := d.resolve(ctx, e, e.Actor).DisplayName

	var g errgroup.Group
	g.SetLimit(d.concurrency)
	for _, r := range recipients {
		r := r
		g.Go(func() error {
			d.deliver(ctx, e, r, actorName)
			return nil
		})
	}
	_ = g.Wait()
}

func (d *Dispatcher) deliver(ctx context.Context, e events.Event, r models.ActorRef, actorName string) {
	identity := d.resolve(ctx, e, r)
	msg := describe(e, actorName)
	link := d.link(e.TaskID)

	// the two sinks are independent: one failing or stalling never holds the other
	var g errgroup.Group
	g.Go(func() error {
		d.send(ctx, sinkNotifier, e, r, func(ctx context.Context) error {
			return d.notifier.Notify(ctx, Notice{
				EventID:       e.ID,
				RecipientID:   r.ID,
				RecipientRole: r.Role,
				EventType:     string(e.Type),
				TaskID:        e.TaskID,
				Title:         msg.Title,
				Message:       msg.Body,
				Link:          link,
			})
		})
		return nil
	})
	if d.email != nil && identity.Email != "" {
		g.Go(func() error {
			d.send(ctx, sinkEmail, e, r, func(ctx context.Context) error {
				body, err := renderEmail(identity.DisplayName, msg, link)
				if err != nil {
					return err
				}
				return d.email.Send(ctx, Email{
					EventID:     e.ID,
					RecipientID: r.ID,
					To:          identity.Email,
					Subject:     msg.Title,
					HTMLBody:    body,
				})
			})
			return nil
		})
	}
	_ = g.Wait()
}

func (d *Dispatcher) send(ctx context.Context, sink string, e events.Event, r models.ActorRef, fn func(context.Context) error) {
	attrs := metric.WithAttributes(
		attribute.String("sink", sink),
		attribute.String("event_type", string(e.Type)),
	)

	key := e.ID + "|" + r.ID + "|" + sink
	if !d.recent.claim(key) {
		d.skipped.Add(ctx, 1, attrs)
		return
	}

	sctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	if err := fn(sctx); err != nil {
		d.recent.forget(key)
		d.failed.Add(ctx, 1, attrs)
		log.Warn().Err(err).
			Str("event_id", e.ID).
			Str("event_type", string(e.Type)).
			Str("task_id", e.TaskID).
			Str("recipient_id", r.ID).
			Str("sink", sink).
			Msg("notification delivery failed")
		return
	}
	d.delivered.Add(ctx, 1, attrs)
}

func (d *Dispatcher) resolve(ctx context.Context, e events.Event, actor models.ActorRef) Identity {
	if d.identities == nil {
		return Identity{DisplayName: actor.ID}
	}
	rctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	identity, err := d.identities.Resolve(rctx, actor)
	if err != nil {
		log.Warn().Err(err).
			Str("event_id", e.ID).
			Str("recipient_id", actor.ID).
			Msg("identity lookup failed")
		return Identity{DisplayName: actor.ID}
	}
	return identity
}

func (d *Dispatcher) link(taskID string) string {
	if d.baseURL == "" {
		return "/tasks/" + taskID
	}
	return d.baseURL + "/tasks/" + taskID
}
