// Package dispatch routes a classified message to its command handler and
// produces exactly one reply.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/user/agendabot/internal/datetime"
	"github.com/user/agendabot/internal/intent"
	"github.com/user/agendabot/internal/match"
	"github.com/user/agendabot/internal/reply"
	"github.com/user/agendabot/internal/types"
)

// EventDuration is the fixed length of created and rescheduled events.
const EventDuration = time.Hour

// Result is the outcome of handling one message. Err is set only when a
// calendar call failed; Reply then carries the generic failure notice.
type Result struct {
	Intent types.Intent
	Reply  string
	Err    error
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) { d.now = now }
}

// WithHorizonDays sets how far ahead delete and edit search for a match.
func WithHorizonDays(days int) Option {
	return func(d *Dispatcher) {
		if days > 0 {
			d.horizonDays = days
		}
	}
}

// WithCalendarName sets the name shown in creation confirmations.
func WithCalendarName(name string) Option {
	return func(d *Dispatcher) { d.calendarName = name }
}

// Dispatcher executes DELETE, EDIT, QUERY and CREATE commands against a
// calendar.
type Dispatcher struct {
	cal          types.Calendar
	sender       types.Sender
	resolver     *datetime.Resolver
	now          func() time.Time
	horizonDays  int
	calendarName string
}

// New creates a Dispatcher. sender may be nil when replies are only returned
// through Handle.
func New(cal types.Calendar, sender types.Sender, resolver *datetime.Resolver, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		cal:          cal,
		sender:       sender,
		resolver:     resolver,
		now:          time.Now,
		horizonDays:  365,
		calendarName: "tu calendario",
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Process handles msg and sends the single reply to its sender. Send
// failures are logged and do not change the command's outcome.
func (d *Dispatcher) Process(ctx context.Context, msg types.Message) Result {
	res := d.Handle(ctx, msg)
	if d.sender == nil {
		return res
	}
	if err := d.sender.Send(ctx, msg.Sender, res.Reply); err != nil {
		slog.Error("reply send failed", "sender", string(msg.Sender), "intent", string(res.Intent), "error", err)
	}
	return res
}

// Handle classifies msg, runs the matching command and returns the reply
// without sending it.
func (d *Dispatcher) Handle(ctx context.Context, msg types.Message) Result {
	kind := intent.Classify(msg.Text)
	slog.Info("message received", "sender", string(msg.Sender), "intent", string(kind))

	var (
		text string
		err  error
	)
	switch kind {
	case types.IntentDelete:
		text, err = d.deleteEvent(ctx, msg.Text)
	case types.IntentEdit:
		text, err = d.editEvent(ctx, msg.Text)
	case types.IntentQuery:
		text, err = d.query(ctx, msg.Text)
	default:
		text, err = d.create(ctx, msg.Text)
	}
	if err != nil {
		slog.Error("calendar operation failed", "sender", string(msg.Sender), "intent", string(kind), "error", err)
		return Result{Intent: kind, Reply: reply.Failure, Err: err}
	}
	return Result{Intent: kind, Reply: text}
}

func (d *Dispatcher) loc() *time.Location {
	return d.resolver.Location()
}

// horizon lists everything from the start of today across the search horizon.
func (d *Dispatcher) horizon(ctx context.Context) ([]types.EventRef, error) {
	start := datetime.StartOfDay(d.now(), d.loc())
	events, err := d.cal.List(ctx, start, start.AddDate(0, 0, d.horizonDays))
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

func (d *Dispatcher) deleteEvent(ctx context.Context, text string) (string, error) {
	keyword := intent.DeleteKeyword(text)
	events, err := d.horizon(ctx)
	if err != nil {
		return "", err
	}
	found, ok := match.Find(events, keyword)
	if !ok {
		return reply.NotFound(keyword), nil
	}
	if err := d.cal.Delete(ctx, found.ID); err != nil {
		return "", fmt.Errorf("delete event %s: %w", found.ID, err)
	}
	slog.Info("event deleted", "id", found.ID, "label", found.Label)
	return reply.Deleted(found.Label), nil
}

func (d *Dispatcher) editEvent(ctx context.Context, text string) (string, error) {
	// The new date is stripped before matching so "cambiar reunión mañana"
	// looks for "reunión".
	when, resolved := d.resolver.Resolve(text, d.now())
	target := text
	if resolved {
		target = when.Remainder()
	}
	keyword := intent.EditKeyword(target)
	events, err := d.horizon(ctx)
	if err != nil {
		return "", err
	}
	found, ok := match.Find(events, keyword)
	if !ok {
		return reply.NotFound(keyword), nil
	}
	if !resolved {
		return reply.NoNewDate, nil
	}
	start := when.Instant
	if _, err := d.cal.Update(ctx, found.ID, found.Label, start, start.Add(EventDuration)); err != nil {
		return "", fmt.Errorf("update event %s: %w", found.ID, err)
	}
	slog.Info("event rescheduled", "id", found.ID, "label", found.Label, "start", start)
	return reply.Updated(found.Label, start, d.loc()), nil
}

func (d *Dispatcher) query(ctx context.Context, text string) (string, error) {
	window, ok := d.resolver.Window(text, d.now())
	if !ok {
		return reply.NoQueryDate, nil
	}
	events, err := d.cal.List(ctx, window.Start, window.End)
	if err != nil {
		return "", fmt.Errorf("list events: %w", err)
	}
	if len(events) == 0 {
		return reply.NoAppointments, nil
	}
	heading := datetime.FormatDay(window.Start, d.loc())
	if window.Week {
		heading = "esta semana"
	}
	return reply.Agenda(heading, events, d.loc()), nil
}

func (d *Dispatcher) create(ctx context.Context, text string) (string, error) {
	when, ok := d.resolver.Resolve(text, d.now())
	if !ok {
		return reply.NoCreateDate, nil
	}
	label := intent.Label(when.Remainder())
	start := when.Instant
	ev, err := d.cal.Insert(ctx, label, start, start.Add(EventDuration))
	if err != nil {
		return "", fmt.Errorf("insert event: %w", err)
	}
	slog.Info("event created", "id", ev.ID, "label", label, "start", start)
	return reply.Created(label, start, d.loc(), d.calendarName), nil
}
