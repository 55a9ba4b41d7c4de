// Package notify runs the two periodic jobs: look-ahead reminders and the
// morning digest.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"

	"github.com/user/agendabot/internal/datetime"
	"github.com/user/agendabot/internal/reply"
	"github.com/user/agendabot/internal/types"
)

// DefaultLookAhead is the reminder window scanned on every tick.
const DefaultLookAhead = 60 * time.Minute

// Recipients decides who hears about an event. FixedRecipient sends
// everything to one address.
type Recipients interface {
	ForEvent(ev types.EventRef) []types.SenderKey
	ForDigest() []types.SenderKey
}

// FixedRecipient routes every notification to a single sender key.
type FixedRecipient types.SenderKey

func (r FixedRecipient) ForEvent(types.EventRef) []types.SenderKey { return r.list() }
func (r FixedRecipient) ForDigest() []types.SenderKey              { return r.list() }

func (r FixedRecipient) list() []types.SenderKey {
	if r == "" {
		return nil
	}
	return []types.SenderKey{types.SenderKey(r)}
}

// Option configures an Engine.
type Option func(*Engine)

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithLookAhead(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.lookAhead = d
		}
	}
}

// WithNotifiedSet shares dedup state between engines.
func WithNotifiedSet(s *NotifiedSet) Option {
	return func(e *Engine) { e.notified = s }
}

// Engine sends reminders and digests. It is safe for concurrent ticks.
type Engine struct {
	cal        types.Calendar
	sender     types.Sender
	recipients Recipients
	loc        *time.Location
	now        func() time.Time
	lookAhead  time.Duration
	notified   *NotifiedSet
}

func New(cal types.Calendar, sender types.Sender, recipients Recipients, loc *time.Location, opts ...Option) *Engine {
	if loc == nil {
		loc = time.UTC
	}
	e := &Engine{
		cal:        cal,
		sender:     sender,
		recipients: recipients,
		loc:        loc,
		now:        time.Now,
		lookAhead:  DefaultLookAhead,
	}
	for _, o := range opts {
		o(e)
	}
	if e.notified == nil {
		e.notified = NewNotifiedSet()
	}
	return e
}

// Notified exposes the dedup state.
func (e *Engine) Notified() *NotifiedSet { return e.notified }

// Remind alerts about events starting within the look-ahead window that
// have not been alerted yet. It returns the number of messages sent.
func (e *Engine) Remind(ctx context.Context) (int, error) {
	now := e.now().In(e.loc)
	// Entries outlive the start by one window so a calendar that still
	// returns in-progress events cannot re-alert them.
	if n := e.notified.Evict(now.Add(-e.lookAhead)); n > 0 {
		slog.Debug("notified entries evicted", "count", n)
	}

	events, err := e.cal.List(ctx, now, now.Add(e.lookAhead))
	if err != nil {
		return 0, fmt.Errorf("list upcoming events: %w", err)
	}

	limit := int(e.lookAhead / time.Minute)
	sent := 0
	for _, ev := range events {
		if ev.Start.Before(now) {
			continue
		}
		if diff := int(ev.Start.Sub(now) / time.Minute); diff > limit {
			continue
		}
		if !e.notified.TryMark(ev.ID, ev.Start) {
			continue
		}
		text := reply.Reminder(ev, e.dayWord(ev.Start, now), e.loc, describe(ev.Description))
		for _, to := range e.recipients.ForEvent(ev) {
			if err := e.sender.Send(ctx, to, text); err != nil {
				slog.Error("reminder send failed", "event_id", ev.ID, "recipient", string(to), "error", err)
				continue
			}
			sent++
		}
		slog.Info("reminder sent", "event_id", ev.ID, "label", ev.Label, "start", ev.Start)
	}
	return sent, nil
}

// Digest sends today's agenda. It does not touch the notified set.
func (e *Engine) Digest(ctx context.Context) (int, error) {
	now := e.now()
	events, err := e.cal.List(ctx, datetime.StartOfDay(now, e.loc), datetime.EndOfDay(now, e.loc))
	if err != nil {
		return 0, fmt.Errorf("list today's events: %w", err)
	}

	text := reply.DigestEmpty
	if len(events) > 0 {
		text = reply.Digest(events, e.loc)
	}
	sent := 0
	for _, to := range e.recipients.ForDigest() {
		if err := e.sender.Send(ctx, to, text); err != nil {
			slog.Error("digest send failed", "recipient", string(to), "error", err)
			continue
		}
		sent++
	}
	slog.Info("digest sent", "events", len(events), "recipients", sent)
	return sent, nil
}

func (e *Engine) dayWord(start, now time.Time) string {
	if datetime.StartOfDay(start, e.loc).Equal(datetime.StartOfDay(now, e.loc)) {
		return "hoy"
	}
	return "mañana"
}

// describe renders an event description for chat. Google Calendar stores
// rich descriptions as HTML.
func describe(desc string) string {
	desc = strings.TrimSpace(desc)
	if !strings.Contains(desc, "<") {
		return desc
	}
	md, err := htmltomarkdown.ConvertString(desc)
	if err != nil {
		slog.Debug("description conversion failed", "error", err)
		return desc
	}
	// chat markup uses single asterisks for bold
	return strings.TrimSpace(strings.ReplaceAll(md, "**", "*"))
}
