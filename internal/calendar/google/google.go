// Package google implements the calendar backend on the Google Calendar v3 API.
package google

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/user/agendabot/internal/types"
)

// Name is shown to users in creation confirmations.
const Name = "Google Calendar"

// Calendar reads and writes events of one Google calendar.
type Calendar struct {
	svc        *calendar.Service
	calendarID string
	loc        *time.Location
}

// CredentialOptions picks inline JSON credentials over a credentials file.
// With neither, the client falls back to application default credentials.
func CredentialOptions(credentialsJSON, credentialsFile string) []option.ClientOption {
	opts := []option.ClientOption{option.WithScopes(calendar.CalendarScope)}
	switch {
	case credentialsJSON != "":
		opts = append(opts, option.WithCredentialsJSON([]byte(credentialsJSON)))
	case credentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	return opts
}

// New connects to the Calendar API. All-day events are placed at midnight in loc.
func New(ctx context.Context, calendarID string, loc *time.Location, opts ...option.ClientOption) (*Calendar, error) {
	svc, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create calendar service: %w", err)
	}
	if calendarID == "" {
		calendarID = "primary"
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Calendar{svc: svc, calendarID: calendarID, loc: loc}, nil
}

// List returns single occurrences starting in [start, end], ordered by start.
func (c *Calendar) List(ctx context.Context, start, end time.Time) ([]types.EventRef, error) {
	var out []types.EventRef
	call := c.svc.Events.List(c.calendarID).
		TimeMin(start.Format(time.RFC3339)).
		TimeMax(end.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime")
	err := call.Pages(ctx, func(page *calendar.Events) error {
		for _, item := range page.Items {
			if item.Status == "cancelled" {
				continue
			}
			ref, err := c.toRef(item)
			if err != nil {
				return err
			}
			out = append(out, ref)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return out, nil
}

func (c *Calendar) Insert(ctx context.Context, label string, start, end time.Time) (types.EventRef, error) {
	ev := &calendar.Event{
		Summary: label,
		Start:   c.dateTime(start),
		End:     c.dateTime(end),
	}
	created, err := c.svc.Events.Insert(c.calendarID, ev).Context(ctx).Do()
	if err != nil {
		return types.EventRef{}, fmt.Errorf("insert event: %w", err)
	}
	return c.toRef(created)
}

// Update patches summary, start and end, leaving other fields untouched.
func (c *Calendar) Update(ctx context.Context, id, label string, start, end time.Time) (types.EventRef, error) {
	patch := &calendar.Event{
		Summary: label,
		Start:   c.dateTime(start),
		End:     c.dateTime(end),
	}
	updated, err := c.svc.Events.Patch(c.calendarID, id, patch).Context(ctx).Do()
	if err != nil {
		return types.EventRef{}, fmt.Errorf("update event %s: %w", id, err)
	}
	return c.toRef(updated)
}

func (c *Calendar) Delete(ctx context.Context, id string) error {
	if err := c.svc.Events.Delete(c.calendarID, id).Context(ctx).Do(); err != nil {
		return fmt.Errorf("delete event %s: %w", id, err)
	}
	return nil
}

func (c *Calendar) dateTime(t time.Time) *calendar.EventDateTime {
	return &calendar.EventDateTime{DateTime: t.In(c.loc).Format(time.RFC3339)}
}

func (c *Calendar) toRef(ev *calendar.Event) (types.EventRef, error) {
	start, err := c.parseTime(ev.Start)
	if err != nil {
		return types.EventRef{}, fmt.Errorf("event %s start: %w", ev.Id, err)
	}
	end, err := c.parseTime(ev.End)
	if err != nil {
		return types.EventRef{}, fmt.Errorf("event %s end: %w", ev.Id, err)
	}
	return types.EventRef{
		ID:          ev.Id,
		Label:       ev.Summary,
		Start:       start,
		End:         end,
		Description: ev.Description,
	}, nil
}

func (c *Calendar) parseTime(dt *calendar.EventDateTime) (time.Time, error) {
	switch {
	case dt == nil:
		return time.Time{}, nil
	case dt.DateTime != "":
		t, err := time.Parse(time.RFC3339, dt.DateTime)
		if err != nil {
			return time.Time{}, err
		}
		return t.In(c.loc), nil
	case dt.Date != "":
		return time.ParseInLocation("2006-01-02", dt.Date, c.loc)
	}
	return time.Time{}, nil
}
