// internal/state/calendar.go
package state

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/teambition/rrule-go"

	"github.com/user/agendabot/internal/types"
)

// ErrEventNotFound is returned when an id matches no stored event.
var ErrEventNotFound = errors.New("event not found")

const (
	productID = "-//agendabot//ES"
	// occurrence ids are "<uid>#<start>" for expanded recurring events
	occurrenceSep    = "#"
	occurrenceLayout = "20060102T150405Z"
	maxOccurrences   = 5000
)

// CalendarStore keeps events in a single iCalendar file. Recurring events
// imported from other tools are expanded into single occurrences on List.
type CalendarStore struct {
	path string
	loc  *time.Location
	now  func() time.Time
	mu   sync.RWMutex
}

// NewCalendarStore creates a store backed by the .ics file at path.
func NewCalendarStore(path string, loc *time.Location) *CalendarStore {
	if loc == nil {
		loc = time.UTC
	}
	return &CalendarStore{path: path, loc: loc, now: time.Now}
}

// Path returns the file path used by this store.
func (s *CalendarStore) Path() string {
	return s.path
}

// List returns occurrences starting in [start, end], ordered by start.
func (s *CalendarStore) List(ctx context.Context, start, end time.Time) ([]types.EventRef, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	cal, err := s.load()
	if err != nil {
		return nil, err
	}

	var out []types.EventRef
	for _, ev := range cal.Events() {
		refs, err := s.occurrences(ev, start, end)
		if err != nil {
			slog.Warn("skipping unreadable event", "uid", uidOf(ev), "path", s.path, "error", err)
			continue
		}
		out = append(out, refs...)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}

// Insert stores a new single event with a fresh uid.
func (s *CalendarStore) Insert(ctx context.Context, label string, start, end time.Time) (types.EventRef, error) {
	if err := ctx.Err(); err != nil {
		return types.EventRef{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	cal, err := s.load()
	if err != nil {
		return types.EventRef{}, err
	}
	id := string(types.NewEventID())
	s.addEvent(cal, id, label, start, end)
	if err := s.save(cal); err != nil {
		return types.EventRef{}, err
	}
	return types.EventRef{ID: id, Label: label, Start: start.In(s.loc), End: end.In(s.loc)}, nil
}

// Update rewrites summary and times. Updating one occurrence of a recurring
// event excludes it from the series and stores it as a separate event.
func (s *CalendarStore) Update(ctx context.Context, id, label string, start, end time.Time) (types.EventRef, error) {
	if err := ctx.Err(); err != nil {
		return types.EventRef{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	cal, err := s.load()
	if err != nil {
		return types.EventRef{}, err
	}

	uid, occurrence, isOccurrence := splitOccurrence(id)
	ev := findEvent(cal, uid)
	if ev == nil {
		return types.EventRef{}, fmt.Errorf("update %s: %w", id, ErrEventNotFound)
	}

	newID := id
	if isOccurrence {
		ev.AddProperty(ical.ComponentPropertyExdate, occurrence.UTC().Format(occurrenceLayout))
		newID = string(types.NewEventID())
		s.addEvent(cal, newID, label, start, end)
	} else {
		ev.SetSummary(label)
		ev.SetStartAt(start)
		ev.SetEndAt(end)
		ev.SetDtStampTime(s.now())
	}
	if err := s.save(cal); err != nil {
		return types.EventRef{}, err
	}
	return types.EventRef{ID: newID, Label: label, Start: start.In(s.loc), End: end.In(s.loc)}, nil
}

// Delete removes an event, or excludes a single occurrence of a series.
func (s *CalendarStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	cal, err := s.load()
	if err != nil {
		return err
	}

	uid, occurrence, isOccurrence := splitOccurrence(id)
	ev := findEvent(cal, uid)
	if ev == nil {
		return fmt.Errorf("delete %s: %w", id, ErrEventNotFound)
	}
	if isOccurrence {
		ev.AddProperty(ical.ComponentPropertyExdate, occurrence.UTC().Format(occurrenceLayout))
	} else {
		kept := cal.Components[:0]
		for _, c := range cal.Components {
			if e, ok := c.(*ical.VEvent); ok && uidOf(e) == uid {
				continue
			}
			kept = append(kept, c)
		}
		cal.Components = kept
	}
	return s.save(cal)
}

func (s *CalendarStore) addEvent(cal *ical.Calendar, id, label string, start, end time.Time) {
	ev := cal.AddEvent(id)
	ev.SetSummary(label)
	ev.SetStartAt(start)
	ev.SetEndAt(end)
	ev.SetDtStampTime(s.now())
}

// occurrences expands one VEVENT into the occurrences starting in the window.
func (s *CalendarStore) occurrences(ev *ical.VEvent, from, to time.Time) ([]types.EventRef, error) {
	uid := uidOf(ev)
	if uid == "" {
		return nil, errors.New("missing UID")
	}
	start, err := ev.GetStartAt()
	if err != nil {
		if start, err = ev.GetAllDayStartAt(); err != nil {
			return nil, fmt.Errorf("read DTSTART: %w", err)
		}
	}
	end, err := ev.GetEndAt()
	if err != nil || end.Before(start) {
		end = start
	}
	base := types.EventRef{
		ID:          uid,
		Label:       propValue(ev, ical.ComponentPropertySummary),
		Description: propValue(ev, ical.ComponentPropertyDescription),
	}

	raw := propValue(ev, ical.ComponentPropertyRrule)
	if raw == "" {
		if start.Before(from) || start.After(to) {
			return nil, nil
		}
		base.Start, base.End = start.In(s.loc), end.In(s.loc)
		return []types.EventRef{base}, nil
	}

	rule, err := rrule.StrToRRule(raw)
	if err != nil {
		return nil, fmt.Errorf("parse RRULE %q: %w", raw, err)
	}
	rule.DTStart(start)
	var set rrule.Set
	set.RRule(rule)
	for _, p := range ev.GetProperties(ical.ComponentPropertyExdate) {
		for _, part := range strings.Split(p.Value, ",") {
			if t, err := parseICSTime(strings.TrimSpace(part), start.Location()); err == nil {
				set.ExDate(t)
			}
		}
	}

	times := set.Between(from.In(start.Location()), to.In(start.Location()), true)
	if len(times) > maxOccurrences {
		slog.Warn("recurring event truncated", "uid", uid, "cap", maxOccurrences)
		times = times[:maxOccurrences]
	}
	duration := end.Sub(start)
	out := make([]types.EventRef, 0, len(times))
	for _, t := range times {
		ref := base
		ref.ID = uid + occurrenceSep + t.UTC().Format(occurrenceLayout)
		ref.Start = t.In(s.loc)
		ref.End = t.Add(duration).In(s.loc)
		out = append(out, ref)
	}
	return out, nil
}

// load parses the calendar file. A missing file is an empty calendar.
func (s *CalendarStore) load() (*ical.Calendar, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			cal := ical.NewCalendar()
			cal.SetProductId(productID)
			return cal, nil
		}
		return nil, fmt.Errorf("read calendar file: %w", err)
	}
	cal, err := ical.ParseCalendar(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse calendar file: %w", err)
	}
	return cal, nil
}

// save writes the calendar to disk using atomic write (temp file + rename).
func (s *CalendarStore) save(cal *ical.Calendar) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create calendar dir: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, []byte(cal.Serialize()), 0o644); err != nil {
		return fmt.Errorf("write temp calendar file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename temp calendar file: %w", err)
	}
	return nil
}

func findEvent(cal *ical.Calendar, uid string) *ical.VEvent {
	for _, ev := range cal.Events() {
		if uidOf(ev) == uid {
			return ev
		}
	}
	return nil
}

func uidOf(ev *ical.VEvent) string {
	return propValue(ev, ical.ComponentPropertyUniqueId)
}

func propValue(ev *ical.VEvent, prop ical.ComponentProperty) string {
	if p := ev.GetProperty(prop); p != nil {
		return p.Value
	}
	return ""
}

func splitOccurrence(id string) (uid string, start time.Time, ok bool) {
	i := strings.LastIndex(id, occurrenceSep)
	if i < 0 {
		return id, time.Time{}, false
	}
	t, err := time.Parse(occurrenceLayout, id[i+1:])
	if err != nil {
		return id, time.Time{}, false
	}
	return id[:i], t, true
}

// parseICSTime reads EXDATE values in UTC, floating or date-only form.
func parseICSTime(v string, loc *time.Location) (time.Time, error) {
	switch {
	case v == "":
		return time.Time{}, errors.New("empty time value")
	case strings.HasSuffix(v, "Z"):
		return time.Parse(occurrenceLayout, v)
	case strings.Contains(v, "T"):
		return time.ParseInLocation("20060102T150405", v, loc)
	default:
		return time.ParseInLocation("20060102", v, loc)
	}
}
