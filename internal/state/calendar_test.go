// internal/state/calendar_test.go
package state

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

var lima = time.FixedZone("UTC-05:00", -5*60*60)

func at(month time.Month, day, hour int) time.Time {
	return time.Date(2026, month, day, hour, 0, 0, 0, lima)
}

func newStore(t *testing.T) *CalendarStore {
	t.Helper()
	return NewCalendarStore(filepath.Join(t.TempDir(), "calendar.ics"), lima)
}

func TestCalendarStoreInsertAndList(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	second, err := s.Insert(ctx, "Dentista", at(10, 18, 15), at(10, 18, 16))
	if err != nil {
		t.Fatal(err)
	}
	first, err := s.Insert(ctx, "Reunión", at(10, 18, 9), at(10, 18, 10))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Insert(ctx, "Fuera", at(10, 25, 9), at(10, 25, 10)); err != nil {
		t.Fatal(err)
	}
	if first.ID == second.ID {
		t.Fatal("ids must be unique")
	}

	events, err := s.List(ctx, at(10, 18, 0), at(10, 18, 23))
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].Label != "Reunión" || events[1].Label != "Dentista" {
		t.Errorf("order = %q, %q", events[0].Label, events[1].Label)
	}
	if !events[0].Start.Equal(at(10, 18, 9)) || !events[0].End.Equal(at(10, 18, 10)) {
		t.Errorf("span = %v..%v", events[0].Start, events[0].End)
	}
	if events[0].Start.Location() != lima {
		t.Errorf("location = %v", events[0].Start.Location())
	}
}

func TestCalendarStoreMissingFile(t *testing.T) {
	s := newStore(t)
	events, err := s.List(context.Background(), at(10, 1, 0), at(12, 1, 0))
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 0 {
		t.Errorf("got %d events", len(events))
	}
}

func TestCalendarStoreUpdate(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	ev, _ := s.Insert(ctx, "Dentista", at(10, 18, 15), at(10, 18, 16))

	updated, err := s.Update(ctx, ev.ID, "Dentista", at(10, 20, 9), at(10, 20, 10))
	if err != nil {
		t.Fatal(err)
	}
	if updated.ID != ev.ID {
		t.Errorf("id changed: %s -> %s", ev.ID, updated.ID)
	}

	events, _ := s.List(ctx, at(10, 17, 0), at(10, 31, 0))
	if len(events) != 1 || !events[0].Start.Equal(at(10, 20, 9)) {
		t.Errorf("events = %+v", events)
	}
}

func TestCalendarStoreDelete(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	keep, _ := s.Insert(ctx, "Gimnasio", at(10, 18, 8), at(10, 18, 9))
	drop, _ := s.Insert(ctx, "Dentista", at(10, 18, 15), at(10, 18, 16))

	if err := s.Delete(ctx, drop.ID); err != nil {
		t.Fatal(err)
	}
	events, _ := s.List(ctx, at(10, 17, 0), at(10, 31, 0))
	if len(events) != 1 || events[0].ID != keep.ID {
		t.Errorf("events = %+v", events)
	}
}

func TestCalendarStoreNotFound(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	if err := s.Delete(ctx, "nope"); !errors.Is(err, ErrEventNotFound) {
		t.Errorf("Delete err = %v", err)
	}
	if _, err := s.Update(ctx, "nope", "x", at(10, 18, 8), at(10, 18, 9)); !errors.Is(err, ErrEventNotFound) {
		t.Errorf("Update err = %v", err)
	}
}

func TestCalendarStoreAtomicWrite(t *testing.T) {
	s := newStore(t)
	if _, err := s.Insert(context.Background(), "Gimnasio", at(10, 18, 8), at(10, 18, 9)); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(s.Path() + ".tmp"); !os.IsNotExist(err) {
		t.Error("temp file should not remain after write")
	}
	data, err := os.ReadFile(s.Path())
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "BEGIN:VCALENDAR") || !strings.Contains(string(data), "SUMMARY:Gimnasio") {
		t.Errorf("unexpected file content:\n%s", data)
	}
}

func TestCalendarStoreCancelledContext(t *testing.T) {
	s := newStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.Insert(ctx, "x", at(10, 18, 8), at(10, 18, 9)); err == nil {
		t.Error("expected context error")
	}
}

const weeklyICS = `BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//test//ES
BEGIN:VEVENT
UID:gym-weekly
DTSTAMP:20261001T000000Z
SUMMARY:Gimnasio
DESCRIPTION:Llevar toalla
DTSTART:20261019T130000Z
DTEND:20261019T140000Z
RRULE:FREQ=WEEKLY;COUNT=3
END:VEVENT
END:VCALENDAR
`

func writeWeekly(t *testing.T, s *CalendarStore) {
	t.Helper()
	if err := os.WriteFile(s.Path(), []byte(strings.ReplaceAll(weeklyICS, "\n", "\r\n")), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestCalendarStoreExpandsRecurrence(t *testing.T) {
	s := newStore(t)
	writeWeekly(t, s)

	events, err := s.List(context.Background(), at(10, 17, 0), at(11, 30, 0))
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 3 {
		t.Fatalf("got %d occurrences, want 3", len(events))
	}
	for i, day := range []int{19, 26} {
		if !events[i].Start.Equal(at(10, day, 8)) {
			t.Errorf("occurrence %d start = %v", i, events[i].Start)
		}
	}
	if !events[2].Start.Equal(at(11, 2, 8)) {
		t.Errorf("last occurrence = %v", events[2].Start)
	}
	if events[0].ID != "gym-weekly#20261019T130000Z" {
		t.Errorf("occurrence id = %q", events[0].ID)
	}
	if events[0].Description != "Llevar toalla" || !events[0].End.Equal(at(10, 19, 9)) {
		t.Errorf("occurrence = %+v", events[0])
	}
}

func TestCalendarStoreDeleteOccurrence(t *testing.T) {
	s := newStore(t)
	writeWeekly(t, s)
	ctx := context.Background()

	if err := s.Delete(ctx, "gym-weekly#20261026T130000Z"); err != nil {
		t.Fatal(err)
	}
	events, _ := s.List(ctx, at(10, 17, 0), at(11, 30, 0))
	if len(events) != 2 {
		t.Fatalf("got %d occurrences, want 2", len(events))
	}
	for _, ev := range events {
		if ev.Start.Equal(at(10, 26, 8)) {
			t.Error("deleted occurrence still listed")
		}
	}
}

func TestCalendarStoreMoveOccurrence(t *testing.T) {
	s := newStore(t)
	writeWeekly(t, s)
	ctx := context.Background()

	moved, err := s.Update(ctx, "gym-weekly#20261102T130000Z", "Gimnasio", at(11, 3, 9), at(11, 3, 10))
	if err != nil {
		t.Fatal(err)
	}
	if strings.HasPrefix(moved.ID, "gym-weekly") {
		t.Errorf("moved occurrence should get its own id, got %q", moved.ID)
	}
	events, _ := s.List(ctx, at(10, 31, 0), at(11, 30, 0))
	if len(events) != 1 || !events[0].Start.Equal(at(11, 3, 9)) {
		t.Errorf("events = %+v", events)
	}
}
