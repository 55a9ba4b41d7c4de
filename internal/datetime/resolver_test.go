package datetime

import (
	"testing"
	"time"
)

var lima = time.FixedZone("UTC-05:00", -5*60*60)

// Saturday 17 October 2026, 07:00 local.
func refNow() time.Time {
	return time.Date(2026, 10, 17, 7, 0, 0, 0, lima)
}

func at(month time.Month, day, hour, minute int) time.Time {
	return time.Date(2026, month, day, hour, minute, 0, 0, lima)
}

func TestResolve(t *testing.T) {
	r := NewResolver(lima)
	tests := []struct {
		text     string
		want     time.Time
		explicit bool
	}{
		{"recordar reunión hoy a las 9am", at(10, 17, 9, 0), true},
		{"mañana a las 3 de la tarde", at(10, 18, 15, 0), true},
		{"pasado mañana", at(10, 19, 9, 0), false},
		{"cita con el doctor el martes a las 10", at(10, 20, 10, 0), true},
		{"el sábado", at(10, 17, 9, 0), false},
		{"el próximo sábado", at(10, 24, 9, 0), false},
		{"el miércoles 7:45", at(10, 21, 7, 45), true},
		{"10 de noviembre", at(11, 10, 9, 0), false},
		{"pagar luz 15/11 a las 8:30pm", at(11, 15, 20, 30), true},
		{"9 de la mañana", at(10, 17, 9, 0), true},
		{"almuerzo al mediodía", at(10, 17, 12, 0), true},
		{"en 2 horas", at(10, 17, 9, 0), true},
		{"en media hora", at(10, 17, 7, 30), true},
		{"en 3 días", at(10, 20, 9, 0), false},
		{"a las 12pm", at(10, 17, 12, 0), true},
		{"cena 5 noviembre 2026 20:00", at(11, 5, 20, 0), true},
		{"el 5 noviembre", at(11, 5, 9, 0), false},
		{"2026-11-05 10:30", at(11, 5, 10, 30), true},
		{"clase a las 10 y media", at(10, 17, 10, 30), true},
		{"a las 4 y cuarto de la tarde", at(10, 17, 16, 15), true},
	}
	for _, tt := range tests {
		got, ok := r.Resolve(tt.text, refNow())
		if !ok {
			t.Errorf("Resolve(%q): not resolved", tt.text)
			continue
		}
		if !got.Instant.Equal(tt.want) {
			t.Errorf("Resolve(%q) = %v, want %v", tt.text, got.Instant, tt.want)
		}
		if got.HasExplicitHour != tt.explicit {
			t.Errorf("Resolve(%q) explicit = %v, want %v", tt.text, got.HasExplicitHour, tt.explicit)
		}
	}
}

func TestResolvePastMovesOneDay(t *testing.T) {
	r := NewResolver(lima)

	got, ok := r.Resolve("a las 6am", refNow())
	if !ok {
		t.Fatal("expected a result")
	}
	if want := at(10, 18, 6, 0); !got.Instant.Equal(want) {
		t.Errorf("got %v, want %v", got.Instant, want)
	}

	late := time.Date(2026, 10, 17, 10, 0, 0, 0, lima)
	got, ok = r.Resolve("hoy", late)
	if !ok {
		t.Fatal("expected a result")
	}
	if want := at(10, 18, 9, 0); !got.Instant.Equal(want) {
		t.Errorf("got %v, want %v", got.Instant, want)
	}
}

func TestResolveUnrecognised(t *testing.T) {
	r := NewResolver(lima)
	for _, text := range []string{"comprar pan", "", "31 de febrero", "a las 27"} {
		if got, ok := r.Resolve(text, refNow()); ok {
			t.Errorf("Resolve(%q) = %v, want no result", text, got.Instant)
		}
	}
}

func TestResolveUnknownDateIsNotToday(t *testing.T) {
	r := NewResolver(lima)
	for _, text := range []string{"cena 5/13 a las 8pm", "cita 05.11.2026 a las 8"} {
		if got, ok := r.Resolve(text, refNow()); ok {
			t.Errorf("Resolve(%q) = %v, want no result", text, got.Instant)
		}
	}
}

func TestResolveUnknownDateUsesFallbackDay(t *testing.T) {
	stub := &stubParser{}
	r := NewResolver(lima, WithFallback(stub))

	got, ok := r.Resolve("cita 05.11.2026 a las 8", refNow())
	if !ok {
		t.Fatal("expected a result")
	}
	if stub.calls != 1 {
		t.Fatalf("fallback calls = %d, want 1", stub.calls)
	}
	if want := at(10, 19, 8, 0); !got.Instant.Equal(want) {
		t.Errorf("got %v, want %v", got.Instant, want)
	}
	if !got.HasExplicitHour {
		t.Error("clock should count as an explicit hour")
	}
}

func TestResolveConvertsReferenceToZone(t *testing.T) {
	r := NewResolver(lima)
	// 03:00 UTC on the 18th is still the 17th in UTC-5.
	now := time.Date(2026, 10, 18, 3, 0, 0, 0, time.UTC)
	got, ok := r.Resolve("a las 23:30", now)
	if !ok {
		t.Fatal("expected a result")
	}
	if want := at(10, 17, 23, 30); !got.Instant.Equal(want) {
		t.Errorf("got %v, want %v", got.Instant, want)
	}
	if got.Instant.Location() != lima {
		t.Errorf("location = %v", got.Instant.Location())
	}
}

func TestRemainder(t *testing.T) {
	r := NewResolver(lima)
	tests := []struct {
		text, want string
	}{
		{"cita con el doctor el martes a las 9am", "cita con el doctor"},
		{"recordar reunión hoy a las 9am", "recordar reunión"},
		{"Comprar torta mañana", "Comprar torta"},
		{"llamar a Ana a las 5 de la tarde", "llamar a Ana"},
		{"cena 5 noviembre 2026 20:00", "cena"},
		{"entrega el 2026-11-05", "entrega"},
		{"clase a las 10 y media", "clase"},
	}
	for _, tt := range tests {
		got, ok := r.Resolve(tt.text, refNow())
		if !ok {
			t.Fatalf("Resolve(%q): not resolved", tt.text)
		}
		if rem := got.Remainder(); rem != tt.want {
			t.Errorf("Remainder(%q) = %q, want %q", tt.text, rem, tt.want)
		}
	}
}

func TestWindow(t *testing.T) {
	r := NewResolver(lima)
	tests := []struct {
		text       string
		start, end time.Time
		week       bool
	}{
		{"qué tengo hoy", at(10, 17, 0, 0), EndOfDay(at(10, 17, 0, 0), lima), false},
		{"qué tengo mañana", at(10, 18, 0, 0), EndOfDay(at(10, 18, 0, 0), lima), false},
		{"qué tengo esta semana", at(10, 17, 0, 0), EndOfDay(at(10, 24, 0, 0), lima), true},
		{"que tengo el lunes", at(10, 19, 0, 0), EndOfDay(at(10, 19, 0, 0), lima), false},
		{"qué tengo el 10 de noviembre", at(11, 10, 0, 0), EndOfDay(at(11, 10, 0, 0), lima), false},
	}
	for _, tt := range tests {
		w, ok := r.Window(tt.text, refNow())
		if !ok {
			t.Errorf("Window(%q): not resolved", tt.text)
			continue
		}
		if !w.Start.Equal(tt.start) || !w.End.Equal(tt.end) || w.Week != tt.week {
			t.Errorf("Window(%q) = [%v, %v] week=%v, want [%v, %v] week=%v",
				tt.text, w.Start, w.End, w.Week, tt.start, tt.end, tt.week)
		}
	}
}

func TestWindowHasNoPastCorrection(t *testing.T) {
	r := NewResolver(lima)
	late := time.Date(2026, 10, 17, 23, 0, 0, 0, lima)
	w, ok := r.Window("qué tengo hoy", late)
	if !ok {
		t.Fatal("expected a window")
	}
	if !w.Start.Equal(at(10, 17, 0, 0)) {
		t.Errorf("start = %v", w.Start)
	}
}

func TestWindowUnrecognised(t *testing.T) {
	r := NewResolver(lima)
	if _, ok := r.Window("qué tengo", refNow()); ok {
		t.Error("expected no window")
	}
}

type stubParser struct {
	calls int
}

func (s *stubParser) Parse(text string, now time.Time) (ResolvedDate, bool) {
	s.calls++
	return ResolvedDate{Instant: now.Add(48 * time.Hour), source: text}, true
}

func TestFallbackOnlyWhenRulesMiss(t *testing.T) {
	stub := &stubParser{}
	r := NewResolver(lima, WithFallback(stub))

	if _, ok := r.Resolve("mañana a las 10", refNow()); !ok {
		t.Fatal("expected a result")
	}
	if stub.calls != 0 {
		t.Fatalf("fallback called %d times for a rule match", stub.calls)
	}

	got, ok := r.Resolve("la semana entrante", refNow())
	if !ok {
		t.Fatal("expected fallback result")
	}
	if stub.calls != 1 {
		t.Fatalf("fallback calls = %d, want 1", stub.calls)
	}
	if want := at(10, 19, 9, 0); !got.Instant.Equal(want) {
		t.Errorf("got %v, want %v", got.Instant, want)
	}
}
