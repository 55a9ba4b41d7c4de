// Package datetime turns Spanish free-text date and time expressions into
// instants and day windows in the bot's civil time zone.
package datetime

import (
	"sort"
	"strings"
	"time"
)

// DefaultHour is applied when a creation or edit request names a day but no
// time of day.
const DefaultHour = 9

// ResolvedDate is the outcome of resolving a message to a single instant.
type ResolvedDate struct {
	Instant         time.Time
	HasExplicitHour bool
	// SourceSpan is the portion of the text recognised as the date phrase.
	SourceSpan string

	source string
	spans  []span
}

// Remainder returns the resolved text with every recognised date and time
// fragment removed and whitespace collapsed.
func (r ResolvedDate) Remainder() string {
	if len(r.spans) == 0 {
		return strings.Join(strings.Fields(r.source), " ")
	}
	var b strings.Builder
	last := 0
	for _, s := range r.spans {
		if s.start < last {
			if s.end > last {
				last = s.end
			}
			continue
		}
		b.WriteString(r.source[last:s.start])
		b.WriteByte(' ')
		last = s.end
	}
	b.WriteString(r.source[last:])
	return strings.Join(strings.Fields(b.String()), " ")
}

// Window is a half-open listing range. Week is set for "esta semana" style
// queries that span more than one day.
type Window struct {
	Start time.Time
	End   time.Time
	Week  bool
}

// Parser is a general-purpose date parser consulted when none of the built-in
// rules recognise the text, or when only a time of day was recognised next
// to an unfamiliar date. Spans in the result index into the text passed in.
type Parser interface {
	Parse(text string, now time.Time) (ResolvedDate, bool)
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithFallback installs a general parser used after the built-in rules.
func WithFallback(p Parser) Option {
	return func(r *Resolver) { r.fallback = p }
}

// Resolver interprets date phrases relative to a clock in a fixed zone.
type Resolver struct {
	loc      *time.Location
	fallback Parser
}

// NewResolver creates a resolver for the given civil time zone.
func NewResolver(loc *time.Location, opts ...Option) *Resolver {
	if loc == nil {
		loc = time.UTC
	}
	r := &Resolver{loc: loc}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Location returns the resolver's civil time zone.
func (r *Resolver) Location() *time.Location { return r.loc }

// Resolve finds the event time for a creation or edit request. A phrase with
// no hour lands at DefaultHour, and a result already in the past moves one
// day forward.
func (r *Resolver) Resolve(text string, now time.Time) (ResolvedDate, bool) {
	now = now.In(r.loc)
	res, ok := r.parse(text, now)
	if !ok {
		return ResolvedDate{}, false
	}
	if !res.HasExplicitHour {
		y, m, d := res.Instant.Date()
		res.Instant = time.Date(y, m, d, DefaultHour, 0, 0, 0, r.loc)
	}
	if res.Instant.Before(now) {
		res.Instant = res.Instant.AddDate(0, 0, 1)
	}
	return res, true
}

// Window finds the listing range for a query. Tomorrow, this week and today
// are checked in that order before falling back to the whole day of any other
// recognised date.
func (r *Resolver) Window(text string, now time.Time) (Window, bool) {
	now = now.In(r.loc)
	lower := strings.ToLower(text)
	today := StartOfDay(now, r.loc)

	if _, ok := findTomorrow(lower, today); ok {
		return r.dayWindow(today.AddDate(0, 0, 1)), true
	}
	if thisWeekRe.MatchString(lower) {
		return Window{Start: today, End: EndOfDay(today.AddDate(0, 0, 7), r.loc), Week: true}, true
	}
	if todayRe.MatchString(lower) {
		return r.dayWindow(today), true
	}
	res, ok := r.parse(text, now)
	if !ok {
		return Window{}, false
	}
	return r.dayWindow(res.Instant), true
}

func (r *Resolver) dayWindow(t time.Time) Window {
	return Window{Start: StartOfDay(t, r.loc), End: EndOfDay(t, r.loc)}
}

// parse applies the built-in rules without defaults or past correction.
func (r *Resolver) parse(text string, now time.Time) (ResolvedDate, bool) {
	lower := strings.ToLower(text)
	today := StartOfDay(now, r.loc)

	if instant, timed, sp, ok := findRelative(lower, now); ok && timed {
		return r.build(text, lower, instant, true, sp), true
	} else if ok {
		day := StartOfDay(instant, r.loc)
		if c, found := findClock(lower); found && !overlaps(c.span, sp) {
			return r.build(text, lower, atClock(day, c), true, sp, c.span), true
		}
		return r.build(text, lower, day, false, sp), true
	}

	day, found := r.findDay(lower, today)
	clock, timed := findClock(lower)
	switch {
	case found && timed && !overlaps(day.span, clock.span):
		return r.build(text, lower, atClock(day.day, clock), true, day.span, clock.span), true
	case found:
		return r.build(text, lower, day.day, false, day.span), true
	case timed:
		if !hasDateHint(lower, clock.span) {
			return r.build(text, lower, atClock(today, clock), true, clock.span), true
		}
		// A date is written in a form the rules do not know. Placing the
		// event today would be silently wrong.
		res, ok := r.general(text, lower, now)
		if !ok {
			return ResolvedDate{}, false
		}
		if !res.HasExplicitHour {
			res.Instant = atClock(StartOfDay(res.Instant, r.loc), clock)
			res.HasExplicitHour = true
			res.spans = append(res.spans, clock.span)
			res = r.build(text, lower, res.Instant, true, res.spans...)
		}
		return res, true
	}
	return r.general(text, lower, now)
}

// general hands the text to the fallback parser. Spans it reports index
// into the same source build uses.
func (r *Resolver) general(text, lower string, now time.Time) (ResolvedDate, bool) {
	if r.fallback == nil {
		return ResolvedDate{}, false
	}
	res, ok := r.fallback.Parse(sourceText(text, lower), now)
	if !ok {
		return ResolvedDate{}, false
	}
	res.Instant = res.Instant.In(r.loc)
	return res, true
}

// hasDateHint reports date-like wording outside the clock expression.
func hasDateHint(lower string, clock span) bool {
	for _, m := range dateHintRe.FindAllStringIndex(lower, -1) {
		if !overlaps(span{m[0], m[1]}, clock) {
			return true
		}
	}
	return false
}

// sourceText is the text spans index into: the original unless lowercasing
// changed its byte length.
func sourceText(text, lower string) string {
	if len(lower) != len(text) {
		return lower
	}
	return text
}

func (r *Resolver) findDay(lower string, today time.Time) (dayHit, bool) {
	if hit, ok := findToday(lower, today); ok {
		return hit, true
	}
	if hit, ok := findDayAfter(lower, today); ok {
		return hit, true
	}
	if hit, ok := findTomorrow(lower, today); ok {
		return hit, true
	}
	for _, find := range []func(string, time.Time) (dayHit, bool){findISODate, findLongDate, findShortDate, findWeekday} {
		if hit, ok := find(lower, today); ok {
			return hit, true
		}
	}
	return dayHit{}, false
}

// build assembles a result. Spans index into the lowercased text; when
// lowercasing changed byte lengths the lowercased text is used as the source.
func (r *Resolver) build(text, lower string, instant time.Time, explicit bool, spans ...span) ResolvedDate {
	source := sourceText(text, lower)
	spans = append([]span(nil), spans...)
	sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })

	parts := make([]string, 0, len(spans))
	for _, s := range spans {
		parts = append(parts, strings.TrimSpace(source[s.start:s.end]))
	}
	return ResolvedDate{
		Instant:         instant.In(r.loc),
		HasExplicitHour: explicit,
		SourceSpan:      strings.Join(parts, " "),
		source:          source,
		spans:           spans,
	}
}

func atClock(day time.Time, c clockHit) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, c.hour, c.minute, 0, 0, day.Location())
}

func overlaps(a, b span) bool {
	return a.start < b.end && b.start < a.end
}

// StartOfDay returns midnight of t's calendar day in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// EndOfDay returns the last millisecond of t's calendar day in loc.
func EndOfDay(t time.Time, loc *time.Location) time.Time {
	return StartOfDay(t, loc).AddDate(0, 0, 1).Add(-time.Millisecond)
}
