package datetime

import (
	"strings"
	"time"

	dps "github.com/markusmobius/go-dateparser"
)

// DateParser adapts go-dateparser as a fallback for phrasings the built-in
// rules do not cover. It searches the message for date fragments, so the
// rest of the text survives as the event label.
type DateParser struct {
	loc *time.Location
}

// NewDateParser returns a Spanish-language fallback parser.
func NewDateParser(loc *time.Location) *DateParser {
	if loc == nil {
		loc = time.UTC
	}
	return &DateParser{loc: loc}
}

// Parse implements Parser. The first fragment with a date sets the instant;
// every fragment found is reported as a span.
func (p *DateParser) Parse(text string, now time.Time) (ResolvedDate, bool) {
	if strings.TrimSpace(text) == "" {
		return ResolvedDate{}, false
	}
	cfg := &dps.Configuration{
		Languages:          []string{"es"},
		CurrentTime:        now.In(p.loc),
		DefaultTimezone:    p.loc,
		ReturnTimeAsPeriod: true,
	}
	_, found, err := dps.Search(cfg, text)
	if err != nil || len(found) == 0 {
		return ResolvedDate{}, false
	}

	res := ResolvedDate{source: text}
	var parts []string
	cursor := 0
	for _, f := range found {
		if f.Date.IsZero() {
			continue
		}
		if res.Instant.IsZero() {
			res.Instant = f.Date.Time.In(p.loc)
			res.HasExplicitHour = f.Date.Period.IsTime()
		}
		if sp, ok := locate(text, f.Text, cursor); ok {
			res.spans = append(res.spans, sp)
			parts = append(parts, text[sp.start:sp.end])
			cursor = sp.end
		}
	}
	if res.Instant.IsZero() {
		return ResolvedDate{}, false
	}
	res.SourceSpan = strings.Join(parts, " ")
	return res, true
}

// locate finds fragment in text at or after from, ignoring case when the
// byte lengths allow it.
func locate(text, fragment string, from int) (span, bool) {
	fragment = strings.TrimSpace(fragment)
	if fragment == "" {
		return span{}, false
	}
	if i := strings.Index(text[from:], fragment); i >= 0 {
		return span{from + i, from + i + len(fragment)}, true
	}
	lower, frag := strings.ToLower(text), strings.ToLower(fragment)
	if len(lower) != len(text) || len(frag) != len(fragment) {
		return span{}, false
	}
	if i := strings.Index(lower[from:], frag); i >= 0 {
		return span{from + i, from + i + len(frag)}, true
	}
	return span{}, false
}
