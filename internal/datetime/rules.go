package datetime

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Patterns run against the lowercased message. Words ending in an accented
// letter get no trailing \b because RE2 word boundaries are ASCII-only.
var (
	todayRe     = regexp.MustCompile(`\bhoy\b`)
	tomorrowRe  = regexp.MustCompile(`\bma[ñn]ana\b`)
	dayAfterRe  = regexp.MustCompile(`\bpasado\s+ma[ñn]ana\b`)
	thisWeekRe  = regexp.MustCompile(`\bsemana\b`)
	weekdayRe   = regexp.MustCompile(`(?:\b(?:el|este|al|para\s+el)\s+)?(?:\b(pr[óo]ximo)\s+)?\b(lunes|martes|mi[ée]rcoles|jueves|viernes|s[áa]bado|domingo)\b(?:\s+(que\s+viene|pr[óo]ximo))?`)
	longDateRe  = regexp.MustCompile(`(?:\b(?:el|al|para\s+el)\s+)?\b(\d{1,2})\s+(?:de\s+)?(enero|febrero|marzo|abril|mayo|junio|julio|agosto|septiembre|setiembre|octubre|noviembre|diciembre)\b(?:\s+(?:(?:de|del)\s+)?(\d{4})\b)?`)
	shortDateRe = regexp.MustCompile(`(?:\b(?:el|al|para\s+el)\s+)?\b(\d{1,2})/(\d{1,2})(?:/(\d{2}|\d{4}))?\b`)
	isoDateRe   = regexp.MustCompile(`(?:\b(?:el|al|para\s+el)\s+)?\b(\d{4})-(\d{1,2})-(\d{1,2})\b`)
	relativeRe  = regexp.MustCompile(`\ben\s+(\d+|una?|uno|dos|tres|cuatro|cinco|seis|siete|ocho|nueve|diez|media)\s+(minutos|minuto|min|horas|hora|d[ií]as|d[ií]a|semanas|semana)`)
	clockRe     = regexp.MustCompile(`(\ba\s+las?\s+)?\b(\d{1,2})(?::(\d{2}))?(?:\s+y\s+(media|cuarto)\b)?(?:\s*(a\.\s?m\.|p\.\s?m\.|am\b|pm\b|hrs\b|hs\b|h\b))?(?:\s+(?:de|en|por)\s+la\s+(ma[ñn]ana|madrugada|tarde|noche))?`)
	noonRe      = regexp.MustCompile(`(?:\ba(?:l)?\s+)?\b(mediod[ií]a|medianoche)`)

	// dateHintRe spots date-like wording the rules above did not resolve.
	dateHintRe = regexp.MustCompile(`\b(?:enero|febrero|marzo|abril|mayo|junio|julio|agosto|septiembre|setiembre|octubre|noviembre|diciembre|\d{1,4}[-/.]\d{1,2}(?:[-/.]\d{1,4})?)\b`)
)

var weekdays = map[string]time.Weekday{
	"domingo":   time.Sunday,
	"lunes":     time.Monday,
	"martes":    time.Tuesday,
	"miércoles": time.Wednesday,
	"miercoles": time.Wednesday,
	"jueves":    time.Thursday,
	"viernes":   time.Friday,
	"sábado":    time.Saturday,
	"sabado":    time.Saturday,
}

var months = map[string]time.Month{
	"enero":      time.January,
	"febrero":    time.February,
	"marzo":      time.March,
	"abril":      time.April,
	"mayo":       time.May,
	"junio":      time.June,
	"julio":      time.July,
	"agosto":     time.August,
	"septiembre": time.September,
	"setiembre":  time.September,
	"octubre":    time.October,
	"noviembre":  time.November,
	"diciembre":  time.December,
}

var numberWords = map[string]int{
	"un": 1, "una": 1, "uno": 1, "dos": 2, "tres": 3, "cuatro": 4, "cinco": 5,
	"seis": 6, "siete": 7, "ocho": 8, "nueve": 9, "diez": 10,
}

type span struct {
	start, end int
}

// dayHit is a recognised calendar day, expressed as midnight in the civil zone.
type dayHit struct {
	day  time.Time
	span span
}

// clockHit is a recognised time of day.
type clockHit struct {
	hour, minute int
	span         span
}

func findToday(lower string, today time.Time) (dayHit, bool) {
	loc := todayRe.FindStringIndex(lower)
	if loc == nil {
		return dayHit{}, false
	}
	return dayHit{day: today, span: span{loc[0], loc[1]}}, true
}

// findTomorrow skips "mañana" used as a part of day ("de la mañana") and
// the "pasado mañana" form, which is a different day.
func findTomorrow(lower string, today time.Time) (dayHit, bool) {
	for _, loc := range tomorrowRe.FindAllStringIndex(lower, -1) {
		before := strings.TrimRight(lower[:loc[0]], " \t")
		if strings.HasSuffix(before, " la") || before == "la" || strings.HasSuffix(before, "pasado") {
			continue
		}
		return dayHit{day: today.AddDate(0, 0, 1), span: span{loc[0], loc[1]}}, true
	}
	return dayHit{}, false
}

func findDayAfter(lower string, today time.Time) (dayHit, bool) {
	loc := dayAfterRe.FindStringIndex(lower)
	if loc == nil {
		return dayHit{}, false
	}
	return dayHit{day: today.AddDate(0, 0, 2), span: span{loc[0], loc[1]}}, true
}

// findWeekday resolves "el martes" to the nearest such day from today on.
// "próximo"/"que viene" push a same-day match a week ahead.
func findWeekday(lower string, today time.Time) (dayHit, bool) {
	m := weekdayRe.FindStringSubmatchIndex(lower)
	if m == nil {
		return dayHit{}, false
	}
	target := weekdays[lower[m[4]:m[5]]]
	next := m[2] >= 0 || m[6] >= 0
	ahead := (int(target) - int(today.Weekday()) + 7) % 7
	if ahead == 0 && next {
		ahead = 7
	}
	return dayHit{day: today.AddDate(0, 0, ahead), span: span{m[0], m[1]}}, true
}

func findLongDate(lower string, today time.Time) (dayHit, bool) {
	for _, m := range longDateRe.FindAllStringSubmatchIndex(lower, -1) {
		day, _ := strconv.Atoi(lower[m[2]:m[3]])
		month := months[lower[m[4]:m[5]]]
		year := today.Year()
		if m[6] >= 0 {
			year, _ = strconv.Atoi(lower[m[6]:m[7]])
		}
		if d, ok := civilDate(year, month, day, today.Location()); ok {
			return dayHit{day: d, span: span{m[0], m[1]}}, true
		}
	}
	return dayHit{}, false
}

func findISODate(lower string, today time.Time) (dayHit, bool) {
	for _, m := range isoDateRe.FindAllStringSubmatchIndex(lower, -1) {
		year, _ := strconv.Atoi(lower[m[2]:m[3]])
		month, _ := strconv.Atoi(lower[m[4]:m[5]])
		day, _ := strconv.Atoi(lower[m[6]:m[7]])
		if month < 1 || month > 12 {
			continue
		}
		if d, ok := civilDate(year, time.Month(month), day, today.Location()); ok {
			return dayHit{day: d, span: span{m[0], m[1]}}, true
		}
	}
	return dayHit{}, false
}

func findShortDate(lower string, today time.Time) (dayHit, bool) {
	for _, m := range shortDateRe.FindAllStringSubmatchIndex(lower, -1) {
		day, _ := strconv.Atoi(lower[m[2]:m[3]])
		month, _ := strconv.Atoi(lower[m[4]:m[5]])
		if month < 1 || month > 12 {
			continue
		}
		year := today.Year()
		if m[6] >= 0 {
			year, _ = strconv.Atoi(lower[m[6]:m[7]])
			if year < 100 {
				year += 2000
			}
		}
		if d, ok := civilDate(year, time.Month(month), day, today.Location()); ok {
			return dayHit{day: d, span: span{m[0], m[1]}}, true
		}
	}
	return dayHit{}, false
}

// findRelative handles "en 2 horas", "en media hora", "en 3 días". The
// boolean timed reports whether the offset carries a time of day.
func findRelative(lower string, now time.Time) (instant time.Time, timed bool, sp span, ok bool) {
	m := relativeRe.FindStringSubmatchIndex(lower)
	if m == nil {
		return time.Time{}, false, span{}, false
	}
	qty := lower[m[2]:m[3]]
	unit := lower[m[4]:m[5]]
	sp = span{m[0], m[1]}

	if qty == "media" {
		if strings.HasPrefix(unit, "hora") {
			return now.Add(30 * time.Minute), true, sp, true
		}
		return time.Time{}, false, span{}, false
	}
	n, err := strconv.Atoi(qty)
	if err != nil {
		n = numberWords[qty]
	}
	switch {
	case strings.HasPrefix(unit, "min"):
		return now.Add(time.Duration(n) * time.Minute), true, sp, true
	case strings.HasPrefix(unit, "hora"):
		return now.Add(time.Duration(n) * time.Hour), true, sp, true
	case strings.HasPrefix(unit, "semana"):
		return now.AddDate(0, 0, 7*n), false, sp, true
	default:
		return now.AddDate(0, 0, n), false, sp, true
	}
}

// findClock returns the first valid time-of-day expression. A bare number
// only counts when it is introduced by "a la(s)", has minutes ("10:30",
// "10 y media"), or carries a meridiem marker, so day numbers in
// "10 de noviembre" are ignored.
func findClock(lower string) (clockHit, bool) {
	for _, m := range clockRe.FindAllStringSubmatchIndex(lower, -1) {
		hasPrefix := m[2] >= 0
		hasMinutes := m[6] >= 0
		hasFraction := m[8] >= 0
		hasMarker := m[10] >= 0
		hasPeriod := m[12] >= 0
		if !hasPrefix && !hasMinutes && !hasFraction && !hasMarker && !hasPeriod {
			continue
		}
		if hasMinutes && hasFraction {
			continue
		}
		hour, _ := strconv.Atoi(lower[m[4]:m[5]])
		minute := 0
		switch {
		case hasMinutes:
			minute, _ = strconv.Atoi(lower[m[6]:m[7]])
		case hasFraction && lower[m[8]:m[9]] == "media":
			minute = 30
		case hasFraction:
			minute = 15
		}

		var pm, am bool
		if hasMarker {
			marker := lower[m[10]:m[11]]
			pm = strings.HasPrefix(marker, "p")
			am = strings.HasPrefix(marker, "a")
		}
		if hasPeriod {
			switch lower[m[12]:m[13]] {
			case "tarde", "noche":
				pm = true
			default:
				am = true
			}
		}
		if (am || pm) && hour > 12 {
			continue
		}
		if pm && hour < 12 {
			hour += 12
		}
		if am && hour == 12 {
			hour = 0
		}
		if hour > 23 || minute > 59 {
			continue
		}
		return clockHit{hour: hour, minute: minute, span: span{m[0], m[1]}}, true
	}

	if m := noonRe.FindStringSubmatchIndex(lower); m != nil {
		hour := 12
		if strings.HasPrefix(lower[m[2]:m[3]], "medianoche") {
			hour = 0
		}
		return clockHit{hour: hour, span: span{m[0], m[1]}}, true
	}
	return clockHit{}, false
}

func civilDate(year int, month time.Month, day int, loc *time.Location) (time.Time, bool) {
	if day < 1 {
		return time.Time{}, false
	}
	t := time.Date(year, month, day, 0, 0, 0, 0, loc)
	if t.Month() != month || t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}
