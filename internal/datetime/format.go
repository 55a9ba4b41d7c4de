package datetime

import (
	"fmt"
	"time"
)

var dayNames = [...]string{"domingo", "lunes", "martes", "miércoles", "jueves", "viernes", "sábado"}

var monthNames = [...]string{
	"enero", "febrero", "marzo", "abril", "mayo", "junio",
	"julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre",
}

// DayName returns the Spanish weekday name of t in loc.
func DayName(t time.Time, loc *time.Location) string {
	return dayNames[t.In(loc).Weekday()]
}

// FormatDay renders "martes 20 de octubre".
func FormatDay(t time.Time, loc *time.Location) string {
	t = t.In(loc)
	return fmt.Sprintf("%s %d de %s", dayNames[t.Weekday()], t.Day(), monthNames[t.Month()-1])
}

// FormatLong renders "martes 20 de octubre de 2026, 09:00".
func FormatLong(t time.Time, loc *time.Location) string {
	t = t.In(loc)
	return fmt.Sprintf("%s de %d, %s", FormatDay(t, loc), t.Year(), t.Format("15:04"))
}

// FormatClock renders the 24-hour time of day.
func FormatClock(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("15:04")
}
