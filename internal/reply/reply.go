// Package reply holds the Spanish texts the bot sends back to users.
package reply

import (
	"fmt"
	"strings"
	"time"

	"github.com/user/agendabot/internal/datetime"
	"github.com/user/agendabot/internal/types"
)

const (
	NoNewDate      = "⚠️ *No detecté nueva fecha u hora.*\nEjemplo: _cambiar cita con el doctor al martes a las 9am_"
	NoQueryDate    = "❌ *No pude entender la fecha que mencionas.*\nEjemplo: _qué tengo el lunes_ o _qué tengo el 10 de noviembre_."
	NoCreateDate   = "❌ *No pude entender la fecha u hora.*\n\nEjemplo: _recordar reunión hoy a las 9am_ 📅"
	NoAppointments = "📭 *No tienes citas registradas* para esa fecha."
	Failure        = "⚠️ *No pude completar la operación en tu calendario.* Inténtalo de nuevo en unos minutos."
	DigestEmpty    = "🌞 *Buenos días!* Hoy no tienes citas programadas. ☕\nAprovecha el día 💪"

	Help = "🤖 *Asistente de agenda*\n\n" +
		"📝 _recordar reunión mañana a las 9am_\n" +
		"📅 _qué tengo hoy_ · _qué tengo esta semana_\n" +
		"✏️ _cambiar cita con el doctor al martes a las 10_\n" +
		"🗑️ _eliminar cita con el doctor_"
)

// NotFound reports that no event label contains keyword.
func NotFound(keyword string) string {
	return fmt.Sprintf("❌ *No encontré ninguna cita con el nombre:* %q", keyword)
}

// Created confirms a new event.
func Created(label string, start time.Time, loc *time.Location, calendarName string) string {
	return fmt.Sprintf("✅ *Evento agregado correctamente*\n\n📝 *%s*\n📅 %s\n✨ *Guardado en %s*",
		label, datetime.FormatLong(start, loc), calendarName)
}

// Deleted confirms a deletion using the event's stored label.
func Deleted(label string) string {
	return fmt.Sprintf("🗑️ *Cita eliminada correctamente:* %q 🗓️", label)
}

// Updated confirms a reschedule.
func Updated(label string, start time.Time, loc *time.Location) string {
	return fmt.Sprintf("✏️ *Cita actualizada correctamente*\n📅 %s\n🕒 Nueva fecha: %s", label, datetime.FormatLong(start, loc))
}

// Agenda lists events under a heading such as "martes 20 de octubre".
func Agenda(heading string, events []types.EventRef, loc *time.Location) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📅 *Citas para %s:*\n\n", heading)
	writeItems(&b, events, loc)
	fmt.Fprintf(&b, "\n✨ *Total:* %d citas", len(events))
	return b.String()
}

// Digest is the morning summary for a day with events.
func Digest(events []types.EventRef, loc *time.Location) string {
	var b strings.Builder
	b.WriteString("🌞 *Buenos días!* Hoy tienes las siguientes citas:\n\n")
	writeItems(&b, events, loc)
	b.WriteString("\n✨ ¡Que tengas un excelente día! ☀️")
	return b.String()
}

// Reminder announces an event starting soon. day is "hoy" or "mañana".
func Reminder(ev types.EventRef, day string, loc *time.Location, notes string) string {
	msg := fmt.Sprintf("⏰ *Recordatorio:* Tienes %q %s a las %s 🗓️", ev.Label, day, datetime.FormatClock(ev.Start, loc))
	if notes = strings.TrimSpace(notes); notes != "" {
		msg += "\n\n" + notes
	}
	return msg
}

func writeItems(b *strings.Builder, events []types.EventRef, loc *time.Location) {
	for i, ev := range events {
		fmt.Fprintf(b, "%d. 📝 *%s* — %s\n", i+1, ev.Label, datetime.FormatClock(ev.Start, loc))
	}
}
