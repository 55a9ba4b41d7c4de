// Package state provides filesystem-backed storage implementations.
package state

import "github.com/user/agendabot/internal/types"

// Compile-time interface compliance checks.
var _ types.Calendar = (*CalendarStore)(nil)
