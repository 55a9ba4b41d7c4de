// internal/match/match.go
package match

import (
	"strings"

	"github.com/user/agendabot/internal/types"
)

// Find returns the first event whose label contains keyword, ignoring case.
// Events are searched in the order given, which callers keep chronological.
func Find(events []types.EventRef, keyword string) (types.EventRef, bool) {
	kw := strings.ToLower(strings.TrimSpace(keyword))
	if kw == "" {
		return types.EventRef{}, false
	}
	for _, ev := range events {
		if strings.Contains(strings.ToLower(ev.Label), kw) {
			return ev, true
		}
	}
	return types.EventRef{}, false
}
