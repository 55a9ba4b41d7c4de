// internal/notify/notified.go
package notify

import (
	"sync"
	"time"
)

type notifiedKey struct {
	id    string
	start int64
}

// NotifiedSet remembers which event occurrences already got a reminder.
// Entries are keyed on id and start so a rescheduled event alerts again, and
// are dropped by Evict once the start is old enough.
type NotifiedSet struct {
	mu   sync.Mutex
	seen map[notifiedKey]time.Time
}

func NewNotifiedSet() *NotifiedSet {
	return &NotifiedSet{seen: make(map[notifiedKey]time.Time)}
}

// TryMark records the occurrence and reports whether it was new.
func (s *NotifiedSet) TryMark(id string, start time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := notifiedKey{id: id, start: start.UnixNano()}
	if _, ok := s.seen[k]; ok {
		return false
	}
	s.seen[k] = start
	return true
}

// Contains reports whether the occurrence is recorded.
func (s *NotifiedSet) Contains(id string, start time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.seen[notifiedKey{id: id, start: start.UnixNano()}]
	return ok
}

// Evict drops entries whose start is before cutoff and returns how many went.
func (s *NotifiedSet) Evict(cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for k, start := range s.seen {
		if start.Before(cutoff) {
			delete(s.seen, k)
			n++
		}
	}
	return n
}

func (s *NotifiedSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen)
}
