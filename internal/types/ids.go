// internal/types/ids.go
package types

import (
	"strings"

	"github.com/google/uuid"
)

// SenderKey identifies a conversation partner across channels, e.g.
// "whatsapp:51955250357" or "telegram:12345". The prefix selects the
// delivery channel.
type SenderKey string
type RunID string
type EventID string

func NewRunID() RunID {
	return RunID(uuid.New().String())
}

func NewEventID() EventID {
	return EventID(uuid.New().String())
}

func NewSenderKey(parts ...string) SenderKey {
	return SenderKey(strings.Join(parts, ":"))
}

// Channel returns the prefix of the key up to the first colon.
func (k SenderKey) Channel() string {
	channel, _, _ := strings.Cut(string(k), ":")
	return channel
}

// Address returns everything after the channel prefix.
func (k SenderKey) Address() string {
	_, addr, _ := strings.Cut(string(k), ":")
	return addr
}
