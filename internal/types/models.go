// internal/types/models.go
package types

import (
	"time"
)

// Message is one inbound chat message. It is never mutated after decoding.
type Message struct {
	Sender SenderKey `json:"sender"`
	Text   string    `json:"text"`
	Source string    `json:"source,omitempty"`
}

// EventRef is the projection of a calendar event the bot operates on.
type EventRef struct {
	ID          string    `json:"id"`
	Label       string    `json:"label"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	Description string    `json:"description,omitempty"`
}

// Intent is the action a message requests.
type Intent string

const (
	IntentDelete Intent = "delete"
	IntentEdit   Intent = "edit"
	IntentQuery  Intent = "query"
	IntentCreate Intent = "create"
)
