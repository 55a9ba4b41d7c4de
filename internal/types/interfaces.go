// internal/types/interfaces.go
package types

import (
	"context"
	"time"
)

// Calendar is the calendar backend. List returns single occurrences ordered
// by start time.
type Calendar interface {
	List(ctx context.Context, start, end time.Time) ([]EventRef, error)
	Insert(ctx context.Context, label string, start, end time.Time) (EventRef, error)
	Update(ctx context.Context, id, label string, start, end time.Time) (EventRef, error)
	Delete(ctx context.Context, id string) error
}

// Sender delivers a text message to a recipient.
type Sender interface {
	Send(ctx context.Context, to SenderKey, text string) error
}
