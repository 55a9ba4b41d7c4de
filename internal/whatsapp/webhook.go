package whatsapp

import (
	"encoding/json"
	"fmt"
	"io"

	"golang.org/x/text/unicode/norm"

	"github.com/user/agendabot/internal/types"
)

// Notification is the subset of a Cloud API webhook body the bot reads.
type Notification struct {
	Object string `json:"object"`
	Entry  []struct {
		ID      string `json:"id"`
		Changes []struct {
			Field string `json:"field"`
			Value struct {
				Messages []InboundMessage `json:"messages"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

// InboundMessage is one user message inside a notification.
type InboundMessage struct {
	From      string `json:"from"`
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"`
	Text      struct {
		Body string `json:"body"`
	} `json:"text"`
}

// ParseWebhook decodes a notification and returns its first message. ok is
// false for notifications without messages, such as delivery statuses.
// Non-text messages yield an empty text.
func ParseWebhook(r io.Reader) (msg types.Message, ok bool, err error) {
	var n Notification
	if err := json.NewDecoder(r).Decode(&n); err != nil {
		return types.Message{}, false, fmt.Errorf("decode notification: %w", err)
	}
	if len(n.Entry) == 0 || len(n.Entry[0].Changes) == 0 {
		return types.Message{}, false, nil
	}
	messages := n.Entry[0].Changes[0].Value.Messages
	if len(messages) == 0 || messages[0].From == "" {
		return types.Message{}, false, nil
	}
	in := messages[0]
	return types.Message{
		Sender: types.NewSenderKey(Channel, in.From),
		Text:   norm.NFC.String(in.Text.Body),
		Source: Channel,
	}, true, nil
}
