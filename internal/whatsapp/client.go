// Package whatsapp talks to the WhatsApp Cloud API: sending text messages
// and decoding inbound webhook notifications.
package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/user/agendabot/internal/types"
)

// Channel is the sender key prefix for WhatsApp users.
const Channel = "whatsapp"

// Client sends messages from one business phone number.
type Client struct {
	baseURL       string
	phoneNumberID string
	token         string
	httpClient    *http.Client
}

// NewClient creates a Cloud API client. baseURL includes the API version,
// e.g. https://graph.facebook.com/v21.0.
func NewClient(baseURL, phoneNumberID, token string) *Client {
	return &Client{
		baseURL:       strings.TrimRight(baseURL, "/"),
		phoneNumberID: phoneNumberID,
		token:         token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// textMessage is the Cloud API request body for a plain text message.
type textMessage struct {
	MessagingProduct string   `json:"messaging_product"`
	RecipientType    string   `json:"recipient_type"`
	To               string   `json:"to"`
	Type             string   `json:"type"`
	Text             textBody `json:"text"`
}

type textBody struct {
	PreviewURL bool   `json:"preview_url"`
	Body       string `json:"body"`
}

// SendText delivers body to the phone number to.
func (c *Client) SendText(ctx context.Context, to, body string) error {
	payload, err := json.Marshal(textMessage{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               to,
		Type:             "text",
		Text:             textBody{Body: norm.NFC.String(body)},
	})
	if err != nil {
		return fmt.Errorf("marshaling message: %w", err)
	}

	url := fmt.Sprintf("%s/%s/messages", c.baseURL, c.phoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=UTF-8")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(respBody))
	}
	return nil
}

// Send implements types.Sender for "whatsapp:<number>" keys.
func (c *Client) Send(ctx context.Context, to types.SenderKey, text string) error {
	if to.Channel() != Channel || to.Address() == "" {
		return fmt.Errorf("not a whatsapp recipient: %s", to)
	}
	return c.SendText(ctx, to.Address(), text)
}
