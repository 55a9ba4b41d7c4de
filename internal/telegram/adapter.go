// Package telegram is a second chat channel: it long-polls the Bot API for
// messages and delivers replies and reminders to "telegram:<chat id>" keys.
package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/user/agendabot/internal/reply"
	"github.com/user/agendabot/internal/types"
)

// Channel is the sender key prefix for Telegram chats.
const Channel = "telegram"

const maxTelegramMessage = 4096

// Inbound accepts a decoded message for processing.
type Inbound func(ctx context.Context, msg types.Message) error

// bot is the part of *tgbotapi.BotAPI the adapter uses.
type bot interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Adapter bridges Telegram to the gateway.
type Adapter struct {
	bot     bot
	inbound Inbound
}

// New creates a Telegram adapter.
func New(token string, inbound Inbound) (*Adapter, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot: %w", err)
	}
	return &Adapter{bot: api, inbound: inbound}, nil
}

// Start begins long-polling for Telegram updates. It returns when ctx is done.
func (a *Adapter) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30

	updates := a.bot.GetUpdatesChan(u)

	for {
		select {
		case update := <-updates:
			if update.Message == nil || update.Message.Text == "" {
				continue
			}
			a.handleMessage(ctx, update.Message)
		case <-ctx.Done():
			a.bot.StopReceivingUpdates()
			return
		}
	}
}

func (a *Adapter) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.IsCommand() {
		a.handleCommand(msg)
		return
	}

	in := types.Message{
		Sender: chatKey(msg.Chat.ID),
		Text:   msg.Text,
		Source: Channel,
	}
	if err := a.inbound(ctx, in); err != nil {
		slog.Error("telegram inbound rejected", "sender", in.Sender, "error", err)
		a.sendResponse(msg.Chat.ID, reply.Failure)
	}
}

func (a *Adapter) handleCommand(msg *tgbotapi.Message) {
	switch msg.Command() {
	case "start", "help":
		a.sendResponse(msg.Chat.ID, reply.Help)
	default:
		a.sendResponse(msg.Chat.ID, "Comando desconocido. Disponibles: /start, /help")
	}
}

// SendTo delivers text to a "telegram:<chat id>" key. It has the shape of a
// delivery handler.
func (a *Adapter) SendTo(ctx context.Context, to types.SenderKey, text string) error {
	if to.Channel() != Channel {
		return fmt.Errorf("not a telegram recipient: %s", to)
	}
	chatID, err := strconv.ParseInt(to.Address(), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid telegram chat id %q: %w", to.Address(), err)
	}
	for _, part := range splitMessage(text) {
		if err := a.send(chatID, part); err != nil {
			return err
		}
	}
	return nil
}

func (a *Adapter) sendResponse(chatID int64, text string) {
	for _, part := range splitMessage(text) {
		if err := a.send(chatID, part); err != nil {
			slog.Error("telegram send failed", "chat_id", chatID, "error", err)
		}
	}
}

// send tries Markdown first and falls back to plain text, since labels may
// contain characters the legacy Markdown parser rejects.
func (a *Adapter) send(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := a.bot.Send(msg); err == nil {
		return nil
	}
	msg.ParseMode = ""
	if _, err := a.bot.Send(msg); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

// splitMessage cuts text into chunks of at most maxTelegramMessage bytes
// without splitting a UTF-8 sequence.
func splitMessage(text string) []string {
	if len(text) <= maxTelegramMessage {
		return []string{text}
	}
	var parts []string
	for len(text) > 0 {
		end := maxTelegramMessage
		if end >= len(text) {
			end = len(text)
		} else {
			for end > 0 && !utf8.RuneStart(text[end]) {
				end--
			}
		}
		parts = append(parts, text[:end])
		text = text[end:]
	}
	return parts
}

func chatKey(chatID int64) types.SenderKey {
	return types.NewSenderKey(Channel, strconv.FormatInt(chatID, 10))
}
