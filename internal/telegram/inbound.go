package telegram

import (
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/fishshop/storefront-bot/internal/conversation"
)

const commandStart = "start"

// Inbound is a conversation event plus what is needed to answer it in the chat.
type Inbound struct {
	Event  conversation.Event
	ChatID int64
	// MessageID is the message carrying the pressed keyboard. Zero for text messages.
	MessageID  int
	CallbackID string
}

// FromUpdate converts an update into an inbound event. Updates the storefront
// does not react to, such as edits or media without text, are skipped.
func FromUpdate(update tgbotapi.Update) (Inbound, bool) {
	updateID := strconv.Itoa(update.UpdateID)

	switch {
	case update.CallbackQuery != nil:
		cb := update.CallbackQuery
		if cb.Message == nil || cb.Message.Chat == nil {
			return Inbound{}, false
		}

		ev := conversation.CallbackEvent(chatKey(cb.Message.Chat.ID), cb.Data)
		ev.ID = updateID

		return Inbound{
			Event:      ev,
			ChatID:     cb.Message.Chat.ID,
			MessageID:  cb.Message.MessageID,
			CallbackID: cb.ID,
		}, true

	case update.Message != nil:
		msg := update.Message
		if msg.Chat == nil || msg.Text == "" {
			return Inbound{}, false
		}

		text := msg.Text
		if msg.IsCommand() && msg.Command() == commandStart {
			text = conversation.RestartCommand
		}

		ev := conversation.TextEvent(chatKey(msg.Chat.ID), text)
		ev.ID = updateID

		return Inbound{Event: ev, ChatID: msg.Chat.ID}, true
	}

	return Inbound{}, false
}

// chatKey identifies the user by their chat, the bot only talks in private chats.
func chatKey(chatID int64) string {
	return strconv.FormatInt(chatID, 10)
}
