package telegram

import (
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/fishshop/storefront-bot/internal/conversation"
)

// Bot API limits, in characters.
const (
	maxMessageLen = 4096
	maxCaptionLen = 1024
)

// Render builds the Bot API message for a reply. Product views with a picture
// become photos, everything else a text message.
func Render(chatID int64, reply conversation.Reply) tgbotapi.Chattable {
	keyboard := keyboardOf(reply.Rows)

	if reply.Kind == conversation.ReplyDetail && len(reply.Image) > 0 {
		photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: "product.jpg", Bytes: reply.Image})
		photo.Caption = truncate(reply.Text, maxCaptionLen)
		if keyboard != nil {
			photo.ReplyMarkup = *keyboard
		}

		return photo
	}

	msg := tgbotapi.NewMessage(chatID, truncate(reply.Text, maxMessageLen))
	if keyboard != nil {
		msg.ReplyMarkup = *keyboard
	}

	return msg
}

func keyboardOf(rows [][]conversation.Option) *tgbotapi.InlineKeyboardMarkup {
	if len(rows) == 0 {
		return nil
	}

	buttons := make([][]tgbotapi.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}

		r := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, o := range row {
			r = append(r, tgbotapi.NewInlineKeyboardButtonData(o.Label, o.Token))
		}

		buttons = append(buttons, tgbotapi.NewInlineKeyboardRow(r...))
	}

	markup := tgbotapi.NewInlineKeyboardMarkup(buttons...)

	return &markup
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}

	runes := []rune(s)

	return string(runes[:limit-1]) + "…"
}
