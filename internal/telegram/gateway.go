package telegram

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"fish-shop-bot/internal/shop"
)

// Gateway implements shop.Gateway over the Telegram Bot API: plain
// sends, photo-with-caption sends with inline keyboards, and message
// deletion for screen retraction.
type Gateway struct {
	s sender
}

func (g *Gateway) SendText(chatID int64, text string, keyboard [][]shop.Button) error {
	msg := tgbotapi.NewMessage(chatID, text)
	if kb, ok := inlineKeyboard(keyboard); ok {
		msg.ReplyMarkup = kb
	}
	if _, err := g.s.Send(msg); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

func (g *Gateway) SendPhoto(chatID int64, photoURL, caption string, keyboard [][]shop.Button) error {
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileURL(photoURL))
	photo.Caption = caption
	if kb, ok := inlineKeyboard(keyboard); ok {
		photo.ReplyMarkup = kb
	}
	if _, err := g.s.Send(photo); err != nil {
		return fmt.Errorf("failed to send photo: %w", err)
	}
	return nil
}

func (g *Gateway) DeleteMessage(chatID int64, messageID int) error {
	if _, err := g.s.Request(tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}
	return nil
}

func inlineKeyboard(rows [][]shop.Button) (tgbotapi.InlineKeyboardMarkup, bool) {
	if len(rows) == 0 {
		return tgbotapi.InlineKeyboardMarkup{}, false
	}
	kbRows := make([][]tgbotapi.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(b.Label, b.Data))
		}
		kbRows = append(kbRows, buttons)
	}
	return tgbotapi.NewInlineKeyboardMarkup(kbRows...), true
}
