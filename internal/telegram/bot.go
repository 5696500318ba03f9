package telegram

import (
	"context"
	"errors"
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"fish-shop-bot/internal/shop"
)

// Handler consumes reduced inbound events. Satisfied by *shop.Dispatcher.
type Handler interface {
	Handle(ctx context.Context, ev shop.Event) error
}

type Bot struct {
	api *tgbotapi.BotAPI
	s   sender
	gw  *Gateway
}

func New(botToken string) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, err
	}
	s := botAPISender{api: api}
	return &Bot{
		api: api,
		s:   s,
		gw:  &Gateway{s: s},
	}, nil
}

// Gateway exposes the outbound render surface backed by this bot.
func (b *Bot) Gateway() shop.Gateway { return b.gw }

// Start runs the long-polling loop until the updates channel closes.
// Each update is handled on its own goroutine; the dispatcher
// serializes per chat, so unrelated chats proceed in parallel while
// duplicate deliveries for one chat queue up.
func (b *Bot) Start(ctx context.Context, h Handler) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	for update := range updates {
		ev, ok := reduceUpdate(update)
		if !ok {
			continue
		}
		if update.CallbackQuery != nil {
			// stop the client-side spinner; a failure here is cosmetic
			if _, err := b.s.Request(tgbotapi.NewCallback(update.CallbackQuery.ID, "")); err != nil {
				log.Printf("failed to answer callback query: %v", err)
			}
		}
		go b.handleEvent(ctx, h, ev)
	}
}

func (b *Bot) handleEvent(ctx context.Context, h Handler, ev shop.Event) {
	log.Printf("incoming event from chat %d (callback=%v): %q", ev.ChatID, ev.FromCallback, ev.Payload)

	err := h.Handle(ctx, ev)
	if err == nil {
		return
	}
	log.Printf("failed to handle event for chat %d: %v", ev.ChatID, err)

	reply := "Something went wrong. Please try again."
	if errors.Is(err, shop.ErrUnknownUser) {
		reply = "Please send /start to begin."
	}
	if _, err := b.s.Send(tgbotapi.NewMessage(ev.ChatID, reply)); err != nil {
		log.Printf("failed to send error reply to chat %d: %v", ev.ChatID, err)
	}
}

// reduceUpdate maps the two inbound origins onto one event shape: a
// typed text message, or a callback selection carrying its token.
func reduceUpdate(update tgbotapi.Update) (shop.Event, bool) {
	switch {
	case update.Message != nil:
		m := update.Message
		return shop.Event{ChatID: m.Chat.ID, MessageID: m.MessageID, Payload: m.Text}, true
	case update.CallbackQuery != nil && update.CallbackQuery.Message != nil:
		cb := update.CallbackQuery
		return shop.Event{
			ChatID:       cb.Message.Chat.ID,
			MessageID:    cb.Message.MessageID,
			Payload:      cb.Data,
			FromCallback: true,
		}, true
	}
	return shop.Event{}, false
}
