package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"

	"fish-shop-bot/internal/commerce"
	"fish-shop-bot/internal/config"
	"fish-shop-bot/internal/session"
	"fish-shop-bot/internal/shop"
	"fish-shop-bot/internal/storage"
	"fish-shop-bot/internal/telegram"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Warning: .env file not found: %v", err)
	}

	cfg := config.New()

	store := session.NewRedis(cfg.RedisAddr(), cfg.RedisPwd, cfg.RedisDB)
	defer func() {
		if err := store.Close(); err != nil {
			log.Printf("failed to close session store: %v", err)
		}
	}()

	catalog := commerce.New(cfg.MoltinAPIURL, cfg.MoltinClientID, cfg.MoltinClientSecret, cfg.MoltinOAuthURL)

	var opts []shop.DispatcherOption
	if cfg.JournalFilePath != "" {
		rec, err := storage.NewFileRecorder(cfg.JournalFilePath)
		if err != nil {
			log.Printf("failed to init interaction journal: %v", err)
		} else {
			opts = append(opts, shop.WithJournal(rec))
		}
	}

	bot, err := telegram.New(cfg.TelegramBotToken)
	if err != nil {
		log.Fatalf("failed to create bot: %v", err)
	}

	dispatcher := shop.New(store, catalog, bot.Gateway(), opts...)

	bot.Start(context.Background(), dispatcher)
}
