package config

import (
	"log"
	"net"

	"github.com/caarlos0/env/v6"
)

type Config struct {
	TelegramBotToken string `env:"TELEGRAM_BOT_TOKEN,required"`

	// Commerce backend (Moltin / Elastic Path)
	MoltinClientID     string `env:"MOLTIN_CLIENT_ID,required"`
	MoltinClientSecret string `env:"MOLTIN_CLIENT_SECRET,required"`
	MoltinAPIURL       string `env:"MOLTIN_API_URL" envDefault:"https://api.moltin.com/v2"`
	MoltinOAuthURL     string `env:"MOLTIN_OAUTH_URL" envDefault:"https://api.moltin.com/oauth/access_token"`

	// Session store
	RedisHost string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort string `env:"REDIS_PORT" envDefault:"6379"`
	RedisPwd  string `env:"REDIS_PWD"`
	RedisDB   int    `env:"REDIS_DB" envDefault:"0"`

	// Interaction journal; empty disables it
	JournalFilePath string `env:"JOURNAL_FILE_PATH" envDefault:"logs/interactions.jsonl"`
}

func New() *Config {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}
	return cfg
}

// RedisAddr joins the configured host and port.
func (c *Config) RedisAddr() string {
	return net.JoinHostPort(c.RedisHost, c.RedisPort)
}
