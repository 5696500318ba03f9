package session

import (
	"context"
	"fmt"
	"strconv"

	backend "github.com/redis/go-redis/v9"
)

const defaultPrefix = "shop:state:"

// RedisStore implements Store on a Redis string value per chat.
// Sessions carry no TTL: the stored tag is the durable conversation
// memory and survives restarts of both the bot and Redis.
type RedisStore struct {
	client *backend.Client
	prefix string
}

// Option configures a RedisStore.
type Option func(*RedisStore)

// WithPrefix overrides the key prefix.
func WithPrefix(prefix string) Option {
	return func(s *RedisStore) {
		s.prefix = prefix
	}
}

// NewRedis creates a store with its own Redis client.
func NewRedis(addr, password string, db int, opts ...Option) *RedisStore {
	client := backend.NewClient(&backend.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return NewRedisFromClient(client, opts...)
}

// NewRedisFromClient creates a store over an existing Redis client.
func NewRedisFromClient(client *backend.Client, opts ...Option) *RedisStore {
	s := &RedisStore{
		client: client,
		prefix: defaultPrefix,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStore) key(chatID int64) string {
	return s.prefix + strconv.FormatInt(chatID, 10)
}

// Get returns the stored tag as-is; validation against the closed
// enumeration is the dispatcher's job, so a corrupt value surfaces
// there with full diagnostic context instead of being masked here.
func (s *RedisStore) Get(ctx context.Context, chatID int64) (State, error) {
	val, err := s.client.Get(ctx, s.key(chatID)).Result()
	if err != nil {
		if err == backend.Nil {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to get session from redis: %w", err)
	}
	return State(val), nil
}

// Set overwrites the state for the chat.
func (s *RedisStore) Set(ctx context.Context, chatID int64, state State) error {
	if err := s.client.Set(ctx, s.key(chatID), string(state), 0).Err(); err != nil {
		return fmt.Errorf("failed to save session to redis: %w", err)
	}
	return nil
}

// Close closes the underlying Redis client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
