package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lox/chiptracker/internal/room"
	"github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "room:"

// RedisOption configures a Redis store.
type RedisOption func(*Redis)

// WithTTL expires rooms that have not been saved for ttl. Zero disables expiry.
func WithTTL(ttl time.Duration) RedisOption {
	return func(r *Redis) { r.ttl = ttl }
}

// WithKeyPrefix changes the key namespace, "room:" by default.
func WithKeyPrefix(prefix string) RedisOption {
	return func(r *Redis) { r.prefix = prefix }
}

// Redis stores rooms as JSON strings, one key per room.
type Redis struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedis wraps an existing client.
func NewRedis(client *redis.Client, opts ...RedisOption) *Redis {
	r := &Redis{client: client, prefix: defaultKeyPrefix}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (s *Redis) key(code string) string {
	return s.prefix + code
}

func (s *Redis) Create(ctx context.Context, r *room.Room) error {
	data, err := encodeRoom(r)
	if err != nil {
		return err
	}
	ok, err := s.client.SetNX(ctx, s.key(r.Code), data, s.ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to create room %s: %w", r.Code, err)
	}
	if !ok {
		return ErrCodeTaken
	}
	return nil
}

func (s *Redis) Get(ctx context.Context, code string) (*room.Room, error) {
	data, err := s.client.Get(ctx, s.key(code)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get room %s: %w", code, err)
	}
	return decodeRoom(code, data)
}

func (s *Redis) Save(ctx context.Context, r *room.Room) error {
	data, err := encodeRoom(r)
	if err != nil {
		return err
	}
	ok, err := s.client.SetXX(ctx, s.key(r.Code), data, s.ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to save room %s: %w", r.Code, err)
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

func (s *Redis) Delete(ctx context.Context, code string) error {
	if err := s.client.Del(ctx, s.key(code)).Err(); err != nil {
		return fmt.Errorf("failed to delete room %s: %w", code, err)
	}
	return nil
}

func (s *Redis) Exists(ctx context.Context, code string) (bool, error) {
	n, err := s.client.Exists(ctx, s.key(code)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check room %s: %w", code, err)
	}
	return n > 0, nil
}

func (s *Redis) Close() error {
	return s.client.Close()
}
