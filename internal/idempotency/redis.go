package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "licensehub:idempotency:"

// Response is a stored answer to an idempotent request.
type Response struct {
	Status      int       `json:"status"`
	ContentType string    `json:"content_type"`
	Body        string    `json:"body"`
	CreatedAt   time.Time `json:"created_at"`
}

// Connect builds a client from a redis:// URL or a bare host:port and checks
// that the server answers.
func Connect(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts := &redis.Options{Addr: redisURL}

	if strings.HasPrefix(redisURL, "redis://") || strings.HasPrefix(redisURL, "rediss://") {
		parsed, err := redis.ParseURL(redisURL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}

		opts = parsed
	}

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return client, nil
}

// RedisStore keeps responses in Redis for ttl.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func storageKey(key, path string) string {
	return keyPrefix + path + ":" + key
}

// Get returns the stored response, or nil when there is none.
func (s *RedisStore) Get(ctx context.Context, key, path string) (*Response, error) {
	raw, err := s.client.Get(ctx, storageKey(key, path)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}

		return nil, fmt.Errorf("reading idempotency key: %w", err)
	}

	var resp Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decoding idempotency entry: %w", err)
	}

	return &resp, nil
}

// Save stores resp unless an entry for the key already exists.
func (s *RedisStore) Save(ctx context.Context, key, path string, resp *Response) error {
	raw, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("encoding idempotency entry: %w", err)
	}

	if err := s.client.SetNX(ctx, storageKey(key, path), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("writing idempotency key: %w", err)
	}

	return nil
}
