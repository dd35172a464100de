package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sangkips/pharmacy-invoice/internal/domain/enum"
	domainRepo "github.com/sangkips/pharmacy-invoice/internal/domain/repository"
)

type redisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore connects to Redis and uses one string key per collection
func NewRedisStore(ctx context.Context, url, prefix string) (domainRepo.CollectionStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("storage: parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("storage: connect to redis: %w", err)
	}
	return NewRedisStoreFromClient(client, prefix), nil
}

// NewRedisStoreFromClient wraps an existing client
func NewRedisStoreFromClient(client *redis.Client, prefix string) domainRepo.CollectionStore {
	return &redisStore{client: client, prefix: prefix}
}

func (s *redisStore) key(c enum.Collection) string {
	return s.prefix + c.String()
}

func (s *redisStore) Get(ctx context.Context, key enum.Collection) ([]byte, error) {
	data, err := s.client.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", key, err)
	}
	return data, nil
}

func (s *redisStore) Set(ctx context.Context, key enum.Collection, data []byte) error {
	if err := s.client.Set(ctx, s.key(key), data, 0).Err(); err != nil {
		return fmt.Errorf("storage: write %s: %w", key, err)
	}
	return nil
}

func (s *redisStore) Close() error {
	return s.client.Close()
}
