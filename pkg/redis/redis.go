package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ikkim/cart-recovery-backend/config"
	"github.com/ikkim/cart-recovery-backend/pkg/logger"
	"github.com/redis/go-redis/v9"
)

// Nil is returned by Store.Get when the key does not exist.
var Nil = redis.Nil

var client *redis.Client

// Init initializes Redis connection
func Init(cfg *config.RedisConfig) error {
	logger.Info("Initializing Redis connection", map[string]interface{}{
		"host": cfg.Host,
		"port": cfg.Port,
		"db":   cfg.DB,
	})

	client = redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Error("Failed to connect to Redis", err, map[string]interface{}{
			"host": cfg.Host,
			"port": cfg.Port,
		})
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Redis connection established successfully", nil)
	return nil
}

// GetClient returns the Redis client instance
func GetClient() *redis.Client {
	return client
}

// Close closes the Redis connection
func Close() error {
	if client != nil {
		logger.Info("Closing Redis connection", nil)
		return client.Close()
	}
	return nil
}

// Store narrows go-redis to the plain-value calls used by the lock and the
// cache, so both can be tested against an in-memory fake.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
}

type clientStore struct {
	rdb *redis.Client
}

// NewStore adapts a go-redis client to Store.
func NewStore(rdb *redis.Client) Store {
	return &clientStore{rdb: rdb}
}

func (s *clientStore) Get(ctx context.Context, key string) (string, error) {
	if s.rdb == nil {
		return "", errors.New("redis client not initialized")
	}
	return s.rdb.Get(ctx, key).Result()
}

func (s *clientStore) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if s.rdb == nil {
		return errors.New("redis client not initialized")
	}
	return s.rdb.Set(ctx, key, value, ttl).Err()
}

func (s *clientStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if s.rdb == nil {
		return false, errors.New("redis client not initialized")
	}
	return s.rdb.SetNX(ctx, key, value, ttl).Result()
}

func (s *clientStore) Del(ctx context.Context, keys ...string) error {
	if s.rdb == nil {
		return errors.New("redis client not initialized")
	}
	return s.rdb.Del(ctx, keys...).Err()
}
