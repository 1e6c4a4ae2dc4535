// Package webhookevents хранит отметки об уже обработанных событиях провайдера.
// Это только ускорение: источником истины остается условное обновление в БД.
package webhookevents

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrCache возвращается при ошибках Redis
var ErrCache = errors.New("webhookevents: cache error")

const keyPrefix = "webhook_event:"

// Cache кэш обработанных событий в Redis
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisClient создает клиент Redis
func NewRedisClient(addr, password string, db, poolSize int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
		PoolSize: poolSize,
	})
}

// NewCache создает кэш; ttl задает, сколько помнить обработанное событие
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

func key(eventID string) string {
	return keyPrefix + eventID
}

// Seen было ли событие уже обработано
func (c *Cache) Seen(ctx context.Context, eventID string) (bool, error) {
	n, err := c.client.Exists(ctx, key(eventID)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: Seen - exists %s: %v", ErrCache, eventID, err)
	}
	return n > 0, nil
}

// MarkProcessed запоминает событие как обработанное
func (c *Cache) MarkProcessed(ctx context.Context, eventID string) error {
	if err := c.client.Set(ctx, key(eventID), time.Now().UTC().Format(time.RFC3339), c.ttl).Err(); err != nil {
		return fmt.Errorf("%w: MarkProcessed - set %s: %v", ErrCache, eventID, err)
	}
	return nil
}

// Ping проверяет доступность Redis
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// NopCache используется, когда Redis выключен
type NopCache struct{}

func (NopCache) Seen(context.Context, string) (bool, error) { return false, nil }

func (NopCache) MarkProcessed(context.Context, string) error { return nil }
