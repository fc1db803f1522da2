package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cardgate/internal/models"

	"github.com/redis/go-redis/v9"
)

// CacheService wraps a Redis client with JSON serialization and a default
// TTL. Card lookups by app id go through it; a cache failure is never
// fatal, callers fall back to the database.
type CacheService struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCacheService(client *redis.Client, defaultTTL time.Duration) *CacheService {
	return &CacheService{
		client: client,
		ttl:    defaultTTL,
	}
}

func (s *CacheService) Set(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}
	return s.client.Set(ctx, key, data, s.ttl).Err()
}

// Get reports (found, error); a missing key is not an error.
func (s *CacheService) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("failed to get cache value: %w", err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("failed to unmarshal cache value: %w", err)
	}
	return true, nil
}

func (s *CacheService) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return s.client.Del(ctx, keys...).Err()
}

// Card caching

func cardKey(cardID string) string {
	return "card:id:" + cardID
}

func (s *CacheService) CacheCard(ctx context.Context, card *models.Card) error {
	if card == nil || card.CardID == "" {
		return errors.New("cannot cache card without card id")
	}
	return s.Set(ctx, cardKey(card.CardID), card)
}

func (s *CacheService) GetCard(ctx context.Context, cardID string) (*models.Card, error) {
	var card models.Card
	found, err := s.Get(ctx, cardKey(cardID), &card)
	if err != nil || !found {
		return nil, err
	}
	return &card, nil
}

func (s *CacheService) InvalidateCard(ctx context.Context, cardID string) error {
	if cardID == "" {
		return nil
	}
	return s.Delete(ctx, cardKey(cardID))
}

// HealthCheck pings Redis.
func (s *CacheService) HealthCheck(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis connection failed: %w", err)
	}
	return nil
}

// FlushAll flushes all keys from the cache
func (s *CacheService) FlushAll(ctx context.Context) error {
	return s.client.FlushAll(ctx).Err()
}

// Close closes the Redis client connection
func (s *CacheService) Close() error {
	return s.client.Close()
}
