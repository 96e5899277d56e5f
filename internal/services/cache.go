package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/AnshRaj112/serenify-journal/internal/models"
)

const (
	// CacheKeyPrefix is the Redis key prefix for cached data
	CacheKeyPrefix = "cache:"
	// LatestAdviceTTL bounds how stale a cached latest advice can be
	LatestAdviceTTL = time.Hour
	// LastRunKey holds the most recent fleet run summary
	LastRunKey = "advice:run:last"
)

// CacheService caches advice read-backs and the last run summary in Redis.
type CacheService struct {
	client *redis.Client
}

func NewCacheService(client *redis.Client) *CacheService {
	return &CacheService{client: client}
}

// Get decodes a cached JSON value. A miss is (false, nil).
func (c *CacheService) Get(ctx context.Context, key string, dest any) (bool, error) {
	val, err := c.client.Get(ctx, CacheKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(val, dest); err != nil {
		return false, err
	}
	return true, nil
}

func (c *CacheService) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	jsonData, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, CacheKeyPrefix+key, jsonData, ttl).Err()
}

func (c *CacheService) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, CacheKeyPrefix+key).Err()
}

// CacheKey generates a cache key for a specific resource
func CacheKey(resource string, identifier string) string {
	return fmt.Sprintf("%s:%s", resource, identifier)
}

// LatestAdviceKey is scoped to the current week so a new boundary never
// serves last week's entry.
func LatestAdviceKey(userID int64, weekOf time.Time) string {
	return CacheKey("advice:latest", strconv.FormatInt(userID, 10)+":"+strconv.FormatInt(weekOf.Unix(), 10))
}

// ForgetLatestAdvice drops userID's cached latest advice for week.
func (c *CacheService) ForgetLatestAdvice(ctx context.Context, userID int64, week time.Time) error {
	if err := c.Delete(ctx, LatestAdviceKey(userID, week)); err != nil {
		return fmt.Errorf("forget latest advice: %w", err)
	}
	return nil
}

// Record stores summary as the last run. It satisfies the scheduler's
// Recorder so operators can read status without touching Mongo.
func (c *CacheService) Record(ctx context.Context, summary models.RunSummary) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, LastRunKey, data, 0).Err(); err != nil {
		return fmt.Errorf("cache last run: %w", err)
	}
	return nil
}

// LastRun returns the most recently recorded run, or ErrNotFound.
func (c *CacheService) LastRun(ctx context.Context) (*models.RunSummary, error) {
	data, err := c.client.Get(ctx, LastRunKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var s models.RunSummary
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}
