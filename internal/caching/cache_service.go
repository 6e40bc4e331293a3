package caching

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"chyll/internal/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type CacheService interface {
	// Lead caching
	GetLead(ctx context.Context, clientID, leadID uuid.UUID) (*models.Lead, error)
	SetLead(ctx context.Context, clientID uuid.UUID, lead *models.Lead, ttl time.Duration) error
	DeleteLead(ctx context.Context, clientID, leadID uuid.UUID) error

	// Single-use markers (OAuth authorization codes). MarkOnce returns true
	// only for the first caller of a given key within the ttl.
	MarkOnce(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// Rate limiting
	IsRateLimited(ctx context.Context, key string, limit int, window time.Duration) (bool, error)

	// Generic string operations for token management
	SetString(ctx context.Context, key string, value string, ttl time.Duration) error
	GetString(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
}

type redisCacheService struct {
	client *redis.Client
}

func NewRedisCacheService(client *redis.Client) CacheService {
	if pingErr := client.Ping(context.Background()).Err(); pingErr != nil {
		log.Printf("WARN: Redis ping failed on initialization: %v", pingErr)
	}
	return &redisCacheService{client: client}
}

func leadKey(clientID, leadID uuid.UUID) string {
	return fmt.Sprintf("chyll:lead:%s:%s", clientID.String(), leadID.String())
}

func (r *redisCacheService) GetLead(ctx context.Context, clientID, leadID uuid.UUID) (*models.Lead, error) {
	data, err := r.client.Get(ctx, leadKey(clientID, leadID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // cache miss
		}
		return nil, err
	}

	var lead models.Lead
	if err := json.Unmarshal(data, &lead); err != nil {
		return nil, err
	}
	return &lead, nil
}

func (r *redisCacheService) SetLead(ctx context.Context, clientID uuid.UUID, lead *models.Lead, ttl time.Duration) error {
	data, err := json.Marshal(lead)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, leadKey(clientID, lead.ID), data, ttl).Err()
}

func (r *redisCacheService) DeleteLead(ctx context.Context, clientID, leadID uuid.UUID) error {
	return r.client.Del(ctx, leadKey(clientID, leadID)).Err()
}

func (r *redisCacheService) MarkOnce(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return r.client.SetNX(ctx, "chyll:once:"+key, "1", ttl).Result()
}

func (r *redisCacheService) IsRateLimited(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	cacheKey := fmt.Sprintf("chyll:ratelimit:%s", key)
	count, err := r.client.Incr(ctx, cacheKey).Result()
	if err != nil {
		return true, err
	}

	// Set expiry on first request
	if count == 1 {
		r.client.Expire(ctx, cacheKey, window)
	}

	return count > int64(limit), nil
}

func (r *redisCacheService) SetString(ctx context.Context, key string, value string, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

func (r *redisCacheService) GetString(ctx context.Context, key string) (string, error) {
	val, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return "", nil // cache miss
		}
		return "", err
	}
	return val, nil
}

func (r *redisCacheService) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}
