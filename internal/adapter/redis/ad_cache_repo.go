package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/classifly/ad-service/internal/domain/entity"
	"github.com/classifly/ad-service/internal/repository"
	"github.com/redis/go-redis/v9"
)

const adCacheKeyPrefix = "ad:"

type adCacheRepository struct {
	client *redis.Client
}

func NewAdCacheRepository(client *redis.Client) repository.AdCache {
	return &adCacheRepository{client: client}
}

func (r *adCacheRepository) adKey(adID string) string {
	return adCacheKeyPrefix + adID
}

func (r *adCacheRepository) Get(ctx context.Context, adID string) (*entity.Ad, error) {
	val, err := r.client.Get(ctx, r.adKey(adID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get ad %s from redis: %w", adID, err)
	}

	var ad entity.Ad
	if err := json.Unmarshal(val, &ad); err != nil {
		_ = r.Delete(ctx, adID)
		return nil, fmt.Errorf("failed to unmarshal cached ad %s: %w", adID, err)
	}
	return &ad, nil
}

func (r *adCacheRepository) Set(ctx context.Context, ad *entity.Ad, ttl time.Duration) error {
	if ad == nil || ad.ID == "" {
		return errors.New("cannot cache nil ad or ad with empty ID")
	}

	data, err := json.Marshal(ad)
	if err != nil {
		return fmt.Errorf("failed to marshal ad %s for cache: %w", ad.ID, err)
	}

	if err := r.client.Set(ctx, r.adKey(ad.ID), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set ad %s to redis: %w", ad.ID, err)
	}
	return nil
}

func (r *adCacheRepository) Delete(ctx context.Context, adID string) error {
	if err := r.client.Del(ctx, r.adKey(adID)).Err(); err != nil {
		return fmt.Errorf("failed to delete ad %s from redis: %w", adID, err)
	}
	return nil
}
