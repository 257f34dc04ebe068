package repository

import (
	"context"
	"time"

	"github.com/classifly/ad-service/internal/domain/entity"
)

// AdCache is a read-through cache for single-ad lookups. Misses are reported
// as ErrNotFound. Every catalog mutation invalidates the cached entry.
type AdCache interface {
	Get(ctx context.Context, adID string) (*entity.Ad, error)
	Set(ctx context.Context, ad *entity.Ad, ttl time.Duration) error
	Delete(ctx context.Context, adID string) error
}
