package repository

import (
	"context"
	"time"

	"github.com/classifly/ad-service/internal/domain/entity"
)

// SearchAdsParams is the coarse, index-friendly part of a catalog query. The
// query engine applies lazy expiry, geo filtering and final ordering on top
// of what the store returns.
type SearchAdsParams struct {
	Category       string
	Subcategory    string
	Text           string
	IncludeExpired bool
	Limit          int64
}

type AdRepository interface {
	// Create inserts a fully constructed ad. The caller assigns identity and
	// timestamps.
	Create(ctx context.Context, ad *entity.Ad) error

	GetByID(ctx context.Context, adID string) (*entity.Ad, error)

	// Update persists field edits conditionally on the ad's version and on
	// status still being active. Version is incremented on success.
	Update(ctx context.Context, ad *entity.Ad) error

	// SetStatus transitions status conditionally on the current value, so a
	// lazily observed expiry is written back exactly once.
	SetStatus(ctx context.Context, adID string, from, to entity.AdStatus) error

	// SetUpgradePending flags or clears the pending-upgrade marker.
	SetUpgradePending(ctx context.Context, adID string, pending bool) error

	// Delete performs the logical delete: the record moves to status deleted
	// from any prior state and is kept for audit.
	Delete(ctx context.Context, adID string) error

	// MarkPremium flips is_paid and extends the listing window, conditionally
	// on is_paid still being false. It returns false without error when the ad
	// was already premium, which makes payment confirmation idempotent.
	MarkPremium(ctx context.Context, adID string, expiresAt time.Time) (bool, error)

	ListByOwner(ctx context.Context, ownerID string) ([]*entity.Ad, error)

	Search(ctx context.Context, params SearchAdsParams) ([]*entity.Ad, error)
}
