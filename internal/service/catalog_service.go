package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/classifly/ad-service/internal/adapter/nats"
	"github.com/classifly/ad-service/internal/domain/entity"
	"github.com/classifly/ad-service/internal/platform/logger"
	"github.com/classifly/ad-service/internal/repository"
	"github.com/classifly/ad-service/internal/taxonomy"
	"go.opentelemetry.io/otel"
)

const (
	natsSubjectAdCreated = "ad.created"
	natsSubjectAdDeleted = "ad.deleted"
	natsSubjectAdExpired = "ad.expired"
)

// UpgradeHandle is what the caller needs to complete a premium payment at the
// external provider.
type UpgradeHandle struct {
	SessionID   string `json:"session_id"`
	RedirectURL string `json:"redirect_url"`
}

// UpgradeStarter opens a premium payment session for an ad. Implemented by
// the payment service.
type UpgradeStarter interface {
	BeginUpgrade(ctx context.Context, ownerID, adID, originURL string) (*UpgradeHandle, error)
}

// AdPatch is a partial mutation of an active ad. Nil fields are left alone.
type AdPatch struct {
	Title       *string
	Description *string
	Price       *float64
	Images      *[]string
	Subcategory *string
}

type CatalogService interface {
	CreateAd(ctx context.Context, ownerID string, draft entity.AdDraft, wantsPremium bool, originURL string) (*entity.Ad, *UpgradeHandle, error)
	GetAd(ctx context.Context, adID string) (*entity.Ad, error)
	UpdateAd(ctx context.Context, adID, requesterID string, patch AdPatch) (*entity.Ad, error)
	DeleteAd(ctx context.Context, adID, requesterID string) error
	ListMyAds(ctx context.Context, ownerID string) ([]*entity.Ad, error)
}

type CatalogServiceConfig struct {
	FreeDuration    time.Duration
	PremiumImageCap int
	AdCacheTTL      time.Duration
}

type catalogService struct {
	adRepo       repository.AdRepository
	cache        repository.AdCache
	tax          *taxonomy.Tree
	upgrades     UpgradeStarter
	msgPublisher nats.MessagePublisher
	log          logger.Logger
	cfg          CatalogServiceConfig
	now          func() time.Time
}

func NewCatalogService(
	adRepo repository.AdRepository,
	cache repository.AdCache,
	tax *taxonomy.Tree,
	upgrades UpgradeStarter,
	msgPublisher nats.MessagePublisher,
	log logger.Logger,
	cfg CatalogServiceConfig,
) CatalogService {
	return &catalogService{
		adRepo:       adRepo,
		cache:        cache,
		tax:          tax,
		upgrades:     upgrades,
		msgPublisher: msgPublisher,
		log:          log,
		cfg:          cfg,
		now:          time.Now,
	}
}

func (s *catalogService) CreateAd(ctx context.Context, ownerID string, draft entity.AdDraft, wantsPremium bool, originURL string) (*entity.Ad, *UpgradeHandle, error) {
	ctx, span := otel.Tracer("ad-service/catalog").Start(ctx, "CatalogService.CreateAd")
	defer span.End()

	s.log.Infof("Creating ad for owner %s in category %s (premium requested: %t)", ownerID, draft.Category, wantsPremium)

	if !s.tax.IsValid(draft.Category, "") {
		return nil, nil, &entity.ValidationError{Field: "category", Reason: "unknown category"}
	}
	if draft.Subcategory != "" && !s.tax.IsValid(draft.Category, draft.Subcategory) {
		return nil, nil, &entity.ValidationError{Field: "subcategory", Reason: "does not belong to the selected category"}
	}

	ad, err := entity.NewAd(ownerID, draft, s.now(), s.cfg.FreeDuration)
	if err != nil {
		return nil, nil, err
	}

	if err := s.adRepo.Create(ctx, ad); err != nil {
		s.log.Errorf("Failed to persist ad for owner %s: %v", ownerID, err)
		return nil, nil, fmt.Errorf("failed to create ad: %w", err)
	}

	if errPub := s.msgPublisher.Publish(ctx, natsSubjectAdCreated, ad); errPub != nil {
		s.log.Warnf("Failed to publish ad created event for ad %s: %v", ad.ID, errPub)
	}

	// Premium is intent only at this point; the ad stays unpaid until the
	// provider confirms the session.
	if wantsPremium {
		handle, errUpgrade := s.upgrades.BeginUpgrade(ctx, ownerID, ad.ID, originURL)
		if errUpgrade != nil {
			s.log.Warnf("Ad %s created but premium upgrade could not be started: %v", ad.ID, errUpgrade)
			return ad, nil, fmt.Errorf("ad created, but premium upgrade could not be started: %w", errUpgrade)
		}
		return ad, handle, nil
	}

	return ad, nil, nil
}

func (s *catalogService) GetAd(ctx context.Context, adID string) (*entity.Ad, error) {
	if cached, err := s.cache.Get(ctx, adID); err == nil {
		if cached.Status == entity.StatusActive && cached.ExpiredAt(s.now()) {
			s.persistExpiry(ctx, cached)
		}
		return cached, nil
	}

	ad, err := s.adRepo.GetByID(ctx, adID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAdNotFound
		}
		return nil, fmt.Errorf("failed to get ad %s: %w", adID, err)
	}

	if ad.Status == entity.StatusActive && ad.ExpiredAt(s.now()) {
		s.persistExpiry(ctx, ad)
	}

	if errCache := s.cache.Set(ctx, ad, s.cfg.AdCacheTTL); errCache != nil {
		s.log.Warnf("Failed to cache ad %s: %v", adID, errCache)
	}
	return ad, nil
}

func (s *catalogService) UpdateAd(ctx context.Context, adID, requesterID string, patch AdPatch) (*entity.Ad, error) {
	s.log.Infof("Updating ad %s on behalf of user %s", adID, requesterID)

	ad, err := s.adRepo.GetByID(ctx, adID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAdNotFound
		}
		return nil, fmt.Errorf("failed to load ad %s for update: %w", adID, err)
	}

	if ad.OwnerID != requesterID {
		s.log.Warnf("User %s attempted to edit ad %s owned by %s", requesterID, adID, ad.OwnerID)
		return nil, ErrForbidden
	}

	if ad.Status == entity.StatusActive && ad.ExpiredAt(s.now()) {
		s.persistExpiry(ctx, ad)
	}
	if !ad.Editable() {
		return nil, ErrConflict
	}

	if err := s.applyPatch(ad, patch); err != nil {
		return nil, err
	}

	if err := s.adRepo.Update(ctx, ad); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrAdNotFound
		case errors.Is(err, repository.ErrOptimisticLock), errors.Is(err, repository.ErrStatusConflict):
			return nil, ErrConflict
		default:
			return nil, fmt.Errorf("failed to update ad %s: %w", adID, err)
		}
	}

	if errCache := s.cache.Delete(ctx, adID); errCache != nil {
		s.log.Warnf("Failed to invalidate cache for ad %s: %v", adID, errCache)
	}
	return ad, nil
}

func (s *catalogService) applyPatch(ad *entity.Ad, patch AdPatch) error {
	if patch.Title != nil {
		if strings.TrimSpace(*patch.Title) == "" {
			return &entity.ValidationError{Field: "title", Reason: "cannot be empty"}
		}
		ad.Title = *patch.Title
	}
	if patch.Description != nil {
		if strings.TrimSpace(*patch.Description) == "" {
			return &entity.ValidationError{Field: "description", Reason: "cannot be empty"}
		}
		ad.Description = *patch.Description
	}
	if patch.Price != nil {
		if *patch.Price < 0 {
			return &entity.ValidationError{Field: "price", Reason: "cannot be negative"}
		}
		ad.Price = *patch.Price
	}
	if patch.Images != nil {
		if len(*patch.Images) == 0 {
			return &entity.ValidationError{Field: "images", Reason: "at least one image is required"}
		}
		if limit := ad.ImageCap(s.cfg.PremiumImageCap); len(*patch.Images) > limit {
			return &entity.ValidationError{Field: "images", Reason: fmt.Sprintf("limited to %d images", limit)}
		}
		ad.Images = *patch.Images
	}
	if patch.Subcategory != nil {
		if *patch.Subcategory != "" && !s.tax.IsValid(ad.Category, *patch.Subcategory) {
			return &entity.ValidationError{Field: "subcategory", Reason: "does not belong to the ad's category"}
		}
		ad.Subcategory = *patch.Subcategory
	}
	return nil
}

func (s *catalogService) DeleteAd(ctx context.Context, adID, requesterID string) error {
	s.log.Infof("Deleting ad %s on behalf of user %s", adID, requesterID)

	ad, err := s.adRepo.GetByID(ctx, adID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrAdNotFound
		}
		return fmt.Errorf("failed to load ad %s for delete: %w", adID, err)
	}

	if ad.OwnerID != requesterID {
		s.log.Warnf("User %s attempted to delete ad %s owned by %s", requesterID, adID, ad.OwnerID)
		return ErrForbidden
	}

	if err := s.adRepo.Delete(ctx, adID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrAdNotFound
		}
		return fmt.Errorf("failed to delete ad %s: %w", adID, err)
	}

	if errCache := s.cache.Delete(ctx, adID); errCache != nil {
		s.log.Warnf("Failed to invalidate cache for ad %s: %v", adID, errCache)
	}
	if errPub := s.msgPublisher.Publish(ctx, natsSubjectAdDeleted, map[string]string{"ad_id": adID}); errPub != nil {
		s.log.Warnf("Failed to publish ad deleted event for ad %s: %v", adID, errPub)
	}
	return nil
}

func (s *catalogService) ListMyAds(ctx context.Context, ownerID string) ([]*entity.Ad, error) {
	ads, err := s.adRepo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list ads for owner %s: %w", ownerID, err)
	}

	now := s.now()
	for _, ad := range ads {
		if ad.Status == entity.StatusActive && ad.ExpiredAt(now) {
			s.persistExpiry(ctx, ad)
		}
	}
	return ads, nil
}

// persistExpiry writes an observed lazy expiry back to the store. The
// conditional transition makes the write exactly-once across racing readers;
// losing the race just means someone else already persisted it.
func (s *catalogService) persistExpiry(ctx context.Context, ad *entity.Ad) {
	err := s.adRepo.SetStatus(ctx, ad.ID, entity.StatusActive, entity.StatusExpired)
	if err != nil && !errors.Is(err, repository.ErrStatusConflict) {
		s.log.Warnf("Failed to persist expiry of ad %s: %v", ad.ID, err)
		return
	}
	ad.Status = entity.StatusExpired
	if errCache := s.cache.Delete(ctx, ad.ID); errCache != nil {
		s.log.Warnf("Failed to invalidate cache for expired ad %s: %v", ad.ID, errCache)
	}
	if err == nil {
		if errPub := s.msgPublisher.Publish(ctx, natsSubjectAdExpired, map[string]string{"ad_id": ad.ID}); errPub != nil {
			s.log.Warnf("Failed to publish ad expired event for ad %s: %v", ad.ID, errPub)
		}
	}
}
