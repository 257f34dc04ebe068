package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/classifly/ad-service/internal/domain/entity"
	"github.com/classifly/ad-service/internal/platform/logger"
	"github.com/classifly/ad-service/internal/repository"
	"github.com/classifly/ad-service/internal/taxonomy"
	"go.opentelemetry.io/otel"
)

// GeoFilter restricts results to ads whose stored location lies within
// RadiusKm of the given point. Callers resolve free-text locations to
// coordinates before reaching the engine.
type GeoFilter struct {
	Lat      float64
	Lon      float64
	RadiusKm float64
}

type SearchFilter struct {
	Category       string
	Subcategory    string
	Text           string
	Geo            *GeoFilter
	Limit          int
	IncludeExpired bool
}

type SearchService interface {
	Search(ctx context.Context, filter SearchFilter) ([]*entity.Ad, error)
}

type SearchServiceConfig struct {
	DefaultLimit int
	MaxLimit     int
	GeoScanLimit int
}

type searchService struct {
	adRepo repository.AdRepository
	tax    *taxonomy.Tree
	log    logger.Logger
	cfg    SearchServiceConfig
	now    func() time.Time
}

func NewSearchService(adRepo repository.AdRepository, tax *taxonomy.Tree, log logger.Logger, cfg SearchServiceConfig) SearchService {
	return &searchService{
		adRepo: adRepo,
		tax:    tax,
		log:    log,
		cfg:    cfg,
		now:    time.Now,
	}
}

func (s *searchService) Search(ctx context.Context, filter SearchFilter) ([]*entity.Ad, error) {
	ctx, span := otel.Tracer("ad-service/search").Start(ctx, "SearchService.Search")
	defer span.End()

	if err := s.validate(filter); err != nil {
		return nil, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = s.cfg.DefaultLimit
	}
	if limit > s.cfg.MaxLimit {
		limit = s.cfg.MaxLimit
	}

	candidates, err := s.adRepo.Search(ctx, repository.SearchAdsParams{
		Category:       filter.Category,
		Subcategory:    filter.Subcategory,
		Text:           filter.Text,
		IncludeExpired: filter.IncludeExpired,
		Limit:          int64(s.cfg.GeoScanLimit),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search ads: %w", err)
	}

	now := s.now()
	results := make([]*entity.Ad, 0, len(candidates))
	for _, ad := range candidates {
		if ad.Status == entity.StatusDeleted {
			continue
		}
		if ad.Status == entity.StatusActive && ad.ExpiredAt(now) {
			// Lazy expiry: the stored status is stale; write it back once and
			// treat the ad as expired for this query.
			s.persistExpiry(ctx, ad)
		}
		if !filter.IncludeExpired && (ad.Status == entity.StatusExpired || ad.ExpiredAt(now)) {
			continue
		}
		if filter.Geo != nil {
			if ad.Location == nil {
				continue
			}
			center := entity.Location{Lat: filter.Geo.Lat, Lon: filter.Geo.Lon}
			if !center.WithinKm(*ad.Location, filter.Geo.RadiusKm) {
				continue
			}
		}
		results = append(results, ad)
	}

	// Premium placement is a hard guarantee: paid ads always come first, each
	// tier newest-first, ties broken by identifier for a stable order.
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.IsPaid != b.IsPaid {
			return a.IsPaid
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID < b.ID
	})

	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (s *searchService) validate(filter SearchFilter) error {
	if filter.Subcategory != "" && filter.Category == "" {
		return &entity.ValidationError{Field: "subcategory", Reason: "requires a category"}
	}
	if filter.Category != "" && !s.tax.IsValid(filter.Category, "") {
		return &entity.ValidationError{Field: "category", Reason: "unknown category"}
	}
	if filter.Subcategory != "" && !s.tax.IsValid(filter.Category, filter.Subcategory) {
		return &entity.ValidationError{Field: "subcategory", Reason: "does not belong to the selected category"}
	}
	if filter.Geo != nil && filter.Geo.RadiusKm < 0 {
		return &entity.ValidationError{Field: "geo.radius_km", Reason: "cannot be negative"}
	}
	return nil
}

func (s *searchService) persistExpiry(ctx context.Context, ad *entity.Ad) {
	err := s.adRepo.SetStatus(ctx, ad.ID, entity.StatusActive, entity.StatusExpired)
	if err != nil && !errors.Is(err, repository.ErrStatusConflict) {
		s.log.Warnf("Failed to persist expiry of ad %s: %v", ad.ID, err)
		return
	}
	ad.Status = entity.StatusExpired
}
