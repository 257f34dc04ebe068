package service

import (
	"context"
	"testing"
	"time"

	"github.com/classifly/ad-service/internal/domain/entity"
	"github.com/classifly/ad-service/internal/platform/logger"
	"github.com/classifly/ad-service/internal/repository"
	"github.com/classifly/ad-service/internal/taxonomy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func newSearchForTest(adRepo *MockAdRepository, now time.Time) *searchService {
	cfg := SearchServiceConfig{DefaultLimit: 20, MaxLimit: 100, GeoScanLimit: 500}
	svc := NewSearchService(adRepo, taxonomy.Default(), logger.NoOp{}, cfg).(*searchService)
	svc.now = func() time.Time { return now }
	return svc
}

func searchAd(id string, paid bool, createdAt time.Time) *entity.Ad {
	return &entity.Ad{
		ID:        id,
		OwnerID:   "user1",
		Title:     "Listing " + id,
		Category:  "vehicles",
		Images:    []string{"img.jpg"},
		IsPaid:    paid,
		Status:    entity.StatusActive,
		CreatedAt: createdAt,
		ExpiresAt: createdAt.Add(60 * 24 * time.Hour),
	}
}

func TestSearchService_PremiumFirst(t *testing.T) {
	adRepo := new(MockAdRepository)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc := newSearchForTest(adRepo, now)

	// A free ad posted after a premium one must still rank below it.
	freeNewer := searchAd("ad_a", false, now.Add(-1*time.Hour))
	paidOlder := searchAd("ad_b", true, now.Add(-48*time.Hour))
	adRepo.On("Search", mock.Anything, mock.Anything).Return([]*entity.Ad{freeNewer, paidOlder}, nil).Once()

	results, err := svc.Search(context.Background(), SearchFilter{})

	assert.NoError(t, err)
	assert.Len(t, results, 2)
	assert.Equal(t, "ad_b", results[0].ID)
	assert.Equal(t, "ad_a", results[1].ID)
}

func TestSearchService_OrderingWithinTiers(t *testing.T) {
	adRepo := new(MockAdRepository)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc := newSearchForTest(adRepo, now)

	paidOld := searchAd("ad_p1", true, now.Add(-72*time.Hour))
	paidNew := searchAd("ad_p2", true, now.Add(-24*time.Hour))
	freeOld := searchAd("ad_f1", false, now.Add(-72*time.Hour))
	freeNew := searchAd("ad_f2", false, now.Add(-24*time.Hour))
	tieA := searchAd("ad_t1", false, now.Add(-10*time.Hour))
	tieB := searchAd("ad_t2", false, now.Add(-10*time.Hour))
	adRepo.On("Search", mock.Anything, mock.Anything).
		Return([]*entity.Ad{freeOld, tieB, paidOld, freeNew, tieA, paidNew}, nil).Once()

	results, err := svc.Search(context.Background(), SearchFilter{})

	assert.NoError(t, err)
	ids := make([]string, 0, len(results))
	for _, ad := range results {
		ids = append(ids, ad.ID)
	}
	// Paid tier newest first, then free tier newest first, created_at ties
	// broken by identifier.
	assert.Equal(t, []string{"ad_p2", "ad_p1", "ad_t1", "ad_t2", "ad_f2", "ad_f1"}, ids)
}

func TestSearchService_LazyExpiryExcludedAndPersisted(t *testing.T) {
	adRepo := new(MockAdRepository)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc := newSearchForTest(adRepo, now)

	fresh := searchAd("ad_fresh", false, now.Add(-time.Hour))
	stale := searchAd("ad_stale", false, now.Add(-time.Hour))
	stale.ExpiresAt = now.Add(-time.Minute)
	adRepo.On("Search", mock.Anything, mock.Anything).Return([]*entity.Ad{fresh, stale}, nil).Once()
	adRepo.On("SetStatus", mock.Anything, "ad_stale", entity.StatusActive, entity.StatusExpired).Return(nil).Once()

	results, err := svc.Search(context.Background(), SearchFilter{})

	assert.NoError(t, err)
	assert.Len(t, results, 1)
	assert.Equal(t, "ad_fresh", results[0].ID)
	adRepo.AssertExpectations(t)
}

func TestSearchService_IncludeExpired(t *testing.T) {
	adRepo := new(MockAdRepository)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc := newSearchForTest(adRepo, now)

	expired := searchAd("ad_expired", false, now.Add(-90*24*time.Hour))
	expired.Status = entity.StatusExpired
	expired.ExpiresAt = now.Add(-30 * 24 * time.Hour)
	adRepo.On("Search", mock.Anything, mock.MatchedBy(func(p repository.SearchAdsParams) bool {
		return p.IncludeExpired
	})).Return([]*entity.Ad{expired}, nil).Once()

	results, err := svc.Search(context.Background(), SearchFilter{IncludeExpired: true})

	assert.NoError(t, err)
	assert.Len(t, results, 1)
	assert.Equal(t, "ad_expired", results[0].ID)
}

func TestSearchService_DeletedNeverReturned(t *testing.T) {
	adRepo := new(MockAdRepository)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc := newSearchForTest(adRepo, now)

	deleted := searchAd("ad_gone", true, now.Add(-time.Hour))
	deleted.Status = entity.StatusDeleted
	adRepo.On("Search", mock.Anything, mock.Anything).Return([]*entity.Ad{deleted}, nil).Once()

	results, err := svc.Search(context.Background(), SearchFilter{IncludeExpired: true})

	assert.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchService_GeoFilter(t *testing.T) {
	adRepo := new(MockAdRepository)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc := newSearchForTest(adRepo, now)

	near := searchAd("ad_near", false, now.Add(-time.Hour))
	near.Location = &entity.Location{Lat: 52.52, Lon: 13.405} // Berlin
	far := searchAd("ad_far", false, now.Add(-time.Hour))
	far.Location = &entity.Location{Lat: 48.8566, Lon: 2.3522} // Paris
	noLoc := searchAd("ad_noloc", false, now.Add(-time.Hour))
	adRepo.On("Search", mock.Anything, mock.Anything).Return([]*entity.Ad{near, far, noLoc}, nil).Once()

	results, err := svc.Search(context.Background(), SearchFilter{
		Geo: &GeoFilter{Lat: 52.5, Lon: 13.4, RadiusKm: 50},
	})

	assert.NoError(t, err)
	assert.Len(t, results, 1)
	assert.Equal(t, "ad_near", results[0].ID)
}

func TestSearchService_LimitNormalization(t *testing.T) {
	adRepo := new(MockAdRepository)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc := newSearchForTest(adRepo, now)

	ads := make([]*entity.Ad, 0, 30)
	for i := 0; i < 30; i++ {
		ads = append(ads, searchAd(adIDForIndex(i), false, now.Add(-time.Duration(i)*time.Minute)))
	}
	// The store scan is always bounded by the geo scan limit; the requested
	// page size is applied after filtering.
	adRepo.On("Search", mock.Anything, mock.MatchedBy(func(p repository.SearchAdsParams) bool {
		return p.Limit == 500
	})).Return(ads, nil).Twice()

	results, err := svc.Search(context.Background(), SearchFilter{Limit: 0})
	assert.NoError(t, err)
	assert.Len(t, results, 20)

	results, err = svc.Search(context.Background(), SearchFilter{Limit: 1000})
	assert.NoError(t, err)
	assert.Len(t, results, 30)
	adRepo.AssertExpectations(t)
}

func adIDForIndex(i int) string {
	return "ad_" + string(rune('a'+i%26)) + string(rune('a'+i/26))
}

func TestSearchService_ValidationFailsClosed(t *testing.T) {
	adRepo := new(MockAdRepository)
	svc := newSearchForTest(adRepo, time.Now())

	var verr *entity.ValidationError

	_, err := svc.Search(context.Background(), SearchFilter{Category: "spaceships"})
	assert.ErrorAs(t, err, &verr)
	assert.Equal(t, "category", verr.Field)

	_, err = svc.Search(context.Background(), SearchFilter{Subcategory: "Cars"})
	assert.ErrorAs(t, err, &verr)
	assert.Equal(t, "subcategory", verr.Field)

	_, err = svc.Search(context.Background(), SearchFilter{Category: "jobs", Subcategory: "Cars"})
	assert.ErrorAs(t, err, &verr)
	assert.Equal(t, "subcategory", verr.Field)

	adRepo.AssertNotCalled(t, "Search", mock.Anything, mock.Anything)
}
