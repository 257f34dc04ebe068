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

func testCatalogConfig() CatalogServiceConfig {
	return CatalogServiceConfig{
		FreeDuration:    30 * 24 * time.Hour,
		PremiumImageCap: 20,
		AdCacheTTL:      5 * time.Minute,
	}
}

func newCatalogForTest(adRepo *MockAdRepository, cache *MockAdCache, upgrades UpgradeStarter, pub *MockMessagePublisher, now time.Time) *catalogService {
	svc := NewCatalogService(adRepo, cache, taxonomy.Default(), upgrades, pub, logger.NoOp{}, testCatalogConfig()).(*catalogService)
	svc.now = func() time.Time { return now }
	return svc
}

func activeAd(id, ownerID string, createdAt time.Time, listingDuration time.Duration) *entity.Ad {
	return &entity.Ad{
		ID:          id,
		OwnerID:     ownerID,
		Title:       "Mountain bike",
		Description: "Barely used",
		Category:    "sales_of_products",
		Subcategory: "Sports & Outdoors",
		Price:       250,
		Images:      []string{"img1.jpg"},
		Status:      entity.StatusActive,
		CreatedAt:   createdAt,
		ExpiresAt:   createdAt.Add(listingDuration),
		UpdatedAt:   createdAt,
		Version:     1,
	}
}

func TestCatalogService_CreateAd_Free(t *testing.T) {
	adRepo := new(MockAdRepository)
	cache := new(MockAdCache)
	pub := new(MockMessagePublisher)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc := newCatalogForTest(adRepo, cache, nil, pub, now)

	adRepo.On("Create", mock.Anything, mock.AnythingOfType("*entity.Ad")).Return(nil).Once()
	pub.On("Publish", mock.Anything, "ad.created", mock.Anything).Return(nil).Once()

	draft := entity.AdDraft{
		Title:       "Mountain bike",
		Description: "Barely used",
		Category:    "sales_of_products",
		Subcategory: "Sports & Outdoors",
		Price:       250,
		Images:      []string{"img1.jpg", "img2.jpg"},
	}
	ad, handle, err := svc.CreateAd(context.Background(), "user1", draft, false, "https://example.com")

	assert.NoError(t, err)
	assert.Nil(t, handle)
	assert.NotNil(t, ad)
	assert.False(t, ad.IsPaid)
	assert.Equal(t, entity.StatusActive, ad.Status)
	assert.Equal(t, now.Add(30*24*time.Hour), ad.ExpiresAt)
	adRepo.AssertExpectations(t)
	pub.AssertExpectations(t)
}

func TestCatalogService_CreateAd_UnknownCategory(t *testing.T) {
	adRepo := new(MockAdRepository)
	cache := new(MockAdCache)
	pub := new(MockMessagePublisher)
	svc := newCatalogForTest(adRepo, cache, nil, pub, time.Now())

	draft := entity.AdDraft{
		Title:       "Something",
		Description: "Anything",
		Category:    "spaceships",
		Images:      []string{"img1.jpg"},
	}
	ad, handle, err := svc.CreateAd(context.Background(), "user1", draft, false, "")

	assert.Error(t, err)
	assert.Nil(t, ad)
	assert.Nil(t, handle)
	var verr *entity.ValidationError
	assert.ErrorAs(t, err, &verr)
	assert.Equal(t, "category", verr.Field)
	adRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCatalogService_CreateAd_SubcategoryFromWrongCategory(t *testing.T) {
	adRepo := new(MockAdRepository)
	cache := new(MockAdCache)
	pub := new(MockMessagePublisher)
	svc := newCatalogForTest(adRepo, cache, nil, pub, time.Now())

	draft := entity.AdDraft{
		Title:       "Something",
		Description: "Anything",
		Category:    "jobs",
		Subcategory: "Cars",
		Images:      []string{"img1.jpg"},
	}
	_, _, err := svc.CreateAd(context.Background(), "user1", draft, false, "")

	var verr *entity.ValidationError
	assert.ErrorAs(t, err, &verr)
	assert.Equal(t, "subcategory", verr.Field)
}

func TestCatalogService_CreateAd_PremiumIntent(t *testing.T) {
	adRepo := new(MockAdRepository)
	cache := new(MockAdCache)
	pub := new(MockMessagePublisher)
	upgrades := new(MockUpgradeStarter)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc := newCatalogForTest(adRepo, cache, upgrades, pub, now)

	adRepo.On("Create", mock.Anything, mock.AnythingOfType("*entity.Ad")).Return(nil).Once()
	pub.On("Publish", mock.Anything, "ad.created", mock.Anything).Return(nil).Once()
	upgrades.On("BeginUpgrade", mock.Anything, "user1", mock.AnythingOfType("string"), "https://example.com").
		Return(&UpgradeHandle{SessionID: "cs_1", RedirectURL: "https://pay.example.com/cs_1"}, nil).Once()

	draft := entity.AdDraft{
		Title:       "Mountain bike",
		Description: "Barely used",
		Category:    "sales_of_products",
		Images:      []string{"img1.jpg"},
	}
	ad, handle, err := svc.CreateAd(context.Background(), "user1", draft, true, "https://example.com")

	assert.NoError(t, err)
	assert.NotNil(t, ad)
	// The ad itself stays unpaid until the provider confirms the session.
	assert.False(t, ad.IsPaid)
	assert.NotNil(t, handle)
	assert.Equal(t, "cs_1", handle.SessionID)
	upgrades.AssertExpectations(t)
}

func TestCatalogService_GetAd_CacheMissThenSet(t *testing.T) {
	adRepo := new(MockAdRepository)
	cache := new(MockAdCache)
	pub := new(MockMessagePublisher)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc := newCatalogForTest(adRepo, cache, nil, pub, now)

	ad := activeAd("ad_abc123", "user1", now.Add(-time.Hour), 30*24*time.Hour)
	cache.On("Get", mock.Anything, "ad_abc123").Return(nil, repository.ErrNotFound).Once()
	adRepo.On("GetByID", mock.Anything, "ad_abc123").Return(ad, nil).Once()
	cache.On("Set", mock.Anything, ad, 5*time.Minute).Return(nil).Once()

	got, err := svc.GetAd(context.Background(), "ad_abc123")

	assert.NoError(t, err)
	assert.Equal(t, ad, got)
	cache.AssertExpectations(t)
	adRepo.AssertExpectations(t)
}

func TestCatalogService_GetAd_LazyExpiry(t *testing.T) {
	adRepo := new(MockAdRepository)
	cache := new(MockAdCache)
	pub := new(MockMessagePublisher)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc := newCatalogForTest(adRepo, cache, nil, pub, now)

	// Stored status still says active, but the window has lapsed.
	ad := activeAd("ad_old", "user1", now.Add(-31*24*time.Hour), 30*24*time.Hour)
	cache.On("Get", mock.Anything, "ad_old").Return(nil, repository.ErrNotFound).Once()
	adRepo.On("GetByID", mock.Anything, "ad_old").Return(ad, nil).Once()
	adRepo.On("SetStatus", mock.Anything, "ad_old", entity.StatusActive, entity.StatusExpired).Return(nil).Once()
	cache.On("Delete", mock.Anything, "ad_old").Return(nil).Once()
	pub.On("Publish", mock.Anything, "ad.expired", mock.Anything).Return(nil).Once()
	cache.On("Set", mock.Anything, ad, 5*time.Minute).Return(nil).Once()

	got, err := svc.GetAd(context.Background(), "ad_old")

	assert.NoError(t, err)
	assert.Equal(t, entity.StatusExpired, got.Status)
	adRepo.AssertExpectations(t)
}

func TestCatalogService_GetAd_LazyExpiry_LostRace(t *testing.T) {
	adRepo := new(MockAdRepository)
	cache := new(MockAdCache)
	pub := new(MockMessagePublisher)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc := newCatalogForTest(adRepo, cache, nil, pub, now)

	ad := activeAd("ad_old", "user1", now.Add(-31*24*time.Hour), 30*24*time.Hour)
	cache.On("Get", mock.Anything, "ad_old").Return(nil, repository.ErrNotFound).Once()
	adRepo.On("GetByID", mock.Anything, "ad_old").Return(ad, nil).Once()
	// Another reader already persisted the transition; no event this time.
	adRepo.On("SetStatus", mock.Anything, "ad_old", entity.StatusActive, entity.StatusExpired).
		Return(repository.ErrStatusConflict).Once()
	cache.On("Delete", mock.Anything, "ad_old").Return(nil).Once()
	cache.On("Set", mock.Anything, ad, 5*time.Minute).Return(nil).Once()

	got, err := svc.GetAd(context.Background(), "ad_old")

	assert.NoError(t, err)
	assert.Equal(t, entity.StatusExpired, got.Status)
	pub.AssertNotCalled(t, "Publish", mock.Anything, "ad.expired", mock.Anything)
}

func TestCatalogService_UpdateAd_NotOwner(t *testing.T) {
	adRepo := new(MockAdRepository)
	cache := new(MockAdCache)
	pub := new(MockMessagePublisher)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc := newCatalogForTest(adRepo, cache, nil, pub, now)

	ad := activeAd("ad_abc123", "user1", now.Add(-time.Hour), 30*24*time.Hour)
	adRepo.On("GetByID", mock.Anything, "ad_abc123").Return(ad, nil).Once()

	title := "New title"
	_, err := svc.UpdateAd(context.Background(), "ad_abc123", "intruder", AdPatch{Title: &title})

	assert.ErrorIs(t, err, ErrForbidden)
	adRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestCatalogService_UpdateAd_ExpiredAdConflicts(t *testing.T) {
	adRepo := new(MockAdRepository)
	cache := new(MockAdCache)
	pub := new(MockMessagePublisher)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc := newCatalogForTest(adRepo, cache, nil, pub, now)

	ad := activeAd("ad_old", "user1", now.Add(-31*24*time.Hour), 30*24*time.Hour)
	adRepo.On("GetByID", mock.Anything, "ad_old").Return(ad, nil).Once()
	adRepo.On("SetStatus", mock.Anything, "ad_old", entity.StatusActive, entity.StatusExpired).Return(nil).Once()
	cache.On("Delete", mock.Anything, "ad_old").Return(nil).Once()
	pub.On("Publish", mock.Anything, "ad.expired", mock.Anything).Return(nil).Once()

	title := "New title"
	_, err := svc.UpdateAd(context.Background(), "ad_old", "user1", AdPatch{Title: &title})

	assert.ErrorIs(t, err, ErrConflict)
	adRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestCatalogService_UpdateAd_BlockedWhileUpgradePending(t *testing.T) {
	adRepo := new(MockAdRepository)
	cache := new(MockAdCache)
	pub := new(MockMessagePublisher)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc := newCatalogForTest(adRepo, cache, nil, pub, now)

	ad := activeAd("ad_abc123", "user1", now.Add(-time.Hour), 30*24*time.Hour)
	ad.UpgradePending = true
	adRepo.On("GetByID", mock.Anything, "ad_abc123").Return(ad, nil).Once()

	price := 300.0
	_, err := svc.UpdateAd(context.Background(), "ad_abc123", "user1", AdPatch{Price: &price})

	assert.ErrorIs(t, err, ErrConflict)
}

func TestCatalogService_UpdateAd_ImageCap(t *testing.T) {
	adRepo := new(MockAdRepository)
	cache := new(MockAdCache)
	pub := new(MockMessagePublisher)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc := newCatalogForTest(adRepo, cache, nil, pub, now)

	sixImages := []string{"1.jpg", "2.jpg", "3.jpg", "4.jpg", "5.jpg", "6.jpg"}

	// A free ad is capped at five images.
	freeAd := activeAd("ad_free", "user1", now.Add(-time.Hour), 30*24*time.Hour)
	adRepo.On("GetByID", mock.Anything, "ad_free").Return(freeAd, nil).Once()

	_, err := svc.UpdateAd(context.Background(), "ad_free", "user1", AdPatch{Images: &sixImages})
	var verr *entity.ValidationError
	assert.ErrorAs(t, err, &verr)
	assert.Equal(t, "images", verr.Field)

	// The same patch succeeds once the ad is premium.
	paidAd := activeAd("ad_paid", "user1", now.Add(-time.Hour), 60*24*time.Hour)
	paidAd.IsPaid = true
	adRepo.On("GetByID", mock.Anything, "ad_paid").Return(paidAd, nil).Once()
	adRepo.On("Update", mock.Anything, paidAd).Return(nil).Once()
	cache.On("Delete", mock.Anything, "ad_paid").Return(nil).Once()

	updated, err := svc.UpdateAd(context.Background(), "ad_paid", "user1", AdPatch{Images: &sixImages})
	assert.NoError(t, err)
	assert.Len(t, updated.Images, 6)
	adRepo.AssertExpectations(t)
}

func TestCatalogService_UpdateAd_OptimisticLockMapsToConflict(t *testing.T) {
	adRepo := new(MockAdRepository)
	cache := new(MockAdCache)
	pub := new(MockMessagePublisher)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc := newCatalogForTest(adRepo, cache, nil, pub, now)

	ad := activeAd("ad_abc123", "user1", now.Add(-time.Hour), 30*24*time.Hour)
	adRepo.On("GetByID", mock.Anything, "ad_abc123").Return(ad, nil).Once()
	adRepo.On("Update", mock.Anything, ad).Return(repository.ErrOptimisticLock).Once()

	title := "New title"
	_, err := svc.UpdateAd(context.Background(), "ad_abc123", "user1", AdPatch{Title: &title})

	assert.ErrorIs(t, err, ErrConflict)
}

func TestCatalogService_DeleteAd(t *testing.T) {
	adRepo := new(MockAdRepository)
	cache := new(MockAdCache)
	pub := new(MockMessagePublisher)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc := newCatalogForTest(adRepo, cache, nil, pub, now)

	ad := activeAd("ad_abc123", "user1", now.Add(-time.Hour), 30*24*time.Hour)
	adRepo.On("GetByID", mock.Anything, "ad_abc123").Return(ad, nil).Once()
	adRepo.On("Delete", mock.Anything, "ad_abc123").Return(nil).Once()
	cache.On("Delete", mock.Anything, "ad_abc123").Return(nil).Once()
	pub.On("Publish", mock.Anything, "ad.deleted", mock.Anything).Return(nil).Once()

	err := svc.DeleteAd(context.Background(), "ad_abc123", "user1")

	assert.NoError(t, err)
	adRepo.AssertExpectations(t)
	pub.AssertExpectations(t)
}

func TestCatalogService_DeleteAd_NotOwner(t *testing.T) {
	adRepo := new(MockAdRepository)
	cache := new(MockAdCache)
	pub := new(MockMessagePublisher)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc := newCatalogForTest(adRepo, cache, nil, pub, now)

	ad := activeAd("ad_abc123", "user1", now.Add(-time.Hour), 30*24*time.Hour)
	adRepo.On("GetByID", mock.Anything, "ad_abc123").Return(ad, nil).Once()

	err := svc.DeleteAd(context.Background(), "ad_abc123", "intruder")

	assert.ErrorIs(t, err, ErrForbidden)
	adRepo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestCatalogService_ListMyAds_PersistsExpiry(t *testing.T) {
	adRepo := new(MockAdRepository)
	cache := new(MockAdCache)
	pub := new(MockMessagePublisher)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc := newCatalogForTest(adRepo, cache, nil, pub, now)

	fresh := activeAd("ad_fresh", "user1", now.Add(-time.Hour), 30*24*time.Hour)
	stale := activeAd("ad_stale", "user1", now.Add(-31*24*time.Hour), 30*24*time.Hour)
	adRepo.On("ListByOwner", mock.Anything, "user1").Return([]*entity.Ad{fresh, stale}, nil).Once()
	adRepo.On("SetStatus", mock.Anything, "ad_stale", entity.StatusActive, entity.StatusExpired).Return(nil).Once()
	cache.On("Delete", mock.Anything, "ad_stale").Return(nil).Once()
	pub.On("Publish", mock.Anything, "ad.expired", mock.Anything).Return(nil).Once()

	ads, err := svc.ListMyAds(context.Background(), "user1")

	assert.NoError(t, err)
	assert.Len(t, ads, 2)
	assert.Equal(t, entity.StatusActive, ads[0].Status)
	assert.Equal(t, entity.StatusExpired, ads[1].Status)
	adRepo.AssertExpectations(t)
}
