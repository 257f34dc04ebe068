package service

import (
	"context"
	"time"

	"github.com/classifly/ad-service/internal/adapter/checkout"
	"github.com/classifly/ad-service/internal/domain/entity"
	"github.com/classifly/ad-service/internal/repository"
	"github.com/stretchr/testify/mock"
)

type MockAdRepository struct {
	mock.Mock
}

func (m *MockAdRepository) Create(ctx context.Context, ad *entity.Ad) error {
	args := m.Called(ctx, ad)
	return args.Error(0)
}

func (m *MockAdRepository) GetByID(ctx context.Context, adID string) (*entity.Ad, error) {
	args := m.Called(ctx, adID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Ad), args.Error(1)
}

func (m *MockAdRepository) Update(ctx context.Context, ad *entity.Ad) error {
	args := m.Called(ctx, ad)
	return args.Error(0)
}

func (m *MockAdRepository) SetStatus(ctx context.Context, adID string, from, to entity.AdStatus) error {
	args := m.Called(ctx, adID, from, to)
	return args.Error(0)
}

func (m *MockAdRepository) SetUpgradePending(ctx context.Context, adID string, pending bool) error {
	args := m.Called(ctx, adID, pending)
	return args.Error(0)
}

func (m *MockAdRepository) Delete(ctx context.Context, adID string) error {
	args := m.Called(ctx, adID)
	return args.Error(0)
}

func (m *MockAdRepository) MarkPremium(ctx context.Context, adID string, expiresAt time.Time) (bool, error) {
	args := m.Called(ctx, adID, expiresAt)
	return args.Bool(0), args.Error(1)
}

func (m *MockAdRepository) ListByOwner(ctx context.Context, ownerID string) ([]*entity.Ad, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.Ad), args.Error(1)
}

func (m *MockAdRepository) Search(ctx context.Context, params repository.SearchAdsParams) ([]*entity.Ad, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.Ad), args.Error(1)
}

type MockAdCache struct {
	mock.Mock
}

func (m *MockAdCache) Get(ctx context.Context, adID string) (*entity.Ad, error) {
	args := m.Called(ctx, adID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Ad), args.Error(1)
}

func (m *MockAdCache) Set(ctx context.Context, ad *entity.Ad, ttl time.Duration) error {
	args := m.Called(ctx, ad, ttl)
	return args.Error(0)
}

func (m *MockAdCache) Delete(ctx context.Context, adID string) error {
	args := m.Called(ctx, adID)
	return args.Error(0)
}

type MockPaymentSessionRepository struct {
	mock.Mock
}

func (m *MockPaymentSessionRepository) Create(ctx context.Context, session *entity.PaymentSession) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *MockPaymentSessionRepository) GetByID(ctx context.Context, sessionID string) (*entity.PaymentSession, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.PaymentSession), args.Error(1)
}

func (m *MockPaymentSessionRepository) UpdateStatus(ctx context.Context, sessionID string, from, to entity.PaymentStatus) error {
	args := m.Called(ctx, sessionID, from, to)
	return args.Error(0)
}

type MockCheckoutClient struct {
	mock.Mock
}

func (m *MockCheckoutClient) CreateSession(ctx context.Context, req checkout.CreateSessionRequest) (*checkout.Session, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*checkout.Session), args.Error(1)
}

func (m *MockCheckoutClient) GetSessionStatus(ctx context.Context, sessionID string) (entity.PaymentStatus, error) {
	args := m.Called(ctx, sessionID)
	return args.Get(0).(entity.PaymentStatus), args.Error(1)
}

type MockMessagePublisher struct {
	mock.Mock
}

func (m *MockMessagePublisher) Publish(ctx context.Context, subject string, message interface{}) error {
	args := m.Called(ctx, subject, message)
	return args.Error(0)
}

func (m *MockMessagePublisher) PublishRaw(ctx context.Context, subject string, data []byte) error {
	args := m.Called(ctx, subject, data)
	return args.Error(0)
}

type MockEmailSender struct {
	mock.Mock
}

func (m *MockEmailSender) Send(ctx context.Context, to []string, subject, bodyHTML, bodyText string) error {
	args := m.Called(ctx, to, subject, bodyHTML, bodyText)
	return args.Error(0)
}

type MockUpgradeStarter struct {
	mock.Mock
}

func (m *MockUpgradeStarter) BeginUpgrade(ctx context.Context, ownerID, adID, originURL string) (*UpgradeHandle, error) {
	args := m.Called(ctx, ownerID, adID, originURL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*UpgradeHandle), args.Error(1)
}
