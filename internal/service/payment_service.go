package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/classifly/ad-service/internal/adapter/checkout"
	"github.com/classifly/ad-service/internal/adapter/email"
	"github.com/classifly/ad-service/internal/adapter/nats"
	"github.com/classifly/ad-service/internal/domain/entity"
	"github.com/classifly/ad-service/internal/platform/logger"
	"github.com/classifly/ad-service/internal/repository"
	"go.opentelemetry.io/otel"
)

const natsSubjectPremiumActivated = "ad.premium.activated"

// UpgradeOutcome is the result of reconciling one payment session: confirmed
// when the premium was applied, failed when the provider reported a terminal
// failure, pending when the bounded poll exhausted its attempts without a
// terminal answer.
type UpgradeOutcome string

const (
	UpgradeConfirmed UpgradeOutcome = "confirmed"
	UpgradeFailed    UpgradeOutcome = "failed"
	UpgradePending   UpgradeOutcome = "pending"
)

type PaymentService interface {
	UpgradeStarter

	// PollStatus reconciles a checkout session against the provider with a
	// bounded number of polls, applying the premium exactly once on success.
	PollStatus(ctx context.Context, requesterID, requesterEmail, sessionID string) (UpgradeOutcome, *entity.PaymentSession, error)
}

type PaymentServiceConfig struct {
	PremiumPrice    float64
	Currency        string
	PremiumDuration time.Duration
	PollAttempts    int
	PollInterval    time.Duration
}

type paymentService struct {
	sessionRepo  repository.PaymentSessionRepository
	adRepo       repository.AdRepository
	cache        repository.AdCache
	provider     checkout.Client
	msgPublisher nats.MessagePublisher
	emailSender  email.EmailSender
	log          logger.Logger
	cfg          PaymentServiceConfig
	now          func() time.Time
	sleep        func(ctx context.Context, d time.Duration) error
}

func NewPaymentService(
	sessionRepo repository.PaymentSessionRepository,
	adRepo repository.AdRepository,
	cache repository.AdCache,
	provider checkout.Client,
	msgPublisher nats.MessagePublisher,
	emailSender email.EmailSender,
	log logger.Logger,
	cfg PaymentServiceConfig,
) PaymentService {
	return &paymentService{
		sessionRepo:  sessionRepo,
		adRepo:       adRepo,
		cache:        cache,
		provider:     provider,
		msgPublisher: msgPublisher,
		emailSender:  emailSender,
		log:          log,
		cfg:          cfg,
		now:          time.Now,
		sleep:        sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (s *paymentService) BeginUpgrade(ctx context.Context, ownerID, adID, originURL string) (*UpgradeHandle, error) {
	ctx, span := otel.Tracer("ad-service/payment").Start(ctx, "PaymentService.BeginUpgrade")
	defer span.End()

	ad, err := s.adRepo.GetByID(ctx, adID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAdNotFound
		}
		return nil, fmt.Errorf("failed to load ad %s: %w", adID, err)
	}
	if ad.OwnerID != ownerID {
		return nil, ErrForbidden
	}
	if ad.IsPaid {
		return nil, fmt.Errorf("ad %s is already premium: %w", adID, ErrConflict)
	}
	if ad.Status != entity.StatusActive {
		return nil, fmt.Errorf("ad %s is not active: %w", adID, ErrConflict)
	}

	session, err := s.provider.CreateSession(ctx, checkout.CreateSessionRequest{
		Amount:     s.cfg.PremiumPrice,
		Currency:   s.cfg.Currency,
		SuccessURL: originURL + "/payment-success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:  originURL + "/post-ad",
		Metadata: map[string]string{
			"ad_id":    adID,
			"owner_id": ownerID,
			"type":     "premium_ad",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open checkout session for ad %s: %w", adID, err)
	}

	record, err := entity.NewPaymentSession(session.SessionID, adID, ownerID, s.cfg.PremiumPrice, s.cfg.Currency, s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to build payment session record: %w", err)
	}
	if err := s.sessionRepo.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to store payment session %s: %w", session.SessionID, err)
	}

	if err := s.adRepo.SetUpgradePending(ctx, adID, true); err != nil {
		s.log.Warnf("Failed to flag ad %s as upgrade pending: %v", adID, err)
	}
	if err := s.cache.Delete(ctx, adID); err != nil && !errors.Is(err, repository.ErrNotFound) {
		s.log.Warnf("Failed to invalidate cache for ad %s: %v", adID, err)
	}

	s.log.Infof("Opened checkout session %s for ad %s (owner %s)", session.SessionID, adID, ownerID)
	return &UpgradeHandle{SessionID: session.SessionID, RedirectURL: session.RedirectURL}, nil
}

func (s *paymentService) PollStatus(ctx context.Context, requesterID, requesterEmail, sessionID string) (UpgradeOutcome, *entity.PaymentSession, error) {
	ctx, span := otel.Tracer("ad-service/payment").Start(ctx, "PaymentService.PollStatus")
	defer span.End()

	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", nil, ErrSessionNotFound
		}
		return "", nil, fmt.Errorf("failed to load payment session %s: %w", sessionID, err)
	}
	if session.OwnerID != requesterID {
		return "", nil, ErrForbidden
	}

	// A rerun of an already settled session never polls the provider again.
	if session.Terminal() {
		if session.Status == entity.PaymentPaid {
			if err := s.confirmPremium(ctx, session, requesterEmail); err != nil {
				return "", nil, err
			}
			return UpgradeConfirmed, session, nil
		}
		return UpgradeFailed, session, nil
	}

	for attempt := 1; attempt <= s.cfg.PollAttempts; attempt++ {
		status, err := s.provider.GetSessionStatus(ctx, sessionID)
		if err != nil {
			// A provider hiccup burns the attempt rather than failing the
			// reconciliation outright.
			s.log.Warnf("Poll %d/%d for session %s failed: %v", attempt, s.cfg.PollAttempts, sessionID, err)
		} else {
			switch status {
			case entity.PaymentPaid:
				return s.settlePaid(ctx, session, requesterEmail)
			case entity.PaymentFailed, entity.PaymentExpired:
				return s.settleFailed(ctx, session, status)
			}
		}

		if attempt < s.cfg.PollAttempts {
			if err := s.sleep(ctx, s.cfg.PollInterval); err != nil {
				return "", nil, fmt.Errorf("payment polling interrupted: %w", err)
			}
		}
	}

	s.log.Infof("Session %s still pending after %d polls", sessionID, s.cfg.PollAttempts)
	return UpgradePending, session, nil
}

func (s *paymentService) settlePaid(ctx context.Context, session *entity.PaymentSession, requesterEmail string) (UpgradeOutcome, *entity.PaymentSession, error) {
	err := s.sessionRepo.UpdateStatus(ctx, session.SessionID, entity.PaymentPending, entity.PaymentPaid)
	if err != nil && !errors.Is(err, repository.ErrStatusConflict) {
		return "", nil, fmt.Errorf("failed to record payment for session %s: %w", session.SessionID, err)
	}
	session.Status = entity.PaymentPaid

	if err := s.confirmPremium(ctx, session, requesterEmail); err != nil {
		return "", nil, err
	}
	return UpgradeConfirmed, session, nil
}

func (s *paymentService) settleFailed(ctx context.Context, session *entity.PaymentSession, status entity.PaymentStatus) (UpgradeOutcome, *entity.PaymentSession, error) {
	err := s.sessionRepo.UpdateStatus(ctx, session.SessionID, entity.PaymentPending, status)
	if err != nil && !errors.Is(err, repository.ErrStatusConflict) {
		return "", nil, fmt.Errorf("failed to record payment failure for session %s: %w", session.SessionID, err)
	}
	session.Status = status

	// The ad goes back to a plain free listing; a later attempt opens a fresh
	// session.
	if err := s.adRepo.SetUpgradePending(ctx, session.AdID, false); err != nil {
		s.log.Warnf("Failed to clear upgrade-pending flag for ad %s: %v", session.AdID, err)
	}
	if err := s.cache.Delete(ctx, session.AdID); err != nil && !errors.Is(err, repository.ErrNotFound) {
		s.log.Warnf("Failed to invalidate cache for ad %s: %v", session.AdID, err)
	}

	s.log.Infof("Session %s settled as %s for ad %s", session.SessionID, status, session.AdID)
	return UpgradeFailed, session, nil
}

// confirmPremium applies the paid upgrade to the ad. MarkPremium is
// conditional on is_paid still being false, so concurrent confirmations of
// the same session converge on a single winner and the rest are no-ops.
func (s *paymentService) confirmPremium(ctx context.Context, session *entity.PaymentSession, requesterEmail string) error {
	ad, err := s.adRepo.GetByID(ctx, session.AdID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrAdNotFound
		}
		return fmt.Errorf("failed to load ad %s for premium confirmation: %w", session.AdID, err)
	}

	expiresAt := ad.CreatedAt.Add(s.cfg.PremiumDuration)
	applied, err := s.adRepo.MarkPremium(ctx, session.AdID, expiresAt)
	if err != nil {
		return fmt.Errorf("failed to mark ad %s premium: %w", session.AdID, err)
	}
	if !applied {
		return nil
	}

	if err := s.cache.Delete(ctx, session.AdID); err != nil && !errors.Is(err, repository.ErrNotFound) {
		s.log.Warnf("Failed to invalidate cache for ad %s: %v", session.AdID, err)
	}
	if errPub := s.msgPublisher.Publish(ctx, natsSubjectPremiumActivated, map[string]string{
		"ad_id":          session.AdID,
		"session_id":     session.SessionID,
		"transaction_id": session.TransactionID,
	}); errPub != nil {
		s.log.Errorf("Failed to publish premium activation for ad %s: %v", session.AdID, errPub)
	}

	if s.emailSender != nil && requesterEmail != "" {
		s.sendReceipt(ctx, session, ad, requesterEmail)
	}

	s.log.Infof("Ad %s upgraded to premium via session %s (expires %s)", session.AdID, session.SessionID, expiresAt.Format(time.RFC3339))
	return nil
}

func (s *paymentService) sendReceipt(ctx context.Context, session *entity.PaymentSession, ad *entity.Ad, to string) {
	subject := "Your premium listing is live"
	bodyText := fmt.Sprintf(
		"Your ad %q is now a premium listing.\n\nTransaction: %s\nAmount: %.2f %s\n",
		ad.Title, session.TransactionID, session.Amount, session.Currency,
	)
	if err := s.emailSender.Send(ctx, []string{to}, subject, "", bodyText); err != nil {
		s.log.Warnf("Failed to send premium receipt for session %s: %v", session.SessionID, err)
	}
}
