package repository

import (
	"context"

	"github.com/classifly/ad-service/internal/domain/entity"
)

type PaymentSessionRepository interface {
	Create(ctx context.Context, session *entity.PaymentSession) error

	GetByID(ctx context.Context, sessionID string) (*entity.PaymentSession, error)

	// UpdateStatus transitions payment_status conditionally on the current
	// value. ErrStatusConflict means another poller already moved the session
	// on; exactly one caller wins the pending->paid transition.
	UpdateStatus(ctx context.Context, sessionID string, from, to entity.PaymentStatus) error
}
