package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentFailed  PaymentStatus = "failed"
	PaymentExpired PaymentStatus = "expired"
)

// PaymentSession tracks one premium-upgrade attempt against the external
// checkout provider. The session identifier is issued by the provider and is
// never reused across ads.
type PaymentSession struct {
	SessionID     string        `bson:"_id" json:"session_id"`
	TransactionID string        `bson:"transaction_id" json:"transaction_id"`
	AdID          string        `bson:"ad_id" json:"ad_id"`
	OwnerID       string        `bson:"owner_id" json:"owner_id"`
	Amount        float64       `bson:"amount" json:"amount"`
	Currency      string        `bson:"currency" json:"currency"`
	Status        PaymentStatus `bson:"payment_status" json:"payment_status"`
	CreatedAt     time.Time     `bson:"created_at" json:"created_at"`
	UpdatedAt     time.Time     `bson:"updated_at" json:"updated_at"`
}

func NewPaymentSession(sessionID, adID, ownerID string, amount float64, currency string, now time.Time) (*PaymentSession, error) {
	if sessionID == "" {
		return nil, &ValidationError{Field: "session_id", Reason: "cannot be empty"}
	}
	if adID == "" {
		return nil, &ValidationError{Field: "ad_id", Reason: "cannot be empty"}
	}
	if ownerID == "" {
		return nil, &ValidationError{Field: "owner_id", Reason: "cannot be empty"}
	}
	if amount <= 0 {
		return nil, &ValidationError{Field: "amount", Reason: "must be positive"}
	}

	now = now.UTC()
	return &PaymentSession{
		SessionID:     sessionID,
		TransactionID: NewTransactionID(),
		AdID:          adID,
		OwnerID:       ownerID,
		Amount:        amount,
		Currency:      currency,
		Status:        PaymentPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

func NewTransactionID() string {
	return "txn_" + strings.ReplaceAll(uuid.New().String(), "-", "")[:12]
}

// Terminal reports whether the session can no longer change state.
func (s *PaymentSession) Terminal() bool {
	return s.Status == PaymentPaid || s.Status == PaymentFailed || s.Status == PaymentExpired
}
