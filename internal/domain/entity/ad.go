package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type AdStatus string

const (
	StatusActive  AdStatus = "active"
	StatusExpired AdStatus = "expired"
	StatusDeleted AdStatus = "deleted"
)

// FreeImageCap is the non-negotiable ceiling for ads whose payment has not
// been confirmed. The premium ceiling comes from configuration.
const FreeImageCap = 5

type Ad struct {
	ID             string    `bson:"_id" json:"ad_id"`
	OwnerID        string    `bson:"owner_id" json:"owner_id"`
	Title          string    `bson:"title" json:"title"`
	Description    string    `bson:"description" json:"description"`
	Category       string    `bson:"category" json:"category"`
	Subcategory    string    `bson:"subcategory,omitempty" json:"subcategory,omitempty"`
	Price          float64   `bson:"price" json:"price"`
	Images         []string  `bson:"images" json:"images"`
	Location       *Location `bson:"location,omitempty" json:"location,omitempty"`
	IsPaid         bool      `bson:"is_paid" json:"is_paid"`
	UpgradePending bool      `bson:"upgrade_pending" json:"upgrade_pending"`
	Status         AdStatus  `bson:"status" json:"status"`
	CreatedAt      time.Time `bson:"created_at" json:"created_at"`
	ExpiresAt      time.Time `bson:"expires_at" json:"expires_at"`
	UpdatedAt      time.Time `bson:"updated_at" json:"updated_at"`
	Version        int       `bson:"version" json:"-"`
}

// AdDraft is the caller-supplied part of a new ad, before the catalog assigns
// identity and timestamps.
type AdDraft struct {
	Title       string
	Description string
	Category    string
	Subcategory string
	Price       float64
	Images      []string
	Location    *Location
}

func NewAd(ownerID string, draft AdDraft, now time.Time, listingDuration time.Duration) (*Ad, error) {
	if ownerID == "" {
		return nil, &ValidationError{Field: "owner_id", Reason: "cannot be empty"}
	}
	if strings.TrimSpace(draft.Title) == "" {
		return nil, &ValidationError{Field: "title", Reason: "cannot be empty"}
	}
	if strings.TrimSpace(draft.Description) == "" {
		return nil, &ValidationError{Field: "description", Reason: "cannot be empty"}
	}
	if draft.Price < 0 {
		return nil, &ValidationError{Field: "price", Reason: "cannot be negative"}
	}
	if len(draft.Images) == 0 {
		return nil, &ValidationError{Field: "images", Reason: "at least one image is required"}
	}
	if len(draft.Images) > FreeImageCap {
		return nil, &ValidationError{Field: "images", Reason: "free ads are limited to 5 images"}
	}
	if listingDuration <= 0 {
		return nil, &ValidationError{Field: "listing_duration", Reason: "must be positive"}
	}

	now = now.UTC()
	return &Ad{
		ID:          NewAdID(),
		OwnerID:     ownerID,
		Title:       draft.Title,
		Description: draft.Description,
		Category:    draft.Category,
		Subcategory: draft.Subcategory,
		Price:       draft.Price,
		Images:      draft.Images,
		Location:    draft.Location,
		IsPaid:      false,
		Status:      StatusActive,
		CreatedAt:   now,
		ExpiresAt:   now.Add(listingDuration),
		UpdatedAt:   now,
		Version:     1,
	}, nil
}

// NewAdID follows the original identifier scheme: "ad_" plus twelve hex chars.
func NewAdID() string {
	return "ad_" + strings.ReplaceAll(uuid.New().String(), "-", "")[:12]
}

// ExpiredAt reports whether the ad is past its listing window at the given
// instant, regardless of what the persisted status field says. The query
// engine treats this as the source of truth for lazy expiry.
func (a *Ad) ExpiredAt(now time.Time) bool {
	return !now.Before(a.ExpiresAt)
}

// ImageCap returns the image ceiling that applies to this ad's committed
// payment state.
func (a *Ad) ImageCap(premiumCap int) int {
	if a.IsPaid {
		return premiumCap
	}
	return FreeImageCap
}

// Editable reports whether field mutations are currently allowed. Edits are
// blocked while a premium upgrade is awaiting confirmation so the image-cap
// check cannot race the payment flip.
func (a *Ad) Editable() bool {
	return a.Status == StatusActive && !a.UpgradePending
}
