package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/classifly/ad-service/internal/app/config"
	"github.com/classifly/ad-service/internal/domain/entity"
	"github.com/classifly/ad-service/internal/repository"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const paymentSessionCollectionName = "payment_sessions"

type paymentSessionRepository struct {
	collection *mongo.Collection
}

func NewPaymentSessionRepository(client *mongo.Client, cfg config.MongoDBConfig) repository.PaymentSessionRepository {
	return &paymentSessionRepository{
		collection: client.Database(cfg.Database).Collection(paymentSessionCollectionName),
	}
}

func (r *paymentSessionRepository) Create(ctx context.Context, session *entity.PaymentSession) error {
	_, err := r.collection.InsertOne(ctx, session)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrAlreadyExists
		}
		return fmt.Errorf("failed to create payment session: %w", err)
	}
	return nil
}

func (r *paymentSessionRepository) GetByID(ctx context.Context, sessionID string) (*entity.PaymentSession, error) {
	var session entity.PaymentSession
	err := r.collection.FindOne(ctx, bson.M{"_id": sessionID}).Decode(&session)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get payment session %s: %w", sessionID, err)
	}
	return &session, nil
}

func (r *paymentSessionRepository) UpdateStatus(ctx context.Context, sessionID string, from, to entity.PaymentStatus) error {
	filter := bson.M{"_id": sessionID, "payment_status": from}
	update := bson.M{
		"$set": bson.M{
			"payment_status": to,
			"updated_at":     time.Now().UTC(),
		},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to update payment session %s status to %s: %w", sessionID, to, err)
	}
	if result.MatchedCount == 0 {
		var existing entity.PaymentSession
		errFind := r.collection.FindOne(ctx, bson.M{"_id": sessionID}).Decode(&existing)
		if errors.Is(errFind, mongo.ErrNoDocuments) {
			return repository.ErrNotFound
		}
		return repository.ErrStatusConflict
	}
	return nil
}
