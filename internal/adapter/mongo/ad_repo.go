package mongo

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/classifly/ad-service/internal/app/config"
	"github.com/classifly/ad-service/internal/domain/entity"
	"github.com/classifly/ad-service/internal/repository"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const adCollectionName = "ads"

type adRepository struct {
	db         *mongo.Database
	collection *mongo.Collection
}

func NewAdRepository(client *mongo.Client, cfg config.MongoDBConfig) repository.AdRepository {
	database := client.Database(cfg.Database)
	return &adRepository{
		db:         database,
		collection: database.Collection(adCollectionName),
	}
}

func (r *adRepository) Create(ctx context.Context, ad *entity.Ad) error {
	_, err := r.collection.InsertOne(ctx, ad)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrAlreadyExists
		}
		return fmt.Errorf("failed to create ad: %w", err)
	}
	return nil
}

func (r *adRepository) GetByID(ctx context.Context, adID string) (*entity.Ad, error) {
	var ad entity.Ad
	err := r.collection.FindOne(ctx, bson.M{"_id": adID}).Decode(&ad)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get ad by ID %s: %w", adID, err)
	}
	return &ad, nil
}

func (r *adRepository) Update(ctx context.Context, ad *entity.Ad) error {
	filter := bson.M{
		"_id":     ad.ID,
		"status":  entity.StatusActive,
		"version": ad.Version,
	}
	update := bson.M{
		"$set": bson.M{
			"title":       ad.Title,
			"description": ad.Description,
			"price":       ad.Price,
			"images":      ad.Images,
			"subcategory": ad.Subcategory,
			"updated_at":  time.Now().UTC(),
		},
		"$inc": bson.M{"version": 1},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to update ad %s: %w", ad.ID, err)
	}
	if result.MatchedCount == 0 {
		return r.classifyMiss(ctx, ad.ID, ad.Version)
	}
	ad.Version++
	return nil
}

func (r *adRepository) SetStatus(ctx context.Context, adID string, from, to entity.AdStatus) error {
	filter := bson.M{"_id": adID, "status": from}
	update := bson.M{
		"$set": bson.M{
			"status":     to,
			"updated_at": time.Now().UTC(),
		},
		"$inc": bson.M{"version": 1},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to set status of ad %s to %s: %w", adID, to, err)
	}
	if result.MatchedCount == 0 {
		var existing entity.Ad
		errFind := r.collection.FindOne(ctx, bson.M{"_id": adID}).Decode(&existing)
		if errors.Is(errFind, mongo.ErrNoDocuments) {
			return repository.ErrNotFound
		}
		return repository.ErrStatusConflict
	}
	return nil
}

func (r *adRepository) Delete(ctx context.Context, adID string) error {
	update := bson.M{
		"$set": bson.M{
			"status":     entity.StatusDeleted,
			"updated_at": time.Now().UTC(),
		},
		"$inc": bson.M{"version": 1},
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": adID}, update)
	if err != nil {
		return fmt.Errorf("failed to delete ad %s: %w", adID, err)
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *adRepository) SetUpgradePending(ctx context.Context, adID string, pending bool) error {
	update := bson.M{
		"$set": bson.M{
			"upgrade_pending": pending,
			"updated_at":      time.Now().UTC(),
		},
		"$inc": bson.M{"version": 1},
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": adID}, update)
	if err != nil {
		return fmt.Errorf("failed to set upgrade_pending of ad %s: %w", adID, err)
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *adRepository) MarkPremium(ctx context.Context, adID string, expiresAt time.Time) (bool, error) {
	filter := bson.M{"_id": adID, "is_paid": false}
	update := bson.M{
		"$set": bson.M{
			"is_paid":         true,
			"upgrade_pending": false,
			"expires_at":      expiresAt.UTC(),
			"updated_at":      time.Now().UTC(),
		},
		"$inc": bson.M{"version": 1},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("failed to mark ad %s premium: %w", adID, err)
	}
	if result.MatchedCount == 0 {
		var existing entity.Ad
		errFind := r.collection.FindOne(ctx, bson.M{"_id": adID}).Decode(&existing)
		if errors.Is(errFind, mongo.ErrNoDocuments) {
			return false, repository.ErrNotFound
		}
		if errFind != nil {
			return false, fmt.Errorf("failed to re-read ad %s: %w", adID, errFind)
		}
		// Already premium: idempotent no-op.
		return false, nil
	}
	return true, nil
}

func (r *adRepository) ListByOwner(ctx context.Context, ownerID string) ([]*entity.Ad, error) {
	filter := bson.M{
		"owner_id": ownerID,
		"status":   bson.M{"$ne": entity.StatusDeleted},
	}
	findOptions := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to list ads for owner %s: %w", ownerID, err)
	}
	defer cursor.Close(ctx)

	var ads []*entity.Ad
	if err = cursor.All(ctx, &ads); err != nil {
		return nil, fmt.Errorf("failed to decode ads for owner %s: %w", ownerID, err)
	}
	return ads, nil
}

func (r *adRepository) Search(ctx context.Context, params repository.SearchAdsParams) ([]*entity.Ad, error) {
	filter := bson.M{}
	if params.IncludeExpired {
		filter["status"] = bson.M{"$ne": entity.StatusDeleted}
	} else {
		filter["status"] = entity.StatusActive
	}
	if params.Category != "" {
		filter["category"] = params.Category
	}
	if params.Subcategory != "" {
		filter["subcategory"] = params.Subcategory
	}
	if params.Text != "" {
		// Match user text as a literal substring.
		pattern := regexp.QuoteMeta(params.Text)
		filter["$or"] = bson.A{
			bson.M{"title": bson.M{"$regex": pattern, "$options": "i"}},
			bson.M{"description": bson.M{"$regex": pattern, "$options": "i"}},
		}
	}

	findOptions := options.Find().SetSort(bson.D{
		{Key: "is_paid", Value: -1},
		{Key: "created_at", Value: -1},
		{Key: "_id", Value: 1},
	})
	if params.Limit > 0 {
		findOptions.SetLimit(params.Limit)
	}

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to search ads: %w", err)
	}
	defer cursor.Close(ctx)

	var ads []*entity.Ad
	if err = cursor.All(ctx, &ads); err != nil {
		return nil, fmt.Errorf("failed to decode searched ads: %w", err)
	}
	return ads, nil
}

func (r *adRepository) classifyMiss(ctx context.Context, adID string, version int) error {
	var existing entity.Ad
	errFind := r.collection.FindOne(ctx, bson.M{"_id": adID}).Decode(&existing)
	if errors.Is(errFind, mongo.ErrNoDocuments) {
		return repository.ErrNotFound
	}
	if errFind == nil && existing.Version != version {
		return repository.ErrOptimisticLock
	}
	if errFind == nil && existing.Status != entity.StatusActive {
		return repository.ErrStatusConflict
	}
	return repository.ErrUpdateFailed
}
