// internal/repository/mongo/performance_repo.go
package mongo

import (
	"context"
	"errors"
	"time"

	"peakform/coach-app/internal/domain"
	"peakform/coach-app/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const performanceCollectionName = "workout_performances"

// mongoPerformanceRepository implements repository.PerformanceRepository.
type mongoPerformanceRepository struct {
	collection *mongo.Collection
}

// NewMongoPerformanceRepository creates a new WorkoutPerformance repository.
func NewMongoPerformanceRepository(db *mongo.Database) repository.PerformanceRepository {
	return &mongoPerformanceRepository{
		collection: db.Collection(performanceCollectionName),
	}
}

// Create inserts a logged performance entry.
func (r *mongoPerformanceRepository) Create(ctx context.Context, perf *domain.WorkoutPerformance) (primitive.ObjectID, error) {
	if perf.SubscriptionID == primitive.NilObjectID || perf.UserID == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("performance requires subscriptionId and userId")
	}
	perf.ID = primitive.NewObjectID()
	if perf.CompletedAt.IsZero() {
		perf.CompletedAt = time.Now().UTC()
	}

	result, err := r.collection.InsertOne(ctx, perf)
	if err != nil {
		return primitive.NilObjectID, err
	}
	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted performance ID")
	}
	return insertedID, nil
}

// GetBySubscriptionID retrieves all performances for a subscription, newest first.
func (r *mongoPerformanceRepository) GetBySubscriptionID(ctx context.Context, subscriptionID primitive.ObjectID) ([]domain.WorkoutPerformance, error) {
	findOptions := options.Find().SetSort(bson.D{{Key: "completedAt", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{"subscriptionId": subscriptionID}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var perfs []domain.WorkoutPerformance
	if err = cursor.All(ctx, &perfs); err != nil {
		return nil, err
	}
	if err = cursor.Err(); err != nil {
		return nil, err
	}
	return perfs, nil
}

// CountBySubscriptionID counts logged performances for a subscription.
func (r *mongoPerformanceRepository) CountBySubscriptionID(ctx context.Context, subscriptionID primitive.ObjectID) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{"subscriptionId": subscriptionID})
}

// EnsurePerformanceIndexes creates necessary indexes. Call during startup.
func EnsurePerformanceIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "subscriptionId", Value: 1}, {Key: "completedAt", Value: -1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "userId", Value: 1}},
			Options: options.Index(),
		},
	}
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		// Index creation failure is not fatal at startup; queries still work.
	}
}
