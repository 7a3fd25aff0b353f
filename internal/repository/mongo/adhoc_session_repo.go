// internal/repository/mongo/adhoc_session_repo.go
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

const adhocSessionCollectionName = "adhoc_sessions"

// mongoAdhocSessionRepository implements repository.AdhocSessionRepository.
type mongoAdhocSessionRepository struct {
	collection *mongo.Collection
}

// NewMongoAdhocSessionRepository creates a new AdhocSession repository.
func NewMongoAdhocSessionRepository(db *mongo.Database) repository.AdhocSessionRepository {
	return &mongoAdhocSessionRepository{
		collection: db.Collection(adhocSessionCollectionName),
	}
}

// Create inserts a new ad-hoc session.
func (r *mongoAdhocSessionRepository) Create(ctx context.Context, session *domain.AdhocSession) (primitive.ObjectID, error) {
	if session.UserID == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("ad-hoc session requires userId")
	}
	session.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	session.CreatedAt = now
	session.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, session)
	if err != nil {
		return primitive.NilObjectID, err
	}
	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted session ID")
	}
	return insertedID, nil
}

// GetByUserID retrieves a user's ad-hoc sessions, newest first.
func (r *mongoAdhocSessionRepository) GetByUserID(ctx context.Context, userID primitive.ObjectID) ([]domain.AdhocSession, error) {
	findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{"userId": userID}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var sessions []domain.AdhocSession
	if err = cursor.All(ctx, &sessions); err != nil {
		return nil, err
	}
	if err = cursor.Err(); err != nil {
		return nil, err
	}
	return sessions, nil
}

// DeactivateAllForUser clears the active flag on every ad-hoc session the
// user owns.
func (r *mongoAdhocSessionRepository) DeactivateAllForUser(ctx context.Context, userID primitive.ObjectID) error {
	filter := bson.M{"userId": userID, "isCurrentlyActive": true}
	update := bson.M{"$set": bson.M{"isCurrentlyActive": false, "updatedAt": time.Now().UTC()}}
	_, err := r.collection.UpdateMany(ctx, filter, update)
	return err
}

// EnsureAdhocSessionIndexes creates necessary indexes. Call during startup.
func EnsureAdhocSessionIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "isCurrentlyActive", Value: 1}},
			Options: options.Index(),
		},
	}
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		// Index creation failure is not fatal at startup; queries still work.
	}
}
