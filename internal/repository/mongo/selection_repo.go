// internal/repository/mongo/selection_repo.go
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

const selectionCollectionName = "exercise_selections"

// mongoSelectionRepository implements repository.SelectionRepository.
type mongoSelectionRepository struct {
	collection *mongo.Collection
}

// NewMongoSelectionRepository creates a new UserExerciseSelection repository.
func NewMongoSelectionRepository(db *mongo.Database) repository.SelectionRepository {
	return &mongoSelectionRepository{
		collection: db.Collection(selectionCollectionName),
	}
}

// CreateMany inserts a batch of selections (staged or bound).
func (r *mongoSelectionRepository) CreateMany(ctx context.Context, selections []domain.UserExerciseSelection) error {
	if len(selections) == 0 {
		return nil
	}
	now := time.Now().UTC()
	docs := make([]interface{}, len(selections))
	for i := range selections {
		selections[i].ID = primitive.NewObjectID()
		selections[i].CreatedAt = now
		docs[i] = selections[i]
	}
	_, err := r.collection.InsertMany(ctx, docs)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			// The unique (subscriptionId, slotNumber) index caught a duplicate.
			return errors.New("duplicate selection for slot")
		}
		return err
	}
	return nil
}

// GetBySubscriptionID retrieves the selections bound to a subscription.
func (r *mongoSelectionRepository) GetBySubscriptionID(ctx context.Context, subscriptionID primitive.ObjectID) ([]domain.UserExerciseSelection, error) {
	return r.find(ctx, bson.M{"subscriptionId": subscriptionID})
}

// GetByStagingToken retrieves staged selections not yet bound to a subscription.
func (r *mongoSelectionRepository) GetByStagingToken(ctx context.Context, token string) ([]domain.UserExerciseSelection, error) {
	return r.find(ctx, bson.M{"stagingToken": token, "subscriptionId": nil})
}

func (r *mongoSelectionRepository) find(ctx context.Context, filter bson.M) ([]domain.UserExerciseSelection, error) {
	findOptions := options.Find().SetSort(bson.D{{Key: "slotNumber", Value: 1}})
	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var selections []domain.UserExerciseSelection
	if err = cursor.All(ctx, &selections); err != nil {
		return nil, err
	}
	if err = cursor.Err(); err != nil {
		return nil, err
	}
	return selections, nil
}

// BindStagedToSubscription re-binds staged selections to a freshly created
// subscription and drops their staging token.
func (r *mongoSelectionRepository) BindStagedToSubscription(ctx context.Context, token string, subscriptionID primitive.ObjectID) error {
	if token == "" || subscriptionID == primitive.NilObjectID {
		return errors.New("staging token and subscription ID are required")
	}
	filter := bson.M{"stagingToken": token, "subscriptionId": nil}
	update := bson.M{
		"$set":   bson.M{"subscriptionId": subscriptionID},
		"$unset": bson.M{"stagingToken": ""},
	}
	result, err := r.collection.UpdateMany(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// EnsureSelectionIndexes creates necessary indexes. Call during startup.
func EnsureSelectionIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			// One selection per slot per subscription.
			Keys: bson.D{{Key: "subscriptionId", Value: 1}, {Key: "slotNumber", Value: 1}},
			Options: options.Index().SetUnique(true).
				SetPartialFilterExpression(bson.M{"subscriptionId": bson.M{"$type": "objectId"}}),
		},
		{
			Keys:    bson.D{{Key: "stagingToken", Value: 1}},
			Options: options.Index().SetSparse(true),
		},
	}
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		// Index creation failure is not fatal at startup; queries still work.
	}
}
