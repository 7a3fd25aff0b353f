// internal/repository/mongo/subscription_repo.go
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

const subscriptionCollectionName = "program_subscriptions"

// terminalStatuses is used to exclude ARCHIVED/COMPLETED rows in filters.
var terminalStatuses = bson.A{domain.SubscriptionArchived, domain.SubscriptionCompleted}

// mongoSubscriptionRepository implements repository.SubscriptionRepository.
// It also holds the ad-hoc sessions collection because the exclusivity
// invariant spans both collections.
type mongoSubscriptionRepository struct {
	collection *mongo.Collection
	adhoc      *mongo.Collection
}

// NewMongoSubscriptionRepository creates a new ProgramSubscription repository.
func NewMongoSubscriptionRepository(db *mongo.Database) repository.SubscriptionRepository {
	return &mongoSubscriptionRepository{
		collection: db.Collection(subscriptionCollectionName),
		adhoc:      db.Collection(adhocSessionCollectionName),
	}
}

// Create inserts a new subscription.
func (r *mongoSubscriptionRepository) Create(ctx context.Context, sub *domain.ProgramSubscription) (primitive.ObjectID, error) {
	if sub.UserID == primitive.NilObjectID || sub.ProgramID == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("subscription requires userId and programId")
	}
	sub.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	sub.CreatedAt = now
	sub.UpdatedAt = now
	if sub.StartDate.IsZero() {
		sub.StartDate = now
	}

	result, err := r.collection.InsertOne(ctx, sub)
	if err != nil {
		return primitive.NilObjectID, err
	}
	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted subscription ID")
	}
	return insertedID, nil
}

// GetByID retrieves a single subscription by its ID.
func (r *mongoSubscriptionRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.ProgramSubscription, error) {
	var sub domain.ProgramSubscription
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&sub)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &sub, nil
}

// GetByUserID retrieves all subscriptions owned by a user, newest first.
func (r *mongoSubscriptionRepository) GetByUserID(ctx context.Context, userID primitive.ObjectID) ([]domain.ProgramSubscription, error) {
	findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{"userId": userID}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var subs []domain.ProgramSubscription
	if err = cursor.All(ctx, &subs); err != nil {
		return nil, err
	}
	if err = cursor.Err(); err != nil {
		return nil, err
	}
	return subs, nil
}

// GetNonTerminalByUserAndTemplate returns the user's live enrollment in the
// template, or ErrNotFound.
func (r *mongoSubscriptionRepository) GetNonTerminalByUserAndTemplate(ctx context.Context, userID, templateID primitive.ObjectID) (*domain.ProgramSubscription, error) {
	filter := bson.M{
		"userId":    userID,
		"programId": templateID,
		"status":    bson.M{"$nin": terminalStatuses},
	}
	var sub domain.ProgramSubscription
	err := r.collection.FindOne(ctx, filter).Decode(&sub)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &sub, nil
}

// Update persists the mutable fields of a subscription.
func (r *mongoSubscriptionRepository) Update(ctx context.Context, sub *domain.ProgramSubscription) error {
	if sub.ID == primitive.NilObjectID {
		return errors.New("subscription ID is required for update")
	}

	filter := bson.M{"_id": sub.ID}
	// UserID, ProgramID, StartDate and CreatedAt are never rewritten.
	updateDoc := bson.M{
		"$set": bson.M{
			"status":                 sub.Status,
			"currentWeek":            sub.CurrentWeek,
			"currentDay":             sub.CurrentDay,
			"currentPhaseId":         sub.CurrentPhaseID,
			"currentWeekInPhase":     sub.CurrentWeekInPhase,
			"isCurrentlyActive":      sub.IsCurrentlyActive,
			"workoutsCompleted":      sub.WorkoutsCompleted,
			"adherenceRate":          sub.AdherenceRate,
			"lastWorkoutCompletedAt": sub.LastWorkoutAt,
			"completedAt":            sub.CompletedAt,
			"updatedAt":              time.Now().UTC(),
		},
	}

	result, err := r.collection.UpdateOne(ctx, filter, updateDoc)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// ActivateExclusively clears isCurrentlyActive on every other subscription
// and ad-hoc session owned by the user, then sets it on the target, inside
// one multi-document transaction. The transaction is what keeps two
// concurrent activations for the same user from leaving two rows active.
func (r *mongoSubscriptionRepository) ActivateExclusively(ctx context.Context, userID, subscriptionID primitive.ObjectID) error {
	client := r.collection.Database().Client()
	session, err := client.StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	clearUpdate := bson.M{"$set": bson.M{"isCurrentlyActive": false, "updatedAt": time.Now().UTC()}}

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		otherSubs := bson.M{
			"userId":            userID,
			"isCurrentlyActive": true,
			"_id":               bson.M{"$ne": subscriptionID},
		}
		if _, err := r.collection.UpdateMany(sc, otherSubs, clearUpdate); err != nil {
			return nil, err
		}

		adhocFilter := bson.M{"userId": userID, "isCurrentlyActive": true}
		if _, err := r.adhoc.UpdateMany(sc, adhocFilter, clearUpdate); err != nil {
			return nil, err
		}

		// Guarded by status so a terminal subscription can never be flipped
		// active even if the service-level check was raced.
		target := bson.M{
			"_id":    subscriptionID,
			"userId": userID,
			"status": bson.M{"$nin": terminalStatuses},
		}
		setUpdate := bson.M{"$set": bson.M{
			"isCurrentlyActive": true,
			"status":            domain.SubscriptionActive,
			"updatedAt":         time.Now().UTC(),
		}}
		result, err := r.collection.UpdateOne(sc, target, setUpdate)
		if err != nil {
			return nil, err
		}
		if result.MatchedCount == 0 {
			return nil, repository.ErrNotFound
		}
		return nil, nil
	})
	return err
}

// DeactivateAllForUser clears the active flag on every subscription the user
// owns.
func (r *mongoSubscriptionRepository) DeactivateAllForUser(ctx context.Context, userID primitive.ObjectID) error {
	filter := bson.M{"userId": userID, "isCurrentlyActive": true}
	update := bson.M{"$set": bson.M{"isCurrentlyActive": false, "updatedAt": time.Now().UTC()}}
	_, err := r.collection.UpdateMany(ctx, filter, update)
	return err
}

// CountByTemplateID counts subscriptions (any status) referencing a template.
func (r *mongoSubscriptionRepository) CountByTemplateID(ctx context.Context, templateID primitive.ObjectID) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{"programId": templateID})
}

// EnsureSubscriptionIndexes creates necessary indexes. Call during startup.
func EnsureSubscriptionIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			// Main lookup: a user's enrollment in a given template.
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "programId", Value: 1}, {Key: "status", Value: 1}},
			Options: options.Index(),
		},
		{
			// Exclusivity scans: a user's currently active row.
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "isCurrentlyActive", Value: 1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "programId", Value: 1}},
			Options: options.Index(),
		},
	}
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		// Index creation failure is not fatal at startup; queries still work.
	}
}
