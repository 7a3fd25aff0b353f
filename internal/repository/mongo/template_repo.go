// internal/repository/mongo/template_repo.go
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

const templateCollectionName = "program_templates"

// mongoTemplateRepository implements repository.TemplateRepository
type mongoTemplateRepository struct {
	collection *mongo.Collection
}

// NewMongoTemplateRepository creates a new ProgramTemplate repository.
func NewMongoTemplateRepository(db *mongo.Database) repository.TemplateRepository {
	return &mongoTemplateRepository{
		collection: db.Collection(templateCollectionName),
	}
}

// Create inserts a new program template. Embedded phases get ObjectIDs here
// so subscriptions can reference them by currentPhaseId.
func (r *mongoTemplateRepository) Create(ctx context.Context, tmpl *domain.ProgramTemplate) (primitive.ObjectID, error) {
	if tmpl.AuthorID == primitive.NilObjectID || tmpl.Name == "" {
		return primitive.NilObjectID, errors.New("template requires authorId and name")
	}
	tmpl.ID = primitive.NewObjectID()
	for i := range tmpl.Phases {
		if tmpl.Phases[i].ID == primitive.NilObjectID {
			tmpl.Phases[i].ID = primitive.NewObjectID()
		}
	}
	now := time.Now().UTC()
	tmpl.CreatedAt = now
	tmpl.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, tmpl)
	if err != nil {
		return primitive.NilObjectID, err
	}
	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted template ID")
	}
	return insertedID, nil
}

// GetByID retrieves a single template by its ID.
func (r *mongoTemplateRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.ProgramTemplate, error) {
	var tmpl domain.ProgramTemplate
	filter := bson.M{"_id": id}
	err := r.collection.FindOne(ctx, filter).Decode(&tmpl)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &tmpl, nil
}

// List retrieves templates matching the filter, newest first.
func (r *mongoTemplateRepository) List(ctx context.Context, filter repository.TemplateFilter) ([]domain.ProgramTemplate, error) {
	query := bson.M{}
	if filter.Category != "" {
		query["category"] = filter.Category
	}
	if filter.Difficulty != "" {
		query["difficulty"] = filter.Difficulty
	}
	if filter.AuthorID != nil {
		query["authorId"] = *filter.AuthorID
	}
	findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})

	cursor, err := r.collection.Find(ctx, query, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var templates []domain.ProgramTemplate
	if err = cursor.All(ctx, &templates); err != nil {
		return nil, err
	}
	if err = cursor.Err(); err != nil {
		return nil, err
	}
	return templates, nil
}

// Update replaces the mutable fields of a template. Ownership and the
// no-subscribers rule are checked in the service layer.
func (r *mongoTemplateRepository) Update(ctx context.Context, tmpl *domain.ProgramTemplate) error {
	if tmpl.ID == primitive.NilObjectID {
		return errors.New("template ID is required for update")
	}
	for i := range tmpl.Phases {
		if tmpl.Phases[i].ID == primitive.NilObjectID {
			tmpl.Phases[i].ID = primitive.NewObjectID()
		}
	}

	filter := bson.M{"_id": tmpl.ID}
	updateDoc := bson.M{
		"$set": bson.M{
			"name":                tmpl.Name,
			"description":         tmpl.Description,
			"durationWeeks":       tmpl.DurationWeeks,
			"difficulty":          tmpl.Difficulty,
			"category":            tmpl.Category,
			"hasExerciseSlots":    tmpl.HasExerciseSlots,
			"progressionStrategy": tmpl.ProgressionStrategy,
			"autoRegulation":      tmpl.AutoRegulation,
			"phases":              tmpl.Phases,
			"slots":               tmpl.Slots,
			"updatedAt":           time.Now().UTC(),
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

// EnsureTemplateIndexes creates necessary indexes. Call during startup.
func EnsureTemplateIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "authorId", Value: 1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "category", Value: 1}, {Key: "difficulty", Value: 1}},
			Options: options.Index(),
		},
	}
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		// Index creation failure is not fatal at startup; queries still work.
	}
}
