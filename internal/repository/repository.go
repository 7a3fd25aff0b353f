package repository

import (
	"context"

	"peakform/coach-app/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Error constants for the repository layer
var (
	ErrNotFound     = RepositoryError("not found")
	ErrUpdateFailed = RepositoryError("update failed")
)

// RepositoryError helps distinguish repository errors
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// UserRepository defines the interface for interacting with user data.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (primitive.ObjectID, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error)
	AddAthleteIDToTrainer(ctx context.Context, trainerID, athleteID primitive.ObjectID) error
	GetAthletesByTrainerID(ctx context.Context, trainerID primitive.ObjectID) ([]domain.User, error)
	SetTrainerForAthlete(ctx context.Context, athleteID, trainerID primitive.ObjectID) error
}

// TemplateFilter narrows ListTemplates results. Zero values mean "any".
type TemplateFilter struct {
	Category   string
	Difficulty string
	AuthorID   *primitive.ObjectID
}

// TemplateRepository defines the interface for interacting with program
// template data. Templates are read-only to the engine; Create/Update are
// authoring-time operations.
type TemplateRepository interface {
	Create(ctx context.Context, tmpl *domain.ProgramTemplate) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.ProgramTemplate, error)
	List(ctx context.Context, filter TemplateFilter) ([]domain.ProgramTemplate, error)
	Update(ctx context.Context, tmpl *domain.ProgramTemplate) error
}

// SubscriptionRepository defines the interface for interacting with program
// subscription data.
type SubscriptionRepository interface {
	Create(ctx context.Context, sub *domain.ProgramSubscription) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.ProgramSubscription, error)
	GetByUserID(ctx context.Context, userID primitive.ObjectID) ([]domain.ProgramSubscription, error)
	// GetNonTerminalByUserAndTemplate returns the user's live enrollment in
	// the template, or ErrNotFound. Backs join idempotency.
	GetNonTerminalByUserAndTemplate(ctx context.Context, userID, templateID primitive.ObjectID) (*domain.ProgramSubscription, error)
	Update(ctx context.Context, sub *domain.ProgramSubscription) error
	// ActivateExclusively atomically clears isCurrentlyActive on every other
	// subscription and ad-hoc session owned by the user, then sets it on the
	// target. Two concurrent calls for the same user must never leave two
	// rows active.
	ActivateExclusively(ctx context.Context, userID, subscriptionID primitive.ObjectID) error
	// DeactivateAllForUser clears isCurrentlyActive on every subscription the
	// user owns. Used when an ad-hoc session takes over as the active session.
	DeactivateAllForUser(ctx context.Context, userID primitive.ObjectID) error
	CountByTemplateID(ctx context.Context, templateID primitive.ObjectID) (int64, error)
}

// SelectionRepository defines the interface for interacting with
// user exercise selections, staged or bound.
type SelectionRepository interface {
	CreateMany(ctx context.Context, selections []domain.UserExerciseSelection) error
	GetBySubscriptionID(ctx context.Context, subscriptionID primitive.ObjectID) ([]domain.UserExerciseSelection, error)
	GetByStagingToken(ctx context.Context, token string) ([]domain.UserExerciseSelection, error)
	// BindStagedToSubscription re-binds staged selections (by token) to a
	// freshly created subscription.
	BindStagedToSubscription(ctx context.Context, token string, subscriptionID primitive.ObjectID) error
}

// PerformanceRepository defines the interface for interacting with logged
// workout performances.
type PerformanceRepository interface {
	Create(ctx context.Context, perf *domain.WorkoutPerformance) (primitive.ObjectID, error)
	GetBySubscriptionID(ctx context.Context, subscriptionID primitive.ObjectID) ([]domain.WorkoutPerformance, error)
	CountBySubscriptionID(ctx context.Context, subscriptionID primitive.ObjectID) (int64, error)
}

// AdhocSessionRepository defines the interface for ad-hoc (non-template)
// sessions. Only the exclusivity flag matters to this engine.
type AdhocSessionRepository interface {
	Create(ctx context.Context, session *domain.AdhocSession) (primitive.ObjectID, error)
	GetByUserID(ctx context.Context, userID primitive.ObjectID) ([]domain.AdhocSession, error)
	DeactivateAllForUser(ctx context.Context, userID primitive.ObjectID) error
}

// ExerciseRepository defines the interface for the exercise library that
// slot selections resolve against.
type ExerciseRepository interface {
	Create(ctx context.Context, exercise *domain.Exercise) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Exercise, error)
	GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]domain.Exercise, error)
}
