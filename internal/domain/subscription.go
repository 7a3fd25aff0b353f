package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SubscriptionStatus type for the subscription lifecycle
type SubscriptionStatus string

const (
	SubscriptionActive    SubscriptionStatus = "ACTIVE"
	SubscriptionPaused    SubscriptionStatus = "PAUSED"
	SubscriptionArchived  SubscriptionStatus = "ARCHIVED"  // terminal
	SubscriptionCompleted SubscriptionStatus = "COMPLETED" // terminal
)

// IsTerminal reports whether no further transitions are defined out of the
// status. Re-enrollment is a new subscription, never a resurrection.
func (s SubscriptionStatus) IsTerminal() bool {
	return s == SubscriptionArchived || s == SubscriptionCompleted
}

// CanTransitionTo enforces the lifecycle transition table:
// ACTIVE <-> PAUSED, ACTIVE|PAUSED -> ARCHIVED, ACTIVE|PAUSED -> COMPLETED.
func (s SubscriptionStatus) CanTransitionTo(next SubscriptionStatus) bool {
	if s.IsTerminal() {
		return false
	}
	switch next {
	case SubscriptionActive:
		return s == SubscriptionPaused
	case SubscriptionPaused:
		return s == SubscriptionActive
	case SubscriptionArchived, SubscriptionCompleted:
		return s == SubscriptionActive || s == SubscriptionPaused
	}
	return false
}

// ProgramSubscription is one athlete's live enrollment in a template.
// It tracks the progression cursor (week/day/phase) and adherence. A
// subscription is archived, never physically deleted.
type ProgramSubscription struct {
	ID                 primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID             primitive.ObjectID `bson:"userId" json:"userId"`
	ProgramID          primitive.ObjectID `bson:"programId" json:"programId"` // the ProgramTemplate
	Status             SubscriptionStatus `bson:"status" json:"status"`
	CurrentWeek        int                `bson:"currentWeek" json:"currentWeek"`               // template-absolute, 1-based
	CurrentDay         int                `bson:"currentDay" json:"currentDay"`                 // 1..7
	CurrentPhaseID     primitive.ObjectID `bson:"currentPhaseId" json:"currentPhaseId"`
	CurrentWeekInPhase int                `bson:"currentWeekInPhase" json:"currentWeekInPhase"` // phase-relative, 1-based
	StartDate          time.Time          `bson:"startDate" json:"startDate"`
	IsCurrentlyActive  bool               `bson:"isCurrentlyActive" json:"isCurrentlyActive"` // at most one true per user, shared with ad-hoc sessions
	WorkoutsCompleted  int                `bson:"workoutsCompleted" json:"workoutsCompleted"`
	AdherenceRate      float64            `bson:"adherenceRate" json:"adherenceRate"` // 0.0..1.0
	LastWorkoutAt      *time.Time         `bson:"lastWorkoutCompletedAt,omitempty" json:"lastWorkoutCompletedAt,omitempty"`
	CompletedAt        *time.Time         `bson:"completedAt,omitempty" json:"completedAt,omitempty"`
	CreatedAt          time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt          time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// AdhocSession is a free-form training session outside any template. It
// exists here only because it shares the single-currently-active invariant
/// with program subscriptions: activating either kind deactivates the other.
type AdhocSession struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID            primitive.ObjectID `bson:"userId" json:"userId"`
	Name              string             `bson:"name" json:"name"`
	IsCurrentlyActive bool               `bson:"isCurrentlyActive" json:"isCurrentlyActive"`
	CreatedAt         time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt         time.Time          `bson:"updatedAt" json:"updatedAt"`
}
