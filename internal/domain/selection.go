package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserExerciseSelection resolves one (subscription, slot) pair to a concrete
// exercise chosen by the athlete. Selections may be staged before a
// subscription exists; staged rows carry a StagingToken instead of a
// SubscriptionID and are re-bound when the subscription is created.
type UserExerciseSelection struct {
	ID             primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	SubscriptionID *primitive.ObjectID `bson:"subscriptionId,omitempty" json:"subscriptionId,omitempty"`
	StagingToken   string              `bson:"stagingToken,omitempty" json:"stagingToken,omitempty"`
	UserID         primitive.ObjectID  `bson:"userId" json:"userId"`
	TemplateID     primitive.ObjectID  `bson:"templateId" json:"templateId"`
	SlotNumber     int                 `bson:"slotNumber" json:"slotNumber"`
	ExerciseID     primitive.ObjectID  `bson:"exerciseId" json:"exerciseId"`
	CreatedAt      time.Time           `bson:"createdAt" json:"createdAt"`
}

// Exercise is a concrete movement an athlete can slot into a template.
// Movement pattern / muscle / equipment metadata is what slot compatibility
// warnings are computed from.
type Exercise struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name            string             `bson:"name" json:"name"`
	MovementPattern string             `bson:"movementPattern,omitempty" json:"movementPattern,omitempty"`
	MuscleTargets   []string           `bson:"muscleTargets,omitempty" json:"muscleTargets,omitempty"`
	Equipment       string             `bson:"equipment,omitempty" json:"equipment,omitempty"`
	CreatedAt       time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time          `bson:"updatedAt" json:"updatedAt"`
}
