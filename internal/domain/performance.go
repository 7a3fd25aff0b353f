package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// WorkoutPerformance is one logged training session against a subscription.
// The workout-logging collaborator writes these; progress accounting reads
// them. Week/Day record where the subscription cursor stood when the
// session was logged.
type WorkoutPerformance struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	SubscriptionID primitive.ObjectID `bson:"subscriptionId" json:"subscriptionId"`
	UserID         primitive.ObjectID `bson:"userId" json:"userId"`
	Week           int                `bson:"week" json:"week"`
	Day            int                `bson:"day" json:"day"`
	SetsCompleted  int                `bson:"setsCompleted,omitempty" json:"setsCompleted,omitempty"`
	Notes          string             `bson:"notes,omitempty" json:"notes,omitempty"`
	CompletedAt    time.Time          `bson:"completedAt" json:"completedAt"`
}
