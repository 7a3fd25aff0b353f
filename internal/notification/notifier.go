package notification

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Message template keys the engine emits. Delivery mechanics (push, email)
// live entirely behind the Notifier implementation.
const (
	KeyProgramAssigned  = "program.assigned"
	KeyProgramCompleted = "program.completed"
	KeyPhaseCompleted   = "program.phase_completed"
)

// Notifier dispatches a notification request to a recipient. Calls are
// fire-and-forget from the engine's point of view: failures are logged,
// never surfaced to the caller, and dispatch must not block the request
// path.
type Notifier interface {
	Notify(ctx context.Context, recipientID primitive.ObjectID, templateKey string, payload map[string]string) error
}

// logNotifier is the default implementation: it records the request in the
// structured log. Real delivery backends replace it at wiring time.
type logNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a Notifier that logs every request.
func NewLogNotifier(logger *zap.Logger) Notifier {
	return &logNotifier{logger: logger}
}

func (n *logNotifier) Notify(_ context.Context, recipientID primitive.ObjectID, templateKey string, payload map[string]string) error {
	n.logger.Info("notification dispatched",
		zap.String("recipient", recipientID.Hex()),
		zap.String("template", templateKey),
		zap.Any("payload", payload),
	)
	return nil
}
