package service

import (
	"context"
	"errors"
	"time"

	"peakform/coach-app/internal/domain"
	"peakform/coach-app/internal/notification"
	"peakform/coach-app/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// --- Error Definitions ---
var (
	ErrSubscriptionNotFound   = errors.New("program subscription not found")
	ErrAlreadyEnrolled        = errors.New("user already has a live enrollment in this template")
	ErrCannotActivateTerminal = errors.New("cannot activate an archived or completed subscription")
	ErrInvalidTransition      = errors.New("invalid subscription status transition")
	ErrNoActiveRelationship   = errors.New("no active coaching relationship with this athlete")
	ErrNotAuthorized          = errors.New("not authorized to act on this subscription")
	ErrDataIntegrity          = errors.New("subscription references template data that no longer resolves")
)

// adherenceAlpha is the smoothing factor of the exponential moving average
// behind adherenceRate: rate' = (1-alpha)*rate + alpha*sample.
const adherenceAlpha = 0.15

// notifyTimeout bounds the background notification dispatch.
const notifyTimeout = 5 * time.Second

// JoinOptions carries the optional parts of a join/assign request. Exactly
// one of Selections or StagingToken should be set when the template declares
// slots.
type JoinOptions struct {
	Selections   map[int]primitive.ObjectID
	StagingToken string
	Activate     bool
}

// PerformanceEntry is what the workout-logging collaborator reports for one
// completed session.
type PerformanceEntry struct {
	SetsCompleted int
	Notes         string
	AndAdvance    bool
}

// --- Service Interface ---

// SubscriptionService owns the ProgramSubscription lifecycle: creation,
// status transitions, phase/week/day advancement and the single
// currently-active invariant.
type SubscriptionService interface {
	Join(ctx context.Context, userID, templateID primitive.ObjectID, opts JoinOptions) (*domain.ProgramSubscription, error)
	SetActive(ctx context.Context, subscriptionID, userID primitive.ObjectID) (*domain.ProgramSubscription, error)
	SetStatus(ctx context.Context, subscriptionID, actorID primitive.ObjectID, newStatus domain.SubscriptionStatus) (*domain.ProgramSubscription, error)
	Advance(ctx context.Context, subscriptionID primitive.ObjectID) (*domain.ProgramSubscription, error)
	Assign(ctx context.Context, trainerID, athleteID, templateID primitive.ObjectID, opts JoinOptions) (*domain.ProgramSubscription, error)
	RecordAdherenceSample(ctx context.Context, subscriptionID primitive.ObjectID, completed bool) (*domain.ProgramSubscription, error)
	LogPerformance(ctx context.Context, userID, subscriptionID primitive.ObjectID, entry PerformanceEntry) (*domain.ProgramSubscription, error)
	GetSubscription(ctx context.Context, subscriptionID primitive.ObjectID) (*domain.ProgramSubscription, error)
	GetUserSubscriptions(ctx context.Context, userID primitive.ObjectID) ([]domain.ProgramSubscription, error)
	StartAdhocSession(ctx context.Context, userID primitive.ObjectID, name string) (*domain.AdhocSession, error)
	GetAdhocSessions(ctx context.Context, userID primitive.ObjectID) ([]domain.AdhocSession, error)
}

// --- Service Implementation ---

type subscriptionService struct {
	subscriptionRepo repository.SubscriptionRepository
	performanceRepo  repository.PerformanceRepository
	userRepo         repository.UserRepository
	adhocRepo        repository.AdhocSessionRepository
	catalog          CatalogService
	selections       SelectionService
	notifier         notification.Notifier
	logger           *zap.Logger
}

// NewSubscriptionService creates a new instance of subscriptionService.
func NewSubscriptionService(
	subscriptionRepo repository.SubscriptionRepository,
	performanceRepo repository.PerformanceRepository,
	userRepo repository.UserRepository,
	adhocRepo repository.AdhocSessionRepository,
	catalog CatalogService,
	selections SelectionService,
	notifier notification.Notifier,
	logger *zap.Logger,
) SubscriptionService {
	return &subscriptionService{
		subscriptionRepo: subscriptionRepo,
		performanceRepo:  performanceRepo,
		userRepo:         userRepo,
		adhocRepo:        adhocRepo,
		catalog:          catalog,
		selections:       selections,
		notifier:         notifier,
		logger:           logger,
	}
}

// === Enrollment ===

// Join enrolls a user in a template. Repeated calls while an enrollment is
// non-terminal are idempotent: the existing subscription is returned along
// with ErrAlreadyEnrolled so the caller can treat it either way.
func (s *subscriptionService) Join(ctx context.Context, userID, templateID primitive.ObjectID, opts JoinOptions) (*domain.ProgramSubscription, error) {
	if userID == primitive.NilObjectID || templateID == primitive.NilObjectID {
		return nil, errors.New("user ID and template ID are required")
	}

	// 1. The template must exist and be well-formed.
	tmpl, err := s.catalog.GetTemplate(ctx, templateID)
	if err != nil {
		return nil, err
	}

	// 2. One live enrollment per (user, template).
	existing, err := s.subscriptionRepo.GetNonTerminalByUserAndTemplate(ctx, userID, templateID)
	if err == nil {
		return existing, ErrAlreadyEnrolled
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	// 3. Resolve slot selections (direct map or a previously staged set).
	selectionMap := opts.Selections
	if opts.StagingToken != "" {
		selectionMap, err = s.selections.SelectionsForStagingToken(ctx, opts.StagingToken)
		if err != nil {
			return nil, err
		}
	}
	validated, err := s.selections.ResolveSelections(ctx, templateID, selectionMap)
	if err != nil {
		return nil, err
	}

	// 4. Bind the cursor to the template's first phase.
	firstPhase := tmpl.PhaseByNumber(1)
	if firstPhase == nil {
		// Validate guarantees at least one phase; a template without one
		// slipped past the catalog invariant.
		s.logger.Error("template has no first phase", zap.String("templateId", templateID.Hex()))
		return nil, ErrDataIntegrity
	}

	sub := &domain.ProgramSubscription{
		UserID:             userID,
		ProgramID:          templateID,
		Status:             domain.SubscriptionActive,
		CurrentWeek:        1,
		CurrentDay:         1,
		CurrentPhaseID:     firstPhase.ID,
		CurrentWeekInPhase: 1,
		AdherenceRate:      1.0, // no history yet
		IsCurrentlyActive:  false,
	}
	subID, err := s.subscriptionRepo.Create(ctx, sub)
	if err != nil {
		return nil, err
	}
	sub.ID = subID

	// 5. Persist the selections against the new subscription.
	if opts.StagingToken != "" {
		err = s.selections.BindStaged(ctx, opts.StagingToken, subID)
	} else {
		err = s.selections.PersistForSubscription(ctx, userID, subID, templateID, validated.Selections)
	}
	if err != nil {
		return nil, err
	}

	// 6. Explicit activation is a separate step unless requested here.
	if opts.Activate {
		return s.SetActive(ctx, subID, userID)
	}
	return sub, nil
}

// Assign performs Join on behalf of an athlete after verifying an active
// coaching relationship, then notifies the athlete out of band.
func (s *subscriptionService) Assign(ctx context.Context, trainerID, athleteID, templateID primitive.ObjectID, opts JoinOptions) (*domain.ProgramSubscription, error) {
	athlete, err := s.userRepo.GetByID(ctx, athleteID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAthleteNotFound
		}
		return nil, err
	}
	if !athlete.CoachedBy(trainerID) {
		return nil, ErrNoActiveRelationship
	}

	sub, err := s.Join(ctx, athleteID, templateID, opts)
	if err != nil {
		// ErrAlreadyEnrolled still carries the existing subscription.
		return sub, err
	}

	s.notifyAsync(athleteID, notification.KeyProgramAssigned, map[string]string{
		"templateId":     templateID.Hex(),
		"subscriptionId": sub.ID.Hex(),
		"trainerId":      trainerID.Hex(),
	})
	return sub, nil
}

// === Activation ===

// SetActive makes the subscription the user's single currently-active
// session. Every other subscription and ad-hoc session of the user is
// deactivated in the same transaction.
func (s *subscriptionService) SetActive(ctx context.Context, subscriptionID, userID primitive.ObjectID) (*domain.ProgramSubscription, error) {
	sub, err := s.getSubscription(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}
	if sub.UserID != userID {
		return nil, ErrNotAuthorized
	}
	if sub.Status.IsTerminal() {
		return nil, ErrCannotActivateTerminal
	}

	// Every required slot needs a selection before activation.
	if err := s.checkRequiredSelections(ctx, sub); err != nil {
		return nil, err
	}

	if err := s.subscriptionRepo.ActivateExclusively(ctx, userID, subscriptionID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// The guarded update found no non-terminal target; a concurrent
			// transition beat us to it.
			return nil, ErrCannotActivateTerminal
		}
		return nil, err
	}
	return s.getSubscription(ctx, subscriptionID)
}

func (s *subscriptionService) checkRequiredSelections(ctx context.Context, sub *domain.ProgramSubscription) error {
	tmpl, err := s.catalog.GetTemplate(ctx, sub.ProgramID)
	if err != nil {
		return err
	}
	required := tmpl.RequiredSlots()
	if len(required) == 0 {
		return nil
	}
	rows, err := s.selections.GetSubscriptionSelections(ctx, sub.ID)
	if err != nil {
		return err
	}
	covered := make(map[int]bool, len(rows))
	for _, row := range rows {
		covered[row.SlotNumber] = true
	}
	for _, slot := range required {
		if !covered[slot.SlotNumber] {
			return ErrMissingRequiredSlot
		}
	}
	return nil
}

// === Status transitions ===

// SetStatus applies a user- or trainer-initiated lifecycle transition.
func (s *subscriptionService) SetStatus(ctx context.Context, subscriptionID, actorID primitive.ObjectID, newStatus domain.SubscriptionStatus) (*domain.ProgramSubscription, error) {
	sub, err := s.getSubscription(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}

	// 1. Actor must be the owner or a trainer actively coaching the owner.
	if sub.UserID != actorID {
		actor, err := s.userRepo.GetByID(ctx, actorID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, ErrNotAuthorized
			}
			return nil, err
		}
		if !actor.IsTrainer() {
			return nil, ErrNotAuthorized
		}
		owner, err := s.userRepo.GetByID(ctx, sub.UserID)
		if err != nil {
			return nil, err
		}
		if !owner.CoachedBy(actorID) {
			return nil, ErrNoActiveRelationship
		}
	}

	// 2. Enforce the transition table.
	if !sub.Status.CanTransitionTo(newStatus) {
		return nil, ErrInvalidTransition
	}

	// 3. Apply, with the side effects terminal transitions carry.
	sub.Status = newStatus
	if newStatus.IsTerminal() {
		sub.IsCurrentlyActive = false
	}
	if newStatus == domain.SubscriptionCompleted {
		now := time.Now().UTC()
		sub.CompletedAt = &now
	}

	if err := s.subscriptionRepo.Update(ctx, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

// === Progression ===

// Advance moves the cursor one day forward: day, then week, then phase.
// Crossing the final phase's end week completes the subscription. Never
// driven by a clock; callers are the workout-logging collaborator or an
// explicit "next day" action.
func (s *subscriptionService) Advance(ctx context.Context, subscriptionID primitive.ObjectID) (*domain.ProgramSubscription, error) {
	sub, err := s.getSubscription(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}
	if sub.Status.IsTerminal() {
		return nil, ErrInvalidTransition
	}

	tmpl, err := s.catalog.GetTemplate(ctx, sub.ProgramID)
	if err != nil {
		return nil, err
	}
	phase := tmpl.PhaseByID(sub.CurrentPhaseID)
	if phase == nil {
		// Dangling phase reference: the catalog invariant was violated
		// upstream. Abort loudly, never limp along.
		s.logger.Error("subscription references unknown phase",
			zap.String("subscriptionId", sub.ID.Hex()),
			zap.String("phaseId", sub.CurrentPhaseID.Hex()))
		return nil, ErrDataIntegrity
	}

	sub.CurrentDay++
	if sub.CurrentDay > 7 {
		sub.CurrentDay = 1
		sub.CurrentWeek++
		sub.CurrentWeekInPhase++

		if sub.CurrentWeek > phase.EndWeek {
			next := tmpl.PhaseByNumber(phase.PhaseNumber + 1)
			if next != nil {
				sub.CurrentPhaseID = next.ID
				sub.CurrentWeekInPhase = 1
				s.notifyAsync(sub.UserID, notification.KeyPhaseCompleted, map[string]string{
					"subscriptionId": sub.ID.Hex(),
					"completedPhase": phase.PhaseName,
					"nextPhase":      next.PhaseName,
				})
			} else {
				now := time.Now().UTC()
				sub.Status = domain.SubscriptionCompleted
				sub.IsCurrentlyActive = false
				sub.CompletedAt = &now
				s.notifyAsync(sub.UserID, notification.KeyProgramCompleted, map[string]string{
					"subscriptionId": sub.ID.Hex(),
					"templateId":     sub.ProgramID.Hex(),
				})
			}
		}
	}

	if err := s.subscriptionRepo.Update(ctx, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

// === Adherence ===

// RecordAdherenceSample folds one completion/miss event into the adherence
// rate. The rate trends toward 1.0 with completions and 0.0 with misses and
// is always clamped to [0, 1].
func (s *subscriptionService) RecordAdherenceSample(ctx context.Context, subscriptionID primitive.ObjectID, completed bool) (*domain.ProgramSubscription, error) {
	sub, err := s.getSubscription(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}
	if sub.Status.IsTerminal() {
		// Late events against a finished subscription change nothing.
		return sub, nil
	}

	sample := 0.0
	if completed {
		sample = 1.0
	}
	sub.AdherenceRate = (1-adherenceAlpha)*sub.AdherenceRate + adherenceAlpha*sample
	if sub.AdherenceRate < 0 {
		sub.AdherenceRate = 0
	} else if sub.AdherenceRate > 1 {
		sub.AdherenceRate = 1
	}

	if completed {
		now := time.Now().UTC()
		sub.WorkoutsCompleted++
		sub.LastWorkoutAt = &now
	}

	if err := s.subscriptionRepo.Update(ctx, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

// LogPerformance is the workout-logging entry point: it records the session
// against the current cursor, counts it as a completion, and optionally
// advances.
func (s *subscriptionService) LogPerformance(ctx context.Context, userID, subscriptionID primitive.ObjectID, entry PerformanceEntry) (*domain.ProgramSubscription, error) {
	sub, err := s.getSubscription(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}
	if sub.UserID != userID {
		return nil, ErrNotAuthorized
	}
	if sub.Status.IsTerminal() {
		return nil, ErrInvalidTransition
	}

	perf := &domain.WorkoutPerformance{
		SubscriptionID: subscriptionID,
		UserID:         userID,
		Week:           sub.CurrentWeek,
		Day:            sub.CurrentDay,
		SetsCompleted:  entry.SetsCompleted,
		Notes:          entry.Notes,
	}
	if _, err := s.performanceRepo.Create(ctx, perf); err != nil {
		return nil, err
	}

	sub, err = s.RecordAdherenceSample(ctx, subscriptionID, true)
	if err != nil {
		return nil, err
	}
	if entry.AndAdvance {
		return s.Advance(ctx, subscriptionID)
	}
	return sub, nil
}

// === Ad-hoc sessions ===

// StartAdhocSession opens a free-form session outside any template. The new
// session becomes the user's single active session, so every subscription and
// prior ad-hoc session is deactivated first.
func (s *subscriptionService) StartAdhocSession(ctx context.Context, userID primitive.ObjectID, name string) (*domain.AdhocSession, error) {
	if name == "" {
		return nil, errors.New("session name is required")
	}

	if err := s.subscriptionRepo.DeactivateAllForUser(ctx, userID); err != nil {
		return nil, err
	}
	if err := s.adhocRepo.DeactivateAllForUser(ctx, userID); err != nil {
		return nil, err
	}

	session := &domain.AdhocSession{
		UserID:            userID,
		Name:              name,
		IsCurrentlyActive: true,
	}
	sessionID, err := s.adhocRepo.Create(ctx, session)
	if err != nil {
		return nil, err
	}
	session.ID = sessionID
	return session, nil
}

func (s *subscriptionService) GetAdhocSessions(ctx context.Context, userID primitive.ObjectID) ([]domain.AdhocSession, error) {
	return s.adhocRepo.GetByUserID(ctx, userID)
}

// === Queries ===

func (s *subscriptionService) GetSubscription(ctx context.Context, subscriptionID primitive.ObjectID) (*domain.ProgramSubscription, error) {
	return s.getSubscription(ctx, subscriptionID)
}

func (s *subscriptionService) GetUserSubscriptions(ctx context.Context, userID primitive.ObjectID) ([]domain.ProgramSubscription, error) {
	return s.subscriptionRepo.GetByUserID(ctx, userID)
}

func (s *subscriptionService) getSubscription(ctx context.Context, id primitive.ObjectID) (*domain.ProgramSubscription, error) {
	sub, err := s.subscriptionRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, err
	}
	return sub, nil
}

// notifyAsync dispatches a notification off the request path. Failures are
// logged, never surfaced to the caller.
func (s *subscriptionService) notifyAsync(recipientID primitive.ObjectID, templateKey string, payload map[string]string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		if err := s.notifier.Notify(ctx, recipientID, templateKey, payload); err != nil {
			s.logger.Warn("notification dispatch failed",
				zap.String("template", templateKey),
				zap.String("recipient", recipientID.Hex()),
				zap.Error(err))
		}
	}()
}
