package service

import (
	"context"
	"errors"

	"peakform/coach-app/internal/domain"
	"peakform/coach-app/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// PhaseInfo is the slice of a phase a progress summary exposes.
type PhaseInfo struct {
	PhaseNumber int              `json:"phaseNumber"`
	PhaseName   string           `json:"phaseName"`
	PhaseType   domain.PhaseType `json:"phaseType"`
	StartWeek   int              `json:"startWeek"`
	EndWeek     int              `json:"endWeek"`
}

// ProgressSummary is a read-only derivation over a subscription and its
// logged performance history. Nothing in here mutates state.
type ProgressSummary struct {
	SubscriptionID     string                    `json:"subscriptionId"`
	ProgramID          string                    `json:"programId"`
	ProgramName        string                    `json:"programName"`
	Status             domain.SubscriptionStatus `json:"status"`
	CurrentWeek        int                       `json:"currentWeek"`
	CurrentDay         int                       `json:"currentDay"`
	CurrentWeekInPhase int                       `json:"currentWeekInPhase"`
	CurrentPhase       PhaseInfo                 `json:"currentPhase"`
	PercentComplete    float64                   `json:"percentComplete"`
	AdherenceRate      float64                   `json:"adherenceRate"`
	WorkoutsCompleted  int                       `json:"workoutsCompleted"`
	PerformancesLogged int64                     `json:"performancesLogged"`
}

// --- Service Interface ---

// ProgressService derives progress metrics for dashboards and trainer views.
type ProgressService interface {
	GetProgress(ctx context.Context, subscriptionID primitive.ObjectID) (*ProgressSummary, error)
	GetPerformances(ctx context.Context, subscriptionID primitive.ObjectID) ([]domain.WorkoutPerformance, error)
}

// --- Service Implementation ---

type progressService struct {
	subscriptionRepo repository.SubscriptionRepository
	performanceRepo  repository.PerformanceRepository
	catalog          CatalogService
	logger           *zap.Logger
}

// NewProgressService creates a new instance of progressService.
func NewProgressService(
	subscriptionRepo repository.SubscriptionRepository,
	performanceRepo repository.PerformanceRepository,
	catalog CatalogService,
	logger *zap.Logger,
) ProgressService {
	return &progressService{
		subscriptionRepo: subscriptionRepo,
		performanceRepo:  performanceRepo,
		catalog:          catalog,
		logger:           logger,
	}
}

// ProgressPercentage returns how far through the template the subscription
// is, as a display percentage clamped to [0, 100] regardless of cursor
// overshoot.
func ProgressPercentage(sub *domain.ProgramSubscription, tmpl *domain.ProgramTemplate) float64 {
	if tmpl.DurationWeeks <= 0 {
		return 0
	}
	pct := float64(sub.CurrentWeek) / float64(tmpl.DurationWeeks) * 100
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

// GetProgress assembles the summary for one subscription.
func (s *progressService) GetProgress(ctx context.Context, subscriptionID primitive.ObjectID) (*ProgressSummary, error) {
	sub, err := s.subscriptionRepo.GetByID(ctx, subscriptionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, err
	}

	tmpl, err := s.catalog.GetTemplate(ctx, sub.ProgramID)
	if err != nil {
		return nil, err
	}

	// currentPhase must always resolve; a dangling id means the catalog
	// invariant was violated upstream, not a normal-path error.
	phase := tmpl.PhaseByID(sub.CurrentPhaseID)
	if phase == nil {
		s.logger.Error("subscription references unknown phase",
			zap.String("subscriptionId", sub.ID.Hex()),
			zap.String("phaseId", sub.CurrentPhaseID.Hex()))
		return nil, ErrDataIntegrity
	}

	logged, err := s.performanceRepo.CountBySubscriptionID(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}

	return &ProgressSummary{
		SubscriptionID:     sub.ID.Hex(),
		ProgramID:          tmpl.ID.Hex(),
		ProgramName:        tmpl.Name,
		Status:             sub.Status,
		CurrentWeek:        sub.CurrentWeek,
		CurrentDay:         sub.CurrentDay,
		CurrentWeekInPhase: sub.CurrentWeekInPhase,
		CurrentPhase: PhaseInfo{
			PhaseNumber: phase.PhaseNumber,
			PhaseName:   phase.PhaseName,
			PhaseType:   phase.PhaseType,
			StartWeek:   phase.StartWeek,
			EndWeek:     phase.EndWeek,
		},
		PercentComplete:    ProgressPercentage(sub, tmpl),
		AdherenceRate:      sub.AdherenceRate,
		WorkoutsCompleted:  sub.WorkoutsCompleted,
		PerformancesLogged: logged,
	}, nil
}

// GetPerformances returns the raw performance log for one subscription,
// newest first.
func (s *progressService) GetPerformances(ctx context.Context, subscriptionID primitive.ObjectID) ([]domain.WorkoutPerformance, error) {
	if _, err := s.subscriptionRepo.GetByID(ctx, subscriptionID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, err
	}
	return s.performanceRepo.GetBySubscriptionID(ctx, subscriptionID)
}
