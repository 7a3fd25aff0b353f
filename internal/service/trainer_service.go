package service

import (
	"context"
	"errors"

	"peakform/coach-app/internal/domain"
	"peakform/coach-app/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- Error Definitions ---
var (
	ErrAthleteNotFound       = errors.New("athlete user not found")
	ErrAthleteNotRole        = errors.New("user found but is not an athlete")
	ErrAthleteAlreadyCoached = errors.New("athlete is already coached by another trainer")
)

// --- Service Interface ---
type TrainerService interface {
	// Roster Management
	AddAthleteByEmail(ctx context.Context, trainerID primitive.ObjectID, athleteEmail string) (*domain.User, error)
	GetCoachedAthletes(ctx context.Context, trainerID primitive.ObjectID) ([]domain.User, error)
}

// --- Service Implementation ---

// trainerService implements the TrainerService interface.
type trainerService struct {
	userRepo repository.UserRepository
}

// NewTrainerService creates a new instance of trainerService.
func NewTrainerService(userRepo repository.UserRepository) TrainerService {
	return &trainerService{userRepo: userRepo}
}

// AddAthleteByEmail finds an athlete by email and adds them to the trainer's roster.
func (s *trainerService) AddAthleteByEmail(ctx context.Context, trainerID primitive.ObjectID, athleteEmail string) (*domain.User, error) {
	// 1. Validate input
	if trainerID == primitive.NilObjectID || athleteEmail == "" {
		return nil, errors.New("trainer ID and athlete email are required")
	}

	// 2. Find the potential athlete user
	athlete, err := s.userRepo.GetByEmail(ctx, athleteEmail)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAthleteNotFound
		}
		return nil, err
	}

	// 3. Verify the user is actually an athlete
	if !athlete.IsAthlete() {
		return nil, ErrAthleteNotRole
	}

	// 4. Check if the athlete is already coached
	if athlete.TrainerID != nil && *athlete.TrainerID != primitive.NilObjectID {
		if *athlete.TrainerID == trainerID {
			// Already coached by this trainer; idempotent success.
			return athlete, nil
		}
		return nil, ErrAthleteAlreadyCoached
	}

	// 5. Link both sides of the relationship
	err = s.userRepo.AddAthleteIDToTrainer(ctx, trainerID, athlete.ID)
	if err != nil {
		return nil, err
	}
	err = s.userRepo.SetTrainerForAthlete(ctx, athlete.ID, trainerID)
	if err != nil {
		return nil, err
	}

	athlete.TrainerID = &trainerID
	return athlete, nil
}

// GetCoachedAthletes retrieves the list of athletes coached by the trainer.
func (s *trainerService) GetCoachedAthletes(ctx context.Context, trainerID primitive.ObjectID) ([]domain.User, error) {
	if trainerID == primitive.NilObjectID {
		return nil, errors.New("trainer ID is required")
	}
	athletes, err := s.userRepo.GetAthletesByTrainerID(ctx, trainerID)
	if err != nil {
		return nil, err
	}
	// Clear password hashes before returning
	for i := range athletes {
		athletes[i].PasswordHash = ""
	}
	return athletes, nil
}
