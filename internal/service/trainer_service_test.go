package service

import (
	"context"
	"testing"

	"peakform/coach-app/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddAthleteByEmail(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	svc := NewTrainerService(env.userRepo)

	trainer := seedTrainer(env)
	athlete := env.userRepo.put(&domain.User{
		Name:  "Bea",
		Email: "bea@example.com",
		Role:  domain.RoleAthlete,
	})

	added, err := svc.AddAthleteByEmail(ctx, trainer.ID, "bea@example.com")
	require.NoError(t, err)
	require.NotNil(t, added.TrainerID)
	assert.Equal(t, trainer.ID, *added.TrainerID)

	roster, err := svc.GetCoachedAthletes(ctx, trainer.ID)
	require.NoError(t, err)
	require.Len(t, roster, 1)
	assert.Equal(t, athlete.ID, roster[0].ID)
	assert.Empty(t, roster[0].PasswordHash)
}

func TestAddAthleteByEmail_Idempotent(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	svc := NewTrainerService(env.userRepo)

	trainer := seedTrainer(env)
	env.userRepo.put(&domain.User{Name: "Bea", Email: "bea@example.com", Role: domain.RoleAthlete})

	_, err := svc.AddAthleteByEmail(ctx, trainer.ID, "bea@example.com")
	require.NoError(t, err)
	_, err = svc.AddAthleteByEmail(ctx, trainer.ID, "bea@example.com")
	assert.NoError(t, err)
}

func TestAddAthleteByEmail_AlreadyCoached(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	svc := NewTrainerService(env.userRepo)

	first := seedTrainer(env)
	second := seedTrainer(env)
	env.userRepo.put(&domain.User{Name: "Bea", Email: "bea@example.com", Role: domain.RoleAthlete})

	_, err := svc.AddAthleteByEmail(ctx, first.ID, "bea@example.com")
	require.NoError(t, err)

	_, err = svc.AddAthleteByEmail(ctx, second.ID, "bea@example.com")
	assert.ErrorIs(t, err, ErrAthleteAlreadyCoached)
}

func TestAddAthleteByEmail_NotAnAthlete(t *testing.T) {
	env := newTestEnv()
	svc := NewTrainerService(env.userRepo)

	trainer := seedTrainer(env)
	env.userRepo.put(&domain.User{Name: "Carl", Email: "carl@example.com", Role: domain.RoleTrainer})

	_, err := svc.AddAthleteByEmail(context.Background(), trainer.ID, "carl@example.com")
	assert.ErrorIs(t, err, ErrAthleteNotRole)
}

func TestAddAthleteByEmail_NotFound(t *testing.T) {
	env := newTestEnv()
	svc := NewTrainerService(env.userRepo)
	trainer := seedTrainer(env)

	_, err := svc.AddAthleteByEmail(context.Background(), trainer.ID, "ghost@example.com")
	assert.ErrorIs(t, err, ErrAthleteNotFound)
}
