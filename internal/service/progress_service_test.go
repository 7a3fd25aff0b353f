package service

import (
	"context"
	"testing"

	"peakform/coach-app/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestProgressPercentage(t *testing.T) {
	tmpl := &domain.ProgramTemplate{DurationWeeks: 12}

	assert.InDelta(t, 25.0, ProgressPercentage(&domain.ProgramSubscription{CurrentWeek: 3}, tmpl), 1e-9)
	assert.InDelta(t, 100.0, ProgressPercentage(&domain.ProgramSubscription{CurrentWeek: 12}, tmpl), 1e-9)

	// Cursor overshoot clamps rather than exceeding 100.
	assert.Equal(t, 100.0, ProgressPercentage(&domain.ProgramSubscription{CurrentWeek: 13}, tmpl))
	assert.Equal(t, 0.0, ProgressPercentage(&domain.ProgramSubscription{CurrentWeek: -1}, tmpl))

	// A zero-duration template never divides by zero.
	assert.Equal(t, 0.0, ProgressPercentage(&domain.ProgramSubscription{CurrentWeek: 3}, &domain.ProgramTemplate{}))
}

func TestGetProgress(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	tmpl := seedTemplate(env, "Periodized", [2]int{1, 2}, [2]int{3, 4})
	athlete := seedAthlete(env, nil)

	sub, err := env.subscriptions.Join(ctx, athlete.ID, tmpl.ID, JoinOptions{})
	require.NoError(t, err)

	// One logged week of training.
	for i := 0; i < 7; i++ {
		sub, err = env.subscriptions.LogPerformance(ctx, athlete.ID, sub.ID, PerformanceEntry{AndAdvance: true})
		require.NoError(t, err)
	}

	summary, err := env.progress.GetProgress(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, sub.ID.Hex(), summary.SubscriptionID)
	assert.Equal(t, "Periodized", summary.ProgramName)
	assert.Equal(t, domain.SubscriptionActive, summary.Status)
	assert.Equal(t, 2, summary.CurrentWeek)
	assert.Equal(t, 1, summary.CurrentDay)
	assert.Equal(t, 1, summary.CurrentPhase.PhaseNumber)
	assert.InDelta(t, 50.0, summary.PercentComplete, 1e-9)
	assert.Equal(t, 7, summary.WorkoutsCompleted)
	assert.Equal(t, int64(7), summary.PerformancesLogged)
	assert.Greater(t, summary.AdherenceRate, 0.0)
}

func TestGetProgress_NotFound(t *testing.T) {
	env := newTestEnv()
	_, err := env.progress.GetProgress(context.Background(), primitive.NewObjectID())
	assert.ErrorIs(t, err, ErrSubscriptionNotFound)
}

func TestGetProgress_DanglingPhase(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	tmpl := seedTemplate(env, "Block", [2]int{1, 4})
	athlete := seedAthlete(env, nil)

	sub, err := env.subscriptions.Join(ctx, athlete.ID, tmpl.ID, JoinOptions{})
	require.NoError(t, err)

	// Corrupt the stored cursor so it points at a phase the template never had.
	sub.CurrentPhaseID = primitive.NewObjectID()
	require.NoError(t, env.subRepo.Update(ctx, sub))

	_, err = env.progress.GetProgress(ctx, sub.ID)
	assert.ErrorIs(t, err, ErrDataIntegrity)
}

func TestGetPerformances(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	tmpl := seedTemplate(env, "Block", [2]int{1, 4})
	athlete := seedAthlete(env, nil)

	sub, err := env.subscriptions.Join(ctx, athlete.ID, tmpl.ID, JoinOptions{})
	require.NoError(t, err)

	_, err = env.subscriptions.LogPerformance(ctx, athlete.ID, sub.ID, PerformanceEntry{SetsCompleted: 12})
	require.NoError(t, err)

	perfs, err := env.progress.GetPerformances(ctx, sub.ID)
	require.NoError(t, err)
	require.Len(t, perfs, 1)
	assert.Equal(t, 12, perfs[0].SetsCompleted)

	_, err = env.progress.GetPerformances(ctx, primitive.NewObjectID())
	assert.ErrorIs(t, err, ErrSubscriptionNotFound)
}
