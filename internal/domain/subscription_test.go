package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSubscriptionStatus_IsTerminal(t *testing.T) {
	assert.False(t, SubscriptionActive.IsTerminal())
	assert.False(t, SubscriptionPaused.IsTerminal())
	assert.True(t, SubscriptionArchived.IsTerminal())
	assert.True(t, SubscriptionCompleted.IsTerminal())
}

func TestSubscriptionStatus_CanTransitionTo(t *testing.T) {
	allowed := map[SubscriptionStatus][]SubscriptionStatus{
		SubscriptionActive: {SubscriptionPaused, SubscriptionArchived, SubscriptionCompleted},
		SubscriptionPaused: {SubscriptionActive, SubscriptionArchived, SubscriptionCompleted},
	}
	all := []SubscriptionStatus{
		SubscriptionActive, SubscriptionPaused, SubscriptionArchived, SubscriptionCompleted,
	}

	for _, from := range all {
		for _, to := range all {
			want := false
			for _, a := range allowed[from] {
				if a == to {
					want = true
				}
			}
			assert.Equalf(t, want, from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}
}
