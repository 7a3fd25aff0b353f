package service

import (
	"context"
	"testing"
	"time"

	"peakform/coach-app/internal/domain"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthTestService() (AuthService, *fakeUserRepo) {
	userRepo := newFakeUserRepo()
	return NewAuthService(userRepo, "test-secret", time.Hour), userRepo
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _ := newAuthTestService()
	ctx := context.Background()

	user, err := svc.Register(ctx, "Alice", "alice@example.com", "str0ngpass", domain.RoleTrainer)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleTrainer, user.Role)
	assert.Empty(t, user.PasswordHash)

	token, loggedIn, err := svc.Login(ctx, "alice@example.com", "str0ngpass")
	require.NoError(t, err)
	assert.Equal(t, user.ID, loggedIn.ID)
	assert.Empty(t, loggedIn.PasswordHash)

	// The token must round-trip with the configured secret and carry the
	// uid/role claims the middleware reads.
	claims := &jwtClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	})
	require.NoError(t, err)
	assert.True(t, parsed.Valid)
	assert.Equal(t, user.ID.Hex(), claims.UserID)
	assert.Equal(t, domain.RoleTrainer, claims.Role)
	assert.Equal(t, "coach-app", claims.Issuer)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	svc, _ := newAuthTestService()
	ctx := context.Background()

	_, err := svc.Register(ctx, "Alice", "alice@example.com", "str0ngpass", domain.RoleAthlete)
	require.NoError(t, err)

	_, err = svc.Register(ctx, "Other Alice", "alice@example.com", "different", domain.RoleAthlete)
	assert.ErrorIs(t, err, ErrUserAlreadyExists)
}

func TestLogin_WrongPassword(t *testing.T) {
	svc, _ := newAuthTestService()
	ctx := context.Background()

	_, err := svc.Register(ctx, "Alice", "alice@example.com", "str0ngpass", domain.RoleAthlete)
	require.NoError(t, err)

	_, _, err = svc.Login(ctx, "alice@example.com", "wrong")
	assert.ErrorIs(t, err, ErrAuthenticationFailed)
}

func TestLogin_UnknownEmail(t *testing.T) {
	svc, _ := newAuthTestService()

	_, _, err := svc.Login(context.Background(), "nobody@example.com", "whatever")
	assert.ErrorIs(t, err, ErrAuthenticationFailed)
}
