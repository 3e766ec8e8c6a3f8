package services

import (
	"context"
	"testing"

	"pwab-memberhub/internal/config"
	"pwab-memberhub/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newIdentityFixture() (*IdentityService, *fakeAuthAccountRepo, *fakeRefreshTokenRepo, *AuthEventBus) {
	accountRepo := newFakeAuthAccountRepo()
	refreshRepo := newFakeRefreshTokenRepo()
	bus := NewAuthEventBus()
	cfg := &config.Config{
		JWT: config.JWTConfig{
			Secret:           "test-access-secret",
			RefreshSecret:    "test-refresh-secret",
			AccessTokenMins:  15,
			RefreshTokenDays: 7,
		},
	}
	return NewIdentityService(accountRepo, refreshRepo, bus, cfg), accountRepo, refreshRepo, bus
}

func TestIdentitySignUp(t *testing.T) {
	svc, accountRepo, _, bus := newIdentityFixture()
	events, unsubscribe := bus.Subscribe()
	defer unsubscribe()

	session, err := svc.SignUp(context.Background(), "m1001@temp.pwaburton.org", "m1001",
		domain.SignUpMetadata{MemberNumber: "M1001"})
	require.NoError(t, err)

	assert.NotEmpty(t, session.UserID)
	assert.NotEmpty(t, session.AccessToken)
	assert.NotEmpty(t, session.RefreshToken)
	assert.Equal(t, "M1001", session.MemberNumber)

	acc, err := accountRepo.GetByID(context.Background(), session.UserID)
	require.NoError(t, err)
	assert.NotEqual(t, "m1001", acc.Password, "password is stored hashed")

	event := <-events
	assert.Equal(t, domain.EventSignedIn, event.Type)
	assert.Equal(t, session.UserID, event.Session.UserID)
}

func TestIdentitySignUp_Duplicate(t *testing.T) {
	svc, _, _, _ := newIdentityFixture()

	_, err := svc.SignUp(context.Background(), "dup@temp.pwaburton.org", "pw", domain.SignUpMetadata{})
	require.NoError(t, err)

	_, err = svc.SignUp(context.Background(), "dup@temp.pwaburton.org", "pw", domain.SignUpMetadata{})
	assert.ErrorIs(t, err, ErrUserAlreadyExists)
}

func TestIdentitySignIn(t *testing.T) {
	svc, _, _, _ := newIdentityFixture()

	_, err := svc.SignUp(context.Background(), "m1002@temp.pwaburton.org", "m1002", domain.SignUpMetadata{})
	require.NoError(t, err)

	t.Run("correct password", func(t *testing.T) {
		session, err := svc.SignInWithPassword(context.Background(), "m1002@temp.pwaburton.org", "m1002")
		require.NoError(t, err)
		assert.NotEmpty(t, session.AccessToken)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.SignInWithPassword(context.Background(), "m1002@temp.pwaburton.org", "wrong")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unknown email", func(t *testing.T) {
		// Indistinguishable from a wrong password to the caller
		_, err := svc.SignInWithPassword(context.Background(), "nobody@temp.pwaburton.org", "pw")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestIdentitySignIn_InactiveAccount(t *testing.T) {
	svc, accountRepo, _, _ := newIdentityFixture()

	session, err := svc.SignUp(context.Background(), "gone@temp.pwaburton.org", "pw", domain.SignUpMetadata{})
	require.NoError(t, err)

	acc, err := accountRepo.GetByID(context.Background(), session.UserID)
	require.NoError(t, err)
	acc.IsActive = false

	_, err = svc.SignInWithPassword(context.Background(), "gone@temp.pwaburton.org", "pw")
	assert.ErrorIs(t, err, ErrUserInactive)
}

func TestIdentityGetSession(t *testing.T) {
	svc, _, _, _ := newIdentityFixture()

	created, err := svc.SignUp(context.Background(), "m1003@temp.pwaburton.org", "m1003",
		domain.SignUpMetadata{MemberNumber: "M1003", Role: domain.RoleCollector})
	require.NoError(t, err)

	session, err := svc.GetSession(context.Background(), created.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, created.UserID, session.UserID)
	assert.Equal(t, "M1003", session.MemberNumber)
	assert.Equal(t, domain.RoleCollector, session.Role)

	_, err = svc.GetSession(context.Background(), "not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestIdentityRefresh_RotatesToken(t *testing.T) {
	svc, _, _, _ := newIdentityFixture()

	created, err := svc.SignUp(context.Background(), "m1004@temp.pwaburton.org", "m1004", domain.SignUpMetadata{})
	require.NoError(t, err)

	refreshed, err := svc.Refresh(context.Background(), created.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, created.RefreshToken, refreshed.RefreshToken)

	// The old token was revoked by rotation and cannot be replayed
	_, err = svc.Refresh(context.Background(), created.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenRevoked)
}

func TestIdentitySignOut_RevokesToken(t *testing.T) {
	svc, _, _, bus := newIdentityFixture()

	created, err := svc.SignUp(context.Background(), "m1005@temp.pwaburton.org", "m1005", domain.SignUpMetadata{})
	require.NoError(t, err)

	events, unsubscribe := bus.Subscribe()
	defer unsubscribe()

	require.NoError(t, svc.SignOut(context.Background(), created.RefreshToken))

	event := <-events
	assert.Equal(t, domain.EventSignedOut, event.Type)

	_, err = svc.Refresh(context.Background(), created.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenRevoked)
}

func TestIdentitySignOut_ExpiredTokenStillNamesUser(t *testing.T) {
	accountRepo := newFakeAuthAccountRepo()
	refreshRepo := newFakeRefreshTokenRepo()
	bus := NewAuthEventBus()
	cfg := &config.Config{
		JWT: config.JWTConfig{
			Secret:        "test-access-secret",
			RefreshSecret: "test-refresh-secret",
			// Refresh tokens are born expired
			AccessTokenMins:  15,
			RefreshTokenDays: -1,
		},
	}
	svc := NewIdentityService(accountRepo, refreshRepo, bus, cfg)

	created, err := svc.SignUp(context.Background(), "m1008@temp.pwaburton.org", "m1008", domain.SignUpMetadata{})
	require.NoError(t, err)

	events, unsubscribe := bus.Subscribe()
	defer unsubscribe()

	require.NoError(t, svc.SignOut(context.Background(), created.RefreshToken))

	// The sign-out event must carry the user even though the token had
	// lapsed, so the session monitor clears the right state
	event := <-events
	assert.Equal(t, domain.EventSignedOut, event.Type)
	require.NotNil(t, event.Session)
	assert.Equal(t, created.UserID, event.Session.UserID)
}

func TestIdentitySignOutEverywhere(t *testing.T) {
	svc, _, _, bus := newIdentityFixture()

	first, err := svc.SignUp(context.Background(), "m1009@temp.pwaburton.org", "m1009", domain.SignUpMetadata{})
	require.NoError(t, err)

	second, err := svc.SignInWithPassword(context.Background(), "m1009@temp.pwaburton.org", "m1009")
	require.NoError(t, err)

	events, unsubscribe := bus.Subscribe()
	defer unsubscribe()

	require.NoError(t, svc.SignOutEverywhere(context.Background(), first.UserID))

	event := <-events
	assert.Equal(t, domain.EventSignedOut, event.Type)
	require.NotNil(t, event.Session)
	assert.Equal(t, first.UserID, event.Session.UserID)

	// Every outstanding refresh token is revoked, not just one client's
	_, err = svc.Refresh(context.Background(), first.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenRevoked)
	_, err = svc.Refresh(context.Background(), second.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenRevoked)
}

func TestIdentityUpdateRoleClaim(t *testing.T) {
	svc, accountRepo, _, bus := newIdentityFixture()

	created, err := svc.SignUp(context.Background(), "m1006@temp.pwaburton.org", "m1006", domain.SignUpMetadata{})
	require.NoError(t, err)

	events, unsubscribe := bus.Subscribe()
	defer unsubscribe()

	require.NoError(t, svc.UpdateRoleClaim(context.Background(), created.UserID, domain.RoleAdmin))

	acc, err := accountRepo.GetByID(context.Background(), created.UserID)
	require.NoError(t, err)
	assert.Equal(t, "admin", acc.Role)

	event := <-events
	assert.Equal(t, domain.EventUserUpdated, event.Type)
	assert.Equal(t, domain.RoleAdmin, event.Session.Role)
}
