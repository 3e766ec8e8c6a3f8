package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"pwab-memberhub/internal/adapters/persistence/models"
	"pwab-memberhub/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type monitorFixture struct {
	monitor    *SessionMonitor
	memberRepo *fakeMemberRepo
	identity   *fakeIdentity
	roleRepo   *fakeUserRoleRepo
	notifier   *fakeNotifier
}

func newMonitorFixture(t *testing.T) *monitorFixture {
	t.Helper()

	memberRepo := newFakeMemberRepo()
	identity := newFakeIdentity()
	roleRepo := newFakeUserRoleRepo()
	notifier := &fakeNotifier{}

	monitor := NewSessionMonitor(
		identity,
		NewProfileService(memberRepo),
		NewRoleService(roleRepo),
		notifier,
	)
	monitor.Start()
	t.Cleanup(monitor.Close)

	return &monitorFixture{
		monitor:    monitor,
		memberRepo: memberRepo,
		identity:   identity,
		roleRepo:   roleRepo,
		notifier:   notifier,
	}
}

func waitForState(t *testing.T, m *SessionMonitor, userID string, cond func(AuthPolicyState) bool) AuthPolicyState {
	t.Helper()
	require.Eventually(t, func() bool {
		return cond(m.State(userID))
	}, time.Second, 5*time.Millisecond)
	return m.State(userID)
}

func TestSessionMonitor_SignedInResolvesProfileAndRole(t *testing.T) {
	f := newMonitorFixture(t)
	f.memberRepo.add(&models.Member{
		MemberNumber:     "M3001",
		FirstTimeLogin:   false,
		ProfileCompleted: true,
	})
	f.roleRepo.roles["user-1"] = []string{"collector"}

	f.identity.bus.Publish(domain.EventSignedIn, &domain.Session{
		UserID:       "user-1",
		MemberNumber: "M3001",
	})

	state := waitForState(t, f.monitor, "user-1", func(s AuthPolicyState) bool { return s.IsLoggedIn })
	assert.Equal(t, domain.RoleCollector, state.Role)
	require.NotNil(t, state.Profile)
	assert.Equal(t, "M3001", state.Profile.MemberNumber)
	assert.False(t, state.RequiresProfileCompletion)
	assert.Equal(t, RouteHome, state.RedirectTo)
	assert.Equal(t, 1, f.notifier.count(), "signed-in notice delivered once")
}

func TestSessionMonitor_FirstLoginGateRedirectsOnce(t *testing.T) {
	f := newMonitorFixture(t)
	f.memberRepo.add(&models.Member{MemberNumber: "M3002", FirstTimeLogin: true})

	session := &domain.Session{UserID: "user-2", MemberNumber: "M3002"}
	f.identity.bus.Publish(domain.EventSignedIn, session)

	state := waitForState(t, f.monitor, "user-2", func(s AuthPolicyState) bool { return s.IsLoggedIn })
	assert.True(t, state.RequiresProfileCompletion)
	assert.Equal(t, RouteProfile, state.RedirectTo)
	// Welcome notice + gate notice
	assert.Equal(t, 2, f.notifier.count())

	// A re-delivered sign-in re-runs the gate but must not re-notify
	f.identity.bus.Publish(domain.EventSignedIn, session)
	waitForState(t, f.monitor, "user-2", func(s AuthPolicyState) bool { return s.IsLoggedIn })
	assert.Equal(t, 2, f.notifier.count(), "gate notice fires once per session")
}

func TestSessionMonitor_GateClearsAfterCompletion(t *testing.T) {
	f := newMonitorFixture(t)
	member := f.memberRepo.add(&models.Member{MemberNumber: "M3003", FirstTimeLogin: true})

	session := &domain.Session{UserID: "user-3", MemberNumber: "M3003"}
	f.identity.bus.Publish(domain.EventSignedIn, session)
	waitForState(t, f.monitor, "user-3", func(s AuthPolicyState) bool {
		return s.IsLoggedIn && s.RequiresProfileCompletion
	})

	// Profile submission flips both flags in one update
	require.NoError(t, f.memberRepo.CompleteProfile(context.Background(), member.ID, &models.Member{
		FullName: "Done", Email: "done@example.com", Phone: "0123",
	}))

	f.identity.bus.Publish(domain.EventSignedIn, session)
	state := waitForState(t, f.monitor, "user-3", func(s AuthPolicyState) bool {
		return s.IsLoggedIn && !s.RequiresProfileCompletion
	})
	assert.Equal(t, RouteHome, state.RedirectTo)
}

func TestSessionMonitor_SignedOutResetsState(t *testing.T) {
	f := newMonitorFixture(t)
	f.memberRepo.add(&models.Member{MemberNumber: "M3004", ProfileCompleted: true, FirstTimeLogin: false})
	f.roleRepo.roles["user-4"] = []string{"admin"}

	session := &domain.Session{UserID: "user-4", MemberNumber: "M3004"}
	f.identity.bus.Publish(domain.EventSignedIn, session)
	waitForState(t, f.monitor, "user-4", func(s AuthPolicyState) bool {
		return s.IsLoggedIn && s.Role == domain.RoleAdmin
	})

	f.identity.bus.Publish(domain.EventSignedOut, &domain.Session{UserID: "user-4"})

	state := waitForState(t, f.monitor, "user-4", func(s AuthPolicyState) bool { return !s.IsLoggedIn })
	assert.Equal(t, domain.RoleNone, state.Role, "role must not leak across a sign-out boundary")
	assert.Nil(t, state.Profile)
	assert.Equal(t, RouteLogin, state.RedirectTo)
}

func TestSessionMonitor_TokenRefreshPreservesResolvedState(t *testing.T) {
	f := newMonitorFixture(t)
	f.memberRepo.add(&models.Member{MemberNumber: "M3005", ProfileCompleted: true, FirstTimeLogin: false})
	f.roleRepo.roles["user-5"] = []string{"collector"}

	f.identity.bus.Publish(domain.EventSignedIn, &domain.Session{UserID: "user-5", MemberNumber: "M3005"})
	waitForState(t, f.monitor, "user-5", func(s AuthPolicyState) bool { return s.IsLoggedIn })

	// Refresh carries no claims; already-resolved profile and role survive
	f.roleRepo.listErrs = []error{errors.New("must not be consulted"), errors.New("must not be consulted")}
	f.identity.bus.Publish(domain.EventTokenRefreshed, &domain.Session{UserID: "user-5"})

	time.Sleep(50 * time.Millisecond)
	state := f.monitor.State("user-5")
	assert.True(t, state.IsLoggedIn)
	assert.Equal(t, domain.RoleCollector, state.Role)
	require.NotNil(t, state.Profile)
	assert.Equal(t, 1, f.notifier.count(), "refresh must not re-toast")
}

func TestSessionMonitor_ProfileStoreFailureIsFatalToSessionOnly(t *testing.T) {
	f := newMonitorFixture(t)
	f.memberRepo.add(&models.Member{MemberNumber: "M3006", ProfileCompleted: true, FirstTimeLogin: false})

	session := &domain.Session{UserID: "user-6", MemberNumber: "M3006"}
	f.identity.bus.Publish(domain.EventSignedIn, session)
	waitForState(t, f.monitor, "user-6", func(s AuthPolicyState) bool { return s.IsLoggedIn })

	// Both the read and its retry fail on the next event
	storeErr := errors.New("store down")
	f.memberRepo.getByNumberErrs = []error{storeErr, storeErr}
	f.identity.bus.Publish(domain.EventSignedIn, session)

	state := waitForState(t, f.monitor, "user-6", func(s AuthPolicyState) bool { return !s.IsLoggedIn })
	assert.Equal(t, RouteLogin, state.RedirectTo)
}

func TestSessionMonitor_InitialCheck(t *testing.T) {
	f := newMonitorFixture(t)
	f.memberRepo.add(&models.Member{MemberNumber: "M3007", ProfileCompleted: true, FirstTimeLogin: false})

	// Mint a session token without publishing any stream event
	acc := f.identity.addAccount("m3007@temp.pwaburton.org", "m3007", "M3007", "")
	f.identity.mu.Lock()
	session := f.identity.sessionFor("m3007@temp.pwaburton.org", acc)
	f.identity.mu.Unlock()

	state, err := f.monitor.RunInitialCheck(context.Background(), session.AccessToken)
	require.NoError(t, err)
	assert.True(t, state.IsLoggedIn)
	assert.Equal(t, 0, f.notifier.count(), "initial session restoration is silent")
}

func TestSessionMonitor_StaleInitialCheckDoesNotOverwrite(t *testing.T) {
	f := newMonitorFixture(t)
	f.memberRepo.add(&models.Member{MemberNumber: "M3008", ProfileCompleted: true, FirstTimeLogin: false})

	// A real stream event lands first
	session, err := f.identity.SignUp(context.Background(), "m3008@temp.pwaburton.org", "m3008",
		domain.SignUpMetadata{MemberNumber: "M3008"})
	require.NoError(t, err)
	waitForState(t, f.monitor, session.UserID, func(s AuthPolicyState) bool { return s.IsLoggedIn })
	before := f.notifier.count()

	// The initial check completes later; event recency wins
	state, err := f.monitor.RunInitialCheck(context.Background(), session.AccessToken)
	require.NoError(t, err)
	assert.True(t, state.IsLoggedIn)
	assert.Equal(t, before, f.notifier.count(), "stale initial check must not re-run side effects")
}

func TestSessionMonitor_InvalidTokenOnInitialCheck(t *testing.T) {
	f := newMonitorFixture(t)

	state, err := f.monitor.RunInitialCheck(context.Background(), "garbage")
	assert.Error(t, err)
	assert.False(t, state.IsLoggedIn)
	assert.Equal(t, RouteLogin, state.RedirectTo)
}

func TestSessionMonitor_ClosedMonitorIgnoresEvents(t *testing.T) {
	memberRepo := newFakeMemberRepo()
	identity := newFakeIdentity()
	monitor := NewSessionMonitor(identity, NewProfileService(memberRepo), NewRoleService(newFakeUserRoleRepo()), &fakeNotifier{})
	monitor.Start()
	monitor.Close()

	identity.bus.Publish(domain.EventSignedIn, &domain.Session{UserID: "user-7"})
	time.Sleep(20 * time.Millisecond)

	assert.False(t, monitor.State("user-7").IsLoggedIn)
}
