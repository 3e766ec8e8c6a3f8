package services

import (
	"context"
	"errors"
	"log"
	"sync"

	"pwab-memberhub/internal/adapters/persistence/models"
	"pwab-memberhub/internal/core/domain"
)

// Navigation targets driven by the session monitor
const (
	RouteLogin   = "/login"
	RouteHome    = "/"
	RouteProfile = "/admin/profile"
)

// AuthPolicyState is the derived, in-memory authorization state for one
// authenticated user. It is recomputed on every session-change event and
// never persisted.
type AuthPolicyState struct {
	IsLoggedIn                bool           `json:"is_logged_in"`
	Role                      domain.Role    `json:"role"`
	Profile                   *models.Member `json:"profile,omitempty"`
	RequiresProfileCompletion bool           `json:"requires_profile_completion"`
	RedirectTo                string         `json:"redirect_to"`

	// welcomed and gateNotified guard the once-per-session notices
	welcomed     bool
	gateNotified bool
	// seq of the event that last wrote this state, for last-write-wins
	seq uint64
}

// SessionMonitor owns the per-user AuthPolicyState. It subscribes to the
// auth event stream on Start and applies each event to the state machine:
// SIGNED_IN resolves profile and role and runs the first-login gate,
// SIGNED_OUT clears everything, TOKEN_REFRESHED re-affirms without
// resetting. One monitor instance per process.
type SessionMonitor struct {
	identity IdentityProvider
	profiles *ProfileService
	roles    *RoleService
	notifier Notifier

	mu     sync.Mutex
	states map[string]*AuthPolicyState
	live   bool

	unsubscribe func()
	done        chan struct{}
}

// NewSessionMonitor creates a new session monitor
func NewSessionMonitor(identity IdentityProvider, profiles *ProfileService, roles *RoleService, notifier Notifier) *SessionMonitor {
	return &SessionMonitor{
		identity: identity,
		profiles: profiles,
		roles:    roles,
		notifier: notifier,
		states:   make(map[string]*AuthPolicyState),
	}
}

// Start subscribes to the auth event stream and begins applying events.
// Must be paired with Close.
func (m *SessionMonitor) Start() {
	m.mu.Lock()
	if m.live {
		m.mu.Unlock()
		return
	}
	m.live = true
	m.mu.Unlock()

	events, unsubscribe := m.identity.Subscribe()
	m.unsubscribe = unsubscribe
	m.done = make(chan struct{})

	go func() {
		defer close(m.done)
		for event := range events {
			m.apply(event)
		}
	}()

	log.Println("🚀 Session monitor started")
}

// Close clears the liveness flag and unsubscribes. Events still in flight
// are ignored once the flag is down, so a racing handler cannot navigate
// a torn-down monitor.
func (m *SessionMonitor) Close() {
	m.mu.Lock()
	if !m.live {
		m.mu.Unlock()
		return
	}
	m.live = false
	m.mu.Unlock()

	if m.unsubscribe != nil {
		m.unsubscribe()
		<-m.done
	}
	log.Println("🛑 Session monitor stopped")
}

// State returns a copy of the policy state for the user, or a signed-out
// state when none is tracked
func (m *SessionMonitor) State(userID string) AuthPolicyState {
	m.mu.Lock()
	defer m.mu.Unlock()

	if state, ok := m.states[userID]; ok {
		return *state
	}
	return AuthPolicyState{Role: domain.RoleNone, RedirectTo: RouteLogin}
}

// RunInitialCheck performs the one-time session retrieval for a caller
// that presents an access token before any stream event has been applied
// for that user. A check that loses the race to a real event is discarded:
// the event's state wins regardless of which write completes last.
func (m *SessionMonitor) RunInitialCheck(ctx context.Context, accessToken string) (AuthPolicyState, error) {
	session, err := m.identity.GetSession(ctx, accessToken)
	if err != nil {
		return AuthPolicyState{Role: domain.RoleNone, RedirectTo: RouteLogin}, err
	}

	m.mu.Lock()
	existing, tracked := m.states[session.UserID]
	live := m.live
	m.mu.Unlock()

	if !live {
		return AuthPolicyState{Role: domain.RoleNone, RedirectTo: RouteLogin}, nil
	}
	if tracked && existing.seq > 0 {
		// A stream event already wrote this user's state; the initial
		// check is stale by recency even if it finishes later.
		return m.State(session.UserID), nil
	}

	m.apply(domain.AuthEvent{Seq: 0, Type: domain.EventInitialSession, Session: session})
	return m.State(session.UserID), nil
}

// apply runs one event through the state machine
func (m *SessionMonitor) apply(event domain.AuthEvent) {
	m.mu.Lock()
	if !m.live {
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()

	switch event.Type {
	case domain.EventSignedIn, domain.EventInitialSession, domain.EventUserUpdated:
		m.handleSignedIn(event)
	case domain.EventSignedOut:
		m.handleSignedOut(event)
	case domain.EventTokenRefreshed:
		m.handleTokenRefreshed(event)
	default:
		log.Printf("⚠️ Unknown auth event ignored: %s", event.Type)
	}
}

func (m *SessionMonitor) handleSignedIn(event domain.AuthEvent) {
	session := event.Session
	if session == nil || session.UserID == "" {
		m.handleSignedOut(event)
		return
	}

	ctx := context.Background()

	profile, err := m.profiles.Resolve(ctx, session)
	if err != nil && !errors.Is(err, domain.ErrNoProfile) {
		// A store failure mid-handling is fatal to this session, never to
		// the process: fall back to signed-out.
		log.Printf("❌ Profile resolution failed for %s, treating as signed out: %v", session.UserID, err)
		m.resetState(session.UserID, event.Seq)
		return
	}

	role := m.roles.ResolveRole(ctx, session)

	m.mu.Lock()
	state, ok := m.states[session.UserID]
	if !ok {
		state = &AuthPolicyState{}
		m.states[session.UserID] = state
	}
	if event.Seq < state.seq {
		m.mu.Unlock()
		return
	}

	state.IsLoggedIn = true
	state.Role = role
	state.Profile = profile
	state.seq = event.Seq

	welcome := event.Type == domain.EventSignedIn && !state.welcomed
	if welcome {
		state.welcomed = true
	}

	state.RequiresProfileCompletion = profile != nil && profile.RequiresProfileCompletion()
	gate := false
	if state.RequiresProfileCompletion {
		state.RedirectTo = RouteProfile
		if !state.gateNotified {
			state.gateNotified = true
			gate = true
		}
	} else {
		state.RedirectTo = RouteHome
		state.gateNotified = false
	}
	m.mu.Unlock()

	if welcome {
		m.notifier.Notify(session.UserID, "Signed in", "Welcome back")
	}
	if gate {
		m.notifier.Notify(session.UserID, "Complete your profile", "Please complete your profile before continuing")
	}
}

func (m *SessionMonitor) handleSignedOut(event domain.AuthEvent) {
	if event.Session == nil || event.Session.UserID == "" {
		log.Println("⚠️ Signed-out event without a user, nothing to clear")
		return
	}
	m.resetState(event.Session.UserID, event.Seq)
}

// handleTokenRefreshed re-affirms the logged-in state while preserving the
// already-resolved profile and role, avoiding redundant refetches and
// redirects. A refresh for an untracked user is handled as a sign-in.
func (m *SessionMonitor) handleTokenRefreshed(event domain.AuthEvent) {
	session := event.Session
	if session == nil || session.UserID == "" {
		return
	}

	m.mu.Lock()
	state, ok := m.states[session.UserID]
	if ok && state.IsLoggedIn {
		if event.Seq >= state.seq {
			state.seq = event.Seq
		}
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()

	m.handleSignedIn(event)
}

// resetState clears a user's state to signed-out. Role and tab access
// must never leak across a sign-out boundary, so the state is replaced
// outright rather than partially cleared.
func (m *SessionMonitor) resetState(userID string, seq uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if state, ok := m.states[userID]; ok && seq < state.seq {
		return
	}
	m.states[userID] = &AuthPolicyState{
		IsLoggedIn: false,
		Role:       domain.RoleNone,
		Profile:    nil,
		RedirectTo: RouteLogin,
		seq:        seq,
	}
}

// LogNotifier is the default Notifier: notices go to the process log.
// The web client renders its own toasts from response payloads.
type LogNotifier struct{}

// Notify logs a user-visible notice
func (LogNotifier) Notify(userID, title, message string) {
	log.Printf("🔔 [%s] %s: %s", userID, title, message)
}
