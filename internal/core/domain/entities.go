package domain

import "time"

// Role represents an authorization role in the system
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleCollector Role = "collector"
	RoleMember    Role = "member"
	RoleNone      Role = ""
)

// Valid reports whether the role is one of the known roles
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleCollector, RoleMember:
		return true
	}
	return false
}

// Session represents an authenticated identity-provider session.
// It is created by sign-in/sign-up and observed by the policy core;
// the core never mutates it.
type Session struct {
	UserID       string
	Email        string
	AccessToken  string
	RefreshToken string
	MemberNumber string // metadata claim, may be empty
	Role         Role   // metadata claim (fast-path role cache), may be empty
	ExpiresAt    time.Time
}

// SignUpMetadata is the free-form metadata embedded at account creation
type SignUpMetadata struct {
	MemberNumber string
	Role         Role
}

// AuthEventType names the auth state-change events delivered by the
// identity provider's event stream
type AuthEventType string

const (
	EventSignedIn       AuthEventType = "SIGNED_IN"
	EventSignedOut      AuthEventType = "SIGNED_OUT"
	EventTokenRefreshed AuthEventType = "TOKEN_REFRESHED"
	EventUserUpdated    AuthEventType = "USER_UPDATED"
	EventInitialSession AuthEventType = "INITIAL_SESSION"
)

// AuthEvent is a single auth state-change notification. Seq is assigned
// by the event bus in delivery order; state writes are ordered by Seq so
// a stale initial session check can never overwrite a newer event.
type AuthEvent struct {
	Seq     uint64
	Type    AuthEventType
	Session *Session
}
