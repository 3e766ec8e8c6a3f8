package services

import (
	"context"

	"pwab-memberhub/internal/adapters/persistence/models"
	"pwab-memberhub/internal/core/domain"
)

// IdentityProvider is the identity surface consumed by the policy core:
// sign-up / sign-in / sign-out / session retrieval / user retrieval plus
// the auth state-change event stream. The concrete implementation is
// IdentityService; tests substitute fakes.
type IdentityProvider interface {
	SignUp(ctx context.Context, email, password string, meta domain.SignUpMetadata) (*domain.Session, error)
	SignInWithPassword(ctx context.Context, email, password string) (*domain.Session, error)
	SignOut(ctx context.Context, refreshToken string) error
	SignOutEverywhere(ctx context.Context, userID string) error
	GetSession(ctx context.Context, accessToken string) (*domain.Session, error)
	GetUser(ctx context.Context, userID string) (*models.AuthAccount, error)
	Refresh(ctx context.Context, refreshToken string) (*domain.Session, error)
	UpdateRoleClaim(ctx context.Context, userID string, role domain.Role) error
	// Subscribe returns a channel of auth events and an unsubscribe func
	Subscribe() (<-chan domain.AuthEvent, func())
}

// Notifier delivers user-visible notices (toasts in the web client).
// The default implementation just logs.
type Notifier interface {
	Notify(userID, title, message string)
}
