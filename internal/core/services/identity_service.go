package services

import (
	"context"
	"errors"
	"log"

	"pwab-memberhub/internal/adapters/persistence/models"
	"pwab-memberhub/internal/adapters/persistence/repositories"
	"pwab-memberhub/internal/config"
	"pwab-memberhub/internal/core/domain"
	"pwab-memberhub/internal/pkg/jwt"
	"pwab-memberhub/internal/pkg/password"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Identity errors
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token expired")
	ErrTokenRevoked       = errors.New("token revoked")
	ErrUserInactive       = errors.New("user account is inactive")
)

// IdentityService implements IdentityProvider: password auth with a JWT
// access/refresh pair, refresh token rotation, and an auth event stream.
type IdentityService struct {
	accountRepo      repositories.AuthAccountRepository
	refreshTokenRepo repositories.RefreshTokenRepository
	bus              *AuthEventBus
	cfg              *config.Config
}

// NewIdentityService creates a new identity service
func NewIdentityService(
	accountRepo repositories.AuthAccountRepository,
	refreshTokenRepo repositories.RefreshTokenRepository,
	bus *AuthEventBus,
	cfg *config.Config,
) *IdentityService {
	return &IdentityService{
		accountRepo:      accountRepo,
		refreshTokenRepo: refreshTokenRepo,
		bus:              bus,
		cfg:              cfg,
	}
}

// SignUp creates a new auth account with the given metadata claims and
// returns an authenticated session
func (s *IdentityService) SignUp(ctx context.Context, email, pw string, meta domain.SignUpMetadata) (*domain.Session, error) {
	exists, err := s.accountRepo.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrUserAlreadyExists
	}

	hashed, err := password.Hash(pw)
	if err != nil {
		return nil, err
	}

	account := &models.AuthAccount{
		ID:           uuid.New().String(),
		Email:        email,
		Password:     hashed,
		MemberNumber: meta.MemberNumber,
		Role:         string(meta.Role),
		IsActive:     true,
	}

	if err := s.accountRepo.Create(ctx, account); err != nil {
		return nil, err
	}

	session, err := s.createSession(ctx, account)
	if err != nil {
		return nil, err
	}

	log.Printf("✅ Auth account created: %s", account.Email)
	s.bus.Publish(domain.EventSignedIn, session)
	return session, nil
}

// SignInWithPassword authenticates an account by email and password
func (s *IdentityService) SignInWithPassword(ctx context.Context, email, pw string) (*domain.Session, error) {
	account, err := s.accountRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !account.IsActive {
		return nil, ErrUserInactive
	}

	if !password.Verify(pw, account.Password) {
		return nil, ErrInvalidCredentials
	}

	session, err := s.createSession(ctx, account)
	if err != nil {
		return nil, err
	}

	log.Printf("✅ User signed in: %s", account.Email)
	s.bus.Publish(domain.EventSignedIn, session)
	return session, nil
}

// SignOut revokes the refresh token and publishes SIGNED_OUT. The token
// is parsed without claim validation: an expired token must still name
// the user whose session state gets cleared.
func (s *IdentityService) SignOut(ctx context.Context, refreshToken string) error {
	var session *domain.Session
	if claims, err := jwt.ParseRefreshTokenClaims(refreshToken, s.cfg.JWT.RefreshSecret); err == nil {
		session = &domain.Session{UserID: claims.UserID}
	}

	tokenHash := password.HashToken(refreshToken)
	if err := s.refreshTokenRepo.RevokeByTokenHash(ctx, tokenHash); err != nil {
		return err
	}

	log.Printf("✅ User signed out")
	s.bus.Publish(domain.EventSignedOut, session)
	return nil
}

// SignOutEverywhere revokes every refresh token the user holds and
// publishes SIGNED_OUT for them
func (s *IdentityService) SignOutEverywhere(ctx context.Context, userID string) error {
	if err := s.refreshTokenRepo.RevokeAllByUserID(ctx, userID); err != nil {
		return err
	}

	log.Printf("✅ All sessions revoked for user: %s", userID)
	s.bus.Publish(domain.EventSignedOut, &domain.Session{UserID: userID})
	return nil
}

// GetSession validates an access token and reconstructs the session view
// embedded in it. Returns ErrInvalidToken / ErrTokenExpired on failure.
func (s *IdentityService) GetSession(ctx context.Context, accessToken string) (*domain.Session, error) {
	claims, err := jwt.ValidateAccessToken(accessToken, s.cfg.JWT.Secret)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}

	return &domain.Session{
		UserID:       claims.UserID,
		Email:        claims.Email,
		AccessToken:  accessToken,
		MemberNumber: claims.MemberNumber,
		Role:         domain.Role(claims.Role),
		ExpiresAt:    claims.ExpiresAt.Time,
	}, nil
}

// GetUser gets an auth account by user id
func (s *IdentityService) GetUser(ctx context.Context, userID string) (*models.AuthAccount, error) {
	account, err := s.accountRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return account, nil
}

// Refresh rotates the refresh token and issues a new session
func (s *IdentityService) Refresh(ctx context.Context, refreshToken string) (*domain.Session, error) {
	claims, err := jwt.ValidateRefreshToken(refreshToken, s.cfg.JWT.RefreshSecret)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}

	tokenHash := password.HashToken(refreshToken)
	storedToken, err := s.refreshTokenRepo.GetByTokenHash(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}

	if storedToken.IsRevoked() {
		return nil, ErrTokenRevoked
	}
	if storedToken.IsExpired() {
		return nil, ErrTokenExpired
	}

	account, err := s.accountRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, ErrUserNotFound
	}
	if !account.IsActive {
		return nil, ErrUserInactive
	}

	// Token rotation: revoke the old refresh token before issuing a new one
	if err := s.refreshTokenRepo.Revoke(ctx, storedToken.ID); err != nil {
		return nil, err
	}

	session, err := s.createSession(ctx, account)
	if err != nil {
		return nil, err
	}

	log.Printf("✅ Token refreshed for user: %s", account.Email)
	s.bus.Publish(domain.EventTokenRefreshed, session)
	return session, nil
}

// UpdateRoleClaim refreshes the role claim cached on the account metadata
// and publishes USER_UPDATED
func (s *IdentityService) UpdateRoleClaim(ctx context.Context, userID string, role domain.Role) error {
	if err := s.accountRepo.UpdateRoleClaim(ctx, userID, string(role)); err != nil {
		return err
	}

	account, err := s.accountRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	s.bus.Publish(domain.EventUserUpdated, &domain.Session{
		UserID:       account.ID,
		Email:        account.Email,
		MemberNumber: account.MemberNumber,
		Role:         domain.Role(account.Role),
	})
	return nil
}

// Subscribe subscribes to the auth event stream
func (s *IdentityService) Subscribe() (<-chan domain.AuthEvent, func()) {
	return s.bus.Subscribe()
}

// createSession generates the token pair, stores the refresh token, and
// builds the session view
func (s *IdentityService) createSession(ctx context.Context, account *models.AuthAccount) (*domain.Session, error) {
	accessToken, err := jwt.GenerateAccessToken(
		account.ID,
		account.Email,
		account.MemberNumber,
		account.Role,
		s.cfg.JWT.Secret,
		s.cfg.JWT.AccessTokenMins,
	)
	if err != nil {
		return nil, err
	}

	tokenID := uuid.New().String()
	refreshToken, err := jwt.GenerateRefreshToken(
		account.ID,
		tokenID,
		s.cfg.JWT.RefreshSecret,
		s.cfg.JWT.RefreshTokenDays,
	)
	if err != nil {
		return nil, err
	}

	if err := s.refreshTokenRepo.Create(ctx, &models.RefreshToken{
		UserID:    account.ID,
		TokenHash: password.HashToken(refreshToken),
		ExpiresAt: jwt.GetExpiryTime(s.cfg.JWT.RefreshTokenDays),
	}); err != nil {
		return nil, err
	}

	return &domain.Session{
		UserID:       account.ID,
		Email:        account.Email,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		MemberNumber: account.MemberNumber,
		Role:         domain.Role(account.Role),
		ExpiresAt:    jwt.GetAccessExpiry(s.cfg.JWT.AccessTokenMins),
	}, nil
}
