package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"pwab-memberhub/internal/adapters/persistence/models"
	"pwab-memberhub/internal/adapters/persistence/repositories"
	"pwab-memberhub/internal/core/domain"

	"gorm.io/gorm"
)

// LoginService translates a human-friendly member-number credential into
// the identity provider's email/password convention, auto-provisioning the
// auth account on first login.
//
// The synthetic credential (member number doubles as password) is a
// compatibility constraint carried over from the existing account base;
// replacing it breaks every already-provisioned account.
type LoginService struct {
	memberRepo repositories.MemberRepository
	identity   IdentityProvider
	domainName string
}

// NewLoginService creates a new login service
func NewLoginService(memberRepo repositories.MemberRepository, identity IdentityProvider, syntheticDomain string) *LoginService {
	return &LoginService{
		memberRepo: memberRepo,
		identity:   identity,
		domainName: syntheticDomain,
	}
}

// LoginResult is the outcome of a member-number login
type LoginResult struct {
	Session *domain.Session
	Member  *models.Member
}

// SyntheticCredentials derives the deterministic credential pair from a
// normalized member number
func (s *LoginService) SyntheticCredentials(memberNumber string) (email, password string) {
	lower := strings.ToLower(memberNumber)
	return lower + "@" + s.domainName, lower
}

// LoginWithMemberNumber runs the member-number login protocol:
// normalize, look up the member (exact then case-insensitive), derive the
// synthetic credential, sign in, and on failure sign up exactly once when
// the member has no linked auth account yet.
func (s *LoginService) LoginWithMemberNumber(ctx context.Context, rawNumber string) (*LoginResult, error) {
	number := strings.ToUpper(strings.TrimSpace(rawNumber))
	if number == "" {
		return nil, domain.ErrInvalidInput
	}

	member, err := s.lookupMember(ctx, number)
	if err != nil {
		return nil, err
	}

	email, pw := s.SyntheticCredentials(member.MemberNumber)

	session, err := s.identity.SignInWithPassword(ctx, email, pw)
	if err == nil {
		s.linkIfUnlinked(ctx, member, session.UserID)
		return &LoginResult{Session: session, Member: member}, nil
	}

	if !errors.Is(err, ErrInvalidCredentials) {
		if errors.Is(err, ErrUserInactive) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrProvider, err)
	}

	// Sign-in failed. A member already linked to an auth account means a
	// real credential problem; signing up would collide or mask it.
	if member.AuthUserID != nil {
		return nil, domain.ErrInvalidCredentials
	}

	// First login: provision the auth account with the member-number claim
	session, err = s.identity.SignUp(ctx, email, pw, domain.SignUpMetadata{
		MemberNumber: member.MemberNumber,
	})
	if err != nil {
		log.Printf("❌ Auth account creation failed for %s: %v", member.MemberNumber, err)
		return nil, domain.ErrAccountCreationFailed
	}

	s.linkIfUnlinked(ctx, member, session.UserID)

	// Retry sign-in once to confirm the provisioned credential works
	session, err = s.identity.SignInWithPassword(ctx, email, pw)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrProvider, err)
	}

	return &LoginResult{Session: session, Member: member}, nil
}

// lookupMember tries an exact member-number match, then a case-insensitive
// one. Both are attempted because upstream data entry is inconsistent.
func (s *LoginService) lookupMember(ctx context.Context, number string) (*models.Member, error) {
	member, err := s.memberRepo.GetByNumber(ctx, number)
	if err == nil {
		return member, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	member, err = s.memberRepo.GetByNumberFold(ctx, number)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrMemberNotFound
		}
		return nil, err
	}
	return member, nil
}

// linkIfUnlinked writes the auth user id into the member row the first
// time a session is linked. Best-effort: the login already succeeded, so a
// failed link is logged and never escalated.
func (s *LoginService) linkIfUnlinked(ctx context.Context, member *models.Member, authUserID string) {
	if member.AuthUserID != nil {
		return
	}
	if err := s.memberRepo.LinkAuthUser(ctx, member.ID, authUserID); err != nil {
		log.Printf("⚠️ %v: member %s -> %s: %v", domain.ErrLinkingFailed, member.MemberNumber, authUserID, err)
		return
	}
	member.AuthUserID = &authUserID
}
