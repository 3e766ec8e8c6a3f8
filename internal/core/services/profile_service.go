package services

import (
	"context"
	"errors"
	"log"

	"pwab-memberhub/internal/adapters/persistence/models"
	"pwab-memberhub/internal/adapters/persistence/repositories"
	"pwab-memberhub/internal/core/domain"

	"gorm.io/gorm"
)

// ProfileService resolves the application-level member record for a
// session. The member-number claim wins over the auth_user_id
// back-reference because claims are written at provisioning time while the
// back-reference may be stale.
type ProfileService struct {
	memberRepo repositories.MemberRepository
}

// NewProfileService creates a new profile service
func NewProfileService(memberRepo repositories.MemberRepository) *ProfileService {
	return &ProfileService{memberRepo: memberRepo}
}

// Resolve returns the member for the session, or domain.ErrNoProfile when
// neither the member-number claim nor the auth user id matches a row.
// "No profile" is a valid terminal state for a freshly created auth account
// pending backfill; store errors propagate instead.
func (s *ProfileService) Resolve(ctx context.Context, session *domain.Session) (*models.Member, error) {
	if session == nil {
		return nil, domain.ErrUnauthorized
	}

	if session.MemberNumber != "" {
		member, err := s.getByNumberRetry(ctx, session.MemberNumber)
		if err == nil {
			s.lazyLink(ctx, member, session.UserID)
			return member, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	member, err := s.getByAuthUserRetry(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNoProfile
		}
		return nil, err
	}
	return member, nil
}

// getByNumberRetry reads by member number, retrying once on a store error
func (s *ProfileService) getByNumberRetry(ctx context.Context, number string) (*models.Member, error) {
	member, err := s.memberRepo.GetByNumber(ctx, number)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		member, err = s.memberRepo.GetByNumber(ctx, number)
	}
	return member, err
}

// getByAuthUserRetry reads by auth user id, retrying once on a store error
func (s *ProfileService) getByAuthUserRetry(ctx context.Context, authUserID string) (*models.Member, error) {
	member, err := s.memberRepo.GetByAuthUserID(ctx, authUserID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		member, err = s.memberRepo.GetByAuthUserID(ctx, authUserID)
	}
	return member, err
}

// lazyLink backfills the auth user id on a claim-resolved member that has
// none yet. Best-effort follow-up: the sign-in already succeeded
// independent of the link, so failure is logged, never escalated. The
// repository guard (WHERE auth_user_id IS NULL) keeps it idempotent.
func (s *ProfileService) lazyLink(ctx context.Context, member *models.Member, authUserID string) {
	if member.AuthUserID != nil || authUserID == "" {
		return
	}
	if err := s.memberRepo.LinkAuthUser(ctx, member.ID, authUserID); err != nil {
		log.Printf("⚠️ %v: member %s -> %s: %v", domain.ErrLinkingFailed, member.MemberNumber, authUserID, err)
		return
	}
	member.AuthUserID = &authUserID
}
