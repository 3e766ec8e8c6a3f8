package services

import (
	"context"
	"errors"
	"log"
	"strings"

	"pwab-memberhub/internal/adapters/persistence/models"
	"pwab-memberhub/internal/adapters/persistence/repositories"
	"pwab-memberhub/internal/core/domain"

	"gorm.io/gorm"
)

// Member service errors
var (
	ErrCannotChangeOwnRole = errors.New("cannot change your own role")
	ErrLastAdmin           = errors.New("cannot remove the last admin")
)

// RegisterMemberRequest is the registration payload
type RegisterMemberRequest struct {
	MemberNumber string `json:"member_number" validate:"required"`
	FullName     string `json:"full_name" validate:"required"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	Address      string `json:"address"`
	CollectorID  *uint  `json:"collector_id"`
}

// CompleteProfileRequest is the profile-completion payload. Submitting it
// clears the first-login gate permanently for the member.
type CompleteProfileRequest struct {
	FullName string `json:"full_name" validate:"required"`
	Email    string `json:"email" validate:"required"`
	Phone    string `json:"phone" validate:"required"`
	Address  string `json:"address"`
}

// MemberService handles member registration, profile management, and role
// assignment
type MemberService struct {
	memberRepo repositories.MemberRepository
	roleRepo   repositories.UserRoleRepository
	profiles   *ProfileService
	identity   IdentityProvider
}

// NewMemberService creates a new member service
func NewMemberService(
	memberRepo repositories.MemberRepository,
	roleRepo repositories.UserRoleRepository,
	profiles *ProfileService,
	identity IdentityProvider,
) *MemberService {
	return &MemberService{
		memberRepo: memberRepo,
		roleRepo:   roleRepo,
		profiles:   profiles,
		identity:   identity,
	}
}

// Register creates a new member record awaiting approval. The auth
// account is not created here; it is provisioned lazily on the member's
// first login.
func (s *MemberService) Register(ctx context.Context, req *RegisterMemberRequest) (*models.Member, error) {
	number := strings.ToUpper(strings.TrimSpace(req.MemberNumber))
	if number == "" || strings.TrimSpace(req.FullName) == "" {
		return nil, domain.ErrInvalidInput
	}

	exists, err := s.memberRepo.ExistsByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, domain.ErrMemberAlreadyExists
	}

	member := &models.Member{
		MemberNumber: number,
		FullName:     strings.TrimSpace(req.FullName),
		Email:        strings.TrimSpace(req.Email),
		Phone:        strings.TrimSpace(req.Phone),
		Address:      strings.TrimSpace(req.Address),
		CollectorID:  req.CollectorID,
		Status:       "pending",
	}

	if err := s.memberRepo.Create(ctx, member); err != nil {
		return nil, err
	}

	log.Printf("✅ Member registered: %s", member.MemberNumber)
	return member, nil
}

// GetProfile resolves the member profile for a session
func (s *MemberService) GetProfile(ctx context.Context, session *domain.Session) (*models.Member, error) {
	return s.profiles.Resolve(ctx, session)
}

// CompleteProfile updates the member's contact details and clears the
// first-login gate in a single update
func (s *MemberService) CompleteProfile(ctx context.Context, session *domain.Session, req *CompleteProfileRequest) (*models.Member, error) {
	if strings.TrimSpace(req.FullName) == "" || strings.TrimSpace(req.Email) == "" || strings.TrimSpace(req.Phone) == "" {
		return nil, domain.ErrInvalidInput
	}

	member, err := s.profiles.Resolve(ctx, session)
	if err != nil {
		return nil, err
	}

	update := &models.Member{
		FullName: strings.TrimSpace(req.FullName),
		Email:    strings.TrimSpace(req.Email),
		Phone:    strings.TrimSpace(req.Phone),
		Address:  strings.TrimSpace(req.Address),
	}
	if err := s.memberRepo.CompleteProfile(ctx, member.ID, update); err != nil {
		return nil, err
	}

	log.Printf("✅ Profile completed for member: %s", member.MemberNumber)
	return s.memberRepo.GetByID(ctx, member.ID)
}

// GetMember gets a member by id
func (s *MemberService) GetMember(ctx context.Context, id uint) (*models.Member, error) {
	member, err := s.memberRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return member, nil
}

// ListMembers lists members with pagination
func (s *MemberService) ListMembers(ctx context.Context, offset, limit int) ([]*models.Member, int64, error) {
	return s.memberRepo.List(ctx, offset, limit)
}

// ListCollectors lists members holding the collector role, with pagination
func (s *MemberService) ListCollectors(ctx context.Context, offset, limit int) ([]*models.Member, int64, error) {
	return s.memberRepo.ListCollectors(ctx, offset, limit)
}

// UpdateMember updates an existing member record
func (s *MemberService) UpdateMember(ctx context.Context, member *models.Member) error {
	return s.memberRepo.Update(ctx, member)
}

// AssignRoleToMember assigns a role to the auth account linked to a
// member. A member with no linked account cannot hold a role yet; the
// account appears on their first login.
func (s *MemberService) AssignRoleToMember(ctx context.Context, actorUserID string, memberID uint, role domain.Role) error {
	member, err := s.GetMember(ctx, memberID)
	if err != nil {
		return err
	}
	if member.AuthUserID == nil {
		return domain.ErrMemberNotLinked
	}
	return s.AssignRole(ctx, actorUserID, *member.AuthUserID, role)
}

// AssignRole replaces the target user's role assignment and refreshes the
// role claim cached on the auth account. An admin may not change their own
// role, and the last admin cannot be demoted.
func (s *MemberService) AssignRole(ctx context.Context, actorUserID, targetUserID string, role domain.Role) error {
	if !role.Valid() {
		return domain.ErrInvalidInput
	}
	if actorUserID == targetUserID {
		return ErrCannotChangeOwnRole
	}

	if role != domain.RoleAdmin {
		current, err := s.roleRepo.ListByUser(ctx, targetUserID)
		if err != nil {
			return err
		}
		for _, row := range current {
			if domain.Role(row.Role) == domain.RoleAdmin {
				admins, err := s.roleRepo.CountByRole(ctx, string(domain.RoleAdmin))
				if err != nil {
					return err
				}
				if admins <= 1 {
					return ErrLastAdmin
				}
			}
		}
	}

	if err := s.roleRepo.Replace(ctx, targetUserID, string(role)); err != nil {
		return err
	}

	if err := s.identity.UpdateRoleClaim(ctx, targetUserID, role); err != nil {
		// The assignment row is authoritative; a stale claim is corrected
		// on the next role resolution.
		log.Printf("⚠️ Role claim refresh failed for %s: %v", targetUserID, err)
	}

	log.Printf("✅ Role %s assigned to user %s", role, targetUserID)
	return nil
}
