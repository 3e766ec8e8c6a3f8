package repositories

import (
	"context"

	"pwab-memberhub/internal/adapters/persistence/models"

	"gorm.io/gorm"
)

// memberRepository implements MemberRepository interface
type memberRepository struct {
	db *gorm.DB
}

// NewMemberRepository creates a new member repository
func NewMemberRepository(db *gorm.DB) MemberRepository {
	return &memberRepository{db: db}
}

// Create creates a new member
func (r *memberRepository) Create(ctx context.Context, member *models.Member) error {
	return r.db.WithContext(ctx).Create(member).Error
}

// GetByID gets a member by ID
func (r *memberRepository) GetByID(ctx context.Context, id uint) (*models.Member, error) {
	var member models.Member
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&member).Error
	if err != nil {
		return nil, err
	}
	return &member, nil
}

// GetByNumber gets a member by exact member number
func (r *memberRepository) GetByNumber(ctx context.Context, number string) (*models.Member, error) {
	var member models.Member
	err := r.db.WithContext(ctx).
		Where("member_number = ?", number).
		First(&member).Error
	if err != nil {
		return nil, err
	}
	return &member, nil
}

// GetByNumberFold gets a member by case-insensitive member number
func (r *memberRepository) GetByNumberFold(ctx context.Context, number string) (*models.Member, error) {
	var member models.Member
	err := r.db.WithContext(ctx).
		Where("LOWER(member_number) = LOWER(?)", number).
		First(&member).Error
	if err != nil {
		return nil, err
	}
	return &member, nil
}

// GetByAuthUserID gets a member by linked auth user id
func (r *memberRepository) GetByAuthUserID(ctx context.Context, authUserID string) (*models.Member, error) {
	var member models.Member
	err := r.db.WithContext(ctx).
		Where("auth_user_id = ?", authUserID).
		First(&member).Error
	if err != nil {
		return nil, err
	}
	return &member, nil
}

// LinkAuthUser sets the auth user id on an unlinked member row.
// The WHERE auth_user_id IS NULL guard makes repeated attempts no-ops.
func (r *memberRepository) LinkAuthUser(ctx context.Context, memberID uint, authUserID string) error {
	return r.db.WithContext(ctx).
		Model(&models.Member{}).
		Where("id = ?", memberID).
		Where("auth_user_id IS NULL").
		Update("auth_user_id", authUserID).Error
}

// CompleteProfile updates contact fields and clears the first-login gate
// in a single update
func (r *memberRepository) CompleteProfile(ctx context.Context, id uint, member *models.Member) error {
	return r.db.WithContext(ctx).
		Model(&models.Member{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"full_name":         member.FullName,
			"email":             member.Email,
			"phone":             member.Phone,
			"address":           member.Address,
			"first_time_login":  false,
			"profile_completed": true,
		}).Error
}

// Update updates a member
func (r *memberRepository) Update(ctx context.Context, member *models.Member) error {
	return r.db.WithContext(ctx).Save(member).Error
}

// List lists members with pagination
func (r *memberRepository) List(ctx context.Context, offset, limit int) ([]*models.Member, int64, error) {
	var members []*models.Member
	var total int64

	if err := r.db.WithContext(ctx).Model(&models.Member{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := r.db.WithContext(ctx).
		Order("member_number ASC").
		Offset(offset).Limit(limit).
		Find(&members).Error; err != nil {
		return nil, 0, err
	}

	return members, total, nil
}

// ListCollectors lists members whose linked auth account holds the
// collector role, with pagination
func (r *memberRepository) ListCollectors(ctx context.Context, offset, limit int) ([]*models.Member, int64, error) {
	var members []*models.Member
	var total int64

	base := r.db.WithContext(ctx).
		Model(&models.Member{}).
		Joins("JOIN user_roles ur ON ur.auth_user_id = members.auth_user_id").
		Where("ur.role = ?", "collector")

	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := base.
		Order("members.member_number ASC").
		Offset(offset).Limit(limit).
		Find(&members).Error; err != nil {
		return nil, 0, err
	}

	return members, total, nil
}

// ExistsByNumber checks if a member number exists (case-insensitive)
func (r *memberRepository) ExistsByNumber(ctx context.Context, number string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Member{}).
		Where("LOWER(member_number) = LOWER(?)", number).
		Count(&count).Error
	return count > 0, err
}
