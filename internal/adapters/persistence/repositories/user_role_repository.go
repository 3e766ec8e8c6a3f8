package repositories

import (
	"context"

	"pwab-memberhub/internal/adapters/persistence/models"

	"gorm.io/gorm"
)

// userRoleRepository implements UserRoleRepository interface
type userRoleRepository struct {
	db *gorm.DB
}

// NewUserRoleRepository creates a new user role repository
func NewUserRoleRepository(db *gorm.DB) UserRoleRepository {
	return &userRoleRepository{db: db}
}

// ListByUser lists all role assignments for an auth user
func (r *userRoleRepository) ListByUser(ctx context.Context, authUserID string) ([]*models.UserRole, error) {
	var roles []*models.UserRole
	err := r.db.WithContext(ctx).
		Where("auth_user_id = ?", authUserID).
		Find(&roles).Error
	if err != nil {
		return nil, err
	}
	return roles, nil
}

// Replace removes existing assignments for the user and writes the new one
func (r *userRoleRepository) Replace(ctx context.Context, authUserID string, role string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("auth_user_id = ?", authUserID).
			Delete(&models.UserRole{}).Error; err != nil {
			return err
		}
		return tx.Create(&models.UserRole{
			AuthUserID: authUserID,
			Role:       role,
		}).Error
	})
}

// CountByRole counts assignments of a given role
func (r *userRoleRepository) CountByRole(ctx context.Context, role string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.UserRole{}).
		Where("role = ?", role).
		Count(&count).Error
	return count, err
}
