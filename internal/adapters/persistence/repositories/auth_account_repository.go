package repositories

import (
	"context"

	"pwab-memberhub/internal/adapters/persistence/models"

	"gorm.io/gorm"
)

// authAccountRepository implements AuthAccountRepository interface
type authAccountRepository struct {
	db *gorm.DB
}

// NewAuthAccountRepository creates a new auth account repository
func NewAuthAccountRepository(db *gorm.DB) AuthAccountRepository {
	return &authAccountRepository{db: db}
}

// Create creates a new auth account
func (r *authAccountRepository) Create(ctx context.Context, account *models.AuthAccount) error {
	return r.db.WithContext(ctx).Create(account).Error
}

// GetByID gets an auth account by ID
func (r *authAccountRepository) GetByID(ctx context.Context, id string) (*models.AuthAccount, error) {
	var account models.AuthAccount
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&account).Error
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// GetByEmail gets an auth account by email
func (r *authAccountRepository) GetByEmail(ctx context.Context, email string) (*models.AuthAccount, error) {
	var account models.AuthAccount
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&account).Error
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// ExistsByEmail checks if an email is already registered
func (r *authAccountRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.AuthAccount{}).
		Where("email = ?", email).
		Count(&count).Error
	return count > 0, err
}

// UpdateRoleClaim refreshes the cached role claim on the account metadata
func (r *authAccountRepository) UpdateRoleClaim(ctx context.Context, id string, role string) error {
	return r.db.WithContext(ctx).
		Model(&models.AuthAccount{}).
		Where("id = ?", id).
		Update("role", role).Error
}
