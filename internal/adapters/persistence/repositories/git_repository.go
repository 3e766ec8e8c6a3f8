package repositories

import (
	"context"
	"time"

	"pwab-memberhub/internal/adapters/persistence/models"

	"gorm.io/gorm"
)

// gitRepository implements GitRepository interface
type gitRepository struct {
	db *gorm.DB
}

// NewGitRepository creates a new git repository
func NewGitRepository(db *gorm.DB) GitRepository {
	return &gitRepository{db: db}
}

// ListActiveConfigs lists active repository configs, newest first
func (r *gitRepository) ListActiveConfigs(ctx context.Context) ([]*models.GitRepositoryConfig, error) {
	var configs []*models.GitRepositoryConfig
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("created_at DESC").
		Find(&configs).Error
	if err != nil {
		return nil, err
	}
	return configs, nil
}

// GetConfig gets a repository config by ID
func (r *gitRepository) GetConfig(ctx context.Context, id uint) (*models.GitRepositoryConfig, error) {
	var cfg models.GitRepositoryConfig
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&cfg).Error
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// CreateConfig creates a repository config
func (r *gitRepository) CreateConfig(ctx context.Context, cfg *models.GitRepositoryConfig) error {
	return r.db.WithContext(ctx).Create(cfg).Error
}

// CreateLog writes an operation audit row
func (r *gitRepository) CreateLog(ctx context.Context, entry *models.GitOperationLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// ListRecentLogs lists the most recent operation logs
func (r *gitRepository) ListRecentLogs(ctx context.Context, limit int) ([]*models.GitOperationLog, error) {
	var logs []*models.GitOperationLog
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&logs).Error
	if err != nil {
		return nil, err
	}
	return logs, nil
}

// DeleteLogsBefore deletes operation logs older than the cutoff (retention job)
func (r *gitRepository) DeleteLogsBefore(ctx context.Context, cutoff time.Time) error {
	return r.db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&models.GitOperationLog{}).Error
}
