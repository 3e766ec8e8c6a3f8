package repositories

import (
	"context"
	"time"

	"pwab-memberhub/internal/adapters/persistence/models"
)

// MemberRepository defines member repository interface
type MemberRepository interface {
	Create(ctx context.Context, member *models.Member) error
	GetByID(ctx context.Context, id uint) (*models.Member, error)
	// GetByNumber does an exact member-number match
	GetByNumber(ctx context.Context, number string) (*models.Member, error)
	// GetByNumberFold does a case-insensitive member-number match, used as
	// a fallback because upstream data entry is inconsistent
	GetByNumberFold(ctx context.Context, number string) (*models.Member, error)
	GetByAuthUserID(ctx context.Context, authUserID string) (*models.Member, error)
	// LinkAuthUser writes the auth user id only when none is set yet,
	// so repeated link attempts never overwrite an existing link
	LinkAuthUser(ctx context.Context, memberID uint, authUserID string) error
	// CompleteProfile updates contact fields and flips
	// first_time_login=false, profile_completed=true in one update
	CompleteProfile(ctx context.Context, id uint, member *models.Member) error
	Update(ctx context.Context, member *models.Member) error
	List(ctx context.Context, offset, limit int) ([]*models.Member, int64, error)
	ListCollectors(ctx context.Context, offset, limit int) ([]*models.Member, int64, error)
	ExistsByNumber(ctx context.Context, number string) (bool, error)
}

// AuthAccountRepository defines auth account repository interface
type AuthAccountRepository interface {
	Create(ctx context.Context, account *models.AuthAccount) error
	GetByID(ctx context.Context, id string) (*models.AuthAccount, error)
	GetByEmail(ctx context.Context, email string) (*models.AuthAccount, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	UpdateRoleClaim(ctx context.Context, id string, role string) error
}

// UserRoleRepository defines role assignment repository interface
type UserRoleRepository interface {
	ListByUser(ctx context.Context, authUserID string) ([]*models.UserRole, error)
	// Replace removes existing assignments for the user and writes the new one
	Replace(ctx context.Context, authUserID string, role string) error
	CountByRole(ctx context.Context, role string) (int64, error)
}

// RefreshTokenRepository defines refresh token repository interface
type RefreshTokenRepository interface {
	Create(ctx context.Context, token *models.RefreshToken) error
	GetByTokenHash(ctx context.Context, tokenHash string) (*models.RefreshToken, error)
	Revoke(ctx context.Context, id uint) error
	RevokeByTokenHash(ctx context.Context, tokenHash string) error
	RevokeAllByUserID(ctx context.Context, userID string) error
	DeleteExpired(ctx context.Context) error
}

// GitRepository defines git config + audit log repository interface
type GitRepository interface {
	ListActiveConfigs(ctx context.Context) ([]*models.GitRepositoryConfig, error)
	GetConfig(ctx context.Context, id uint) (*models.GitRepositoryConfig, error)
	CreateConfig(ctx context.Context, cfg *models.GitRepositoryConfig) error
	CreateLog(ctx context.Context, entry *models.GitOperationLog) error
	ListRecentLogs(ctx context.Context, limit int) ([]*models.GitOperationLog, error)
	DeleteLogsBefore(ctx context.Context, cutoff time.Time) error
}
