package models

import (
	"time"

	"gorm.io/gorm"
)

// ============================================================
// Membership Tables
// ============================================================

// Member represents the members table. auth_user_id is a weak back-reference
// to the auth account, written once the first time a session is linked.
type Member struct {
	ID               uint           `gorm:"primaryKey" json:"id"`
	MemberNumber     string         `gorm:"uniqueIndex;size:20;not null" json:"member_number"`
	FullName         string         `gorm:"size:100;not null" json:"full_name"`
	Email            string         `gorm:"size:100;index" json:"email"`
	Phone            string         `gorm:"size:30" json:"phone"`
	Address          string         `gorm:"size:255" json:"address"`
	AuthUserID       *string        `gorm:"size:36;index" json:"auth_user_id"`
	FirstTimeLogin   bool           `gorm:"default:true" json:"first_time_login"`
	ProfileCompleted bool           `gorm:"default:false" json:"profile_completed"`
	Status           string         `gorm:"size:20;default:'pending'" json:"status"`
	CollectorID      *uint          `gorm:"index" json:"collector_id"`
	CreatedAt        time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Member) TableName() string {
	return "members"
}

// RequiresProfileCompletion reports whether the first-login gate applies
func (m *Member) RequiresProfileCompletion() bool {
	return m.FirstTimeLogin || !m.ProfileCompleted
}

// MemberResponse DTO
type MemberResponse struct {
	ID               uint      `json:"id"`
	MemberNumber     string    `json:"member_number"`
	FullName         string    `json:"full_name"`
	Email            string    `json:"email,omitempty"`
	Phone            string    `json:"phone,omitempty"`
	Address          string    `json:"address,omitempty"`
	FirstTimeLogin   bool      `json:"first_time_login"`
	ProfileCompleted bool      `json:"profile_completed"`
	Status           string    `json:"status"`
	Linked           bool      `json:"linked"`
	CreatedAt        time.Time `json:"created_at"`
}

func (m *Member) ToResponse() *MemberResponse {
	return &MemberResponse{
		ID:               m.ID,
		MemberNumber:     m.MemberNumber,
		FullName:         m.FullName,
		Email:            m.Email,
		Phone:            m.Phone,
		Address:          m.Address,
		FirstTimeLogin:   m.FirstTimeLogin,
		ProfileCompleted: m.ProfileCompleted,
		Status:           m.Status,
		Linked:           m.AuthUserID != nil,
		CreatedAt:        m.CreatedAt,
	}
}

// ============================================================
// Identity Tables
// ============================================================

// AuthAccount represents the auth_accounts table owned by the identity
// service. MemberNumber and Role are the metadata claims embedded at
// sign-up; Role acts as a fast-path cache for the role resolver.
type AuthAccount struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	Email        string    `gorm:"uniqueIndex;size:100;not null" json:"email"`
	Password     string    `gorm:"size:255;not null" json:"-"`
	MemberNumber string    `gorm:"size:20;index" json:"member_number"`
	Role         string    `gorm:"size:20" json:"role"`
	IsActive     bool      `gorm:"default:true" json:"is_active"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (AuthAccount) TableName() string {
	return "auth_accounts"
}

// UserRole represents the user_roles table. A user may hold several rows;
// the role resolver picks the highest-privilege one.
type UserRole struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	AuthUserID string    `gorm:"size:36;index;not null" json:"auth_user_id"`
	Role       string    `gorm:"size:20;not null" json:"role"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (UserRole) TableName() string {
	return "user_roles"
}

// RefreshToken represents refresh_tokens table
type RefreshToken struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	UserID    string     `gorm:"size:36;index;not null" json:"user_id"`
	TokenHash string     `gorm:"size:255;not null;index" json:"-"`
	ExpiresAt time.Time  `gorm:"not null" json:"expires_at"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
	RevokedAt *time.Time `gorm:"index" json:"revoked_at"`
}

func (RefreshToken) TableName() string {
	return "refresh_tokens"
}

func (rt *RefreshToken) IsRevoked() bool {
	return rt.RevokedAt != nil
}

func (rt *RefreshToken) IsExpired() bool {
	return time.Now().After(rt.ExpiresAt)
}

// ============================================================
// Git Audit Tables
// ============================================================

// GitRepositoryConfig represents git_repository_configs table
type GitRepositoryConfig struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	RepoOwner string    `gorm:"size:100;not null" json:"repo_owner"`
	RepoName  string    `gorm:"size:100;not null" json:"repo_name"`
	Branch    string    `gorm:"size:100;not null;default:'main'" json:"branch"`
	IsActive  bool      `gorm:"default:true" json:"is_active"`
	CreatedBy string    `gorm:"size:36" json:"created_by"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (GitRepositoryConfig) TableName() string {
	return "git_repository_configs"
}

// GitOperationLog represents git_operations_logs table
type GitOperationLog struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	OperationType string    `gorm:"size:20;not null" json:"operation_type"`
	Status        string    `gorm:"size:20;not null" json:"status"`
	Message       string    `gorm:"type:text" json:"message"`
	CreatedBy     string    `gorm:"size:36" json:"created_by"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (GitOperationLog) TableName() string {
	return "git_operations_logs"
}

// Git operation statuses
const (
	GitOpStatusStarted   = "started"
	GitOpStatusCompleted = "completed"
	GitOpStatusFailed    = "failed"
)

// ============================================================
// Auto Migration
// ============================================================

// AutoMigrate runs auto migration for all owned tables
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Member{},
		&AuthAccount{},
		&UserRole{},
		&RefreshToken{},
		&GitRepositoryConfig{},
		&GitOperationLog{},
	)
}
