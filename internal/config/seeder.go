package config

import (
	"log"

	"pwab-memberhub/internal/adapters/persistence/models"
	"pwab-memberhub/internal/pkg/password"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SeedBootstrapData seeds the default admin account and its role row.
// Skipped when any auth account already exists or no seed password is set.
func SeedBootstrapData(db *gorm.DB, cfg *Config) error {
	var count int64
	if err := db.Model(&models.AuthAccount{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	if cfg.Auth.AdminPassword == "" {
		log.Println("⚠️ No SEED_ADMIN_PASSWORD set, skipping admin bootstrap")
		return nil
	}

	hashed, err := password.Hash(cfg.Auth.AdminPassword)
	if err != nil {
		return err
	}

	admin := &models.AuthAccount{
		ID:       uuid.New().String(),
		Email:    cfg.Auth.AdminEmail,
		Password: hashed,
		Role:     "admin",
		IsActive: true,
	}

	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(admin).Error; err != nil {
			return err
		}
		if err := tx.Create(&models.UserRole{
			AuthUserID: admin.ID,
			Role:       "admin",
		}).Error; err != nil {
			return err
		}
		log.Printf("✅ Seeded admin account: %s", admin.Email)
		return nil
	})
}
