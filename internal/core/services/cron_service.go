package services

import (
	"context"
	"log"
	"time"

	"pwab-memberhub/internal/adapters/persistence/repositories"

	"github.com/robfig/cron/v3"
)

const gitLogRetentionDays = 90

// CronService runs scheduled maintenance: purging expired refresh tokens
// and trimming the git audit log.
type CronService struct {
	refreshTokenRepo repositories.RefreshTokenRepository
	gitRepo          repositories.GitRepository
	scheduler        *cron.Cron
}

// NewCronService creates a new cron service
func NewCronService(refreshTokenRepo repositories.RefreshTokenRepository, gitRepo repositories.GitRepository) *CronService {
	return &CronService{
		refreshTokenRepo: refreshTokenRepo,
		gitRepo:          gitRepo,
		scheduler:        cron.New(),
	}
}

// Start registers the jobs and starts the scheduler
func (s *CronService) Start() {
	// Purge expired refresh tokens nightly at 03:00
	if _, err := s.scheduler.AddFunc("0 3 * * *", s.purgeExpiredTokens); err != nil {
		log.Printf("❌ Failed to schedule token purge: %v", err)
	}

	// Trim old git audit logs nightly at 03:30
	if _, err := s.scheduler.AddFunc("30 3 * * *", s.trimGitLogs); err != nil {
		log.Printf("❌ Failed to schedule git log trim: %v", err)
	}

	s.scheduler.Start()
	log.Println("🚀 Cron service started")
}

// Stop stops the scheduler and waits for running jobs to finish
func (s *CronService) Stop() {
	ctx := s.scheduler.Stop()
	<-ctx.Done()
	log.Println("🛑 Cron service stopped")
}

func (s *CronService) purgeExpiredTokens() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.refreshTokenRepo.DeleteExpired(ctx); err != nil {
		log.Printf("❌ Expired token purge failed: %v", err)
		return
	}
	log.Println("✅ Expired refresh tokens purged")
}

func (s *CronService) trimGitLogs() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cutoff := time.Now().AddDate(0, 0, -gitLogRetentionDays)
	if err := s.gitRepo.DeleteLogsBefore(ctx, cutoff); err != nil {
		log.Printf("❌ Git log trim failed: %v", err)
		return
	}
	log.Printf("✅ Git operation logs older than %d days removed", gitLogRetentionDays)
}
