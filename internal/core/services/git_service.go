package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"pwab-memberhub/internal/adapters/persistence/models"
	"pwab-memberhub/internal/adapters/persistence/repositories"
	"pwab-memberhub/internal/config"
	"pwab-memberhub/internal/core/domain"

	"github.com/google/go-github/v68/github"
	"golang.org/x/oauth2"
	"gorm.io/gorm"
)

// Git service errors
var (
	ErrGitTokenMissing = errors.New("git access token not configured")
	ErrRepoUnreachable = errors.New("repository not accessible")
)

// PushResult is the outcome of a push operation. The operation itself is
// read-only against the hosting API: it verifies repository access and
// reads the branch head, then records the outcome in the audit log.
type PushResult struct {
	Owner     string `json:"owner"`
	Repo      string `json:"repo"`
	Branch    string `json:"branch"`
	CommitSHA string `json:"commit_sha"`
}

// GitService wraps the GitHub API for the repository audit surface:
// verifying configured repositories, reading branch heads, and keeping an
// operation log.
type GitService struct {
	gitRepo repositories.GitRepository
	client  *github.Client
	cfg     *config.GitConfig
}

// NewGitService creates a new git service. The client is built once with a
// static bearer token; per-call contexts still control cancellation.
func NewGitService(gitRepo repositories.GitRepository, cfg *config.GitConfig) *GitService {
	var client *github.Client
	if cfg.Token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token})
		client = github.NewClient(oauth2.NewClient(context.Background(), ts))
	} else {
		client = github.NewClient(nil)
	}

	return &GitService{
		gitRepo: gitRepo,
		client:  client,
		cfg:     cfg,
	}
}

// ListConfigs lists the active repository configurations
func (s *GitService) ListConfigs(ctx context.Context) ([]*models.GitRepositoryConfig, error) {
	return s.gitRepo.ListActiveConfigs(ctx)
}

// AddConfig registers a repository configuration after verifying the
// repository is reachable with the configured token
func (s *GitService) AddConfig(ctx context.Context, cfg *models.GitRepositoryConfig) error {
	if cfg.RepoOwner == "" || cfg.RepoName == "" {
		return domain.ErrInvalidInput
	}
	if cfg.Branch == "" {
		cfg.Branch = "main"
	}

	if _, _, err := s.client.Repositories.Get(ctx, cfg.RepoOwner, cfg.RepoName); err != nil {
		log.Printf("❌ Repository check failed for %s/%s: %v", cfg.RepoOwner, cfg.RepoName, err)
		return fmt.Errorf("%w: %s/%s", ErrRepoUnreachable, cfg.RepoOwner, cfg.RepoName)
	}

	cfg.IsActive = true
	if err := s.gitRepo.CreateConfig(ctx, cfg); err != nil {
		return err
	}

	log.Printf("✅ Git repository configured: %s/%s (%s)", cfg.RepoOwner, cfg.RepoName, cfg.Branch)
	return nil
}

// Push runs the push operation against a configured repository, or the
// default repository when configID is zero. Every attempt writes a
// started log row; the terminal row records completed or failed.
func (s *GitService) Push(ctx context.Context, configID uint, createdBy string) (*PushResult, error) {
	if s.cfg.Token == "" {
		return nil, ErrGitTokenMissing
	}

	owner, repo, branch := s.cfg.DefaultOwner, s.cfg.DefaultRepo, s.cfg.DefaultBranch
	if configID != 0 {
		cfg, err := s.gitRepo.GetConfig(ctx, configID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, domain.ErrNotFound
			}
			return nil, err
		}
		owner, repo, branch = cfg.RepoOwner, cfg.RepoName, cfg.Branch
	}

	s.writeLog(ctx, createdBy, models.GitOpStatusStarted,
		fmt.Sprintf("push to %s/%s (%s) started", owner, repo, branch))

	if _, _, err := s.client.Repositories.Get(ctx, owner, repo); err != nil {
		s.writeLog(ctx, createdBy, models.GitOpStatusFailed,
			fmt.Sprintf("repository %s/%s not accessible: %v", owner, repo, err))
		return nil, fmt.Errorf("%w: %s/%s", ErrRepoUnreachable, owner, repo)
	}

	ref, _, err := s.client.Git.GetRef(ctx, owner, repo, "refs/heads/"+branch)
	if err != nil {
		s.writeLog(ctx, createdBy, models.GitOpStatusFailed,
			fmt.Sprintf("branch %s not found on %s/%s: %v", branch, owner, repo, err))
		return nil, fmt.Errorf("%w: %v", domain.ErrProvider, err)
	}

	sha := ref.GetObject().GetSHA()
	s.writeLog(ctx, createdBy, models.GitOpStatusCompleted,
		fmt.Sprintf("push to %s/%s (%s) completed at %s", owner, repo, branch, sha))

	log.Printf("✅ Git push recorded: %s/%s@%s -> %s", owner, repo, branch, sha)
	return &PushResult{Owner: owner, Repo: repo, Branch: branch, CommitSHA: sha}, nil
}

// RecentLogs returns the most recent operation log entries
func (s *GitService) RecentLogs(ctx context.Context, limit int) ([]*models.GitOperationLog, error) {
	if limit <= 0 {
		limit = 5
	}
	return s.gitRepo.ListRecentLogs(ctx, limit)
}

// writeLog records an audit row. Audit failures are logged, never allowed
// to fail the operation being audited.
func (s *GitService) writeLog(ctx context.Context, createdBy, status, message string) {
	entry := &models.GitOperationLog{
		OperationType: "push",
		Status:        status,
		Message:       message,
		CreatedBy:     createdBy,
	}
	if err := s.gitRepo.CreateLog(ctx, entry); err != nil {
		log.Printf("⚠️ Git audit log write failed: %v", err)
	}
}
