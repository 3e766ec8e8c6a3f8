package handlers

import (
	"errors"

	"pwab-memberhub/internal/adapters/persistence/models"
	"pwab-memberhub/internal/core/domain"
	"pwab-memberhub/internal/core/services"
	"pwab-memberhub/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// GitHandler handles the git repository audit endpoints
type GitHandler struct {
	gitService *services.GitService
}

// NewGitHandler creates a new git handler
func NewGitHandler(gitService *services.GitService) *GitHandler {
	return &GitHandler{
		gitService: gitService,
	}
}

// AddRepoRequest represents repository configuration request body
type AddRepoRequest struct {
	RepoOwner string `json:"repo_owner"`
	RepoName  string `json:"repo_name"`
	Branch    string `json:"branch"`
}

// PushRequest represents push request body
type PushRequest struct {
	ConfigID uint `json:"config_id"`
}

// ListRepos handles listing configured repositories (Admin only)
func (h *GitHandler) ListRepos(c *fiber.Ctx) error {
	configs, err := h.gitService.ListConfigs(c.Context())
	if err != nil {
		return response.InternalServerError(c, "Failed to list repositories")
	}

	return response.Success(c, "Repositories retrieved successfully", configs)
}

// AddRepo handles registering a repository configuration (Admin only)
func (h *GitHandler) AddRepo(c *fiber.Ctx) error {
	userID, ok := c.Locals("userID").(string)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	var req AddRepoRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	cfg := &models.GitRepositoryConfig{
		RepoOwner: req.RepoOwner,
		RepoName:  req.RepoName,
		Branch:    req.Branch,
		CreatedBy: userID,
	}

	if err := h.gitService.AddConfig(c.Context(), cfg); err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidInput):
			return response.BadRequest(c, "Repository owner and name are required")
		case errors.Is(err, services.ErrRepoUnreachable):
			return response.BadGateway(c, "Repository is not accessible with the configured token")
		default:
			return response.InternalServerError(c, "Failed to add repository")
		}
	}

	return response.Created(c, "Repository configured successfully", cfg)
}

// Push handles the push operation (Admin only)
func (h *GitHandler) Push(c *fiber.Ctx) error {
	userID, ok := c.Locals("userID").(string)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	var req PushRequest
	if err := c.BodyParser(&req); err != nil && len(c.Body()) > 0 {
		return response.BadRequest(c, "Invalid request body")
	}

	result, err := h.gitService.Push(c.Context(), req.ConfigID, userID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrGitTokenMissing):
			return response.BadRequest(c, "Git access token is not configured")
		case errors.Is(err, domain.ErrNotFound):
			return response.NotFound(c, "Repository configuration not found")
		case errors.Is(err, services.ErrRepoUnreachable):
			return response.BadGateway(c, "Repository is not accessible")
		case errors.Is(err, domain.ErrProvider):
			return response.BadGateway(c, "Git hosting service unavailable")
		default:
			return response.InternalServerError(c, "Failed to run git operation")
		}
	}

	return response.Success(c, "Push operation completed", result)
}

// ListLogs handles listing recent operation logs (Admin only)
func (h *GitHandler) ListLogs(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 5)

	logs, err := h.gitService.RecentLogs(c.Context(), limit)
	if err != nil {
		return response.InternalServerError(c, "Failed to list operation logs")
	}

	return response.Success(c, "Operation logs retrieved successfully", logs)
}
