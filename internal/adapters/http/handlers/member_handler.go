package handlers

import (
	"errors"
	"strconv"

	"pwab-memberhub/internal/adapters/persistence/models"
	"pwab-memberhub/internal/core/domain"
	"pwab-memberhub/internal/core/services"
	"pwab-memberhub/internal/pkg/pagination"
	"pwab-memberhub/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// MemberHandler handles member management endpoints
type MemberHandler struct {
	memberService *services.MemberService
}

// NewMemberHandler creates a new member handler
func NewMemberHandler(memberService *services.MemberService) *MemberHandler {
	return &MemberHandler{
		memberService: memberService,
	}
}

// AssignRoleRequest represents role assignment request body
type AssignRoleRequest struct {
	Role string `json:"role"`
}

// Register handles public member self-registration. The created record
// awaits approval; no auth account exists until the first login.
func (h *MemberHandler) Register(c *fiber.Ctx) error {
	var req services.RegisterMemberRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	member, err := h.memberService.Register(c.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidInput):
			return response.BadRequest(c, "Member number and full name are required")
		case errors.Is(err, domain.ErrMemberAlreadyExists):
			return response.Conflict(c, "Member number already registered")
		default:
			return response.InternalServerError(c, "Failed to register member")
		}
	}

	return response.Created(c, "Member registered successfully", member.ToResponse())
}

// GetProfile returns the member profile for the current session
func (h *MemberHandler) GetProfile(c *fiber.Ctx) error {
	session := sessionFromLocals(c)
	if session == nil {
		return response.Unauthorized(c, "Unauthorized")
	}

	member, err := h.memberService.GetProfile(c.Context(), session)
	if err != nil {
		if errors.Is(err, domain.ErrNoProfile) {
			return response.NotFound(c, "No member profile linked to this account")
		}
		return response.InternalServerError(c, "Failed to resolve profile")
	}

	return response.Success(c, "Profile retrieved successfully", fiber.Map{
		"member":                      member.ToResponse(),
		"requires_profile_completion": member.RequiresProfileCompletion(),
	})
}

// CompleteProfile updates the current member's contact details and clears
// the first-login gate
func (h *MemberHandler) CompleteProfile(c *fiber.Ctx) error {
	session := sessionFromLocals(c)
	if session == nil {
		return response.Unauthorized(c, "Unauthorized")
	}

	var req services.CompleteProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	member, err := h.memberService.CompleteProfile(c.Context(), session, &req)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidInput):
			return response.BadRequest(c, "Full name, email and phone are required")
		case errors.Is(err, domain.ErrNoProfile):
			return response.NotFound(c, "No member profile linked to this account")
		default:
			return response.InternalServerError(c, "Failed to update profile")
		}
	}

	return response.Success(c, "Profile completed successfully", member.ToResponse())
}

// ListMembers handles listing all members (Collector or Admin)
func (h *MemberHandler) ListMembers(c *fiber.Ctx) error {
	params := pagination.GetParams(c)

	members, total, err := h.memberService.ListMembers(c.Context(), params.Offset, params.Limit)
	if err != nil {
		return response.InternalServerError(c, "Failed to list members")
	}

	items := make([]*models.MemberResponse, 0, len(members))
	for _, m := range members {
		items = append(items, m.ToResponse())
	}

	return response.Success(c, "Members retrieved successfully", pagination.NewResponse(items, params, total))
}

// GetMember handles getting a member by ID (Collector or Admin)
func (h *MemberHandler) GetMember(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid member ID")
	}

	member, err := h.memberService.GetMember(c.Context(), uint(id))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return response.NotFound(c, "Member not found")
		}
		return response.InternalServerError(c, "Failed to get member")
	}

	return response.Success(c, "Member retrieved successfully", member.ToResponse())
}

// ListCollectors handles listing collector members (Admin only)
func (h *MemberHandler) ListCollectors(c *fiber.Ctx) error {
	params := pagination.GetParams(c)

	collectors, total, err := h.memberService.ListCollectors(c.Context(), params.Offset, params.Limit)
	if err != nil {
		return response.InternalServerError(c, "Failed to list collectors")
	}

	items := make([]*models.MemberResponse, 0, len(collectors))
	for _, m := range collectors {
		items = append(items, m.ToResponse())
	}

	return response.Success(c, "Collectors retrieved successfully", pagination.NewResponse(items, params, total))
}

// AssignRole handles role assignment (Admin only)
func (h *MemberHandler) AssignRole(c *fiber.Ctx) error {
	actorID, ok := c.Locals("userID").(string)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid member ID")
	}

	var req AssignRoleRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	err = h.memberService.AssignRoleToMember(c.Context(), actorID, uint(id), domain.Role(req.Role))
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidInput):
			return response.BadRequest(c, "Invalid role")
		case errors.Is(err, domain.ErrNotFound):
			return response.NotFound(c, "Member not found")
		case errors.Is(err, domain.ErrMemberNotLinked):
			return response.Conflict(c, "Member has not logged in yet, no account to assign a role to")
		case errors.Is(err, services.ErrCannotChangeOwnRole):
			return response.Forbidden(c, "You cannot change your own role")
		case errors.Is(err, services.ErrLastAdmin):
			return response.Conflict(c, "Cannot demote the last admin")
		default:
			return response.InternalServerError(c, "Failed to assign role")
		}
	}

	return response.Success(c, "Role assigned successfully", nil)
}

// sessionFromLocals rebuilds the session view from the claims the auth
// middleware stored on the request context
func sessionFromLocals(c *fiber.Ctx) *domain.Session {
	userID, ok := c.Locals("userID").(string)
	if !ok || userID == "" {
		return nil
	}

	session := &domain.Session{UserID: userID}
	if email, ok := c.Locals("email").(string); ok {
		session.Email = email
	}
	if number, ok := c.Locals("memberNumber").(string); ok {
		session.MemberNumber = number
	}
	if role, ok := c.Locals("role").(string); ok {
		session.Role = domain.Role(role)
	}
	return session
}
