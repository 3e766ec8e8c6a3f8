package handlers

import (
	"errors"
	"time"

	"pwab-memberhub/internal/config"
	"pwab-memberhub/internal/core/domain"
	"pwab-memberhub/internal/core/services"
	"pwab-memberhub/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	loginService  *services.LoginService
	memberService *services.MemberService
	identity      services.IdentityProvider
	monitor       *services.SessionMonitor
	cfg           *config.Config
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(
	loginService *services.LoginService,
	memberService *services.MemberService,
	identity services.IdentityProvider,
	monitor *services.SessionMonitor,
	cfg *config.Config,
) *AuthHandler {
	return &AuthHandler{
		loginService:  loginService,
		memberService: memberService,
		identity:      identity,
		monitor:       monitor,
		cfg:           cfg,
	}
}

// MemberLoginRequest represents member-number login request body
type MemberLoginRequest struct {
	MemberNumber string `json:"member_number"`
}

// LoginRequest represents email login request body
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// MemberLogin handles member-number login. The auth account is
// provisioned automatically on the member's first login.
func (h *AuthHandler) MemberLogin(c *fiber.Ctx) error {
	var req MemberLoginRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if req.MemberNumber == "" {
		return response.BadRequest(c, "Member number is required")
	}

	result, err := h.loginService.LoginWithMemberNumber(c.Context(), req.MemberNumber)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidInput):
			return response.BadRequest(c, "Member number is required")
		case errors.Is(err, domain.ErrMemberNotFound):
			return response.NotFound(c, "Member number not found")
		case errors.Is(err, domain.ErrInvalidCredentials):
			return response.Unauthorized(c, "Invalid credentials")
		case errors.Is(err, domain.ErrAccountCreationFailed):
			return response.InternalServerError(c, "Failed to create account")
		case errors.Is(err, services.ErrUserInactive):
			return response.Forbidden(c, "Account is inactive")
		case errors.Is(err, domain.ErrProvider):
			return response.BadGateway(c, "Authentication service unavailable")
		default:
			return response.InternalServerError(c, "Failed to login")
		}
	}

	h.setAuthCookies(c, result.Session.AccessToken, result.Session.RefreshToken)

	return response.Success(c, "Login successful", fiber.Map{
		"access_token": result.Session.AccessToken,
		"member":       result.Member.ToResponse(),
	})
}

// Login handles email/password login
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if req.Email == "" {
		return response.BadRequest(c, "Email is required")
	}
	if req.Password == "" {
		return response.BadRequest(c, "Password is required")
	}

	session, err := h.identity.SignInWithPassword(c.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidCredentials):
			return response.Unauthorized(c, "Invalid email or password")
		case errors.Is(err, services.ErrUserInactive):
			return response.Forbidden(c, "Account is inactive")
		default:
			return response.InternalServerError(c, "Failed to login")
		}
	}

	h.setAuthCookies(c, session.AccessToken, session.RefreshToken)

	return response.Success(c, "Login successful", fiber.Map{
		"access_token": session.AccessToken,
	})
}

// RefreshToken handles token refresh with rotation
func (h *AuthHandler) RefreshToken(c *fiber.Ctx) error {
	refreshToken := c.Cookies("refresh_token")
	if refreshToken == "" {
		return response.Unauthorized(c, "Refresh token not found")
	}

	session, err := h.identity.Refresh(c.Context(), refreshToken)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrTokenExpired):
			h.clearAuthCookies(c)
			return response.Unauthorized(c, "Refresh token expired, please login again")
		case errors.Is(err, services.ErrTokenRevoked):
			h.clearAuthCookies(c)
			return response.Unauthorized(c, "Refresh token revoked, please login again")
		case errors.Is(err, services.ErrInvalidToken):
			h.clearAuthCookies(c)
			return response.Unauthorized(c, "Invalid refresh token")
		case errors.Is(err, services.ErrUserInactive):
			h.clearAuthCookies(c)
			return response.Forbidden(c, "Account is inactive")
		default:
			return response.InternalServerError(c, "Failed to refresh token")
		}
	}

	h.setAuthCookies(c, session.AccessToken, session.RefreshToken)

	return response.Success(c, "Token refreshed successfully", fiber.Map{
		"access_token": session.AccessToken,
	})
}

// Logout revokes the refresh token and clears cookies
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	refreshToken := c.Cookies("refresh_token")
	if refreshToken != "" {
		_ = h.identity.SignOut(c.Context(), refreshToken)
	}

	h.clearAuthCookies(c)

	return response.Success(c, "Logged out successfully", nil)
}

// LogoutAll revokes every refresh token for the current user and clears
// this client's cookies. Other clients lose their sessions once their
// access tokens lapse.
func (h *AuthHandler) LogoutAll(c *fiber.Ctx) error {
	userID, ok := c.Locals("userID").(string)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	if err := h.identity.SignOutEverywhere(c.Context(), userID); err != nil {
		return response.InternalServerError(c, "Failed to revoke sessions")
	}

	h.clearAuthCookies(c)

	return response.Success(c, "Signed out everywhere", nil)
}

// Me returns the current account and linked member profile
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	userID, ok := c.Locals("userID").(string)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	account, err := h.identity.GetUser(c.Context(), userID)
	if err != nil {
		return response.NotFound(c, "User not found")
	}

	session := &domain.Session{
		UserID:       account.ID,
		Email:        account.Email,
		MemberNumber: account.MemberNumber,
		Role:         domain.Role(account.Role),
	}

	payload := fiber.Map{"user": account}
	member, err := h.memberService.GetProfile(c.Context(), session)
	switch {
	case err == nil:
		payload["member"] = member.ToResponse()
	case errors.Is(err, domain.ErrNoProfile):
		// A fresh auth account pending backfill has no profile yet
		payload["member"] = nil
	default:
		return response.InternalServerError(c, "Failed to resolve profile")
	}

	return response.Success(c, "User retrieved successfully", payload)
}

// State returns the authorization policy state for the current session:
// logged-in flag, role, profile, and any pending redirect
func (h *AuthHandler) State(c *fiber.Ctx) error {
	accessToken, ok := c.Locals("accessToken").(string)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	state, err := h.monitor.RunInitialCheck(c.Context(), accessToken)
	if err != nil {
		// Session retrieval failure is treated as signed-out
		h.clearAuthCookies(c)
		return response.Success(c, "Signed out", state)
	}

	return response.Success(c, "Auth state retrieved", state)
}

// Permissions returns the tab access map for the current role
func (h *AuthHandler) Permissions(c *fiber.Ctx) error {
	userID, ok := c.Locals("userID").(string)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	state := h.monitor.State(userID)
	role := state.Role
	if role == domain.RoleNone {
		if claim, ok := c.Locals("role").(string); ok && domain.Role(claim).Valid() {
			role = domain.Role(claim)
		}
	}

	tabs := make(fiber.Map)
	for _, tab := range services.KnownTabs {
		tabs[tab] = services.CanAccessTab(role, tab)
	}

	return response.Success(c, "Permissions retrieved", fiber.Map{
		"role":           role,
		"tabs":           tabs,
		"permitted_tabs": services.PermittedTabs(role),
	})
}

// setAuthCookies sets access and refresh token cookies
func (h *AuthHandler) setAuthCookies(c *fiber.Ctx, accessToken, refreshToken string) {
	// Access token cookie (shorter expiry)
	c.Cookie(&fiber.Cookie{
		Name:     "access_token",
		Value:    accessToken,
		Path:     "/",
		MaxAge:   h.cfg.JWT.AccessTokenMins * 60, // Convert minutes to seconds
		Secure:   h.cfg.Cookie.Secure,
		HTTPOnly: true,
		SameSite: h.cfg.Cookie.SameSite,
		Domain:   h.cfg.Cookie.Domain,
	})

	// Refresh token cookie (longer expiry)
	c.Cookie(&fiber.Cookie{
		Name:     "refresh_token",
		Value:    refreshToken,
		Path:     "/",
		MaxAge:   h.cfg.JWT.RefreshTokenDays * 24 * 60 * 60, // Convert days to seconds
		Secure:   h.cfg.Cookie.Secure,
		HTTPOnly: true,
		SameSite: h.cfg.Cookie.SameSite,
		Domain:   h.cfg.Cookie.Domain,
	})
}

// clearAuthCookies clears auth cookies
func (h *AuthHandler) clearAuthCookies(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     "access_token",
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Now().Add(-1 * time.Hour),
		Secure:   h.cfg.Cookie.Secure,
		HTTPOnly: true,
		SameSite: h.cfg.Cookie.SameSite,
		Domain:   h.cfg.Cookie.Domain,
	})

	c.Cookie(&fiber.Cookie{
		Name:     "refresh_token",
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Now().Add(-1 * time.Hour),
		Secure:   h.cfg.Cookie.Secure,
		HTTPOnly: true,
		SameSite: h.cfg.Cookie.SameSite,
		Domain:   h.cfg.Cookie.Domain,
	})
}
