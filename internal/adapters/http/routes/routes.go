package routes

import (
	"time"

	"pwab-memberhub/internal/adapters/http/handlers"
	"pwab-memberhub/internal/adapters/http/middleware"
	"pwab-memberhub/internal/adapters/persistence/repositories"
	"pwab-memberhub/internal/config"
	"pwab-memberhub/internal/core/services"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// Setup configures all routes for the application. It wires repositories,
// services, and handlers, and returns the components whose lifecycle the
// caller owns (session monitor, cron service).
func Setup(app *fiber.App, db *gorm.DB, cfg *config.Config) (*services.SessionMonitor, *services.CronService) {
	// Initialize repositories
	memberRepo := repositories.NewMemberRepository(db)
	accountRepo := repositories.NewAuthAccountRepository(db)
	userRoleRepo := repositories.NewUserRoleRepository(db)
	refreshTokenRepo := repositories.NewRefreshTokenRepository(db)
	gitRepo := repositories.NewGitRepository(db)

	// Initialize services
	eventBus := services.NewAuthEventBus()
	identityService := services.NewIdentityService(accountRepo, refreshTokenRepo, eventBus, cfg)
	loginService := services.NewLoginService(memberRepo, identityService, cfg.Auth.SyntheticEmailDomain)
	profileService := services.NewProfileService(memberRepo)
	roleService := services.NewRoleService(userRoleRepo)
	memberService := services.NewMemberService(memberRepo, userRoleRepo, profileService, identityService)
	gitService := services.NewGitService(gitRepo, &cfg.Git)

	monitor := services.NewSessionMonitor(identityService, profileService, roleService, services.LogNotifier{})
	cronService := services.NewCronService(refreshTokenRepo, gitRepo)

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler()
	authHandler := handlers.NewAuthHandler(loginService, memberService, identityService, monitor, cfg)
	memberHandler := handlers.NewMemberHandler(memberService)
	gitHandler := handlers.NewGitHandler(gitService)

	// Health check & root routes
	app.Get("/", healthHandler.Root)
	app.Get("/health", healthHandler.HealthCheck)

	// API v1 group
	apiV1 := app.Group("/api/v1")
	setupAPIV1Routes(apiV1, healthHandler, authHandler, memberHandler, gitHandler, cfg)

	return monitor, cronService
}

// setupAPIV1Routes configures API v1 routes
func setupAPIV1Routes(
	router fiber.Router,
	healthHandler *handlers.HealthHandler,
	authHandler *handlers.AuthHandler,
	memberHandler *handlers.MemberHandler,
	gitHandler *handlers.GitHandler,
	cfg *config.Config,
) {
	// API Info
	router.Get("/", healthHandler.APIInfo)

	// Auth routes
	authRoutes := router.Group("/auth")
	setupAuthRoutes(authRoutes, authHandler, cfg)

	// Public self-registration: a prospective member has no account yet,
	// so this must sit outside the authenticated group
	router.Post("/members", middleware.AuthRateLimiter(), memberHandler.Register)

	// Member routes (Authenticated users; admin-gated per route)
	memberRoutes := router.Group("/members")
	memberRoutes.Use(middleware.AuthMiddleware(cfg))
	setupMemberRoutes(memberRoutes, memberHandler)

	// Collector routes (Admin only)
	collectorRoutes := router.Group("/collectors")
	collectorRoutes.Use(middleware.AuthMiddleware(cfg))
	collectorRoutes.Use(middleware.AdminOnly())
	collectorRoutes.Get("/", middleware.PrivateCacheHeaders(30*time.Second), memberHandler.ListCollectors)

	// Git audit routes (Admin only)
	gitRoutes := router.Group("/git")
	gitRoutes.Use(middleware.AuthMiddleware(cfg))
	gitRoutes.Use(middleware.AdminOnly())
	setupGitRoutes(gitRoutes, gitHandler)
}

// setupAuthRoutes configures authentication routes
func setupAuthRoutes(router fiber.Router, handler *handlers.AuthHandler, cfg *config.Config) {
	// Auth state must never be served from a cache
	router.Use(middleware.NoCacheHeaders())

	// Public routes (stricter rate limit)
	router.Post("/member-login", middleware.AuthRateLimiter(), handler.MemberLogin)
	router.Post("/login", middleware.AuthRateLimiter(), handler.Login)
	router.Post("/refresh", handler.RefreshToken)
	router.Post("/logout", handler.Logout)
	router.Post("/logout-all", middleware.AuthMiddleware(cfg), handler.LogoutAll)

	// Protected routes
	router.Get("/me", middleware.AuthMiddleware(cfg), handler.Me)
	router.Get("/state", middleware.AuthMiddleware(cfg), handler.State)
	router.Get("/permissions", middleware.AuthMiddleware(cfg), handler.Permissions)
}

// setupMemberRoutes configures member management routes
func setupMemberRoutes(router fiber.Router, handler *handlers.MemberHandler) {
	// Own profile (any authenticated member)
	router.Get("/profile", handler.GetProfile)
	router.Put("/profile", handler.CompleteProfile)

	// Member administration
	router.Get("/", middleware.CollectorOrAdmin(), middleware.PrivateCacheHeaders(30*time.Second), handler.ListMembers)
	router.Get("/:id", middleware.CollectorOrAdmin(), middleware.PrivateCacheHeaders(30*time.Second), handler.GetMember)
	router.Put("/:id/role", middleware.AdminOnly(), middleware.StrictRateLimiter(), handler.AssignRole)
}

// setupGitRoutes configures git audit routes
func setupGitRoutes(router fiber.Router, handler *handlers.GitHandler) {
	router.Get("/repos", handler.ListRepos)
	router.Post("/repos", handler.AddRepo)
	router.Post("/push", middleware.StrictRateLimiter(), handler.Push)
	router.Get("/logs", handler.ListLogs)
}
