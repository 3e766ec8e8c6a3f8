package routes

import (
	"net/http/httptest"
	"strings"
	"testing"

	"pwab-memberhub/internal/config"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestApp wires the full route table. No request in these tests
// reaches the database, so a nil handle is fine.
func newTestApp() *fiber.App {
	app := fiber.New()
	cfg := &config.Config{
		AppMode: "dev",
		JWT: config.JWTConfig{
			Secret:           "test-access-secret",
			RefreshSecret:    "test-refresh-secret",
			AccessTokenMins:  15,
			RefreshTokenDays: 7,
		},
	}
	Setup(app, nil, cfg)
	return app
}

func TestRegistrationIsPublic(t *testing.T) {
	app := newTestApp()

	// An empty payload fails field validation, which proves the request
	// reached the registration handler instead of an auth wall
	req := httptest.NewRequest("POST", "/api/v1/members", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode,
		"an anonymous visitor must be able to submit a registration")
}

func TestMemberListRequiresAuth(t *testing.T) {
	app := newTestApp()

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/members", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestLogoutAllRequiresAuth(t *testing.T) {
	app := newTestApp()

	resp, err := app.Test(httptest.NewRequest("POST", "/api/v1/auth/logout-all", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}
