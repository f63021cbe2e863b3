package middleware

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"gatehouse/internal/config"
	"gatehouse/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testToken(t *testing.T, secret string, userID uint, username string, sysadmin bool) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub":      strconv.FormatUint(uint64(userID), 10),
		"username": username,
		"sysadmin": sysadmin,
		"exp":      time.Now().Add(time.Hour).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func authTestApp(t *testing.T, handler fiber.Handler) *fiber.App {
	t.Helper()
	InitMiddleware(&config.Config{JWTSecret: "unit-test-secret"})

	app := fiber.New()
	app.Get("/required", AuthRequired, handler)
	app.Get("/optional", AuthOptional, handler)
	return app
}

func echoViewer(c *fiber.Ctx) error {
	v, _ := c.Locals("viewer").(*models.Viewer)
	if v == nil {
		return c.JSON(fiber.Map{"anonymous": true})
	}
	return c.JSON(fiber.Map{
		"id":       v.ID,
		"username": v.Username,
		"sysadmin": v.Sysadmin,
	})
}

func TestAuthRequiredAcceptsValidToken(t *testing.T) {
	app := authTestApp(t, echoViewer)
	token := testToken(t, "unit-test-secret", 7, "maria.santos", true)

	req := httptest.NewRequest(http.MethodGet, "/required", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAuthRequiredRejectsMissingAndBadTokens(t *testing.T) {
	app := authTestApp(t, echoViewer)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/required", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req := httptest.NewRequest(http.MethodGet, "/required", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Token signed with a different secret.
	req = httptest.NewRequest(http.MethodGet, "/required", nil)
	req.Header.Set("Authorization", "Bearer "+testToken(t, "other-secret", 7, "x", false))
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAuthOptionalDegradesToAnonymous(t *testing.T) {
	app := authTestApp(t, echoViewer)

	// No header at all.
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/optional", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Malformed token still yields an anonymous 200.
	req := httptest.NewRequest(http.MethodGet, "/optional", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestViewerFromTokenClaims(t *testing.T) {
	InitMiddleware(&config.Config{JWTSecret: "unit-test-secret"})

	viewer, err := viewerFromToken(testToken(t, "unit-test-secret", 42, "wei_chen", false))
	require.NoError(t, err)
	assert.EqualValues(t, 42, viewer.ID)
	assert.Equal(t, "wei_chen", viewer.Username)
	assert.False(t, viewer.Sysadmin)
}
