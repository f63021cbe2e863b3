package middleware

import (
	"strconv"
	"strings"

	"gatehouse/internal/config"
	"gatehouse/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

var cfg *config.Config

// InitMiddleware initializes authentication middleware with the given config.
func InitMiddleware(c *config.Config) {
	cfg = c
}

// viewerFromToken parses and validates a JWT and returns the viewer identity.
func viewerFromToken(tokenString string) (*models.Viewer, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid signing method")
		}
		return []byte(cfg.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid or expired token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid token claims")
	}

	// "sub" carries the user ID per RFC 7519.
	subStr, ok := claims["sub"].(string)
	if !ok {
		return nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid token structure - missing subject")
	}
	viewerID, err := strconv.ParseUint(subStr, 10, 32)
	if err != nil {
		return nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid user ID in token")
	}

	viewer := &models.Viewer{ID: uint(viewerID)}
	if username, ok := claims["username"].(string); ok {
		viewer.Username = username
	}
	if sysadmin, ok := claims["sysadmin"].(bool); ok {
		viewer.Sysadmin = sysadmin
	}
	return viewer, nil
}

func bearerToken(c *fiber.Ctx) (string, bool) {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return "", false
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", false
	}
	return parts[1], true
}

// AuthRequired is a middleware that enforces authentication for protected routes.
func AuthRequired(c *fiber.Ctx) error {
	tokenString, ok := bearerToken(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Authorization header required",
		})
	}

	viewer, err := viewerFromToken(tokenString)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	c.Locals("viewer", viewer)
	c.Locals("viewerID", viewer.ID)
	return c.Next()
}

// AuthOptional resolves the viewer identity when an Authorization header is
// present but lets anonymous requests through. Read endpoints use it so
// public resources stay visible to everyone.
func AuthOptional(c *fiber.Ctx) error {
	tokenString, ok := bearerToken(c)
	if !ok {
		return c.Next()
	}

	viewer, err := viewerFromToken(tokenString)
	if err != nil {
		// A malformed token on an optional route degrades to anonymous
		// rather than failing the whole read.
		return c.Next()
	}

	c.Locals("viewer", viewer)
	c.Locals("viewerID", viewer.ID)
	return c.Next()
}
