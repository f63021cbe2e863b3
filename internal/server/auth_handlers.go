package server

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"gatehouse/internal/models"
	"gatehouse/internal/notifications"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Signup handles POST /api/auth/signup
func (s *Server) Signup(c *fiber.Ctx) error {
	var req struct {
		Username    string `json:"username"`
		Email       string `json:"email"`
		Password    string `json:"password"`
		DisplayName string `json:"display_name"`
	}
	if err := c.BodyParser(&req); err != nil {
		return fail(c, models.NewValidationError("Invalid request body"))
	}

	if req.Username == "" || req.Email == "" || req.Password == "" {
		return fail(c, models.NewValidationError("Username, email, and password are required"))
	}
	if len(req.Password) < 8 {
		return fail(c, models.NewValidationError("Password must be at least 8 characters"))
	}

	ctx := c.UserContext()

	// Check if user already exists
	if _, err := s.userRepo.GetByEmail(ctx, req.Email); err == nil {
		return fail(c, models.NewConflictError("A user with that email already exists"))
	} else if !isNotFound(err) {
		return fail(c, err)
	}
	if _, err := s.userRepo.GetByUsername(ctx, req.Username); err == nil {
		return fail(c, models.NewConflictError("A user with that username already exists"))
	} else if !isNotFound(err) {
		return fail(c, err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return fail(c, models.NewInternalError(err))
	}

	user := &models.User{
		Username:    req.Username,
		Email:       req.Email,
		Password:    string(hashedPassword),
		DisplayName: req.DisplayName,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return fail(c, err)
	}

	s.notifyRegistration(c, user)

	token, err := s.generateToken(user)
	if err != nil {
		return fail(c, models.NewInternalError(err))
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"token": token,
		"user":  user,
	})
}

// notifyRegistration tells the sysadmins about the new account. Best-effort.
func (s *Server) notifyRegistration(c *fiber.Ctx, user *models.User) {
	ctx := c.UserContext()
	sysadmins, err := s.userRepo.ListSysadmins(ctx)
	if err != nil {
		sysadmins = nil
	}
	s.dispatcher.NewRegistration(ctx, sysadmins, s.config.EmailTo, notifications.RegistrationNotice{
		UserID:    user.ID,
		Username:  user.Username,
		Email:     user.Email,
		SiteTitle: s.config.SiteTitle,
		SiteURL:   s.config.SiteURL,
	})
}

// Login handles POST /api/auth/login
func (s *Server) Login(c *fiber.Ctx) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return fail(c, models.NewValidationError("Invalid request body"))
	}

	user, err := s.userRepo.GetByEmail(c.UserContext(), req.Email)
	if err != nil {
		if isNotFound(err) {
			return fail(c, models.NewUnauthorizedError("Invalid credentials"))
		}
		return fail(c, err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return fail(c, models.NewUnauthorizedError("Invalid credentials"))
	}

	token, err := s.generateToken(user)
	if err != nil {
		return fail(c, models.NewInternalError(err))
	}

	return c.JSON(fiber.Map{
		"token": token,
		"user":  user,
	})
}

// generateToken creates a JWT for the given user. The username and sysadmin
// claims travel in the token so read-path filtering never needs a user
// lookup.
func (s *Server) generateToken(user *models.User) (string, error) {
	if s.config.JWTSecret == "" {
		return "", fmt.Errorf("JWT secret not configured")
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"sub":      strconv.FormatUint(uint64(user.ID), 10),
		"username": user.Username,
		"sysadmin": user.Sysadmin,
		"exp":      now.Add(time.Hour * 24 * 7).Unix(),
		"iat":      now.Unix(),
		"nbf":      now.Unix(),
		"jti":      fmt.Sprintf("%d-%s", now.Unix(), uuid.New().String()[:8]),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.JWTSecret))
}

func isNotFound(err error) bool {
	var appErr *models.AppError
	return errors.As(err, &appErr) && appErr.Code == models.CodeNotFound
}
