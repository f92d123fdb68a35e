package ops

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/Monkestation/Veyra-Vet/internal/models"
)

// Health handles GET /healthz
func (s *Server) Health(c *fiber.Ctx) error {
	ctx := c.UserContext()

	// Store reads failing should not flip liveness; report -1 instead.
	vetSize, err := s.vetting.Size(ctx)
	if err != nil {
		vetSize = -1
	}
	comSize, err := s.commissions.Size(ctx)
	if err != nil {
		comSize = -1
	}

	return c.JSON(fiber.Map{
		"status":             "ok",
		"uptime":             time.Since(s.startedAt).String(),
		"vetting_records":    vetSize,
		"commission_records": comSize,
	})
}

// Login handles POST /api/auth/login
func (s *Server) Login(c *fiber.Ctx) error {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	if req.Username != s.config.OpsAdminUser {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("Invalid credentials"))
	}
	if err := bcrypt.CompareHashAndPassword([]byte(s.config.OpsAdminPasswordHash), []byte(req.Password)); err != nil {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("Invalid credentials"))
	}

	token, err := s.generateToken(req.Username)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError(err))
	}

	return c.JSON(fiber.Map{"token": token})
}

// Stats handles GET /api/stats
func (s *Server) Stats(c *fiber.Ctx) error {
	ctx := c.UserContext()

	vetStats, err := s.vetting.Stats(ctx)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, err)
	}
	comStats, err := s.commissions.Stats(ctx)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, err)
	}

	return c.JSON(fiber.Map{
		"vetting":     vetStats,
		"commissions": comStats,
	})
}

// Cleanup handles POST /api/cleanup
func (s *Server) Cleanup(c *fiber.Ctx) error {
	ctx := c.UserContext()

	vetRemoved, err := s.vetting.Cleanup(ctx)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, err)
	}
	comRemoved, err := s.commissions.Cleanup(ctx)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, err)
	}

	return c.JSON(fiber.Map{
		"vetting_removed":     vetRemoved,
		"commissions_removed": comRemoved,
	})
}

// generateToken creates a JWT token for the ops admin.
func (s *Server) generateToken(username string) (string, error) {
	if s.config.JWTSecret == "" {
		return "", fmt.Errorf("JWT secret not configured")
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"sub": username,
		"iss": "veyravet-ops",
		"aud": "veyravet-admin",
		"exp": now.Add(24 * time.Hour).Unix(),
		"iat": now.Unix(),
		"nbf": now.Unix(),
		"jti": fmt.Sprintf("%d-%s", now.Unix(), uuid.New().String()[:8]),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.JWTSecret))
}
