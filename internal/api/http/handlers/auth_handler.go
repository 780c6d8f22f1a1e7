package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/reparafacil/repair-service/internal/api/dto"
	"github.com/reparafacil/repair-service/internal/auth"
	"github.com/reparafacil/repair-service/internal/service"
	"github.com/reparafacil/repair-service/pkg/util/errorutil"
)

// AuthHandler exposes registration, login and self-service account endpoints.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: authService}
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.UserRegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return errorutil.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}

	session, err := h.auth.Register(c.UserContext(), req.ToInput())
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(dto.NewAuthResponse(session, "registration successful"))
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.UserLoginRequest
	if err := c.BodyParser(&req); err != nil {
		return errorutil.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}

	session, err := h.auth.Login(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewAuthResponse(session, "login successful"))
}

// Me handles GET /auth/me.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return errorutil.NewUnauthorized("authentication required")
	}
	return c.JSON(dto.NewUserResponse(principal.User))
}

// ChangePassword handles PUT /auth/password.
func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return errorutil.NewUnauthorized("authentication required")
	}
	var req dto.ChangePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return errorutil.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}
	if err := h.auth.ChangePassword(c.UserContext(), principal.User.Username, req.CurrentPassword, req.NewPassword); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// Unlock handles PUT /auth/unlock/:username.
func (h *AuthHandler) Unlock(c *fiber.Ctx) error {
	user, err := h.auth.Unlock(c.UserContext(), param(c, "username"))
	if err != nil {
		return err
	}
	return c.JSON(dto.NewUserResponse(user))
}

// UsernameExists handles GET /auth/check-username/:username.
func (h *AuthHandler) UsernameExists(c *fiber.Ctx) error {
	taken, err := h.auth.UsernameExists(c.UserContext(), param(c, "username"))
	if err != nil {
		return err
	}
	return c.JSON(dto.ExistsResponse{Exists: taken})
}

// EmailExists handles GET /auth/check-email/:email.
func (h *AuthHandler) EmailExists(c *fiber.Ctx) error {
	taken, err := h.auth.EmailExists(c.UserContext(), param(c, "email"))
	if err != nil {
		return err
	}
	return c.JSON(dto.ExistsResponse{Exists: taken})
}
