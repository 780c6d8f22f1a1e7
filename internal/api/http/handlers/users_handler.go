package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/reparafacil/repair-service/internal/api/dto"
	"github.com/reparafacil/repair-service/internal/domain"
	"github.com/reparafacil/repair-service/internal/service"
	"github.com/reparafacil/repair-service/pkg/util/errorutil"
)

// UsersHandler exposes account administration for admins.
type UsersHandler struct {
	users *service.UserService
}

// NewUsersHandler constructs handler.
func NewUsersHandler(userService *service.UserService) *UsersHandler {
	return &UsersHandler{users: userService}
}

// List handles GET /auth/usuarios.
func (h *UsersHandler) List(c *fiber.Ctx) error {
	return respondUsers(c)(h.users.List(c.UserContext()))
}

// ListActive handles GET /auth/usuarios/activos.
func (h *UsersHandler) ListActive(c *fiber.Ctx) error {
	return respondUsers(c)(h.users.ListActive(c.UserContext()))
}

// ListByRole handles GET /auth/usuarios/rol/:rol.
func (h *UsersHandler) ListByRole(c *fiber.Ctx) error {
	return respondUsers(c)(h.users.ListByRole(c.UserContext(), c.Params("rol")))
}

// CountByRole handles GET /auth/usuarios/rol/:rol/count.
func (h *UsersHandler) CountByRole(c *fiber.Ctx) error {
	return respondCount(c)(h.users.CountByRole(c.UserContext(), c.Params("rol")))
}

// Technicians handles GET /auth/tecnicos.
func (h *UsersHandler) Technicians(c *fiber.Ctx) error {
	names, err := h.users.TechnicianNames(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(names)
}

// Statistics handles GET /auth/usuarios/estadisticas.
func (h *UsersHandler) Statistics(c *fiber.Ctx) error {
	stats, err := h.users.Statistics(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(stats)
}

// Get handles GET /auth/usuarios/:id.
func (h *UsersHandler) Get(c *fiber.Ctx) error {
	user, err := h.users.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(dto.NewUserResponse(user))
}

// Update handles PUT /auth/usuarios/:id.
func (h *UsersHandler) Update(c *fiber.Ctx) error {
	var req dto.UpdateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return errorutil.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}
	user, err := h.users.Update(c.UserContext(), c.Params("id"), req.ToInput())
	if err != nil {
		return err
	}
	return c.JSON(dto.NewUserResponse(user))
}

// Delete handles DELETE /auth/usuarios/:id.
func (h *UsersHandler) Delete(c *fiber.Ctx) error {
	if err := h.users.SoftDelete(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

func respondUsers(c *fiber.Ctx) func([]domain.User, error) error {
	return func(users []domain.User, err error) error {
		if err != nil {
			return err
		}
		if len(users) == 0 {
			return c.SendStatus(http.StatusNoContent)
		}
		return c.JSON(dto.NewUserResponses(users))
	}
}
