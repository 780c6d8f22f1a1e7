package handlers

import (
	"net/http"
	"net/url"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/reparafacil/repair-service/internal/api/dto"
	"github.com/reparafacil/repair-service/internal/domain"
	"github.com/reparafacil/repair-service/internal/service"
	"github.com/reparafacil/repair-service/pkg/util/errorutil"
)

// RepairTicketsBasePath is the collection URL of repair tickets.
const RepairTicketsBasePath = "/api/v1/reparaciones"

// RepairTicketsHandler serves the repair ticket endpoints.
type RepairTicketsHandler struct {
	lifecycle *service.LifecycleService
	query     *service.QueryService
	history   *service.HistoryService
	logger    *zap.Logger
}

// NewRepairTicketsHandler constructs handler.
func NewRepairTicketsHandler(lifecycle *service.LifecycleService, query *service.QueryService, history *service.HistoryService, logger *zap.Logger) *RepairTicketsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RepairTicketsHandler{lifecycle: lifecycle, query: query, history: history, logger: logger}
}

// List GET /.
func (h *RepairTicketsHandler) List(c *fiber.Ctx) error {
	return h.respondList(c)(h.lifecycle.ListActive(c.UserContext()))
}

// Create POST /.
func (h *RepairTicketsHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return errorutil.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}
	ticket, err := h.lifecycle.Create(c.UserContext(), req.ToInput())
	if err != nil {
		return err
	}
	c.Location(RepairTicketsBasePath + "/" + ticket.ID)
	return c.Status(http.StatusCreated).JSON(h.render(ticket))
}

// Get GET /:id.
func (h *RepairTicketsHandler) Get(c *fiber.Ctx) error {
	return h.respondOne(c)(h.lifecycle.Get(c.UserContext(), c.Params("id")))
}

// Update PUT /:id.
func (h *RepairTicketsHandler) Update(c *fiber.Ctx) error {
	var req dto.UpdateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return errorutil.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}
	return h.respondOne(c)(h.lifecycle.Update(c.UserContext(), c.Params("id"), req.ToInput()))
}

// Delete DELETE /:id.
func (h *RepairTicketsHandler) Delete(c *fiber.Ctx) error {
	if err := h.lifecycle.SoftDelete(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// ChangeStatus PUT /:id/estado.
func (h *RepairTicketsHandler) ChangeStatus(c *fiber.Ctx) error {
	var req dto.ChangeStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return errorutil.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}
	return h.respondOne(c)(h.lifecycle.ChangeStatus(c.UserContext(), c.Params("id"), req.Status))
}

// AssignTechnician PUT /:id/tecnico.
func (h *RepairTicketsHandler) AssignTechnician(c *fiber.Ctx) error {
	var req dto.AssignTechnicianRequest
	if err := c.BodyParser(&req); err != nil {
		return errorutil.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}
	return h.respondOne(c)(h.lifecycle.AssignTechnician(c.UserContext(), c.Params("id"), req.Technician))
}

// ListDeleted GET /eliminados.
func (h *RepairTicketsHandler) ListDeleted(c *fiber.Ctx) error {
	return h.respondList(c)(h.lifecycle.ListDeleted(c.UserContext()))
}

// Restore PUT /:id/restaurar.
func (h *RepairTicketsHandler) Restore(c *fiber.Ctx) error {
	return h.respondOne(c)(h.lifecycle.Restore(c.UserContext(), c.Params("id")))
}

// ByEmail GET /cliente/:email.
func (h *RepairTicketsHandler) ByEmail(c *fiber.Ctx) error {
	return h.respondList(c)(h.query.FindByEmail(c.UserContext(), param(c, "email")))
}

// CountByEmail GET /cliente/:email/count.
func (h *RepairTicketsHandler) CountByEmail(c *fiber.Ctx) error {
	return respondCount(c)(h.query.CountByEmail(c.UserContext(), param(c, "email")))
}

// ByEmailAndDate GET /cliente/:email/fecha/:fecha.
func (h *RepairTicketsHandler) ByEmailAndDate(c *fiber.Ctx) error {
	return h.respondList(c)(h.query.FindByEmailAndDate(c.UserContext(), param(c, "email"), c.Params("fecha")))
}

// ByEmailAndDateRange GET /cliente/:email/fechas?inicio&fin.
func (h *RepairTicketsHandler) ByEmailAndDateRange(c *fiber.Ctx) error {
	return h.respondList(c)(h.query.FindByEmailAndDateRange(c.UserContext(), param(c, "email"), c.Query("inicio"), c.Query("fin")))
}

// ByStatus GET /estado/:estado.
func (h *RepairTicketsHandler) ByStatus(c *fiber.Ctx) error {
	return h.respondList(c)(h.query.FindByStatus(c.UserContext(), c.Params("estado")))
}

// ByDeviceType GET /tipo/:tipo.
func (h *RepairTicketsHandler) ByDeviceType(c *fiber.Ctx) error {
	return h.respondList(c)(h.query.FindByDeviceType(c.UserContext(), param(c, "tipo")))
}

// ByTechnician GET /tecnico/:tecnico.
func (h *RepairTicketsHandler) ByTechnician(c *fiber.Ctx) error {
	return h.respondList(c)(h.query.FindByTechnician(c.UserContext(), param(c, "tecnico")))
}

// CountByTechnician GET /tecnico/:tecnico/count.
func (h *RepairTicketsHandler) CountByTechnician(c *fiber.Ctx) error {
	return respondCount(c)(h.query.CountByTechnician(c.UserContext(), param(c, "tecnico")))
}

// ByTechnicianAndStatus GET /tecnico/:tecnico/estado/:estado.
func (h *RepairTicketsHandler) ByTechnicianAndStatus(c *fiber.Ctx) error {
	return h.respondList(c)(h.query.FindByTechnicianAndStatus(c.UserContext(), param(c, "tecnico"), c.Params("estado")))
}

// ByTechnicianAndDateRange GET /tecnico/:tecnico/fechas?inicio&fin.
func (h *RepairTicketsHandler) ByTechnicianAndDateRange(c *fiber.Ctx) error {
	return h.respondList(c)(h.query.FindByTechnicianAndDateRange(c.UserContext(), param(c, "tecnico"), c.Query("inicio"), c.Query("fin")))
}

// ByDate GET /fecha/:fecha.
func (h *RepairTicketsHandler) ByDate(c *fiber.Ctx) error {
	return h.respondList(c)(h.query.FindByDateExact(c.UserContext(), c.Params("fecha")))
}

// ByDateRange GET /fechas?inicio&fin.
func (h *RepairTicketsHandler) ByDateRange(c *fiber.Ctx) error {
	return h.respondList(c)(h.query.FindByDateRange(c.UserContext(), c.Query("inicio"), c.Query("fin")))
}

// Search GET /buscar?q=.
func (h *RepairTicketsHandler) Search(c *fiber.Ctx) error {
	return h.respondList(c)(h.query.Search(c.UserContext(), c.Query("q")))
}

// SearchAdvanced GET /busqueda-avanzada.
func (h *RepairTicketsHandler) SearchAdvanced(c *fiber.Ctx) error {
	return h.respondList(c)(h.query.SearchAdvanced(c.UserContext(), service.AdvancedSearch{
		CustomerName: c.Query("nombre"),
		Email:        c.Query("email"),
		DeviceType:   c.Query("tipo"),
		Status:       c.Query("estado"),
		Technician:   c.Query("tecnico"),
	}))
}

// Statistics GET /estadisticas.
func (h *RepairTicketsHandler) Statistics(c *fiber.Ctx) error {
	stats, err := h.query.Statistics(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(stats)
}

// DetailedStatistics GET /estadisticas/detalladas.
func (h *RepairTicketsHandler) DetailedStatistics(c *fiber.Ctx) error {
	stats, err := h.query.DetailedStatistics(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(stats)
}

// Statuses GET /estados.
func (h *RepairTicketsHandler) Statuses(c *fiber.Ctx) error {
	statuses, _ := h.query.Catalog()
	return c.JSON(statuses)
}

// DeviceTypes GET /tipos-dispositivos.
func (h *RepairTicketsHandler) DeviceTypes(c *fiber.Ctx) error {
	_, deviceTypes := h.query.Catalog()
	return c.JSON(deviceTypes)
}

// History GET /:id/historial.
func (h *RepairTicketsHandler) History(c *fiber.Ctx) error {
	entries, err := h.history.List(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(dto.NewHistoryResponses(entries))
}

func (h *RepairTicketsHandler) render(ticket *domain.RepairTicket) dto.TicketResponse {
	return dto.NewTicketResponse(ticket, h.lifecycle.Now(), RepairTicketsBasePath)
}

func (h *RepairTicketsHandler) respondOne(c *fiber.Ctx) func(*domain.RepairTicket, error) error {
	return func(ticket *domain.RepairTicket, err error) error {
		if err != nil {
			return err
		}
		return c.JSON(h.render(ticket))
	}
}

// respondList answers 204 for empty results.
func (h *RepairTicketsHandler) respondList(c *fiber.Ctx) func([]domain.RepairTicket, error) error {
	return func(tickets []domain.RepairTicket, err error) error {
		if err != nil {
			return err
		}
		if len(tickets) == 0 {
			return c.SendStatus(http.StatusNoContent)
		}
		return c.JSON(dto.NewTicketResponses(tickets, h.lifecycle.Now(), RepairTicketsBasePath))
	}
}

func respondCount(c *fiber.Ctx) func(int64, error) error {
	return func(count int64, err error) error {
		if err != nil {
			return err
		}
		return c.JSON(dto.CountResponse{Count: count})
	}
}

// param returns a decoded path parameter; emails and names arrive escaped.
func param(c *fiber.Ctx, key string) string {
	raw := c.Params(key)
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}
