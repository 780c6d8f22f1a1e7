package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/reparafacil/repair-service/internal/api/http/handlers"
	"github.com/reparafacil/repair-service/internal/auth"
	"github.com/reparafacil/repair-service/internal/config"
	"github.com/reparafacil/repair-service/internal/domain"
	"github.com/reparafacil/repair-service/internal/events"
	"github.com/reparafacil/repair-service/internal/observability"
	"github.com/reparafacil/repair-service/internal/repository"
	"github.com/reparafacil/repair-service/internal/service"
)

const base = "/api/v1/reparaciones"

type testServer struct {
	app        *fiber.App
	adminToken string
	techToken  string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := zap.NewNop()
	now := func() time.Time { return time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC) }

	ticketRepo := repository.NewMemoryTicketRepository()
	userRepo := repository.NewMemoryUserRepository()
	dispatcher := events.NewInMemoryDispatcher(logger)
	metrics := observability.NewMetrics()
	metrics.Subscribe(dispatcher)

	history := service.NewHistoryService(service.HistoryDependencies{
		HistoryRepo: repository.NewMemoryTicketHistoryRepository(),
		TicketRepo:  ticketRepo,
		Logger:      logger,
	})
	history.Subscribe(dispatcher)

	lifecycle := service.NewLifecycleService(service.LifecycleDependencies{TicketRepo: ticketRepo, Dispatcher: dispatcher, Logger: logger, Clock: now})
	query := service.NewQueryService(service.QueryDependencies{TicketRepo: ticketRepo, Logger: logger})
	authService := service.NewAuthService(config.AuthConfig{
		JWTSecret:             "test",
		AccessTokenTTLMinutes: 5,
		BcryptCost:            bcrypt.MinCost,
		MaxLoginAttempts:      5,
	}, service.AuthDependencies{UserRepo: userRepo, Logger: logger})
	userService := service.NewUserService(service.UserDependencies{UserRepo: userRepo, AuthService: authService, Logger: logger})

	ctx := context.Background()
	admin, err := authService.CreateUser(ctx, service.RegisterInput{Username: "admin", Email: "admin@x.com", Password: "admin123", FirstName: "Admin"}, domain.UserRoleAdmin)
	require.NoError(t, err)
	tech, err := authService.CreateUser(ctx, service.RegisterInput{Username: "carlos", Email: "carlos@x.com", Password: "tech1234", FirstName: "Carlos", LastName: "Muñoz"}, domain.UserRoleTechnician)
	require.NoError(t, err)
	adminToken, _, err := authService.TokenManager().GenerateToken(admin)
	require.NoError(t, err)
	techToken, _, err := authService.TokenManager().GenerateToken(tech)
	require.NoError(t, err)

	app := NewApp(logger)
	RegisterMiddlewares(app, logger, metrics, 5*time.Second)
	RegisterRoutes(app, RouteConfig{
		Health:         handlers.NewHealthHandler("reparafacil", "test", nil),
		Tickets:        handlers.NewRepairTicketsHandler(lifecycle, query, history, logger),
		Auth:           handlers.NewAuthHandler(authService),
		Users:          handlers.NewUsersHandler(userService),
		AuthMiddleware: auth.NewAuthMiddleware(authService.TokenManager(), userRepo),
		Metrics:        metrics,
	})
	return &testServer{app: app, adminToken: adminToken, techToken: techToken}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (*nethttp.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.app.Test(req, 5000)
	require.NoError(t, err)
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(data, &v), string(data))
	return v
}

func intake() map[string]any {
	return map[string]any{
		"nombreCliente":       "Juan Pérez",
		"telefono":            "+56912345678",
		"email":               "juan@x.com",
		"tipoDispositivo":     "Smartphone",
		"marca":               "Samsung",
		"modelo":              "Galaxy S21",
		"descripcionProblema": "Screen cracked",
		"fechaAgendada":       "2024-01-20T10:00:00",
	}
}

func (s *testServer) createTicket(t *testing.T) map[string]any {
	t.Helper()
	resp, data := s.do(t, nethttp.MethodPost, base, "", intake())
	require.Equal(t, nethttp.StatusCreated, resp.StatusCode, string(data))
	return decode[map[string]any](t, data)
}

func errorCode(t *testing.T, data []byte) string {
	t.Helper()
	body := decode[map[string]map[string]any](t, data)
	code, _ := body["error"]["code"].(string)
	return code
}

func TestCreateAndFetchTicket(t *testing.T) {
	srv := newTestServer(t)

	resp, _ := srv.do(t, nethttp.MethodGet, base, "", nil)
	assert.Equal(t, nethttp.StatusNoContent, resp.StatusCode)

	created := srv.createTicket(t)
	id := created["id"].(string)
	assert.Equal(t, "SCHEDULED", created["estado"])
	assert.Equal(t, "NORMAL", created["prioridad"])
	assert.Equal(t, true, created["activo"])
	assert.Equal(t, float64(30), created["garantiaDias"])
	assert.Contains(t, created, "_links")

	resp, data := srv.do(t, nethttp.MethodGet, base+"/"+id, "", nil)
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)
	assert.Equal(t, "Juan Pérez", decode[map[string]any](t, data)["nombreCliente"])

	resp, data = srv.do(t, nethttp.MethodGet, base, "", nil)
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]map[string]any](t, data), 1)
}

func TestCreateRejectsInvalidPayload(t *testing.T) {
	srv := newTestServer(t)
	payload := intake()
	delete(payload, "telefono")
	payload["email"] = "nope"

	resp, data := srv.do(t, nethttp.MethodPost, base, "", payload)
	assert.Equal(t, nethttp.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(t, data))

	for field, value := range map[string]string{
		"fechaAgendada": "",
		"nombreCliente": "   ",
		"modelo":        "\t ",
	} {
		payload := intake()
		payload[field] = value
		resp, data := srv.do(t, nethttp.MethodPost, base, "", payload)
		assert.Equal(t, nethttp.StatusBadRequest, resp.StatusCode, field)
		assert.Equal(t, "VALIDATION_FAILED", errorCode(t, data), field)
	}

	resp, _ = srv.do(t, nethttp.MethodGet, base, "", nil)
	assert.Equal(t, nethttp.StatusNoContent, resp.StatusCode)
}

func TestStatusChangeFlow(t *testing.T) {
	srv := newTestServer(t)
	id := srv.createTicket(t)["id"].(string)
	path := base + "/" + id + "/estado"

	resp, data := srv.do(t, nethttp.MethodPut, path, "", map[string]string{"estado": "IN_REPAIR"})
	assert.Equal(t, nethttp.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "UNAUTHORIZED", errorCode(t, data))

	resp, data = srv.do(t, nethttp.MethodPut, path, srv.techToken, map[string]string{"estado": "EN_REPARACION"})
	require.Equal(t, nethttp.StatusOK, resp.StatusCode, string(data))
	body := decode[map[string]any](t, data)
	assert.Equal(t, "IN_REPAIR", body["estado"])
	assert.NotNil(t, body["fechaInicioReparacion"])

	resp, data = srv.do(t, nethttp.MethodGet, base+"/"+id+"/historial", srv.techToken, nil)
	require.Equal(t, nethttp.StatusOK, resp.StatusCode, string(data))
	trail := decode[[]map[string]any](t, data)
	require.Len(t, trail, 2)
	assert.Equal(t, "CREATED", trail[0]["tipoCambio"])
	assert.Nil(t, trail[0]["usuario"])
	assert.Equal(t, "STATUS_CHANGE", trail[1]["tipoCambio"])
	assert.Equal(t, "carlos", trail[1]["usuario"])

	resp, data = srv.do(t, nethttp.MethodPut, path, srv.techToken, map[string]string{"estado": "BROKEN"})
	assert.Equal(t, nethttp.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "INVALID_STATUS", errorCode(t, data))

	resp, data = srv.do(t, nethttp.MethodGet, base+"/estado/IN_REPAIR", "", nil)
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]map[string]any](t, data), 1)

	resp, _ = srv.do(t, nethttp.MethodGet, base+"/estado/BROKEN", "", nil)
	assert.Equal(t, nethttp.StatusNoContent, resp.StatusCode)

	resp, _ = srv.do(t, nethttp.MethodPut, base+"/missing/estado", srv.techToken, map[string]string{"estado": "IN_REPAIR"})
	assert.Equal(t, nethttp.StatusNotFound, resp.StatusCode)
}

func TestTechnicianAndUpdate(t *testing.T) {
	srv := newTestServer(t)
	id := srv.createTicket(t)["id"].(string)

	resp, data := srv.do(t, nethttp.MethodPut, base+"/"+id+"/tecnico", srv.techToken, map[string]string{"tecnico": "Carlos Muñoz"})
	require.Equal(t, nethttp.StatusOK, resp.StatusCode, string(data))

	resp, data = srv.do(t, nethttp.MethodGet, base+"/tecnico/Carlos%20Mu%C3%B1oz/count", "", nil)
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), decode[map[string]any](t, data)["count"])

	resp, data = srv.do(t, nethttp.MethodPut, base+"/"+id, srv.techToken, map[string]any{"costoEstimado": 45000, "prioridad": "URGENTE"})
	require.Equal(t, nethttp.StatusOK, resp.StatusCode, string(data))
	body := decode[map[string]any](t, data)
	assert.Equal(t, float64(45000), body["costoEstimado"])
	assert.Equal(t, "URGENT", body["prioridad"])
	assert.Equal(t, "SCHEDULED", body["estado"])

	resp, data = srv.do(t, nethttp.MethodPut, base+"/"+id, srv.techToken, map[string]any{"prioridad": "MEGA"})
	assert.Equal(t, nethttp.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "INVALID_ENUM", errorCode(t, data))
}

func TestSoftDeleteAndRestoreRoutes(t *testing.T) {
	srv := newTestServer(t)
	id := srv.createTicket(t)["id"].(string)

	resp, _ := srv.do(t, nethttp.MethodDelete, base+"/"+id, srv.techToken, nil)
	assert.Equal(t, nethttp.StatusForbidden, resp.StatusCode)

	resp, _ = srv.do(t, nethttp.MethodDelete, base+"/"+id, srv.adminToken, nil)
	assert.Equal(t, nethttp.StatusNoContent, resp.StatusCode)

	resp, _ = srv.do(t, nethttp.MethodGet, base+"/"+id, "", nil)
	assert.Equal(t, nethttp.StatusNotFound, resp.StatusCode)

	resp, _ = srv.do(t, nethttp.MethodGet, base+"/buscar?q=samsung", "", nil)
	assert.Equal(t, nethttp.StatusNoContent, resp.StatusCode)

	resp, data := srv.do(t, nethttp.MethodGet, base+"/eliminados", srv.adminToken, nil)
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]map[string]any](t, data), 1)

	resp, data = srv.do(t, nethttp.MethodPut, base+"/"+id+"/restaurar", srv.adminToken, nil)
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)
	assert.Equal(t, true, decode[map[string]any](t, data)["activo"])
}

func TestQueryRoutes(t *testing.T) {
	srv := newTestServer(t)
	srv.createTicket(t)

	resp, data := srv.do(t, nethttp.MethodGet, base+"/fecha/2024-01-20", "", nil)
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]map[string]any](t, data), 1)

	resp, data = srv.do(t, nethttp.MethodGet, base+"/fecha/20-01-2024", "", nil)
	assert.Equal(t, nethttp.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "INVALID_DATE_FORMAT", errorCode(t, data))

	resp, _ = srv.do(t, nethttp.MethodGet, base+"/fechas?inicio=2024-01-01&fin=2024-01-20", "", nil)
	assert.Equal(t, nethttp.StatusOK, resp.StatusCode)

	resp, _ = srv.do(t, nethttp.MethodGet, base+"/cliente/juan@x.com/fechas?inicio=2024-01-21&fin=2024-01-31", "", nil)
	assert.Equal(t, nethttp.StatusNoContent, resp.StatusCode)

	resp, data = srv.do(t, nethttp.MethodGet, base+"/cliente/juan@x.com/count", "", nil)
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), decode[map[string]any](t, data)["count"])

	resp, _ = srv.do(t, nethttp.MethodGet, base+"/busqueda-avanzada?nombre=juan&tipo=smart", "", nil)
	assert.Equal(t, nethttp.StatusOK, resp.StatusCode)

	resp, data = srv.do(t, nethttp.MethodGet, base+"/estadisticas", "", nil)
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)
	stats := decode[map[string]any](t, data)
	assert.Equal(t, float64(1), stats["totalServicios"])
	assert.Equal(t, float64(1), stats["serviciosAgendados"])

	resp, data = srv.do(t, nethttp.MethodGet, base+"/estados", "", nil)
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]map[string]any](t, data), len(domain.RepairStatuses))

	resp, _ = srv.do(t, nethttp.MethodGet, base+"/tipos-dispositivos", "", nil)
	assert.Equal(t, nethttp.StatusOK, resp.StatusCode)
}

func TestAuthRoutes(t *testing.T) {
	srv := newTestServer(t)
	register := map[string]string{
		"username": "ana",
		"email":    "ana@x.com",
		"password": "secret123",
		"nombre":   "Ana",
		"apellido": "Soto",
	}

	resp, data := srv.do(t, nethttp.MethodPost, "/api/v1/auth/register", "", register)
	require.Equal(t, nethttp.StatusCreated, resp.StatusCode, string(data))
	session := decode[map[string]any](t, data)
	assert.NotEmpty(t, session["token"])
	assert.Equal(t, "CLIENT", session["user"].(map[string]any)["rol"])

	resp, data = srv.do(t, nethttp.MethodPost, "/api/v1/auth/register", "", register)
	assert.Equal(t, nethttp.StatusConflict, resp.StatusCode)
	assert.Equal(t, "CONFLICT", errorCode(t, data))

	resp, data = srv.do(t, nethttp.MethodGet, "/api/v1/auth/check-username/ana", "", nil)
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)
	assert.Equal(t, true, decode[map[string]any](t, data)["exists"])

	for i := 0; i < 4; i++ {
		resp, _ = srv.do(t, nethttp.MethodPost, "/api/v1/auth/login", "", map[string]string{"username": "ana", "password": "wrong-pass"})
		assert.Equal(t, nethttp.StatusUnauthorized, resp.StatusCode)
	}
	resp, data = srv.do(t, nethttp.MethodPost, "/api/v1/auth/login", "", map[string]string{"username": "ana", "password": "wrong-pass"})
	assert.Equal(t, nethttp.StatusLocked, resp.StatusCode)
	assert.Equal(t, "ACCOUNT_LOCKED", errorCode(t, data))

	resp, _ = srv.do(t, nethttp.MethodPut, "/api/v1/auth/unlock/ana", srv.techToken, nil)
	assert.Equal(t, nethttp.StatusForbidden, resp.StatusCode)
	resp, _ = srv.do(t, nethttp.MethodPut, "/api/v1/auth/unlock/ana", srv.adminToken, nil)
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)

	resp, data = srv.do(t, nethttp.MethodPost, "/api/v1/auth/login", "", map[string]string{"username": "ana", "password": "secret123"})
	require.Equal(t, nethttp.StatusOK, resp.StatusCode, string(data))
	token := decode[map[string]any](t, data)["token"].(string)

	resp, data = srv.do(t, nethttp.MethodGet, "/api/v1/auth/me", token, nil)
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)
	assert.Equal(t, "Ana Soto", decode[map[string]any](t, data)["nombreCompleto"])

	resp, _ = srv.do(t, nethttp.MethodGet, "/api/v1/auth/usuarios", token, nil)
	assert.Equal(t, nethttp.StatusForbidden, resp.StatusCode)
}

func TestAdminUserRoutes(t *testing.T) {
	srv := newTestServer(t)

	resp, data := srv.do(t, nethttp.MethodGet, "/api/v1/auth/usuarios", srv.adminToken, nil)
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)
	users := decode[[]map[string]any](t, data)
	require.Len(t, users, 2)

	var adminID string
	for _, u := range users {
		assert.NotContains(t, u, "passwordHash")
		if u["username"] == "admin" {
			adminID = u["id"].(string)
		}
	}

	resp, data = srv.do(t, nethttp.MethodDelete, "/api/v1/auth/usuarios/"+adminID, srv.adminToken, nil)
	assert.Equal(t, nethttp.StatusConflict, resp.StatusCode)
	assert.Equal(t, "CONFLICT", errorCode(t, data))

	resp, data = srv.do(t, nethttp.MethodGet, "/api/v1/auth/usuarios/rol/EMPRENDEDOR/count", srv.adminToken, nil)
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), decode[map[string]any](t, data)["count"])

	resp, data = srv.do(t, nethttp.MethodGet, "/api/v1/auth/usuarios/rol/NOPE", srv.adminToken, nil)
	assert.Equal(t, nethttp.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "INVALID_ENUM", errorCode(t, data))

	resp, data = srv.do(t, nethttp.MethodGet, "/api/v1/auth/usuarios/estadisticas", srv.adminToken, nil)
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(2), decode[map[string]any](t, data)["usuariosActivos"])

	resp, data = srv.do(t, nethttp.MethodGet, "/api/v1/auth/tecnicos", "", nil)
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"Carlos Muñoz"}, decode[[]string](t, data))
}

func TestOperationalRoutes(t *testing.T) {
	srv := newTestServer(t)

	resp, _ := srv.do(t, nethttp.MethodGet, "/health/live", "", nil)
	assert.Equal(t, nethttp.StatusOK, resp.StatusCode)
	resp, _ = srv.do(t, nethttp.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, nethttp.StatusOK, resp.StatusCode)

	for path, service := range map[string]string{
		"/api/v1/reparaciones/health": "repair tickets",
		"/api/v1/auth/health":         "authentication",
	} {
		resp, data := srv.do(t, nethttp.MethodGet, path, "", nil)
		require.Equal(t, nethttp.StatusOK, resp.StatusCode, path)
		body := decode[map[string]any](t, data)
		assert.Equal(t, "UP", body["status"], path)
		assert.Equal(t, service, body["service"], path)
		assert.NotEmpty(t, body["timestamp"], path)
	}

	srv.createTicket(t)
	resp, data := srv.do(t, nethttp.MethodGet, "/metrics", "", nil)
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)
	assert.Contains(t, string(data), `reparafacil_ticket_events_total{type="ticket.created"} 1`)

	resp, data = srv.do(t, nethttp.MethodGet, "/api/v1/nothing-here", "", nil)
	assert.Equal(t, nethttp.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NOT_FOUND", errorCode(t, data))
	assert.NotEmpty(t, resp.Header.Get(fiber.HeaderXRequestID))
}
