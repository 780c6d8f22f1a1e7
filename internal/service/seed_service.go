package service

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/reparafacil/repair-service/internal/domain"
	"github.com/reparafacil/repair-service/internal/repository"
)

var (
	seedTechnicianFirstNames = []string{"Carlos", "María", "José", "Ana", "Pedro", "Laura"}
	seedTechnicianLastNames  = []string{"González", "Martínez", "López", "Rodríguez", "Silva", "Torres"}
	seedCustomerFirstNames   = []string{"Juan", "Camila", "Diego", "Valentina", "Matías", "Francisca", "Tomás", "Isidora"}
	seedCustomerLastNames    = []string{"Pérez", "Muñoz", "Rojas", "Díaz", "Soto", "Contreras", "Fuentes", "Vargas"}
	seedBrands               = map[string][]string{
		"Smartphone": {"Samsung", "iPhone", "Huawei", "Xiaomi", "Motorola"},
		"Laptop":     {"HP", "Dell", "Lenovo", "Asus", "MacBook"},
		"Consola":    {"PlayStation", "Xbox", "Nintendo"},
	}
	seedProblems = map[string][]string{
		"Smartphone": {"Pantalla rota", "Batería no carga", "No enciende", "Cámara no funciona"},
		"Laptop":     {"No enciende", "Pantalla azul", "Sobrecalentamiento", "Teclado no funciona"},
	}
)

// SeedResult reports what a seeding run created.
type SeedResult struct {
	Skipped     bool
	Users       int
	Tickets     int
	Technicians []string
}

// SeedService loads demo data through the regular services.
type SeedService struct {
	users     repository.UserRepository
	auth      *AuthService
	lifecycle *LifecycleService
	logger    *zap.Logger
	rnd       *rand.Rand
}

// SeedDependencies bundles collaborators for the seed service.
type SeedDependencies struct {
	UserRepo    repository.UserRepository
	AuthService *AuthService
	Lifecycle   *LifecycleService
	Logger      *zap.Logger
	Rand        *rand.Rand
}

// NewSeedService constructs the service.
func NewSeedService(deps SeedDependencies) *SeedService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	rnd := deps.Rand
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &SeedService{
		users:     deps.UserRepo,
		auth:      deps.AuthService,
		lifecycle: deps.Lifecycle,
		logger:    logger,
		rnd:       rnd,
	}
}

// Seed creates the admin, six technicians and the requested number of
// tickets. Nothing is written when any user already exists.
func (s *SeedService) Seed(ctx context.Context, adminPassword string, tickets int) (*SeedResult, error) {
	existing, err := s.users.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}
	if existing > 0 {
		s.logger.Info("seed skipped, users already exist", zap.Int64("users", existing))
		return &SeedResult{Skipped: true}, nil
	}

	result := &SeedResult{}
	if _, err := s.auth.CreateUser(ctx, RegisterInput{
		Username:  "admin",
		Email:     "admin@reparafacil.com",
		Password:  adminPassword,
		FirstName: "Administrador",
		LastName:  "Sistema",
		Phone:     "+56912345678",
	}, domain.UserRoleAdmin); err != nil {
		return nil, fmt.Errorf("create admin: %w", err)
	}
	result.Users++

	for i := range seedTechnicianFirstNames {
		tech, err := s.auth.CreateUser(ctx, RegisterInput{
			Username:  fmt.Sprintf("tecnico%d", i+1),
			Email:     fmt.Sprintf("tecnico%d@reparafacil.com", i+1),
			Password:  adminPassword,
			FirstName: seedTechnicianFirstNames[i],
			LastName:  seedTechnicianLastNames[i],
			Phone:     s.phone(),
		}, domain.UserRoleTechnician)
		if err != nil {
			return nil, fmt.Errorf("create technician: %w", err)
		}
		result.Users++
		result.Technicians = append(result.Technicians, tech.FullName())
	}

	for i := 0; i < tickets; i++ {
		if err := s.seedTicket(ctx, result.Technicians); err != nil {
			return nil, fmt.Errorf("create ticket %d: %w", i+1, err)
		}
		result.Tickets++
	}

	s.logger.Info("seed completed", zap.Int("users", result.Users), zap.Int("tickets", result.Tickets))
	return result, nil
}

func (s *SeedService) seedTicket(ctx context.Context, technicians []string) error {
	first := s.pick(seedCustomerFirstNames)
	last := s.pick(seedCustomerLastNames)
	deviceType := s.pick(domain.DeviceTypes)
	brand, model, problem := s.device(deviceType)

	ticket, err := s.lifecycle.Create(ctx, TicketCreateInput{
		CustomerName:       first + " " + last,
		Phone:              s.phone(),
		Email:              fmt.Sprintf("%s.%s%d@correo.cl", first, last, s.rnd.Intn(1000)),
		DeviceType:         deviceType,
		Brand:              brand,
		Model:              model,
		ProblemDescription: problem,
		ScheduledAt:        s.lifecycle.Now().Add(time.Duration(s.rnd.Intn(14*24)) * time.Hour),
	})
	if err != nil {
		return err
	}

	estimated := float64(15000 + s.rnd.Intn(135000))
	priority := string(domain.RepairPriorities[s.rnd.Intn(len(domain.RepairPriorities))])
	warranty := 30 + s.rnd.Intn(91)
	update := TicketUpdateInput{EstimatedCost: &estimated, Priority: &priority, WarrantyDays: &warranty}

	status := domain.RepairStatuses[s.rnd.Intn(len(domain.RepairStatuses))]
	if status != domain.RepairStatusScheduled && status != domain.RepairStatusCancelled && len(technicians) > 0 {
		technician := s.pick(technicians)
		update.Technician = &technician
	}
	if status == domain.RepairStatusCompleted || status == domain.RepairStatusDelivered {
		final := estimated * (0.8 + s.rnd.Float64()*0.4)
		update.FinalCost = &final
	}
	if _, err := s.lifecycle.Update(ctx, ticket.ID, update); err != nil {
		return err
	}

	// walk through IN_REPAIR so start and end times are both recorded
	if status == domain.RepairStatusCompleted || status == domain.RepairStatusDelivered {
		if _, err := s.lifecycle.ChangeStatus(ctx, ticket.ID, string(domain.RepairStatusInRepair)); err != nil {
			return err
		}
	}
	if status != domain.RepairStatusScheduled {
		if _, err := s.lifecycle.ChangeStatus(ctx, ticket.ID, string(status)); err != nil {
			return err
		}
	}
	return nil
}

func (s *SeedService) device(deviceType string) (brand, model, problem string) {
	brand = "Genérico"
	if brands, ok := seedBrands[deviceType]; ok {
		brand = s.pick(brands)
	}
	model = fmt.Sprintf("%s %d", brand, 10+s.rnd.Intn(20))
	problem = "Falla general del dispositivo"
	if problems, ok := seedProblems[deviceType]; ok {
		problem = s.pick(problems)
	}
	return brand, model, problem
}

func (s *SeedService) phone() string {
	return fmt.Sprintf("+569%08d", 10000000+s.rnd.Intn(90000000))
}

func (s *SeedService) pick(values []string) string {
	return values[s.rnd.Intn(len(values))]
}
