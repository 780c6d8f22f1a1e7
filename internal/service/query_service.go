package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/reparafacil/repair-service/internal/domain"
	"github.com/reparafacil/repair-service/internal/repository"
	"github.com/reparafacil/repair-service/pkg/util/errorutil"
)

const dateLayout = "2006-01-02"

// StatisticsCache stores the last computed statistics snapshot. Invalidate
// bumps the generation; SetIfGeneration stores only while the generation read
// before computing is still current.
type StatisticsCache interface {
	Get(ctx context.Context, dst any) (bool, error)
	Generation(ctx context.Context) (int64, error)
	SetIfGeneration(ctx context.Context, generation int64, value any) (bool, error)
	Invalidate(ctx context.Context) error
}

// QueryService builds read-only views and aggregates over repair tickets.
type QueryService struct {
	tickets repository.TicketRepository
	cache   StatisticsCache
	logger  *zap.Logger
}

// QueryDependencies bundles collaborators for the query service.
type QueryDependencies struct {
	TicketRepo repository.TicketRepository
	StatsCache StatisticsCache
	Logger     *zap.Logger
}

// AdvancedSearch holds optional filters; blank ones are ignored.
type AdvancedSearch struct {
	CustomerName string
	Email        string
	DeviceType   string
	Status       string
	Technician   string
}

// Statistics summarizes active tickets.
type Statistics struct {
	TotalServices    int64            `json:"totalServicios"`
	Scheduled        int64            `json:"serviciosAgendados"`
	InRepair         int64            `json:"serviciosEnReparacion"`
	Completed        int64            `json:"serviciosCompletados"`
	ByDeviceType     map[string]int64 `json:"serviciosPorTipo"`
	TotalTechnicians int              `json:"totalTecnicos"`
}

// DetailedStatistics adds soft-delete counts and full group-bys.
type DetailedStatistics struct {
	TotalServices   int64            `json:"totalServicios"`
	ActiveServices  int64            `json:"serviciosActivos"`
	DeletedServices int64            `json:"serviciosEliminados"`
	ByStatus        map[string]int64 `json:"serviciosPorEstado"`
	ByDeviceType    map[string]int64 `json:"serviciosPorTipo"`
	ByPriority      map[string]int64 `json:"serviciosPorPrioridad"`
	ByTechnician    map[string]int64 `json:"serviciosPorTecnico"`
}

// NewQueryService constructs the service.
func NewQueryService(deps QueryDependencies) *QueryService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QueryService{
		tickets: deps.TicketRepo,
		cache:   deps.StatsCache,
		logger:  logger,
	}
}

func (s *QueryService) FindByEmail(ctx context.Context, email string) ([]domain.RepairTicket, error) {
	return s.filter(ctx, repository.TicketFilter{Email: &email})
}

// FindByStatus returns an empty result for unknown status names.
func (s *QueryService) FindByStatus(ctx context.Context, statusName string) ([]domain.RepairTicket, error) {
	status, ok := domain.ParseRepairStatus(statusName)
	if !ok {
		return []domain.RepairTicket{}, nil
	}
	return s.filter(ctx, repository.TicketFilter{Status: &status})
}

func (s *QueryService) FindByDeviceType(ctx context.Context, deviceType string) ([]domain.RepairTicket, error) {
	return s.filter(ctx, repository.TicketFilter{DeviceType: &deviceType})
}

func (s *QueryService) FindByTechnician(ctx context.Context, technician string) ([]domain.RepairTicket, error) {
	return s.filter(ctx, repository.TicketFilter{Technician: &technician})
}

// FindByTechnicianAndStatus returns an empty result for unknown status names.
func (s *QueryService) FindByTechnicianAndStatus(ctx context.Context, technician, statusName string) ([]domain.RepairTicket, error) {
	status, ok := domain.ParseRepairStatus(statusName)
	if !ok {
		return []domain.RepairTicket{}, nil
	}
	return s.filter(ctx, repository.TicketFilter{Technician: &technician, Status: &status})
}

// FindByDateExact returns tickets scheduled on the given calendar day.
func (s *QueryService) FindByDateExact(ctx context.Context, date string) ([]domain.RepairTicket, error) {
	from, to, err := dayBounds(date, date)
	if err != nil {
		return nil, err
	}
	return s.filter(ctx, repository.TicketFilter{ScheduledFrom: &from, ScheduledTo: &to})
}

// FindByDateRange returns tickets scheduled between both days, inclusive.
func (s *QueryService) FindByDateRange(ctx context.Context, start, end string) ([]domain.RepairTicket, error) {
	from, to, err := dayBounds(start, end)
	if err != nil {
		return nil, err
	}
	return s.filter(ctx, repository.TicketFilter{ScheduledFrom: &from, ScheduledTo: &to})
}

func (s *QueryService) FindByEmailAndDate(ctx context.Context, email, date string) ([]domain.RepairTicket, error) {
	from, to, err := dayBounds(date, date)
	if err != nil {
		return nil, err
	}
	return s.filter(ctx, repository.TicketFilter{Email: &email, ScheduledFrom: &from, ScheduledTo: &to})
}

func (s *QueryService) FindByEmailAndDateRange(ctx context.Context, email, start, end string) ([]domain.RepairTicket, error) {
	from, to, err := dayBounds(start, end)
	if err != nil {
		return nil, err
	}
	return s.filter(ctx, repository.TicketFilter{Email: &email, ScheduledFrom: &from, ScheduledTo: &to})
}

func (s *QueryService) FindByTechnicianAndDateRange(ctx context.Context, technician, start, end string) ([]domain.RepairTicket, error) {
	from, to, err := dayBounds(start, end)
	if err != nil {
		return nil, err
	}
	return s.filter(ctx, repository.TicketFilter{Technician: &technician, ScheduledFrom: &from, ScheduledTo: &to})
}

func (s *QueryService) CountByEmail(ctx context.Context, email string) (int64, error) {
	return s.count(ctx, repository.TicketFilter{Email: &email})
}

func (s *QueryService) CountByTechnician(ctx context.Context, technician string) (int64, error) {
	return s.count(ctx, repository.TicketFilter{Technician: &technician})
}

// Search matches the term against customer name, problem, brand or model.
func (s *QueryService) Search(ctx context.Context, term string) ([]domain.RepairTicket, error) {
	active, err := s.filter(ctx, repository.TicketFilter{})
	if err != nil {
		return nil, err
	}
	needle := strings.ToLower(term)
	result := []domain.RepairTicket{}
	for _, ticket := range active {
		if containsFold(ticket.CustomerName, needle) ||
			containsFold(ticket.ProblemDescription, needle) ||
			containsFold(ticket.Brand, needle) ||
			containsFold(ticket.Model, needle) {
			result = append(result, ticket)
		}
	}
	return result, nil
}

// SearchAdvanced requires every supplied filter to match.
func (s *QueryService) SearchAdvanced(ctx context.Context, search AdvancedSearch) ([]domain.RepairTicket, error) {
	active, err := s.filter(ctx, repository.TicketFilter{})
	if err != nil {
		return nil, err
	}
	result := []domain.RepairTicket{}
	for _, ticket := range active {
		if matchesAdvanced(&ticket, search) {
			result = append(result, ticket)
		}
	}
	return result, nil
}

// Statistics aggregates active tickets, served from cache when available.
// Every figure comes from the same snapshot of the store.
func (s *QueryService) Statistics(ctx context.Context) (*Statistics, error) {
	generation, cacheable := int64(0), false
	if s.cache != nil {
		var cached Statistics
		hit, err := s.cache.Get(ctx, &cached)
		if err != nil {
			s.logger.Warn("statistics cache read failed", zap.Error(err))
		} else if hit {
			return &cached, nil
		}
		if generation, err = s.cache.Generation(ctx); err != nil {
			s.logger.Warn("statistics cache generation read failed", zap.Error(err))
		} else {
			cacheable = true
		}
	}

	active, err := s.filter(ctx, repository.TicketFilter{})
	if err != nil {
		return nil, err
	}
	stats := &Statistics{
		TotalServices: int64(len(active)),
		ByDeviceType:  map[string]int64{},
	}
	technicians := map[string]struct{}{}
	for _, ticket := range active {
		switch ticket.Status {
		case domain.RepairStatusScheduled:
			stats.Scheduled++
		case domain.RepairStatusInRepair:
			stats.InRepair++
		case domain.RepairStatusCompleted:
			stats.Completed++
		}
		stats.ByDeviceType[ticket.DeviceType]++
		if name := ticket.TechnicianName(); strings.TrimSpace(name) != "" {
			technicians[name] = struct{}{}
		}
	}
	stats.TotalTechnicians = len(technicians)

	if cacheable {
		stored, err := s.cache.SetIfGeneration(ctx, generation, stats)
		switch {
		case err != nil:
			s.logger.Warn("statistics cache write failed", zap.Error(err))
		case !stored:
			s.logger.Debug("statistics changed while computing; snapshot not cached")
		}
	}
	return stats, nil
}

// DetailedStatistics groups active tickets by status, type, priority and technician.
func (s *QueryService) DetailedStatistics(ctx context.Context) (*DetailedStatistics, error) {
	all, err := s.filter(ctx, repository.TicketFilter{Scope: repository.ScopeAll})
	if err != nil {
		return nil, err
	}
	stats := &DetailedStatistics{
		TotalServices: int64(len(all)),
		ByStatus:      map[string]int64{},
		ByDeviceType:  map[string]int64{},
		ByPriority:    map[string]int64{},
		ByTechnician:  map[string]int64{},
	}
	for _, ticket := range all {
		if !ticket.Active {
			stats.DeletedServices++
			continue
		}
		stats.ActiveServices++
		stats.ByStatus[string(ticket.Status)]++
		stats.ByDeviceType[ticket.DeviceType]++
		stats.ByPriority[string(ticket.Priority)]++
		if name := ticket.TechnicianName(); strings.TrimSpace(name) != "" {
			stats.ByTechnician[name]++
		}
	}
	return stats, nil
}

func (s *QueryService) filter(ctx context.Context, filter repository.TicketFilter) ([]domain.RepairTicket, error) {
	tickets, err := s.tickets.FilterBy(ctx, filter)
	if err != nil {
		return nil, errorutil.NewStorageError(err)
	}
	if tickets == nil {
		tickets = []domain.RepairTicket{}
	}
	return tickets, nil
}

func (s *QueryService) count(ctx context.Context, filter repository.TicketFilter) (int64, error) {
	n, err := s.tickets.Count(ctx, filter)
	if err != nil {
		return 0, errorutil.NewStorageError(err)
	}
	return n, nil
}

func matchesAdvanced(ticket *domain.RepairTicket, search AdvancedSearch) bool {
	if v := strings.TrimSpace(search.CustomerName); v != "" && !containsFold(ticket.CustomerName, strings.ToLower(v)) {
		return false
	}
	if v := strings.TrimSpace(search.Email); v != "" && !containsFold(ticket.Email, strings.ToLower(v)) {
		return false
	}
	if v := strings.TrimSpace(search.DeviceType); v != "" && !containsFold(ticket.DeviceType, strings.ToLower(v)) {
		return false
	}
	if v := strings.TrimSpace(search.Status); v != "" {
		status, ok := domain.ParseRepairStatus(v)
		if !ok || ticket.Status != status {
			return false
		}
	}
	if v := strings.TrimSpace(search.Technician); v != "" {
		if ticket.Technician == nil || !containsFold(*ticket.Technician, strings.ToLower(v)) {
			return false
		}
	}
	return true
}

func containsFold(haystack, lowerNeedle string) bool {
	return strings.Contains(strings.ToLower(haystack), lowerNeedle)
}

// dayBounds turns two YYYY-MM-DD days into a half-open UTC interval.
func dayBounds(start, end string) (time.Time, time.Time, error) {
	from, err := ParseDate(start)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	last, err := ParseDate(end)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return from, last.AddDate(0, 0, 1), nil
}

// ParseDate parses a plain calendar date.
func ParseDate(value string) (time.Time, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, errorutil.NewInvalidDateFormat(value)
	}
	return t, nil
}

// StatusOption pairs a status code with its description.
type StatusOption struct {
	Code        string `json:"codigo"`
	Description string `json:"descripcion"`
}

// Catalog lists the statuses and device types offered to clients.
func (s *QueryService) Catalog() ([]StatusOption, []string) {
	statuses := make([]StatusOption, 0, len(domain.RepairStatuses))
	for _, status := range domain.RepairStatuses {
		statuses = append(statuses, StatusOption{Code: string(status), Description: status.Description()})
	}
	return statuses, append([]string{}, domain.DeviceTypes...)
}
