package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/reparafacil/repair-service/internal/domain"
)

// MemoryTicketRepository keeps tickets in process memory. It backs tests and
// deployments started without a Postgres DSN.
type MemoryTicketRepository struct {
	mu      sync.RWMutex
	tickets map[string]domain.RepairTicket
	now     func() time.Time
}

// NewMemoryTicketRepository returns an empty in-memory store.
func NewMemoryTicketRepository() *MemoryTicketRepository {
	return &MemoryTicketRepository{
		tickets: make(map[string]domain.RepairTicket),
		now:     time.Now,
	}
}

func (r *MemoryTicketRepository) Create(_ context.Context, ticket *domain.RepairTicket) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ticket.ID = uuid.NewString()
	if ticket.CreatedAt.IsZero() {
		ticket.CreatedAt = r.now()
	}
	r.tickets[ticket.ID] = cloneTicket(*ticket)
	return nil
}

func (r *MemoryTicketRepository) GetByID(_ context.Context, id string) (*domain.RepairTicket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ticket, ok := r.tickets[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := cloneTicket(ticket)
	return &clone, nil
}

func (r *MemoryTicketRepository) Save(_ context.Context, ticket *domain.RepairTicket) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.tickets[ticket.ID]
	if !ok {
		return ErrNotFound
	}
	stored := cloneTicket(*ticket)
	stored.CreatedAt = existing.CreatedAt
	r.tickets[ticket.ID] = stored
	ticket.CreatedAt = existing.CreatedAt
	return nil
}

func (r *MemoryTicketRepository) ListActive(ctx context.Context) ([]domain.RepairTicket, error) {
	return r.FilterBy(ctx, TicketFilter{Scope: ScopeActive})
}

func (r *MemoryTicketRepository) ListAll(ctx context.Context) ([]domain.RepairTicket, error) {
	return r.FilterBy(ctx, TicketFilter{Scope: ScopeAll})
}

func (r *MemoryTicketRepository) FilterBy(_ context.Context, filter TicketFilter) ([]domain.RepairTicket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := []domain.RepairTicket{}
	for _, ticket := range r.tickets {
		if matchesFilter(&ticket, filter) {
			result = append(result, cloneTicket(ticket))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (r *MemoryTicketRepository) Count(_ context.Context, filter TicketFilter) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var count int64
	for _, ticket := range r.tickets {
		if matchesFilter(&ticket, filter) {
			count++
		}
	}
	return count, nil
}

func matchesFilter(ticket *domain.RepairTicket, filter TicketFilter) bool {
	switch filter.Scope {
	case ScopeActive:
		if !ticket.Active {
			return false
		}
	case ScopeInactive:
		if ticket.Active {
			return false
		}
	}
	if filter.Email != nil && ticket.Email != *filter.Email {
		return false
	}
	if filter.Status != nil && ticket.Status != *filter.Status {
		return false
	}
	if filter.DeviceType != nil && ticket.DeviceType != *filter.DeviceType {
		return false
	}
	if filter.Technician != nil && (ticket.Technician == nil || *ticket.Technician != *filter.Technician) {
		return false
	}
	if filter.ScheduledFrom != nil && ticket.ScheduledAt.Before(*filter.ScheduledFrom) {
		return false
	}
	if filter.ScheduledTo != nil && !ticket.ScheduledAt.Before(*filter.ScheduledTo) {
		return false
	}
	return true
}

func cloneTicket(t domain.RepairTicket) domain.RepairTicket {
	t.Technician = clonePtr(t.Technician)
	t.EstimatedCost = clonePtr(t.EstimatedCost)
	t.FinalCost = clonePtr(t.FinalCost)
	t.Notes = clonePtr(t.Notes)
	t.RepairStartedAt = clonePtr(t.RepairStartedAt)
	t.RepairEndedAt = clonePtr(t.RepairEndedAt)
	return t
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
