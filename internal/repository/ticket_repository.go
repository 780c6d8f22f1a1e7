package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/reparafacil/repair-service/internal/domain"
)

// ErrNotFound is returned when no record matches the requested key.
var ErrNotFound = errors.New("record not found")

// Scope selects tickets by their activity flag.
type Scope int

const (
	// ScopeActive is the default: soft-deleted tickets are hidden.
	ScopeActive Scope = iota
	ScopeInactive
	ScopeAll
)

// TicketFilter captures exact-match attributes for ticket lookups.
type TicketFilter struct {
	Scope         Scope
	Email         *string
	Status        *domain.RepairStatus
	DeviceType    *string
	Technician    *string
	ScheduledFrom *time.Time
	// ScheduledTo is exclusive.
	ScheduledTo *time.Time
}

// TicketRepository is the durable keyed store for repair tickets.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.RepairTicket) error
	GetByID(ctx context.Context, id string) (*domain.RepairTicket, error)
	Save(ctx context.Context, ticket *domain.RepairTicket) error
	ListActive(ctx context.Context) ([]domain.RepairTicket, error)
	ListAll(ctx context.Context) ([]domain.RepairTicket, error)
	FilterBy(ctx context.Context, filter TicketFilter) ([]domain.RepairTicket, error)
	Count(ctx context.Context, filter TicketFilter) (int64, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository returns a Postgres-backed implementation.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, customer_name, phone, email, device_type, brand, model, problem_description,
               scheduled_at, created_at, status, priority, technician, estimated_cost, final_cost,
               notes, repair_started_at, repair_ended_at, warranty_days, active`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.RepairTicket) error {
	const query = `
        INSERT INTO repair_tickets (customer_name, phone, email, device_type, brand, model, problem_description,
            scheduled_at, created_at, status, priority, technician, estimated_cost, final_cost, notes,
            repair_started_at, repair_ended_at, warranty_days, active)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,COALESCE($9, NOW()),$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)
        RETURNING id, created_at`
	var createdAt *time.Time
	if !ticket.CreatedAt.IsZero() {
		createdAt = &ticket.CreatedAt
	}
	return r.pool.QueryRow(ctx, query,
		ticket.CustomerName,
		ticket.Phone,
		ticket.Email,
		ticket.DeviceType,
		ticket.Brand,
		ticket.Model,
		ticket.ProblemDescription,
		ticket.ScheduledAt,
		createdAt,
		ticket.Status,
		ticket.Priority,
		ticket.Technician,
		ticket.EstimatedCost,
		ticket.FinalCost,
		ticket.Notes,
		ticket.RepairStartedAt,
		ticket.RepairEndedAt,
		ticket.WarrantyDays,
		ticket.Active,
	).Scan(&ticket.ID, &ticket.CreatedAt)
}

// Save overwrites every mutable column; id and created_at are never touched.
func (r *ticketRepository) Save(ctx context.Context, ticket *domain.RepairTicket) error {
	const query = `
        UPDATE repair_tickets SET customer_name=$1, phone=$2, email=$3, device_type=$4, brand=$5, model=$6,
            problem_description=$7, scheduled_at=$8, status=$9, priority=$10, technician=$11,
            estimated_cost=$12, final_cost=$13, notes=$14, repair_started_at=$15, repair_ended_at=$16,
            warranty_days=$17, active=$18
        WHERE id=$19`
	cmd, err := r.pool.Exec(ctx, query,
		ticket.CustomerName,
		ticket.Phone,
		ticket.Email,
		ticket.DeviceType,
		ticket.Brand,
		ticket.Model,
		ticket.ProblemDescription,
		ticket.ScheduledAt,
		ticket.Status,
		ticket.Priority,
		ticket.Technician,
		ticket.EstimatedCost,
		ticket.FinalCost,
		ticket.Notes,
		ticket.RepairStartedAt,
		ticket.RepairEndedAt,
		ticket.WarrantyDays,
		ticket.Active,
		ticket.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.RepairTicket, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	query := `SELECT ` + ticketColumns + ` FROM repair_tickets WHERE id=$1`
	rows, err := r.pool.Query(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	tickets, err := scanTickets(rows)
	if err != nil {
		return nil, err
	}
	if len(tickets) == 0 {
		return nil, ErrNotFound
	}
	return &tickets[0], nil
}

func (r *ticketRepository) ListActive(ctx context.Context) ([]domain.RepairTicket, error) {
	return r.FilterBy(ctx, TicketFilter{Scope: ScopeActive})
}

func (r *ticketRepository) ListAll(ctx context.Context) ([]domain.RepairTicket, error) {
	return r.FilterBy(ctx, TicketFilter{Scope: ScopeAll})
}

func (r *ticketRepository) FilterBy(ctx context.Context, filter TicketFilter) ([]domain.RepairTicket, error) {
	where, args := buildTicketWhere(filter)
	query := fmt.Sprintf(`SELECT %s FROM repair_tickets WHERE %s ORDER BY created_at ASC, id ASC`, ticketColumns, where)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) Count(ctx context.Context, filter TicketFilter) (int64, error) {
	where, args := buildTicketWhere(filter)
	var count int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM repair_tickets WHERE `+where, args...).Scan(&count)
	return count, err
}

func buildTicketWhere(filter TicketFilter) (string, []any) {
	clauses := []string{"1=1"}
	args := []any{}

	switch filter.Scope {
	case ScopeActive:
		clauses = append(clauses, "active = TRUE")
	case ScopeInactive:
		clauses = append(clauses, "active = FALSE")
	}
	if filter.Email != nil {
		args = append(args, *filter.Email)
		clauses = append(clauses, fmt.Sprintf("email=$%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		clauses = append(clauses, fmt.Sprintf("status=$%d", len(args)))
	}
	if filter.DeviceType != nil {
		args = append(args, *filter.DeviceType)
		clauses = append(clauses, fmt.Sprintf("device_type=$%d", len(args)))
	}
	if filter.Technician != nil {
		args = append(args, *filter.Technician)
		clauses = append(clauses, fmt.Sprintf("technician=$%d", len(args)))
	}
	if filter.ScheduledFrom != nil {
		args = append(args, *filter.ScheduledFrom)
		clauses = append(clauses, fmt.Sprintf("scheduled_at >= $%d", len(args)))
	}
	if filter.ScheduledTo != nil {
		args = append(args, *filter.ScheduledTo)
		clauses = append(clauses, fmt.Sprintf("scheduled_at < $%d", len(args)))
	}
	return strings.Join(clauses, " AND "), args
}

func scanTickets(rows pgx.Rows) ([]domain.RepairTicket, error) {
	var result []domain.RepairTicket
	for rows.Next() {
		var ticket domain.RepairTicket
		if err := rows.Scan(
			&ticket.ID,
			&ticket.CustomerName,
			&ticket.Phone,
			&ticket.Email,
			&ticket.DeviceType,
			&ticket.Brand,
			&ticket.Model,
			&ticket.ProblemDescription,
			&ticket.ScheduledAt,
			&ticket.CreatedAt,
			&ticket.Status,
			&ticket.Priority,
			&ticket.Technician,
			&ticket.EstimatedCost,
			&ticket.FinalCost,
			&ticket.Notes,
			&ticket.RepairStartedAt,
			&ticket.RepairEndedAt,
			&ticket.WarrantyDays,
			&ticket.Active,
		); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}
