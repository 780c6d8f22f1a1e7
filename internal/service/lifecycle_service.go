package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/reparafacil/repair-service/internal/domain"
	"github.com/reparafacil/repair-service/internal/events"
	"github.com/reparafacil/repair-service/internal/repository"
	"github.com/reparafacil/repair-service/pkg/util/errorutil"
)

const ticketResource = "repair ticket"

// LifecycleService owns the repair ticket state machine and its side effects.
type LifecycleService struct {
	tickets    repository.TicketRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// LifecycleDependencies bundles collaborators for the lifecycle service.
type LifecycleDependencies struct {
	TicketRepo repository.TicketRepository
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Clock      func() time.Time
}

// TicketCreateInput describes the intake payload.
type TicketCreateInput struct {
	CustomerName       string
	Phone              string
	Email              string
	DeviceType         string
	Brand              string
	Model              string
	ProblemDescription string
	ScheduledAt        time.Time
}

// TicketUpdateInput overwrites only the fields that are set.
type TicketUpdateInput struct {
	CustomerName       *string
	Phone              *string
	Email              *string
	DeviceType         *string
	Brand              *string
	Model              *string
	ProblemDescription *string
	ScheduledAt        *time.Time
	Technician         *string
	EstimatedCost      *float64
	FinalCost          *float64
	Notes              *string
	Priority           *string
	WarrantyDays       *int
}

// NewLifecycleService constructs the service.
func NewLifecycleService(deps LifecycleDependencies) *LifecycleService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &LifecycleService{
		tickets:    deps.TicketRepo,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		now:        clock,
	}
}

// Create registers a new repair request in the SCHEDULED state.
func (s *LifecycleService) Create(ctx context.Context, input TicketCreateInput) (*domain.RepairTicket, error) {
	ticket := &domain.RepairTicket{
		CustomerName:       strings.TrimSpace(input.CustomerName),
		Phone:              strings.TrimSpace(input.Phone),
		Email:              strings.TrimSpace(input.Email),
		DeviceType:         strings.TrimSpace(input.DeviceType),
		Brand:              strings.TrimSpace(input.Brand),
		Model:              strings.TrimSpace(input.Model),
		ProblemDescription: strings.TrimSpace(input.ProblemDescription),
		ScheduledAt:        input.ScheduledAt,
		CreatedAt:          s.now(),
		Status:             domain.RepairStatusScheduled,
		Priority:           domain.RepairPriorityNormal,
		WarrantyDays:       domain.DefaultWarrantyDays,
		Active:             true,
	}
	if details := missingCreateFields(ticket); len(details) > 0 {
		return nil, errorutil.NewValidationError("validation failed", details)
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, errorutil.NewStorageError(err)
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Payload: events.TicketCreatedPayload{
			DeviceType: ticket.DeviceType,
			Status:     ticket.Status,
		},
	})
	return ticket, nil
}

// missingCreateFields reports required intake fields left blank after trimming.
func missingCreateFields(t *domain.RepairTicket) map[string]any {
	details := map[string]any{}
	for field, value := range map[string]string{
		"nombreCliente":       t.CustomerName,
		"telefono":            t.Phone,
		"email":               t.Email,
		"tipoDispositivo":     t.DeviceType,
		"marca":               t.Brand,
		"modelo":              t.Model,
		"descripcionProblema": t.ProblemDescription,
	} {
		if value == "" {
			details[field] = "is required"
		}
	}
	if t.ScheduledAt.IsZero() {
		details["fechaAgendada"] = "is required"
	}
	return details
}

// Get returns an active ticket.
func (s *LifecycleService) Get(ctx context.Context, id string) (*domain.RepairTicket, error) {
	return s.activeTicket(ctx, id)
}

// ListActive returns every ticket that has not been soft-deleted.
func (s *LifecycleService) ListActive(ctx context.Context) ([]domain.RepairTicket, error) {
	tickets, err := s.tickets.ListActive(ctx)
	if err != nil {
		return nil, errorutil.NewStorageError(err)
	}
	return tickets, nil
}

// ListDeleted returns the soft-deleted tickets.
func (s *LifecycleService) ListDeleted(ctx context.Context) ([]domain.RepairTicket, error) {
	tickets, err := s.tickets.FilterBy(ctx, repository.TicketFilter{Scope: repository.ScopeInactive})
	if err != nil {
		return nil, errorutil.NewStorageError(err)
	}
	return tickets, nil
}

// ChangeStatus moves a ticket to any status and stamps the repair timestamps.
// Transitions are not restricted by the current status.
func (s *LifecycleService) ChangeStatus(ctx context.Context, id, statusName string) (*domain.RepairTicket, error) {
	ticket, err := s.activeTicket(ctx, id)
	if err != nil {
		return nil, err
	}
	newStatus, ok := domain.ParseRepairStatus(statusName)
	if !ok {
		return nil, errorutil.NewInvalidStatus(statusName)
	}

	oldStatus := ticket.Status
	ticket.Status = newStatus
	now := s.now()
	switch newStatus {
	case domain.RepairStatusInRepair:
		if ticket.RepairStartedAt == nil {
			ticket.RepairStartedAt = &now
		}
	case domain.RepairStatusCompleted:
		ticket.RepairEndedAt = &now
	case domain.RepairStatusDelivered:
		if ticket.RepairEndedAt == nil {
			ticket.RepairEndedAt = &now
		}
	}

	if err := s.tickets.Save(ctx, ticket); err != nil {
		return nil, storeError(err, ticketResource, id)
	}
	s.logger.Info("ticket status changed",
		zap.String("ticket_id", ticket.ID),
		zap.String("old_status", string(oldStatus)),
		zap.String("new_status", string(newStatus)))
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: ticket.ID,
		Payload: events.TicketStatusChangedPayload{
			OldStatus: oldStatus,
			NewStatus: newStatus,
		},
	})
	return ticket, nil
}

// Update overwrites the supplied fields of an active ticket. Status is left
// untouched; it only moves through ChangeStatus.
func (s *LifecycleService) Update(ctx context.Context, id string, input TicketUpdateInput) (*domain.RepairTicket, error) {
	ticket, err := s.activeTicket(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Priority != nil {
		priority, ok := domain.ParseRepairPriority(*input.Priority)
		if !ok {
			return nil, errorutil.NewInvalidEnum("priority", *input.Priority)
		}
		ticket.Priority = priority
	}
	if input.WarrantyDays != nil {
		if *input.WarrantyDays < 0 {
			return nil, errorutil.NewValidationError("warranty days must not be negative", nil)
		}
		ticket.WarrantyDays = *input.WarrantyDays
	}

	overwrite(&ticket.CustomerName, input.CustomerName)
	overwrite(&ticket.Phone, input.Phone)
	overwrite(&ticket.Email, input.Email)
	overwrite(&ticket.DeviceType, input.DeviceType)
	overwrite(&ticket.Brand, input.Brand)
	overwrite(&ticket.Model, input.Model)
	overwrite(&ticket.ProblemDescription, input.ProblemDescription)
	if input.ScheduledAt != nil {
		ticket.ScheduledAt = *input.ScheduledAt
	}
	if input.Technician != nil {
		ticket.Technician = trimmedPtr(*input.Technician)
	}
	if input.EstimatedCost != nil {
		cost := *input.EstimatedCost
		ticket.EstimatedCost = &cost
	}
	if input.FinalCost != nil {
		cost := *input.FinalCost
		ticket.FinalCost = &cost
	}
	if input.Notes != nil {
		ticket.Notes = trimmedPtr(*input.Notes)
	}

	return s.saveAndPublish(ctx, ticket, events.EventTicketUpdated, events.TicketUpdatedPayload{Fields: input.fields()})
}

// AssignTechnician sets or clears the technician responsible for a ticket.
func (s *LifecycleService) AssignTechnician(ctx context.Context, id, technician string) (*domain.RepairTicket, error) {
	ticket, err := s.activeTicket(ctx, id)
	if err != nil {
		return nil, err
	}
	ticket.Technician = trimmedPtr(technician)
	return s.saveAndPublish(ctx, ticket, events.EventTicketUpdated, events.TicketUpdatedPayload{Fields: []string{"technician"}})
}

// SoftDelete hides a ticket from every default view.
func (s *LifecycleService) SoftDelete(ctx context.Context, id string) error {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		return storeError(err, ticketResource, id)
	}
	ticket.Active = false
	_, err = s.saveAndPublish(ctx, ticket, events.EventTicketDeleted, nil)
	return err
}

// Restore reactivates a soft-deleted ticket.
func (s *LifecycleService) Restore(ctx context.Context, id string) (*domain.RepairTicket, error) {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(err, ticketResource, id)
	}
	ticket.Active = true
	return s.saveAndPublish(ctx, ticket, events.EventTicketRestored, nil)
}

// Now exposes the service clock for derived fields such as elapsed days.
func (s *LifecycleService) Now() time.Time {
	return s.now()
}

func (s *LifecycleService) activeTicket(ctx context.Context, id string) (*domain.RepairTicket, error) {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(err, ticketResource, id)
	}
	if !ticket.Active {
		return nil, errorutil.NewNotFound(ticketResource, map[string]any{"id": id})
	}
	return ticket, nil
}

func (s *LifecycleService) saveAndPublish(ctx context.Context, ticket *domain.RepairTicket, eventType events.EventType, payload any) (*domain.RepairTicket, error) {
	if err := s.tickets.Save(ctx, ticket); err != nil {
		return nil, storeError(err, ticketResource, ticket.ID)
	}
	s.publishEvent(ctx, events.Event{Type: eventType, TicketID: ticket.ID, Payload: payload})
	return ticket, nil
}

func (s *LifecycleService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

// fields names the attributes set on the input, in declaration order.
func (in TicketUpdateInput) fields() []string {
	var fields []string
	add := func(set bool, name string) {
		if set {
			fields = append(fields, name)
		}
	}
	add(in.CustomerName != nil, "customerName")
	add(in.Phone != nil, "phone")
	add(in.Email != nil, "email")
	add(in.DeviceType != nil, "deviceType")
	add(in.Brand != nil, "brand")
	add(in.Model != nil, "model")
	add(in.ProblemDescription != nil, "problemDescription")
	add(in.ScheduledAt != nil, "scheduledAt")
	add(in.Technician != nil, "technician")
	add(in.EstimatedCost != nil, "estimatedCost")
	add(in.FinalCost != nil, "finalCost")
	add(in.Notes != nil, "notes")
	add(in.Priority != nil, "priority")
	add(in.WarrantyDays != nil, "warrantyDays")
	return fields
}

func overwrite(dst *string, src *string) {
	if src != nil {
		*dst = strings.TrimSpace(*src)
	}
}

// trimmedPtr treats blank input as "unset".
func trimmedPtr(val string) *string {
	val = strings.TrimSpace(val)
	if val == "" {
		return nil
	}
	return &val
}
