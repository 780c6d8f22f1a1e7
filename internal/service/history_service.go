package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/reparafacil/repair-service/internal/auth"
	"github.com/reparafacil/repair-service/internal/domain"
	"github.com/reparafacil/repair-service/internal/events"
	"github.com/reparafacil/repair-service/internal/repository"
	"github.com/reparafacil/repair-service/pkg/util/errorutil"
)

var changeTypes = map[events.EventType]domain.TicketChangeType{
	events.EventTicketCreated:       domain.ChangeTypeCreated,
	events.EventTicketStatusChanged: domain.ChangeTypeStatus,
	events.EventTicketUpdated:       domain.ChangeTypeUpdated,
	events.EventTicketDeleted:       domain.ChangeTypeDeleted,
	events.EventTicketRestored:      domain.ChangeTypeRestored,
}

// HistoryService keeps the audit trail of every ticket mutation.
type HistoryService struct {
	history repository.TicketHistoryRepository
	tickets repository.TicketRepository
	logger  *zap.Logger
}

// HistoryDependencies bundles collaborators for the history service.
type HistoryDependencies struct {
	HistoryRepo repository.TicketHistoryRepository
	TicketRepo  repository.TicketRepository
	Logger      *zap.Logger
}

// NewHistoryService constructs the service.
func NewHistoryService(deps HistoryDependencies) *HistoryService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HistoryService{history: deps.HistoryRepo, tickets: deps.TicketRepo, logger: logger}
}

// Subscribe records an entry for every ticket event.
func (s *HistoryService) Subscribe(dispatcher events.Dispatcher) {
	for _, eventType := range events.TicketEventTypes {
		dispatcher.Subscribe(eventType, s.record)
	}
}

func (s *HistoryService) record(ctx context.Context, event events.Event) error {
	entry := &domain.TicketHistory{
		TicketID:   event.TicketID,
		ChangeType: changeTypes[event.Type],
		CreatedAt:  event.Timestamp,
	}
	if actor, ok := auth.ActorFromContext(ctx); ok {
		entry.ChangedBy = &actor
	}

	switch payload := event.Payload.(type) {
	case events.TicketCreatedPayload:
		entry.NewValue = map[string]any{"status": string(payload.Status), "deviceType": payload.DeviceType}
	case events.TicketStatusChangedPayload:
		entry.OldValue = map[string]any{"status": string(payload.OldStatus)}
		entry.NewValue = map[string]any{"status": string(payload.NewStatus)}
	case events.TicketUpdatedPayload:
		entry.NewValue = map[string]any{"fields": payload.Fields}
	}

	if err := s.history.Create(ctx, entry); err != nil {
		s.logger.Warn("failed to record ticket history",
			zap.String("ticket_id", event.TicketID),
			zap.String("event_type", string(event.Type)),
			zap.Error(err))
		return err
	}
	return nil
}

// List returns the trail of a ticket, oldest first. Soft-deleted tickets keep
// their history.
func (s *HistoryService) List(ctx context.Context, ticketID string) ([]domain.TicketHistory, error) {
	if _, err := s.tickets.GetByID(ctx, ticketID); err != nil {
		return nil, storeError(err, ticketResource, ticketID)
	}
	entries, err := s.history.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, errorutil.NewStorageError(err)
	}
	return entries, nil
}
