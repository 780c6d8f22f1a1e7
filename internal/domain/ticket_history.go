package domain

import "time"

// TicketChangeType captures what changed in a history entry.
type TicketChangeType string

const (
	ChangeTypeCreated  TicketChangeType = "CREATED"
	ChangeTypeStatus   TicketChangeType = "STATUS_CHANGE"
	ChangeTypeUpdated  TicketChangeType = "UPDATED"
	ChangeTypeDeleted  TicketChangeType = "DELETED"
	ChangeTypeRestored TicketChangeType = "RESTORED"
)

// TicketHistory is an immutable audit trail entry for a repair ticket.
type TicketHistory struct {
	ID         string
	TicketID   string
	ChangeType TicketChangeType
	// ChangedBy is the username of the caller, nil for anonymous intake.
	ChangedBy *string
	OldValue  map[string]any
	NewValue  map[string]any
	CreatedAt time.Time
}
