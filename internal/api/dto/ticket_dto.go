package dto

import (
	"net/url"
	"time"

	"github.com/reparafacil/repair-service/internal/domain"
	"github.com/reparafacil/repair-service/internal/service"
)

// CreateTicketRequest is the public intake form.
type CreateTicketRequest struct {
	CustomerName       string    `json:"nombreCliente" validate:"required,notblank,max=100"`
	Phone              string    `json:"telefono" validate:"required,notblank,max=20"`
	Email              string    `json:"email" validate:"required,notblank,email,max=100"`
	DeviceType         string    `json:"tipoDispositivo" validate:"required,notblank,max=50"`
	Brand              string    `json:"marca" validate:"required,notblank,max=50"`
	Model              string    `json:"modelo" validate:"required,notblank,max=100"`
	ProblemDescription string    `json:"descripcionProblema" validate:"required,notblank,max=1000"`
	ScheduledAt        *DateTime `json:"fechaAgendada" validate:"required"`
}

// ToInput converts the payload for the lifecycle service.
func (r CreateTicketRequest) ToInput() service.TicketCreateInput {
	input := service.TicketCreateInput{
		CustomerName:       r.CustomerName,
		Phone:              r.Phone,
		Email:              r.Email,
		DeviceType:         r.DeviceType,
		Brand:              r.Brand,
		Model:              r.Model,
		ProblemDescription: r.ProblemDescription,
	}
	if r.ScheduledAt != nil {
		input.ScheduledAt = r.ScheduledAt.Time
	}
	return input
}

// UpdateTicketRequest carries a partial edit; absent fields are left alone.
type UpdateTicketRequest struct {
	CustomerName       *string   `json:"nombreCliente" validate:"omitempty,min=1,max=100"`
	Phone              *string   `json:"telefono" validate:"omitempty,min=1,max=20"`
	Email              *string   `json:"email" validate:"omitempty,email,max=100"`
	DeviceType         *string   `json:"tipoDispositivo" validate:"omitempty,min=1,max=50"`
	Brand              *string   `json:"marca" validate:"omitempty,min=1,max=50"`
	Model              *string   `json:"modelo" validate:"omitempty,min=1,max=100"`
	ProblemDescription *string   `json:"descripcionProblema" validate:"omitempty,min=1,max=1000"`
	ScheduledAt        *DateTime `json:"fechaAgendada"`
	Technician         *string   `json:"tecnicoAsignado" validate:"omitempty,max=100"`
	EstimatedCost      *float64  `json:"costoEstimado" validate:"omitempty,gte=0"`
	FinalCost          *float64  `json:"costoFinal" validate:"omitempty,gte=0"`
	Notes              *string   `json:"observaciones" validate:"omitempty,max=500"`
	Priority           *string   `json:"prioridad"`
	WarrantyDays       *int      `json:"garantiaDias" validate:"omitempty,gte=0"`
}

// ToInput converts the payload for the lifecycle service.
func (r UpdateTicketRequest) ToInput() service.TicketUpdateInput {
	input := service.TicketUpdateInput{
		CustomerName:       r.CustomerName,
		Phone:              r.Phone,
		Email:              r.Email,
		DeviceType:         r.DeviceType,
		Brand:              r.Brand,
		Model:              r.Model,
		ProblemDescription: r.ProblemDescription,
		Technician:         r.Technician,
		EstimatedCost:      r.EstimatedCost,
		FinalCost:          r.FinalCost,
		Notes:              r.Notes,
		Priority:           r.Priority,
		WarrantyDays:       r.WarrantyDays,
	}
	if r.ScheduledAt != nil {
		scheduled := r.ScheduledAt.Time
		input.ScheduledAt = &scheduled
	}
	return input
}

// ChangeStatusRequest moves a ticket to another status.
type ChangeStatusRequest struct {
	Status string `json:"estado" validate:"required"`
}

// AssignTechnicianRequest sets or clears the technician.
type AssignTechnicianRequest struct {
	Technician string `json:"tecnico" validate:"max=100"`
}

// Link is a hypermedia reference.
type Link struct {
	Href string `json:"href"`
}

// TicketResponse is the public view of a repair ticket.
type TicketResponse struct {
	ID                 string          `json:"id"`
	CustomerName       string          `json:"nombreCliente"`
	Phone              string          `json:"telefono"`
	Email              string          `json:"email"`
	DeviceType         string          `json:"tipoDispositivo"`
	Brand              string          `json:"marca"`
	Model              string          `json:"modelo"`
	ProblemDescription string          `json:"descripcionProblema"`
	ScheduledAt        time.Time       `json:"fechaAgendada"`
	CreatedAt          time.Time       `json:"fechaCreacion"`
	Status             string          `json:"estado"`
	StatusDescription  string          `json:"estadoDescripcion"`
	Technician         *string         `json:"tecnicoAsignado"`
	EstimatedCost      *float64        `json:"costoEstimado"`
	FinalCost          *float64        `json:"costoFinal"`
	Notes              *string         `json:"observaciones"`
	RepairStartedAt    *time.Time      `json:"fechaInicioReparacion"`
	RepairEndedAt      *time.Time      `json:"fechaFinReparacion"`
	Priority           string          `json:"prioridad"`
	WarrantyDays       int             `json:"garantiaDias"`
	Active             bool            `json:"activo"`
	DaysElapsed        int64           `json:"diasTranscurridos"`
	Links              map[string]Link `json:"_links"`
}

// NewTicketResponse renders a ticket; basePath is the collection URL.
func NewTicketResponse(ticket *domain.RepairTicket, now time.Time, basePath string) TicketResponse {
	self := basePath + "/" + ticket.ID
	return TicketResponse{
		ID:                 ticket.ID,
		CustomerName:       ticket.CustomerName,
		Phone:              ticket.Phone,
		Email:              ticket.Email,
		DeviceType:         ticket.DeviceType,
		Brand:              ticket.Brand,
		Model:              ticket.Model,
		ProblemDescription: ticket.ProblemDescription,
		ScheduledAt:        ticket.ScheduledAt,
		CreatedAt:          ticket.CreatedAt,
		Status:             string(ticket.Status),
		StatusDescription:  ticket.Status.Description(),
		Technician:         ticket.Technician,
		EstimatedCost:      ticket.EstimatedCost,
		FinalCost:          ticket.FinalCost,
		Notes:              ticket.Notes,
		RepairStartedAt:    ticket.RepairStartedAt,
		RepairEndedAt:      ticket.RepairEndedAt,
		Priority:           string(ticket.Priority),
		WarrantyDays:       ticket.WarrantyDays,
		Active:             ticket.Active,
		DaysElapsed:        ticket.DaysElapsed(now),
		Links: map[string]Link{
			"self":         {Href: self},
			"estado":       {Href: self + "/estado"},
			"tecnico":      {Href: self + "/tecnico"},
			"historial":    {Href: self + "/historial"},
			"cliente":      {Href: basePath + "/cliente/" + url.PathEscape(ticket.Email)},
			"reparaciones": {Href: basePath},
		},
	}
}

// NewTicketResponses renders a list of tickets.
func NewTicketResponses(tickets []domain.RepairTicket, now time.Time, basePath string) []TicketResponse {
	items := make([]TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, NewTicketResponse(&tickets[i], now, basePath))
	}
	return items
}

// CountResponse wraps a single count.
type CountResponse struct {
	Count int64 `json:"count"`
}

// HistoryEntryResponse is one audit trail entry of a ticket.
type HistoryEntryResponse struct {
	ID            string         `json:"id"`
	ChangeType    string         `json:"tipoCambio"`
	ChangedBy     *string        `json:"usuario"`
	PreviousValue map[string]any `json:"valorAnterior,omitempty"`
	NewValue      map[string]any `json:"valorNuevo,omitempty"`
	Date          time.Time      `json:"fecha"`
}

// NewHistoryResponses renders a ticket trail.
func NewHistoryResponses(entries []domain.TicketHistory) []HistoryEntryResponse {
	items := make([]HistoryEntryResponse, 0, len(entries))
	for _, entry := range entries {
		items = append(items, HistoryEntryResponse{
			ID:            entry.ID,
			ChangeType:    string(entry.ChangeType),
			ChangedBy:     entry.ChangedBy,
			PreviousValue: entry.OldValue,
			NewValue:      entry.NewValue,
			Date:          entry.CreatedAt,
		})
	}
	return items
}
