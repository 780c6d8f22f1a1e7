package domain

import (
	"strings"
	"time"
)

// RepairStatus enumerates lifecycle states for repair tickets.
type RepairStatus string

const (
	RepairStatusScheduled     RepairStatus = "SCHEDULED"
	RepairStatusUnderReview   RepairStatus = "UNDER_REVIEW"
	RepairStatusInRepair      RepairStatus = "IN_REPAIR"
	RepairStatusAwaitingParts RepairStatus = "AWAITING_PARTS"
	RepairStatusCompleted     RepairStatus = "COMPLETED"
	RepairStatusDelivered     RepairStatus = "DELIVERED"
	RepairStatusCancelled     RepairStatus = "CANCELLED"
	RepairStatusUnderWarranty RepairStatus = "UNDER_WARRANTY"
)

// RepairStatuses lists every status in lifecycle order.
var RepairStatuses = []RepairStatus{
	RepairStatusScheduled,
	RepairStatusUnderReview,
	RepairStatusInRepair,
	RepairStatusAwaitingParts,
	RepairStatusCompleted,
	RepairStatusDelivered,
	RepairStatusCancelled,
	RepairStatusUnderWarranty,
}

var statusDescriptions = map[RepairStatus]string{
	RepairStatusScheduled:     "Scheduled - awaiting review",
	RepairStatusUnderReview:   "Under technical review",
	RepairStatusInRepair:      "Repair in progress",
	RepairStatusAwaitingParts: "Awaiting parts",
	RepairStatusCompleted:     "Repair completed",
	RepairStatusDelivered:     "Delivered to customer",
	RepairStatusCancelled:     "Service cancelled",
	RepairStatusUnderWarranty: "Under warranty service",
}

// legacy names used by the first front end
var statusAliases = map[string]RepairStatus{
	"AGENDADO":            RepairStatusScheduled,
	"EN_REVISION":         RepairStatusUnderReview,
	"EN_REPARACION":       RepairStatusInRepair,
	"ESPERANDO_REPUESTOS": RepairStatusAwaitingParts,
	"COMPLETADO":          RepairStatusCompleted,
	"ENTREGADO":           RepairStatusDelivered,
	"CANCELADO":           RepairStatusCancelled,
	"EN_GARANTIA":         RepairStatusUnderWarranty,
}

// ParseRepairStatus resolves a status name case-insensitively.
func ParseRepairStatus(name string) (RepairStatus, bool) {
	key := strings.ToUpper(strings.TrimSpace(name))
	if _, ok := statusDescriptions[RepairStatus(key)]; ok {
		return RepairStatus(key), true
	}
	status, ok := statusAliases[key]
	return status, ok
}

// Description returns the human readable phrase for the status.
func (s RepairStatus) Description() string {
	if desc, ok := statusDescriptions[s]; ok {
		return desc
	}
	return string(s)
}

// RepairPriority enumerates how urgently a repair should be handled.
type RepairPriority string

const (
	RepairPriorityLow    RepairPriority = "LOW"
	RepairPriorityNormal RepairPriority = "NORMAL"
	RepairPriorityHigh   RepairPriority = "HIGH"
	RepairPriorityUrgent RepairPriority = "URGENT"
)

// RepairPriorities lists priorities from lowest to highest.
var RepairPriorities = []RepairPriority{
	RepairPriorityLow,
	RepairPriorityNormal,
	RepairPriorityHigh,
	RepairPriorityUrgent,
}

var priorityAliases = map[string]RepairPriority{
	"LOW":     RepairPriorityLow,
	"BAJA":    RepairPriorityLow,
	"NORMAL":  RepairPriorityNormal,
	"HIGH":    RepairPriorityHigh,
	"ALTA":    RepairPriorityHigh,
	"URGENT":  RepairPriorityUrgent,
	"URGENTE": RepairPriorityUrgent,
}

// ParseRepairPriority resolves a priority name case-insensitively.
func ParseRepairPriority(name string) (RepairPriority, bool) {
	p, ok := priorityAliases[strings.ToUpper(strings.TrimSpace(name))]
	return p, ok
}

// DefaultWarrantyDays applies when a ticket is created.
const DefaultWarrantyDays = 30

// DeviceTypes lists the device categories offered by the intake form.
var DeviceTypes = []string{
	"Smartphone", "Laptop", "Tablet", "Computador",
	"Smartwatch", "Auriculares", "Consola", "Otro",
}

// RepairTicket is one repair job brought in by a customer.
type RepairTicket struct {
	ID                 string
	CustomerName       string
	Phone              string
	Email              string
	DeviceType         string
	Brand              string
	Model              string
	ProblemDescription string
	ScheduledAt        time.Time
	CreatedAt          time.Time
	Status             RepairStatus
	Priority           RepairPriority
	Technician         *string
	EstimatedCost      *float64
	FinalCost          *float64
	Notes              *string
	RepairStartedAt    *time.Time
	RepairEndedAt      *time.Time
	WarrantyDays       int
	Active             bool
}

// DaysElapsed counts whole days since creation; zero when never persisted.
func (t *RepairTicket) DaysElapsed(now time.Time) int64 {
	if t.CreatedAt.IsZero() {
		return 0
	}
	diff := now.Sub(t.CreatedAt)
	if diff < 0 {
		return 0
	}
	return int64(diff / (24 * time.Hour))
}

// TechnicianName returns the assigned technician or an empty string.
func (t *RepairTicket) TechnicianName() string {
	if t.Technician == nil {
		return ""
	}
	return *t.Technician
}
