package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseRepairStatus(t *testing.T) {
	tests := []struct {
		in   string
		want RepairStatus
		ok   bool
	}{
		{"IN_REPAIR", RepairStatusInRepair, true},
		{"in_repair", RepairStatusInRepair, true},
		{" completed ", RepairStatusCompleted, true},
		{"EN_REPARACION", RepairStatusInRepair, true},
		{"completado", RepairStatusCompleted, true},
		{"en_garantia", RepairStatusUnderWarranty, true},
		{"NOT_A_STATUS", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseRepairStatus(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStatusDescriptions(t *testing.T) {
	want := map[RepairStatus]string{
		RepairStatusScheduled:     "Scheduled - awaiting review",
		RepairStatusUnderReview:   "Under technical review",
		RepairStatusInRepair:      "Repair in progress",
		RepairStatusAwaitingParts: "Awaiting parts",
		RepairStatusCompleted:     "Repair completed",
		RepairStatusDelivered:     "Delivered to customer",
		RepairStatusCancelled:     "Service cancelled",
		RepairStatusUnderWarranty: "Under warranty service",
	}
	assert.Len(t, RepairStatuses, len(want))
	for _, status := range RepairStatuses {
		assert.Equal(t, want[status], status.Description())
	}
}

func TestParseRepairPriority(t *testing.T) {
	p, ok := ParseRepairPriority("urgente")
	assert.True(t, ok)
	assert.Equal(t, RepairPriorityUrgent, p)

	_, ok = ParseRepairPriority("CRITICAL")
	assert.False(t, ok)
}

func TestDaysElapsed(t *testing.T) {
	now := time.Date(2024, 1, 20, 12, 0, 0, 0, time.UTC)

	ticket := &RepairTicket{}
	assert.Equal(t, int64(0), ticket.DaysElapsed(now))

	ticket.CreatedAt = now.Add(-71 * time.Hour)
	assert.Equal(t, int64(2), ticket.DaysElapsed(now))

	ticket.CreatedAt = now.Add(72 * time.Hour)
	assert.Equal(t, int64(0), ticket.DaysElapsed(now))
}

func TestParseUserRole(t *testing.T) {
	role, ok := ParseUserRole("emprendedor")
	assert.True(t, ok)
	assert.Equal(t, UserRoleTechnician, role)

	_, ok = ParseUserRole("ROOT")
	assert.False(t, ok)
}
