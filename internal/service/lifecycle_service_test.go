package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reparafacil/repair-service/internal/domain"
	"github.com/reparafacil/repair-service/internal/events"
	"github.com/reparafacil/repair-service/internal/repository"
	"github.com/reparafacil/repair-service/pkg/util/errorutil"
)

var t0 = time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)

func newLifecycleFixture(t *testing.T) (*LifecycleService, *QueryService, *repository.MemoryTicketRepository, *fakeClock) {
	t.Helper()
	repo := repository.NewMemoryTicketRepository()
	clock := newFakeClock(t0)
	lifecycle := NewLifecycleService(LifecycleDependencies{TicketRepo: repo, Clock: clock.Now})
	query := NewQueryService(QueryDependencies{TicketRepo: repo})
	return lifecycle, query, repo, clock
}

func sampleInput() TicketCreateInput {
	return TicketCreateInput{
		CustomerName:       "Juan Pérez",
		Phone:              "+56912345678",
		Email:              "juan@x.com",
		DeviceType:         "Smartphone",
		Brand:              "Samsung",
		Model:              "Galaxy S21",
		ProblemDescription: "Screen cracked",
		ScheduledAt:        time.Date(2024, 1, 20, 10, 0, 0, 0, time.UTC),
	}
}

func TestCreateAppliesDefaults(t *testing.T) {
	lifecycle, _, _, _ := newLifecycleFixture(t)

	ticket, err := lifecycle.Create(context.Background(), sampleInput())
	require.NoError(t, err)

	assert.NotEmpty(t, ticket.ID)
	assert.Equal(t, domain.RepairStatusScheduled, ticket.Status)
	assert.Equal(t, domain.RepairPriorityNormal, ticket.Priority)
	assert.True(t, ticket.Active)
	assert.Equal(t, t0, ticket.CreatedAt)
	assert.Equal(t, domain.DefaultWarrantyDays, ticket.WarrantyDays)
	assert.Nil(t, ticket.RepairStartedAt)
	assert.Nil(t, ticket.RepairEndedAt)
}

func TestCreateRejectsBlankFields(t *testing.T) {
	lifecycle, _, _, _ := newLifecycleFixture(t)

	input := sampleInput()
	input.CustomerName = "   "
	input.ScheduledAt = time.Time{}
	_, err := lifecycle.Create(context.Background(), input)
	require.Error(t, err)
	assert.True(t, errorutil.HasCode(err, errorutil.CodeValidation))

	details := errorutil.ToDomainError(err).Details
	assert.Contains(t, details, "nombreCliente")
	assert.Contains(t, details, "fechaAgendada")
	assert.NotContains(t, details, "email")

	tickets, err := lifecycle.ListActive(context.Background())
	require.NoError(t, err)
	assert.Empty(t, tickets)
}

func TestChangeStatusRepairStartIsSetOnce(t *testing.T) {
	lifecycle, _, _, clock := newLifecycleFixture(t)
	ctx := context.Background()
	ticket, err := lifecycle.Create(ctx, sampleInput())
	require.NoError(t, err)

	t1 := clock.Advance(time.Hour)
	updated, err := lifecycle.ChangeStatus(ctx, ticket.ID, "IN_REPAIR")
	require.NoError(t, err)
	require.NotNil(t, updated.RepairStartedAt)
	assert.Equal(t, t1, *updated.RepairStartedAt)

	clock.Advance(time.Hour)
	updated, err = lifecycle.ChangeStatus(ctx, ticket.ID, "in_repair")
	require.NoError(t, err)
	assert.Equal(t, t1, *updated.RepairStartedAt)

	stored, err := lifecycle.Get(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, t1, *stored.RepairStartedAt)
}

func TestChangeStatusCompletionAlwaysOverwritesEnd(t *testing.T) {
	lifecycle, _, _, clock := newLifecycleFixture(t)
	ctx := context.Background()
	ticket, err := lifecycle.Create(ctx, sampleInput())
	require.NoError(t, err)

	first := clock.Advance(time.Hour)
	updated, err := lifecycle.ChangeStatus(ctx, ticket.ID, "COMPLETED")
	require.NoError(t, err)
	assert.Equal(t, first, *updated.RepairEndedAt)

	second := clock.Advance(time.Hour)
	updated, err = lifecycle.ChangeStatus(ctx, ticket.ID, "COMPLETED")
	require.NoError(t, err)
	assert.Equal(t, second, *updated.RepairEndedAt)
}

func TestChangeStatusDeliveredKeepsExistingEnd(t *testing.T) {
	lifecycle, _, _, clock := newLifecycleFixture(t)
	ctx := context.Background()

	t.Run("end already set", func(t *testing.T) {
		ticket, err := lifecycle.Create(ctx, sampleInput())
		require.NoError(t, err)
		completedAt := clock.Advance(time.Hour)
		_, err = lifecycle.ChangeStatus(ctx, ticket.ID, "COMPLETED")
		require.NoError(t, err)

		clock.Advance(time.Hour)
		delivered, err := lifecycle.ChangeStatus(ctx, ticket.ID, "DELIVERED")
		require.NoError(t, err)
		assert.Equal(t, completedAt, *delivered.RepairEndedAt)
	})

	t.Run("end not set", func(t *testing.T) {
		ticket, err := lifecycle.Create(ctx, sampleInput())
		require.NoError(t, err)
		deliveredAt := clock.Advance(time.Hour)
		delivered, err := lifecycle.ChangeStatus(ctx, ticket.ID, "ENTREGADO")
		require.NoError(t, err)
		assert.Equal(t, domain.RepairStatusDelivered, delivered.Status)
		assert.Equal(t, deliveredAt, *delivered.RepairEndedAt)
	})
}

func TestChangeStatusWithoutSideEffects(t *testing.T) {
	lifecycle, _, _, clock := newLifecycleFixture(t)
	ctx := context.Background()
	ticket, err := lifecycle.Create(ctx, sampleInput())
	require.NoError(t, err)

	for _, status := range []string{"UNDER_REVIEW", "AWAITING_PARTS", "CANCELLED", "UNDER_WARRANTY"} {
		clock.Advance(time.Minute)
		updated, err := lifecycle.ChangeStatus(ctx, ticket.ID, status)
		require.NoError(t, err)
		assert.Equal(t, domain.RepairStatus(status), updated.Status)
		assert.Nil(t, updated.RepairStartedAt)
		assert.Nil(t, updated.RepairEndedAt)
	}
}

func TestChangeStatusAllowsAnyTransition(t *testing.T) {
	lifecycle, _, _, _ := newLifecycleFixture(t)
	ctx := context.Background()
	ticket, err := lifecycle.Create(ctx, sampleInput())
	require.NoError(t, err)

	_, err = lifecycle.ChangeStatus(ctx, ticket.ID, "CANCELLED")
	require.NoError(t, err)
	updated, err := lifecycle.ChangeStatus(ctx, ticket.ID, "IN_REPAIR")
	require.NoError(t, err)
	assert.Equal(t, domain.RepairStatusInRepair, updated.Status)
}

func TestChangeStatusErrors(t *testing.T) {
	lifecycle, _, _, _ := newLifecycleFixture(t)
	ctx := context.Background()
	ticket, err := lifecycle.Create(ctx, sampleInput())
	require.NoError(t, err)

	_, err = lifecycle.ChangeStatus(ctx, ticket.ID, "NOT_A_STATUS")
	require.Error(t, err)
	assert.True(t, errorutil.HasCode(err, errorutil.CodeInvalidStatus))
	assert.Contains(t, err.Error(), "NOT_A_STATUS")

	stored, err := lifecycle.Get(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RepairStatusScheduled, stored.Status)

	_, err = lifecycle.ChangeStatus(ctx, "missing", "IN_REPAIR")
	assert.True(t, errorutil.HasCode(err, errorutil.CodeNotFound))

	require.NoError(t, lifecycle.SoftDelete(ctx, ticket.ID))
	_, err = lifecycle.ChangeStatus(ctx, ticket.ID, "IN_REPAIR")
	assert.True(t, errorutil.HasCode(err, errorutil.CodeNotFound))
}

func TestUpdateOverwritesOnlySuppliedFields(t *testing.T) {
	lifecycle, _, _, _ := newLifecycleFixture(t)
	ctx := context.Background()
	ticket, err := lifecycle.Create(ctx, sampleInput())
	require.NoError(t, err)
	_, err = lifecycle.ChangeStatus(ctx, ticket.ID, "IN_REPAIR")
	require.NoError(t, err)

	brand := "Apple"
	cost := 45000.0
	tech := "  Carlos  "
	priority := "alta"
	updated, err := lifecycle.Update(ctx, ticket.ID, TicketUpdateInput{
		Brand:         &brand,
		EstimatedCost: &cost,
		Technician:    &tech,
		Priority:      &priority,
	})
	require.NoError(t, err)

	assert.Equal(t, "Apple", updated.Brand)
	assert.Equal(t, "Galaxy S21", updated.Model)
	assert.Equal(t, "Juan Pérez", updated.CustomerName)
	assert.Equal(t, 45000.0, *updated.EstimatedCost)
	assert.Equal(t, "Carlos", updated.TechnicianName())
	assert.Equal(t, domain.RepairPriorityHigh, updated.Priority)
	assert.Equal(t, domain.RepairStatusInRepair, updated.Status)
	assert.Equal(t, t0, updated.CreatedAt)
	assert.Equal(t, ticket.ID, updated.ID)
}

func TestUpdateRejectsInvalidPriority(t *testing.T) {
	lifecycle, _, _, _ := newLifecycleFixture(t)
	ctx := context.Background()
	ticket, err := lifecycle.Create(ctx, sampleInput())
	require.NoError(t, err)

	bad := "CRITICAL"
	model := "Galaxy S22"
	_, err = lifecycle.Update(ctx, ticket.ID, TicketUpdateInput{Priority: &bad, Model: &model})
	assert.True(t, errorutil.HasCode(err, errorutil.CodeInvalidEnum))

	stored, err := lifecycle.Get(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, "Galaxy S21", stored.Model)
}

func TestAssignTechnicianClearsOnBlank(t *testing.T) {
	lifecycle, _, _, _ := newLifecycleFixture(t)
	ctx := context.Background()
	ticket, err := lifecycle.Create(ctx, sampleInput())
	require.NoError(t, err)

	assigned, err := lifecycle.AssignTechnician(ctx, ticket.ID, "María")
	require.NoError(t, err)
	assert.Equal(t, "María", assigned.TechnicianName())

	cleared, err := lifecycle.AssignTechnician(ctx, ticket.ID, "   ")
	require.NoError(t, err)
	assert.Nil(t, cleared.Technician)
}

func TestSoftDeleteAndRestore(t *testing.T) {
	lifecycle, query, repo, _ := newLifecycleFixture(t)
	ctx := context.Background()
	ticket, err := lifecycle.Create(ctx, sampleInput())
	require.NoError(t, err)

	require.NoError(t, lifecycle.SoftDelete(ctx, ticket.ID))

	active, err := lifecycle.ListActive(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)

	found, err := query.Search(ctx, "Samsung")
	require.NoError(t, err)
	assert.Empty(t, found)

	stats, err := query.Statistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.TotalServices)

	all, err := repo.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.False(t, all[0].Active)

	deleted, err := lifecycle.ListDeleted(ctx)
	require.NoError(t, err)
	require.Len(t, deleted, 1)

	_, err = lifecycle.Get(ctx, ticket.ID)
	assert.True(t, errorutil.HasCode(err, errorutil.CodeNotFound))

	restored, err := lifecycle.Restore(ctx, ticket.ID)
	require.NoError(t, err)
	assert.True(t, restored.Active)

	active, err = lifecycle.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, ticket.ID, active[0].ID)
}

func TestSoftDeleteAndRestoreUnknownTicket(t *testing.T) {
	lifecycle, _, _, _ := newLifecycleFixture(t)
	ctx := context.Background()

	err := lifecycle.SoftDelete(ctx, "missing")
	assert.True(t, errorutil.HasCode(err, errorutil.CodeNotFound))

	_, err = lifecycle.Restore(ctx, "missing")
	assert.True(t, errorutil.HasCode(err, errorutil.CodeNotFound))
}

func TestRepairScenario(t *testing.T) {
	lifecycle, _, _, clock := newLifecycleFixture(t)
	ctx := context.Background()

	ticket, err := lifecycle.Create(ctx, sampleInput())
	require.NoError(t, err)
	assert.Equal(t, domain.RepairStatusScheduled, ticket.Status)

	clock.Advance(time.Hour)
	ticket, err = lifecycle.ChangeStatus(ctx, ticket.ID, "EN_REPARACION")
	require.NoError(t, err)
	assert.Equal(t, domain.RepairStatusInRepair, ticket.Status)
	assert.NotNil(t, ticket.RepairStartedAt)

	clock.Advance(time.Hour)
	ticket, err = lifecycle.ChangeStatus(ctx, ticket.ID, "COMPLETED")
	require.NoError(t, err)
	assert.Equal(t, domain.RepairStatusCompleted, ticket.Status)
	assert.NotNil(t, ticket.RepairEndedAt)

	require.NoError(t, lifecycle.SoftDelete(ctx, ticket.ID))
	active, err := lifecycle.ListActive(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestMutationsPublishEvents(t *testing.T) {
	repo := repository.NewMemoryTicketRepository()
	dispatcher := events.NewInMemoryDispatcher(nil)
	var received []events.EventType
	for _, eventType := range events.TicketEventTypes {
		dispatcher.Subscribe(eventType, func(_ context.Context, e events.Event) error {
			received = append(received, e.Type)
			return nil
		})
	}
	lifecycle := NewLifecycleService(LifecycleDependencies{TicketRepo: repo, Dispatcher: dispatcher})
	ctx := context.Background()

	ticket, err := lifecycle.Create(ctx, sampleInput())
	require.NoError(t, err)
	_, err = lifecycle.ChangeStatus(ctx, ticket.ID, "UNDER_REVIEW")
	require.NoError(t, err)
	_, err = lifecycle.AssignTechnician(ctx, ticket.ID, "Ana")
	require.NoError(t, err)
	require.NoError(t, lifecycle.SoftDelete(ctx, ticket.ID))
	_, err = lifecycle.Restore(ctx, ticket.ID)
	require.NoError(t, err)

	assert.Equal(t, []events.EventType{
		events.EventTicketCreated,
		events.EventTicketStatusChanged,
		events.EventTicketUpdated,
		events.EventTicketDeleted,
		events.EventTicketRestored,
	}, received)
}

type failingTicketRepo struct {
	repository.TicketRepository
	err error
}

func (f failingTicketRepo) Create(context.Context, *domain.RepairTicket) error { return f.err }

func (f failingTicketRepo) GetByID(context.Context, string) (*domain.RepairTicket, error) {
	return nil, f.err
}

func TestStoreFailuresSurfaceAsStorageError(t *testing.T) {
	cause := errors.New("connection refused")
	lifecycle := NewLifecycleService(LifecycleDependencies{TicketRepo: failingTicketRepo{err: cause}})
	ctx := context.Background()

	_, err := lifecycle.Create(ctx, sampleInput())
	assert.True(t, errorutil.HasCode(err, errorutil.CodeStorage))
	assert.ErrorIs(t, err, cause)

	_, err = lifecycle.ChangeStatus(ctx, "id", "IN_REPAIR")
	assert.True(t, errorutil.HasCode(err, errorutil.CodeStorage))
}
