package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/reparafacil/repair-service/internal/auth"
	"github.com/reparafacil/repair-service/internal/domain"
	"github.com/reparafacil/repair-service/internal/events"
	"github.com/reparafacil/repair-service/internal/repository"
	"github.com/reparafacil/repair-service/pkg/util/errorutil"
)

func newHistoryFixture(t *testing.T) (*LifecycleService, *HistoryService, *fakeClock) {
	t.Helper()
	tickets := repository.NewMemoryTicketRepository()
	clock := newFakeClock(t0)
	dispatcher := events.NewInMemoryDispatcher(zap.NewNop())
	history := NewHistoryService(HistoryDependencies{
		HistoryRepo: repository.NewMemoryTicketHistoryRepository(),
		TicketRepo:  tickets,
	})
	history.Subscribe(dispatcher)
	lifecycle := NewLifecycleService(LifecycleDependencies{TicketRepo: tickets, Dispatcher: dispatcher, Clock: clock.Now})
	return lifecycle, history, clock
}

func TestHistoryRecordsEveryMutation(t *testing.T) {
	lifecycle, history, clock := newHistoryFixture(t)
	ctx := context.Background()

	ticket, err := lifecycle.Create(ctx, sampleInput())
	require.NoError(t, err)

	staff := auth.WithActor(ctx, "carlos")
	clock.Advance(time.Minute)
	_, err = lifecycle.ChangeStatus(staff, ticket.ID, "EN_REPARACION")
	require.NoError(t, err)
	clock.Advance(time.Minute)
	notes := "pantalla pedida"
	_, err = lifecycle.Update(staff, ticket.ID, TicketUpdateInput{Notes: &notes})
	require.NoError(t, err)
	require.NoError(t, lifecycle.SoftDelete(staff, ticket.ID))
	_, err = lifecycle.Restore(staff, ticket.ID)
	require.NoError(t, err)

	entries, err := history.List(ctx, ticket.ID)
	require.NoError(t, err)
	require.Len(t, entries, 5)

	assert.Equal(t, domain.ChangeTypeCreated, entries[0].ChangeType)
	assert.Nil(t, entries[0].ChangedBy)
	assert.Equal(t, "SCHEDULED", entries[0].NewValue["status"])

	assert.Equal(t, domain.ChangeTypeStatus, entries[1].ChangeType)
	require.NotNil(t, entries[1].ChangedBy)
	assert.Equal(t, "carlos", *entries[1].ChangedBy)
	assert.Equal(t, "SCHEDULED", entries[1].OldValue["status"])
	assert.Equal(t, "IN_REPAIR", entries[1].NewValue["status"])
	assert.True(t, entries[1].CreatedAt.Equal(t0.Add(time.Minute)))

	assert.Equal(t, domain.ChangeTypeUpdated, entries[2].ChangeType)
	assert.Equal(t, []string{"notes"}, entries[2].NewValue["fields"])
	assert.Equal(t, domain.ChangeTypeDeleted, entries[3].ChangeType)
	assert.Equal(t, domain.ChangeTypeRestored, entries[4].ChangeType)
}

func TestHistoryOfUnknownTicket(t *testing.T) {
	_, history, _ := newHistoryFixture(t)

	_, err := history.List(context.Background(), "missing")
	assert.True(t, errorutil.HasCode(err, errorutil.CodeNotFound))
}
