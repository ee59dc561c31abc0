package schedule

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreCreateFillsRecord(t *testing.T) {
	store := NewMemoryStore()
	appt := seedAppointment(t, store, "a@example.com", "Smith", time.Date(2026, 3, 3, 10, 0, 0, 0, time.UTC))

	assert.NotZero(t, appt.ID)
	assert.Equal(t, StatusScheduled, appt.Status)
	assert.False(t, appt.CreatedAt.IsZero())
}

func TestMemoryStoreRejectsDoubleBooking(t *testing.T) {
	store := NewMemoryStore()
	at := time.Date(2026, 3, 3, 10, 0, 0, 0, time.UTC)
	seedAppointment(t, store, "a@example.com", "Smith", at)

	doctorClash := Appointment{UserEmail: "b@example.com", DoctorName: "Smith", ScheduledTime: at}
	assert.ErrorIs(t, store.CreateAppointment(context.Background(), &doctorClash), ErrDoctorSlotTaken)

	userClash := Appointment{UserEmail: "a@example.com", DoctorName: "Jones", ScheduledTime: at}
	assert.ErrorIs(t, store.CreateAppointment(context.Background(), &userClash), ErrUserSlotTaken)
}

func TestMemoryStoreTombstoneFreesSlot(t *testing.T) {
	store := NewMemoryStore()
	at := time.Date(2026, 3, 3, 10, 0, 0, 0, time.UTC)
	appt := seedAppointment(t, store, "a@example.com", "Smith", at)

	require.NoError(t, store.TombstoneAppointment(context.Background(), appt.ID))

	// Tombstoned rows stay readable by ID for audit.
	row, err := store.GetAppointment(context.Background(), appt.ID)
	require.NoError(t, err)
	assert.True(t, row.IsDeleted)
	assert.Equal(t, StatusCancelled, row.Status)

	// Same slot can be booked again.
	rebook := Appointment{UserEmail: "a@example.com", DoctorName: "Smith", ScheduledTime: at}
	assert.NoError(t, store.CreateAppointment(context.Background(), &rebook))
}

func TestMemoryStoreTombstoneTwiceReturnsNotFound(t *testing.T) {
	store := NewMemoryStore()
	appt := seedAppointment(t, store, "a@example.com", "Smith", time.Date(2026, 3, 3, 10, 0, 0, 0, time.UTC))

	require.NoError(t, store.TombstoneAppointment(context.Background(), appt.ID))
	assert.ErrorIs(t, store.TombstoneAppointment(context.Background(), appt.ID), ErrNotFound)
}

func TestMemoryStoreCompleteTerminalStates(t *testing.T) {
	store := NewMemoryStore()
	appt := seedAppointment(t, store, "a@example.com", "Smith", time.Date(2026, 3, 3, 10, 0, 0, 0, time.UTC))

	require.NoError(t, store.CompleteAppointment(context.Background(), appt.ID))
	assert.ErrorIs(t, store.CompleteAppointment(context.Background(), appt.ID), ErrTerminalState)
	assert.ErrorIs(t, store.CompleteAppointment(context.Background(), 999), ErrNotFound)
}

func TestMemoryStoreFindActiveByUserAndTime(t *testing.T) {
	store := NewMemoryStore()
	at := time.Date(2026, 3, 3, 10, 0, 0, 0, time.UTC)
	appt := seedAppointment(t, store, "a@example.com", "Smith", at)

	found, err := store.FindActiveByUserAndTime(context.Background(), "a@example.com", at)
	require.NoError(t, err)
	assert.Equal(t, appt.ID, found.ID)

	_, err = store.FindActiveByUserAndTime(context.Background(), "b@example.com", at)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreListActiveFiltersAndOrders(t *testing.T) {
	store := NewMemoryStore()
	later := seedAppointment(t, store, "a@example.com", "Smith", time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC))
	earlier := seedAppointment(t, store, "a@example.com", "Jones", time.Date(2026, 3, 3, 10, 0, 0, 0, time.UTC))
	other := seedAppointment(t, store, "b@example.com", "Smith", time.Date(2026, 3, 3, 11, 0, 0, 0, time.UTC))
	cancelled := seedAppointment(t, store, "a@example.com", "Smith", time.Date(2026, 3, 5, 10, 0, 0, 0, time.UTC))
	require.NoError(t, store.TombstoneAppointment(context.Background(), cancelled.ID))

	mine, err := store.ListActive(context.Background(), "a@example.com")
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, earlier.ID, mine[0].ID)
	assert.Equal(t, later.ID, mine[1].ID)

	all, err := store.ListActive(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
	_ = other
}

func TestMemoryStoreUpdateConfirmationRef(t *testing.T) {
	store := NewMemoryStore()
	appt := seedAppointment(t, store, "a@example.com", "Smith", time.Date(2026, 3, 3, 10, 0, 0, 0, time.UTC))

	require.NoError(t, store.UpdateConfirmationRef(context.Background(), appt.ID, "static/images/card.png"))
	row, err := store.GetAppointment(context.Background(), appt.ID)
	require.NoError(t, err)
	assert.Equal(t, "static/images/card.png", row.ConfirmationRef)
}
