package schedule

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type funcGate struct {
	predict func(date, clock string, durationMinutes int) (bool, string)
}

func (g funcGate) Predict(date, clock string, durationMinutes int) (bool, string) {
	return g.predict(date, clock, durationMinutes)
}

func testFinder(store Store, gate RiskGate, now time.Time) *NextSlotFinder {
	validator := NewSlotValidator(time.UTC, 9, 17, fixedClock(now))
	return NewNextSlotFinder(store, gate, validator, 30, 7).WithClock(fixedClock(now))
}

func TestFindAlignsToSlotGrid(t *testing.T) {
	// Tuesday 10:10 rounds up to 10:30.
	now := time.Date(2026, 3, 3, 10, 10, 0, 0, time.UTC)
	result := testFinder(NewMemoryStore(), nil, now).Find(context.Background())

	require.True(t, result.Success, result.Message)
	assert.Contains(t, result.Message, "2026-03-03 10:30")
	assert.Equal(t, "2026-03-03 10:30", result.AppointmentTime)
}

// The slot is a structured field on the result and its payload, not just prose.
func TestFindReturnsStructuredTime(t *testing.T) {
	now := time.Date(2026, 3, 3, 10, 10, 0, 0, time.UTC)
	result := testFinder(NewMemoryStore(), nil, now).Find(context.Background())

	require.True(t, result.Success, result.Message)
	assert.Equal(t, "2026-03-03 10:30", result.Payload()["appointment_time"])
}

func TestFindRollsWeekendToMonday(t *testing.T) {
	// Friday 16:45 rounds to 17:00, past close, so Saturday and Sunday are
	// skipped and Monday opens the search.
	now := time.Date(2026, 3, 6, 16, 45, 0, 0, time.UTC)
	result := testFinder(NewMemoryStore(), nil, now).Find(context.Background())

	require.True(t, result.Success, result.Message)
	assert.Equal(t, "2026-03-09 09:00", result.AppointmentTime)
}

func TestFindJumpsToOpeningBeforeHours(t *testing.T) {
	now := time.Date(2026, 3, 3, 6, 0, 0, 0, time.UTC)
	result := testFinder(NewMemoryStore(), nil, now).Find(context.Background())

	require.True(t, result.Success, result.Message)
	assert.Contains(t, result.Message, "2026-03-03 09:00")
}

func TestFindSkipsBookedSlots(t *testing.T) {
	store := NewMemoryStore()
	seedAppointment(t, store, "a@example.com", "Smith", time.Date(2026, 3, 3, 9, 0, 0, 0, time.UTC))

	now := time.Date(2026, 3, 3, 6, 0, 0, 0, time.UTC)
	result := testFinder(store, nil, now).Find(context.Background())

	require.True(t, result.Success, result.Message)
	assert.Contains(t, result.Message, "2026-03-03 09:30")
}

func TestFindSkipsHighRiskSlots(t *testing.T) {
	gate := funcGate{predict: func(date, clock string, durationMinutes int) (bool, string) {
		if clock == "09:00" {
			return false, "high risk"
		}
		return true, "ok"
	}}

	now := time.Date(2026, 3, 3, 6, 0, 0, 0, time.UTC)
	result := testFinder(NewMemoryStore(), gate, now).Find(context.Background())

	require.True(t, result.Success, result.Message)
	assert.Contains(t, result.Message, "2026-03-03 09:30")
}

func TestFindGivesUpAfterHorizon(t *testing.T) {
	gate := funcGate{predict: func(date, clock string, durationMinutes int) (bool, string) {
		return false, "always risky"
	}}

	now := time.Date(2026, 3, 3, 6, 0, 0, 0, time.UTC)
	result := testFinder(NewMemoryStore(), gate, now).Find(context.Background())

	require.False(t, result.Success)
	assert.Equal(t, KindNoAvailability, result.Error)
	assert.Contains(t, result.Message, "7 days")
}
