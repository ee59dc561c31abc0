package schedule

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubDirectory struct {
	known map[string]bool
	err   error
}

func (d *stubDirectory) Exists(ctx context.Context, name string) (bool, error) {
	if d.err != nil {
		return false, d.err
	}
	return d.known[name], nil
}

type stubGate struct {
	optimal bool
	message string
	calls   int
}

func (g *stubGate) Predict(date, clock string, durationMinutes int) (bool, string) {
	g.calls++
	return g.optimal, g.message
}

type recordingNotifier struct {
	delivered chan string
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{delivered: make(chan string, 4)}
}

func (n *recordingNotifier) Notify(ctx context.Context, recipient, subject, body string) bool {
	n.delivered <- subject
	return true
}

func (n *recordingNotifier) wait(t *testing.T) string {
	t.Helper()
	select {
	case subject := <-n.delivered:
		return subject
	case <-time.After(time.Second):
		t.Fatal("expected a notification")
		return ""
	}
}

type stubConfirmer struct {
	ref string
	err error
}

func (c *stubConfirmer) Generate(ctx context.Context, appt Appointment) (string, error) {
	return c.ref, c.err
}

func testLedger(t *testing.T, store Store, gate RiskGate, notifier Notifier, confirmer ConfirmationGenerator) *Ledger {
	t.Helper()
	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	validator := NewSlotValidator(time.UTC, 9, 17, fixedClock(now))
	directory := &stubDirectory{known: map[string]bool{"Smith": true, "Jones": true}}
	return NewLedger(store, validator, directory, gate, notifier, confirmer, nil)
}

func bookSlot() Slot {
	return Slot{Year: 2026, Month: 3, Day: 3, Hour: 10, Minute: 0}
}

func TestBookSuccess(t *testing.T) {
	store := NewMemoryStore()
	notifier := newRecordingNotifier()
	ledger := testLedger(t, store, &stubGate{optimal: true}, notifier, &stubConfirmer{ref: "static/images/card.png"})

	result := ledger.Book(context.Background(), BookRequest{
		Slot:       bookSlot(),
		DoctorName: "Smith",
		Reason:     "checkup",
		UserEmail:  "a@example.com",
	})
	require.True(t, result.Success, result.Message)
	require.NotZero(t, result.AppointmentID)
	assert.Empty(t, result.Warning)

	appt, err := store.GetAppointment(context.Background(), result.AppointmentID)
	require.NoError(t, err)
	assert.Equal(t, StatusScheduled, appt.Status)
	assert.Equal(t, "static/images/card.png", appt.ConfirmationRef)
	assert.Equal(t, "Appointment Confirmation", notifier.wait(t))
}

func TestBookPastDate(t *testing.T) {
	ledger := testLedger(t, NewMemoryStore(), nil, nil, nil)

	result := ledger.Book(context.Background(), BookRequest{
		Slot:       Slot{Year: 2026, Month: 3, Day: 1, Hour: 10, Minute: 0},
		DoctorName: "Smith",
		UserEmail:  "a@example.com",
	})
	require.False(t, result.Success)
	assert.Equal(t, KindPastDate, result.Error)
}

func TestBookUnknownDoctor(t *testing.T) {
	ledger := testLedger(t, NewMemoryStore(), nil, nil, nil)

	result := ledger.Book(context.Background(), BookRequest{
		Slot:       bookSlot(),
		DoctorName: "Nobody",
		UserEmail:  "a@example.com",
	})
	require.False(t, result.Success)
	assert.Equal(t, KindDoctorNotFound, result.Error)
}

func TestBookRiskGateWarning(t *testing.T) {
	gate := &stubGate{optimal: false, message: "high cancellation risk"}
	ledger := testLedger(t, NewMemoryStore(), gate, nil, nil)

	result := ledger.Book(context.Background(), BookRequest{
		Slot:       bookSlot(),
		DoctorName: "Smith",
		UserEmail:  "a@example.com",
	})
	require.False(t, result.Success)
	assert.Equal(t, KindMLWarning, result.Error)
	assert.Contains(t, result.Message, "high cancellation risk")
	assert.Equal(t, 1, gate.calls)
}

func TestBookSkipRiskGateOnExplicitConfirm(t *testing.T) {
	gate := &stubGate{optimal: false, message: "high cancellation risk"}
	ledger := testLedger(t, NewMemoryStore(), gate, nil, nil)

	result := ledger.Book(context.Background(), BookRequest{
		Slot:         bookSlot(),
		DoctorName:   "Smith",
		UserEmail:    "a@example.com",
		SkipRiskGate: true,
	})
	require.True(t, result.Success, result.Message)
	assert.Zero(t, gate.calls)
}

func TestBookConfirmationFailureIsWarningOnly(t *testing.T) {
	store := NewMemoryStore()
	ledger := testLedger(t, store, nil, nil, &stubConfirmer{err: errors.New("disk full")})

	result := ledger.Book(context.Background(), BookRequest{
		Slot:       bookSlot(),
		DoctorName: "Smith",
		UserEmail:  "a@example.com",
	})
	require.True(t, result.Success)
	assert.NotEmpty(t, result.Warning)

	appt, err := store.GetAppointment(context.Background(), result.AppointmentID)
	require.NoError(t, err)
	assert.Empty(t, appt.ConfirmationRef)
}

func TestBookConflictingSlot(t *testing.T) {
	store := NewMemoryStore()
	ledger := testLedger(t, store, nil, nil, nil)

	first := ledger.Book(context.Background(), BookRequest{
		Slot: bookSlot(), DoctorName: "Smith", UserEmail: "a@example.com",
	})
	require.True(t, first.Success)

	second := ledger.Book(context.Background(), BookRequest{
		Slot: bookSlot(), DoctorName: "Smith", UserEmail: "b@example.com",
	})
	require.False(t, second.Success)
	assert.Equal(t, KindSlotBooked, second.Error)
}

func TestCancelThenRebook(t *testing.T) {
	store := NewMemoryStore()
	notifier := newRecordingNotifier()
	ledger := testLedger(t, store, nil, notifier, nil)

	booked := ledger.Book(context.Background(), BookRequest{
		Slot: bookSlot(), DoctorName: "Smith", UserEmail: "a@example.com",
	})
	require.True(t, booked.Success)
	notifier.wait(t)

	cancelled := ledger.Cancel(context.Background(), CancelRequest{Slot: bookSlot(), UserEmail: "a@example.com"})
	require.True(t, cancelled.Success, cancelled.Message)
	assert.Equal(t, "Appointment Cancellation", notifier.wait(t))

	// The tombstone frees the slot for a fresh booking.
	rebooked := ledger.Book(context.Background(), BookRequest{
		Slot: bookSlot(), DoctorName: "Smith", UserEmail: "a@example.com",
	})
	require.True(t, rebooked.Success, rebooked.Message)
	assert.NotEqual(t, booked.AppointmentID, rebooked.AppointmentID)
}

func TestCancelUnknownAppointment(t *testing.T) {
	ledger := testLedger(t, NewMemoryStore(), nil, nil, nil)

	result := ledger.Cancel(context.Background(), CancelRequest{Slot: bookSlot(), UserEmail: "a@example.com"})
	require.False(t, result.Success)
	assert.Equal(t, KindNotFound, result.Error)
}

func TestCancelTwiceReportsNotFound(t *testing.T) {
	ledger := testLedger(t, NewMemoryStore(), nil, nil, nil)

	booked := ledger.Book(context.Background(), BookRequest{
		Slot: bookSlot(), DoctorName: "Smith", UserEmail: "a@example.com",
	})
	require.True(t, booked.Success)

	require.True(t, ledger.Cancel(context.Background(), CancelRequest{Slot: bookSlot(), UserEmail: "a@example.com"}).Success)

	again := ledger.Cancel(context.Background(), CancelRequest{Slot: bookSlot(), UserEmail: "a@example.com"})
	require.False(t, again.Success)
	assert.Equal(t, KindNotFound, again.Error)
}

func TestCompleteLifecycle(t *testing.T) {
	ledger := testLedger(t, NewMemoryStore(), nil, nil, nil)

	booked := ledger.Book(context.Background(), BookRequest{
		Slot: bookSlot(), DoctorName: "Smith", UserEmail: "a@example.com",
	})
	require.True(t, booked.Success)

	done := ledger.Complete(context.Background(), booked.AppointmentID)
	require.True(t, done.Success)

	repeat := ledger.Complete(context.Background(), booked.AppointmentID)
	require.False(t, repeat.Success)
	assert.Equal(t, KindOperationFailed, repeat.Error)

	missing := ledger.Complete(context.Background(), 999)
	require.False(t, missing.Success)
	assert.Equal(t, KindNotFound, missing.Error)
}

func TestConfirmRegeneratesArtifact(t *testing.T) {
	store := NewMemoryStore()
	ledger := testLedger(t, store, nil, nil, &stubConfirmer{ref: "static/images/card.png"})

	booked := ledger.Book(context.Background(), BookRequest{
		Slot: bookSlot(), DoctorName: "Smith", UserEmail: "a@example.com",
	})
	require.True(t, booked.Success)

	result := ledger.Confirm(context.Background(), booked.AppointmentID)
	require.True(t, result.Success)
	assert.Contains(t, result.Message, "static/images/card.png")
}

func TestConfirmUnknownAppointment(t *testing.T) {
	ledger := testLedger(t, NewMemoryStore(), nil, nil, &stubConfirmer{ref: "x"})

	result := ledger.Confirm(context.Background(), 42)
	require.False(t, result.Success)
	assert.Equal(t, KindNotFound, result.Error)
}

func TestConfirmWithoutGeneratorConfigured(t *testing.T) {
	ledger := testLedger(t, NewMemoryStore(), nil, nil, nil)

	result := ledger.Confirm(context.Background(), 1)
	require.False(t, result.Success)
	assert.Equal(t, KindOperationFailed, result.Error)
}

func TestBookDirectoryFault(t *testing.T) {
	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	validator := NewSlotValidator(time.UTC, 9, 17, fixedClock(now))
	directory := &stubDirectory{err: errors.New("directory down")}
	ledger := NewLedger(NewMemoryStore(), validator, directory, nil, nil, nil, nil)

	result := ledger.Book(context.Background(), BookRequest{
		Slot: bookSlot(), DoctorName: "Smith", UserEmail: "a@example.com",
	})
	require.False(t, result.Success)
	assert.Equal(t, KindOperationFailed, result.Error)
}
