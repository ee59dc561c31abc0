package agent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"receptionist/internal/schedule"
	"receptionist/internal/visitors"
)

type scriptedModel struct {
	turns []func(history []Message) (Message, error)
	calls int
}

func (m *scriptedModel) Converse(ctx context.Context, system string, history []Message) (Message, error) {
	idx := m.calls
	m.calls++
	if idx >= len(m.turns) {
		return Message{}, errors.New("unexpected model call")
	}
	return m.turns[idx](history)
}

func textTurn(text string) func([]Message) (Message, error) {
	return func([]Message) (Message, error) {
		return Message{Role: RoleModel, Text: text}, nil
	}
}

func failTurn(msg string) func([]Message) (Message, error) {
	return func([]Message) (Message, error) {
		return Message{}, errors.New(msg)
	}
}

type allowAllDirectory struct{}

func (allowAllDirectory) Exists(ctx context.Context, name string) (bool, error) { return true, nil }

func testRegistry(t *testing.T, store schedule.Store) *Registry {
	t.Helper()
	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	validator := schedule.NewSlotValidator(time.UTC, 9, 17, func() time.Time { return now })
	ledger := schedule.NewLedger(store, validator, allowAllDirectory{}, nil, nil, nil, nil)
	finder := schedule.NewNextSlotFinder(store, nil, validator, 30, 7).
		WithClock(func() time.Time { return now })
	visitorSvc := visitors.NewService(visitors.NewMemoryRepository(), nil, 0, nil)
	return NewRegistry(ledger, finder, nil, visitorSvc, nil)
}

func testOrchestrator(t *testing.T, model ModelClient, store schedule.Store) (*Orchestrator, *[]time.Duration) {
	t.Helper()
	sleeps := &[]time.Duration{}
	o := NewOrchestrator(model, testRegistry(t, store), NewMemoryHistoryStore(), 3, 8, 0, nil).
		WithSleep(func(d time.Duration) { *sleeps = append(*sleeps, d) }).
		WithClock(func() time.Time { return time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC) })
	return o, sleeps
}

func startConversation(t *testing.T, o *Orchestrator) string {
	t.Helper()
	id, err := o.StartConversation(context.Background())
	require.NoError(t, err)
	return id
}

func TestHandleMessagePlainReply(t *testing.T) {
	model := &scriptedModel{turns: []func([]Message) (Message, error){
		textTurn("Hello! How can I help you today?"),
	}}
	o, sleeps := testOrchestrator(t, model, schedule.NewMemoryStore())
	id := startConversation(t, o)

	reply, err := o.HandleMessage(context.Background(), Session{ConversationID: id}, "hi")
	require.NoError(t, err)
	assert.Equal(t, "Hello! How can I help you today?", reply)
	assert.Empty(t, *sleeps)

	history, err := o.history.Load(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, RoleUser, history[0].Role)
	assert.Equal(t, RoleModel, history[1].Role)
}

func TestHandleMessageRetriesWithBackoff(t *testing.T) {
	model := &scriptedModel{turns: []func([]Message) (Message, error){
		failTurn("rate limited"),
		failTurn("rate limited"),
		textTurn("Recovered."),
	}}
	o, sleeps := testOrchestrator(t, model, schedule.NewMemoryStore())
	id := startConversation(t, o)

	reply, err := o.HandleMessage(context.Background(), Session{ConversationID: id}, "hi")
	require.NoError(t, err)
	assert.Equal(t, "Recovered.", reply)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, *sleeps)
	assert.Equal(t, 3, model.calls)
}

func TestHandleMessageExhaustsRetryBudget(t *testing.T) {
	model := &scriptedModel{turns: []func([]Message) (Message, error){
		failTurn("down"), failTurn("down"), failTurn("down"),
	}}
	o, sleeps := testOrchestrator(t, model, schedule.NewMemoryStore())
	id := startConversation(t, o)

	_, err := o.HandleMessage(context.Background(), Session{ConversationID: id}, "hi")
	require.ErrorIs(t, err, ErrModelCallFailed)
	// Exactly three attempts, no fourth, and no sleep after the last failure.
	assert.Equal(t, 3, model.calls)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, *sleeps)

	// The user message is persisted so the turn can be retried by resending.
	history, err := o.history.Load(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, RoleUser, history[0].Role)
}

func TestHandleMessageExecutesToolsAndFeedsObservations(t *testing.T) {
	store := schedule.NewMemoryStore()
	model := &scriptedModel{turns: []func([]Message) (Message, error){
		func([]Message) (Message, error) {
			return Message{Role: RoleModel, ToolCalls: []ToolCall{{
				Name: "book_appointment",
				Args: map[string]any{
					"appointment_year":   float64(2026),
					"appointment_month":  float64(3),
					"appointment_day":    float64(3),
					"appointment_hour":   float64(10),
					"appointment_minute": float64(0),
					"doctor_name":        "Smith",
					"reason":             "checkup",
				},
			}}}, nil
		},
		func(history []Message) (Message, error) {
			// The observation from the executed tool is the last entry.
			last := history[len(history)-1]
			if last.Role != RoleTool || len(last.ToolResults) != 1 {
				return Message{}, errors.New("expected a tool observation")
			}
			if success, _ := last.ToolResults[0].Response["success"].(bool); !success {
				return Message{}, errors.New("expected a successful booking observation")
			}
			return Message{Role: RoleModel, Text: "Your appointment is booked."}, nil
		},
	}}
	o, _ := testOrchestrator(t, model, store)
	id := startConversation(t, o)

	reply, err := o.HandleMessage(context.Background(),
		Session{ConversationID: id, UserEmail: "a@example.com"}, "book me with Smith tomorrow at 10")
	require.NoError(t, err)
	assert.Equal(t, "Your appointment is booked.", reply)

	appts, err := store.ListActive(context.Background(), "a@example.com")
	require.NoError(t, err)
	require.Len(t, appts, 1)
	assert.Equal(t, "Smith", appts[0].DoctorName)

	history, err := o.history.Load(context.Background(), id)
	require.NoError(t, err)
	assert.Len(t, history, 4)
}

func TestHandleMessageCycleCap(t *testing.T) {
	looping := func([]Message) (Message, error) {
		return Message{Role: RoleModel, ToolCalls: []ToolCall{{Name: "get_next_available_appointment"}}}, nil
	}
	turns := make([]func([]Message) (Message, error), 0, 10)
	for i := 0; i < 10; i++ {
		turns = append(turns, looping)
	}
	model := &scriptedModel{turns: turns}
	o, _ := testOrchestrator(t, model, schedule.NewMemoryStore())
	id := startConversation(t, o)

	_, err := o.HandleMessage(context.Background(), Session{ConversationID: id}, "hi")
	require.Error(t, err)
	assert.Equal(t, 8, model.calls)
}

func TestHandleMessageUnknownConversation(t *testing.T) {
	o, _ := testOrchestrator(t, &scriptedModel{}, schedule.NewMemoryStore())

	_, err := o.HandleMessage(context.Background(), Session{ConversationID: "nope"}, "hi")
	assert.ErrorIs(t, err, ErrUnknownConversation)
}

func TestRegistryExecuteUnknownTool(t *testing.T) {
	r := testRegistry(t, schedule.NewMemoryStore())

	result := r.Execute(context.Background(), Session{}, ToolCall{Name: "launch_rocket"})
	assert.Equal(t, "launch_rocket", result.Name)
	success, _ := result.Response["success"].(bool)
	assert.False(t, success)
}

func TestRegistryBookRequiresIdentity(t *testing.T) {
	r := testRegistry(t, schedule.NewMemoryStore())

	result := r.Execute(context.Background(), Session{}, ToolCall{
		Name: "book_appointment",
		Args: map[string]any{
			"appointment_year": float64(2026), "appointment_month": float64(3),
			"appointment_day": float64(3), "appointment_hour": float64(10),
			"appointment_minute": float64(0), "doctor_name": "Smith", "reason": "checkup",
		},
	})
	success, _ := result.Response["success"].(bool)
	assert.False(t, success)
}

type stubGate struct {
	optimal bool
	message string
}

func (g stubGate) Predict(date, clock string, durationMinutes int) (bool, string) {
	return g.optimal, g.message
}

func TestRegistryCheckAvailabilityToolCarriesFlag(t *testing.T) {
	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	validator := schedule.NewSlotValidator(time.UTC, 9, 17, func() time.Time { return now })
	ledger := schedule.NewLedger(schedule.NewMemoryStore(), validator, allowAllDirectory{}, nil, nil, nil, nil)
	r := NewRegistry(ledger, nil, stubGate{optimal: false, message: "historically cancelled"}, nil, nil)

	result := r.Execute(context.Background(), Session{}, ToolCall{
		Name: "check_availability",
		Args: map[string]any{"date": "2026-03-03", "time": "16:30"},
	})
	assert.Equal(t, false, result.Response["available"])
	assert.Contains(t, result.Response["message"].(string), "High Risk")
}

func TestRegistryNextSlotToolReturnsStructuredTime(t *testing.T) {
	r := testRegistry(t, schedule.NewMemoryStore())

	result := r.Execute(context.Background(), Session{}, ToolCall{Name: "get_next_available_appointment"})
	success, _ := result.Response["success"].(bool)
	require.True(t, success, result.Response["message"])
	assert.Equal(t, "2026-03-02 09:00", result.Response["appointment_time"])
}

func TestRegistryRegisterVisitorTool(t *testing.T) {
	r := testRegistry(t, schedule.NewMemoryStore())

	result := r.Execute(context.Background(), Session{}, ToolCall{
		Name: "register_visitor",
		Args: map[string]any{"name": "Alice", "purpose": "Delivery", "company": "Acme"},
	})
	success, _ := result.Response["success"].(bool)
	assert.True(t, success, result.Response["message"])
}

func TestRegistryDeclarationsCoverAllTools(t *testing.T) {
	r := testRegistry(t, schedule.NewMemoryStore())

	names := map[string]bool{}
	for _, decl := range r.Declarations() {
		names[decl.Name] = true
	}
	for _, expected := range []string{
		"book_appointment", "cancel_appointment", "get_next_available_appointment",
		"check_availability", "register_visitor", "generate_confirmation",
	} {
		assert.True(t, names[expected], expected)
	}
}
