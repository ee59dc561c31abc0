package agent

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"

	"receptionist/internal/schedule"
	"receptionist/internal/visitors"
	"receptionist/pkg/logging"
)

// Session identifies the caller behind a conversation. The user's email comes
// from the authenticated request, never from model-provided arguments.
type Session struct {
	ConversationID string
	UserEmail      string
}

// Handler executes one tool call and returns the observation payload.
type Handler func(ctx context.Context, sess Session, args map[string]any) map[string]any

// Registry maps tool names to their declarations and handlers.
type Registry struct {
	declarations []*genai.FunctionDeclaration
	handlers     map[string]Handler
	logger       *logging.Logger
}

// NewRegistry wires the receptionist tool set over the scheduling services.
// finder, gate, and visitorSvc may be nil; their tools degrade to failures.
func NewRegistry(ledger *schedule.Ledger, finder *schedule.NextSlotFinder, gate schedule.RiskGate,
	visitorSvc *visitors.Service, logger *logging.Logger) *Registry {
	if ledger == nil {
		panic("agent: ledger cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	r := &Registry{handlers: map[string]Handler{}, logger: logger}

	r.register(&genai.FunctionDeclaration{
		Name:        "book_appointment",
		Description: "Book an appointment at the specified time.",
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"appointment_year":   {Type: genai.TypeInteger, Description: "Year of the appointment"},
				"appointment_month":  {Type: genai.TypeInteger, Description: "Month of the appointment (1-12)"},
				"appointment_day":    {Type: genai.TypeInteger, Description: "Day of the appointment"},
				"appointment_hour":   {Type: genai.TypeInteger, Description: "Hour of the appointment (0-23)"},
				"appointment_minute": {Type: genai.TypeInteger, Description: "Minute of the appointment (0-59)"},
				"doctor_name":        {Type: genai.TypeString, Description: "Name of the doctor"},
				"reason":             {Type: genai.TypeString, Description: "Reason or condition for the visit"},
				"confirmed":          {Type: genai.TypeBoolean, Description: "Set true only after the caller explicitly accepts a high-risk time slot"},
			},
			Required: []string{"appointment_year", "appointment_month", "appointment_day",
				"appointment_hour", "appointment_minute", "doctor_name", "reason"},
		},
	}, func(ctx context.Context, sess Session, args map[string]any) map[string]any {
		if sess.UserEmail == "" {
			return missingIdentity()
		}
		result := ledger.Book(ctx, schedule.BookRequest{
			Slot:         slotFromArgs(args),
			DoctorName:   strArg(args, "doctor_name"),
			Reason:       strArg(args, "reason"),
			UserEmail:    sess.UserEmail,
			SkipRiskGate: boolArg(args, "confirmed"),
		})
		return result.Payload()
	})

	r.register(&genai.FunctionDeclaration{
		Name:        "cancel_appointment",
		Description: "Cancel the caller's appointment at the specified time.",
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"appointment_year":   {Type: genai.TypeInteger, Description: "Year of the appointment"},
				"appointment_month":  {Type: genai.TypeInteger, Description: "Month of the appointment (1-12)"},
				"appointment_day":    {Type: genai.TypeInteger, Description: "Day of the appointment"},
				"appointment_hour":   {Type: genai.TypeInteger, Description: "Hour of the appointment (0-23)"},
				"appointment_minute": {Type: genai.TypeInteger, Description: "Minute of the appointment (0-59)"},
			},
			Required: []string{"appointment_year", "appointment_month", "appointment_day",
				"appointment_hour", "appointment_minute"},
		},
	}, func(ctx context.Context, sess Session, args map[string]any) map[string]any {
		if sess.UserEmail == "" {
			return missingIdentity()
		}
		result := ledger.Cancel(ctx, schedule.CancelRequest{
			Slot:      slotFromArgs(args),
			UserEmail: sess.UserEmail,
		})
		return result.Payload()
	})

	r.register(&genai.FunctionDeclaration{
		Name:        "get_next_available_appointment",
		Description: "Returns the next available appointment slot.",
	}, func(ctx context.Context, sess Session, args map[string]any) map[string]any {
		if finder == nil {
			return schedule.Fail(schedule.KindOperationFailed, "Slot search is not configured.").Payload()
		}
		return finder.Find(ctx).Payload()
	})

	r.register(&genai.FunctionDeclaration{
		Name:        "check_availability",
		Description: "Checks whether a specific time slot is optimal based on historical cancellations.",
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"date":     {Type: genai.TypeString, Description: "Date as YYYY-MM-DD"},
				"time":     {Type: genai.TypeString, Description: "Time as HH:MM"},
				"duration": {Type: genai.TypeInteger, Description: "Duration in minutes (default 30)"},
			},
			Required: []string{"date", "time"},
		},
	}, func(ctx context.Context, sess Session, args map[string]any) map[string]any {
		if gate == nil {
			return schedule.Fail(schedule.KindOperationFailed, "Availability prediction is not configured.").Payload()
		}
		duration := intArg(args, "duration")
		if duration <= 0 {
			duration = schedule.DefaultDurationMinutes
		}
		available, msg := gate.Predict(strArg(args, "date"), strArg(args, "time"), duration)
		status := "Optimal"
		if !available {
			status = "High Risk"
		}
		payload := schedule.Ok(fmt.Sprintf("Availability Status: %s. Details: %s", status, msg)).Payload()
		payload["available"] = available
		return payload
	})

	r.register(&genai.FunctionDeclaration{
		Name:        "register_visitor",
		Description: "Registers a walk-in visitor and logs their entry.",
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"name":    {Type: genai.TypeString, Description: "Name of the visitor"},
				"purpose": {Type: genai.TypeString, Description: "Purpose of the visit"},
				"company": {Type: genai.TypeString, Description: "Company the visitor represents"},
			},
			Required: []string{"name", "purpose"},
		},
	}, func(ctx context.Context, sess Session, args map[string]any) map[string]any {
		if visitorSvc == nil {
			return schedule.Fail(schedule.KindOperationFailed, "Visitor registration is not configured.").Payload()
		}
		result := visitorSvc.Register(ctx, visitors.RegisterRequest{
			Name:    strArg(args, "name"),
			Purpose: strArg(args, "purpose"),
			Company: strArg(args, "company"),
		})
		return result.Payload()
	})

	r.register(&genai.FunctionDeclaration{
		Name:        "generate_confirmation",
		Description: "Generates a confirmation card for a booked appointment.",
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"appointment_id": {Type: genai.TypeInteger, Description: "ID of the booked appointment"},
			},
			Required: []string{"appointment_id"},
		},
	}, func(ctx context.Context, sess Session, args map[string]any) map[string]any {
		return ledger.Confirm(ctx, int64(intArg(args, "appointment_id"))).Payload()
	})

	return r
}

func (r *Registry) register(decl *genai.FunctionDeclaration, handler Handler) {
	r.declarations = append(r.declarations, decl)
	r.handlers[decl.Name] = handler
}

// Declarations returns the function declarations for model binding.
func (r *Registry) Declarations() []*genai.FunctionDeclaration {
	return r.declarations
}

// Execute runs one tool call. Unknown tools produce a failure observation so
// the model can recover instead of aborting the turn.
func (r *Registry) Execute(ctx context.Context, sess Session, call ToolCall) ToolResult {
	handler, ok := r.handlers[call.Name]
	if !ok {
		r.logger.Warn("model requested unknown tool", "tool", call.Name)
		return ToolResult{
			Name:     call.Name,
			Response: schedule.Fail(schedule.KindOperationFailed, fmt.Sprintf("Unknown tool %q", call.Name)).Payload(),
		}
	}
	return ToolResult{Name: call.Name, Response: handler(ctx, sess, call.Args)}
}

func missingIdentity() map[string]any {
	return schedule.Fail(schedule.KindOperationFailed, "No authenticated user for this conversation.").Payload()
}

func slotFromArgs(args map[string]any) schedule.Slot {
	return schedule.Slot{
		Year:   intArg(args, "appointment_year"),
		Month:  intArg(args, "appointment_month"),
		Day:    intArg(args, "appointment_day"),
		Hour:   intArg(args, "appointment_hour"),
		Minute: intArg(args, "appointment_minute"),
	}
}

// Function-call arguments arrive as decoded JSON, so numbers are float64.
func intArg(args map[string]any, key string) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case int64:
		return int(v)
	default:
		return 0
	}
}

func strArg(args map[string]any, key string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}

func boolArg(args map[string]any, key string) bool {
	v, ok := args[key].(bool)
	return ok && v
}
