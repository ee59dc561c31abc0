package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"receptionist/internal/observability/metrics"
	"receptionist/pkg/logging"
)

var ledgerTracer = otel.Tracer("receptionist.internal.schedule")

// DoctorDirectory resolves doctor identities. Doctors are owned by an
// external directory; the ledger only needs existence checks.
type DoctorDirectory interface {
	Exists(ctx context.Context, name string) (bool, error)
}

// RiskGate is the availability classifier contract. It never returns an
// error: an unavailable or failing model degrades to (true, message).
type RiskGate interface {
	Predict(date, clock string, durationMinutes int) (bool, string)
}

// Notifier delivers best-effort notifications. The boolean reports delivery;
// implementations must never panic or block on the caller's transaction.
type Notifier interface {
	Notify(ctx context.Context, recipient, subject, body string) bool
}

// ConfirmationGenerator produces an opaque confirmation artifact reference
// for a booked appointment.
type ConfirmationGenerator interface {
	Generate(ctx context.Context, appt Appointment) (string, error)
}

// BookRequest carries a booking intent into the ledger.
type BookRequest struct {
	Slot       Slot
	DoctorName string
	Reason     string
	UserEmail  string

	// SkipRiskGate is the explicit resubmission path after an ML_WARNING:
	// the caller confirmed the risky slot, so the classifier is not consulted.
	SkipRiskGate bool
}

// CancelRequest identifies the appointment to tombstone by (user, instant).
type CancelRequest struct {
	Slot      Slot
	UserEmail string
}

// Ledger owns appointment records and the lifecycle state machine
// (Scheduled -> Completed | Cancelled). Every public method returns a Result;
// internal faults are mapped to OPERATION_FAILED, never propagated as errors.
type Ledger struct {
	store     Store
	validator *SlotValidator
	conflicts *ConflictDetector
	doctors   DoctorDirectory
	gate      RiskGate
	notifier  Notifier
	confirmer ConfirmationGenerator
	metrics   *metrics.ReceptionMetrics
	logger    *logging.Logger
}

// NewLedger wires the booking pipeline. Notifier and confirmer may be nil;
// the matching steps become no-ops.
func NewLedger(store Store, validator *SlotValidator, doctors DoctorDirectory, gate RiskGate,
	notifier Notifier, confirmer ConfirmationGenerator, logger *logging.Logger) *Ledger {
	if store == nil {
		panic("schedule: store cannot be nil")
	}
	if validator == nil {
		panic("schedule: validator cannot be nil")
	}
	if doctors == nil {
		panic("schedule: doctor directory cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Ledger{
		store:     store,
		validator: validator,
		conflicts: NewConflictDetector(store),
		doctors:   doctors,
		gate:      gate,
		notifier:  notifier,
		confirmer: confirmer,
		logger:    logger,
	}
}

// WithMetrics attaches prometheus instrumentation.
func (l *Ledger) WithMetrics(m *metrics.ReceptionMetrics) *Ledger {
	l.metrics = m
	return l
}

// Validator exposes the ledger's slot validator so collaborators (next-slot
// search, handlers) share one canonical zone and working window.
func (l *Ledger) Validator() *SlotValidator {
	return l.validator
}

// Book runs the full gate pipeline and inserts the appointment. Validation
// and conflict failures are detected before any write. Confirmation artifact
// failures do not roll back the booking; they surface as a warning on the
// success result. Notifications are fired asynchronously and never affect
// the outcome.
func (l *Ledger) Book(ctx context.Context, req BookRequest) Result {
	result := l.book(ctx, req)
	outcome := "success"
	if !result.Success {
		outcome = string(result.Error)
	}
	l.metrics.ObserveBooking(outcome)
	return result
}

func (l *Ledger) book(ctx context.Context, req BookRequest) Result {
	ctx, span := ledgerTracer.Start(ctx, "schedule.book")
	defer span.End()
	span.SetAttributes(
		attribute.String("schedule.doctor", req.DoctorName),
		attribute.String("schedule.user", req.UserEmail),
	)

	at, failure := l.validator.Normalize(req.Slot)
	if failure != nil {
		l.logger.Warn("booking rejected by validator", "error", failure.Error, "user", req.UserEmail)
		return *failure
	}

	known, err := l.doctors.Exists(ctx, req.DoctorName)
	if err != nil {
		return l.operationFailed("doctor lookup failed", err)
	}
	if !known {
		l.logger.Warn("booking with unknown doctor", "doctor", req.DoctorName)
		return Fail(KindDoctorNotFound, fmt.Sprintf("Doctor '%s' not found. Please select a valid doctor.", req.DoctorName))
	}

	if conflict, err := l.conflicts.Check(ctx, req.DoctorName, req.UserEmail, at); err != nil {
		return l.operationFailed("conflict check failed", err)
	} else if conflict != nil {
		l.logger.Warn("booking conflict", "error", conflict.Error, "doctor", req.DoctorName, "user", req.UserEmail)
		return *conflict
	}

	if !req.SkipRiskGate && l.gate != nil {
		optimal, msg := l.gate.Predict(at.Format("2006-01-02"), at.Format("15:04"), DefaultDurationMinutes)
		if !optimal {
			return Fail(KindMLWarning, fmt.Sprintf("Warning: %s. Please choose a different time slot.", msg))
		}
	}

	appt := Appointment{
		UserEmail:       req.UserEmail,
		DoctorName:      req.DoctorName,
		Reason:          req.Reason,
		ScheduledTime:   at,
		DurationMinutes: DefaultDurationMinutes,
	}
	if err := l.store.CreateAppointment(ctx, &appt); err != nil {
		switch {
		case errors.Is(err, ErrDoctorSlotTaken):
			return Fail(KindSlotBooked, fmt.Sprintf("Appointment at %s is already booked. Please choose another time.", formatInstant(at)))
		case errors.Is(err, ErrUserSlotTaken):
			return Fail(KindUserConflict, fmt.Sprintf("You already have an appointment at %s. Cannot book multiple appointments at the same time.", formatInstant(at)))
		default:
			return l.operationFailed("appointment insert failed", err)
		}
	}
	l.logger.Info("appointment booked", "appointment_id", appt.ID, "doctor", req.DoctorName, "time", formatInstant(at))

	result := Ok(fmt.Sprintf("Appointment booked successfully for %s with Dr. %s.", formatInstant(at), req.DoctorName))
	result.AppointmentID = appt.ID
	result.AppointmentTime = formatInstant(at)

	// The booking is committed; artifact problems downgrade to a warning.
	if l.confirmer != nil {
		if ref, err := l.confirmer.Generate(ctx, appt); err != nil {
			l.logger.Error("confirmation artifact generation failed", "error", err, "appointment_id", appt.ID)
			result.Warning = "Confirmation artifact could not be generated."
		} else if err := l.store.UpdateConfirmationRef(ctx, appt.ID, ref); err != nil {
			l.logger.Error("confirmation ref update failed", "error", err, "appointment_id", appt.ID)
			result.Warning = "Confirmation artifact could not be attached."
		}
	}

	l.dispatch(req.UserEmail, "Appointment Confirmation",
		fmt.Sprintf("Your appointment with Dr. %s for %s is booked for %s.", req.DoctorName, req.Reason, formatInstant(at)))

	return result
}

// Cancel tombstones the unique active appointment matching (user, instant).
// Tombstoned rows are invisible to the lookup, so cancelling an already
// cancelled appointment reports NOT_FOUND.
func (l *Ledger) Cancel(ctx context.Context, req CancelRequest) Result {
	ctx, span := ledgerTracer.Start(ctx, "schedule.cancel")
	defer span.End()

	at := l.validator.Instant(req.Slot)

	appt, err := l.store.FindActiveByUserAndTime(ctx, req.UserEmail, at)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			l.logger.Warn("cancel target not found", "user", req.UserEmail, "time", formatInstant(at))
			return Fail(KindNotFound, fmt.Sprintf("No appointment found at %s for your account", formatInstant(at)))
		}
		return l.operationFailed("cancel lookup failed", err)
	}

	if err := l.store.TombstoneAppointment(ctx, appt.ID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return Fail(KindNotFound, fmt.Sprintf("No appointment found at %s for your account", formatInstant(at)))
		}
		return l.operationFailed("cancel failed", err)
	}
	l.logger.Info("appointment cancelled", "appointment_id", appt.ID, "user", req.UserEmail)

	l.dispatch(req.UserEmail, "Appointment Cancellation",
		fmt.Sprintf("Your appointment on %s has been canceled.", formatInstant(at)))

	return Ok(fmt.Sprintf("Appointment at %s cancelled successfully.", formatInstant(at)))
}

// Confirm regenerates the confirmation artifact for an existing appointment
// and attaches its reference.
func (l *Ledger) Confirm(ctx context.Context, id int64) Result {
	ctx, span := ledgerTracer.Start(ctx, "schedule.confirm")
	defer span.End()

	if l.confirmer == nil {
		return Fail(KindOperationFailed, "Confirmation generation is not configured.")
	}

	appt, err := l.store.GetAppointment(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Fail(KindNotFound, fmt.Sprintf("Appointment %d not found", id))
		}
		return l.operationFailed("confirmation lookup failed", err)
	}

	ref, err := l.confirmer.Generate(ctx, *appt)
	if err != nil {
		return l.operationFailed("confirmation generation failed", err)
	}
	if err := l.store.UpdateConfirmationRef(ctx, id, ref); err != nil {
		return l.operationFailed("confirmation ref update failed", err)
	}
	l.logger.Info("confirmation regenerated", "appointment_id", id, "ref", ref)
	return Ok(fmt.Sprintf("Confirmation generated at %s", ref))
}

// Complete is the administrative transition Scheduled -> Completed. Terminal
// rows are never moved again.
func (l *Ledger) Complete(ctx context.Context, id int64) Result {
	ctx, span := ledgerTracer.Start(ctx, "schedule.complete")
	defer span.End()

	if err := l.store.CompleteAppointment(ctx, id); err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			return Fail(KindNotFound, fmt.Sprintf("Appointment %d not found", id))
		case errors.Is(err, ErrTerminalState):
			return Fail(KindOperationFailed, fmt.Sprintf("Appointment %d is already completed or cancelled", id))
		default:
			return l.operationFailed("complete failed", err)
		}
	}
	l.logger.Info("appointment completed", "appointment_id", id)
	return Ok(fmt.Sprintf("Appointment %d marked as completed.", id))
}

// ListActive returns the non-tombstoned appointments for a user (or all
// users when empty). Administrative read path; errors stay errors here.
func (l *Ledger) ListActive(ctx context.Context, userEmail string) ([]Appointment, error) {
	return l.store.ListActive(ctx, userEmail)
}

// dispatch sends a notification on a detached goroutine. Delivery failures
// are logged and dropped: the booking or cancellation is already committed.
func (l *Ledger) dispatch(recipient, subject, body string) {
	if l.notifier == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if !l.notifier.Notify(ctx, recipient, subject, body) {
			l.logger.Warn("notification not delivered", "recipient", recipient, "subject", subject)
		}
	}()
}

func (l *Ledger) operationFailed(msg string, err error) Result {
	l.logger.Error(msg, "error", err)
	return Fail(KindOperationFailed, fmt.Sprintf("%s: %v", msg, err))
}
