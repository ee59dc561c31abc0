package schedule

import "time"

// Appointment statuses. Completed and Cancelled are terminal.
const (
	StatusScheduled = "Scheduled"
	StatusCompleted = "Completed"
	StatusCancelled = "Cancelled"
)

// DefaultDurationMinutes is the length of a standard appointment slot.
const DefaultDurationMinutes = 30

// Appointment is a booking record. Cancellation tombstones the row
// (IsDeleted=true, Status=Cancelled) instead of deleting it; tombstoned rows
// are retained for audit and excluded from every conflict and listing query.
type Appointment struct {
	ID              int64     `json:"id"`
	UserEmail       string    `json:"user_email"`
	DoctorName      string    `json:"doctor_name"`
	Reason          string    `json:"reason"`
	ScheduledTime   time.Time `json:"scheduled_time"`
	DurationMinutes int       `json:"duration_minutes"`
	Status          string    `json:"status"`
	IsDeleted       bool      `json:"is_deleted"`
	ConfirmationRef string    `json:"confirmation_ref,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Terminal reports whether the appointment can no longer change state.
func (a *Appointment) Terminal() bool {
	return a.IsDeleted || a.Status == StatusCompleted || a.Status == StatusCancelled
}
