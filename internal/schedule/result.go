package schedule

// ErrorKind is a stable, machine-readable failure category. Callers branch on
// the kind, never on the human-readable message.
type ErrorKind string

const (
	KindNone                ErrorKind = ""
	KindPastDate            ErrorKind = "PAST_DATE"
	KindOutsideWorkingHours ErrorKind = "OUTSIDE_WORKING_HOURS"
	KindDoctorNotFound      ErrorKind = "DOCTOR_NOT_FOUND"
	KindSlotBooked          ErrorKind = "SLOT_BOOKED"
	KindUserConflict        ErrorKind = "USER_CONFLICT"
	KindDuplicateWithDoctor ErrorKind = "DUPLICATE_APPOINTMENT"
	KindMLWarning           ErrorKind = "ML_WARNING"
	KindNotFound            ErrorKind = "NOT_FOUND"
	KindOperationFailed     ErrorKind = "OPERATION_FAILED"
	KindInvalidImage        ErrorKind = "INVALID_IMAGE"
	KindModelCallFailed     ErrorKind = "MODEL_CALL_FAILED"
	KindNoAvailability      ErrorKind = "NO_AVAILABILITY"
)

// Result is the discriminated outcome of every scheduling operation. The
// public boundary of the ledger returns Results, never raw errors: internal
// faults are folded into KindOperationFailed with the original message kept.
type Result struct {
	Success       bool      `json:"success"`
	Error         ErrorKind `json:"error,omitempty"`
	Message       string    `json:"message"`
	AppointmentID int64     `json:"appointment_id,omitempty"`
	// AppointmentTime carries the slot as "2006-01-02 15:04" in the canonical
	// zone when the operation resolved one, so callers never parse the message.
	AppointmentTime string `json:"appointment_time,omitempty"`
	Warning         string `json:"warning,omitempty"`
}

// Ok builds a success result.
func Ok(message string) Result {
	return Result{Success: true, Message: message}
}

// Fail builds a failure result with the given kind.
func Fail(kind ErrorKind, message string) Result {
	return Result{Success: false, Error: kind, Message: message}
}

// Payload renders the result as a tool observation / API body.
func (r Result) Payload() map[string]any {
	payload := map[string]any{
		"success": r.Success,
		"message": r.Message,
	}
	if r.Error != KindNone {
		payload["error"] = string(r.Error)
	}
	if r.AppointmentID != 0 {
		payload["appointment_id"] = r.AppointmentID
	}
	if r.AppointmentTime != "" {
		payload["appointment_time"] = r.AppointmentTime
	}
	if r.Warning != "" {
		payload["warning"] = r.Warning
	}
	return payload
}
