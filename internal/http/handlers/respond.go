// Package handlers provides the HTTP endpoints for the receptionist API.
package handlers

import (
	"encoding/json"
	"net/http"

	"receptionist/internal/schedule"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"success": false, "message": message})
}

// writeResult maps a scheduling result to an HTTP status. successStatus is
// used when the result succeeded.
func writeResult(w http.ResponseWriter, successStatus int, result schedule.Result) {
	status := successStatus
	if !result.Success {
		status = statusForKind(result.Error)
	}
	writeJSON(w, status, result.Payload())
}

func statusForKind(kind schedule.ErrorKind) int {
	switch kind {
	case schedule.KindPastDate, schedule.KindOutsideWorkingHours, schedule.KindInvalidImage:
		return http.StatusBadRequest
	case schedule.KindDoctorNotFound, schedule.KindNotFound, schedule.KindNoAvailability:
		return http.StatusNotFound
	case schedule.KindSlotBooked, schedule.KindUserConflict, schedule.KindDuplicateWithDoctor, schedule.KindMLWarning:
		return http.StatusConflict
	case schedule.KindModelCallFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
