package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"receptionist/internal/schedule"
	"receptionist/pkg/logging"
)

// AvailabilityHandler exposes next-slot search and the risk prediction check.
type AvailabilityHandler struct {
	finder *schedule.NextSlotFinder
	gate   schedule.RiskGate
	logger *logging.Logger
}

func NewAvailabilityHandler(finder *schedule.NextSlotFinder, gate schedule.RiskGate, logger *logging.Logger) *AvailabilityHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &AvailabilityHandler{finder: finder, gate: gate, logger: logger}
}

// NextSlot returns the earliest free, low-risk slot.
// GET /availability/next
func (h *AvailabilityHandler) NextSlot(w http.ResponseWriter, r *http.Request) {
	if h.finder == nil {
		writeError(w, http.StatusServiceUnavailable, "slot search is not configured")
		return
	}
	writeResult(w, http.StatusOK, h.finder.Find(r.Context()))
}

// Check reports whether a specific slot is historically low-risk.
// GET /availability/check?date=YYYY-MM-DD&time=HH:MM&duration=30
func (h *AvailabilityHandler) Check(w http.ResponseWriter, r *http.Request) {
	if h.gate == nil {
		writeError(w, http.StatusServiceUnavailable, "availability prediction is not configured")
		return
	}

	date := r.URL.Query().Get("date")
	clock := r.URL.Query().Get("time")
	if date == "" || clock == "" {
		writeError(w, http.StatusBadRequest, "date and time are required")
		return
	}
	duration, _ := strconv.Atoi(r.URL.Query().Get("duration"))
	if duration <= 0 {
		duration = schedule.DefaultDurationMinutes
	}

	available, msg := h.gate.Predict(date, clock, duration)
	status := "Optimal"
	if !available {
		status = "High Risk"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"available": available,
		"message":   fmt.Sprintf("Availability Status: %s. Details: %s", status, msg),
	})
}
