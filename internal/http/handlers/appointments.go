package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"receptionist/internal/schedule"
	"receptionist/pkg/logging"
)

// AppointmentsHandler exposes the booking ledger over HTTP for direct API
// clients and administrative tooling.
type AppointmentsHandler struct {
	ledger *schedule.Ledger
	logger *logging.Logger
}

func NewAppointmentsHandler(ledger *schedule.Ledger, logger *logging.Logger) *AppointmentsHandler {
	if ledger == nil {
		panic("handlers: ledger cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &AppointmentsHandler{ledger: ledger, logger: logger}
}

// SlotRequest is the wire form of an appointment time.
type SlotRequest struct {
	Year   int `json:"year"`
	Month  int `json:"month"`
	Day    int `json:"day"`
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
}

func (s SlotRequest) slot() schedule.Slot {
	return schedule.Slot{Year: s.Year, Month: s.Month, Day: s.Day, Hour: s.Hour, Minute: s.Minute}
}

// BookRequest is the body for booking an appointment directly.
type BookRequest struct {
	SlotRequest
	DoctorName string `json:"doctor_name"`
	Reason     string `json:"reason"`
	UserEmail  string `json:"user_email"`
	Confirmed  bool   `json:"confirmed"`
}

// Book creates an appointment.
// POST /appointments
func (h *AppointmentsHandler) Book(w http.ResponseWriter, r *http.Request) {
	var req BookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.UserEmail) == "" || strings.TrimSpace(req.DoctorName) == "" {
		writeError(w, http.StatusBadRequest, "user_email and doctor_name are required")
		return
	}

	result := h.ledger.Book(r.Context(), schedule.BookRequest{
		Slot:         req.slot(),
		DoctorName:   req.DoctorName,
		Reason:       req.Reason,
		UserEmail:    req.UserEmail,
		SkipRiskGate: req.Confirmed,
	})
	writeResult(w, http.StatusCreated, result)
}

// CancelRequest is the body for cancelling by (user, time).
type CancelRequest struct {
	SlotRequest
	UserEmail string `json:"user_email"`
}

// Cancel tombstones the caller's appointment at the given time.
// POST /appointments/cancel
func (h *AppointmentsHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	var req CancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.UserEmail) == "" {
		writeError(w, http.StatusBadRequest, "user_email is required")
		return
	}

	result := h.ledger.Cancel(r.Context(), schedule.CancelRequest{
		Slot:      req.slot(),
		UserEmail: req.UserEmail,
	})
	writeResult(w, http.StatusOK, result)
}

// List returns active appointments, optionally filtered by user.
// GET /appointments?user_email=...
func (h *AppointmentsHandler) List(w http.ResponseWriter, r *http.Request) {
	appts, err := h.ledger.ListActive(r.Context(), r.URL.Query().Get("user_email"))
	if err != nil {
		h.logger.Error("failed to list appointments", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list appointments")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "appointments": appts})
}

// Complete marks an appointment as completed.
// POST /appointments/{id}/complete
func (h *AppointmentsHandler) Complete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid appointment id")
		return
	}
	writeResult(w, http.StatusOK, h.ledger.Complete(r.Context(), id))
}

// Confirm regenerates the confirmation artifact for an appointment.
// POST /appointments/{id}/confirmation
func (h *AppointmentsHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid appointment id")
		return
	}
	writeResult(w, http.StatusOK, h.ledger.Confirm(r.Context(), id))
}
