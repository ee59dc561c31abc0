package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"receptionist/internal/doctors"
	"receptionist/pkg/logging"
)

// DoctorsHandler exposes the read-only doctor directory.
type DoctorsHandler struct {
	directory doctors.Directory
	logger    *logging.Logger
}

func NewDoctorsHandler(directory doctors.Directory, logger *logging.Logger) *DoctorsHandler {
	if directory == nil {
		panic("handlers: doctor directory cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &DoctorsHandler{directory: directory, logger: logger}
}

// List returns all doctors, optionally filtered by specialty.
// GET /doctors?specialty=...
func (h *DoctorsHandler) List(w http.ResponseWriter, r *http.Request) {
	all, err := h.directory.List(r.Context(), r.URL.Query().Get("specialty"))
	if err != nil {
		h.logger.Error("failed to list doctors", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list doctors")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "doctors": all})
}

// Get returns one doctor by name.
// GET /doctors/{name}
func (h *DoctorsHandler) Get(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	doctor, err := h.directory.GetByName(r.Context(), name)
	if err != nil {
		h.logger.Error("doctor lookup failed", "error", err, "doctor", name)
		writeError(w, http.StatusInternalServerError, "doctor lookup failed")
		return
	}
	if doctor == nil {
		writeError(w, http.StatusNotFound, "doctor not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "doctor": doctor})
}
