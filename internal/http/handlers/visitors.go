package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"receptionist/internal/visitors"
	"receptionist/pkg/logging"
)

// VisitorsHandler exposes visitor check-in and the check-in log.
type VisitorsHandler struct {
	service *visitors.Service
	logger  *logging.Logger
}

func NewVisitorsHandler(service *visitors.Service, logger *logging.Logger) *VisitorsHandler {
	if service == nil {
		panic("handlers: visitors service cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &VisitorsHandler{service: service, logger: logger}
}

type registerVisitorRequest struct {
	Name    string `json:"name"`
	Purpose string `json:"purpose"`
	Company string `json:"company"`
}

// Register checks in a visitor. Accepts multipart form data with an optional
// "image" file, or a plain JSON body without an image.
// POST /visitors
func (h *VisitorsHandler) Register(w http.ResponseWriter, r *http.Request) {
	req := visitors.RegisterRequest{}

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(visitors.DefaultMaxImageBytes + 1024*1024); err != nil {
			writeError(w, http.StatusBadRequest, "invalid multipart body")
			return
		}
		req.Name = r.FormValue("name")
		req.Purpose = r.FormValue("purpose")
		req.Company = r.FormValue("company")

		if file, _, err := r.FormFile("image"); err == nil {
			defer file.Close()
			data, err := io.ReadAll(file)
			if err != nil {
				writeError(w, http.StatusBadRequest, "failed to read image upload")
				return
			}
			req.Image = data
		}
	} else {
		var body registerVisitorRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		req.Name = body.Name
		req.Purpose = body.Purpose
		req.Company = body.Company
	}

	writeResult(w, http.StatusCreated, h.service.Register(r.Context(), req))
}

// List returns recent check-ins.
// GET /visitors?limit=50
func (h *VisitorsHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	records, err := h.service.List(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to list visitors", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list visitors")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "visitors": records})
}
