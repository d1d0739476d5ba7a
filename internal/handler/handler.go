// Package handler contains chi HTTP handlers that translate HTTP
// requests/responses to and from the service layer.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Shivanand-hulikatti/campus-registrations/internal/model"
	"github.com/Shivanand-hulikatti/campus-registrations/internal/service"
	"github.com/Shivanand-hulikatti/campus-registrations/internal/store"
)

// RegistrationHandler holds all HTTP handlers for the registration API.
type RegistrationHandler struct {
	svc *service.RegistrationService
}

// NewRegistrationHandler constructs a RegistrationHandler.
func NewRegistrationHandler(svc *service.RegistrationService) *RegistrationHandler {
	return &RegistrationHandler{svc: svc}
}

// ─── Helper utilities ─────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, model.ErrorResponse{Error: msg})
}

func decodeJSON(r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, 1<<20) // 1 MB limit
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// writeDomainError maps allocator errors onto HTTP statuses. Unknown errors
// fall through to 500.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrEventNotFound):
		writeError(w, http.StatusNotFound, "event not found")
	case errors.Is(err, store.ErrRegistrationNotFound):
		writeError(w, http.StatusNotFound, "registration not found")
	case errors.Is(err, service.ErrNotOwner),
		errors.Is(err, service.ErrNotOrganizer):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrAlreadyRegistered),
		errors.Is(err, service.ErrAlreadyCancelled),
		errors.Is(err, service.ErrNotCancellable),
		errors.Is(err, service.ErrEventNotOpen),
		errors.Is(err, service.ErrEventNotEnded),
		errors.Is(err, service.ErrInvalidStatusForAttendance):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrTemporaryConflict):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// ─── Events ───────────────────────────────────────────────────────────────────

// CreateEvent handles POST /events
func (h *RegistrationHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req model.CreateEventRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	event, err := h.svc.CreateEvent(r.Context(), req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, event)
}

// ListEvents handles GET /events
func (h *RegistrationHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.svc.ListEvents(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list events")
		return
	}

	// Return an empty array rather than null for better client compatibility.
	if events == nil {
		events = []model.Event{}
	}

	writeJSON(w, http.StatusOK, events)
}

// GetEvent handles GET /events/{id}
func (h *RegistrationHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	event, err := h.svc.GetEvent(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// ─── Registrations ────────────────────────────────────────────────────────────

// Register handles POST /events/{id}/register
func (h *RegistrationHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req model.RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.ParticipantID == "" {
		writeError(w, http.StatusBadRequest, "participant_id is required")
		return
	}

	result, err := h.svc.Register(r.Context(), chi.URLParam(r, "id"), req.ParticipantID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

// Cancel handles POST /registrations/{id}/cancel
func (h *RegistrationHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	var req model.CancelRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.ParticipantID == "" {
		writeError(w, http.StatusBadRequest, "participant_id is required")
		return
	}

	result, err := h.svc.Cancel(r.Context(), chi.URLParam(r, "id"), req.ParticipantID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// MarkAttendance handles POST /registrations/{id}/attendance
func (h *RegistrationHandler) MarkAttendance(w http.ResponseWriter, r *http.Request) {
	var req model.AttendanceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.OrganizerID == "" {
		writeError(w, http.StatusBadRequest, "organizer_id is required")
		return
	}

	reg, err := h.svc.MarkAttendance(r.Context(), chi.URLParam(r, "id"), req.OrganizerID, req.Attended)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, reg)
}

// CheckEligibility handles GET /events/{id}/eligibility?participant_id=...
func (h *RegistrationHandler) CheckEligibility(w http.ResponseWriter, r *http.Request) {
	participantID := r.URL.Query().Get("participant_id")
	if participantID == "" {
		writeError(w, http.StatusBadRequest, "participant_id query parameter is required")
		return
	}

	verdict, err := h.svc.CheckEligibility(r.Context(), participantID, chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, verdict)
}

// ListRegistrations handles GET /events/{id}/registrations?status=...
func (h *RegistrationHandler) ListRegistrations(w http.ResponseWriter, r *http.Request) {
	filter := model.Status(r.URL.Query().Get("status"))
	if filter != "" && !filter.Valid() {
		writeError(w, http.StatusBadRequest, "unknown status filter")
		return
	}

	regs, err := h.svc.ListByEvent(r.Context(), chi.URLParam(r, "id"), filter)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if regs == nil {
		regs = []model.Registration{}
	}
	writeJSON(w, http.StatusOK, regs)
}

// Stats handles GET /events/{id}/stats
func (h *RegistrationHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Stats(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// ListByParticipant handles GET /participants/{id}/registrations
func (h *RegistrationHandler) ListByParticipant(w http.ResponseWriter, r *http.Request) {
	regs, err := h.svc.ListByParticipant(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if regs == nil {
		regs = []model.Registration{}
	}
	writeJSON(w, http.StatusOK, regs)
}

// ─── Health check ─────────────────────────────────────────────────────────────

// HealthCheck handles GET /health
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
