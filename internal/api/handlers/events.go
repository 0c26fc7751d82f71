package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mora-fusion/server/internal/api/middleware"
	"github.com/mora-fusion/server/internal/api/problem"
	"github.com/mora-fusion/server/internal/audit"
	"github.com/mora-fusion/server/internal/domain/events"
	"github.com/mora-fusion/server/internal/sanitize"
)

// EventsHandler serves the event CRUD surface. Reads are public; writes
// pass through the role and ownership gates wired in the router.
type EventsHandler struct {
	events *events.Service
	env    string
}

func NewEventsHandler(service *events.Service, env string) *EventsHandler {
	return &EventsHandler{events: service, env: env}
}

type EventRequest struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	StartsAt    time.Time `json:"starts_at"`
	Location    string    `json:"location"`
}

func (req *EventRequest) validate() string {
	if strings.TrimSpace(req.Name) == "" {
		return "Name is required"
	}
	if req.StartsAt.IsZero() {
		return "Start time is required"
	}
	return ""
}

func (req *EventRequest) params() events.UpdateParams {
	return events.UpdateParams{
		Name:        sanitize.Text(req.Name),
		Description: sanitize.HTML(req.Description),
		StartsAt:    req.StartsAt,
		Location:    sanitize.Text(req.Location),
	}
}

func (h *EventsHandler) List(w http.ResponseWriter, r *http.Request) {
	var limit int32
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 32)
		if err != nil || parsed <= 0 {
			problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid limit", err, h.env)
			return
		}
		limit = int32(parsed)
	}

	items, err := h.events.List(r.Context(), limit)
	if err != nil {
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeInternal, "List events failed", err, h.env)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *EventsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		problem.Write(w, r, http.StatusNotFound, problem.TypeNotFound, "Event not found", nil, h.env)
		return
	}

	event, err := h.events.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, events.ErrNotFound) {
			problem.Write(w, r, http.StatusNotFound, problem.TypeNotFound, "Event not found", err, h.env)
			return
		}
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeInternal, "Get event failed", err, h.env)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

func (h *EventsHandler) Create(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromRequest(r)
	if !ok {
		problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Unauthenticated", problem.ErrUnauthorized, h.env)
		return
	}

	var req EventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request body", err, h.env)
		return
	}
	if msg := req.validate(); msg != "" {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, msg, nil, h.env)
		return
	}

	event, err := h.events.Create(r.Context(), identity, req.params(), audit.ClientIP(r))
	if err != nil {
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeInternal, "Create event failed", err, h.env)
		return
	}
	writeJSON(w, http.StatusCreated, event)
}

func (h *EventsHandler) Update(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromRequest(r)
	if !ok {
		problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Unauthenticated", problem.ErrUnauthorized, h.env)
		return
	}

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		problem.Write(w, r, http.StatusNotFound, problem.TypeNotFound, "Event not found", nil, h.env)
		return
	}

	var req EventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request body", err, h.env)
		return
	}
	if msg := req.validate(); msg != "" {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, msg, nil, h.env)
		return
	}

	event, err := h.events.Update(r.Context(), identity, id, req.params(), audit.ClientIP(r))
	if err != nil {
		if errors.Is(err, events.ErrNotFound) {
			problem.Write(w, r, http.StatusNotFound, problem.TypeNotFound, "Event not found", err, h.env)
			return
		}
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeInternal, "Update event failed", err, h.env)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

func (h *EventsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromRequest(r)
	if !ok {
		problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Unauthenticated", problem.ErrUnauthorized, h.env)
		return
	}

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		problem.Write(w, r, http.StatusNotFound, problem.TypeNotFound, "Event not found", nil, h.env)
		return
	}

	if err := h.events.Delete(r.Context(), identity, id, audit.ClientIP(r)); err != nil {
		if errors.Is(err, events.ErrNotFound) {
			problem.Write(w, r, http.StatusNotFound, problem.TypeNotFound, "Event not found", err, h.env)
			return
		}
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeInternal, "Delete event failed", err, h.env)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
