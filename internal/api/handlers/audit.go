package handlers

import (
	"net/http"
	"strconv"

	"github.com/mora-fusion/server/internal/api/problem"
	"github.com/mora-fusion/server/internal/audit"
)

// AuditHandler exposes the trail to administrators. There is no write
// endpoint; entries only enter the trail through the recorder.
type AuditHandler struct {
	recorder *audit.Recorder
	env      string
}

func NewAuditHandler(recorder *audit.Recorder, env string) *AuditHandler {
	return &AuditHandler{recorder: recorder, env: env}
}

// List handles GET /api/v1/admin/audit-logs with optional actor_id,
// outcome and limit query parameters. Results come back newest first.
func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	var filter audit.Filter

	if raw := r.URL.Query().Get("actor_id"); raw != "" {
		actorID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || actorID <= 0 {
			problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid actor_id", err, h.env)
			return
		}
		filter.ActorID = &actorID
	}

	if raw := r.URL.Query().Get("outcome"); raw != "" {
		outcome := audit.Outcome(raw)
		if outcome != audit.OutcomeSuccess && outcome != audit.OutcomeDenied {
			problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Outcome must be success or denied", nil, h.env)
			return
		}
		filter.Outcome = outcome
	}

	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.ParseInt(raw, 10, 32)
		if err != nil || limit <= 0 {
			problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid limit", err, h.env)
			return
		}
		filter.Limit = int32(limit)
	}

	entries, err := h.recorder.Query(r.Context(), filter)
	if err != nil {
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeInternal, "Audit query failed", err, h.env)
		return
	}
	if entries == nil {
		entries = []audit.Entry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": entries})
}
