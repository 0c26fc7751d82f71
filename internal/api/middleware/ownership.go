package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/mora-fusion/server/internal/api/problem"
	"github.com/mora-fusion/server/internal/audit"
	"github.com/mora-fusion/server/internal/auth"
	"github.com/mora-fusion/server/internal/domain/events"
	"github.com/mora-fusion/server/internal/metrics"
)

// RequireOwnership admits the resource owner and any admin. The resource
// id comes from the {id} path segment. A missing resource is a plain 404
// with no audit record, since nothing was protected; a real resource
// owned by someone else is a 403 with exactly one denial entry naming
// the actual owner. The resolved owner is left in the context for the
// handler.
func RequireOwnership(lookup events.OwnerLookup, recorder *audit.Recorder, env string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := IdentityFromRequest(r)
			if !ok {
				problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Unauthenticated", problem.ErrUnauthorized, env)
				return
			}

			resourceID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
			if err != nil || resourceID <= 0 {
				problem.Write(w, r, http.StatusNotFound, problem.TypeNotFound, "Resource not found", problem.ErrNotFound, env)
				return
			}

			owner, err := lookup.GetOwner(r.Context(), resourceID)
			if err != nil {
				if errors.Is(err, events.ErrNotFound) {
					problem.Write(w, r, http.StatusNotFound, problem.TypeNotFound, "Resource not found", problem.ErrNotFound, env)
					return
				}
				problem.Write(w, r, http.StatusInternalServerError, problem.TypeInternal, "Ownership lookup failed", err, env)
				return
			}

			if owner.OwnerID != identity.ID && !auth.IsAdmin(identity.Role) {
				recorder.Record(r.Context(), audit.Entry{
					ActorID:      &identity.ID,
					ActorRole:    identity.Role,
					Action:       audit.ActionOwnershipDenied,
					ResourceType: "event",
					ResourceID:   &resourceID,
					ResourceName: owner.DisplayName,
					Outcome:      audit.OutcomeDenied,
					DenialReason: fmt.Sprintf("resource owned by user %d", owner.OwnerID),
					IPAddress:    audit.ClientIP(r),
					Details:      r.Method + " " + r.URL.Path,
				})
				metrics.AccessDenials.WithLabelValues("ownership").Inc()
				problem.Write(w, r, http.StatusForbidden, problem.TypeForbidden, "Not the resource owner", problem.ErrForbidden, env)
				return
			}

			next.ServeHTTP(w, r.WithContext(contextWithOwner(r.Context(), owner)))
		})
	}
}
