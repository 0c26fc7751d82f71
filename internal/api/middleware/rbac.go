package middleware

import (
	"fmt"
	"net/http"

	"github.com/mora-fusion/server/internal/api/problem"
	"github.com/mora-fusion/server/internal/audit"
	"github.com/mora-fusion/server/internal/auth"
	"github.com/mora-fusion/server/internal/metrics"
)

// RequireRole admits callers whose role is in the allow list. A request
// with no verified identity fails 401 without an audit record; a verified
// caller with the wrong role fails 403 and leaves exactly one denial in
// the audit trail.
func RequireRole(recorder *audit.Recorder, env string, allowed ...auth.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := IdentityFromRequest(r)
			if !ok {
				problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Unauthenticated", problem.ErrUnauthorized, env)
				return
			}

			if !auth.HasRole(identity.Role, allowed...) {
				reason := fmt.Sprintf("role %q not in [%s]", identity.Role, auth.RoleNames(allowed))
				recorder.Record(r.Context(), audit.Entry{
					ActorID:      &identity.ID,
					ActorRole:    identity.Role,
					Action:       audit.ActionRBACDenied,
					Outcome:      audit.OutcomeDenied,
					DenialReason: reason,
					IPAddress:    audit.ClientIP(r),
					Details:      r.Method + " " + r.URL.Path,
				})
				metrics.AccessDenials.WithLabelValues("role").Inc()
				problem.Write(w, r, http.StatusForbidden, problem.TypeForbidden, "Insufficient permissions", problem.ErrForbidden, env)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
