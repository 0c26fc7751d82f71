// Package audit provides the append-only trail of security-relevant
// decisions: every role or ownership denial, login and MFA outcomes, and
// mutations of protected resources. Entries are immutable once written.
package audit

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"
)

// Action identifies the kind of security decision an entry records.
type Action string

const (
	ActionLogin           Action = "LOGIN"
	ActionMFAVerify       Action = "MFA_VERIFY"
	ActionRBACDenied      Action = "RBAC_DENIED"
	ActionOwnershipDenied Action = "OWNERSHIP_DENIED"
	ActionResourceMutated Action = "RESOURCE_MUTATED"
)

// Outcome is the decision result an entry records.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeDenied  Outcome = "denied"
)

// Entry is one audit record. ActorID is nil for anonymous denials;
// DenialReason is required when Outcome is OutcomeDenied. Old/NewValues
// carry opaque before/after snapshots of mutated resources.
type Entry struct {
	ID           int64           `json:"id"`
	ActorID      *int64          `json:"actor_id,omitempty"`
	ActorRole    string          `json:"actor_role,omitempty"`
	Action       Action          `json:"action"`
	ResourceType string          `json:"resource_type,omitempty"`
	ResourceID   *int64          `json:"resource_id,omitempty"`
	ResourceName string          `json:"resource_name,omitempty"`
	Outcome      Outcome         `json:"outcome"`
	DenialReason string          `json:"denial_reason,omitempty"`
	IPAddress    string          `json:"ip_address,omitempty"`
	OldValues    json.RawMessage `json:"old_values,omitempty"`
	NewValues    json.RawMessage `json:"new_values,omitempty"`
	Details      string          `json:"details,omitempty"`
	Timestamp    time.Time       `json:"timestamp"`
}

// Filter narrows a trail query. A zero Filter returns the newest entries.
type Filter struct {
	ActorID *int64
	Outcome Outcome
	Limit   int32
}

// Store persists audit entries. Insert assigns the server-side timestamp
// column; List returns entries newest first.
type Store interface {
	Insert(ctx context.Context, entry Entry) error
	List(ctx context.Context, filter Filter) ([]Entry, error)
}

// ClientIP extracts the originating network address from proxy headers,
// falling back to the connection's remote address.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// X-Forwarded-For can contain multiple hops, the first is the client.
		if idx := strings.IndexByte(xff, ','); idx >= 0 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	return r.RemoteAddr
}
