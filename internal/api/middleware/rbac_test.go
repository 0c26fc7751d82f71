package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mora-fusion/server/internal/audit"
	"github.com/mora-fusion/server/internal/auth"
)

type trailStub struct {
	mu      sync.Mutex
	entries []audit.Entry
}

func (s *trailStub) Insert(_ context.Context, entry audit.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return nil
}

func (s *trailStub) List(_ context.Context, _ audit.Filter) ([]audit.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]audit.Entry(nil), s.entries...), nil
}

func (s *trailStub) all() []audit.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]audit.Entry(nil), s.entries...)
}

func requestAs(identity auth.Identity, target string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, nil)
	return req.WithContext(contextWithIdentity(req.Context(), identity))
}

func TestRequireRoleAdmits(t *testing.T) {
	trail := &trailStub{}
	handler := RequireRole(audit.NewRecorder(trail, zerolog.Nop()), "test", auth.RoleOrganizer, auth.RoleAdmin)(okHandler(t))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, requestAs(auth.Identity{ID: 9, Role: "organizer"}, "/api/v1/events"))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, trail.all(), "admitted request must not be audited as a denial")
}

func TestRequireRoleDeniesWithSingleAuditRecord(t *testing.T) {
	trail := &trailStub{}
	handler := RequireRole(audit.NewRecorder(trail, zerolog.Nop()), "test", auth.RoleAdmin)(okHandler(t))

	req := requestAs(auth.Identity{ID: 9, Role: "user"}, "/api/v1/admin/audit-logs")
	req.Header.Set("X-Forwarded-For", "203.0.113.9")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)

	entries := trail.all()
	require.Len(t, entries, 1)
	entry := entries[0]
	assert.Equal(t, audit.ActionRBACDenied, entry.Action)
	assert.Equal(t, audit.OutcomeDenied, entry.Outcome)
	require.NotNil(t, entry.ActorID)
	assert.Equal(t, int64(9), *entry.ActorID)
	assert.Equal(t, "user", entry.ActorRole)
	assert.Contains(t, entry.DenialReason, "admin")
	assert.Equal(t, "203.0.113.9", entry.IPAddress)
}

func TestRequireRoleUnauthenticated(t *testing.T) {
	trail := &trailStub{}
	handler := RequireRole(audit.NewRecorder(trail, zerolog.Nop()), "test", auth.RoleAdmin)(okHandler(t))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/admin/audit-logs", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, trail.all(), "anonymous requests are rejected before the gate, not audited by it")
}

func TestRequireRoleNormalizesCase(t *testing.T) {
	trail := &trailStub{}
	handler := RequireRole(audit.NewRecorder(trail, zerolog.Nop()), "test", auth.RoleAdmin)(okHandler(t))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, requestAs(auth.Identity{ID: 1, Role: "Admin"}, "/api/v1/admin/audit-logs"))

	assert.Equal(t, http.StatusOK, rec.Code)
}
