package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mora-fusion/server/internal/audit"
	"github.com/mora-fusion/server/internal/auth"
	"github.com/mora-fusion/server/internal/domain/events"
)

type ownerStub struct {
	owners map[int64]*events.Owner
}

func (s *ownerStub) GetOwner(_ context.Context, eventID int64) (*events.Owner, error) {
	owner, ok := s.owners[eventID]
	if !ok {
		return nil, events.ErrNotFound
	}
	return owner, nil
}

func ownershipHandler(t *testing.T, trail *trailStub, lookup events.OwnerLookup) http.Handler {
	t.Helper()
	mux := http.NewServeMux()
	gate := RequireOwnership(lookup, audit.NewRecorder(trail, zerolog.Nop()), "test")
	mux.Handle("PUT /api/v1/events/{id}", gate(okHandler(t)))
	return mux
}

func TestRequireOwnershipAdmitsOwner(t *testing.T) {
	trail := &trailStub{}
	lookup := &ownerStub{owners: map[int64]*events.Owner{5: {OwnerID: 9, DisplayName: "Tech Meetup"}}}
	handler := ownershipHandler(t, trail, lookup)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, requestAsPut(auth.Identity{ID: 9, Role: "organizer"}, "/api/v1/events/5"))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, trail.all())
}

func TestRequireOwnershipAdminBypass(t *testing.T) {
	trail := &trailStub{}
	lookup := &ownerStub{owners: map[int64]*events.Owner{5: {OwnerID: 9, DisplayName: "Tech Meetup"}}}
	handler := ownershipHandler(t, trail, lookup)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, requestAsPut(auth.Identity{ID: 1, Role: "admin"}, "/api/v1/events/5"))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, trail.all(), "admin bypass must not be recorded as a denial")
}

func TestRequireOwnershipDeniesNonOwner(t *testing.T) {
	trail := &trailStub{}
	lookup := &ownerStub{owners: map[int64]*events.Owner{5: {OwnerID: 9, DisplayName: "Tech Meetup"}}}
	handler := ownershipHandler(t, trail, lookup)

	req := requestAsPut(auth.Identity{ID: 12, Role: "organizer"}, "/api/v1/events/5")
	req.Header.Set("X-Real-IP", "198.51.100.7")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)

	entries := trail.all()
	require.Len(t, entries, 1)
	entry := entries[0]
	assert.Equal(t, audit.ActionOwnershipDenied, entry.Action)
	assert.Equal(t, "Tech Meetup", entry.ResourceName)
	assert.Contains(t, entry.DenialReason, "user 9")
	require.NotNil(t, entry.ResourceID)
	assert.Equal(t, int64(5), *entry.ResourceID)
	assert.Equal(t, "198.51.100.7", entry.IPAddress)
}

func TestRequireOwnershipMissingResource(t *testing.T) {
	trail := &trailStub{}
	lookup := &ownerStub{owners: map[int64]*events.Owner{}}
	handler := ownershipHandler(t, trail, lookup)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, requestAsPut(auth.Identity{ID: 12, Role: "organizer"}, "/api/v1/events/404"))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Empty(t, trail.all(), "missing resources are not ownership denials")
}

func TestRequireOwnershipBadID(t *testing.T) {
	trail := &trailStub{}
	handler := ownershipHandler(t, trail, &ownerStub{})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, requestAsPut(auth.Identity{ID: 12, Role: "organizer"}, "/api/v1/events/abc"))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Empty(t, trail.all())
}

func TestRequireOwnershipExposesOwner(t *testing.T) {
	trail := &trailStub{}
	lookup := &ownerStub{owners: map[int64]*events.Owner{5: {OwnerID: 9, DisplayName: "Tech Meetup"}}}

	var resolved *events.Owner
	mux := http.NewServeMux()
	gate := RequireOwnership(lookup, audit.NewRecorder(trail, zerolog.Nop()), "test")
	mux.Handle("PUT /api/v1/events/{id}", gate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resolved = OwnerFromRequest(r)
	})))

	mux.ServeHTTP(httptest.NewRecorder(), requestAsPut(auth.Identity{ID: 9, Role: "organizer"}, "/api/v1/events/5"))

	require.NotNil(t, resolved)
	assert.Equal(t, int64(9), resolved.OwnerID)
}

func requestAsPut(identity auth.Identity, target string) *http.Request {
	req := httptest.NewRequest(http.MethodPut, target, nil)
	return req.WithContext(contextWithIdentity(req.Context(), identity))
}
