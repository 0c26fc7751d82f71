package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mora-fusion/server/internal/audit"
	"github.com/mora-fusion/server/internal/auth"
)

type memRepo struct {
	mu     sync.Mutex
	nextID int64
	events map[int64]*Event
}

func newMemRepo() *memRepo {
	return &memRepo{nextID: 1, events: make(map[int64]*Event)}
}

func (m *memRepo) GetOwner(_ context.Context, id int64) (*Owner, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.events[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &Owner{OwnerID: e.OwnerID, DisplayName: e.Name}, nil
}

func (m *memRepo) GetByID(_ context.Context, id int64) (*Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.events[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *e
	return &copied, nil
}

func (m *memRepo) List(_ context.Context, limit int32) ([]Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Event, 0, len(m.events))
	for _, e := range m.events {
		out = append(out, *e)
	}
	return out, nil
}

func (m *memRepo) Create(_ context.Context, ownerID int64, params UpdateParams) (*Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := &Event{
		ID:          m.nextID,
		OwnerID:     ownerID,
		Name:        params.Name,
		Description: params.Description,
		StartsAt:    params.StartsAt,
		Location:    params.Location,
	}
	m.nextID++
	m.events[e.ID] = e
	copied := *e
	return &copied, nil
}

func (m *memRepo) Update(_ context.Context, id int64, params UpdateParams) (*Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.events[id]
	if !ok {
		return nil, ErrNotFound
	}
	e.Name = params.Name
	e.Description = params.Description
	e.StartsAt = params.StartsAt
	e.Location = params.Location
	copied := *e
	return &copied, nil
}

func (m *memRepo) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.events[id]; !ok {
		return ErrNotFound
	}
	delete(m.events, id)
	return nil
}

type memTrail struct {
	mu      sync.Mutex
	entries []audit.Entry
}

func (m *memTrail) Insert(_ context.Context, entry audit.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
	return nil
}

func (m *memTrail) List(_ context.Context, _ audit.Filter) ([]audit.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]audit.Entry(nil), m.entries...), nil
}

func TestUpdateRecordsSnapshots(t *testing.T) {
	repo := newMemRepo()
	trail := &memTrail{}
	svc := NewService(repo, audit.NewRecorder(trail, zerolog.Nop()), zerolog.Nop())
	organizer := auth.Identity{ID: 7, Role: "organizer"}

	created, err := svc.Create(context.Background(), organizer, UpdateParams{
		Name:     "Tech Meetup",
		StartsAt: time.Date(2026, 10, 1, 18, 0, 0, 0, time.UTC),
	}, "1.2.3.4")
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), organizer, created.ID, UpdateParams{
		Name:     "Tech Meetup v2",
		StartsAt: created.StartsAt,
	}, "1.2.3.4")
	require.NoError(t, err)

	require.Len(t, trail.entries, 2)
	update := trail.entries[1]
	assert.Equal(t, audit.ActionResourceMutated, update.Action)
	assert.Equal(t, "event", update.ResourceType)
	assert.Contains(t, string(update.OldValues), "Tech Meetup")
	assert.Contains(t, string(update.NewValues), "Tech Meetup v2")
}

func TestDeleteRecordsOldValues(t *testing.T) {
	repo := newMemRepo()
	trail := &memTrail{}
	svc := NewService(repo, audit.NewRecorder(trail, zerolog.Nop()), zerolog.Nop())
	organizer := auth.Identity{ID: 7, Role: "organizer"}

	created, err := svc.Create(context.Background(), organizer, UpdateParams{Name: "Hackathon"}, "1.2.3.4")
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), organizer, created.ID, "1.2.3.4"))

	_, err = svc.Get(context.Background(), created.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	deleteEntry := trail.entries[len(trail.entries)-1]
	assert.Equal(t, "event deleted", deleteEntry.Details)
	assert.NotEmpty(t, deleteEntry.OldValues)
	assert.Empty(t, deleteEntry.NewValues)
}

func TestUpdateMissingEvent(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo, audit.NewRecorder(&memTrail{}, zerolog.Nop()), zerolog.Nop())

	_, err := svc.Update(context.Background(), auth.Identity{ID: 1, Role: "admin"}, 42, UpdateParams{Name: "x"}, "")
	assert.ErrorIs(t, err, ErrNotFound)
}
