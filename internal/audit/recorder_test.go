package audit

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubStore struct {
	entries   []Entry
	insertErr error
	lastLimit int32
}

func (s *stubStore) Insert(_ context.Context, entry Entry) error {
	if s.insertErr != nil {
		return s.insertErr
	}
	s.entries = append(s.entries, entry)
	return nil
}

func (s *stubStore) List(_ context.Context, filter Filter) ([]Entry, error) {
	s.lastLimit = filter.Limit
	return s.entries, nil
}

func TestRecordAssignsTimestamp(t *testing.T) {
	store := &stubStore{}
	rec := NewRecorder(store, zerolog.Nop())

	rec.Record(context.Background(), Entry{Action: ActionRBACDenied, Outcome: OutcomeDenied, DenialReason: "role mismatch"})

	require.Len(t, store.entries, 1)
	assert.False(t, store.entries[0].Timestamp.IsZero())
}

func TestRecordSwallowsStorageFailure(t *testing.T) {
	store := &stubStore{insertErr: errors.New("connection refused")}
	rec := NewRecorder(store, zerolog.Nop())

	// Must not panic or surface the error.
	rec.Record(context.Background(), Entry{Action: ActionOwnershipDenied, Outcome: OutcomeDenied, DenialReason: "not owner"})
	assert.Empty(t, store.entries)
}

func TestRecordSurvivesCancelledRequest(t *testing.T) {
	store := &stubStore{}
	rec := NewRecorder(store, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rec.Record(ctx, Entry{Action: ActionLogin, Outcome: OutcomeSuccess})

	require.Len(t, store.entries, 1)
}

func TestQueryClampsPageSize(t *testing.T) {
	store := &stubStore{}
	rec := NewRecorder(store, zerolog.Nop())

	_, err := rec.Query(context.Background(), Filter{})
	require.NoError(t, err)
	assert.Equal(t, int32(DefaultPageSize), store.lastLimit)

	_, err = rec.Query(context.Background(), Filter{Limit: 10_000})
	require.NoError(t, err)
	assert.Equal(t, int32(MaxPageSize), store.lastLimit)
}
